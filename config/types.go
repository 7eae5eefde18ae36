package config

import (
	"io"
	"time"
)

type Config struct {
	Path       string        // record file
	RecordSize int           // payload bytes per record
	Records    int64         // capacity of a newly created file
	Retries    int           // lock attempts after the first one
	Timeout    time.Duration // pause between lock attempts
	Mode       uint32        // permission bits of a newly created file
	LogWriter  io.Writer
}
