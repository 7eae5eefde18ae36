package block

import (
	"time"

	"github.com/infinivision/relfile/file"
	"golang.org/x/sys/unix"
)

/*
Block is a file with exclusive advisory byte-range locking. At most one range is
held at a time; a contended lock is retried Retries() times, Timeout() apart.
*/
type Block interface {
	file.File

	Locked() bool
	Unlock() error
	Lock(int64, int64) error
	WithLock(int64, int64, func() error) error

	Retries() int
	SetRetries(int) error
	Timeout() time.Duration
	SetTimeout(time.Duration) error
}

type block struct {
	file.File
	locked  bool
	retries int
	timeout time.Duration
	lk      unix.Flock_t // descriptor of the held lock
}
