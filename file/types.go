package file

import "golang.org/x/sys/unix"

type File interface {
	Path() string
	Fd() int
	IsOpen() bool
	Exists() bool

	Close() error
	Unlink() error
	Open(int, uint32) error

	Tell() (int64, error)
	Size() (int64, error)
	Stat() (*unix.Stat_t, error)
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	Seek(int64, int) (int64, error)
}

type file struct {
	fd   int
	path string
}
