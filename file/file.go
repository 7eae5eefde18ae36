package file

import (
	"github.com/infinivision/relfile/errmsg"
	"golang.org/x/sys/unix"
)

func New(path string) (*file, error) {
	if len(path) == 0 {
		return nil, errmsg.Trace(errmsg.InvalidParameter)
	}
	return &file{fd: -1, path: path}, nil
}

func (f *file) Path() string {
	return f.path
}

func (f *file) Fd() int {
	return f.fd
}

func (f *file) IsOpen() bool {
	return f.fd >= 0
}

func (f *file) Exists() bool {
	var st unix.Stat_t

	return unix.Stat(f.path, &st) == nil
}

func (f *file) Open(flag int, mode uint32) error {
	if f.fd >= 0 {
		return errmsg.Trace(errmsg.AlreadyOpen)
	}
	fd, err := unix.Open(f.path, flag|unix.O_CLOEXEC, mode)
	if err != nil {
		return errmsg.Trace(err)
	}
	f.fd = fd
	return nil
}

func (f *file) Close() error {
	if f.fd < 0 {
		return errmsg.Trace(errmsg.NotOpen)
	}
	fd := f.fd
	f.fd = -1
	return errmsg.Trace(unix.Close(fd))
}

func (f *file) Unlink() error {
	return errmsg.Trace(unix.Unlink(f.path))
}

func (f *file) Read(buf []byte) (int, error) {
	if f.fd < 0 {
		return 0, errmsg.Trace(errmsg.NotOpen)
	}
	if buf == nil {
		return 0, errmsg.Trace(errmsg.InvalidParameter)
	}
	n, err := unix.Read(f.fd, buf)
	if err != nil {
		return 0, errmsg.Trace(err)
	}
	return n, nil
}

func (f *file) Write(buf []byte) (int, error) {
	if f.fd < 0 {
		return 0, errmsg.Trace(errmsg.NotOpen)
	}
	if buf == nil {
		return 0, errmsg.Trace(errmsg.InvalidParameter)
	}
	n, err := unix.Write(f.fd, buf)
	if err != nil {
		return 0, errmsg.Trace(err)
	}
	return n, nil
}

func (f *file) Seek(o int64, whence int) (int64, error) {
	if f.fd < 0 {
		return 0, errmsg.Trace(errmsg.NotOpen)
	}
	switch whence {
	case unix.SEEK_SET, unix.SEEK_CUR, unix.SEEK_END:
	default:
		return 0, errmsg.Trace(errmsg.InvalidParameter)
	}
	off, err := unix.Seek(f.fd, o, whence)
	if err != nil {
		return 0, errmsg.Trace(err)
	}
	return off, nil
}

func (f *file) Tell() (int64, error) {
	return f.Seek(0, unix.SEEK_CUR)
}

// Stat uses the open descriptor when there is one and the path otherwise.
func (f *file) Stat() (*unix.Stat_t, error) {
	var st unix.Stat_t

	if f.fd >= 0 {
		if err := unix.Fstat(f.fd, &st); err != nil {
			return nil, errmsg.Trace(err)
		}
		return &st, nil
	}
	if err := unix.Stat(f.path, &st); err != nil {
		return nil, errmsg.Trace(err)
	}
	return &st, nil
}

func (f *file) Size() (int64, error) {
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size, nil
}
