package block

import (
	"errors"
	"io"
	"time"

	"github.com/infinivision/relfile/constant"
	"github.com/infinivision/relfile/errmsg"
	"github.com/infinivision/relfile/file"
	"golang.org/x/sys/unix"
)

func New(path string) (*block, error) {
	f, err := file.New(path)
	if err != nil {
		return nil, err
	}
	return &block{
		File:    f,
		retries: constant.DefaultRetries,
		timeout: constant.DefaultTimeout,
	}, nil
}

func (b *block) Locked() bool {
	return b.locked
}

func (b *block) Retries() int {
	return b.retries
}

func (b *block) SetRetries(n int) error {
	if n < 0 {
		return errmsg.Trace(errmsg.InvalidParameter)
	}
	b.retries = n
	return nil
}

func (b *block) Timeout() time.Duration {
	return b.timeout
}

func (b *block) SetTimeout(d time.Duration) error {
	if d < 0 {
		return errmsg.Trace(errmsg.InvalidParameter)
	}
	b.timeout = d
	return nil
}

// Lock takes an exclusive lock on [o, o+n). A lock held by someone else is
// retried until the retry budget is spent, after which the last error is
// returned. Any other failure is returned at once.
func (b *block) Lock(o, n int64) error {
	switch {
	case !b.IsOpen():
		return errmsg.Trace(errmsg.NotOpen)
	case o < 0 || n <= 0:
		return errmsg.Trace(errmsg.InvalidParameter)
	case b.locked:
		return errmsg.Trace(errmsg.AlreadyLocked)
	}
	lk := unix.Flock_t{
		Type:   unix.F_WRLCK,
		Whence: io.SeekStart,
		Start:  o,
		Len:    n,
	}
	for cnt := 0; ; {
		err := setlk(b.Fd(), &lk)
		switch {
		case err == nil:
			b.lk = lk
			b.locked = true
			return nil
		case wouldBlock(err):
			if cnt = cnt + 1; cnt > b.retries {
				return errmsg.Trace(err)
			}
			time.Sleep(b.timeout)
		default:
			return errmsg.Trace(err)
		}
	}
}

// Unlock releases the held range. It is a no-op when nothing is held.
func (b *block) Unlock() error {
	if !b.locked {
		return nil
	}
	lk := b.lk
	lk.Type = unix.F_UNLCK
	if err := setlk(b.Fd(), &lk); err != nil {
		return errmsg.Trace(err)
	}
	b.locked = false
	return nil
}

// WithLock runs fn while holding [o, o+n). The range is released on every
// return path, including a failing or panicking fn.
func (b *block) WithLock(o, n int64, fn func() error) (err error) {
	if err = b.Lock(o, n); err != nil {
		return err
	}
	defer func() {
		if uerr := b.Unlock(); err == nil {
			err = uerr
		}
	}()
	return fn()
}

// Close drops any lock left held before closing the descriptor.
func (b *block) Close() error {
	if !b.IsOpen() {
		return errmsg.Trace(errmsg.NotOpen)
	}
	uerr := b.Unlock()
	b.locked = false
	if err := b.File.Close(); err != nil {
		return err
	}
	return uerr
}

func wouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EACCES)
}
