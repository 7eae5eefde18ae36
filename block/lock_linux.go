package block

import "golang.org/x/sys/unix"

// Open file description locks belong to the descriptor rather than the
// process, so two handles in one process exclude each other and closing an
// unrelated descriptor does not drop them.
func setlk(fd int, lk *unix.Flock_t) error {
	lk.Pid = 0
	return unix.FcntlFlock(uintptr(fd), unix.F_OFD_SETLK, lk)
}
