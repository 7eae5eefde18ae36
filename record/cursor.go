package record

import (
	"errors"

	"github.com/infinivision/relfile/constant"
	"github.com/infinivision/relfile/errmsg"
	"github.com/infinivision/relfile/stack"
)

// The cursor walks slots in physical order and does not skip tombstones.
// Moving past either end returns errmsg.ScanEnd and leaves the cursor alone.

func (r *relfile) First() (Slot, error) {
	return r.visit(1)
}

func (r *relfile) Next() (Slot, error) {
	return r.visit(r.record + 1)
}

func (r *relfile) Prev() (Slot, error) {
	return r.visit(r.record - 1)
}

// Last rereads the header first so records added by other users are reached.
func (r *relfile) Last() (Slot, error) {
	if err := r.ReadHeader(); err != nil {
		return Slot{}, err
	}
	return r.visit(r.records)
}

// Find returns the first live record, in physical order, for which cmp
// reports a match.
func (r *relfile) Find(data []byte, cmp Compare) (int64, error) {
	var rn int64

	if cmp == nil {
		return 0, errmsg.Trace(errmsg.InvalidParameter)
	}
	err := r.scan(func(s Slot) (bool, error) {
		if cmp(data, s.Data) {
			rn = s.Num
			return false, nil
		}
		return true, nil
	})
	switch {
	case err != nil:
		return 0, err
	case rn == 0:
		return 0, errmsg.Trace(errmsg.NotExist)
	}
	return rn, nil
}

// Search hands every live match to capture. Finding nothing is not an error;
// results is simply left untouched.
func (r *relfile) Search(data []byte, cmp Compare, capture Capture, results stack.Stack) error {
	if cmp == nil || capture == nil || results == nil {
		return errmsg.Trace(errmsg.InvalidParameter)
	}
	return r.scan(func(s Slot) (bool, error) {
		if !cmp(data, s.Data) {
			return true, nil
		}
		if err := capture(r, s.Data, results); err != nil {
			return false, err
		}
		return true, nil
	})
}

// scan feeds live slots to fn until it returns false or the file ends. The
// header is reread before the walk, no lock is held at that point.
func (r *relfile) scan(fn func(Slot) (bool, error)) error {
	if err := r.ReadHeader(); err != nil {
		return err
	}
	for s, err := r.First(); ; s, err = r.Next() {
		switch {
		case errors.Is(err, errmsg.ScanEnd):
			return nil
		case err != nil:
			return err
		case s.Deleted:
			continue
		}
		if ok, err := fn(s); err != nil || !ok {
			return err
		}
	}
}

func (r *relfile) visit(n int64) (Slot, error) {
	if n < 1 || n > r.records {
		return Slot{}, errmsg.Trace(errmsg.ScanEnd)
	}
	s := Slot{Num: n}
	slot := make([]byte, r.slotSize())
	err := r.withRecord(n, func() error {
		if err := r.readAt(r.offset(n), slot); err != nil {
			return err
		}
		if slot[0]&constant.Tombstone != 0 {
			s.Deleted = true
			return nil
		}
		var err error
		s.Data, err = r.codec.Build(slot[constant.FlagSize:])
		return err
	})
	if err != nil {
		return Slot{}, err
	}
	r.record = n
	return s, nil
}
