package record

import (
	"errors"
	"math"
	"time"

	"github.com/infinivision/relfile/block"
	"github.com/infinivision/relfile/constant"
	"github.com/infinivision/relfile/errmsg"
	"golang.org/x/sys/unix"
)

// slotChunk bounds the buffer used to preallocate slots.
const slotChunk = 1 << 16

func New(path string, recsize int, opts Options) (*relfile, error) {
	if recsize <= 0 || recsize > constant.MaxRecsize {
		return nil, errmsg.Trace(errmsg.InvalidRecordSize)
	}
	if opts.Records < 0 {
		return nil, errmsg.Trace(errmsg.InvalidParameter)
	}
	b, err := block.New(path)
	if err != nil {
		return nil, err
	}
	if opts.Retries != 0 {
		if err := b.SetRetries(opts.Retries); err != nil {
			return nil, err
		}
	}
	if opts.Timeout != 0 {
		if err := b.SetTimeout(opts.Timeout); err != nil {
			return nil, err
		}
	}
	codec := opts.Codec
	if codec == nil {
		codec = RawCodec
	}
	return &relfile{
		recsize: recsize,
		initial: opts.Records,
		hlen:    headerLen(recsize),
		codec:   codec,
		seed:    opts.Seed,
		log:     opts.Log,
		b:       b,
	}, nil
}

func (r *relfile) Path() string {
	return r.b.Path()
}

func (r *relfile) RecordSize() int {
	return r.recsize
}

func (r *relfile) Records() int64 {
	return r.records
}

func (r *relfile) LastRecord() int64 {
	return r.lastrec
}

func (r *relfile) Record() int64 {
	return r.record
}

func (r *relfile) Retries() int {
	return r.b.Retries()
}

func (r *relfile) SetRetries(n int) error {
	return r.b.SetRetries(n)
}

func (r *relfile) Timeout() time.Duration {
	return r.b.Timeout()
}

func (r *relfile) SetTimeout(d time.Duration) error {
	return r.b.SetTimeout(d)
}

// Open creates and initialises the file when it does not exist yet, otherwise
// it opens it and validates the header. flag must ask for O_RDWR.
func (r *relfile) Open(flag int, mode uint32) error {
	if flag&unix.O_ACCMODE != unix.O_RDWR {
		return errmsg.Trace(errmsg.InvalidParameter)
	}
	flag &^= unix.O_CREAT | unix.O_EXCL | unix.O_TRUNC
	if !r.b.Exists() {
		err := r.create(flag, mode)
		if !errors.Is(err, unix.EEXIST) {
			return err
		}
	}
	if err := r.b.Open(flag, mode); err != nil {
		return err
	}
	r.records, r.lastrec, r.record = 0, 0, 0
	err := r.master("open", func() error {
		if err := r.load(); err != nil {
			return err
		}
		size, err := r.b.Size()
		if err != nil {
			return err
		}
		if size < r.offset(r.records+1) {
			return errmsg.Trace(errmsg.Inconsistent)
		}
		return nil
	})
	if err != nil {
		r.b.Close()
		return err
	}
	return nil
}

// create builds a new file. A file that fails half way is unlinked again,
// nobody else can have opened it successfully while we held the master lock.
func (r *relfile) create(flag int, mode uint32) error {
	if err := r.b.Open(flag|unix.O_CREAT|unix.O_EXCL, mode); err != nil {
		return err
	}
	r.records, r.lastrec, r.record = r.initial, 0, 0
	err := r.master("create", func() error {
		if err := r.store(); err != nil {
			return err
		}
		if err := r.appendSlots(1, r.records); err != nil {
			return err
		}
		if r.seed == nil {
			return nil
		}
		if err := r.seed(&seeder{r}); err != nil {
			return err
		}
		return r.store()
	})
	if err != nil {
		r.b.Close()
		r.b.Unlink()
		return err
	}
	return nil
}

func (r *relfile) Close() error {
	return r.b.Close()
}

// Remove closes the file if it is open and unlinks it.
func (r *relfile) Remove() error {
	if r.b.IsOpen() {
		if err := r.b.Close(); err != nil {
			return err
		}
	}
	return r.b.Unlink()
}

// Extend appends n tombstoned slots. A failure can leave some of them
// written but not yet accounted for in the header; they are overwritten by
// the next successful Extend.
func (r *relfile) Extend(n int64) error {
	if n <= 0 {
		return errmsg.Trace(errmsg.InvalidParameter)
	}
	return r.master("extend", func() error {
		if err := r.load(); err != nil {
			return err
		}
		if n > r.maxRecords()-r.records {
			return errmsg.Trace(errmsg.InvalidParameter)
		}
		if err := r.appendSlots(r.records+1, n); err != nil {
			return err
		}
		r.records += n
		return r.store()
	})
}

// Add stores data in the first tombstoned slot and returns its record number.
func (r *relfile) Add(data []byte) (int64, error) {
	var rn int64

	if data == nil {
		return 0, errmsg.Trace(errmsg.InvalidParameter)
	}
	slot := make([]byte, r.slotSize())
	if err := r.codec.Normalize(slot[constant.FlagSize:], data); err != nil {
		return 0, err
	}
	err := r.master("add", func() error {
		if err := r.load(); err != nil {
			return err
		}
		flag := make([]byte, constant.FlagSize)
		for n := int64(1); n <= r.records; n++ {
			if err := r.readAt(r.offset(n), flag); err != nil {
				return err
			}
			if flag[0]&constant.Tombstone == 0 {
				continue
			}
			if err := r.writeAt(r.offset(n), slot); err != nil {
				return err
			}
			rn = n
			if n > r.lastrec {
				r.lastrec = n
				return r.store()
			}
			return nil
		}
		return errmsg.Trace(errmsg.OutOfSpace)
	})
	if err != nil {
		return 0, err
	}
	return rn, nil
}

// Del tombstones record n and zeroes its payload.
func (r *relfile) Del(n int64) error {
	if err := r.check(n); err != nil {
		return err
	}
	slot := make([]byte, r.slotSize())
	slot[0] = constant.Tombstone
	return r.withRecord(n, func() error {
		return r.writeAt(r.offset(n), slot)
	})
}

func (r *relfile) Get(n int64) ([]byte, error) {
	var data []byte

	if err := r.check(n); err != nil {
		return nil, err
	}
	slot := make([]byte, r.slotSize())
	err := r.withRecord(n, func() error {
		if err := r.readAt(r.offset(n), slot); err != nil {
			return err
		}
		if slot[0]&constant.Tombstone != 0 {
			return errmsg.Trace(errmsg.DeletedRecord)
		}
		var err error
		data, err = r.codec.Build(slot[constant.FlagSize:])
		return err
	})
	if err != nil {
		return nil, err
	}
	r.record = n
	return data, nil
}

// Put rewrites record n through the codec. The tombstone flag is left as it is.
func (r *relfile) Put(n int64, data []byte) error {
	if data == nil {
		return errmsg.Trace(errmsg.InvalidParameter)
	}
	if err := r.check(n); err != nil {
		return err
	}
	slot := make([]byte, r.slotSize())
	err := r.withRecord(n, func() error {
		if err := r.readAt(r.offset(n), slot); err != nil {
			return err
		}
		if err := r.codec.Normalize(slot[constant.FlagSize:], data); err != nil {
			return err
		}
		return r.writeAt(r.offset(n), slot)
	})
	if err != nil {
		return err
	}
	r.record = n
	return nil
}

func (s *seeder) Seed(n int64, data []byte) error {
	r := s.r
	if n < 1 || n > r.records || data == nil {
		return errmsg.Trace(errmsg.InvalidParameter)
	}
	slot := make([]byte, r.slotSize())
	if err := r.codec.Normalize(slot[constant.FlagSize:], data); err != nil {
		return err
	}
	if err := r.writeAt(r.offset(n), slot); err != nil {
		return err
	}
	if n > r.lastrec {
		r.lastrec = n
	}
	return nil
}

// check validates a record number, rereading the header once in case another
// user extended the file.
func (r *relfile) check(n int64) error {
	if n < 1 {
		return errmsg.Trace(errmsg.InvalidParameter)
	}
	if n > r.records {
		if err := r.ReadHeader(); err != nil {
			return err
		}
		if n > r.records {
			return errmsg.Trace(errmsg.InvalidParameter)
		}
	}
	return nil
}

func (r *relfile) master(op string, fn func() error) error {
	if !r.b.IsOpen() {
		return errmsg.Trace(errmsg.NotOpen)
	}
	if err := r.b.WithLock(0, r.hlen, fn); err != nil {
		if r.log != nil {
			r.log.Errorf("%s '%s' failed: %v\n", op, r.b.Path(), err)
		}
		return err
	}
	return nil
}

func (r *relfile) withRecord(n int64, fn func() error) error {
	if !r.b.IsOpen() {
		return errmsg.Trace(errmsg.NotOpen)
	}
	return r.b.WithLock(r.offset(n), r.slotSize(), fn)
}

func (r *relfile) slotSize() int64 {
	return int64(constant.FlagSize + r.recsize)
}

// maxRecords is the largest capacity whose slots stay addressable by an
// int64 offset.
func (r *relfile) maxRecords() int64 {
	return (math.MaxInt64 - r.hlen) / r.slotSize()
}

func (r *relfile) offset(n int64) int64 {
	return r.hlen + (n-1)*r.slotSize()
}

// appendSlots writes cnt tombstoned slots starting at record n.
func (r *relfile) appendSlots(n, cnt int64) error {
	size := r.slotSize()
	per := slotChunk / size
	if per == 0 {
		per = 1
	}
	for cnt > 0 {
		m := per
		if cnt < m {
			m = cnt
		}
		buf := make([]byte, m*size)
		for i := int64(0); i < m; i++ {
			buf[i*size] = constant.Tombstone
		}
		if err := r.writeAt(r.offset(n), buf); err != nil {
			return err
		}
		n, cnt = n+m, cnt-m
	}
	return nil
}

func (r *relfile) readAt(o int64, buf []byte) error {
	if _, err := r.b.Seek(o, unix.SEEK_SET); err != nil {
		return err
	}
	n, err := r.b.Read(buf)
	switch {
	case err != nil:
		return err
	case n != len(buf):
		return errmsg.Trace(errmsg.ReadFailed)
	}
	return nil
}

func (r *relfile) writeAt(o int64, buf []byte) error {
	if _, err := r.b.Seek(o, unix.SEEK_SET); err != nil {
		return err
	}
	n, err := r.b.Write(buf)
	switch {
	case err != nil:
		return err
	case n != len(buf):
		return errmsg.Trace(errmsg.WriteFailed)
	}
	return nil
}
