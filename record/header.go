package record

import (
	"bytes"
	"encoding/binary"

	"github.com/infinivision/relfile/constant"
	"github.com/infinivision/relfile/errmsg"
	"github.com/infinivision/relfile/sum"
)

// headerLen is the size of slot 0: one data slot, but never smaller than the
// encoded header.
func headerLen(recsize int) int64 {
	if n := constant.FlagSize + recsize; n > constant.HeaderSize {
		return int64(n)
	}
	return int64(constant.HeaderSize)
}

func (h Header) encode(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	copy(buf[constant.MagicOff:], constant.Magic)
	binary.LittleEndian.PutUint32(buf[constant.RecsizeOff:], uint32(h.Recsize))
	binary.LittleEndian.PutUint64(buf[constant.RecordsOff:], uint64(h.Records))
	binary.LittleEndian.PutUint64(buf[constant.LastrecOff:], uint64(h.Lastrec))
	binary.LittleEndian.PutUint32(buf[constant.SumOff:], sum.Castagnoli(buf[constant.MagicOff:constant.SumOff]))
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < constant.HeaderSize {
		return Header{}, errmsg.Trace(errmsg.ReadFailed)
	}
	if !bytes.Equal(buf[constant.MagicOff:constant.RecsizeOff], []byte(constant.Magic)) {
		return Header{}, errmsg.Trace(errmsg.BadMagic)
	}
	if sum.Castagnoli(buf[constant.MagicOff:constant.SumOff]) != binary.LittleEndian.Uint32(buf[constant.SumOff:]) {
		return Header{}, errmsg.Trace(errmsg.BadChecksum)
	}
	h := Header{
		Recsize: int(binary.LittleEndian.Uint32(buf[constant.RecsizeOff:])),
		Records: int64(binary.LittleEndian.Uint64(buf[constant.RecordsOff:])),
		Lastrec: int64(binary.LittleEndian.Uint64(buf[constant.LastrecOff:])),
	}
	if h.Records < 0 || h.Lastrec < 0 || h.Lastrec > h.Records {
		return Header{}, errmsg.Trace(errmsg.Inconsistent)
	}
	return h, nil
}

func (r *relfile) Header() Header {
	return Header{Recsize: r.recsize, Records: r.records, Lastrec: r.lastrec}
}

func (r *relfile) ReadHeader() error {
	return r.master("read header", r.load)
}

// WriteHeader writes the in-memory header. It refuses when the header on
// disk is ahead of ours, a stale writer must not shrink the file.
func (r *relfile) WriteHeader() error {
	return r.master("write header", func() error {
		h, err := r.disk()
		if err != nil {
			return err
		}
		if h.Records > r.records || h.Lastrec > r.lastrec {
			return errmsg.Trace(errmsg.Inconsistent)
		}
		return r.store()
	})
}

// UpdateHeader reconciles the in-memory header with the one on disk and
// writes the result back.
func (r *relfile) UpdateHeader() error {
	return r.master("update header", func() error {
		if err := r.load(); err != nil {
			return err
		}
		return r.store()
	})
}

// load adopts the on-disk header. Capacity and high-water mark only grow; a
// smaller value on disk means someone truncated the file behind our back.
// The master lock must be held.
func (r *relfile) load() error {
	h, err := r.disk()
	if err != nil {
		return err
	}
	if h.Records < r.records || h.Lastrec < r.lastrec {
		return errmsg.Trace(errmsg.Inconsistent)
	}
	r.records, r.lastrec = h.Records, h.Lastrec
	return nil
}

// disk reads and validates the on-disk header. The master lock must be held.
func (r *relfile) disk() (Header, error) {
	buf := make([]byte, constant.HeaderSize)
	if err := r.readAt(0, buf); err != nil {
		return Header{}, err
	}
	h, err := decodeHeader(buf)
	if err != nil {
		return Header{}, err
	}
	if h.Recsize != r.recsize {
		return Header{}, errmsg.Trace(errmsg.InvalidRecordSize)
	}
	return h, nil
}

// store writes the in-memory header. The master lock must be held.
func (r *relfile) store() error {
	buf := make([]byte, r.hlen)
	r.Header().encode(buf)
	return r.writeAt(0, buf)
}
