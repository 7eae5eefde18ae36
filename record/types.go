package record

import (
	"time"

	"github.com/infinivision/relfile/block"
	"github.com/infinivision/relfile/stack"
	"github.com/nnsgmsone/damrey/logger"
)

/*
File is a relative record file: fixed-size slots addressed by a 1-based record
number, slot 0 reserved for the header. A File is not safe for concurrent use
by several goroutines; cooperating users each open their own File and
synchronise through advisory locks on the backing file.
*/
type File interface {
	Path() string
	Close() error
	Remove() error
	Open(int, uint32) error

	Del(int64) error
	Extend(int64) error
	Put(int64, []byte) error
	Add([]byte) (int64, error)
	Get(int64) ([]byte, error)

	Record() int64
	First() (Slot, error)
	Next() (Slot, error)
	Prev() (Slot, error)
	Last() (Slot, error)
	Find([]byte, Compare) (int64, error)
	Search([]byte, Compare, Capture, stack.Stack) error

	Header() Header
	ReadHeader() error
	WriteHeader() error
	UpdateHeader() error

	RecordSize() int
	Records() int64
	LastRecord() int64

	Retries() int
	SetRetries(int) error
	Timeout() time.Duration
	SetTimeout(time.Duration) error
}

// Header is the decoded content of slot 0.
type Header struct {
	Recsize int
	Records int64
	Lastrec int64
}

// Slot is one record as seen by the cursor. Data is nil for a tombstone.
type Slot struct {
	Num     int64
	Deleted bool
	Data    []byte
}

// Compare reports whether candidate matches wanted.
type Compare func(wanted, candidate []byte) bool

// Capture receives every match of a Search.
type Capture func(f File, candidate []byte, results stack.Stack) error

/*
Codec converts between on-disk payload bytes and the caller's record
representation. Build decodes a payload into a new record. Normalize
rewrites payload in place from data; for Put payload holds the current
on-disk bytes, for Add it is zeroed.
*/
type Codec interface {
	Build([]byte) ([]byte, error)
	Normalize(payload, data []byte) error
}

// Seeder writes active records while a new file is being initialised.
type Seeder interface {
	Seed(int64, []byte) error
}

type Options struct {
	Records int64         // capacity of a newly created file
	Retries int           // zero keeps the default, use SetRetries(0) to disable retry
	Timeout time.Duration // zero keeps the default
	Codec   Codec
	Seed    func(Seeder) error // run once, when the file is created
	Log     logger.Log
}

type relfile struct {
	recsize int
	records int64
	lastrec int64
	record  int64 // cursor
	initial int64 // capacity used when creating
	hlen    int64 // length of the header region
	codec   Codec
	seed    func(Seeder) error
	log     logger.Log
	b       block.Block
}

type seeder struct {
	r *relfile
}

type rawCodec struct{}
