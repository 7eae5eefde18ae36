package errmsg

import "errors"

var (
	ScanEnd           = errors.New("scan end")
	NotExist          = errors.New("not exist")
	NotOpen           = errors.New("not open")
	AlreadyOpen       = errors.New("already open")
	AlreadyLocked     = errors.New("already locked")
	ReadFailed        = errors.New("read failed")
	WriteFailed       = errors.New("write failed")
	OutOfSpace        = errors.New("out of space")
	BadMagic          = errors.New("bad magic")
	BadChecksum       = errors.New("bad header checksum")
	Inconsistent      = errors.New("inconsistent header")
	DeletedRecord     = errors.New("deleted record")
	InvalidParameter  = errors.New("invalid parameter")
	InvalidRecordSize = errors.New("invalid record size")
)

// Code is the small integer form of an error.
type Code int

const (
	CodeOK Code = iota
	CodeInvalidParameter
	CodeInvalidRecordSize
	CodeDeletedRecord
	CodeIO
	CodeOutOfSpace
	CodeNotExist
	CodeScanEnd
	CodeState
	CodeHeader
	CodeSystem
	CodeUnknown
)

// Error carries the code, the cause and where it was raised.
type Error struct {
	Code Code
	Err  error
	Func string
	File string
	Line int
}

var codes = map[error]Code{
	ScanEnd:           CodeScanEnd,
	NotExist:          CodeNotExist,
	NotOpen:           CodeState,
	AlreadyOpen:       CodeState,
	AlreadyLocked:     CodeState,
	ReadFailed:        CodeIO,
	WriteFailed:       CodeIO,
	OutOfSpace:        CodeOutOfSpace,
	BadMagic:          CodeHeader,
	BadChecksum:       CodeHeader,
	Inconsistent:      CodeIO,
	DeletedRecord:     CodeDeletedRecord,
	InvalidParameter:  CodeInvalidParameter,
	InvalidRecordSize: CodeInvalidRecordSize,
}
