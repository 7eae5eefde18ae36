package errmsg

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"syscall"
)

// Trace wraps err with the location of the caller. An error that already
// carries a location is returned untouched so the innermost site wins.
func Trace(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	e = &Error{Code: codeOf(err), Err: err}
	if pc, file, line, ok := runtime.Caller(1); ok {
		e.File, e.Line = filepath.Base(file), line
		if fn := runtime.FuncForPC(pc); fn != nil {
			e.Func = fn.Name()
		}
	}
	return e
}

// CodeOf returns the code of err, CodeOK for nil.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return codeOf(err)
}

func (e *Error) Error() string {
	if e.File == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s (%s:%d %s)", e.Err, e.File, e.Line, e.Func)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeInvalidParameter:
		return "invalid parameter"
	case CodeInvalidRecordSize:
		return "invalid record size"
	case CodeDeletedRecord:
		return "deleted record"
	case CodeIO:
		return "i/o error"
	case CodeOutOfSpace:
		return "out of space"
	case CodeNotExist:
		return "not exist"
	case CodeScanEnd:
		return "scan end"
	case CodeState:
		return "invalid state"
	case CodeHeader:
		return "bad header"
	case CodeSystem:
		return "system error"
	}
	return "unknown error"
}

func codeOf(err error) Code {
	for {
		if c, ok := codes[err]; ok {
			return c
		}
		if _, ok := err.(syscall.Errno); ok {
			return CodeSystem
		}
		if err = errors.Unwrap(err); err == nil {
			return CodeUnknown
		}
	}
}
