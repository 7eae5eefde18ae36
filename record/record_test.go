package record

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/infinivision/relfile/constant"
	"github.com/infinivision/relfile/errmsg"
	"golang.org/x/sys/unix"
)

func testOptions(records int64) Options {
	return Options{Records: records, Retries: 3, Timeout: time.Millisecond}
}

func openFile(t *testing.T, path string, recsize int, opts Options) *relfile {
	t.Helper()
	r, err := New(path, recsize, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := r.Open(unix.O_RDWR, 0644); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if r.b.IsOpen() {
			r.Close()
		}
	})
	return r
}

func letters(c byte, n int) []byte {
	return bytes.Repeat([]byte{c}, n)
}

func TestNewValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rr.dat")
	if _, err := New(path, 0, Options{}); !errors.Is(err, errmsg.InvalidRecordSize) {
		t.Errorf("New(recsize=0) error = %v, want InvalidRecordSize", err)
	}
	if _, err := New(path, 8, Options{Records: -1}); !errors.Is(err, errmsg.InvalidParameter) {
		t.Errorf("New(records=-1) error = %v, want InvalidParameter", err)
	}
	if _, err := New("", 8, Options{}); !errors.Is(err, errmsg.InvalidParameter) {
		t.Errorf("New(path=\"\") error = %v, want InvalidParameter", err)
	}
	r, err := New(path, 8, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if r.Retries() != constant.DefaultRetries || r.Timeout() != constant.DefaultTimeout {
		t.Errorf("defaults = %d/%v", r.Retries(), r.Timeout())
	}
	if err := r.Open(unix.O_RDONLY, 0); !errors.Is(err, errmsg.InvalidParameter) {
		t.Errorf("Open(O_RDONLY) error = %v, want InvalidParameter", err)
	}
}

func TestReopenKeepsHeader(t *testing.T) {
	tests := []struct {
		name    string
		recsize int
		records int64
		adds    int
	}{
		{"tiny records", 1, 5, 3},
		{"smaller than header", 4, 10, 10},
		{"alphabet", 26, 26, 1},
		{"large records", 512, 3, 2},
		{"empty", 16, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rr.dat")
			r := openFile(t, path, tt.recsize, testOptions(tt.records))
			for i := 0; i < tt.adds; i++ {
				if _, err := r.Add(letters('x', tt.recsize)); err != nil {
					t.Fatal(err)
				}
			}
			want := r.Header()
			if want.Recsize != tt.recsize || want.Records != tt.records || want.Lastrec != int64(tt.adds) {
				t.Fatalf("Header() = %+v", want)
			}
			if err := r.Close(); err != nil {
				t.Fatal(err)
			}

			again := openFile(t, path, tt.recsize, Options{Timeout: time.Millisecond})
			if got := again.Header(); got != want {
				t.Errorf("reopened Header() = %+v, want %+v", got, want)
			}
			size, err := again.b.Size()
			if err != nil {
				t.Fatal(err)
			}
			if wantSize := headerLen(tt.recsize) + tt.records*int64(tt.recsize+1); size != wantSize {
				t.Errorf("file size = %d, want %d", size, wantSize)
			}
		})
	}
}

func TestOpenRecordSizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rr.dat")
	r := openFile(t, path, 26, testOptions(4))
	r.Close()

	for _, recsize := range []int{25, 27, 1, 100} {
		other, err := New(path, recsize, testOptions(4))
		if err != nil {
			t.Fatal(err)
		}
		err = other.Open(unix.O_RDWR, 0644)
		if !errors.Is(err, errmsg.InvalidRecordSize) {
			t.Errorf("Open(recsize=%d) error = %v, want InvalidRecordSize", recsize, err)
		}
		if errmsg.CodeOf(err) != errmsg.CodeInvalidRecordSize {
			t.Errorf("CodeOf() = %v", errmsg.CodeOf(err))
		}
		if other.b.IsOpen() {
			t.Error("descriptor left open after failed Open")
		}
	}
}

func TestOpenTwice(t *testing.T) {
	r := openFile(t, filepath.Join(t.TempDir(), "rr.dat"), 8, testOptions(1))
	if err := r.Open(unix.O_RDWR, 0644); !errors.Is(err, errmsg.AlreadyOpen) {
		t.Errorf("second Open() error = %v, want AlreadyOpen", err)
	}
}

func TestClosedOperations(t *testing.T) {
	r, err := New(filepath.Join(t.TempDir(), "rr.dat"), 8, testOptions(1))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Add([]byte("x")); !errors.Is(err, errmsg.NotOpen) {
		t.Errorf("Add() error = %v, want NotOpen", err)
	}
	if err := r.Extend(1); !errors.Is(err, errmsg.NotOpen) {
		t.Errorf("Extend() error = %v, want NotOpen", err)
	}
	if err := r.Close(); !errors.Is(err, errmsg.NotOpen) {
		t.Errorf("Close() error = %v, want NotOpen", err)
	}
}

func TestAddGetRoundTrip(t *testing.T) {
	r := openFile(t, filepath.Join(t.TempDir(), "rr.dat"), 16, testOptions(4))
	n, err := r.Add([]byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Add() = %d, want 1", n)
	}
	got, err := r.Get(n)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want := append([]byte("hello"), make([]byte, 11)...)
	if !bytes.Equal(got, want) {
		t.Errorf("Get() = %q, want %q", got, want)
	}
	if r.Record() != n {
		t.Errorf("Record() = %d, want %d", r.Record(), n)
	}
	s, err := r.First()
	if err != nil || s.Deleted {
		t.Errorf("First() = %+v, %v; slot should be live", s, err)
	}
}

func TestAddTooLong(t *testing.T) {
	r := openFile(t, filepath.Join(t.TempDir(), "rr.dat"), 4, testOptions(2))
	if _, err := r.Add([]byte("too long")); !errors.Is(err, errmsg.InvalidRecordSize) {
		t.Errorf("Add() error = %v, want InvalidRecordSize", err)
	}
	if _, err := r.Add(nil); !errors.Is(err, errmsg.InvalidParameter) {
		t.Errorf("Add(nil) error = %v, want InvalidParameter", err)
	}
}

func TestDelThenGet(t *testing.T) {
	r := openFile(t, filepath.Join(t.TempDir(), "rr.dat"), 8, testOptions(3))
	for _, c := range []byte("abc") {
		if _, err := r.Add(letters(c, 8)); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Del(2); err != nil {
		t.Fatalf("Del() error = %v", err)
	}
	_, err := r.Get(2)
	if !errors.Is(err, errmsg.DeletedRecord) {
		t.Fatalf("Get() error = %v, want DeletedRecord", err)
	}
	if errmsg.CodeOf(err) != errmsg.CodeDeletedRecord {
		t.Errorf("CodeOf() = %v", errmsg.CodeOf(err))
	}
	if got, err := r.Get(3); err != nil || !bytes.Equal(got, letters('c', 8)) {
		t.Errorf("Get(3) = %q, %v", got, err)
	}
	n, err := r.Add(letters('z', 8))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Add() after Del reused slot %d, want 2", n)
	}
}

func TestDelZeroesPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rr.dat")
	r := openFile(t, path, 8, testOptions(1))
	if _, err := r.Add(letters('q', 8)); err != nil {
		t.Fatal(err)
	}
	if err := r.Del(1); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	slot := raw[r.offset(1):]
	if slot[0] != constant.Tombstone || !bytes.Equal(slot[1:], make([]byte, 8)) {
		t.Errorf("deleted slot = %v, want tombstone and zero payload", slot)
	}
}

func TestAddOverflowWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rr.dat")
	r := openFile(t, path, 8, testOptions(2))
	for i := 0; i < 2; i++ {
		if _, err := r.Add(letters('a', 8)); err != nil {
			t.Fatal(err)
		}
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Add(letters('b', 8))
	if !errors.Is(err, errmsg.OutOfSpace) {
		t.Fatalf("Add() on a full file error = %v, want OutOfSpace", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("failed Add modified the file")
	}
	if r.b.Locked() {
		t.Error("master lock left held after failed Add")
	}
}

// Record numbers outside 1..records are rejected. This replaces the old
// (n < 0) && (n > records) test, which could never be true and so let any
// number through.
func TestBoundsChecking(t *testing.T) {
	r := openFile(t, filepath.Join(t.TempDir(), "rr.dat"), 8, testOptions(3))
	for _, n := range []int64{-1, 0, 4, 100} {
		if _, err := r.Get(n); !errors.Is(err, errmsg.InvalidParameter) {
			t.Errorf("Get(%d) error = %v, want InvalidParameter", n, err)
		}
		if err := r.Put(n, []byte("x")); !errors.Is(err, errmsg.InvalidParameter) {
			t.Errorf("Put(%d) error = %v, want InvalidParameter", n, err)
		}
		if err := r.Del(n); !errors.Is(err, errmsg.InvalidParameter) {
			t.Errorf("Del(%d) error = %v, want InvalidParameter", n, err)
		}
	}
}

func TestPutKeepsTombstone(t *testing.T) {
	r := openFile(t, filepath.Join(t.TempDir(), "rr.dat"), 8, testOptions(2))
	if err := r.Put(2, []byte("ghost")); err != nil {
		t.Fatalf("Put() on a tombstone error = %v", err)
	}
	if _, err := r.Get(2); !errors.Is(err, errmsg.DeletedRecord) {
		t.Errorf("Get() error = %v, want DeletedRecord", err)
	}
	n, err := r.Add([]byte("live"))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Put(n, []byte("changed")); err != nil {
		t.Fatal(err)
	}
	if got, err := r.Get(n); err != nil || !bytes.HasPrefix(got, []byte("changed")) {
		t.Errorf("Get() = %q, %v", got, err)
	}
}

func TestExtend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rr.dat")
	r := openFile(t, path, 8, testOptions(1))
	if _, err := r.Add([]byte("one")); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Add([]byte("two")); !errors.Is(err, errmsg.OutOfSpace) {
		t.Fatalf("Add() error = %v, want OutOfSpace", err)
	}
	if err := r.Extend(0); !errors.Is(err, errmsg.InvalidParameter) {
		t.Errorf("Extend(0) error = %v, want InvalidParameter", err)
	}
	if err := r.Extend(3); err != nil {
		t.Fatalf("Extend() error = %v", err)
	}
	if r.Records() != 4 {
		t.Errorf("Records() = %d, want 4", r.Records())
	}
	for n := int64(2); n <= 4; n++ {
		if _, err := r.Get(n); !errors.Is(err, errmsg.DeletedRecord) {
			t.Errorf("Get(%d) on extended slot error = %v, want DeletedRecord", n, err)
		}
	}
	n, err := r.Add([]byte("two"))
	if err != nil || n != 2 {
		t.Errorf("Add() after Extend = %d, %v", n, err)
	}
	if size, _ := r.b.Size(); size != r.offset(5) {
		t.Errorf("file size = %d, want %d", size, r.offset(5))
	}
}

func TestExtendRejectsOverflow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rr.dat")
	r := openFile(t, path, 8, testOptions(2))
	before, err := r.b.Size()
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range []int64{math.MaxInt64, r.maxRecords() - 1} {
		if err := r.Extend(n); !errors.Is(err, errmsg.InvalidParameter) {
			t.Errorf("Extend(%d) error = %v, want InvalidParameter", n, err)
		}
	}
	if after, _ := r.b.Size(); after != before {
		t.Errorf("file size = %d after rejected Extend, want %d", after, before)
	}
	if r.Records() != 2 || r.b.Locked() {
		t.Errorf("Records() = %d, Locked() = %v", r.Records(), r.b.Locked())
	}
}

func TestExtendSeenByOtherInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rr.dat")
	a := openFile(t, path, 8, testOptions(1))
	b := openFile(t, path, 8, testOptions(1))
	if err := a.Extend(2); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Add([]byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := b.Put(3, []byte("far")); err != nil {
		t.Fatalf("Put() beyond stale capacity error = %v", err)
	}
	if b.Records() != 3 {
		t.Errorf("Records() = %d, want 3 after refresh", b.Records())
	}
	n, err := b.Add([]byte("y"))
	if err != nil || n != 2 {
		t.Errorf("Add() = %d, %v, want 2", n, err)
	}
}

func TestUpdateHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rr.dat")
	a := openFile(t, path, 8, testOptions(2))
	b := openFile(t, path, 8, testOptions(2))
	if _, err := a.Add([]byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := a.Extend(3); err != nil {
		t.Fatal(err)
	}
	if err := b.UpdateHeader(); err != nil {
		t.Fatalf("UpdateHeader() error = %v", err)
	}
	if got := b.Header(); got.Records != 5 || got.Lastrec != 1 {
		t.Errorf("Header() = %+v, want records 5 lastrec 1", got)
	}
}

func TestUpdateHeaderRejectsShrink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rr.dat")
	r := openFile(t, path, 8, testOptions(4))

	buf := make([]byte, r.hlen)
	Header{Recsize: 8, Records: 2}.encode(buf)
	fp, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fp.WriteAt(buf, 0); err != nil {
		t.Fatal(err)
	}
	fp.Close()

	err = r.UpdateHeader()
	if !errors.Is(err, errmsg.Inconsistent) {
		t.Fatalf("UpdateHeader() error = %v, want Inconsistent", err)
	}
	if errmsg.CodeOf(err) != errmsg.CodeIO {
		t.Errorf("CodeOf() = %v, want CodeIO", errmsg.CodeOf(err))
	}
	if r.b.Locked() {
		t.Error("master lock left held")
	}
}

func TestWriteHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rr.dat")
	r := openFile(t, path, 8, testOptions(2))
	if _, err := r.Add([]byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := r.WriteHeader(); err != nil {
		t.Fatal(err)
	}
	if err := r.ReadHeader(); err != nil {
		t.Fatal(err)
	}
	if r.LastRecord() != 1 || r.Records() != 2 || r.RecordSize() != 8 {
		t.Errorf("Header() = %+v", r.Header())
	}
}

func TestWriteHeaderRefusesStaleShrink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rr.dat")
	a := openFile(t, path, 8, testOptions(1))
	b := openFile(t, path, 8, testOptions(1))
	if err := a.Extend(4); err != nil {
		t.Fatal(err)
	}
	err := b.WriteHeader()
	if !errors.Is(err, errmsg.Inconsistent) {
		t.Fatalf("stale WriteHeader() error = %v, want Inconsistent", err)
	}
	if b.b.Locked() {
		t.Error("master lock left held")
	}
	if _, err := a.Add([]byte("x")); err != nil {
		t.Errorf("Add() after refused stale write error = %v", err)
	}
	fresh := openFile(t, path, 8, testOptions(0))
	if fresh.Records() != 5 {
		t.Errorf("reopened Records() = %d, want 5", fresh.Records())
	}
	if err := b.UpdateHeader(); err != nil {
		t.Fatal(err)
	}
	if err := b.WriteHeader(); err != nil {
		t.Errorf("WriteHeader() after UpdateHeader error = %v", err)
	}
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rr.dat")
	r := openFile(t, path, 8, testOptions(1))
	if err := r.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}
	if err := r.Remove(); !errors.Is(err, unix.ENOENT) {
		t.Errorf("second Remove() error = %v, want ENOENT", err)
	}
}

func TestSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rr.dat")
	calls := 0
	opts := testOptions(4)
	opts.Seed = func(s Seeder) error {
		calls++
		if err := s.Seed(0, []byte("x")); !errors.Is(err, errmsg.InvalidParameter) {
			t.Errorf("Seed(0) error = %v", err)
		}
		if err := s.Seed(1, []byte("root")); err != nil {
			return err
		}
		return s.Seed(3, []byte("third"))
	}
	r := openFile(t, path, 8, opts)
	if r.LastRecord() != 3 {
		t.Errorf("LastRecord() = %d, want 3", r.LastRecord())
	}
	if got, err := r.Get(3); err != nil || !bytes.HasPrefix(got, []byte("third")) {
		t.Errorf("Get(3) = %q, %v", got, err)
	}
	if n, err := r.Add([]byte("new")); err != nil || n != 2 {
		t.Errorf("Add() = %d, %v, want 2", n, err)
	}
	r.Close()

	openFile(t, path, 8, opts)
	if calls != 1 {
		t.Errorf("seed ran %d times, want 1", calls)
	}
}

func TestSeedFailureRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rr.dat")
	boom := errors.New("boom")
	opts := testOptions(2)
	opts.Seed = func(Seeder) error { return boom }
	r, err := New(path, 8, opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Open(unix.O_RDWR, 0644); !errors.Is(err, boom) {
		t.Fatalf("Open() error = %v, want boom", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("half-created file left behind: %v", err)
	}
}

type upperCodec struct{}

func (upperCodec) Build(payload []byte) ([]byte, error) {
	return []byte(strings.TrimRight(string(payload), "\x00")), nil
}

func (upperCodec) Normalize(payload, data []byte) error {
	return RawCodec.Normalize(payload, bytes.ToUpper(data))
}

func TestCustomCodec(t *testing.T) {
	opts := testOptions(2)
	opts.Codec = upperCodec{}
	r := openFile(t, filepath.Join(t.TempDir(), "rr.dat"), 8, opts)
	n, err := r.Add([]byte("abc"))
	if err != nil {
		t.Fatal(err)
	}
	if got, err := r.Get(n); err != nil || string(got) != "ABC" {
		t.Errorf("Get() = %q, %v, want ABC", got, err)
	}
	found, err := r.Find([]byte("ABC"), bytes.Equal)
	if err != nil || found != n {
		t.Errorf("Find() = %d, %v", found, err)
	}
}

// counterCodec updates only the first byte of a record on Put.
type counterCodec struct{}

func (counterCodec) Build(payload []byte) ([]byte, error) {
	return append([]byte{}, payload...), nil
}

func (counterCodec) Normalize(payload, data []byte) error {
	if len(data) == 0 {
		return errmsg.Trace(errmsg.InvalidParameter)
	}
	payload[0] = data[0]
	return nil
}

func TestPutNormalizesExistingBytes(t *testing.T) {
	opts := testOptions(1)
	opts.Codec = counterCodec{}
	r := openFile(t, filepath.Join(t.TempDir(), "rr.dat"), 4, opts)
	if err := r.Put(1, []byte{7}); err != nil {
		t.Fatal(err)
	}
	raw := make([]byte, r.slotSize())
	if err := r.readAt(r.offset(1), raw); err != nil {
		t.Fatal(err)
	}
	if raw[0] != constant.Tombstone || raw[1] != 7 {
		t.Errorf("slot = %v, want tombstone with first byte 7", raw)
	}
}
