package sum

import (
	"hash"
	"hash/crc32"
)

var table = crc32.MakeTable(crc32.Castagnoli)

func Sum(h hash.Hash32, data []byte) uint32 {
	h.Reset()
	h.Write(data)
	return h.Sum32()
}

// Castagnoli is the checksum stored in file headers.
func Castagnoli(data []byte) uint32 {
	return Sum(crc32.New(table), data)
}
