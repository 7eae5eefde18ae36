package constant

import "time"

const (
	Magic = "RELFILE\x01"
)

const (
	DefaultRetries = 10
	DefaultTimeout = 30 * time.Second
	DefaultMode    = 0664
)

const (
	FlagSize  = 1
	Tombstone = byte(1 << 0)
)

// header field offsets inside slot 0
const (
	FlagOff    = 0
	MagicOff   = FlagOff + FlagSize
	RecsizeOff = MagicOff + len(Magic)
	RecordsOff = RecsizeOff + 4
	LastrecOff = RecordsOff + 8
	SumOff     = LastrecOff + 8
	HeaderSize = SumOff + 4 // 33
	MaxRecsize = 1<<31 - 1
)
