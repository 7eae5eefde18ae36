package record

import "github.com/infinivision/relfile/errmsg"

// RawCodec stores records as their bytes, zero padded to the record size.
var RawCodec Codec = rawCodec{}

func (rawCodec) Build(payload []byte) ([]byte, error) {
	return append([]byte{}, payload...), nil
}

func (rawCodec) Normalize(payload, data []byte) error {
	if len(data) > len(payload) {
		return errmsg.Trace(errmsg.InvalidRecordSize)
	}
	n := copy(payload, data)
	for i := n; i < len(payload); i++ {
		payload[i] = 0
	}
	return nil
}
