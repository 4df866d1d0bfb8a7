package io

// Serializable defines the binary encoding/decoding interface. Errors are
// returned via BinReader/BinWriter Err field.
type Serializable interface {
	DecodeBinary(*BinReader)
	EncodeBinary(*BinWriter)
}

// ToBytes serializes a to a byte slice.
func ToBytes(a Serializable) ([]byte, error) {
	w := NewBufBinWriter()
	a.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Bytes(), nil
}

// FromBytes deserializes a from a byte slice.
func FromBytes(data []byte, a Serializable) error {
	r := NewBinReaderFromBuf(data)
	a.DecodeBinary(r)
	return r.Err
}
