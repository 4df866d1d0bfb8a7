// Package slice contains byte slice helpers.
package slice

// Copy copies the byte slice into new slice (make/copy).
func Copy(b []byte) []byte {
	d := make([]byte, len(b))
	copy(d, b)
	return d
}
