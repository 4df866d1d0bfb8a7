package io

// GetVarSize returns the size in bytes of a variable-length encoded integer.
func GetVarSize(value int) int {
	v := uint64(value)
	if v < 0xfd {
		return 1
	}
	if v < 0xffff {
		return 3
	}
	if v < 0xffffffff {
		return 5
	}
	return 9
}
