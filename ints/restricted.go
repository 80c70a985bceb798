// Package ints implements the bit-level primitives bref4 builds on: a
// variable-length "restricted" integer coding and packed, fixed-width integer
// arrays. Neither primitive depends on another package of this module; pfx
// is used only to wrap errors.
package ints

import (
	"fmt"

	"github.com/carbocation/pfx"
)

// MaxRestrictedInt is the exclusive upper bound of the non-negative values
// WriteRestrictedInt can encode.
// The range is capped below 2^30 so that no valid non-negative encoding's
// first byte can ever read as 0xFF, which is reserved for -1.
const MaxRestrictedInt = (1 << 30) - (1 << 24)

// restricted-int byte budgets: ranges [0,2^6), [2^6,2^14), [2^14,2^22),
// [2^22, MaxRestrictedInt) require k = 0, 1, 2, 3 additional bytes.
const (
	restrictedTagBits = 2
	restrictedLowBits = 8 - restrictedTagBits
)

// WriteRestrictedInt appends the restricted-int encoding of v to dst and
// returns the extended slice. v must be -1 or in [0, MaxRestrictedInt).
func WriteRestrictedInt(dst []byte, v int32) ([]byte, error) {
	if v == -1 {
		return append(dst, 0xFF), nil
	}
	if v < 0 || v >= MaxRestrictedInt {
		return nil, pfx.Err(fmt.Errorf("ints: value %d out of restricted-int range", v))
	}

	k := additionalBytes(v)
	first := byte(k<<restrictedLowBits) | (byte(v>>uint(8*k)) & 0x3F)
	dst = append(dst, first)
	for i := k - 1; i >= 0; i-- {
		dst = append(dst, byte(v>>uint(8*i)))
	}
	return dst, nil
}

func additionalBytes(v int32) int {
	switch {
	case v < 1<<restrictedLowBits:
		return 0
	case v < 1<<(restrictedLowBits+8):
		return 1
	case v < 1<<(restrictedLowBits+16):
		return 2
	default:
		return 3
	}
}

// ReadRestrictedInt reads one restricted-int value starting at src[0] and
// returns the value, the number of bytes consumed, and any error.
func ReadRestrictedInt(src []byte) (int32, int, error) {
	if len(src) == 0 {
		return 0, 0, pfx.Err(fmt.Errorf("ints: empty buffer reading restricted int"))
	}
	first := src[0]
	if first == 0xFF {
		return -1, 1, nil
	}
	k := int(first >> restrictedLowBits)
	n := 1 + k
	if len(src) < n {
		return 0, 0, pfx.Err(fmt.Errorf("ints: truncated restricted int, need %d bytes have %d", n, len(src)))
	}
	v := int32(first & 0x3F)
	for i := 0; i < k; i++ {
		v = v<<8 | int32(src[1+i])
	}
	return v, n, nil
}
