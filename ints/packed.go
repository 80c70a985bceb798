package ints

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/carbocation/pfx"
)

// IntArray is a materialized sequence of non-negative integers together with
// the exclusive upper bound ("value size") every element is known to respect.
// It is the in-memory counterpart of a packed IndexArray once decoded.
type IntArray struct {
	values    []int32
	valueSize int32
}

// NewIntArray wraps values under the given valueSize. Every value must lie in
// [0, valueSize).
func NewIntArray(values []int32, valueSize int32) *IntArray {
	return &IntArray{values: values, valueSize: valueSize}
}

// Size returns the number of elements.
func (a *IntArray) Size() int { return len(a.values) }

// ValueSize returns the exclusive upper bound on element values.
func (a *IntArray) ValueSize() int32 { return a.valueSize }

// Get returns the element at index i.
func (a *IntArray) Get(i int) int32 { return a.values[i] }

// Values returns the backing slice. Callers must not mutate it.
func (a *IntArray) Values() []int32 { return a.values }

// bitsPerValue returns ceil(log2(max(v,2))), the packed width needed to hold
// any value in [0, v).
func bitsPerValue(v int32) int {
	if v < 2 {
		v = 2
	}
	return 32 - bits.LeadingZeros32(uint32(v-1))
}

// WritePackedArray appends the restricted-int-prefixed, bit-packed encoding
// of a to dst and returns the extended slice.
func WritePackedArray(dst []byte, a *IntArray) ([]byte, error) {
	dst, err := WriteRestrictedInt(dst, a.valueSize)
	if err != nil {
		return nil, err
	}
	bpv := bitsPerValue(a.valueSize)
	totalBits := int64(len(a.values)) * int64(bpv)
	nWords := (totalBits + 63) / 64
	if nWords == 0 {
		return dst, nil
	}

	words := make([]uint64, nWords)
	bitPos := 0
	for _, v := range a.values {
		wordIdx := bitPos / 64
		bitOff := uint(bitPos % 64)
		words[wordIdx] |= uint64(v) << bitOff
		if bitOff+uint(bpv) > 64 {
			words[wordIdx+1] |= uint64(v) >> (64 - bitOff)
		}
		bitPos += bpv
	}

	leftover := totalBits % 64
	fullWords := nWords
	if leftover != 0 {
		fullWords--
	}
	buf := make([]byte, 8)
	for i := int64(0); i < fullWords; i++ {
		binary.LittleEndian.PutUint64(buf, words[i])
		dst = append(dst, buf...)
	}
	if leftover != 0 {
		last := words[nWords-1]
		if leftover >= 1 && leftover <= 56 {
			nBytes := (leftover + 7) / 8
			binary.LittleEndian.PutUint64(buf, last)
			dst = append(dst, buf[:nBytes]...)
		} else {
			binary.LittleEndian.PutUint64(buf, last)
			dst = append(dst, buf...)
		}
	}
	return dst, nil
}

// ReadPackedArray reads a restricted-int-prefixed, bit-packed array of length
// n from src and returns the array, the number of bytes consumed, and any
// error. Any decoded element >= valueSize is a corrupt-block condition.
func ReadPackedArray(src []byte, n int) (*IntArray, int, error) {
	valueSize, consumed, err := ReadRestrictedInt(src)
	if err != nil {
		return nil, 0, err
	}
	bpv := bitsPerValue(valueSize)
	totalBits := int64(n) * int64(bpv)
	nWords := (totalBits + 63) / 64

	byteLen := nWords * 8
	leftover := totalBits % 64
	if leftover != 0 {
		if leftover >= 1 && leftover <= 56 {
			nBytes := (leftover + 7) / 8
			byteLen = (nWords-1)*8 + nBytes
		}
	}
	rest := src[consumed:]
	if int64(len(rest)) < byteLen {
		return nil, 0, pfx.Err(fmt.Errorf("ints: truncated packed array, need %d bytes have %d", byteLen, len(rest)))
	}

	words := make([]uint64, nWords)
	off := int64(0)
	for i := int64(0); i < nWords; i++ {
		chunk := make([]byte, 8)
		remaining := byteLen - off
		if remaining >= 8 {
			copy(chunk, rest[off:off+8])
		} else {
			copy(chunk, rest[off:off+remaining])
		}
		words[i] = binary.LittleEndian.Uint64(chunk)
		off += 8
		if off > byteLen {
			off = byteLen
		}
	}

	mask := uint64(1)<<uint(bpv) - 1
	values := make([]int32, n)
	bitPos := 0
	for i := 0; i < n; i++ {
		wordIdx := bitPos / 64
		bitOff := uint(bitPos % 64)
		v := words[wordIdx] >> bitOff
		if bitOff+uint(bpv) > 64 {
			v |= words[wordIdx+1] << (64 - bitOff)
		}
		v &= mask
		if int32(v) >= valueSize {
			return nil, 0, pfx.Err(fmt.Errorf("ints: packed value %d >= valueSize %d", v, valueSize))
		}
		values[i] = int32(v)
		bitPos += bpv
	}

	return &IntArray{values: values, valueSize: valueSize}, consumed + int(byteLen), nil
}
