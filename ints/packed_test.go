package ints

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackedArrayRoundTrip(t *testing.T) {
	cases := []struct {
		valueSize int32
		values    []int32
	}{
		{2, []int32{0, 1, 1, 0, 0}},
		{3, []int32{0, 1, 2, 2, 1, 0}},
		{256, make([]int32, 57)},
		{1 << 20, []int32{0, 1, 2, 1048575, 500000}},
	}
	for _, c := range cases {
		arr := NewIntArray(append([]int32(nil), c.values...), c.valueSize)
		buf, err := WritePackedArray(nil, arr)
		require.NoError(t, err)
		got, n, err := ReadPackedArray(buf, len(c.values))
		require.NoError(t, err)
		require.Equal(t, len(buf), n)
		require.Equal(t, c.values, got.Values())
		require.Equal(t, c.valueSize, got.ValueSize())
	}
}

func TestPackedArrayBoundaryLeftoverBits(t *testing.T) {
	// bitsPerValue=1 with lengths chosen so totalBits%64 hits 0,1,8,56,57,63.
	for _, n := range []int{64, 1, 8, 56, 57, 63} {
		values := make([]int32, n)
		for i := range values {
			values[i] = int32(i % 2)
		}
		arr := NewIntArray(values, 2)
		buf, err := WritePackedArray(nil, arr)
		require.NoError(t, err)
		got, _, err := ReadPackedArray(buf, n)
		require.NoError(t, err)
		require.Equal(t, values, got.Values())
	}
}

func TestPackedArrayRejectsValueAtOrAboveValueSize(t *testing.T) {
	// valueSize=3 needs bpv=2 bits, but the 2-bit code 3 is not a valid value.
	buf, err := WriteRestrictedInt(nil, 3)
	require.NoError(t, err)
	buf = append(buf, 0b00000011)

	_, _, err = ReadPackedArray(buf, 1)
	require.Error(t, err)
}

func TestBitsPerValue(t *testing.T) {
	require.Equal(t, 1, bitsPerValue(2))
	require.Equal(t, 8, bitsPerValue(256))
	require.Equal(t, 30, bitsPerValue(1<<30))
}
