package bref4

import (
	"encoding/binary"
	"fmt"

	"github.com/carbocation/pfx"

	"github.com/browning-lab/bref4/ints"
	"github.com/browning-lab/bref4/vcf"
)

// writeUint32/readUint32 and writeInt32/readInt32 are the raw big-endian
// fixed-width fields used throughout the file framer (nRecs, lastPos, block
// lengths, raw haplotype indices in a sparse allele record).

func writeUint32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

func readUint32(src []byte) (uint32, int, error) {
	if len(src) < 4 {
		return 0, 0, pfx.Err(fmt.Errorf("bref4: truncated u32, have %d bytes", len(src)))
	}
	return binary.BigEndian.Uint32(src), 4, nil
}

func writeInt32(dst []byte, v int32) []byte { return writeUint32(dst, uint32(v)) }

func readInt32(src []byte) (int32, int, error) {
	v, n, err := readUint32(src)
	return int32(v), n, err
}

// writeUTF appends s as a 2-byte-length-prefixed UTF-8 string, the format
// every string field in the file (header strings, chromosome ids) uses.
func writeUTF(dst []byte, s string) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, s...)
}

func readUTF(src []byte) (string, int, error) {
	if len(src) < 2 {
		return "", 0, pfx.Err(fmt.Errorf("bref4: truncated string length prefix"))
	}
	n := int(binary.BigEndian.Uint16(src))
	if len(src) < 2+n {
		return "", 0, pfx.Err(fmt.Errorf("bref4: truncated string, need %d bytes have %d", n, len(src)-2))
	}
	return string(src[2 : 2+n]), 2 + n, nil
}

// writeStringArray appends a 4-byte element count followed by each string in
// the 2-byte-length-prefixed form above. This is the header's string-array
// encoding (meta-info lines, sample ids); it is distinct from a Marker's
// ALT list, which carries a 2-byte element count instead (see
// vcf.Marker.WriteNonPosFields).
func writeStringArray(dst []byte, arr []string) []byte {
	dst = writeUint32(dst, uint32(len(arr)))
	for _, s := range arr {
		dst = writeUTF(dst, s)
	}
	return dst
}

func readStringArray(src []byte) ([]string, int, error) {
	count, consumed, err := readUint32(src)
	if err != nil {
		return nil, 0, err
	}
	arr := make([]string, count)
	for i := range arr {
		s, n, err := readUTF(src[consumed:])
		if err != nil {
			return nil, 0, err
		}
		arr[i] = s
		consumed += n
	}
	return arr, consumed, nil
}

// writeMarker appends the restricted-int position delta (from lastPos)
// followed by m's non-position fields, and returns the new lastPos.
func writeMarker(dst []byte, m vcf.Marker, lastPos int32) ([]byte, int32, error) {
	dst, err := ints.WriteRestrictedInt(dst, m.Pos()-lastPos)
	if err != nil {
		return nil, 0, err
	}
	dst = m.WriteNonPosFields(dst)
	return dst, m.Pos(), nil
}

// readMarker parses one writeMarker encoding and returns the marker, the new
// lastPos, and the number of bytes consumed.
func readMarker(chromIndex int32, chromID string, lastPos int32, src []byte) (vcf.Marker, int32, int, error) {
	delta, n, err := ints.ReadRestrictedInt(src)
	if err != nil {
		return vcf.Marker{}, 0, 0, err
	}
	pos := lastPos + delta
	m, n2, err := vcf.ReadNonPosFields(chromIndex, chromID, pos, src[n:])
	if err != nil {
		return vcf.Marker{}, 0, 0, err
	}
	return m, pos, n + n2, nil
}

// writeAllelesArray appends the sparse allele-record encoding: for each
// allele, either a restricted-int -1 (the null row) or the restricted-int
// carrier count followed by each raw i32 haplotype index.
func writeAllelesArray(dst []byte, alleleToHaps [][]int32, nullRow int) ([]byte, error) {
	var err error
	for a, haps := range alleleToHaps {
		if a == nullRow {
			dst, err = ints.WriteRestrictedInt(dst, -1)
		} else {
			dst, err = ints.WriteRestrictedInt(dst, int32(len(haps)))
		}
		if err != nil {
			return nil, err
		}
		if a != nullRow {
			for _, h := range haps {
				dst = writeInt32(dst, h)
			}
		}
	}
	return dst, nil
}

// readAllelesArray parses writeAllelesArray's encoding for a marker with
// nAlleles alleles, returning the alleleToHaps array (exactly one nil
// entry), the null row index, and the number of bytes consumed.
func readAllelesArray(src []byte, nAlleles int) ([][]int32, int, int, error) {
	alleleToHaps := make([][]int32, nAlleles)
	nullRow := -1
	consumed := 0
	for a := 0; a < nAlleles; a++ {
		length, n, err := ints.ReadRestrictedInt(src[consumed:])
		if err != nil {
			return nil, 0, 0, err
		}
		consumed += n
		if length == -1 {
			if nullRow != -1 {
				return nil, 0, 0, pfx.Err(fmt.Errorf("bref4: allele record has more than one null row"))
			}
			nullRow = a
			continue
		}
		haps := make([]int32, length)
		for i := range haps {
			h, n, err := readInt32(src[consumed:])
			if err != nil {
				return nil, 0, 0, err
			}
			haps[i] = h
			consumed += n
		}
		alleleToHaps[a] = haps
	}
	if nullRow == -1 {
		return nil, 0, 0, pfx.Err(fmt.Errorf("bref4: allele record has no null row"))
	}
	return alleleToHaps, nullRow, consumed, nil
}

// writeMaps appends each map in chain via WritePackedArray, in order.
func writeMaps(dst []byte, chain []*ints.IntArray) ([]byte, error) {
	var err error
	for _, m := range chain {
		dst, err = ints.WritePackedArray(dst, m)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// readMaps fills maps[startMapIndex:] by parsing len(maps)-startMapIndex
// packed arrays from src. maps[0:startMapIndex] must already hold entries
// carried over from an earlier record in the same block (the block format
// lets a record reuse an earlier record's leading map-chain entries without
// re-serializing them). The domain size of maps[0] is nHaps; every
// subsequent map's domain size is the previous map's valueSize.
func readMaps(maps []*ints.IntArray, nHaps int, startMapIndex int, src []byte) (int, error) {
	consumed := 0
	for i := startMapIndex; i < len(maps); i++ {
		n := nHaps
		if i > 0 {
			n = int(maps[i-1].ValueSize())
		}
		arr, c, err := ints.ReadPackedArray(src[consumed:], n)
		if err != nil {
			return 0, err
		}
		maps[i] = arr
		consumed += c
	}
	return consumed, nil
}

// compose applies maps[from:to] in sequence to maps[from]'s own domain,
// reusing buffer (which must have length >= maps[from].Size()) as scratch
// space, and returns the composed IntArray.
func compose(maps []*ints.IntArray, from, to int, buffer []int32) *ints.IntArray {
	size := maps[from].Size()
	for i := 0; i < size; i++ {
		buffer[i] = maps[from].Get(i)
	}
	for j := from + 1; j < to; j++ {
		for i := 0; i < size; i++ {
			buffer[i] = maps[j].Get(int(buffer[i]))
		}
	}
	values := make([]int32, size)
	copy(values, buffer[:size])
	return ints.NewIntArray(values, maps[to-1].ValueSize())
}
