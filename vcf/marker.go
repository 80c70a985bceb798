// Package vcf models phased, non-missing diploid VCF genotype records: the
// Marker fields shared by every representation, the three RefGTRec storage
// shapes, VCF line parsing, and VCF output.
package vcf

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
)

// Marker holds the non-genotype fields of one VCF data line. Markers are
// immutable once constructed.
type Marker struct {
	chromIndex int32
	chromID    string
	pos        int32
	id         string
	ref        string
	alts       []string
	qual       string
	filter     string
	info       string
}

// NewMarker constructs a Marker from parsed VCF fields.
func NewMarker(chromIndex int32, chromID string, pos int32, id, ref string, alts []string, qual, filter, info string) Marker {
	return Marker{
		chromIndex: chromIndex,
		chromID:    chromID,
		pos:        pos,
		id:         id,
		ref:        ref,
		alts:       alts,
		qual:       qual,
		filter:     filter,
		info:       info,
	}
}

func (m Marker) ChromIndex() int32 { return m.chromIndex }
func (m Marker) ChromID() string   { return m.chromID }
func (m Marker) Pos() int32        { return m.pos }
func (m Marker) ID() string        { return m.id }
func (m Marker) Ref() string       { return m.ref }
func (m Marker) Alts() []string    { return m.alts }
func (m Marker) Qual() string      { return m.qual }
func (m Marker) Filter() string    { return m.filter }
func (m Marker) Info() string      { return m.info }

// NAlleles returns the number of alleles, reference included.
func (m Marker) NAlleles() int { return 1 + len(m.alts) }

// WriteNonPosFields appends a compact, deterministic encoding of every field
// except pos (the caller writes pos separately as a restricted-int delta)
// to dst and returns the extended slice.
func (m Marker) WriteNonPosFields(dst []byte) []byte {
	dst = writeUTF(dst, m.id)
	dst = writeUTF(dst, m.ref)
	dst = writeUint16(dst, uint16(len(m.alts)))
	for _, a := range m.alts {
		dst = writeUTF(dst, a)
	}
	dst = writeUTF(dst, m.qual)
	dst = writeUTF(dst, m.filter)
	dst = writeUTF(dst, m.info)
	return dst
}

// ReadNonPosFields parses the encoding written by WriteNonPosFields and
// returns a Marker with the given chromIndex/chromID/pos, the number of
// bytes consumed, and any error.
func ReadNonPosFields(chromIndex int32, chromID string, pos int32, src []byte) (Marker, int, error) {
	off := 0
	id, n, err := readUTF(src[off:])
	if err != nil {
		return Marker{}, 0, err
	}
	off += n

	ref, n, err := readUTF(src[off:])
	if err != nil {
		return Marker{}, 0, err
	}
	off += n

	if len(src[off:]) < 2 {
		return Marker{}, 0, pfx.Err(fmt.Errorf("vcf: truncated marker reading nAlts"))
	}
	nAlts := int(binary.BigEndian.Uint16(src[off:]))
	off += 2

	alts := make([]string, nAlts)
	for i := 0; i < nAlts; i++ {
		alts[i], n, err = readUTF(src[off:])
		if err != nil {
			return Marker{}, 0, err
		}
		off += n
	}

	qual, n, err := readUTF(src[off:])
	if err != nil {
		return Marker{}, 0, err
	}
	off += n

	filter, n, err := readUTF(src[off:])
	if err != nil {
		return Marker{}, 0, err
	}
	off += n

	info, n, err := readUTF(src[off:])
	if err != nil {
		return Marker{}, 0, err
	}
	off += n

	return NewMarker(chromIndex, chromID, pos, id, ref, alts, qual, filter, info), off, nil
}

func writeUint16(dst []byte, v uint16) []byte {
	return append(dst, byte(v>>8), byte(v))
}

func writeUTF(dst []byte, s string) []byte {
	dst = writeUint16(dst, uint16(len(s)))
	return append(dst, s...)
}

func readUTF(src []byte) (string, int, error) {
	if len(src) < 2 {
		return "", 0, pfx.Err(fmt.Errorf("vcf: truncated string length prefix"))
	}
	n := int(binary.BigEndian.Uint16(src))
	if len(src) < 2+n {
		return "", 0, pfx.Err(fmt.Errorf("vcf: truncated string, need %d bytes have %d", n, len(src)-2))
	}
	return string(src[2 : 2+n]), 2 + n, nil
}

// ToVcfFields renders the marker's non-genotype columns joined by tabs, not
// including a trailing tab.
func (m Marker) ToVcfFields() string {
	var sb strings.Builder
	sb.WriteString(m.chromID)
	sb.WriteByte('\t')
	sb.WriteString(strconv.Itoa(int(m.pos)))
	sb.WriteByte('\t')
	sb.WriteString(m.id)
	sb.WriteByte('\t')
	sb.WriteString(m.ref)
	sb.WriteByte('\t')
	sb.WriteString(strings.Join(m.alts, ","))
	sb.WriteByte('\t')
	sb.WriteString(m.qual)
	sb.WriteByte('\t')
	sb.WriteString(m.filter)
	sb.WriteByte('\t')
	sb.WriteString(m.info)
	return sb.String()
}
