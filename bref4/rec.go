// Package bref4 implements the binary genotype container format: block
// framing, the hierarchical sequence coder's on-disk record shapes, the
// block encoder/decoder, the file header, and the tail index.
package bref4

import (
	"fmt"

	"github.com/carbocation/pfx"

	"github.com/browning-lab/bref4/ints"
	"github.com/browning-lab/bref4/seqcoder"
	"github.com/browning-lab/bref4/vcf"
)

// MaxNAlleles is the largest marker allele count the sequence coder and
// block encoder accept.
const MaxNAlleles = seqcoder.MaxNAlleles

// allocRecByte is the byte value (-1 as a signed byte, 0xFF unsigned) a
// block writes in place of a map-chain start index to mark a record stored
// directly as a sparse allele-to-haplotype list rather than composed maps.
// It deliberately shares its encoding with restricted-int's -1 sentinel:
// both mean "no further indirection here". Centralized here per the single
// place every reader/writer must agree on this constant.
const allocRecByte = -1

// Rec stores a marker and, for every allele but one (the "null row"), the
// sorted list of sequence indices carrying it. A Rec produced by ApplyMap
// may have fewer distinct indices than the original number of haplotypes.
// It is an alias of seqcoder.Rec so that DialleleRec and AlleleRec, defined
// here, can be admitted directly into a seqcoder.Coder.
type Rec = seqcoder.Rec

// From builds the Rec shape appropriate for rec's allele count: a
// DialleleRec for bi-allelic markers (the common case, and the cheapest to
// store), or an AlleleRec otherwise.
func From(rec vcf.RefGTRec) (Rec, error) {
	if rec.Marker().NAlleles() > MaxNAlleles {
		return nil, pfx.Err(fmt.Errorf("bref4: marker has %d alleles, max is %d", rec.Marker().NAlleles(), MaxNAlleles))
	}
	if rec.Marker().NAlleles() == 2 {
		return newDialleleRec(rec.Marker(), rec.Size(), rec.AlleleToHaps()), nil
	}
	return newAlleleRec(rec.Marker(), rec.Size(), rec.AlleleToHaps()), nil
}

// FromParser builds the Rec shape directly from a parsed VCF line, avoiding
// the intermediate RefGTRec allocation.
func FromParser(gtp *vcf.VcfRecGTParser) (Rec, error) {
	if gtp.NAlleles() > MaxNAlleles {
		return nil, pfx.Err(fmt.Errorf("bref4: marker has %d alleles, max is %d", gtp.NAlleles(), MaxNAlleles))
	}
	alleleToHaps := gtp.NonMajAlleleIndices()
	size := 2 * gtp.NSamples()
	if gtp.NAlleles() == 2 {
		return newDialleleRec(gtp.Marker(), size, alleleToHaps), nil
	}
	return newAlleleRec(gtp.Marker(), size, alleleToHaps), nil
}

// DialleleRec is the Rec shape for bi-allelic markers: it stores only the
// non-null allele's sorted carrier list.
type DialleleRec struct {
	marker        vcf.Marker
	size          int
	nullAllele    int32
	nonNullAllele int32
	nonNullSeqs   []int32
}

func newDialleleRec(marker vcf.Marker, size int, alleleToHaps [][]int32) *DialleleRec {
	nullAllele := int32(0)
	if alleleToHaps[0] != nil {
		nullAllele = 1
	}
	nonNull := 1 - nullAllele
	return &DialleleRec{
		marker:        marker,
		size:          size,
		nullAllele:    nullAllele,
		nonNullAllele: nonNull,
		nonNullSeqs:   alleleToHaps[nonNull],
	}
}

func (r *DialleleRec) Marker() vcf.Marker { return r.marker }
func (r *DialleleRec) Size() int          { return r.size }
func (r *DialleleRec) NullRow() int       { return int(r.nullAllele) }

func (r *DialleleRec) Get(hap int) int32 {
	if contains(r.nonNullSeqs, int32(hap)) {
		return r.nonNullAllele
	}
	return r.nullAllele
}

func (r *DialleleRec) AlleleToHaps() [][]int32 {
	out := make([][]int32, 2)
	out[r.nonNullAllele] = append([]int32{}, r.nonNullSeqs...)
	return out
}

func (r *DialleleRec) HapToAllele() *ints.IntArray {
	values := make([]int32, r.size)
	for i := range values {
		values[i] = r.nullAllele
	}
	for _, h := range r.nonNullSeqs {
		values[h] = r.nonNullAllele
	}
	return ints.NewIntArray(values, int32(r.marker.NAlleles()))
}

func (r *DialleleRec) ApplyMap(m *ints.IntArray) Rec {
	return &DialleleRec{
		marker:        r.marker,
		size:          int(m.ValueSize()),
		nullAllele:    r.nullAllele,
		nonNullAllele: r.nonNullAllele,
		nonNullSeqs:   vcf.SortDedupApply(r.nonNullSeqs, m),
	}
}

// AlleleRec is the Rec shape for markers that are not bi-allelic: a full
// alleleToHaps array with one nil (the null row).
type AlleleRec struct {
	marker       vcf.Marker
	size         int
	alleleToSeqs [][]int32
	nullRow      int
}

func newAlleleRec(marker vcf.Marker, size int, alleleToHaps [][]int32) *AlleleRec {
	return &AlleleRec{
		marker:       marker,
		size:         size,
		alleleToSeqs: alleleToHaps,
		nullRow:      vcf.NullRow(alleleToHaps),
	}
}

func (r *AlleleRec) Marker() vcf.Marker { return r.marker }
func (r *AlleleRec) Size() int          { return r.size }
func (r *AlleleRec) NullRow() int       { return r.nullRow }

func (r *AlleleRec) Get(hap int) int32 {
	for j, list := range r.alleleToSeqs {
		if j == r.nullRow {
			continue
		}
		if contains(list, int32(hap)) {
			return int32(j)
		}
	}
	return int32(r.nullRow)
}

func (r *AlleleRec) AlleleToHaps() [][]int32 {
	out := make([][]int32, len(r.alleleToSeqs))
	for j, list := range r.alleleToSeqs {
		if j != r.nullRow && list != nil {
			out[j] = append([]int32(nil), list...)
		}
	}
	return out
}

func (r *AlleleRec) HapToAllele() *ints.IntArray {
	values := make([]int32, r.size)
	for i := range values {
		values[i] = int32(r.nullRow)
	}
	for j, list := range r.alleleToSeqs {
		if j == r.nullRow {
			continue
		}
		for _, h := range list {
			values[h] = int32(j)
		}
	}
	return ints.NewIntArray(values, int32(r.marker.NAlleles()))
}

func (r *AlleleRec) ApplyMap(m *ints.IntArray) Rec {
	newAlleleToSeqs := make([][]int32, len(r.alleleToSeqs))
	for j, list := range r.alleleToSeqs {
		if list != nil {
			newAlleleToSeqs[j] = vcf.SortDedupApply(list, m)
		}
	}
	return &AlleleRec{
		marker:       r.marker,
		size:         int(m.ValueSize()),
		alleleToSeqs: newAlleleToSeqs,
		nullRow:      r.nullRow,
	}
}

func contains(sorted []int32, v int32) bool {
	lo, hi := 0, len(sorted)
	for lo < hi {
		mid := (lo + hi) / 2
		if sorted[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo < len(sorted) && sorted[lo] == v
}
