package vcf

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"golang.org/x/exp/slices"

	"github.com/browning-lab/bref4/ints"
)

// RefGTRec is a phased, non-missing reference genotype record: a marker plus
// a mapping from each of 2N haplotype indices to an allele. Every concrete
// implementation stores exactly one allele's carriers implicitly (the "null
// row": the most frequent allele for IntArrayRefGTRec and MapRefGTRec, and
// the entry its constructor was given as nil for SparseRefGTRec).
type RefGTRec interface {
	Marker() Marker
	Samples() Samples
	Size() int
	Get(hap int) int32
	AlleleToHaps() [][]int32
	HapToAllele() *ints.IntArray
	NullRow() int
	NonNullCount() int
	ToVcfRecord() string
}

// NullRow returns the index j such that alleleToHaps[j] == nil. The caller
// must ensure exactly one such index exists.
func NullRow(alleleToHaps [][]int32) int {
	for j, a := range alleleToHaps {
		if a == nil {
			return j
		}
	}
	return -1
}

func nonNullCount(alleleToHaps [][]int32) int {
	n := 0
	for _, a := range alleleToHaps {
		n += len(a)
	}
	return n
}

func formatGT(a1, a2 int32) string {
	return strconv.Itoa(int(a1)) + "|" + strconv.Itoa(int(a2))
}

func toVcfRecord(m Marker, samples Samples, get func(hap int) int32) string {
	var sb strings.Builder
	sb.WriteString(m.ToVcfFields())
	sb.WriteString("\tGT")
	n := samples.Size()
	for s := 0; s < n; s++ {
		sb.WriteByte('\t')
		sb.WriteString(formatGT(get(2*s), get(2*s+1)))
	}
	return sb.String()
}

// SparseRefGTRec stores, for every non-null allele, the sorted ascending
// list of haplotype indices carrying it. This is the shape produced by
// parsing a VCF line and by decoding an ALLELE_REC block entry.
type SparseRefGTRec struct {
	marker       Marker
	samples      Samples
	size         int
	alleleToHaps [][]int32
	nullRow      int
}

// NewSparseRefGTRec constructs a SparseRefGTRec. alleleToHaps must have
// exactly one nil entry.
func NewSparseRefGTRec(marker Marker, samples Samples, size int, alleleToHaps [][]int32) *SparseRefGTRec {
	return &SparseRefGTRec{
		marker:       marker,
		samples:      samples,
		size:         size,
		alleleToHaps: alleleToHaps,
		nullRow:      NullRow(alleleToHaps),
	}
}

func (r *SparseRefGTRec) Marker() Marker    { return r.marker }
func (r *SparseRefGTRec) Samples() Samples  { return r.samples }
func (r *SparseRefGTRec) Size() int         { return r.size }
func (r *SparseRefGTRec) NullRow() int      { return r.nullRow }
func (r *SparseRefGTRec) NonNullCount() int { return nonNullCount(r.alleleToHaps) }

func (r *SparseRefGTRec) Get(hap int) int32 {
	for a, list := range r.alleleToHaps {
		if a == r.nullRow {
			continue
		}
		if i := sort.Search(len(list), func(i int) bool { return list[i] >= int32(hap) }); i < len(list) && list[i] == int32(hap) {
			return int32(a)
		}
	}
	return int32(r.nullRow)
}

func (r *SparseRefGTRec) AlleleToHaps() [][]int32 {
	out := make([][]int32, len(r.alleleToHaps))
	for i, a := range r.alleleToHaps {
		if a != nil {
			out[i] = append([]int32{}, a...)
		}
	}
	return out
}

func (r *SparseRefGTRec) HapToAllele() *ints.IntArray {
	values := make([]int32, r.size)
	for i := range values {
		values[i] = int32(r.nullRow)
	}
	for a, list := range r.alleleToHaps {
		for _, h := range list {
			values[h] = int32(a)
		}
	}
	return ints.NewIntArray(values, int32(r.marker.NAlleles()))
}

func (r *SparseRefGTRec) ToVcfRecord() string {
	return toVcfRecord(r.marker, r.samples, r.Get)
}

// IntArrayRefGTRec stores a hap-to-allele mapping directly as a single
// packed array. This is the shape a block decoder produces when a record's
// map chain composes to exactly one map.
type IntArrayRefGTRec struct {
	marker      Marker
	samples     Samples
	hapToAllele *ints.IntArray
}

// NewIntArrayRefGTRec constructs an IntArrayRefGTRec from an already
// composed hap-to-allele array.
func NewIntArrayRefGTRec(marker Marker, samples Samples, hapToAllele *ints.IntArray) *IntArrayRefGTRec {
	return &IntArrayRefGTRec{marker: marker, samples: samples, hapToAllele: hapToAllele}
}

func (r *IntArrayRefGTRec) Marker() Marker   { return r.marker }
func (r *IntArrayRefGTRec) Samples() Samples { return r.samples }
func (r *IntArrayRefGTRec) Size() int        { return r.hapToAllele.Size() }
func (r *IntArrayRefGTRec) Get(hap int) int32 { return r.hapToAllele.Get(hap) }

func (r *IntArrayRefGTRec) NullRow() int {
	counts := make([]int, r.marker.NAlleles())
	for _, v := range r.hapToAllele.Values() {
		counts[v]++
	}
	return argmax(counts)
}

func (r *IntArrayRefGTRec) NonNullCount() int {
	nullRow := r.NullRow()
	n := 0
	for _, v := range r.hapToAllele.Values() {
		if int(v) != nullRow {
			n++
		}
	}
	return n
}

func (r *IntArrayRefGTRec) AlleleToHaps() [][]int32 {
	nullRow := r.NullRow()
	out := make([][]int32, r.marker.NAlleles())
	for a := range out {
		if a != nullRow {
			out[a] = []int32{}
		}
	}
	for h, v := range r.hapToAllele.Values() {
		if int(v) != nullRow {
			out[v] = append(out[v], int32(h))
		}
	}
	return out
}

func (r *IntArrayRefGTRec) HapToAllele() *ints.IntArray { return r.hapToAllele }

func (r *IntArrayRefGTRec) ToVcfRecord() string {
	return toVcfRecord(r.marker, r.samples, r.Get)
}

// MapRefGTRec stores a two-stage composition: hapToSeq maps a haplotype
// index to a sequence index, and seqToAllele maps that sequence index to an
// allele. This is the shape a block decoder produces for a record whose map
// chain composed into two distinct stages (hap->seq, seq->allele).
type MapRefGTRec struct {
	marker      Marker
	samples     Samples
	hapToSeq    *ints.IntArray
	seqToAllele *ints.IntArray
}

// NewMapRefGTRec constructs a MapRefGTRec from the composed hap-to-sequence
// and sequence-to-allele arrays.
func NewMapRefGTRec(marker Marker, samples Samples, hapToSeq, seqToAllele *ints.IntArray) *MapRefGTRec {
	return &MapRefGTRec{marker: marker, samples: samples, hapToSeq: hapToSeq, seqToAllele: seqToAllele}
}

func (r *MapRefGTRec) Marker() Marker   { return r.marker }
func (r *MapRefGTRec) Samples() Samples { return r.samples }
func (r *MapRefGTRec) Size() int        { return r.hapToSeq.Size() }

func (r *MapRefGTRec) Get(hap int) int32 {
	return r.seqToAllele.Get(int(r.hapToSeq.Get(hap)))
}

func (r *MapRefGTRec) NullRow() int {
	counts := make([]int, r.marker.NAlleles())
	for h := 0; h < r.Size(); h++ {
		counts[r.Get(h)]++
	}
	return argmax(counts)
}

func (r *MapRefGTRec) NonNullCount() int {
	nullRow := r.NullRow()
	n := 0
	for h := 0; h < r.Size(); h++ {
		if int(r.Get(h)) != nullRow {
			n++
		}
	}
	return n
}

func (r *MapRefGTRec) AlleleToHaps() [][]int32 {
	nullRow := r.NullRow()
	out := make([][]int32, r.marker.NAlleles())
	for a := range out {
		if a != nullRow {
			out[a] = []int32{}
		}
	}
	for h := 0; h < r.Size(); h++ {
		a := r.Get(h)
		if int(a) != nullRow {
			out[a] = append(out[a], int32(h))
		}
	}
	return out
}

func (r *MapRefGTRec) HapToAllele() *ints.IntArray {
	values := make([]int32, r.Size())
	for h := range values {
		values[h] = r.Get(h)
	}
	return ints.NewIntArray(values, int32(r.marker.NAlleles()))
}

func (r *MapRefGTRec) ToVcfRecord() string {
	return toVcfRecord(r.marker, r.samples, r.Get)
}

func argmax(counts []int) int {
	best, bestCount := 0, -1
	for i, c := range counts {
		if c > bestCount {
			best, bestCount = i, c
		}
	}
	return best
}

// AlleleRefGTRec constructs the record shape used for input records: a
// SparseRefGTRec whose null row is the entry of alleleToHaps that the caller
// left nil. It does not choose the null row itself and does not check that
// it is the allele carried by the most haplotypes (NonMajAlleleIndices
// produces such an array).
func AlleleRefGTRec(marker Marker, samples Samples, alleleToHaps [][]int32) (*SparseRefGTRec, error) {
	nAlleles := marker.NAlleles()
	if len(alleleToHaps) != nAlleles {
		return nil, pfx.Err(fmt.Errorf("vcf: alleleToHaps length %d != nAlleles %d", len(alleleToHaps), nAlleles))
	}
	nullRow := -1
	for a, list := range alleleToHaps {
		if list == nil {
			nullRow = a
		}
	}
	if nullRow == -1 {
		return nil, pfx.Err(fmt.Errorf("vcf: alleleToHaps has no null row"))
	}
	return NewSparseRefGTRec(marker, samples, 2*samples.Size(), alleleToHaps), nil
}

// SortDedupApply returns sort(dedup({m.Get(h) : h in haps})), the operation
// applyMap performs on each non-null allele list of a Bref4Rec.
func SortDedupApply(haps []int32, m *ints.IntArray) []int32 {
	mapped := make([]int32, len(haps))
	for i, h := range haps {
		mapped[i] = m.Get(int(h))
	}
	slices.Sort(mapped)
	return slices.Compact(mapped)
}
