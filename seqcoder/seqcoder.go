// Package seqcoder implements the hierarchical sequence coder: an online
// partition of haplotypes into equivalence classes ("sequences") that let a
// run of markers share one small hap-to-sequence map instead of each
// needing its own full-width hap-to-allele map.
package seqcoder

import (
	"fmt"

	"github.com/carbocation/pfx"

	"github.com/browning-lab/bref4/ints"
	"github.com/browning-lab/bref4/vcf"
)

// MaxNAlleles is the largest marker allele count Coder.Add accepts.
const MaxNAlleles = 256

const (
	notAssigned = -1
	assigned    = int32(1<<31 - 1) // math.MaxInt32, a sentinel no real sequence index can equal
)

// Rec stores a marker and, for every allele but one (the "null row"), the
// sorted list of sequence indices carrying it. A Rec produced by ApplyMap
// may have fewer distinct indices than the original number of haplotypes.
// bref4.DialleleRec and bref4.AlleleRec are the two concrete
// implementations; this interface is declared here, rather than in the
// bref4 package, so that Coder does not import its caller.
type Rec interface {
	Marker() vcf.Marker
	Size() int
	Get(hap int) int32
	AlleleToHaps() [][]int32
	HapToAllele() *ints.IntArray
	NullRow() int
	ApplyMap(m *ints.IntArray) Rec
}

// Coder maintains a single-writer map from haplotype to allele sequence,
// built by greedily admitting Rec values one at a time. Admission of a
// record fails (with no side effect after the caller calls Clear) once
// admitting it would require more than maxNSeq distinct sequences.
//
// A Coder is not safe for concurrent use; within a pipeline run it is
// touched only by the single ingestion goroutine.
type Coder struct {
	nHaps   int
	maxNSeq int

	hap2Seq []int32
	seq2Cnt []int32
	nSeq    int

	updateMapSize int
	updateMap     [][]int32

	recs []Rec
}

// New constructs a Coder over nHaps haplotypes that will never be asked to
// hold more than maxNSeq distinct sequences.
func New(nHaps, maxNSeq int) (*Coder, error) {
	if nHaps < 1 {
		return nil, pfx.Err(fmt.Errorf("seqcoder: nHaps must be >= 1, got %d", nHaps))
	}
	if maxNSeq < 1 {
		return nil, pfx.Err(fmt.Errorf("seqcoder: maxNSeq must be >= 1, got %d", maxNSeq))
	}
	c := &Coder{
		nHaps:         nHaps,
		maxNSeq:       maxNSeq,
		hap2Seq:       make([]int32, nHaps),
		seq2Cnt:       make([]int32, maxNSeq),
		nSeq:          1,
		updateMapSize: 8,
	}
	c.seq2Cnt[0] = int32(nHaps)
	c.updateMap = initUpdateMap(c.updateMapSize, maxNSeq)
	return c, nil
}

func initUpdateMap(nMapAlleles, maxNSeq int) [][]int32 {
	m := make([][]int32, MaxNAlleles)
	for j := 0; j < nMapAlleles; j++ {
		m[j] = make([]int32, maxNSeq)
	}
	return m
}

// NHaps returns the number of haplotypes.
func (c *Coder) NHaps() int { return c.nHaps }

// MaxNSeq returns the maximum permitted number of distinct sequences.
func (c *Coder) MaxNSeq() int { return c.maxNSeq }

// NSeq returns the current number of distinct sequences.
func (c *Coder) NSeq() int { return c.nSeq }

// NRecs returns the number of records admitted since construction or the
// last Clear.
func (c *Coder) NRecs() int { return len(c.recs) }

// Add attempts to admit rec into the map from haplotype to allele sequence,
// returning true if it succeeds. If it returns false, the caller must call
// Clear before attempting to add any further record.
func (c *Coder) Add(rec Rec) (bool, error) {
	if rec.Size() != c.nHaps {
		return false, pfx.Err(fmt.Errorf("seqcoder: record size %d != nHaps %d", rec.Size(), c.nHaps))
	}
	nAlleles := rec.Marker().NAlleles()
	if nAlleles > MaxNAlleles {
		return false, pfx.Err(fmt.Errorf("seqcoder: marker has %d alleles, max is %d", nAlleles, MaxNAlleles))
	}
	if nAlleles > c.updateMapSize {
		c.growUpdateMap(nAlleles)
	}

	alleleToHaps := rec.AlleleToHaps()
	nullAllele := rec.NullRow()
	ok := c.setUpdateMap(alleleToHaps, nullAllele)
	if ok {
		c.updateHap2Seq(alleleToHaps)
		c.recs = append(c.recs, rec)
	}
	return ok, nil
}

func (c *Coder) growUpdateMap(nAlleles int) {
	for j := c.updateMapSize; j < nAlleles; j++ {
		c.updateMap[j] = make([]int32, c.maxNSeq)
	}
	c.updateMapSize = nAlleles
}

func (c *Coder) setUpdateMap(alleleToHaps [][]int32, nullAllele int) bool {
	nSeqAtStart := c.nSeq
	c.resetUpdateMap(alleleToHaps, nullAllele)
	nullAlleleMap := c.updateMap[nullAllele]

	for al, haps := range alleleToHaps {
		if al == nullAllele {
			continue
		}
		alleleMap := c.updateMap[al]
		for _, h := range haps {
			seq := c.hap2Seq[h]
			if alleleMap[seq] == notAssigned {
				if nullAlleleMap[seq] == notAssigned {
					nullAlleleMap[seq] = assigned
					alleleMap[seq] = seq
				} else {
					alleleMap[seq] = int32(c.nSeq)
					c.nSeq++
				}
			}
		}
	}

	if c.nSeq > c.maxNSeq {
		c.nSeq = nSeqAtStart
		return false
	}
	for seq := nSeqAtStart; seq < c.nSeq; seq++ {
		c.seq2Cnt[seq] = 0
	}
	return true
}

func (c *Coder) resetUpdateMap(alleleToHaps [][]int32, nullAllele int) {
	seqToNullAlleleCnt := c.seqToNullAlleleCnt(alleleToHaps)
	for i := 0; i < len(alleleToHaps); i++ {
		row := c.updateMap[i]
		for s := 0; s < c.nSeq; s++ {
			row[s] = notAssigned
		}
	}
	for seq := 0; seq < c.nSeq; seq++ {
		if seqToNullAlleleCnt[seq] > 0 {
			c.updateMap[nullAllele][seq] = int32(seq)
		}
	}
}

func (c *Coder) seqToNullAlleleCnt(alleleToHaps [][]int32) []int32 {
	cnt := make([]int32, c.nSeq)
	copy(cnt, c.seq2Cnt[:c.nSeq])
	for _, haps := range alleleToHaps {
		if haps == nil {
			continue
		}
		for _, h := range haps {
			cnt[c.hap2Seq[h]]--
		}
	}
	return cnt
}

func (c *Coder) updateHap2Seq(alleleToHaps [][]int32) {
	for al, haps := range alleleToHaps {
		if haps == nil {
			continue
		}
		alMap := c.updateMap[al]
		for _, h := range haps {
			oldSeq := c.hap2Seq[h]
			newSeq := alMap[oldSeq]
			if newSeq != oldSeq {
				c.hap2Seq[h] = newSeq
				c.seq2Cnt[oldSeq]--
				c.seq2Cnt[newSeq]++
			}
		}
	}
}

// HapToSeq returns the current map from haplotype to allele sequence as a
// packed array with valueSize equal to NSeq().
func (c *Coder) HapToSeq() *ints.IntArray {
	values := make([]int32, len(c.hap2Seq))
	copy(values, c.hap2Seq)
	return ints.NewIntArray(values, int32(c.nSeq))
}

// Recs returns the records admitted since construction or the last Clear,
// in admission order.
func (c *Coder) Recs() []Rec {
	out := make([]Rec, len(c.recs))
	copy(out, c.recs)
	return out
}

// MappedRecs returns Recs() with hapToSeq applied to each record's
// haplotype indices, collapsing each record's carrier lists down onto
// sequence indices.
func (c *Coder) MappedRecs(hapToSeq *ints.IntArray) ([]Rec, error) {
	if hapToSeq.Size() != c.nHaps {
		return nil, pfx.Err(fmt.Errorf("seqcoder: hapToSeq size %d != nHaps %d", hapToSeq.Size(), c.nHaps))
	}
	out := make([]Rec, len(c.recs))
	for i, rec := range c.recs {
		out[i] = rec.ApplyMap(hapToSeq)
	}
	return out, nil
}

// Clear resets the coder to the state in which every haplotype maps to the
// single, empty sequence, and discards the recorded admission history.
func (c *Coder) Clear() {
	for i := range c.hap2Seq {
		c.hap2Seq[i] = 0
	}
	c.nSeq = 1
	c.seq2Cnt[0] = int32(c.nHaps)
	c.recs = c.recs[:0]
}
