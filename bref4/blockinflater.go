package bref4

import (
	"fmt"

	"github.com/carbocation/pfx"

	"github.com/browning-lab/bref4/bref4err"
	"github.com/browning-lab/bref4/chromids"
	"github.com/browning-lab/bref4/ints"
	"github.com/browning-lab/bref4/vcf"
)

// BlockInflater decodes one block's raw bytes into the RefGTRec values it
// holds. It keeps no per-call state: each call to Inflate allocates its own
// per-block map-chain slice and scratch composition buffer, so a single
// BlockInflater can be shared by a pool of goroutines decoding independent
// blocks concurrently. The chromosome table is shared and
// mutated by every concurrent caller — a chromosome name is only known once
// its block is decoded, not in advance — so chroms.Intern guards its own
// state; see chromids.Table.
type BlockInflater struct {
	header vcf.Samples
	nHaps  int
	chroms *chromids.Table
}

// NewBlockInflater constructs a BlockInflater over the given sample list and
// chromosome table. chroms is shared with whatever wrote (or will write)
// the chromIds this file's blocks reference.
func NewBlockInflater(samples vcf.Samples, chroms *chromids.Table) *BlockInflater {
	return &BlockInflater{header: samples, nHaps: 2 * samples.Size(), chroms: chroms}
}

// Inflate decodes one block's bytes into its RefGTRec values, in the order
// they were written. An empty slice of bytes (the end-of-blocks sentinel)
// decodes to no records.
func (bi *BlockInflater) Inflate(blockBytes []byte) ([]vcf.RefGTRec, error) {
	if len(blockBytes) == 0 {
		return nil, nil
	}

	off := 0
	nRecs, n, err := readUint32(blockBytes[off:])
	if err != nil {
		return nil, err
	}
	off += n

	_, n, err = readInt32(blockBytes[off:]) // lastRecPos: consumed, unused by decode
	if err != nil {
		return nil, err
	}
	off += n

	if len(blockBytes) <= off {
		return nil, pfx.Err(fmt.Errorf("%w: block truncated before nMaps byte", bref4err.CorruptBlock))
	}
	nMaps := int(int8(blockBytes[off]))
	off++
	if nMaps < 0 {
		return nil, pfx.Err(fmt.Errorf("%w: block nMaps byte is negative (%d)", bref4err.CorruptBlock, nMaps))
	}

	chromID, n, err := readUTF(blockBytes[off:])
	if err != nil {
		return nil, err
	}
	off += n
	chromIndex := bi.chroms.Intern(chromID)

	nHapToSeqMaps := (nMaps + 1) / 2 // ceil(nMaps/2); only nMaps == 1 is the flat one-map case
	maps := make([]*ints.IntArray, nMaps)
	mapBuffer := make([]int32, bi.nHaps)

	var lastPos int32
	var hapToSeq *ints.IntArray

	recs := make([]vcf.RefGTRec, 0, nRecs)
	for i := uint32(0); i < nRecs; i++ {
		var marker vcf.Marker
		marker, lastPos, n, err = readMarker(chromIndex, chromID, lastPos, blockBytes[off:])
		if err != nil {
			return nil, err
		}
		off += n

		if len(blockBytes) <= off {
			return nil, pfx.Err(fmt.Errorf("%w: block truncated before startMapIndex byte", bref4err.CorruptBlock))
		}
		startMapIndex := int(int8(blockBytes[off]))
		off++

		switch {
		case startMapIndex >= 0:
			n, err = readMaps(maps, bi.nHaps, startMapIndex, blockBytes[off:])
			if err != nil {
				return nil, err
			}
			off += n

			if nHapToSeqMaps == nMaps {
				recs = append(recs, vcf.NewIntArrayRefGTRec(marker, bi.header, maps[0]))
				continue
			}
			if startMapIndex < nHapToSeqMaps {
				hapToSeq = compose(maps, 0, nHapToSeqMaps, mapBuffer)
			}
			seqToAllele := compose(maps, nHapToSeqMaps, nMaps, mapBuffer)
			recs = append(recs, vcf.NewMapRefGTRec(marker, bi.header, hapToSeq, seqToAllele))

		case startMapIndex == allocRecByte:
			alleleToHaps, _, n2, err := readAllelesArray(blockBytes[off:], marker.NAlleles())
			if err != nil {
				return nil, err
			}
			off += n2
			rec, err := vcf.AlleleRefGTRec(marker, bi.header, alleleToHaps)
			if err != nil {
				return nil, pfx.Err(fmt.Errorf("%w: %v", bref4err.CorruptBlock, err))
			}
			recs = append(recs, rec)

		default:
			return nil, pfx.Err(fmt.Errorf("%w: unexpected startMapIndex byte %d", bref4err.CorruptBlock, startMapIndex))
		}
	}
	return recs, nil
}
