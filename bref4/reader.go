package bref4

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/carbocation/pfx"
	"golang.org/x/sync/errgroup"

	"github.com/browning-lab/bref4/bref4err"
	"github.com/browning-lab/bref4/chromids"
	"github.com/browning-lab/bref4/vcf"
)

// ErrNoMoreRecords is returned by It.Next when the bref4 stream is
// exhausted.
var ErrNoMoreRecords = errors.New("bref4: no more records")

// Reader reads raw, length-prefixed blocks from a bref4 stream, stopping at
// the end-of-blocks sentinel. It does no decoding of block contents; pair it
// with a BlockInflater (directly, or through It) to get RefGTRec values.
type Reader struct {
	r      io.Reader
	header Header
	done   bool
}

// NewReader parses the file header from r and returns a Reader positioned
// at the first block.
func NewReader(r io.Reader) (*Reader, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	return &Reader{r: r, header: header}, nil
}

// Header returns the parsed file header.
func (rd *Reader) Header() Header { return rd.header }

// ReadBlock reads one length-prefixed block and returns its bytes, or nil
// once the end-of-blocks sentinel has been read.
func (rd *Reader) ReadBlock() ([]byte, error) {
	if rd.done {
		return nil, nil
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(rd.r, lenBuf[:]); err != nil {
		return nil, pfx.Err(fmt.Errorf("%w: reading block length: %v", bref4err.IOError, err))
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 {
		rd.done = true
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		return nil, pfx.Err(fmt.Errorf("%w: reading block body: %v", bref4err.IOError, err))
	}
	return buf, nil
}

// ReadBlocks reads up to n blocks, returning fewer if the end-of-blocks
// sentinel is reached first.
func (rd *Reader) ReadBlocks(n int) ([][]byte, error) {
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		b, err := rd.ReadBlock()
		if err != nil {
			return nil, err
		}
		if b == nil {
			break
		}
		out = append(out, b)
	}
	return out, nil
}

// It is a parallel, order-preserving iterator over a bref4 stream's
// records: it reads ahead up to maxBlocks raw blocks at a time and inflates
// them concurrently, then drains them to the caller one record at a time in
// original order. This is the double-buffering shape spec's concurrency
// model calls the "block inflater pool".
type It struct {
	reader    *Reader
	inflater  *BlockInflater
	maxBlocks int

	pending  [][]vcf.RefGTRec
	blockIdx int
	recIdx   int
	err      error
}

// NewIt constructs an It reading from reader, inflating blocks via inflater.
// Each refill reads up to 16*nThreads blocks and inflates every one of them
// on its own goroutine.
func NewIt(reader *Reader, inflater *BlockInflater, nThreads int) *It {
	if nThreads < 1 {
		nThreads = 1
	}
	return &It{reader: reader, inflater: inflater, maxBlocks: nThreads << 4}
}

// NewItWithChroms is a convenience constructor that builds a BlockInflater
// from the reader's header and the given chromosome table.
func NewItWithChroms(reader *Reader, chroms *chromids.Table, nThreads int) *It {
	return NewIt(reader, NewBlockInflater(reader.Header().Samples(), chroms), nThreads)
}

func (it *It) refill() error {
	raw, err := it.reader.ReadBlocks(it.maxBlocks)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		it.pending = nil
		return nil
	}
	inflated := make([][]vcf.RefGTRec, len(raw))
	g := new(errgroup.Group)
	for i, b := range raw {
		i, b := i, b
		g.Go(func() error {
			recs, err := it.inflater.Inflate(b)
			if err != nil {
				return err
			}
			inflated[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	it.pending = inflated
	it.blockIdx, it.recIdx = 0, 0
	return nil
}

// Next returns the next record in input order, or ErrNoMoreRecords once the
// stream is exhausted.
func (it *It) Next() (vcf.RefGTRec, error) {
	if it.err != nil {
		return nil, it.err
	}
	for {
		for it.blockIdx < len(it.pending) {
			block := it.pending[it.blockIdx]
			if it.recIdx < len(block) {
				rec := block[it.recIdx]
				it.recIdx++
				return rec, nil
			}
			it.blockIdx++
			it.recIdx = 0
		}
		if err := it.refill(); err != nil {
			it.err = err
			return nil, err
		}
		if len(it.pending) == 0 {
			it.err = ErrNoMoreRecords
			return nil, ErrNoMoreRecords
		}
	}
}
