package bref4

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/carbocation/pfx"

	"github.com/browning-lab/bref4/bref4err"
	"github.com/browning-lab/bref4/ints"
)

// blockEntry is one tail-index record: the block's genomic span and its
// absolute byte offset in the file.
type blockEntry struct {
	startPos int32
	endPos   int32
	offset   int64
}

// Index is the tail index: for every chromosome, the sorted list of block
// spans and file offsets written for that chromosome. Chromosome-contiguity
// (enforced by Writer) guarantees each chromosome's blocks were appended in
// a single contiguous run, so blocks within a chromosome are already sorted
// by position in append order.
type Index struct {
	chromOrder []string
	blocks     map[string][]blockEntry
}

// Chromosomes returns the chromosomes present in the index, in the order
// their first block was written.
func (idx Index) Chromosomes() []string { return append([]string(nil), idx.chromOrder...) }

// NBlocks returns the number of blocks recorded for chromID.
func (idx Index) NBlocks(chromID string) int { return len(idx.blocks[chromID]) }

// StartPos returns the first marker position of block i of chromID.
func (idx Index) StartPos(chromID string, i int) int32 { return idx.blocks[chromID][i].startPos }

// EndPos returns the last marker position of block i of chromID.
func (idx Index) EndPos(chromID string, i int) int32 { return idx.blocks[chromID][i].endPos }

// Offset returns the absolute file byte offset of block i of chromID's
// length-prefixed block bytes.
func (idx Index) Offset(chromID string, i int) int64 { return idx.blocks[chromID][i].offset }

// Block returns the index of the first block of chromID whose endPos is
// >= pos, backing up over ties so that the first block covering pos is
// returned. If no such block exists, it returns -(insertion point)-1, the
// same convention as java.util.Arrays.binarySearch.
func (idx Index) Block(chromID string, pos int32) int {
	entries := idx.blocks[chromID]
	x := sort.Search(len(entries), func(i int) bool { return entries[i].endPos >= pos })
	if x < len(entries) && entries[x].endPos == pos {
		for x > 0 && entries[x-1].endPos == pos {
			x--
		}
		return x
	}
	if x < len(entries) {
		return x
	}
	return -x - 1
}

// NextBlock returns the index of the first block of chromID whose startPos
// is >= pos, advancing past ties. If no such block exists, it returns
// -(insertion point)-1.
func (idx Index) NextBlock(chromID string, pos int32) int {
	entries := idx.blocks[chromID]
	x := sort.Search(len(entries), func(i int) bool { return entries[i].startPos >= pos })
	if x < len(entries) && entries[x].startPos == pos {
		for x < len(entries) && entries[x].startPos == pos {
			x++
		}
		return x
	}
	if x < len(entries) {
		return x
	}
	return -x - 1
}

// indexBuilder accumulates tail-index entries in file-append order as a
// Writer flushes blocks, then serializes them at Close.
type indexBuilder struct {
	buf []byte
}

// appendBlock records one block's span and offset.
func (b *indexBuilder) appendBlock(offset int64, chromID string, startPos, endPos int32) {
	var off8 [8]byte
	binary.BigEndian.PutUint64(off8[:], uint64(offset))
	b.buf = append(b.buf, off8[:]...)
	b.buf = writeUTF(b.buf, chromID)
	b.buf = writeInt32(b.buf, startPos)
	b.buf = writeInt32(b.buf, endPos)
}

// appendBlockFromBytes derives an index entry directly from a raw block's
// bytes, without fully decoding it: nRecs and nMaps are parsed only to be
// skipped, endPos is the block's stored lastPos field, and startPos is
// recovered from the first record's position delta (encoded relative to an
// initial reference position of 0, so the delta equals the absolute
// position). This lets pass-through re-emission (bref4 -> bref4) rebuild the
// tail index without inflating each block.
func (b *indexBuilder) appendBlockFromBytes(offset int64, blockBytes []byte) error {
	if len(blockBytes) < 4+4+1 {
		return pfx.Err(fmt.Errorf("%w: block too short to hold header fields", bref4err.CorruptBlock))
	}
	off := 4 // skip nRecs
	endPos, n, err := readInt32(blockBytes[off:])
	if err != nil {
		return err
	}
	off += n
	off++ // skip nMaps byte
	chromID, n, err := readUTF(blockBytes[off:])
	if err != nil {
		return err
	}
	off += n
	startPos, _, err := ints.ReadRestrictedInt(blockBytes[off:])
	if err != nil {
		return err
	}
	b.appendBlock(offset, chromID, startPos, endPos)
	return nil
}

// finish appends the trailer (-1 sentinel, then indexOffset) to the
// accumulated index body and returns the complete bytes to write to the
// file at indexOffset.
func (b *indexBuilder) finish(indexOffset int64) []byte {
	out := append([]byte(nil), b.buf...)
	var sentinel, off8 [8]byte
	binary.BigEndian.PutUint64(sentinel[:], ^uint64(0))
	binary.BigEndian.PutUint64(off8[:], uint64(indexOffset))
	out = append(out, sentinel[:]...)
	out = append(out, off8[:]...)
	return out
}

// ReadIndex reads the tail index from a bref4 file: the trailing i64
// indexOffset, then the sequential tuples starting there until the -1
// sentinel.
func ReadIndex(r io.ReadSeeker) (Index, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return Index{}, pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}
	if size < 8 {
		return Index{}, pfx.Err(fmt.Errorf("%w: file too short to hold a tail index", bref4err.CorruptBlock))
	}
	if _, err := r.Seek(size-8, io.SeekStart); err != nil {
		return Index{}, pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}
	var off8 [8]byte
	if _, err := io.ReadFull(r, off8[:]); err != nil {
		return Index{}, pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}
	indexOffset := int64(binary.BigEndian.Uint64(off8[:]))
	if _, err := r.Seek(indexOffset, io.SeekStart); err != nil {
		return Index{}, pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}

	idx := Index{blocks: make(map[string][]blockEntry)}
	body, err := io.ReadAll(io.LimitReader(r, size-8-indexOffset))
	if err != nil {
		return Index{}, pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}

	pos := 0
	for {
		if len(body[pos:]) < 8 {
			return Index{}, pfx.Err(fmt.Errorf("%w: truncated tail index", bref4err.CorruptBlock))
		}
		offset := int64(binary.BigEndian.Uint64(body[pos:]))
		pos += 8
		if offset == -1 {
			break
		}
		chromID, n, err := readUTF(body[pos:])
		if err != nil {
			return Index{}, err
		}
		pos += n
		startPos, n, err := readInt32(body[pos:])
		if err != nil {
			return Index{}, err
		}
		pos += n
		endPos, n, err := readInt32(body[pos:])
		if err != nil {
			return Index{}, err
		}
		pos += n

		if _, ok := idx.blocks[chromID]; !ok {
			idx.chromOrder = append(idx.chromOrder, chromID)
		}
		idx.blocks[chromID] = append(idx.blocks[chromID], blockEntry{startPos: startPos, endPos: endPos, offset: offset})
	}
	return idx, nil
}
