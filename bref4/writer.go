package bref4

import (
	"bytes"
	"fmt"
	"io"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/carbocation/pfx"

	"github.com/browning-lab/bref4/bref4err"
	"github.com/browning-lab/bref4/ints"
	"github.com/browning-lab/bref4/seqcoder"
	"github.com/browning-lab/bref4/vcf"
)

// DefaultBitsPerLevel is the block encoder's default level-capacity growth
// rate.
const DefaultBitsPerLevel = 2

// AutoMaxNonmajor requests the encoder compute maxNonmajor from the
// haplotype count rather than use an explicit threshold.
const AutoMaxNonmajor = -1

// autoMaxNonmajor mirrors the original's undocumented default: larger
// cohorts tolerate a larger sparse-record threshold before the map-chain
// path pays for itself.
func autoMaxNonmajor(nHaps int) int {
	floorLog2 := bits.Len(uint(nHaps)) - 1
	v := 4 * (floorLog2 - 11)
	if v < 4 {
		v = 4
	}
	return v
}

// levelToMaxNSeq computes the hierarchical coder's per-level sequence-count
// capacity. Level 0 (the top-level coder records are first admitted to) gets
// the largest capacity; each subsequent level is a finer partition with a
// smaller capacity, stopping once a level's capacity would exceed half the
// haplotype count.
func levelToMaxNSeq(nHaps, bitsPerLevel int) []int {
	var caps []int
	nSeq := 16
	for nSeq <= nHaps>>1 {
		caps = append(caps, nSeq)
		nSeq <<= uint(bitsPerLevel)
	}
	for i, j := 0, len(caps)-1; i < j; i, j = i+1, j-1 {
		caps[i], caps[j] = caps[j], caps[i]
	}
	return caps
}

// flushJob is one block's worth of work handed from the ingestion goroutine
// to the single serialization goroutine. allRecs holds every record
// buffered since the last flush, in input order; eligible marks which of
// them were admitted to the sequence coder (map-coded) rather than stored
// as a sparse allele list; maps holds, for each eligible record in order,
// its own map chain.
type flushJob struct {
	allRecs  []vcf.RefGTRec
	eligible []bool
	maps     [][]*ints.IntArray
	chromID  string
}

// Writer is the bref4 block encoder. It batches incoming records into
// blocks bounded by chromosome transitions or sequence-coder admission
// failure, builds each block's hierarchical map chain, and serializes
// blocks to the output stream in input order on a single dedicated
// goroutine (the "serializer"), matching the concurrency model of the
// parser and block-inflater pools elsewhere in this module.
//
// A Writer is not safe for concurrent calls to Write; Close must be called
// exactly once, after the last Write, to flush the final block and append
// the tail index.
type Writer struct {
	out io.Writer

	nHaps             int
	maxNonmajor       int
	levelCaps         []int
	maxMaps           int
	maxMapRecNAlleles int

	chromSeen        map[string]bool
	currentChromID   string
	haveCurrentChrom bool

	coder  *seqcoder.Coder
	buffer []vcf.RefGTRec
	flags  []bool

	bytesWritten atomic.Int64
	idx          indexBuilder

	flushCh chan flushJob
	wg      sync.WaitGroup

	mu      sync.Mutex
	firstErr error
	closed   bool
}

// NewWriter constructs a Writer, writing the file header immediately.
// bitsPerLevel must be >= 1 (DefaultBitsPerLevel matches the original's
// default). maxNonmajor may be AutoMaxNonmajor to derive it from the
// haplotype count.
func NewWriter(out io.Writer, header Header, bitsPerLevel, maxNonmajor int) (*Writer, error) {
	if bitsPerLevel < 1 {
		return nil, pfx.Err(fmt.Errorf("%w: bits-per-level must be >= 1, got %d", bref4err.BadArguments, bitsPerLevel))
	}
	nHaps := header.NHaps()
	if header.NSamples() > (1<<30)-1 {
		return nil, pfx.Err(fmt.Errorf("%w: %d samples exceeds the supported range", bref4err.TooManySamples, header.NSamples()))
	}
	if maxNonmajor < 0 {
		maxNonmajor = autoMaxNonmajor(nHaps)
	}

	levelCaps := levelToMaxNSeq(nHaps, bitsPerLevel)
	maxMaps := len(levelCaps) + 1
	if maxMaps > 255 {
		return nil, pfx.Err(fmt.Errorf("%w: bits-per-level=%d over %d haplotypes needs %d maps, over the 255 limit", bref4err.BadArguments, bitsPerLevel, nHaps, maxMaps))
	}

	smallest := nHaps
	if len(levelCaps) > 0 {
		smallest = levelCaps[len(levelCaps)-1]
	}
	maxMapRecNAlleles := smallest
	if maxMapRecNAlleles > MaxNAlleles {
		maxMapRecNAlleles = MaxNAlleles
	}

	topCap := nHaps
	if len(levelCaps) > 0 {
		topCap = levelCaps[0]
	}
	coder, err := seqcoder.New(nHaps, topCap)
	if err != nil {
		return nil, err
	}

	var headerBuf bytes.Buffer
	if err := WriteHeader(&headerBuf, header); err != nil {
		return nil, err
	}
	if _, err := out.Write(headerBuf.Bytes()); err != nil {
		return nil, pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}

	w := &Writer{
		out:               out,
		nHaps:             nHaps,
		maxNonmajor:       maxNonmajor,
		levelCaps:         levelCaps,
		maxMaps:           maxMaps,
		maxMapRecNAlleles: maxMapRecNAlleles,
		chromSeen:         make(map[string]bool),
		coder:             coder,
		flushCh:           make(chan flushJob, 4),
	}
	w.bytesWritten.Store(int64(headerBuf.Len()))

	w.wg.Add(1)
	go w.serialize()
	return w, nil
}

func (w *Writer) getErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.firstErr
}

func (w *Writer) setErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.firstErr == nil {
		w.firstErr = err
	}
}

// storeAsHapCodedRec reports whether rec is eligible for map-chain storage:
// more than maxNonmajor of its haplotypes carry a non-null allele, and its
// allele count fits in the smallest level's sequence-count capacity.
func (w *Writer) storeAsHapCodedRec(rec Rec) bool {
	nonNull := 0
	for _, list := range rec.AlleleToHaps() {
		nonNull += len(list)
	}
	return nonNull > w.maxNonmajor && rec.Marker().NAlleles() <= w.maxMapRecNAlleles
}

// Write admits one record into the block in progress, flushing and
// starting a new block on a chromosome transition or a sequence-coder
// admission failure.
func (w *Writer) Write(rec vcf.RefGTRec) error {
	if err := w.getErr(); err != nil {
		return err
	}

	chromID := rec.Marker().ChromID()
	if !w.haveCurrentChrom || chromID != w.currentChromID {
		if err := w.flush(); err != nil {
			return err
		}
		if w.chromSeen[chromID] {
			return pfx.Err(fmt.Errorf("%w: %q", bref4err.NonContiguousChromosome, chromID))
		}
		w.chromSeen[chromID] = true
		w.currentChromID = chromID
		w.haveCurrentChrom = true
	}

	brefRec, err := From(rec)
	if err != nil {
		return err
	}

	eligible := false
	if w.storeAsHapCodedRec(brefRec) {
		ok, err := w.coder.Add(brefRec)
		if err != nil {
			return err
		}
		if !ok {
			if err := w.flush(); err != nil {
				return err
			}
			ok, err = w.coder.Add(brefRec)
			if err != nil {
				return err
			}
			if !ok {
				return pfx.Err(fmt.Errorf("%w: record did not admit into a freshly cleared sequence coder", bref4err.CorruptBlock))
			}
		}
		eligible = true
	}

	w.buffer = append(w.buffer, rec)
	w.flags = append(w.flags, eligible)
	return nil
}

// flush drains the buffered block (if any), builds its map chain, and
// submits it to the serializer. It blocks if the serializer's queue is
// full, providing backpressure.
func (w *Writer) flush() error {
	if len(w.buffer) == 0 {
		return nil
	}
	recs, flags := w.buffer, w.flags
	w.buffer, w.flags = nil, nil

	coderRecs := w.coder.Recs()
	var maps [][]*ints.IntArray
	if len(coderRecs) > 0 {
		maps = make([][]*ints.IntArray, len(coderRecs))
		if len(w.levelCaps) > 0 {
			hapToSeq := w.coder.HapToSeq()
			maps[0] = append(maps[0], hapToSeq)
			mapped, err := w.coder.MappedRecs(hapToSeq)
			if err != nil {
				return err
			}
			if err := w.storeMaps(0, maps, mapped); err != nil {
				return err
			}
		} else {
			for i, r := range coderRecs {
				maps[i] = append(maps[i], r.HapToAllele())
			}
		}
	}
	w.coder.Clear()

	job := flushJob{allRecs: recs, eligible: flags, maps: maps, chromID: w.currentChromID}
	w.flushCh <- job
	return w.getErr()
}

// storeMaps recurses one hierarchical level at a time: it feeds recs
// (already mapped by every map appended so far) into a fresh sub-coder at
// levelCaps[level+1], splitting the run into contiguous admission-successful
// chunks and recursing into the next level for each chunk. maps[i] is the
// growing map-chain bucket for the record at position i in this level's
// (sub)range. The deepest level (or the case with no further levels at all)
// appends each record's own hapToAllele as the final link in its chain.
func (w *Writer) storeMaps(level int, maps [][]*ints.IntArray, recs []Rec) error {
	if level+1 >= len(w.levelCaps) || len(recs) == 0 {
		for i, r := range recs {
			maps[i] = append(maps[i], r.HapToAllele())
		}
		return nil
	}

	subCoder, err := seqcoder.New(recs[0].Size(), w.levelCaps[level+1])
	if err != nil {
		return err
	}
	lastStart := 0
	flushRun := func(end int) error {
		hapToSeq := subCoder.HapToSeq()
		maps[lastStart] = append(maps[lastStart], hapToSeq)
		mapped, err := subCoder.MappedRecs(hapToSeq)
		if err != nil {
			return err
		}
		return w.storeMaps(level+1, maps[lastStart:end], mapped)
	}

	for j, r := range recs {
		ok, err := subCoder.Add(r)
		if err != nil {
			return err
		}
		if !ok {
			if err := flushRun(j); err != nil {
				return err
			}
			subCoder.Clear()
			lastStart = j
			ok, err = subCoder.Add(r)
			if err != nil {
				return err
			}
			if !ok {
				return pfx.Err(fmt.Errorf("%w: record did not admit into a freshly cleared sub-coder", bref4err.CorruptBlock))
			}
		}
	}
	return flushRun(len(recs))
}

func (w *Writer) serialize() {
	defer w.wg.Done()
	for job := range w.flushCh {
		if w.getErr() != nil {
			continue
		}
		if err := w.writeBref4Block(job); err != nil {
			w.setErr(err)
		}
	}
}

// writeBref4Block serializes one block's bytes and appends its tail-index
// entry. It runs only on the serializer goroutine.
func (w *Writer) writeBref4Block(job flushJob) error {
	if len(job.allRecs) == 0 {
		return nil
	}
	firstMarker := job.allRecs[0].Marker()
	lastMarker := job.allRecs[len(job.allRecs)-1].Marker()

	var nMapsFirst byte
	if len(job.maps) > 0 {
		nMapsFirst = byte(len(job.maps[0]))
	}

	var buf []byte
	buf = writeUint32(buf, uint32(len(job.allRecs)))
	buf = writeInt32(buf, lastMarker.Pos())
	buf = append(buf, nMapsFirst)
	buf = writeUTF(buf, job.chromID)

	var lastPos int32
	var err error
	eligibleIdx := 0
	for i, rec := range job.allRecs {
		buf, lastPos, err = writeMarker(buf, rec.Marker(), lastPos)
		if err != nil {
			return err
		}
		if job.eligible[i] {
			chain := job.maps[eligibleIdx]
			eligibleIdx++
			buf = append(buf, byte(w.maxMaps-len(chain)))
			buf, err = writeMaps(buf, chain)
		} else {
			allocByte := int8(allocRecByte)
			buf = append(buf, byte(allocByte))
			buf, err = writeAllelesArray(buf, rec.AlleleToHaps(), rec.NullRow())
		}
		if err != nil {
			return err
		}
	}

	offset := w.bytesWritten.Load()
	w.idx.appendBlock(offset, job.chromID, firstMarker.Pos(), lastMarker.Pos())

	lenBuf := writeUint32(nil, uint32(len(buf)))
	if _, err := w.out.Write(lenBuf); err != nil {
		return pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}
	if _, err := w.out.Write(buf); err != nil {
		return pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}
	w.bytesWritten.Add(int64(4 + len(buf)))
	return nil
}

// Close flushes the final block, shuts down the serializer, and appends the
// end-of-blocks sentinel and tail index. It must be called exactly once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.flush(); err != nil {
		return err
	}
	close(w.flushCh)
	w.wg.Wait()
	if err := w.getErr(); err != nil {
		return err
	}

	if _, err := w.out.Write(writeUint32(nil, 0)); err != nil {
		return pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}
	w.bytesWritten.Add(4)

	indexOffset := w.bytesWritten.Load()
	trailer := w.idx.finish(indexOffset)
	if _, err := w.out.Write(trailer); err != nil {
		return pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}
	return nil
}
