package vcf

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/carbocation/pfx"
	"golang.org/x/sync/errgroup"

	"github.com/browning-lab/bref4/chromids"
)

// ErrNoMoreRecords is returned by Reader.Next when the input is exhausted.
var ErrNoMoreRecords = errors.New("vcf: no more records")

// Reader returns RefGTRec values parsed from a VCF input, preserving input
// order while parsing each buffered batch of lines concurrently, one
// goroutine per line (the "parser pool", spec §5).
type Reader struct {
	source  string
	header  Header
	chroms  *chromids.Table
	scanner *bufio.Scanner

	bufferSize int
	buffer     []*SparseRefGTRec
	bufIdx     int
	eof        bool
}

// NewReader constructs a Reader that parses VCF lines from r. bufferSize is
// the number of lines parsed as one concurrent batch.
func NewReader(source string, r io.Reader, chroms *chromids.Table, bufferSize int) (*Reader, error) {
	if bufferSize < 1 {
		return nil, pfx.Err(fmt.Errorf("vcf: bufferSize must be >= 1, got %d", bufferSize))
	}
	br := bufio.NewReaderSize(r, 1<<20)
	header, err := ReadVcfHeader(source, br)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 1<<16), 1<<26)

	rd := &Reader{source: source, header: header, chroms: chroms, scanner: scanner, bufferSize: bufferSize}
	if err := rd.fillBuffer(); err != nil {
		return nil, err
	}
	return rd, nil
}

// Header returns the parsed VCF header.
func (r *Reader) Header() Header { return r.header }

// Source returns the description of the record source.
func (r *Reader) Source() string { return r.source }

func (r *Reader) fillBuffer() error {
	for !r.eof && r.bufIdx >= len(r.buffer) {
		var lines []string
		for len(lines) < r.bufferSize && r.scanner.Scan() {
			line := r.scanner.Text()
			if line != "" {
				lines = append(lines, line)
			}
		}
		if err := r.scanner.Err(); err != nil {
			return pfx.Err(err)
		}
		if len(lines) == 0 {
			r.eof = true
			return nil
		}

		recs := make([]*SparseRefGTRec, len(lines))
		g := new(errgroup.Group)
		for i, line := range lines {
			i, line := i, line
			g.Go(func() error {
				parser, err := NewVcfRecGTParser(r.chroms, r.header, line)
				if err != nil {
					return err
				}
				rec, err := parser.ToRefGTRec()
				if err != nil {
					return err
				}
				recs[i] = rec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		r.buffer = recs
		r.bufIdx = 0
	}
	return nil
}

// Next returns the next record, or ErrNoMoreRecords when input is
// exhausted.
func (r *Reader) Next() (*SparseRefGTRec, error) {
	if r.bufIdx >= len(r.buffer) {
		if err := r.fillBuffer(); err != nil {
			return nil, err
		}
		if r.bufIdx >= len(r.buffer) {
			return nil, ErrNoMoreRecords
		}
	}
	rec := r.buffer[r.bufIdx]
	r.bufIdx++
	return rec, nil
}
