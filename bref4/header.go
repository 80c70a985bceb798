package bref4

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/carbocation/pfx"

	"github.com/browning-lab/bref4/bref4err"
	"github.com/browning-lab/bref4/vcf"
)

// MagicNumber identifies a bref4 file. It is the first four bytes of every
// bref4 file, big-endian.
const MagicNumber uint32 = 25_597_034

// Header holds a bref4 file's VCF meta-information lines and sample
// identifiers. It is immutable once constructed; there is no sample-filtering
// operation, since a bref4 file always carries every sample it was written
// with.
type Header struct {
	metaInfoLines []string
	samples       vcf.Samples
}

// NewHeader constructs a Header from meta-info lines and a sample list.
func NewHeader(metaInfoLines []string, samples vcf.Samples) Header {
	return Header{metaInfoLines: append([]string(nil), metaInfoLines...), samples: samples}
}

// HeaderFromVcf builds the Header a bref4 writer emits for a VCF header,
// with a "bref4Command" provenance meta-info line inserted immediately
// before the sample-column header line.
func HeaderFromVcf(h vcf.Header, command string) Header {
	lines := vcf.AddMetaInfoLine(h.MetaInfoLines(), "bref4Command", command, true)
	return NewHeader(lines, h.Samples())
}

func (h Header) MetaInfoLines() []string { return append([]string(nil), h.metaInfoLines...) }
func (h Header) Samples() vcf.Samples    { return h.samples }
func (h Header) NSamples() int           { return h.samples.Size() }
func (h Header) NHaps() int              { return 2 * h.samples.Size() }

// VcfHeader converts the bref4 header back into a vcf.Header, e.g. when
// decompressing to VCF text.
func (h Header) VcfHeader(source string) vcf.Header {
	return vcf.NewHeader(source, h.metaInfoLines, h.samples)
}

// WriteHeader writes the magic number followed by the length-prefixed header
// payload (meta-info lines, then sample ids, each a string array).
func WriteHeader(w io.Writer, h Header) error {
	var magicBuf [4]byte
	binary.BigEndian.PutUint32(magicBuf[:], MagicNumber)
	if _, err := w.Write(magicBuf[:]); err != nil {
		return pfx.Err(err)
	}

	var payload []byte
	payload = writeStringArray(payload, h.metaInfoLines)
	payload = writeStringArray(payload, h.samples.IDs())

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return pfx.Err(err)
	}
	if _, err := w.Write(payload); err != nil {
		return pfx.Err(err)
	}
	return nil
}

// ReadHeader reads and validates the magic number, then parses the header
// payload.
func ReadHeader(r io.Reader) (Header, error) {
	var magicBuf [4]byte
	if _, err := io.ReadFull(r, magicBuf[:]); err != nil {
		return Header{}, pfx.Err(fmt.Errorf("%w: reading magic number: %v", bref4err.IOError, err))
	}
	magic := binary.BigEndian.Uint32(magicBuf[:])
	if magic != MagicNumber {
		return Header{}, pfx.Err(fmt.Errorf("%w: bad magic number %d, want %d", bref4err.CorruptBlock, magic, MagicNumber))
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Header{}, pfx.Err(fmt.Errorf("%w: reading header length: %v", bref4err.IOError, err))
	}
	nBytes := binary.BigEndian.Uint32(lenBuf[:])
	payload := make([]byte, nBytes)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Header{}, pfx.Err(fmt.Errorf("%w: reading header payload: %v", bref4err.IOError, err))
	}

	metaInfoLines, n, err := readStringArray(payload)
	if err != nil {
		return Header{}, pfx.Err(fmt.Errorf("%w: %v", bref4err.CorruptBlock, err))
	}
	sampleIDs, n2, err := readStringArray(payload[n:])
	if err != nil {
		return Header{}, pfx.Err(fmt.Errorf("%w: %v", bref4err.CorruptBlock, err))
	}
	if n+n2 != len(payload) {
		return Header{}, pfx.Err(fmt.Errorf("%w: header payload has %d trailing bytes", bref4err.CorruptBlock, len(payload)-n-n2))
	}

	return NewHeader(metaInfoLines, vcf.NewSamples(sampleIDs)), nil
}
