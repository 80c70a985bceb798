package vcf

import (
	"bufio"
	"io"
)

// CopyMetaInfoLines writes every meta-information line of header to w,
// each terminated with a newline.
func CopyMetaInfoLines(header Header, w *bufio.Writer) error {
	for i := 0; i < header.NMetaInfoLines(); i++ {
		if _, err := w.WriteString(header.MetaInfoLine(i)); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// WriteHeaderLine writes the "#CHROM..." column header line for the given
// sample ids.
func WriteHeaderLine(sampleIDs []string, w *bufio.Writer) error {
	if _, err := w.WriteString(HeaderPrefix); err != nil {
		return err
	}
	for _, id := range sampleIDs {
		if err := w.WriteByte('\t'); err != nil {
			return err
		}
		if _, err := w.WriteString(id); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

// Writer writes RefGTRec values as VCF text, including the meta-information
// and column header lines.
type Writer struct {
	w      *bufio.Writer
	header Header
}

// NewWriter constructs a Writer that writes header and subsequent records
// to w.
func NewWriter(w io.Writer, header Header) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 1<<20), header: header}
}

// WriteHeader writes the meta-information lines and column header line.
func (vw *Writer) WriteHeader() error {
	if err := CopyMetaInfoLines(vw.header, vw.w); err != nil {
		return err
	}
	return WriteHeaderLine(vw.header.Samples().IDs(), vw.w)
}

// WriteRecord writes one data line.
func (vw *Writer) WriteRecord(rec RefGTRec) error {
	if _, err := vw.w.WriteString(rec.ToVcfRecord()); err != nil {
		return err
	}
	return vw.w.WriteByte('\n')
}

// Flush flushes buffered output to the underlying writer.
func (vw *Writer) Flush() error {
	return vw.w.Flush()
}
