package vcf

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/carbocation/pfx"
)

// HeaderPrefix is the fixed prefix of the VCF column header line, before the
// per-sample columns.
const HeaderPrefix = "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT"

// Header holds the VCF meta-information lines and the sample list parsed
// from a VCF header, plus a description of the record source (a file path
// or "<stdin>").
type Header struct {
	source        string
	metaInfoLines []string
	samples       Samples
}

// NewHeader constructs a Header from already-parsed meta-info lines (each
// without a trailing newline) and the samples named in the "#CHROM" line.
func NewHeader(source string, metaInfoLines []string, samples Samples) Header {
	return Header{source: source, metaInfoLines: append([]string(nil), metaInfoLines...), samples: samples}
}

func (h Header) Source() string          { return h.source }
func (h Header) NMetaInfoLines() int     { return len(h.metaInfoLines) }
func (h Header) MetaInfoLine(i int) string { return h.metaInfoLines[i] }
func (h Header) MetaInfoLines() []string { return append([]string(nil), h.metaInfoLines...) }
func (h Header) Samples() Samples        { return h.samples }
func (h Header) NSamples() int           { return h.samples.Size() }

// AddMetaInfoLine returns metaInfoLines with a new "##key=value" line
// appended, immediately before the "#CHROM" header line would be emitted.
// If quoteValue is true, value is wrapped in double quotes.
func AddMetaInfoLine(metaInfoLines []string, key, value string, quoteValue bool) []string {
	line := MetaInfoLine(key, value, quoteValue)
	out := make([]string, len(metaInfoLines)+1)
	copy(out, metaInfoLines)
	out[len(metaInfoLines)] = line
	return out
}

// MetaInfoLine formats a single "##key=value" meta-information line.
func MetaInfoLine(key, value string, quoteValue bool) string {
	if quoteValue {
		return fmt.Sprintf("##%s=\"%s\"", key, value)
	}
	return fmt.Sprintf("##%s=%s", key, value)
}

// ReadVcfHeader reads meta-information lines ("##...") and the "#CHROM..."
// header line from r, returning the meta-info lines (without the header
// line) and the parsed sample list. It stops after consuming the header
// line.
func ReadVcfHeader(source string, r *bufio.Reader) (Header, error) {
	var metaInfoLines []string
	for {
		line, err := r.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed != "" {
			if strings.HasPrefix(trimmed, "##") {
				metaInfoLines = append(metaInfoLines, trimmed)
			} else if strings.HasPrefix(trimmed, "#CHROM") {
				samples, perr := parseSampleColumns(trimmed)
				if perr != nil {
					return Header{}, perr
				}
				return NewHeader(source, metaInfoLines, samples), nil
			} else {
				return Header{}, pfx.Err(fmt.Errorf("vcf: unexpected header line in %s: %q", source, trimmed))
			}
		}
		if err != nil {
			return Header{}, pfx.Err(fmt.Errorf("vcf: missing #CHROM header line in %s", source))
		}
	}
}

func parseSampleColumns(headerLine string) (Samples, error) {
	fields := strings.Split(headerLine, "\t")
	const nFixedCols = 9 // CHROM POS ID REF ALT QUAL FILTER INFO FORMAT
	if len(fields) < nFixedCols {
		return Samples{}, pfx.Err(fmt.Errorf("vcf: header line has too few columns: %q", headerLine))
	}
	return NewSamples(fields[nFixedCols:]), nil
}
