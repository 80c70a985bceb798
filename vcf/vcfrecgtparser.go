package vcf

import (
	"fmt"
	"strings"

	"github.com/carbocation/pfx"

	"github.com/browning-lab/bref4/chromids"
)

// VcfRecGTParser parses one VCF data line into its Marker and GT-derived
// haplotype allele assignments, rejecting unphased, missing, or non-diploid
// genotypes.
type VcfRecGTParser struct {
	marker   Marker
	samples  Samples
	nSamples int
	alleles  []int32 // length 2*nSamples, one allele index per haplotype
}

// NewVcfRecGTParser parses line (tab-separated VCF fields, no trailing
// newline) against header, interning the chromosome name in chroms.
func NewVcfRecGTParser(chroms *chromids.Table, header Header, line string) (*VcfRecGTParser, error) {
	fields := strings.Split(line, "\t")
	const nFixedCols = 9
	nSamples := header.NSamples()
	if len(fields) != nFixedCols+nSamples {
		return nil, pfx.Err(fmt.Errorf("vcf: expected %d columns, found %d: %q", nFixedCols+nSamples, len(fields), firstN(line, 80)))
	}

	formatFields := strings.Split(fields[8], ":")
	gtIndex := -1
	for i, f := range formatFields {
		if f == "GT" {
			gtIndex = i
			break
		}
	}
	if gtIndex == -1 {
		return nil, pfx.Err(fmt.Errorf("vcf: record has no GT field: %q", firstN(line, 80)))
	}

	var pos int
	if _, err := fmt.Sscanf(fields[1], "%d", &pos); err != nil {
		return nil, pfx.Err(fmt.Errorf("vcf: invalid POS %q", fields[1]))
	}
	alts := splitAlts(fields[4])
	chromIndex := chroms.Intern(fields[0])
	marker := NewMarker(chromIndex, fields[0], int32(pos), fields[2], fields[3], alts, fields[5], fields[6], fields[7])

	alleles := make([]int32, 2*nSamples)
	for s := 0; s < nSamples; s++ {
		cell := fields[nFixedCols+s]
		parts := strings.Split(cell, ":")
		if len(parts) <= gtIndex {
			return nil, pfx.Err(fmt.Errorf("vcf: sample field missing GT subfield: %q", cell))
		}
		gtField := parts[gtIndex]
		a1, a2, err := parseGT(gtField, marker.NAlleles())
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("vcf: sample %d: %w (marker %s:%d)", s, err, fields[0], pos))
		}
		alleles[2*s] = a1
		alleles[2*s+1] = a2
	}

	return &VcfRecGTParser{marker: marker, samples: header.Samples(), nSamples: nSamples, alleles: alleles}, nil
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func splitAlts(field string) []string {
	if field == "." || field == "" {
		return nil
	}
	return strings.Split(field, ",")
}

func parseGT(gt string, nAlleles int) (int32, int32, error) {
	sepIndex := strings.IndexByte(gt, '|')
	if sepIndex < 0 {
		if strings.IndexByte(gt, '/') >= 0 {
			return 0, 0, fmt.Errorf("unphased genotype %q", gt)
		}
		return 0, 0, fmt.Errorf("malformed genotype %q", gt)
	}
	a1s, a2s := gt[:sepIndex], gt[sepIndex+1:]
	if strings.ContainsAny(a2s, "|/") {
		return 0, 0, fmt.Errorf("non-diploid genotype %q", gt)
	}
	if a1s == "." || a2s == "" || a2s == "." {
		return 0, 0, fmt.Errorf("missing genotype %q", gt)
	}
	a1, err := parseAlleleIndex(a1s, nAlleles)
	if err != nil {
		return 0, 0, err
	}
	a2, err := parseAlleleIndex(a2s, nAlleles)
	if err != nil {
		return 0, 0, err
	}
	return a1, a2, nil
}

func parseAlleleIndex(s string, nAlleles int) (int32, error) {
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, fmt.Errorf("invalid allele index %q", s)
	}
	if v < 0 || v >= nAlleles {
		return 0, fmt.Errorf("allele index %d out of range [0,%d)", v, nAlleles)
	}
	return int32(v), nil
}

// Marker returns the parsed marker.
func (p *VcfRecGTParser) Marker() Marker { return p.marker }

// NSamples returns the number of samples.
func (p *VcfRecGTParser) NSamples() int { return p.nSamples }

// NAlleles returns the number of alleles at this marker.
func (p *VcfRecGTParser) NAlleles() int { return p.marker.NAlleles() }

// NonMajAlleleIndices returns the alleleToHaps array used to build a
// RefGTRec/Bref4Rec: for each allele, the sorted ascending list of
// haplotype indices carrying it, except the most frequent allele (the null
// row) whose entry is nil.
func (p *VcfRecGTParser) NonMajAlleleIndices() [][]int32 {
	nAlleles := p.NAlleles()
	counts := make([]int, nAlleles)
	for _, a := range p.alleles {
		counts[a]++
	}
	nullRow := argmax(counts)

	out := make([][]int32, nAlleles)
	for a := range out {
		if a != nullRow {
			out[a] = []int32{}
		}
	}
	for h, a := range p.alleles {
		if int(a) != nullRow {
			out[a] = append(out[a], int32(h))
		}
	}
	return out
}

// ToRefGTRec builds the SparseRefGTRec for this parsed record.
func (p *VcfRecGTParser) ToRefGTRec() (*SparseRefGTRec, error) {
	return AlleleRefGTRec(p.marker, p.samples, p.NonMajAlleleIndices())
}
