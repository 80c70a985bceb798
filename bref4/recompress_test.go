package bref4

import (
	"bytes"
	"testing"

	"github.com/browning-lab/bref4/vcf"
)

func TestRecompressPreservesBlocksAndRebuildsIndex(t *testing.T) {
	samples := vcf.NewSamples([]string{"s1", "s2"})
	header := NewHeader([]string{"##fileformat=VCFv4.2"}, samples)

	var original bytes.Buffer
	w, err := NewWriter(&original, header, 2, 0)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	recs := []vcf.RefGTRec{
		mustAlleleRec(t, "chr1", 10, samples, [][]int32{nil, {0}}),
		mustAlleleRec(t, "chr1", 20, samples, [][]int32{nil, {1, 2}}),
		mustAlleleRec(t, "chr2", 5, samples, [][]int32{nil, {3}}),
	}
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	srcReader, err := NewReader(bytes.NewReader(original.Bytes()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	var copied bytes.Buffer
	if err := Recompress(&copied, srcReader); err != nil {
		t.Fatalf("Recompress: %v", err)
	}

	gotHeader, err := ReadHeader(bytes.NewReader(copied.Bytes()))
	if err != nil {
		t.Fatalf("ReadHeader(copy): %v", err)
	}
	if gotHeader.NSamples() != 2 {
		t.Fatalf("copy NSamples() = %d, want 2", gotHeader.NSamples())
	}

	gotRecs, gotIdx := decodeAll(t, copied.Bytes())
	if len(gotRecs) != len(recs) {
		t.Fatalf("copy decoded %d records, want %d", len(gotRecs), len(recs))
	}
	for i := range recs {
		assertSameGenotypes(t, recs[i], gotRecs[i])
	}

	_, wantIdx := decodeAll(t, original.Bytes())
	if len(gotIdx.Chromosomes()) != len(wantIdx.Chromosomes()) {
		t.Fatalf("copy index chromosomes = %v, want %v", gotIdx.Chromosomes(), wantIdx.Chromosomes())
	}
	for _, chrom := range wantIdx.Chromosomes() {
		if gotIdx.NBlocks(chrom) != wantIdx.NBlocks(chrom) {
			t.Fatalf("copy NBlocks(%s) = %d, want %d", chrom, gotIdx.NBlocks(chrom), wantIdx.NBlocks(chrom))
		}
		for b := 0; b < wantIdx.NBlocks(chrom); b++ {
			if gotIdx.StartPos(chrom, b) != wantIdx.StartPos(chrom, b) || gotIdx.EndPos(chrom, b) != wantIdx.EndPos(chrom, b) {
				t.Fatalf("copy block %s[%d] span = %d..%d, want %d..%d", chrom, b,
					gotIdx.StartPos(chrom, b), gotIdx.EndPos(chrom, b), wantIdx.StartPos(chrom, b), wantIdx.EndPos(chrom, b))
			}
		}
	}
}
