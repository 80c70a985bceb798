package bref4

import (
	"errors"
	"testing"

	"github.com/browning-lab/bref4/bref4err"
	"github.com/browning-lab/bref4/chromids"
	"github.com/browning-lab/bref4/vcf"
)

func TestBlockInflaterDecodesSparseAlleleRec(t *testing.T) {
	samples := vcf.NewSamples([]string{"s1", "s2"}) // 4 haplotypes
	marker := vcf.NewMarker(0, "chrX", 500, ".", "A", []string{"T", "G"}, ".", "PASS", ".")
	alleleToHaps := [][]int32{nil, {1, 3}, {}} // nullRow=0

	var buf []byte
	buf = writeUint32(buf, 1)
	buf = writeInt32(buf, 500)
	buf = append(buf, 0) // nMaps
	buf = writeUTF(buf, "chrX")

	var err error
	buf, _, err = writeMarker(buf, marker, 0)
	if err != nil {
		t.Fatalf("writeMarker: %v", err)
	}
	allocByte := int8(allocRecByte)
	buf = append(buf, byte(allocByte))
	buf, err = writeAllelesArray(buf, alleleToHaps, 0)
	if err != nil {
		t.Fatalf("writeAllelesArray: %v", err)
	}

	bi := NewBlockInflater(samples, chromids.New())
	recs, err := bi.Inflate(buf)
	if err != nil {
		t.Fatalf("Inflate: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Inflate returned %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Marker().ChromID() != "chrX" || rec.Marker().Pos() != 500 {
		t.Fatalf("marker = %s:%d, want chrX:500", rec.Marker().ChromID(), rec.Marker().Pos())
	}
	want := map[int]int32{0: 0, 1: 1, 2: 0, 3: 1}
	for h, a := range want {
		if got := rec.Get(h); got != a {
			t.Fatalf("Get(%d) = %d, want %d", h, got, a)
		}
	}
}

func TestBlockInflaterEmptyBytesIsNoRecords(t *testing.T) {
	samples := vcf.NewSamples([]string{"s1"})
	bi := NewBlockInflater(samples, chromids.New())
	recs, err := bi.Inflate(nil)
	if err != nil {
		t.Fatalf("Inflate(nil): %v", err)
	}
	if recs != nil {
		t.Fatalf("Inflate(nil) = %v, want nil", recs)
	}
}

func TestBlockInflaterRejectsTruncatedHeader(t *testing.T) {
	samples := vcf.NewSamples([]string{"s1"})
	bi := NewBlockInflater(samples, chromids.New())

	var buf []byte
	buf = writeUint32(buf, 1)
	buf = writeInt32(buf, 500) // nMaps byte and everything after is missing

	_, err := bi.Inflate(buf)
	if err == nil {
		t.Fatal("Inflate: want error for truncated block, got nil")
	}
	if !errors.Is(err, bref4err.CorruptBlock) {
		t.Fatalf("Inflate error = %v, want bref4err.CorruptBlock", err)
	}
}

func TestBlockInflaterRejectsBadStartMapIndex(t *testing.T) {
	samples := vcf.NewSamples([]string{"s1"}) // 2 haplotypes
	marker := vcf.NewMarker(0, "chr1", 10, ".", "A", []string{"T"}, ".", "PASS", ".")

	var buf []byte
	buf = writeUint32(buf, 1)
	buf = writeInt32(buf, 10)
	buf = append(buf, 0)
	buf = writeUTF(buf, "chr1")

	var err error
	buf, _, err = writeMarker(buf, marker, 0)
	if err != nil {
		t.Fatalf("writeMarker: %v", err)
	}
	badByte := int8(-2)
	buf = append(buf, byte(badByte)) // neither >= 0 nor allocRecByte

	bi := NewBlockInflater(samples, chromids.New())
	_, err = bi.Inflate(buf)
	if err == nil {
		t.Fatal("Inflate: want error for bad startMapIndex, got nil")
	}
	if !errors.Is(err, bref4err.CorruptBlock) {
		t.Fatalf("Inflate error = %v, want bref4err.CorruptBlock", err)
	}
}
