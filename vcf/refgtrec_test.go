package vcf

import (
	"reflect"
	"testing"

	"github.com/browning-lab/bref4/ints"
)

func diallelicMarker() Marker {
	return NewMarker(0, "chr1", 100, ".", "A", []string{"T"}, ".", "PASS", ".")
}

func TestAlleleRefGTRecGetAndNullRow(t *testing.T) {
	samples := NewSamples([]string{"s1", "s2"})
	m := diallelicMarker()
	// 4 haplotypes; allele 1 carried by haps 1,3; allele 0 is the null row.
	alleleToHaps := [][]int32{nil, {1, 3}}

	rec, err := AlleleRefGTRec(m, samples, alleleToHaps)
	if err != nil {
		t.Fatalf("AlleleRefGTRec: %v", err)
	}
	if rec.NullRow() != 0 {
		t.Fatalf("NullRow() = %d, want 0", rec.NullRow())
	}
	want := []int32{0, 1, 0, 1}
	for h, w := range want {
		if got := rec.Get(h); got != w {
			t.Fatalf("Get(%d) = %d, want %d", h, got, w)
		}
	}
	if rec.NonNullCount() != 2 {
		t.Fatalf("NonNullCount() = %d, want 2", rec.NonNullCount())
	}
}

func TestAlleleRefGTRecRequiresNullRow(t *testing.T) {
	samples := NewSamples([]string{"s1"})
	m := diallelicMarker()
	if _, err := AlleleRefGTRec(m, samples, [][]int32{{0}, {1}}); err == nil {
		t.Fatalf("expected error when no allele has a nil (null-row) entry")
	}
}

func TestSparseRefGTRecHapToAlleleRoundTrip(t *testing.T) {
	samples := NewSamples([]string{"s1", "s2"})
	m := diallelicMarker()
	alleleToHaps := [][]int32{nil, {1, 3}}
	rec, err := AlleleRefGTRec(m, samples, alleleToHaps)
	if err != nil {
		t.Fatalf("AlleleRefGTRec: %v", err)
	}

	hapToAllele := rec.HapToAllele()
	rec2 := NewIntArrayRefGTRec(m, samples, hapToAllele)
	for h := 0; h < rec.Size(); h++ {
		if rec.Get(h) != rec2.Get(h) {
			t.Fatalf("Get(%d) differs between shapes: %d vs %d", h, rec.Get(h), rec2.Get(h))
		}
	}
	if rec2.NullRow() != rec.NullRow() {
		t.Fatalf("NullRow mismatch: %d vs %d", rec2.NullRow(), rec.NullRow())
	}
	if !reflect.DeepEqual(rec.AlleleToHaps(), rec2.AlleleToHaps()) {
		t.Fatalf("AlleleToHaps mismatch: %v vs %v", rec.AlleleToHaps(), rec2.AlleleToHaps())
	}
}

func TestMapRefGTRecComposition(t *testing.T) {
	samples := NewSamples([]string{"s1", "s2"})
	m := diallelicMarker()

	// 4 haps -> 2 sequences -> alleles.
	hapToSeq := ints.NewIntArray([]int32{0, 1, 0, 1}, 2)
	seqToAllele := ints.NewIntArray([]int32{0, 1}, 2)
	rec := NewMapRefGTRec(m, samples, hapToSeq, seqToAllele)

	want := []int32{0, 1, 0, 1}
	for h, w := range want {
		if got := rec.Get(h); got != w {
			t.Fatalf("Get(%d) = %d, want %d", h, got, w)
		}
	}
	if rec.NullRow() != 0 {
		t.Fatalf("NullRow() = %d, want 0", rec.NullRow())
	}
	if rec.NonNullCount() != 2 {
		t.Fatalf("NonNullCount() = %d, want 2", rec.NonNullCount())
	}
}

func TestToVcfRecordFormatsPhasedGT(t *testing.T) {
	samples := NewSamples([]string{"s1", "s2"})
	m := diallelicMarker()
	rec, err := AlleleRefGTRec(m, samples, [][]int32{nil, {1, 3}})
	if err != nil {
		t.Fatalf("AlleleRefGTRec: %v", err)
	}
	want := "chr1\t100\t.\tA\tT\t.\tPASS\t.\tGT\t0|1\t0|1"
	if got := rec.ToVcfRecord(); got != want {
		t.Fatalf("ToVcfRecord() = %q, want %q", got, want)
	}
}

func TestSortDedupApply(t *testing.T) {
	m := ints.NewIntArray([]int32{2, 0, 2, 1}, 3)
	got := SortDedupApply([]int32{0, 1, 2, 3}, m)
	want := []int32{0, 1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SortDedupApply() = %v, want %v", got, want)
	}
}
