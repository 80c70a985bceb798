package bref4

import (
	"reflect"
	"testing"

	"github.com/browning-lab/bref4/ints"
	"github.com/browning-lab/bref4/vcf"
)

func TestStringArrayRoundTrip(t *testing.T) {
	want := []string{"##fileformat=VCFv4.2", "##source=bref4", ""}
	dst := writeStringArray(nil, want)
	got, n, err := readStringArray(dst)
	if err != nil {
		t.Fatalf("readStringArray: %v", err)
	}
	if n != len(dst) {
		t.Fatalf("consumed %d, want %d", n, len(dst))
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestStringArrayEmpty(t *testing.T) {
	dst := writeStringArray(nil, nil)
	got, _, err := readStringArray(dst)
	if err != nil {
		t.Fatalf("readStringArray: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestMarkerDeltaRoundTrip(t *testing.T) {
	m := vcf.NewMarker(3, "chr2", 1500, "rs1", "A", []string{"G", "T"}, "30", "PASS", "AC=1")
	dst, newLast, err := writeMarker(nil, m, 1000)
	if err != nil {
		t.Fatalf("writeMarker: %v", err)
	}
	if newLast != 1500 {
		t.Fatalf("newLast = %d, want 1500", newLast)
	}
	got, last, n, err := readMarker(3, "chr2", 1000, dst)
	if err != nil {
		t.Fatalf("readMarker: %v", err)
	}
	if n != len(dst) {
		t.Fatalf("consumed %d, want %d", n, len(dst))
	}
	if last != 1500 {
		t.Fatalf("last = %d, want 1500", last)
	}
	if got.Pos() != 1500 || got.ID() != "rs1" || got.Ref() != "A" || !reflect.DeepEqual(got.Alts(), []string{"G", "T"}) {
		t.Fatalf("got %+v", got)
	}
}

func TestAllelesArrayRoundTrip(t *testing.T) {
	alleleToHaps := [][]int32{nil, {1}, {4, 7, 9}}
	dst, err := writeAllelesArray(nil, alleleToHaps, 0)
	if err != nil {
		t.Fatalf("writeAllelesArray: %v", err)
	}
	got, nullRow, n, err := readAllelesArray(dst, 3)
	if err != nil {
		t.Fatalf("readAllelesArray: %v", err)
	}
	if n != len(dst) {
		t.Fatalf("consumed %d, want %d", n, len(dst))
	}
	if nullRow != 0 {
		t.Fatalf("nullRow = %d, want 0", nullRow)
	}
	if !reflect.DeepEqual(got, alleleToHaps) {
		t.Fatalf("got %v, want %v", got, alleleToHaps)
	}
}

func TestReadAllelesArrayRejectsMissingNullRow(t *testing.T) {
	// Manually encode without a null row by writing lengths for both alleles.
	dst, err := ints.WriteRestrictedInt(nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	dst = writeInt32(dst, 0)
	dst, err = ints.WriteRestrictedInt(dst, 1)
	if err != nil {
		t.Fatal(err)
	}
	dst = writeInt32(dst, 1)
	if _, _, _, err := readAllelesArray(dst, 2); err == nil {
		t.Fatalf("expected error for missing null row")
	}
}

func TestWriteReadMapsChainAndCompose(t *testing.T) {
	hapToSeq := ints.NewIntArray([]int32{0, 1, 0, 1, 2, 2}, 3)
	seqToAllele := ints.NewIntArray([]int32{0, 1, 1}, 2)

	dst, err := writeMaps(nil, []*ints.IntArray{hapToSeq, seqToAllele})
	if err != nil {
		t.Fatalf("writeMaps: %v", err)
	}

	maps := make([]*ints.IntArray, 2)
	n, err := readMaps(maps, 6, 0, dst)
	if err != nil {
		t.Fatalf("readMaps: %v", err)
	}
	if n != len(dst) {
		t.Fatalf("consumed %d, want %d", n, len(dst))
	}

	buffer := make([]int32, 6)
	composed := compose(maps, 0, 2, buffer)
	for h := 0; h < 6; h++ {
		want := seqToAllele.Get(int(hapToSeq.Get(h)))
		if got := composed.Get(h); got != want {
			t.Fatalf("composed.Get(%d) = %d, want %d", h, got, want)
		}
	}
}

func TestReadMapsReusesLeadingEntries(t *testing.T) {
	hapToSeq := ints.NewIntArray([]int32{0, 1, 0, 1}, 2)
	seqToAllele1 := ints.NewIntArray([]int32{0, 1}, 2)
	seqToAllele2 := ints.NewIntArray([]int32{1, 0}, 2)

	maps := make([]*ints.IntArray, 2)
	dst1, err := writeMaps(nil, []*ints.IntArray{hapToSeq, seqToAllele1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := readMaps(maps, 4, 0, dst1); err != nil {
		t.Fatalf("readMaps record 1: %v", err)
	}

	// Record 2 reuses maps[0] (hapToSeq) and only writes maps[1].
	dst2, err := writeMaps(nil, []*ints.IntArray{seqToAllele2})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := readMaps(maps, 4, 1, dst2); err != nil {
		t.Fatalf("readMaps record 2: %v", err)
	}
	if maps[0].Get(0) != hapToSeq.Get(0) {
		t.Fatalf("maps[0] was overwritten unexpectedly")
	}
	if maps[1].Get(0) != 1 {
		t.Fatalf("maps[1].Get(0) = %d, want 1", maps[1].Get(0))
	}
}
