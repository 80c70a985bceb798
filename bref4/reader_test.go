package bref4

import (
	"bytes"
	"testing"

	"github.com/browning-lab/bref4/chromids"
	"github.com/browning-lab/bref4/vcf"
)

func TestReaderReadBlocksStopsAtSentinel(t *testing.T) {
	samples := vcf.NewSamples([]string{"s1"})
	header := NewHeader([]string{"##fileformat=VCFv4.2"}, samples)

	var file bytes.Buffer
	if err := WriteHeader(&file, header); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	block1 := []byte{1, 2, 3}
	block2 := []byte{4, 5}
	file.Write(writeUint32(nil, uint32(len(block1))))
	file.Write(block1)
	file.Write(writeUint32(nil, uint32(len(block2))))
	file.Write(block2)
	file.Write(writeUint32(nil, 0)) // sentinel

	rd, err := NewReader(bytes.NewReader(file.Bytes()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	blocks, err := rd.ReadBlocks(10)
	if err != nil {
		t.Fatalf("ReadBlocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("ReadBlocks returned %d blocks, want 2", len(blocks))
	}
	if !bytes.Equal(blocks[0], block1) || !bytes.Equal(blocks[1], block2) {
		t.Fatalf("ReadBlocks = %v, want [%v %v]", blocks, block1, block2)
	}

	trailing, err := rd.ReadBlock()
	if err != nil {
		t.Fatalf("ReadBlock after sentinel: %v", err)
	}
	if trailing != nil {
		t.Fatalf("ReadBlock after sentinel = %v, want nil", trailing)
	}
}

func TestItMatchesSequentialDecode(t *testing.T) {
	samples := vcf.NewSamples([]string{"s1", "s2", "s3", "s4"})
	header := NewHeader(nil, samples)

	var out bytes.Buffer
	w, err := NewWriter(&out, header, 2, 0)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	recs := []vcf.RefGTRec{
		mustAlleleRec(t, "chr1", 100, samples, [][]int32{nil, {0, 1, 2}}),
		mustAlleleRec(t, "chr1", 150, samples, [][]int32{nil, {3}}),
		mustAlleleRec(t, "chr2", 200, samples, [][]int32{nil, {5}}),
		mustAlleleRec(t, "chr2", 250, samples, [][]int32{nil, {6, 7}}),
	}
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rd, err := NewReader(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	it := NewItWithChroms(rd, chromids.New(), 3)

	var got []vcf.RefGTRec
	for {
		rec, err := it.Next()
		if err == ErrNoMoreRecords {
			break
		}
		if err != nil {
			t.Fatalf("It.Next: %v", err)
		}
		got = append(got, rec)
	}

	if len(got) != len(recs) {
		t.Fatalf("It decoded %d records, want %d", len(got), len(recs))
	}
	for i := range recs {
		assertSameGenotypes(t, recs[i], got[i])
	}
}
