package bref4

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/browning-lab/bref4/bref4err"
	"github.com/browning-lab/bref4/vcf"
)

func TestHeaderRoundTrip(t *testing.T) {
	samples := vcf.NewSamples([]string{"s1", "s2", "s3"})
	h := NewHeader([]string{"##fileformat=VCFv4.2", "##bref4Command=\"in=x.vcf out=x.bref4\""}, samples)

	var buf bytes.Buffer
	if err := WriteHeader(&buf, h); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	got, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if !reflect.DeepEqual(got.MetaInfoLines(), h.MetaInfoLines()) {
		t.Fatalf("MetaInfoLines = %v, want %v", got.MetaInfoLines(), h.MetaInfoLines())
	}
	if !reflect.DeepEqual(got.Samples().IDs(), samples.IDs()) {
		t.Fatalf("Samples = %v, want %v", got.Samples().IDs(), samples.IDs())
	}
	if got.NHaps() != 6 {
		t.Fatalf("NHaps() = %d, want 6", got.NHaps())
	}
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 1, 0, 0, 0, 0})
	_, err := ReadHeader(buf)
	if err == nil || !errors.Is(err, bref4err.CorruptBlock) {
		t.Fatalf("ReadHeader() = %v, want CorruptBlock", err)
	}
}

func TestHeaderFromVcfInsertsCommandLine(t *testing.T) {
	samples := vcf.NewSamples([]string{"s1"})
	vh := vcf.NewHeader("in.vcf", []string{"##fileformat=VCFv4.2"}, samples)
	h := HeaderFromVcf(vh, `in=in.vcf out=out.bref4`)
	lines := h.MetaInfoLines()
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}
	if lines[1] != `##bref4Command="in=in.vcf out=out.bref4"` {
		t.Fatalf("lines[1] = %q", lines[1])
	}
}
