// Package pipeline routes bref4's command-line input to its output: VCF (or
// gzip/bgzip-compressed VCF) input can be written as bref4 or re-emitted as
// VCF, and a bref4 input can be recompressed to bref4 or decoded to VCF.
package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/carbocation/pfx"

	"github.com/browning-lab/bref4/bref4"
	"github.com/browning-lab/bref4/bref4err"
	"github.com/browning-lab/bref4/chromids"
	"github.com/browning-lab/bref4/vcf"
)

// Config holds the resolved parameters of one bref4 invocation.
type Config struct {
	In           string
	Out          string
	NThreads     int
	BitsPerLevel int
	MaxNonmajor  int

	// Command is recorded as a provenance meta-info line in a bref4 output
	// header (see bref4.HeaderFromVcf).
	Command string
}

// IsVcfFormat reports whether path names an (optionally gzip/bgzip
// compressed) VCF source: "-", or a name ending in ".vcf", ".vcf.gz", or
// ".vcf.bgz".
func IsVcfFormat(path string) bool {
	return path == "-" ||
		strings.HasSuffix(path, ".vcf.gz") ||
		strings.HasSuffix(path, ".vcf.bgz") ||
		strings.HasSuffix(path, ".vcf")
}

// IsBref4Format reports whether path names a bref4 file.
func IsBref4Format(path string) bool {
	return strings.HasSuffix(path, ".bref4")
}

// Run executes one bref4 invocation: it routes cfg.In to the VCF or bref4
// input path based on its suffix, and writes cfg.Out in the format its own
// suffix names.
func Run(cfg Config) error {
	switch {
	case IsVcfFormat(cfg.In):
		return runFromVcf(cfg)
	case IsBref4Format(cfg.In):
		return runFromBref4(cfg)
	default:
		return pfx.Err(fmt.Errorf("%w: %q is neither a VCF nor a bref4 input", bref4err.BadArguments, cfg.In))
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func openOut(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}
	return f, nil
}

func runFromVcf(cfg Config) error {
	src, err := (vcf.GzipOpener{}).Open(cfg.In)
	if err != nil {
		return err
	}
	defer src.Close()

	chroms := chromids.New()
	bufferSize := cfg.NThreads << 3
	rd, err := vcf.NewReader(cfg.In, src, chroms, bufferSize)
	if err != nil {
		return err
	}

	out, err := openOut(cfg.Out)
	if err != nil {
		return err
	}
	defer out.Close()

	if IsBref4Format(cfg.Out) {
		return vcfToBref4(rd, out, cfg)
	}
	return vcfToVcf(rd, out)
}

func vcfToBref4(rd *vcf.Reader, out io.Writer, cfg Config) error {
	header := bref4.HeaderFromVcf(rd.Header(), cfg.Command)
	w, err := bref4.NewWriter(out, header, cfg.BitsPerLevel, cfg.MaxNonmajor)
	if err != nil {
		return err
	}
	for {
		rec, err := rd.Next()
		if err == vcf.ErrNoMoreRecords {
			break
		}
		if err != nil {
			return err
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return w.Close()
}

func vcfToVcf(rd *vcf.Reader, out io.Writer) error {
	w := vcf.NewWriter(out, rd.Header())
	if err := w.WriteHeader(); err != nil {
		return pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}
	for {
		rec, err := rd.Next()
		if err == vcf.ErrNoMoreRecords {
			break
		}
		if err != nil {
			return err
		}
		if err := w.WriteRecord(rec); err != nil {
			return pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
		}
	}
	return w.Flush()
}

func runFromBref4(cfg Config) error {
	f, err := os.Open(cfg.In)
	if err != nil {
		return pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}
	defer f.Close()

	out, err := openOut(cfg.Out)
	if err != nil {
		return err
	}
	defer out.Close()

	src := bufio.NewReaderSize(f, 1<<20)
	if IsBref4Format(cfg.Out) {
		rd, err := bref4.NewReader(src)
		if err != nil {
			return err
		}
		return bref4.Recompress(out, rd)
	}
	return bref4ToVcf(src, out, cfg)
}

func bref4ToVcf(src io.Reader, out io.Writer, cfg Config) error {
	rd, err := bref4.NewReader(src)
	if err != nil {
		return err
	}
	chroms := chromids.New()
	it := bref4.NewItWithChroms(rd, chroms, cfg.NThreads)

	w := vcf.NewWriter(out, rd.Header().VcfHeader(cfg.In))
	if err := w.WriteHeader(); err != nil {
		return pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}
	for {
		rec, err := it.Next()
		if err == bref4.ErrNoMoreRecords {
			break
		}
		if err != nil {
			return err
		}
		if err := w.WriteRecord(rec); err != nil {
			return pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
		}
	}
	return w.Flush()
}
