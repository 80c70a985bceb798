package vcf

import (
	"io"
	"os"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/klauspost/compress/gzip"
)

// Opener opens a named VCF input source and returns a stream of
// uncompressed VCF text. This is the interface the core record model needs;
// gzip/bgzip decoding is an external collaborator (spec "Out of scope").
type Opener interface {
	Open(path string) (io.ReadCloser, error)
}

// GzipOpener opens plain, gzip-, or bgzip-compressed VCF files. bgzip files
// are valid multi-member gzip streams, which klauspost/compress/gzip decodes
// transparently in multistream mode (the package's default).
type GzipOpener struct{}

// Open implements Opener. A path of "-" reads from stdin.
func (GzipOpener) Open(path string) (io.ReadCloser, error) {
	var f io.ReadCloser
	if path == "-" {
		f = io.NopCloser(os.Stdin)
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, pfx.Err(err)
		}
		f = file
	}
	if strings.HasSuffix(path, ".vcf.gz") || strings.HasSuffix(path, ".vcf.bgz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, pfx.Err(err)
		}
		return &gzipReadCloser{gz: gz, under: f}, nil
	}
	return f, nil
}

type gzipReadCloser struct {
	gz    *gzip.Reader
	under io.Closer
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	if err := g.gz.Close(); err != nil {
		g.under.Close()
		return err
	}
	return g.under.Close()
}
