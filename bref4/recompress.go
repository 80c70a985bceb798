package bref4

import (
	"bytes"
	"fmt"
	"io"

	"github.com/carbocation/pfx"

	"github.com/browning-lab/bref4/bref4err"
)

// Recompress copies every block of src byte-for-byte to dst, rebuilding the
// tail index from each block's own header fields instead of decoding
// records. This is the bref4-to-bref4 pass-through path (e.g. re-indexing a
// file); it copies a single source and does not join several files. It preserves the
// source file's block boundaries and map-chain encoding exactly, at the
// cost of being unable to change the encoder's parameters, since no record
// is ever inflated.
func Recompress(dst io.Writer, src *Reader) error {
	var headerBuf bytes.Buffer
	if err := WriteHeader(&headerBuf, src.Header()); err != nil {
		return err
	}
	if _, err := dst.Write(headerBuf.Bytes()); err != nil {
		return pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}
	bytesWritten := int64(headerBuf.Len())

	var idx indexBuilder
	for {
		block, err := src.ReadBlock()
		if err != nil {
			return err
		}
		if block == nil {
			break
		}
		if err := idx.appendBlockFromBytes(bytesWritten, block); err != nil {
			return err
		}

		lenBuf := writeUint32(nil, uint32(len(block)))
		if _, err := dst.Write(lenBuf); err != nil {
			return pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
		}
		if _, err := dst.Write(block); err != nil {
			return pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
		}
		bytesWritten += int64(4 + len(block))
	}

	if _, err := dst.Write(writeUint32(nil, 0)); err != nil {
		return pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}
	bytesWritten += 4

	trailer := idx.finish(bytesWritten)
	if _, err := dst.Write(trailer); err != nil {
		return pfx.Err(fmt.Errorf("%w: %v", bref4err.IOError, err))
	}
	return nil
}
