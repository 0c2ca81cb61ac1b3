package zip

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/valyala/bytebufferpool"
)

// pageSize is the chunk size used by the backward signature scan and by the
// streaming decompressor's uncompressed output buffer.
const pageSize = 4096

// readU16 and readU32 are the primitive little-endian reads every fixed-width
// record field is built from. They return false on a short read rather than
// a partially-filled value, so callers can distinguish "read nothing useful"
// uniformly.
func readU16(f *os.File) (uint16, bool) {
	var buf [2]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		return 0, false
	}
	return binary.LittleEndian.Uint16(buf[:]), true
}

func readU32(f *os.File) (uint32, bool) {
	var buf [4]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		return 0, false
	}
	return binary.LittleEndian.Uint32(buf[:]), true
}

func readBytes(f *os.File, n int) ([]byte, bool) {
	if n == 0 {
		return nil, true
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, false
	}
	return buf, true
}

var errSignatureNotFound = errors.New("zip: signature not found within scan window")

// scanForSignature performs a bounded backward scan: starting at fileSize,
// read page-sized chunks back to front, each overlapping the
// previous by 3 bytes so a signature straddling a chunk boundary is still
// found, searching each chunk from high index to low. It runs in
// O(max_scan) time and constant memory (one pooled page-sized buffer).
//
// Returns the absolute file offset of the first (i.e. rightmost) match, or
// errSignatureNotFound if none turned up within maxScan bytes of the file's
// end.
func scanForSignature(file *os.File, sig uint32, fileSize, maxScan int64) (int64, error) {
	if maxScan > fileSize {
		maxScan = fileSize
	}

	var sigBytes [4]byte
	binary.LittleEndian.PutUint32(sigBytes[:], sig)

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	buf.Reset()
	buf.B = append(buf.B, make([]byte, pageSize)...)
	chunk := buf.B

	var bytesRead int64
	for bytesRead < maxScan {
		remaining := maxScan - bytesRead
		chunkSize := int64(pageSize)
		if chunkSize > remaining {
			chunkSize = remaining
		}
		if chunkSize < 4 {
			return 0, errSignatureNotFound
		}

		pos := fileSize - bytesRead - chunkSize
		if _, err := file.Seek(pos, io.SeekStart); err != nil {
			return 0, err
		}
		if _, err := io.ReadFull(file, chunk[:chunkSize]); err != nil {
			return 0, err
		}

		if idx := bytes.LastIndex(chunk[:chunkSize], sigBytes[:]); idx >= 0 {
			return pos + int64(idx), nil
		}

		bytesRead += chunkSize - 3
	}

	return 0, errSignatureNotFound
}
