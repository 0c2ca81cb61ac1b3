package zip

import (
	"compress/flate"
	"hash/crc32"
	"io"
	"os"

	"github.com/valyala/bytebufferpool"
)

// SinkFunc receives one contiguous chunk of inflated bytes at a time. range
// is [start, end) within [0, uncompressed_size). Returning true asks the
// streamer to stop after this chunk.
type SinkFunc func(chunk []byte, start, end int64) (stop bool)

// ProgressFunc is invoked alongside SinkFunc with the running totals.
// Returning true asks the streamer to stop after this chunk.
type ProgressFunc func(total uint32, consumed int64, delta int) (stop bool)

// limitedFileReader reads at most `left` bytes from file starting at the
// current cursor, returning io.EOF once exhausted. Rather than manually
// sizing each read against a remaining counter, the decoder's underlying
// io.Reader is simply bounded to the compressed payload, so flate.Reader's
// own buffering drives the bounded-input discipline.
type limitedFileReader struct {
	file *os.File
	left int64
}

func (r *limitedFileReader) Read(p []byte) (int, error) {
	if r.left <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.left {
		p = p[:r.left]
	}
	n, err := r.file.Read(p)
	r.left -= int64(n)
	return n, err
}

// locateCompressedData seeks to the local header, verifies its signature,
// skips its fixed portion, and cheaply cross-checks name_size against the CD
// entry before positioning the cursor at the first byte of compressed data.
func locateCompressedData(file *os.File, entry *FileEntry) error {
	if _, err := file.Seek(int64(entry.localHdrOffset), io.SeekStart); err != nil {
		return newErr(ErrCannotReadEntry, err)
	}

	sig, ok := readU32(file)
	if !ok || sig != localFileHeaderSignature {
		return newErr(ErrCannotReadEntry, nil)
	}

	// Skip the fixed portion following the signature: version, flags,
	// method, dos time/date, CRC32, compressed/uncompressed size. These
	// are redundantly present in the CD entry and deliberately not
	// re-verified here.
	if _, err := file.Seek(22, io.SeekCurrent); err != nil {
		return newErr(ErrCannotReadEntry, err)
	}

	nameLen, ok1 := readU16(file)
	extraLen, ok2 := readU16(file)
	if !ok1 || !ok2 {
		return newErr(ErrCannotReadEntry, nil)
	}
	if int(nameLen) != len(entry.nameBytes) {
		return newErr(ErrCannotReadEntry, nil)
	}

	if _, err := file.Seek(int64(extraLen)+int64(nameLen), io.SeekCurrent); err != nil {
		return newErr(ErrCannotReadEntry, err)
	}
	return nil
}

// StreamEntry streams the decompressed bytes of entry to sink, reporting
// progress to the optional progress callback.
//
// entry must belong to the CentralDirectory currently loaded by this
// Unzipper (an identity check, not a value comparison); otherwise
// ErrCannotReadEntry is returned and no I/O is attempted.
func (u *Unzipper) StreamEntry(entry *FileEntry, progress ProgressFunc, sink SinkFunc) error {
	if u.file == nil {
		return newErr(ErrMustOpenFirst, nil)
	}
	if entry == nil || entry.parent != u.cd {
		return newErr(ErrCannotReadEntry, nil)
	}
	if u.streaming {
		panic("zip: concurrent StreamEntry calls on the same Unzipper")
	}
	u.streaming = true
	defer func() { u.streaming = false }()

	if entry.IsZeroLength() {
		return nil
	}

	if err := locateCompressedData(u.file, entry); err != nil {
		return err
	}

	return inflatePump(u.file, entry, progress, sink)
}

// inflatePump runs a raw (no zlib/gzip wrapper) DEFLATE decoder fed from a
// page-sized window over the file's compressed bytes, draining into a
// page-sized output buffer each round, updating a running CRC-32 before
// every sink invocation.
func inflatePump(file *os.File, entry *FileEntry, progress ProgressFunc, sink SinkFunc) error {
	limited := &limitedFileReader{file: file, left: int64(entry.compressedSize)}
	decoder := flate.NewReader(limited)
	defer decoder.Close()

	outBuf := bytebufferpool.Get()
	defer bytebufferpool.Put(outBuf)
	outBuf.Reset()
	outBuf.B = append(outBuf.B, make([]byte, pageSize)...)
	out := outBuf.B

	crc := crc32.NewIEEE()
	var consumed int64
	var sawEOF bool
	stopped := false

	for !stopped {
		n, err := decoder.Read(out)
		if n > 0 {
			crc.Write(out[:n])

			stop := sink(out[:n], consumed, consumed+int64(n))
			consumed += int64(n)

			if progress != nil {
				if progress(entry.uncompressedSize, consumed, n) {
					stop = true
				}
			}
			if stop {
				stopped = true
			}
		}

		if err == io.EOF {
			sawEOF = true
			break
		}
		if err != nil {
			return newErr(ErrCannotDecompress, err)
		}
		if n == 0 {
			// Defensive: a conforming flate.Reader never returns (0, nil),
			// but refuse to spin forever if one ever did.
			return newErr(ErrCannotDecompress, io.ErrNoProgress)
		}
	}

	// Cancellation before STREAM_END cannot confirm the archive's
	// integrity, so it is reported identically to a decode failure.
	if !sawEOF {
		return newErr(ErrCannotDecompress, nil)
	}
	if crc.Sum32() != entry.crc32 {
		return newErr(ErrCannotDecompress, nil)
	}
	if consumed != int64(entry.uncompressedSize) {
		return newErr(ErrCannotDecompress, nil)
	}
	return nil
}
