// Package ziptest builds well-formed, and deliberately malformed, in-memory
// ZIP archives for the zip package's tests. Archive creation has no place in
// the public reader API, so this writer lives here, behind an internal/
// import, rather than as part of the public zip package.
package ziptest

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"time"
	"unicode/utf8"
)

const (
	localFileHeaderSignature  uint32 = 0x04034b50
	centralDirectorySignature uint32 = 0x02014b50
	eocdSignature             uint32 = 0x06054b50

	methodStored  uint16 = 0
	methodDeflate uint16 = 8
)

// Builder accumulates files and writes a complete ZIP archive on Close.
type Builder struct {
	w      io.Writer
	files  []fileRecord
	offset int64
}

type fileRecord struct {
	name              string
	compressedSize    uint32
	uncompressedSize  uint32
	crc32             uint32
	compressionMethod uint16
	bitFlag           uint16
	versionNeeded     uint16
	modTime           uint16
	modDate           uint16
	localHeaderOffset int64
	versionMadeBy     uint16
	diskNumberStart   uint16
	internalAttrs     uint16
	externalAttrs     uint32
}

// NewBuilder returns a Builder that writes to w.
func NewBuilder(w io.Writer) *Builder {
	return &Builder{w: w}
}

func isValidUTF8(s string) bool { return utf8.ValidString(s) }

func timeToMSDos(t time.Time) (uint16, uint16) {
	year := t.Year() - 1980
	if year < 0 {
		year = 0
	}
	dosDate := uint16(year<<9 | int(t.Month())<<5 | t.Day())
	dosTime := uint16(t.Hour()<<11 | t.Minute()<<5 | t.Second()/2)
	return dosTime, dosDate
}

// AddStored appends a file stored without compression (method 0).
func (b *Builder) AddStored(name string, data []byte) error {
	return b.addFile(name, data, data, methodStored, 0)
}

// AddDeflated appends a file whose payload is DEFLATE-compressed (method 8).
// uncompressed is the original content; the builder compresses it itself so
// tests can assert the reader reproduces exactly uncompressed back out.
func (b *Builder) AddDeflated(name string, uncompressed []byte) error {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return err
	}
	if _, err := fw.Write(uncompressed); err != nil {
		return err
	}
	if err := fw.Close(); err != nil {
		return err
	}
	return b.addFileSizes(name, buf.Bytes(), uint32(len(uncompressed)), crc32.ChecksumIEEE(uncompressed), methodDeflate, 0)
}

// AddDeflatedWithFlag is AddDeflated but lets the test set an arbitrary
// bit_flag (e.g. the encryption bit) on the resulting record.
func (b *Builder) AddDeflatedWithFlag(name string, uncompressed []byte, bitFlag uint16) error {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return err
	}
	if _, err := fw.Write(uncompressed); err != nil {
		return err
	}
	if err := fw.Close(); err != nil {
		return err
	}
	return b.addFileSizes(name, buf.Bytes(), uint32(len(uncompressed)), crc32.ChecksumIEEE(uncompressed), methodDeflate, bitFlag)
}

// AddRaw appends a record whose on-disk compressed payload and declared
// method/sizes/CRC are all caller-controlled, for constructing archives
// that should fail validation (wrong method, wrong CRC, truncated payload).
func (b *Builder) AddRaw(name string, payload []byte, method uint16, compressedSize, uncompressedSize, crc uint32, bitFlag uint16) error {
	return b.writeLocalAndRecord(name, payload, method, compressedSize, uncompressedSize, crc, bitFlag)
}

func (b *Builder) addFile(name string, payload, uncompressed []byte, method uint16, bitFlag uint16) error {
	return b.addFileSizes(name, payload, uint32(len(uncompressed)), crc32.ChecksumIEEE(uncompressed), method, bitFlag)
}

func (b *Builder) addFileSizes(name string, payload []byte, uncompressedSize, crc uint32, method uint16, bitFlag uint16) error {
	return b.writeLocalAndRecord(name, payload, method, uint32(len(payload)), uncompressedSize, crc, bitFlag)
}

func (b *Builder) writeLocalAndRecord(name string, payload []byte, method uint16, compressedSize, uncompressedSize, crc uint32, bitFlag uint16) error {
	if name == "" {
		return errors.New("ziptest: name is empty")
	}

	headerOffset := b.offset

	if err := binary.Write(b.w, binary.LittleEndian, localFileHeaderSignature); err != nil {
		return err
	}
	if err := binary.Write(b.w, binary.LittleEndian, uint16(20)); err != nil {
		return err
	}
	if isValidUTF8(name) {
		bitFlag |= 0x0800
	}
	if err := binary.Write(b.w, binary.LittleEndian, bitFlag); err != nil {
		return err
	}
	if err := binary.Write(b.w, binary.LittleEndian, method); err != nil {
		return err
	}
	modTime, modDate := timeToMSDos(time.Now())
	if err := binary.Write(b.w, binary.LittleEndian, modTime); err != nil {
		return err
	}
	if err := binary.Write(b.w, binary.LittleEndian, modDate); err != nil {
		return err
	}
	if err := binary.Write(b.w, binary.LittleEndian, crc); err != nil {
		return err
	}
	if err := binary.Write(b.w, binary.LittleEndian, compressedSize); err != nil {
		return err
	}
	if err := binary.Write(b.w, binary.LittleEndian, uncompressedSize); err != nil {
		return err
	}
	if err := binary.Write(b.w, binary.LittleEndian, uint16(len(name))); err != nil {
		return err
	}
	if err := binary.Write(b.w, binary.LittleEndian, uint16(0)); err != nil {
		return err
	}
	if _, err := b.w.Write([]byte(name)); err != nil {
		return err
	}
	if _, err := b.w.Write(payload); err != nil {
		return err
	}

	b.files = append(b.files, fileRecord{
		name:              name,
		versionMadeBy:     0x0314,
		versionNeeded:     20,
		bitFlag:           bitFlag,
		compressionMethod: method,
		modTime:           modTime,
		modDate:           modDate,
		crc32:             crc,
		compressedSize:    compressedSize,
		uncompressedSize:  uncompressedSize,
		externalAttrs:     0x81A40000,
		localHeaderOffset: headerOffset,
	})

	b.offset += 4 + 26 + int64(len(name)) + int64(len(payload))
	return nil
}

// closeOptions holds the settings applied by Close, such as the
// archive-level EOCD comment.
type closeOptions struct {
	comment string
}

// CloseOption configures Close.
type CloseOption func(*closeOptions)

// WithComment sets the EOCD's global comment.
func WithComment(comment string) CloseOption {
	return func(o *closeOptions) { o.comment = comment }
}

// CloseDroppingLastCDEntry writes every file's local header and data as
// usual, but omits the last file's Central Directory entry while the EOCD
// still declares the full count, reproducing a Central Directory truncated
// out from under an EOCD that disagrees with it.
func (b *Builder) CloseDroppingLastCDEntry() error {
	return b.closeEntries(b.files[:len(b.files)-1], &closeOptions{})
}

// Close writes the Central Directory and EOCD, finalizing the archive.
func (b *Builder) Close(opts ...CloseOption) error {
	var o closeOptions
	for _, fn := range opts {
		fn(&o)
	}
	return b.closeEntries(b.files, &o)
}

func (b *Builder) closeEntries(entries []fileRecord, o *closeOptions) error {
	centralDirOffset := b.offset

	for _, file := range entries {
		if err := binary.Write(b.w, binary.LittleEndian, centralDirectorySignature); err != nil {
			return err
		}
		if err := binary.Write(b.w, binary.LittleEndian, file.versionMadeBy); err != nil {
			return err
		}
		if err := binary.Write(b.w, binary.LittleEndian, file.versionNeeded); err != nil {
			return err
		}
		if err := binary.Write(b.w, binary.LittleEndian, file.bitFlag); err != nil {
			return err
		}
		if err := binary.Write(b.w, binary.LittleEndian, file.compressionMethod); err != nil {
			return err
		}
		if err := binary.Write(b.w, binary.LittleEndian, file.modTime); err != nil {
			return err
		}
		if err := binary.Write(b.w, binary.LittleEndian, file.modDate); err != nil {
			return err
		}
		if err := binary.Write(b.w, binary.LittleEndian, file.crc32); err != nil {
			return err
		}
		if err := binary.Write(b.w, binary.LittleEndian, file.compressedSize); err != nil {
			return err
		}
		if err := binary.Write(b.w, binary.LittleEndian, file.uncompressedSize); err != nil {
			return err
		}
		if err := binary.Write(b.w, binary.LittleEndian, uint16(len(file.name))); err != nil {
			return err
		}
		if err := binary.Write(b.w, binary.LittleEndian, uint16(0)); err != nil {
			return err
		}
		if err := binary.Write(b.w, binary.LittleEndian, uint16(0)); err != nil {
			return err
		}
		if err := binary.Write(b.w, binary.LittleEndian, file.diskNumberStart); err != nil {
			return err
		}
		if err := binary.Write(b.w, binary.LittleEndian, file.internalAttrs); err != nil {
			return err
		}
		if err := binary.Write(b.w, binary.LittleEndian, file.externalAttrs); err != nil {
			return err
		}
		if err := binary.Write(b.w, binary.LittleEndian, uint32(file.localHeaderOffset)); err != nil {
			return err
		}
		if _, err := b.w.Write([]byte(file.name)); err != nil {
			return err
		}

		b.offset += 4 + 42 + int64(len(file.name))
	}

	centralDirSize := b.offset - centralDirOffset

	if err := binary.Write(b.w, binary.LittleEndian, eocdSignature); err != nil {
		return err
	}
	if err := binary.Write(b.w, binary.LittleEndian, uint16(0)); err != nil {
		return err
	}
	if err := binary.Write(b.w, binary.LittleEndian, uint16(0)); err != nil {
		return err
	}
	if err := binary.Write(b.w, binary.LittleEndian, uint16(len(b.files))); err != nil {
		return err
	}
	if err := binary.Write(b.w, binary.LittleEndian, uint16(len(b.files))); err != nil {
		return err
	}
	if err := binary.Write(b.w, binary.LittleEndian, uint32(centralDirSize)); err != nil {
		return err
	}
	if err := binary.Write(b.w, binary.LittleEndian, uint32(centralDirOffset)); err != nil {
		return err
	}
	if err := binary.Write(b.w, binary.LittleEndian, uint16(len(o.comment))); err != nil {
		return err
	}
	if o.comment != "" {
		if _, err := b.w.Write([]byte(o.comment)); err != nil {
			return err
		}
	}

	return nil
}
