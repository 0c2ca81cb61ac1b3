package zip

import "strings"

// Name returns the UTF-8 decoded file name.
func (e *FileEntry) Name() string {
	return string(e.nameBytes)
}

// Comment returns the UTF-8 decoded comment, or "" if the record carries none.
func (e *FileEntry) Comment() string {
	return string(e.commentBytes)
}

// CompressionLevel derives the compression-level hint from bits 1-2 of the
// record's bit_flag. The two bits are tested in a fixed order: super-fast,
// then fast, then max, falling back to default.
func (e *FileEntry) CompressionLevel() CompressionLevel {
	switch e.bitFlag & (flagCompressBit1 | flagCompressBit2) {
	case flagCompressBit1 | flagCompressBit2:
		return CompressionSuperFast
	case flagCompressBit2:
		return CompressionFast
	case flagCompressBit1:
		return CompressionMax
	default:
		return CompressionDefault
	}
}

// CompressionMethod returns the on-disk compression method code.
func (e *FileEntry) CompressionMethod() uint16 { return e.compressionMethod }

// CompressedSize returns the on-disk (compressed) byte count.
func (e *FileEntry) CompressedSize() uint32 { return e.compressedSize }

// UncompressedSize returns the original (inflated) byte count.
func (e *FileEntry) UncompressedSize() uint32 { return e.uncompressedSize }

// CRC32 returns the stored checksum that streamed bytes must reproduce.
func (e *FileEntry) CRC32() uint32 { return e.crc32 }

// Index returns this entry's position within its parent CentralDirectory.
func (e *FileEntry) Index() int { return e.index }

// IsZeroLength reports whether this entry has no compressed payload at all
// (directory markers and empty files).
func (e *FileEntry) IsZeroLength() bool { return e.compressedSize == 0 }

// IsMacOSXMetadata reports whether this entry is macOS-produced bookkeeping
// that is conventionally exempt from strict validation: anything under a
// __MACOSX path component, or a trailing .DS_Store file.
func (e *FileEntry) IsMacOSXMetadata() bool {
	name := e.Name()
	if name == "" {
		return false
	}
	for _, part := range strings.Split(strings.Trim(name, "/"), "/") {
		if part == "__MACOSX" {
			return true
		}
	}
	base := name
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		base = name[idx+1:]
	}
	return base == ".DS_Store"
}

// validate applies per-record validation. A record is valid outright if it
// is zero-length or macOS metadata; otherwise its version, encryption flag,
// and compression method must all check out.
func (e *FileEntry) validate() error {
	if e.IsZeroLength() || e.IsMacOSXMetadata() {
		return nil
	}
	if uint8(e.versionNeeded) > maxSupportedVersionNeeded {
		return newErr(ErrUnsupportedRecordVersion, nil)
	}
	if e.bitFlag&flagEncrypted != 0 {
		return newErr(ErrEncryptionNotSupported, nil)
	}
	if e.compressionMethod != methodDeflate {
		return newErr(ErrCompressionMethodNotSupported, nil)
	}
	return nil
}
