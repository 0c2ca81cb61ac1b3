package zip

import (
	"io"
	"os"
)

// CentralDirectory owns the ordered sequence of FileEntry records parsed
// from one archive, the parsed EOCD, and the file's total size.
type CentralDirectory struct {
	Entries    []*FileEntry
	EOCD       EOCD
	FileSize   int64
	eocdOffset int64
	// cdEndOffset is the position immediately after the last parsed CD
	// entry, which must equal eocdOffset for the directory to be valid.
	cdEndOffset int64
}

// RecordCount returns the number of parsed entries.
func (cd *CentralDirectory) RecordCount() int { return len(cd.Entries) }

// RecordAt returns the entry at index i, or ErrIndexOutOfBounds.
func (cd *CentralDirectory) RecordAt(i int) (*FileEntry, error) {
	if i < 0 || i >= len(cd.Entries) {
		return nil, newErr(ErrIndexOutOfBounds, nil)
	}
	return cd.Entries[i], nil
}

// IndexForName performs an O(n) linear, exact, case-sensitive scan for name,
// returning its index or (-1, false) if absent.
func (cd *CentralDirectory) IndexForName(name string) (int, bool) {
	for i, e := range cd.Entries {
		if e.Name() == name {
			return i, true
		}
	}
	return -1, false
}

// EnumerateRecords invokes fn(record, index) for each entry in order,
// stopping early if fn returns false.
func (cd *CentralDirectory) EnumerateRecords(fn func(*FileEntry, int) bool) {
	for i, e := range cd.Entries {
		if !fn(e, i) {
			return
		}
	}
}

// GlobalComment returns the EOCD's archive-level comment.
func (cd *CentralDirectory) GlobalComment() string {
	return string(cd.EOCD.CommentBytes)
}

// locateEOCD takes the file's size from Stat and scans backwards from its
// end for the EOCD signature within
// the maximum possible trailer (64K-1 comment bytes plus the fixed EOCD
// size).
func locateEOCD(file *os.File) (int64, int64, error) {
	info, err := file.Stat()
	if err != nil {
		return 0, 0, newErr(ErrCannotOpenZip, err)
	}
	fileSize := info.Size()
	if fileSize < eocdFixedSize {
		return 0, 0, newErr(ErrInvalidArchive, nil)
	}

	maxScan := int64(maxCommentSize + eocdFixedSize)
	pos, err := scanForSignature(file, eocdSignature, fileSize, maxScan)
	if err != nil {
		return 0, 0, newErr(ErrInvalidArchive, err)
	}
	return pos, fileSize, nil
}

// readEOCD parses the fixed-size End of Central Directory record at pos,
// followed by its variable-length comment.
func readEOCD(file *os.File, pos int64) (EOCD, error) {
	var eocd EOCD

	if _, err := file.Seek(pos, io.SeekStart); err != nil {
		return eocd, newErr(ErrCannotReadCD, err)
	}
	sig, ok := readU32(file)
	if !ok || sig != eocdSignature {
		return eocd, newErr(ErrCannotReadCD, nil)
	}

	var ok1, ok2, ok3, ok4 bool
	eocd.DiskNumber, ok1 = readU16(file)
	eocd.CDStartDisk, ok2 = readU16(file)
	eocd.RecordsOnDisk, ok3 = readU16(file)
	eocd.TotalRecords, ok4 = readU16(file)
	if !(ok1 && ok2 && ok3 && ok4) {
		return eocd, newErr(ErrCannotReadCD, nil)
	}

	cdSize, ok := readU32(file)
	if !ok {
		return eocd, newErr(ErrCannotReadCD, nil)
	}
	eocd.CDSize = cdSize

	cdOffset, ok := readU32(file)
	if !ok {
		return eocd, newErr(ErrCannotReadCD, nil)
	}
	eocd.CDOffset = cdOffset

	commentLen, ok := readU16(file)
	if !ok {
		return eocd, newErr(ErrCannotReadCD, nil)
	}
	eocd.CommentLength = commentLen

	if commentLen > 0 {
		comment, ok := readBytes(file, int(commentLen))
		if !ok {
			return eocd, newErr(ErrCannotReadCD, nil)
		}
		eocd.CommentBytes = comment
	}

	return eocd, nil
}

// readCDEntry parses one Central Directory entry at the file's current
// position, leaving the file positioned immediately after it.
func readCDEntry(file *os.File) (*FileEntry, error) {
	sig, ok := readU32(file)
	if !ok {
		return nil, newErr(ErrCannotReadCD, nil)
	}
	if sig != centralDirectorySignature {
		return nil, newErr(ErrCannotReadCD, nil)
	}

	e := &FileEntry{}
	var ok1, ok2, ok3, ok4, ok5, ok6, ok7, ok8, ok9, ok10, ok11 bool
	e.versionMadeBy, ok1 = readU16(file)
	e.versionNeeded, ok2 = readU16(file)
	e.bitFlag, ok3 = readU16(file)
	e.compressionMethod, ok4 = readU16(file)
	e.dosTime, ok5 = readU16(file)
	e.dosDate, ok6 = readU16(file)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
		return nil, newErr(ErrCannotReadCD, nil)
	}

	crc32v, ok := readU32(file)
	if !ok {
		return nil, newErr(ErrCannotReadCD, nil)
	}
	e.crc32 = crc32v

	compSize, ok := readU32(file)
	if !ok {
		return nil, newErr(ErrCannotReadCD, nil)
	}
	e.compressedSize = compSize

	uncompSize, ok := readU32(file)
	if !ok {
		return nil, newErr(ErrCannotReadCD, nil)
	}
	e.uncompressedSize = uncompSize

	nameLen, ok7 := readU16(file)
	extraLen, ok8 := readU16(file)
	commentLen, ok9 := readU16(file)
	e.diskStart, ok10 = readU16(file)
	e.internalAttrs, ok11 = readU16(file)
	if !(ok7 && ok8 && ok9 && ok10 && ok11) {
		return nil, newErr(ErrCannotReadCD, nil)
	}

	externalAttrs, ok := readU32(file)
	if !ok {
		return nil, newErr(ErrCannotReadCD, nil)
	}
	e.externalAttrs = externalAttrs

	localOffset, ok := readU32(file)
	if !ok {
		return nil, newErr(ErrCannotReadCD, nil)
	}
	e.localHdrOffset = localOffset

	if nameLen == 0 {
		return nil, newErr(ErrCannotReadCD, nil)
	}

	name, ok := readBytes(file, int(nameLen))
	if !ok {
		return nil, newErr(ErrCannotReadCD, nil)
	}
	e.nameBytes = name

	extra, ok := readBytes(file, int(extraLen))
	if !ok {
		return nil, newErr(ErrCannotReadCD, nil)
	}
	e.extraField = extra

	comment, ok := readBytes(file, int(commentLen))
	if !ok {
		return nil, newErr(ErrCannotReadCD, nil)
	}
	e.commentBytes = comment

	return e, nil
}

// readCentralDirectory seeks to cd_offset, parses entries while position <
// eocdOffset, then cross-validates the result.
func readCentralDirectory(file *os.File, eocdPos, fileSize int64) (*CentralDirectory, error) {
	eocd, err := readEOCD(file, eocdPos)
	if err != nil {
		return nil, err
	}

	cd := &CentralDirectory{
		EOCD:       eocd,
		FileSize:   fileSize,
		eocdOffset: eocdPos,
	}

	if _, err := file.Seek(int64(eocd.CDOffset), io.SeekStart); err != nil {
		return nil, newErr(ErrCannotReadCD, err)
	}

	pos := int64(eocd.CDOffset)
	for pos < eocdPos {
		entry, err := readCDEntry(file)
		if err != nil {
			break
		}
		entry.index = len(cd.Entries)
		entry.parent = cd
		cd.Entries = append(cd.Entries, entry)

		newPos, err := file.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, newErr(ErrCannotReadCD, err)
		}
		pos = newPos
	}
	cd.cdEndOffset = pos

	if err := validateCentralDirectory(cd); err != nil {
		return nil, err
	}

	return cd, nil
}

// validateCentralDirectory cross-validates a freshly parsed directory,
// short-circuiting on the first failure in a fixed order.
func validateCentralDirectory(cd *CentralDirectory) error {
	if cd.EOCD.DiskNumber != 0 || cd.EOCD.CDStartDisk != 0 {
		return newErr(ErrMultipleDisksUnsupported, nil)
	}
	if len(cd.Entries) == 0 {
		return newErr(ErrCannotReadCD, nil)
	}
	if len(cd.Entries) != int(cd.EOCD.TotalRecords) {
		return newCountMismatch(int(cd.EOCD.TotalRecords), len(cd.Entries))
	}
	if cd.cdEndOffset != cd.eocdOffset {
		return newErr(ErrCDDoesNotCompleteWithEOCD, nil)
	}
	for _, e := range cd.Entries {
		if err := e.validate(); err != nil {
			return err
		}
	}
	return nil
}
