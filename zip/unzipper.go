package zip

import "os"

// Unzipper owns at most one open file handle and, once loaded, the
// CentralDirectory parsed from it.
//
// An Unzipper is not safe for concurrent use; in particular two concurrent
// StreamEntry calls on the same instance are a programming error, not a
// supported race.
type Unzipper struct {
	file      *os.File
	cd        *CentralDirectory
	streaming bool

	// eocdPos and fileSize are discovered by Open and consumed by
	// ReadCentralDirectory.
	eocdPos  int64
	fileSize int64
}

// New returns an unopened Unzipper.
func New() *Unzipper {
	return &Unzipper{}
}

// Open discovers the archive's EOCD and records the file's total size,
// rejecting a file with no EOCD signature within the scan window. It does
// not parse the EOCD or the Central Directory (disk numbers included); call
// ReadCentralDirectory for that.
func (u *Unzipper) Open(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return newErr(ErrCannotOpenZip, err)
	}

	eocdPos, fileSize, err := locateEOCD(file)
	if err != nil {
		file.Close()
		return err
	}

	if u.file != nil {
		u.file.Close()
	}
	u.file = file
	u.cd = nil
	u.eocdPos = eocdPos
	u.fileSize = fileSize
	return nil
}

// ReadCentralDirectory loads and validates the Central Directory. Calling it
// again on the same open Unzipper re-parses the archive from scratch and
// yields a CentralDirectory that compares equal field-wise to the previous
// one, since nothing about the underlying file has changed.
func (u *Unzipper) ReadCentralDirectory() (*CentralDirectory, error) {
	if u.file == nil {
		return nil, newErr(ErrMustOpenFirst, nil)
	}
	cd, err := readCentralDirectory(u.file, u.eocdPos, u.fileSize)
	if err != nil {
		return nil, err
	}
	u.cd = cd
	return cd, nil
}

// RecordCount returns the number of entries in the loaded Central
// Directory, or 0 if none has been read yet.
func (u *Unzipper) RecordCount() int {
	if u.cd == nil {
		return 0
	}
	return u.cd.RecordCount()
}

// RecordAt returns the entry at index i from the loaded Central Directory.
func (u *Unzipper) RecordAt(i int) (*FileEntry, error) {
	if u.cd == nil {
		return nil, newErr(ErrMustOpenFirst, nil)
	}
	return u.cd.RecordAt(i)
}

// IndexForName looks up an entry by exact, case-sensitive name.
func (u *Unzipper) IndexForName(name string) (int, bool) {
	if u.cd == nil {
		return -1, false
	}
	return u.cd.IndexForName(name)
}

// EnumerateRecords invokes fn(record, index) for each entry in order.
func (u *Unzipper) EnumerateRecords(fn func(*FileEntry, int) bool) {
	if u.cd == nil {
		return
	}
	u.cd.EnumerateRecords(fn)
}

// Close releases the open file handle, if any. The Unzipper may be reused
// via another call to Open afterward.
func (u *Unzipper) Close() error {
	if u.file == nil {
		return nil
	}
	err := u.file.Close()
	u.file = nil
	u.cd = nil
	return err
}
