package zip

import "testing"

func TestCompressionLevelDerivation(t *testing.T) {
	cases := []struct {
		bitFlag uint16
		want    CompressionLevel
	}{
		{0, CompressionDefault},
		{flagCompressBit1, CompressionMax},
		{flagCompressBit2, CompressionFast},
		{flagCompressBit1 | flagCompressBit2, CompressionSuperFast},
	}
	for _, c := range cases {
		e := &FileEntry{bitFlag: c.bitFlag}
		if got := e.CompressionLevel(); got != c.want {
			t.Errorf("bitFlag=%#x: got %v, want %v", c.bitFlag, got, c.want)
		}
	}
}

func TestIsMacOSXMetadata(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"__MACOSX/a.txt", true},
		{"dir/__MACOSX/nested", true},
		{"dir/.DS_Store", true},
		{".DS_Store", true},
		{"normal/file.txt", false},
		{"", false},
	}
	for _, c := range cases {
		e := &FileEntry{nameBytes: []byte(c.name)}
		if got := e.IsMacOSXMetadata(); got != c.want {
			t.Errorf("name=%q: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestValidateZeroLengthAndMacMetadataAreExempt(t *testing.T) {
	zeroLen := &FileEntry{compressedSize: 0, bitFlag: flagEncrypted, compressionMethod: 99}
	if err := zeroLen.validate(); err != nil {
		t.Errorf("zero-length entry should be exempt, got %v", err)
	}

	macMeta := &FileEntry{
		nameBytes:         []byte("__MACOSX/._foo"),
		compressedSize:    10,
		bitFlag:           flagEncrypted,
		compressionMethod: 99,
	}
	if err := macMeta.validate(); err != nil {
		t.Errorf("macOS metadata entry should be exempt, got %v", err)
	}
}

func TestValidateRejectsEncryption(t *testing.T) {
	e := &FileEntry{nameBytes: []byte("x"), compressedSize: 1, bitFlag: flagEncrypted, compressionMethod: methodDeflate}
	err := e.validate()
	assertKind(t, err, ErrEncryptionNotSupported)
}

func TestValidateRejectsUnsupportedMethod(t *testing.T) {
	e := &FileEntry{nameBytes: []byte("x"), compressedSize: 1, compressionMethod: 99}
	err := e.validate()
	assertKind(t, err, ErrCompressionMethodNotSupported)
}

func TestValidateRejectsUnsupportedVersion(t *testing.T) {
	e := &FileEntry{nameBytes: []byte("x"), compressedSize: 1, versionNeeded: 99, compressionMethod: methodDeflate}
	err := e.validate()
	assertKind(t, err, ErrUnsupportedRecordVersion)
}

func assertKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	zerr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if zerr.Kind != want {
		t.Errorf("got kind %v, want %v", zerr.Kind, want)
	}
}
