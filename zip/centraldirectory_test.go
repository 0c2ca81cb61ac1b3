package zip

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andrewstephens/gozip/internal/ziptest"
)

func buildAndOpen(t *testing.T, build func(b *ziptest.Builder), closeOpts ...ziptest.CloseOption) (*os.File, int64, int64) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cd.zip")
	wf, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	b := ziptest.NewBuilder(wf)
	build(b)
	if err := b.Close(closeOpts...); err != nil {
		t.Fatal(err)
	}
	wf.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })

	eocdPos, fileSize, err := locateEOCD(f)
	if err != nil {
		t.Fatal(err)
	}
	return f, eocdPos, fileSize
}

func TestCommentExactlyMaxSizeIsStillLocated(t *testing.T) {
	comment := strings.Repeat("c", maxCommentSize)
	f, eocdPos, fileSize := buildAndOpen(t, func(b *ziptest.Builder) {
		if err := b.AddDeflated("a.txt", []byte("x")); err != nil {
			t.Fatal(err)
		}
	}, ziptest.WithComment(comment))

	cd, err := readCentralDirectory(f, eocdPos, fileSize)
	if err != nil {
		t.Fatalf("readCentralDirectory failed with max-size comment: %v", err)
	}
	if cd.GlobalComment() != comment {
		t.Fatal("comment round-trip mismatch")
	}
}

func TestRecordAtAndIndexForName(t *testing.T) {
	f, eocdPos, fileSize := buildAndOpen(t, func(b *ziptest.Builder) {
		if err := b.AddDeflated("one.txt", []byte("1")); err != nil {
			t.Fatal(err)
		}
		if err := b.AddDeflated("two.txt", []byte("2")); err != nil {
			t.Fatal(err)
		}
	})

	cd, err := readCentralDirectory(f, eocdPos, fileSize)
	if err != nil {
		t.Fatal(err)
	}

	idx, ok := cd.IndexForName("two.txt")
	if !ok || idx != 1 {
		t.Fatalf("IndexForName(two.txt) = (%d, %v), want (1, true)", idx, ok)
	}

	_, ok = cd.IndexForName("missing.txt")
	if ok {
		t.Fatal("expected IndexForName to miss on unknown name")
	}

	if _, err := cd.RecordAt(2); err == nil {
		t.Fatal("expected out-of-bounds error")
	} else {
		assertKind(t, err, ErrIndexOutOfBounds)
	}
}

func TestPositionClosureInvariant(t *testing.T) {
	f, eocdPos, fileSize := buildAndOpen(t, func(b *ziptest.Builder) {
		if err := b.AddDeflated("a.txt", []byte("x")); err != nil {
			t.Fatal(err)
		}
		if err := b.AddDeflated("b.bin", []byte("hello world, this compresses")); err != nil {
			t.Fatal(err)
		}
	})

	cd, err := readCentralDirectory(f, eocdPos, fileSize)
	if err != nil {
		t.Fatal(err)
	}
	if cd.cdEndOffset != cd.eocdOffset {
		t.Fatalf("cdEndOffset %d != eocdOffset %d", cd.cdEndOffset, cd.eocdOffset)
	}
	if cd.RecordCount() != int(cd.EOCD.TotalRecords) {
		t.Fatalf("record count %d != EOCD.TotalRecords %d", cd.RecordCount(), cd.EOCD.TotalRecords)
	}
}

func TestCountAlignmentInvariant(t *testing.T) {
	f, eocdPos, fileSize := buildAndOpen(t, func(b *ziptest.Builder) {
		for i := 0; i < 5; i++ {
			if err := b.AddDeflated(strings.Repeat("x", i+1)+".txt", []byte("content")); err != nil {
				t.Fatal(err)
			}
		}
	})

	cd, err := readCentralDirectory(f, eocdPos, fileSize)
	if err != nil {
		t.Fatal(err)
	}
	if cd.RecordCount() != int(cd.EOCD.TotalRecords) {
		t.Fatalf("record count %d != EOCD.TotalRecords %d", cd.RecordCount(), cd.EOCD.TotalRecords)
	}
}
