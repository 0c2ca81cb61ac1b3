package main

import (
	"fmt"
	"os"

	"github.com/andrewstephens/gozip/zip"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gozip <path-to-zip>")
		os.Exit(1)
	}

	u := zip.New()
	if err := u.Open(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "open: %v\n", err)
		os.Exit(1)
	}
	defer u.Close()

	cd, err := u.ReadCentralDirectory()
	if err != nil {
		fmt.Fprintf(os.Stderr, "read central directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d entries, comment %q\n", cd.RecordCount(), cd.GlobalComment())

	u.EnumerateRecords(func(rec *zip.FileEntry, i int) bool {
		if rec.IsMacOSXMetadata() {
			fmt.Printf("skipping %s\n", rec.Name())
			return true
		}

		var n int64
		err := u.StreamEntry(rec, nil, func(chunk []byte, start, end int64) bool {
			n += int64(len(chunk))
			return false
		})
		if err != nil {
			fmt.Printf("error extracting %s: %v\n", rec.Name(), err)
		} else {
			fmt.Printf("extracted %s (%d bytes)\n", rec.Name(), n)
		}
		return true
	})
}
