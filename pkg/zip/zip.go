package zip

import (
	"archive/zip"
	"bytes"
)

// Entry is one file inside an export archive.
type Entry struct {
	Filename string
	Data     []byte
}

// Archive bundles the entries into an in-memory zip. Entries without data
// are skipped rather than written as empty files.
func Archive(entries []Entry) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, entry := range entries {
		if len(entry.Data) == 0 {
			continue
		}
		w, err := zw.Create(entry.Filename)
		if err != nil {
			continue
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}
