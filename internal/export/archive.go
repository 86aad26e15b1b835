package export

import (
	"archive/zip"
	"bytes"
	"io"
)

// Archive packs files into one in-memory zip. Names are kept exactly as given,
// duplicates included.
func Archive(files []File) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteArchive(&buf, files); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WriteArchive(w io.Writer, files []File) error {
	zw := zip.NewWriter(w)
	for _, f := range files {
		// zero Modified keeps the archive byte-stable across runs
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate})
		if err != nil {
			return IOError{Op: "archive " + f.Name, Err: err}
		}
		if _, err := fw.Write(f.Data); err != nil {
			return IOError{Op: "archive " + f.Name, Err: err}
		}
	}
	if err := zw.Close(); err != nil {
		return IOError{Op: "archive", Err: err}
	}
	return nil
}

// Package returns the bytes to deliver for res: the single document for JSON
// formats, a zip otherwise.
func Package(res Result) ([]byte, error) {
	if !res.Format.MultiFile() {
		if len(res.Files) != 1 {
			return nil, IOError{Op: "package", Err: io.ErrUnexpectedEOF}
		}
		return res.Files[0].Data, nil
	}
	return Archive(res.Files)
}
