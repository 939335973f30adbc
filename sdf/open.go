package sdf

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// Open reads a source file fully into memory, transparently decompressing
// gzip input when gzipped is set. Records are small relative to file size,
// so the splitter works on the whole text.
func Open(path string, gzipped bool) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var r io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("opening gzip stream of %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
