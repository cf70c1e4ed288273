package store

import (
	"bufio"
	"bytes"
	"io"
	"os"
)

// readWhole reads path through a buffered reader.
func readWhole(path string) ([]byte, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, bufio.NewReader(f)); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), func() {}, nil
}
