package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// GZip compresses at a fixed level.
type GZip struct {
	level int
}

func NewGZip() GZip {
	return GZip{level: gzip.DefaultCompression}
}

// NewGZipLevel accepts gzip.HuffmanOnly through gzip.BestCompression.
func NewGZipLevel(level int) (GZip, error) {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return GZip{}, fmt.Errorf("gzip: invalid level %d", level)
	}
	return GZip{level: level}, nil
}

func (g GZip) Name() string {
	return "gzip"
}

func (g GZip) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, g.level)
	if err != nil {
		return nil, err
	}
	if _, err = w.Write(data); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (g GZip) Decode(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}
