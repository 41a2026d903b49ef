package compress

import "fmt"

// Compress encodes and decodes opaque payloads stored by the tree.
type Compress interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
	Name() string
}

// New returns the codec registered under name. An empty name selects Nop.
func New(name string) (Compress, error) {
	switch name {
	case "", "nop", "none":
		return NewNop(), nil
	case "gzip":
		return NewGZip(), nil
	case "brotli":
		return NewBrotli(), nil
	case "lz4":
		return NewLZ4(), nil
	default:
		return nil, fmt.Errorf("unknown compression %q", name)
	}
}

// Nop stores payloads as they are.
type Nop struct{}

func NewNop() Nop { return Nop{} }

func (Nop) Name() string                       { return "nop" }
func (Nop) Encode(data []byte) ([]byte, error) { return data, nil }
func (Nop) Decode(data []byte) ([]byte, error) { return data, nil }
