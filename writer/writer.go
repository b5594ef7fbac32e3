package writer

import (
	"context"
	"io"

	"github.com/wudi/plantreport/ir/raw"
	"github.com/wudi/plantreport/ir/semantic"
)

type PDFVersion string

const (
	PDF17 PDFVersion = "1.7"
)

// Config controls serialization.
type Config struct {
	Version PDFVersion
	// Compression is the zlib level used for content and image streams.
	// Zero writes streams uncompressed.
	Compression int
	// Deterministic derives /ID from the serialized objects instead of
	// random bytes.
	Deterministic bool
}

// DefaultConfig is used by the report pipeline.
func DefaultConfig() Config {
	return Config{Version: PDF17, Compression: 6, Deterministic: true}
}

type Writer interface {
	Write(ctx context.Context, doc *semantic.Document, w io.Writer, cfg Config) error
	SerializeObject(ref raw.ObjectRef, obj raw.Object) ([]byte, error)
}

type WriterBuilder struct{}

func (b *WriterBuilder) Build() Writer { return &impl{} }
