package writer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/wudi/plantreport/ir/raw"
	"github.com/wudi/plantreport/ir/semantic"
)

type impl struct{}

func (w *impl) SerializeObject(ref raw.ObjectRef, obj raw.Object) ([]byte, error) {
	if obj == nil {
		return nil, fmt.Errorf("object %s is nil", ref)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
	buf.Write(serializePrimitive(obj))
	buf.WriteString("\nendobj\n")
	return buf.Bytes(), nil
}

func (w *impl) Write(ctx context.Context, doc *semantic.Document, out io.Writer, cfg Config) error {
	if doc == nil {
		return fmt.Errorf("nil document")
	}
	b := newObjectBuilder(cfg)
	catalogRef, infoRef, err := b.build(ctx, doc)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", pdfVersion(cfg))
	offsets := make(map[int]int64)
	hash := sha256.New()
	for _, ref := range b.table.Refs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		obj, _ := b.table.Get(ref)
		serialized, err := w.SerializeObject(ref, obj)
		if err != nil {
			return err
		}
		offsets[ref.Num] = int64(buf.Len())
		buf.Write(serialized)
		hash.Write(serialized)
	}

	xrefOffset := buf.Len()
	size := b.table.Size()
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i < size; i++ {
		if off, ok := offsets[i]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}

	ids := fileID(hash.Sum(nil), cfg)
	buf.WriteString("trailer\n")
	buf.Write(serializePrimitive(buildTrailer(size, catalogRef, infoRef, ids)))
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	if _, err := out.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
