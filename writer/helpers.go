package writer

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/klauspost/compress/zlib"

	"github.com/wudi/plantreport/contentstream"
	"github.com/wudi/plantreport/ir/raw"
)

func pdfVersion(cfg Config) string {
	if cfg.Version == "" {
		return string(PDF17)
	}
	return string(cfg.Version)
}

// fileID builds the trailer /ID pair. Deterministic output uses the first
// 16 bytes of the body hash for both entries.
func fileID(bodyHash []byte, cfg Config) [2][]byte {
	seed := append([]byte(nil), bodyHash[:16]...)
	if cfg.Deterministic {
		return [2][]byte{seed, seed}
	}
	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		id = seed
	}
	return [2][]byte{id, append([]byte(nil), id...)}
}

func normalizeRotation(rot int) int {
	rot %= 360
	if rot < 0 {
		rot += 360
	}
	return rot - rot%90
}

func flateEncode(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pdfDate formats t as a PDF date string, e.g. D:20240102153000+05'30'.
func pdfDate(t time.Time) string {
	_, offset := t.Zone()
	s := "D:" + t.Format("20060102150405")
	if offset == 0 {
		return s + "Z"
	}
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("%s%c%02d'%02d'", s, sign, offset/3600, (offset%3600)/60)
}

// textString encodes a PDF text string: ASCII as a literal, anything else
// as UTF-16BE with a byte order mark.
func textString(s string) raw.StringObj {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return raw.Str([]byte(s))
	}
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2, 2+2*len(units))
	out[0], out[1] = 0xFE, 0xFF
	for _, u := range units {
		out = append(out, byte(u>>8), byte(u))
	}
	return raw.HexStr(out)
}

func buildTrailer(size int, catalogRef raw.ObjectRef, infoRef *raw.ObjectRef, ids [2][]byte) *raw.DictObj {
	trailer := raw.Dict()
	trailer.Set("Size", raw.Int(int64(size)))
	trailer.Set("Root", raw.Ref(catalogRef))
	if infoRef != nil {
		trailer.Set("Info", raw.Ref(*infoRef))
	}
	trailer.Set("ID", raw.NewArray(raw.HexStr(ids[0]), raw.HexStr(ids[1])))
	return trailer
}

func serializePrimitive(o raw.Object) []byte {
	switch v := o.(type) {
	case raw.NameObj:
		return []byte("/" + pdfNameLiteral(v.Value()))
	case raw.NumberObj:
		if v.IsInteger() {
			return []byte(fmt.Sprintf("%d", v.Int()))
		}
		return []byte(contentstream.FormatNumber(v.Float()))
	case raw.BoolObj:
		if v.Value() {
			return []byte("true")
		}
		return []byte("false")
	case raw.NullObj:
		return []byte("null")
	case raw.StringObj:
		if v.IsHex() {
			return []byte("<" + strings.ToUpper(hex.EncodeToString(v.Value())) + ">")
		}
		return contentstream.EscapeLiteral(v.Value())
	case *raw.ArrayObj:
		var b bytes.Buffer
		b.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.Write(serializePrimitive(it))
		}
		b.WriteByte(']')
		return b.Bytes()
	case *raw.DictObj:
		var b bytes.Buffer
		b.WriteString("<<")
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			b.WriteString("/" + pdfNameLiteral(k) + " ")
			b.Write(serializePrimitive(val))
		}
		b.WriteString(">>")
		return b.Bytes()
	case *raw.StreamObj:
		var b bytes.Buffer
		b.Write(serializePrimitive(v.Dict))
		b.WriteString("\nstream\n")
		b.Write(v.Data)
		b.WriteString("\nendstream")
		return b.Bytes()
	case raw.RefObj:
		return []byte(v.Ref().String())
	default:
		return []byte("null")
	}
}

func pdfNameLiteral(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_' || ch == '.' || ch == '+' {
			b.WriteByte(ch)
			continue
		}
		fmt.Fprintf(&b, "#%02X", ch)
	}
	return b.String()
}
