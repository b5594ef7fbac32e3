package contentstream

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/wudi/plantreport/ir/semantic"
)

// Encode serializes operations into content-stream syntax, one operator per
// line. Numbers are rounded to four decimals so equal layouts encode to equal
// bytes.
func Encode(ops []semantic.Operation) []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		for i, operand := range op.Operands {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeOperand(&buf, operand)
		}
		if len(op.Operands) > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(op.Operator)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// FormatNumber renders v the way Encode does.
func FormatNumber(v float64) string {
	r := math.Round(v*10000) / 10000
	if r == 0 {
		return "0"
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func writeOperand(buf *bytes.Buffer, op semantic.Operand) {
	switch v := op.(type) {
	case semantic.NumberOperand:
		buf.WriteString(FormatNumber(v.Value))
	case semantic.NameOperand:
		buf.WriteByte('/')
		buf.WriteString(v.Value)
	case semantic.StringOperand:
		buf.Write(EscapeLiteral(v.Value))
	case semantic.ArrayOperand:
		buf.WriteByte('[')
		for i, it := range v.Values {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeOperand(buf, it)
		}
		buf.WriteByte(']')
	default:
		buf.WriteString("null")
	}
}

// EscapeLiteral wraps raw bytes as a PDF literal string.
func EscapeLiteral(raw []byte) []byte {
	var b bytes.Buffer
	b.WriteByte('(')
	for _, ch := range raw {
		switch ch {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			if ch < 0x20 || ch >= 0x80 {
				fmt.Fprintf(&b, "\\%03o", ch)
			} else {
				b.WriteByte(ch)
			}
		}
	}
	b.WriteByte(')')
	return b.Bytes()
}
