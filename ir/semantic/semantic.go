package semantic

import (
	"time"
)

// Document is the semantic representation of a PDF.
type Document struct {
	Pages []*Page
	Info  *DocumentInfo
	Lang  string
}

// Page models a single PDF page.
type Page struct {
	Index     int
	MediaBox  Rectangle
	Rotate    int // degrees: 0/90/180/270
	Resources *Resources
	Contents  []ContentStream
}

// Width returns the media box width.
func (p *Page) Width() float64 { return p.MediaBox.URX - p.MediaBox.LLX }

// Height returns the media box height.
func (p *Page) Height() float64 { return p.MediaBox.URY - p.MediaBox.LLY }

// Clone returns a copy of the page whose operation slices and resource maps
// are independent of the receiver. Fonts and images are shared by pointer;
// they are treated as immutable once registered.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	cp := &Page{
		Index:    p.Index,
		MediaBox: p.MediaBox,
		Rotate:   p.Rotate,
	}
	if p.Resources != nil {
		cp.Resources = p.Resources.Clone()
	}
	if len(p.Contents) > 0 {
		cp.Contents = make([]ContentStream, len(p.Contents))
		for i, cs := range p.Contents {
			cp.Contents[i] = cs.Clone()
		}
	}
	return cp
}

// ContentStream is a sequence of operations on a page.
type ContentStream struct {
	Operations []Operation
}

// Clone copies the operation list. Operands are value types and are shared.
func (cs ContentStream) Clone() ContentStream {
	ops := make([]Operation, len(cs.Operations))
	for i, op := range cs.Operations {
		ops[i] = Operation{Operator: op.Operator, Operands: append([]Operand(nil), op.Operands...)}
	}
	return ContentStream{Operations: ops}
}

// Operation represents a PDF operator and operands.
type Operation struct {
	Operator string
	Operands []Operand
}

// Op is shorthand for building an operation.
func Op(operator string, operands ...Operand) Operation {
	return Operation{Operator: operator, Operands: operands}
}

// Numbers wraps float values as number operands.
func Numbers(vals ...float64) []Operand {
	out := make([]Operand, len(vals))
	for i, v := range vals {
		out[i] = NumberOperand{Value: v}
	}
	return out
}

// Operand is a type-safe operand value.
type Operand interface {
	operand()
	Type() string
}

type NumberOperand struct{ Value float64 }

func (NumberOperand) operand()     {}
func (NumberOperand) Type() string { return "number" }

type NameOperand struct{ Value string }

func (NameOperand) operand()     {}
func (NameOperand) Type() string { return "name" }

type StringOperand struct{ Value []byte }

func (StringOperand) operand()     {}
func (StringOperand) Type() string { return "string" }

type ArrayOperand struct{ Values []Operand }

func (ArrayOperand) operand()     {}
func (ArrayOperand) Type() string { return "array" }

// Resources holds per-page resources.
type Resources struct {
	Fonts    map[string]*Font
	XObjects map[string]*XObject
}

// Clone copies the resource maps; values are shared.
func (r *Resources) Clone() *Resources {
	cp := &Resources{}
	if r.Fonts != nil {
		cp.Fonts = make(map[string]*Font, len(r.Fonts))
		for k, v := range r.Fonts {
			cp.Fonts[k] = v
		}
	}
	if r.XObjects != nil {
		cp.XObjects = make(map[string]*XObject, len(r.XObjects))
		for k, v := range r.XObjects {
			cp.XObjects[k] = v
		}
	}
	return cp
}

// Font represents a simple (non-embedded) font resource.
type Font struct {
	Subtype  string // Type1 (default)
	BaseFont string
	Encoding string // WinAnsiEncoding (default)
}

// XObject describes a referenced image.
type XObject struct {
	Subtype string // Image
	Width   int
	Height  int
	ColorSpace
	BitsPerComponent int
	Data             []byte
	Filter           string // Optional: pass-through filter for Data (e.g. DCTDecode)
	Interpolate      bool
	SMask            *XObject
}

// Image is an alias for XObject for image convenience APIs.
type Image = XObject

// ColorSpace names a device color space.
type ColorSpace struct {
	Name string // DeviceRGB, DeviceGray
}

// Components reports the number of color components per sample.
func (cs ColorSpace) Components() int {
	switch cs.Name {
	case "DeviceGray":
		return 1
	case "DeviceCMYK":
		return 4
	default:
		return 3
	}
}

// Rectangle represents a PDF rectangle.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// DocumentInfo models /Info dictionary values.
type DocumentInfo struct {
	Title        string
	Author       string
	Subject      string
	Creator      string
	Producer     string
	Keywords     []string
	CreationDate time.Time
}
