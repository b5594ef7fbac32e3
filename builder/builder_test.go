package builder

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/wudi/plantreport/ir/semantic"
)

func operators(ops []semantic.Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.Operator
	}
	return out
}

func TestBuilder_DrawTextPopulatesResourcesAndOps(t *testing.T) {
	b := NewBuilder()
	font := &semantic.Font{BaseFont: "Helvetica-Bold"}
	b.RegisterFont("Body", font)

	b.NewPage(200, 200).
		DrawText("Hello", 10, 20, TextOptions{Font: "Body", FontSize: 16, Color: Color{R: 0.1, G: 0.2, B: 0.3}}).
		Finish()
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build doc: %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected one page, got %d", len(doc.Pages))
	}
	page := doc.Pages[0]
	if page.Resources == nil || page.Resources.Fonts["Body"] != font {
		t.Fatalf("font not registered on page resources")
	}
	ops := page.Contents[0].Operations
	want := []string{"BT", "Tf", "Tm", "rg", "Tj", "ET"}
	got := operators(ops)
	if len(got) != len(want) {
		t.Fatalf("operators = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("operation %d = %s, want %s", i, got[i], want[i])
		}
	}
	tm := ops[2].Operands
	if tm[4].(semantic.NumberOperand).Value != 10 || tm[5].(semantic.NumberOperand).Value != 20 {
		t.Fatalf("Tm coordinates not set: %+v", tm)
	}
	if tj := ops[4].Operands[0].(semantic.StringOperand); string(tj.Value) != "Hello" {
		t.Fatalf("Tj text mismatch: %q", tj.Value)
	}
}

func TestBuilder_AlignmentUsesMetrics(t *testing.T) {
	b := NewBuilder()
	width := b.MeasureText("Verified By:", "F1", 8)
	if width <= 0 {
		t.Fatalf("expected positive width")
	}
	pb := b.NewPage(300, 100).
		DrawText("Verified By:", 290, 10, TextOptions{FontSize: 8, Align: HAlignRight}).
		DrawText("Verified By:", 150, 10, TextOptions{FontSize: 8, Align: HAlignCenter})
	ops := pb.Page().Contents[0].Operations
	var xs []float64
	for _, op := range ops {
		if op.Operator == "Tm" {
			xs = append(xs, op.Operands[4].(semantic.NumberOperand).Value)
		}
	}
	if len(xs) != 2 {
		t.Fatalf("expected two Tm operations, got %d", len(xs))
	}
	if math.Abs(xs[0]-(290-width)) > 1e-9 {
		t.Fatalf("right aligned x = %v, want %v", xs[0], 290-width)
	}
	if math.Abs(xs[1]-(150-width/2)) > 1e-9 {
		t.Fatalf("centered x = %v, want %v", xs[1], 150-width/2)
	}
}

func TestBuilder_StandardFontByBaseName(t *testing.T) {
	b := NewBuilder()
	pb := b.NewPage(100, 100).DrawText("X", 0, 0, TextOptions{Font: "Helvetica-Bold"})
	fonts := pb.Page().Resources.Fonts
	if len(fonts) != 1 {
		t.Fatalf("expected one font resource, got %d", len(fonts))
	}
	for name, f := range fonts {
		if f.BaseFont != "Helvetica-Bold" || name == "F1" {
			t.Fatalf("unexpected font resource %s -> %s", name, f.BaseFont)
		}
	}
	// Regular Helvetica resolves to the pre-registered F1.
	pb.DrawText("Y", 0, 0, TextOptions{Font: "Helvetica"})
	if _, ok := pb.Page().Resources.Fonts["F1"]; !ok {
		t.Fatalf("Helvetica should map to F1")
	}
}

func TestBuilder_ScratchPagesAreDetached(t *testing.T) {
	b := NewBuilder()
	scratch := b.Scratch(A4Width, A4Height)
	scratch.DrawRectangle(10, 10, 20, 20, RectOptions{Fill: true, FillColor: WhiteSmoke})
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(doc.Pages) != 0 {
		t.Fatalf("scratch page leaked into document")
	}
	added := b.AddPage(scratch.Page().Clone())
	added.DrawLine(0, 0, 10, 10, LineOptions{LineWidth: 1})
	if len(scratch.Page().Contents[0].Operations) == len(added.Page().Contents[0].Operations) {
		t.Fatalf("drawing on the added clone mutated the scratch page")
	}
	doc, _ = b.Build()
	if len(doc.Pages) != 1 || doc.Pages[0].Index != 0 {
		t.Fatalf("expected one indexed page")
	}
}

func TestBuilder_DrawShapes(t *testing.T) {
	b := NewBuilder()
	pb := b.NewPage(100, 100).
		DrawRectangle(1, 2, 3, 4, RectOptions{Fill: true, Stroke: true, FillColor: WhiteSmoke, LineWidth: 1}).
		DrawLine(0, 0, 5, 5, LineOptions{StrokeColor: Grey, LineWidth: 0.5})
	got := operators(pb.Page().Contents[0].Operations)
	want := []string{"q", "rg", "w", "re", "B", "Q", "q", "RG", "w", "m", "l", "S", "Q"}
	if len(got) != len(want) {
		t.Fatalf("operators = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("operators = %v, want %v", got, want)
		}
	}
}

func TestImages_PNGWithAlphaGetsSoftMask(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, color.NRGBA{R: 255, A: 128})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	img, err := ImageFromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Width != 2 || img.Height != 2 || len(img.Data) != 12 {
		t.Fatalf("unexpected image %dx%d data=%d", img.Width, img.Height, len(img.Data))
	}
	if img.SMask == nil || img.SMask.ColorSpace.Name != "DeviceGray" {
		t.Fatalf("expected gray soft mask")
	}

	b := NewBuilder()
	pb := b.NewPage(100, 100).DrawImage(img, 0, 0, 10, 10, ImageOptions{}).DrawImage(img, 20, 0, 10, 10, ImageOptions{})
	if n := len(pb.Page().Resources.XObjects); n != 1 {
		t.Fatalf("expected image registered once, got %d", n)
	}
}

func TestImages_BMPDecodes(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 3, 1))
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, src); err != nil {
		t.Fatalf("encode bmp: %v", err)
	}
	img, err := ImageFromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("decode bmp: %v", err)
	}
	if img.Width != 3 || img.SMask != nil {
		t.Fatalf("unexpected bmp image: %+v", img)
	}
}

func TestImages_RejectsGarbage(t *testing.T) {
	if _, err := ImageFromBytes([]byte("not an image")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestMm(t *testing.T) {
	if got := Mm(25.4); math.Abs(got-72) > 1e-9 {
		t.Fatalf("Mm(25.4) = %v", got)
	}
}
