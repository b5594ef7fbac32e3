package builder

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // Register decoders
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/wudi/plantreport/ir/semantic"
)

// ImageFromFile loads an image from a file path and converts it to *semantic.Image.
func ImageFromFile(path string) (*semantic.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ImageFromBytes(data)
}

// ImageFromBytes decodes PNG, JPEG, GIF, BMP, TIFF or WebP data.
func ImageFromBytes(data []byte) (*semantic.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if format == "jpeg" {
		switch img.(type) {
		case *image.Gray:
			return jpegPassthrough(data, img.Bounds(), "DeviceGray"), nil
		case *image.YCbCr:
			return jpegPassthrough(data, img.Bounds(), "DeviceRGB"), nil
		}
	}
	return FromImage(img), nil
}

// jpegPassthrough embeds JPEG data as-is with DCTDecode.
func jpegPassthrough(data []byte, bounds image.Rectangle, colorSpace string) *semantic.Image {
	return &semantic.Image{
		Subtype:          "Image",
		Width:            bounds.Dx(),
		Height:           bounds.Dy(),
		ColorSpace:       semantic.ColorSpace{Name: colorSpace},
		BitsPerComponent: 8,
		Data:             append([]byte(nil), data...),
		Filter:           "DCTDecode",
	}
}

// FromImage converts a Go image to *semantic.Image. Transparency becomes a
// soft mask.
func FromImage(src image.Image) *semantic.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)

	pixels := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	hasAlpha := false
	for i := 0; i < w*h; i++ {
		off := i * 4
		pixels = append(pixels, nrgba.Pix[off], nrgba.Pix[off+1], nrgba.Pix[off+2])
		a := nrgba.Pix[off+3]
		alpha = append(alpha, a)
		if a < 255 {
			hasAlpha = true
		}
	}

	img := &semantic.Image{
		Subtype:          "Image",
		Width:            w,
		Height:           h,
		ColorSpace:       semantic.ColorSpace{Name: "DeviceRGB"},
		BitsPerComponent: 8,
		Data:             pixels,
	}
	if hasAlpha {
		img.SMask = &semantic.Image{
			Subtype:          "Image",
			Width:            w,
			Height:           h,
			ColorSpace:       semantic.ColorSpace{Name: "DeviceGray"},
			BitsPerComponent: 8,
			Data:             alpha,
		}
	}
	return img
}
