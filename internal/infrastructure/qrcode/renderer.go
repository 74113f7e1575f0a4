// Package qrcode renders payloads as QR images.
package qrcode

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatSVG  = "svg"

	MinSize = 100
	MaxSize = 1000
)

// Image is a rendered code.
type Image struct {
	Format   string
	MimeType string
	Data     []byte
}

// DataURI returns the image as a base64 data URI.
func (i Image) DataURI() string {
	return "data:" + i.MimeType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Renderer encodes content with a fixed error-correction level.
type Renderer struct {
	level qr.ErrorCorrectionLevel
}

func NewRenderer(errorCorrection string) (*Renderer, error) {
	level, err := ParseLevel(errorCorrection)
	if err != nil {
		return nil, err
	}
	return &Renderer{level: level}, nil
}

func ParseLevel(s string) (qr.ErrorCorrectionLevel, error) {
	switch strings.ToUpper(s) {
	case "L":
		return qr.L, nil
	case "M", "":
		return qr.M, nil
	case "Q":
		return qr.Q, nil
	case "H":
		return qr.H, nil
	}
	return qr.M, fmt.Errorf("unknown error correction level %q", s)
}

// NormalizeFormat maps accepted spellings onto png, jpeg or svg.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(format) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "svg":
		return FormatSVG, nil
	}
	return "", fmt.Errorf("unsupported image format %q", format)
}

// Render encodes content into a size x size image.
func (r *Renderer) Render(content string, size int, format string) (Image, error) {
	if size < MinSize || size > MaxSize {
		return Image{}, fmt.Errorf("size %d out of range %d..%d", size, MinSize, MaxSize)
	}
	format, err := NormalizeFormat(format)
	if err != nil {
		return Image{}, err
	}

	code, err := qr.Encode(content, r.level, qr.Auto)
	if err != nil {
		return Image{}, fmt.Errorf("failed to encode qr: %w", err)
	}

	if format == FormatSVG {
		return Image{Format: FormatSVG, MimeType: "image/svg+xml", Data: renderSVG(code, size)}, nil
	}

	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return Image{}, fmt.Errorf("failed to scale qr: %w", err)
	}

	var buf bytes.Buffer
	switch format {
	case FormatJPEG:
		err = jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(&buf, scaled)
	}
	if err != nil {
		return Image{}, fmt.Errorf("failed to encode %s: %w", format, err)
	}

	mime := "image/png"
	if format == FormatJPEG {
		mime = "image/jpeg"
	}
	return Image{Format: format, MimeType: mime, Data: buf.Bytes()}, nil
}

// renderSVG draws one rect per dark module on a viewBox of module units.
func renderSVG(code barcode.Barcode, size int) []byte {
	bounds := code.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`, size, size, w, h)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#ffffff"/>`, w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, _, _, _ := code.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			if r == 0 {
				fmt.Fprintf(&b, `<rect x="%d" y="%d" width="1" height="1" fill="#000000"/>`, x, y)
			}
		}
	}
	b.WriteString(`</svg>`)
	return []byte(b.String())
}
