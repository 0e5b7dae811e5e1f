package qr

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	svg "github.com/ajstarks/svgo"
	qrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyContent     = errors.New("nothing to encode")
	ErrEncodingTooLarge = errors.New("content exceeds QR code capacity")
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 256

// svgModule is the rendered size of one module in SVG user units.
const svgModule = 8

// Code holds the two interchangeable renderings of the same text.
type Code struct {
	Text string
	PNG  []byte
	SVG  string
}

// DataURL returns the PNG as a data: URL, ready for an <img src>.
func (c *Code) DataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(c.PNG)
}

type Renderer struct {
	Size  int
	Level qrcode.RecoveryLevel
}

func NewRenderer(size int) *Renderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Renderer{Size: size, Level: qrcode.Medium}
}

// Render encodes text as PNG and SVG. Output is deterministic.
func (r *Renderer) Render(text string) (*Code, error) {
	if text == "" {
		return nil, ErrEmptyContent
	}
	q, err := qrcode.New(text, r.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes: %w", ErrEncodingTooLarge, len(text), err)
	}
	size := r.Size
	if size <= 0 {
		size = DefaultSize
	}
	png, err := q.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return &Code{
		Text: text,
		PNG:  png,
		SVG:  renderSVG(q.Bitmap()),
	}, nil
}

// renderSVG draws each row as horizontal runs of dark modules. The bitmap
// already includes the quiet zone.
func renderSVG(bitmap [][]bool) string {
	n := len(bitmap)
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(n*svgModule, n*svgModule,
		fmt.Sprintf(`viewBox="0 0 %d %d"`, n, n),
		`shape-rendering="crispEdges"`)
	canvas.Rect(0, 0, n, n, "fill:#ffffff")
	for y, row := range bitmap {
		for x := 0; x < len(row); {
			if !row[x] {
				x++
				continue
			}
			start := x
			for x < len(row) && row[x] {
				x++
			}
			canvas.Rect(start, y, x-start, 1, "fill:#000000")
		}
	}
	canvas.End()
	return buf.String()
}

// FileName names a downloaded code after the first 8 characters of the hash,
// e.g. proofqr-0x1c8aff.png.
func FileName(txHash, ext string) string {
	prefix := txHash
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return "proofqr-" + prefix + "." + ext
}
