package qr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleTxHash = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"

func blankFrame() image.Image {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func renderFrame(t *testing.T, text string) image.Image {
	t.Helper()
	code, err := NewRenderer(0).Render(text)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(code.PNG))
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestRenderDecodeRoundTrip(t *testing.T) {
	for _, text := range []string{sampleTxHash, "hello", "https://example.com/verify?tx=" + sampleTxHash} {
		code, err := NewRenderer(0).Render(text)
		if err != nil {
			t.Fatal(err)
		}
		got, err := DecodeBytes(code.PNG)
		if err != nil {
			t.Fatalf("decode %q: %v", text, err)
		}
		if got != text {
			t.Fatalf("round trip: got %q, want %q", got, text)
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	r := NewRenderer(0)
	a, err := r.Render(sampleTxHash)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Render(sampleTxHash)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.PNG, b.PNG) || a.SVG != b.SVG {
		t.Fatal("rendering the same text twice produced different output")
	}
	if !strings.HasPrefix(a.DataURL(), "data:image/png;base64,") {
		t.Fatalf("unexpected data URL prefix: %.40s", a.DataURL())
	}
	if !strings.Contains(a.SVG, "<svg") || !strings.Contains(a.SVG, "</svg>") {
		t.Fatalf("not an svg document: %.80s", a.SVG)
	}
}

func TestRenderErrors(t *testing.T) {
	r := NewRenderer(0)
	if _, err := r.Render(""); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
	if _, err := r.Render(strings.Repeat("a", 8000)); !errors.Is(err, ErrEncodingTooLarge) {
		t.Fatalf("expected ErrEncodingTooLarge, got %v", err)
	}
}

func TestDecodeNoCode(t *testing.T) {
	if _, err := Decode(blankFrame()); !errors.Is(err, ErrNoCode) {
		t.Fatalf("expected ErrNoCode, got %v", err)
	}
	if _, err := DecodeBytes([]byte("not an image")); err == nil || errors.Is(err, ErrNoCode) {
		t.Fatalf("expected an image read error, got %v", err)
	}
}

func TestScannerStopsAtFirstCode(t *testing.T) {
	source := NewStaticFrames(blankFrame(), blankFrame(), renderFrame(t, sampleTxHash), renderFrame(t, "later"))
	s := &Scanner{Source: source, Interval: time.Millisecond}

	got, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != sampleTxHash {
		t.Fatalf("Scan() = %q, want %q", got, sampleTxHash)
	}
}

func TestScannerResultsRestartable(t *testing.T) {
	source := NewStaticFrames(renderFrame(t, "first"), blankFrame(), nil, renderFrame(t, "second"))
	s := &Scanner{Source: source, Interval: time.Millisecond}

	for round := 0; round < 2; round++ {
		var got []string
		for text := range s.Results(context.Background()) {
			got = append(got, text)
		}
		if len(got) != 2 || got[0] != "first" || got[1] != "second" {
			t.Fatalf("round %d: Results() = %v", round, got)
		}
	}
}

func TestScannerExhausted(t *testing.T) {
	s := &Scanner{Source: NewStaticFrames(blankFrame()), Interval: time.Millisecond}
	if _, err := s.Scan(context.Background()); !errors.Is(err, ErrNoCode) {
		t.Fatalf("expected ErrNoCode, got %v", err)
	}
}

type endlessBlank struct{}

func (endlessBlank) NextFrame(context.Context) (image.Image, error) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	img.Set(0, 0, color.White)
	return img, nil
}

func TestScannerCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	s := &Scanner{Source: endlessBlank{}, Interval: time.Millisecond}
	if _, err := s.Scan(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestImageFiles(t *testing.T) {
	dir := t.TempDir()
	code, err := NewRenderer(0).Render(sampleTxHash)
	if err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(dir, "code.png")
	if err := os.WriteFile(good, code.PNG, 0o644); err != nil {
		t.Fatal(err)
	}
	broken := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(broken, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := &Scanner{Source: NewImageFiles(broken, filepath.Join(dir, "missing.png"), good), Interval: time.Millisecond}
	got, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != sampleTxHash {
		t.Fatalf("Scan() = %q, want %q", got, sampleTxHash)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("0x1234567890", "png"); got != "proofqr-0x123456.png" {
		t.Fatal(got)
	}
	if got := FileName("0x12", "svg"); got != "proofqr-0x12.svg" {
		t.Fatal(got)
	}
}
