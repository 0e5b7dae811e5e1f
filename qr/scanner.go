package qr

import (
	"context"
	"errors"
	"io"
	"log"
	"time"
)

// DefaultInterval re-arms the sampling loop about once per display refresh.
const DefaultInterval = time.Second / 60

// Scanner polls a FrameSource and decodes QR codes from its frames. Frames
// may be skipped under load; there is no real-time guarantee.
type Scanner struct {
	Source   FrameSource
	Interval time.Duration
}

func NewScanner(source FrameSource) *Scanner {
	return &Scanner{Source: source, Interval: DefaultInterval}
}

// Results yields the decoded text of every frame holding a code. The channel
// is closed when ctx is done or the source is exhausted. Calling Results again
// restarts from the first frame when the source is a Rewinder.
func (s *Scanner) Results(ctx context.Context) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		if r, ok := s.Source.(Rewinder); ok {
			r.Rewind()
		}
		interval := s.Interval
		if interval <= 0 {
			interval = DefaultInterval
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			frame, err := s.Source.NextFrame(ctx)
			switch {
			case errors.Is(err, io.EOF):
				return
			case err != nil:
				if ctx.Err() != nil {
					return
				}
				log.Printf("Skipping unreadable frame: %v", err)
			case frame != nil:
				if text, err := Decode(frame); err == nil {
					select {
					case out <- text:
					case <-ctx.Done():
						return
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}

// Scan returns the first decoded text and stops sampling. It returns
// ErrNoCode when the source runs out without a code.
func (s *Scanner) Scan(ctx context.Context) (string, error) {
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	text, ok := <-s.Results(scanCtx)
	if !ok {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "", ErrNoCode
	}
	return text, nil
}
