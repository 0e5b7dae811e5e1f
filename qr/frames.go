package qr

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"sync"
)

// FrameSource yields video frames. NextFrame returns a nil image when no
// frame is ready yet and io.EOF once the source is exhausted.
type FrameSource interface {
	NextFrame(ctx context.Context) (image.Image, error)
}

// Rewinder is implemented by sources that can be replayed from the start.
type Rewinder interface {
	Rewind()
}

// StaticFrames replays a fixed list of frames.
type StaticFrames struct {
	sync.Mutex
	frames []image.Image
	pos    int
}

func NewStaticFrames(frames ...image.Image) *StaticFrames {
	return &StaticFrames{frames: frames}
}

func (s *StaticFrames) NextFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.Lock()
	defer s.Unlock()
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	frame := s.frames[s.pos]
	s.pos++
	return frame, nil
}

func (s *StaticFrames) Rewind() {
	s.Lock()
	s.pos = 0
	s.Unlock()
}

// ImageFiles reads frames from PNG or JPEG files, one file per frame.
type ImageFiles struct {
	sync.Mutex
	paths []string
	pos   int
}

func NewImageFiles(paths ...string) *ImageFiles {
	return &ImageFiles{paths: paths}
}

func (f *ImageFiles) NextFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.Lock()
	if f.pos >= len(f.paths) {
		f.Unlock()
		return nil, io.EOF
	}
	path := f.paths[f.pos]
	f.pos++
	f.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

func (f *ImageFiles) Rewind() {
	f.Lock()
	f.pos = 0
	f.Unlock()
}
