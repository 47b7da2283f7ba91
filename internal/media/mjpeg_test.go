package media

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// chunkReader returns its data a few bytes at a time.
type chunkReader struct {
	data []byte
	size int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.size
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func TestFrameSplitterHandlesSplitMarkers(t *testing.T) {
	t.Parallel()

	first := []byte{0xFF, 0xD8, 0x10, 0x11, 0xFF, 0xD9}
	second := []byte{0xFF, 0xD8, 0x20, 0xFF, 0xD9}
	stream := append([]byte{0x00, 0x01}, first...)
	stream = append(stream, 0x42)
	stream = append(stream, second...)
	stream = append(stream, 0xFF, 0xD8, 0x30)

	splitter := newFrameSplitter(&chunkReader{data: stream, size: 3})

	frame, err := splitter.Next()
	if err != nil || !bytes.Equal(frame, first) {
		t.Fatalf("unexpected first frame %x err=%v", frame, err)
	}
	frame, err = splitter.Next()
	if err != nil || !bytes.Equal(frame, second) {
		t.Fatalf("unexpected second frame %x err=%v", frame, err)
	}
	frame, err = splitter.Next()
	if frame != nil || !errors.Is(err, io.EOF) {
		t.Fatalf("expected incomplete frame to be dropped at EOF, got %x err=%v", frame, err)
	}
}
