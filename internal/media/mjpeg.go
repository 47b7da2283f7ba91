package media

import (
	"bytes"
	"io"
)

const maxFrameBytes = 8 << 20

var (
	jpegStart = []byte{0xFF, 0xD8}
	jpegEnd   = []byte{0xFF, 0xD9}
)

// frameSplitter cuts an MJPEG byte stream into JPEG images.
type frameSplitter struct {
	r   io.Reader
	buf []byte
	tmp []byte
}

func newFrameSplitter(r io.Reader) *frameSplitter {
	return &frameSplitter{r: r, tmp: make([]byte, 32<<10)}
}

// Next returns the next complete frame. A frame and an error may be
// returned together when the stream ends.
func (s *frameSplitter) Next() ([]byte, error) {
	for {
		if frame := s.extract(); frame != nil {
			return frame, nil
		}
		n, err := s.r.Read(s.tmp)
		if n > 0 {
			s.buf = append(s.buf, s.tmp[:n]...)
			if len(s.buf) > maxFrameBytes {
				s.buf = s.buf[len(s.buf)-len(jpegStart):]
			}
		}
		if err != nil {
			return s.extract(), err
		}
	}
}

func (s *frameSplitter) extract() []byte {
	start := bytes.Index(s.buf, jpegStart)
	if start < 0 {
		// keep a trailing 0xFF in case the marker is split across reads
		if n := len(s.buf); n > 0 && s.buf[n-1] == 0xFF {
			s.buf = s.buf[n-1:]
		} else {
			s.buf = s.buf[:0]
		}
		return nil
	}
	end := bytes.Index(s.buf[start+len(jpegStart):], jpegEnd)
	if end < 0 {
		if start > 0 {
			s.buf = append(s.buf[:0], s.buf[start:]...)
		}
		return nil
	}
	stop := start + len(jpegStart) + end + len(jpegEnd)
	frame := append([]byte(nil), s.buf[start:stop]...)
	s.buf = append(s.buf[:0], s.buf[stop:]...)
	return frame
}
