package speech

import (
	"errors"
	"fmt"
	"io"

	"mockinterview/internal/domain"
	"mockinterview/internal/ports"
)

// pumpAudioChunks forwards microphone audio into the recognition stream
// until either side fails. The returned error is classified.
func pumpAudioChunks(audio io.Reader, stream ports.StreamingSession, chunkSize int) error {
	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				return domain.NewRecognitionError(domain.RecognitionNetwork, fmt.Errorf("failed to stream audio: %w", sendErr))
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return domain.NewRecognitionError(domain.RecognitionAudioCapture, errors.New("microphone track ended"))
			}
			return domain.NewRecognitionError(domain.RecognitionAudioCapture, fmt.Errorf("audio capture error: %w", err))
		}
	}
}
