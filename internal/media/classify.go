package media

import (
	"errors"
	"os"
	"os/exec"
	"strings"

	"mockinterview/internal/domain"
)

// Classify maps a capture failure onto a media error kind.
func Classify(err error) *domain.MediaError {
	var mediaErr *domain.MediaError
	if errors.As(err, &mediaErr) {
		return mediaErr
	}
	kind := domain.MediaUnknown
	text := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		kind = domain.MediaUnsupported
	case strings.Contains(text, "permission denied"), strings.Contains(text, "access denied"), strings.Contains(text, "not permitted"):
		kind = domain.MediaPermissionDenied
	case strings.Contains(text, "no such file or directory"), strings.Contains(text, "no such device"), strings.Contains(text, "not found"):
		kind = domain.MediaNotFound
	case strings.Contains(text, "device or resource busy"), strings.Contains(text, "resource busy"):
		kind = domain.MediaBusy
	case strings.Contains(text, "unknown input format"), strings.Contains(text, "unsupported track kind"):
		kind = domain.MediaUnsupported
	}
	return &domain.MediaError{Kind: kind, Err: err}
}
