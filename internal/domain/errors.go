package domain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies errors reported to the shell.
type ErrorCode string

const (
	ErrorCodeStartup           ErrorCode = "startup"
	ErrorCodeMediaPermission   ErrorCode = "media_permission"
	ErrorCodeMediaNotFound     ErrorCode = "media_not_found"
	ErrorCodeMediaBusy         ErrorCode = "media_busy"
	ErrorCodeMediaUnsupported  ErrorCode = "media_unsupported"
	ErrorCodeMedia             ErrorCode = "media"
	ErrorCodeSpeechUnsupported ErrorCode = "speech_unsupported"
	ErrorCodeSpeechPermission  ErrorCode = "speech_permission"
	ErrorCodeSpeechCapture     ErrorCode = "speech_capture"
	ErrorCodeSynthesis         ErrorCode = "synthesis"
	ErrorCodeReport            ErrorCode = "report"
)

// MediaErrorKind classifies device acquisition failures.
type MediaErrorKind string

const (
	MediaPermissionDenied MediaErrorKind = "permission-denied"
	MediaNotFound         MediaErrorKind = "not-found"
	MediaBusy             MediaErrorKind = "busy"
	MediaUnsupported      MediaErrorKind = "unsupported"
	MediaUnknown          MediaErrorKind = "unknown"
)

// MediaError is returned when the camera or microphone cannot be acquired.
type MediaError struct {
	Kind MediaErrorKind
	Err  error
}

func (e *MediaError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("media %s", e.Kind)
	}
	return fmt.Sprintf("media %s: %v", e.Kind, e.Err)
}

func (e *MediaError) Unwrap() error { return e.Err }

// Code maps the failure to a shell error code.
func (e *MediaError) Code() ErrorCode {
	switch e.Kind {
	case MediaPermissionDenied:
		return ErrorCodeMediaPermission
	case MediaNotFound:
		return ErrorCodeMediaNotFound
	case MediaBusy:
		return ErrorCodeMediaBusy
	case MediaUnsupported:
		return ErrorCodeMediaUnsupported
	default:
		return ErrorCodeMedia
	}
}

// Message is the user-facing text for the failure.
func (e *MediaError) Message() string {
	switch e.Kind {
	case MediaPermissionDenied:
		return "Camera or microphone access was denied. Allow access and retry."
	case MediaNotFound:
		return "No camera or microphone was found."
	case MediaBusy:
		return "Camera or microphone is in use by another application."
	case MediaUnsupported:
		return "Media capture is not supported on this system."
	default:
		return "Could not start camera or microphone."
	}
}

// RecognitionErrorKind classifies speech recognition failures.
type RecognitionErrorKind string

const (
	RecognitionNoSpeech     RecognitionErrorKind = "no-speech"
	RecognitionNetwork      RecognitionErrorKind = "network"
	RecognitionNotAllowed   RecognitionErrorKind = "not-allowed"
	RecognitionAudioCapture RecognitionErrorKind = "audio-capture"
	RecognitionUnsupported  RecognitionErrorKind = "unsupported"
)

// RecognitionError is raised by the speech input path.
type RecognitionError struct {
	Kind RecognitionErrorKind
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("speech recognition %s", e.Kind)
	}
	return fmt.Sprintf("speech recognition %s: %v", e.Kind, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// Transient reports whether capture should be restarted automatically.
func (e *RecognitionError) Transient() bool {
	return e.Kind == RecognitionNoSpeech || e.Kind == RecognitionNetwork
}

// Code maps permanent failures to a shell error code.
func (e *RecognitionError) Code() ErrorCode {
	switch e.Kind {
	case RecognitionNotAllowed:
		return ErrorCodeSpeechPermission
	case RecognitionUnsupported:
		return ErrorCodeSpeechUnsupported
	default:
		return ErrorCodeSpeechCapture
	}
}

// NewRecognitionError wraps err with a kind.
func NewRecognitionError(kind RecognitionErrorKind, err error) error {
	return &RecognitionError{Kind: kind, Err: err}
}

// RecognitionKind extracts the kind of err. Unclassified errors are
// treated as network failures.
func RecognitionKind(err error) RecognitionErrorKind {
	var recErr *RecognitionError
	if errors.As(err, &recErr) {
		return recErr.Kind
	}
	return RecognitionNetwork
}
