package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"mockinterview/internal/bootstrap"
	"mockinterview/internal/domain"
	"mockinterview/internal/ports"
	"mockinterview/internal/report"
	"mockinterview/internal/usecase"
)

const (
	eventSession  = "mockinterview:session"
	eventInterim  = "mockinterview:interim"
	eventError    = "mockinterview:error"
	eventFeedback = "mockinterview:feedback"
	eventEnded    = "mockinterview:ended"
)

// App is the Wails application root. It owns one interview session at a
// time and forwards session events to the frontend.
type App struct {
	ctx context.Context

	services  *bootstrap.Services
	clipboard ports.Clipboard
	bootErr   error

	mu      sync.Mutex
	session *usecase.Session
}

func NewApp() *App {
	return &App{clipboard: &wailsClipboard{}}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build()
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}
	a.services = services
	a.newSession()
}

func (a *App) shutdown(context.Context) {
	if s := a.current(); s != nil {
		s.End()
	}
	if a.services != nil {
		if err := a.services.Close(); err != nil {
			a.services.Logger.Warn("shutdown failed", "error", err)
		}
	}
}

// Start begins the interview with the candidate's job description and
// resume text.
func (a *App) Start(jobDescription string, resume string) (domain.Snapshot, error) {
	s, err := a.requireSession()
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := s.Start(jobDescription, resume); err != nil {
		return domain.Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// SubmitAnswer records a typed answer to the active question.
func (a *App) SubmitAnswer(text string) error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	return ignoreInactive(s.SubmitAnswer(text))
}

// Skip records the active question as skipped.
func (a *App) Skip() error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	return ignoreInactive(s.Skip())
}

// ToggleMic mutes or unmutes the microphone.
func (a *App) ToggleMic() (bool, error) {
	s, err := a.requireSession()
	if err != nil {
		return false, err
	}
	return s.ToggleMic()
}

// ToggleCamera turns the camera on or off.
func (a *App) ToggleCamera() (bool, error) {
	s, err := a.requireSession()
	if err != nil {
		return false, err
	}
	return s.ToggleCamera()
}

// RetryMedia retries camera and microphone acquisition.
func (a *App) RetryMedia() error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	return s.RetryMedia()
}

// Restart abandons the current interview and returns to the instructions.
// An ended session is replaced by a fresh one.
func (a *App) Restart() error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	if err := s.Restart(); errors.Is(err, usecase.ErrSessionEnded) {
		a.newSession()
		return nil
	} else if err != nil {
		return err
	}
	return nil
}

// End terminates the interview and releases every device.
func (a *App) End() error {
	s, err := a.requireSession()
	if err != nil {
		return err
	}
	s.End()
	return nil
}

// GetSnapshot returns the current session state.
func (a *App) GetSnapshot() domain.Snapshot {
	s := a.current()
	if s == nil {
		return domain.Snapshot{Phase: domain.PhaseInstructions}
	}
	return s.Snapshot()
}

// GetFrame returns the latest camera frame as base64 JPEG, or "".
func (a *App) GetFrame() string {
	s := a.current()
	if s == nil {
		return ""
	}
	frame := s.Frame()
	if len(frame) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(frame)
}

// ListReports returns saved reports, newest first.
func (a *App) ListReports() ([]domain.Report, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.services.Store.List(a.requestContext())
}

// CopyReport writes the text rendering of a saved report to the clipboard.
func (a *App) CopyReport(sessionID string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	ctx := a.requestContext()
	r, err := a.services.Store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := a.clipboard.SetText(ctx, report.Text(r)); err != nil {
		return fmt.Errorf("copy report %s: %w", sessionID, err)
	}
	return nil
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	if a.services == nil {
		return map[string]string{}
	}
	cfg := a.services.Config
	return map[string]string{
		"recognition":  "Deepgram",
		"model":        cfg.Deepgram.Model,
		"language":     cfg.Deepgram.Language,
		"voice":        cfg.Speech.Voice,
		"questionBank": cfg.Interview.QuestionBankPath,
		"questionApi":  cfg.Remote.BaseURL,
		"audioInput":   cfg.Media.AudioDevice,
		"videoInput":   cfg.Media.VideoDevice,
	}
}

func (a *App) newSession() {
	s := a.services.NewSession(context.Background(), bootstrap.SessionOptions{
		Events:      a,
		OnTerminate: a.sessionEnded,
	})
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()
	a.SessionChanged(s.Snapshot())
}

func (a *App) requestContext() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

func (a *App) current() *usecase.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) requireSession() (*usecase.Session, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	s := a.current()
	if s == nil {
		return nil, fmt.Errorf("no interview session")
	}
	return s, nil
}

// ignoreInactive hides the expected race between a click and the question
// ending.
func ignoreInactive(err error) error {
	if errors.Is(err, usecase.ErrNoActiveQuestion) {
		return nil
	}
	return err
}

func (a *App) sessionEnded(r domain.Report) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventEnded, r)
}

// SessionChanged emits the session snapshot to the frontend.
func (a *App) SessionChanged(snapshot domain.Snapshot) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, snapshot)
}

// InterimTranscript emits live partial answer text.
func (a *App) InterimTranscript(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventInterim, map[string]string{"text": text})
}

// FeedbackReady emits the completed report.
func (a *App) FeedbackReady(r domain.Report) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventFeedback, r)
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeMediaPermission:
		return "Camera or microphone access denied"
	case domain.ErrorCodeMediaNotFound:
		return "No camera or microphone found"
	case domain.ErrorCodeMediaBusy:
		return "Camera or microphone is in use"
	case domain.ErrorCodeMediaUnsupported:
		return "Media capture is not supported"
	case domain.ErrorCodeMedia:
		return "Camera or microphone error"
	case domain.ErrorCodeSpeechUnsupported:
		return "Speech recognition unavailable"
	case domain.ErrorCodeSpeechPermission:
		return "Speech recognition not allowed"
	case domain.ErrorCodeSpeechCapture:
		return "Speech capture stopped"
	case domain.ErrorCodeSynthesis:
		return "Speech synthesis failed"
	case domain.ErrorCodeReport:
		return "Report could not be saved"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
