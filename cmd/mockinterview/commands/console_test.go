package commands

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"mockinterview/internal/domain"
	"mockinterview/internal/usecase"
)

func TestConsolePrintsOnlyChanges(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	c := newConsole(&out, true)
	q := &domain.Question{ID: 1, Text: "Tell me about yourself."}
	snap := domain.Snapshot{
		Phase:           domain.PhaseIntroduction,
		CurrentQuestion: q,
		Budgets:         domain.DefaultBudgets,
	}

	c.SessionChanged(snap)
	c.SessionChanged(snap)
	snap.Listening = true
	c.SessionChanged(snap)
	snap.SpeechBanner = "Listening stopped."
	snap.Listening = false
	c.SessionChanged(snap)
	c.SessionChanged(snap)

	text := out.String()
	if n := strings.Count(text, "Tell me about yourself."); n != 1 {
		t.Fatalf("expected the question printed once, got %d:\n%s", n, text)
	}
	if n := strings.Count(text, "== Introduction"); n != 1 {
		t.Fatalf("expected one phase header, got %d", n)
	}
	if !strings.Contains(text, "[1/3]") {
		t.Fatalf("expected progress in:\n%s", text)
	}
	if n := strings.Count(text, "! Listening stopped."); n != 1 {
		t.Fatalf("expected the banner printed once, got %d", n)
	}
	if n := strings.Count(text, "listening..."); n != 1 {
		t.Fatalf("expected one listening hint, got %d", n)
	}
}

func TestConsoleErrorsAndFeedback(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	c := newConsole(&out, true)
	var got []domain.Report
	c.onFeedback = func(r domain.Report) { got = append(got, r) }

	c.SessionError(domain.ErrorCodeSynthesis, "quota")
	c.FeedbackReady(domain.Report{SessionID: "s-1"})

	if !strings.Contains(out.String(), "error [synthesis]: quota") {
		t.Fatalf("unexpected output: %s", out.String())
	}
	if len(got) != 1 || got[0].SessionID != "s-1" {
		t.Fatalf("expected feedback forwarded, got %+v", got)
	}
}

func TestReadCommands(t *testing.T) {
	t.Parallel()

	in := strings.NewReader("I build services\n\n/skip\n/mic\n/camera\n/retry\nlate\n/end\nignored\n")
	var out bytes.Buffer
	s := &fakeInterview{submitErrs: map[string]error{"late": usecase.ErrNoActiveQuestion}}

	readCommands(in, &out, s, true)

	want := []string{"answer:I build services", "skip", "mic", "camera", "retry", "answer:late", "end"}
	got := s.snapshot()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected calls:\nwant %v\ngot  %v", want, got)
	}
	text := out.String()
	if !strings.Contains(text, "microphone off") || !strings.Contains(text, "camera off") {
		t.Fatalf("expected toggle feedback in:\n%s", text)
	}
	if !strings.Contains(text, "no question is waiting") {
		t.Fatalf("expected inactive question notice in:\n%s", text)
	}
}

func TestReadCommandsStopsWhenSessionEnded(t *testing.T) {
	t.Parallel()

	s := &fakeInterview{skipErr: usecase.ErrSessionEnded}
	readCommands(strings.NewReader("/skip\nanswer\n"), &bytes.Buffer{}, s, true)

	if got := s.snapshot(); len(got) != 1 || got[0] != "skip" {
		t.Fatalf("expected reading to stop after the session ended, got %v", got)
	}
}

func TestReadCommandsEndsOnEOF(t *testing.T) {
	t.Parallel()

	s := &fakeInterview{skipErr: errors.New("boom")}
	var out bytes.Buffer
	readCommands(strings.NewReader("/skip\n"), &out, s, true)

	got := s.snapshot()
	if len(got) != 2 || got[1] != "end" {
		t.Fatalf("expected end on EOF, got %v", got)
	}
	if !strings.Contains(out.String(), "boom") {
		t.Fatalf("expected error printed")
	}
}

func TestReadText(t *testing.T) {
	t.Parallel()

	if got, _ := readText("  inline  ", ""); got != "inline" {
		t.Fatalf("unexpected inline text %q", got)
	}
	if _, err := readText("", "/does/not/exist"); err == nil {
		t.Fatalf("expected read error")
	}
}

type fakeInterview struct {
	mu         sync.Mutex
	calls      []string
	submitErrs map[string]error
	skipErr    error
	mic        bool
	camera     bool
}

func (f *fakeInterview) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeInterview) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeInterview) Start(string, string) error { return nil }

func (f *fakeInterview) SubmitAnswer(text string) error {
	f.record("answer:" + text)
	return f.submitErrs[text]
}

func (f *fakeInterview) Skip() error {
	f.record("skip")
	return f.skipErr
}

func (f *fakeInterview) ToggleMic() (bool, error) {
	f.record("mic")
	return f.mic, nil
}

func (f *fakeInterview) ToggleCamera() (bool, error) {
	f.record("camera")
	return f.camera, nil
}

func (f *fakeInterview) RetryMedia() error {
	f.record("retry")
	return nil
}

func (f *fakeInterview) End() { f.record("end") }
