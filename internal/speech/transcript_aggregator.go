package speech

import (
	"strings"
	"sync"

	"mockinterview/internal/domain"
)

// transcriptAggregator accumulates the segments of one spoken answer.
type transcriptAggregator struct {
	mu         sync.Mutex
	finals     []string
	partial    string
	lastSpoken string
}

func newTranscriptAggregator() *transcriptAggregator {
	return &transcriptAggregator{}
}

func (a *transcriptAggregator) Add(event domain.TranscriptEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	text := strings.TrimSpace(event.Text)
	if text == "" {
		return
	}
	a.lastSpoken = text
	if event.Kind == domain.TranscriptKindFinal {
		a.finals = append(a.finals, text)
		a.partial = ""
		return
	}
	a.partial = text
}

// Interim is the committed text followed by the in-flight partial segment.
func (a *transcriptAggregator) Interim() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strings.TrimSpace(strings.Join(append(append([]string(nil), a.finals...), a.partial), " "))
}

func (a *transcriptAggregator) Raw() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	joined := strings.TrimSpace(strings.Join(a.finals, " "))
	if joined == "" {
		return a.lastSpoken
	}
	if a.lastSpoken == "" || strings.HasSuffix(joined, a.lastSpoken) {
		return joined
	}
	if a.partial != "" {
		return strings.TrimSpace(joined + " " + a.partial)
	}
	return joined
}

func (a *transcriptAggregator) Empty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSpoken == ""
}
