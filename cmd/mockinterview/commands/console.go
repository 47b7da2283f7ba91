package commands

import (
	"fmt"
	"io"
	"sync"

	"mockinterview/internal/domain"
)

// console is an EventSink that prints session changes as they happen.
// Repeated snapshots only print what changed.
type console struct {
	out     io.Writer
	noColor bool

	onFeedback func(domain.Report)

	mu        sync.Mutex
	phase     domain.Phase
	question  string
	banner    string
	listening bool
}

func newConsole(out io.Writer, noColor bool) *console {
	return &console{out: out, noColor: noColor}
}

func (c *console) SessionChanged(s domain.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.Phase != c.phase {
		c.phase = s.Phase
		c.println(bold("== "+phaseTitle(s.Phase), c.noColor, colorTitle))
	}
	if q := s.CurrentQuestion; q != nil && q.Text != c.question {
		c.question = q.Text
		progress := fmt.Sprintf("[%d/%d]", s.Counts.Get(s.Phase)+1, s.Budgets.Get(s.Phase))
		c.println(stylize(progress, c.noColor, colorDim) + " " + bold(q.Text, c.noColor, colorQuestion))
	}
	banner := s.MediaBanner
	if banner == "" {
		banner = s.SpeechBanner
	}
	if banner != c.banner {
		c.banner = banner
		if banner != "" {
			c.println(stylize("! "+banner, c.noColor, colorWarn))
		}
	}
	if s.Listening && !c.listening {
		c.println(stylize("listening... (type an answer, /skip, /mic, /camera, /retry or /end)", c.noColor, colorDim))
	}
	c.listening = s.Listening
}

func (c *console) InterimTranscript(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.println(stylize("  ~ "+text, c.noColor, colorDim))
}

func (c *console) SessionError(code domain.ErrorCode, detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.println(stylize(fmt.Sprintf("error [%s]: %s", code, detail), c.noColor, colorError))
}

func (c *console) FeedbackReady(r domain.Report) {
	c.mu.Lock()
	onFeedback := c.onFeedback
	c.mu.Unlock()
	if onFeedback != nil {
		onFeedback(r)
	}
}

func (c *console) println(line string) {
	fmt.Fprintln(c.out, line)
}

func phaseTitle(p domain.Phase) string {
	switch p {
	case domain.PhaseInstructions:
		return "Instructions"
	case domain.PhaseVoiceIntro:
		return "Welcome"
	case domain.PhaseIntroduction:
		return "Introduction"
	case domain.PhaseTechnical:
		return "Technical questions"
	case domain.PhaseBehavioral:
		return "Behavioral questions"
	case domain.PhaseEnding:
		return "Wrapping up"
	case domain.PhaseFeedback:
		return "Feedback"
	default:
		return string(p)
	}
}
