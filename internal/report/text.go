// Package report renders session reports as plain text for the clipboard
// and the console.
package report

import (
	"fmt"
	"strings"
	"time"

	"mockinterview/internal/domain"
)

// Text renders the full report: header, scores and the answer log.
func Text(r domain.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Interview %s\n", r.SessionID)
	fmt.Fprintf(&b, "Started: %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration: %s\n", Duration(r))
	fmt.Fprintf(&b, "Status: %s\n", Status(r))

	if r.Feedback != nil {
		f := r.Feedback
		fmt.Fprintf(&b, "\nOverall score: %d/100", f.OverallScore)
		if r.FeedbackSource == domain.FeedbackSourceFallback {
			b.WriteString(" (offline estimate)")
		}
		b.WriteString("\n")
		writeList(&b, "Strengths", f.Strengths)
		writeList(&b, "Improvements", f.Improvements)
		writeList(&b, "Recommendations", f.Recommendations)
	}

	if len(r.Responses) > 0 {
		b.WriteString("\nAnswers\n")
		details := detailIndex(r.Feedback)
		for i, resp := range r.Responses {
			fmt.Fprintf(&b, "\n%d. [%s] %s\n", i+1, resp.Phase, resp.QuestionText)
			fmt.Fprintf(&b, "   %s\n", resp.Answer)
			if d, ok := details[i]; ok {
				fmt.Fprintf(&b, "   Score %d/10: %s\n", d.Score, d.Feedback)
			}
		}
	}
	return b.String()
}

// Status is a one-word outcome label.
func Status(r domain.Report) string {
	if r.Completed {
		return "completed"
	}
	return "ended early"
}

// Duration is the session length rounded to seconds.
func Duration(r domain.Report) time.Duration {
	if r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt).Round(time.Second)
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func detailIndex(f *domain.Feedback) map[int]domain.QuestionFeedback {
	out := make(map[int]domain.QuestionFeedback)
	if f == nil {
		return out
	}
	for i, d := range f.DetailedFeedback {
		out[i] = d
	}
	return out
}
