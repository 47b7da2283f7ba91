package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"mockinterview/internal/domain"
	"mockinterview/internal/logging"
	"mockinterview/internal/ports"
)

var _ ports.ReportStore = (*Reports)(nil)

func openMemory(t *testing.T) *Reports {
	t.Helper()
	reports, err := Open(Options{InMemory: true, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _ = reports.Close() })
	return reports
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	t.Parallel()

	reports := openMemory(t)
	ctx := context.Background()
	started := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	report := domain.Report{
		SessionID: "s-1",
		StartedAt: started,
		EndedAt:   started.Add(20 * time.Minute),
		Completed: true,
		Responses: []domain.Response{{
			QuestionID:   1,
			QuestionText: "Tell me about yourself.",
			Answer:       "I build things.",
			Phase:        domain.PhaseIntroduction,
			Timestamp:    started.Add(time.Minute),
			Duration:     42 * time.Second,
		}},
		Feedback:       &domain.Feedback{OverallScore: 80, Strengths: []string{"clear"}},
		FeedbackSource: domain.FeedbackSourceRemote,
	}

	if err := reports.Save(ctx, report); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := reports.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !got.StartedAt.Equal(started) || !got.Completed || got.FeedbackSource != domain.FeedbackSourceRemote {
		t.Fatalf("unexpected report: %+v", got)
	}
	if len(got.Responses) != 1 || got.Responses[0].Duration != 42*time.Second || got.Responses[0].Phase != domain.PhaseIntroduction {
		t.Fatalf("unexpected responses: %+v", got.Responses)
	}
	if got.Feedback == nil || got.Feedback.OverallScore != 80 {
		t.Fatalf("unexpected feedback: %+v", got.Feedback)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	reports := openMemory(t)
	if _, err := reports.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()

	reports := openMemory(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := reports.Save(ctx, domain.Report{SessionID: id, StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("save %s failed: %v", id, err)
		}
	}

	list, err := reports.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 3 || list[0].SessionID != "c" || list[2].SessionID != "a" {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestSaveRequiresSessionID(t *testing.T) {
	t.Parallel()

	reports := openMemory(t)
	if err := reports.Save(context.Background(), domain.Report{}); err == nil {
		t.Fatalf("expected error for empty session id")
	}
}

func TestOpenRequiresDirOnDisk(t *testing.T) {
	t.Parallel()

	if _, err := Open(Options{}); err == nil {
		t.Fatalf("expected error without dir")
	}
}
