package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"mockinterview/internal/domain"
	"mockinterview/internal/ports"
	"mockinterview/internal/questionbank"
)

// reportFinalizer scores the collected answers and persists reports.
type reportFinalizer struct {
	questions ports.QuestionService
	bank      *questionbank.Bank
	store     ports.ReportStore
	metrics   ports.Metrics
	logger    *slog.Logger
}

func newReportFinalizer(
	questions ports.QuestionService,
	bank *questionbank.Bank,
	store ports.ReportStore,
	metrics ports.Metrics,
	logger *slog.Logger,
) reportFinalizer {
	return reportFinalizer{questions: questions, bank: bank, store: store, metrics: metrics, logger: logger}
}

// Feedback asks the question service for an evaluation and substitutes the
// generic fallback object when that fails.
func (f reportFinalizer) Feedback(ctx context.Context, req ports.FeedbackRequest) (domain.Feedback, domain.FeedbackSource) {
	if f.questions != nil {
		feedback, err := f.questions.GenerateFeedback(ctx, req)
		if err == nil {
			return feedback, domain.FeedbackSourceRemote
		}
		f.logger.Warn("feedback generation failed, using fallback", "endpoint", endpointFeedback, "error", err)
	}
	f.metrics.FallbackUsed(endpointFeedback)
	return f.bank.FallbackFeedback(req.Responses), domain.FeedbackSourceFallback
}

// Persist saves the report. Sessions without a store keep reports in memory
// only.
func (f reportFinalizer) Persist(ctx context.Context, report domain.Report) error {
	if f.store == nil {
		return nil
	}
	if err := f.store.Save(ctx, report); err != nil {
		return fmt.Errorf("save report %s: %w", report.SessionID, err)
	}
	return nil
}
