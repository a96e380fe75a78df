package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"homework_notifier/internal/domain"
	"homework_notifier/internal/verdict"
)

// PollService runs single poll cycles and owns the watermark between them.
// It is not safe for concurrent use; the scheduler is its only caller.
type PollService struct {
	source    Source
	notifier  Notifier
	publisher Publisher
	history   HistoryStore
	clock     clockwork.Clock
	logger    *slog.Logger

	watermark int64
}

// NewPollService creates a service whose watermark starts at the current time.
// publisher and history are optional and may be nil.
func NewPollService(
	source Source,
	notifier Notifier,
	publisher Publisher,
	history HistoryStore,
	clk clockwork.Clock,
	logger *slog.Logger,
) *PollService {
	return &PollService{
		source:    source,
		notifier:  notifier,
		publisher: publisher,
		history:   history,
		clock:     clk,
		logger:    logger.With("source", source.ID()),
		watermark: clk.Now().Unix(),
	}
}

// Watermark returns the from_date used by the next cycle.
func (s *PollService) Watermark() int64 {
	return s.watermark
}

// Poll fetches statuses updated since the watermark and notifies about the
// most recent one. The watermark only moves after a successful fetch and
// delivery, and only to the server supplied current_date.
func (s *PollService) Poll(ctx context.Context) (*domain.PollStats, error) {
	startTime := s.clock.Now()

	batch, err := s.source.FetchStatuses(ctx, s.watermark)
	if err != nil {
		return nil, fmt.Errorf("fetch statuses: %w", err)
	}

	stats := &domain.PollStats{
		SourceID: s.source.ID(),
		Fetched:  len(batch.Submissions),
	}

	if len(batch.Submissions) > 0 {
		if err := s.dispatch(ctx, batch, stats); err != nil {
			stats.Watermark = s.watermark
			return stats, err
		}
	}

	s.advance(batch)
	stats.Watermark = s.watermark
	stats.Duration = s.clock.Now().Sub(startTime)

	s.logger.Info("poll completed",
		"fetched", stats.Fetched,
		"notified", stats.Notified,
		"skipped", stats.Skipped,
		"published", stats.Published,
		"errors", stats.Errors,
		"watermark", stats.Watermark,
		"duration", stats.Duration,
	)

	return stats, nil
}

// dispatch delivers the verdict of the first submission. A malformed record
// is skipped without error; a delivery failure is returned.
func (s *PollService) dispatch(ctx context.Context, batch *domain.StatusBatch, stats *domain.PollStats) error {
	sub := batch.Submissions[0]
	if stats.Fetched > 1 {
		stats.Skipped += stats.Fetched - 1
	}

	text, err := verdict.Interpret(sub)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedRecord) {
			s.logger.Error("skipping malformed record", "id", sub.ID, "error", err)
			stats.Skipped++
			return nil
		}
		return fmt.Errorf("interpret: %w", err)
	}

	if err := s.notifier.Notify(ctx, text); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	stats.Notified++

	n := &domain.Notification{
		HomeworkName:    sub.HomeworkName,
		Status:          sub.Status,
		Text:            text,
		ReviewerComment: sub.ReviewerComment,
		SentAt:          s.clock.Now().UTC(),
	}
	if batch.CurrentDate != nil {
		n.ServerDate = *batch.CurrentDate
	}

	if s.history != nil {
		if err := s.history.Save(ctx, n); err != nil {
			s.logger.Warn("failed to save verdict history", "homework_name", n.HomeworkName, "error", err)
			stats.Errors++
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, n); err != nil {
			s.logger.Warn("failed to publish verdict", "homework_name", n.HomeworkName, "error", err)
			stats.Errors++
		} else {
			stats.Published++
		}
	}

	return nil
}

func (s *PollService) advance(batch *domain.StatusBatch) {
	if batch.CurrentDate == nil {
		s.logger.Warn("response has no current_date, keeping watermark", "watermark", s.watermark)
		return
	}
	s.watermark = *batch.CurrentDate
}
