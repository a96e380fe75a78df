package practicum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"homework_notifier/internal/domain"
)

const (
	SourceID     = "practicum"
	StatusesPath = "/user_api/homework_statuses/"
)

// Config holds Practicum source configuration.
type Config struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source fetches homework statuses from the Practicum API.
type Source struct {
	httpClient     *http.Client
	endpoint       string
	token          string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a new Practicum source.
func New(cfg Config, logger *slog.Logger) *Source {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		endpoint:       cfg.BaseURL + StatusesPath,
		token:          cfg.Token,
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourceID),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// FetchStatuses returns submissions updated after the since timestamp.
// A negative since or a missing token is an ErrConfiguration and no request is made.
// Every other failure is a *domain.FetchError.
func (s *Source) FetchStatuses(ctx context.Context, since int64) (*domain.StatusBatch, error) {
	if since < 0 {
		return nil, fmt.Errorf("%w: invalid from_date %d", domain.ErrConfiguration, since)
	}
	if s.token == "" {
		return nil, fmt.Errorf("%w: practicum token is empty", domain.ErrConfiguration)
	}

	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: parse endpoint: %v", domain.ErrConfiguration, err)
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(since, 10))
	u.RawQuery = q.Encode()

	resp, err := s.fetchWithRetry(ctx, u.String())
	if err != nil {
		return nil, err
	}

	batch := s.transform(resp)

	s.logger.Debug("fetched statuses",
		"from_date", since,
		"homeworks", len(batch.Submissions),
	)

	return batch, nil
}

func (s *Source) fetchWithRetry(ctx context.Context, url string) (*StatusResponse, error) {
	var resp *StatusResponse
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err = s.doRequest(ctx, url)
		if err == nil {
			return resp, nil
		}

		if attempt == s.maxAttempts || !isRetryable(err) {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, &domain.FetchError{Err: ctx.Err()}
		case <-time.After(backoff):
		}
	}

	return nil, err
}

func (s *Source) doRequest(ctx context.Context, url string) (*StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("Authorization", "OAuth "+s.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "HomeworkNotifier/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.FetchError{
			StatusCode: resp.StatusCode,
			Err:        errorFromBody(resp.Body),
		}
	}

	var apiResp StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, &domain.FetchError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}

	return &apiResp, nil
}

func errorFromBody(body io.Reader) error {
	data, _ := io.ReadAll(io.LimitReader(body, 4096))

	var apiErr ErrorResponse
	if err := json.Unmarshal(data, &apiErr); err == nil && (apiErr.Code != "" || apiErr.Message != "") {
		return fmt.Errorf("api error %s: %s", apiErr.Code, apiErr.Message)
	}
	return errors.New("unexpected status")
}

// isRetryable reports whether a failed attempt may succeed on retry:
// transport errors, 429 and 5xx.
func isRetryable(err error) bool {
	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		return false
	}
	if errors.Is(fe.Err, context.Canceled) || errors.Is(fe.Err, context.DeadlineExceeded) {
		return false
	}
	return fe.StatusCode == 0 || fe.StatusCode == http.StatusTooManyRequests || fe.StatusCode >= 500
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func (s *Source) transform(resp *StatusResponse) *domain.StatusBatch {
	batch := &domain.StatusBatch{
		Submissions: make([]domain.Submission, 0, len(resp.Homeworks)),
	}

	if resp.CurrentDate != nil {
		if *resp.CurrentDate >= 0 {
			date := *resp.CurrentDate
			batch.CurrentDate = &date
		} else {
			s.logger.Warn("ignoring negative current_date", "current_date", *resp.CurrentDate)
		}
	}

	for _, hw := range resp.Homeworks {
		sub := domain.Submission{
			ID:              hw.ID,
			HomeworkName:    deref(hw.HomeworkName),
			LessonName:      deref(hw.LessonName),
			Status:          domain.Status(deref(hw.Status)),
			ReviewerComment: deref(hw.ReviewerComment),
		}

		if hw.DateUpdated != nil {
			updated, err := time.Parse(time.RFC3339, *hw.DateUpdated)
			if err != nil {
				s.logger.Warn("failed to parse date",
					"id", hw.ID,
					"date_updated", *hw.DateUpdated,
				)
			} else {
				sub.DateUpdated = updated
			}
		}

		batch.Submissions = append(batch.Submissions, sub)
	}

	return batch
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
