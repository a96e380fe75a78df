package domain

import "time"

// PollStats holds statistics about a poll cycle.
type PollStats struct {
	SourceID  string
	Fetched   int
	Notified  int
	Skipped   int
	Published int
	Errors    int
	Watermark int64
	Duration  time.Duration
}
