package domain

import "time"

// Status is the review status reported by the homework API.
type Status string

const (
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusReviewing Status = "reviewing"
)

// Submission is one homework record of a status batch.
type Submission struct {
	ID              int64
	HomeworkName    string // empty when the API omitted it
	LessonName      string
	Status          Status
	ReviewerComment string
	DateUpdated     time.Time
}

// StatusBatch is the typed result of one status fetch.
type StatusBatch struct {
	Submissions []Submission
	CurrentDate *int64 // nil when the response carried no usable current_date
}

// Notification is a verdict that has been delivered to the messaging channel.
type Notification struct {
	ID              int64     `db:"id" json:"-"`
	HomeworkName    string    `db:"homework_name" json:"homework_name"`
	Status          Status    `db:"status" json:"status"`
	Text            string    `db:"text" json:"text"`
	ReviewerComment string    `db:"reviewer_comment" json:"reviewer_comment,omitempty"`
	ServerDate      int64     `db:"server_date" json:"server_date"`
	SentAt          time.Time `db:"sent_at" json:"sent_at"`
}
