package practicum

// StatusResponse is the homework_statuses response body.
// Every field is optional on the wire.
type StatusResponse struct {
	Homeworks   []Homework `json:"homeworks"`
	CurrentDate *int64     `json:"current_date"`
}

type Homework struct {
	ID              int64   `json:"id"`
	Status          *string `json:"status"`
	HomeworkName    *string `json:"homework_name"`
	ReviewerComment *string `json:"reviewer_comment"`
	DateUpdated     *string `json:"date_updated"`
	LessonName      *string `json:"lesson_name"`
}

// ErrorResponse is returned by the API with non-2xx statuses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
