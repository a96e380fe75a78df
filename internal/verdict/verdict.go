// Package verdict turns homework review statuses into notification text.
package verdict

import (
	"fmt"

	"homework_notifier/internal/domain"
)

const (
	RejectedText = "Unfortunately, the reviewer found errors in the submission."
	ApprovedText = "The reviewer approved it, you can proceed to the next lesson."

	// FallbackText is returned as is for any status outside the table.
	FallbackText = "Could not determine the review status of the submission."
)

var verdicts = map[domain.Status]string{
	domain.StatusRejected: RejectedText,
	domain.StatusApproved: ApprovedText,
}

// Interpret returns the notification text for a submission.
func Interpret(sub domain.Submission) (string, error) {
	if sub.HomeworkName == "" {
		return "", fmt.Errorf("%w: homework_name is missing (id %d)", domain.ErrMalformedRecord, sub.ID)
	}

	text, ok := verdicts[sub.Status]
	if !ok {
		return FallbackText, nil
	}

	return fmt.Sprintf("Your submission %q has been reviewed!\n\n%s", sub.HomeworkName, text), nil
}
