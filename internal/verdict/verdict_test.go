package verdict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homework_notifier/internal/domain"
)

func TestInterpret_KnownStatuses(t *testing.T) {
	tests := []struct {
		name   string
		sub    domain.Submission
		phrase string
	}{
		{
			name:   "approved",
			sub:    domain.Submission{HomeworkName: "hw1", Status: domain.StatusApproved},
			phrase: ApprovedText,
		},
		{
			name:   "rejected",
			sub:    domain.Submission{HomeworkName: "user__hw_python_oop.zip", Status: domain.StatusRejected},
			phrase: RejectedText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := Interpret(tt.sub)
			require.NoError(t, err)
			assert.Contains(t, text, tt.phrase)
			assert.Contains(t, text, tt.sub.HomeworkName)
		})
	}
}

func TestInterpret_UnknownStatus(t *testing.T) {
	for _, status := range []domain.Status{"unknown_status", domain.StatusReviewing, ""} {
		text, err := Interpret(domain.Submission{HomeworkName: "hw1", Status: status})
		require.NoError(t, err)
		assert.Equal(t, FallbackText, text)
	}
}

func TestInterpret_MissingName(t *testing.T) {
	text, err := Interpret(domain.Submission{ID: 7, Status: domain.StatusApproved})

	assert.ErrorIs(t, err, domain.ErrMalformedRecord)
	assert.Empty(t, text)
}

func TestInterpret_Idempotent(t *testing.T) {
	sub := domain.Submission{HomeworkName: "hw2", Status: domain.StatusRejected}

	first, err := Interpret(sub)
	require.NoError(t, err)
	second, err := Interpret(sub)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}
