package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"homework_notifier/internal/domain"
)

// VerdictLogStore appends delivered notifications to verdict_log.
// Nothing reads it back on startup.
type VerdictLogStore struct {
	db *sqlx.DB
}

func NewVerdictLogStore(db *sqlx.DB) *VerdictLogStore {
	return &VerdictLogStore{db: db}
}

func (s *VerdictLogStore) Save(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO verdict_log (homework_name, status, text, reviewer_comment, server_date, sent_at)
		VALUES (:homework_name, :status, :text, :reviewer_comment, :server_date, :sent_at)
		RETURNING id`

	rows, err := sqlx.NamedQueryContext(ctx, s.db, query, n)
	if err != nil {
		return err
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&n.ID); err != nil {
			return err
		}
	}
	return rows.Err()
}
