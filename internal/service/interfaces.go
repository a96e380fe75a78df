package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"homework_notifier/internal/domain"
)

type Source interface {
	ID() string
	FetchStatuses(ctx context.Context, since int64) (*domain.StatusBatch, error)
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type Publisher interface {
	Publish(ctx context.Context, n *domain.Notification) error
	Close() error
}

type HistoryStore interface {
	Save(ctx context.Context, n *domain.Notification) error
}
