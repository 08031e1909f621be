package store

import (
	"context"

	"github.com/dyluth/lanes/pkg/pipeline"
)

// Backend is the contract shared by the Redis client and the PostgreSQL store.
type Backend interface {
	pipeline.Source[Record]
	pipeline.Committer[Record]

	Put(ctx context.Context, r Record) (Record, error)
	Get(ctx context.Context, entityID string) (Record, error)
	Delete(ctx context.Context, entityID string) error
	Ping(ctx context.Context) error
	Close() error
}

// Notifier is implemented by backends that publish entity events.
type Notifier interface {
	SubscribeEntityEvents(ctx context.Context) (*Subscription, error)
}

var (
	_ Backend  = (*Client)(nil)
	_ Notifier = (*Client)(nil)
)
