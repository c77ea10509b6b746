package repository

import (
	"context"

	"github.com/user/serp-rank-service/internal/entity"
)

// ProgressPublisher pushes run snapshots to external observers.
type ProgressPublisher interface {
	Publish(ctx context.Context, snapshot entity.ProgressSnapshot) error
}
