package repository

import (
	"context"

	"github.com/user/serp-rank-service/internal/entity"
)

// ReportArchive stores the summary of terminated runs. It is write-only from
// the service's point of view.
type ReportArchive interface {
	// Save stores a run record and its per-term classifications.
	Save(ctx context.Context, record *entity.RunRecord) error
	Close() error
}
