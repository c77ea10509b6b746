package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/serp-rank-service/internal/entity"
)

const schema = `
CREATE TABLE IF NOT EXISTS serp_runs (
	run_id          TEXT PRIMARY KEY,
	target_domain   TEXT NOT NULL,
	phase           TEXT NOT NULL,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ NOT NULL,
	completed_count INTEGER NOT NULL,
	total_count     INTEGER NOT NULL,
	report          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS serp_classifications (
	run_id      TEXT NOT NULL REFERENCES serp_runs (run_id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	keyword     TEXT NOT NULL,
	location    TEXT NOT NULL,
	bucket      TEXT NOT NULL,
	matched_url TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	classified_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// RunArchiveImpl stores finished runs in PostgreSQL.
type RunArchiveImpl struct {
	db *pgxpool.Pool
}

// NewRunArchive connects to dsn and makes sure the archive tables exist.
func NewRunArchive(ctx context.Context, dsn string) (*RunArchiveImpl, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}
	return &RunArchiveImpl{db: db}, nil
}

// Save writes the run row and all of its classifications in one transaction.
// Saving the same run again replaces its rows.
func (r *RunArchiveImpl) Save(ctx context.Context, record *entity.RunRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO serp_runs (run_id, target_domain, phase, started_at, finished_at, completed_count, total_count, report)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (run_id) DO UPDATE SET
		   phase = EXCLUDED.phase,
		   finished_at = EXCLUDED.finished_at,
		   completed_count = EXCLUDED.completed_count,
		   report = EXCLUDED.report`,
		record.RunID, record.TargetDomain, string(record.Phase), record.StartedAt, record.FinishedAt,
		record.CompletedCount, record.TotalCount, record.Report,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", record.RunID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM serp_classifications WHERE run_id = $1`, record.RunID); err != nil {
		return err
	}

	if len(record.Classifications) > 0 {
		batch := &pgx.Batch{}
		for i, c := range record.Classifications {
			batch.Queue(`INSERT INTO serp_classifications (run_id, position, keyword, location, bucket, matched_url, error, classified_at)
			             VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				record.RunID, i, c.Term.Keyword, c.Term.Location, string(c.Bucket), c.MatchedURL, c.Error, c.At)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert classifications for run %s: %w", record.RunID, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *RunArchiveImpl) Close() error {
	r.db.Close()
	return nil
}
