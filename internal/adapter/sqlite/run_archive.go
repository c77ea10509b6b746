package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/user/serp-rank-service/internal/entity"
	"github.com/user/serp-rank-service/internal/repository"
)

var _ repository.ReportArchive = (*RunArchive)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS serp_runs (
	run_id TEXT PRIMARY KEY,
	target_domain TEXT NOT NULL,
	phase TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	completed_count INTEGER NOT NULL,
	total_count INTEGER NOT NULL,
	report TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS serp_classifications (
	run_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	keyword TEXT NOT NULL,
	location TEXT NOT NULL,
	bucket TEXT NOT NULL,
	matched_url TEXT NOT NULL,
	error TEXT NOT NULL,
	classified_at DATETIME NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// RunArchive stores finished runs in a local SQLite file.
type RunArchive struct {
	db *sql.DB
}

// New opens (or creates) the database at dsn.
func New(dsn string) (*RunArchive, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite archive: %w", err)
	}
	// One writer at a time; sqlite serializes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}
	return &RunArchive{db: db}, nil
}

func (a *RunArchive) Save(ctx context.Context, record *entity.RunRecord) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT OR REPLACE INTO serp_runs (
		run_id, target_domain, phase, started_at, finished_at, completed_count, total_count, report
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID, record.TargetDomain, string(record.Phase), record.StartedAt, record.FinishedAt,
		record.CompletedCount, record.TotalCount, record.Report,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", record.RunID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM serp_classifications WHERE run_id = ?`, record.RunID); err != nil {
		return fmt.Errorf("clear classifications: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO serp_classifications (
		run_id, position, keyword, location, bucket, matched_url, error, classified_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare classification insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range record.Classifications {
		if _, err := stmt.ExecContext(ctx,
			record.RunID, i, c.Term.Keyword, c.Term.Location, string(c.Bucket), c.MatchedURL, c.Error, c.At,
		); err != nil {
			return fmt.Errorf("insert classification %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", record.RunID, err)
	}
	return nil
}

func (a *RunArchive) Close() error {
	return a.db.Close()
}
