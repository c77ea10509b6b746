package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/serp-rank-service/internal/entity"
)

const (
	latestStatusKey = "serp:status:latest"
	latestStatusTTL = 24 * time.Hour
)

// progressEvent is the JSON document pushed to subscribers.
type progressEvent struct {
	RunID             string  `json:"run_id"`
	Phase             string  `json:"phase"`
	ScriptRunning     bool    `json:"script_running"`
	Paused            bool    `json:"paused"`
	Captcha           bool    `json:"captcha"`
	ElapsedTime       float64 `json:"elapsed_time"`
	CompletedSearches int     `json:"completed_searches"`
	TotalSearches     int     `json:"total_searches"`
	PublishedAt       string  `json:"published_at"`
}

func newProgressEvent(s entity.ProgressSnapshot, now time.Time) progressEvent {
	return progressEvent{
		RunID:             s.RunID,
		Phase:             string(s.Phase),
		ScriptRunning:     s.Running,
		Paused:            s.Paused,
		Captcha:           s.CaptchaPending,
		ElapsedTime:       s.Elapsed.Seconds(),
		CompletedSearches: s.Completed,
		TotalSearches:     s.Total,
		PublishedAt:       now.UTC().Format(time.RFC3339),
	}
}

// ProgressPublisherImpl publishes run snapshots on a Redis channel and keeps
// the most recent one under a fixed key.
type ProgressPublisherImpl struct {
	client  *redis.Client
	channel string
}

// NewProgressPublisher creates a publisher on channel.
func NewProgressPublisher(client *redis.Client, channel string) *ProgressPublisherImpl {
	return &ProgressPublisherImpl{client: client, channel: channel}
}

// Publish sends the snapshot without the run log and report, which can be large.
func (p *ProgressPublisherImpl) Publish(ctx context.Context, snapshot entity.ProgressSnapshot) error {
	payload, err := json.Marshal(newProgressEvent(snapshot, time.Now()))
	if err != nil {
		return err
	}

	pipe := p.client.Pipeline()
	pipe.Publish(ctx, p.channel, payload)
	pipe.Set(ctx, latestStatusKey, payload, latestStatusTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish progress for run %s: %w", snapshot.RunID, err)
	}
	return nil
}

func (p *ProgressPublisherImpl) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *ProgressPublisherImpl) Close() error {
	return p.client.Close()
}
