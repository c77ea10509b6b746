package redis

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/serp-rank-service/internal/entity"
)

func TestProgressEventFields(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	snap := entity.ProgressSnapshot{
		RunID:          "abc",
		Phase:          entity.PhaseRunning,
		Running:        true,
		CaptchaPending: true,
		Elapsed:        90 * time.Second,
		Completed:      3,
		Total:          10,
		Log:            "not published",
	}

	raw, err := json.Marshal(newProgressEvent(snap, now))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got["run_id"] != "abc" || got["phase"] != "running" {
		t.Errorf("unexpected identity fields: %v", got)
	}
	if got["captcha"] != true || got["script_running"] != true || got["paused"] != false {
		t.Errorf("unexpected flags: %v", got)
	}
	if got["elapsed_time"] != 90.0 || got["completed_searches"] != 3.0 || got["total_searches"] != 10.0 {
		t.Errorf("unexpected counters: %v", got)
	}
	if got["published_at"] != "2024-05-01T12:00:00Z" {
		t.Errorf("unexpected published_at: %v", got["published_at"])
	}
	if _, ok := got["output"]; ok {
		t.Errorf("run log must not be published")
	}
}

// Runs only against a real server: REDIS_TEST_ADDR=localhost:6379 go test ./...
func TestProgressPublisherRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	p := NewProgressPublisher(client, "serp:progress:test")
	defer p.Close()

	sub := client.Subscribe(ctx, "serp:progress:test")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := p.Publish(ctx, entity.ProgressSnapshot{RunID: "r1", Phase: entity.PhaseCompleted}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var ev progressEvent
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.RunID != "r1" || ev.Phase != "completed" {
		t.Errorf("unexpected event: %+v", ev)
	}

	latest, err := client.Get(ctx, latestStatusKey).Result()
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest != msg.Payload {
		t.Errorf("latest status differs from published payload")
	}
}
