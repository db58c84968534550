package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Run statuses stored in the journal.
const (
	RunStatusCompleted = "completed"
	RunStatusAborted   = "aborted"
)

// RunRecord summarizes one batch. Payloads are not stored.
type RunRecord struct {
	RunID      string    `json:"runId"`
	JobKey     int64     `json:"jobKey"`
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	Items      int       `json:"items"`
	Emitted    int       `json:"emitted"`
	Captured   int       `json:"captured"`
	Normalized int       `json:"normalized"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMS int64     `json:"durationMs"`
}

// Journal keeps the most recent run records in Redis: one key per run with a
// TTL plus a capped list of run IDs, newest first.
type Journal struct {
	client     *redis.Client
	prefix     string
	maxEntries int64
	ttl        time.Duration
}

func NewJournal(client *redis.Client, prefix string, maxEntries int, ttl time.Duration) *Journal {
	return &Journal{
		client:     client,
		prefix:     prefix,
		maxEntries: int64(maxEntries),
		ttl:        ttl,
	}
}

func (j *Journal) listKey() string {
	return j.prefix + ":recent"
}

func (j *Journal) runKey(runID string) string {
	return fmt.Sprintf("%s:%s", j.prefix, runID)
}

// Record stores rec and trims the recent list.
func (j *Journal) Record(ctx context.Context, rec RunRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	pipe := j.client.TxPipeline()
	pipe.Set(ctx, j.runKey(rec.RunID), data, j.ttl)
	pipe.LPush(ctx, j.listKey(), rec.RunID)
	if j.maxEntries > 0 {
		pipe.LTrim(ctx, j.listKey(), 0, j.maxEntries-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record run %s: %w", rec.RunID, err)
	}
	return nil
}

// Get loads one run record. It returns redis.Nil when the run is unknown
// or expired.
func (j *Journal) Get(ctx context.Context, runID string) (*RunRecord, error) {
	data, err := j.client.Get(ctx, j.runKey(runID)).Bytes()
	if err != nil {
		return nil, err
	}
	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal run record: %w", err)
	}
	return &rec, nil
}

// Recent returns up to n records, newest first. Expired runs are skipped.
func (j *Journal) Recent(ctx context.Context, n int) ([]RunRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	ids, err := j.client.LRange(ctx, j.listKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}

	records := make([]RunRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := j.Get(ctx, id)
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}
