package journal

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "cvstore:saga:"

// Redis stores the journal in Redis: a set of pending batch ids, and per batch a hash
// with the start time plus a list of committed file ids.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a journal on client. An empty prefix uses "cvstore:saga:".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) pendingKey() string {
	return r.prefix + "pending"
}

func (r *Redis) metaKey(batchID string) string {
	return r.prefix + "batch:" + batchID
}

func (r *Redis) filesKey(batchID string) string {
	return r.prefix + "batch:" + batchID + ":files"
}

func (r *Redis) Begin(ctx context.Context, batchID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.metaKey(batchID), "started_at", time.Now().UnixMilli())
		pipe.SAdd(ctx, r.pendingKey(), batchID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to begin batch %s: %w", batchID, err)
	}
	return nil
}

func (r *Redis) Record(ctx context.Context, batchID, fileID string) error {
	if err := r.client.RPush(ctx, r.filesKey(batchID), fileID).Err(); err != nil {
		return fmt.Errorf("failed to record file %s in batch %s: %w", fileID, batchID, err)
	}
	return nil
}

func (r *Redis) Complete(ctx context.Context, batchID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, r.pendingKey(), batchID)
		pipe.Del(ctx, r.metaKey(batchID), r.filesKey(batchID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to complete batch %s: %w", batchID, err)
	}
	return nil
}

func (r *Redis) Pending(ctx context.Context) ([]Batch, error) {
	ids, err := r.client.SMembers(ctx, r.pendingKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending batches: %w", err)
	}

	batches := make([]Batch, 0, len(ids))
	for _, id := range ids {
		started, err := r.client.HGet(ctx, r.metaKey(id), "started_at").Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("failed to read batch %s: %w", id, err)
		}

		files, err := r.client.LRange(ctx, r.filesKey(id), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read files of batch %s: %w", id, err)
		}

		b := Batch{ID: id, FileIDs: files}
		if ms, err := strconv.ParseInt(started, 10, 64); err == nil {
			b.StartedAt = time.UnixMilli(ms)
		}
		batches = append(batches, b)
	}

	sortBatches(batches)
	return batches, nil
}
