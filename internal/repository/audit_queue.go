package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/stemsi/testcenter/internal/config"
	"github.com/stemsi/testcenter/internal/model"
)

// AuditQueue hands submission audits to the audit worker through a Redis list.
type AuditQueue struct {
	rdb *redis.Client
}

// NewAuditQueue creates a new AuditQueue.
func NewAuditQueue(rdb *redis.Client) *AuditQueue {
	return &AuditQueue{rdb: rdb}
}

// Record enqueues one audit entry.
func (q *AuditQueue) Record(ctx context.Context, a model.SubmissionAudit) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal audit: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionAuditQueue, data).Err()
}
