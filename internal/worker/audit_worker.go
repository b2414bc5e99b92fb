package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/testcenter/internal/config"
	"github.com/stemsi/testcenter/internal/model"
)

// Batching of the audit queue.
const (
	// BatchSize is the number of buffered records that forces a flush.
	BatchSize = 50
	// BatchTimeout is the longest a record waits in the buffer.
	BatchTimeout = 2 * time.Second
	// PollTimeout bounds each BLPop. Must be >= 1s to satisfy Redis.
	PollTimeout = 1 * time.Second
)

var auditColumns = []string{
	"candidate_key", "assignment_id", "auto_submitted", "outcome", "error_kind",
	"message", "score", "answered", "remaining_secs", "recorded_at",
}

// AuditWorker drains the submission audit queue into PostgreSQL in batches.
type AuditWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewAuditWorker creates a worker reading the audit queue from rdb and
// writing to pool.
func NewAuditWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "audit_worker").Logger(),
	}
}

// Start blocks until ctx is cancelled, flushing whatever is buffered on exit.
func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AuditWorker started")

	buffer := make([]*model.SubmissionAudit, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistSubmissionAuditQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			sleep(ctx, 3*time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		audit, err := decodeAudit(result[1])
		if err != nil {
			// Malformed entries can never succeed.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed audit")
			continue
		}
		buffer = append(buffer, audit)
	}
}

func decodeAudit(raw string) (*model.SubmissionAudit, error) {
	var a model.SubmissionAudit
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, err
	}
	if a.CandidateKey == "" || a.AssignmentID == "" {
		return nil, errors.New("audit without candidate or assignment")
	}
	if a.RecordedAt.IsZero() {
		a.RecordedAt = time.Now()
	}
	return &a, nil
}

func auditRow(a *model.SubmissionAudit) []interface{} {
	return []interface{}{
		a.CandidateKey, a.AssignmentID.String(), a.AutoSubmitted, a.Outcome, nullable(a.ErrorKind),
		nullable(a.Message), a.Score, a.Answered, a.Remaining, a.RecordedAt,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// flushSafe attempts bulk insert, then row-by-row insert, then requeue.
func (w *AuditWorker) flushSafe(ctx context.Context, batch []*model.SubmissionAudit) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
		return
	}
	w.log.Debug().Int("count", len(batch)).Msg("Audits persisted")
}

func (w *AuditWorker) bulkInsert(ctx context.Context, batch []*model.SubmissionAudit) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, a := range batch {
		rows = append(rows, auditRow(a))
	}

	_, err := w.pool.CopyFrom(ctx, pgx.Identifier{"submission_audits"}, auditColumns, pgx.CopyFromRows(rows))
	return err
}

func (w *AuditWorker) fallbackInsert(ctx context.Context, batch []*model.SubmissionAudit) {
	requeueList := make([]*model.SubmissionAudit, 0)

	for _, a := range batch {
		_, err := w.pool.Exec(ctx,
			`INSERT INTO submission_audits
			 (candidate_key, assignment_id, auto_submitted, outcome, error_kind, message, score, answered, remaining_secs, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			auditRow(a)...,
		)
		if err != nil {
			w.log.Error().Err(err).Str("assignment_id", a.AssignmentID.String()).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, a)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *AuditWorker) requeue(ctx context.Context, items []*model.SubmissionAudit) {
	pipe := w.rdb.Pipeline()
	for _, a := range items {
		data, _ := json.Marshal(a)
		pipe.RPush(ctx, config.WorkerKey.PersistSubmissionAuditQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue audits to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed audits back to Redis")
	// Back off so a hard-down database is not hammered.
	sleep(ctx, 2*time.Second)
}

func (w *AuditWorker) shutdown(buffer []*model.SubmissionAudit) {
	w.log.Info().Msg("AuditWorker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
