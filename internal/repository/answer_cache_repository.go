package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stemsi/testcenter/internal/config"
	"github.com/stemsi/testcenter/internal/model"
)

// AnswerCacheRepository autosaves answers in a Redis hash per candidate and
// assignment, so an in-progress attempt can be resumed after a restart or a
// reconnect.
type AnswerCacheRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewAnswerCacheRepository creates a new AnswerCacheRepository.
func NewAnswerCacheRepository(rdb *redis.Client, ttl time.Duration) *AnswerCacheRepository {
	return &AnswerCacheRepository{rdb: rdb, ttl: ttl}
}

// Save upserts one answer and refreshes the hash expiry.
func (r *AnswerCacheRepository) Save(ctx context.Context, candidateKey string, assignmentID model.AssignmentID, questionID model.QuestionID, optionIndex int) error {
	key := config.CacheKey.CandidateAnswersKey(candidateKey, assignmentID.String())

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, questionID.String(), optionIndex)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Load returns the autosaved answers; an unknown attempt yields an empty map.
func (r *AnswerCacheRepository) Load(ctx context.Context, candidateKey string, assignmentID model.AssignmentID) (model.AnswerMap, error) {
	key := config.CacheKey.CandidateAnswersKey(candidateKey, assignmentID.String())
	raw, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return decodeAnswers(raw), nil
}

// Clear drops the autosaved answers once the attempt is over.
func (r *AnswerCacheRepository) Clear(ctx context.Context, candidateKey string, assignmentID model.AssignmentID) error {
	return r.rdb.Del(ctx, config.CacheKey.CandidateAnswersKey(candidateKey, assignmentID.String())).Err()
}

// decodeAnswers skips fields that are not option indices.
func decodeAnswers(raw map[string]string) model.AnswerMap {
	out := make(model.AnswerMap, len(raw))
	for qid, v := range raw {
		idx, err := strconv.Atoi(v)
		if err != nil || idx < 0 {
			continue
		}
		out[model.QuestionID(qid)] = idx
	}
	return out
}
