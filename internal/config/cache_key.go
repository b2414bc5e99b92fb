package config

import (
	"fmt"
)

// CacheKeyStruct builds the Redis keys shared by repositories and workers.
type CacheKeyStruct struct{}

// NewCacheKeyStruct returns the key builder.
func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateAnswersKey returns the hash holding a candidate's autosaved answers
// for one assignment.
func (r *CacheKeyStruct) CandidateAnswersKey(candidateKey, assignmentID string) string {
	return fmt.Sprintf("candidate:%s:assignment:%s:answers", candidateKey, assignmentID)
}

// CandidateEventsChannel returns the Redis PubSub channel carrying a
// candidate's session events.
func (r *CacheKeyStruct) CandidateEventsChannel(candidateKey string) string {
	return fmt.Sprintf("candidate:%s:events", candidateKey)
}

var CacheKey = NewCacheKeyStruct()
