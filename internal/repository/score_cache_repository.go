package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/EduPulseAI/engagement-service/internal/models"
	appErrors "github.com/EduPulseAI/engagement-service/pkg/errors"
)

const latestScoreKeyPrefix = "engagement:latest:"

// ScoreCacheRepository keeps the most recent engagement score per student in
// Redis so the ops API can answer lookups without replaying the stream.
type ScoreCacheRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewScoreCacheRepository constructs the repository. The TTL should cover at
// least one window plus grace so a live window's score never expires between
// refinements.
func NewScoreCacheRepository(client *redis.Client, ttl time.Duration) *ScoreCacheRepository {
	return &ScoreCacheRepository{client: client, ttl: ttl}
}

// SetLatest stores the score as the student's most recent one.
func (r *ScoreCacheRepository) SetLatest(ctx context.Context, score models.EngagementScore) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("marshal score for %s: %w", score.Envelope.StudentID, err)
	}

	key := latestScoreKeyPrefix + score.Envelope.StudentID
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// GetLatest returns the student's most recent score, or ErrCacheMiss when no
// score is cached.
func (r *ScoreCacheRepository) GetLatest(ctx context.Context, studentID string) (*models.EngagementScore, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}

	key := latestScoreKeyPrefix + studentID
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var score models.EngagementScore
	if err := json.Unmarshal(raw, &score); err != nil {
		return nil, fmt.Errorf("unmarshal cached score for %s: %w", studentID, err)
	}

	return &score, nil
}
