package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"stratflow-go/internal/model"
)

const (
	reviewHistoryLimit = 20
	reviewHistoryTTL   = 7 * 24 * time.Hour
)

// ReviewRepository 在 Redis 中保存每个用户最近的 AI 评审记录以及流式评审的停止令牌。
type ReviewRepository interface {
	GetHistory(ctx context.Context, entName, userID string) ([]model.ReviewRecord, error)
	Append(ctx context.Context, entName, userID string, record model.ReviewRecord) error
	SaveStopToken(ctx context.Context, entName, userID, token string, ttl time.Duration) error
	GetStopToken(ctx context.Context, entName, userID string) (string, error)
}

type redisReviewRepository struct {
	redisClient *redis.Client
}

// NewReviewRepository 创建一个新的 ReviewRepository 实例。
func NewReviewRepository(redisClient *redis.Client) ReviewRepository {
	return &redisReviewRepository{redisClient: redisClient}
}

func historyKey(entName, userID string) string {
	return fmt.Sprintf("review:%s:%s", entName, userID)
}

func stopTokenKey(entName, userID string) string {
	return fmt.Sprintf("review:stop:%s:%s", entName, userID)
}

// GetHistory 从 Redis 获取评审记录，没有记录时返回空切片。
func (r *redisReviewRepository) GetHistory(ctx context.Context, entName, userID string) ([]model.ReviewRecord, error) {
	jsonData, err := r.redisClient.Get(ctx, historyKey(entName, userID)).Result()
	if err == redis.Nil {
		return []model.ReviewRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review history: %w", err)
	}
	var records []model.ReviewRecord
	if err := json.Unmarshal([]byte(jsonData), &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal review history: %w", err)
	}
	return records, nil
}

// Append 追加一条记录，只保留最近 20 条。
func (r *redisReviewRepository) Append(ctx context.Context, entName, userID string, record model.ReviewRecord) error {
	records, err := r.GetHistory(ctx, entName, userID)
	if err != nil {
		return err
	}
	records = append(records, record)
	if len(records) > reviewHistoryLimit {
		records = records[len(records)-reviewHistoryLimit:]
	}
	jsonData, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal review history: %w", err)
	}
	if err := r.redisClient.Set(ctx, historyKey(entName, userID), jsonData, reviewHistoryTTL).Err(); err != nil {
		return fmt.Errorf("failed to set review history: %w", err)
	}
	return nil
}

func (r *redisReviewRepository) SaveStopToken(ctx context.Context, entName, userID, token string, ttl time.Duration) error {
	return r.redisClient.Set(ctx, stopTokenKey(entName, userID), token, ttl).Err()
}

// GetStopToken 没有令牌时返回空串。
func (r *redisReviewRepository) GetStopToken(ctx context.Context, entName, userID string) (string, error) {
	tok, err := r.redisClient.Get(ctx, stopTokenKey(entName, userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return tok, err
}
