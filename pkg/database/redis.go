package database

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"stratflow-go/internal/config"
	"stratflow-go/pkg/log"
)

// RDB 保存登出黑名单、AI 评审历史和 Kafka 重试计数。
var RDB *redis.Client

// InitRedis 初始化 Redis 客户端连接，启动时连不上直接退出。
func InitRedis(cfg config.RedisConfig) {
	RDB = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := RDB.Ping(ctx).Err(); err != nil {
		log.Fatalf("无法连接 Redis %s: %v", cfg.Addr, err)
	}

	log.Infof("Redis 连接成功: %s db=%d", cfg.Addr, cfg.DB)
}
