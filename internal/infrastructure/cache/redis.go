package cache

import (
	"context"
	"fmt"
	"time"

	"ticketpos/internal/config"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// Open 建立 Redis 连接并检测连通性
func Open(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return client, nil
}

// InitRedis 按配置初始化 Redis，未启用时返回 nil
func InitRedis(cfg *config.RedisConfig) *redis.Client {
	if !cfg.Enabled {
		log.Info("Redis 未启用，清理任务不做集群互斥")
		return nil
	}

	client, err := Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	log.Info("Redis 连接成功")
	return client
}
