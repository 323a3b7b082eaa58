package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sma-attendance-api/pkg/config"
)

// SummaryKeyPrefix namespaces cached attendance rollups.
const SummaryKeyPrefix = "attendance:summary"

// NewRedis returns a configured Redis client.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// SummaryKey builds the cache key for a student's rollup under a filter fingerprint.
func SummaryKey(studentID, fingerprint string) string {
	return fmt.Sprintf("%s:%s:%s", SummaryKeyPrefix, studentID, fingerprint)
}

// SummaryPattern matches every cached rollup for a student.
func SummaryPattern(studentID string) string {
	return fmt.Sprintf("%s:%s:*", SummaryKeyPrefix, studentID)
}
