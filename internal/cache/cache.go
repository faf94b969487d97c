package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/eduadmin/apiserver/config"
	"github.com/eduadmin/apiserver/internal/logger"
	"github.com/eduadmin/apiserver/types"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const detailPrefix = "student:detail:"

// ErrCacheMiss is returned by Lookup when no entry exists.
var ErrCacheMiss = errors.New("cache miss")

// NewClient connects to redis and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// StudentCache keeps student details in redis for ttl. Read and write
// failures are logged and treated as misses.
type StudentCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewStudentCache(client *redis.Client, ttl time.Duration) *StudentCache {
	return &StudentCache{
		client: client,
		ttl:    ttl,
		log:    logger.With("cache"),
	}
}

func detailKey(id int) string {
	return detailPrefix + strconv.Itoa(id)
}

// Lookup returns ErrCacheMiss when id is not cached.
func (c *StudentCache) Lookup(ctx context.Context, id int) (types.StudentDetail, error) {
	data, err := c.client.Get(ctx, detailKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.StudentDetail{}, ErrCacheMiss
		}
		return types.StudentDetail{}, fmt.Errorf("cache get: %w", err)
	}

	var detail types.StudentDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return types.StudentDetail{}, fmt.Errorf("cache unmarshal: %w", err)
	}
	return detail, nil
}

func (c *StudentCache) Get(ctx context.Context, id int) (types.StudentDetail, bool) {
	detail, err := c.Lookup(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.log.Warn().Err(err).Int("student_id", id).Msg("student cache read failed")
		}
		return types.StudentDetail{}, false
	}
	return detail, true
}

func (c *StudentCache) Set(ctx context.Context, detail types.StudentDetail) {
	data, err := json.Marshal(detail)
	if err != nil {
		c.log.Warn().Err(err).Int("student_id", detail.ID).Msg("student cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, detailKey(detail.ID), data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Int("student_id", detail.ID).Msg("student cache write failed")
	}
}

func (c *StudentCache) Invalidate(ctx context.Context, id int) {
	if err := c.client.Del(ctx, detailKey(id)).Err(); err != nil {
		c.log.Warn().Err(err).Int("student_id", id).Msg("student cache invalidate failed")
	}
}
