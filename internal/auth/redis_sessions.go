package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/crabby-crew/backend/internal/config"
)

const redisSessionPrefix = "crabby-crew:session:"

// RedisSessions shares sessions between server instances. Keys carry a TTL, so
// redis expires them on its own.
type RedisSessions struct {
	rdb *goredis.Client
}

func NewRedisSessions(cfg config.Redis) (*RedisSessions, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisSessions{rdb: rdb}, nil
}

func (r *RedisSessions) Close() error { return r.rdb.Close() }

func (r *RedisSessions) Create(ctx context.Context, s Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, redisSessionPrefix+s.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (r *RedisSessions) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.rdb.Get(ctx, redisSessionPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (r *RedisSessions) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, redisSessionPrefix+id).Err()
}

func (r *RedisSessions) Purge(context.Context) (int, error) {
	return 0, nil
}
