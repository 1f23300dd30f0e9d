package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"securebank-chat/internal/domain"
)

const redisKeyPrefix = "securebank:agent-storage:"

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisStore guarda el registro bajo una clave por instalacion, sin TTL.
type RedisStore struct {
	client  redisKV
	key     string
	timeout time.Duration
}

func NewRedisStore(client *redis.Client, installID string) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client not configured")
	}
	installID = strings.TrimSpace(installID)
	if installID == "" {
		return nil, errors.New("install id required for redis session store")
	}
	return &RedisStore{
		client:  client,
		key:     redisKeyPrefix + installID,
		timeout: 500 * time.Millisecond,
	}, nil
}

func (s *RedisStore) Load(ctx context.Context) (domain.SessionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return domain.SessionRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.SessionRecord{}, err
	}
	var rec domain.SessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := validate(rec); err != nil {
		return domain.SessionRecord{}, err
	}
	return rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec domain.SessionRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ok, err := s.client.SetNX(ctx, s.key, string(data), 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrExists
	}
	return nil
}
