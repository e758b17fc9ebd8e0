package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/coreman2200/usagiclock/internal/schedule"
)

// Redis stores settings as a JSON string under prefix + StorageKey.
type Redis struct {
	client *redis.Client
	key    string
	log    zerolog.Logger
}

func NewRedis(client *redis.Client, prefix string, log zerolog.Logger) *Redis {
	key := schedule.StorageKey
	if prefix != "" {
		key = prefix + ":" + key
	}
	return &Redis{client: client, key: key, log: log.With().Str("store", "redis").Logger()}
}

func (r *Redis) Key() string { return r.key }

func (r *Redis) Load(ctx context.Context) schedule.Settings {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = ErrNotFound
		} else {
			err = fmt.Errorf("redis get failed: %w", err)
		}
		return orDefault(r.log, schedule.Settings{}, err)
	}
	s, err := decode(data)
	return orDefault(r.log, s, err)
}

func (r *Redis) Save(ctx context.Context, s schedule.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
