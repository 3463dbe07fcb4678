package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	errx "github.com/invoice-bot-poc/server/internal/core/error"
	"github.com/invoice-bot-poc/server/internal/invoice/model"
	logx "github.com/invoice-bot-poc/server/pkg/logger"
)

const clientsKey = "invoice:clients"

// RedisClientRepository keeps every client record as one field of a hash.
type RedisClientRepository struct {
	rdb redis.Cmdable
}

func NewRedisClientRepository(rdb redis.Cmdable) *RedisClientRepository {
	return &RedisClientRepository{rdb: rdb}
}

func (r *RedisClientRepository) Get(ctx context.Context, key string) (*model.ClientRecord, error) {
	raw, err := r.rdb.HGet(ctx, clientsKey, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Str("client", key).Msg("failed to load client from redis")
		return nil, errx.WrapRedis(err)
	}

	var rec model.ClientRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		logx.Warn().Err(fmt.Errorf("%w: %w", errx.ErrStoreCorruption, err)).Str("client", key).Msg("ignoring unreadable client record")
		return nil, nil
	}
	return &rec, nil
}

func (r *RedisClientRepository) Put(ctx context.Context, key string, record model.ClientRecord) error {
	b, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal client record: %w", err)
	}
	if err := r.rdb.HSet(ctx, clientsKey, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("client", key).Msg("failed to store client in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.ClientRepository = (*RedisClientRepository)(nil)
