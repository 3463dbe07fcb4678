package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/invoice-bot-poc/server/internal/core/error"
	"github.com/invoice-bot-poc/server/internal/invoice/model"
	logx "github.com/invoice-bot-poc/server/pkg/logger"
)

type RedisSessionRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSessionRepository(rdb redis.Cmdable, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionRepository) sessionKey(senderID string) string {
	return fmt.Sprintf("invoice:session:%s", senderID)
}

// Get loads the sender's session. A missing key returns nil. An unreadable
// blob is logged and also returns nil so the sender starts over from IDLE.
func (r *RedisSessionRepository) Get(ctx context.Context, senderID string) (*model.Session, error) {
	key := r.sessionKey(senderID)

	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load session from redis")
		return nil, errx.WrapRedis(err)
	}

	var s model.Session
	if err := json.Unmarshal(raw, &s); err != nil || !s.Stage.Valid() {
		if err == nil {
			err = fmt.Errorf("unknown stage %q", s.Stage)
		}
		logx.Warn().Err(fmt.Errorf("%w: %w", errx.ErrStoreCorruption, err)).Str("key", key).Msg("discarding unreadable session")
		return nil, nil
	}
	if s.SenderID == "" {
		s.SenderID = senderID
	}
	return &s, nil
}

func (r *RedisSessionRepository) Put(ctx context.Context, session *model.Session) error {
	if session == nil || session.SenderID == "" {
		return fmt.Errorf("session without sender id")
	}
	session.UpdatedAt = time.Now().UTC()

	b, err := json.Marshal(session)
	if err != nil {
		logx.Error().Err(err).Str("sender", session.SenderID).Msg("failed to marshal session")
		return fmt.Errorf("marshal session: %w", err)
	}
	key := r.sessionKey(session.SenderID)

	// SET with TTL refreshes expiry on every touch
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to store session in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, senderID string) error {
	key := r.sessionKey(senderID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete session from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.SessionRepository = (*RedisSessionRepository)(nil)
