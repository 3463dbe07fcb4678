package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"

	errx "github.com/invoice-bot-poc/server/internal/core/error"
	"github.com/invoice-bot-poc/server/internal/invoice/model"
	logx "github.com/invoice-bot-poc/server/pkg/logger"
)

// ErrSenderBusy is returned when another turn of the same sender holds the lock
// for longer than the wait budget.
var ErrSenderBusy = errors.New("sender turn already in progress")

// RedisLocker serializes read-modify-write cycles of one sender's session.
type RedisLocker struct {
	locker *redislock.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker holds locks for ttl and gives up with ErrSenderBusy after wait.
func NewRedisLocker(locker *redislock.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{locker: locker, ttl: ttl, wait: wait}
}

func (l *RedisLocker) lockKey(senderID string) string {
	return fmt.Sprintf("invoice:lock:%s", senderID)
}

// Lock blocks, retrying every 100ms, until the sender's lock is held or the
// wait budget runs out.
func (l *RedisLocker) Lock(ctx context.Context, senderID string) (func(), error) {
	key := l.lockKey(senderID)
	backoff := redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), int(l.wait/(100*time.Millisecond)))

	lock, err := l.locker.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: backoff})
	if errors.Is(err, redislock.ErrNotObtained) {
		logx.Warn().Str("key", key).Msg("could not obtain sender lock")
		return nil, ErrSenderBusy
	} else if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("error obtaining sender lock")
		return nil, errx.WrapRedis(err)
	}

	return func() {
		// release with a fresh context so a cancelled request still frees the lock
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logx.Warn().Err(err).Str("key", key).Msg("failed to release sender lock")
		}
	}, nil
}

var _ model.Locker = (*RedisLocker)(nil)
