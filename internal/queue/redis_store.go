package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	dedupKeyPrefix = "tasks:dedup:"
	lockKeyPrefix  = "tasks:lock:"
	inboxKeyPrefix = "notifications:user:"
)

// RedisStore holds the small pieces of shared state the API and worker need:
// de-duplication markers, scan locks and per-user notification inboxes.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
	}
}

// MarkOnce records key and reports whether this call was the first to do so
// within ttl.
func (s *RedisStore) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	isNew, err := s.client.SetNX(ctx, dedupKeyPrefix+key, 1, ttl).Result()
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("redis error checking idempotency")
		return false, fmt.Errorf("redis error: %w", err)
	}
	return isNew, nil
}

// Forget removes a marker so the key can be processed again.
func (s *RedisStore) Forget(ctx context.Context, key string) error {
	return s.client.Del(ctx, dedupKeyPrefix+key).Err()
}

// releaseLockScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireLock attempts to acquire a distributed lock. The returned token
// identifies this holder and must be handed back to ReleaseLock.
func (s *RedisStore) AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	success, err := s.client.SetNX(ctx, lockKeyPrefix+name, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !success {
		return "", false, nil
	}
	return token, true, nil
}

// ReleaseLock releases the lock if token still owns it. A lock that expired
// and was taken by another holder is left in place.
func (s *RedisStore) ReleaseLock(ctx context.Context, name, token string) error {
	return releaseLockScript.Run(ctx, s.client, []string{lockKeyPrefix + name}, token).Err()
}

// PushInbox prepends payload to the user's inbox and trims it to limit entries.
func (s *RedisStore) PushInbox(ctx context.Context, userID int64, payload []byte, limit int64) error {
	key := inboxKey(userID)

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, limit-1)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to push notification")
		return err
	}
	return nil
}

// Inbox returns up to limit notifications for the user, newest first.
func (s *RedisStore) Inbox(ctx context.Context, userID int64, limit int64) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	return s.client.LRange(ctx, inboxKey(userID), 0, limit-1).Result()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func inboxKey(userID int64) string {
	return inboxKeyPrefix + strconv.FormatInt(userID, 10)
}
