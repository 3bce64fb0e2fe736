package core

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// FailedLoginsKey is the Redis list mirroring the failed-login audit file.
const FailedLoginsKey = "auth:failed_logins"

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// RedisFailedLoginLog mirrors failed-login entries onto a Redis list.
type RedisFailedLoginLog struct {
	client redis.Cmdable
	key    string
	now    func() time.Time
}

func NewRedisFailedLoginLog(client redis.Cmdable) *RedisFailedLoginLog {
	return &RedisFailedLoginLog{client: client, key: FailedLoginsKey, now: time.Now}
}

// Record RPUSHes the tab-joined entry so the list keeps file order.
func (l *RedisFailedLoginLog) Record(ctx context.Context, sourceAddress string) error {
	entry := FailedLoginEntry{At: l.now(), SourceAddress: sourceAddress}
	return l.client.RPush(ctx, l.key, entry.Line()).Err()
}

// Count returns the number of mirrored entries.
func (l *RedisFailedLoginLog) Count(ctx context.Context) (int64, error) {
	return l.client.LLen(ctx, l.key).Result()
}
