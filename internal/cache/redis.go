package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/tourbooking/config"
	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockTimeout = errors.New("timed out waiting for departure lock")

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisCache struct {
	client        redis.UniversalClient
	departuresTTL time.Duration
	lockTTL       time.Duration
	lockWait      time.Duration
	retryEvery    time.Duration
}

func NewRedisCache(cfg config.RedisConfig, departuresTTL, lockTTL, lockWait time.Duration) *RedisCache {
	return NewRedisCacheWithClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		departuresTTL, lockTTL, lockWait,
	)
}

func NewRedisCacheWithClient(client redis.UniversalClient, departuresTTL, lockTTL, lockWait time.Duration) *RedisCache {
	return &RedisCache{
		client:        client,
		departuresTTL: departuresTTL,
		lockTTL:       lockTTL,
		lockWait:      lockWait,
		retryEvery:    25 * time.Millisecond,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetDepartures returns nil without error on a cache miss.
func (c *RedisCache) GetDepartures(ctx context.Context) ([]domain.Departure, error) {
	data, err := c.client.Get(ctx, departuresKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var departures []domain.Departure
	if err := json.Unmarshal(data, &departures); err != nil {
		return nil, err
	}
	return departures, nil
}

func (c *RedisCache) SetDepartures(ctx context.Context, departures []domain.Departure) error {
	if c.departuresTTL <= 0 {
		return nil
	}
	payload, err := json.Marshal(departures)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, departuresKey(), payload, c.departuresTTL).Err()
}

func (c *RedisCache) InvalidateDepartures(ctx context.Context) error {
	return c.client.Del(ctx, departuresKey()).Err()
}

// Lock takes the departure lock with SETNX, polling until lockWait elapses.
// The lock expires after lockTTL so a crashed holder cannot wedge a departure.
func (c *RedisCache) Lock(ctx context.Context, departureID int64) (func(), error) {
	key := departureLockKey(departureID)
	token := uuid.NewString()

	deadline := time.Now().Add(c.lockWait)
	for {
		ok, err := c.client.SetNX(ctx, key, token, c.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire departure lock: %w", err)
		}
		if ok {
			return func() {
				_ = releaseScript.Run(context.Background(), c.client, []string{key}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryEvery):
		}
	}
}

func departuresKey() string {
	return "cache:departures"
}

func departureLockKey(departureID int64) string {
	return fmt.Sprintf("lock:departure:%d", departureID)
}
