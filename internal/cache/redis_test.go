package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableClient points at a closed port so every command fails fast.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "cache:departures", departuresKey())
	assert.Equal(t, "lock:departure:42", departureLockKey(42))
}

func TestRedisCache_Lock_ConnectionError(t *testing.T) {
	c := NewRedisCacheWithClient(unreachableClient(), time.Minute, time.Second, time.Second)
	defer c.Close()

	unlock, err := c.Lock(context.Background(), 1)

	require.Error(t, err)
	assert.Nil(t, unlock)
	assert.Contains(t, err.Error(), "acquire departure lock")
}

func TestRedisCache_SetDepartures_DisabledTTLSkipsRedis(t *testing.T) {
	c := NewRedisCacheWithClient(unreachableClient(), 0, time.Second, time.Second)
	defer c.Close()

	err := c.SetDepartures(context.Background(), []domain.Departure{{ID: 1}})
	assert.NoError(t, err)
}

func TestRedisCache_GetDepartures_ConnectionError(t *testing.T) {
	c := NewRedisCacheWithClient(unreachableClient(), time.Minute, time.Second, time.Second)
	defer c.Close()

	departures, err := c.GetDepartures(context.Background())
	assert.Error(t, err)
	assert.Nil(t, departures)
}
