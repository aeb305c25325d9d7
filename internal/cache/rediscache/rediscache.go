package rediscache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisCache is a plain byte cache. Callers treat every error as a miss.
type RedisCache struct {
	c *redis.Client
}

func New(addr string) *RedisCache {
	return NewWithClient(redis.NewClient(&redis.Options{
		Addr: addr,
	}))
}

func NewWithClient(c *redis.Client) *RedisCache {
	return &RedisCache{c: c}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}
	return val, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.c.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	if err := r.c.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "redis del")
	}
	return nil
}

// Отсутствующая версия считается нулевой.
var setIfVersion = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v == false then v = '0' end
if v ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

func (r *RedisCache) Version(ctx context.Context, verKey string) (int64, error) {
	v, err := r.c.Get(ctx, verKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "redis get version")
	}
	return v, nil
}

func (r *RedisCache) Bump(ctx context.Context, verKey string, ttl time.Duration) error {
	_, err := r.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, verKey)
		p.PExpire(ctx, verKey, ttl)
		return nil
	})
	return errors.Wrap(err, "redis bump version")
}

// SetIfVersion stores value only while verKey still holds ver.
func (r *RedisCache) SetIfVersion(ctx context.Context, verKey string, ver int64, key string, value []byte, ttl time.Duration) (bool, error) {
	n, err := setIfVersion.Run(ctx, r.c, []string{verKey, key},
		strconv.FormatInt(ver, 10), value, ttl.Milliseconds()).Int()
	if err != nil {
		return false, errors.Wrap(err, "redis set if version")
	}
	return n == 1, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return errors.Wrap(r.c.Ping(ctx).Err(), "redis ping")
}

func (r *RedisCache) Close() error {
	return r.c.Close()
}

// ActiveRouteVersionKey counts saves of (carrier, day); it guards cache fills.
func ActiveRouteVersionKey(carrierID int64, date time.Time) string {
	return fmt.Sprintf("route:%d:%s:ver", carrierID, date.Format("2006-01-02"))
}

// ActiveRouteKey is the cache key of a carrier's active trace for one day.
func ActiveRouteKey(carrierID int64, date time.Time) string {
	return fmt.Sprintf("route:%d:%s:active", carrierID, date.Format("2006-01-02"))
}
