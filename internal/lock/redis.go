package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const acquirePollInterval = 50 * time.Millisecond

// releaseScript deletes the key only while we still hold it, so an expired
// lock taken over by another process is never released from here.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker over a shared Redis using SET NX PX, for
// deployments that run more than one API replica.
type RedisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(url string) (*RedisLocker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisLocker{rdb: redis.NewClient(opt)}, nil
}

// NewRedisLockerClient wraps an existing client. Tests use it with miniredis.
func NewRedisLockerClient(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	token := uuid.New().String()
	rkey := "lock:" + key
	for {
		ok, err := l.rdb.SetNX(ctx, rkey, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			var once sync.Once
			release := func() {
				once.Do(func() {
					rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = releaseScript.Run(rctx, l.rdb, []string{rkey}, token).Err()
				})
			}
			return release, nil
		}
		select {
		case <-time.After(acquirePollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
