package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	dependencyPrefix     = "cachedep:"
	invalidationChannel  = "doctree:cache:invalidate"
	defaultDependencyTTL = 24 * time.Hour
)

func dependencyKey(key string) string {
	return dependencyPrefix + key
}

var _ Sink = (*RedisSink)(nil)

// RedisSink bumps a version counter per dependency key and announces the
// touched keys on a pub/sub channel. Readers cache values together with the
// versions of their dependencies and treat a changed version as a miss.
type RedisSink struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewRedisSink(opts RedisOptions) *RedisSink {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		Protocol: 2, // Connection protocol
	})

	return NewRedisSinkFromClient(client, opts.TTL)
}

func NewRedisSinkFromClient(client *redis.Client, ttl time.Duration) *RedisSink {
	if ttl <= 0 {
		ttl = defaultDependencyTTL
	}

	return &RedisSink{client: client, ttl: ttl}
}

func (r *RedisSink) Touch(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, key := range keys {
			if err := p.Incr(ctx, dependencyKey(key)).Err(); err != nil {
				return err
			}
			if err := p.Expire(ctx, dependencyKey(key), r.ttl).Err(); err != nil {
				return err
			}
		}

		return p.Publish(ctx, invalidationChannel, strings.Join(keys, "\n")).Err()
	})
	if err != nil {
		return err
	}

	logrus.Debugf("touched %d cache dependencies", len(keys))
	return nil
}

// Versions returns the current version of each dependency key; keys never
// touched report 0.
func (r *RedisSink) Versions(ctx context.Context, keys []string) (map[string]int64, error) {
	out := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = dependencyKey(k)
	}

	values, err := r.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, err
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			out[keys[i]] = 0
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		out[keys[i]] = n
	}

	return out, nil
}

// Subscribe streams the keys touched by any process until ctx is done.
func (r *RedisSink) Subscribe(ctx context.Context) <-chan []string {
	out := make(chan []string)
	sub := r.client.Subscribe(ctx, invalidationChannel)

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- strings.Split(msg.Payload, "\n"):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

func (r *RedisSink) Close() error {
	return r.client.Close()
}
