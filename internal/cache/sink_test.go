package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emrgen/doctree/internal/tester"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{}

func (failingSink) Touch(ctx context.Context, keys []string) error {
	return errors.New("sink down")
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Touch(context.Background(), []string{"a", "b"}))
	require.NoError(t, m.Touch(context.Background(), []string{"c"}))

	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
	assert.True(t, m.Contains("b"))
	assert.False(t, m.Contains("d"))

	m.Reset()
	assert.Empty(t, m.Keys())
}

func TestMulti(t *testing.T) {
	first, second := NewMemory(), NewMemory()
	multi := Multi{first, failingSink{}, second}

	err := multi.Touch(context.Background(), []string{"nodeid|1"})
	assert.Error(t, err)
	assert.Equal(t, []string{"nodeid|1"}, first.Keys())
	assert.Equal(t, []string{"nodeid|1"}, second.Keys())
}

func TestRedisSink(t *testing.T) {
	addr := tester.RedisAddr()
	if addr == "" {
		t.Skip("DOCTREE_TEST_REDIS not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(ctx).Err())

	sink := NewRedisSinkFromClient(client, time.Minute)
	defer sink.Close()

	key := "node|test|/" + time.Now().Format(time.RFC3339Nano)
	before, err := sink.Versions(ctx, []string{key})
	require.NoError(t, err)
	assert.Equal(t, int64(0), before[key])

	require.NoError(t, sink.Touch(ctx, []string{key}))
	require.NoError(t, sink.Touch(ctx, []string{key}))

	after, err := sink.Versions(ctx, []string{key})
	require.NoError(t, err)
	assert.Equal(t, int64(2), after[key])
}
