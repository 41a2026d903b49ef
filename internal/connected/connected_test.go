package connected

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_GetLoadsOnce(t *testing.T) {
	var calls atomic.Int32
	load := func(ctx context.Context, d Descriptor) ([]any, error) {
		calls.Add(1)
		return []any{d.Name, d.Target}, nil
	}

	r := New(load,
		Descriptor{Name: "Tags", Kind: Objects, Target: "tag"},
		Descriptor{Name: "Children", Kind: Documents, Target: "node"},
	)

	assert.False(t, r.Loaded("Tags"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := r.Get(context.Background(), "Tags")
			assert.NoError(t, err)
			assert.Equal(t, 2, c.Len())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, r.Loaded("Tags"))
	assert.False(t, r.Loaded("Children"))

	c, err := r.Get(context.Background(), "Children")
	require.NoError(t, err)
	assert.Equal(t, "node", c.Descriptor.Target)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRepository_LoadsNamesIndependently(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context, d Descriptor) ([]any, error) {
		if d.Name == "Slow" {
			close(started)
			<-release
		}
		return []any{d.Name}, nil
	}
	r := New(load, Descriptor{Name: "Slow"}, Descriptor{Name: "Fast"})

	slow := make(chan error, 1)
	go func() {
		_, err := r.Get(context.Background(), "Slow")
		slow <- err
	}()
	<-started

	fast := make(chan error, 1)
	go func() {
		_, err := r.Get(context.Background(), "Fast")
		fast <- err
	}()
	select {
	case err := <-fast:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Fast waited for Slow to load")
	}
	assert.False(t, r.Loaded("Slow"))

	close(release)
	require.NoError(t, <-slow)
	assert.True(t, r.Loaded("Slow"))
}

func TestRepository_Unknown(t *testing.T) {
	r := New(func(ctx context.Context, d Descriptor) ([]any, error) { return nil, nil },
		Descriptor{Name: "Tags"})

	_, err := r.Get(context.Background(), "Nope")
	assert.ErrorIs(t, err, ErrUnknownCollection)
	assert.False(t, r.Contains("Nope"))
	assert.True(t, r.Contains("Tags"))
	assert.Equal(t, []string{"Tags"}, r.Names())
}

func TestRepository_LoadErrorNotCached(t *testing.T) {
	fail := true
	load := func(ctx context.Context, d Descriptor) ([]any, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return []any{1}, nil
	}
	r := New(load, Descriptor{Name: "Links"})

	_, err := r.Get(context.Background(), "Links")
	assert.Error(t, err)
	assert.False(t, r.Loaded("Links"))

	fail = false
	c, err := r.Get(context.Background(), "Links")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}

func TestRepository_Reset(t *testing.T) {
	var calls int
	r := New(func(ctx context.Context, d Descriptor) ([]any, error) {
		calls++
		return nil, nil
	}, Descriptor{Name: "Categories"})

	_, _ = r.Get(context.Background(), "Categories")
	r.Reset()
	_, _ = r.Get(context.Background(), "Categories")
	assert.Equal(t, 2, calls)
}

func TestRepository_Dynamic(t *testing.T) {
	types := []string{"article", "news"}
	names := func() []string {
		out := make([]string, 0, len(types))
		for _, t := range types {
			out = append(out, "Children."+t)
		}
		return out
	}
	resolve := func(name string) (Descriptor, bool) {
		typeName, ok := strings.CutPrefix(name, "Children.")
		if !ok {
			return Descriptor{}, false
		}
		for _, t := range types {
			if t == typeName {
				return Descriptor{Kind: Documents, Target: t}, true
			}
		}
		return Descriptor{}, false
	}
	load := func(ctx context.Context, d Descriptor) ([]any, error) {
		return []any{d.Target}, nil
	}

	r := NewDynamic(load, names, resolve)
	assert.Equal(t, []string{"Children.article", "Children.news"}, r.Names())

	c, err := r.Get(context.Background(), "Children.news")
	require.NoError(t, err)
	assert.Equal(t, "Children.news", c.Descriptor.Name)
	assert.Equal(t, []any{"news"}, c.Items)

	types = append(types, "blog")
	assert.True(t, r.Contains("Children.blog"))
	assert.False(t, r.Contains("Tags"))
}
