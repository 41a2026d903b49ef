package tree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/doctree/internal/cachekey"
)

func TestService_Order(t *testing.T) {
	f := newFixture(t)
	a := f.insert(f.root, "A")
	b := f.insert(f.root, "B")
	c := f.insert(f.root, "C")

	tests := []struct {
		name string
		move func() error
		want []string
	}{
		{name: "move up", move: func() error { return f.svc.MoveUp(f.ctx, c) }, want: []string{"A", "C", "B"}},
		{name: "move up at top", move: func() error { return f.svc.MoveUp(f.ctx, a) }, want: []string{"A", "C", "B"}},
		{name: "move down", move: func() error { return f.svc.MoveDown(f.ctx, a) }, want: []string{"C", "A", "B"}},
		{name: "set order clamps", move: func() error { return f.svc.SetOrder(f.ctx, c, 10) }, want: []string{"A", "B", "C"}},
		{name: "set order first", move: func() error { return f.svc.SetOrder(f.ctx, b, 0) }, want: []string{"B", "A", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.move())
			assert.Equal(t, tt.want, f.childNames(f.root))
		})
	}

	assert.True(t, f.cache.Contains(cachekey.NodeOrderKey))
	assert.True(t, f.cache.Contains(cachekey.ChildNodes("main", "/")))
	assert.Equal(t, 0, b.Structural.Order)
}

func TestService_OrderGuarded(t *testing.T) {
	f := newFixture(t, WithGuard(func(ctx context.Context, e *Event) (bool, string) {
		if e.Type == EventOrder {
			return false, "order is locked"
		}
		return true, ""
	}))
	f.insert(f.root, "A")
	b := f.insert(f.root, "B")

	require.NoError(t, f.svc.MoveUp(f.ctx, b))
	assert.Equal(t, "order is locked", b.CancelReason())
	assert.Equal(t, []string{"A", "B"}, f.childNames(f.root))

	assert.ErrorIs(t, f.svc.MoveUp(f.ctx, f.root), ErrValidation)
}
