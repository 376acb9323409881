package registry

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlugin struct {
	label string
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	r := New[*fakePlugin]("detector", zerolog.Nop())

	r.Register("limit_up", func(cfg map[string]any) (*fakePlugin, error) {
		return &fakePlugin{label: "limit_up"}, nil
	}, Meta{Priority: 100, Version: "1.0"})

	require.True(t, r.Has("limit_up"))
	p, err := r.Create("limit_up", nil)
	require.NoError(t, err)
	assert.Equal(t, "limit_up", p.label)
}

func TestRegistry_CreateUnknown(t *testing.T) {
	r := New[*fakePlugin]("detector", zerolog.Nop())

	_, err := r.Create("missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
	assert.Contains(t, err.Error(), "detector")
}

func TestRegistry_ReRegisterReplaces(t *testing.T) {
	r := New[*fakePlugin]("selector", zerolog.Nop())

	r.Register("dup", func(cfg map[string]any) (*fakePlugin, error) {
		return &fakePlugin{label: "first"}, nil
	}, Meta{Priority: 10})
	r.Register("dup", func(cfg map[string]any) (*fakePlugin, error) {
		return &fakePlugin{label: "second"}, nil
	}, Meta{Priority: 20})

	assert.Equal(t, 1, r.Len())
	p, err := r.Create("dup", nil)
	require.NoError(t, err)
	assert.Equal(t, "second", p.label)

	meta, ok := r.Metadata("dup")
	require.True(t, ok)
	assert.Equal(t, 20, meta.Priority)
}

func TestRegistry_NamesOrderedByPriority(t *testing.T) {
	r := New[*fakePlugin]("selector", zerolog.Nop())
	factory := func(cfg map[string]any) (*fakePlugin, error) { return &fakePlugin{}, nil }

	r.Register("balanced", factory, Meta{Priority: 50})
	r.Register("highest_weight", factory, Meta{Priority: 100})
	r.Register("lowest_premium", factory, Meta{Priority: 60})
	r.Register("best_liquidity", factory, Meta{Priority: 75})

	assert.Equal(t,
		[]string{"highest_weight", "best_liquidity", "lowest_premium", "balanced"},
		r.Names())
}

func TestRegistry_NamesTieKeepsRegistrationOrder(t *testing.T) {
	r := New[*fakePlugin]("filter", zerolog.Nop())
	factory := func(cfg map[string]any) (*fakePlugin, error) { return &fakePlugin{}, nil }

	r.Register("b", factory, Meta{Priority: 10})
	r.Register("a", factory, Meta{Priority: 10})

	assert.Equal(t, []string{"b", "a"}, r.Names())
}

func TestRegistry_UnregisterAndClear(t *testing.T) {
	r := New[*fakePlugin]("evaluator", zerolog.Nop())
	factory := func(cfg map[string]any) (*fakePlugin, error) { return &fakePlugin{}, nil }

	r.Register("default", factory, Meta{Priority: 100})
	r.Register("strict", factory, Meta{Priority: 50})

	assert.True(t, r.Unregister("strict"))
	assert.False(t, r.Unregister("strict"))
	assert.False(t, r.Has("strict"))

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Names())
}

func TestRegistry_Summary(t *testing.T) {
	r := New[*fakePlugin]("sender", zerolog.Nop())
	r.Register("log", func(cfg map[string]any) (*fakePlugin, error) { return &fakePlugin{}, nil },
		Meta{Priority: 100, Description: "log sink"})

	s := r.Summary()
	assert.Contains(t, s, "sender")
	assert.Contains(t, s, "log")
}
