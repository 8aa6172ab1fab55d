package skills

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nathfavour/flora/pkg/pause"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fixed(name, phrase, reply string) Skill {
	return &FuncSkill{
		ID:      name,
		MatchFn: ContainsAny(phrase),
		ExecFn: func(context.Context, string, *Context) (string, error) {
			return reply, nil
		},
	}
}

func TestMatchFirstRegisteredWins(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(fixed("first", "lights", "one")))
	require.NoError(t, r.Register(fixed("second", "lights", "two")))

	for i := 0; i < 10; i++ {
		s := r.Match("turn on the lights")
		require.NotNil(t, s)
		assert.Equal(t, "first", s.Name())
	}
}

func TestMatchNone(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(fixed("lights", "lights", "ok")))
	assert.Nil(t, r.Match("open browser"))
}

func TestRegisterRejectsDuplicatesAndEmpty(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(fixed("a", "x", "")))
	assert.Error(t, r.Register(fixed("a", "y", "")))
	assert.Error(t, r.Register(fixed("", "y", "")))
	assert.Equal(t, []string{"a"}, r.Names())
}

func TestUseIsAllOrNothing(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(fixed("taken", "x", "")))

	_, err := r.Use(func(*Context) ([]Skill, error) {
		return []Skill{fixed("fresh", "a", ""), fixed("taken", "b", "")}, nil
	})
	require.Error(t, err)
	assert.Equal(t, []string{"taken"}, r.Names())

	names, err := r.Use(func(*Context) ([]Skill, error) {
		return []Skill{fixed("fresh", "a", ""), fixed("other", "b", "")}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh", "other"}, names)
	assert.Equal(t, 3, r.Len())

	got, ok := r.Get("other")
	require.True(t, ok)
	assert.Equal(t, "other", got.Name())
}

func TestUseRejectsDuplicatesWithinOneFactory(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Use(func(*Context) ([]Skill, error) {
		return []Skill{fixed("twin", "a", ""), fixed("solo", "b", ""), fixed("twin", "c", "")}, nil
	})
	require.ErrorContains(t, err, `"twin" already registered`)
	assert.Zero(t, r.Len())
	_, ok := r.Get("solo")
	assert.False(t, ok)
}

func TestSealedRegistryIsReadOnly(t *testing.T) {
	r := NewRegistry(nil)
	r.Seal()
	assert.ErrorIs(t, r.Register(fixed("a", "x", "")), ErrSealed)
	_, err := r.Use(Single(func(*Context) Skill { return fixed("b", "x", "") }))
	assert.ErrorIs(t, err, ErrSealed)
}

func TestExecutePassesSharedContext(t *testing.T) {
	sc := &Context{Pause: pause.NewController(), WakeWord: "flora"}
	r := NewRegistry(sc)
	s := &FuncSkill{
		ID:      "ctx",
		MatchFn: ContainsAny("x"),
		ExecFn: func(_ context.Context, u string, got *Context) (string, error) {
			assert.Same(t, sc, got)
			return "heard " + u, nil
		},
	}
	out, err := r.Execute(context.Background(), s, "x marks")
	require.NoError(t, err)
	assert.Equal(t, "heard x marks", out)
}

func TestExecuteWrapsFailure(t *testing.T) {
	r := NewRegistry(nil)
	boom := errors.New("boom")
	s := &FuncSkill{ID: "bad", ExecFn: func(context.Context, string, *Context) (string, error) {
		return "", boom
	}}
	_, err := r.Execute(context.Background(), s, "")
	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "bad", ee.Skill)
	assert.ErrorIs(t, err, boom)
}

func TestExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry(nil)
	s := &FuncSkill{ID: "panicky", ExecFn: func(context.Context, string, *Context) (string, error) {
		panic("kaboom")
	}}
	_, err := r.Execute(context.Background(), s, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestExecuteTimesOut(t *testing.T) {
	r := NewRegistry(nil, WithTimeout(20*time.Millisecond))
	s := &FuncSkill{ID: "slow", ExecFn: func(ctx context.Context, _ string, _ *Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	start := time.Now()
	_, err := r.Execute(context.Background(), s, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestContextMap(t *testing.T) {
	c := pause.NewController()
	m := (&Context{Pause: c, WakeWord: "flora"}).Map()
	assert.Equal(t, "flora", m["wake_word"])

	m["set_paused"].(func(bool))(true)
	assert.True(t, c.IsPaused())
	assert.True(t, m["paused"].(func() bool)())

	var nilCtx *Context
	assert.False(t, nilCtx.Map()["paused"].(func() bool)())
}
