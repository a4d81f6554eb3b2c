package uow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type fakeSession string

func (f fakeSession) ID() string { return string(f) }

func TestCurrentWithoutSession(t *testing.T) {
	_, ok := Current(context.Background())
	assert.False(t, ok)

	_, ok = Current(nil)
	assert.False(t, ok)
}

func TestEnterExit(t *testing.T) {
	ctx, token := Enter(context.Background(), fakeSession("a"))

	s, ok := Current(ctx)
	require.True(t, ok)
	assert.Equal(t, "a", s.ID())
	assert.True(t, token.Active())

	Exit(token)
	_, ok = Current(ctx)
	assert.False(t, ok)
	assert.False(t, token.Active())

	Exit(token)
	Exit(Token{})
}

func TestNestedRestoresOuter(t *testing.T) {
	outer, outerToken := Enter(context.Background(), fakeSession("outer"))
	inner, innerToken := Enter(outer, fakeSession("inner"))

	s, _ := Current(inner)
	assert.Equal(t, "inner", s.ID())
	s, _ = Current(outer)
	assert.Equal(t, "outer", s.ID(), "entering never changes the parent context")

	Exit(innerToken)
	s, ok := Current(inner)
	require.True(t, ok)
	assert.Equal(t, "outer", s.ID())

	Exit(outerToken)
	_, ok = Current(inner)
	assert.False(t, ok)
}

func TestFindLooksPastRejectedBindings(t *testing.T) {
	outer, outerToken := Enter(context.Background(), fakeSession("a"))
	middle, _ := Enter(outer, fakeSession("b"))
	inner, _ := Enter(middle, fakeSession("a2"))
	isA := func(s Session) bool { return s.ID()[0] == 'a' }
	isOuterA := func(s Session) bool { return s.ID() == "a" }

	s, ok := Find(inner, isA)
	require.True(t, ok)
	assert.Equal(t, "a2", s.ID())

	s, ok = Find(inner, isOuterA)
	require.True(t, ok)
	assert.Equal(t, "a", s.ID())

	Exit(outerToken)
	_, ok = Find(inner, isOuterA)
	assert.False(t, ok, "exited bindings are skipped")

	_, ok = Find(nil, isA)
	assert.False(t, ok)
}

func TestOutOfOrderExit(t *testing.T) {
	outer, outerToken := Enter(context.Background(), fakeSession("outer"))
	inner, innerToken := Enter(outer, fakeSession("inner"))

	Exit(outerToken)
	s, ok := Current(inner)
	require.True(t, ok)
	assert.Equal(t, "inner", s.ID())

	Exit(innerToken)
	_, ok = Current(inner)
	assert.False(t, ok)
}

func TestConcurrentTasksAreIsolated(t *testing.T) {
	root := context.Background()
	ready := make(chan struct{})
	ids := []string{"a", "b", "c", "d"}

	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			ctx, token := Enter(root, fakeSession(id))
			defer Exit(token)
			<-ready
			s, ok := Current(ctx)
			if !ok || s.ID() != id {
				t.Errorf("task %s saw %v", id, s)
			}
			return nil
		})
	}
	close(ready)
	require.NoError(t, g.Wait())

	_, ok := Current(root)
	assert.False(t, ok)
}

func TestDerivedContextsInherit(t *testing.T) {
	ctx, token := Enter(context.Background(), fakeSession("a"))
	defer Exit(token)

	child, cancel := context.WithCancel(ctx)
	defer cancel()

	s, ok := Current(child)
	require.True(t, ok)
	assert.Equal(t, "a", s.ID())
}
