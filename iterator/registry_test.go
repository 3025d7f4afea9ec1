package iterator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/axmq/ds/store"
	"github.com/axmq/ds/topic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store unavailable")

type failingStore struct{}

func (failingStore) Transaction(ctx context.Context, fn store.TxnFunc) error { return errStoreDown }

func (failingStore) DirtyRead(ctx context.Context, table string, key []byte) ([]byte, error) {
	return nil, errStoreDown
}

func (failingStore) Close() error { return nil }

type failingGenerator struct{}

func (failingGenerator) NewSuffix() ([SuffixLen]byte, error) {
	return [SuffixLen]byte{}, errors.New("entropy exhausted")
}

func newTestRegistry(t *testing.T, config Config) *Registry {
	if config.Store == nil {
		s := store.NewMemoryStore()
		t.Cleanup(func() { _ = s.Close() })
		config.Store = s
	}
	r, err := NewRegistry(config)
	require.NoError(t, err)
	return r
}

func TestNewRegistry_RequiresStore(t *testing.T) {
	_, err := NewRegistry(Config{})
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestRegistry_AddIteratorIsIdempotent(t *testing.T) {
	r := newTestRegistry(t, Config{})
	ctx := context.Background()
	filter := topic.MustParseFilter("sensors/+/temp")

	id1, start1, isNew, err := r.AddIterator(ctx, "client1", filter)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.True(t, id1.HasSession("client1"))
	assert.Positive(t, start1)

	id2, start2, isNew, err := r.AddIterator(ctx, "client1", filter)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, id1, id2)
	assert.Equal(t, start1, start2)

	// A separately parsed but identical filter resolves to the same reference
	id3, _, isNew, err := r.AddIterator(ctx, "client1", topic.MustParseFilter("sensors/+/temp"))
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, id1, id3)

	stats := r.Stats()
	assert.Equal(t, int64(3), stats["added"])
	assert.Equal(t, int64(1), stats["created"])
}

func TestRegistry_IDsAreUnique(t *testing.T) {
	r := newTestRegistry(t, Config{})
	ctx := context.Background()

	pairs := []struct {
		session string
		filter  string
	}{
		{"client1", "a/b"},
		{"client1", "a/+"},
		{"client1", "a/#"},
		{"client1", "$share/g/a/b"},
		{"client2", "a/b"},
		{"client2", "a/+"},
		{"client10", "a/b"},
	}

	seen := make(map[string]string)
	for _, p := range pairs {
		id, _, isNew, err := r.AddIterator(ctx, p.session, topic.MustParseFilter(p.filter))
		require.NoError(t, err)
		assert.True(t, isNew, "%s %s", p.session, p.filter)

		owner, dup := seen[string(id)]
		assert.False(t, dup, "id of %s %s collides with %s", p.session, p.filter, owner)
		seen[string(id)] = p.session + " " + p.filter
		assert.Equal(t, p.session, id.SessionID())
	}
}

func TestRegistry_DeleteThenRecreate(t *testing.T) {
	r := newTestRegistry(t, Config{})
	ctx := context.Background()
	filter := topic.MustParseFilter("a/#")

	first, _, _, err := r.AddIterator(ctx, "client1", filter)
	require.NoError(t, err)

	require.NoError(t, r.DelIterator(ctx, "client1", filter))
	_, err = r.GetIteratorID(ctx, "client1", filter)
	assert.ErrorIs(t, err, ErrNotFound)

	second, _, isNew, err := r.AddIterator(ctx, "client1", filter)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.False(t, first.Equal(second))
}

func TestRegistry_DelIteratorAbsent(t *testing.T) {
	r := newTestRegistry(t, Config{})
	assert.NoError(t, r.DelIterator(context.Background(), "client1", topic.MustParseFilter("a")))
	assert.Equal(t, int64(1), r.Stats()["deleted"])
}

func TestRegistry_GetIteratorID(t *testing.T) {
	r := newTestRegistry(t, Config{})
	ctx := context.Background()
	filter := topic.MustParseFilter("a/b")

	_, err := r.GetIteratorID(ctx, "client1", filter)
	assert.ErrorIs(t, err, ErrNotFound)

	added, start, _, err := r.AddIterator(ctx, "client1", filter)
	require.NoError(t, err)

	got, err := r.GetIteratorID(ctx, "client1", filter)
	require.NoError(t, err)
	assert.Equal(t, added, got)

	ref, err := r.Lookup(ctx, "client1", filter)
	require.NoError(t, err)
	assert.Equal(t, start, ref.StartTime)

	stats := r.Stats()
	assert.Equal(t, int64(3), stats["lookups"])
	assert.Equal(t, int64(1), stats["lookup_misses"])
}

func TestRegistry_StartTimeFromClock(t *testing.T) {
	var tick int64 = 1000
	r := newTestRegistry(t, Config{Clock: ClockFunc(func() int64 {
		tick++
		return tick
	})})
	ctx := context.Background()

	_, start1, _, err := r.AddIterator(ctx, "c", topic.MustParseFilter("a"))
	require.NoError(t, err)
	_, start2, _, err := r.AddIterator(ctx, "c", topic.MustParseFilter("b"))
	require.NoError(t, err)

	assert.Equal(t, int64(1001), start1)
	assert.Equal(t, int64(1002), start2)
}

func TestRegistry_ConcurrentAdd(t *testing.T) {
	s, err := store.NewPebbleStore(store.PebbleStoreConfig{Path: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	defer s.Close()

	r := newTestRegistry(t, Config{Store: s})
	ctx := context.Background()
	filter := topic.MustParseFilter("jobs/#")

	const callers = 16
	type result struct {
		id    ID
		start int64
		isNew bool
	}
	results := make(chan result, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, start, isNew, err := r.AddIterator(ctx, "worker", filter)
			assert.NoError(t, err)
			results <- result{id, start, isNew}
		}()
	}
	wg.Wait()
	close(results)

	created := 0
	var first *result
	for res := range results {
		if res.isNew {
			created++
		}
		if first == nil {
			res := res
			first = &res
			continue
		}
		assert.Equal(t, first.id, res.id)
		assert.Equal(t, first.start, res.start)
	}
	assert.Equal(t, 1, created)
}

func TestRegistry_InvalidArguments(t *testing.T) {
	r := newTestRegistry(t, Config{})
	ctx := context.Background()

	_, _, _, err := r.AddIterator(ctx, "", topic.MustParseFilter("a"))
	assert.ErrorIs(t, err, ErrEmptySessionID)

	_, _, _, err = r.AddIterator(ctx, "c", topic.Filter{})
	assert.ErrorIs(t, err, ErrEmptyFilter)

	_, err = r.GetIteratorID(ctx, "", topic.MustParseFilter("a"))
	assert.ErrorIs(t, err, ErrEmptySessionID)

	assert.ErrorIs(t, r.DelIterator(ctx, "c", topic.Filter{}), ErrEmptyFilter)
}

func TestRegistry_GeneratorFailureAborts(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	r := newTestRegistry(t, Config{Store: s, IDGenerator: failingGenerator{}})

	_, _, _, err := r.AddIterator(context.Background(), "c", topic.MustParseFilter("a"))
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len(TableName))
	assert.Equal(t, int64(1), r.Stats()["errors"])
}

func TestRegistry_StoreErrorsPropagate(t *testing.T) {
	r := newTestRegistry(t, Config{Store: failingStore{}})
	ctx := context.Background()
	filter := topic.MustParseFilter("a")

	_, _, _, err := r.AddIterator(ctx, "c", filter)
	assert.ErrorIs(t, err, errStoreDown)
	_, err = r.GetIteratorID(ctx, "c", filter)
	assert.ErrorIs(t, err, errStoreDown)
	assert.ErrorIs(t, r.DelIterator(ctx, "c", filter), errStoreDown)

	assert.Equal(t, int64(3), r.Stats()["errors"])
}

func TestRefKey(t *testing.T) {
	a, err := RefKey("c", topic.MustParseFilter("a/+"))
	require.NoError(t, err)
	b, err := RefKey("c", topic.MustParseFilter("a/+"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	distinct := []struct {
		session string
		filter  string
	}{
		{"c", "a/b"},
		{"c", "a"},
		{"c", "$share/g/a/+"},
		{"d", "a/+"},
	}
	for _, d := range distinct {
		other, err := RefKey(d.session, topic.MustParseFilter(d.filter))
		require.NoError(t, err)
		assert.NotEqual(t, a, other, "%s %s", d.session, d.filter)
	}
}

func TestRegistry_LiteralPlusIsNotWildcard(t *testing.T) {
	r := newTestRegistry(t, Config{})
	ctx := context.Background()

	wildcard := topic.Filter{Segments: []topic.Segment{
		{Kind: topic.Literal, Literal: "a"},
		{Kind: topic.SingleLevel},
	}}
	literal := topic.Filter{Segments: []topic.Segment{
		{Kind: topic.Literal, Literal: "a"},
		{Kind: topic.Literal, Literal: "+"},
	}}
	require.False(t, wildcard.Equal(literal))

	wildID, _, isNew, err := r.AddIterator(ctx, "s", wildcard)
	require.NoError(t, err)
	assert.True(t, isNew)

	litID, _, isNew, err := r.AddIterator(ctx, "s", literal)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.False(t, wildID.Equal(litID))

	require.NoError(t, r.DelIterator(ctx, "s", literal))
	got, err := r.GetIteratorID(ctx, "s", wildcard)
	require.NoError(t, err)
	assert.Equal(t, wildID, got)
}
