package reorder

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeStore struct {
	mu         sync.Mutex
	server     map[string][]Item
	fetches    int
	persisted  [][]domain.OrderUpdate
	persistErr error
	gate       chan struct{}
	entered    chan Scope
}

func newFakeStore() *fakeStore {
	return &fakeStore{server: make(map[string][]Item)}
}

func (f *fakeStore) set(scope Scope, items []Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.server[scope.Key()] = append([]Item(nil), items...)
}

func (f *fakeStore) Fetch(ctx context.Context, scope Scope) ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return append([]Item(nil), f.server[scope.Key()]...), nil
}

func (f *fakeStore) Persist(ctx context.Context, scope Scope, batch []domain.OrderUpdate) error {
	if f.entered != nil {
		f.entered <- scope
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.persisted = append(f.persisted, batch)
	if f.persistErr != nil {
		return f.persistErr
	}
	items := make([]Item, len(batch))
	for i, u := range batch {
		items[i] = Item{ID: u.ID, OrderIndex: u.OrderIndex}
	}
	f.server[scope.Key()] = items
	return nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func items(ids ...string) []Item {
	out := make([]Item, len(ids))
	for i, id := range ids {
		out[i] = Item{ID: id, OrderIndex: i}
	}
	return out
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

var sectionsScope = Scope{Kind: ScopeSections, BiositeID: "b1"}

func TestMove(t *testing.T) {
	got, err := Move(items("a", "b", "c", "d", "e"), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b", "d", "e"}, ids(got))
	for i, it := range got {
		assert.Equal(t, i, it.OrderIndex)
	}

	got, err = Move(items("a", "b", "c"), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, ids(got))

	_, err = Move(items("a"), 0, 1)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	_, err = Move(nil, 0, 0)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestReorderRoundTrip(t *testing.T) {
	store := newFakeStore()
	store.set(sectionsScope, items("a", "b", "c", "d", "e"))
	c := NewCoordinator(store, quietLogger())

	got, err := c.Reorder(context.Background(), sectionsScope, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b", "d", "e"}, ids(got))

	read, err := store.Fetch(context.Background(), sectionsScope)
	require.NoError(t, err)
	indexes := make([]int, len(read))
	for i, it := range read {
		indexes[i] = it.OrderIndex
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, indexes)
	assert.Equal(t, ids(got), ids(read))

	snap, loaded := c.Snapshot(sectionsScope)
	assert.True(t, loaded)
	assert.Equal(t, got, snap)
	assert.Equal(t, Idle, c.State(sectionsScope))
	require.Len(t, store.persisted, 1)
	assert.Len(t, store.persisted[0], 5, "whole scope is persisted")
}

func TestReorderOutOfRangeDoesNotPersist(t *testing.T) {
	store := newFakeStore()
	store.set(sectionsScope, items("a", "b"))
	c := NewCoordinator(store, quietLogger())

	_, err := c.Reorder(context.Background(), sectionsScope, 0, 5)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	assert.Empty(t, store.persisted)
}

func TestReorderInvalidScope(t *testing.T) {
	c := NewCoordinator(newFakeStore(), quietLogger())

	_, err := c.Reorder(context.Background(), Scope{Kind: ScopeSectionLinks, BiositeID: "b1"}, 0, 0)
	assert.True(t, errors.Is(err, ErrUnknownScope))
	_, err = c.Reorder(context.Background(), Scope{Kind: ScopeSections}, 0, 0)
	assert.True(t, errors.Is(err, ErrUnknownScope))
}

func TestReorderFailureResyncsFromStore(t *testing.T) {
	store := newFakeStore()
	store.set(sectionsScope, items("a", "b", "c"))
	var changes [][]string
	c := NewCoordinator(store, quietLogger(), WithOnChange(func(_ Scope, it []Item) {
		changes = append(changes, ids(it))
	}))

	_, err := c.Reorder(context.Background(), sectionsScope, 0, 2)
	require.NoError(t, err)

	// Another writer lands a different order, then our next commit fails.
	store.set(sectionsScope, items("c", "a", "b", "z"))
	store.persistErr = errors.New("backend unavailable")

	got, err := c.Reorder(context.Background(), sectionsScope, 0, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistFailed))
	assert.Equal(t, []string{"c", "a", "b", "z"}, ids(got), "rolled back to server state, not pre-reorder state")

	snap, _ := c.Snapshot(sectionsScope)
	assert.Equal(t, []string{"c", "a", "b", "z"}, ids(snap))
	assert.Equal(t, [][]string{
		{"b", "c", "a"},
		{"a", "c", "b", "z"},
		{"c", "a", "b", "z"},
	}, changes)
}

func TestReorderSerializesSameScope(t *testing.T) {
	store := newFakeStore()
	store.set(sectionsScope, items("a", "b", "c"))
	store.gate = make(chan struct{})
	store.entered = make(chan Scope, 2)
	c := NewCoordinator(store, quietLogger())

	var wg sync.WaitGroup
	results := make([][]Item, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = c.Reorder(context.Background(), sectionsScope, 0, 2)
	}()
	<-store.entered
	assert.Equal(t, Committing, c.State(sectionsScope))

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = c.Reorder(context.Background(), sectionsScope, 0, 1)
	}()

	select {
	case <-store.entered:
		t.Fatal("second commit started before the first finished")
	case <-time.After(50 * time.Millisecond):
	}

	store.gate <- struct{}{}
	<-store.entered
	store.gate <- struct{}{}
	wg.Wait()

	assert.Equal(t, []string{"b", "c", "a"}, ids(results[0]))
	assert.Equal(t, []string{"c", "b", "a"}, ids(results[1]), "second move applied on top of the first")
	final, _ := store.Fetch(context.Background(), sectionsScope)
	assert.Equal(t, []string{"c", "b", "a"}, ids(final))
}

func TestReorderIndependentScopesCommitConcurrently(t *testing.T) {
	linksScope := Scope{Kind: ScopeSectionLinks, BiositeID: "b1", Section: "Links"}
	store := newFakeStore()
	store.set(sectionsScope, items("a", "b"))
	store.set(linksScope, items("x", "y"))
	store.gate = make(chan struct{})
	store.entered = make(chan Scope, 2)
	c := NewCoordinator(store, quietLogger())

	var wg sync.WaitGroup
	for _, s := range []Scope{sectionsScope, linksScope} {
		wg.Add(1)
		go func(s Scope) {
			defer wg.Done()
			_, err := c.Reorder(context.Background(), s, 0, 1)
			assert.NoError(t, err)
		}(s)
	}

	<-store.entered
	<-store.entered
	close(store.gate)
	wg.Wait()
}

func TestReorderCancelledWhileQueued(t *testing.T) {
	store := newFakeStore()
	store.set(sectionsScope, items("a", "b"))
	store.gate = make(chan struct{})
	store.entered = make(chan Scope, 1)
	c := NewCoordinator(store, quietLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Reorder(context.Background(), sectionsScope, 0, 1)
	}()
	<-store.entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Reorder(ctx, sectionsScope, 1, 0)
	assert.True(t, errors.Is(err, context.Canceled))

	close(store.gate)
	<-done
	assert.Len(t, store.persisted, 1)
}

func TestReorderStartsFromStore(t *testing.T) {
	store := newFakeStore()
	store.set(sectionsScope, items("a", "b", "c"))
	c := NewCoordinator(store, quietLogger())

	_, err := c.Reorder(context.Background(), sectionsScope, 0, 2)
	require.NoError(t, err)

	// Another instance commits behind our back.
	store.set(sectionsScope, items("c", "a", "b"))

	got, err := c.Reorder(context.Background(), sectionsScope, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
	assert.Equal(t, 2, store.fetches)
}

func TestScopeKeyIgnoresTitleCase(t *testing.T) {
	a := Scope{Kind: ScopeSectionLinks, BiositeID: "b1", Section: "Links"}
	b := Scope{Kind: ScopeSectionLinks, BiositeID: "b1", Section: " links "}
	assert.Equal(t, a.Key(), b.Key())

	_, err := NewCoordinator(newFakeStore(), quietLogger()).Reorder(context.Background(),
		Scope{Kind: ScopeSectionLinks, BiositeID: "b1", Section: "  "}, 0, 1)
	assert.True(t, errors.Is(err, ErrUnknownScope))
}

func TestSameTitleSpellingsShareQueue(t *testing.T) {
	upper := Scope{Kind: ScopeSectionLinks, BiositeID: "b1", Section: "Links"}
	lower := Scope{Kind: ScopeSectionLinks, BiositeID: "b1", Section: "links"}
	store := newFakeStore()
	store.set(upper, items("a", "b", "c"))
	store.gate = make(chan struct{})
	store.entered = make(chan Scope, 2)
	c := NewCoordinator(store, quietLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.Reorder(context.Background(), upper, 0, 2)
		assert.NoError(t, err)
	}()
	<-store.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.Reorder(context.Background(), lower, 0, 2)
		assert.NoError(t, err)
	}()

	select {
	case <-store.entered:
		t.Fatal("second spelling committed concurrently")
	case <-time.After(50 * time.Millisecond):
	}

	store.gate <- struct{}{}
	<-store.entered
	store.gate <- struct{}{}
	wg.Wait()

	final, _ := store.Fetch(context.Background(), upper)
	assert.Equal(t, []string{"c", "a", "b"}, ids(final))
}

func TestForgetDropsLocalOrder(t *testing.T) {
	store := newFakeStore()
	store.set(sectionsScope, items("a", "b"))
	c := NewCoordinator(store, quietLogger())

	_, err := c.Reorder(context.Background(), sectionsScope, 0, 1)
	require.NoError(t, err)
	_, loaded := c.Snapshot(sectionsScope)
	assert.True(t, loaded)

	c.Forget("b1")
	snap, loaded := c.Snapshot(sectionsScope)
	assert.False(t, loaded)
	assert.Empty(t, snap)

	store.set(sectionsScope, items("b", "a", "n"))
	synced, err := c.Sync(context.Background(), sectionsScope)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "n"}, ids(synced))
}
