// Package reorder serializes user-driven reordering per scope, applies the
// new order optimistically and resynchronizes from the store when persisting
// fails.
package reorder

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wadjakorntonsri/go-biosite/pkg/core/domain"
)

var (
	ErrIndexOutOfRange = errors.New("reorder index out of range")
	ErrPersistFailed   = errors.New("reorder did not save")
	ErrUnknownScope    = errors.New("unknown reorder scope")
)

// ScopeKind distinguishes the independent reorder scopes.
type ScopeKind string

const (
	ScopeSections     ScopeKind = "sections"
	ScopeSectionLinks ScopeKind = "section_links"
)

// Scope identifies a set of items whose order is rewritten together.
type Scope struct {
	Kind      ScopeKind
	BiositeID string
	Section   string // section title, for ScopeSectionLinks
}

// Key identifies the scope. Section titles compare case-insensitively, so
// "Links" and " links" share one queue.
func (s Scope) Key() string {
	if s.Kind == ScopeSectionLinks {
		return fmt.Sprintf("%s:%s:%s", s.BiositeID, s.Kind, strings.ToLower(strings.TrimSpace(s.Section)))
	}
	return fmt.Sprintf("%s:%s", s.BiositeID, s.Kind)
}

func (s Scope) validate() error {
	switch {
	case s.BiositeID == "":
		return errors.Wrap(ErrUnknownScope, "missing biosite")
	case s.Kind == ScopeSections:
		return nil
	case s.Kind == ScopeSectionLinks && strings.TrimSpace(s.Section) != "":
		return nil
	}
	return errors.Wrapf(ErrUnknownScope, "%q", s.Key())
}

// State of a scope.
type State int

const (
	Idle State = iota
	Committing
)

func (s State) String() string {
	if s == Committing {
		return "committing"
	}
	return "idle"
}

// Store is the source of truth for a scope's order.
type Store interface {
	// Fetch returns the persisted order of scope.
	Fetch(ctx context.Context, scope Scope) ([]Item, error)
	// Persist writes the whole batch for scope as one logical operation.
	Persist(ctx context.Context, scope Scope, batch []domain.OrderUpdate) error
}

// Coordinator owns the local order of every scope it has seen.
type Coordinator struct {
	store    Store
	log      logrus.FieldLogger
	onChange func(Scope, []Item)

	mu     sync.Mutex
	scopes map[string]*scopeState
}

type scopeState struct {
	// sem has capacity one; holding it means a commit is in progress.
	sem chan struct{}

	mu     sync.Mutex
	items  []Item
	loaded bool
	state  State
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithOnChange registers a callback run after every change to a scope's
// local order: the optimistic apply and any resync.
func WithOnChange(fn func(Scope, []Item)) Option {
	return func(c *Coordinator) { c.onChange = fn }
}

func NewCoordinator(store Store, logger logrus.FieldLogger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		log:    logger.WithField("component", "reorder"),
		scopes: make(map[string]*scopeState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) scope(s Scope) *scopeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.scopes[s.Key()]
	if !ok {
		st = &scopeState{sem: make(chan struct{}, 1)}
		c.scopes[s.Key()] = st
	}
	return st
}

// Reorder moves the item at from to to within scope. Requests for the same
// scope are queued behind one another; different scopes commit concurrently.
//
// Every commit starts from a read of the store taken while the scope is held.
//
// On persistence failure the local order is replaced by a fresh read from
// the store, and that read is returned together with an error wrapping
// ErrPersistFailed. Nothing is retried.
func (c *Coordinator) Reorder(ctx context.Context, scope Scope, from, to int) ([]Item, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	st := c.scope(scope)
	log := c.log.WithFields(logrus.Fields{"scope": scope.Key(), "from": from, "to": to})

	select {
	case st.sem <- struct{}{}:
	case <-ctx.Done():
		log.Debug("reorder abandoned while queued")
		return nil, errors.Wrap(ctx.Err(), "waiting for previous reorder")
	}
	defer func() { <-st.sem }()

	current, err := c.load(ctx, scope, st)
	if err != nil {
		return nil, err
	}
	next, err := Move(current, from, to)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	st.items = next
	st.state = Committing
	st.mu.Unlock()
	c.notify(scope, next)

	perr := c.store.Persist(ctx, scope, Batch(next))

	st.mu.Lock()
	st.state = Idle
	st.mu.Unlock()

	if perr == nil {
		log.Info("reorder committed")
		return cloneItems(next), nil
	}

	log.WithError(perr).Warn("reorder persist failed, resynchronizing")
	fresh, ferr := c.store.Fetch(context.WithoutCancel(ctx), scope)
	st.mu.Lock()
	if ferr != nil {
		st.loaded = false
	} else {
		st.items = fresh
		st.loaded = true
	}
	st.mu.Unlock()

	if ferr != nil {
		log.WithError(ferr).Error("resync after failed reorder")
		return nil, errors.Wrapf(ErrPersistFailed, "%v; resync failed: %v", perr, ferr)
	}
	c.notify(scope, fresh)
	return cloneItems(fresh), errors.Wrap(ErrPersistFailed, perr.Error())
}

// load reads the order of scope from the store and makes it the local order.
// Callers hold st.sem.
func (c *Coordinator) load(ctx context.Context, scope Scope, st *scopeState) ([]Item, error) {
	items, err := c.store.Fetch(ctx, scope)
	if err != nil {
		return nil, errors.Wrapf(err, "load scope %s", scope.Key())
	}

	st.mu.Lock()
	st.items = cloneItems(items)
	st.loaded = true
	st.mu.Unlock()
	return items, nil
}

// Sync replaces the local order of scope with a fresh read, waiting for any
// in-flight commit first.
func (c *Coordinator) Sync(ctx context.Context, scope Scope) ([]Item, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	st := c.scope(scope)
	select {
	case st.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-st.sem }()

	items, err := c.load(ctx, scope, st)
	if err != nil {
		return nil, err
	}
	c.notify(scope, items)
	return items, nil
}

// Snapshot returns the local order of scope and whether one is loaded.
func (c *Coordinator) Snapshot(scope Scope) ([]Item, bool) {
	st := c.scope(scope)
	st.mu.Lock()
	defer st.mu.Unlock()
	return cloneItems(st.items), st.loaded
}

// State reports whether scope is idle or committing.
func (c *Coordinator) State(scope Scope) State {
	st := c.scope(scope)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

// Forget drops the local order of every scope of a biosite. It is used when
// links or sections change outside a reorder.
func (c *Coordinator) Forget(biositeID string) {
	c.mu.Lock()
	var states []*scopeState
	prefix := biositeID + ":"
	for key, st := range c.scopes {
		if strings.HasPrefix(key, prefix) {
			states = append(states, st)
		}
	}
	c.mu.Unlock()

	for _, st := range states {
		st.mu.Lock()
		st.items = nil
		st.loaded = false
		st.mu.Unlock()
	}
}

func (c *Coordinator) notify(scope Scope, items []Item) {
	if c.onChange != nil {
		c.onChange(scope, cloneItems(items))
	}
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	return append([]Item(nil), items...)
}
