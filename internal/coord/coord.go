// Package coord serializes mutations per entity.
//
// Every user, post and feed is owned by a coordinator that follows the same
// discipline: load state from the kv tier, mutate, save, return. A Group
// gives each entity key its own lock so at most one mutation runs per
// entity per instance, while unrelated entities proceed in parallel.
package coord

import (
	"context"
	"sync"
)

// Group hands out per-key exclusive sections. The zero value is not
// usable; call NewGroup.
type Group struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

func NewGroup() *Group {
	return &Group{entries: make(map[string]*entry)}
}

// Do runs fn while holding the lock for key. Callers waiting on a busy
// key give up when ctx is done. Entries are dropped as soon as the last
// waiter leaves, so the map only holds keys with active work.
func (g *Group) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	e := g.acquire(key)
	defer g.release(key, e)

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.sem }()

	return fn(ctx)
}

// Len reports how many keys currently have active or waiting work.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *Group) acquire(key string) *entry {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		g.entries[key] = e
	}
	e.refs++
	return e
}

func (g *Group) release(key string, e *entry) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(g.entries, key)
	}
}
