// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "sync"

// =============================================================================
// OBSERVABLE FEED
// =============================================================================

// Feed is an observable value with an explicit subscribe/unsubscribe
// lifecycle. Each Engine owns its own feeds, so tests construct isolated
// instances instead of sharing hidden process-wide state.
//
// Subscribers are invoked synchronously on the publisher's serialization
// context, in subscription order. A subscriber must not call back into the
// Engine from its callback; hand the value off to your own scheduler first
// (the TUI forwards it into the Bubble Tea message loop).
type Feed[T any] struct {
	mu      sync.Mutex
	subs    map[int]func(T)
	order   []int
	nextID  int
	current T
}

// NewFeed creates an empty feed.
func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{subs: make(map[int]func(T))}
}

// Subscribe registers fn and returns a token for Unsubscribe.
func (f *Feed[T]) Subscribe(fn func(T)) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	f.order = append(f.order, id)
	return id
}

// Unsubscribe removes a subscriber. Unknown tokens are ignored.
func (f *Feed[T]) Unsubscribe(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[id]; !ok {
		return
	}
	delete(f.subs, id)
	for i, v := range f.order {
		if v == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// Current returns the most recently published value (zero value before the
// first publish).
func (f *Feed[T]) Current() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Publish records v as current and delivers it to every subscriber.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	f.current = v
	fns := make([]func(T), 0, len(f.order))
	for _, id := range f.order {
		fns = append(fns, f.subs[id])
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
