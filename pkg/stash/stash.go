// Package stash is an external state container for UI components.
//
// A Stash owns one record-shaped state value. Writes merge a patch onto the
// current state; a write whose merged result is shallowly equal to the
// current state is dropped without notifying anyone. Every other write
// replaces the state atomically and calls each listener with (next, prev)
// before Set returns.
//
//	counter := stash.Create(func(set stash.SetFunc[stash.State], get stash.GetFunc[stash.State], _ *stash.Stash[stash.State]) stash.State {
//		return stash.State{
//			"count": 0,
//			"inc": func() {
//				set(stash.Compute(func(prev stash.State) stash.State {
//					return stash.State{"count": prev["count"].(int) + 1}
//				}))
//			},
//		}
//	})
//
// States handed out by Get and to listeners are never modified by the stash
// afterwards; callers must not modify them either.
package stash

import (
	"sync"

	"github.com/withgalaxy/stash/pkg/shallow"
)

type subscription[T Record] struct {
	id       uint64
	listener Listener[T]
}

type Stash[T Record] struct {
	name     string
	observer Observer

	mu          sync.Mutex
	state       T
	version     uint64
	subscribers []subscription[T]
	nextID      uint64
}

var _ Store[State] = (*Stash[State])(nil)

// Create runs init synchronously and uses its result as the first state.
// The first state is committed without comparison or notification.
func Create[T Record](init Initializer[T], opts ...Option) *Stash[T] {
	o := newOptions(opts)
	s := &Stash[T]{
		name:        o.name,
		observer:    o.observer,
		subscribers: make([]subscription[T], 0),
	}

	initial := init(s.Set, s.Get, s)

	s.mu.Lock()
	s.state = initial
	s.version++
	s.mu.Unlock()

	return s
}

// New creates a stash whose first state is a copy of initial.
func New[T Record](initial T, opts ...Option) *Stash[T] {
	return Create(func(SetFunc[T], GetFunc[T], *Stash[T]) T {
		return copyRecord(initial)
	}, opts...)
}

func (s *Stash[T]) Name() string {
	return s.name
}

func (s *Stash[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set merges the resolved patch onto the current state. A function update
// that panics leaves the state untouched.
func (s *Stash[T]) Set(update Update[T]) {
	s.write(func(prev T) T {
		return merge(prev, update.resolve(prev))
	})
}

// Update is shorthand for Set(Compute(fn)).
func (s *Stash[T]) Update(fn func(prev T) T) {
	s.Set(Compute(fn))
}

// Replace swaps the whole state for a copy of next, dropping keys next does
// not carry. Notification follows the same rules as Set.
func (s *Stash[T]) Replace(next T) {
	s.write(func(T) T {
		return copyRecord(next)
	})
}

func (s *Stash[T]) write(resolve func(prev T) T) {
	for {
		s.mu.Lock()
		prev, version := s.state, s.version
		s.mu.Unlock()

		// resolve runs unlocked so updaters may read the stash.
		candidate := resolve(prev)

		s.mu.Lock()
		if s.version != version {
			// another write committed while resolving; start over from it
			s.mu.Unlock()
			continue
		}

		if shallow.Equal(prev, candidate) {
			s.mu.Unlock()
			if s.observer != nil {
				s.observer.Suppressed(s.name)
			}
			return
		}

		s.state = candidate
		s.version++
		subs := make([]subscription[T], len(s.subscribers))
		copy(subs, s.subscribers)
		s.mu.Unlock()

		if s.observer != nil {
			s.observer.Committed(s.name, Changed(prev, candidate))
		}

		for _, sub := range subs {
			sub.listener(candidate, prev)
		}
		return
	}
}

// Subscribe registers listener for every committed change. The returned
// Unsubscriber removes exactly this registration and may be called any
// number of times.
func (s *Stash[T]) Subscribe(listener Listener[T]) Unsubscriber {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subscribers = append(s.subscribers, subscription[T]{id: id, listener: listener})
	count := len(s.subscribers)
	s.mu.Unlock()

	s.listenersChanged(count)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.unsubscribe(id)
		})
	}
}

func (s *Stash[T]) unsubscribe(id uint64) {
	s.mu.Lock()
	for i, sub := range s.subscribers {
		if sub.id == id {
			s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
			break
		}
	}
	count := len(s.subscribers)
	s.mu.Unlock()

	s.listenersChanged(count)
}

// Len returns the number of registered listeners.
func (s *Stash[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *Stash[T]) listenersChanged(count int) {
	if s.observer != nil {
		s.observer.ListenersChanged(s.name, count)
	}
}
