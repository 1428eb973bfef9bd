package stash

import (
	"sync"

	"github.com/withgalaxy/stash/pkg/shallow"
)

type Selector[T Record, S any] func(state T) S

// Selection is a memoized projection of a store. Get keeps returning the
// previously selected value for as long as a fresh selection is shallowly
// equal to it, so consumers can compare results by identity.
type Selection[T Record, S any] struct {
	source   ReadonlyStore[T]
	selector Selector[T, S]

	mu   sync.Mutex
	last S
}

func Select[T Record, S any](source ReadonlyStore[T], selector Selector[T, S]) *Selection[T, S] {
	return &Selection[T, S]{
		source:   source,
		selector: selector,
		last:     selector(source.Get()),
	}
}

func (x *Selection[T, S]) Get() S {
	return x.memo(x.selector(x.source.Get()))
}

func (x *Selection[T, S]) memo(selected S) S {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !shallow.Equal(x.last, selected) {
		x.last = selected
	}
	return x.last
}

// Subscribe calls callback only when a committed change alters the selected
// value.
func (x *Selection[T, S]) Subscribe(callback func(S)) Unsubscriber {
	var mu sync.Mutex
	seen := x.Get()

	return x.source.Subscribe(func(next, _ T) {
		selected := x.memo(x.selector(next))

		mu.Lock()
		if shallow.Equal(seen, selected) {
			mu.Unlock()
			return
		}
		seen = selected
		mu.Unlock()

		callback(selected)
	})
}
