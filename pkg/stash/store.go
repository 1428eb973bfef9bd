package stash

// Record is the shape of a stash state: an open set of named fields.
type Record interface {
	~map[string]any
}

// State is the record type used when callers have no named type of their own.
type State map[string]any

type Listener[T Record] func(next, prev T)

type Unsubscriber func()

type Store[T Record] interface {
	Get() T
	Set(update Update[T])
	Subscribe(listener Listener[T]) Unsubscriber
}

type ReadonlyStore[T Record] interface {
	Get() T
	Subscribe(listener Listener[T]) Unsubscriber
}

type GetFunc[T Record] func() T

type SetFunc[T Record] func(update Update[T])

// Initializer builds the first state. It may capture set and get to define
// actions that write back to the stash being constructed.
type Initializer[T Record] func(set SetFunc[T], get GetFunc[T], s *Stash[T]) T
