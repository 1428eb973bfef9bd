package scenario

import (
	"fmt"

	"github.com/withgalaxy/stash/pkg/stash"
)

// opFunc computes the patch for an op step from the current state.
type opFunc func(prev stash.State, step Step) (stash.State, error)

var ops = map[string]opFunc{
	"increment": increment,
	"decrement": decrement,
	"toggle":    toggle,
	"append":    appendValue,
}

// Ops lists the supported op names.
func Ops() []string {
	return []string{"append", "decrement", "increment", "toggle"}
}

func increment(prev stash.State, step Step) (stash.State, error) {
	by := step.By
	if by == nil {
		by = 1
	}
	return addTo(prev, step.Key, by)
}

func decrement(prev stash.State, step Step) (stash.State, error) {
	by := step.By
	if by == nil {
		by = 1
	}
	neg, err := negate(by)
	if err != nil {
		return nil, err
	}
	return addTo(prev, step.Key, neg)
}

func addTo(prev stash.State, key string, by any) (stash.State, error) {
	current, ok := prev[key]
	if !ok {
		current = 0
	}
	sum, err := add(current, by)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidStep, key, err)
	}
	return stash.State{key: sum}, nil
}

func add(a, b any) (any, error) {
	switch x := a.(type) {
	case int:
		switch y := b.(type) {
		case int:
			return x + y, nil
		case float64:
			return float64(x) + y, nil
		}
	case float64:
		switch y := b.(type) {
		case int:
			return x + float64(y), nil
		case float64:
			return x + y, nil
		}
	}
	return nil, fmt.Errorf("cannot add %T and %T", a, b)
}

func negate(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return -x, nil
	case float64:
		return -x, nil
	}
	return nil, fmt.Errorf("%w: by must be a number, got %T", ErrInvalidStep, v)
}

func toggle(prev stash.State, step Step) (stash.State, error) {
	current, ok := prev[step.Key]
	if !ok {
		return stash.State{step.Key: true}, nil
	}
	b, ok := current.(bool)
	if !ok {
		return nil, fmt.Errorf("%w: %s: cannot toggle %T", ErrInvalidStep, step.Key, current)
	}
	return stash.State{step.Key: !b}, nil
}

func appendValue(prev stash.State, step Step) (stash.State, error) {
	var items []any
	if current, ok := prev[step.Key]; ok && current != nil {
		list, ok := current.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s: cannot append to %T", ErrInvalidStep, step.Key, current)
		}
		items = make([]any, len(list), len(list)+1)
		copy(items, list)
	}
	return stash.State{step.Key: append(items, step.Value)}, nil
}
