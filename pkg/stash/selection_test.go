package stash

import (
	"reflect"
	"testing"
)

func TestSelectionGetMemoizes(t *testing.T) {
	s := New(State{"user": map[string]any{"name": "a"}, "count": 0})
	sel := Select(s, func(st State) map[string]any {
		return map[string]any{"user": st["user"]}
	})

	first := sel.Get()
	s.Set(Patch(State{"count": 1}))
	second := sel.Get()

	if reflect.ValueOf(first).UnsafePointer() != reflect.ValueOf(second).UnsafePointer() {
		t.Error("Get() returned a new value for an unchanged selection")
	}

	s.Set(Patch(State{"user": map[string]any{"name": "b"}}))
	third := sel.Get()
	if reflect.ValueOf(third).UnsafePointer() == reflect.ValueOf(second).UnsafePointer() {
		t.Error("Get() kept a stale value after the selection changed")
	}
}

func TestSelectionSubscribeOnlyOnChange(t *testing.T) {
	s := New(State{"count": 0, "name": "x"})
	sel := Select(s, func(st State) int { return st["count"].(int) })

	var got []int
	unsub := sel.Subscribe(func(v int) {
		got = append(got, v)
	})
	defer unsub()

	s.Set(Patch(State{"name": "y"}))
	s.Set(Patch(State{"count": 1}))
	s.Set(Patch(State{"name": "z"}))
	s.Set(Patch(State{"count": 2}))

	if want := []int{1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("selection notified %v, want %v", got, want)
	}
}

func TestSelectionSubscribersAreIndependent(t *testing.T) {
	s := New(State{"count": 0})
	sel := Select(s, func(st State) int { return st["count"].(int) })

	calls1, calls2 := 0, 0
	unsub1 := sel.Subscribe(func(int) { calls1++ })
	defer unsub1()
	unsub2 := sel.Subscribe(func(int) { calls2++ })
	defer unsub2()

	s.Set(Patch(State{"count": 1}))

	if calls1 != 1 || calls2 != 1 {
		t.Errorf("subscribers called %d and %d times, want 1 and 1", calls1, calls2)
	}
}

func TestSelectionUnsubscribe(t *testing.T) {
	s := New(State{"count": 0})
	sel := Select(s, func(st State) int { return st["count"].(int) })

	calls := 0
	unsub := sel.Subscribe(func(int) { calls++ })
	unsub()
	unsub()

	s.Set(Patch(State{"count": 1}))

	if calls != 0 {
		t.Errorf("callback called %d times after unsubscribe, want 0", calls)
	}
	if s.Len() != 0 {
		t.Errorf("source Len() = %d, want 0", s.Len())
	}
}
