package stash

import (
	"reflect"
	"sync"
	"testing"
)

type call struct {
	next, prev State
}

func newCounter(count int, extra State) *Stash[State] {
	return Create(func(SetFunc[State], GetFunc[State], *Stash[State]) State {
		s := State{"count": count}
		for k, v := range extra {
			s[k] = v
		}
		return s
	})
}

func recorder(s *Stash[State]) (*[]call, Unsubscriber) {
	calls := &[]call{}
	unsub := s.Subscribe(func(next, prev State) {
		*calls = append(*calls, call{next, prev})
	})
	return calls, unsub
}

func TestCreateInitialState(t *testing.T) {
	s := newCounter(0, nil)

	if got := s.Get(); !reflect.DeepEqual(got, State{"count": 0}) {
		t.Errorf("Get() = %v, want %v", got, State{"count": 0})
	}
}

func TestCreateInitializerReceivesAPI(t *testing.T) {
	var handle *Stash[State]
	s := Create(func(set SetFunc[State], get GetFunc[State], st *Stash[State]) State {
		if set == nil || get == nil {
			t.Error("initializer received nil set or get")
		}
		handle = st
		return State{"count": 0}
	})

	if handle != s {
		t.Error("initializer did not receive the stash being constructed")
	}
}

func TestCreateActionsCloseOverSet(t *testing.T) {
	s := Create(func(set SetFunc[State], get GetFunc[State], _ *Stash[State]) State {
		return State{
			"count": 0,
			"inc": func() {
				set(Compute(func(prev State) State {
					return State{"count": prev["count"].(int) + 1}
				}))
			},
			"double": func() {
				set(Patch(State{"count": get()["count"].(int) * 2}))
			},
		}
	})

	s.Get()["inc"].(func())()
	s.Get()["inc"].(func())()
	s.Get()["double"].(func())()

	if got := s.Get()["count"]; got != 4 {
		t.Errorf("count = %v, want 4", got)
	}
}

func TestCreateDoesNotNotifyInitialState(t *testing.T) {
	s := newCounter(3, nil)
	calls, unsub := recorder(s)
	defer unsub()

	if len(*calls) != 0 {
		t.Errorf("listener called %d times, want 0", len(*calls))
	}
}

func TestNewCopiesInitial(t *testing.T) {
	initial := State{"count": 1}
	s := New(initial, WithName("counter"))

	initial["count"] = 2

	if got := s.Get()["count"]; got != 1 {
		t.Errorf("count = %v, want 1", got)
	}
	if s.Name() != "counter" {
		t.Errorf("Name() = %q, want %q", s.Name(), "counter")
	}
}

func TestSetPatch(t *testing.T) {
	s := newCounter(0, nil)
	s.Set(Patch(State{"count": 5}))

	if got := s.Get(); !reflect.DeepEqual(got, State{"count": 5}) {
		t.Errorf("Get() = %v, want %v", got, State{"count": 5})
	}
}

func TestSetCompute(t *testing.T) {
	s := newCounter(0, nil)
	s.Set(Compute(func(prev State) State {
		return State{"count": prev["count"].(int) + 1}
	}))

	if got := s.Get(); !reflect.DeepEqual(got, State{"count": 1}) {
		t.Errorf("Get() = %v, want %v", got, State{"count": 1})
	}
}

func TestSetMergesPartialUpdates(t *testing.T) {
	s := newCounter(0, State{"name": "x"})

	s.Set(Patch(State{"count": 5}))
	if got, want := s.Get(), (State{"count": 5, "name": "x"}); !reflect.DeepEqual(got, want) {
		t.Errorf("Get() = %v, want %v", got, want)
	}

	s.Set(Compute(func(State) State { return State{"count": 10} }))
	if got, want := s.Get(), (State{"count": 10, "name": "x"}); !reflect.DeepEqual(got, want) {
		t.Errorf("Get() = %v, want %v", got, want)
	}
}

func TestSetComputeSeesCurrentState(t *testing.T) {
	s := newCounter(0, nil)

	for want := 0; want < 2; want++ {
		s.Update(func(prev State) State {
			if prev["count"] != want {
				t.Errorf("updater saw count %v, want %d", prev["count"], want)
			}
			return State{"count": prev["count"].(int) + 1}
		})
	}

	if got := s.Get()["count"]; got != 2 {
		t.Errorf("count = %v, want 2", got)
	}
}

func TestSetDirectAndComputeAgree(t *testing.T) {
	direct := newCounter(0, State{"name": "test"})
	direct.Set(Patch(State{"count": 5}))

	computed := newCounter(0, State{"name": "test"})
	computed.Set(Compute(func(State) State { return State{"count": 5} }))

	if !reflect.DeepEqual(direct.Get(), computed.Get()) {
		t.Errorf("direct %v != computed %v", direct.Get(), computed.Get())
	}
}

func TestSetNotifiesWithNextAndPrev(t *testing.T) {
	s := newCounter(0, nil)
	calls, unsub := recorder(s)
	defer unsub()

	s.Set(Patch(State{"count": 5}))

	if len(*calls) != 1 {
		t.Fatalf("listener called %d times, want 1", len(*calls))
	}
	got := (*calls)[0]
	if !reflect.DeepEqual(got.next, State{"count": 5}) {
		t.Errorf("next = %v, want %v", got.next, State{"count": 5})
	}
	if !reflect.DeepEqual(got.prev, State{"count": 0}) {
		t.Errorf("prev = %v, want %v", got.prev, State{"count": 0})
	}
}

func TestSetSuppressesNoOp(t *testing.T) {
	s := newCounter(0, nil)
	calls, unsub := recorder(s)
	defer unsub()

	before := s.Get()
	s.Set(Patch(State{"count": 0}))
	s.Set(Compute(func(State) State { return State{"count": 0} }))
	s.Set(Patch(State{}))
	s.Set(Update[State]{})

	if len(*calls) != 0 {
		t.Errorf("listener called %d times, want 0", len(*calls))
	}
	if reflect.ValueOf(s.Get()).UnsafePointer() != reflect.ValueOf(before).UnsafePointer() {
		t.Error("suppressed write replaced the state")
	}
}

func TestSetSuppressesRepeatedCompute(t *testing.T) {
	s := newCounter(0, nil)
	calls, unsub := recorder(s)
	defer unsub()

	s.Set(Compute(func(State) State { return State{"count": 1} }))
	if len(*calls) != 1 {
		t.Fatalf("listener called %d times, want 1", len(*calls))
	}

	s.Set(Compute(func(State) State { return State{"count": 1} }))
	if len(*calls) != 1 {
		t.Errorf("listener called %d times after repeat, want 1", len(*calls))
	}
}

func TestSetNestedRecordsCompareShallowly(t *testing.T) {
	s := New(State{"user": map[string]any{"name": "a"}})
	calls, unsub := recorder(s)
	defer unsub()

	s.Set(Patch(State{"user": map[string]any{"name": "a"}}))
	if len(*calls) != 0 {
		t.Errorf("equal nested record notified %d times, want 0", len(*calls))
	}

	s.Set(Patch(State{"user": map[string]any{"name": "b"}}))
	if len(*calls) != 1 {
		t.Errorf("changed nested record notified %d times, want 1", len(*calls))
	}
}

func TestSetAddsNewKeys(t *testing.T) {
	s := newCounter(0, nil)
	calls, unsub := recorder(s)
	defer unsub()

	s.Set(Patch(State{"name": "x"}))

	if len(*calls) != 1 {
		t.Fatalf("listener called %d times, want 1", len(*calls))
	}
	if got, want := s.Get(), (State{"count": 0, "name": "x"}); !reflect.DeepEqual(got, want) {
		t.Errorf("Get() = %v, want %v", got, want)
	}
}

func TestSetPanickingUpdaterCommitsNothing(t *testing.T) {
	s := newCounter(0, nil)
	calls, unsub := recorder(s)
	defer unsub()

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic to propagate from Set")
			}
		}()
		s.Set(Compute(func(State) State { panic("boom") }))
	}()

	if got := s.Get(); !reflect.DeepEqual(got, State{"count": 0}) {
		t.Errorf("Get() = %v, want %v", got, State{"count": 0})
	}
	if len(*calls) != 0 {
		t.Errorf("listener called %d times, want 0", len(*calls))
	}
}

func TestReplaceDropsMissingKeys(t *testing.T) {
	s := newCounter(0, State{"name": "x"})
	calls, unsub := recorder(s)
	defer unsub()

	s.Replace(State{"count": 0})

	if got := s.Get(); !reflect.DeepEqual(got, State{"count": 0}) {
		t.Errorf("Get() = %v, want %v", got, State{"count": 0})
	}
	if len(*calls) != 1 {
		t.Errorf("listener called %d times, want 1", len(*calls))
	}

	s.Replace(State{"count": 0})
	if len(*calls) != 1 {
		t.Errorf("equal replace notified, listener called %d times, want 1", len(*calls))
	}
}

func TestSubscribeDoesNotNotify(t *testing.T) {
	s := newCounter(0, nil)
	calls, unsub := recorder(s)
	defer unsub()

	if len(*calls) != 0 {
		t.Errorf("listener called %d times on subscribe, want 0", len(*calls))
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestUnsubscribe(t *testing.T) {
	s := newCounter(0, nil)
	calls, unsub := recorder(s)

	unsub()
	s.Set(Patch(State{"count": 5}))

	if len(*calls) != 0 {
		t.Errorf("listener called %d times after unsubscribe, want 0", len(*calls))
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	s := newCounter(0, nil)
	calls, unsub := recorder(s)
	otherCalls, otherUnsub := recorder(s)
	defer otherUnsub()

	unsub()
	unsub()
	s.Set(Patch(State{"count": 1}))

	if len(*calls) != 0 {
		t.Errorf("listener called %d times, want 0", len(*calls))
	}
	if len(*otherCalls) != 1 {
		t.Errorf("remaining listener called %d times, want 1", len(*otherCalls))
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestMultipleListeners(t *testing.T) {
	s := newCounter(0, nil)
	calls1, unsub1 := recorder(s)
	defer unsub1()
	calls2, unsub2 := recorder(s)
	defer unsub2()

	s.Set(Patch(State{"count": 5}))

	if len(*calls1) != 1 || len(*calls2) != 1 {
		t.Fatalf("listeners called %d and %d times, want 1 and 1", len(*calls1), len(*calls2))
	}
	if !reflect.DeepEqual((*calls1)[0], (*calls2)[0]) {
		t.Errorf("listeners saw different payloads: %v vs %v", (*calls1)[0], (*calls2)[0])
	}
}

func TestNestedSetFromListener(t *testing.T) {
	s := newCounter(0, nil)
	var seen []int

	unsub := s.Subscribe(func(next, prev State) {
		seen = append(seen, next["count"].(int))
		if next["count"].(int) < 3 {
			s.Update(func(p State) State {
				return State{"count": p["count"].(int) + 1}
			})
		}
	})
	defer unsub()

	s.Set(Patch(State{"count": 1}))

	if want := []int{1, 2, 3}; !reflect.DeepEqual(seen, want) {
		t.Errorf("listener saw %v, want %v", seen, want)
	}
}

func TestListenerAddedDuringFanOutWaitsForNextChange(t *testing.T) {
	s := newCounter(0, nil)
	lateCalls := 0

	unsub := s.Subscribe(func(State, State) {
		s.Subscribe(func(State, State) { lateCalls++ })
	})
	defer unsub()

	s.Set(Patch(State{"count": 1}))

	if lateCalls != 0 {
		t.Errorf("late listener called %d times during fan-out, want 0", lateCalls)
	}
}

func TestEndToEndCounter(t *testing.T) {
	s := Create(func(SetFunc[State], GetFunc[State], *Stash[State]) State {
		return State{"count": 0}
	})

	if got := s.Get(); !reflect.DeepEqual(got, State{"count": 0}) {
		t.Fatalf("Get() = %v, want {count:0}", got)
	}

	s.Set(Patch(State{"count": 1}))
	if got := s.Get(); !reflect.DeepEqual(got, State{"count": 1}) {
		t.Fatalf("Get() = %v, want {count:1}", got)
	}

	s.Set(Compute(func(prev State) State {
		return State{"count": prev["count"].(int) + 1}
	}))
	if got := s.Get(); !reflect.DeepEqual(got, State{"count": 2}) {
		t.Fatalf("Get() = %v, want {count:2}", got)
	}
}

func TestInitializerMaySet(t *testing.T) {
	s := Create(func(set SetFunc[State], _ GetFunc[State], _ *Stash[State]) State {
		set(Patch(State{"early": true}))
		return State{"count": 0}
	})

	if got := s.Get(); !reflect.DeepEqual(got, State{"count": 0}) {
		t.Errorf("Get() = %v, want %v", got, State{"count": 0})
	}
}

func TestConcurrentUpdates(t *testing.T) {
	s := newCounter(0, nil)

	var mu sync.Mutex
	notified := 0
	unsub := s.Subscribe(func(State, State) {
		mu.Lock()
		notified++
		mu.Unlock()
	})
	defer unsub()

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(func(prev State) State {
				return State{"count": prev["count"].(int) + 1}
			})
		}()
	}
	wg.Wait()

	if got := s.Get()["count"]; got != writers {
		t.Errorf("count = %v, want %d", got, writers)
	}
	if notified != writers {
		t.Errorf("notified %d times, want %d", notified, writers)
	}
}

type namedState map[string]any

func TestNamedRecordType(t *testing.T) {
	s := New(namedState{"ok": false})
	s.Set(Patch(namedState{"ok": true}))

	if got := s.Get()["ok"]; got != true {
		t.Errorf("ok = %v, want true", got)
	}
}

//go:noinline
func makeGetter(v int) func() int {
	return func() int { return v }
}

func TestSetCommitsFreshClosure(t *testing.T) {
	s := New(State{"value": makeGetter(1)})
	calls, unsub := recorder(s)
	defer unsub()

	s.Set(Patch(State{"value": makeGetter(2)}))

	if len(*calls) != 1 {
		t.Fatalf("notified %d times, want 1", len(*calls))
	}
	if got := s.Get()["value"].(func() int)(); got != 2 {
		t.Errorf("Get()[value]() = %d, want 2", got)
	}
}

func TestSetCommitsOverlappingSliceViews(t *testing.T) {
	x := []int{1, 2}
	y := []int{1, 3}

	s := New(State{"a": x[:1], "b": x[:2]})
	calls, unsub := recorder(s)
	defer unsub()

	s.Set(Patch(State{"a": y[:1], "b": y[:2]}))

	if len(*calls) != 1 {
		t.Fatalf("notified %d times, want 1; state = %v", len(*calls), s.Get())
	}
	if got := s.Get()["b"]; !reflect.DeepEqual(got, []int{1, 3}) {
		t.Errorf("Get()[b] = %v, want [1 3]", got)
	}
}
