package scenario

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/withgalaxy/stash/pkg/shallow"
	"github.com/withgalaxy/stash/pkg/stash"
)

type Notification struct {
	Step    int
	Next    stash.State
	Prev    stash.State
	Changed []string
}

type StepResult struct {
	Index    int
	Kind     string
	Notified bool
	Changed  []string
	State    stash.State
}

type Result struct {
	ID            uuid.UUID
	Scenario      *Scenario
	Steps         []StepResult
	Notifications []Notification
	Final         stash.State
	Failures      []*ExpectationError
	Duration      time.Duration
}

func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Err joins every failed expectation, or returns nil.
func (r *Result) Err() error {
	if r.Passed() {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

type RunOption func(*runOptions)

type runOptions struct {
	listeners []stash.Listener[stash.State]
	observer  stash.Observer
	attach    []func(*stash.Stash[stash.State]) func()
	stepDelay time.Duration
}

func WithListener(l stash.Listener[stash.State]) RunOption {
	return func(o *runOptions) {
		o.listeners = append(o.listeners, l)
	}
}

func WithObserver(obs stash.Observer) RunOption {
	return func(o *runOptions) {
		o.observer = obs
	}
}

// WithAttach hands the stash to fn before the first step; the returned
// func, if any, runs when the scenario finishes.
func WithAttach(fn func(*stash.Stash[stash.State]) func()) RunOption {
	return func(o *runOptions) {
		o.attach = append(o.attach, fn)
	}
}

// WithStepDelay pauses between steps so live inspectors can follow along.
func WithStepDelay(d time.Duration) RunOption {
	return func(o *runOptions) {
		o.stepDelay = d
	}
}

// Run executes the scenario against a fresh stash. Failed expectations are
// reported in the Result; the error covers invalid steps and cancellation.
func Run(ctx context.Context, sc *Scenario, opts ...RunOption) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	started := time.Now()
	res := &Result{
		ID:       uuid.New(),
		Scenario: sc,
	}

	stashOpts := []stash.Option{stash.WithName(sc.Name)}
	if o.observer != nil {
		stashOpts = append(stashOpts, stash.WithObserver(o.observer))
	}
	s := stash.New(stash.State(sc.Initial), stashOpts...)

	current := 0
	unsub := s.Subscribe(func(next, prev stash.State) {
		res.Notifications = append(res.Notifications, Notification{
			Step:    current,
			Next:    next,
			Prev:    prev,
			Changed: stash.Changed(prev, next),
		})
	})
	defer unsub()

	for _, l := range o.listeners {
		unsubscribe := s.Subscribe(l)
		defer unsubscribe()
	}

	for _, attach := range o.attach {
		if detach := attach(s); detach != nil {
			defer detach()
		}
	}

	for i, step := range sc.Steps {
		if i > 0 && o.stepDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(o.stepDelay):
			}
		}
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("run %s: %w", sc.Name, err)
		}

		current = i + 1
		kind, _ := step.Kind()
		before := len(res.Notifications)

		if err := apply(s, step, kind); err != nil {
			return res, fmt.Errorf("step %d: %w", current, err)
		}

		sr := StepResult{
			Index:    current,
			Kind:     kind,
			Notified: len(res.Notifications) > before,
			State:    s.Get(),
		}
		if sr.Notified {
			sr.Changed = res.Notifications[before].Changed
		}
		res.Steps = append(res.Steps, sr)

		if step.ExpectNotify != nil && *step.ExpectNotify != sr.Notified {
			res.Failures = append(res.Failures, &ExpectationError{
				Step:    current,
				Message: fmt.Sprintf("notified = %v, want %v", sr.Notified, *step.ExpectNotify),
			})
		}
	}

	res.Final = s.Get()
	res.Failures = append(res.Failures, checkFinal(sc, res)...)
	res.Duration = time.Since(started)

	return res, nil
}

func apply(s *stash.Stash[stash.State], step Step, kind string) error {
	switch kind {
	case KindSet:
		s.Set(stash.Patch(stash.State(step.Set)))
		return nil
	case KindReplace:
		s.Replace(stash.State(step.Replace))
		return nil
	}

	op := ops[kind]
	var opErr error
	s.Update(func(prev stash.State) stash.State {
		patch, err := op(prev, step)
		if err != nil {
			opErr = err
			return nil
		}
		return patch
	})
	return opErr
}

func checkFinal(sc *Scenario, res *Result) []*ExpectationError {
	var failures []*ExpectationError

	keys := make([]string, 0, len(sc.Expect))
	for k := range sc.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		want := sc.Expect[k]
		got, ok := res.Final[k]
		if !ok {
			failures = append(failures, &ExpectationError{Message: fmt.Sprintf("%s is missing, want %v", k, want)})
			continue
		}
		if !shallow.Equal(got, want) {
			failures = append(failures, &ExpectationError{Message: fmt.Sprintf("%s = %v, want %v", k, got, want)})
		}
	}

	if sc.Notifications != nil && len(res.Notifications) != *sc.Notifications {
		failures = append(failures, &ExpectationError{
			Message: fmt.Sprintf("notifications = %d, want %d", len(res.Notifications), *sc.Notifications),
		})
	}

	return failures
}
