package watch

import (
	"sync"

	"github.com/withgalaxy/stash/pkg/scenario"
	"github.com/withgalaxy/stash/pkg/shallow"
)

// Tracker remembers the last parsed definition of each scenario file so
// saves that do not change the definition are ignored.
type Tracker struct {
	cache map[string]map[string]any
	mu    sync.RWMutex
}

func NewTracker() *Tracker {
	return &Tracker{
		cache: make(map[string]map[string]any),
	}
}

// DetectChange loads path and reports whether its definition differs from
// the one seen last time. The first load of a path counts as a change.
func (t *Tracker) DetectChange(path string) (*scenario.Scenario, bool, error) {
	sc, err := scenario.Load(path)
	if err != nil {
		return nil, false, err
	}

	def := definition(sc)

	t.mu.Lock()
	defer t.mu.Unlock()

	old, exists := t.cache[path]
	t.cache[path] = def
	if !exists {
		return sc, true, nil
	}

	return sc, !shallow.Equal(old, def), nil
}

func (t *Tracker) Forget(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.cache, path)
}

func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache = make(map[string]map[string]any)
}

func definition(sc *scenario.Scenario) map[string]any {
	steps := make([]any, len(sc.Steps))
	for i, st := range sc.Steps {
		step := map[string]any{
			"set":     st.Set,
			"replace": st.Replace,
			"op":      st.Op,
			"key":     st.Key,
			"by":      st.By,
			"value":   st.Value,
		}
		if st.ExpectNotify != nil {
			step["expect_notify"] = *st.ExpectNotify
		}
		steps[i] = step
	}

	def := map[string]any{
		"name":        sc.Name,
		"description": sc.Description,
		"initial":     sc.Initial,
		"steps":       steps,
		"expect":      sc.Expect,
	}
	if sc.Notifications != nil {
		def["notifications"] = *sc.Notifications
	}
	return def
}
