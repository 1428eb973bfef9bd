package scenario

import "fmt"

// Scenario is a scripted stash run.
type Scenario struct {
	Name          string         `yaml:"name" toml:"name"`
	Description   string         `yaml:"description,omitempty" toml:"description"`
	Initial       map[string]any `yaml:"initial" toml:"initial"`
	Steps         []Step         `yaml:"steps" toml:"steps"`
	Expect        map[string]any `yaml:"expect,omitempty" toml:"expect"`
	Notifications *int           `yaml:"notifications,omitempty" toml:"notifications"`

	Path            string `yaml:"-" toml:"-"`
	DescriptionHTML string `yaml:"-" toml:"-"`
}

// Step is one write. Exactly one of Set, Replace or Op is given.
type Step struct {
	Set          map[string]any `yaml:"set,omitempty" toml:"set"`
	Replace      map[string]any `yaml:"replace,omitempty" toml:"replace"`
	Op           string         `yaml:"op,omitempty" toml:"op"`
	Key          string         `yaml:"key,omitempty" toml:"key"`
	By           any            `yaml:"by,omitempty" toml:"by"`
	Value        any            `yaml:"value,omitempty" toml:"value"`
	ExpectNotify *bool          `yaml:"expect_notify,omitempty" toml:"expect_notify"`
}

const (
	KindSet     = "set"
	KindReplace = "replace"
)

// Kind names what the step does: "set", "replace" or the op name.
func (s Step) Kind() (string, error) {
	n := 0
	kind := ""
	if s.Set != nil {
		n++
		kind = KindSet
	}
	if s.Replace != nil {
		n++
		kind = KindReplace
	}
	if s.Op != "" {
		n++
		kind = s.Op
	}

	switch n {
	case 0:
		return "", fmt.Errorf("%w: step has no set, replace or op", ErrInvalidStep)
	case 1:
	default:
		return "", fmt.Errorf("%w: step mixes set, replace and op", ErrInvalidStep)
	}

	if s.Op != "" {
		if _, ok := ops[s.Op]; !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownOp, s.Op)
		}
		if s.Key == "" {
			return "", fmt.Errorf("%w: op %q needs a key", ErrInvalidStep, s.Op)
		}
	}

	return kind, nil
}

func (sc *Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return fmt.Errorf("%w: scenario %q has no steps", ErrInvalidStep, sc.Name)
	}
	for i, step := range sc.Steps {
		if _, err := step.Kind(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

// normalize converts decoded documents to the value shapes used at run time.
func (sc *Scenario) normalize() {
	sc.Initial = normalizeRecord(sc.Initial)
	sc.Expect = normalizeRecord(sc.Expect)
	for i := range sc.Steps {
		st := &sc.Steps[i]
		st.Set = normalizeRecord(st.Set)
		st.Replace = normalizeRecord(st.Replace)
		st.By = Normalize(st.By)
		st.Value = Normalize(st.Value)
	}
}
