package stash

const defaultName = "stash"

type Option func(*options)

type options struct {
	name     string
	observer Observer
}

func newOptions(opts []Option) options {
	o := options{name: defaultName}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithName labels the stash for observers and devtools.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}
