package stash

import "context"

// Provider hands out one stash per context scope. Code below the scope
// resolves it with From instead of receiving it as a parameter.
type Provider[T Record] struct {
	name string
	init Initializer[T]
	opts []Option
}

type providerKey[T Record] struct {
	p *Provider[T]
}

func NewProvider[T Record](name string, init Initializer[T], opts ...Option) *Provider[T] {
	if name == "" {
		name = "Stash"
	}
	return &Provider[T]{
		name: name,
		init: init,
		opts: opts,
	}
}

func (p *Provider[T]) Name() string {
	return p.name
}

// Provide creates a fresh stash and returns a child context carrying it.
func (p *Provider[T]) Provide(ctx context.Context) (context.Context, *Stash[T]) {
	opts := append([]Option{WithName(p.name)}, p.opts...)
	s := Create(p.init, opts...)
	return context.WithValue(ctx, providerKey[T]{p: p}, s), s
}

func (p *Provider[T]) From(ctx context.Context) (*Stash[T], error) {
	if s, ok := ctx.Value(providerKey[T]{p: p}).(*Stash[T]); ok {
		return s, nil
	}
	return nil, &MissingProviderError{Name: p.name}
}

func (p *Provider[T]) MustFrom(ctx context.Context) *Stash[T] {
	s, err := p.From(ctx)
	if err != nil {
		panic(err)
	}
	return s
}
