package stash

import (
	"errors"
	"fmt"
)

var ErrMissingProvider = errors.New("stash: context provider is missing")

// MissingProviderError is returned when a provider-scoped stash is resolved
// from a context that the provider never populated.
type MissingProviderError struct {
	Name string
}

func (e *MissingProviderError) Error() string {
	return fmt.Sprintf("%s Context Provider is missing in the tree", e.Name)
}

func (e *MissingProviderError) Unwrap() error {
	return ErrMissingProvider
}
