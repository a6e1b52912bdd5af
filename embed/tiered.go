package embed

import "fmt"

// Factory constructs an Embedder, or returns an error if its underlying
// dependency (a model, a remote endpoint) is unavailable.
type Factory func() (Embedder, error)

// NewTiered tries each factory in order and returns the first Embedder that
// constructs successfully. This is the explicit, Go-native replacement for
// the source's dynamic-typing plugin auto-detection: candidate tiers are
// listed by the caller instead of probed via optional imports, and a
// dependency-free fallback (HashFactory) should always be listed last.
func NewTiered(factories ...Factory) (Embedder, error) {
	var errs []error
	for _, f := range factories {
		e, err := f()
		if err == nil {
			return e, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("embed: no candidate factory succeeded: %v", errs)
}

// HashFactory returns a Factory producing a dependency-free Hash embedder
// of the given dimension. Intended to always be the last candidate passed
// to NewTiered.
func HashFactory(dimension int) Factory {
	return func() (Embedder, error) {
		return NewHash(dimension), nil
	}
}
