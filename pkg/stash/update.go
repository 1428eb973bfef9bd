package stash

// Update is a pending write: either a patch merged onto the current state
// or a function computing that patch from it.
type Update[T Record] struct {
	patch   T
	compute func(prev T) T
}

// Patch returns an update that merges p onto the current state.
func Patch[T Record](p T) Update[T] {
	return Update[T]{patch: p}
}

// Compute returns an update whose patch is fn(current state).
func Compute[T Record](fn func(prev T) T) Update[T] {
	return Update[T]{compute: fn}
}

func (u Update[T]) resolve(prev T) T {
	if u.compute != nil {
		return u.compute(prev)
	}
	return u.patch
}

func merge[T Record](prev, patch T) T {
	next := make(T, len(prev)+len(patch))
	for k, v := range prev {
		next[k] = v
	}
	for k, v := range patch {
		next[k] = v
	}
	return next
}

func copyRecord[T Record](src T) T {
	dst := make(T, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
