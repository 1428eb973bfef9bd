// Package shallow implements the change-suppression comparator used by stash.
//
// Two values are shallowly equal when they are identical, or when they are
// sequences or records of the same type whose elements are, recursively,
// shallowly equal. Identity is strict: NaN is identical to NaN, +0 is not
// identical to -0, and pointers, funcs and channels are compared by address
// only.
package shallow

import (
	"math"
	"reflect"
	"sort"
	"unsafe"
)

// Equal reports whether a and b are shallowly equal. It never panics.
func Equal(a, b any) bool {
	var c comparator
	return c.equal(reflect.ValueOf(a), reflect.ValueOf(b))
}

type visit struct {
	a, b unsafe.Pointer
	n    int
	typ  reflect.Type
}

type comparator struct {
	visited map[visit]struct{}
}

func (c *comparator) equal(a, b reflect.Value) bool {
	a, b = unwrap(a), unwrap(b)

	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}

	if a.Type() != b.Type() {
		return false
	}

	if identical(a, b) {
		return true
	}

	switch shapeOf(a) {
	case shapeSequence:
		return c.sequence(a, b)
	case shapeRecord:
		return c.record(a, b)
	default:
		return false
	}
}

// identical is the identity check; a and b share a type.
func identical(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.String:
		return a.String() == b.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() == b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() == b.Uint()
	case reflect.Float32, reflect.Float64:
		return sameFloat(a.Float(), b.Float())
	case reflect.Complex64, reflect.Complex128:
		x, y := a.Complex(), b.Complex()
		return sameFloat(real(x), real(y)) && sameFloat(imag(x), imag(y))
	case reflect.Func:
		return closure(a) == closure(b)
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer, reflect.Map:
		return a.Pointer() == b.Pointer()
	case reflect.Slice:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		return a.Pointer() == b.Pointer() && a.Len() == b.Len()
	default:
		return false
	}
}

// closure returns the address of the func value's closure object. Two funcs
// built by the same literal share code but not closures.
func closure(v reflect.Value) unsafe.Pointer {
	if v.IsNil() {
		return nil
	}
	if v.CanAddr() {
		return *(*unsafe.Pointer)(unsafe.Pointer(v.UnsafeAddr()))
	}
	if v.CanInterface() {
		fn := v.Interface()
		return (*[2]unsafe.Pointer)(unsafe.Pointer(&fn))[1]
	}
	return v.UnsafePointer()
}

func sameFloat(x, y float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.IsNaN(x) && math.IsNaN(y)
	}
	return x == y && math.Signbit(x) == math.Signbit(y)
}

func (c *comparator) sequence(a, b reflect.Value) bool {
	if a.Kind() == reflect.Slice {
		if a.IsNil() != b.IsNil() {
			return false
		}
	}

	if a.Len() != b.Len() {
		return false
	}

	if a.Kind() == reflect.Slice && a.Len() > 0 {
		v, cycle := c.enter(a, b)
		if cycle {
			return true
		}
		defer c.leave(v)
	}

	for i := 0; i < a.Len(); i++ {
		if !c.equal(a.Index(i), b.Index(i)) {
			return false
		}
	}
	return true
}

func (c *comparator) record(a, b reflect.Value) bool {
	if a.Kind() == reflect.Struct {
		a, b = addressable(a), addressable(b)
		for i := 0; i < a.NumField(); i++ {
			if !c.equal(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true
	}

	if a.IsNil() != b.IsNil() {
		return false
	}

	if a.Len() != b.Len() {
		return false
	}

	if a.Len() > 0 {
		v, cycle := c.enter(a, b)
		if cycle {
			return true
		}
		defer c.leave(v)
	}

	for _, key := range sortedKeys(a) {
		bv := b.MapIndex(key)
		if !bv.IsValid() {
			return false
		}
		if !c.equal(a.MapIndex(key), bv) {
			return false
		}
	}
	return true
}

// enter marks the (a, b) pair as being compared and reports whether it
// already was, which only happens for self-referencing structures.
func (c *comparator) enter(a, b reflect.Value) (visit, bool) {
	v := visit{a: a.UnsafePointer(), b: b.UnsafePointer(), n: a.Len(), typ: a.Type()}
	if c.visited == nil {
		c.visited = make(map[visit]struct{})
	}
	if _, ok := c.visited[v]; ok {
		return v, true
	}
	c.visited[v] = struct{}{}
	return v, false
}

func (c *comparator) leave(v visit) {
	delete(c.visited, v)
}

// addressable copies a struct so its fields, exported or not, can be read
// in place.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() || !v.CanInterface() {
		return v
	}
	cp := reflect.New(v.Type()).Elem()
	cp.Set(v)
	return cp
}

func sortedKeys(m reflect.Value) []reflect.Value {
	keys := m.MapKeys()
	if m.Type().Key().Kind() == reflect.String {
		sort.Slice(keys, func(i, j int) bool {
			return keys[i].String() < keys[j].String()
		})
	}
	return keys
}
