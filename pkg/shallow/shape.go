package shallow

import (
	"reflect"
	"unsafe"
)

// shape is the comparison strategy picked for a value.
type shape int

const (
	shapeNil shape = iota
	shapeScalar
	shapeFloat
	shapeComplex
	shapeSequence
	shapeRecord
	shapeOpaque
)

func (s shape) String() string {
	switch s {
	case shapeNil:
		return "nil"
	case shapeScalar:
		return "scalar"
	case shapeFloat:
		return "float"
	case shapeComplex:
		return "complex"
	case shapeSequence:
		return "sequence"
	case shapeRecord:
		return "record"
	default:
		return "opaque"
	}
}

func shapeOf(v reflect.Value) shape {
	if !v.IsValid() {
		return shapeNil
	}

	switch v.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return shapeScalar
	case reflect.Float32, reflect.Float64:
		return shapeFloat
	case reflect.Complex64, reflect.Complex128:
		return shapeComplex
	case reflect.Slice, reflect.Array:
		return shapeSequence
	case reflect.Map, reflect.Struct:
		return shapeRecord
	default:
		return shapeOpaque
	}
}

// unwrap strips interface boxes so the dynamic value is classified.
func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.CanAddr() && !v.CanInterface() {
			// unexported field: re-read it so the dynamic value stays readable
			v = reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
		}
		v = v.Elem()
	}
	return v
}
