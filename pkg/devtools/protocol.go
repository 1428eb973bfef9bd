package devtools

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MsgTypeConnect  MessageType = "connect"
	MsgTypeSnapshot MessageType = "snapshot"
	MsgTypeCommit   MessageType = "commit"
	MsgTypeDetach   MessageType = "detach"
)

type Message struct {
	ID       string                 `json:"id"`
	Type     MessageType            `json:"type"`
	Store    string                 `json:"store,omitempty"`
	Next     map[string]interface{} `json:"next,omitempty"`
	Prev     map[string]interface{} `json:"prev,omitempty"`
	Changed  []string               `json:"changed,omitempty"`
	Time     time.Time              `json:"time"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func newMessage(t MessageType, store string) Message {
	return Message{
		ID:    uuid.NewString(),
		Type:  t,
		Store: store,
		Time:  time.Now().UTC(),
	}
}

// encodable rewrites a state so encoding/json accepts it: funcs, channels
// and other opaque values become a type label.
func encodable(state map[string]any) map[string]interface{} {
	if state == nil {
		return nil
	}
	out := make(map[string]interface{}, len(state))
	for k, v := range state {
		out[k] = encodableValue(reflect.ValueOf(v), 0)
	}
	return out
}

const maxDepth = 32

func encodableValue(v reflect.Value, depth int) interface{} {
	if !v.IsValid() {
		return nil
	}
	if depth > maxDepth {
		return "<nested too deep>"
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return encodableValue(v.Elem(), depth+1)
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		out := make(map[string]interface{}, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key())] = encodableValue(iter.Value(), depth+1)
		}
		return out
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}
		out := make([]interface{}, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = encodableValue(v.Index(i), depth+1)
		}
		return out
	case reflect.Struct:
		out := make(map[string]interface{}, v.NumField())
		for i := 0; i < v.NumField(); i++ {
			if f := v.Type().Field(i); f.IsExported() {
				out[f.Name] = encodableValue(v.Field(i), depth+1)
			}
		}
		return out
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return fmt.Sprintf("<%s>", v.Type())
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Sprint(f)
		}
		return f
	default:
		return v.Interface()
	}
}
