package resolution

import (
	"reflect"
	"sync"
)

// CreateSelector wraps fn so it only recomputes when one of the values
// returned by deps differs by reference from the previous call. It keeps a
// single cached result. Pointers, maps, slices, channels and funcs compare by
// address; other values compare with ==, falling back to "changed" for
// uncomparable values. The returned function is safe for concurrent use.
func CreateSelector[In, Out any](fn func(In) Out, deps func(In) []any) func(In) Out {
	var (
		mu       sync.Mutex
		cached   bool
		lastDeps []any
		lastOut  Out
	)
	return func(in In) Out {
		current := deps(in)

		mu.Lock()
		defer mu.Unlock()
		if cached && sameDeps(lastDeps, current) {
			return lastOut
		}
		lastOut = fn(in)
		lastDeps = current
		cached = true
		return lastOut
	}
}

func sameDeps(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameRef(a[i], b[i]) {
			return false
		}
	}
	return true
}

func sameRef(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if !va.Comparable() {
		return false
	}
	return a == b
}
