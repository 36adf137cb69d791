package keymap

import (
	"sort"

	clone "github.com/huandu/go-clone"
)

// Key is the canonical form of an argument tuple. Two tuples that are
// structurally equal encode to the same Key.
type Key string

// EmptyKey is the key of a call made without arguments.
const EmptyKey Key = "[]"

// Normalize trims trailing nil arguments and returns the remaining prefix.
// A nil tuple normalizes to an empty one.
func Normalize(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	end := len(args)
	for end > 0 && args[end-1] == nil {
		end--
	}
	if end == 0 {
		return nil
	}
	return args[:end]
}

// KeyOf returns the canonical Key for args. Maps and structs encode as
// objects with sorted keys, so {"id": 1} built twice yields the same key and a
// struct matches the map of its json field names. Unexported fields are part
// of the key, byte slices never match strings, and numbers of equal value
// match regardless of type. Funcs and channels compare by identity.
func KeyOf(args ...any) Key {
	args = Normalize(args)
	if len(args) == 0 {
		return EmptyKey
	}
	return Key(encodeCanonical(args))
}

type entry[V any] struct {
	args  []any
	value V
}

// Map associates argument tuples with values using structural equality. It is
// copy-on-write: With and Without return new maps and never modify the
// receiver, so a *Map can be shared between readers without locking. A nil
// *Map behaves as an empty map.
type Map[V any] struct {
	entries map[Key]entry[V]
}

// New returns an empty map.
func New[V any]() *Map[V] {
	return &Map[V]{entries: map[Key]entry[V]{}}
}

// Len returns the number of entries.
func (m *Map[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Get returns the value stored for args.
func (m *Map[V]) Get(args ...any) (V, bool) {
	return m.GetKey(KeyOf(args...))
}

// GetKey returns the value stored for an already normalized key.
func (m *Map[V]) GetKey(key Key) (V, bool) {
	var zero V
	if m == nil {
		return zero, false
	}
	e, ok := m.entries[key]
	if !ok {
		return zero, false
	}
	return e.value, true
}

// Has reports whether a value is stored for args.
func (m *Map[V]) Has(args ...any) bool {
	_, ok := m.Get(args...)
	return ok
}

// With returns a copy of m with value stored under args. The stored args are
// deep-cloned so later mutation by the caller does not leak into the map.
func (m *Map[V]) With(args []any, value V) *Map[V] {
	args = Normalize(args)
	next := m.copy(1)
	next.entries[KeyOf(args...)] = entry[V]{
		args:  cloneArgs(args),
		value: value,
	}
	return next
}

// WithMany stores value under each tuple in argsList, copying m once.
func (m *Map[V]) WithMany(argsList [][]any, value func(i int) V) *Map[V] {
	next := m.copy(len(argsList))
	for i, args := range argsList {
		args = Normalize(args)
		next.entries[KeyOf(args...)] = entry[V]{
			args:  cloneArgs(args),
			value: value(i),
		}
	}
	return next
}

// Without returns a copy of m without args. When args is absent the receiver
// itself is returned.
func (m *Map[V]) Without(args ...any) *Map[V] {
	key := KeyOf(args...)
	if m == nil {
		return nil
	}
	if _, ok := m.entries[key]; !ok {
		return m
	}
	next := m.copy(0)
	delete(next.entries, key)
	return next
}

// Keys returns all keys in ascending order.
func (m *Map[V]) Keys() []Key {
	if m == nil {
		return nil
	}
	keys := make([]Key, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Values returns all stored values in key order.
func (m *Map[V]) Values() []V {
	keys := m.Keys()
	values := make([]V, 0, len(keys))
	for _, key := range keys {
		values = append(values, m.entries[key].value)
	}
	return values
}

// Range calls fn for each entry in key order until fn returns false. The args
// passed to fn are a copy and may be retained.
func (m *Map[V]) Range(fn func(key Key, args []any, value V) bool) {
	for _, key := range m.Keys() {
		e := m.entries[key]
		if !fn(key, cloneArgs(e.args), e.value) {
			return
		}
	}
}

// Any reports whether pred holds for at least one value. Iteration order is
// unspecified and stops at the first match.
func (m *Map[V]) Any(pred func(V) bool) bool {
	if m == nil {
		return false
	}
	for _, e := range m.entries {
		if pred(e.value) {
			return true
		}
	}
	return false
}

func (m *Map[V]) copy(extra int) *Map[V] {
	size := m.Len() + extra
	next := &Map[V]{entries: make(map[Key]entry[V], size)}
	if m == nil {
		return next
	}
	for key, e := range m.entries {
		next.entries[key] = e
	}
	return next
}

func cloneArgs(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	return clone.Clone(args).([]any)
}
