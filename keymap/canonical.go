package keymap

import (
	"encoding"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

var (
	jsonNumberType    = reflect.TypeOf(json.Number(""))
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// canonicalEncoder writes a JSON-like text for a value in which:
//   - maps and structs are objects with sorted keys; struct fields use their
//     json names and honour omitempty, unexported fields included;
//   - numbers of equal value share one spelling, so 1, 1.0 and
//     json.Number("1") match;
//   - byte slices are written as bytes(<hex>), never as a string;
//   - types that marshal themselves are keyed by what they marshal to.
type canonicalEncoder struct {
	b       strings.Builder
	visited map[uintptr]bool
}

func encodeCanonical(args []any) string {
	e := &canonicalEncoder{visited: map[uintptr]bool{}}
	e.b.WriteByte('[')
	for i, arg := range args {
		if i > 0 {
			e.b.WriteByte(',')
		}
		e.value(reflect.ValueOf(arg))
	}
	e.b.WriteByte(']')
	return e.b.String()
}

func (e *canonicalEncoder) value(v reflect.Value) {
	if !v.IsValid() {
		e.b.WriteString("null")
		return
	}

	if v.Type() == jsonNumberType {
		e.number(json.Number(v.String()))
		return
	}
	if v.Kind() != reflect.Pointer && v.Kind() != reflect.Interface && implementsMarshaler(v.Type()) {
		if e.marshaled(v) {
			return
		}
	}

	switch v.Kind() {
	case reflect.Bool:
		e.b.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.b.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		e.b.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		e.float(v.Float())
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		e.b.WriteString("complex(")
		e.float(real(c))
		e.b.WriteByte(',')
		e.float(imag(c))
		e.b.WriteByte(')')
	case reflect.String:
		e.b.WriteString(strconv.Quote(v.String()))
	case reflect.Interface:
		if v.IsNil() {
			e.b.WriteString("null")
			return
		}
		e.value(v.Elem())
	case reflect.Pointer:
		if v.IsNil() {
			e.b.WriteString("null")
			return
		}
		if e.enter(v.Pointer()) {
			defer e.leave(v.Pointer())
			e.value(v.Elem())
		}
	case reflect.Slice:
		if v.IsNil() {
			e.b.WriteString("null")
			return
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			e.bytes(v)
			return
		}
		if e.enter(v.Pointer()) {
			defer e.leave(v.Pointer())
			e.list(v)
		}
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			e.bytes(v)
			return
		}
		e.list(v)
	case reflect.Map:
		if v.IsNil() {
			e.b.WriteString("null")
			return
		}
		if e.enter(v.Pointer()) {
			defer e.leave(v.Pointer())
			e.mapValue(v)
		}
	case reflect.Struct:
		e.structValue(v)
	default:
		// funcs, channels and unsafe pointers compare by identity
		fmt.Fprintf(&e.b, "%s(%#x)", v.Kind(), v.Pointer())
	}
}

func implementsMarshaler(t reflect.Type) bool {
	return t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType)
}

// marshaled keys v by its own JSON, re-read so that the result follows the
// same number and ordering rules as everything else.
func (e *canonicalEncoder) marshaled(v reflect.Value) bool {
	if !v.CanInterface() {
		return false
	}
	raw, err := json.Marshal(v.Interface())
	if err != nil {
		return false
	}
	decoder := json.NewDecoder(strings.NewReader(string(raw)))
	decoder.UseNumber()
	var generic any
	if err := decoder.Decode(&generic); err != nil {
		return false
	}
	e.value(reflect.ValueOf(generic))
	return true
}

func (e *canonicalEncoder) enter(ptr uintptr) bool {
	if e.visited[ptr] {
		e.b.WriteString("cycle")
		return false
	}
	e.visited[ptr] = true
	return true
}

func (e *canonicalEncoder) leave(ptr uintptr) {
	delete(e.visited, ptr)
}

func (e *canonicalEncoder) number(n json.Number) {
	if i, err := n.Int64(); err == nil {
		e.b.WriteString(strconv.FormatInt(i, 10))
		return
	}
	if f, err := n.Float64(); err == nil {
		e.float(f)
		return
	}
	e.b.WriteString(strconv.Quote(n.String()))
}

func (e *canonicalEncoder) float(f float64) {
	switch {
	case math.IsNaN(f):
		e.b.WriteString("NaN")
	case math.IsInf(f, 0):
		if f > 0 {
			e.b.WriteString("+Inf")
		} else {
			e.b.WriteString("-Inf")
		}
	case f == 0:
		e.b.WriteString("0")
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		e.b.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
	default:
		e.b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
}

func (e *canonicalEncoder) bytes(v reflect.Value) {
	raw := make([]byte, v.Len())
	for i := range raw {
		raw[i] = byte(v.Index(i).Uint())
	}
	e.b.WriteString("bytes(")
	e.b.WriteString(hex.EncodeToString(raw))
	e.b.WriteByte(')')
}

func (e *canonicalEncoder) list(v reflect.Value) {
	e.b.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			e.b.WriteByte(',')
		}
		e.value(v.Index(i))
	}
	e.b.WriteByte(']')
}

type field struct {
	name  string
	value reflect.Value
}

func (e *canonicalEncoder) mapValue(v reflect.Value) {
	fields := make([]field, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		fields = append(fields, field{name: e.mapKey(iter.Key()), value: iter.Value()})
	}
	e.object(fields)
}

func (e *canonicalEncoder) mapKey(k reflect.Value) string {
	for k.Kind() == reflect.Interface && !k.IsNil() {
		k = k.Elem()
	}
	if k.Kind() == reflect.String && k.Type() != jsonNumberType {
		return k.String()
	}
	sub := &canonicalEncoder{visited: e.visited}
	sub.value(k)
	return sub.b.String()
}

func (e *canonicalEncoder) structValue(v reflect.Value) {
	e.object(structFields(v, nil))
}

func structFields(v reflect.Value, fields []field) []field {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fv := v.Field(i)
		name, omitEmpty := jsonName(sf)

		if sf.Anonymous && name == "" && sf.IsExported() {
			embedded := fv
			if embedded.Kind() == reflect.Pointer {
				if embedded.IsNil() {
					continue
				}
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				fields = structFields(embedded, fields)
				continue
			}
		}
		if name == "" {
			name = sf.Name
		}
		if omitEmpty && fv.IsZero() {
			continue
		}
		fields = append(fields, field{name: name, value: fv})
	}
	return fields
}

// jsonName returns the json tag name of an exported field and whether it is
// omitempty. Fields tagged "-" fall back to their Go name so they still take
// part in the key.
func jsonName(sf reflect.StructField) (string, bool) {
	if !sf.IsExported() {
		return "", false
	}
	tag, ok := sf.Tag.Lookup("json")
	if !ok || tag == "-" {
		return "", false
	}
	name, opts, _ := strings.Cut(tag, ",")
	omitEmpty := false
	for _, opt := range strings.Split(opts, ",") {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty
}

func (e *canonicalEncoder) object(fields []field) {
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].name < fields[j].name })
	e.b.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			e.b.WriteByte(',')
		}
		e.b.WriteString(strconv.Quote(f.name))
		e.b.WriteByte(':')
		e.value(f.value)
	}
	e.b.WriteByte('}')
}
