package cache

import (
	"database/sql/driver"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// canonicalize renders v as a stable string: map keys are sorted, slices and
// arrays keep their order, pointers and interfaces are dereferenced and
// strings are quoted so that separators inside values cannot alias structure.
func canonicalize(v any) string {
	var b strings.Builder
	writeCanonical(&b, reflect.ValueOf(v))
	return b.String()
}

func writeCanonical(b *strings.Builder, rv reflect.Value) {
	if !rv.IsValid() {
		b.WriteString("null")
		return
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			b.WriteString("null")
			return
		}
	}

	if writeMarshaled(b, rv) {
		return
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		writeCanonical(b, rv.Elem())

	case reflect.String:
		b.WriteString(strconv.Quote(rv.String()))

	case reflect.Bool:
		b.WriteString(strconv.FormatBool(rv.Bool()))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(rv.Int(), 10))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(strconv.FormatUint(rv.Uint(), 10))

	case reflect.Float32, reflect.Float64:
		b.WriteString(strconv.FormatFloat(rv.Float(), 'g', -1, 64))

	case reflect.Slice:
		if rv.IsNil() {
			b.WriteString("null")
			return
		}
		writeSequence(b, rv)

	case reflect.Array:
		writeSequence(b, rv)

	case reflect.Map:
		if rv.IsNil() {
			b.WriteString("null")
			return
		}
		writeMap(b, rv)

	case reflect.Struct:
		writeStruct(b, rv)

	default:
		writeJSONFallback(b, rv)
	}
}

func writeSequence(b *strings.Builder, rv reflect.Value) {
	b.WriteByte('[')
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		writeCanonical(b, rv.Index(i))
	}
	b.WriteByte(']')
}

// writeMap orders entries by the canonical form of their keys.
func writeMap(b *strings.Builder, rv reflect.Value) {
	type pair struct {
		key   string
		value reflect.Value
	}

	iter := rv.MapRange()
	pairs := make([]pair, 0, rv.Len())
	for iter.Next() {
		pairs = append(pairs, pair{key: canonicalize(iter.Key().Interface()), value: iter.Value()})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	b.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.key)
		b.WriteByte(':')
		writeCanonical(b, p.value)
	}
	b.WriteByte('}')
}

// writeMarshaled renders values that know their own textual form, so that
// time.Time, uuid.UUID and decimal types are keyed by their value.
func writeMarshaled(b *strings.Builder, rv reflect.Value) bool {
	if !rv.CanInterface() {
		return false
	}

	switch m := rv.Interface().(type) {
	case encoding.TextMarshaler:
		text, err := m.MarshalText()
		if err != nil {
			return false
		}
		b.WriteString(strconv.Quote(string(text)))
		return true
	case json.Marshaler:
		data, err := m.MarshalJSON()
		if err != nil {
			return false
		}
		b.Write(data)
		return true
	case driver.Valuer:
		v, err := m.Value()
		if err != nil {
			return false
		}
		if _, again := v.(driver.Valuer); again {
			return false
		}
		writeCanonical(b, reflect.ValueOf(v))
		return true
	}
	return false
}

// writeStruct emits exported fields sorted by name. Structs without exported
// fields are rendered with their Go syntax so distinct values stay distinct.
func writeStruct(b *strings.Builder, rv reflect.Value) {
	rt := rv.Type()
	if !hasExportedField(rt) {
		b.WriteString(strconv.Quote(fmt.Sprintf("%#v", rv)))
		return
	}

	names := make([]string, 0, rt.NumField())
	index := make(map[string]int, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		names = append(names, field.Name)
		index[field.Name] = i
	}
	sort.Strings(names)

	b.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(name))
		b.WriteByte(':')
		writeCanonical(b, rv.Field(index[name]))
	}
	b.WriteByte('}')
}

// writeJSONFallback handles kinds with no natural textual form (complex
// numbers, funcs, channels). Values that cannot be marshalled fall back to
// their type name.
func writeJSONFallback(b *strings.Builder, rv reflect.Value) {
	if rv.CanInterface() {
		if data, err := json.Marshal(rv.Interface()); err == nil {
			b.Write(data)
			return
		}
	}
	fmt.Fprintf(b, "<%s>", rv.Type().String())
}

func hasExportedField(rt reflect.Type) bool {
	for i := 0; i < rt.NumField(); i++ {
		if rt.Field(i).IsExported() {
			return true
		}
	}
	return false
}
