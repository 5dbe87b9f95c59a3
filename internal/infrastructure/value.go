package infrastructure

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Kind enumerates the shapes a configuration value can take.
type Kind int

const (
	KindAbsent Kind = iota
	KindString
	KindNumber
	KindBool
	KindMap
	KindList
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a configuration value. The zero Value is absent.
type Value struct {
	kind Kind
	str  string // exact source text for integer numbers
	num  float64
	b    bool
	m    map[string]Value
	list []Value
}

// Absent returns the value used for missing keys.
func Absent() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// integer keeps the decimal text of an integer so values beyond float64
// precision still print exactly.
func integer(text string, n float64) Value {
	return Value{kind: KindNumber, str: text, num: n}
}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Map returns a nested mapping value.
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

// List returns a sequence value.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// FromAny converts decoded configuration data into a Value. nil becomes
// Absent and scalars the format has no variant for are kept as strings.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Absent()
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return integer(strconv.FormatInt(int64(t), 10), float64(t))
	case int8:
		return integer(strconv.FormatInt(int64(t), 10), float64(t))
	case int16:
		return integer(strconv.FormatInt(int64(t), 10), float64(t))
	case int32:
		return integer(strconv.FormatInt(int64(t), 10), float64(t))
	case int64:
		return integer(strconv.FormatInt(int64(t), 10), float64(t))
	case uint:
		return integer(strconv.FormatUint(uint64(t), 10), float64(t))
	case uint8:
		return integer(strconv.FormatUint(uint64(t), 10), float64(t))
	case uint16:
		return integer(strconv.FormatUint(uint64(t), 10), float64(t))
	case uint32:
		return integer(strconv.FormatUint(uint64(t), 10), float64(t))
	case uint64:
		return integer(strconv.FormatUint(uint64(t), 10), float64(t))
	case float32:
		return Number(float64(t))
	case float64:
		return Number(t)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, v := range t {
			m[k] = FromAny(v)
		}
		return Map(m)
	case map[any]any:
		m := make(map[string]Value, len(t))
		for k, v := range t {
			m[fmt.Sprint(k)] = FromAny(v)
		}
		return Map(m)
	case []any:
		items := make([]Value, 0, len(t))
		for _, v := range t {
			items = append(items, FromAny(v))
		}
		return List(items...)
	case []string:
		items := make([]Value, 0, len(t))
		for _, v := range t {
			items = append(items, String(v))
		}
		return List(items...)
	default:
		return String(fmt.Sprint(t))
	}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v is the missing-key value.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// AsString returns the string payload and whether v is a string.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsNumber returns the numeric payload and whether v is a number.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AsBool returns the boolean payload and whether v is a bool.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsMap returns the nested mapping and whether v is a map.
func (v Value) AsMap() (map[string]Value, bool) {
	return v.m, v.kind == KindMap
}

// AsList returns the items and whether v is a list.
func (v Value) AsList() ([]Value, bool) {
	return v.list, v.kind == KindList
}

// Scalar returns the text of a string, number or bool value. Numbers read
// from YAML such as an all-digit API key keep their exact digits.
func (v Value) Scalar() (string, bool) {
	switch v.kind {
	case KindString:
		return v.str, true
	case KindNumber:
		if v.str != "" {
			return v.str, true
		}
		s, err := cast.ToStringE(v.num)
		return s, err == nil
	case KindBool:
		s, err := cast.ToStringE(v.b)
		return s, err == nil
	default:
		return "", false
	}
}

// StringOr returns the string payload, or def for any other kind.
func (v Value) StringOr(def string) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	return def
}

// NumberOr returns the numeric payload, or def for any other kind. Numeric
// strings are accepted since environment-sourced settings arrive as text.
func (v Value) NumberOr(def float64) float64 {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindString:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64); err == nil {
			return n
		}
	}
	return def
}

// Lookup walks nested maps along path. A missing segment yields Absent.
func (v Value) Lookup(path ...string) Value {
	cur := v
	for _, seg := range path {
		m, ok := cur.AsMap()
		if !ok {
			return Absent()
		}
		next, ok := m[seg]
		if !ok {
			return Absent()
		}
		cur = next
	}
	return cur
}

// Interface converts the value back into plain Go data.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	case KindList:
		out := make([]any, 0, len(v.list))
		for _, item := range v.list {
			out = append(out, item.Interface())
		}
		return out
	default:
		return nil
	}
}

// String formats v for display. Maps print with sorted keys.
func (v Value) String() string {
	switch v.kind {
	case KindAbsent:
		return ""
	case KindString, KindNumber, KindBool:
		s, _ := v.Scalar()
		return s
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+v.m[k].String())
		}
		return "{" + strings.Join(parts, " ") + "}"
	case KindList:
		parts := make([]string, 0, len(v.list))
		for _, item := range v.list {
			parts = append(parts, item.String())
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return ""
	}
}
