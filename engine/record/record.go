// Package record models raw query results as a closed variant type so that
// the projection layer's fallback-chain field access is a pure function over
// known shapes instead of ad hoc map probing. A value is Null, a Scalar, an
// Entity (one graph node/relationship worth of keyed properties), or a List.
package record

import (
	"fmt"
	"strconv"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindEntity
	KindList
)

// Value is one dynamically-typed cell of a query result.
type Value struct {
	kind   Kind
	scalar any
	entity *Entity
	list   []Value
}

// Entity is an ordered-irrelevant property bag representing one graph node or
// relationship. Labels and ElementID are populated when the value originated
// from a driver node/relationship rather than a projected map.
type Entity struct {
	Labels    []string
	ElementID string
	Props     map[string]Value
}

// Record is one result row: column name to value, preserving query column order.
type Record struct {
	Keys   []string
	Values map[string]Value
}

// Null is the null Value.
var Null = Value{kind: KindNull}

// FromAny converts an arbitrary driver value into a Value. All driver node,
// relationship, map, and slice shapes are recognised; anything else becomes a
// scalar. Conversion never fails.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case Value:
		return t
	case dbtype.Node:
		return entityValue(&Entity{
			Labels:    t.Labels,
			ElementID: t.ElementId,
			Props:     propsFromMap(t.Props),
		})
	case dbtype.Relationship:
		return entityValue(&Entity{
			Labels:    []string{t.Type},
			ElementID: t.ElementId,
			Props:     propsFromMap(t.Props),
		})
	case map[string]any:
		return entityValue(&Entity{Props: propsFromMap(t)})
	case []any:
		list := make([]Value, 0, len(t))
		for _, item := range t {
			list = append(list, FromAny(item))
		}
		return Value{kind: KindList, list: list}
	default:
		return Value{kind: KindScalar, scalar: v}
	}
}

func entityValue(e *Entity) Value { return Value{kind: KindEntity, entity: e} }

func propsFromMap(m map[string]any) map[string]Value {
	props := make(map[string]Value, len(m))
	for k, v := range m {
		props[k] = FromAny(v)
	}
	return props
}

// NewRecord builds a Record from parallel key/value slices as returned by the
// driver. Extra values beyond len(keys) are ignored.
func NewRecord(keys []string, values []any) Record {
	rec := Record{Keys: keys, Values: make(map[string]Value, len(keys))}
	for i, k := range keys {
		if i < len(values) {
			rec.Values[k] = FromAny(values[i])
		} else {
			rec.Values[k] = Null
		}
	}
	return rec
}

// Kind returns the variant held.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsEntity returns the entity variant, or nil for any other kind.
func (v Value) AsEntity() *Entity {
	if v.kind != KindEntity {
		return nil
	}
	return v.entity
}

// AsList returns the list variant, or nil for any other kind.
func (v Value) AsList() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Scalar returns the raw scalar, or nil for any other kind.
func (v Value) Scalar() any {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// AsString stringifies the value: scalars via strconv/fmt, null as "".
// Entities and lists have no string form and yield "".
func (v Value) AsString() string {
	if v.kind != KindScalar {
		return ""
	}
	switch s := v.scalar.(type) {
	case string:
		return s
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case time.Time:
		return s.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", s)
	}
}

// Get returns the named property of an entity value, Null otherwise.
func (v Value) Get(key string) Value {
	if e := v.AsEntity(); e != nil {
		if pv, ok := e.Props[key]; ok {
			return pv
		}
	}
	return Null
}

// FirstOf walks a prioritized fallback chain of property names and returns
// the first non-null value found.
func (v Value) FirstOf(keys ...string) Value {
	for _, k := range keys {
		if pv := v.Get(k); !pv.IsNull() {
			return pv
		}
	}
	return Null
}

// StringOr returns the named property as a string, or def when null/absent.
func (v Value) StringOr(key, def string) string {
	pv := v.Get(key)
	if pv.IsNull() {
		return def
	}
	if s := pv.AsString(); s != "" {
		return s
	}
	return def
}

// Get returns the named column of the record, Null when absent.
func (r Record) Get(key string) Value {
	if v, ok := r.Values[key]; ok {
		return v
	}
	return Null
}

// Has reports whether the record carries the named column.
func (r Record) Has(key string) bool {
	_, ok := r.Values[key]
	return ok
}

// ToAny converts a Value back into plain Go data (maps, slices, scalars) for
// opaque passthrough serialization.
func (v Value) ToAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindScalar:
		switch s := v.scalar.(type) {
		case time.Time:
			return s.Format(time.RFC3339)
		default:
			return v.scalar
		}
	case KindEntity:
		out := make(map[string]any, len(v.entity.Props))
		for k, pv := range v.entity.Props {
			out[k] = pv.ToAny()
		}
		return out
	case KindList:
		out := make([]any, 0, len(v.list))
		for _, item := range v.list {
			out = append(out, item.ToAny())
		}
		return out
	default:
		return nil
	}
}

// ToMap converts a Record into a plain map for passthrough serialization.
func (r Record) ToMap() map[string]any {
	out := make(map[string]any, len(r.Keys))
	for _, k := range r.Keys {
		out[k] = r.Values[k].ToAny()
	}
	return out
}
