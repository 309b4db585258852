// Package jsonv provides a small recursive JSON value type for walking
// semi-structured Power BI documents.
//
// Power BI layout files nest JSON documents inside string fields and place
// visual metadata under keys that vary between versions. Values keep object
// members in document order so that "first match" searches are deterministic,
// and every accessor is safe on a nil receiver: a missing key simply yields a
// nil *Value that contributes nothing to the caller.
package jsonv

import (
	"fmt"

	"github.com/valyala/fastjson"
)

// Kind identifies the variant held by a Value.
type Kind int

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Member is a single key/value pair of an object.
type Member struct {
	Key   string
	Value *Value
}

// Value is a parsed JSON value.
type Value struct {
	kind    Kind
	boolean bool
	number  float64
	str     string
	items   []*Value
	members []Member
}

// Parse parses data into a Value tree.
func Parse(data []byte) (*Value, error) {
	var p fastjson.Parser
	fv, err := p.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	return convert(fv), nil
}

// ParseString parses s into a Value tree.
func ParseString(s string) (*Value, error) {
	return Parse([]byte(s))
}

// convert copies a fastjson value into an owned Value. The fastjson tree is
// only valid until its parser is reused, so nothing is retained from it.
func convert(fv *fastjson.Value) *Value {
	switch fv.Type() {
	case fastjson.TypeObject:
		obj, _ := fv.Object()
		v := &Value{kind: KindObject}
		index := make(map[string]int, obj.Len())
		obj.Visit(func(key []byte, child *fastjson.Value) {
			k := string(key)
			// Duplicate keys keep their first position and last value.
			if i, ok := index[k]; ok {
				v.members[i].Value = convert(child)
				return
			}
			index[k] = len(v.members)
			v.members = append(v.members, Member{Key: k, Value: convert(child)})
		})
		return v
	case fastjson.TypeArray:
		arr, _ := fv.Array()
		v := &Value{kind: KindArray, items: make([]*Value, 0, len(arr))}
		for _, item := range arr {
			v.items = append(v.items, convert(item))
		}
		return v
	case fastjson.TypeString:
		b, _ := fv.StringBytes()
		return &Value{kind: KindString, str: string(b)}
	case fastjson.TypeNumber:
		n, _ := fv.Float64()
		return &Value{kind: KindNumber, number: n}
	case fastjson.TypeTrue:
		return &Value{kind: KindBool, boolean: true}
	case fastjson.TypeFalse:
		return &Value{kind: KindBool}
	default:
		return &Value{kind: KindNull}
	}
}

// Kind returns the kind of v. A nil Value is null.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// IsObject reports whether v is an object.
func (v *Value) IsObject() bool { return v.Kind() == KindObject }

// IsArray reports whether v is an array.
func (v *Value) IsArray() bool { return v.Kind() == KindArray }

// IsString reports whether v is a string.
func (v *Value) IsString() bool { return v.Kind() == KindString }

// Get returns the member value for key, or nil when v is not an object or
// the key is absent.
func (v *Value) Get(key string) *Value {
	if !v.IsObject() {
		return nil
	}
	for _, m := range v.members {
		if m.Key == key {
			return m.Value
		}
	}
	return nil
}

// Has reports whether v is an object containing key.
func (v *Value) Has(key string) bool {
	if !v.IsObject() {
		return false
	}
	for _, m := range v.members {
		if m.Key == key {
			return true
		}
	}
	return false
}

// Path follows a chain of object keys.
func (v *Value) Path(keys ...string) *Value {
	cur := v
	for _, k := range keys {
		cur = cur.Get(k)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Str returns the string content of v, or "" for any other kind.
func (v *Value) Str() string {
	if !v.IsString() {
		return ""
	}
	return v.str
}

// Bool returns the boolean content of v, or false for any other kind.
func (v *Value) Bool() bool {
	if v.Kind() != KindBool {
		return false
	}
	return v.boolean
}

// Number returns the numeric content of v, or 0 for any other kind.
func (v *Value) Number() float64 {
	if v.Kind() != KindNumber {
		return 0
	}
	return v.number
}

// Members returns the object members of v in document order.
func (v *Value) Members() []Member {
	if !v.IsObject() {
		return nil
	}
	return v.members
}

// Items returns the array elements of v.
func (v *Value) Items() []*Value {
	if !v.IsArray() {
		return nil
	}
	return v.items
}

// Len returns the number of members or items, 0 for scalars.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindObject:
		return len(v.members)
	case KindArray:
		return len(v.items)
	default:
		return 0
	}
}

// Empty reports whether v would be falsy as a container: nil, null, an empty
// string, an empty array or an empty object.
func (v *Value) Empty() bool {
	switch v.Kind() {
	case KindNull:
		return true
	case KindString:
		return v.str == ""
	case KindArray, KindObject:
		return v.Len() == 0
	default:
		return false
	}
}

// Decode unwraps a JSON-encoded string field. Strings are parsed as JSON
// documents; every other kind is returned unchanged. An error is returned
// only when v is a string that does not hold valid JSON.
func (v *Value) Decode() (*Value, error) {
	if !v.IsString() {
		return v, nil
	}
	inner, err := ParseString(v.str)
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedded json: %w", err)
	}
	return inner, nil
}

// FindFirst performs a depth-first, document-order search below v and
// returns the first descendant for which match returns true. v itself is not
// tested.
func (v *Value) FindFirst(match func(*Value) bool) *Value {
	for _, child := range v.children() {
		if match(child) {
			return child
		}
		if found := child.FindFirst(match); found != nil {
			return found
		}
	}
	return nil
}

func (v *Value) children() []*Value {
	switch v.Kind() {
	case KindObject:
		out := make([]*Value, len(v.members))
		for i, m := range v.members {
			out[i] = m.Value
		}
		return out
	case KindArray:
		return v.items
	default:
		return nil
	}
}
