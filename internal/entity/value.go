package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindDerived
	KindInteger
	KindReal
	KindString
	KindEnum
	KindBinary
	KindRef
	KindList
	KindTyped
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindDerived:
		return "derived"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindBinary:
		return "binary"
	case KindRef:
		return "ref"
	case KindList:
		return "list"
	case KindTyped:
		return "typed"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is one attribute value of an entity.
//
// Text holds the lexical form for scalars (string content is kept escaped, the
// way it appears between quotes), and the wrapper type name for KindTyped.
// Items holds list elements, or the single wrapped value for KindTyped.
type Value struct {
	Kind  Kind
	Text  string
	Ref   ID
	Items []Value
}

func Null() Value    { return Value{Kind: KindNull} }
func Derived() Value { return Value{Kind: KindDerived} }

func Ref(id ID) Value { return Value{Kind: KindRef, Ref: id} }

func Integer(i int64) Value {
	return Value{Kind: KindInteger, Text: strconv.FormatInt(i, 10)}
}

// Real formats f so that it always carries a decimal point.
func Real(f float64) Value {
	s := strconv.FormatFloat(f, 'G', -1, 64)
	if !strings.ContainsAny(s, ".E") {
		s += "."
	} else if strings.Contains(s, "E") && !strings.Contains(s, ".") {
		s = strings.Replace(s, "E", ".E", 1)
	}
	return Value{Kind: KindReal, Text: s}
}

// String escapes single quotes the way exchange files expect. Backslash
// directives in s are kept and decoded again by StringValue.
func String(s string) Value {
	return Value{Kind: KindString, Text: strings.ReplaceAll(s, "'", "''")}
}

func Enum(e string) Value { return Value{Kind: KindEnum, Text: strings.ToUpper(e)} }

func Binary(hex string) Value { return Value{Kind: KindBinary, Text: hex} }

func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: KindList, Items: items}
}

func Typed(name string, inner Value) Value {
	return Value{Kind: KindTyped, Text: strings.ToUpper(name), Items: []Value{inner}}
}

// RefList is shorthand for a list of references.
func RefList(ids ...ID) Value {
	items := make([]Value, len(ids))
	for i, id := range ids {
		items[i] = Ref(id)
	}
	return List(items...)
}

// IsNull reports whether the value carries no data.
func (v Value) IsNull() bool {
	return v.Kind == KindNull || v.Kind == KindDerived
}

// StringValue returns the decoded content of a string value.
func (v Value) StringValue() (string, bool) {
	switch v.Kind {
	case KindString:
		return decodeText(v.Text), true
	case KindTyped:
		if len(v.Items) == 1 {
			return v.Items[0].StringValue()
		}
	}
	return "", false
}

// Refs returns every reference held by v in order, flattening nested lists
// and typed wrappers.
func (v Value) Refs() []ID {
	var out []ID
	v.walkRefs(func(id ID) { out = append(out, id) })
	return out
}

func (v Value) walkRefs(fn func(ID)) {
	switch v.Kind {
	case KindRef:
		fn(v.Ref)
	case KindList, KindTyped:
		for _, item := range v.Items {
			item.walkRefs(fn)
		}
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	if v.Items == nil {
		return v
	}
	items := make([]Value, len(v.Items))
	for i, item := range v.Items {
		items[i] = item.Clone()
	}
	v.Items = items
	return v
}

// String renders the value in exchange-file syntax.
func (v Value) String() string {
	var b strings.Builder
	v.writeTo(&b)
	return b.String()
}

func (v Value) writeTo(b *strings.Builder) {
	switch v.Kind {
	case KindNull:
		b.WriteByte('$')
	case KindDerived:
		b.WriteByte('*')
	case KindInteger, KindReal:
		b.WriteString(v.Text)
	case KindString:
		b.WriteByte('\'')
		b.WriteString(v.Text)
		b.WriteByte('\'')
	case KindEnum:
		b.WriteByte('.')
		b.WriteString(v.Text)
		b.WriteByte('.')
	case KindBinary:
		b.WriteByte('"')
		b.WriteString(v.Text)
		b.WriteByte('"')
	case KindRef:
		b.WriteByte('#')
		b.WriteString(strconv.FormatUint(uint64(v.Ref), 10))
	case KindList:
		b.WriteByte('(')
		for i, item := range v.Items {
			if i > 0 {
				b.WriteByte(',')
			}
			item.writeTo(b)
		}
		b.WriteByte(')')
	case KindTyped:
		b.WriteString(v.Text)
		b.WriteByte('(')
		for i, item := range v.Items {
			if i > 0 {
				b.WriteByte(',')
			}
			item.writeTo(b)
		}
		b.WriteByte(')')
	}
}
