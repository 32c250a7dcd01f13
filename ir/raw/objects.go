package raw

import (
	"math"
	"sort"
)

// Name object
type NameObj struct{ Val string }

func (n NameObj) Type() string     { return "name" }
func (n NameObj) IsIndirect() bool { return false }
func (n NameObj) Value() string    { return n.Val }
func (NameObj) sealed()            {}

// Number object
type NumberObj struct {
	I     int64
	F     float64
	IsInt bool
}

func (n NumberObj) Type() string     { return "number" }
func (n NumberObj) IsIndirect() bool { return false }
func (n NumberObj) Int() int64 {
	if n.IsInt {
		return n.I
	}
	return int64(math.Round(n.F))
}
func (n NumberObj) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}
func (n NumberObj) IsInteger() bool { return n.IsInt }
func (NumberObj) sealed()           {}

// Boolean object
type BoolObj struct{ V bool }

func (b BoolObj) Type() string     { return "boolean" }
func (b BoolObj) IsIndirect() bool { return false }
func (b BoolObj) Value() bool      { return b.V }
func (BoolObj) sealed()            {}

// Null object
type NullObj struct{}

func (n NullObj) Type() string     { return "null" }
func (n NullObj) IsIndirect() bool { return false }
func (NullObj) sealed()            {}

// String object. Hex selects the <...> form on output.
type StringObj struct {
	Bytes []byte
	Hex   bool
}

func (s StringObj) Type() string     { return "string" }
func (s StringObj) IsIndirect() bool { return false }
func (s StringObj) Value() []byte    { return s.Bytes }
func (s StringObj) IsHex() bool      { return s.Hex }
func (StringObj) sealed()            {}

// Array object
type ArrayObj struct{ Items []Object }

func (a *ArrayObj) Type() string     { return "array" }
func (a *ArrayObj) IsIndirect() bool { return false }
func (a *ArrayObj) Get(i int) (Object, bool) {
	if i < 0 || i >= len(a.Items) {
		return nil, false
	}
	return a.Items[i], true
}
func (a *ArrayObj) Len() int        { return len(a.Items) }
func (a *ArrayObj) Append(o Object) { a.Items = append(a.Items, o) }
func (*ArrayObj) sealed()           {}

// Dictionary object. Keys iterate in insertion order.
type DictObj struct {
	KV    map[string]Object
	order []string
}

func (d *DictObj) Type() string     { return "dict" }
func (d *DictObj) IsIndirect() bool { return false }
func (*DictObj) sealed()            {}

func (d *DictObj) Get(key string) (Object, bool) {
	if d == nil {
		return nil, false
	}
	o, ok := d.KV[key]
	return o, ok
}

func (d *DictObj) Set(key string, value Object) {
	if d.KV == nil {
		d.KV = make(map[string]Object)
	}
	if _, exists := d.KV[key]; !exists {
		d.order = append(d.order, key)
	}
	if value == nil {
		value = NullObj{}
	}
	d.KV[key] = value
}

func (d *DictObj) Delete(key string) {
	if _, ok := d.KV[key]; !ok {
		return
	}
	delete(d.KV, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i:i], d.order[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (d *DictObj) Keys() []string {
	if d == nil {
		return nil
	}
	if len(d.order) != len(d.KV) {
		d.reindex()
	}
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// reindex repairs the order slice for dictionaries built as struct literals.
func (d *DictObj) reindex() {
	seen := make(map[string]bool, len(d.KV))
	kept := d.order[:0]
	for _, k := range d.order {
		if _, ok := d.KV[k]; ok && !seen[k] {
			kept = append(kept, k)
			seen[k] = true
		}
	}
	var extra []string
	for k := range d.KV {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	d.order = append(kept, extra...)
}

func (d *DictObj) Len() int {
	if d == nil {
		return 0
	}
	return len(d.KV)
}

// Clone returns a shallow copy that preserves key order.
func (d *DictObj) Clone() *DictObj {
	out := Dict()
	for _, k := range d.Keys() {
		out.Set(k, d.KV[k])
	}
	return out
}

func (d *DictObj) GetName(key string) (string, bool) {
	if v, ok := d.Get(key); ok {
		if n, ok := v.(NameObj); ok {
			return n.Val, true
		}
	}
	return "", false
}

func (d *DictObj) GetInt(key string) (int64, bool) {
	if v, ok := d.Get(key); ok {
		if n, ok := v.(NumberObj); ok {
			return n.Int(), true
		}
	}
	return 0, false
}

func (d *DictObj) GetNumber(key string) (float64, bool) {
	if v, ok := d.Get(key); ok {
		if n, ok := v.(NumberObj); ok {
			return n.Float(), true
		}
	}
	return 0, false
}

func (d *DictObj) GetRef(key string) (ObjectRef, bool) {
	if v, ok := d.Get(key); ok {
		if r, ok := v.(RefObj); ok {
			return r.R, true
		}
	}
	return ObjectRef{}, false
}

func (d *DictObj) GetString(key string) ([]byte, bool) {
	if v, ok := d.Get(key); ok {
		if s, ok := v.(StringObj); ok {
			return s.Bytes, true
		}
	}
	return nil, false
}

func (d *DictObj) GetArray(key string) (*ArrayObj, bool) {
	if v, ok := d.Get(key); ok {
		if a, ok := v.(*ArrayObj); ok {
			return a, true
		}
	}
	return nil, false
}

func (d *DictObj) GetDict(key string) (*DictObj, bool) {
	if v, ok := d.Get(key); ok {
		if sub, ok := v.(*DictObj); ok {
			return sub, true
		}
	}
	return nil, false
}

// Stream object. Data holds the encoded (post-filter) bytes.
type StreamObj struct {
	Dict *DictObj
	Data []byte
}

func (s *StreamObj) Type() string         { return "stream" }
func (s *StreamObj) IsIndirect() bool     { return false }
func (s *StreamObj) Dictionary() *DictObj { return s.Dict }
func (s *StreamObj) RawData() []byte      { return s.Data }
func (s *StreamObj) Length() int64        { return int64(len(s.Data)) }
func (*StreamObj) sealed()                {}

// Reference object
type RefObj struct{ R ObjectRef }

func (r RefObj) Type() string     { return "ref" }
func (r RefObj) IsIndirect() bool { return true }
func (r RefObj) Ref() ObjectRef   { return r.R }
func (RefObj) sealed()            {}

// Helpers
func NameLiteral(v string) NameObj    { return NameObj{Val: v} }
func NumberInt(i int64) NumberObj     { return NumberObj{I: i, IsInt: true} }
func NumberFloat(f float64) NumberObj { return NumberObj{F: f, IsInt: false} }
func Bool(v bool) BoolObj             { return BoolObj{V: v} }
func Str(bytes []byte) StringObj      { return StringObj{Bytes: bytes} }
func HexStr(bytes []byte) StringObj   { return StringObj{Bytes: bytes, Hex: true} }
func NewArray(items ...Object) *ArrayObj {
	return &ArrayObj{Items: items}
}
func Dict() *DictObj { return &DictObj{KV: make(map[string]Object)} }

// NewStream returns a stream whose Length entry matches data.
func NewStream(dict *DictObj, data []byte) *StreamObj {
	if dict == nil {
		dict = Dict()
	}
	dict.Set("Length", NumberInt(int64(len(data))))
	return &StreamObj{Dict: dict, Data: data}
}
func Ref(num, gen int) RefObj    { return RefObj{R: ObjectRef{Num: num, Gen: gen}} }
func RefTo(ref ObjectRef) RefObj { return RefObj{R: ref} }
