package raw

import "bytes"

// Equal reports whether a and b hold the same PDF value. Numbers compare by
// value regardless of integer/real form, dictionaries ignore key order, and
// the hex flag of strings is not significant.
func Equal(a, b Object) bool {
	if a == nil || b == nil {
		return isNull(a) && isNull(b)
	}
	switch av := a.(type) {
	case NullObj:
		_, ok := b.(NullObj)
		return ok
	case BoolObj:
		bv, ok := b.(BoolObj)
		return ok && av.V == bv.V
	case NumberObj:
		bv, ok := b.(NumberObj)
		if !ok {
			return false
		}
		if av.IsInt && bv.IsInt {
			return av.I == bv.I
		}
		return av.Float() == bv.Float()
	case StringObj:
		bv, ok := b.(StringObj)
		return ok && bytes.Equal(av.Bytes, bv.Bytes)
	case NameObj:
		bv, ok := b.(NameObj)
		return ok && av.Val == bv.Val
	case RefObj:
		bv, ok := b.(RefObj)
		return ok && av.R == bv.R
	case *ArrayObj:
		bv, ok := b.(*ArrayObj)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case *DictObj:
		bv, ok := b.(*DictObj)
		return ok && dictEqual(av, bv)
	case *StreamObj:
		bv, ok := b.(*StreamObj)
		return ok && dictEqual(av.Dict, bv.Dict) && bytes.Equal(av.Data, bv.Data)
	}
	return false
}

func dictEqual(a, b *DictObj) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, k := range a.Keys() {
		bv, ok := b.Get(k)
		if !ok {
			return false
		}
		av, _ := a.Get(k)
		if !Equal(av, bv) {
			return false
		}
	}
	return true
}

func isNull(o Object) bool {
	if o == nil {
		return true
	}
	_, ok := o.(NullObj)
	return ok
}

// Walk calls fn for obj and every value nested inside it, depth first.
// Indirect references are reported but not followed.
func Walk(obj Object, fn func(Object)) {
	fn(obj)
	switch v := obj.(type) {
	case *ArrayObj:
		for _, it := range v.Items {
			Walk(it, fn)
		}
	case *DictObj:
		for _, k := range v.Keys() {
			Walk(v.KV[k], fn)
		}
	case *StreamObj:
		if v.Dict != nil {
			Walk(v.Dict, fn)
		}
	}
}

// References returns every indirect reference reachable inside obj without
// following them.
func References(obj Object) []ObjectRef {
	var refs []ObjectRef
	Walk(obj, func(o Object) {
		if r, ok := o.(RefObj); ok {
			refs = append(refs, r.R)
		}
	})
	return refs
}
