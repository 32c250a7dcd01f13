package pagetree

import (
	"fmt"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
)

// Flatten renders the tree as /Pages and /Page dictionaries, root first, in
// depth-first order. Items without an object identity get one from alloc.
func Flatten(root *Node, alloc func() raw.ObjectRef) []raw.IndirectObject {
	var out []raw.IndirectObject
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Object.IsZero() {
			n.Object = alloc()
		}
		for _, k := range n.kids {
			switch v := k.(type) {
			case *Node:
				if v.Object.IsZero() {
					v.Object = alloc()
				}
			case *Page:
				if v.Object.IsZero() {
					v.Object = alloc()
				}
			}
		}
		out = append(out, raw.NewIndirect(n.Object, nodeDict(n)))
		for _, k := range n.kids {
			switch v := k.(type) {
			case *Node:
				walk(v)
			case *Page:
				out = append(out, raw.NewIndirect(v.Object, pageDict(v)))
			}
		}
	}
	walk(root)
	return out
}

func nodeDict(n *Node) *raw.DictObj {
	d := raw.Dict()
	d.Set("Type", raw.NameLiteral("Pages"))
	if n.parent != nil {
		d.Set("Parent", raw.RefTo(n.parent.Object))
	}
	kids := raw.NewArray()
	for _, k := range n.kids {
		kids.Append(raw.RefTo(k.Ref()))
	}
	d.Set("Kids", kids)
	d.Set("Count", raw.NumberInt(int64(n.count)))
	for _, key := range n.Attrs.Keys() {
		switch key {
		case "Type", "Parent", "Kids", "Count":
			continue
		}
		v, _ := n.Attrs.Get(key)
		d.Set(key, v)
	}
	return d
}

func pageDict(p *Page) *raw.DictObj {
	d := raw.Dict()
	d.Set("Type", raw.NameLiteral("Page"))
	if p.parent != nil {
		d.Set("Parent", raw.RefTo(p.parent.Object))
	}
	for _, key := range p.Dict.Keys() {
		switch key {
		case "Type", "Parent", "Contents":
			continue
		}
		v, _ := p.Dict.Get(key)
		d.Set(key, v)
	}
	switch len(p.Contents) {
	case 0:
	case 1:
		d.Set("Contents", raw.RefTo(p.Contents[0]))
	default:
		arr := raw.NewArray()
		for _, c := range p.Contents {
			arr.Append(raw.RefTo(c))
		}
		d.Set("Contents", arr)
	}
	return d
}

// Loader fetches an indirect object while building a tree.
type Loader func(raw.ObjectRef) (raw.Object, error)

// Build reads the tree rooted at ref. Declared /Count values are ignored and
// recomputed. A node reached twice yields ErrCycle.
func Build(ref raw.ObjectRef, load Loader) (*Node, error) {
	b := builder{load: load, seen: make(map[raw.ObjectRef]bool)}
	item, err := b.item(ref)
	if err != nil {
		return nil, err
	}
	root, ok := item.(*Node)
	if !ok {
		return nil, fmt.Errorf("%w: root %v is not a /Pages node", ErrInvalidShape, ref)
	}
	return root, nil
}

type builder struct {
	load Loader
	seen map[raw.ObjectRef]bool
}

func (b *builder) item(ref raw.ObjectRef) (Item, error) {
	if b.seen[ref] {
		return nil, fmt.Errorf("%w: %v reached twice", ErrCycle, ref)
	}
	b.seen[ref] = true
	obj, err := b.load(ref)
	if err != nil {
		return nil, fmt.Errorf("pagetree: load %v: %w", ref, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: %v is missing", ErrInvalidShape, ref)
	}
	dict, ok := obj.(*raw.DictObj)
	if !ok {
		return nil, fmt.Errorf("%w: %v is a %s, not a dictionary", ErrInvalidShape, ref, obj.Type())
	}
	typ, _ := dict.GetName("Type")
	kids, hasKids := dict.GetArray("Kids")
	switch {
	case typ == "Pages" || (typ == "" && hasKids):
		return b.node(ref, dict, kids)
	case typ == "Page" || typ == "":
		return b.page(ref, dict)
	}
	return nil, fmt.Errorf("%w: %v has /Type /%s", ErrInvalidShape, ref, typ)
}

func (b *builder) node(ref raw.ObjectRef, dict *raw.DictObj, kids *raw.ArrayObj) (*Node, error) {
	n := NewNode()
	n.Object = ref
	for _, key := range dict.Keys() {
		switch key {
		case "Type", "Parent", "Kids", "Count":
			continue
		}
		v, _ := dict.Get(key)
		n.Attrs.Set(key, v)
	}
	if kids == nil {
		return n, nil
	}
	for i, it := range kids.Items {
		r, ok := it.(raw.RefObj)
		if !ok {
			return nil, fmt.Errorf("%w: kid %d of %v is not a reference", ErrInvalidShape, i, ref)
		}
		child, err := b.item(r.R)
		if err != nil {
			return nil, err
		}
		n.adopt(child)
	}
	n.recountLocal()
	return n, nil
}

func (b *builder) page(ref raw.ObjectRef, dict *raw.DictObj) (*Page, error) {
	p := NewPage(ref)
	for _, key := range dict.Keys() {
		switch key {
		case "Type", "Parent", "Contents":
			continue
		}
		v, _ := dict.Get(key)
		p.Dict.Set(key, v)
	}
	contents, ok := dict.Get("Contents")
	if !ok {
		return p, nil
	}
	switch c := contents.(type) {
	case raw.RefObj:
		p.Contents = []raw.ObjectRef{c.R}
	case *raw.ArrayObj:
		for _, it := range c.Items {
			r, ok := it.(raw.RefObj)
			if !ok {
				return nil, fmt.Errorf("%w: /Contents of %v holds a direct value", ErrInvalidShape, ref)
			}
			p.Contents = append(p.Contents, r.R)
		}
	case raw.NullObj:
	default:
		return nil, fmt.Errorf("%w: /Contents of %v is a %s", ErrInvalidShape, ref, c.Type())
	}
	return p, nil
}
