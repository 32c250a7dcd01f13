// Package pagetree models the /Pages hierarchy: internal nodes with derived
// leaf counts, pages as leaves, and attributes inherited down the tree.
package pagetree

import (
	"errors"
	"fmt"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
)

// DefaultMaxKids is the fan-out past which a node should split.
const DefaultMaxKids = 10

var (
	ErrHasParent    = errors.New("pagetree: item already has a parent")
	ErrNotChild     = errors.New("pagetree: item is not a child of this node")
	ErrOutOfRange   = errors.New("pagetree: index out of range")
	ErrCycle        = errors.New("pagetree: cycle in page tree")
	ErrInvalidShape = errors.New("pagetree: malformed page tree")
)

// Inheritable lists the page attributes a node passes to its descendants.
var Inheritable = []string{"MediaBox", "CropBox", "Resources", "Rotate"}

func isInheritable(key string) bool {
	for _, k := range Inheritable {
		if k == key {
			return true
		}
	}
	return false
}

// Item is a *Node or a *Page.
type Item interface {
	Parent() *Node
	Count() int
	Ref() raw.ObjectRef
	attrs() *raw.DictObj
	setParent(*Node)
}

// Node is an internal /Pages node.
type Node struct {
	// Attrs holds attributes set on this node, normally inheritable ones.
	Attrs   *raw.DictObj
	Object  raw.ObjectRef
	MaxKids int

	kids   []Item
	count  int
	parent *Node
}

// Page is a leaf. Dict holds its own entries other than /Type, /Parent and
// /Contents.
type Page struct {
	Dict     *raw.DictObj
	Object   raw.ObjectRef
	Contents []raw.ObjectRef

	parent *Node
}

func NewNode() *Node { return &Node{Attrs: raw.Dict(), MaxKids: DefaultMaxKids} }

func NewPage(ref raw.ObjectRef) *Page { return &Page{Dict: raw.Dict(), Object: ref} }

func (n *Node) Parent() *Node       { return n.parent }
func (n *Node) Count() int          { return n.count }
func (n *Node) Ref() raw.ObjectRef  { return n.Object }
func (n *Node) attrs() *raw.DictObj { return n.Attrs }
func (n *Node) setParent(p *Node)   { n.parent = p }
func (p *Page) Parent() *Node       { return p.parent }
func (p *Page) Count() int          { return 1 }
func (p *Page) Ref() raw.ObjectRef  { return p.Object }
func (p *Page) attrs() *raw.DictObj { return p.Dict }
func (p *Page) setParent(par *Node) { p.parent = par }

// Kids returns a copy of the child list.
func (n *Node) Kids() []Item {
	out := make([]Item, len(n.kids))
	copy(out, n.kids)
	return out
}

func (n *Node) maxKids() int {
	if n.MaxKids > 0 {
		return n.MaxKids
	}
	return DefaultMaxKids
}

// AddChild appends item.
func (n *Node) AddChild(item Item) error {
	return n.InsertChild(len(n.kids), item)
}

// InsertChild places item at position i among the kids.
func (n *Node) InsertChild(i int, item Item) error {
	if i < 0 || i > len(n.kids) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(n.kids))
	}
	if item.Parent() != nil {
		return ErrHasParent
	}
	if child, ok := item.(*Node); ok {
		for a := n; a != nil; a = a.parent {
			if a == child {
				return ErrCycle
			}
		}
	}
	n.kids = append(n.kids, nil)
	copy(n.kids[i+1:], n.kids[i:])
	n.kids[i] = item
	item.setParent(n)
	n.recount()
	return nil
}

// RemoveChild detaches item from n.
func (n *Node) RemoveChild(item Item) error {
	for i, k := range n.kids {
		if k == item {
			n.kids = append(n.kids[:i], n.kids[i+1:]...)
			item.setParent(nil)
			n.recount()
			return nil
		}
	}
	return ErrNotChild
}

// recount refreshes counts from n up to the root.
func (n *Node) recount() {
	for a := n; a != nil; a = a.parent {
		total := 0
		for _, k := range a.kids {
			total += k.Count()
		}
		a.count = total
	}
}

// FindPage returns the leaf at index, counting depth first.
func (n *Node) FindPage(index int) (*Page, error) {
	if index < 0 || index >= n.count {
		return nil, fmt.Errorf("%w: page %d of %d", ErrOutOfRange, index, n.count)
	}
	cur := n
	offset := 0
	for {
		descended := false
		for _, k := range cur.kids {
			c := k.Count()
			if index < offset+c {
				switch v := k.(type) {
				case *Page:
					return v, nil
				case *Node:
					cur = v
					descended = true
				}
				break
			}
			offset += c
		}
		if !descended {
			return nil, fmt.Errorf("%w: counts inconsistent at page %d", ErrInvalidShape, index)
		}
	}
}

// FindPageIndex returns the position of page, or -1 when it is not under n.
func (n *Node) FindPageIndex(page *Page) int {
	// walk up accumulating the leaves that precede each ancestor's child
	index := 0
	var child Item = page
	for p := page.parent; p != nil; p = p.parent {
		for _, k := range p.kids {
			if k == child {
				break
			}
			index += k.Count()
		}
		if p == n {
			return index
		}
		child = p
	}
	return -1
}

// AllPages returns the leaves in document order.
func (n *Node) AllPages() []*Page {
	out := make([]*Page, 0, n.count)
	var walk func(*Node)
	walk = func(cur *Node) {
		for _, k := range cur.kids {
			switch v := k.(type) {
			case *Page:
				out = append(out, v)
			case *Node:
				walk(v)
			}
		}
	}
	walk(n)
	return out
}

// ShouldSplit reports whether n has more kids than its fan-out allows.
func (n *Node) ShouldSplit() bool { return len(n.kids) > n.maxKids() }

// Split moves n's kids under two new child nodes holding balanced halves.
// Counts and inherited attributes are unchanged.
func (n *Node) Split() {
	if len(n.kids) < 2 {
		return
	}
	mid := len(n.kids) / 2
	left, right := n.newChild(), n.newChild()
	for _, k := range n.kids[:mid] {
		left.adopt(k)
	}
	for _, k := range n.kids[mid:] {
		right.adopt(k)
	}
	n.kids = []Item{left, right}
	left.parent, right.parent = n, n
	left.recountLocal()
	right.recountLocal()
	n.recount()
}

func (n *Node) newChild() *Node {
	return &Node{Attrs: raw.Dict(), MaxKids: n.MaxKids}
}

// adopt appends without the parent check; used while reshaping.
func (n *Node) adopt(item Item) {
	n.kids = append(n.kids, item)
	item.setParent(n)
}

func (n *Node) recountLocal() {
	total := 0
	for _, k := range n.kids {
		total += k.Count()
	}
	n.count = total
}

// Resolve returns the effective value of key for item, consulting ancestors
// for inheritable attributes.
func Resolve(item Item, key string) (raw.Object, bool) {
	if v, ok := item.attrs().Get(key); ok {
		return v, true
	}
	if !isInheritable(key) {
		return nil, false
	}
	for p := item.Parent(); p != nil; p = p.parent {
		if v, ok := p.Attrs.Get(key); ok {
			return v, true
		}
	}
	return nil, false
}
