package pagetree

import "fmt"

// Tree wraps a root node with index-based page operations. With AutoBalance
// set, an insert that overfills a node splits it B-tree style: the node gives
// half its kids to a new sibling, and an overfull root grows a level.
type Tree struct {
	Root        *Node
	AutoBalance bool
}

func New() *Tree { return &Tree{Root: NewNode()} }

func (t *Tree) Count() int { return t.Root.Count() }

func (t *Tree) Page(index int) (*Page, error) { return t.Root.FindPage(index) }

func (t *Tree) Index(p *Page) int { return t.Root.FindPageIndex(p) }

func (t *Tree) Pages() []*Page { return t.Root.AllPages() }

// Append adds p after the last page.
func (t *Tree) Append(p *Page) error { return t.Insert(t.Count(), p) }

// Insert places p so that it ends up at index.
func (t *Tree) Insert(index int, p *Page) error {
	count := t.Count()
	if index < 0 || index > count {
		return fmt.Errorf("%w: insert at %d of %d", ErrOutOfRange, index, count)
	}
	parent, pos := t.Root, len(t.Root.kids)
	if count > 0 {
		anchor := index
		if index == count {
			anchor = count - 1
		}
		at, err := t.Root.FindPage(anchor)
		if err != nil {
			return err
		}
		parent = at.parent
		pos = indexOf(parent, at)
		if index == count {
			pos++
		}
	}
	if err := parent.InsertChild(pos, p); err != nil {
		return err
	}
	if t.AutoBalance {
		rebalance(parent)
	}
	return nil
}

// Remove detaches the page at index. Internal nodes left empty are pruned.
func (t *Tree) Remove(index int) (*Page, error) {
	p, err := t.Root.FindPage(index)
	if err != nil {
		return nil, err
	}
	parent := p.parent
	if err := parent.RemoveChild(p); err != nil {
		return nil, err
	}
	for parent != t.Root && len(parent.kids) == 0 {
		up := parent.parent
		if err := up.RemoveChild(parent); err != nil {
			return nil, err
		}
		parent = up
	}
	return p, nil
}

// Optimize rebuilds the tree under t.Root.
func (t *Tree) Optimize() { Optimize(t.Root) }

func indexOf(n *Node, item Item) int {
	for i, k := range n.kids {
		if k == item {
			return i
		}
	}
	return -1
}

func rebalance(n *Node) {
	for n != nil && n.ShouldSplit() {
		p := n.parent
		if p == nil {
			n.Split()
			return
		}
		sib := n.newChild()
		sib.Attrs = n.Attrs.Clone()
		mid := len(n.kids) / 2
		for _, k := range n.kids[mid:] {
			sib.adopt(k)
		}
		n.kids = n.kids[:mid:mid]
		n.recountLocal()
		sib.recountLocal()

		at := indexOf(p, n) + 1
		p.kids = append(p.kids, nil)
		copy(p.kids[at+1:], p.kids[at:])
		p.kids[at] = sib
		sib.parent = p
		n = p
	}
}

// Optimize replaces everything below root with a balanced tree whose nodes
// hold at most root.MaxKids kids. Attributes that pages inherited from the
// discarded intermediate nodes are copied onto the pages first, so every
// page resolves to the same values afterwards. Root keeps its own attributes
// and identity.
func Optimize(root *Node) {
	pages := root.AllPages()
	for _, p := range pages {
		for _, key := range Inheritable {
			if _, ok := p.Dict.Get(key); ok {
				continue
			}
			for a := p.parent; a != nil && a != root; a = a.parent {
				if v, ok := a.Attrs.Get(key); ok {
					p.Dict.Set(key, v)
					break
				}
			}
		}
	}

	items := make([]Item, len(pages))
	for i, p := range pages {
		p.parent = nil
		items[i] = p
	}
	limit := root.maxKids()
	for len(items) > limit {
		groups := (len(items) + limit - 1) / limit
		next := make([]Item, 0, groups)
		for g := 0; g < groups; g++ {
			lo, hi := g*len(items)/groups, (g+1)*len(items)/groups
			n := root.newChild()
			for _, it := range items[lo:hi] {
				n.adopt(it)
			}
			n.recountLocal()
			next = append(next, n)
		}
		items = next
	}
	for _, k := range root.kids {
		if n, ok := k.(*Node); ok {
			n.parent = nil
		}
	}
	root.kids = nil
	for _, it := range items {
		root.adopt(it)
	}
	root.recount()
}

// Depth returns the number of node levels from root down to its deepest page.
func Depth(root *Node) int {
	deepest := 0
	for _, k := range root.kids {
		if n, ok := k.(*Node); ok {
			if d := Depth(n); d > deepest {
				deepest = d
			}
		}
	}
	return deepest + 1
}

// CheckCounts verifies that every node's Count equals the number of pages
// beneath it and that every kid points back at its parent.
func CheckCounts(root *Node) error {
	var walk func(*Node) (int, error)
	walk = func(n *Node) (int, error) {
		total := 0
		for _, k := range n.kids {
			if k.Parent() != n {
				return 0, fmt.Errorf("%w: kid %v has wrong parent", ErrInvalidShape, k.Ref())
			}
			switch v := k.(type) {
			case *Page:
				total++
			case *Node:
				c, err := walk(v)
				if err != nil {
					return 0, err
				}
				total += c
			}
		}
		if total != n.count {
			return 0, fmt.Errorf("%w: node %v counts %d, has %d pages", ErrInvalidShape, n.Object, n.count, total)
		}
		return total, nil
	}
	_, err := walk(root)
	return err
}

