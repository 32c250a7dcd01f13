package document

import (
	"context"
	"fmt"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/pagetree"
)

// Size is a page size in points.
type Size struct {
	Width  float64
	Height float64
}

// Landscape swaps the dimensions when the page is taller than wide.
func (s Size) Landscape() Size {
	if s.Height > s.Width {
		return Size{Width: s.Height, Height: s.Width}
	}
	return s
}

var (
	A3     = Size{Width: 841.89, Height: 1190.55}
	A4     = Size{Width: 595.28, Height: 841.89}
	A5     = Size{Width: 419.53, Height: 595.28}
	Letter = Size{Width: 612, Height: 792}
	Legal  = Size{Width: 612, Height: 1008}
)

// Box is a rectangle in default user space.
type Box struct {
	LLX, LLY, URX, URY float64
}

func (b Box) array() *raw.ArrayObj {
	return raw.NewArray(num(b.LLX), num(b.LLY), num(b.URX), num(b.URY))
}

func num(f float64) raw.NumberObj {
	if f == float64(int64(f)) {
		return raw.NumberInt(int64(f))
	}
	return raw.NumberFloat(f)
}

// PageConfig holds optional page attributes.
type PageConfig struct {
	// Rotate is normalised to 0, 90, 180 or 270.
	Rotate    int
	CropBox   *Box
	Resources *raw.DictObj
}

func normalizeRotation(rot int) int {
	rot %= 360
	if rot < 0 {
		rot += 360
	}
	return (rot / 90) * 90
}

// AddPage appends a page.
func (d *Document) AddPage(size Size, cfg PageConfig) *pagetree.Page {
	p, _ := d.InsertPage(d.PageCount(), size, cfg)
	return p
}

// InsertPage creates a page at index, shifting later pages back.
func (d *Document) InsertPage(index int, size Size, cfg PageConfig) (*pagetree.Page, error) {
	if index < 0 || index > d.PageCount() {
		return nil, fmt.Errorf("%w: insert at %d of %d", ErrPageIndex, index, d.PageCount())
	}
	p := pagetree.NewPage(d.arena.add(raw.NullObj{}))
	p.Dict.Set("MediaBox", Box{URX: size.Width, URY: size.Height}.array())
	if cfg.CropBox != nil {
		p.Dict.Set("CropBox", cfg.CropBox.array())
	}
	if rot := normalizeRotation(cfg.Rotate); rot != 0 {
		p.Dict.Set("Rotate", raw.NumberInt(int64(rot)))
	}
	res := cfg.Resources
	if res == nil {
		res = raw.Dict()
	} else {
		res = res.Clone()
	}
	p.Dict.Set("Resources", res)
	if err := d.tree.Insert(index, p); err != nil {
		_ = d.arena.remove(p.Object.Num)
		return nil, err
	}
	if _, own := p.Dict.Get("Rotate"); !own {
		// an ancestor's /Rotate would otherwise apply to the new page
		if _, inherited := pagetree.Resolve(p, "Rotate"); inherited {
			p.Dict.Set("Rotate", raw.NumberInt(0))
		}
	}
	for _, f := range d.fonts {
		if f.owned {
			if err := d.registerFont(p, f); err != nil {
				return nil, err
			}
		}
	}
	d.treeDirty = true
	return p, nil
}

// RemovePage detaches the page at index and frees its page object and the
// content streams no other page uses.
func (d *Document) RemovePage(index int) error {
	if index < 0 || index >= d.PageCount() {
		return fmt.Errorf("%w: %d of %d", ErrPageIndex, index, d.PageCount())
	}
	p, err := d.tree.Remove(index)
	if err != nil {
		return err
	}
	shared := make(map[raw.ObjectRef]bool)
	for _, other := range d.tree.Pages() {
		for _, c := range other.Contents {
			shared[c] = true
		}
	}
	for _, c := range p.Contents {
		if !shared[c] {
			_ = d.arena.remove(c.Num)
		}
	}
	_ = d.arena.remove(p.Object.Num)
	d.treeDirty = true
	return nil
}

func (d *Document) PageCount() int { return d.tree.Count() }

// Page returns the page at a zero-based index.
func (d *Document) Page(index int) (*pagetree.Page, error) {
	p, err := d.tree.Page(index)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageIndex, err)
	}
	return p, nil
}

// PageIndex returns the position of p, or -1.
func (d *Document) PageIndex(p *pagetree.Page) int { return d.tree.Index(p) }

// SetContent replaces the page's content streams with one stream holding
// data. dict may carry a /Filter when data is already encoded; otherwise the
// writer applies its configured filter.
func (d *Document) SetContent(p *pagetree.Page, dict *raw.DictObj, data []byte) (raw.ObjectRef, error) {
	if d.tree.Index(p) < 0 {
		return raw.ObjectRef{}, fmt.Errorf("%w: page %v is not in this document", ErrPageIndex, p.Object)
	}
	old := p.Contents
	p.Contents = nil
	ref := d.addContent(dict, data)
	p.Contents = []raw.ObjectRef{ref}
	for _, c := range old {
		if !d.contentInUse(c) {
			_ = d.arena.remove(c.Num)
		}
	}
	d.treeDirty = true
	return ref, nil
}

// AppendContent adds a content stream after the page's existing ones.
func (d *Document) AppendContent(p *pagetree.Page, dict *raw.DictObj, data []byte) (raw.ObjectRef, error) {
	if d.tree.Index(p) < 0 {
		return raw.ObjectRef{}, fmt.Errorf("%w: page %v is not in this document", ErrPageIndex, p.Object)
	}
	ref := d.addContent(dict, data)
	p.Contents = append(p.Contents, ref)
	d.treeDirty = true
	return ref, nil
}

func (d *Document) addContent(dict *raw.DictObj, data []byte) raw.ObjectRef {
	if dict == nil {
		dict = raw.Dict()
	} else {
		dict = dict.Clone()
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return d.arena.add(raw.NewStream(dict, buf))
}

func (d *Document) contentInUse(ref raw.ObjectRef) bool {
	for _, p := range d.tree.Pages() {
		for _, c := range p.Contents {
			if c == ref {
				return true
			}
		}
	}
	return false
}

// PageContent returns the decoded bytes of every content stream of p,
// concatenated in order.
func (d *Document) PageContent(ctx context.Context, p *pagetree.Page) ([]byte, error) {
	var out []byte
	for _, ref := range p.Contents {
		v, err := d.arena.get(ref)
		if err != nil {
			return nil, err
		}
		st, ok := v.(*raw.StreamObj)
		if !ok {
			return nil, fmt.Errorf("document: content %v is a %s", ref, v.Type())
		}
		data, err := d.filters.DecodeStream(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("document: content %v: %w", ref, err)
		}
		out = append(out, data...)
	}
	return out, nil
}
