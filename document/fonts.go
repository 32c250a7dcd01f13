package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/VibePDF/VibePDF-sub001/fonts"
	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/observability"
	"github.com/VibePDF/VibePDF-sub001/pagetree"
)

// FontResource is a font reachable from page resources. Font is nil for
// fonts found in a loaded file that are not standard 14 fonts.
type FontResource struct {
	// Name is the key under /Resources /Font, e.g. "F1".
	Name     string
	Ref      raw.ObjectRef
	BaseFont string
	Font     *fonts.Font

	owned bool
}

// EmbedFont registers a standard 14 font on every page, present and future.
// Registering the same font twice returns the first registration.
func (d *Document) EmbedFont(name string) (*fonts.Font, error) {
	if fr, ok := d.fontByBase(name); ok && fr.Font != nil {
		return fr.Font, nil
	}
	f, err := fonts.Standard(name)
	if err != nil {
		return nil, err
	}
	if err := d.addFont(f, d.arena.add(f.Dict(raw.ObjectRef{}))); err != nil {
		return nil, err
	}
	return f, nil
}

// EmbedTrueType embeds a TrueType program and registers it like EmbedFont.
func (d *Document) EmbedTrueType(name string, data []byte) (*fonts.Font, error) {
	f, err := fonts.LoadTrueType(name, data)
	if err != nil {
		return nil, err
	}
	if fr, ok := d.fontByBase(f.Name); ok && fr.Font != nil {
		return fr.Font, nil
	}
	file := d.arena.add(f.FileStream())
	desc := d.arena.add(f.Descriptor(file))
	if err := d.addFont(f, d.arena.add(f.Dict(desc))); err != nil {
		return nil, err
	}
	return f, nil
}

// FontName returns the resource name pages use for f.
func (d *Document) FontName(f *fonts.Font) (string, bool) {
	for _, fr := range d.fonts {
		if fr.Font == f {
			return fr.Name, true
		}
	}
	return "", false
}

func (d *Document) fontByBase(base string) (FontResource, bool) {
	for _, fr := range d.fonts {
		if fr.BaseFont == base {
			return fr, true
		}
	}
	return FontResource{}, false
}

func (d *Document) addFont(f *fonts.Font, ref raw.ObjectRef) error {
	fr := FontResource{Name: d.nextFontName(), Ref: ref, BaseFont: f.Name, Font: f, owned: true}
	d.fonts = append(d.fonts, fr)
	for _, p := range d.tree.Pages() {
		if err := d.registerFont(p, fr); err != nil {
			return err
		}
	}
	d.treeDirty = true
	d.log.Debug("font registered",
		observability.String("font", f.Name),
		observability.String("resource", fr.Name))
	return nil
}

func (d *Document) nextFontName() string {
	highest := 0
	for _, fr := range d.fonts {
		if n, err := strconv.Atoi(strings.TrimPrefix(fr.Name, "F")); err == nil && n > highest {
			highest = n
		}
	}
	return "F" + strconv.Itoa(highest+1)
}

// registerFont adds fr to the /Font resources p resolves to. Shared resource
// dictionaries held as indirect objects are updated in place.
func (d *Document) registerFont(p *pagetree.Page, fr FontResource) error {
	res, ok := pagetree.Resolve(p, "Resources")
	if !ok {
		res = raw.Dict()
	}
	switch v := res.(type) {
	case raw.RefObj:
		obj, err := d.arena.get(v.R)
		if err != nil {
			return fmt.Errorf("document: resources of page %v: %w", p.Object, err)
		}
		dict, ok := obj.(*raw.DictObj)
		if !ok {
			return fmt.Errorf("document: resources %v is a %s", v.R, obj.Type())
		}
		updated, err := d.withFont(dict, fr)
		if err != nil {
			return err
		}
		return d.arena.set(v.R, updated)
	case *raw.DictObj:
		updated, err := d.withFont(v, fr)
		if err != nil {
			return err
		}
		p.Dict.Set("Resources", updated)
		return nil
	}
	return fmt.Errorf("document: resources of page %v is a %s", p.Object, res.Type())
}

// withFont returns a copy of res whose /Font dictionary maps fr.Name to fr.Ref.
func (d *Document) withFont(res *raw.DictObj, fr FontResource) (*raw.DictObj, error) {
	out := res.Clone()
	fontsObj, ok := res.Get("Font")
	if !ok {
		fontsObj = raw.Dict()
	}
	switch v := fontsObj.(type) {
	case raw.RefObj:
		obj, err := d.arena.get(v.R)
		if err != nil {
			return nil, err
		}
		dict, ok := obj.(*raw.DictObj)
		if !ok {
			return nil, fmt.Errorf("document: font resources %v is a %s", v.R, obj.Type())
		}
		if cur, ok := dict.GetRef(fr.Name); ok && cur == fr.Ref {
			return out, nil
		}
		dict = dict.Clone()
		dict.Set(fr.Name, raw.RefTo(fr.Ref))
		if err := d.arena.set(v.R, dict); err != nil {
			return nil, err
		}
	case *raw.DictObj:
		dict := v.Clone()
		dict.Set(fr.Name, raw.RefTo(fr.Ref))
		out.Set("Font", dict)
	default:
		return nil, fmt.Errorf("document: /Font resources is a %s", v.Type())
	}
	return out, nil
}

// discoverFonts records the fonts a loaded file's pages use.
func (d *Document) discoverFonts() {
	seen := make(map[raw.ObjectRef]bool)
	for _, p := range d.tree.Pages() {
		res, ok := pagetree.Resolve(p, "Resources")
		if !ok {
			continue
		}
		resDict, ok := d.deref(res).(*raw.DictObj)
		if !ok {
			continue
		}
		fontsObj, _ := resDict.Get("Font")
		fontDict, ok := d.deref(fontsObj).(*raw.DictObj)
		if !ok {
			continue
		}
		for _, name := range fontDict.Keys() {
			ref, ok := fontDict.GetRef(name)
			if !ok || seen[ref] {
				continue
			}
			seen[ref] = true
			fr := FontResource{Name: name, Ref: ref}
			if fd, ok := d.deref(raw.RefTo(ref)).(*raw.DictObj); ok {
				fr.BaseFont, _ = fd.GetName("BaseFont")
			}
			if fonts.IsStandard(fr.BaseFont) {
				fr.Font, _ = fonts.Standard(fr.BaseFont)
			}
			d.fonts = append(d.fonts, fr)
		}
	}
}

// deref follows a reference through the arena; other values pass through.
func (d *Document) deref(obj raw.Object) raw.Object {
	for i := 0; i < d.cfg.limits.MaxIndirectDepth; i++ {
		r, ok := obj.(raw.RefObj)
		if !ok {
			return obj
		}
		v, err := d.arena.get(r.R)
		if err != nil {
			return nil
		}
		obj = v
	}
	return nil
}
