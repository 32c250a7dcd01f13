package document

import (
	"fmt"
	"sort"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/scripting"
)

type script struct {
	name   string
	action raw.ObjectRef
}

// AddJavaScript registers a document-level JavaScript action under name in
// the catalog's /Names /JavaScript tree. The source must compile. Adding a
// name twice replaces the earlier action.
func (d *Document) AddJavaScript(name, source string) error {
	if err := scripting.Validate(name, source); err != nil {
		return fmt.Errorf("document: javascript %q: %w", name, err)
	}
	action := raw.Dict()
	action.Set("Type", raw.NameLiteral("Action"))
	action.Set("S", raw.NameLiteral("JavaScript"))
	action.Set("JS", raw.Str([]byte(source)))

	replaced := false
	for i, s := range d.scripts {
		if s.name == name {
			_ = d.arena.remove(s.action.Num)
			d.scripts[i].action = d.arena.add(action)
			replaced = true
		}
	}
	if !replaced {
		d.scripts = append(d.scripts, script{name: name, action: d.arena.add(action)})
	}
	sort.Slice(d.scripts, func(i, j int) bool { return d.scripts[i].name < d.scripts[j].name })
	return d.writeNameTree()
}

// JavaScriptNames lists the registered script names in tree order.
func (d *Document) JavaScriptNames() []string {
	out := make([]string, len(d.scripts))
	for i, s := range d.scripts {
		out[i] = s.name
	}
	return out
}

// writeNameTree stores the scripts as a single leaf under the catalog.
func (d *Document) writeNameTree() error {
	leaf := raw.NewArray()
	for _, s := range d.scripts {
		key, err := encodeText(s.name)
		if err != nil {
			return fmt.Errorf("document: javascript name %q: %w", s.name, err)
		}
		leaf.Append(key)
		leaf.Append(raw.RefTo(s.action))
	}
	js := raw.Dict()
	js.Set("Names", leaf)

	catalog := d.Catalog()
	if catalog == nil {
		return &StructuralError{Msg: "catalog missing"}
	}
	names, _ := catalog.Get("Names")
	switch v := names.(type) {
	case raw.RefObj:
		obj, err := d.arena.get(v.R)
		if err != nil {
			return err
		}
		dict, ok := obj.(*raw.DictObj)
		if !ok {
			return &StructuralError{Msg: fmt.Sprintf("/Names %v is a %s", v.R, obj.Type())}
		}
		dict = dict.Clone()
		dict.Set("JavaScript", js)
		return d.arena.set(v.R, dict)
	case *raw.DictObj:
		dict := v.Clone()
		dict.Set("JavaScript", js)
		catalog.Set("Names", dict)
	default:
		dict := raw.Dict()
		dict.Set("JavaScript", js)
		catalog.Set("Names", dict)
	}
	return d.arena.set(d.catalog, catalog)
}

// readNameTree loads a flat /JavaScript leaf from a parsed catalog. Trees
// split across /Kids are kept as they are and not exposed.
func (d *Document) readNameTree() {
	catalog := d.Catalog()
	names, ok := d.deref(lookup(catalog, "Names")).(*raw.DictObj)
	if !ok {
		return
	}
	js, ok := d.deref(lookup(names, "JavaScript")).(*raw.DictObj)
	if !ok {
		return
	}
	leaf, ok := js.GetArray("Names")
	if !ok {
		return
	}
	for i := 0; i+1 < leaf.Len(); i += 2 {
		key, ok1 := leaf.Items[i].(raw.StringObj)
		ref, ok2 := leaf.Items[i+1].(raw.RefObj)
		if !ok1 || !ok2 {
			continue
		}
		name, err := decodeText(key.Bytes)
		if err != nil {
			continue
		}
		d.scripts = append(d.scripts, script{name: name, action: ref.R})
	}
}

func lookup(d *raw.DictObj, key string) raw.Object {
	v, _ := d.Get(key)
	return v
}
