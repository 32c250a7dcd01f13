package document

import (
	"fmt"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/observability"
	"github.com/VibePDF/VibePDF-sub001/pagetree"
)

// StructuralError reports a document that cannot be written or was read
// without a usable catalog or page tree.
type StructuralError struct {
	Msg string
	Err error
}

func (e *StructuralError) Error() string {
	if e.Err != nil {
		return "document: structural: " + e.Msg + ": " + e.Err.Error()
	}
	return "document: structural: " + e.Msg
}

func (e *StructuralError) Unwrap() error { return e.Err }

// Validation finding codes.
const (
	CodeDanglingRef    = "dangling-reference"
	CodeEmptyTree      = "empty-page-tree"
	CodeMissingBox     = "missing-mediabox"
	CodeBadContent     = "bad-content"
	CodeBrokenTree     = "broken-page-tree"
	CodeMissingCatalog = "missing-catalog"
)

// ValidationError is a non-fatal finding about the document.
type ValidationError struct {
	Ref  raw.ObjectRef
	Code string
	Msg  string
}

func (e ValidationError) Error() string {
	if e.Ref.IsZero() {
		return fmt.Sprintf("document: %s: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("document: %s at %v: %s", e.Code, e.Ref, e.Msg)
}

// Validate reports problems that do not stop a save but that a reader may
// trip over. It never modifies the document beyond syncing the page tree.
func (d *Document) Validate() []ValidationError {
	d.syncTree()
	var out []ValidationError
	add := func(v ValidationError) {
		d.log.Warn("validation finding",
			observability.String("code", v.Code),
			observability.String("object", v.Ref.String()),
			observability.String("detail", v.Msg))
		out = append(out, v)
	}

	if _, err := d.catalogDict(); err != nil {
		add(ValidationError{Ref: d.catalog, Code: CodeMissingCatalog, Msg: err.Error()})
	}
	for _, ref := range d.arena.liveRefs() {
		v, _ := d.arena.get(ref)
		for _, target := range raw.References(v) {
			if _, err := d.arena.get(target); err != nil {
				add(ValidationError{Ref: ref, Code: CodeDanglingRef, Msg: fmt.Sprintf("refers to missing %v", target)})
			}
		}
	}
	if _, err := d.buildTree(); err != nil {
		add(ValidationError{Ref: d.tree.Root.Object, Code: CodeBrokenTree, Msg: err.Error()})
	}
	if d.PageCount() == 0 {
		add(ValidationError{Ref: d.tree.Root.Object, Code: CodeEmptyTree, Msg: "document has no pages"})
	}
	for _, p := range d.tree.Pages() {
		if _, ok := pagetree.Resolve(p, "MediaBox"); !ok {
			add(ValidationError{Ref: p.Object, Code: CodeMissingBox, Msg: "no MediaBox on the page or its ancestors"})
		}
		for _, c := range p.Contents {
			v, err := d.arena.get(c)
			if err != nil {
				continue
			}
			if _, ok := v.(*raw.StreamObj); !ok {
				add(ValidationError{Ref: p.Object, Code: CodeBadContent, Msg: fmt.Sprintf("content %v is a %s", c, v.Type())})
			}
		}
	}
	return out
}

// checkStructure is the gate in front of every save: a catalog, an acyclic
// tree with at least one page, and no reference from the catalog's closure
// to a missing object.
func (d *Document) checkStructure() error {
	if _, err := d.catalogDict(); err != nil {
		return err
	}
	root, err := d.buildTree()
	if err != nil {
		return &StructuralError{Msg: "page tree", Err: err}
	}
	if root.Count() == 0 {
		return &StructuralError{Msg: "document has no pages"}
	}

	seen := map[raw.ObjectRef]bool{}
	queue := []raw.ObjectRef{d.catalog}
	if !d.info.IsZero() {
		queue = append(queue, d.info)
	}
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if seen[ref] {
			continue
		}
		seen[ref] = true
		v, err := d.arena.get(ref)
		if err != nil {
			return &StructuralError{Msg: "unresolvable reference", Err: err}
		}
		for _, target := range raw.References(v) {
			if !seen[target] {
				if _, err := d.arena.get(target); err != nil {
					return &StructuralError{Msg: fmt.Sprintf("object %v refers to missing %v", ref, target), Err: err}
				}
				queue = append(queue, target)
			}
		}
	}
	return nil
}

func (d *Document) catalogDict() (*raw.DictObj, error) {
	v, err := d.arena.get(d.catalog)
	if err != nil {
		return nil, &StructuralError{Msg: "catalog missing", Err: err}
	}
	dict, ok := v.(*raw.DictObj)
	if !ok {
		return nil, &StructuralError{Msg: fmt.Sprintf("catalog %v is a %s", d.catalog, v.Type())}
	}
	if t, _ := dict.GetName("Type"); t != "Catalog" {
		return nil, &StructuralError{Msg: fmt.Sprintf("catalog %v has /Type /%s", d.catalog, t)}
	}
	if _, ok := dict.GetRef("Pages"); !ok {
		return nil, &StructuralError{Msg: "catalog has no /Pages reference"}
	}
	return dict, nil
}

// buildTree re-reads the page tree from the arena, catching cycles that
// SetObject may have introduced behind the in-memory tree's back.
func (d *Document) buildTree() (*pagetree.Node, error) {
	dict, err := d.catalogDict()
	if err != nil {
		return nil, err
	}
	pages, _ := dict.GetRef("Pages")
	return pagetree.Build(pages, d.arena.get)
}
