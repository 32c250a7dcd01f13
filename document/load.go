package document

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/VibePDF/VibePDF-sub001/observability"
	"github.com/VibePDF/VibePDF-sub001/pagetree"
	"github.com/VibePDF/VibePDF-sub001/parser"
)

// Load parses data and reads every object into a new Document. Encrypted
// files are opened with password, or the empty password when it is "".
func Load(ctx context.Context, data []byte, password string, opts ...Option) (*Document, error) {
	cfg := newConfig(opts)
	pdoc, err := parser.Parse(ctx, data, parser.Config{
		Password: password,
		Limits:   cfg.limits,
		Logger:   cfg.logger,
		Tracer:   cfg.tracer,
	})
	if err != nil {
		return nil, err
	}
	loader, ok := pdoc.Loader.(*parser.ObjectLoader)
	if !ok {
		return nil, fmt.Errorf("document: unexpected loader %T", pdoc.Loader)
	}

	d := newDocument(cfg)
	d.arena.grow(pdoc.Size - 1)
	for _, ref := range pdoc.Refs {
		obj, err := loader.Load(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("document: load %v: %w", ref, err)
		}
		d.arena.load(ref, obj)
	}
	d.catalog = pdoc.Root
	d.info = pdoc.Info
	d.version = pdoc.Version
	d.id = pdoc.ID
	d.baseline = data
	d.prevXRef = pdoc.StartXRef
	d.prevSize = pdoc.Size

	if pdoc.Encrypted {
		d.sec = loader.Security()
		d.encrypt = pdoc.Encrypt
		if d.encrypt.IsZero() {
			// a direct /Encrypt dictionary becomes an object of its own
			if dict, ok := pdoc.Trailer.GetDict("Encrypt"); ok {
				d.encrypt = d.arena.add(dict.Clone())
			}
		}
	}

	root, err := d.buildTree()
	if err != nil {
		var se *StructuralError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &StructuralError{Msg: "page tree", Err: err}
	}
	walkNodes(root, func(n *pagetree.Node) {
		n.MaxKids = cfg.maxKids
		d.nodes[n.Object.Num] = true
	})
	d.tree = &pagetree.Tree{Root: root, AutoBalance: cfg.autoBalance}
	d.discoverFonts()
	d.readNameTree()

	d.log.Debug("document loaded",
		observability.Int("objects", len(pdoc.Refs)),
		observability.Int("pages", d.PageCount()),
		observability.Bool("encrypted", pdoc.Encrypted))
	return d, nil
}

// Open reads the file at path and loads it.
func Open(ctx context.Context, path, password string, opts ...Option) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	return Load(ctx, data, password, opts...)
}

func walkNodes(n *pagetree.Node, fn func(*pagetree.Node)) {
	fn(n)
	for _, k := range n.Kids() {
		if child, ok := k.(*pagetree.Node); ok {
			walkNodes(child, fn)
		}
	}
}
