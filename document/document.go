// Package document is the composition root of the engine: it owns the object
// arena, the catalog and page tree, fonts, document information and security,
// and hands objects to the writer or takes them from the parser.
//
// A Document is not safe for concurrent use.
package document

import (
	"errors"

	"github.com/VibePDF/VibePDF-sub001/filters"
	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/observability"
	"github.com/VibePDF/VibePDF-sub001/pagetree"
	"github.com/VibePDF/VibePDF-sub001/security"
	"github.com/VibePDF/VibePDF-sub001/writer"
)

var (
	ErrObjectNotFound = errors.New("document: object not found")
	ErrPageIndex      = errors.New("document: page index out of range")
	ErrNotLoaded      = errors.New("document: incremental save needs an original file")
	// ErrSecurityChanged is returned by SaveIncremental after EnableSecurity
	// on a document that already had a baseline file; the unchanged objects
	// in that file are encrypted under the old key.
	ErrSecurityChanged = errors.New("document: security changed since the last save")
)

// Document is an editable PDF held entirely in memory.
type Document struct {
	cfg   config
	log   observability.Logger
	trace observability.Tracer

	filters *filters.Registry
	arena   *arena
	catalog raw.ObjectRef
	info    raw.ObjectRef
	tree    *pagetree.Tree

	// nodes holds the numbers of the /Pages objects last written by sync.
	nodes     map[int]bool
	treeDirty bool

	fonts   []FontResource
	scripts []script

	sec         security.Handler
	encrypt     raw.ObjectRef
	secModified bool
	id          [][]byte
	version     string

	// baseline is the newest complete file for this document, either loaded
	// or produced by a save. SaveIncremental appends to it.
	baseline []byte
	prevXRef int64
	prevSize int
}

type config struct {
	logger        observability.Logger
	tracer        observability.Tracer
	writer        writer.Config
	limits        security.Limits
	maxKids       int
	autoBalance   bool
	deterministic bool
}

// Option configures New, Load and Open.
type Option func(*config)

func WithLogger(l observability.Logger) Option { return func(c *config) { c.logger = l } }
func WithTracer(t observability.Tracer) Option { return func(c *config) { c.tracer = t } }

// WithWriterConfig sets the version, filter and compression used by saves.
// Its Logger and Tracer default to the document's.
func WithWriterConfig(wc writer.Config) Option { return func(c *config) { c.writer = wc } }

// WithLimits bounds parsing in Load and Open.
func WithLimits(l security.Limits) Option { return func(c *config) { c.limits = l } }

// WithMaxKids sets the page tree fan-out. Values below 2 are ignored.
func WithMaxKids(n int) Option {
	return func(c *config) {
		if n >= 2 {
			c.maxKids = n
		}
	}
}

// WithAutoBalance splits page tree nodes as inserts overfill them. Without
// it pages accumulate under one node until Optimize is called.
func WithAutoBalance(on bool) Option { return func(c *config) { c.autoBalance = on } }

// WithDeterministicID derives the file identifier from document content
// instead of random bytes.
func WithDeterministicID() Option { return func(c *config) { c.deterministic = true } }

func newConfig(opts []Option) config {
	cfg := config{maxKids: pagetree.DefaultMaxKids, autoBalance: true}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.limits == (security.Limits{}) {
		cfg.limits = security.DefaultLimits()
	}
	if cfg.writer.Logger == nil {
		cfg.writer.Logger = cfg.logger
	}
	if cfg.writer.Tracer == nil {
		cfg.writer.Tracer = cfg.tracer
	}
	return cfg
}

func newDocument(cfg config) *Document {
	return &Document{
		cfg:     cfg,
		log:     observability.OrNop(cfg.logger),
		trace:   observability.TracerOrNop(cfg.tracer),
		filters: filters.NewStandardRegistry(cfg.limits.FilterLimits()),
		arena:   newArena(),
		nodes:   make(map[int]bool),
		sec:     security.NoopHandler(),
	}
}

// New returns an empty document holding a catalog and an empty page tree.
func New(opts ...Option) *Document {
	d := newDocument(newConfig(opts))
	d.catalog = d.arena.add(raw.Dict())
	d.tree = &pagetree.Tree{Root: pagetree.NewNode(), AutoBalance: d.cfg.autoBalance}
	d.tree.Root.MaxKids = d.cfg.maxKids
	d.tree.Root.Object = d.arena.add(raw.Dict())

	catalog := raw.Dict()
	catalog.Set("Type", raw.NameLiteral("Catalog"))
	catalog.Set("Pages", raw.RefTo(d.tree.Root.Object))
	_ = d.arena.set(d.catalog, catalog)
	d.treeDirty = true
	d.syncTree()
	return d
}

// AddObject stores value under a new object number.
func (d *Document) AddObject(value raw.Object) raw.ObjectRef { return d.arena.add(value) }

// SetObject replaces the value of a live object and marks it modified.
func (d *Document) SetObject(ref raw.ObjectRef, value raw.Object) error {
	return d.arena.set(ref, value)
}

// RemoveObject frees num. The number is not handed out again until the next
// full save.
func (d *Document) RemoveObject(num int) error { return d.arena.remove(num) }

// Resolve returns the value stored under ref.
func (d *Document) Resolve(ref raw.ObjectRef) (raw.Object, error) {
	if d.treeDirty {
		d.syncTree()
	}
	return d.arena.get(ref)
}

// MarkModified flags num for the next incremental save. Needed after
// mutating a value obtained from Resolve in place.
func (d *Document) MarkModified(num int) error {
	if _, ok := d.arena.ref(num); !ok {
		return ErrObjectNotFound
	}
	d.arena.modified.Set(uint(num))
	return nil
}

// Modified lists objects changed since the last save.
func (d *Document) Modified() []raw.ObjectRef { return d.arena.modifiedRefs() }

// Objects lists every live object identity.
func (d *Document) Objects() []raw.ObjectRef { return d.arena.liveRefs() }

// Catalog returns a copy of the catalog dictionary.
func (d *Document) Catalog() *raw.DictObj {
	v, err := d.arena.get(d.catalog)
	if err != nil {
		return nil
	}
	if dict, ok := v.(*raw.DictObj); ok {
		return dict.Clone()
	}
	return nil
}

// CatalogRef returns the identity of the catalog.
func (d *Document) CatalogRef() raw.ObjectRef { return d.catalog }

// PageTree returns the root of the page tree. Callers must treat it as
// read-only; use the page methods on Document to change it.
func (d *Document) PageTree() *pagetree.Node { return d.tree.Root }

// Fonts returns the font resources known to the document.
func (d *Document) Fonts() []FontResource {
	out := make([]FontResource, len(d.fonts))
	copy(out, d.fonts)
	return out
}

// Optimize rebalances the page tree.
func (d *Document) Optimize() {
	d.tree.Optimize()
	d.treeDirty = true
}

// syncTree writes the page tree into the arena. Objects whose value did not
// change keep their modified bit untouched, so a loaded document that only
// gained an object does not rewrite every page.
func (d *Document) syncTree() {
	objs := pagetree.Flatten(d.tree.Root, func() raw.ObjectRef { return d.arena.add(raw.NullObj{}) })
	nodes := make(map[int]bool)
	for _, o := range objs {
		if dict, ok := o.Value.(*raw.DictObj); ok {
			if t, _ := dict.GetName("Type"); t == "Pages" {
				nodes[o.Ref.Num] = true
			}
		}
		if cur, err := d.arena.get(o.Ref); err == nil && raw.Equal(cur, o.Value) {
			continue
		}
		if err := d.arena.set(o.Ref, o.Value); err != nil {
			d.arena.load(o.Ref, o.Value)
			d.arena.modified.Set(uint(o.Ref.Num))
		}
	}
	for num := range d.nodes {
		if !nodes[num] {
			_ = d.arena.remove(num)
		}
	}
	d.nodes = nodes
	d.treeDirty = false
}
