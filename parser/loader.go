package parser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/VibePDF/VibePDF-sub001/filters"
	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/observability"
	"github.com/VibePDF/VibePDF-sub001/scanner"
	"github.com/VibePDF/VibePDF-sub001/security"
	"github.com/VibePDF/VibePDF-sub001/xref"
)

var (
	// ErrNotFound is returned for references with no in-use xref entry.
	ErrNotFound = errors.New("parser: object not found")
	// ErrLengthCycle is returned when resolving a stream's /Length leads back
	// to an object that is still being loaded.
	ErrLengthCycle = errors.New("parser: /Length refers back to an object being loaded")
)

// loadChain lists the objects whose loading is in progress on the current
// call path, innermost first.
type loadChain struct {
	ref   raw.ObjectRef
	depth int
	next  *loadChain
}

type loadChainKey struct{}

func activeLoads(ctx context.Context) *loadChain {
	c, _ := ctx.Value(loadChainKey{}).(*loadChain)
	return c
}

func (c *loadChain) contains(ref raw.ObjectRef) bool {
	for ; c != nil; c = c.next {
		if c.ref == ref {
			return true
		}
	}
	return false
}

// Cache stores loaded objects by reference.
type Cache interface {
	Get(ref raw.ObjectRef) (raw.Object, bool)
	Put(ref raw.ObjectRef, obj raw.Object)
}

// memCache is the default Cache; its mutex lets read-only collaborators share
// one loader.
type memCache struct {
	mu sync.Mutex
	m  map[raw.ObjectRef]raw.Object
}

func newMemCache() *memCache { return &memCache{m: make(map[raw.ObjectRef]raw.Object)} }

func (c *memCache) Get(ref raw.ObjectRef) (raw.Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj, ok := c.m[ref]
	return obj, ok
}

func (c *memCache) Put(ref raw.ObjectRef, obj raw.Object) {
	c.mu.Lock()
	c.m[ref] = obj
	c.mu.Unlock()
}

// ObjectLoader reads indirect objects from the file buffer on demand.
type ObjectLoader struct {
	data       []byte
	table      *xref.Table
	security   security.Handler
	encryptRef raw.ObjectRef
	limits     security.Limits
	registry   *filters.Registry
	cache      Cache
	log        observability.Logger
	tracer     observability.Tracer
}

// ObjectLoaderBuilder assembles an ObjectLoader.
type ObjectLoaderBuilder struct {
	data     []byte
	table    *xref.Table
	security security.Handler
	limits   *security.Limits
	cache    Cache
	log      observability.Logger
	tracer   observability.Tracer
}

func (b *ObjectLoaderBuilder) WithData(data []byte) *ObjectLoaderBuilder { b.data = data; return b }
func (b *ObjectLoaderBuilder) WithXRef(t *xref.Table) *ObjectLoaderBuilder {
	b.table = t
	return b
}
func (b *ObjectLoaderBuilder) WithSecurity(h security.Handler) *ObjectLoaderBuilder {
	b.security = h
	return b
}
func (b *ObjectLoaderBuilder) WithLimits(l security.Limits) *ObjectLoaderBuilder {
	b.limits = &l
	return b
}
func (b *ObjectLoaderBuilder) WithCache(c Cache) *ObjectLoaderBuilder { b.cache = c; return b }
func (b *ObjectLoaderBuilder) WithLogger(l observability.Logger) *ObjectLoaderBuilder {
	b.log = l
	return b
}
func (b *ObjectLoaderBuilder) WithTracer(t observability.Tracer) *ObjectLoaderBuilder {
	b.tracer = t
	return b
}

func (b *ObjectLoaderBuilder) Build() (*ObjectLoader, error) {
	if b.data == nil || b.table == nil {
		return nil, errors.New("parser: data and xref table required")
	}
	limits := security.DefaultLimits()
	if b.limits != nil {
		limits = *b.limits
	}
	sec := b.security
	if sec == nil {
		sec = security.NoopHandler()
	}
	cache := b.cache
	if cache == nil {
		cache = newMemCache()
	}
	return &ObjectLoader{
		data:     b.data,
		table:    b.table,
		security: sec,
		limits:   limits,
		registry: filters.NewStandardRegistry(limits.FilterLimits()),
		cache:    cache,
		log:      observability.OrNop(b.log),
		tracer:   observability.TracerOrNop(b.tracer),
	}, nil
}

// Security returns the handler objects are decrypted with.
func (o *ObjectLoader) Security() security.Handler { return o.security }

// Resolve implements raw.Resolver.
func (o *ObjectLoader) Resolve(ref raw.ObjectRef) (raw.Object, error) {
	return o.Load(context.Background(), ref)
}

// Load returns the object identified by ref, decrypted, reading it from the
// buffer on first use.
func (o *ObjectLoader) Load(ctx context.Context, ref raw.ObjectRef) (raw.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if obj, ok := o.cache.Get(ref); ok {
		return obj, nil
	}
	chain := activeLoads(ctx)
	if chain.contains(ref) {
		return nil, fmt.Errorf("%w: %v", ErrLengthCycle, ref)
	}
	depth := 1
	if chain != nil {
		depth = chain.depth + 1
	}
	if o.limits.MaxIndirectDepth > 0 && depth > o.limits.MaxIndirectDepth {
		return nil, fmt.Errorf("parser: loading %v nests %d objects deep, limit %d", ref, depth, o.limits.MaxIndirectDepth)
	}
	ctx = context.WithValue(ctx, loadChainKey{}, &loadChain{ref: ref, depth: depth, next: chain})
	obj, err := o.loadOnce(ctx, ref)
	if err != nil {
		return nil, err
	}
	o.cache.Put(ref, obj)
	return obj, nil
}

// Deref follows chains of references up to Limits.MaxIndirectDepth.
func (o *ObjectLoader) Deref(ctx context.Context, obj raw.Object) (raw.Object, error) {
	for depth := 0; ; depth++ {
		ref, ok := obj.(raw.RefObj)
		if !ok {
			return obj, nil
		}
		if o.limits.MaxIndirectDepth > 0 && depth >= o.limits.MaxIndirectDepth {
			return nil, fmt.Errorf("parser: reference chain from %v exceeds %d", ref.R, o.limits.MaxIndirectDepth)
		}
		next, err := o.Load(ctx, ref.R)
		if err != nil {
			return nil, err
		}
		obj = next
	}
}

// DecodeStream runs the stream's filter chain. Decoded bytes are not cached.
func (o *ObjectLoader) DecodeStream(ctx context.Context, st *raw.StreamObj) ([]byte, error) {
	ctx, span := o.tracer.StartSpan(ctx, observability.SpanDecodeChain)
	defer span.Finish()
	out, err := o.registry.DecodeStream(ctx, st)
	if err != nil {
		span.SetError(err)
	}
	return out, err
}

func (o *ObjectLoader) loadOnce(ctx context.Context, ref raw.ObjectRef) (raw.Object, error) {
	entry, ok := o.table.Entry(ref.Num)
	if !ok || entry.Free || entry.Gen != ref.Gen {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, ref)
	}
	if entry.Offset < 0 || entry.Offset >= int64(len(o.data)) {
		return nil, scanner.Errorf(entry.Offset, "object %v offset outside the file (size %d)", ref, len(o.data))
	}
	s := scanner.New(o.data, o.limits.ScannerConfig())
	if err := s.Seek(entry.Offset); err != nil {
		return nil, err
	}
	got, obj, err := scanner.ReadIndirect(s, o.lengthResolver(ctx))
	if err != nil {
		return nil, fmt.Errorf("load %v: %w", ref, err)
	}
	if got != ref {
		return nil, scanner.Errorf(entry.Offset, "object header %v does not match xref entry %v", got, ref)
	}
	o.log.Debug("object loaded", observability.Int("num", ref.Num), observability.Int64("offset", entry.Offset))
	if ref == o.encryptRef || !o.security.IsEncrypted() {
		return obj, nil
	}
	return o.decrypt(ref, obj)
}

// lengthResolver follows an indirect /Length through the loader.
func (o *ObjectLoader) lengthResolver(ctx context.Context) scanner.LengthResolver {
	return func(dict *raw.DictObj) (int64, error) {
		v, ok := dict.Get("Length")
		if !ok {
			return 0, errors.New("stream has no /Length")
		}
		v, err := o.Deref(ctx, v)
		if err != nil {
			return 0, fmt.Errorf("resolve /Length: %w", err)
		}
		n, ok := v.(raw.NumberObj)
		if !ok || !n.IsInt || n.I < 0 {
			return 0, errors.New("stream /Length is not a non-negative integer")
		}
		return n.I, nil
	}
}

// decrypt replaces the strings and stream data of a freshly parsed object
// with their clear text.
func (o *ObjectLoader) decrypt(ref raw.ObjectRef, obj raw.Object) (raw.Object, error) {
	switch v := obj.(type) {
	case raw.StringObj:
		dec, err := o.security.Decrypt(ref.Num, ref.Gen, v.Bytes, security.DataClassString)
		if err != nil {
			return nil, err
		}
		return raw.StringObj{Bytes: dec, Hex: v.Hex}, nil
	case *raw.ArrayObj:
		for i, it := range v.Items {
			dec, err := o.decrypt(ref, it)
			if err != nil {
				return nil, err
			}
			v.Items[i] = dec
		}
	case *raw.DictObj:
		for _, k := range v.Keys() {
			dec, err := o.decrypt(ref, v.KV[k])
			if err != nil {
				return nil, err
			}
			v.KV[k] = dec
		}
	case *raw.StreamObj:
		if _, err := o.decrypt(ref, v.Dict); err != nil {
			return nil, err
		}
		if typ, _ := v.Dict.GetName("Type"); typ == "Metadata" && !o.security.EncryptMetadata() {
			return v, nil
		}
		dec, err := o.security.Decrypt(ref.Num, ref.Gen, v.Data, security.DataClassStream)
		if err != nil {
			return nil, err
		}
		v.Data = dec
		v.Dict.Set("Length", raw.NumberInt(int64(len(dec))))
	}
	return obj, nil
}
