// Package parser turns a PDF byte buffer into a raw.Document whose objects
// are loaded lazily through the cross-reference chain.
package parser

import (
	"bytes"
	"context"
	"fmt"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/observability"
	"github.com/VibePDF/VibePDF-sub001/scanner"
	"github.com/VibePDF/VibePDF-sub001/security"
	"github.com/VibePDF/VibePDF-sub001/xref"
)

// headerWindow is how far into the file the %PDF- marker may start.
const headerWindow = 1024

// Config controls document parsing.
type Config struct {
	Password string
	// Limits defaults to security.DefaultLimits when zero.
	Limits security.Limits
	Cache  Cache
	Logger observability.Logger
	Tracer observability.Tracer
}

func (c Config) limits() security.Limits {
	if c.Limits == (security.Limits{}) {
		return security.DefaultLimits()
	}
	return c.Limits
}

// Parse reads the header, the cross-reference chain and the trailer, sets up
// decryption, and returns a document whose Loader reads objects on demand.
func Parse(ctx context.Context, data []byte, cfg Config) (doc *raw.Document, err error) {
	log := observability.OrNop(cfg.Logger)
	ctx, span := observability.TracerOrNop(cfg.Tracer).StartSpan(ctx, observability.SpanParse)
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
	}()
	limits := cfg.limits()
	if limits.MaxParseTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.MaxParseTime)
		defer cancel()
	}

	version, err := readHeader(data)
	if err != nil {
		return nil, err
	}
	start, err := xref.FindStartXRef(data)
	if err != nil {
		return nil, err
	}
	table, trailer, err := xref.Resolve(data, start, limits.MaxXRefDepth)
	if err != nil {
		return nil, fmt.Errorf("resolve xref: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc = &raw.Document{
		Version:     version,
		Trailer:     trailer,
		StartXRef:   start,
		Data:        data,
		Permissions: security.EncodePermissions(security.AllPermissions()),
	}
	var ok bool
	if doc.Root, ok = trailer.GetRef("Root"); !ok {
		return nil, scanner.Errorf(start, "trailer has no /Root reference")
	}
	doc.Info, _ = trailer.GetRef("Info")
	if n := table.Size(); limits.MaxObjects > 0 && n > limits.MaxObjects {
		return nil, scanner.Errorf(start, "xref names object %d, limit is %d objects", n-1, limits.MaxObjects)
	}
	if size, ok := trailer.GetInt("Size"); ok {
		if size < 0 || (limits.MaxObjects > 0 && size > int64(limits.MaxObjects)) {
			return nil, scanner.Errorf(start, "trailer /Size %d outside 0..%d", size, limits.MaxObjects)
		}
		doc.Size = int(size)
	}
	// an overstated /Size names no objects
	if n := table.Size(); doc.Size > n {
		log.Debug("trailer /Size clamped", observability.Int("size", doc.Size), observability.Int("xref", n))
		doc.Size = n
	}
	if ids, ok := trailer.GetArray("ID"); ok {
		for _, it := range ids.Items {
			if s, ok := it.(raw.StringObj); ok {
				doc.ID = append(doc.ID, s.Bytes)
			}
		}
	}
	for _, num := range table.Objects() {
		if e, ok := table.Entry(num); ok && !e.Free {
			doc.Refs = append(doc.Refs, raw.ObjectRef{Num: num, Gen: e.Gen})
		}
	}

	loader, err := (&ObjectLoaderBuilder{}).
		WithData(data).
		WithXRef(table).
		WithLimits(limits).
		WithCache(cfg.Cache).
		WithLogger(log).
		WithTracer(cfg.Tracer).
		Build()
	if err != nil {
		return nil, err
	}
	if err := setupSecurity(ctx, loader, doc, cfg.Password); err != nil {
		return nil, err
	}
	doc.Loader = loader

	if _, err := loader.Load(ctx, doc.Root); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	log.Debug("document parsed",
		observability.String("version", version),
		observability.Int("objects", len(doc.Refs)),
		observability.Int64("startxref", start),
		observability.Bool("encrypted", doc.Encrypted))
	span.SetTag("objects", len(doc.Refs))
	return doc, nil
}

// setupSecurity loads the /Encrypt dictionary in clear and installs an
// authenticated handler on the loader.
func setupSecurity(ctx context.Context, loader *ObjectLoader, doc *raw.Document, password string) error {
	encObj, ok := doc.Trailer.Get("Encrypt")
	if !ok {
		return nil
	}
	var encDict *raw.DictObj
	switch v := encObj.(type) {
	case *raw.DictObj:
		encDict = v
	case raw.RefObj:
		doc.Encrypt = v.R
		loader.encryptRef = v.R
		obj, err := loader.Load(ctx, v.R)
		if err != nil {
			return fmt.Errorf("load /Encrypt: %w", err)
		}
		encDict, _ = obj.(*raw.DictObj)
	}
	if encDict == nil {
		return scanner.Errorf(doc.StartXRef, "/Encrypt is not a dictionary")
	}
	var fileID []byte
	if len(doc.ID) > 0 {
		fileID = doc.ID[0]
	}
	h, err := (&security.HandlerBuilder{}).WithEncryptDict(encDict).WithTrailer(doc.Trailer).WithFileID(fileID).Build()
	if err != nil {
		return err
	}
	if err := h.Authenticate(password); err != nil {
		return err
	}
	loader.security = h
	doc.Encrypted = true
	doc.Permissions = security.EncodePermissions(h.Permissions())
	doc.Algorithm = h.Algorithm().String()
	return nil
}

// readHeader finds "%PDF-x.y" within the first headerWindow bytes.
func readHeader(data []byte) (string, error) {
	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	i := bytes.Index(window, []byte("%PDF-"))
	if i < 0 {
		return "", scanner.Errorf(0, "%%PDF- header not found in the first %d bytes", headerWindow)
	}
	v := data[i+5:]
	n := 0
	for n < len(v) && (v[n] == '.' || (v[n] >= '0' && v[n] <= '9')) {
		n++
	}
	ver := string(v[:n])
	if len(ver) < 3 || ver[1] != '.' || ver[0] < '1' || ver[0] > '2' {
		return "", scanner.Errorf(int64(i), "malformed PDF version %q", ver)
	}
	return ver, nil
}
