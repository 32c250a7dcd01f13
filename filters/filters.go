package filters

import (
	"context"
	"errors"
	"fmt"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
)

// Filter names as they appear in /Filter entries.
const (
	None            = "None"
	FlateDecode     = "FlateDecode"
	LZWDecode       = "LZWDecode"
	RunLengthDecode = "RunLengthDecode"
	ASCII85Decode   = "ASCII85Decode"
	ASCIIHexDecode  = "ASCIIHexDecode"
)

// abbreviations used by inline images
var aliases = map[string]string{
	"Fl":  FlateDecode,
	"LZW": LZWDecode,
	"RL":  RunLengthDecode,
	"A85": ASCII85Decode,
	"AHx": ASCIIHexDecode,
}

type Decoder interface {
	Name() string
	Decode(ctx context.Context, input []byte, params *raw.DictObj) ([]byte, error)
}

type Encoder interface {
	Name() string
	Encode(ctx context.Context, input []byte) ([]byte, error)
}

// Codec is a filter that can run in both directions.
type Codec interface {
	Decoder
	Encoder
}

type Limits struct {
	MaxDecompressedSize int64
}

// ErrLimitExceeded is wrapped by Error when decoded output grows past
// Limits.MaxDecompressedSize.
var ErrLimitExceeded = errors.New("decoded data exceeds size limit")

// UnsupportedError reports a filter name with no registered codec.
type UnsupportedError struct {
	Filter string
}

func (e UnsupportedError) Error() string { return "unsupported filter: " + e.Filter }

// Error reports corrupt input for a known filter.
type Error struct {
	Filter string
	Err    error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Filter, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func filterErr(name string, err error) error {
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return &Error{Filter: name, Err: err}
}

type Registry struct {
	codecs map[string]Codec
	limits Limits
}

// NewRegistry returns a registry holding codecs.
func NewRegistry(limits Limits, codecs ...Codec) *Registry {
	r := &Registry{limits: limits}
	for _, c := range codecs {
		r.Register(c)
	}
	return r
}

// NewStandardRegistry returns a registry with every built-in codec.
func NewStandardRegistry(limits Limits) *Registry {
	return NewRegistry(limits,
		NewFlate(DefaultCompression),
		NewLZW(),
		NewRunLength(),
		NewASCII85(),
		NewASCIIHex(),
	)
}

var defaultRegistry = NewStandardRegistry(Limits{})

// Default returns the shared registry used by the package-level functions.
func Default() *Registry { return defaultRegistry }

func (r *Registry) Register(c Codec) {
	if r.codecs == nil {
		r.codecs = make(map[string]Codec)
	}
	r.codecs[c.Name()] = c
}

func (r *Registry) Get(name string) (Codec, bool) {
	c, ok := r.codecs[canonical(name)]
	return c, ok
}

func (r *Registry) Limits() Limits { return r.limits }

func canonical(name string) string {
	if full, ok := aliases[name]; ok {
		return full
	}
	return name
}

func isIdentity(name string) bool { return name == "" || name == None }

// Encode applies a single filter.
func (r *Registry) Encode(ctx context.Context, data []byte, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if isIdentity(name) {
		return data, nil
	}
	c, ok := r.Get(name)
	if !ok {
		return nil, UnsupportedError{Filter: name}
	}
	out, err := c.Encode(ctx, data)
	if err != nil {
		return nil, filterErr(c.Name(), err)
	}
	return out, nil
}

// Decode inverts a single filter.
func (r *Registry) Decode(ctx context.Context, data []byte, name string, params *raw.DictObj) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if isIdentity(name) {
		return data, nil
	}
	c, ok := r.Get(name)
	if !ok {
		return nil, UnsupportedError{Filter: name}
	}
	out, err := c.Decode(withLimit(ctx, r.limits.MaxDecompressedSize), data, params)
	if err != nil {
		return nil, filterErr(c.Name(), err)
	}
	if r.limits.MaxDecompressedSize > 0 && int64(len(out)) > r.limits.MaxDecompressedSize {
		return nil, &Error{Filter: c.Name(), Err: ErrLimitExceeded}
	}
	return out, nil
}

// EncodeChain applies names in reverse so that DecodeChain with the same
// list restores the input, matching /Filter array semantics.
func (r *Registry) EncodeChain(ctx context.Context, data []byte, names []string) ([]byte, error) {
	out := data
	for i := len(names) - 1; i >= 0; i-- {
		var err error
		if out, err = r.Encode(ctx, out, names[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DecodeChain applies names in order; params[i] pairs with names[i].
func (r *Registry) DecodeChain(ctx context.Context, data []byte, names []string, params []*raw.DictObj) ([]byte, error) {
	out := data
	for i, name := range names {
		var p *raw.DictObj
		if i < len(params) {
			p = params[i]
		}
		var err error
		if out, err = r.Decode(ctx, out, name, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DecodeStream decodes a stream's data according to its /Filter and
// /DecodeParms entries.
func (r *Registry) DecodeStream(ctx context.Context, s *raw.StreamObj) ([]byte, error) {
	names, params := ExtractFilters(s.Dict)
	return r.DecodeChain(ctx, s.Data, names, params)
}

// Encode applies name with the default registry.
func Encode(ctx context.Context, data []byte, name string) ([]byte, error) {
	return defaultRegistry.Encode(ctx, data, name)
}

// Decode inverts name with the default registry.
func Decode(ctx context.Context, data []byte, name string, params *raw.DictObj) ([]byte, error) {
	return defaultRegistry.Decode(ctx, data, name, params)
}

type limitKey struct{}

func withLimit(ctx context.Context, n int64) context.Context {
	if n <= 0 {
		return ctx
	}
	return context.WithValue(ctx, limitKey{}, n)
}

func limitFrom(ctx context.Context) int64 {
	n, _ := ctx.Value(limitKey{}).(int64)
	return n
}
