// Package writer serializes indirect objects into a complete PDF file or an
// incremental update appended to an existing one.
package writer

import (
	"context"
	"errors"

	"github.com/VibePDF/VibePDF-sub001/filters"
	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/observability"
	"github.com/VibePDF/VibePDF-sub001/security"
)

// FilterAuto picks a filter per stream from filters.AnalyzeCompression.
const FilterAuto = "Auto"

const defaultVersion = "1.7"

// binaryMarker follows the header so transports treat the file as binary.
const binaryMarker = "%\xE2\xE3\xCF\xD3\n"

type Config struct {
	// Version is written in the header; default "1.7".
	Version string
	// Filter is applied to streams that carry no /Filter of their own:
	// a filters name, filters.None, or FilterAuto. Default FlateDecode.
	Filter string
	// Compression is the Flate level; zero selects the default level.
	Compression int
	Logger      observability.Logger
	Tracer      observability.Tracer
}

func (c Config) withDefaults() Config {
	if c.Version == "" {
		c.Version = defaultVersion
	}
	if c.Filter == "" {
		c.Filter = filters.FlateDecode
	}
	if c.Compression == 0 {
		c.Compression = filters.DefaultCompression
	}
	return c
}

// Input is everything one write needs. Objects may arrive in any order; they
// are written by ascending object number.
type Input struct {
	Objects []raw.IndirectObject
	Root    raw.ObjectRef
	Info    raw.ObjectRef
	// Encrypt is written in clear when set.
	Encrypt  *raw.IndirectObject
	ID       [][]byte
	Security security.Handler
	// Freed lists objects to record as free entries; their generation is
	// bumped in the xref.
	Freed []raw.ObjectRef
	// Size raises the trailer /Size when it exceeds the highest object
	// number written plus one.
	Size int
}

var (
	ErrNoRoot          = errors.New("writer: input has no root reference")
	ErrDuplicateObject = errors.New("writer: duplicate object number")
)

// Interceptor observes every object as it is written.
type Interceptor interface {
	BeforeWrite(ctx context.Context, ref raw.ObjectRef, obj raw.Object) error
	AfterWrite(ctx context.Context, ref raw.ObjectRef, bytesWritten int64) error
}

type Writer struct {
	cfg          Config
	registry     *filters.Registry
	interceptors []Interceptor
	log          observability.Logger
	tracer       observability.Tracer
}

// New returns a Writer with cfg's zero fields defaulted.
func New(cfg Config) *Writer {
	cfg = cfg.withDefaults()
	reg := filters.NewStandardRegistry(filters.Limits{})
	reg.Register(filters.NewFlate(cfg.Compression))
	return &Writer{
		cfg:      cfg,
		registry: reg,
		log:      observability.OrNop(cfg.Logger),
		tracer:   observability.TracerOrNop(cfg.Tracer),
	}
}

type WriterBuilder struct {
	cfg          Config
	interceptors []Interceptor
}

func (b *WriterBuilder) WithConfig(cfg Config) *WriterBuilder { b.cfg = cfg; return b }
func (b *WriterBuilder) WithInterceptor(i Interceptor) *WriterBuilder {
	b.interceptors = append(b.interceptors, i)
	return b
}
func (b *WriterBuilder) Build() *Writer {
	w := New(b.cfg)
	w.interceptors = b.interceptors
	return w
}

// Config returns the effective configuration.
func (w *Writer) Config() Config { return w.cfg }
