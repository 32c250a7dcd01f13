// Package observability holds the logging and tracing hooks the parser,
// writer and document accept. Both default to no-ops.
package observability

import (
	"context"
	"sync"
)

// Logger is a leveled, field-based logger.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Field is one key/value pair attached to a log entry.
type Field interface {
	Key() string
	Value() interface{}
}

type field struct {
	key string
	val interface{}
}

func (f field) Key() string        { return f.key }
func (f field) Value() interface{} { return f.val }

func String(key, value string) Field      { return field{key, value} }
func Int(key string, value int) Field     { return field{key, value} }
func Int64(key string, value int64) Field { return field{key, value} }
func Bool(key string, value bool) Field   { return field{key, value} }
func Error(key string, err error) Field   { return field{key, err} }

type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// Tracer starts spans around parse, decode, write and save.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

type Span interface {
	SetTag(key string, value interface{})
	SetError(err error)
	Finish()
}

type nopTracer struct{}

func (nopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, nopSpan{}
}

// NopTracer returns a tracer that does nothing.
func NopTracer() Tracer { return nopTracer{} }

type nopSpan struct{}

func (nopSpan) SetTag(string, interface{}) {}
func (nopSpan) SetError(error)             {}
func (nopSpan) Finish()                    {}

// Span names.
const (
	SpanParse       = "pdf.parse"
	SpanWrite       = "pdf.write"
	SpanWriteDelta  = "pdf.write.incremental"
	SpanSave        = "pdf.document.save"
	SpanDecodeChain = "pdf.filter.decode"
)

// FinishedSpan is a span captured by a Recorder.
type FinishedSpan struct {
	Name string
	Tags map[string]interface{}
	Err  error
}

// Recorder is a Tracer that keeps every finished span in memory. It is meant
// for tests and debugging tools.
type Recorder struct {
	mu    sync.Mutex
	spans []FinishedSpan
}

func (r *Recorder) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, &recordedSpan{r: r, s: FinishedSpan{Name: name, Tags: map[string]interface{}{}}}
}

// Spans returns the finished spans in the order they finished.
func (r *Recorder) Spans() []FinishedSpan {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FinishedSpan, len(r.spans))
	copy(out, r.spans)
	return out
}

// Names returns the names of the finished spans.
func (r *Recorder) Names() []string {
	spans := r.Spans()
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Name
	}
	return out
}

type recordedSpan struct {
	r    *Recorder
	s    FinishedSpan
	done bool
}

func (s *recordedSpan) SetTag(key string, value interface{}) { s.s.Tags[key] = value }
func (s *recordedSpan) SetError(err error)                   { s.s.Err = err }

func (s *recordedSpan) Finish() {
	if s.done {
		return
	}
	s.done = true
	s.r.mu.Lock()
	s.r.spans = append(s.r.spans, s.s)
	s.r.mu.Unlock()
}
