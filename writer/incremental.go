package writer

import (
	"bytes"
	"context"
	"errors"

	"github.com/VibePDF/VibePDF-sub001/observability"
)

var ErrNoOriginal = errors.New("writer: incremental update needs the original file")

// IncrementalWriter appends an update section to an existing file. Only the
// objects in the Input are written; everything else stays in Original.
type IncrementalWriter struct {
	*Writer
	Original []byte
	// PrevXRef is the startxref offset of the newest section in Original.
	PrevXRef int64
	// PrevSize is the trailer /Size of Original.
	PrevSize int
}

func NewIncremental(cfg Config, original []byte, prevXRef int64, prevSize int) *IncrementalWriter {
	return &IncrementalWriter{Writer: New(cfg), Original: original, PrevXRef: prevXRef, PrevSize: prevSize}
}

// WriteIncremental returns the delta block only. Its offsets assume it is
// appended directly after Original.
func (w *IncrementalWriter) WriteIncremental(ctx context.Context, in Input) (out []byte, err error) {
	if len(w.Original) == 0 {
		return nil, ErrNoOriginal
	}
	ctx, span := w.tracer.StartSpan(ctx, observability.SpanWriteDelta)
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
	}()
	if in.Size < w.PrevSize {
		in.Size = w.PrevSize
	}
	var buf bytes.Buffer
	if last := w.Original[len(w.Original)-1]; last != '\n' && last != '\r' {
		buf.WriteByte('\n')
	}
	if err := w.writeBody(ctx, &buf, int64(len(w.Original)), in, w.PrevXRef); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Append returns Original followed by the delta block.
func (w *IncrementalWriter) Append(ctx context.Context, in Input) ([]byte, error) {
	delta, err := w.WriteIncremental(ctx, in)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(w.Original)+len(delta))
	out = append(out, w.Original...)
	return append(out, delta...), nil
}
