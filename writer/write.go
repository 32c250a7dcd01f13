package writer

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/observability"
	"github.com/VibePDF/VibePDF-sub001/xref"
)

// Write produces a complete file: header, every object, one xref section,
// trailer and footer.
func (w *Writer) Write(ctx context.Context, in Input) (out []byte, err error) {
	ctx, span := w.tracer.StartSpan(ctx, observability.SpanWrite)
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
	}()

	var buf bytes.Buffer
	buf.WriteString("%PDF-" + w.cfg.Version + "\n")
	buf.WriteString(binaryMarker)
	if err := w.writeBody(ctx, &buf, 0, in, -1); err != nil {
		return nil, err
	}
	span.SetTag("bytes", buf.Len())
	return buf.Bytes(), nil
}

// writeBody appends objects, xref, trailer and footer to buf. base is the
// file offset of buf's first byte; prev is the /Prev offset or -1.
func (w *Writer) writeBody(ctx context.Context, buf *bytes.Buffer, base int64, in Input, prev int64) error {
	if in.Root.Num < 1 {
		return ErrNoRoot
	}
	objs, err := w.ordered(in)
	if err != nil {
		return err
	}
	table := xref.NewTable()
	for _, obj := range objs {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, ic := range w.interceptors {
			if err := ic.BeforeWrite(ctx, obj.Ref, obj.Value); err != nil {
				return fmt.Errorf("writer: object %v: %w", obj.Ref, err)
			}
		}
		val := obj.Value
		if in.Encrypt == nil || obj.Ref != in.Encrypt.Ref {
			if val, err = w.prepare(ctx, obj.Ref, obj.Value, in.Security); err != nil {
				return fmt.Errorf("writer: object %v: %w", obj.Ref, err)
			}
		}
		offset := base + int64(buf.Len())
		if err := table.AddEntry(obj.Ref.Num, xref.Entry{Offset: offset, Gen: obj.Ref.Gen}); err != nil {
			return err
		}
		n := buf.Len()
		buf.Write(w.SerializeObject(obj.Ref, val))
		for _, ic := range w.interceptors {
			if err := ic.AfterWrite(ctx, obj.Ref, int64(buf.Len()-n)); err != nil {
				return fmt.Errorf("writer: object %v: %w", obj.Ref, err)
			}
		}
	}
	for _, ref := range in.Freed {
		if _, ok := table.Entry(ref.Num); ok {
			continue
		}
		gen := ref.Gen + 1
		if gen > raw.MaxGeneration {
			gen = raw.MaxGeneration
		}
		if err := table.AddEntry(ref.Num, xref.Entry{Gen: gen, Free: true}); err != nil {
			return err
		}
	}

	xrefOffset := base + int64(buf.Len())
	buf.Write(table.Serialize())
	buf.WriteString("trailer\n")
	buf.Write(raw.Serialize(w.trailer(in, table, prev)))
	buf.WriteString("\nstartxref\n")
	buf.WriteString(strconv.FormatInt(xrefOffset, 10))
	buf.WriteString("\n%%EOF\n")

	w.log.Debug("objects written",
		observability.Int("objects", len(objs)),
		observability.Int("freed", len(in.Freed)),
		observability.Int64("xref", xrefOffset),
		observability.Bool("encrypted", in.Encrypt != nil))
	return nil
}

func (w *Writer) ordered(in Input) ([]raw.IndirectObject, error) {
	objs := make([]raw.IndirectObject, 0, len(in.Objects)+1)
	objs = append(objs, in.Objects...)
	if in.Encrypt != nil {
		objs = append(objs, *in.Encrypt)
	}
	sort.SliceStable(objs, func(i, j int) bool { return objs[i].Ref.Num < objs[j].Ref.Num })
	for i, o := range objs {
		if o.Ref.Num < 1 || o.Ref.Gen < 0 || o.Ref.Gen > raw.MaxGeneration {
			return nil, fmt.Errorf("writer: %w: %v", raw.ErrInvalidIdentity, o.Ref)
		}
		if i > 0 && objs[i-1].Ref.Num == o.Ref.Num {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateObject, o.Ref.Num)
		}
	}
	return objs, nil
}

func (w *Writer) trailer(in Input, table *xref.Table, prev int64) *raw.DictObj {
	size := table.Size()
	if in.Size > size {
		size = in.Size
	}
	d := raw.Dict()
	d.Set("Size", raw.NumberInt(int64(size)))
	if prev >= 0 {
		d.Set("Prev", raw.NumberInt(prev))
	}
	d.Set("Root", raw.RefTo(in.Root))
	if in.Info.Num > 0 {
		d.Set("Info", raw.RefTo(in.Info))
	}
	if in.Encrypt != nil {
		d.Set("Encrypt", raw.RefTo(in.Encrypt.Ref))
	}
	if len(in.ID) > 0 {
		ids := raw.NewArray()
		for _, id := range in.ID {
			ids.Append(raw.HexStr(id))
		}
		d.Set("ID", ids)
	}
	return d
}

// SerializeObject renders "N G obj\n<value>\nendobj\n".
func (w *Writer) SerializeObject(ref raw.ObjectRef, obj raw.Object) []byte {
	out := make([]byte, 0, 64)
	out = strconv.AppendInt(out, int64(ref.Num), 10)
	out = append(out, ' ')
	out = strconv.AppendInt(out, int64(ref.Gen), 10)
	out = append(out, " obj\n"...)
	out = raw.AppendObject(out, obj)
	return append(out, "\nendobj\n"...)
}
