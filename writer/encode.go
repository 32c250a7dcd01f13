package writer

import (
	"context"

	"github.com/VibePDF/VibePDF-sub001/filters"
	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/security"
)

// prepare returns the value to serialize for ref: streams filtered and
// strings and stream data encrypted. The caller's value is not modified.
func (w *Writer) prepare(ctx context.Context, ref raw.ObjectRef, obj raw.Object, sec security.Handler) (raw.Object, error) {
	if sec != nil && !sec.IsEncrypted() {
		sec = nil
	}
	return w.transform(ctx, ref, obj, sec)
}

func (w *Writer) transform(ctx context.Context, ref raw.ObjectRef, obj raw.Object, sec security.Handler) (raw.Object, error) {
	switch v := obj.(type) {
	case raw.StringObj:
		if sec == nil {
			return v, nil
		}
		enc, err := sec.Encrypt(ref.Num, ref.Gen, v.Bytes, security.DataClassString)
		if err != nil {
			return nil, err
		}
		// ciphertext is binary, hex keeps the file readable
		return raw.HexStr(enc), nil
	case *raw.ArrayObj:
		if sec == nil {
			return v, nil
		}
		out := raw.NewArray()
		for _, it := range v.Items {
			t, err := w.transform(ctx, ref, it, sec)
			if err != nil {
				return nil, err
			}
			out.Append(t)
		}
		return out, nil
	case *raw.DictObj:
		if sec == nil {
			return v, nil
		}
		return w.transformDict(ctx, ref, v, sec)
	case *raw.StreamObj:
		return w.transformStream(ctx, ref, v, sec)
	}
	return obj, nil
}

func (w *Writer) transformDict(ctx context.Context, ref raw.ObjectRef, d *raw.DictObj, sec security.Handler) (*raw.DictObj, error) {
	if d == nil {
		return raw.Dict(), nil
	}
	if sec == nil {
		return d.Clone(), nil
	}
	out := raw.Dict()
	for _, k := range d.Keys() {
		v, _ := d.Get(k)
		t, err := w.transform(ctx, ref, v, sec)
		if err != nil {
			return nil, err
		}
		out.Set(k, t)
	}
	return out, nil
}

func (w *Writer) transformStream(ctx context.Context, ref raw.ObjectRef, st *raw.StreamObj, sec security.Handler) (*raw.StreamObj, error) {
	dict, err := w.transformDict(ctx, ref, st.Dict, sec)
	if err != nil {
		return nil, err
	}
	data := st.Data
	if _, hasFilter := dict.Get("Filter"); !hasFilter && len(data) > 0 {
		name := w.cfg.Filter
		if name == FilterAuto {
			name = filters.AnalyzeCompression(data).Recommended
		}
		if name != filters.None {
			if data, err = w.registry.Encode(ctx, data, name); err != nil {
				return nil, err
			}
			dict.Set("Filter", raw.NameLiteral(name))
		}
	}
	typ, _ := dict.GetName("Type")
	if sec != nil && !(typ == "Metadata" && !sec.EncryptMetadata()) {
		if data, err = sec.Encrypt(ref.Num, ref.Gen, data, security.DataClassStream); err != nil {
			return nil, err
		}
	}
	dict.Set("Length", raw.NumberInt(int64(len(data))))
	return &raw.StreamObj{Dict: dict, Data: data}, nil
}
