package filters

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"context"
	"errors"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
)

// Compression levels accepted by NewFlate.
const (
	DefaultCompression = zlib.DefaultCompression
	BestSpeed          = zlib.BestSpeed
	BestCompression    = zlib.BestCompression
)

type flateCodec struct{ level int }

// NewFlate returns a zlib (RFC 1950) codec compressing at level.
func NewFlate(level int) Codec {
	if level < zlib.HuffmanOnly || level > zlib.BestCompression {
		level = DefaultCompression
	}
	return flateCodec{level: level}
}

func (flateCodec) Name() string { return FlateDecode }

func (f flateCodec) Encode(_ context.Context, in []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, f.level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(in); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode inflates zlib data, falling back to a raw deflate stream when the
// zlib header is absent, then undoes any predictor.
func (flateCodec) Decode(ctx context.Context, in []byte, params *raw.DictObj) ([]byte, error) {
	if len(in) == 0 {
		return []byte{}, nil
	}
	var out []byte
	zr, err := zlib.NewReader(bytes.NewReader(in))
	switch {
	case err == nil:
		defer zr.Close()
		out, err = readAll(ctx, zr)
	case errors.Is(err, zlib.ErrHeader):
		fr := flate.NewReader(bytes.NewReader(in))
		defer fr.Close()
		out, err = readAll(ctx, fr)
	}
	if err != nil {
		return nil, err
	}
	return applyPredictor(out, params)
}
