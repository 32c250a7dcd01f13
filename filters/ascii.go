package filters

import (
	"bytes"
	"context"
	"encoding/ascii85"
	"fmt"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
)

type ascii85Codec struct{}

func NewASCII85() Codec { return ascii85Codec{} }

func (ascii85Codec) Name() string { return ASCII85Decode }

func (ascii85Codec) Encode(_ context.Context, in []byte) ([]byte, error) {
	out := make([]byte, 2, ascii85.MaxEncodedLen(len(in))+4)
	copy(out, "<~")
	enc := make([]byte, ascii85.MaxEncodedLen(len(in)))
	n := ascii85.Encode(enc, in)
	out = append(out, enc[:n]...)
	return append(out, "~>"...), nil
}

func (ascii85Codec) Decode(_ context.Context, in []byte, _ *raw.DictObj) ([]byte, error) {
	trimmed := bytes.TrimSpace(in)
	trimmed = bytes.TrimPrefix(trimmed, []byte("<~"))
	if i := bytes.Index(trimmed, []byte("~>")); i >= 0 {
		trimmed = trimmed[:i]
	}
	out := make([]byte, 4*len(trimmed))
	n, _, err := ascii85.Decode(out, trimmed, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

type asciiHexCodec struct{}

func NewASCIIHex() Codec { return asciiHexCodec{} }

func (asciiHexCodec) Name() string { return ASCIIHexDecode }

const upperHex = "0123456789ABCDEF"

func (asciiHexCodec) Encode(_ context.Context, in []byte) ([]byte, error) {
	out := make([]byte, 0, 2*len(in)+2)
	out = append(out, '<')
	for _, b := range in {
		out = append(out, upperHex[b>>4], upperHex[b&0x0F])
	}
	return append(out, '>'), nil
}

// Decode accepts upper or lower case digits, ignores whitespace and treats a
// missing final digit as 0.
func (asciiHexCodec) Decode(_ context.Context, in []byte, _ *raw.DictObj) ([]byte, error) {
	trimmed := bytes.TrimLeft(in, "\x00\t\n\f\r ")
	trimmed = bytes.TrimPrefix(trimmed, []byte("<"))
	out := make([]byte, 0, len(trimmed)/2)
	var hi byte
	half := false
	for i, c := range trimmed {
		if c == '>' {
			break
		}
		if raw.IsWhitespace(c) {
			continue
		}
		v, ok := hexValue(c)
		if !ok {
			return nil, fmt.Errorf("invalid hex digit %q at %d", c, i)
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return out, nil
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
