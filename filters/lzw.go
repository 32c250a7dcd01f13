package filters

import (
	"bytes"
	"context"

	"github.com/hhrutter/lzw"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
)

type lzwCodec struct{}

// NewLZW returns the PDF LZW codec: variable 9 to 12 bit codes with clear
// code 256 and end-of-data 257. Encoding always uses EarlyChange 1.
func NewLZW() Codec { return lzwCodec{} }

func (lzwCodec) Name() string { return LZWDecode }

func (lzwCodec) Encode(_ context.Context, in []byte) ([]byte, error) {
	var buf bytes.Buffer
	wc := lzw.NewWriter(&buf, true)
	if _, err := wc.Write(in); err != nil {
		wc.Close()
		return nil, err
	}
	if err := wc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (lzwCodec) Decode(ctx context.Context, in []byte, params *raw.DictObj) ([]byte, error) {
	earlyChange := intParam(params, "EarlyChange", 1)
	rc := lzw.NewReader(bytes.NewReader(in), earlyChange == 1)
	defer rc.Close()
	out, err := readAll(ctx, rc)
	if err != nil {
		return nil, err
	}
	return applyPredictor(out, params)
}
