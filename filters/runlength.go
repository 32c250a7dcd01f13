package filters

import (
	"context"
	"errors"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
)

const runLengthEOD = 128

type runLengthCodec struct{}

func NewRunLength() Codec { return runLengthCodec{} }

func (runLengthCodec) Name() string { return RunLengthDecode }

// Encode emits repeat runs (257-count, byte) for two to 128 equal bytes and
// literal runs (len-1, bytes) of up to 128 bytes otherwise, then EOD.
func (runLengthCodec) Encode(_ context.Context, in []byte) ([]byte, error) {
	out := make([]byte, 0, len(in)+len(in)/128+2)
	for i := 0; i < len(in); {
		run := runAt(in, i)
		if run >= 2 {
			out = append(out, byte(257-run), in[i])
			i += run
			continue
		}
		start := i
		for i < len(in) && i-start < 128 && runAt(in, i) < 2 {
			i++
		}
		out = append(out, byte(i-start-1))
		out = append(out, in[start:i]...)
	}
	return append(out, runLengthEOD), nil
}

// runAt returns how many bytes starting at i equal in[i], capped at 128.
func runAt(in []byte, i int) int {
	n := 1
	for i+n < len(in) && n < 128 && in[i+n] == in[i] {
		n++
	}
	return n
}

func (runLengthCodec) Decode(ctx context.Context, in []byte, _ *raw.DictObj) ([]byte, error) {
	limit := limitFrom(ctx)
	var out []byte
	for i := 0; i < len(in); {
		n := int(in[i])
		i++
		switch {
		case n == runLengthEOD:
			return out, nil
		case n < runLengthEOD:
			if i+n+1 > len(in) {
				return nil, errors.New("literal run past end of data")
			}
			out = append(out, in[i:i+n+1]...)
			i += n + 1
		default:
			if i >= len(in) {
				return nil, errors.New("repeat run missing its byte")
			}
			for k := 0; k < 257-n; k++ {
				out = append(out, in[i])
			}
			i++
		}
		if limit > 0 && int64(len(out)) > limit {
			return nil, ErrLimitExceeded
		}
	}
	return out, nil
}
