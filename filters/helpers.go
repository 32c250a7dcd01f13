package filters

import (
	"bytes"
	"context"
	"io"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
)

// ExtractFilters reads Filter and DecodeParms entries from a stream dictionary.
func ExtractFilters(dict *raw.DictObj) ([]string, []*raw.DictObj) {
	var names []string
	var params []*raw.DictObj

	filterObj, ok := dict.Get("Filter")
	if !ok {
		return names, params
	}

	switch f := filterObj.(type) {
	case raw.NameObj:
		names = append(names, f.Value())
	case *raw.ArrayObj:
		for _, item := range f.Items {
			if n, ok := item.(raw.NameObj); ok {
				names = append(names, n.Value())
			}
		}
	}

	if len(names) > 0 {
		if pObj, ok := dict.Get("DecodeParms"); ok {
			switch p := pObj.(type) {
			case *raw.DictObj:
				params = append(params, p)
			case *raw.ArrayObj:
				for _, item := range p.Items {
					d, _ := item.(*raw.DictObj)
					params = append(params, d)
				}
			}
		}
	}

	return names, params
}

// readAll drains r, failing once more than the context's size limit has
// been produced.
func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	var out bytes.Buffer
	limit := limitFrom(ctx)
	if limit <= 0 {
		_, err := io.Copy(&out, r)
		return out.Bytes(), err
	}
	n, err := io.Copy(&out, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, ErrLimitExceeded
	}
	return out.Bytes(), nil
}

func intParam(params *raw.DictObj, key string, def int) int {
	if params == nil {
		return def
	}
	if v, ok := params.GetInt(key); ok {
		return int(v)
	}
	return def
}
