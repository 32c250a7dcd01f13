package filters

import (
	"fmt"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
)

// Predictor values from /DecodeParms.
const (
	PredictorNo      = 1
	PredictorTIFF    = 2
	PredictorNone    = 10
	PredictorSub     = 11
	PredictorUp      = 12
	PredictorAverage = 13
	PredictorPaeth   = 14
	PredictorOptimum = 15
)

// Row filter tags that prefix every PNG-predicted row.
const (
	pngNone    = 0
	pngSub     = 1
	pngUp      = 2
	pngAverage = 3
	pngPaeth   = 4
)

// applyPredictor reverses the TIFF or PNG prediction step described by
// params. Data without a predictor passes through.
func applyPredictor(data []byte, params *raw.DictObj) ([]byte, error) {
	predictor := intParam(params, "Predictor", PredictorNo)
	if predictor <= PredictorNo {
		return data, nil
	}
	colors := intParam(params, "Colors", 1)
	bpc := intParam(params, "BitsPerComponent", 8)
	columns := intParam(params, "Columns", 1)
	if colors < 1 || columns < 1 || (bpc != 1 && bpc != 2 && bpc != 4 && bpc != 8 && bpc != 16) {
		return nil, fmt.Errorf("invalid predictor parameters colors=%d bpc=%d columns=%d", colors, bpc, columns)
	}
	rowLen := (colors*bpc*columns + 7) / 8
	bpp := (colors*bpc + 7) / 8

	switch {
	case predictor == PredictorTIFF:
		if bpc != 8 {
			return nil, fmt.Errorf("TIFF predictor with %d bits per component is not supported", bpc)
		}
		if len(data)%rowLen != 0 {
			return nil, fmt.Errorf("TIFF predicted data is not a whole number of rows")
		}
		out := append([]byte(nil), data...)
		for r := 0; r < len(out); r += rowLen {
			row := out[r : r+rowLen]
			for i := colors; i < len(row); i++ {
				row[i] += row[i-colors]
			}
		}
		return out, nil
	case predictor >= PredictorNone && predictor <= PredictorOptimum:
		return undoPNG(data, rowLen, bpp)
	default:
		return nil, fmt.Errorf("unknown predictor %d", predictor)
	}
}

func undoPNG(data []byte, rowLen, bpp int) ([]byte, error) {
	stride := rowLen + 1
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("PNG predicted data is not a whole number of rows")
	}
	out := make([]byte, 0, len(data)/stride*rowLen)
	prev := make([]byte, rowLen)
	for r := 0; r < len(data); r += stride {
		tag := data[r]
		cur := append([]byte(nil), data[r+1:r+stride]...)
		switch tag {
		case pngNone:
		case pngSub:
			for i := bpp; i < rowLen; i++ {
				cur[i] += cur[i-bpp]
			}
		case pngUp:
			for i := range cur {
				cur[i] += prev[i]
			}
		case pngAverage:
			for i := range cur {
				var left int
				if i >= bpp {
					left = int(cur[i-bpp])
				}
				cur[i] += byte((left + int(prev[i])) / 2)
			}
		case pngPaeth:
			for i := range cur {
				var a, c int
				if i >= bpp {
					a, c = int(cur[i-bpp]), int(prev[i-bpp])
				}
				cur[i] += paeth(a, int(prev[i]), c)
			}
		default:
			return nil, fmt.Errorf("invalid PNG row filter %d", tag)
		}
		out = append(out, cur...)
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c int) byte {
	p := a + b - c
	pa, pb, pc := abs(p-a), abs(p-b), abs(p-c)
	switch {
	case pa <= pb && pa <= pc:
		return byte(a)
	case pb <= pc:
		return byte(b)
	default:
		return byte(c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
