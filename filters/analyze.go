package filters

import "math"

// Analysis summarises how compressible a byte sequence looks.
type Analysis struct {
	Entropy         float64 // Shannon entropy in bits per byte
	RepetitionRatio float64 // fraction of bytes equal to their predecessor
	Recommended     string
}

// AnalyzeCompression recommends a filter for data. Long runs (repetition
// above 0.7) favour RunLengthDecode; otherwise entropy below 6 bits per byte
// picks FlateDecode and higher entropy picks LZWDecode.
func AnalyzeCompression(data []byte) Analysis {
	if len(data) == 0 {
		return Analysis{Recommended: FlateDecode}
	}
	var freq [256]int
	repeats := 0
	for i, b := range data {
		freq[b]++
		if i > 0 && b == data[i-1] {
			repeats++
		}
	}
	n := float64(len(data))
	entropy := 0.0
	for _, c := range freq {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	a := Analysis{Entropy: entropy, RepetitionRatio: float64(repeats) / n}
	switch {
	case a.RepetitionRatio > 0.7:
		a.Recommended = RunLengthDecode
	case a.Entropy < 6:
		a.Recommended = FlateDecode
	default:
		a.Recommended = LZWDecode
	}
	return a
}
