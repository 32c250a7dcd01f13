package security

import (
	"time"

	"github.com/VibePDF/VibePDF-sub001/filters"
	"github.com/VibePDF/VibePDF-sub001/scanner"
)

// Limits defines resource boundaries for parsing untrusted PDFs.
// These limits guard against decompression bombs and runaway nesting.
type Limits struct {
	// Maximum decompressed stream size. Default: 100 MB.
	MaxDecompressedSize int64

	// Maximum chain of indirect references followed by Deref. Default: 100.
	MaxIndirectDepth int

	// Maximum number of xref sections followed through /Prev. Default: 50.
	MaxXRefDepth int

	// Maximum array or dictionary nesting. Default: 64.
	MaxNestingDepth int

	// Maximum string length (bytes). Default: 10 MB.
	MaxStringLength int64

	// Maximum raw stream length (bytes). Default: 50 MB.
	MaxStreamLength int64

	// Maximum total parse time; zero disables the deadline. Default: 5m.
	MaxParseTime time.Duration

	// Maximum object number plus one, bounding both the trailer /Size and
	// the numbers an xref section may name. Default: 8388607.
	MaxObjects int
}

// DefaultLimits returns a Limits struct with safe default values.
func DefaultLimits() Limits {
	return Limits{
		MaxDecompressedSize: 100 * 1024 * 1024, // 100 MB
		MaxIndirectDepth:    100,
		MaxXRefDepth:        50,
		MaxNestingDepth:     64,
		MaxStringLength:     10 * 1024 * 1024, // 10 MB
		MaxStreamLength:     50 * 1024 * 1024, // 50 MB
		MaxParseTime:        5 * time.Minute,
		MaxObjects:          8388607,
	}
}

// ScannerConfig maps the limits onto tokenizer settings.
func (l Limits) ScannerConfig() scanner.Config {
	return scanner.Config{
		MaxStringLength: l.MaxStringLength,
		MaxArrayDepth:   l.MaxNestingDepth,
		MaxDictDepth:    l.MaxNestingDepth,
		MaxStreamLength: l.MaxStreamLength,
	}
}

// FilterLimits maps the limits onto filter settings.
func (l Limits) FilterLimits() filters.Limits {
	return filters.Limits{MaxDecompressedSize: l.MaxDecompressedSize}
}
