package parser

import (
	"context"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/scanner"
)

// File is a document parsed from a read-only memory mapping. The mapping
// backs every object the document loads, so Close must come last.
type File struct {
	*raw.Document
	f *os.File
	m mmap.MMap
}

// OpenFile maps path read-only and parses it.
func OpenFile(ctx context.Context, path string, cfg Config) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, scanner.Errorf(0, "empty file"))
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("map %s: %w", path, err)
	}
	doc, err := Parse(ctx, m, cfg)
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &File{Document: doc, f: f, m: m}, nil
}

// Close unmaps the file. Objects loaded from the document must not be used
// afterwards.
func (f *File) Close() error {
	err := f.m.Unmap()
	if cerr := f.f.Close(); err == nil {
		err = cerr
	}
	return err
}
