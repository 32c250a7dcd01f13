package xref

import (
	"bytes"

	"github.com/tdewolff/parse/v2/strconv"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/scanner"
)

// DefaultMaxDepth bounds how many /Prev links Resolve follows.
const DefaultMaxDepth = 64

// Section is one classic xref section together with its trailer.
type Section struct {
	Offset  int64
	Table   *Table
	Trailer *raw.DictObj
}

// Prev returns the /Prev offset of the section's trailer.
func (s *Section) Prev() (int64, bool) {
	return s.Trailer.GetInt("Prev")
}

// ParseSection parses the xref section and trailer that start at offset.
func ParseSection(data []byte, offset int64) (*Section, error) {
	if offset < 0 || offset >= int64(len(data)) {
		return nil, scanner.Errorf(offset, "xref offset out of range (file size %d)", len(data))
	}
	lr := &lineReader{data: data, pos: offset}
	lr.skipSpace()
	if !bytes.HasPrefix(data[lr.pos:], []byte("xref")) {
		if looksLikeObject(data[lr.pos:]) {
			return nil, scanner.Errorf(lr.pos, "cross-reference streams are not supported")
		}
		return nil, scanner.Errorf(lr.pos, "xref keyword not found")
	}
	lr.pos += int64(len("xref"))
	lr.line() // remainder of the keyword line

	table := NewTable()
	for {
		lr.skipSpace()
		if lr.pos >= int64(len(data)) {
			return nil, scanner.Errorf(lr.pos, "trailer not found")
		}
		if bytes.HasPrefix(data[lr.pos:], []byte("trailer")) {
			lr.pos += int64(len("trailer"))
			break
		}
		hdrPos := lr.pos
		fields := bytes.Fields(lr.line())
		if len(fields) != 2 {
			return nil, scanner.Errorf(hdrPos, "invalid xref subsection header")
		}
		first, ok1 := parseUint(fields[0])
		count, ok2 := parseUint(fields[1])
		if !ok1 || !ok2 {
			return nil, scanner.Errorf(hdrPos, "malformed number in xref subsection header")
		}
		for i := int64(0); i < count; i++ {
			entryPos := lr.pos
			if entryPos >= int64(len(data)) {
				return nil, scanner.Errorf(entryPos, "unexpected end of xref section")
			}
			e, err := parseEntry(lr.line(), entryPos)
			if err != nil {
				return nil, err
			}
			num := int(first + i)
			if num == 0 {
				continue
			}
			if err := table.AddEntry(num, e); err != nil {
				return nil, &scanner.ParseError{Offset: entryPos, Msg: "invalid xref entry", Err: err}
			}
		}
	}

	s := scanner.New(data, scanner.Config{})
	if err := s.Seek(lr.pos); err != nil {
		return nil, err
	}
	val, err := scanner.ReadValue(s)
	if err != nil {
		return nil, err
	}
	trailer, ok := val.(*raw.DictObj)
	if !ok {
		return nil, scanner.Errorf(lr.pos, "trailer is not a dictionary")
	}
	return &Section{Offset: offset, Table: table, Trailer: trailer}, nil
}

// Resolve parses the section at start and every older section reachable
// through /Prev, newest first. Entries in newer sections shadow older ones.
// The returned trailer is the newest one.
func Resolve(data []byte, start int64, maxDepth int) (*Table, *raw.DictObj, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	visited := make(map[int64]bool)
	var table *Table
	var trailer *raw.DictObj
	offset := start
	for depth := 0; ; depth++ {
		if visited[offset] {
			return nil, nil, scanner.Errorf(offset, "xref /Prev chain loops")
		}
		if depth >= maxDepth {
			return nil, nil, scanner.Errorf(offset, "xref /Prev chain deeper than %d", maxDepth)
		}
		visited[offset] = true
		sec, err := ParseSection(data, offset)
		if err != nil {
			return nil, nil, err
		}
		if table == nil {
			table, trailer = sec.Table, sec.Trailer
		} else {
			table.Merge(sec.Table)
		}
		prev, ok := sec.Prev()
		if !ok {
			return table, trailer, nil
		}
		offset = prev
	}
}

// FindStartXRef returns the offset recorded after the last startxref
// keyword, searching the final 1024 bytes before the whole buffer.
func FindStartXRef(data []byte) (int64, error) {
	idx := -1
	if tail := len(data) - 1024; tail > 0 {
		if i := bytes.LastIndex(data[tail:], []byte("startxref")); i >= 0 {
			idx = tail + i
		}
	}
	if idx < 0 {
		idx = bytes.LastIndex(data, []byte("startxref"))
	}
	if idx < 0 {
		return 0, scanner.Errorf(int64(len(data)), "startxref not found")
	}
	lr := &lineReader{data: data, pos: int64(idx + len("startxref"))}
	lr.skipSpace()
	numPos := lr.pos
	fields := bytes.Fields(lr.line())
	if len(fields) == 0 {
		return 0, scanner.Errorf(numPos, "startxref offset missing")
	}
	off, ok := parseUint(fields[0])
	if !ok {
		return 0, scanner.Errorf(numPos, "malformed startxref offset")
	}
	return off, nil
}

func parseEntry(line []byte, pos int64) (Entry, error) {
	fields := bytes.Fields(line)
	if len(fields) != 3 || len(fields[2]) != 1 {
		return Entry{}, scanner.Errorf(pos, "invalid xref entry %q", line)
	}
	off, ok1 := parseUint(fields[0])
	gen, ok2 := parseUint(fields[1])
	if !ok1 || !ok2 {
		return Entry{}, scanner.Errorf(pos, "malformed number in xref entry")
	}
	switch fields[2][0] {
	case 'n':
		return Entry{Offset: off, Gen: int(gen)}, nil
	case 'f':
		return Entry{Gen: int(gen), Free: true}, nil
	}
	return Entry{}, scanner.Errorf(pos, "invalid xref entry type %q", fields[2])
}

func parseUint(b []byte) (int64, bool) {
	v, n := strconv.ParseUint(b)
	if n == 0 || n != len(b) || v > 1<<53 {
		return 0, false
	}
	return int64(v), true
}

// looksLikeObject reports whether b starts with "N G obj".
func looksLikeObject(b []byte) bool {
	fields := bytes.Fields(b[:min(len(b), 32)])
	return len(fields) >= 3 && bytes.HasPrefix(fields[2], []byte("obj"))
}

type lineReader struct {
	data []byte
	pos  int64
}

// line returns the bytes up to the next EOL and advances past it.
func (r *lineReader) line() []byte {
	start := r.pos
	for r.pos < int64(len(r.data)) && r.data[r.pos] != '\r' && r.data[r.pos] != '\n' {
		r.pos++
	}
	out := r.data[start:r.pos]
	if r.pos < int64(len(r.data)) && r.data[r.pos] == '\r' {
		r.pos++
	}
	if r.pos < int64(len(r.data)) && r.data[r.pos] == '\n' {
		r.pos++
	}
	return out
}

func (r *lineReader) skipSpace() {
	for r.pos < int64(len(r.data)) && raw.IsWhitespace(r.data[r.pos]) {
		r.pos++
	}
}
