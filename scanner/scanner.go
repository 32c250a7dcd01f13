package scanner

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tdewolff/parse/v2/strconv"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
)

type TokenType int

const (
	TokenDict    TokenType = iota // '<<'
	TokenArray                    // '['
	TokenName                     // '/Name'
	TokenString                   // literal or hex string
	TokenNumber                   // numeric value
	TokenBoolean                  // true/false
	TokenNull                     // null
	TokenRef                      // indirect ref '5 0 R'
	TokenStream                   // 'stream' keyword plus its data
	TokenKeyword                  // other keywords (obj, endobj, >>, ], etc.)
)

type Token struct {
	Type  TokenType
	Str   string // name or keyword text
	Bytes []byte // string contents or stream data
	Hex   bool
	Int   int64
	Float float64
	IsInt bool
	Bool  bool
	Ref   raw.ObjectRef
	Pos   int64
}

// ParseError reports malformed input together with the byte offset where it
// was detected.
type ParseError struct {
	Offset int64
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error at offset %d: %s: %v", e.Offset, e.Msg, e.Err)
	}
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Errorf builds a ParseError at off.
func Errorf(off int64, format string, args ...any) *ParseError {
	return &ParseError{Offset: off, Msg: fmt.Sprintf(format, args...)}
}

type Scanner interface {
	Next() (Token, error)
	Position() int64
	Seek(offset int64) error
	SetNextStreamLength(n int64)
	// StreamFollows reports whether the next token is the stream keyword
	// without consuming anything.
	StreamFollows() bool
	Limits() Config
}

type Config struct {
	MaxStringLength int64
	MaxArrayDepth   int
	MaxDictDepth    int
	MaxStreamLength int64
}

// pdfScanner tokenizes a byte buffer with a single cursor.
type pdfScanner struct {
	data          []byte
	pos           int64
	cfg           Config
	nextStreamLen int64
}

// New returns a scanner positioned at the start of data. The buffer is not
// copied; stream tokens alias it.
func New(data []byte, cfg Config) Scanner {
	return &pdfScanner{data: data, cfg: cfg, nextStreamLen: -1}
}

func (s *pdfScanner) Position() int64 { return s.pos }
func (s *pdfScanner) Limits() Config  { return s.cfg }

func (s *pdfScanner) Seek(offset int64) error {
	if offset < 0 || offset > int64(len(s.data)) {
		return Errorf(offset, "seek out of range (size %d)", len(s.data))
	}
	s.pos = offset
	return nil
}

func (s *pdfScanner) SetNextStreamLength(n int64) { s.nextStreamLen = n }

func (s *pdfScanner) StreamFollows() bool {
	saved := s.pos
	defer func() { s.pos = saved }()
	if s.skipWSAndComments() != nil {
		return false
	}
	return s.hasKeyword("stream")
}

func (s *pdfScanner) Next() (Token, error) {
	if err := s.skipWSAndComments(); err != nil {
		return Token{}, err
	}
	start := s.pos
	c := s.data[s.pos]
	switch c {
	case '<':
		if s.peekAhead(1) == '<' {
			s.pos += 2
			return Token{Type: TokenDict, Str: "<<", Pos: start}, nil
		}
		return s.scanHexString()
	case '>':
		if s.peekAhead(1) == '>' {
			s.pos += 2
			return Token{Type: TokenKeyword, Str: ">>", Pos: start}, nil
		}
		return Token{}, Errorf(start, "unexpected delimiter '>'")
	case '[':
		s.pos++
		return Token{Type: TokenArray, Str: "[", Pos: start}, nil
	case ']', '{', '}':
		s.pos++
		return Token{Type: TokenKeyword, Str: string(c), Pos: start}, nil
	case ')':
		return Token{}, Errorf(start, "unexpected delimiter ')'")
	case '(':
		return s.scanLiteralString()
	case '/':
		return s.scanName()
	}
	if isDigitStart(c) {
		return s.scanNumberOrRef()
	}
	return s.scanKeyword()
}

func (s *pdfScanner) eof() bool { return s.pos >= int64(len(s.data)) }

func (s *pdfScanner) skipWSAndComments() error {
	for !s.eof() {
		c := s.data[s.pos]
		if raw.IsWhitespace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for !s.eof() && !isEOL(s.data[s.pos]) {
				s.pos++
			}
			continue
		}
		return nil
	}
	return io.EOF
}

func isDigitStart(c byte) bool { return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') }
func isEOL(c byte) bool        { return c == '\r' || c == '\n' }
func isDelimiter(c byte) bool  { return raw.IsDelimiter(c) || raw.IsWhitespace(c) }

func (s *pdfScanner) scanName() (Token, error) {
	start := s.pos
	s.pos++ // skip '/'
	var out []byte
	for !s.eof() {
		c := s.data[s.pos]
		if isDelimiter(c) {
			break
		}
		if c == '#' {
			if s.pos+2 >= int64(len(s.data)) {
				return Token{}, Errorf(s.pos, "truncated #xx escape in name")
			}
			hi, ok1 := fromHex(s.data[s.pos+1])
			lo, ok2 := fromHex(s.data[s.pos+2])
			if !ok1 || !ok2 {
				return Token{}, Errorf(s.pos, "invalid #xx escape in name")
			}
			out = append(out, hi<<4|lo)
			s.pos += 3
			continue
		}
		out = append(out, c)
		s.pos++
	}
	return Token{Type: TokenName, Str: string(out), Pos: start}, nil
}

func (s *pdfScanner) scanLiteralString() (Token, error) {
	start := s.pos
	s.pos++ // skip '('
	var buf bytes.Buffer
	depth := 1
	for depth > 0 {
		if s.eof() {
			return Token{}, Errorf(start, "unterminated literal string")
		}
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '\\':
			if s.eof() {
				return Token{}, Errorf(start, "unterminated literal string")
			}
			esc := s.data[s.pos]
			s.pos++
			switch {
			case esc == '\r':
				// line continuation
				if !s.eof() && s.data[s.pos] == '\n' {
					s.pos++
				}
			case esc == '\n':
			case esc >= '0' && esc <= '7':
				val := int(esc - '0')
				for k := 0; k < 2 && !s.eof(); k++ {
					d := s.data[s.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val<<3 + int(d-'0')
					s.pos++
				}
				buf.WriteByte(byte(val))
			default:
				buf.WriteByte(translateEscape(esc))
			}
			continue
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				continue
			}
		}
		buf.WriteByte(c)
		if s.cfg.MaxStringLength > 0 && int64(buf.Len()) > s.cfg.MaxStringLength {
			return Token{}, Errorf(start, "literal string exceeds %d bytes", s.cfg.MaxStringLength)
		}
	}
	return Token{Type: TokenString, Bytes: buf.Bytes(), Pos: start}, nil
}

func (s *pdfScanner) scanHexString() (Token, error) {
	start := s.pos
	s.pos++ // skip '<'
	var out []byte
	var hi byte
	half := false
	for {
		if s.eof() {
			return Token{}, Errorf(start, "unterminated hex string")
		}
		c := s.data[s.pos]
		s.pos++
		if c == '>' {
			break
		}
		if raw.IsWhitespace(c) {
			continue
		}
		v, ok := fromHex(c)
		if !ok {
			return Token{}, Errorf(s.pos-1, "invalid character %q in hex string", c)
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
	if s.cfg.MaxStringLength > 0 && int64(len(out)) > s.cfg.MaxStringLength {
		return Token{}, Errorf(start, "hex string exceeds %d bytes", s.cfg.MaxStringLength)
	}
	return Token{Type: TokenString, Bytes: out, Hex: true, Pos: start}, nil
}

func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}

func translateEscape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	default:
		// \( \) \\ and unknown escapes yield the character itself
		return c
	}
}

// scanStream reads exactly the hinted number of bytes after the stream
// keyword and requires endstream to follow.
func (s *pdfScanner) scanStream(start int64) (Token, error) {
	l := s.nextStreamLen
	s.nextStreamLen = -1
	if l < 0 {
		return Token{}, Errorf(start, "stream without a known Length")
	}
	if s.cfg.MaxStreamLength > 0 && l > s.cfg.MaxStreamLength {
		return Token{}, Errorf(start, "stream Length %d exceeds limit %d", l, s.cfg.MaxStreamLength)
	}
	// the keyword must be followed by CRLF or LF
	switch {
	case !s.eof() && s.data[s.pos] == '\n':
		s.pos++
	case s.pos+1 < int64(len(s.data)) && s.data[s.pos] == '\r' && s.data[s.pos+1] == '\n':
		s.pos += 2
	default:
		return Token{}, Errorf(s.pos, "stream keyword not followed by end-of-line")
	}
	dataStart := s.pos
	end := dataStart + l
	if end > int64(len(s.data)) {
		return Token{}, Errorf(dataStart, "stream data runs past end of file (Length %d)", l)
	}
	payload := s.data[dataStart:end:end]
	s.pos = end
	if err := s.skipWSAndComments(); err != nil || !s.hasKeyword("endstream") {
		return Token{}, Errorf(end, "endstream not found after %d bytes of stream data", l)
	}
	s.pos += int64(len("endstream"))
	return Token{Type: TokenStream, Bytes: payload, Pos: start}, nil
}

// hasKeyword reports whether kw starts at the cursor and is followed by a
// delimiter or the end of input.
func (s *pdfScanner) hasKeyword(kw string) bool {
	end := s.pos + int64(len(kw))
	if end > int64(len(s.data)) || string(s.data[s.pos:end]) != kw {
		return false
	}
	return end == int64(len(s.data)) || isDelimiter(s.data[end])
}

func (s *pdfScanner) peekAhead(n int64) byte {
	if s.pos+n >= int64(len(s.data)) {
		return 0
	}
	return s.data[s.pos+n]
}

func (s *pdfScanner) scanKeyword() (Token, error) {
	start := s.pos
	for !s.eof() && !isDelimiter(s.data[s.pos]) {
		s.pos++
	}
	kw := string(s.data[start:s.pos])
	switch kw {
	case "true", "false":
		return Token{Type: TokenBoolean, Bool: kw == "true", Str: kw, Pos: start}, nil
	case "null":
		return Token{Type: TokenNull, Str: kw, Pos: start}, nil
	case "stream":
		return s.scanStream(start)
	default:
		return Token{Type: TokenKeyword, Str: kw, Pos: start}, nil
	}
}

// scanNumberOrRef reads a number. When it is a non-negative integer the
// scanner looks ahead for "<gen> R" and restores the cursor if the pattern
// does not match; the lookahead covers at most two tokens.
func (s *pdfScanner) scanNumberOrRef() (Token, error) {
	start := s.pos
	tok, err := s.scanNumber()
	if err != nil {
		return Token{}, err
	}
	if !tok.IsInt || tok.Int < 0 || s.data[start] == '+' || s.data[start] == '-' {
		return tok, nil
	}

	saved := s.pos
	if ref, ok := s.tryRefTail(tok.Int); ok {
		return Token{Type: TokenRef, Ref: ref, Pos: start}, nil
	}
	s.pos = saved
	return tok, nil
}

func (s *pdfScanner) tryRefTail(num int64) (raw.ObjectRef, bool) {
	if s.skipWSAndComments() != nil {
		return raw.ObjectRef{}, false
	}
	genStart := s.pos
	for !s.eof() && s.data[s.pos] >= '0' && s.data[s.pos] <= '9' {
		s.pos++
	}
	if s.pos == genStart || (!s.eof() && !isDelimiter(s.data[s.pos])) {
		return raw.ObjectRef{}, false
	}
	gen, n := strconv.ParseInt(s.data[genStart:s.pos])
	if n != int(s.pos-genStart) {
		return raw.ObjectRef{}, false
	}
	if s.skipWSAndComments() != nil || !s.hasKeyword("R") {
		return raw.ObjectRef{}, false
	}
	s.pos++
	return raw.ObjectRef{Num: int(num), Gen: int(gen)}, true
}

func (s *pdfScanner) scanNumber() (Token, error) {
	start := s.pos
	digits, dots := 0, 0
scan:
	for !s.eof() {
		c := s.data[s.pos]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		case c == '+' || c == '-':
			if s.pos != start {
				return Token{}, Errorf(start, "malformed number")
			}
		default:
			break scan
		}
		s.pos++
	}
	if !s.eof() && !isDelimiter(s.data[s.pos]) {
		return Token{}, Errorf(start, "malformed number")
	}
	lit := s.data[start:s.pos]
	if digits == 0 || dots > 1 {
		return Token{}, Errorf(start, "malformed number %q", lit)
	}
	if dots == 0 {
		i, n := strconv.ParseInt(lit)
		if n == len(lit) {
			return Token{Type: TokenNumber, Int: i, IsInt: true, Pos: start}, nil
		}
		// integers beyond int64 degrade to reals
	}
	f, n := strconv.ParseFloat(lit)
	if n != len(lit) {
		return Token{}, Errorf(start, "malformed number %q", lit)
	}
	return Token{Type: TokenNumber, Float: f, Pos: start}, nil
}
