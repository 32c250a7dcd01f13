package scanner

import (
	"errors"
	"io"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
)

// LengthResolver returns the byte length a stream dictionary declares. The
// parser supplies one that follows indirect /Length references.
type LengthResolver func(dict *raw.DictObj) (int64, error)

// DirectLength reads /Length when it is a direct integer.
func DirectLength(dict *raw.DictObj) (int64, error) {
	if n, ok := dict.GetInt("Length"); ok && n >= 0 {
		return n, nil
	}
	return 0, errors.New("stream /Length is missing or not a direct integer")
}

// ReadIndirect parses "N G obj <value> endobj" at the scanner's position.
func ReadIndirect(s Scanner, length LengthResolver) (raw.ObjectRef, raw.Object, error) {
	start := s.Position()
	num, err := expectInt(s)
	if err != nil {
		return raw.ObjectRef{}, nil, err
	}
	gen, err := expectInt(s)
	if err != nil {
		return raw.ObjectRef{}, nil, err
	}
	ref, err := raw.NewObjectRef(int(num), int(gen))
	if err != nil {
		return raw.ObjectRef{}, nil, &ParseError{Offset: start, Msg: "bad object header", Err: err}
	}
	if err := expectKeyword(s, "obj"); err != nil {
		return ref, nil, err
	}
	val, err := ReadValue(s)
	if err != nil {
		return ref, nil, err
	}
	if dict, ok := val.(*raw.DictObj); ok && s.StreamFollows() {
		if length == nil {
			length = DirectLength
		}
		n, err := length(dict)
		if err != nil {
			return ref, nil, &ParseError{Offset: s.Position(), Msg: "object " + ref.String(), Err: err}
		}
		s.SetNextStreamLength(n)
		tok, err := s.Next()
		if err != nil {
			return ref, nil, err
		}
		val = &raw.StreamObj{Dict: dict, Data: tok.Bytes}
	}
	if err := expectKeyword(s, "endobj"); err != nil {
		return ref, nil, err
	}
	return ref, val, nil
}

// ReadValue parses one direct value. Streams are only recognised by
// ReadIndirect.
func ReadValue(s Scanner) (raw.Object, error) {
	return readValue(s, 0, 0)
}

func readValue(s Scanner, arrayDepth, dictDepth int) (raw.Object, error) {
	tok, err := next(s)
	if err != nil {
		return nil, err
	}
	return valueFromToken(s, tok, arrayDepth, dictDepth)
}

func valueFromToken(s Scanner, tok Token, arrayDepth, dictDepth int) (raw.Object, error) {
	cfg := s.Limits()
	switch tok.Type {
	case TokenNull:
		return raw.NullObj{}, nil
	case TokenBoolean:
		return raw.Bool(tok.Bool), nil
	case TokenNumber:
		if tok.IsInt {
			return raw.NumberInt(tok.Int), nil
		}
		return raw.NumberFloat(tok.Float), nil
	case TokenString:
		return raw.StringObj{Bytes: tok.Bytes, Hex: tok.Hex}, nil
	case TokenName:
		return raw.NameLiteral(tok.Str), nil
	case TokenRef:
		return raw.RefTo(tok.Ref), nil
	case TokenArray:
		if cfg.MaxArrayDepth > 0 && arrayDepth >= cfg.MaxArrayDepth {
			return nil, Errorf(tok.Pos, "array nesting exceeds %d", cfg.MaxArrayDepth)
		}
		arr := raw.NewArray()
		for {
			item, err := next(s)
			if err != nil {
				return nil, err
			}
			if item.Type == TokenKeyword && item.Str == "]" {
				return arr, nil
			}
			v, err := valueFromToken(s, item, arrayDepth+1, dictDepth)
			if err != nil {
				return nil, err
			}
			arr.Append(v)
		}
	case TokenDict:
		if cfg.MaxDictDepth > 0 && dictDepth >= cfg.MaxDictDepth {
			return nil, Errorf(tok.Pos, "dictionary nesting exceeds %d", cfg.MaxDictDepth)
		}
		dict := raw.Dict()
		for {
			key, err := next(s)
			if err != nil {
				return nil, err
			}
			if key.Type == TokenKeyword && key.Str == ">>" {
				return dict, nil
			}
			if key.Type != TokenName {
				return nil, Errorf(key.Pos, "dictionary key is not a name")
			}
			v, err := readValue(s, arrayDepth, dictDepth+1)
			if err != nil {
				return nil, err
			}
			dict.Set(key.Str, v)
		}
	case TokenStream:
		return nil, Errorf(tok.Pos, "stream outside an indirect object")
	default:
		return nil, Errorf(tok.Pos, "unexpected token %q", tok.Str)
	}
}

func next(s Scanner) (Token, error) {
	tok, err := s.Next()
	if errors.Is(err, io.EOF) {
		return Token{}, Errorf(s.Position(), "unexpected end of input")
	}
	return tok, err
}

func expectInt(s Scanner) (int64, error) {
	tok, err := next(s)
	if err != nil {
		return 0, err
	}
	if tok.Type != TokenNumber || !tok.IsInt {
		return 0, Errorf(tok.Pos, "expected integer")
	}
	return tok.Int, nil
}

func expectKeyword(s Scanner, kw string) error {
	tok, err := next(s)
	if err != nil {
		return err
	}
	if tok.Type != TokenKeyword || tok.Str != kw {
		return Errorf(tok.Pos, "expected %q", kw)
	}
	return nil
}
