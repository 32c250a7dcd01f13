package raw

import (
	"math"
	"strconv"
	"strings"
)

const hexDigits = "0123456789ABCDEF"

// Serialize returns the textual PDF form of obj.
func Serialize(obj Object) []byte {
	return AppendObject(nil, obj)
}

// AppendObject appends the textual PDF form of obj to dst. Dictionary keys
// are written in insertion order; stream data is written verbatim.
func AppendObject(dst []byte, obj Object) []byte {
	switch v := obj.(type) {
	case nil:
		return append(dst, "null"...)
	case NullObj:
		return append(dst, "null"...)
	case BoolObj:
		if v.V {
			return append(dst, "true"...)
		}
		return append(dst, "false"...)
	case NumberObj:
		if v.IsInt {
			return strconv.AppendInt(dst, v.I, 10)
		}
		return append(dst, FormatNumber(v.F)...)
	case StringObj:
		if v.Hex {
			return appendHexString(dst, v.Bytes)
		}
		return appendLiteralString(dst, v.Bytes)
	case NameObj:
		return AppendName(dst, v.Val)
	case RefObj:
		dst = strconv.AppendInt(dst, int64(v.R.Num), 10)
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, int64(v.R.Gen), 10)
		return append(dst, " R"...)
	case *ArrayObj:
		dst = append(dst, '[')
		for i, it := range v.Items {
			if i > 0 {
				dst = append(dst, ' ')
			}
			dst = AppendObject(dst, it)
		}
		return append(dst, ']')
	case *DictObj:
		dst = append(dst, "<<"...)
		for _, k := range v.Keys() {
			dst = AppendName(dst, k)
			dst = append(dst, ' ')
			dst = AppendObject(dst, v.KV[k])
		}
		return append(dst, ">>"...)
	case *StreamObj:
		dict := v.Dict
		if dict == nil {
			dict = Dict()
		}
		dst = AppendObject(dst, dict)
		dst = append(dst, "\nstream\n"...)
		dst = append(dst, v.Data...)
		return append(dst, "\nendstream"...)
	default:
		return append(dst, "null"...)
	}
}

// FormatNumber renders f without an exponent, trimming trailing zeros and a
// trailing decimal point. Non-finite values render as 0.
func FormatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		end := len(s)
		for end > i+1 && s[end-1] == '0' {
			end--
		}
		if end == i+1 {
			end = i
		}
		s = s[:end]
	}
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}

// AppendName appends /name, escaping bytes outside the regular character set
// as #xx.
func AppendName(dst []byte, name string) []byte {
	dst = append(dst, '/')
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch < 0x21 || ch > 0x7E || ch == '#' || IsDelimiter(ch) {
			dst = append(dst, '#', hexDigits[ch>>4], hexDigits[ch&0x0F])
			continue
		}
		dst = append(dst, ch)
	}
	return dst
}

func appendLiteralString(dst, s []byte) []byte {
	dst = append(dst, '(')
	for _, ch := range s {
		switch ch {
		case '\\', '(', ')':
			dst = append(dst, '\\', ch)
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		default:
			dst = append(dst, ch)
		}
	}
	return append(dst, ')')
}

func appendHexString(dst, s []byte) []byte {
	dst = append(dst, '<')
	for _, ch := range s {
		dst = append(dst, hexDigits[ch>>4], hexDigits[ch&0x0F])
	}
	return append(dst, '>')
}

// IsDelimiter reports whether ch is one of the PDF delimiter characters.
func IsDelimiter(ch byte) bool {
	switch ch {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// IsWhitespace reports whether ch is PDF whitespace.
func IsWhitespace(ch byte) bool {
	switch ch {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}
