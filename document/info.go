package document

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
)

// Info is the document information dictionary. Zero fields are omitted.
type Info struct {
	Title        string
	Author       string
	Subject      string
	Keywords     string
	Creator      string
	Producer     string
	CreationDate time.Time
	ModDate      time.Time
}

var utf16BOM = []byte{0xFE, 0xFF}

// SetInfo replaces the information dictionary.
func (d *Document) SetInfo(info Info) error {
	dict := raw.Dict()
	for _, f := range []struct{ key, val string }{
		{"Title", info.Title},
		{"Author", info.Author},
		{"Subject", info.Subject},
		{"Keywords", info.Keywords},
		{"Creator", info.Creator},
		{"Producer", info.Producer},
	} {
		if f.val == "" {
			continue
		}
		s, err := encodeText(f.val)
		if err != nil {
			return fmt.Errorf("document: info %s: %w", f.key, err)
		}
		dict.Set(f.key, s)
	}
	if !info.CreationDate.IsZero() {
		dict.Set("CreationDate", raw.Str([]byte(formatDate(info.CreationDate))))
	}
	if !info.ModDate.IsZero() {
		dict.Set("ModDate", raw.Str([]byte(formatDate(info.ModDate))))
	}
	if _, err := d.arena.get(d.info); err == nil {
		return d.arena.set(d.info, dict)
	}
	d.info = d.arena.add(dict)
	return nil
}

// Info decodes the information dictionary. Entries that cannot be decoded
// are left empty.
func (d *Document) Info() Info {
	var info Info
	dict, ok := d.deref(raw.RefTo(d.info)).(*raw.DictObj)
	if !ok {
		return info
	}
	text := func(key string) string {
		b, ok := dict.GetString(key)
		if !ok {
			return ""
		}
		s, err := decodeText(b)
		if err != nil {
			return ""
		}
		return s
	}
	info.Title = text("Title")
	info.Author = text("Author")
	info.Subject = text("Subject")
	info.Keywords = text("Keywords")
	info.Creator = text("Creator")
	info.Producer = text("Producer")
	info.CreationDate, _ = parseDate(text("CreationDate"))
	info.ModDate, _ = parseDate(text("ModDate"))
	return info
}

// encodeText stores ASCII as is and everything else as UTF-16BE with a byte
// order mark.
func encodeText(s string) (raw.StringObj, error) {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return raw.Str([]byte(s)), nil
	}
	enc, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		return raw.StringObj{}, err
	}
	return raw.HexStr(enc), nil
}

// decodeText reads a text string: UTF-16BE when it starts with a byte order
// mark, PDFDocEncoding otherwise. PDFDocEncoding matches Latin-1 outside a
// handful of control-range glyphs, which decode as their Latin-1 codes.
func decodeText(b []byte) (string, error) {
	if bytes.HasPrefix(b, utf16BOM) {
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func formatDate(t time.Time) string {
	_, offset := t.Zone()
	if offset == 0 {
		return fmt.Sprintf("D:%04d%02d%02d%02d%02d%02dZ",
			t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	}
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	h := offset / 3600
	m := (offset % 3600) / 60
	return fmt.Sprintf("D:%04d%02d%02d%02d%02d%02d%c%02d'%02d'",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), sign, h, m)
}

// parseDate accepts D:YYYY[MM[DD[HH[mm[SS[O[HH['mm']]]]]]]] with or without
// the D: prefix. Missing fields take their lowest value and a missing zone
// means UTC.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")
	if len(s) < 4 {
		return time.Time{}, fmt.Errorf("document: date %q too short", s)
	}
	fields := []int{0, 1, 1, 0, 0, 0}
	widths := []int{4, 2, 2, 2, 2, 2}
	pos := 0
	for i, w := range widths {
		if pos+w > len(s) || !allDigits(s[pos:pos+w]) {
			break
		}
		fields[i], _ = strconv.Atoi(s[pos : pos+w])
		pos += w
	}
	loc := time.UTC
	if pos < len(s) {
		switch s[pos] {
		case 'Z':
		case '+', '-':
			sign := 1
			if s[pos] == '-' {
				sign = -1
			}
			rest := strings.ReplaceAll(s[pos+1:], "'", "")
			var hh, mm int
			if len(rest) >= 2 && allDigits(rest[:2]) {
				hh, _ = strconv.Atoi(rest[:2])
			}
			if len(rest) >= 4 && allDigits(rest[2:4]) {
				mm, _ = strconv.Atoi(rest[2:4])
			}
			loc = time.FixedZone("", sign*(hh*3600+mm*60))
		default:
			return time.Time{}, fmt.Errorf("document: date %q has trailing %q", s, s[pos:])
		}
	}
	return time.Date(fields[0], time.Month(fields[1]), fields[2], fields[3], fields[4], fields[5], 0, loc), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
