// Package fonts supplies the font objects a document embeds: the standard 14
// Type 1 fonts by name and simple TrueType fonts from a font program. Metrics
// here serve width estimation only.
package fonts

import (
	"errors"
	"fmt"
	"math"
	"strings"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/encoding/charmap"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
)

var (
	ErrUnknownFont = errors.New("fonts: not a standard 14 font")
	ErrEmptyFont   = errors.New("fonts: font data is empty")
)

// Metrics are expressed in glyph space units of UnitsPerEm per em.
type Metrics struct {
	Ascent     float64
	Descent    float64
	CapHeight  float64
	XHeight    float64
	UnitsPerEm int
}

// Font is either a standard 14 font or an embedded TrueType font.
type Font struct {
	Name     string // /BaseFont
	Subtype  string // Type1 or TrueType
	Standard bool
	Metrics  Metrics

	// TrueType only. Widths covers codes FirstChar..LastChar in 1/1000 em.
	Program     []byte
	FirstChar   int
	LastChar    int
	Widths      []float64
	BBox        [4]float64
	ItalicAngle float64

	defaultWidth float64
	runeWidths   map[rune]float64
}

const (
	firstWinAnsi = 32
	lastWinAnsi  = 255
)

// LoadTrueType parses a TrueType program and builds a simple font using
// WinAnsiEncoding. The full program is embedded.
func LoadTrueType(name string, data []byte) (*Font, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFont
	}
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fonts: parse truetype: %w", err)
	}
	unitsPerEm := f.UnitsPerEm()
	if unitsPerEm == 0 {
		return nil, errors.New("fonts: invalid unitsPerEm")
	}
	buf := &sfnt.Buffer{}
	ppem := fixed.Int26_6(unitsPerEm << 6)

	baseName := strings.TrimSpace(name)
	if ps, _ := f.Name(buf, sfnt.NameIDPostScript); ps != "" {
		baseName = ps
	}
	if baseName == "" {
		baseName = "CustomTT"
	}

	m, err := f.Metrics(buf, ppem, xfont.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("fonts: metrics: %w", err)
	}
	bounds, err := f.Bounds(buf, ppem, xfont.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("fonts: bounds: %w", err)
	}

	font := &Font{
		Name:    baseName,
		Subtype: "TrueType",
		Program: data,
		Metrics: Metrics{
			Ascent:     toUnits(m.Ascent),
			Descent:    -toUnits(m.Descent),
			CapHeight:  toUnits(m.CapHeight),
			XHeight:    toUnits(m.XHeight),
			UnitsPerEm: int(unitsPerEm),
		},
		BBox: [4]float64{
			scaleFixed(bounds.Min.X, unitsPerEm),
			-scaleFixed(bounds.Max.Y, unitsPerEm),
			scaleFixed(bounds.Max.X, unitsPerEm),
			-scaleFixed(bounds.Min.Y, unitsPerEm),
		},
		FirstChar:  firstWinAnsi,
		LastChar:   lastWinAnsi,
		runeWidths: make(map[rune]float64),
	}
	if post := f.PostTable(); post != nil {
		font.ItalicAngle = post.ItalicAngle
	}
	if font.Metrics.CapHeight == 0 {
		font.Metrics.CapHeight = font.Metrics.Ascent
	}

	advance := func(gid sfnt.GlyphIndex) float64 {
		adv, err := f.GlyphAdvance(buf, gid, ppem, xfont.HintingNone)
		if err != nil {
			return 0
		}
		return math.Round(scaleFixed(adv, unitsPerEm))
	}
	font.defaultWidth = advance(0)
	if font.defaultWidth == 0 {
		font.defaultWidth = 1000
	}
	font.Widths = make([]float64, lastWinAnsi-firstWinAnsi+1)
	for code := firstWinAnsi; code <= lastWinAnsi; code++ {
		r := charmap.Windows1252.DecodeByte(byte(code))
		gid, err := f.GlyphIndex(buf, r)
		if err != nil || gid == 0 {
			font.Widths[code-firstWinAnsi] = font.defaultWidth
			continue
		}
		w := advance(gid)
		font.Widths[code-firstWinAnsi] = w
		font.runeWidths[r] = w
	}
	return font, nil
}

// toUnits converts a metric sampled at ppem == unitsPerEm back to font units.
func toUnits(v fixed.Int26_6) float64 { return float64(v) / 64 }

// scaleFixed converts to 1/1000 em.
func scaleFixed(val fixed.Int26_6, unitsPerEm sfnt.Units) float64 {
	return float64(val) * 1000.0 / (64.0 * float64(unitsPerEm))
}

// Width returns the advance of r in 1/1000 em.
func (f *Font) Width(r rune) float64 {
	if f.Standard {
		return standardWidth(f.Name, r)
	}
	if w, ok := f.runeWidths[r]; ok {
		return w
	}
	return f.defaultWidth
}

// Measure estimates the width of text set at size points.
func (f *Font) Measure(text string, size float64) float64 {
	var total float64
	for _, r := range text {
		total += f.Width(r)
	}
	return total * size / 1000
}

// Dict returns the /Font dictionary. descriptor is ignored for standard fonts.
func (f *Font) Dict(descriptor raw.ObjectRef) *raw.DictObj {
	d := raw.Dict()
	d.Set("Type", raw.NameLiteral("Font"))
	d.Set("Subtype", raw.NameLiteral(f.Subtype))
	d.Set("BaseFont", raw.NameLiteral(f.Name))
	if f.Standard {
		if !isSymbolic(f.Name) {
			d.Set("Encoding", raw.NameLiteral("WinAnsiEncoding"))
		}
		return d
	}
	d.Set("FirstChar", raw.NumberInt(int64(f.FirstChar)))
	d.Set("LastChar", raw.NumberInt(int64(f.LastChar)))
	widths := raw.NewArray()
	for _, w := range f.Widths {
		widths.Append(raw.NumberInt(int64(w)))
	}
	d.Set("Widths", widths)
	d.Set("Encoding", raw.NameLiteral("WinAnsiEncoding"))
	d.Set("FontDescriptor", raw.RefTo(descriptor))
	return d
}

// Descriptor returns the /FontDescriptor for an embedded font whose program
// lives at file.
func (f *Font) Descriptor(file raw.ObjectRef) *raw.DictObj {
	scale := 1000 / float64(f.Metrics.UnitsPerEm)
	d := raw.Dict()
	d.Set("Type", raw.NameLiteral("FontDescriptor"))
	d.Set("FontName", raw.NameLiteral(f.Name))
	d.Set("Flags", raw.NumberInt(32)) // nonsymbolic
	bbox := raw.NewArray()
	for _, v := range f.BBox {
		bbox.Append(raw.NumberInt(int64(math.Round(v))))
	}
	d.Set("FontBBox", bbox)
	d.Set("ItalicAngle", raw.NumberFloat(f.ItalicAngle))
	d.Set("Ascent", raw.NumberInt(int64(math.Round(f.Metrics.Ascent*scale))))
	d.Set("Descent", raw.NumberInt(int64(math.Round(f.Metrics.Descent*scale))))
	d.Set("CapHeight", raw.NumberInt(int64(math.Round(f.Metrics.CapHeight*scale))))
	d.Set("StemV", raw.NumberInt(80))
	d.Set("FontFile2", raw.RefTo(file))
	return d
}

// FileStream wraps the font program as a /FontFile2 stream.
func (f *Font) FileStream() *raw.StreamObj {
	dict := raw.Dict()
	dict.Set("Length1", raw.NumberInt(int64(len(f.Program))))
	return raw.NewStream(dict, f.Program)
}
