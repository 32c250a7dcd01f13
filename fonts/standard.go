package fonts

import "fmt"

type standardFace struct {
	metrics  Metrics
	avgWidth float64
}

// standard14 lists AFM metrics for the base fonts. Symbol and ZapfDingbats
// carry no cap or x height; their ascent and descent come from FontBBox.
var standard14 = map[string]standardFace{
	"Courier":               {Metrics{629, -157, 562, 426, 1000}, 600},
	"Courier-Bold":          {Metrics{629, -157, 562, 439, 1000}, 600},
	"Courier-Oblique":       {Metrics{629, -157, 562, 426, 1000}, 600},
	"Courier-BoldOblique":   {Metrics{629, -157, 562, 439, 1000}, 600},
	"Helvetica":             {Metrics{718, -207, 718, 523, 1000}, 513},
	"Helvetica-Bold":        {Metrics{718, -207, 718, 532, 1000}, 536},
	"Helvetica-Oblique":     {Metrics{718, -207, 718, 523, 1000}, 513},
	"Helvetica-BoldOblique": {Metrics{718, -207, 718, 532, 1000}, 536},
	"Times-Roman":           {Metrics{683, -217, 662, 450, 1000}, 462},
	"Times-Bold":            {Metrics{683, -217, 676, 461, 1000}, 490},
	"Times-Italic":          {Metrics{683, -217, 653, 441, 1000}, 462},
	"Times-BoldItalic":      {Metrics{683, -217, 669, 462, 1000}, 480},
	"Symbol":                {Metrics{1010, -293, 0, 0, 1000}, 580},
	"ZapfDingbats":          {Metrics{820, -143, 0, 0, 1000}, 770},
}

// helveticaASCII holds Helvetica advances for codes 32..126.
var helveticaASCII = [95]float64{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
	1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
	333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
	556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
}

// Standard returns one of the 14 base fonts. They are never embedded.
func Standard(name string) (*Font, error) {
	face, ok := standard14[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFont, name)
	}
	return &Font{
		Name:     name,
		Subtype:  "Type1",
		Standard: true,
		Metrics:  face.metrics,
	}, nil
}

// IsStandard reports whether name is one of the 14 base fonts.
func IsStandard(name string) bool {
	_, ok := standard14[name]
	return ok
}

// StandardNames returns the base font names in a fixed order.
func StandardNames() []string {
	return []string{
		"Courier", "Courier-Bold", "Courier-Oblique", "Courier-BoldOblique",
		"Helvetica", "Helvetica-Bold", "Helvetica-Oblique", "Helvetica-BoldOblique",
		"Times-Roman", "Times-Bold", "Times-Italic", "Times-BoldItalic",
		"Symbol", "ZapfDingbats",
	}
}

func isSymbolic(name string) bool { return name == "Symbol" || name == "ZapfDingbats" }

// standardWidth is exact for Courier and for ASCII in regular Helvetica;
// everything else falls back to the face's average advance.
func standardWidth(name string, r rune) float64 {
	face := standard14[name]
	switch name {
	case "Courier", "Courier-Bold", "Courier-Oblique", "Courier-BoldOblique":
		return 600
	case "Helvetica", "Helvetica-Oblique":
		if r >= 32 && r <= 126 {
			return helveticaASCII[r-32]
		}
	}
	return face.avgWidth
}
