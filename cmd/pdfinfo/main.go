package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/VibePDF/VibePDF-sub001/document"
	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/observability"
	"github.com/VibePDF/VibePDF-sub001/pagetree"
	"github.com/VibePDF/VibePDF-sub001/parser"
)

type featureSelection struct {
	Summary  bool
	Pages    bool
	Fonts    bool
	Scripts  bool
	Objects  bool
	Validate bool
}

type options struct {
	pdfPath  string
	password string
	verbose  bool
	features featureSelection
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdfinfo: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "pdfinfo: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: pdfinfo [flags] <pdf>\n")
		flag.PrintDefaults()
	}
	summary := flag.Bool("summary", false, "Print version, trailer and document information")
	pages := flag.Bool("pages", false, "List page sizes and rotation")
	fonts := flag.Bool("fonts", false, "List fonts used by page resources")
	scripts := flag.Bool("scripts", false, "List document-level JavaScript names")
	objects := flag.Bool("objects", false, "List every in-use object with its type")
	validate := flag.Bool("validate", false, "Report structural findings")
	password := flag.String("password", "", "Password to open encrypted PDFs")
	verbose := flag.Bool("v", false, "Log parser activity to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("missing pdf path")
	}
	opts.pdfPath = flag.Arg(0)
	opts.password = *password
	opts.verbose = *verbose
	opts.features = featureSelection{
		Summary:  *summary,
		Pages:    *pages,
		Fonts:    *fonts,
		Scripts:  *scripts,
		Objects:  *objects,
		Validate: *validate,
	}
	if opts.features == (featureSelection{}) {
		opts.features = featureSelection{Summary: true, Pages: true, Fonts: true, Scripts: true}
	}
	return opts, nil
}

func run(opts options) error {
	ctx := context.Background()
	var logger observability.Logger
	if opts.verbose {
		logger = observability.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if opts.features.Summary || opts.features.Objects {
		f, err := parser.OpenFile(ctx, opts.pdfPath, parser.Config{Password: opts.password, Logger: logger})
		if err != nil {
			return err
		}
		defer f.Close()
		if opts.features.Summary {
			if err := emitSection("summary", summarize(f.Document)); err != nil {
				return err
			}
		}
		if opts.features.Objects {
			objs, err := listObjects(f.Document)
			if err != nil {
				return err
			}
			if err := emitSection("objects", objs); err != nil {
				return err
			}
		}
	}
	if !opts.features.Pages && !opts.features.Fonts && !opts.features.Scripts && !opts.features.Validate {
		return nil
	}

	doc, err := document.Open(ctx, opts.pdfPath, opts.password, document.WithLogger(logger))
	if err != nil {
		return err
	}
	if opts.features.Summary {
		if err := emitSection("info", infoSummary(doc.Info())); err != nil {
			return err
		}
	}
	if opts.features.Pages {
		if err := emitSection("pages", listPages(doc)); err != nil {
			return err
		}
	}
	if opts.features.Fonts {
		if err := emitSection("fonts", listFonts(doc)); err != nil {
			return err
		}
	}
	if opts.features.Scripts {
		if err := emitSection("scripts", doc.JavaScriptNames()); err != nil {
			return err
		}
	}
	if opts.features.Validate {
		var findings []string
		for _, v := range doc.Validate() {
			findings = append(findings, v.Error())
		}
		if err := emitSection("validation", findings); err != nil {
			return err
		}
	}
	return nil
}

type fileSummary struct {
	Version     string `json:"version"`
	Objects     int    `json:"objects"`
	Size        int    `json:"size"`
	StartXRef   int64  `json:"startxref"`
	Encrypted   bool   `json:"encrypted"`
	Algorithm   string `json:"algorithm,omitempty"`
	Permissions int32  `json:"permissions"`
	ID          string `json:"id,omitempty"`
}

func summarize(d *raw.Document) fileSummary {
	s := fileSummary{
		Version:     d.Version,
		Objects:     len(d.Refs),
		Size:        d.Size,
		StartXRef:   d.StartXRef,
		Encrypted:   d.Encrypted,
		Algorithm:   d.Algorithm,
		Permissions: d.Permissions,
	}
	if len(d.ID) > 0 {
		s.ID = fmt.Sprintf("%x", d.ID[0])
	}
	return s
}

type infoJSON struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreationDate string `json:"creationDate,omitempty"`
	ModDate      string `json:"modDate,omitempty"`
}

func infoSummary(info document.Info) infoJSON {
	date := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(time.RFC3339)
	}
	return infoJSON{
		Title:        info.Title,
		Author:       info.Author,
		Subject:      info.Subject,
		Keywords:     info.Keywords,
		Creator:      info.Creator,
		Producer:     info.Producer,
		CreationDate: date(info.CreationDate),
		ModDate:      date(info.ModDate),
	}
}

type pageSummary struct {
	Index    int       `json:"index"`
	Object   string    `json:"object"`
	MediaBox []float64 `json:"mediaBox,omitempty"`
	Rotate   int64     `json:"rotate,omitempty"`
	Contents int       `json:"contents"`
}

func listPages(doc *document.Document) []pageSummary {
	out := make([]pageSummary, 0, doc.PageCount())
	for i := 0; i < doc.PageCount(); i++ {
		p, err := doc.Page(i)
		if err != nil {
			break
		}
		s := pageSummary{Index: i, Object: p.Object.String(), Contents: len(p.Contents)}
		if box, ok := pagetree.Resolve(p, "MediaBox"); ok {
			if arr, ok := box.(*raw.ArrayObj); ok {
				for _, it := range arr.Items {
					if n, ok := it.(raw.NumberObj); ok {
						s.MediaBox = append(s.MediaBox, n.Float())
					}
				}
			}
		}
		if rot, ok := pagetree.Resolve(p, "Rotate"); ok {
			if n, ok := rot.(raw.NumberObj); ok {
				s.Rotate = n.Int()
			}
		}
		out = append(out, s)
	}
	return out
}

type fontSummary struct {
	Resource string `json:"resource"`
	Object   string `json:"object"`
	BaseFont string `json:"baseFont"`
	Standard bool   `json:"standard"`
}

func listFonts(doc *document.Document) []fontSummary {
	var out []fontSummary
	for _, f := range doc.Fonts() {
		out = append(out, fontSummary{
			Resource: f.Name,
			Object:   f.Ref.String(),
			BaseFont: f.BaseFont,
			Standard: f.Font != nil && f.Font.Standard,
		})
	}
	return out
}

type objectSummary struct {
	Ref     string `json:"ref"`
	Type    string `json:"type"`
	Subtype string `json:"pdfType,omitempty"`
}

func listObjects(d *raw.Document) ([]objectSummary, error) {
	out := make([]objectSummary, 0, len(d.Refs))
	for _, ref := range d.Refs {
		obj, err := d.Get(ref)
		if err != nil {
			return nil, err
		}
		s := objectSummary{Ref: ref.String(), Type: obj.Type()}
		var dict *raw.DictObj
		switch v := obj.(type) {
		case *raw.DictObj:
			dict = v
		case *raw.StreamObj:
			dict = v.Dict
		}
		if dict != nil {
			s.Subtype, _ = dict.GetName("Type")
		}
		out = append(out, s)
	}
	return out, nil
}

func emitSection(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	fmt.Printf("== %s ==\n%s\n\n", name, data)
	return nil
}
