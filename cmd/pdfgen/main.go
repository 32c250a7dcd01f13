package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/VibePDF/VibePDF-sub001/document"
	"github.com/VibePDF/VibePDF-sub001/fonts"
	"github.com/VibePDF/VibePDF-sub001/observability"
	"github.com/VibePDF/VibePDF-sub001/writer"
)

var sizes = map[string]document.Size{
	"a3":     document.A3,
	"a4":     document.A4,
	"a5":     document.A5,
	"letter": document.Letter,
	"legal":  document.Legal,
}

type options struct {
	out           string
	pages         int
	size          document.Size
	rotate        int
	fontName      string
	ttfPath       string
	fontSize      float64
	title         string
	author        string
	script        string
	filter        string
	maxKids       int
	deterministic bool
	verbose       bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdfgen: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "pdfgen: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: pdfgen [flags] <out.pdf>\n")
		flag.PrintDefaults()
	}
	flag.IntVar(&opts.pages, "pages", 1, "Number of pages")
	size := flag.String("size", "a4", "Page size: a3, a4, a5, letter or legal")
	landscape := flag.Bool("landscape", false, "Use landscape orientation")
	flag.IntVar(&opts.rotate, "rotate", 0, "Page rotation in degrees")
	flag.StringVar(&opts.fontName, "font", "Helvetica", "Standard 14 font for the page label")
	flag.StringVar(&opts.ttfPath, "ttf", "", "TrueType file to embed instead of -font")
	flag.Float64Var(&opts.fontSize, "font-size", 24, "Label font size in points")
	flag.StringVar(&opts.title, "title", "", "Document title")
	flag.StringVar(&opts.author, "author", "", "Document author")
	flag.StringVar(&opts.script, "js", "", "Document-level JavaScript to run on open")
	flag.StringVar(&opts.filter, "filter", "", "Stream filter: FlateDecode, LZWDecode, ASCII85Decode, None or Auto")
	flag.IntVar(&opts.maxKids, "max-kids", 0, "Page tree fan-out")
	flag.BoolVar(&opts.deterministic, "deterministic", false, "Derive the file ID from content")
	flag.BoolVar(&opts.verbose, "v", false, "Log to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("missing output path")
	}
	if opts.pages < 1 {
		return options{}, fmt.Errorf("-pages must be at least 1")
	}
	s, ok := sizes[strings.ToLower(*size)]
	if !ok {
		return options{}, fmt.Errorf("unknown page size %q", *size)
	}
	if *landscape {
		s = s.Landscape()
	}
	opts.size = s
	opts.out = flag.Arg(0)
	return opts, nil
}

func run(opts options) error {
	ctx := context.Background()
	docOpts := []document.Option{
		document.WithWriterConfig(writer.Config{Filter: opts.filter}),
		document.WithMaxKids(opts.maxKids),
	}
	if opts.deterministic {
		docOpts = append(docOpts, document.WithDeterministicID())
	}
	if opts.verbose {
		logger := observability.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		docOpts = append(docOpts, document.WithLogger(logger))
	}
	doc := document.New(docOpts...)

	font, err := loadFont(doc, opts)
	if err != nil {
		return err
	}
	resName, _ := doc.FontName(font)

	info := document.Info{Title: opts.title, Author: opts.author, Producer: "pdfgen"}
	if !opts.deterministic {
		info.CreationDate = time.Now()
	}
	if err := doc.SetInfo(info); err != nil {
		return err
	}
	if opts.script != "" {
		if err := doc.AddJavaScript("pdfgen", opts.script); err != nil {
			return err
		}
	}

	for i := 1; i <= opts.pages; i++ {
		p := doc.AddPage(opts.size, document.PageConfig{Rotate: opts.rotate})
		label := fmt.Sprintf("Page %d of %d", i, opts.pages)
		if _, err := doc.SetContent(p, nil, labelContent(font, resName, label, opts)); err != nil {
			return err
		}
	}

	out, err := doc.Save(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.out, out, 0o644); err != nil {
		return err
	}
	fmt.Printf("%s: %d pages, %d bytes\n", opts.out, doc.PageCount(), len(out))
	return nil
}

func loadFont(doc *document.Document, opts options) (*fonts.Font, error) {
	if opts.ttfPath == "" {
		return doc.EmbedFont(opts.fontName)
	}
	data, err := os.ReadFile(opts.ttfPath)
	if err != nil {
		return nil, err
	}
	return doc.EmbedTrueType("", data)
}

// labelContent centres label on the page.
func labelContent(f *fonts.Font, resName, label string, opts options) []byte {
	width, err := f.MeasureShaped(label, opts.fontSize)
	if err != nil {
		width = f.Measure(label, opts.fontSize)
	}
	x := (opts.size.Width - width) / 2
	y := (opts.size.Height - opts.fontSize) / 2
	escaped := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace(label)
	return []byte(fmt.Sprintf("BT /%s %g Tf %.2f %.2f Td (%s) Tj ET", resName, opts.fontSize, x, y, escaped))
}
