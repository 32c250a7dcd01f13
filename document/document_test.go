package document_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/VibePDF/VibePDF-sub001/document"
	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/observability"
	"github.com/VibePDF/VibePDF-sub001/pagetree"
	"github.com/VibePDF/VibePDF-sub001/parser"
	"github.com/VibePDF/VibePDF-sub001/scanner"
	"github.com/VibePDF/VibePDF-sub001/scripting"
	"github.com/VibePDF/VibePDF-sub001/security"
	"github.com/VibePDF/VibePDF-sub001/writer"
)

func newDoc(t *testing.T, pages int, opts ...document.Option) *document.Document {
	t.Helper()
	d := document.New(opts...)
	for i := 0; i < pages; i++ {
		p := d.AddPage(document.A4, document.PageConfig{})
		if _, err := d.SetContent(p, nil, []byte(fmt.Sprintf("BT (page %d) Tj ET", i+1))); err != nil {
			t.Fatalf("SetContent: %v", err)
		}
	}
	return d
}

func save(t *testing.T, d *document.Document) []byte {
	t.Helper()
	out, err := d.Save(context.Background())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return out
}

func load(t *testing.T, data []byte, password string) *document.Document {
	t.Helper()
	d, err := document.Load(context.Background(), data, password)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return d
}

func content(t *testing.T, d *document.Document, i int) string {
	t.Helper()
	p, err := d.Page(i)
	if err != nil {
		t.Fatalf("Page(%d): %v", i, err)
	}
	data, err := d.PageContent(context.Background(), p)
	if err != nil {
		t.Fatalf("PageContent(%d): %v", i, err)
	}
	return string(data)
}

func pageContents(t *testing.T, d *document.Document) []string {
	t.Helper()
	out := make([]string, d.PageCount())
	for i := range out {
		out[i] = content(t, d, i)
	}
	return out
}

func TestNewDocumentHasCatalog(t *testing.T) {
	d := document.New()
	cat := d.Catalog()
	if typ, _ := cat.GetName("Type"); typ != "Catalog" {
		t.Fatalf("catalog /Type = %q", typ)
	}
	pages, ok := cat.GetRef("Pages")
	if !ok || pages != d.PageTree().Object {
		t.Fatalf("catalog /Pages = %v, want %v", pages, d.PageTree().Object)
	}
	if d.PageCount() != 0 {
		t.Fatalf("PageCount = %d", d.PageCount())
	}
}

func TestRoundTripThreePages(t *testing.T) {
	d := newDoc(t, 3)
	before := make(map[raw.ObjectRef]raw.Object)
	for _, ref := range d.Objects() {
		v, err := d.Resolve(ref)
		if err != nil {
			t.Fatalf("Resolve %v: %v", ref, err)
		}
		before[ref] = v
	}

	got := load(t, save(t, d), "")
	if got.PageCount() != 3 {
		t.Fatalf("PageCount = %d, want 3", got.PageCount())
	}
	if got.CatalogRef() != d.CatalogRef() {
		t.Fatalf("catalog %v, want %v", got.CatalogRef(), d.CatalogRef())
	}
	if c := content(t, got, 1); c != "BT (page 2) Tj ET" {
		t.Fatalf("Page(1) content = %q", c)
	}

	for ref, want := range before {
		v, err := got.Resolve(ref)
		if err != nil {
			t.Fatalf("Resolve %v after load: %v", ref, err)
		}
		if _, isStream := want.(*raw.StreamObj); isStream {
			continue
		}
		if !raw.Equal(v, want) {
			t.Errorf("object %v changed:\n got %s\nwant %s", ref, raw.Serialize(v), raw.Serialize(want))
		}
	}
}

func TestCrossReferenceIntegrity(t *testing.T) {
	d := newDoc(t, 2)
	p, _ := d.Page(0)
	a := d.AddObject(raw.Dict())
	b := d.AddObject(raw.Dict())
	c := d.AddObject(raw.Dict())
	p.Dict.Set("Annots", raw.NewArray(raw.RefTo(a), raw.RefTo(c)))
	if err := d.RemoveObject(b.Num); err != nil {
		t.Fatalf("RemoveObject: %v", err)
	}
	if _, err := d.Resolve(b); !errors.Is(err, document.ErrObjectNotFound) {
		t.Fatalf("Resolve removed object: %v", err)
	}
	out := save(t, d)

	pdoc, err := parser.Parse(context.Background(), out, parser.Config{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	seen := map[raw.ObjectRef]bool{}
	queue := []raw.ObjectRef{pdoc.Root}
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if seen[ref] {
			continue
		}
		seen[ref] = true
		v, err := pdoc.Get(ref)
		if err != nil {
			t.Fatalf("reachable object %v does not load: %v", ref, err)
		}
		queue = append(queue, raw.References(v)...)
	}
	for _, want := range []raw.ObjectRef{a, c} {
		if !seen[want] {
			t.Errorf("object %v not reachable from the catalog", want)
		}
	}
	if _, err := pdoc.Get(b); !errors.Is(err, parser.ErrNotFound) {
		t.Fatalf("removed object %v loads: %v", b, err)
	}
}

func TestRemovedNumberReusedAfterFullSave(t *testing.T) {
	d := newDoc(t, 1)
	tmp := d.AddObject(raw.Dict())
	if err := d.RemoveObject(tmp.Num); err != nil {
		t.Fatal(err)
	}
	before := d.AddObject(raw.Dict())
	if before.Num == tmp.Num {
		t.Fatalf("number %d reused before a full save", tmp.Num)
	}
	if err := d.RemoveObject(before.Num); err != nil {
		t.Fatal(err)
	}
	save(t, d)

	reused := d.AddObject(raw.Dict())
	if reused.Num != tmp.Num && reused.Num != before.Num {
		t.Fatalf("AddObject after save = %v, want a reclaimed number", reused)
	}
	if reused.Gen != 1 {
		t.Fatalf("reused generation = %d, want 1", reused.Gen)
	}
	p, _ := d.Page(0)
	p.Dict.Set("Annots", raw.NewArray(raw.RefTo(reused)))
	got := load(t, save(t, d), "")
	if _, err := got.Resolve(reused); err != nil {
		t.Fatalf("reused object %v after reload: %v", reused, err)
	}
}

func TestSaveRejectsInvalidStructure(t *testing.T) {
	t.Run("no pages", func(t *testing.T) {
		_, err := document.New().Save(context.Background())
		var se *document.StructuralError
		if !errors.As(err, &se) {
			t.Fatalf("Save = %v, want StructuralError", err)
		}
	})
	t.Run("dangling reference", func(t *testing.T) {
		d := newDoc(t, 1)
		p, _ := d.Page(0)
		p.Dict.Set("Annots", raw.NewArray(raw.RefTo(raw.ObjectRef{Num: 999})))
		out, err := d.Save(context.Background())
		var se *document.StructuralError
		if !errors.As(err, &se) || out != nil {
			t.Fatalf("Save = %d bytes, %v; want StructuralError", len(out), err)
		}
	})
	t.Run("missing catalog", func(t *testing.T) {
		d := newDoc(t, 1)
		if err := d.RemoveObject(d.CatalogRef().Num); err != nil {
			t.Fatal(err)
		}
		_, err := d.Save(context.Background())
		var se *document.StructuralError
		if !errors.As(err, &se) {
			t.Fatalf("Save = %v, want StructuralError", err)
		}
	})
}

// handwrittenPDF writes bodies as objects 1..n behind one classic xref
// section. trailer is the trailer dictionary's contents.
func handwrittenPDF(bodies []string, trailer string) []byte {
	buf := &bytes.Buffer{}
	buf.WriteString("%PDF-1.7\n")
	offsets := make([]int, len(bodies))
	for i, body := range bodies {
		offsets[i] = buf.Len()
		fmt.Fprintf(buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xrefOffset := buf.Len()
	fmt.Fprintf(buf, "xref\n0 %d\n0000000000 65535 f\r\n", len(bodies)+1)
	for _, off := range offsets {
		fmt.Fprintf(buf, "%010d 00000 n\r\n", off)
	}
	fmt.Fprintf(buf, "trailer\n<< %s >>\nstartxref\n%d\n%%%%EOF\n", trailer, xrefOffset)
	return buf.Bytes()
}

// cyclicPDF hand-writes a file whose page tree node lists itself as a kid.
func cyclicPDF() []byte {
	return handwrittenPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 2 0 R] /Count 2 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 10 10] >>",
	}, "/Size 4 /Root 1 0 R")
}

var onePageBodies = []string{
	"<< /Type /Catalog /Pages 2 0 R >>",
	"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
	"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 10 10] >>",
}

func TestLoadRejectsCyclicTree(t *testing.T) {
	_, err := document.Load(context.Background(), cyclicPDF(), "")
	var se *document.StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("Load = %v, want StructuralError", err)
	}
	if !errors.Is(err, pagetree.ErrCycle) {
		t.Fatalf("Load = %v, want it to wrap ErrCycle", err)
	}
}

func TestLoadBoundsObjectCount(t *testing.T) {
	_, err := document.Load(context.Background(), handwrittenPDF(onePageBodies, "/Size 20000000 /Root 1 0 R"), "")
	var pe *scanner.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Load with /Size 20000000 = %v, want ParseError", err)
	}

	d := load(t, handwrittenPDF(onePageBodies, "/Size 5000 /Root 1 0 R"), "")
	if r := d.AddObject(raw.Dict()); r.Num != 4 {
		t.Fatalf("AddObject = %v, want object 4", r)
	}
	out := save(t, d)
	if n := len(load(t, out, "").Objects()); n < 4 {
		t.Fatalf("%d objects after reload", n)
	}
}

func TestLoadRejectsLengthCycle(t *testing.T) {
	bodies := append(append([]string{}, onePageBodies...), "<< /Length 4 0 R >>\nstream\nabc\nendstream")
	_, err := document.Load(context.Background(), handwrittenPDF(bodies, "/Size 5 /Root 1 0 R"), "")
	if !errors.Is(err, parser.ErrLengthCycle) {
		t.Fatalf("Load = %v, want ErrLengthCycle", err)
	}
}

func TestInsertPageUnderRotatedNode(t *testing.T) {
	bodies := append([]string{}, onePageBodies...)
	bodies[1] = "<< /Type /Pages /Kids [3 0 R] /Count 1 /Rotate 90 >>"
	d := load(t, handwrittenPDF(bodies, "/Size 4 /Root 1 0 R"), "")
	p, err := d.InsertPage(1, document.A4, document.PageConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if rot, ok := p.Dict.GetInt("Rotate"); !ok || rot != 0 {
		t.Fatalf("Rotate = %d (present %v), want an explicit 0", rot, ok)
	}
	if _, err := d.InsertPage(2, document.A4, document.PageConfig{Rotate: 180}); err != nil {
		t.Fatal(err)
	}

	d = load(t, save(t, d), "")
	for i, want := range []int64{90, 0, 180} {
		p, err := d.Page(i)
		if err != nil {
			t.Fatal(err)
		}
		v, _ := pagetree.Resolve(p, "Rotate")
		if n, _ := v.(raw.NumberObj); n.I != want {
			t.Errorf("page %d rotation = %v, want %d", i, v, want)
		}
	}

	plain := load(t, handwrittenPDF(onePageBodies, "/Size 4 /Root 1 0 R"), "")
	p, err = plain.InsertPage(0, document.A4, document.PageConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Dict.Get("Rotate"); ok {
		t.Fatalf("Rotate written without a rotated ancestor")
	}
}

// encryptedWithoutID writes a one-page RC4 file whose trailer has no /ID.
func encryptedWithoutID(t *testing.T) []byte {
	t.Helper()
	enc, err := security.NewEncryption(security.Options{Algorithm: security.RC4_128, UserPassword: "u"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	catalog := raw.Dict()
	catalog.Set("Type", raw.NameLiteral("Catalog"))
	catalog.Set("Pages", raw.Ref(2, 0))
	pages := raw.Dict()
	pages.Set("Type", raw.NameLiteral("Pages"))
	pages.Set("Kids", raw.NewArray(raw.Ref(3, 0)))
	pages.Set("Count", raw.NumberInt(1))
	page := raw.Dict()
	page.Set("Type", raw.NameLiteral("Page"))
	page.Set("Parent", raw.Ref(2, 0))
	page.Set("MediaBox", raw.NewArray(raw.NumberInt(0), raw.NumberInt(0), raw.NumberInt(10), raw.NumberInt(10)))
	page.Set("Contents", raw.Ref(4, 0))
	data, err := writer.New(writer.Config{}).Write(context.Background(), writer.Input{
		Objects: []raw.IndirectObject{
			{Ref: raw.ObjectRef{Num: 1}, Value: catalog},
			{Ref: raw.ObjectRef{Num: 2}, Value: pages},
			{Ref: raw.ObjectRef{Num: 3}, Value: page},
			{Ref: raw.ObjectRef{Num: 4}, Value: raw.NewStream(nil, []byte("BT (hello) Tj ET"))},
		},
		Root:     raw.ObjectRef{Num: 1},
		Encrypt:  &raw.IndirectObject{Ref: raw.ObjectRef{Num: 5}, Value: enc.Dict},
		Security: enc.Handler,
	})
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data[bytes.LastIndex(data, []byte("trailer")):], []byte("/ID")) {
		t.Fatal("fixture unexpectedly carries /ID")
	}
	return data
}

func TestResaveEncryptedWithoutID(t *testing.T) {
	d := load(t, encryptedWithoutID(t), "u")
	if got := content(t, d, 0); got != "BT (hello) Tj ET" {
		t.Fatalf("content = %q", got)
	}

	full := save(t, d)
	re := load(t, full, "u")
	if got := content(t, re, 0); got != "BT (hello) Tj ET" {
		t.Fatalf("content after full save = %q", got)
	}
	pdoc, err := parser.Parse(context.Background(), full, parser.Config{Password: "u"})
	if err != nil {
		t.Fatal(err)
	}
	if len(pdoc.ID) != 2 || len(pdoc.ID[0]) != 0 || len(pdoc.ID[1]) == 0 {
		t.Fatalf("ID = %x, want an empty first element", pdoc.ID)
	}

	d = load(t, encryptedWithoutID(t), "u")
	d.AddPage(document.A4, document.PageConfig{})
	inc, err := d.SaveIncremental(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	re = load(t, inc, "u")
	if re.PageCount() != 2 || content(t, re, 0) != "BT (hello) Tj ET" {
		t.Fatalf("incremental reload: %d pages", re.PageCount())
	}
}

func TestSaveRejectsCycleIntroducedBySetObject(t *testing.T) {
	d := newDoc(t, 1)
	node := raw.Dict()
	node.Set("Type", raw.NameLiteral("Pages"))
	ref := d.AddObject(node)
	node = node.Clone()
	node.Set("Kids", raw.NewArray(raw.RefTo(ref)))
	node.Set("Count", raw.NumberInt(1))
	if err := d.SetObject(ref, node); err != nil {
		t.Fatal(err)
	}
	cat := d.Catalog()
	cat.Set("Pages", raw.RefTo(ref))
	if err := d.SetObject(d.CatalogRef(), cat); err != nil {
		t.Fatal(err)
	}
	_, err := d.Save(context.Background())
	if !errors.Is(err, pagetree.ErrCycle) {
		t.Fatalf("Save = %v, want ErrCycle", err)
	}
}

func TestSaveIncrementalAppendsChanges(t *testing.T) {
	ctx := context.Background()
	original := save(t, newDoc(t, 1))
	d := load(t, original, "")
	if n := len(d.Modified()); n != 0 {
		t.Fatalf("freshly loaded document has %d modified objects", n)
	}

	if err := d.SetInfo(document.Info{Title: "Updated"}); err != nil {
		t.Fatal(err)
	}
	p := d.AddPage(document.Letter, document.PageConfig{})
	if _, err := d.SetContent(p, nil, []byte("BT (added) Tj ET")); err != nil {
		t.Fatal(err)
	}
	out, err := d.SaveIncremental(ctx)
	if err != nil {
		t.Fatalf("SaveIncremental: %v", err)
	}
	if !bytes.HasPrefix(out, original) {
		t.Fatal("incremental output does not start with the original file")
	}
	// info, new page, its content and the updated root node
	if n := bytes.Count(out[len(original):], []byte(" obj\n")); n != 4 {
		t.Fatalf("appended %d objects, want 4", n)
	}

	got := load(t, out, "")
	if diff := cmp.Diff([]string{"BT (page 1) Tj ET", "BT (added) Tj ET"}, pageContents(t, got)); diff != "" {
		t.Fatalf("pages (-want +got):\n%s", diff)
	}
	if got.Info().Title != "Updated" {
		t.Fatalf("Title = %q", got.Info().Title)
	}

	// a second update chains onto the first
	if err := got.RemovePage(0); err != nil {
		t.Fatal(err)
	}
	out2, err := got.SaveIncremental(ctx)
	if err != nil {
		t.Fatalf("second SaveIncremental: %v", err)
	}
	if !bytes.HasPrefix(out2, out) {
		t.Fatal("second update does not extend the first")
	}
	final := load(t, out2, "")
	if diff := cmp.Diff([]string{"BT (added) Tj ET"}, pageContents(t, final)); diff != "" {
		t.Fatalf("pages after removal (-want +got):\n%s", diff)
	}
}

func TestSaveIncrementalErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := newDoc(t, 1).SaveIncremental(ctx); !errors.Is(err, document.ErrNotLoaded) {
		t.Fatalf("SaveIncremental on a new document = %v, want ErrNotLoaded", err)
	}

	d := load(t, save(t, newDoc(t, 1)), "")
	if err := d.EnableSecurity(security.Options{Algorithm: security.AES_128, UserPassword: "pw"}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.SaveIncremental(ctx); !errors.Is(err, document.ErrSecurityChanged) {
		t.Fatalf("SaveIncremental after EnableSecurity = %v, want ErrSecurityChanged", err)
	}
	// a full save settles the new key and incremental saves work again
	save(t, d)
	if _, err := d.SaveIncremental(ctx); err != nil {
		t.Fatalf("SaveIncremental after full save: %v", err)
	}
}

func TestSaveAfterFullSaveKeepsWorking(t *testing.T) {
	d := newDoc(t, 1)
	first := save(t, d)
	d.AddPage(document.A5, document.PageConfig{})
	out, err := d.SaveIncremental(context.Background())
	if err != nil {
		t.Fatalf("SaveIncremental after Save: %v", err)
	}
	if !bytes.HasPrefix(out, first) {
		t.Fatal("update does not extend the saved file")
	}
	if got := load(t, out, ""); got.PageCount() != 2 {
		t.Fatalf("PageCount = %d, want 2", got.PageCount())
	}
}

func TestEncryptAES256(t *testing.T) {
	ctx := context.Background()
	d := newDoc(t, 2)
	if err := d.SetInfo(document.Info{Title: "Quarterly figures"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := d.Security(); ok {
		t.Fatal("unencrypted document reports security")
	}
	if err := d.EnableSecurity(security.Options{Algorithm: security.AES_256, UserPassword: "secret"}); err != nil {
		t.Fatalf("EnableSecurity: %v", err)
	}
	out := save(t, d)
	if bytes.Contains(out, []byte("Quarterly figures")) {
		t.Fatal("info title written in clear")
	}

	pdoc, err := parser.Parse(ctx, out, parser.Config{Password: "secret"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	encObj, err := pdoc.Get(pdoc.Encrypt)
	if err != nil {
		t.Fatalf("load /Encrypt: %v", err)
	}
	enc := encObj.(*raw.DictObj)
	for key, want := range map[string]int64{"V": 5, "R": 6, "Length": 256} {
		if got, _ := enc.GetInt(key); got != want {
			t.Errorf("/Encrypt /%s = %d, want %d", key, got, want)
		}
	}

	got := load(t, out, "secret")
	if diff := cmp.Diff([]string{"BT (page 1) Tj ET", "BT (page 2) Tj ET"}, pageContents(t, got)); diff != "" {
		t.Fatalf("decrypted pages (-want +got):\n%s", diff)
	}
	if got.Info().Title != "Quarterly figures" {
		t.Fatalf("Title = %q", got.Info().Title)
	}
	info, ok := got.Security()
	if !ok || !info.Encrypted() || info.Algorithm() != security.AES_256 {
		t.Fatalf("Security() = %v, %v", info, ok)
	}
	if diff := cmp.Diff(security.AllPermissions(), info.Permissions()); diff != "" {
		t.Fatalf("permissions (-want +got):\n%s", diff)
	}

	if _, err := document.Load(ctx, out, "wrong"); !errors.Is(err, security.ErrInvalidPassword) {
		t.Fatalf("Load with wrong password = %v, want ErrInvalidPassword", err)
	}
}

func TestEncryptedDocumentResaves(t *testing.T) {
	d := newDoc(t, 1)
	if err := d.EnableSecurity(security.Options{Algorithm: security.RC4_128, UserPassword: "u", OwnerPassword: "o"}); err != nil {
		t.Fatal(err)
	}
	loaded := load(t, save(t, d), "u")
	loaded.AddPage(document.A4, document.PageConfig{})

	full := load(t, save(t, loaded), "o")
	if full.PageCount() != 2 {
		t.Fatalf("PageCount after full resave = %d", full.PageCount())
	}
	if c := content(t, full, 0); c != "BT (page 1) Tj ET" {
		t.Fatalf("content = %q", c)
	}
}

func TestPages(t *testing.T) {
	d := newDoc(t, 3)
	p, err := d.InsertPage(0, document.Letter.Landscape(), document.PageConfig{Rotate: -90})
	if err != nil {
		t.Fatal(err)
	}
	if d.PageIndex(p) != 0 || d.PageCount() != 4 {
		t.Fatalf("index %d count %d", d.PageIndex(p), d.PageCount())
	}
	if rot, _ := p.Dict.GetInt("Rotate"); rot != 270 {
		t.Fatalf("Rotate = %d, want 270", rot)
	}
	box, _ := p.Dict.GetArray("MediaBox")
	if w, _ := box.Items[2].(raw.NumberObj); w.Float() != 792 {
		t.Fatalf("landscape width = %v", box.Items[2])
	}

	if err := d.RemovePage(2); err != nil {
		t.Fatal(err)
	}
	want := []string{"", "BT (page 1) Tj ET", "BT (page 3) Tj ET"}
	if diff := cmp.Diff(want, pageContents(t, d)); diff != "" {
		t.Fatalf("pages (-want +got):\n%s", diff)
	}

	if _, err := d.Page(3); !errors.Is(err, document.ErrPageIndex) {
		t.Fatalf("Page(3) = %v", err)
	}
	if _, err := d.InsertPage(9, document.A4, document.PageConfig{}); !errors.Is(err, document.ErrPageIndex) {
		t.Fatalf("InsertPage(9) = %v", err)
	}
	if err := d.RemovePage(-1); !errors.Is(err, document.ErrPageIndex) {
		t.Fatalf("RemovePage(-1) = %v", err)
	}
}

func TestRemovePageFreesContent(t *testing.T) {
	d := newDoc(t, 2)
	p, _ := d.Page(1)
	contentRef := p.Contents[0]
	if err := d.RemovePage(1); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Resolve(contentRef); !errors.Is(err, document.ErrObjectNotFound) {
		t.Fatalf("content of removed page still resolves: %v", err)
	}
	if _, err := d.Resolve(p.Object); !errors.Is(err, document.ErrObjectNotFound) {
		t.Fatalf("removed page still resolves: %v", err)
	}
}

func TestManyPagesStayBalanced(t *testing.T) {
	d := newDoc(t, 120, document.WithMaxKids(8))
	if depth := pagetree.Depth(d.PageTree()); depth < 3 {
		t.Fatalf("depth %d for 120 pages at fan-out 8", depth)
	}
	got := load(t, save(t, d), "")
	if got.PageCount() != 120 {
		t.Fatalf("PageCount = %d", got.PageCount())
	}
	if c := content(t, got, 77); c != "BT (page 78) Tj ET" {
		t.Fatalf("Page(77) = %q", c)
	}
}

func TestOptimize(t *testing.T) {
	d := newDoc(t, 30, document.WithAutoBalance(false))
	if n := len(d.PageTree().Kids()); n != 30 {
		t.Fatalf("root has %d kids before Optimize", n)
	}
	d.Optimize()
	if n := len(d.PageTree().Kids()); n > pagetree.DefaultMaxKids {
		t.Fatalf("root has %d kids after Optimize", n)
	}
	got := load(t, save(t, d), "")
	want := make([]string, 30)
	for i := range want {
		want[i] = fmt.Sprintf("BT (page %d) Tj ET", i+1)
	}
	if diff := cmp.Diff(want, pageContents(t, got)); diff != "" {
		t.Fatalf("page order (-want +got):\n%s", diff)
	}
}

func TestFontsRegisteredOnPages(t *testing.T) {
	d := newDoc(t, 2)
	helv, err := d.EmbedFont("Helvetica")
	if err != nil {
		t.Fatal(err)
	}
	again, err := d.EmbedFont("Helvetica")
	if err != nil || again != helv {
		t.Fatalf("second EmbedFont = %v, %v", again, err)
	}
	goFont, err := d.EmbedTrueType("", goregular.TTF)
	if err != nil {
		t.Fatalf("EmbedTrueType: %v", err)
	}
	if _, err := d.EmbedFont("Comic Sans"); err == nil {
		t.Fatal("EmbedFont accepted a non-standard name")
	}
	d.AddPage(document.A4, document.PageConfig{})

	hName, ok := d.FontName(helv)
	if !ok {
		t.Fatal("no resource name for Helvetica")
	}
	gName, ok := d.FontName(goFont)
	if !ok || gName == hName {
		t.Fatalf("TrueType resource name %q (Helvetica %q)", gName, hName)
	}
	names := map[string]string{hName: "Helvetica", gName: goFont.Name}

	got := load(t, save(t, d), "")
	for i := 0; i < got.PageCount(); i++ {
		p, _ := got.Page(i)
		res, ok := p.Dict.GetDict("Resources")
		if !ok {
			t.Fatalf("page %d has no resources", i)
		}
		fontDict, ok := res.GetDict("Font")
		if !ok {
			t.Fatalf("page %d has no /Font resources", i)
		}
		for name := range names {
			if _, ok := fontDict.GetRef(name); !ok {
				t.Errorf("page %d lacks font %s", i, name)
			}
		}
	}
	found := map[string]string{}
	for _, fr := range got.Fonts() {
		found[fr.Name] = fr.BaseFont
	}
	if diff := cmp.Diff(names, found); diff != "" {
		t.Fatalf("fonts after reload (-want +got):\n%s", diff)
	}
}

func TestInfoRoundTrip(t *testing.T) {
	zone := time.FixedZone("", -(5*3600 + 30*60))
	want := document.Info{
		Title:        "Grüße aus Köln 世界",
		Author:       "A. Writer",
		Keywords:     "pdf, test",
		Producer:     "pdfgen",
		CreationDate: time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC),
		ModDate:      time.Date(2024, 3, 10, 8, 0, 0, 0, zone),
	}
	d := newDoc(t, 1)
	if err := d.SetInfo(want); err != nil {
		t.Fatal(err)
	}
	got := load(t, save(t, d), "").Info()
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Fatalf("info (-want +got):\n%s", diff)
	}
	if _, off := got.ModDate.Zone(); off != -(5*3600 + 30*60) {
		t.Fatalf("ModDate offset = %d", off)
	}
}

func TestJavaScript(t *testing.T) {
	d := newDoc(t, 1)
	if err := d.AddJavaScript("open", "app.alert('hello');"); err != nil {
		t.Fatalf("AddJavaScript: %v", err)
	}
	if err := d.AddJavaScript("init", "var x = 1;"); err != nil {
		t.Fatalf("AddJavaScript: %v", err)
	}
	err := d.AddJavaScript("broken", "function (")
	var se *scripting.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("AddJavaScript with bad source = %v, want SyntaxError", err)
	}
	if err := d.AddJavaScript("open", "app.alert('again');"); err != nil {
		t.Fatal(err)
	}

	got := load(t, save(t, d), "")
	if diff := cmp.Diff([]string{"init", "open"}, got.JavaScriptNames()); diff != "" {
		t.Fatalf("script names (-want +got):\n%s", diff)
	}
	names, ok := got.Catalog().GetDict("Names")
	if !ok {
		t.Fatal("catalog has no /Names")
	}
	js, _ := names.GetDict("JavaScript")
	leaf, _ := js.GetArray("Names")
	ref := leaf.Items[3].(raw.RefObj).R
	v, err := got.Resolve(ref)
	if err != nil {
		t.Fatal(err)
	}
	src, _ := v.(*raw.DictObj).GetString("JS")
	if string(src) != "app.alert('again');" {
		t.Fatalf("open script = %q", src)
	}
}

func TestValidate(t *testing.T) {
	d := newDoc(t, 2)
	if findings := d.Validate(); len(findings) != 0 {
		t.Fatalf("clean document has findings: %v", findings)
	}
	p, _ := d.Page(1)
	p.Dict.Delete("MediaBox")
	d.AddObject(raw.NewArray(raw.RefTo(raw.ObjectRef{Num: 500})))

	codes := map[string]bool{}
	for _, f := range d.Validate() {
		codes[f.Code] = true
	}
	for _, want := range []string{document.CodeMissingBox, document.CodeDanglingRef} {
		if !codes[want] {
			t.Errorf("missing finding %s in %v", want, codes)
		}
	}
	if codes[document.CodeEmptyTree] {
		t.Error("unexpected empty-tree finding")
	}
}

func TestDeterministicID(t *testing.T) {
	build := func() []byte {
		d := newDoc(t, 2, document.WithDeterministicID())
		if err := d.SetInfo(document.Info{Title: "Same"}); err != nil {
			t.Fatal(err)
		}
		return save(t, d)
	}
	if !bytes.Equal(build(), build()) {
		t.Fatal("identical documents saved with WithDeterministicID differ")
	}
}

func TestSaveSpans(t *testing.T) {
	rec := &observability.Recorder{}
	d := newDoc(t, 1, document.WithTracer(rec))
	save(t, d)
	if diff := cmp.Diff([]string{observability.SpanWrite, observability.SpanSave}, rec.Names()); diff != "" {
		t.Fatalf("spans (-want +got):\n%s", diff)
	}

	rec = &observability.Recorder{}
	if _, err := document.New(document.WithTracer(rec)).Save(context.Background()); err == nil {
		t.Fatal("Save of an empty document succeeded")
	}
	spans := rec.Spans()
	if len(spans) != 1 || spans[0].Name != observability.SpanSave || spans[0].Err == nil {
		t.Fatalf("failed save spans = %+v", spans)
	}
}
