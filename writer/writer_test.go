package writer_test

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/VibePDF/VibePDF-sub001/filters"
	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/parser"
	"github.com/VibePDF/VibePDF-sub001/security"
	"github.com/VibePDF/VibePDF-sub001/writer"
)

const content = "BT /F1 24 Tf 72 720 Td (Hello, world) Tj ET"

func sampleInput() writer.Input {
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
	page.Set("MediaBox", raw.NewArray(raw.NumberInt(0), raw.NumberInt(0), raw.NumberFloat(595.28), raw.NumberFloat(841.89)))
	page.Set("Contents", raw.Ref(4, 0))

	info := raw.Dict()
	info.Set("Title", raw.Str([]byte("Sample (1)")))

	// deliberately out of order
	return writer.Input{
		Objects: []raw.IndirectObject{
			{Ref: raw.ObjectRef{Num: 4}, Value: raw.NewStream(nil, []byte(content))},
			{Ref: raw.ObjectRef{Num: 1}, Value: catalog},
			{Ref: raw.ObjectRef{Num: 3}, Value: page},
			{Ref: raw.ObjectRef{Num: 2}, Value: pages},
			{Ref: raw.ObjectRef{Num: 5}, Value: info},
		},
		Root: raw.ObjectRef{Num: 1},
		Info: raw.ObjectRef{Num: 5},
		ID:   [][]byte{[]byte("0123456789abcdef"), []byte("0123456789abcdef")},
	}
}

func parse(t *testing.T, data []byte, password string) *raw.Document {
	t.Helper()
	doc, err := parser.Parse(context.Background(), data, parser.Config{Password: password})
	if err != nil {
		t.Fatalf("parse: %v\n%s", err, data)
	}
	return doc
}

func decoded(t *testing.T, doc *raw.Document, num int) []byte {
	t.Helper()
	obj, err := doc.Get(raw.ObjectRef{Num: num})
	if err != nil {
		t.Fatal(err)
	}
	st, ok := obj.(*raw.StreamObj)
	if !ok {
		t.Fatalf("object %d is %T", num, obj)
	}
	out, err := doc.Loader.(*parser.ObjectLoader).DecodeStream(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestWriteRoundTrip(t *testing.T) {
	in := sampleInput()
	data, err := writer.New(writer.Config{}).Write(context.Background(), in)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n")) {
		t.Fatalf("bad header: %q", data[:20])
	}
	if !bytes.HasSuffix(data, []byte("%%EOF\n")) {
		t.Fatalf("missing footer")
	}
	doc := parse(t, data, "")
	if len(doc.Refs) != 5 {
		t.Fatalf("refs = %v", doc.Refs)
	}
	for _, obj := range in.Objects {
		if _, isStream := obj.Value.(*raw.StreamObj); isStream {
			continue
		}
		got, err := doc.Get(obj.Ref)
		if err != nil {
			t.Fatal(err)
		}
		if !raw.Equal(got, obj.Value) {
			t.Errorf("object %v: got %s want %s", obj.Ref, raw.Serialize(got), raw.Serialize(obj.Value))
		}
	}
	if got := decoded(t, doc, 4); string(got) != content {
		t.Fatalf("content = %q", got)
	}
	if n, _ := doc.Trailer.GetInt("Size"); n != 6 {
		t.Fatalf("/Size = %d", n)
	}
	if diff := doc.Info; diff != (raw.ObjectRef{Num: 5}) {
		t.Fatalf("/Info = %v", diff)
	}
}

func TestWriteDoesNotMutateInput(t *testing.T) {
	in := sampleInput()
	st := in.Objects[0].Value.(*raw.StreamObj)
	if _, err := writer.New(writer.Config{}).Write(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	if _, ok := st.Dict.Get("Filter"); ok || string(st.Data) != content {
		t.Fatalf("input stream was modified")
	}
}

var xrefLine = regexp.MustCompile(`^\d{10} \d{5} [nf]\r\n$`)

func TestXRefLinesAreTwentyBytes(t *testing.T) {
	data, err := writer.New(writer.Config{}).Write(context.Background(), sampleInput())
	if err != nil {
		t.Fatal(err)
	}
	i := bytes.LastIndex(data, []byte("\nxref\n")) + 1
	j := bytes.LastIndex(data, []byte("trailer"))
	body := data[i+len("xref\n") : j]
	if !bytes.HasPrefix(body, []byte("0 6\n")) {
		t.Fatalf("subsection header = %q", body[:8])
	}
	body = body[len("0 6\n"):]
	if len(body) != 6*20 {
		t.Fatalf("xref body is %d bytes, want %d", len(body), 6*20)
	}
	for k := 0; k < 6; k++ {
		line := string(body[k*20 : (k+1)*20])
		if !xrefLine.MatchString(line) {
			t.Fatalf("line %d malformed: %q", k, line)
		}
	}
	if !strings.HasPrefix(string(body), "0000000000 65535 f\r\n") {
		t.Fatalf("object 0 head missing")
	}
	// each in-use offset points at its object header
	doc := parse(t, data, "")
	for _, ref := range doc.Refs {
		if _, err := doc.Get(ref); err != nil {
			t.Fatalf("object %v: %v", ref, err)
		}
	}
}

func TestWriteFilters(t *testing.T) {
	tests := []struct {
		filter string
		data   []byte
		want   string
	}{
		{filters.None, []byte(content), ""},
		{filters.FlateDecode, []byte(content), filters.FlateDecode},
		{filters.ASCIIHexDecode, []byte(content), filters.ASCIIHexDecode},
		{filters.ASCII85Decode, []byte(content), filters.ASCII85Decode},
		{filters.LZWDecode, []byte(content), filters.LZWDecode},
		{writer.FilterAuto, bytes.Repeat([]byte{0xAA}, 400), filters.RunLengthDecode},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			in := sampleInput()
			in.Objects[0].Value = raw.NewStream(nil, tt.data)
			data, err := writer.New(writer.Config{Filter: tt.filter}).Write(context.Background(), in)
			if err != nil {
				t.Fatal(err)
			}
			doc := parse(t, data, "")
			obj, _ := doc.Get(raw.ObjectRef{Num: 4})
			st := obj.(*raw.StreamObj)
			name, _ := st.Dict.GetName("Filter")
			if name != tt.want {
				t.Fatalf("/Filter = %q, want %q", name, tt.want)
			}
			if n, _ := st.Dict.GetInt("Length"); n != int64(len(st.Data)) {
				t.Fatalf("/Length %d does not match %d data bytes", n, len(st.Data))
			}
			if got := decoded(t, doc, 4); !bytes.Equal(got, tt.data) {
				t.Fatalf("decoded stream differs")
			}
		})
	}
}

func TestWriteKeepsExistingFilter(t *testing.T) {
	hex, err := filters.Encode(context.Background(), []byte(content), filters.ASCIIHexDecode)
	if err != nil {
		t.Fatal(err)
	}
	d := raw.Dict()
	d.Set("Filter", raw.NameLiteral(filters.ASCIIHexDecode))
	in := sampleInput()
	in.Objects[0].Value = raw.NewStream(d, hex)
	data, err := writer.New(writer.Config{}).Write(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, hex) {
		t.Fatalf("pre-encoded stream was re-encoded")
	}
}

func TestWriteEncrypted(t *testing.T) {
	in := sampleInput()
	enc, err := security.NewEncryption(security.Options{Algorithm: security.AES_256, UserPassword: "secret"}, in.ID[0])
	if err != nil {
		t.Fatal(err)
	}
	in.Security = enc.Handler
	in.Encrypt = &raw.IndirectObject{Ref: raw.ObjectRef{Num: 6}, Value: enc.Dict}
	data, err := writer.New(writer.Config{Filter: filters.None}).Write(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte("Hello, world")) || bytes.Contains(data, []byte("Sample")) {
		t.Fatalf("plaintext leaked into the encrypted file")
	}
	if !bytes.Contains(data, []byte("/Encrypt 6 0 R")) {
		t.Fatalf("trailer lacks /Encrypt")
	}
	doc := parse(t, data, "secret")
	if got := decoded(t, doc, 4); string(got) != content {
		t.Fatalf("content = %q", got)
	}
	info, _ := doc.Get(raw.ObjectRef{Num: 5})
	if title, _ := info.(*raw.DictObj).GetString("Title"); string(title) != "Sample (1)" {
		t.Fatalf("title = %q", title)
	}
	encObj, _ := doc.Get(raw.ObjectRef{Num: 6})
	if !raw.Equal(encObj, enc.Dict) {
		t.Fatalf("/Encrypt dictionary was altered")
	}
	if !bytes.Equal(doc.ID[0], in.ID[0]) {
		t.Fatalf("/ID not written in clear")
	}
}

func TestWriteErrors(t *testing.T) {
	in := sampleInput()
	in.Root = raw.ObjectRef{}
	if _, err := writer.New(writer.Config{}).Write(context.Background(), in); !errors.Is(err, writer.ErrNoRoot) {
		t.Fatalf("no root error = %v", err)
	}
	in = sampleInput()
	in.Objects = append(in.Objects, raw.IndirectObject{Ref: raw.ObjectRef{Num: 2}, Value: raw.NullObj{}})
	if _, err := writer.New(writer.Config{}).Write(context.Background(), in); !errors.Is(err, writer.ErrDuplicateObject) {
		t.Fatalf("duplicate error = %v", err)
	}
	in = sampleInput()
	in.Objects = append(in.Objects, raw.IndirectObject{Ref: raw.ObjectRef{Num: 0}, Value: raw.NullObj{}})
	if _, err := writer.New(writer.Config{}).Write(context.Background(), in); !errors.Is(err, raw.ErrInvalidIdentity) {
		t.Fatalf("object 0 error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := writer.New(writer.Config{}).Write(ctx, sampleInput()); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled write error = %v", err)
	}
}

type countingInterceptor struct {
	before, after int
	bytes         int64
}

func (c *countingInterceptor) BeforeWrite(ctx context.Context, ref raw.ObjectRef, obj raw.Object) error {
	c.before++
	return nil
}

func (c *countingInterceptor) AfterWrite(ctx context.Context, ref raw.ObjectRef, n int64) error {
	c.after++
	c.bytes += n
	return nil
}

type rejectInterceptor struct{}

var errRejected = errors.New("rejected")

func (rejectInterceptor) BeforeWrite(ctx context.Context, ref raw.ObjectRef, obj raw.Object) error {
	if ref.Num == 3 {
		return errRejected
	}
	return nil
}
func (rejectInterceptor) AfterWrite(context.Context, raw.ObjectRef, int64) error { return nil }

func TestInterceptors(t *testing.T) {
	ic := &countingInterceptor{}
	w := (&writer.WriterBuilder{}).WithInterceptor(ic).Build()
	if _, err := w.Write(context.Background(), sampleInput()); err != nil {
		t.Fatal(err)
	}
	if ic.before != 5 || ic.after != 5 || ic.bytes == 0 {
		t.Fatalf("interceptor saw before=%d after=%d bytes=%d", ic.before, ic.after, ic.bytes)
	}
	w = (&writer.WriterBuilder{}).WithInterceptor(rejectInterceptor{}).Build()
	if _, err := w.Write(context.Background(), sampleInput()); !errors.Is(err, errRejected) {
		t.Fatalf("interceptor error = %v", err)
	}
}

func TestIncrementalUpdate(t *testing.T) {
	in := sampleInput()
	original, err := writer.New(writer.Config{}).Write(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	base := parse(t, original, "")

	pages := raw.Dict()
	pages.Set("Type", raw.NameLiteral("Pages"))
	pages.Set("Kids", raw.NewArray(raw.Ref(3, 0)))
	pages.Set("Count", raw.NumberInt(1))
	pages.Set("Rotate", raw.NumberInt(90))
	note := raw.Dict()
	note.Set("Note", raw.Str([]byte("added")))

	iw := writer.NewIncremental(writer.Config{}, original, base.StartXRef, base.Size)
	delta, err := iw.WriteIncremental(context.Background(), writer.Input{
		Objects: []raw.IndirectObject{
			{Ref: raw.ObjectRef{Num: 2}, Value: pages},
			{Ref: raw.ObjectRef{Num: 7}, Value: note},
		},
		Freed: []raw.ObjectRef{{Num: 5}},
		Root:  in.Root,
		ID:    in.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(delta, []byte("1 0 obj")) {
		t.Fatalf("unmodified object rewritten in delta")
	}
	full := append(append([]byte{}, original...), delta...)
	appended, err := iw.Append(context.Background(), writer.Input{
		Objects: []raw.IndirectObject{
			{Ref: raw.ObjectRef{Num: 2}, Value: pages},
			{Ref: raw.ObjectRef{Num: 7}, Value: note},
		},
		Freed: []raw.ObjectRef{{Num: 5}},
		Root:  in.Root,
		ID:    in.ID,
	})
	if err != nil || !bytes.Equal(appended, full) {
		t.Fatalf("Append differs from original+delta (err %v)", err)
	}

	doc := parse(t, full, "")
	if prev, _ := doc.Trailer.GetInt("Prev"); prev != base.StartXRef {
		t.Fatalf("/Prev = %d, want %d", prev, base.StartXRef)
	}
	if size, _ := doc.Trailer.GetInt("Size"); size != 8 {
		t.Fatalf("/Size = %d, want 8", size)
	}
	got, err := doc.Get(raw.ObjectRef{Num: 2})
	if err != nil {
		t.Fatal(err)
	}
	if r, _ := got.(*raw.DictObj).GetInt("Rotate"); r != 90 {
		t.Fatalf("object 2 not updated")
	}
	if _, err := doc.Get(raw.ObjectRef{Num: 7}); err != nil {
		t.Fatalf("new object: %v", err)
	}
	if _, err := doc.Get(raw.ObjectRef{Num: 5}); !errors.Is(err, parser.ErrNotFound) {
		t.Fatalf("freed object still resolvable: %v", err)
	}
	if got := decoded(t, doc, 4); string(got) != content {
		t.Fatalf("untouched stream lost: %q", got)
	}
}

func TestIncrementalNeedsOriginal(t *testing.T) {
	iw := writer.NewIncremental(writer.Config{}, nil, 0, 0)
	if _, err := iw.WriteIncremental(context.Background(), sampleInput()); !errors.Is(err, writer.ErrNoOriginal) {
		t.Fatalf("error = %v", err)
	}
}
