package raw

import (
	"errors"
	"testing"
)

func TestNewObjectRef(t *testing.T) {
	if _, err := NewObjectRef(0, 0); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("object 0: expected ErrInvalidIdentity, got %v", err)
	}
	if _, err := NewObjectRef(3, -1); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("negative generation: expected ErrInvalidIdentity, got %v", err)
	}
	ref, err := NewObjectRef(12, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.String() != "12 2 R" {
		t.Fatalf("unexpected ref string %q", ref.String())
	}
}

func TestDictKeepsInsertionOrder(t *testing.T) {
	d := Dict()
	d.Set("Type", NameLiteral("Page"))
	d.Set("Parent", Ref(2, 0))
	d.Set("MediaBox", NewArray(NumberInt(0), NumberInt(0), NumberInt(612), NumberInt(792)))
	d.Set("Type", NameLiteral("Pages"))
	d.Delete("Parent")

	keys := d.Keys()
	if len(keys) != 2 || keys[0] != "Type" || keys[1] != "MediaBox" {
		t.Fatalf("unexpected key order %v", keys)
	}
	if name, _ := d.GetName("Type"); name != "Pages" {
		t.Fatalf("overwrite lost: %q", name)
	}

	clone := d.Clone()
	clone.Set("Count", NumberInt(1))
	if d.Len() != 2 {
		t.Fatalf("clone mutated the original")
	}
}

func TestDictLiteralKeysAreSorted(t *testing.T) {
	d := &DictObj{KV: map[string]Object{"b": NullObj{}, "a": NullObj{}}}
	keys := d.Keys()
	if keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("expected sorted fallback order, got %v", keys)
	}
}

func TestSerialize(t *testing.T) {
	d := Dict()
	d.Set("Type", NameLiteral("Catalog"))
	d.Set("Pages", Ref(2, 0))
	d.Set("Title", Str([]byte("a(b)\\c\r\n")))
	d.Set("ID", HexStr([]byte{0xDE, 0xAD}))
	d.Set("Scale", NumberFloat(1.50))
	d.Set("Neg", NumberFloat(-0.0))
	d.Set("Flags", NewArray(Bool(true), NullObj{}, NumberInt(-3)))
	d.Set("Odd Name", NameLiteral("A#B/C"))

	got := string(Serialize(d))
	want := `<</Type /Catalog/Pages 2 0 R/Title (a\(b\)\\c\r\n)/ID <DEAD>/Scale 1.5/Neg 0/Flags [true null -3]/Odd#20Name /A#23B#2FC>>`
	if got != want {
		t.Fatalf("serialize mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestSerializeStream(t *testing.T) {
	s := NewStream(nil, []byte("BT ET"))
	got := string(Serialize(s))
	want := "<</Length 5>>\nstream\nBT ET\nendstream"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{
		0:          "0",
		1:          "1",
		2.5:        "2.5",
		-0.25:      "-0.25",
		100.0:      "100",
		0.000001:   "0.000001",
		1234567.75: "1234567.75",
		1e21:       "1000000000000000000000",
	}
	for in, want := range cases {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestEqual(t *testing.T) {
	a := Dict()
	a.Set("A", NumberInt(1))
	a.Set("B", NewArray(Str([]byte("x"))))
	b := Dict()
	b.Set("B", NewArray(HexStr([]byte("x"))))
	b.Set("A", NumberFloat(1))
	if !Equal(a, b) {
		t.Fatalf("expected dictionaries to be equal")
	}
	b.Set("C", NullObj{})
	if Equal(a, b) {
		t.Fatalf("expected dictionaries to differ")
	}
	if Equal(Ref(1, 0), Ref(1, 1)) {
		t.Fatalf("references with different generations compared equal")
	}
}

func TestReferences(t *testing.T) {
	d := Dict()
	d.Set("Kids", NewArray(Ref(3, 0), Ref(4, 0)))
	d.Set("Parent", Ref(1, 0))
	refs := References(d)
	if len(refs) != 3 || refs[0].Num != 3 || refs[2].Num != 1 {
		t.Fatalf("unexpected refs %v", refs)
	}
}
