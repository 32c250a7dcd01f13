package raw

import (
	"errors"
	"fmt"
)

// ErrInvalidIdentity is returned when an object number is below 1 or a
// generation is negative.
var ErrInvalidIdentity = errors.New("raw: invalid object identity")

// MaxGeneration is the largest generation number a cross-reference entry can hold.
const MaxGeneration = 65535

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

// NewObjectRef validates and returns an object identity.
func NewObjectRef(num, gen int) (ObjectRef, error) {
	if num < 1 || gen < 0 || gen > MaxGeneration {
		return ObjectRef{}, fmt.Errorf("%w: %d %d", ErrInvalidIdentity, num, gen)
	}
	return ObjectRef{Num: num, Gen: gen}, nil
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// IsZero reports whether r is the unset reference.
func (r ObjectRef) IsZero() bool { return r.Num == 0 }

// Object is the closed set of PDF values. Only types in this package
// implement it.
type Object interface {
	Type() string
	IsIndirect() bool
	sealed()
}

// IndirectObject owns one value under one identity.
type IndirectObject struct {
	Ref   ObjectRef
	Value Object
}

// NewIndirect wraps value under ref.
func NewIndirect(ref ObjectRef, value Object) IndirectObject {
	if value == nil {
		value = NullObj{}
	}
	return IndirectObject{Ref: ref, Value: value}
}

// Resolver loads indirect objects by reference.
type Resolver interface {
	Resolve(ref ObjectRef) (Object, error)
}

// Document is the parsed view of a PDF file: its trailer, the identities
// listed by the cross-reference chain, and a resolver that loads objects on
// demand.
type Document struct {
	Version   string // e.g., "1.7"
	Trailer   *DictObj
	Root      ObjectRef
	Info      ObjectRef
	Encrypt   ObjectRef
	ID        [][]byte
	Size      int
	Refs      []ObjectRef
	StartXRef int64
	Data      []byte

	Encrypted   bool
	Permissions int32
	Algorithm   string

	Loader Resolver
}

// Get resolves ref through the document loader.
func (d *Document) Get(ref ObjectRef) (Object, error) {
	if d.Loader == nil {
		return nil, errors.New("raw: document has no loader")
	}
	return d.Loader.Resolve(ref)
}

// Deref follows obj when it is a reference and returns the target.
func (d *Document) Deref(obj Object) (Object, error) {
	if ref, ok := obj.(RefObj); ok {
		return d.Get(ref.R)
	}
	return obj, nil
}
