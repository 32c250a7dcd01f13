package document

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
)

type slotState uint8

const (
	slotUnused slotState = iota
	slotLive
	// slotRemoved numbers stay out of circulation until a full rewrite.
	slotRemoved
	// slotFree numbers may be handed out again.
	slotFree
)

type slot struct {
	value raw.Object
	gen   int
	state slotState
	// reported is set once a removal has been written as a free entry.
	reported bool
}

// arena owns every indirect object of a document, indexed by object number.
// Slot 0 is the head of the free list and never holds an object.
type arena struct {
	slots    []slot
	free     []int
	modified *bitset.BitSet
}

func newArena() *arena {
	return &arena{slots: make([]slot, 1), modified: bitset.New(64)}
}

// add stores value under a fresh identity, reusing a reclaimed number when
// one is available.
func (a *arena) add(value raw.Object) raw.ObjectRef {
	if value == nil {
		value = raw.NullObj{}
	}
	var num int
	if n := len(a.free); n > 0 {
		num = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		num = len(a.slots)
		a.slots = append(a.slots, slot{})
	}
	s := &a.slots[num]
	s.value, s.state, s.reported = value, slotLive, false
	a.modified.Set(uint(num))
	return raw.ObjectRef{Num: num, Gen: s.gen}
}

// load installs an object read from a file without marking it modified.
func (a *arena) load(ref raw.ObjectRef, value raw.Object) {
	a.grow(ref.Num)
	a.slots[ref.Num] = slot{value: value, gen: ref.Gen, state: slotLive}
}

func (a *arena) grow(num int) {
	if num < len(a.slots) {
		return
	}
	slots := make([]slot, num+1)
	copy(slots, a.slots)
	a.slots = slots
}

func (a *arena) set(ref raw.ObjectRef, value raw.Object) error {
	s, err := a.live(ref)
	if err != nil {
		return err
	}
	if value == nil {
		value = raw.NullObj{}
	}
	s.value = value
	a.modified.Set(uint(ref.Num))
	return nil
}

func (a *arena) get(ref raw.ObjectRef) (raw.Object, error) {
	s, err := a.live(ref)
	if err != nil {
		return nil, err
	}
	return s.value, nil
}

func (a *arena) live(ref raw.ObjectRef) (*slot, error) {
	if ref.Num < 1 || ref.Num >= len(a.slots) {
		return nil, fmt.Errorf("%w: %v", ErrObjectNotFound, ref)
	}
	s := &a.slots[ref.Num]
	if s.state != slotLive || s.gen != ref.Gen {
		return nil, fmt.Errorf("%w: %v", ErrObjectNotFound, ref)
	}
	return s, nil
}

func (a *arena) ref(num int) (raw.ObjectRef, bool) {
	if num < 1 || num >= len(a.slots) || a.slots[num].state != slotLive {
		return raw.ObjectRef{}, false
	}
	return raw.ObjectRef{Num: num, Gen: a.slots[num].gen}, true
}

func (a *arena) remove(num int) error {
	ref, ok := a.ref(num)
	if !ok {
		return fmt.Errorf("%w: object %d", ErrObjectNotFound, num)
	}
	s := &a.slots[ref.Num]
	s.value, s.state, s.reported = nil, slotRemoved, false
	a.modified.Clear(uint(num))
	return nil
}

// liveRefs returns every live identity in ascending order.
func (a *arena) liveRefs() []raw.ObjectRef {
	var out []raw.ObjectRef
	for num := 1; num < len(a.slots); num++ {
		if a.slots[num].state == slotLive {
			out = append(out, raw.ObjectRef{Num: num, Gen: a.slots[num].gen})
		}
	}
	return out
}

// modifiedRefs returns live identities changed since the last save.
func (a *arena) modifiedRefs() []raw.ObjectRef {
	var out []raw.ObjectRef
	for i, ok := a.modified.NextSet(0); ok; i, ok = a.modified.NextSet(i + 1) {
		if ref, live := a.ref(int(i)); live {
			out = append(out, ref)
		}
	}
	return out
}

// removedRefs lists removals not yet written as free entries. With all set,
// removals already reported by an incremental save are included too.
func (a *arena) removedRefs(all bool) []raw.ObjectRef {
	var out []raw.ObjectRef
	for num := 1; num < len(a.slots); num++ {
		s := a.slots[num]
		if s.state == slotRemoved && (all || !s.reported) {
			out = append(out, raw.ObjectRef{Num: num, Gen: s.gen})
		}
	}
	return out
}

// afterFullSave releases removed numbers for reuse with a bumped generation.
func (a *arena) afterFullSave() {
	for num := 1; num < len(a.slots); num++ {
		s := &a.slots[num]
		if s.state != slotRemoved {
			continue
		}
		s.state, s.reported = slotFree, true
		if s.gen < raw.MaxGeneration {
			s.gen++
			a.free = append(a.free, num)
		}
	}
	a.modified.ClearAll()
}

func (a *arena) afterIncrementalSave() {
	for num := 1; num < len(a.slots); num++ {
		if a.slots[num].state == slotRemoved {
			a.slots[num].reported = true
		}
	}
	a.modified.ClearAll()
}

// size is one past the highest object number ever allocated.
func (a *arena) size() int { return len(a.slots) }
