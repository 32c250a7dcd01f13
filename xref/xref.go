package xref

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// ErrReservedObject is returned when a caller tries to register object 0,
// which is always the head of the free list.
var ErrReservedObject = errors.New("xref: object 0 is reserved")

// Entry is one cross-reference record. For free entries Offset is unused on
// input; Serialize links free entries into a list.
type Entry struct {
	Offset int64
	Gen    int
	Free   bool
}

// Table maps object numbers to their cross-reference entries.
type Table struct {
	entries map[int]Entry
	next    int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[int]Entry), next: 1}
}

// AddEntry records e for num, replacing any previous entry.
func (t *Table) AddEntry(num int, e Entry) error {
	if num == 0 {
		return ErrReservedObject
	}
	if num < 0 || e.Gen < 0 || e.Gen > 65535 || e.Offset < 0 {
		return fmt.Errorf("xref: invalid entry %d %d", num, e.Gen)
	}
	t.entries[num] = e
	return nil
}

// Entry returns the entry for num.
func (t *Table) Entry(num int) (Entry, bool) {
	e, ok := t.entries[num]
	return e, ok
}

// Lookup returns the offset and generation of an in-use object.
func (t *Table) Lookup(objNum int) (offset int64, gen int, found bool) {
	e, ok := t.entries[objNum]
	if !ok || e.Free {
		return 0, 0, false
	}
	return e.Offset, e.Gen, true
}

// Free marks num as free and bumps its generation for the next reuse.
func (t *Table) Free(num int) {
	e, ok := t.entries[num]
	if !ok {
		return
	}
	if !e.Free && e.Gen < 65535 {
		e.Gen++
	}
	e.Free = true
	e.Offset = 0
	t.entries[num] = e
}

// NextObjectNumber allocates an object number greater than every number the
// table has seen or handed out. Numbers are never handed out twice.
func (t *Table) NextObjectNumber() int {
	n := t.next
	if m := t.maxNum() + 1; m > n {
		n = m
	}
	t.next = n + 1
	return n
}

// Objects returns the numbers of all entries in ascending order.
func (t *Table) Objects() []int {
	out := make([]int, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of entries, excluding the object 0 head.
func (t *Table) Len() int { return len(t.entries) }

// Size is the trailer /Size value: one more than the highest object number.
func (t *Table) Size() int { return t.maxNum() + 1 }

// Merge copies entries from older that t does not already define, so that
// newer sections shadow older ones.
func (t *Table) Merge(older *Table) {
	for num, e := range older.entries {
		if _, ok := t.entries[num]; !ok {
			t.entries[num] = e
		}
	}
}

func (t *Table) Type() string { return "table" }

func (t *Table) maxNum() int {
	maxN := 0
	for k := range t.entries {
		if k > maxN {
			maxN = k
		}
	}
	return maxN
}

// Serialize renders the table as a classic xref section: the keyword, then
// one subsection per run of consecutive object numbers. Object 0 is always
// emitted as the free-list head and every entry line is exactly 20 bytes.
func (t *Table) Serialize() []byte {
	present := bitset.New(uint(t.maxNum() + 1))
	present.Set(0)
	var free []int
	for num, e := range t.entries {
		present.Set(uint(num))
		if e.Free {
			free = append(free, num)
		}
	}
	sort.Ints(free)
	nextFree := make(map[int]int, len(free)+1)
	prev := 0
	for _, num := range free {
		nextFree[prev] = num
		prev = num
	}
	nextFree[prev] = 0

	out := make([]byte, 0, 32+20*(len(t.entries)+1))
	out = append(out, "xref\n"...)
	for start, ok := present.NextSet(0); ok; {
		end := start
		for present.Test(end + 1) {
			end++
		}
		out = fmt.Appendf(out, "%d %d\n", start, end-start+1)
		for num := start; num <= end; num++ {
			if num == 0 {
				out = fmt.Appendf(out, "%010d 65535 f\r\n", nextFree[0])
				continue
			}
			e := t.entries[int(num)]
			if e.Free {
				out = fmt.Appendf(out, "%010d %05d f\r\n", nextFree[int(num)], e.Gen)
				continue
			}
			out = fmt.Appendf(out, "%010d %05d n\r\n", e.Offset, e.Gen)
		}
		start, ok = present.NextSet(end + 1)
	}
	return out
}
