package replica

import "sort"

// orderedList is a replicated ordered sequence of element ids. Each
// element owns a last-writer-wins register holding its position key, a
// fractional string that sorts lexicographically (see keyBetween).
// Insert writes a key between the neighbors, move rewrites the key, and
// delete tombstones the register. Because positions are per-element
// registers, concurrent moves of the same element converge on a single
// winner instead of duplicating the id, and concurrent inserts at the
// same spot order deterministically by (key, id).
type orderedList struct {
	entries map[string]lwwEntry // element id -> position key register
}

func newOrderedList() *orderedList {
	return &orderedList{entries: make(map[string]lwwEntry)}
}

// apply merges one list op; an empty value is a tombstone.
func (l *orderedList) apply(op Op) bool {
	old, exists := l.entries[op.Key]
	if exists && !op.wins(old.lamport, old.site) {
		return false
	}
	l.entries[op.Key] = lwwEntry{
		value:   op.Value,
		lamport: op.Lamport,
		site:    op.Site,
		deleted: op.Value == "",
	}
	return true
}

// order returns the live element ids sorted by position key.
func (l *orderedList) order() []string {
	type elem struct{ id, pos string }
	elems := make([]elem, 0, len(l.entries))
	for id, e := range l.entries {
		if !e.deleted {
			elems = append(elems, elem{id: id, pos: e.value})
		}
	}
	sort.Slice(elems, func(i, j int) bool {
		if elems[i].pos != elems[j].pos {
			return elems[i].pos < elems[j].pos
		}
		return elems[i].id < elems[j].id
	})
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = e.id
	}
	return out
}

// posAt returns the position key of the element at the given index of
// the current order, or "" when the index is out of range.
func (l *orderedList) posAt(ids []string, index int) string {
	if index < 0 || index >= len(ids) {
		return ""
	}
	return l.entries[ids[index]].value
}

// keyForInsert computes a position key that places a new element at
// index in the current order.
func (l *orderedList) keyForInsert(index int) string {
	ids := l.order()
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	return keyBetween(l.posAt(ids, index-1), l.posAt(ids, index))
}

const posDigits = "0123456789abcdefghijklmnopqrstuvwxyz"

// keyBetween returns a key strictly between a and b in byte order.
// Empty a means the low bound, empty b the high bound; a < b must hold
// otherwise. Generated keys never end in '0', so there is always room
// below any existing key.
func keyBetween(a, b string) string {
	if b != "" {
		n := 0
		for n < len(a) && n < len(b) && a[n] == b[n] {
			n++
		}
		if n > 0 {
			return b[:n] + keyBetween(a[n:], b[n:])
		}
	}
	digitA := 0
	if a != "" {
		digitA = indexDigit(a[0])
	}
	digitB := len(posDigits)
	if b != "" {
		digitB = indexDigit(b[0])
	}
	if digitB-digitA > 1 {
		return string(posDigits[(digitA+digitB)/2])
	}
	// Adjacent (or equal) leading digits: descend.
	if len(a) > 1 {
		return string(a[0]) + keyBetween(a[1:], "")
	}
	var rest string
	if b != "" {
		rest = b[1:]
	}
	return string(posDigits[digitA]) + keyBetween("", rest)
}

func indexDigit(c byte) int {
	for i := 0; i < len(posDigits); i++ {
		if posDigits[i] == c {
			return i
		}
	}
	return 0
}
