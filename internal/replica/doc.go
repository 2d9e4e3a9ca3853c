// Package replica is the replicated-data substrate: named
// last-writer-wins maps and named ordered lists whose mutations merge
// across independent replicas without coordination. Two replicas that
// exchange their full op logs converge on the same value regardless of
// delivery order, and every merge notifies local subscribers with a
// fully merged snapshot.
package replica

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// Direction selects a neighbor for list moves.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Doc is one replica of a replicated document: a set of named maps and
// ordered lists, a Lamport clock, and the op log. All reads and writes
// go through the local replica and never block on the network.
type Doc struct {
	mu    sync.RWMutex
	site  string
	clock Clock
	maps  map[string]*lwwMap
	lists map[string]*orderedList
	seen  map[string]bool
	ops   []Op

	subs    []func()
	onLocal func([]Op)
}

// NewDoc creates an empty replica with a fresh site id.
func NewDoc() *Doc {
	return &Doc{
		site:  uuid.NewString(),
		maps:  make(map[string]*lwwMap),
		lists: make(map[string]*orderedList),
		seen:  make(map[string]bool),
	}
}

// Site returns this replica's unique site id.
func (d *Doc) Site() string {
	return d.site
}

// Subscribe registers a callback fired after any local or remote
// mutation has fully merged.
func (d *Doc) Subscribe(fn func()) {
	d.mu.Lock()
	d.subs = append(d.subs, fn)
	d.mu.Unlock()
}

// SetOnLocalOps registers the hook the sync layer uses to ship local
// ops to peers. Called outside the doc lock.
func (d *Doc) SetOnLocalOps(fn func([]Op)) {
	d.mu.Lock()
	d.onLocal = fn
	d.mu.Unlock()
}

// Ops returns a snapshot of the full op log, used to bring a late
// joiner up to date.
func (d *Doc) Ops() []Op {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Op, len(d.ops))
	copy(out, d.ops)
	return out
}

// SetKey writes value under key in the named map.
func (d *Doc) SetKey(name, key, value string) {
	d.localOp(Op{Kind: OpMapSet, Name: name, Key: key, Value: value})
}

// DeleteKey tombstones key in the named map.
func (d *Doc) DeleteKey(name, key string) {
	d.localOp(Op{Kind: OpMapDelete, Name: name, Key: key})
}

// GetKey reads key from the named map.
func (d *Doc) GetKey(name, key string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.maps[name]
	if !ok {
		return "", false
	}
	return m.get(key)
}

// Keys returns the live keys of the named map in sorted order.
func (d *Doc) Keys(name string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.maps[name]
	if !ok {
		return nil
	}
	return m.keys()
}

// ListInsertAt places id at index in the named list. Indexes outside
// the current bounds clamp to the ends.
func (d *Doc) ListInsertAt(name, id string, index int) {
	d.mu.Lock()
	l := d.listLocked(name)
	pos := l.keyForInsert(index)
	d.mu.Unlock()
	d.localOp(Op{Kind: OpListSet, Name: name, Key: id, Value: pos})
}

// ListAppend places id after the current last element.
func (d *Doc) ListAppend(name, id string) {
	d.ListInsertAt(name, id, int(^uint(0)>>1))
}

// ListRemove tombstones id in the named list. No-op if absent.
func (d *Doc) ListRemove(name, id string) {
	d.mu.RLock()
	l, ok := d.lists[name]
	present := ok && !l.entries[id].deleted && l.entries[id].value != ""
	d.mu.RUnlock()
	if !present {
		return
	}
	d.localOp(Op{Kind: OpListSet, Name: name, Key: id})
}

// ListMove swaps id with its immediate neighbor in the given direction
// by rewriting its position key. No-op at the boundary or for unknown
// ids.
func (d *Doc) ListMove(name, id string, dir Direction) {
	d.mu.Lock()
	l, ok := d.lists[name]
	if !ok {
		d.mu.Unlock()
		return
	}
	ids := l.order()
	idx := -1
	for i, v := range ids {
		if v == id {
			idx = i
			break
		}
	}
	var pos string
	switch {
	case idx < 0:
		d.mu.Unlock()
		return
	case dir == Up && idx < len(ids)-1:
		// Land between the next element and the one after it.
		pos = keyBetween(l.posAt(ids, idx+1), l.posAt(ids, idx+2))
	case dir == Down && idx > 0:
		// Land between the previous element and the one before it.
		pos = keyBetween(l.posAt(ids, idx-2), l.posAt(ids, idx-1))
	default:
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	d.localOp(Op{Kind: OpListSet, Name: name, Key: id, Value: pos})
}

// ListOrder returns the named list's live ids in order.
func (d *Doc) ListOrder(name string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.lists[name]
	if !ok {
		return nil
	}
	return l.order()
}

// Apply merges remote ops into this replica. Redelivered ops are
// dropped by id; losing writes are dropped by the per-register
// last-writer-wins rule. Subscribers fire once, after the whole batch
// has merged.
func (d *Doc) Apply(ops []Op) {
	d.mu.Lock()
	merged := 0
	for _, op := range ops {
		if d.seen[op.ID()] {
			continue
		}
		d.seen[op.ID()] = true
		d.clock.Witness(op.Lamport)
		d.applyLocked(op)
		d.ops = append(d.ops, op)
		merged++
	}
	subs := d.subscribersLocked()
	d.mu.Unlock()

	if merged == 0 {
		return
	}
	log.Printf("[replica] merged %d remote op(s)", merged)
	for _, fn := range subs {
		fn()
	}
}

func (d *Doc) localOp(op Op) {
	d.mu.Lock()
	op.Site = d.site
	op.Lamport = d.clock.Tick()
	d.seen[op.ID()] = true
	d.applyLocked(op)
	d.ops = append(d.ops, op)
	subs := d.subscribersLocked()
	onLocal := d.onLocal
	d.mu.Unlock()

	if onLocal != nil {
		onLocal([]Op{op})
	}
	for _, fn := range subs {
		fn()
	}
}

func (d *Doc) applyLocked(op Op) {
	switch op.Kind {
	case OpMapSet, OpMapDelete:
		m, ok := d.maps[op.Name]
		if !ok {
			m = newLWWMap()
			d.maps[op.Name] = m
		}
		m.apply(op)
	case OpListSet:
		d.listLocked(op.Name).apply(op)
	}
}

func (d *Doc) listLocked(name string) *orderedList {
	l, ok := d.lists[name]
	if !ok {
		l = newOrderedList()
		d.lists[name] = l
	}
	return l
}

func (d *Doc) subscribersLocked() []func() {
	subs := make([]func(), len(d.subs))
	copy(subs, d.subs)
	return subs
}
