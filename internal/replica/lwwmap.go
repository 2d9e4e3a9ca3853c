package replica

import "sort"

// lwwEntry is one key's register: the winning value plus the timestamp
// that wrote it. Deletes keep the entry around as a tombstone so a
// concurrent older set cannot resurrect the key.
type lwwEntry struct {
	value   string
	lamport uint64
	site    string
	deleted bool
}

// lwwMap is a last-writer-wins map of string keys to string values.
// Each key is an independent register, so concurrent writes to
// different keys never conflict.
type lwwMap struct {
	entries map[string]lwwEntry
}

func newLWWMap() *lwwMap {
	return &lwwMap{entries: make(map[string]lwwEntry)}
}

// apply merges one op into the map and reports whether it changed
// anything. Losing (older) ops are dropped.
func (m *lwwMap) apply(op Op) bool {
	old, exists := m.entries[op.Key]
	if exists && !op.wins(old.lamport, old.site) {
		return false
	}
	m.entries[op.Key] = lwwEntry{
		value:   op.Value,
		lamport: op.Lamport,
		site:    op.Site,
		deleted: op.Kind == OpMapDelete,
	}
	return true
}

func (m *lwwMap) get(key string) (string, bool) {
	e, ok := m.entries[key]
	if !ok || e.deleted {
		return "", false
	}
	return e.value, true
}

func (m *lwwMap) keys() []string {
	out := make([]string, 0, len(m.entries))
	for k, e := range m.entries {
		if !e.deleted {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
