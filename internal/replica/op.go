package replica

import "fmt"

// OpKind identifies which collection type an op mutates.
type OpKind string

const (
	// OpMapSet writes Value under Key in a named map.
	OpMapSet OpKind = "map_set"
	// OpMapDelete tombstones Key in a named map.
	OpMapDelete OpKind = "map_del"
	// OpListSet writes a list element's position key; an empty Value
	// tombstones the element.
	OpListSet OpKind = "list_set"
)

// Op is one replicated mutation. Ops are produced by local edits,
// appended to the replica log, and exchanged with peers in any order.
// (Site, Lamport) is globally unique and doubles as the last-writer-wins
// tie-break: higher Lamport wins, equal Lamports fall back to comparing
// sites, so every replica resolves a conflict the same way.
type Op struct {
	Site    string `json:"site"`
	Lamport uint64 `json:"lamport"`
	Kind    OpKind `json:"kind"`
	Name    string `json:"name"`
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
}

// ID returns the globally unique identity of the op, used to drop
// duplicates on redelivery.
func (op Op) ID() string {
	return fmt.Sprintf("%s-%d", op.Site, op.Lamport)
}

// wins reports whether this op supersedes a value written at
// (lamport, site).
func (op Op) wins(lamport uint64, site string) bool {
	if op.Lamport != lamport {
		return op.Lamport > lamport
	}
	return op.Site > site
}
