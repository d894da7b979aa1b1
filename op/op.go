// Package op defines the immutable value types that flow between the
// graph and the DRP/ACL state tracks: Operation, Kind, the semantics
// tag, and conflict-resolution verdicts.
package op

import "fmt"

// Kind distinguishes the two state tracks that run over the same
// hash graph: the embedder's DRP, and the built-in ACL (itself a DRP).
type Kind int

const (
	// DRP identifies the embedder-supplied replicated object.
	DRP Kind = iota
	// ACL identifies the access-control DRP.
	ACL
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case DRP:
		return "DRP"
	case ACL:
		return "ACL"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Semantics tags how a DRP wants concurrent operations resolved during
// linearization.
type Semantics int

const (
	// Pairwise means the resolver is invoked once per unordered pair of
	// concurrent operations and returns a DropLeft/DropRight/NoConflict
	// verdict for that pair.
	Pairwise Semantics = iota
	// Multiple means the resolver is invoked once with the full
	// concurrent set and returns an ordered (possibly reduced)
	// sub-sequence.
	Multiple
)

// String implements fmt.Stringer.
func (s Semantics) String() string {
	switch s {
	case Pairwise:
		return "PAIRWISE"
	case Multiple:
		return "MULTIPLE"
	default:
		return fmt.Sprintf("Semantics(%d)", int(s))
	}
}

// RootOpType marks the sentinel operation carried by the graph's root
// vertex. No embedder ever produces it; state reconstruction always
// filters it out before replay.
const RootOpType = "$root"

// Operation is the immutable record of one intercepted method
// invocation. OpType is a dotted path (e.g. "counter.increment") and is
// never a query_-prefixed method: queries are pass-through reads and
// never become operations.
type Operation struct {
	DRPType Kind          `codec:"drpType"`
	OpType  string        `codec:"opType"`
	Value   []interface{} `codec:"value"`
}

// New constructs an Operation. args is stored verbatim; it is the
// embedder's responsibility to keep it serializable into the canonical
// hash preimage (see the hash package).
func New(kind Kind, opType string, args ...interface{}) Operation {
	return Operation{
		DRPType: kind,
		OpType:  opType,
		Value:   args,
	}
}

// Action is the verdict a PAIRWISE resolver returns for one unordered
// pair of concurrent operations.
type Action int

const (
	// NoConflict means neither operation is dropped and no preference
	// between them is expressed.
	NoConflict Action = iota
	// DropLeft discards the first operation of the pair.
	DropLeft
	// DropRight discards the second operation of the pair.
	DropRight
)

// String implements fmt.Stringer.
func (a Action) String() string {
	switch a {
	case NoConflict:
		return "NoConflict"
	case DropLeft:
		return "DropLeft"
	case DropRight:
		return "DropRight"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Verdict is the result of invoking a PAIRWISE resolver on one pair of
// concurrent operations.
type Verdict struct {
	Action Action
}

// MultiResolver is the function signature a MULTIPLE-semantics DRP
// supplies: given the full concurrent set, return the sub-sequence
// (possibly reordered, possibly shorter) to emit.
type MultiResolver func(ops []Operation) ([]Operation, error)

// PairResolver is the function signature a PAIRWISE-semantics DRP
// supplies: given exactly two concurrent operations, return a verdict.
type PairResolver func(a, b Operation) (Verdict, error)
