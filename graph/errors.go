package graph

import "fmt"

// ErrKind enumerates the ways a graph-level operation can fail, mirrored
// after the teacher's numeric-code-plus-switch error shape
// (common.StoreErr/common.StoreErrType) rather than a set of sentinel
// error values.
type ErrKind int

const (
	// UnknownDependency means a vertex names a dependency hash that has
	// not been admitted to the graph.
	UnknownDependency ErrKind = iota
	// DuplicateVertex means a vertex with this hash is already present.
	DuplicateVertex
	// NoCommonAncestor means no vertex is an ancestor of every supplied
	// head; this should never happen once a root vertex exists, and
	// indicates a logic error rather than a user-facing condition.
	NoCommonAncestor
	// EmptyHeads means LowestCommonAncestor was called with no heads.
	EmptyHeads
)

func (k ErrKind) String() string {
	switch k {
	case UnknownDependency:
		return "unknown dependency"
	case DuplicateVertex:
		return "duplicate vertex"
	case NoCommonAncestor:
		return "no common ancestor"
	case EmptyHeads:
		return "empty heads"
	default:
		return fmt.Sprintf("ErrKind(%d)", int(k))
	}
}

// Error is a GraphError: failures that arise from the shape of the graph
// itself (bad dependency references, duplicate insertion) as opposed to
// vertex content validation, which lives in the engine package.
type Error struct {
	Kind ErrKind
	Hash string
}

func (e Error) Error() string {
	return fmt.Sprintf("graph: %s: %s", e.Kind, e.Hash)
}

// Is reports whether err is a graph Error of the given kind.
func Is(err error, kind ErrKind) bool {
	ge, ok := err.(Error)
	return ok && ge.Kind == kind
}
