package graph

import (
	"fmt"

	"github.com/mosaicnetworks/drp/hash"
	"github.com/mosaicnetworks/drp/op"
)

// Vertex is the immutable unit of the hash graph: one intercepted
// operation, tied to its causal dependencies by hash.
type Vertex struct {
	Hash         hash.Hash
	PeerID       string
	Operation    op.Operation
	Dependencies []hash.Hash
	Timestamp    int64 // unix nanoseconds, read once at creation
	Signature    string
}

// NewVertex computes the vertex's hash from its defining fields and
// returns the fully-formed, immutable value. Signature is attached
// separately by the caller once the hash is known, since the signature
// is computed over the vertex hash, not the other way around.
func NewVertex(peerID string, operation op.Operation, deps []hash.Hash, timestampUnixNano int64) (Vertex, error) {
	depStrs := make([]string, len(deps))
	for i, d := range deps {
		depStrs[i] = d.String()
	}

	h, err := hash.Of(operation, depStrs, peerID, timestampUnixNano)
	if err != nil {
		return Vertex{}, err
	}

	return Vertex{
		Hash:         h,
		PeerID:       peerID,
		Operation:    operation,
		Dependencies: append([]hash.Hash(nil), deps...),
		Timestamp:    timestampUnixNano,
	}, nil
}

// Recompute returns the hash this vertex's fields imply, independent of
// the Hash field as stored. Vertex validation compares the two.
func (v Vertex) Recompute() (hash.Hash, error) {
	depStrs := make([]string, len(v.Dependencies))
	for i, d := range v.Dependencies {
		depStrs[i] = d.String()
	}
	return hash.Of(v.Operation, depStrs, v.PeerID, v.Timestamp)
}

// IsRoot reports whether v is the distinguished root vertex: it has no
// dependencies and carries the sentinel root operation.
func (v Vertex) IsRoot() bool {
	return len(v.Dependencies) == 0 && v.Operation.OpType == op.RootOpType
}

// newRoot builds the fixed, engine-defined root vertex. Every HashGraph
// constructed by this package produces the identical root vertex,
// because its fields never vary: empty peer id, empty deps, timestamp
// zero, sentinel operation. That determinism is exactly what lets two
// independently constructed graphs agree on the root's hash.
func newRoot() Vertex {
	v, err := NewVertex("", op.Operation{OpType: op.RootOpType}, nil, 0)
	if err != nil {
		// Hashing a nil-dependency sentinel operation cannot fail: the
		// canonical encoder only fails on unencodable values, and the
		// sentinel operation contains none.
		panic(fmt.Sprintf("graph: failed to construct root vertex: %v", err))
	}
	return v
}
