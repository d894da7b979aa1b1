package graph

import (
	"testing"

	"github.com/mosaicnetworks/drp/hash"
	"github.com/mosaicnetworks/drp/op"
)

func addOp(t *testing.T, g *HashGraph, peer string, opType string, ts int64, deps ...hash.Hash) Vertex {
	t.Helper()

	v, err := NewVertex(peer, op.New(op.DRP, opType), deps, ts)
	if err != nil {
		t.Fatalf("NewVertex: %v", err)
	}
	if err := g.AddVertex(v); err != nil {
		t.Fatalf("AddVertex: %v", err)
	}
	return v
}

func TestNewGraphHasRootOnlyFrontier(t *testing.T) {
	g := New(nil)

	if g.Len() != 1 {
		t.Fatalf("expected 1 vertex (root), got %d", g.Len())
	}

	frontier := g.GetFrontier()
	if len(frontier) != 1 || frontier[0] != g.Root() {
		t.Fatalf("expected frontier = [root], got %v", frontier)
	}
}

func TestAddVertexAdvancesFrontier(t *testing.T) {
	g := New(nil)
	root := g.Root()

	v1 := addOp(t, g, "p1", "increment", 1, root)

	frontier := g.GetFrontier()
	if len(frontier) != 1 || frontier[0] != v1.Hash {
		t.Fatalf("expected frontier = [v1], got %v", frontier)
	}

	if g.Len() != 2 {
		t.Fatalf("expected 2 vertices, got %d", g.Len())
	}
}

func TestAddVertexRejectsUnknownDependency(t *testing.T) {
	g := New(nil)

	v, err := NewVertex("p1", op.New(op.DRP, "increment"), []hash.Hash{"does-not-exist"}, 1)
	if err != nil {
		t.Fatalf("NewVertex: %v", err)
	}

	err = g.AddVertex(v)
	if !Is(err, UnknownDependency) {
		t.Fatalf("expected UnknownDependency error, got %v", err)
	}
}

func TestAddVertexRejectsDuplicate(t *testing.T) {
	g := New(nil)
	root := g.Root()
	v1 := addOp(t, g, "p1", "increment", 1, root)

	err := g.AddVertex(v1)
	if !Is(err, DuplicateVertex) {
		t.Fatalf("expected DuplicateVertex error, got %v", err)
	}
}

func TestLowestCommonAncestorSingleHead(t *testing.T) {
	g := New(nil)
	root := g.Root()
	v1 := addOp(t, g, "p1", "increment", 1, root)

	lca, subgraph, err := g.LowestCommonAncestor([]hash.Hash{v1.Hash})
	if err != nil {
		t.Fatalf("LowestCommonAncestor: %v", err)
	}
	if lca != v1.Hash {
		t.Fatalf("expected lca == v1, got %s", lca)
	}
	if len(subgraph) != 0 {
		t.Fatalf("expected empty subgraph for single head, got %v", subgraph)
	}
}

func TestLowestCommonAncestorDivergentHeads(t *testing.T) {
	g := New(nil)
	root := g.Root()

	// Two peers fork directly off root.
	a := addOp(t, g, "p1", "write", 10, root)
	b := addOp(t, g, "p2", "write", 11, root)

	lca, subgraph, err := g.LowestCommonAncestor([]hash.Hash{a.Hash, b.Hash})
	if err != nil {
		t.Fatalf("LowestCommonAncestor: %v", err)
	}
	if lca != root {
		t.Fatalf("expected lca == root, got %s", lca)
	}

	if _, ok := subgraph[a.Hash]; !ok {
		t.Fatalf("expected subgraph to contain a, got %v", subgraph)
	}
	if _, ok := subgraph[b.Hash]; !ok {
		t.Fatalf("expected subgraph to contain b, got %v", subgraph)
	}
	if len(subgraph) != 2 {
		t.Fatalf("expected subgraph of exactly {a,b}, got %v", subgraph)
	}
}

func TestLinearizeOperationsOrdersByTopologyThenResolves(t *testing.T) {
	g := New(nil)
	root := g.Root()

	a := addOp(t, g, "p1", "write.A", 10, root)
	b := addOp(t, g, "p2", "write.B", 11, root)

	resolver := Resolver{
		Semantics: op.Pairwise,
		Pair: func(x, y op.Operation) (op.Verdict, error) {
			// Deterministic: always drop write.A, whichever side of the
			// hash-ordered pair it lands on, simulating last-writer-wins
			// by opType suffix "B" beating "A".
			if x.OpType == "write.A" {
				return op.Verdict{Action: op.DropLeft}, nil
			}
			return op.Verdict{Action: op.DropRight}, nil
		},
	}
	resolverFor := func(op.Kind) Resolver { return resolver }

	_, subgraph, err := g.LowestCommonAncestor([]hash.Hash{a.Hash, b.Hash})
	if err != nil {
		t.Fatalf("LowestCommonAncestor: %v", err)
	}

	ops, err := g.LinearizeOperations(subgraph, resolverFor)
	if err != nil {
		t.Fatalf("LinearizeOperations: %v", err)
	}

	if len(ops) != 1 {
		t.Fatalf("expected exactly one survivor, got %d: %v", len(ops), ops)
	}
	if ops[0].OpType != "write.B" {
		t.Fatalf("expected write.B to survive, got %s", ops[0].OpType)
	}
}

func TestLinearizeOperationsMultipleSemantics(t *testing.T) {
	g := New(nil)
	root := g.Root()

	a := addOp(t, g, "p1", "inc", 10, root)
	b := addOp(t, g, "p2", "inc", 11, root)

	resolver := Resolver{
		Semantics: op.Multiple,
		Multi: func(ops []op.Operation) ([]op.Operation, error) {
			// Accept everything, in the order given (already hash-sorted).
			return ops, nil
		},
	}
	resolverFor := func(op.Kind) Resolver { return resolver }

	_, subgraph, err := g.LowestCommonAncestor([]hash.Hash{a.Hash, b.Hash})
	if err != nil {
		t.Fatalf("LowestCommonAncestor: %v", err)
	}

	ops, err := g.LinearizeOperations(subgraph, resolverFor)
	if err != nil {
		t.Fatalf("LinearizeOperations: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(ops))
	}
}

func TestIsAncestorSelf(t *testing.T) {
	g := New(nil)
	root := g.Root()

	if !g.IsAncestor(root, root) {
		t.Fatalf("expected root to be its own ancestor")
	}
}

func TestIsAncestorTransitive(t *testing.T) {
	g := New(nil)
	root := g.Root()
	v1 := addOp(t, g, "p1", "a", 1, root)
	v2 := addOp(t, g, "p1", "b", 2, v1.Hash)

	if !g.IsAncestor(root, v2.Hash) {
		t.Fatalf("expected root to be an ancestor of v2")
	}
	if g.IsAncestor(v2.Hash, root) {
		t.Fatalf("expected v2 to not be an ancestor of root")
	}
}
