// Package graph implements the hash graph: a content-addressed DAG of
// Vertices with a frontier, causal queries (ancestor, lowest common
// ancestor over N heads), and a deterministic linearization of the
// operations implied by a causal cut.
package graph

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/drp/hash"
	"github.com/mosaicnetworks/drp/op"
)

// HashGraph is an in-memory DAG of Vertices keyed by hash. It is built
// once per ObjectEngine and grows monotonically; nothing is ever
// removed.
//
// Grounded on hashgraph.Hashgraph's shape (Store + memoized ancestor
// caches + a single logger), adapted to plain in-memory maps since
// persistence is out of scope here.
type HashGraph struct {
	vertices map[hash.Hash]Vertex
	forward  map[hash.Hash]map[hash.Hash]struct{} // dep -> children
	frontier map[hash.Hash]struct{}
	order    []hash.Hash // admission order, root first
	root     hash.Hash

	// ancestorSets memoizes the full backward-reachable set of a vertex.
	// Plain map, not an LRU: see DESIGN.md for why no cache library is
	// wired here.
	ancestorSets map[hash.Hash]map[hash.Hash]struct{}

	logger *logrus.Entry
}

// New constructs a HashGraph containing only the root vertex.
func New(logger *logrus.Entry) *HashGraph {
	if logger == nil {
		l := logrus.New()
		l.Level = logrus.DebugLevel
		logger = logrus.NewEntry(l)
	}

	root := newRoot()

	g := &HashGraph{
		vertices:     map[hash.Hash]Vertex{root.Hash: root},
		forward:      map[hash.Hash]map[hash.Hash]struct{}{},
		frontier:     map[hash.Hash]struct{}{root.Hash: {}},
		order:        []hash.Hash{root.Hash},
		root:         root.Hash,
		ancestorSets: map[hash.Hash]map[hash.Hash]struct{}{},
		logger:       logger.WithField("component", "graph"),
	}

	return g
}

// Root returns the hash of the distinguished root vertex.
func (g *HashGraph) Root() hash.Hash { return g.root }

// Len returns the number of vertices in the graph, including the root.
func (g *HashGraph) Len() int { return len(g.vertices) }

// GetVertex returns the vertex stored at h, if any.
func (g *HashGraph) GetVertex(h hash.Hash) (Vertex, bool) {
	v, ok := g.vertices[h]
	return v, ok
}

// Has reports whether h is already present in the graph.
func (g *HashGraph) Has(h hash.Hash) bool {
	_, ok := g.vertices[h]
	return ok
}

// AllVertices returns every vertex in admission order (root first), for
// callers that need a stable enumeration of the whole graph.
func (g *HashGraph) AllVertices() []Vertex {
	out := make([]Vertex, len(g.order))
	for i, h := range g.order {
		out[i] = g.vertices[h]
	}
	return out
}

// GetFrontier returns the current frontier (vertices with no forward
// edge) as an ordered sequence, sorted by hash for determinism.
func (g *HashGraph) GetFrontier() []hash.Hash {
	out := make([]hash.Hash, 0, len(g.frontier))
	for h := range g.frontier {
		out = append(out, h)
	}
	sortHashes(out)
	return out
}

// AddVertex inserts v, wires dep->v forward edges, removes every
// dependency from the frontier, and adds v to the frontier. It fails if
// any dependency is unknown or v is already present.
func (g *HashGraph) AddVertex(v Vertex) error {
	if _, exists := g.vertices[v.Hash]; exists {
		return Error{Kind: DuplicateVertex, Hash: v.Hash.String()}
	}

	for _, d := range v.Dependencies {
		if _, ok := g.vertices[d]; !ok {
			return Error{Kind: UnknownDependency, Hash: d.String()}
		}
	}

	g.vertices[v.Hash] = v
	g.order = append(g.order, v.Hash)

	for _, d := range v.Dependencies {
		if g.forward[d] == nil {
			g.forward[d] = map[hash.Hash]struct{}{}
		}
		g.forward[d][v.Hash] = struct{}{}
		delete(g.frontier, d)
	}

	g.frontier[v.Hash] = struct{}{}

	return nil
}

// sortHashes sorts a slice of hashes lexicographically in place. Shared
// by every place this package needs a deterministic tie-break.
func sortHashes(hs []hash.Hash) {
	sort.Slice(hs, func(i, j int) bool { return hs[i].Less(hs[j]) })
}

/*******************************************************************************
Ancestry
*******************************************************************************/

// ancestorsOf returns the set of all ancestors of h, including h itself,
// reachable by walking Dependencies backward. The result is memoized
// since the same heads are queried repeatedly during merge and local
// application.
func (g *HashGraph) ancestorsOf(h hash.Hash) map[hash.Hash]struct{} {
	if cached, ok := g.ancestorSets[h]; ok {
		return cached
	}

	set := map[hash.Hash]struct{}{h: {}}

	stack := []hash.Hash{h}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		v, ok := g.vertices[cur]
		if !ok {
			continue
		}

		for _, d := range v.Dependencies {
			if _, seen := set[d]; seen {
				continue
			}
			set[d] = struct{}{}
			stack = append(stack, d)
		}
	}

	g.ancestorSets[h] = set

	return set
}

// IsAncestor reports whether a is an ancestor of b (a == b counts as an
// ancestor of itself).
func (g *HashGraph) IsAncestor(a, b hash.Hash) bool {
	_, ok := g.ancestorsOf(b)[a]
	return ok
}

/*******************************************************************************
Lowest common ancestor
*******************************************************************************/

// pairwiseLCA computes the lowest common ancestor of exactly two
// vertices: the deepest vertex that is an ancestor of both, where depth
// is "no descendant of it, restricted to the common-ancestor set, is
// also a common ancestor". Ties are broken by lexicographic hash order.
func (g *HashGraph) pairwiseLCA(a, b hash.Hash) (hash.Hash, error) {
	ancA := g.ancestorsOf(a)
	ancB := g.ancestorsOf(b)

	common := make([]hash.Hash, 0)
	for h := range ancA {
		if _, ok := ancB[h]; ok {
			common = append(common, h)
		}
	}

	if len(common) == 0 {
		// Unreachable once a root vertex exists: the root is an
		// ancestor of every vertex in the graph.
		return hash.Empty, Error{Kind: NoCommonAncestor, Hash: a.String() + "," + b.String()}
	}

	var candidates []hash.Hash
	for _, c := range common {
		isAncestorOfAnother := false
		for _, d := range common {
			if c == d {
				continue
			}
			if g.IsAncestor(c, d) {
				isAncestorOfAnother = true
				break
			}
		}
		if !isAncestorOfAnother {
			candidates = append(candidates, c)
		}
	}

	sortHashes(candidates)

	return candidates[0], nil
}

// LowestCommonAncestor computes a single hash H that is an ancestor of
// every supplied head and of which no descendant (restricted to the
// valid-LCA set) also has that property. For N heads it iterates
// pairwise LCA over the candidate set. It also returns the subgraph: the
// set of every vertex on any path from H (exclusive) to any head
// (inclusive).
//
// A single head's LCA is the head itself with an empty subgraph: between
// one point and itself there is no concurrent history to linearize (spec
// §9 open question, resolved in DESIGN.md).
func (g *HashGraph) LowestCommonAncestor(heads []hash.Hash) (hash.Hash, map[hash.Hash]struct{}, error) {
	if len(heads) == 0 {
		return hash.Empty, nil, Error{Kind: EmptyHeads}
	}

	if len(heads) == 1 {
		return heads[0], map[hash.Hash]struct{}{}, nil
	}

	sortedHeads := append([]hash.Hash(nil), heads...)
	sortHashes(sortedHeads)

	lca := sortedHeads[0]
	for _, h := range sortedHeads[1:] {
		var err error
		lca, err = g.pairwiseLCA(lca, h)
		if err != nil {
			return hash.Empty, nil, err
		}
	}

	subgraph := map[hash.Hash]struct{}{}
	for _, h := range heads {
		g.collectPath(h, lca, subgraph)
	}

	return lca, subgraph, nil
}

// collectPath walks backward from `from`, adding every vertex strictly
// between lca (exclusive) and from (inclusive) to subgraph. Recursion
// stops the instant it reaches lca, and already-visited vertices are
// skipped, so shared ancestry between multiple heads is only walked
// once.
func (g *HashGraph) collectPath(from, lca hash.Hash, subgraph map[hash.Hash]struct{}) {
	if from == lca {
		return
	}
	if _, visited := subgraph[from]; visited {
		return
	}

	subgraph[from] = struct{}{}

	v, ok := g.vertices[from]
	if !ok {
		return
	}

	for _, d := range v.Dependencies {
		g.collectPath(d, lca, subgraph)
	}
}

/*******************************************************************************
Linearization
*******************************************************************************/

// Resolver binds the semantics tag of a DRP to its actual conflict
// resolution functions, so LinearizeOperations never needs to know
// anything about the DRP or ACL contract types.
type Resolver struct {
	Semantics op.Semantics
	Pair      op.PairResolver
	Multi     op.MultiResolver
}

// ResolverFor returns the Resolver that governs operations of the given
// kind. A batch of concurrently-ready vertices may mix DRP- and
// ACL-kind operations (an admin toggling a permission concurrently with
// an ordinary write), and each kind's operations must only ever be
// resolved by their own DRP's resolver (spec §6's contract: a DRP's
// resolver only ever sees its own operations).
type ResolverFor func(op.Kind) Resolver

// LinearizeOperations returns the operations of every vertex in
// subgraph, in the deterministic order defined by spec §4.1: a
// topological walk where, at each step, the set of concurrently-ready
// operations is resolved via the DRP's conflict resolver before being
// appended to the output.
//
// Vertices whose operations are dropped by the resolver are excluded
// from the result but still advance the topological walk: dropping an
// operation does not erase its causal effect on ordering.
func (g *HashGraph) LinearizeOperations(subgraph map[hash.Hash]struct{}, resolverFor ResolverFor) ([]op.Operation, error) {
	indegree := make(map[hash.Hash]int, len(subgraph))
	children := make(map[hash.Hash][]hash.Hash, len(subgraph))

	for h := range subgraph {
		indegree[h] = 0
	}

	for h := range subgraph {
		v := g.vertices[h]
		for _, d := range v.Dependencies {
			if _, ok := subgraph[d]; ok {
				indegree[h]++
				children[d] = append(children[d], h)
			}
		}
	}

	var ready []hash.Hash
	for h, deg := range indegree {
		if deg == 0 {
			ready = append(ready, h)
		}
	}
	sortHashes(ready)

	var result []op.Operation

	for len(ready) > 0 {
		batch := ready
		ready = nil

		survivors, err := g.resolveBatch(batch, resolverFor)
		if err != nil {
			return nil, err
		}
		result = append(result, survivors...)

		next := map[hash.Hash]struct{}{}
		for _, h := range batch {
			for _, child := range children[h] {
				indegree[child]--
				if indegree[child] == 0 {
					next[child] = struct{}{}
				}
			}
		}

		for h := range next {
			ready = append(ready, h)
		}
		sortHashes(ready)
	}

	return result, nil
}

// resolveBatch orders and filters one set of mutually-concurrent
// vertices (a "layer" of the topological walk). The batch may mix
// DRP-kind and ACL-kind operations (an admin permission toggle
// concurrent with an ordinary write); each kind's operations are
// partitioned out and resolved only by that kind's own resolver, so a
// resolver built for one DRP's Value shape is never handed an
// operation from the other track. Groups are resolved in the order
// their kind first appears in batch (already hash-sorted), which keeps
// the overall result deterministic.
func (g *HashGraph) resolveBatch(batch []hash.Hash, resolverFor ResolverFor) ([]op.Operation, error) {
	if len(batch) == 1 {
		return []op.Operation{g.vertices[batch[0]].Operation}, nil
	}

	var kinds []op.Kind
	groups := map[op.Kind][]hash.Hash{}
	for _, h := range batch {
		k := g.vertices[h].Operation.DRPType
		if _, seen := groups[k]; !seen {
			kinds = append(kinds, k)
		}
		groups[k] = append(groups[k], h)
	}

	var result []op.Operation
	for _, k := range kinds {
		survivors, err := g.resolveBatchOfKind(groups[k], resolverFor(k))
		if err != nil {
			return nil, err
		}
		result = append(result, survivors...)
	}
	return result, nil
}

// resolveBatchOfKind orders and filters one kind-homogeneous set of
// mutually-concurrent vertices according to that kind's resolver and
// semantics tag. batch is expected sorted by hash.
func (g *HashGraph) resolveBatchOfKind(batch []hash.Hash, resolver Resolver) ([]op.Operation, error) {
	if len(batch) == 1 {
		return []op.Operation{g.vertices[batch[0]].Operation}, nil
	}

	switch resolver.Semantics {
	case op.Multiple:
		ops := make([]op.Operation, len(batch))
		for i, h := range batch {
			ops[i] = g.vertices[h].Operation
		}
		if resolver.Multi == nil {
			return ops, nil
		}
		return resolver.Multi(ops)

	default: // op.Pairwise
		dropped := make(map[hash.Hash]bool, len(batch))

		if resolver.Pair != nil {
			for i := 0; i < len(batch); i++ {
				for j := i + 1; j < len(batch); j++ {
					a, b := batch[i], batch[j]
					verdict, err := resolver.Pair(g.vertices[a].Operation, g.vertices[b].Operation)
					if err != nil {
						return nil, err
					}
					switch verdict.Action {
					case op.DropLeft:
						dropped[a] = true
					case op.DropRight:
						dropped[b] = true
					}
				}
			}
		}

		out := make([]op.Operation, 0, len(batch))
		for _, h := range batch {
			if dropped[h] {
				continue
			}
			out = append(out, g.vertices[h].Operation)
		}
		return out, nil
	}
}
