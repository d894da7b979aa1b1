// Package engine implements ObjectEngine (spec's DRPObject): the state
// machine that ties the hash graph, the two state tracks (the embedder's
// DRP and the built-in ACL), and the finality store together into
// apply_local, merge, and vertex validation (spec §4.2–§4.4, §6).
//
// Grounded on node/node.go's top-level Node: one struct owning a core
// data structure (there, the Hashgraph; here, graph.HashGraph), a
// pluggable state machine (there, proxy.AppProxy; here, drp.DRP), and a
// subscriber/callback surface for observing state transitions.
package engine

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/drp/acl"
	"github.com/mosaicnetworks/drp/config"
	"github.com/mosaicnetworks/drp/drp"
	"github.com/mosaicnetworks/drp/finality"
	"github.com/mosaicnetworks/drp/graph"
	"github.com/mosaicnetworks/drp/hash"
	"github.com/mosaicnetworks/drp/keys"
	"github.com/mosaicnetworks/drp/op"
	"github.com/mosaicnetworks/drp/state"
)

// Origin names why subscribers are being notified.
type Origin string

const (
	// OriginCallFn means the notification follows a local ApplyLocal
	// call that produced a new vertex.
	OriginCallFn Origin = "callFn"
	// OriginMerge means the notification follows a Merge call that
	// admitted one or more remote vertices.
	OriginMerge Origin = "merge"
)

// Subscriber is notified after every state-changing local call or
// successful merge batch.
type Subscriber func(object *ObjectEngine, origin Origin, vertices []graph.Vertex)

// ObjectEngine is the DRPObject state machine.
type ObjectEngine struct {
	id     string
	peerID string

	graph *graph.HashGraph

	drpTrack *state.Track // nil in ACL-only mode
	aclTrack *state.Track

	liveDRP drp.DRP // nil in ACL-only mode
	liveACL *acl.ACL

	finality *finality.Store

	subscribers []Subscriber

	logger       *logrus.Entry
	clock        func() int64
	maxClockSkew int64 // nanoseconds
	verifier     keys.Verifier

	// callDepth counts nested ApplyLocal, Merge and ValidateVertex
	// invocations, which are the only places a Descriptor.Fn or a
	// conflict resolver runs. Any of those that calls back into
	// ApplyLocal (an embedder bug, but one the interception discipline
	// must survive per spec §9's design note) sees callDepth > 0 and is
	// forced through the re-entrant, no-vertex path rather than recursing
	// into a second speculative apply.
	callDepth int
}

// New constructs an ObjectEngine per spec §4.2 and §9.
func New(opts Options) (*ObjectEngine, error) {
	if opts.PeerID == "" {
		return nil, ConstructionError{Kind: MissingPeerID}
	}

	haveCredential := opts.PublicCredential != nil
	haveACL := opts.ACL != nil
	switch {
	case haveCredential && haveACL:
		return nil, ConstructionError{Kind: BothCredentialAndACL}
	case !haveCredential && !haveACL:
		return nil, ConstructionError{Kind: MissingCredentialOrACL}
	}

	id := opts.ID
	if id == "" {
		generated, err := hash.NewObjectID(opts.PeerID)
		if err != nil {
			return nil, fmt.Errorf("engine: generating object id: %w", err)
		}
		id = generated
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	logger := opts.Logger
	if logger == nil {
		logger = cfg.Logger()
	}
	logger = logger.WithField("component", "engine").WithField("object", id)

	clock := opts.Clock
	if clock == nil {
		clock = func() int64 { return time.Now().UnixNano() }
	}

	g := graph.New(logger)

	var initialACL *acl.ACL
	if haveACL {
		initialACL = opts.ACL
	} else {
		initialACL = acl.NewPermissionless(opts.PublicCredential)
	}

	aclTrack := state.NewTrack(op.ACL, initialACL, g.Root())

	var drpTrack *state.Track
	var liveDRP drp.DRP
	if opts.DRP != nil {
		drpTrack = state.NewTrack(op.DRP, opts.DRP, g.Root())
		liveDRP = opts.DRP.Clone()
	}

	e := &ObjectEngine{
		id:           id,
		peerID:       opts.PeerID,
		graph:        g,
		drpTrack:     drpTrack,
		aclTrack:     aclTrack,
		liveDRP:      liveDRP,
		liveACL:      initialACL.Clone().(*acl.ACL),
		finality:     finality.NewStore(),
		logger:       logger,
		clock:        clock,
		maxClockSkew: cfg.MaxClockSkewMillis * int64(time.Millisecond),
		verifier:     opts.Verifier,
	}

	e.finality.Bootstrap(g.Root(), initialACL.SortedFinalitySigners())

	return e, nil
}

/*******************************************************************************
Read-only accessors (spec §6)
*******************************************************************************/

// ID returns the object's identifier.
func (e *ObjectEngine) ID() string { return e.id }

// PeerID returns the local peer id this engine produces vertices under.
func (e *ObjectEngine) PeerID() string { return e.peerID }

// Vertices returns every admitted vertex in admission order.
func (e *ObjectEngine) Vertices() []graph.Vertex { return e.graph.AllVertices() }

// Frontier returns the current frontier, sorted by hash.
func (e *ObjectEngine) Frontier() []hash.Hash { return e.graph.GetFrontier() }

// DRP returns the live, rebased DRP reference, or nil in ACL-only mode.
// Query methods are called directly on this reference, bypassing the
// engine entirely (spec §9 design note).
func (e *ObjectEngine) DRP() drp.DRP { return e.liveDRP }

// ACL returns the live, rebased ACL reference.
func (e *ObjectEngine) ACL() *acl.ACL { return e.liveACL }

// Subscribe registers cb to be notified after every state-changing local
// call or merge batch.
func (e *ObjectEngine) Subscribe(cb Subscriber) {
	e.subscribers = append(e.subscribers, cb)
}

func (e *ObjectEngine) notify(origin Origin, vertices []graph.Vertex) {
	for _, cb := range e.subscribers {
		cb(e, origin, vertices)
	}
}

/*******************************************************************************
Internal helpers shared by ApplyLocal, Merge and ValidateVertex
*******************************************************************************/

func other(k op.Kind) op.Kind {
	if k == op.DRP {
		return op.ACL
	}
	return op.DRP
}

func (e *ObjectEngine) trackFor(k op.Kind) *state.Track {
	if k == op.ACL {
		return e.aclTrack
	}
	return e.drpTrack
}

func (e *ObjectEngine) liveFor(k op.Kind) drp.DRP {
	if k == op.ACL {
		return e.liveACL
	}
	return e.liveDRP
}

// resolverFor returns the resolver that governs operations of kind k:
// the ACL's own resolver for ACL-kind operations, the embedder's DRP
// resolver for DRP-kind operations (never reached in ACL-only mode,
// since no DRP-kind vertex can exist without a registered DRP). A
// subgraph being linearized may mix DRP- and ACL-kind operations (an
// admin toggling a permission concurrently with an ordinary write), and
// each kind's resolver must only ever see its own kind's operations
// (spec §6's contract) — graph.HashGraph partitions the batch by kind
// before calling this. See DESIGN.md for the §9 open question this
// settles.
func (e *ObjectEngine) resolverFor(k op.Kind) graph.Resolver {
	d := e.liveFor(k)
	if d == nil {
		base, _ := e.trackFor(k).Get(e.graph.Root())
		d = base
	}

	resolver := d.ResolveConflicts()
	return graph.Resolver{
		Semantics: d.SemanticsType(),
		Pair:      resolver.Pair,
		Multi:     resolver.Multi,
	}
}

// linearizeAt runs the shared LCA + linearization pipeline over deps,
// returning the lca hash and the resulting operation sequence, ready to
// be replayed independently by each kind's Track.Compute.
func (e *ObjectEngine) linearizeAt(deps []hash.Hash) (hash.Hash, []op.Operation, error) {
	lca, subgraph, err := e.graph.LowestCommonAncestor(deps)
	if err != nil {
		return hash.Empty, nil, err
	}
	ops, err := e.graph.LinearizeOperations(subgraph, e.resolverFor)
	if err != nil {
		return hash.Empty, nil, err
	}
	return lca, ops, nil
}

// aclStateAt extracts the ACL half of a (same, opposite) reconstruction
// pair, regardless of which side ACL happens to be on.
func aclStateAt(kind op.Kind, same, opposite drp.DRP) *acl.ACL {
	if kind == op.ACL {
		return same.(*acl.ACL)
	}
	return opposite.(*acl.ACL)
}

// rebaseLive replaces the live DRP/ACL references after a state change,
// per spec §4.2 step 8 / §4.3's post-batch refresh.
func (e *ObjectEngine) rebaseLive(kind op.Kind, same drp.DRP, oppositeKind op.Kind, opposite drp.DRP) {
	if kind == op.ACL {
		e.liveACL = same.(*acl.ACL)
	} else {
		e.liveDRP = same
	}
	if oppositeKind == op.ACL {
		e.liveACL = opposite.(*acl.ACL)
	} else {
		e.liveDRP = opposite
	}
}

// rebaseLiveFromFrontier recomputes both live references from the
// current frontier. Used after a merge batch, where the new frontier may
// have multiple heads rather than the single new vertex ApplyLocal
// produces.
func (e *ObjectEngine) rebaseLiveFromFrontier() error {
	lca, ops, err := e.linearizeAt(e.graph.GetFrontier())
	if err != nil {
		return err
	}

	aclState, err := e.aclTrack.Compute(lca, ops, nil)
	if err != nil {
		return err
	}
	e.liveACL = aclState.(*acl.ACL)

	if e.drpTrack != nil {
		d, err := e.drpTrack.Compute(lca, ops, nil)
		if err != nil {
			return err
		}
		e.liveDRP = d
	}

	return nil
}
