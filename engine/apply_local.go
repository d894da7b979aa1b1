package engine

import (
	"fmt"

	"github.com/mosaicnetworks/drp/drp"
	"github.com/mosaicnetworks/drp/graph"
	"github.com/mosaicnetworks/drp/op"
	"github.com/mosaicnetworks/drp/state"
)

// ApplyLocal intercepts a locally-originated call to one of kind's
// mutating operations (spec §4.2). It reconstructs the pre-image state
// at the current frontier, speculatively applies fn, and only builds a
// new vertex if the call actually changed observable state.
//
// A call made from inside another Descriptor.Fn or a conflict resolver
// (callDepth > 0) is
// forced through a bare pass-through: it runs fn against the live
// reference directly and never creates a vertex, matching the
// interception discipline's re-entrancy rule (spec §9).
func (e *ObjectEngine) ApplyLocal(kind op.Kind, fn string, args ...interface{}) (interface{}, error) {
	if kind == op.DRP && e.drpTrack == nil {
		return nil, fmt.Errorf("engine: ApplyLocal(DRP, %q): no DRP registered (ACL-only mode)", fn)
	}

	if e.callDepth > 0 {
		res, err := state.Apply(e.liveFor(kind), fn, args)
		if err != nil {
			e.logger.WithError(err).WithField("opType", fn).Debug("re-entrant call failed")
			return nil, nil
		}
		return res, nil
	}

	e.callDepth++
	defer func() { e.callDepth-- }()

	deps := e.graph.GetFrontier()

	lca, ops, err := e.linearizeAt(deps)
	if err != nil {
		return nil, err
	}

	targetTrack := e.trackFor(kind)

	before, err := targetTrack.Compute(lca, ops, nil)
	if err != nil {
		return nil, err
	}

	working := before.Clone()

	res, err := state.Apply(working, fn, args)
	if err != nil {
		// OperationError is swallowed: logged, no vertex, caller sees an
		// undefined result (spec §7).
		e.logger.WithError(err).WithField("opType", fn).Debug("apply_local: operation failed")
		return nil, nil
	}

	if working.Equal(before) {
		return res, nil
	}

	operation := op.New(kind, fn, args...)
	v, err := graph.NewVertex(e.peerID, operation, deps, e.clock())
	if err != nil {
		return nil, err
	}

	if err := e.graph.AddVertex(v); err != nil {
		return nil, err
	}

	oppositeKind := other(kind)
	oppositeTrack := e.trackFor(oppositeKind)

	targetTrack.Set(v.Hash, working)

	var oppositeResult drp.DRP
	if oppositeTrack != nil {
		oppositeResult, err = oppositeTrack.Compute(lca, ops, nil)
		if err != nil {
			return nil, err
		}
		oppositeTrack.Set(v.Hash, oppositeResult)
	}

	aclState := aclStateAt(kind, working, oppositeResult)
	e.finality.Bootstrap(v.Hash, aclState.SortedFinalitySigners())

	e.rebaseLive(kind, working, oppositeKind, oppositeResult)

	e.notify(OriginCallFn, []graph.Vertex{v})

	return res, nil
}
