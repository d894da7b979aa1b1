package engine

import (
	"github.com/mosaicnetworks/drp/graph"
	"github.com/mosaicnetworks/drp/hash"
	"github.com/mosaicnetworks/drp/op"
	"github.com/mosaicnetworks/drp/state"
)

// Merge admits a batch of remote vertices (spec §4.3). Each vertex is
// independently validated, reconstructed and admitted; a vertex that
// fails validation is recorded in the returned missing set rather than
// aborting the whole batch, so one bad vertex never blocks its unrelated
// siblings.
//
// In ACL-only mode (no DRP registered), every vertex in the batch is
// still reconstructed against the ACL track: the dependent engine needs
// a correct ACL state at every admitted hash to validate whatever
// arrives next, so "ACL-only" trims which track exists, not whether
// reconstruction runs (see DESIGN.md).
//
// The returned error is non-nil for a state.FatalError — an internal
// bug-class fault the engine cannot recover from, as opposed to the
// validation failures that land in missing (spec §7) — and for any
// failure recomputing the live DRP/ACL references after the batch.
func (e *ObjectEngine) Merge(vertices []graph.Vertex) (allMerged bool, missing map[hash.Hash]struct{}, err error) {
	e.callDepth++
	defer func() { e.callDepth-- }()

	missing = map[hash.Hash]struct{}{}
	var admitted []graph.Vertex

	for _, v := range vertices {
		if v.Operation.OpType == "" {
			continue
		}
		if e.graph.Has(v.Hash) {
			continue
		}

		if v.Operation.DRPType == op.DRP && e.drpTrack == nil {
			missing[v.Hash] = struct{}{}
			continue
		}

		if verr := e.ValidateVertex(v); verr != nil {
			if _, fatal := verr.(state.FatalError); fatal {
				return false, nil, verr
			}
			missing[v.Hash] = struct{}{}
			continue
		}

		lca, ops, lerr := e.linearizeAt(v.Dependencies)
		if lerr != nil {
			if _, fatal := lerr.(state.FatalError); fatal {
				return false, nil, lerr
			}
			missing[v.Hash] = struct{}{}
			continue
		}

		sameKind := v.Operation.DRPType
		oppositeKind := other(sameKind)

		sameResult, serr := e.trackFor(sameKind).Compute(lca, ops, &v.Operation)
		if serr != nil {
			if _, fatal := serr.(state.FatalError); fatal {
				return false, nil, serr
			}
			missing[v.Hash] = struct{}{}
			continue
		}

		var oppositeResult = sameResult
		if opposite := e.trackFor(oppositeKind); opposite != nil {
			var operr error
			oppositeResult, operr = opposite.Compute(lca, ops, nil)
			if operr != nil {
				if _, fatal := operr.(state.FatalError); fatal {
					return false, nil, operr
				}
				missing[v.Hash] = struct{}{}
				continue
			}
		}

		if aerr := e.graph.AddVertex(v); aerr != nil {
			missing[v.Hash] = struct{}{}
			continue
		}

		e.trackFor(sameKind).Set(v.Hash, sameResult)
		if opposite := e.trackFor(oppositeKind); opposite != nil {
			opposite.Set(v.Hash, oppositeResult)
		}

		aclState := aclStateAt(sameKind, sameResult, oppositeResult)
		e.finality.Bootstrap(v.Hash, aclState.SortedFinalitySigners())

		admitted = append(admitted, v)
	}

	if len(admitted) > 0 {
		if rerr := e.rebaseLiveFromFrontier(); rerr != nil {
			return false, missing, rerr
		}
		e.notify(OriginMerge, admitted)
	}

	return len(missing) == 0, missing, nil
}
