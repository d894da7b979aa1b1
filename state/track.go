// Package state implements the generic "state track" abstraction (spec
// §9 design note): one per-kind cache of reconstructed DRP state keyed
// by vertex hash, plus the pure reconstruction algorithm of spec §4.5.
// Both the embedder's DRP and the built-in ACL run through the same
// Track type, parameterized only by op.Kind — not two parallel code
// paths.
package state

import (
	"github.com/mosaicnetworks/drp/drp"
	"github.com/mosaicnetworks/drp/hash"
	"github.com/mosaicnetworks/drp/op"
)

// Track owns one kind's (DRP or ACL) original snapshot and its per-hash
// state cache.
//
// Grounded on hashgraph/caches.go's ParticipantEventsCache: one cache
// abstraction, instantiated twice for two conceptually-identical
// purposes, rather than hand-duplicated code per purpose.
type Track struct {
	kind     op.Kind
	original drp.DRP
	cache    map[hash.Hash]drp.DRP
}

// NewTrack creates a Track for the given kind and seeds the cache with
// the root vertex's state: a fresh clone of original, per spec §6
// ("Root state is empty for both DRP and ACL caches at construction").
func NewTrack(kind op.Kind, original drp.DRP, rootHash hash.Hash) *Track {
	t := &Track{
		kind:     kind,
		original: original,
		cache:    map[hash.Hash]drp.DRP{},
	}
	t.cache[rootHash] = original.Clone()
	return t
}

// Kind returns which state track this is.
func (t *Track) Kind() op.Kind { return t.kind }

// Get returns the cached state at h, if any.
func (t *Track) Get(h hash.Hash) (drp.DRP, bool) {
	v, ok := t.cache[h]
	return v, ok
}

// MustGet returns the cached state at h or a FatalError (spec §7
// StateError: "missing cached state at a hash expected to exist").
func (t *Track) MustGet(h hash.Hash) (drp.DRP, error) {
	v, ok := t.cache[h]
	if !ok {
		return nil, FatalError{Kind: MissingCachedState, Hash: h.String()}
	}
	return v, nil
}

// Set writes the reconstructed state at h. Spec §3: "Written per
// admitted vertex; never mutated after write" — callers must treat d as
// owned by the cache from this point on and never mutate it further.
func (t *Track) Set(h hash.Hash, d drp.DRP) {
	t.cache[h] = d
}

// Compute performs the pure reconstruction of spec §4.5: clone the
// cached state at lca (itself already "a clone of the original DRP
// snapshot with every prior write overlaid" by construction, since this
// package caches fully-materialized objects rather than partial
// key/value diffs — see DESIGN.md), replay ops filtered to this track's
// kind in linearized order, and apply override last if it matches this
// track's kind. Compute never mutates lca's cached entry or any live
// reference; it always works on a fresh clone.
func (t *Track) Compute(lca hash.Hash, ops []op.Operation, override *op.Operation) (drp.DRP, error) {
	base, err := t.MustGet(lca)
	if err != nil {
		return nil, err
	}

	result := base.Clone()

	for _, o := range ops {
		if o.DRPType != t.kind || o.OpType == op.RootOpType {
			continue
		}
		if err := apply(result, o); err != nil {
			return nil, err
		}
	}

	if override != nil && override.DRPType == t.kind && override.OpType != op.RootOpType {
		if err := apply(result, *override); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// apply looks up o's descriptor on target and invokes it. An unknown
// OpType or a method that returns an error both surface as an
// OperationError (spec §7).
func apply(target drp.DRP, o op.Operation) error {
	_, err := Apply(target, o.OpType, o.Value)
	return err
}

// Apply looks up opType's descriptor on target and invokes it with args,
// used both by Compute's internal replay and directly by the engine
// package to apply a single locally-originated call (spec §4.2 step 3).
func Apply(target drp.DRP, opType string, args []interface{}) (interface{}, error) {
	desc, ok := target.Descriptors()[opType]
	if !ok {
		return nil, OperationError{Kind: UnknownOpType, OpType: opType}
	}

	res, err := desc.Fn(target, args)
	if err != nil {
		return nil, OperationError{OpType: opType, Err: err}
	}

	return res, nil
}
