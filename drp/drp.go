// Package drp defines the contract embedders implement: a polymorphic
// replicated object exposing mutating operations through an explicit
// descriptor table, pure query_ methods, and a conflict resolver.
//
// Design note (spec §9): the source's dynamic-proxy-plus-stack-
// inspection interception is replaced with an explicit table each DRP
// returns from Descriptors (option (a) of §9). The table lists only the
// mutating operations, keyed by their canonical OpType string, each with
// the Fn that performs it; pure reads are not in the table.
package drp

import "github.com/mosaicnetworks/drp/op"

// DRP is the contract an embedder's replicated object satisfies.
// Mutations are dispatched through the Descriptor.Fn entries returned by
// Descriptors; query reads bypass the engine entirely and call straight
// through to the embedder's own methods (see the QueryDRP marker below).
type DRP interface {
	// Descriptors returns the table of mutating operations this DRP
	// exposes, keyed by their OpType. The table is looked up again for
	// every applied operation (state.Apply); DRPs are expected to return
	// the same table for the lifetime of the instance.
	Descriptors() map[string]Descriptor

	// Clone returns a deep copy of the DRP, used by the engine to
	// speculatively apply an operation without mutating the live
	// instance until the result is known to produce a new vertex.
	Clone() DRP

	// Equal reports whether the DRP's observable state matches other's.
	// The engine uses this to detect "no state change occurred" (spec
	// §4.2 step 4), replacing the source's reflective deep-equality over
	// attribute keys with an explicit, DRP-defined comparison.
	Equal(other DRP) bool

	// ResolveConflicts is invoked by the engine during linearization
	// whenever SemanticsType is Pairwise or Multiple and more than one
	// concurrent operation needs resolving. Exactly one of PairResolver
	// or MultiResolver (matching SemanticsType) is ever called.
	ResolveConflicts() Resolver

	// SemanticsType tags which conflict-resolution protocol this DRP
	// uses during linearization.
	SemanticsType() op.Semantics
}

// Resolver carries whichever of the two resolver functions matches the
// DRP's SemanticsType. Exactly one field is populated.
type Resolver struct {
	Pair  op.PairResolver
	Multi op.MultiResolver
}

// Descriptor names one mutating operation an embedder's DRP exposes.
// Fn receives the live (cloned) DRP instance and the operation's
// argument list, and returns the argument list's result plus any error
// the method raised — an OperationError in the sense of spec §7.
type Descriptor struct {
	// OpType is the dotted path recorded on the Operation (spec §3:
	// "opType never names a query_ method").
	OpType string
	Fn     func(target DRP, args []interface{}) (interface{}, error)
}

// QueryDRP is implemented by DRPs that expose pure read-only methods.
// Query methods are never reached through Descriptors and never produce
// vertices: ApplyLocal only runs operations found in Descriptors, so a
// query name passed to it fails as an unknown opType and creates no
// vertex. Embedders name their query methods query_foo by project
// convention; IsQuery lets a caller ask whether a name is such a read.
type QueryDRP interface {
	DRP
	// IsQuery reports whether the named method is a pure read. The
	// engine itself does not call it.
	IsQuery(methodName string) bool
}
