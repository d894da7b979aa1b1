// Package acl implements the built-in access-control DRP (spec §4.6):
// it answers "is peer P allowed to write given deps D?" and "who are the
// current finality signers?", and is itself tracked by a state.Track the
// same way the embedder's DRP is — "the ACL is itself a DRP" (spec §9).
package acl

import (
	"fmt"
	"sort"

	"github.com/mosaicnetworks/drp/drp"
	"github.com/mosaicnetworks/drp/keys"
	"github.com/mosaicnetworks/drp/op"
)

// ACL is the default permissionless-or-admin-gated access control DRP.
//
// Grounded on peers.PeerSet's copy-on-write admin-set idiom
// (WithNewPeer/WithRemovedPeer), generalized here to a mutable receiver
// because ACL participates in the same Clone/apply discipline as every
// other DRP (copy-on-write happens at the Track/Clone boundary, not
// inside the DRP's own methods).
type ACL struct {
	// Permissionless admits writes from any peer when true (the default
	// ACL constructed from a bare public credential, per spec §4.6).
	Permissionless bool
	// Admins is the set of peer credentials allowed to write when
	// Permissionless is false, and who additionally always retain write
	// access regardless of Permissionless (an admin never loses write
	// access by toggling permissionless on).
	Admins map[string]struct{}
	// FinalitySigners is the set of peer ids required to finalize a
	// vertex (spec §4.6 query_get_finality_signers). For the default
	// ACL this tracks Admins; a richer ACL could diverge the two.
	FinalitySigners map[string]struct{}
}

var _ drp.DRP = (*ACL)(nil)
var _ drp.QueryDRP = (*ACL)(nil)

// NewPermissionless returns the default ACL described by spec §4.6: "If
// no explicit ACL is supplied at construction, a default permissionless
// ACL is instantiated with the creator's public credential as sole
// admin."
func NewPermissionless(creator keys.PublicCredential) *ACL {
	creatorID := creator.String()
	return &ACL{
		Permissionless:  true,
		Admins:          map[string]struct{}{creatorID: {}},
		FinalitySigners: map[string]struct{}{creatorID: {}},
	}
}

// IsWriter answers spec §4.4's validation predicate: "the ACL
// reconstructed at deps answers is_writer(peerId) = true".
func (a *ACL) IsWriter(peerID string) bool {
	if a.Permissionless {
		return true
	}
	_, ok := a.Admins[peerID]
	return ok
}

// QueryIsWriter is the DRP query surface for IsWriter.
func (a *ACL) QueryIsWriter(peerID string) bool { return a.IsWriter(peerID) }

// QueryGetFinalitySigners returns the current finality-signer set.
func (a *ACL) QueryGetFinalitySigners() map[string]struct{} {
	out := make(map[string]struct{}, len(a.FinalitySigners))
	for k := range a.FinalitySigners {
		out[k] = struct{}{}
	}
	return out
}

// SetPermissionless toggles open-write mode. Added per SPEC_FULL.md's
// supplemented features to exercise spec §8 scenario 6 ("toggling the
// ACL... to non-permissionless").
func (a *ACL) SetPermissionless(on bool) (bool, error) {
	a.Permissionless = on
	return a.Permissionless, nil
}

// AddAdmin grants write access (and finality-signer status) to peerID.
func (a *ACL) AddAdmin(peerID string) (bool, error) {
	a.Admins[peerID] = struct{}{}
	a.FinalitySigners[peerID] = struct{}{}
	return true, nil
}

// RemoveAdmin revokes peerID's admin and finality-signer status.
func (a *ACL) RemoveAdmin(peerID string) (bool, error) {
	delete(a.Admins, peerID)
	delete(a.FinalitySigners, peerID)
	return true, nil
}

/*******************************************************************************
DRP contract
*******************************************************************************/

func (a *ACL) Descriptors() map[string]drp.Descriptor {
	return map[string]drp.Descriptor{
		"acl.setPermissionless": {
			OpType: "acl.setPermissionless",
			Fn: func(target drp.DRP, args []interface{}) (interface{}, error) {
				self, ok := target.(*ACL)
				if !ok {
					return nil, fmt.Errorf("acl: setPermissionless invoked on %T", target)
				}
				on, ok := arg0Bool(args)
				if !ok {
					return nil, fmt.Errorf("acl: setPermissionless expects a bool arg")
				}
				return self.SetPermissionless(on)
			},
		},
		"acl.addAdmin": {
			OpType: "acl.addAdmin",
			Fn: func(target drp.DRP, args []interface{}) (interface{}, error) {
				self, ok := target.(*ACL)
				if !ok {
					return nil, fmt.Errorf("acl: addAdmin invoked on %T", target)
				}
				peerID, ok := arg0String(args)
				if !ok {
					return nil, fmt.Errorf("acl: addAdmin expects a string peerID arg")
				}
				return self.AddAdmin(peerID)
			},
		},
		"acl.removeAdmin": {
			OpType: "acl.removeAdmin",
			Fn: func(target drp.DRP, args []interface{}) (interface{}, error) {
				self, ok := target.(*ACL)
				if !ok {
					return nil, fmt.Errorf("acl: removeAdmin invoked on %T", target)
				}
				peerID, ok := arg0String(args)
				if !ok {
					return nil, fmt.Errorf("acl: removeAdmin expects a string peerID arg")
				}
				return self.RemoveAdmin(peerID)
			},
		},
	}
}

func arg0Bool(args []interface{}) (bool, bool) {
	if len(args) != 1 {
		return false, false
	}
	v, ok := args[0].(bool)
	return v, ok
}

func arg0String(args []interface{}) (string, bool) {
	if len(args) != 1 {
		return "", false
	}
	v, ok := args[0].(string)
	return v, ok
}

func (a *ACL) IsQuery(methodName string) bool {
	switch methodName {
	case "query_is_writer", "query_get_finality_signers":
		return true
	default:
		return false
	}
}

func (a *ACL) Clone() drp.DRP {
	admins := make(map[string]struct{}, len(a.Admins))
	for k := range a.Admins {
		admins[k] = struct{}{}
	}
	signers := make(map[string]struct{}, len(a.FinalitySigners))
	for k := range a.FinalitySigners {
		signers[k] = struct{}{}
	}
	return &ACL{
		Permissionless:  a.Permissionless,
		Admins:          admins,
		FinalitySigners: signers,
	}
}

func (a *ACL) Equal(other drp.DRP) bool {
	o, ok := other.(*ACL)
	if !ok {
		return false
	}
	if a.Permissionless != o.Permissionless {
		return false
	}
	return setEqual(a.Admins, o.Admins) && setEqual(a.FinalitySigners, o.FinalitySigners)
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// ResolveConflicts: ACL mutations (admin add/remove, permissionless
// toggle) commute in the common case and are treated as MULTIPLE
// semantics applied in the deterministic hash order the graph package
// already guarantees, same as Counter.
func (a *ACL) ResolveConflicts() drp.Resolver {
	return drp.Resolver{
		Multi: func(ops []op.Operation) ([]op.Operation, error) {
			return ops, nil
		},
	}
}

func (a *ACL) SemanticsType() op.Semantics { return op.Multiple }

// SortedFinalitySigners returns the finality-signer set as a
// deterministically ordered slice, for callers (like finality.Bootstrap)
// that need a stable iteration order.
func (a *ACL) SortedFinalitySigners() []string {
	out := make([]string, 0, len(a.FinalitySigners))
	for id := range a.FinalitySigners {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
