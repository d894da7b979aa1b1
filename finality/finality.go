// Package finality implements the per-vertex attestation bookkeeping of
// spec §4.7: at admission time, bootstrap the required signer set from
// the ACL computed at that vertex; downstream collaborators (unspecified
// here, per spec) call Attest to record signatures.
//
// Grounded on hashgraph/block.go's BlockSignature/Block.Signatures
// shape — a per-unit, per-validator signature-set — generalized from
// "per round-received block" to "per vertex".
package finality

import (
	"fmt"

	"github.com/mosaicnetworks/drp/hash"
)

// State is one vertex's finality bookkeeping: the signers required at
// the time the vertex was admitted, and the attestations collected so
// far.
type State struct {
	Signers      map[string]struct{}
	Attestations map[string]struct{}
}

// newState creates an empty-attestation State for the given signer set.
// The signer set is copied so later ACL mutations can never retroactively
// change a vertex's already-frozen requirement (spec §3: "Signers frozen
// at vertex admission from the ACL computed at that vertex").
func newState(signers []string) *State {
	s := &State{
		Signers:      make(map[string]struct{}, len(signers)),
		Attestations: map[string]struct{}{},
	}
	for _, id := range signers {
		s.Signers[id] = struct{}{}
	}
	return s
}

// Store is the per-engine collection of finality State, keyed by vertex
// hash.
type Store struct {
	entries map[hash.Hash]*State
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{entries: map[hash.Hash]*State{}}
}

// Bootstrap initializes the finality State for a newly admitted vertex.
// signers is the finality-signer set read from the ACL reconstructed at
// that vertex (spec §4.7).
func (s *Store) Bootstrap(h hash.Hash, signers []string) {
	s.entries[h] = newState(signers)
}

// Get returns the finality State for h, if any.
func (s *Store) Get(h hash.Hash) (*State, bool) {
	v, ok := s.entries[h]
	return v, ok
}

// Attest records signerID's attestation for the vertex at h and reports
// whether every required signer has now attested (spec §4.7: "the
// finality store's only core duty is correct signer-set determination
// at admission time" — quorum computation itself, beyond "has everyone
// required attested", is left to the downstream collaborator this entry
// point serves).
func (s *Store) Attest(h hash.Hash, signerID string) (quorumReached bool, err error) {
	state, ok := s.entries[h]
	if !ok {
		return false, fmt.Errorf("finality: no finality state bootstrapped for %s", h)
	}

	if _, required := state.Signers[signerID]; !required {
		return false, fmt.Errorf("finality: %s is not a required signer for %s", signerID, h)
	}

	state.Attestations[signerID] = struct{}{}

	return len(state.Attestations) >= len(state.Signers), nil
}
