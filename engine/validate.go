package engine

import (
	"encoding/hex"
	"time"

	"github.com/mosaicnetworks/drp/acl"
	"github.com/mosaicnetworks/drp/graph"
	"github.com/mosaicnetworks/drp/keys"
)

// ValidateVertex checks the six rules of spec §4.4 against an incoming
// vertex, plus signature verification when a Verifier collaborator was
// supplied at construction (spec §1). It does not touch the graph or
// either state track's cache; Merge calls it before admission.
func (e *ObjectEngine) ValidateVertex(v graph.Vertex) error {
	e.callDepth++
	defer func() { e.callDepth-- }()

	recomputed, err := v.Recompute()
	if err != nil {
		return ValidationError{Kind: HashMismatch, Hash: v.Hash.String()}
	}
	if recomputed != v.Hash {
		return ValidationError{Kind: HashMismatch, Hash: v.Hash.String()}
	}

	if len(v.Dependencies) == 0 && !v.IsRoot() {
		return ValidationError{Kind: EmptyDependencies, Hash: v.Hash.String()}
	}

	if e.verifier != nil && !v.IsRoot() {
		credential, decErr := hex.DecodeString(v.PeerID)
		if decErr != nil {
			return ValidationError{Kind: SignatureInvalid, Hash: v.Hash.String()}
		}
		digest := keys.Digest([]byte(v.Hash.String()))
		ok, verr := e.verifier.Verify(keys.PublicCredential(credential), digest, v.Signature)
		if verr != nil || !ok {
			return ValidationError{Kind: SignatureInvalid, Hash: v.Hash.String()}
		}
	}

	for _, d := range v.Dependencies {
		dep, ok := e.graph.GetVertex(d)
		if !ok {
			return ValidationError{Kind: UnknownDependency, Hash: d.String()}
		}
		if dep.Timestamp > v.Timestamp {
			return ValidationError{Kind: CausalTimeViolation, Hash: v.Hash.String()}
		}
	}

	if v.Timestamp > time.Now().UnixNano()+e.maxClockSkew {
		return ValidationError{Kind: FutureTimestamp, Hash: v.Hash.String()}
	}

	if v.IsRoot() {
		return nil
	}

	lca, subgraph, err := e.graph.LowestCommonAncestor(v.Dependencies)
	if err != nil {
		return err
	}
	ops, err := e.graph.LinearizeOperations(subgraph, e.resolverFor)
	if err != nil {
		return err
	}

	aclResult, err := e.aclTrack.Compute(lca, ops, nil)
	if err != nil {
		return err
	}

	if !aclResult.(*acl.ACL).IsWriter(v.PeerID) {
		return ValidationError{Kind: PermissionDenied, Hash: v.Hash.String()}
	}

	return nil
}
