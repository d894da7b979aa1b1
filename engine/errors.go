package engine

import "fmt"

// ConstructionErrKind enumerates why New can fail (spec §7
// ConstructionError).
type ConstructionErrKind int

const (
	// MissingCredentialOrACL means neither PublicCredential nor ACL was
	// supplied to Options — exactly one is required.
	MissingCredentialOrACL ConstructionErrKind = iota
	// BothCredentialAndACL means both were supplied — also invalid,
	// since it leaves which one wins ambiguous.
	BothCredentialAndACL
	// MissingPeerID means Options.PeerID was empty.
	MissingPeerID
)

func (k ConstructionErrKind) String() string {
	switch k {
	case MissingCredentialOrACL:
		return "exactly one of PublicCredential or ACL must be supplied"
	case BothCredentialAndACL:
		return "only one of PublicCredential or ACL may be supplied"
	case MissingPeerID:
		return "PeerID must be supplied"
	default:
		return fmt.Sprintf("ConstructionErrKind(%d)", int(k))
	}
}

// ConstructionError is returned by New.
type ConstructionError struct {
	Kind ConstructionErrKind
}

func (e ConstructionError) Error() string {
	return fmt.Sprintf("engine: construction: %s", e.Kind)
}

// ValidationErrKind enumerates the §4.4 vertex validation rules.
type ValidationErrKind int

const (
	// HashMismatch means the vertex's Hash does not match the
	// recomputation over its own fields.
	HashMismatch ValidationErrKind = iota
	// EmptyDependencies means deps is empty on a non-root vertex.
	EmptyDependencies
	// UnknownDependency means a dependency hash is not in the graph.
	UnknownDependency
	// CausalTimeViolation means a dependency's timestamp exceeds this
	// vertex's timestamp.
	CausalTimeViolation
	// FutureTimestamp means the vertex's timestamp is after the
	// validator's wall clock.
	FutureTimestamp
	// PermissionDenied means the ACL reconstructed at the vertex's
	// dependencies does not list PeerID as a writer.
	PermissionDenied
	// SignatureInvalid means Options.Verifier rejected the vertex's
	// Signature against its PeerID credential and hash digest.
	SignatureInvalid
)

func (k ValidationErrKind) String() string {
	switch k {
	case HashMismatch:
		return "hash mismatch"
	case EmptyDependencies:
		return "empty dependencies"
	case UnknownDependency:
		return "unknown dependency"
	case CausalTimeViolation:
		return "causal time violation"
	case FutureTimestamp:
		return "future timestamp"
	case PermissionDenied:
		return "permission denied"
	case SignatureInvalid:
		return "signature invalid"
	default:
		return fmt.Sprintf("ValidationErrKind(%d)", int(k))
	}
}

// ValidationError is returned by ValidateVertex. Merge catches it and
// records the failing hash in `missing` rather than propagating it to
// its own caller (spec §7).
type ValidationError struct {
	Kind ValidationErrKind
	Hash string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("engine: validation: %s: %s", e.Kind, e.Hash)
}
