package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/mosaicnetworks/drp/acl"
	"github.com/mosaicnetworks/drp/config"
	"github.com/mosaicnetworks/drp/drp"
	"github.com/mosaicnetworks/drp/keys"
)

// Options configures a new ObjectEngine (spec §4.2's construction rules,
// §6's read-only fields, §9's ACL-only-mode open question).
type Options struct {
	// PeerID identifies the local peer whose vertices this engine
	// produces. Required.
	PeerID string

	// ID, if set, is the object's identifier. If empty, New generates one
	// via hash.NewObjectID(PeerID).
	ID string

	// PublicCredential constructs a default permissionless ACL from its
	// holder. Exactly one of PublicCredential or ACL must be supplied.
	PublicCredential keys.PublicCredential

	// ACL supplies an explicit initial ACL, bypassing the default
	// permissionless construction. Exactly one of PublicCredential or ACL
	// must be supplied.
	ACL *acl.ACL

	// DRP is the embedder's replicated object. Nil means ACL-only mode
	// (spec §9): the engine tracks and gates writes to the ACL but has no
	// user-facing replicated object of its own.
	DRP drp.DRP

	// Logger defaults to Config.Logger() when nil (DebugLevel under the
	// default Config). Takes precedence over Config's logger when both
	// are supplied, since an explicit Logger is a more specific
	// instruction than the default Config.Logger() fallback.
	Logger *logrus.Entry

	// Config supplies the log level and clock-skew tolerance. Defaults
	// to config.NewDefaultConfig() when nil.
	Config *config.Config

	// Clock returns the current time as unix nanoseconds. Defaults to
	// time.Now().UnixNano; tests substitute a deterministic source.
	Clock func() int64

	// Verifier, if set, is the collaborator ValidateVertex delegates
	// signature checking to (spec §1): every non-root vertex admitted
	// through Merge must carry a Signature that Verifier accepts for
	// PeerID's credential and the vertex's hash digest. Nil disables
	// signature checking entirely, leaving PeerID as a bare, unverified
	// identifier — all but one of the engine's own tests run this way.
	Verifier keys.Verifier
}
