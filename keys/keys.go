// Package keys supplies a concrete credential type and a reference
// signature-verification collaborator. Spec §1: "the core consumes an
// opaque signature blob and delegates signature verification to a
// collaborator" — this package is that collaborator's reference
// implementation, not a dependency the engine itself requires. An
// embedder is free to substitute any Verifier.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// PublicCredential identifies a peer: the uncompressed SEC1 encoding of
// a secp256k1 public key.
type PublicCredential []byte

// String returns the hex string form used as the ACL's admin-set key
// and as a Vertex's PeerID in this module's own fixtures.
func (c PublicCredential) String() string {
	return hex.EncodeToString(c)
}

// GenerateKey returns a fresh secp256k1 keypair. The curve choice is
// grounded on crypto/keys/curve.go's rationale: the same curve used by
// Bitcoin and Ethereum, with well-trodden Go support.
func GenerateKey() (*btcec.PrivateKey, error) {
	return btcec.NewPrivateKey()
}

// PublicCredentialOf returns the PublicCredential for a private key.
func PublicCredentialOf(priv *btcec.PrivateKey) PublicCredential {
	return PublicCredential(priv.PubKey().SerializeUncompressed())
}

// Digest hashes an arbitrary payload (normally a vertex hash string)
// down to the fixed-width input ECDSA signs over.
func Digest(payload []byte) []byte {
	sum := sha256.Sum256(payload)
	return sum[:]
}

// Sign produces the opaque signature blob format this package's
// Verifier expects: the hex-encoded DER signature of digest.
func Sign(priv *btcec.PrivateKey, digest []byte) (string, error) {
	sig := btcecdsa.Sign(priv, digest)
	return hex.EncodeToString(sig.Serialize()), nil
}

// Verifier is the collaborator contract an embedder plugs in to check a
// Vertex's opaque Signature blob against its hash and the claimed peer
// credential. The engine core never calls this directly — see the
// engine package's Options.Verifier — preserving the "delegates to a
// collaborator" boundary of spec §1.
type Verifier interface {
	Verify(credential PublicCredential, digest []byte, signature string) (bool, error)
}

// ECDSAVerifier is the reference Verifier implementation, grounded on
// crypto/utils.go's Sign/Verify shape, reimplemented atop the
// btcec/v2/ecdsa package's own Signature type rather than hand-rolled
// r/s encoding.
type ECDSAVerifier struct{}

// Verify implements Verifier.
func (ECDSAVerifier) Verify(credential PublicCredential, digest []byte, signature string) (bool, error) {
	sigBytes, err := hex.DecodeString(signature)
	if err != nil {
		return false, fmt.Errorf("keys: decoding signature: %w", err)
	}

	sig, err := btcecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false, fmt.Errorf("keys: parsing signature: %w", err)
	}

	pub, err := btcec.ParsePubKey(credential)
	if err != nil {
		return false, fmt.Errorf("keys: parsing credential: %w", err)
	}

	return sig.Verify(digest, pub), nil
}
