// Package hash computes the content address of graph vertices.
//
// The preimage of a vertex hash is the canonical encoding of
// {operation, deps, peerId, timestamp}; canonical meaning deterministic
// key ordering and no insignificant whitespace, so that any two peers
// holding the same vertex fields compute the same hash.
package hash

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ugorji/go/codec"
)

// Hash is a 32-byte SHA-256 digest, represented as lowercase hex.
type Hash string

// Empty is the zero value of Hash; no vertex ever hashes to it.
const Empty Hash = ""

// String returns the lowercase hex representation.
func (h Hash) String() string { return string(h) }

// Less reports whether h sorts lexicographically before o. Used
// throughout the graph package to break ties deterministically.
func (h Hash) Less(o Hash) bool { return h < o }

// preimage is the canonical, sorted-key structure hashed to identify a
// vertex. Field names are lowercase in the encoded form to match the
// wider DRP wire convention used by embedders inspecting raw preimages.
type preimage struct {
	Operation    interface{} `codec:"operation"`
	Dependencies []string    `codec:"deps"`
	PeerID       string      `codec:"peerId"`
	Timestamp    int64       `codec:"timestamp"`
}

// jsonHandle is shared because codec.JsonHandle is safe for concurrent
// read-only use once configured, and re-creating it per call would only
// add allocation noise.
var jsonHandle = func() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.Canonical = true
	h.MapKeyAsString = true
	return h
}()

// CanonicalEncode produces the deterministic encoding used both as a
// hash preimage and, by embedders, as a stable debugging representation
// of an operation value.
func CanonicalEncode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, jsonHandle)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("hash: canonical encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Of computes the content address of a vertex from its defining fields.
// peerID and timestamp are passed rather than derived from a richer type
// so this package stays free of any dependency on op/graph.
func Of(operation interface{}, deps []string, peerID string, timestampUnixNano int64) (Hash, error) {
	pre := preimage{
		Operation:    operation,
		Dependencies: deps,
		PeerID:       peerID,
		Timestamp:    timestampUnixNano,
	}

	encoded, err := CanonicalEncode(pre)
	if err != nil {
		return Empty, err
	}

	digest := sha256.Sum256(encoded)

	return Hash(hex.EncodeToString(digest[:])), nil
}

// NewObjectID returns a fresh object identifier: the hex SHA-256 of the
// peer id concatenated with a 16-byte cryptographically random nonce.
// Design note (spec §9): a stable-width crypto RNG nonce, not the
// decimal-float nonce of the original implementation.
func NewObjectID(peerID string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("hash: generating object id nonce: %w", err)
	}

	digest := sha256.Sum256(append([]byte(peerID), nonce...))

	return hex.EncodeToString(digest[:]), nil
}
