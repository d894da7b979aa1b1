package engine_test

import (
	"testing"

	"github.com/mosaicnetworks/drp/acl"
	"github.com/mosaicnetworks/drp/drptest"
	"github.com/mosaicnetworks/drp/engine"
	"github.com/mosaicnetworks/drp/graph"
	"github.com/mosaicnetworks/drp/keys"
	"github.com/mosaicnetworks/drp/op"
)

// seqClock returns a deterministic, strictly increasing clock so vertex
// timestamps never race real wall-clock resolution in a test run.
func seqClock() func() int64 {
	var n int64
	return func() int64 {
		n++
		return n
	}
}

func newCredential(t *testing.T) keys.PublicCredential {
	t.Helper()
	priv, err := keys.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return keys.PublicCredentialOf(priv)
}

// Scenario 1 (spec §8): three local increments on a Counter DRP.
func TestApplyLocalCounterIncrements(t *testing.T) {
	e, err := engine.New(engine.Options{
		PeerID:           "peer1",
		PublicCredential: newCredential(t),
		DRP:              drptest.NewCounter(),
		Clock:            seqClock(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := e.ApplyLocal(op.DRP, "counter.increment", 1); err != nil {
			t.Fatalf("ApplyLocal #%d: %v", i, err)
		}
	}

	if got := len(e.Vertices()); got != 4 {
		t.Fatalf("expected 4 vertices (root + 3 increments), got %d", got)
	}
	if got := len(e.Frontier()); got != 1 {
		t.Fatalf("expected a single-head frontier, got %d", got)
	}

	counter, ok := e.DRP().(*drptest.Counter)
	if !ok {
		t.Fatalf("expected live DRP to be a *drptest.Counter, got %T", e.DRP())
	}
	if got := counter.QueryRead(); got != 3 {
		t.Fatalf("expected counter value 3, got %d", got)
	}
}

// Scenario 2 (spec §8): two peers write concurrently to a last-writer-
// wins Register; merging converges both peers to the higher-priority
// write regardless of merge direction.
func TestMergeRegisterConvergesByPriority(t *testing.T) {
	cred := newCredential(t)

	peer1, err := engine.New(engine.Options{
		PeerID:           "peer1",
		PublicCredential: cred,
		DRP:              drptest.NewRegister(),
		Clock:            seqClock(),
	})
	if err != nil {
		t.Fatalf("New peer1: %v", err)
	}

	peer2, err := engine.New(engine.Options{
		PeerID:           "peer2",
		PublicCredential: cred,
		DRP:              drptest.NewRegister(),
		Clock:            seqClock(),
	})
	if err != nil {
		t.Fatalf("New peer2: %v", err)
	}

	if _, err := peer1.ApplyLocal(op.DRP, "register.set", "a", 1); err != nil {
		t.Fatalf("peer1 ApplyLocal: %v", err)
	}
	if _, err := peer2.ApplyLocal(op.DRP, "register.set", "b", 2); err != nil {
		t.Fatalf("peer2 ApplyLocal: %v", err)
	}

	peer1Vertex := peer1.Vertices()[len(peer1.Vertices())-1]
	peer2Vertex := peer2.Vertices()[len(peer2.Vertices())-1]

	allMerged, missing, err := peer1.Merge([]graph.Vertex{peer2Vertex})
	if err != nil {
		t.Fatalf("peer1.Merge: %v", err)
	}
	if !allMerged || len(missing) != 0 {
		t.Fatalf("expected peer1 to merge peer2's vertex cleanly, missing=%v", missing)
	}

	allMerged, missing, err = peer2.Merge([]graph.Vertex{peer1Vertex})
	if err != nil {
		t.Fatalf("peer2.Merge: %v", err)
	}
	if !allMerged || len(missing) != 0 {
		t.Fatalf("expected peer2 to merge peer1's vertex cleanly, missing=%v", missing)
	}

	r1 := peer1.DRP().(*drptest.Register)
	r2 := peer2.DRP().(*drptest.Register)

	if r1.QueryValue() != "b" {
		t.Fatalf("expected peer1 to converge on the higher-priority write, got %q", r1.QueryValue())
	}
	if r2.QueryValue() != "b" {
		t.Fatalf("expected peer2 to converge on the higher-priority write, got %q", r2.QueryValue())
	}
}

// A DRP-kind write and an ACL-kind permission toggle made concurrently
// on the same frontier land in the same linearization batch. Each
// kind's resolver must only ever see its own kind's operations: the
// Register fixture's resolver indexes Value[1] as an int priority, a
// shape only register.set operations have, and would panic with
// index-out-of-range if handed acl.setPermissionless's single-element
// Value.
func TestMergeMixedKindConcurrentBatchDoesNotPanic(t *testing.T) {
	cred := newCredential(t)

	peer1, err := engine.New(engine.Options{
		PeerID:           "peer1",
		PublicCredential: cred,
		DRP:              drptest.NewRegister(),
		Clock:            seqClock(),
	})
	if err != nil {
		t.Fatalf("New peer1: %v", err)
	}

	peer2, err := engine.New(engine.Options{
		PeerID:           "peer2",
		PublicCredential: cred,
		DRP:              drptest.NewRegister(),
		Clock:            seqClock(),
	})
	if err != nil {
		t.Fatalf("New peer2: %v", err)
	}

	if _, err := peer1.ApplyLocal(op.DRP, "register.set", "a", 1); err != nil {
		t.Fatalf("peer1 ApplyLocal register.set: %v", err)
	}
	if _, err := peer2.ApplyLocal(op.ACL, "acl.setPermissionless", false); err != nil {
		t.Fatalf("peer2 ApplyLocal setPermissionless: %v", err)
	}

	registerVertex := peer1.Vertices()[len(peer1.Vertices())-1]
	aclVertex := peer2.Vertices()[len(peer2.Vertices())-1]

	allMerged, missing, err := peer1.Merge([]graph.Vertex{aclVertex})
	if err != nil {
		t.Fatalf("peer1.Merge: %v", err)
	}
	if !allMerged || len(missing) != 0 {
		t.Fatalf("expected peer1 to merge peer2's ACL vertex cleanly, missing=%v", missing)
	}

	allMerged, missing, err = peer2.Merge([]graph.Vertex{registerVertex})
	if err != nil {
		t.Fatalf("peer2.Merge: %v", err)
	}
	if !allMerged || len(missing) != 0 {
		t.Fatalf("expected peer2 to merge peer1's register vertex cleanly, missing=%v", missing)
	}

	if peer1.DRP().(*drptest.Register).QueryValue() != "a" {
		t.Fatalf("expected peer1's register value preserved, got %q", peer1.DRP().(*drptest.Register).QueryValue())
	}
	if peer1.ACL().Permissionless {
		t.Fatalf("expected peer1's ACL to reflect the merged permissionless toggle")
	}
	if peer2.ACL().Permissionless {
		t.Fatalf("expected peer2's ACL to remain non-permissionless")
	}
}

// When Options.Verifier is configured, Merge delegates signature
// checking to it: a correctly-signed remote vertex is admitted, and a
// tampered signature is rejected into missing rather than panicking or
// silently passing through unchecked.
func TestMergeVerifiesSignatureWhenConfigured(t *testing.T) {
	priv, err := keys.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	writerCred := keys.PublicCredentialOf(priv)
	writerPeerID := writerCred.String()

	e, err := engine.New(engine.Options{
		PeerID:           "peer1",
		PublicCredential: newCredential(t),
		DRP:              drptest.NewCounter(),
		Clock:            seqClock(),
		Verifier:         keys.ECDSAVerifier{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	operation := op.New(op.DRP, "counter.increment", 1)
	v, err := graph.NewVertex(writerPeerID, operation, e.Frontier(), 1)
	if err != nil {
		t.Fatalf("NewVertex: %v", err)
	}
	digest := keys.Digest([]byte(v.Hash.String()))
	sig, err := keys.Sign(priv, digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	v.Signature = sig

	allMerged, missing, err := e.Merge([]graph.Vertex{v})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !allMerged || len(missing) != 0 {
		t.Fatalf("expected correctly-signed vertex to merge cleanly, missing=%v", missing)
	}

	tamperedOp := op.New(op.DRP, "counter.increment", 2)
	tampered, err := graph.NewVertex(writerPeerID, tamperedOp, e.Frontier(), 2)
	if err != nil {
		t.Fatalf("NewVertex: %v", err)
	}
	tampered.Signature = sig // signature from the first vertex, wrong digest

	allMerged, missing, err = e.Merge([]graph.Vertex{tampered})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if allMerged {
		t.Fatalf("expected vertex with mismatched signature to be rejected")
	}
	if _, ok := missing[tampered.Hash]; !ok {
		t.Fatalf("expected tampered-signature vertex hash in missing, got %v", missing)
	}
}

// Scenario 3 (spec §8): a vertex whose Hash doesn't match its own fields
// is rejected into missing, not admitted.
func TestMergeRejectsTamperedHash(t *testing.T) {
	e, err := engine.New(engine.Options{
		PeerID:           "peer1",
		PublicCredential: newCredential(t),
		DRP:              drptest.NewCounter(),
		Clock:            seqClock(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	v, err := graph.NewVertex("stranger", op.New(op.DRP, "counter.increment", 1), e.Frontier(), 1)
	if err != nil {
		t.Fatalf("NewVertex: %v", err)
	}
	v.Hash = "0000000000000000000000000000000000000000000000000000000000000000"

	allMerged, missing, err := e.Merge([]graph.Vertex{v})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if allMerged {
		t.Fatalf("expected tampered vertex to be rejected")
	}
	if _, ok := missing[v.Hash]; !ok {
		t.Fatalf("expected tampered vertex's hash in missing, got %v", missing)
	}
}

// Scenario 4 (spec §8): a vertex from a peer the ACL does not list as a
// writer is rejected into missing.
func TestMergeRejectsNonWriter(t *testing.T) {
	cred := newCredential(t)
	creator := cred.String()

	nonPermissionless := &acl.ACL{
		Permissionless:  false,
		Admins:          map[string]struct{}{creator: {}},
		FinalitySigners: map[string]struct{}{creator: {}},
	}

	e, err := engine.New(engine.Options{
		PeerID: "peer1",
		ACL:    nonPermissionless,
		DRP:    drptest.NewCounter(),
		Clock:  seqClock(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	operation := op.New(op.DRP, "counter.increment", 1)
	v, err := graph.NewVertex("stranger", operation, e.Frontier(), 1)
	if err != nil {
		t.Fatalf("NewVertex: %v", err)
	}

	allMerged, missing, err := e.Merge([]graph.Vertex{v})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if allMerged {
		t.Fatalf("expected non-writer's vertex to be rejected")
	}
	if _, ok := missing[v.Hash]; !ok {
		t.Fatalf("expected non-writer's vertex hash in missing, got %v", missing)
	}
}

// Scenario 5 (spec §8): a pure query call never changes vertex count or
// frontier.
func TestQueryCallLeavesGraphUnchanged(t *testing.T) {
	e, err := engine.New(engine.Options{
		PeerID:           "peer1",
		PublicCredential: newCredential(t),
		DRP:              drptest.NewCounter(),
		Clock:            seqClock(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	before := len(e.Vertices())
	beforeFrontier := len(e.Frontier())

	_ = e.DRP().(*drptest.Counter).QueryRead()

	if got := len(e.Vertices()); got != before {
		t.Fatalf("expected vertex count unchanged by a query, got %d want %d", got, before)
	}
	if got := len(e.Frontier()); got != beforeFrontier {
		t.Fatalf("expected frontier unchanged by a query, got %d want %d", got, beforeFrontier)
	}
}

// Scenario 6 (spec §8): the default permissionless ACL admits any peer;
// toggling it off rejects subsequent non-admin writes.
func TestPermissionlessToggleRejectsLaterNonAdmins(t *testing.T) {
	e, err := engine.New(engine.Options{
		PeerID:           "peer1",
		PublicCredential: newCredential(t),
		DRP:              drptest.NewCounter(),
		Clock:            seqClock(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	strangerOp := op.New(op.DRP, "counter.increment", 1)
	strangerVertex, err := graph.NewVertex("stranger", strangerOp, e.Frontier(), 1)
	if err != nil {
		t.Fatalf("NewVertex: %v", err)
	}
	allMerged, missing, err := e.Merge([]graph.Vertex{strangerVertex})
	if err != nil {
		t.Fatalf("Merge (permissionless): %v", err)
	}
	if !allMerged || len(missing) != 0 {
		t.Fatalf("expected permissionless ACL to admit any peer, missing=%v", missing)
	}

	if _, err := e.ApplyLocal(op.ACL, "acl.setPermissionless", false); err != nil {
		t.Fatalf("ApplyLocal setPermissionless: %v", err)
	}
	if e.ACL().Permissionless {
		t.Fatalf("expected ACL to no longer be permissionless")
	}

	secondOp := op.New(op.DRP, "counter.increment", 1)
	secondVertex, err := graph.NewVertex("stranger", secondOp, e.Frontier(), 1)
	if err != nil {
		t.Fatalf("NewVertex: %v", err)
	}

	allMerged, missing, err = e.Merge([]graph.Vertex{secondVertex})
	if err != nil {
		t.Fatalf("Merge (non-permissionless): %v", err)
	}
	if allMerged {
		t.Fatalf("expected non-admin write to be rejected once permissionless is off")
	}
	if _, ok := missing[secondVertex.Hash]; !ok {
		t.Fatalf("expected rejected vertex hash in missing, got %v", missing)
	}
}
