package finality

import (
	"testing"

	"github.com/mosaicnetworks/drp/hash"
)

func TestBootstrapThenAttestToQuorum(t *testing.T) {
	s := NewStore()
	h := hash.Hash("v1")

	s.Bootstrap(h, []string{"p1", "p2"})

	reached, err := s.Attest(h, "p1")
	if err != nil {
		t.Fatalf("Attest: %v", err)
	}
	if reached {
		t.Fatalf("expected quorum not yet reached with 1 of 2 signers")
	}

	reached, err = s.Attest(h, "p2")
	if err != nil {
		t.Fatalf("Attest: %v", err)
	}
	if !reached {
		t.Fatalf("expected quorum reached with 2 of 2 signers")
	}
}

func TestAttestRejectsUnknownVertex(t *testing.T) {
	s := NewStore()
	_, err := s.Attest(hash.Hash("missing"), "p1")
	if err == nil {
		t.Fatalf("expected an error attesting to an unbootstrapped vertex")
	}
}

func TestAttestRejectsNonSigner(t *testing.T) {
	s := NewStore()
	h := hash.Hash("v1")
	s.Bootstrap(h, []string{"p1"})

	_, err := s.Attest(h, "not-a-signer")
	if err == nil {
		t.Fatalf("expected an error attesting as a non-required signer")
	}
}
