package acl

import (
	"testing"

	"github.com/mosaicnetworks/drp/keys"
)

func TestPermissionlessDefaultAdmitsAnyPeer(t *testing.T) {
	priv, err := keys.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	creator := keys.PublicCredentialOf(priv)

	a := NewPermissionless(creator)

	if !a.IsWriter("anyone-at-all") {
		t.Fatalf("expected permissionless ACL to admit any peer")
	}
	if !a.IsWriter(creator.String()) {
		t.Fatalf("expected permissionless ACL to admit its own creator")
	}
}

func TestToggleToNonPermissionlessRejectsNonAdmins(t *testing.T) {
	priv, err := keys.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	creator := keys.PublicCredentialOf(priv)

	a := NewPermissionless(creator)

	if _, err := a.SetPermissionless(false); err != nil {
		t.Fatalf("SetPermissionless: %v", err)
	}

	if a.IsWriter("not-an-admin") {
		t.Fatalf("expected non-admin to be rejected once permissionless is off")
	}
	if !a.IsWriter(creator.String()) {
		t.Fatalf("expected the creator (an admin) to still be a writer")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	priv, err := keys.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	creator := keys.PublicCredentialOf(priv)

	a := NewPermissionless(creator)
	clone := a.Clone().(*ACL)

	if _, err := clone.AddAdmin("new-admin"); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}

	if a.IsWriter("new-admin") && !a.Permissionless {
		t.Fatalf("expected original ACL's admin set to be unaffected by clone mutation")
	}
	if _, ok := a.Admins["new-admin"]; ok {
		t.Fatalf("expected original ACL's admin map to be untouched")
	}
}

func TestEqual(t *testing.T) {
	priv, err := keys.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	creator := keys.PublicCredentialOf(priv)

	a := NewPermissionless(creator)
	b := a.Clone().(*ACL)

	if !a.Equal(b) {
		t.Fatalf("expected a clone to be Equal to its source")
	}

	if _, err := b.AddAdmin("extra"); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}

	if a.Equal(b) {
		t.Fatalf("expected a mutated clone to no longer be Equal")
	}
}
