package keystore_test

import (
	"testing"

	"sotto/internal/domain"
	"sotto/internal/keystore"
)

func TestIdentity_SaveLoad_OK(t *testing.T) {
	home := t.TempDir()
	ks := keystore.NewFileStore(home)

	id, fp, err := ks.Generate("pass", "alice")
	if err != nil {
		t.Fatalf("generate identity: %v", err)
	}
	if fp == "" {
		t.Fatal("empty fingerprint")
	}

	got, err := ks.LoadIdentity("pass")
	if err != nil {
		t.Fatalf("load identity: %v", err)
	}
	if got.Username != "alice" || got.PublicKey != id.PublicKey || got.PrivateKey != id.PrivateKey {
		t.Fatal("mismatch after load")
	}
}

func TestIdentity_WrongPassphrase_Fails(t *testing.T) {
	home := t.TempDir()
	ks := keystore.NewFileStore(home)

	if _, _, err := ks.Generate("correct", "alice"); err != nil {
		t.Fatalf("generate identity: %v", err)
	}
	if _, err := ks.LoadIdentity("wrong"); err == nil {
		t.Fatal("expected error with wrong passphrase")
	}
}

func TestIdentity_PrivateKeyParses(t *testing.T) {
	home := t.TempDir()
	ks := keystore.NewFileStore(home)

	if _, _, err := ks.Generate("pass", "alice"); err != nil {
		t.Fatalf("generate identity: %v", err)
	}
	priv, id, err := ks.PrivateKey("pass")
	if err != nil {
		t.Fatalf("private key: %v", err)
	}
	if priv == nil || id.Username != "alice" {
		t.Fatal("unexpected identity")
	}

	// Updating the assigned principal id must survive a save/load cycle.
	id.ID = domain.PrincipalID("p-1")
	if err := ks.SaveIdentity("pass", id); err != nil {
		t.Fatalf("save identity: %v", err)
	}
	got, err := ks.LoadIdentity("pass")
	if err != nil {
		t.Fatalf("load identity: %v", err)
	}
	if got.ID != "p-1" {
		t.Fatalf("principal id not persisted: %q", got.ID)
	}
}
