package signer

import (
	"context"
	"testing"

	"github.com/FuelLabs/bridge-message-predicates/fuel"
)

func TestSignVerify(t *testing.T) {
	s, err := Generate()
	if err != nil {
		t.Fatal(err)
	}
	tx := &fuel.Transaction{
		GasLimit: 10,
		Inputs:   []fuel.Input{&fuel.CoinInput{Owner: s.Address(), Amount: 5}},
	}
	if err := s.Sign(context.Background(), tx); err != nil {
		t.Fatal(err)
	}
	if len(tx.Witnesses) != 1 {
		t.Fatalf("got %d witnesses, want 1", len(tx.Witnesses))
	}
	owner, ok := Verify(tx.Witnesses[0], tx.ID())
	if !ok {
		t.Fatal("signature does not verify")
	}
	if owner != s.Address() {
		t.Errorf("got owner %s, want %s", owner, s.Address())
	}

	// Signing again replaces the witness rather than adding one.
	if err := s.Sign(context.Background(), tx); err != nil {
		t.Fatal(err)
	}
	if len(tx.Witnesses) != 1 {
		t.Fatalf("got %d witnesses after re-signing, want 1", len(tx.Witnesses))
	}

	tx.GasLimit++
	if _, ok := Verify(tx.Witnesses[0], tx.ID()); ok {
		t.Error("signature verifies after the transaction changed")
	}
	if _, ok := Verify(tx.Witnesses[0][:10], tx.ID()); ok {
		t.Error("short witness verifies")
	}
}

func TestFromHex(t *testing.T) {
	const prvHex = "ed3c129e6207ce1b0ba5bf288598723e3ad7a9ac4d84ca91acf86ae25a9f0900cca6ae12527fcb3f8d5648868a757ebb085a973b0fd518a5580a6ee29b72f8c1"
	s, err := FromHex(prvHex)
	if err != nil {
		t.Fatal(err)
	}
	if got := Owner(s.PublicKey()); got != s.Address() {
		t.Errorf("got owner %s, want %s", got, s.Address())
	}
	if _, err := FromHex("abcd"); err == nil {
		t.Error("got no error for a short key")
	}
	if _, err := FromHex("zz"); err == nil {
		t.Error("got no error for bad hex")
	}
}
