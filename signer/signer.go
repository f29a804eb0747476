// Package signer authorizes coin inputs with ed25519 keys.
//
// A key owns the address sha256(pubkey). Its witness on a transaction
// is the public key followed by the signature of the transaction id.
package signer

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/chain/txvm/crypto/ed25519"
	"github.com/chain/txvm/errors"
)

// WitnessSize is the length of a witness: public key, then signature.
const WitnessSize = ed25519.PublicKeySize + ed25519.SignatureSize

var ErrBadKey = errors.New("bad private key")

// Signer signs relay transactions with one key.
type Signer struct {
	prv  ed25519.PrivateKey
	pub  ed25519.PublicKey
	addr fuel.Address
}

func New(prv ed25519.PrivateKey) (*Signer, error) {
	if len(prv) != ed25519.PrivateKeySize {
		return nil, errors.WithDetailf(ErrBadKey, "%d bytes", len(prv))
	}
	pub := prv.Public().(ed25519.PublicKey)
	return &Signer{prv: prv, pub: pub, addr: Owner(pub)}, nil
}

// Generate returns a Signer with a fresh random key.
func Generate() (*Signer, error) {
	_, prv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generating key")
	}
	return New(prv)
}

// FromHex parses a hex-encoded private key.
func FromHex(s string) (*Signer, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.WithDetail(ErrBadKey, err.Error())
	}
	return New(ed25519.PrivateKey(b))
}

// Owner is the address owned by pub.
func Owner(pub ed25519.PublicKey) fuel.Address {
	return fuel.Hash(pub)
}

func (s *Signer) Address() fuel.Address          { return s.addr }
func (s *Signer) PublicKey() ed25519.PublicKey   { return s.pub }
func (s *Signer) PrivateKey() ed25519.PrivateKey { return s.prv }

// Sign sets witness 0 of tx to a signature over its id.
func (s *Signer) Sign(_ context.Context, tx *fuel.Transaction) error {
	id := tx.ID()
	w := make([]byte, 0, WitnessSize)
	w = append(w, s.pub...)
	w = append(w, ed25519.Sign(s.prv, id[:])...)
	if len(tx.Witnesses) == 0 {
		tx.AddWitness(w)
	} else {
		tx.Witnesses[0] = w
	}
	return nil
}

// Verify checks that witness is a valid signature of id and returns
// the address of the key that made it.
func Verify(witness []byte, id fuel.TxID) (fuel.Address, bool) {
	if len(witness) != WitnessSize {
		return fuel.Address{}, false
	}
	pub := ed25519.PublicKey(witness[:ed25519.PublicKeySize])
	if !ed25519.Verify(pub, id[:], witness[ed25519.PublicKeySize:]) {
		return fuel.Address{}, false
	}
	return Owner(pub), true
}
