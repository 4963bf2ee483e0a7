// Package didkey implements the keypair primitive behind the registry:
// Ed25519 key generation and the deterministic public-key-to-DID mapping.
//
// A did:key encodes the raw Ed25519 public key directly in the identifier:
// multibase base58btc ("z" prefix) over the 0xed 0x01 multicodec header
// followed by the 32 public key bytes. Derivation needs no network calls and
// the same key always yields the same DID.
package didkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"did-registry/pkg/domain"
)

// Prefix is the did:key method prefix.
const Prefix = "did:key:"

// multicodec header for ed25519-pub.
var multicodecEd25519 = []byte{0xed, 0x01}

const pemBlockType = "PRIVATE KEY"

// ErrInvalidKey reports private key material that cannot be decoded into an
// Ed25519 key.
var ErrInvalidKey = errors.New("invalid private key material")

// DIDFromPublicKey derives the did:key identifier for an Ed25519 public key.
func DIDFromPublicKey(pub ed25519.PublicKey) domain.DID {
	payload := make([]byte, 0, len(multicodecEd25519)+len(pub))
	payload = append(payload, multicodecEd25519...)
	payload = append(payload, pub...)
	return domain.DID(Prefix + "z" + base58.Encode(payload))
}

// Generate produces a fresh keypair, returning the derived DID and the
// private key as PKCS#8 PEM. Failure means the entropy source or encoder is
// unavailable, not bad input.
func Generate() (domain.DID, string, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ed25519 key: %w", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", "", fmt.Errorf("encode private key: %w", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: pemBlockType, Bytes: der})
	return DIDFromPublicKey(pub), string(pemBytes), nil
}

// DeriveDID recovers the DID from private key PEM. This is the proof of
// possession primitive: presenting key material that derives to a claimed
// DID demonstrates control of it.
func DeriveDID(privPEM string) (domain.DID, error) {
	block, _ := pem.Decode([]byte(privPEM))
	if block == nil {
		return "", fmt.Errorf("%w: no PEM block found", ErrInvalidKey)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return "", fmt.Errorf("%w: not an ed25519 key", ErrInvalidKey)
	}
	return DIDFromPublicKey(priv.Public().(ed25519.PublicKey)), nil
}

// PublicKeyPart strips the method prefix, leaving the multibase-encoded
// public key. Stored denormalized alongside the DID for lookup convenience.
func PublicKeyPart(did domain.DID) string {
	s := did.String()
	if len(s) > len(Prefix) && s[:len(Prefix)] == Prefix {
		return s[len(Prefix):]
	}
	return s
}

// Generator adapts this package to the issuer's keypair interface.
type Generator struct{}

func (Generator) Generate() (domain.DID, string, error) { return Generate() }
func (Generator) DeriveDID(pem string) (domain.DID, error) { return DeriveDID(pem) }
