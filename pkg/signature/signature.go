// Package signature verifies Ed25519 signatures over a Pact round's
// envelope hash, wire-encoded per spec.md §3/§4.5: base58 signature and
// public key, hex-encoded message digest.
package signature

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// Result is the outcome of verifying a single round's signature.
type Result struct {
	RoundNumber int
	Verified    bool
	// Unverifiable is true when no public key was available for this
	// round at all (spec.md §4.5 step 1) — distinct from Verified=false,
	// which means a key was present but the signature did not check out.
	Unverifiable bool
	Detail       string
}

// UnsupportedSchemeError is returned when a round declares a signature
// scheme other than ed25519, the only one this verifier supports.
type UnsupportedSchemeError struct {
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("signature: unsupported scheme %q", e.Scheme)
}

// Verify checks the Ed25519 signature over envelopeHash (hex-decoded)
// using signatureB58 and publicKeyB58 (both base58), per spec.md §4.5
// steps 2-3.
func Verify(envelopeHash, signatureB58, publicKeyB58, scheme string) (bool, error) {
	if scheme != "" && scheme != "ed25519" {
		return false, &UnsupportedSchemeError{Scheme: scheme}
	}

	sig, err := base58.Decode(signatureB58)
	if err != nil {
		return false, fmt.Errorf("signature: invalid base58 signature: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return false, fmt.Errorf("signature: signature is %d bytes, want %d", len(sig), ed25519.SignatureSize)
	}

	pub, err := base58.Decode(publicKeyB58)
	if err != nil {
		return false, fmt.Errorf("signature: invalid base58 public key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("signature: public key is %d bytes, want %d", len(pub), ed25519.PublicKeySize)
	}

	msg, err := hex.DecodeString(envelopeHash)
	if err != nil {
		return false, fmt.Errorf("signature: invalid hex envelope_hash: %w", err)
	}

	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig), nil
}

// Signer produces base58-encoded Ed25519 signatures. Only used by tests
// to build fixture packs; the verifier itself never signs.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

func NewSigner(priv ed25519.PrivateKey) *Signer {
	return &Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}
}

// PublicKeyB58 returns the base58-encoded public key, the wire form
// round.signature.signer_public_key_b58 expects.
func (s *Signer) PublicKeyB58() string {
	return base58.Encode(s.pub)
}

// SignEnvelopeHash signs the hex-decoded envelope hash and returns the
// base58-encoded signature.
func (s *Signer) SignEnvelopeHash(envelopeHashHex string) (string, error) {
	msg, err := hex.DecodeString(envelopeHashHex)
	if err != nil {
		return "", fmt.Errorf("signature: invalid hex envelope_hash: %w", err)
	}
	sig := ed25519.Sign(s.priv, msg)
	return base58.Encode(sig), nil
}
