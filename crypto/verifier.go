// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/novavote/ballotbox/models"
)

// ProofVerifier judges the zero-knowledge proof accompanying an envelope.
// A false or error result rejects the ballot before any ledger write.
//
// The production implementation is expected to be a real ZK proof system;
// the server treats it as a pluggable collaborator.
type ProofVerifier interface {
	Verify(env models.Envelope, proof models.Proof, publicKey json.RawMessage) (bool, error)
}

// FiatShamirVerifier is the placeholder verifier: it re-derives the
// challenge as SHA-256(commitment || ciphertexts) and compares. This checks
// that the proof was built against this exact envelope, nothing more.
type FiatShamirVerifier struct{}

func NewFiatShamirVerifier() *FiatShamirVerifier {
	return &FiatShamirVerifier{}
}

func (v *FiatShamirVerifier) Verify(env models.Envelope, proof models.Proof, publicKey json.RawMessage) (bool, error) {
	return proof.Challenge == deriveChallenge(proof.Commitment, env), nil
}

// BuildProof produces a proof artifact the FiatShamirVerifier accepts.
// Used by the voting client and by tests; a real prover replaces this.
func BuildProof(env models.Envelope) (models.Proof, error) {
	commitment := make([]byte, 16)
	if _, err := rand.Read(commitment); err != nil {
		return models.Proof{}, err
	}
	response := make([]byte, 16)
	if _, err := rand.Read(response); err != nil {
		return models.Proof{}, err
	}

	p := models.Proof{
		Commitment: hex.EncodeToString(commitment),
		Response:   hex.EncodeToString(response),
	}
	p.Challenge = deriveChallenge(p.Commitment, env)
	return p, nil
}

func deriveChallenge(commitment string, env models.Envelope) string {
	h := sha256.New()
	h.Write([]byte(commitment))
	for _, c := range env.Choices {
		h.Write([]byte{0})
		h.Write([]byte(c.Encrypted))
	}
	return hex.EncodeToString(h.Sum(nil))
}
