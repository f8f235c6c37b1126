// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package crypto

import (
	"errors"

	"github.com/novavote/ballotbox/models"
)

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrMissingProof      = errors.New("missing or malformed proof")
)

// ValidateEnvelope checks structural well-formedness of a submitted ballot:
// exactly one encrypted choice per question, in question order, each with a
// non-empty ciphertext. It makes no cryptographic judgement.
func ValidateEnvelope(env models.Envelope, questionCount int) error {
	if len(env.Choices) != questionCount {
		return ErrMalformedEnvelope
	}
	for _, c := range env.Choices {
		if c.Encrypted == "" {
			return ErrMalformedEnvelope
		}
	}
	return nil
}

// ValidateProof checks that the proof artifact is present and carries all
// of its fields. Soundness is the ProofVerifier's job.
func ValidateProof(proof models.Proof) error {
	if proof.Commitment == "" || proof.Challenge == "" || proof.Response == "" {
		return ErrMissingProof
	}
	return nil
}
