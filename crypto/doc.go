// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package crypto defines the ballot envelope codec and the pluggable
cryptographic collaborator interfaces.

# Envelope Codec

ValidateEnvelope and ValidateProof check structural well-formedness only:
one ciphertext per question in question order, proof artifact present with
all fields. They guarantee shape conformance so storage and tallying can
rely on structural invariants; secrecy and soundness are out of their hands.

# Collaborators

Two interfaces isolate the actual cryptography:

  - ProofVerifier: judges a ballot's proof before the ledger write.
  - ChoiceDecrypter: recovers one plaintext choice per question during
    tallying, after the election has closed.

The shipped implementations (FiatShamirVerifier, Base64Decrypter) are
placeholders that preserve the wire shapes and failure modes of the real
scheme without providing its security. Swap them out behind the same
interfaces to deploy real ElGamal encryption and ZK proofs.
*/
package crypto
