// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides token generation and voter identity derivation.

# Magic Tokens

Magic tokens are random 32-byte (256-bit) single-use secrets:

	token, err := auth.GenerateMagicToken()

Tokens are URL-safe base64 encoded without padding. Each invitation mints a
fresh token; re-inviting a voter replaces their prior unredeemed token.

# Voter Fingerprints

Ballots are keyed by a non-reversible voter identifier rather than the
voter's email:

	fp := auth.VoterFingerprint(electionID, email, salt)

HMAC-SHA256 under a server-side salt; the same voter always produces the
same fingerprint within one election, which is what makes the ballot
table's uniqueness constraint enforce one-ballot-per-voter.

# Tracking Codes

Ballot receipts are fixed-width (16 char) upper-case hex:

	code := auth.GenerateTrackingCode(electionID, fp)

Short enough to transcribe by hand, random enough that collisions within
an election are negligible.

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
