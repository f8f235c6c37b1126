// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TrackingCodeLength is the fixed width of a ballot tracking code in hex
// characters. 64 bits of code space makes collisions within a single
// election negligible; insertion still retries on the unique constraint.
const TrackingCodeLength = 16

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateMagicToken creates the single-use voter access token embedded in
// a magic link. 32 bytes = 256 bits of entropy, URL-safe base64 without
// padding so it survives being pasted into a URL path.
func GenerateMagicToken() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate magic token: %w", err)
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}

// VoterFingerprint derives the non-reversible voter identifier stored with
// a ballot. It binds (election, email) under a server-side salt so the raw
// email never reaches the ledger, while the same voter always maps to the
// same fingerprint within one election.
func VoterFingerprint(electionID, email, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(electionID))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(h.Sum(nil))
}

// GenerateTrackingCode creates a short, human-transcribable ballot receipt:
// fixed-width upper-case hex, unique within an election (enforced by the
// ballot table's unique constraint, with retry on collision).
func GenerateTrackingCode(electionID, fingerprint string) string {
	sum := sha256.Sum256([]byte(electionID + fingerprint + uuid.NewString()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))[:TrackingCodeLength]
}
