// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/novavote/ballotbox/auth"
	"github.com/novavote/ballotbox/cliparse"
	"github.com/novavote/ballotbox/crypto"
	"github.com/novavote/ballotbox/db"
	"github.com/novavote/ballotbox/models"
)

// SetupTestDB creates a fresh file-backed SQLite database with the full
// schema. File-backed rather than :memory: so every connection in the
// pool sees the same database; busy_timeout covers concurrent tests.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := "file:" + t.TempDir() + "/test.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// SQLite permits one writer at a time. A single pooled connection
	// serializes transactions at the pool instead of surfacing
	// SQLITE_BUSY to concurrent tests.
	conn.SetMaxOpenConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:            3320,
		DatabaseType:    "sqlite",
		FingerprintSalt: "test-fingerprint-salt",
		TokenTTLMinutes: cliparse.DefaultTokenTTLMinutes,
		PublicURL:       "http://localhost:3001",
	}
}

// DefaultQuestions is the question set used by CreateTestElection when the
// caller passes nil: one of each type, options in a fixed order.
func DefaultQuestions() []models.QuestionInput {
	return []models.QuestionInput{
		{Label: "Chair", Type: models.QuestionSingle, Options: []string{"Alice", "Bob"}},
		{Label: "Committees", Type: models.QuestionMultiple, Options: []string{"Budget", "Outreach", "Audit"}},
		{Label: "Venue", Type: models.QuestionRanking, Options: []string{"Paris", "Lisbon", "Oslo"}},
	}
}

// CreateTestElection creates an election with questions and returns its ID.
// status should be "draft", "open", "closed", or "tallied".
func CreateTestElection(t *testing.T, db *sql.DB, status string, questions []models.QuestionInput) string {
	t.Helper()

	if questions == nil {
		questions = DefaultQuestions()
	}

	electionID := uuid.NewString()
	publicKey, err := crypto.GeneratePublicKey()
	if err != nil {
		t.Fatalf("Failed to generate public key: %v", err)
	}

	now := time.Now()
	_, err = db.Exec(`
		INSERT INTO election (id, title, description, admin_email, status, start_at, end_at, public_key, created_at)
		VALUES ($1, 'Test Election', 'A test election', 'admin@example.com', $2, $3, $4, $5, $6)
	`, electionID, status, now, now.Add(24*time.Hour), string(publicKey), now)
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}

	for i, q := range questions {
		options, _ := json.Marshal(q.Options)
		_, err := db.Exec(`
			INSERT INTO question (id, election_id, position, label, qtype, options)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.NewString(), electionID, i, q.Label, q.Type, string(options))
		if err != nil {
			t.Fatalf("Failed to create test question: %v", err)
		}
	}

	return electionID
}

// IssueTestToken mints an unredeemed magic-link token for a voter
func IssueTestToken(t *testing.T, db *sql.DB, electionID, email string) string {
	t.Helper()

	token, err := auth.GenerateMagicToken()
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	now := time.Now()
	_, err = db.Exec(`
		INSERT INTO voter_token (token, election_id, email, expires_at, redeemed, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
	`, token, electionID, email, now.Add(15*time.Minute), now)
	if err != nil {
		t.Fatalf("Failed to create test token: %v", err)
	}

	return token
}

// ExpireTestToken backdates a token so it reads as expired
func ExpireTestToken(t *testing.T, db *sql.DB, token string) {
	t.Helper()

	_, err := db.Exec(`
		UPDATE voter_token SET expires_at = $1 WHERE token = $2
	`, time.Now().Add(-time.Minute), token)
	if err != nil {
		t.Fatalf("Failed to expire test token: %v", err)
	}
}

// MakeTestEnvelope builds an envelope from one ciphertext per question,
// with a proof the verifier accepts.
func MakeTestEnvelope(t *testing.T, ciphertexts ...string) (models.Envelope, models.Proof) {
	t.Helper()

	env := models.Envelope{}
	for _, ct := range ciphertexts {
		env.Choices = append(env.Choices, models.EncryptedChoice{Encrypted: ct})
	}

	proof, err := crypto.BuildProof(env)
	if err != nil {
		t.Fatalf("Failed to build proof: %v", err)
	}
	return env, proof
}

// DefaultEnvelope answers the DefaultQuestions set: Alice for chair,
// Budget+Audit for committees, Paris > Lisbon > Oslo for venue.
func DefaultEnvelope(t *testing.T) (models.Envelope, models.Proof) {
	t.Helper()
	return MakeTestEnvelope(t,
		crypto.EncodeSingle("Alice"),
		crypto.EncodeMultiple([]string{"Budget", "Audit"}),
		crypto.EncodeRanking([]string{"Paris", "Lisbon", "Oslo"}),
	)
}

// SubmitTestBallot writes a ballot straight into the ledger, bypassing the
// HTTP handler, and returns its tracking code
func SubmitTestBallot(t *testing.T, db *sql.DB, cfg cliparse.Config, electionID, email string, env models.Envelope, proof models.Proof) string {
	t.Helper()

	fingerprint := auth.VoterFingerprint(electionID, email, cfg.FingerprintSalt)
	trackingCode := auth.GenerateTrackingCode(electionID, fingerprint)

	envelope, _ := json.Marshal(env)
	proofJSON, _ := json.Marshal(proof)

	_, err := db.Exec(`
		INSERT INTO ballot (id, election_id, voter_fingerprint, envelope, proof, tracking_code, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.NewString(), electionID, fingerprint, string(envelope), string(proofJSON), trackingCode, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test ballot: %v", err)
	}

	return trackingCode
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
