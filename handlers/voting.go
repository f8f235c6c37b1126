// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/novavote/ballotbox/auth"
	"github.com/novavote/ballotbox/cliparse"
	"github.com/novavote/ballotbox/crypto"
	"github.com/novavote/ballotbox/db"
	"github.com/novavote/ballotbox/mailer"
	"github.com/novavote/ballotbox/middleware"
	"github.com/novavote/ballotbox/models"
)

var (
	errTokenNotFound = errors.New("token not found")
	errTokenExpired  = errors.New("token expired")
	errTokenRedeemed = errors.New("token already redeemed")
)

type VotingHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	mail     mailer.Sender
	verifier crypto.ProofVerifier
}

func NewVotingHandler(database *sql.DB, cfg cliparse.Config, mail mailer.Sender, verifier crypto.ProofVerifier) *VotingHandler {
	return &VotingHandler{db: database, cfg: cfg, mail: mail, verifier: verifier}
}

// SubmitBallot handles POST /elections/{id}/ballots
//
// This is the atomic "cast one vote" unit. One transaction covers the
// authoritative election status read, the single-use token redemption,
// and the ballot insert, so a redeemed-but-unrecorded vote and a
// recorded-but-unbound vote are both impossible. Concurrent submissions
// for the same voter are serialized by the ballot table's
// (election_id, voter_fingerprint) unique constraint: exactly one
// succeeds, the rest observe a duplicate-ballot conflict.
func (h *VotingHandler) SubmitBallot(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id is required")
		return
	}

	var req models.SubmitBallotRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.MagicToken == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "magic_token is required")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	// Authoritative status read: a close observed here, inside the same
	// transaction as the insert below, is final.
	var status, title, publicKey string
	err = tx.QueryRow(`
		SELECT status, title, public_key FROM election WHERE id = $1
	`, electionID).Scan(&status, &title, &publicKey)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if status != models.StatusOpen {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not open for voting")
		return
	}

	voterEmail, err := consumeToken(tx, req.MagicToken, electionID)
	if err != nil {
		switch err {
		case errTokenNotFound:
			// Generic: do not reveal whether the token exists or belongs
			// to a different election.
			middleware.ErrorResponse(w, http.StatusNotFound, "Not found")
		case errTokenExpired:
			middleware.ErrorResponse(w, http.StatusGone, "Token expired")
		case errTokenRedeemed:
			middleware.ErrorResponse(w, http.StatusConflict, "Token already redeemed")
		default:
			slog.Error("failed to redeem token", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	var questionCount int
	if err := tx.QueryRow(`
		SELECT COUNT(*) FROM question WHERE election_id = $1
	`, electionID).Scan(&questionCount); err != nil {
		slog.Error("failed to count questions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := crypto.ValidateEnvelope(req.Envelope, questionCount); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Malformed envelope")
		return
	}
	if err := crypto.ValidateProof(req.Proof); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Missing proof")
		return
	}

	// Cryptographic soundness is the verifier's call; a false or error
	// result rejects the ballot before any write.
	ok, err := h.verifier.Verify(req.Envelope, req.Proof, json.RawMessage(publicKey))
	if err != nil || !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid proof")
		return
	}

	fingerprint := auth.VoterFingerprint(electionID, voterEmail, h.cfg.FingerprintSalt)

	envelope, err := json.Marshal(req.Envelope)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Malformed envelope")
		return
	}
	proof, err := json.Marshal(req.Proof)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Missing proof")
		return
	}

	trackingCode, err := freshTrackingCode(tx, electionID, fingerprint)
	if err != nil {
		slog.Error("failed to generate tracking code", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	submittedAt := time.Now()
	_, err = tx.Exec(`
		INSERT INTO ballot (id, election_id, voter_fingerprint, envelope, proof, tracking_code, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.NewString(), electionID, fingerprint, string(envelope), string(proof), trackingCode, submittedAt)

	if err != nil {
		if db.IsUniqueViolation(err) && strings.Contains(err.Error(), "fingerprint") {
			middleware.ErrorResponse(w, http.StatusConflict, "A ballot has already been cast for this voter")
			return
		}
		slog.Error("failed to insert ballot", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit ballot")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit ballot")
		return
	}

	// Fire-and-forget confirmation; the ballot is already durable.
	go func() {
		if err := h.mail.SendTrackingCode(voterEmail, title, trackingCode); err != nil {
			slog.Warn("failed to send tracking code", "error", err)
		}
	}()

	slog.Info("ballot accepted", "election_id", electionID, "tracking_code", trackingCode)

	middleware.JSONResponse(w, http.StatusCreated, models.SubmitBallotResponse{
		TrackingCode: trackingCode,
		SubmittedAt:  submittedAt,
	})
}

// consumeToken redeems a magic-link token inside the caller's
// transaction. The guarded UPDATE is the serialization point: of two
// concurrent redemptions of the same token, exactly one sees a row
// affected.
func consumeToken(tx querier, token, electionID string) (string, error) {
	var email string
	var tokenElection string
	var expiresAt time.Time
	var redeemed bool

	err := tx.QueryRow(`
		SELECT email, election_id, expires_at, redeemed
		FROM voter_token
		WHERE token = $1
	`, token).Scan(&email, &tokenElection, &expiresAt, &redeemed)

	if err == sql.ErrNoRows {
		return "", errTokenNotFound
	}
	if err != nil {
		return "", err
	}

	// A token bound to another election is indistinguishable from an
	// unknown one.
	if tokenElection != electionID {
		return "", errTokenNotFound
	}
	if redeemed {
		return "", errTokenRedeemed
	}
	if time.Now().After(expiresAt) {
		return "", errTokenExpired
	}

	res, err := tx.Exec(`
		UPDATE voter_token SET redeemed = TRUE WHERE token = $1 AND redeemed = FALSE
	`, token)
	if err != nil {
		return "", err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", errTokenRedeemed
	}

	return email, nil
}

// freshTrackingCode generates a tracking code that is not yet present in
// the election. Collisions in a 64-bit code space are negligible; the
// pre-check keeps the rare retry off the insert path, where a constraint
// failure would poison a PostgreSQL transaction.
func freshTrackingCode(tx querier, electionID, fingerprint string) (string, error) {
	for range 5 {
		code := auth.GenerateTrackingCode(electionID, fingerprint)

		var exists bool
		err := tx.QueryRow(`
			SELECT EXISTS(SELECT 1 FROM ballot WHERE election_id = $1 AND tracking_code = $2)
		`, electionID, code).Scan(&exists)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("tracking code space exhausted")
}

// GetBallot handles GET /elections/{id}/ballots/{code}
// Returns the stored ballot record. Envelope and proof bytes are withheld
// until the election has left the open state.
func (h *VotingHandler) GetBallot(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	code := r.PathValue("code")
	if electionID == "" || code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id and tracking code are required")
		return
	}

	var envelope, proof, status string
	var submittedAt time.Time
	err := h.db.QueryRow(`
		SELECT b.envelope, b.proof, b.submitted_at, e.status
		FROM ballot b
		JOIN election e ON b.election_id = e.id
		WHERE b.election_id = $1 AND b.tracking_code = $2
	`, electionID, code).Scan(&envelope, &proof, &submittedAt, &status)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		slog.Error("failed to query ballot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	record := models.BallotRecord{
		TrackingCode: code,
		SubmittedAt:  submittedAt,
	}

	// Policy: raw envelope bytes are not exposed before closure.
	if status == models.StatusClosed || status == models.StatusTallied {
		var env models.Envelope
		var prf models.Proof
		if err := json.Unmarshal([]byte(envelope), &env); err == nil {
			record.Envelope = &env
		}
		if err := json.Unmarshal([]byte(proof), &prf); err == nil {
			record.Proof = &prf
		}
	}

	middleware.JSONResponse(w, http.StatusOK, record)
}
