// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/novavote/ballotbox/auth"
	"github.com/novavote/ballotbox/cliparse"
	"github.com/novavote/ballotbox/mailer"
	"github.com/novavote/ballotbox/middleware"
	"github.com/novavote/ballotbox/models"
)

type TokenHandler struct {
	db   *sql.DB
	cfg  cliparse.Config
	mail mailer.Sender
}

func NewTokenHandler(db *sql.DB, cfg cliparse.Config, mail mailer.Sender) *TokenHandler {
	return &TokenHandler{db: db, cfg: cfg, mail: mail}
}

// IssueToken handles POST /elections/{id}/tokens
// Invites a voter: mints a fresh single-use magic-link token and emails it.
// Re-inviting the same voter replaces any prior unredeemed token, so at
// most one live token exists per (election, email) at a time.
func (h *TokenHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id is required")
		return
	}

	var req models.IssueTokenRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Email == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "email is required")
		return
	}

	var status, title string
	err := h.db.QueryRow(`
		SELECT status, title FROM election WHERE id = $1
	`, electionID).Scan(&status, &title)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if status != models.StatusDraft && status != models.StatusOpen {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is no longer accepting invitations")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	token, err := issueToken(tx, electionID, req.Email, time.Duration(h.cfg.TokenTTLMinutes)*time.Minute)
	if err != nil {
		slog.Error("failed to issue token", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	// Fire-and-forget: delivery failure must not roll back issuance.
	go func() {
		voteURL := h.cfg.PublicURL + "/vote/" + token
		if err := h.mail.SendMagicLink(req.Email, title, voteURL); err != nil {
			slog.Warn("failed to send magic link", "error", err, "email", req.Email)
		}
	}()

	slog.Info("voter invited", "election_id", electionID)

	middleware.JSONResponse(w, http.StatusCreated, models.IssueTokenResponse{
		Message:          "Magic link sent",
		ExpiresInMinutes: h.cfg.TokenTTLMinutes,
	})
}

// issueToken replaces any unredeemed token for (election, email) with a
// fresh one. Runs inside the caller's transaction.
func issueToken(tx querier, electionID, email string, ttl time.Duration) (string, error) {
	_, err := tx.Exec(`
		DELETE FROM voter_token WHERE election_id = $1 AND email = $2 AND redeemed = FALSE
	`, electionID, email)
	if err != nil {
		return "", err
	}

	token, err := auth.GenerateMagicToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	_, err = tx.Exec(`
		INSERT INTO voter_token (token, election_id, email, expires_at, redeemed, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
	`, token, electionID, email, now.Add(ttl), now)
	if err != nil {
		return "", err
	}

	return token, nil
}

// GetVotingSession handles GET /vote/{token}
// Validates the magic link and returns the voting session: election
// metadata, ordered questions, and the public key. The token is NOT
// consumed here; consumption happens atomically with ballot acceptance.
func (h *TokenHandler) GetVotingSession(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "token is required")
		return
	}

	var vt models.VoterToken
	var election models.Election
	var publicKey string

	err := h.db.QueryRow(`
		SELECT t.election_id, t.email, t.expires_at, t.redeemed,
		       e.title, e.description, e.status, e.public_key
		FROM voter_token t
		JOIN election e ON t.election_id = e.id
		WHERE t.token = $1
	`, token).Scan(
		&vt.ElectionID, &vt.Email, &vt.ExpiresAt, &vt.Redeemed,
		&election.Title, &election.Description, &election.Status, &publicKey,
	)

	if err == sql.ErrNoRows {
		// Generic: do not reveal whether the token ever existed.
		middleware.ErrorResponse(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		slog.Error("failed to query token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if vt.Redeemed {
		middleware.ErrorResponse(w, http.StatusConflict, "Token already redeemed")
		return
	}
	if time.Now().After(vt.ExpiresAt) {
		middleware.ErrorResponse(w, http.StatusGone, "Token expired")
		return
	}
	if election.Status != models.StatusOpen {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not open")
		return
	}

	questions, err := loadQuestions(h.db, vt.ElectionID)
	if err != nil {
		slog.Error("failed to query questions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VotingSessionResponse{
		ElectionID:  vt.ElectionID,
		Title:       election.Title,
		Description: election.Description,
		Email:       vt.Email,
		Questions:   questions,
		PublicKey:   []byte(publicKey),
	})
}
