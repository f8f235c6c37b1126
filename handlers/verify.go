// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/novavote/ballotbox/cliparse"
	"github.com/novavote/ballotbox/middleware"
	"github.com/novavote/ballotbox/models"
)

type VerifyHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewVerifyHandler(db *sql.DB, cfg cliparse.Config) *VerifyHandler {
	return &VerifyHandler{db: db, cfg: cfg}
}

// VerifyBallot handles GET /elections/{id}/verify/{code}
// Confirms that a ballot bearing the tracking code is recorded in the
// election's ledger. The lookup is scoped to the election in the path; a
// code from another election answers exactly like an unknown one.
func (h *VerifyHandler) VerifyBallot(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	code := r.PathValue("code")
	if electionID == "" || code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id and tracking code are required")
		return
	}

	var submittedAt time.Time
	err := h.db.QueryRow(`
		SELECT submitted_at FROM ballot WHERE election_id = $1 AND tracking_code = $2
	`, electionID, code).Scan(&submittedAt)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		slog.Error("failed to query ballot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VerifyBallotResponse{
		TrackingCode: code,
		SubmittedAt:  submittedAt,
		Verified:     true,
	})
}
