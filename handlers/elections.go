// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/novavote/ballotbox/cliparse"
	"github.com/novavote/ballotbox/crypto"
	"github.com/novavote/ballotbox/mailer"
	"github.com/novavote/ballotbox/middleware"
	"github.com/novavote/ballotbox/models"
)

type ElectionHandler struct {
	db        *sql.DB
	cfg       cliparse.Config
	mail      mailer.Sender
	decrypter crypto.ChoiceDecrypter
}

func NewElectionHandler(db *sql.DB, cfg cliparse.Config, mail mailer.Sender, dec crypto.ChoiceDecrypter) *ElectionHandler {
	return &ElectionHandler{db: db, cfg: cfg, mail: mail, decrypter: dec}
}

// querier is satisfied by both *sql.DB and *sql.Tx, so loaders can run
// inside or outside a transaction.
type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

// nextStatus maps each lifecycle state to its only legal successor.
var nextStatus = map[string]string{
	models.StatusDraft:  models.StatusOpen,
	models.StatusOpen:   models.StatusClosed,
	models.StatusClosed: models.StatusTallied,
}

// CreateElection handles POST /elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if msg := validateElection(&req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	electionID := uuid.NewString()

	publicKey, err := crypto.GeneratePublicKey()
	if err != nil {
		slog.Error("failed to generate public key", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	voterEmails, err := json.Marshal(req.VoterEmails)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid voter emails")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO election (id, title, description, admin_email, status, start_at, end_at, public_key, voter_emails, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, electionID, req.Title, req.Description, req.AdminEmail, models.StatusDraft,
		req.StartAt, req.EndAt, string(publicKey), string(voterEmails), time.Now())

	if err != nil {
		slog.Error("failed to insert election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	for i, q := range req.Questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid question options")
			return
		}

		_, err = tx.Exec(`
			INSERT INTO question (id, election_id, position, label, qtype, options)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.NewString(), electionID, i, q.Label, q.Type, string(options))

		if err != nil {
			slog.Error("failed to insert question", "error", err, "election_id", electionID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	slog.Info("election created", "election_id", electionID, "questions", len(req.Questions))

	middleware.JSONResponse(w, http.StatusCreated, models.CreateElectionResponse{
		ElectionID: electionID,
		Status:     models.StatusDraft,
		PublicKey:  publicKey,
	})
}

// validateElection returns an error message, or "" when the request is valid.
func validateElection(req *models.CreateElectionRequest) string {
	if req.Title == "" {
		return "title is required"
	}
	if req.AdminEmail == "" {
		return "admin_email is required"
	}
	if req.StartAt.IsZero() {
		req.StartAt = time.Now()
	}
	if req.EndAt.IsZero() || !req.EndAt.After(req.StartAt) {
		return "end_at must be after start_at"
	}
	if len(req.Questions) == 0 {
		return "at least one question is required"
	}
	for _, q := range req.Questions {
		if q.Label == "" {
			return "question label is required"
		}
		switch q.Type {
		case models.QuestionSingle, models.QuestionMultiple, models.QuestionRanking:
		default:
			return "question type must be single, multiple, or ranking"
		}
		if len(q.Options) < 2 {
			return "questions must have at least 2 options"
		}
		seen := make(map[string]bool, len(q.Options))
		for _, opt := range q.Options {
			if opt == "" {
				return "option labels cannot be empty"
			}
			if seen[opt] {
				return "option labels must be unique within a question"
			}
			seen[opt] = true
		}
	}
	return ""
}

// GetElection handles GET /elections/{id}
func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id is required")
		return
	}

	election, err := loadElection(h.db, electionID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	questions, err := loadQuestions(h.db, electionID)
	if err != nil {
		slog.Error("failed to query questions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ElectionWithQuestions{
		Election:  election,
		Questions: questions,
	})
}

// TransitionElection handles POST /elections/{id}/status
// Transitions are legal only to the immediate next state:
// draft -> open -> closed -> tallied.
func (h *ElectionHandler) TransitionElection(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id is required")
		return
	}

	var req models.TransitionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	election, err := loadElection(h.db, electionID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if req.Status != nextStatus[election.Status] {
		middleware.ErrorResponse(w, http.StatusConflict,
			"illegal transition from "+election.Status+" to "+req.Status)
		return
	}

	switch req.Status {
	case models.StatusOpen:
		h.openElection(w, election)
	case models.StatusClosed:
		h.closeElection(w, election)
	case models.StatusTallied:
		h.tallyElection(w, election)
	}
}

// openElection flips draft -> open and issues a magic link to every
// invited voter in the same transaction. Emails go out after commit;
// delivery failure never rolls the transition back.
func (h *ElectionHandler) openElection(w http.ResponseWriter, election models.Election) {
	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE election SET status = $1, opened_at = $2 WHERE id = $3 AND status = $4
	`, models.StatusOpen, time.Now(), election.ID, models.StatusDraft)
	if err != nil {
		slog.Error("failed to open election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to open election")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is no longer in draft")
		return
	}

	ttl := time.Duration(h.cfg.TokenTTLMinutes) * time.Minute
	invites := make(map[string]string, len(election.VoterEmails))
	for _, email := range election.VoterEmails {
		if email == "" {
			continue
		}
		token, err := issueToken(tx, election.ID, email, ttl)
		if err != nil {
			slog.Error("failed to issue token", "error", err, "election_id", election.ID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to invite voters")
			return
		}
		invites[email] = token
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to open election")
		return
	}

	for email, token := range invites {
		go h.sendMagicLink(email, election.Title, token)
	}

	slog.Info("election opened", "election_id", election.ID, "invited", len(invites))

	middleware.JSONResponse(w, http.StatusOK, models.TransitionResponse{
		ElectionID: election.ID,
		Status:     models.StatusOpen,
		Invited:    len(invites),
	})
}

func (h *ElectionHandler) sendMagicLink(email, title, token string) {
	voteURL := h.cfg.PublicURL + "/vote/" + token
	if err := h.mail.SendMagicLink(email, title, voteURL); err != nil {
		slog.Warn("failed to send magic link", "error", err, "email", email)
	}
}

// closeElection flips open -> closed. Once this commits, no ballot accept
// can succeed: SubmitBallot reads the status inside its own transaction.
func (h *ElectionHandler) closeElection(w http.ResponseWriter, election models.Election) {
	res, err := h.db.Exec(`
		UPDATE election SET status = $1, closed_at = $2 WHERE id = $3 AND status = $4
	`, models.StatusClosed, time.Now(), election.ID, models.StatusOpen)
	if err != nil {
		slog.Error("failed to close election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close election")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is no longer open")
		return
	}

	slog.Info("election closed", "election_id", election.ID)

	middleware.JSONResponse(w, http.StatusOK, models.TransitionResponse{
		ElectionID: election.ID,
		Status:     models.StatusClosed,
	})
}

// tallyElection flips closed -> tallied and freezes the results. The
// status update, tally computation, and snapshot insert share one
// transaction; the ledger cannot change underneath it because writes
// stopped at close.
func (h *ElectionHandler) tallyElection(w http.ResponseWriter, election models.Election) {
	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE election SET status = $1 WHERE id = $2 AND status = $3
	`, models.StatusTallied, election.ID, models.StatusClosed)
	if err != nil {
		slog.Error("failed to update election status", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to tally election")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is no longer closed")
		return
	}

	questions, err := loadQuestions(tx, election.ID)
	if err != nil {
		slog.Error("failed to query questions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to tally election")
		return
	}

	ballots, err := loadBallots(tx, election.ID)
	if err != nil {
		slog.Error("failed to query ballots", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to tally election")
		return
	}

	tally := ComputeTally(questions, ballots, h.decrypter)

	payload, err := json.Marshal(tally)
	if err != nil {
		slog.Error("failed to marshal tally", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to tally election")
		return
	}

	snapshotID := uuid.NewString()
	computedAt := time.Now()

	_, err = tx.Exec(`
		INSERT INTO tally_snapshot (id, election_id, computed_at, ballot_count, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, snapshotID, election.ID, computedAt, len(ballots), string(payload))
	if err != nil {
		slog.Error("failed to insert tally snapshot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save results")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to tally election")
		return
	}

	slog.Info("election tallied", "election_id", election.ID, "ballots", len(ballots), "snapshot_id", snapshotID)

	middleware.JSONResponse(w, http.StatusOK, models.TransitionResponse{
		ElectionID: election.ID,
		Status:     models.StatusTallied,
	})
}

// DeleteElection handles DELETE /elections/{id}
// Cascades to questions, tokens, ballots, and any tally snapshot.
func (h *ElectionHandler) DeleteElection(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id is required")
		return
	}

	res, err := h.db.Exec(`DELETE FROM election WHERE id = $1`, electionID)
	if err != nil {
		slog.Error("failed to delete election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete election")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}

	slog.Info("election deleted", "election_id", electionID)

	w.WriteHeader(http.StatusNoContent)
}

// loadElection reads one election row.
func loadElection(q querier, electionID string) (models.Election, error) {
	var e models.Election
	var publicKey string
	var voterEmails sql.NullString
	var openedAt, closedAt sql.NullTime

	err := q.QueryRow(`
		SELECT id, title, description, admin_email, status, start_at, end_at, public_key, voter_emails, opened_at, closed_at, created_at
		FROM election
		WHERE id = $1
	`, electionID).Scan(
		&e.ID, &e.Title, &e.Description, &e.AdminEmail, &e.Status,
		&e.StartAt, &e.EndAt, &publicKey, &voterEmails, &openedAt, &closedAt, &e.CreatedAt,
	)
	if err != nil {
		return models.Election{}, err
	}

	e.PublicKey = json.RawMessage(publicKey)
	if voterEmails.Valid && voterEmails.String != "" {
		if err := json.Unmarshal([]byte(voterEmails.String), &e.VoterEmails); err != nil {
			return models.Election{}, err
		}
	}
	if openedAt.Valid {
		e.OpenedAt = &openedAt.Time
	}
	if closedAt.Valid {
		e.ClosedAt = &closedAt.Time
	}
	return e, nil
}

// loadQuestions reads an election's questions in position order.
func loadQuestions(q querier, electionID string) ([]models.Question, error) {
	rows, err := q.Query(`
		SELECT id, election_id, position, label, qtype, options
		FROM question
		WHERE election_id = $1
		ORDER BY position
	`, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		var question models.Question
		var options string
		if err := rows.Scan(&question.ID, &question.ElectionID, &question.Position,
			&question.Label, &question.Type, &options); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(options), &question.Options); err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}

	return questions, rows.Err()
}
