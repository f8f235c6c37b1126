// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/novavote/ballotbox/cliparse"
	"github.com/novavote/ballotbox/crypto"
	"github.com/novavote/ballotbox/middleware"
	"github.com/novavote/ballotbox/models"
)

type ResultsHandler struct {
	db        *sql.DB
	cfg       cliparse.Config
	decrypter crypto.ChoiceDecrypter
}

func NewResultsHandler(db *sql.DB, cfg cliparse.Config, dec crypto.ChoiceDecrypter) *ResultsHandler {
	return &ResultsHandler{db: db, cfg: cfg, decrypter: dec}
}

// GetResults handles GET /elections/{id}/results
// Results stay sealed while ballots can still arrive. A closed election
// gets a live computation (final=false); a tallied election serves its
// frozen snapshot (final=true).
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id is required")
		return
	}

	results, errCode, errMsg := h.resultsFor(electionID)
	if errCode != 0 {
		middleware.ErrorResponse(w, errCode, errMsg)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, results)
}

// resultsFor assembles the results view for an election, or returns a
// non-zero HTTP status and message when results are unavailable.
func (h *ResultsHandler) resultsFor(electionID string) (models.ResultsResponse, int, string) {
	election, err := loadElection(h.db, electionID)
	if err == sql.ErrNoRows {
		return models.ResultsResponse{}, http.StatusNotFound, "Election not found"
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		return models.ResultsResponse{}, http.StatusInternalServerError, "Database error"
	}

	switch election.Status {
	case models.StatusDraft, models.StatusOpen:
		return models.ResultsResponse{}, http.StatusForbidden, "Results are sealed until the election closes"

	case models.StatusClosed:
		questions, err := loadQuestions(h.db, electionID)
		if err != nil {
			slog.Error("failed to query questions", "error", err)
			return models.ResultsResponse{}, http.StatusInternalServerError, "Database error"
		}
		ballots, err := loadBallots(h.db, electionID)
		if err != nil {
			slog.Error("failed to query ballots", "error", err)
			return models.ResultsResponse{}, http.StatusInternalServerError, "Database error"
		}
		return models.ResultsResponse{
			Election:    election,
			BallotCount: len(ballots),
			ComputedAt:  time.Now(),
			Final:       false,
			Results:     ComputeTally(questions, ballots, h.decrypter),
		}, 0, ""

	default: // tallied
		var computedAt time.Time
		var ballotCount int
		var payload string
		err := h.db.QueryRow(`
			SELECT computed_at, ballot_count, payload FROM tally_snapshot WHERE election_id = $1
		`, electionID).Scan(&computedAt, &ballotCount, &payload)
		if err != nil {
			slog.Error("failed to query tally snapshot", "error", err, "election_id", electionID)
			return models.ResultsResponse{}, http.StatusInternalServerError, "Database error"
		}

		var tallies []models.QuestionTally
		if err := json.Unmarshal([]byte(payload), &tallies); err != nil {
			slog.Error("failed to decode tally snapshot", "error", err, "election_id", electionID)
			return models.ResultsResponse{}, http.StatusInternalServerError, "Database error"
		}

		return models.ResultsResponse{
			Election:    election,
			BallotCount: ballotCount,
			ComputedAt:  computedAt,
			Final:       true,
			Results:     tallies,
		}, 0, ""
	}
}

// Stats handles GET /elections/{id}/stats
// Turnout numbers are always available; per-question breakdowns appear
// only once the election has left the open state, so interim results
// never leak.
func (h *ResultsHandler) Stats(w http.ResponseWriter, r *http.Request) {
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

	var votes int
	if err := h.db.QueryRow(`
		SELECT COUNT(*) FROM ballot WHERE election_id = $1
	`, electionID).Scan(&votes); err != nil {
		slog.Error("failed to count ballots", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var invited int
	if err := h.db.QueryRow(`
		SELECT COUNT(DISTINCT email) FROM voter_token WHERE election_id = $1
	`, electionID).Scan(&invited); err != nil {
		slog.Error("failed to count invitations", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	stats := models.StatsResponse{
		ElectionID:        electionID,
		VotesReceived:     votes,
		VotersInvited:     invited,
		ParticipationRate: percentage(votes, invited),
	}

	if election.Status == models.StatusClosed || election.Status == models.StatusTallied {
		questions, err := loadQuestions(h.db, electionID)
		if err != nil {
			slog.Error("failed to query questions", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		ballots, err := loadBallots(h.db, electionID)
		if err != nil {
			slog.Error("failed to query ballots", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		stats.Results = ComputeTally(questions, ballots, h.decrypter)
	}

	middleware.JSONResponse(w, http.StatusOK, stats)
}

// Export handles GET /elections/{id}/export?format=csv|json
// Same sealing rules as GetResults. JSON is the default format.
func (h *ResultsHandler) Export(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id is required")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	results, errCode, errMsg := h.resultsFor(electionID)
	if errCode != 0 {
		middleware.ErrorResponse(w, errCode, errMsg)
		return
	}

	switch format {
	case "json":
		w.Header().Set("Content-Disposition", `attachment; filename="results-`+electionID+`.json"`)
		middleware.JSONResponse(w, http.StatusOK, results)

	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="results-`+electionID+`.csv"`)
		w.WriteHeader(http.StatusOK)

		cw := csv.NewWriter(w)
		cw.Write([]string{"question", "type", "option", "votes", "percentage"})
		for _, qt := range results.Results {
			for _, oc := range qt.Options {
				cw.Write([]string{
					qt.Question,
					qt.Type,
					oc.Option,
					strconv.Itoa(oc.Votes),
					strconv.FormatFloat(oc.Percentage, 'f', 1, 64),
				})
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			slog.Error("failed to write csv export", "error", err)
		}

	default:
		middleware.ErrorResponse(w, http.StatusBadRequest, "format must be csv or json")
	}
}
