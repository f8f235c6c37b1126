// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/novavote/ballotbox/cliparse"
	"github.com/novavote/ballotbox/crypto"
	"github.com/novavote/ballotbox/handlers"
	"github.com/novavote/ballotbox/mailer"
	"github.com/novavote/ballotbox/middleware"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, mail mailer.Sender) *http.ServeMux {
	mux := http.NewServeMux()

	verifier := crypto.NewFiatShamirVerifier()
	decrypter := crypto.NewBase64Decrypter()

	// Initialize handlers
	electionHandler := handlers.NewElectionHandler(db, cfg, mail, decrypter)
	tokenHandler := handlers.NewTokenHandler(db, cfg, mail)
	votingHandler := handlers.NewVotingHandler(db, cfg, mail, verifier)
	resultsHandler := handlers.NewResultsHandler(db, cfg, decrypter)
	verifyHandler := handlers.NewVerifyHandler(db, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Election management (admin operations)
	mux.HandleFunc("POST /elections", middleware.WithLogging(electionHandler.CreateElection))
	mux.HandleFunc("GET /elections/{id}", middleware.WithLogging(electionHandler.GetElection))
	mux.HandleFunc("POST /elections/{id}/status", middleware.WithLogging(electionHandler.TransitionElection))
	mux.HandleFunc("DELETE /elections/{id}", middleware.WithLogging(electionHandler.DeleteElection))

	// Voter invitations and voting sessions
	mux.HandleFunc("POST /elections/{id}/tokens", middleware.WithLogging(tokenHandler.IssueToken))
	mux.HandleFunc("GET /vote/{token}", middleware.WithLogging(tokenHandler.GetVotingSession))

	// Ballot operations (public)
	mux.HandleFunc("POST /elections/{id}/ballots", middleware.WithLogging(votingHandler.SubmitBallot))
	mux.HandleFunc("GET /elections/{id}/ballots/{code}", middleware.WithLogging(votingHandler.GetBallot))
	mux.HandleFunc("GET /elections/{id}/verify/{code}", middleware.WithLogging(verifyHandler.VerifyBallot))

	// Results retrieval (sealed until closure)
	mux.HandleFunc("GET /elections/{id}/results", middleware.WithLogging(resultsHandler.GetResults))
	mux.HandleFunc("GET /elections/{id}/stats", middleware.WithLogging(resultsHandler.Stats))
	mux.HandleFunc("GET /elections/{id}/export", middleware.WithLogging(resultsHandler.Export))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ballotbox API v1"))
	})

	return mux
}
