// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/novavote/ballotbox/crypto"
	"github.com/novavote/ballotbox/mailer"
	"github.com/novavote/ballotbox/models"
	"github.com/novavote/ballotbox/testutil"
)

// TestConcurrentBallotSubmissions verifies that simultaneous submissions
// from distinct voters all land without corruption or duplicates
func TestConcurrentBallotSubmissions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewVotingHandler(db, cfg, mailer.NewLogSender(), crypto.NewFiatShamirVerifier())

	electionID := testutil.CreateTestElection(t, db, models.StatusOpen, nil)

	numVoters := 10
	tokens := make([]string, numVoters)
	for i := 0; i < numVoters; i++ {
		tokens[i] = testutil.IssueTestToken(t, db, electionID, fmt.Sprintf("voter%d@example.com", i))
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			env, proof := testutil.DefaultEnvelope(t)
			req := testutil.MakeRequest("POST", "/elections/"+electionID+"/ballots",
				models.SubmitBallotRequest{MagicToken: tokens[idx], Envelope: env, Proof: proof}, nil)
			req.SetPathValue("id", electionID)
			w := httptest.NewRecorder()

			handler.SubmitBallot(w, req)

			if w.Code == http.StatusCreated {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if int(successCount.Load()) != numVoters {
		t.Errorf("Expected %d successful submissions, got %d", numVoters, successCount.Load())
	}

	var ballotCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ballot WHERE election_id = $1`, electionID).Scan(&ballotCount); err != nil {
		t.Fatalf("Failed to count ballots: %v", err)
	}
	if ballotCount != numVoters {
		t.Errorf("Expected %d ballots in database, got %d", numVoters, ballotCount)
	}

	var uniqueVoters int
	if err := db.QueryRow(`
		SELECT COUNT(DISTINCT voter_fingerprint) FROM ballot WHERE election_id = $1
	`, electionID).Scan(&uniqueVoters); err != nil {
		t.Fatalf("Failed to count unique voters: %v", err)
	}
	if uniqueVoters != numVoters {
		t.Errorf("Expected %d unique voters, got %d (possible duplicates)", numVoters, uniqueVoters)
	}
}

// TestConcurrentTokenRedemption verifies that when several goroutines race
// to redeem the same magic link, exactly one ballot is accepted
func TestConcurrentTokenRedemption(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewVotingHandler(db, cfg, mailer.NewLogSender(), crypto.NewFiatShamirVerifier())

	electionID := testutil.CreateTestElection(t, db, models.StatusOpen, nil)
	token := testutil.IssueTestToken(t, db, electionID, "contested@example.com")

	numAttempts := 5
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numAttempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			env, proof := testutil.DefaultEnvelope(t)
			req := testutil.MakeRequest("POST", "/elections/"+electionID+"/ballots",
				models.SubmitBallotRequest{MagicToken: token, Envelope: env, Proof: proof}, nil)
			req.SetPathValue("id", electionID)
			w := httptest.NewRecorder()

			handler.SubmitBallot(w, req)

			if w.Code == http.StatusCreated {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("Expected exactly 1 accepted ballot, got %d", successCount.Load())
	}

	var ballotCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ballot WHERE election_id = $1`, electionID).Scan(&ballotCount); err != nil {
		t.Fatalf("Failed to count ballots: %v", err)
	}
	if ballotCount != 1 {
		t.Errorf("Expected 1 ballot in database, got %d", ballotCount)
	}
}

// TestCloseRacesSubmission verifies that a ballot submitted after close is
// never recorded, even when the two requests overlap
func TestCloseRacesSubmission(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	votingHandler := NewVotingHandler(db, cfg, mailer.NewLogSender(), crypto.NewFiatShamirVerifier())
	electionHandler := NewElectionHandler(db, cfg, mailer.NewLogSender(), crypto.NewBase64Decrypter())

	electionID := testutil.CreateTestElection(t, db, models.StatusOpen, nil)
	token := testutil.IssueTestToken(t, db, electionID, "late@example.com")

	var wg sync.WaitGroup
	var submitCode atomic.Int32

	wg.Add(2)
	go func() {
		defer wg.Done()
		req := testutil.MakeRequest("POST", "/elections/"+electionID+"/status",
			models.TransitionRequest{Status: models.StatusClosed}, nil)
		req.SetPathValue("id", electionID)
		w := httptest.NewRecorder()
		electionHandler.TransitionElection(w, req)
	}()
	go func() {
		defer wg.Done()
		env, proof := testutil.DefaultEnvelope(t)
		req := testutil.MakeRequest("POST", "/elections/"+electionID+"/ballots",
			models.SubmitBallotRequest{MagicToken: token, Envelope: env, Proof: proof}, nil)
		req.SetPathValue("id", electionID)
		w := httptest.NewRecorder()
		votingHandler.SubmitBallot(w, req)
		submitCode.Store(int32(w.Code))
	}()
	wg.Wait()

	// Whichever order the race resolved in, the ledger and the response
	// must agree: a 201 means the ballot landed before the close
	var ballotCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ballot WHERE election_id = $1`, electionID).Scan(&ballotCount); err != nil {
		t.Fatalf("Failed to count ballots: %v", err)
	}

	if submitCode.Load() == http.StatusCreated && ballotCount != 1 {
		t.Errorf("Submission reported accepted but %d ballots recorded", ballotCount)
	}
	if submitCode.Load() != http.StatusCreated && ballotCount != 0 {
		t.Errorf("Submission reported rejected but %d ballots recorded", ballotCount)
	}
}
