// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/novavote/ballotbox/crypto"
	"github.com/novavote/ballotbox/mailer"
	"github.com/novavote/ballotbox/models"
	"github.com/novavote/ballotbox/testutil"
)

func TestCreateElection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewElectionHandler(db, cfg, mailer.NewLogSender(), crypto.NewBase64Decrypter())

	valid := func() models.CreateElectionRequest {
		return models.CreateElectionRequest{
			Title:      "Board Election",
			AdminEmail: "admin@example.com",
			EndAt:      time.Now().Add(24 * time.Hour),
			Questions: []models.QuestionInput{
				{Label: "Chair", Type: models.QuestionSingle, Options: []string{"Alice", "Bob"}},
			},
		}
	}

	tests := []struct {
		name           string
		mutate         func(*models.CreateElectionRequest)
		expectedStatus int
	}{
		{
			name:           "valid election",
			mutate:         func(r *models.CreateElectionRequest) {},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing title",
			mutate:         func(r *models.CreateElectionRequest) { r.Title = "" },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing admin email",
			mutate:         func(r *models.CreateElectionRequest) { r.AdminEmail = "" },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "end before start",
			mutate: func(r *models.CreateElectionRequest) {
				r.StartAt = time.Now().Add(48 * time.Hour)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "no questions",
			mutate:         func(r *models.CreateElectionRequest) { r.Questions = nil },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown question type",
			mutate: func(r *models.CreateElectionRequest) {
				r.Questions[0].Type = "approval"
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "single option",
			mutate: func(r *models.CreateElectionRequest) {
				r.Questions[0].Options = []string{"Alice"}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "duplicate options",
			mutate: func(r *models.CreateElectionRequest) {
				r.Questions[0].Options = []string{"Alice", "Alice"}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "empty option label",
			mutate: func(r *models.CreateElectionRequest) {
				r.Questions[0].Options = []string{"Alice", ""}
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqBody := valid()
			tt.mutate(&reqBody)

			req := testutil.MakeRequest("POST", "/elections", reqBody, nil)
			w := httptest.NewRecorder()
			handler.CreateElection(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusCreated {
				var resp models.CreateElectionResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.ElectionID == "" {
					t.Error("Expected non-empty election_id")
				}
				if resp.Status != models.StatusDraft {
					t.Errorf("Expected status draft, got %s", resp.Status)
				}
				if len(resp.PublicKey) == 0 {
					t.Error("Expected a public key")
				}

				var count int
				err := db.QueryRow(`SELECT COUNT(*) FROM question WHERE election_id = $1`, resp.ElectionID).Scan(&count)
				if err != nil {
					t.Fatalf("Failed to count questions: %v", err)
				}
				if count != 1 {
					t.Errorf("Expected 1 question in database, got %d", count)
				}
			}
		})
	}
}

func TestGetElection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewElectionHandler(db, cfg, mailer.NewLogSender(), crypto.NewBase64Decrypter())

	electionID := testutil.CreateTestElection(t, db, models.StatusDraft, nil)

	req := testutil.MakeRequest("GET", "/elections/"+electionID, nil, nil)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()
	handler.GetElection(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.ElectionWithQuestions
	testutil.AssertJSON(t, w, &resp)
	if resp.Election.ID != electionID {
		t.Errorf("Expected election %s, got %s", electionID, resp.Election.ID)
	}
	if len(resp.Questions) != 3 {
		t.Errorf("Expected 3 questions, got %d", len(resp.Questions))
	}
	// Questions come back in position order
	for i, q := range resp.Questions {
		if q.Position != i {
			t.Errorf("Question %d has position %d", i, q.Position)
		}
	}

	t.Run("unknown election", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/elections/nope", nil, nil)
		req.SetPathValue("id", "nope")
		w := httptest.NewRecorder()
		handler.GetElection(w, req)
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})
}

func TestTransitionElection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewElectionHandler(db, cfg, mailer.NewLogSender(), crypto.NewBase64Decrypter())

	transition := func(electionID, to string) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/elections/"+electionID+"/status",
			models.TransitionRequest{Status: to}, nil)
		req.SetPathValue("id", electionID)
		w := httptest.NewRecorder()
		handler.TransitionElection(w, req)
		return w
	}

	tests := []struct {
		name           string
		from           string
		to             string
		expectedStatus int
	}{
		{"draft to open", models.StatusDraft, models.StatusOpen, http.StatusOK},
		{"open to closed", models.StatusOpen, models.StatusClosed, http.StatusOK},
		{"closed to tallied", models.StatusClosed, models.StatusTallied, http.StatusOK},
		{"draft to closed skips open", models.StatusDraft, models.StatusClosed, http.StatusConflict},
		{"draft to tallied skips everything", models.StatusDraft, models.StatusTallied, http.StatusConflict},
		{"open to open", models.StatusOpen, models.StatusOpen, http.StatusConflict},
		{"open to draft reverses", models.StatusOpen, models.StatusDraft, http.StatusConflict},
		{"closed to open reopens", models.StatusClosed, models.StatusOpen, http.StatusConflict},
		{"tallied is terminal", models.StatusTallied, models.StatusClosed, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			electionID := testutil.CreateTestElection(t, db, tt.from, nil)
			w := transition(electionID, tt.to)
			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusOK {
				var status string
				if err := db.QueryRow(`SELECT status FROM election WHERE id = $1`, electionID).Scan(&status); err != nil {
					t.Fatalf("Failed to query status: %v", err)
				}
				if status != tt.to {
					t.Errorf("Expected status %s in database, got %s", tt.to, status)
				}
			}
		})
	}

	t.Run("unknown election", func(t *testing.T) {
		w := transition("nope", models.StatusOpen)
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})
}

func TestOpenElectionInvitesVoters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewElectionHandler(db, cfg, mailer.NewLogSender(), crypto.NewBase64Decrypter())

	electionID := testutil.CreateTestElection(t, db, models.StatusDraft, nil)
	_, err := db.Exec(`UPDATE election SET voter_emails = $1 WHERE id = $2`,
		`["ada@example.com","grace@example.com"]`, electionID)
	if err != nil {
		t.Fatalf("Failed to set voter emails: %v", err)
	}

	req := testutil.MakeRequest("POST", "/elections/"+electionID+"/status",
		models.TransitionRequest{Status: models.StatusOpen}, nil)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()
	handler.TransitionElection(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.TransitionResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Invited != 2 {
		t.Errorf("Expected 2 invited voters, got %d", resp.Invited)
	}

	// One unredeemed token per invited voter
	var tokens int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM voter_token WHERE election_id = $1 AND redeemed = FALSE
	`, electionID).Scan(&tokens)
	if err != nil {
		t.Fatalf("Failed to count tokens: %v", err)
	}
	if tokens != 2 {
		t.Errorf("Expected 2 tokens in database, got %d", tokens)
	}
}

func TestTallyTransitionFreezesSnapshot(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewElectionHandler(db, cfg, mailer.NewLogSender(), crypto.NewBase64Decrypter())

	electionID := testutil.CreateTestElection(t, db, models.StatusClosed, nil)
	env, proof := testutil.DefaultEnvelope(t)
	testutil.SubmitTestBallot(t, db, cfg, electionID, "ada@example.com", env, proof)
	testutil.SubmitTestBallot(t, db, cfg, electionID, "grace@example.com", env, proof)

	req := testutil.MakeRequest("POST", "/elections/"+electionID+"/status",
		models.TransitionRequest{Status: models.StatusTallied}, nil)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()
	handler.TransitionElection(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var ballotCount int
	err := db.QueryRow(`
		SELECT ballot_count FROM tally_snapshot WHERE election_id = $1
	`, electionID).Scan(&ballotCount)
	if err != nil {
		t.Fatalf("Failed to query snapshot: %v", err)
	}
	if ballotCount != 2 {
		t.Errorf("Expected snapshot ballot_count 2, got %d", ballotCount)
	}
}

func TestDeleteElection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewElectionHandler(db, cfg, mailer.NewLogSender(), crypto.NewBase64Decrypter())

	electionID := testutil.CreateTestElection(t, db, models.StatusOpen, nil)
	testutil.IssueTestToken(t, db, electionID, "ada@example.com")
	env, proof := testutil.DefaultEnvelope(t)
	testutil.SubmitTestBallot(t, db, cfg, electionID, "grace@example.com", env, proof)

	req := testutil.MakeRequest("DELETE", "/elections/"+electionID, nil, nil)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()
	handler.DeleteElection(w, req)

	testutil.AssertStatus(t, w, http.StatusNoContent)

	// Cascade wipes questions, tokens, and ballots
	for _, table := range []string{"question", "voter_token", "ballot"} {
		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE election_id = $1`, electionID).Scan(&count); err != nil {
			t.Fatalf("Failed to count %s rows: %v", table, err)
		}
		if count != 0 {
			t.Errorf("Expected 0 %s rows after delete, got %d", table, count)
		}
	}

	t.Run("delete twice", func(t *testing.T) {
		req := testutil.MakeRequest("DELETE", "/elections/"+electionID, nil, nil)
		req.SetPathValue("id", electionID)
		w := httptest.NewRecorder()
		handler.DeleteElection(w, req)
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})
}
