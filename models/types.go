// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"time"
)

// Election status constants. The lifecycle is linear:
// draft -> open -> closed -> tallied.
const (
	StatusDraft   = "draft"
	StatusOpen    = "open"
	StatusClosed  = "closed"
	StatusTallied = "tallied"
)

// Question type constants
const (
	QuestionSingle   = "single"
	QuestionMultiple = "multiple"
	QuestionRanking  = "ranking"
)

// Request types

type QuestionInput struct {
	Label   string   `json:"label"`
	Type    string   `json:"type"`
	Options []string `json:"options"`
}

type CreateElectionRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	AdminEmail  string          `json:"admin_email"`
	StartAt     time.Time       `json:"start_at"`
	EndAt       time.Time       `json:"end_at"`
	Questions   []QuestionInput `json:"questions"`
	VoterEmails []string        `json:"voter_emails,omitempty"`
}

type TransitionRequest struct {
	Status string `json:"status"`
}

type IssueTokenRequest struct {
	Email string `json:"email"`
}

// EncryptedChoice carries one question's ciphertext. The payload is opaque
// to the server; only its presence and position are checked.
type EncryptedChoice struct {
	Encrypted string `json:"encrypted"`
}

// Envelope is the wire shape of an encrypted ballot: one choice per
// question, in the election's question order.
type Envelope struct {
	Choices []EncryptedChoice `json:"choices"`
}

// Proof is the proof artifact accompanying an envelope. Its soundness is
// judged by the ProofVerifier collaborator, not by the server itself.
type Proof struct {
	Commitment string `json:"commitment"`
	Challenge  string `json:"challenge"`
	Response   string `json:"response"`
}

type SubmitBallotRequest struct {
	MagicToken string   `json:"magic_token"`
	Envelope   Envelope `json:"envelope"`
	Proof      Proof    `json:"proof"`
}

// Response types

type CreateElectionResponse struct {
	ElectionID string          `json:"election_id"`
	Status     string          `json:"status"`
	PublicKey  json.RawMessage `json:"public_key"`
}

type TransitionResponse struct {
	ElectionID string `json:"election_id"`
	Status     string `json:"status"`
	Invited    int    `json:"invited,omitempty"`
}

type IssueTokenResponse struct {
	Message          string `json:"message"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}

type VotingSessionResponse struct {
	ElectionID  string          `json:"election_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Email       string          `json:"email"`
	Questions   []Question      `json:"questions"`
	PublicKey   json.RawMessage `json:"public_key"`
}

type SubmitBallotResponse struct {
	TrackingCode string    `json:"tracking_code"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

type VerifyBallotResponse struct {
	TrackingCode string    `json:"tracking_code"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Verified     bool      `json:"verified"`
}

// BallotRecord is the public view of a stored ballot. Envelope and Proof
// are populated only once the election has left the open state.
type BallotRecord struct {
	TrackingCode string    `json:"tracking_code"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Envelope     *Envelope `json:"envelope,omitempty"`
	Proof        *Proof    `json:"proof,omitempty"`
}

type StatsResponse struct {
	ElectionID        string          `json:"election_id"`
	VotesReceived     int             `json:"votes_received"`
	VotersInvited     int             `json:"voters_invited"`
	ParticipationRate float64         `json:"participation_rate"`
	Results           []QuestionTally `json:"results_by_question"`
}

type ResultsResponse struct {
	Election    Election        `json:"election"`
	BallotCount int             `json:"ballot_count"`
	ComputedAt  time.Time       `json:"computed_at"`
	Final       bool            `json:"final"`
	Results     []QuestionTally `json:"results"`
}

// Domain types

type Election struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	AdminEmail  string          `json:"admin_email"`
	Status      string          `json:"status"`
	StartAt     time.Time       `json:"start_at"`
	EndAt       time.Time       `json:"end_at"`
	PublicKey   json.RawMessage `json:"public_key"`
	VoterEmails []string        `json:"voter_emails,omitempty"`
	OpenedAt    *time.Time      `json:"opened_at,omitempty"`
	ClosedAt    *time.Time      `json:"closed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Question struct {
	ID         string   `json:"id"`
	ElectionID string   `json:"election_id"`
	Position   int      `json:"position"`
	Label      string   `json:"label"`
	Type       string   `json:"type"`
	Options    []string `json:"options"`
}

type ElectionWithQuestions struct {
	Election  Election   `json:"election"`
	Questions []Question `json:"questions"`
}

type VoterToken struct {
	Token      string    `json:"-"` // Never expose in JSON
	ElectionID string    `json:"election_id"`
	Email      string    `json:"email"`
	ExpiresAt  time.Time `json:"expires_at"`
	Redeemed   bool      `json:"redeemed"`
	CreatedAt  time.Time `json:"created_at"`
}

type Ballot struct {
	ID               string    `json:"id"`
	ElectionID       string    `json:"election_id"`
	VoterFingerprint string    `json:"-"` // Never expose in JSON
	Envelope         Envelope  `json:"envelope"`
	Proof            Proof     `json:"proof"`
	TrackingCode     string    `json:"tracking_code"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// Tally types

type OptionCount struct {
	Option     string  `json:"option"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

type QuestionTally struct {
	Question string        `json:"question"`
	Type     string        `json:"type"`
	Options  []OptionCount `json:"options"`
}

type TallySnapshot struct {
	ID          string          `json:"id"`
	ElectionID  string          `json:"election_id"`
	ComputedAt  time.Time       `json:"computed_at"`
	BallotCount int             `json:"ballot_count"`
	Questions   []QuestionTally `json:"questions"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
