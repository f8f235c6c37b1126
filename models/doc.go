// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreateElectionRequest: title, description, admin_email, dates, questions
  - TransitionRequest: target status
  - IssueTokenRequest: voter email
  - SubmitBallotRequest: magic_token, envelope, proof

# Response Types

Types for JSON responses:

  - CreateElectionResponse: election_id, status, public_key
  - TransitionResponse: election_id, status, invited
  - IssueTokenResponse: message, expires_in_minutes
  - VotingSessionResponse: election metadata, questions, public_key
  - SubmitBallotResponse: tracking_code, submitted_at
  - VerifyBallotResponse: tracking_code, submitted_at, verified
  - ResultsResponse / StatsResponse: aggregated counts
  - ErrorResponse: error, message

# Domain Types

Internal data structures:

  - Election: election metadata and lifecycle state
  - Question: ordered question with option labels and type
  - VoterToken: single-use, time-limited magic-link credential
  - Ballot: accepted encrypted envelope with tracking code
  - Envelope / Proof: opaque ballot wire shapes
  - QuestionTally / TallySnapshot: frozen aggregation results

# Constants

Status values (linear lifecycle, no cycles, no skipping):

	StatusDraft   = "draft"
	StatusOpen    = "open"
	StatusClosed  = "closed"
	StatusTallied = "tallied"

Question types:

	QuestionSingle   = "single"
	QuestionMultiple = "multiple"
	QuestionRanking  = "ranking"
*/
package models
