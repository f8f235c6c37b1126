// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Elections
CREATE TABLE IF NOT EXISTS election (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    admin_email TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'open', 'closed', 'tallied')),
    start_at TIMESTAMP NOT NULL,
    end_at TIMESTAMP NOT NULL,
    public_key TEXT NOT NULL,
    voter_emails TEXT,
    opened_at TIMESTAMP,
    closed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_election_status ON election(status);

-- Questions (ordered; options stored as a JSON array of labels)
CREATE TABLE IF NOT EXISTS question (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    label TEXT NOT NULL,
    qtype TEXT NOT NULL CHECK (qtype IN ('single', 'multiple', 'ranking')),
    options TEXT NOT NULL,
    UNIQUE (election_id, position)
);

CREATE INDEX IF NOT EXISTS idx_question_election_id ON question(election_id);

-- Voter tokens (magic links). At most one live token per (election, email):
-- issuing replaces any prior unredeemed token for the same voter.
CREATE TABLE IF NOT EXISTS voter_token (
    token TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    email TEXT NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    redeemed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_voter_token_election_email ON voter_token(election_id, email);

-- Ballots. The UNIQUE constraints are the system's core consistency
-- guarantees: one ballot per voter, one tracking code per election.
CREATE TABLE IF NOT EXISTS ballot (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    voter_fingerprint TEXT NOT NULL,
    envelope TEXT NOT NULL,
    proof TEXT NOT NULL,
    tracking_code TEXT NOT NULL,
    submitted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (election_id, voter_fingerprint),
    UNIQUE (election_id, tracking_code)
);

CREATE INDEX IF NOT EXISTS idx_ballot_election_id ON ballot(election_id);
CREATE INDEX IF NOT EXISTS idx_ballot_tracking_code ON ballot(election_id, tracking_code);

-- Tally snapshots (one per election, frozen at the tallied transition)
CREATE TABLE IF NOT EXISTS tally_snapshot (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL UNIQUE REFERENCES election(id) ON DELETE CASCADE,
    computed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    ballot_count INTEGER NOT NULL,
    payload TEXT NOT NULL
);
`
