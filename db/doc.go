// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db provides schema creation and driver-portable error helpers.

The schema is created with idempotent CREATE TABLE IF NOT EXISTS statements
and works on both PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite).

Invariants live in the schema, not in application code:

  - ballot UNIQUE (election_id, voter_fingerprint): at most one ballot per
    voter per election; of two concurrent submissions exactly one wins.
  - ballot UNIQUE (election_id, tracking_code): tracking codes never collide
    within an election; insertion retries on the negligible collision case.
  - tally_snapshot UNIQUE (election_id): one frozen result set per election.

IsUniqueViolation classifies constraint failures across both drivers.
*/
package db
