// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP handlers for the ballot service.

  - ElectionHandler: election CRUD and the lifecycle state machine
  - TokenHandler: voter invitations and magic-link voting sessions
  - VotingHandler: atomic ballot submission and ballot retrieval
  - ResultsHandler: results, turnout stats, and CSV/JSON export
  - VerifyHandler: public tracking-code verification

Handlers hold a *sql.DB and the parsed configuration, plus collaborators
for mail delivery and the placeholder cryptography. All multi-step writes
run in a single transaction.
*/
package handlers
