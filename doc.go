// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the NovaVote ballot API server.

NovaVote is an email-based online election service: administrators create
elections with single-choice, multiple-choice, and ranked questions;
voters receive single-use magic links and submit encrypted ballots; every
accepted ballot earns a public tracking code that anyone can verify
against the ledger.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=ballotbox.db FINGERPRINT_SALT=... go run main.go

Or with flags:

	go run main.go -p 3320 -d "postgres://..." -t postgres

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - FINGERPRINT_SALT (--fingerprint-salt): Secret for voter fingerprint HMAC

Optional settings:

  - PORT (-p): Server port (default: 3320)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - PUBLIC_URL (--public-url): Base URL embedded in magic links
  - TOKEN_TTL_MINUTES (--token-ttl): Magic link lifetime (default: 15)
  - SMTP_HOST / SMTP_USER / SMTP_PASS / MAIL_FROM: outgoing mail; magic
    links are logged instead of sent when SMTP is not configured

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (elections, tokens, voting, results, verify)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Request/response types
  - auth: Token, fingerprint, and tracking-code generation
  - crypto: Envelope codec, proof verification, placeholder decryption
  - mailer: Magic-link and tracking-code delivery
  - db: Schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
