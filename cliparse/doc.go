// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse parses server configuration from CLI flags with
environment variable fallback.

Required settings:

  - DATABASE_URL (-d): PostgreSQL or SQLite connection string
  - FINGERPRINT_SALT (--fingerprint-salt): secret for voter fingerprints

Optional settings:

  - PORT (-p): server port (default: 3320)
  - DATABASE_TYPE (-t): "sqlite" or "postgres" (default: sqlite)
  - TOKEN_TTL_MINUTES (--token-ttl): magic link lifetime (default: 15)
  - PUBLIC_URL (--public-url): base URL embedded in magic links
  - SMTP_HOST / SMTP_USER / SMTP_PASS / MAIL_FROM: outgoing mail;
    mail is disabled when SMTP_HOST is empty
*/
package cliparse
