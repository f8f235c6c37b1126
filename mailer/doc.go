// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package mailer delivers voter-facing email.

  - SMTPSender: real delivery over SMTPS via goemail
  - LogSender: structured-log stand-in for dev and tests

Senders are called fire-and-forget from handlers; a failed delivery is
logged and never rolls back the state change that triggered it.
*/
package mailer
