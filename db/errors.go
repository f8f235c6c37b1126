// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import "strings"

// IsUniqueViolation reports whether err is a uniqueness-constraint failure.
// Both supported drivers signal this only through the error text: lib/pq as
// "pq: duplicate key value violates unique constraint ..." and
// modernc.org/sqlite as "... UNIQUE constraint failed ...".
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
