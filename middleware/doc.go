// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and JSON helpers.

  - WithLogging: structured request/completion logging via slog
  - CORS: cross-origin headers and preflight handling
  - JSONResponse / ErrorResponse: response encoding helpers
  - ParseJSONBody: request decoding helper
*/
package middleware
