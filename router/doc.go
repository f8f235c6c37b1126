// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router wires URL patterns to handlers.

Uses Go 1.22+ http.ServeMux method-and-pattern routing. Every route is
wrapped with request logging; CORS is applied once around the whole mux
in main.
*/
package router
