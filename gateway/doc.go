// Package gateway exposes a small HTTP API in front of a git
// repository host: multi-file commits, repository create/delete,
// branch and pull request creation, status and rate-limit queries,
// plus an unauthenticated health probe.
//
// Every route except /health requires the shared API key in the
// X-API-Key header and is rejected with 401 before any host call.
// Failures are returned as a uniform {error, details} JSON body;
// commit failures name the assembly step that failed.
package gateway
