// Package internal documents the course registration server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem responses, and routing
// - domain: business logic for students, courses, and registrations
// - storage: database access and repositories (pgx + Postgres)
// - jobs: background workers and queues
// - config, email, metrics, sanitize, telemetry: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
