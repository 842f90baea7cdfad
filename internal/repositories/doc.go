// Package repositories implements SQLite persistence for clone jobs.
//
// [JobRepository] is the journal behind the in-memory job store: the store forwards every successful mutation here
// so the CLI keeps its queue between invocations. Rows are soft deleted via deleted_at and excluded from queries by default.
//
// Sequence numbers provide stable insertion ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
