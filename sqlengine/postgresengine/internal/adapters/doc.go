// Package adapters provide database adapter implementations for the PostgreSQL engine.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters present the engine's sqlengine.BatchConn contract
// plus transaction begin/commit/rollback, so executors work the same on any supported connection type.
package adapters
