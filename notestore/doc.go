// Package notestore implements notes persistence on PostgreSQL.
//
// The store is generic over a database adapter, so the same engine runs on a
// pgx pool, a sqlx.DB or a plain sql.DB. Pick the constructor matching the
// client stack of the host application:
//   - NewFromPGXPool
//   - NewFromSQLX
//   - NewFromSQLDB
//
// All SQL is built through goqu with the postgres dialect. The store holds no
// cross-request state: one operation per call, borrowing the shared pool.
// CreateSchema must run once at startup before any other operation is
// reachable.
package notestore
