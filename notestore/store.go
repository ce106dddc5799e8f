package notestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/notelab/noteservice/notes"
	"github.com/notelab/noteservice/notestore/internal/adapters"
	"github.com/notelab/noteservice/observability"
)

var (
	// ErrNilDatabaseConnection is returned when a constructor receives a nil handle.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyNotesTableName is returned when WithTableName receives an empty name.
	ErrEmptyNotesTableName = errors.New("notes table name must not be empty")

	// ErrBuildingQueryFailed is returned when a SQL statement could not be built.
	ErrBuildingQueryFailed = errors.New("failed to build sql statement")

	// ErrQueryingNotesFailed is returned when a select against the notes table failed.
	ErrQueryingNotesFailed = errors.New("failed to query notes")

	// ErrExecutingStatementFailed is returned when a write against the notes table failed.
	ErrExecutingStatementFailed = errors.New("failed to execute statement")

	// ErrScanningRowFailed is returned when a database row could not be scanned.
	ErrScanningRowFailed = errors.New("failed to scan database row")
)

const (
	defaultNotesTableName = "notes"

	colID      = "id"
	colContent = "content"

	dialectPostgres = "postgres"

	// uniqueViolationCode is the Postgres error code for unique constraint violations.
	uniqueViolationCode = "23505"

	logMsgBuildQueryFailed  = "failed to build sql statement"
	logMsgQueryFailed       = "database query execution failed"
	logMsgExecFailed        = "database statement execution failed"
	logMsgCloseRowsFailed   = "failed to close database rows"
	logMsgScanRowFailed     = "failed to scan database row"
	logMsgSchemaEnsured     = "notes table ensured"
	logMsgOperationComplete = "notestore operation: "
	logMsgSQLExecuted       = "executed sql"

	logAttrError        = "error"
	logAttrQuery        = "query"
	logAttrDurationMS   = "duration_ms"
	logAttrNoteCount    = "note_count"
	logAttrNoteID       = "note_id"
	logAttrRowsAffected = "rows_affected"
	logAttrTable        = "table"

	spanPrefix = "notestore."

	statusSuccess = "success"
	statusError   = "error"
)

// NoteStore is the persistence layer for notes, generic over a database
// adapter. It owns no state beyond its configuration; each operation borrows
// the shared connection pool for the duration of the call.
type NoteStore struct {
	db        adapters.DBAdapter
	tableName string
	logger    observability.Logger
	tracing   observability.TracingCollector
}

// Option defines a functional option for configuring a NoteStore.
type Option func(*NoteStore) error

// WithTableName sets the table name for the NoteStore.
func WithTableName(tableName string) Option {
	return func(s *NoteStore) error {
		if tableName == "" {
			return ErrEmptyNotesTableName
		}

		s.tableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the NoteStore.
//
// Debug level: SQL statements with execution timing (development use)
// Info level: row counts and durations (production-safe)
// Warn level: non-critical issues like cleanup failures
// Error level: failures that cause operation failures.
func WithLogger(logger observability.Logger) Option {
	return func(s *NoteStore) error {
		s.logger = logger
		return nil
	}
}

// WithTracing sets the tracing collector for the NoteStore. Each store
// operation then runs inside its own span, a child of whatever span is
// active in the caller's context.
func WithTracing(collector observability.TracingCollector) Option {
	return func(s *NoteStore) error {
		s.tracing = collector
		return nil
	}
}

// NewFromPGXPool creates a NoteStore using a pgx pool with optional configuration.
func NewFromPGXPool(db *pgxpool.Pool, options ...Option) (NoteStore, error) {
	if db == nil {
		return NoteStore{}, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), options...)
}

// NewFromSQLDB creates a NoteStore using a sql.DB with optional configuration.
func NewFromSQLDB(db *sql.DB, options ...Option) (NoteStore, error) {
	if db == nil {
		return NoteStore{}, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options...)
}

// NewFromSQLX creates a NoteStore using a sqlx.DB with optional configuration.
func NewFromSQLX(db *sqlx.DB, options ...Option) (NoteStore, error) {
	if db == nil {
		return NoteStore{}, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options...)
}

func newStore(db adapters.DBAdapter, options ...Option) (NoteStore, error) {
	s := NoteStore{
		db:        db,
		tableName: defaultNotesTableName,
	}

	for _, option := range options {
		if err := option(&s); err != nil {
			return NoteStore{}, err
		}
	}

	return s, nil
}

// CreateSchema creates the notes table if it does not exist. It must
// complete before the dispatcher serves traffic; process initialization
// sequences this, there are no runtime guards on the operations.
func (s NoteStore) CreateSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s BIGSERIAL PRIMARY KEY, %s TEXT UNIQUE NOT NULL)",
		s.tableName, colID, colContent,
	)

	if _, execErr := s.db.Exec(ctx, ddl); execErr != nil {
		s.logError(logMsgExecFailed, execErr, ddl)
		return errors.Join(ErrExecutingStatementFailed, execErr)
	}

	s.logOperation(logMsgSchemaEnsured, logAttrTable, s.tableName)

	return nil
}

// Insert stores a new note and returns it with its generated id.
// A uniqueness violation on content surfaces as notes.ErrDuplicateContent.
func (s NoteStore) Insert(ctx context.Context, content string) (notes.Note, error) {
	ctx, span := s.startSpan(ctx, "insert", nil)

	sqlQuery, _, buildErr := goqu.Dialect(dialectPostgres).
		Insert(s.tableName).
		Cols(colContent).
		Vals(goqu.Vals{content}).
		Returning(colID, colContent).
		ToSQL()
	if buildErr != nil {
		s.logError(logMsgBuildQueryFailed, buildErr, "")
		return notes.Note{}, s.fail(span, errors.Join(ErrBuildingQueryFailed, buildErr))
	}

	inserted, queryErr := s.queryOne(ctx, sqlQuery)
	if queryErr != nil {
		if isUniqueViolation(queryErr) {
			return notes.Note{}, s.fail(span, errors.Join(notes.ErrDuplicateContent, queryErr))
		}

		return notes.Note{}, s.fail(span, queryErr)
	}

	s.finishSpan(span, statusSuccess, map[string]string{logAttrNoteID: fmt.Sprintf("%d", inserted.ID)})

	return inserted, nil
}

// SelectAll returns all notes ordered by id, which matches insertion order
// for the serial key.
func (s NoteStore) SelectAll(ctx context.Context) (notes.Notes, error) {
	ctx, span := s.startSpan(ctx, "select_all", nil)

	sqlQuery, _, buildErr := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(colID, colContent).
		Order(goqu.I(colID).Asc()).
		ToSQL()
	if buildErr != nil {
		s.logError(logMsgBuildQueryFailed, buildErr, "")
		return nil, s.fail(span, errors.Join(ErrBuildingQueryFailed, buildErr))
	}

	start := time.Now()
	rows, queryErr := s.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	s.logQueryWithDuration(sqlQuery, duration)

	if queryErr != nil {
		s.logError(logMsgQueryFailed, queryErr, sqlQuery)
		return nil, s.fail(span, errors.Join(ErrQueryingNotesFailed, queryErr))
	}
	defer s.closeRows(rows)

	all := make(notes.Notes, 0)

	for rows.Next() {
		var note notes.Note
		if scanErr := rows.Scan(&note.ID, &note.Content); scanErr != nil {
			s.logError(logMsgScanRowFailed, scanErr, sqlQuery)
			return nil, s.fail(span, errors.Join(ErrScanningRowFailed, scanErr))
		}

		all = append(all, note)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		s.logError(logMsgQueryFailed, rowsErr, sqlQuery)
		return nil, s.fail(span, errors.Join(ErrQueryingNotesFailed, rowsErr))
	}

	s.logOperation(logMsgOperationComplete+"select_all",
		logAttrNoteCount, len(all),
		logAttrDurationMS, durationToMilliseconds(duration))
	s.finishSpan(span, statusSuccess, map[string]string{logAttrNoteCount: fmt.Sprintf("%d", len(all))})

	return all, nil
}

// SelectByID returns exactly one note or notes.ErrNoteNotFound. Not-found is
// kept distinguishable from other store failures.
func (s NoteStore) SelectByID(ctx context.Context, id int64) (notes.Note, error) {
	ctx, span := s.startSpan(ctx, "select_by_id", map[string]string{logAttrNoteID: fmt.Sprintf("%d", id)})

	sqlQuery, _, buildErr := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(colID, colContent).
		Where(goqu.C(colID).Eq(id)).
		ToSQL()
	if buildErr != nil {
		s.logError(logMsgBuildQueryFailed, buildErr, "")
		return notes.Note{}, s.fail(span, errors.Join(ErrBuildingQueryFailed, buildErr))
	}

	note, queryErr := s.queryOne(ctx, sqlQuery)
	if queryErr != nil {
		return notes.Note{}, s.fail(span, queryErr)
	}

	s.finishSpan(span, statusSuccess, nil)

	return note, nil
}

// DeleteAll removes all notes. It succeeds on an empty table.
func (s NoteStore) DeleteAll(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "delete_all", nil)

	sqlQuery, _, buildErr := goqu.Dialect(dialectPostgres).
		Delete(s.tableName).
		ToSQL()
	if buildErr != nil {
		s.logError(logMsgBuildQueryFailed, buildErr, "")
		return s.fail(span, errors.Join(ErrBuildingQueryFailed, buildErr))
	}

	rowsAffected, execErr := s.exec(ctx, sqlQuery)
	if execErr != nil {
		return s.fail(span, execErr)
	}

	s.logOperation(logMsgOperationComplete+"delete_all", logAttrRowsAffected, rowsAffected)
	s.finishSpan(span, statusSuccess, map[string]string{logAttrRowsAffected: fmt.Sprintf("%d", rowsAffected)})

	return nil
}

// DeleteByID removes zero or one note. A missing id is a no-op, not an error.
func (s NoteStore) DeleteByID(ctx context.Context, id int64) error {
	ctx, span := s.startSpan(ctx, "delete_by_id", map[string]string{logAttrNoteID: fmt.Sprintf("%d", id)})

	sqlQuery, _, buildErr := goqu.Dialect(dialectPostgres).
		Delete(s.tableName).
		Where(goqu.C(colID).Eq(id)).
		ToSQL()
	if buildErr != nil {
		s.logError(logMsgBuildQueryFailed, buildErr, "")
		return s.fail(span, errors.Join(ErrBuildingQueryFailed, buildErr))
	}

	rowsAffected, execErr := s.exec(ctx, sqlQuery)
	if execErr != nil {
		return s.fail(span, execErr)
	}

	s.logOperation(logMsgOperationComplete+"delete_by_id",
		logAttrNoteID, id,
		logAttrRowsAffected, rowsAffected)
	s.finishSpan(span, statusSuccess, map[string]string{logAttrRowsAffected: fmt.Sprintf("%d", rowsAffected)})

	return nil
}

// queryOne runs a query expected to yield at most one note row.
func (s NoteStore) queryOne(ctx context.Context, sqlQuery string) (notes.Note, error) {
	start := time.Now()
	rows, queryErr := s.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	s.logQueryWithDuration(sqlQuery, duration)

	if queryErr != nil {
		s.logError(logMsgQueryFailed, queryErr, sqlQuery)
		return notes.Note{}, errors.Join(ErrQueryingNotesFailed, queryErr)
	}
	defer s.closeRows(rows)

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			s.logError(logMsgQueryFailed, rowsErr, sqlQuery)
			return notes.Note{}, rowsErr
		}

		return notes.Note{}, notes.ErrNoteNotFound
	}

	var note notes.Note
	if scanErr := rows.Scan(&note.ID, &note.Content); scanErr != nil {
		s.logError(logMsgScanRowFailed, scanErr, sqlQuery)
		return notes.Note{}, errors.Join(ErrScanningRowFailed, scanErr)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		s.logError(logMsgQueryFailed, rowsErr, sqlQuery)
		return notes.Note{}, rowsErr
	}

	return note, nil
}

// exec runs a write statement and returns the affected row count.
func (s NoteStore) exec(ctx context.Context, sqlQuery string) (int64, error) {
	start := time.Now()
	result, execErr := s.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	s.logQueryWithDuration(sqlQuery, duration)

	if execErr != nil {
		s.logError(logMsgExecFailed, execErr, sqlQuery)
		return 0, errors.Join(ErrExecutingStatementFailed, execErr)
	}

	rowsAffected, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return 0, errors.Join(ErrExecutingStatementFailed, rowsErr)
	}

	return rowsAffected, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation, from either the pgx or the lib/pq driver.
func isUniqueViolation(err error) bool {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == uniqueViolationCode
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode
	}

	return false
}

func (s NoteStore) startSpan(ctx context.Context, operation string, attrs map[string]string) (context.Context, observability.SpanContext) {
	if s.tracing == nil {
		return ctx, nil
	}

	spanAttrs := map[string]string{logAttrTable: s.tableName}
	for key, value := range attrs {
		spanAttrs[key] = value
	}

	return s.tracing.StartSpan(ctx, spanPrefix+operation, spanAttrs)
}

func (s NoteStore) finishSpan(span observability.SpanContext, status string, attrs map[string]string) {
	if s.tracing == nil || span == nil {
		return
	}

	s.tracing.FinishSpan(span, status, attrs)
}

// fail finishes the span with error status and passes the error through.
func (s NoteStore) fail(span observability.SpanContext, err error) error {
	s.finishSpan(span, statusError, map[string]string{logAttrError: err.Error()})
	return err
}

func (s NoteStore) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if s.logger != nil {
			s.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

func (s NoteStore) logQueryWithDuration(sqlQuery string, duration time.Duration) {
	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted, logAttrDurationMS, durationToMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

func (s NoteStore) logOperation(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s NoteStore) logError(msg string, err error, sqlQuery string) {
	if s.logger == nil {
		return
	}

	if sqlQuery == "" {
		s.logger.Error(msg, logAttrError, err.Error())
		return
	}

	s.logger.Error(msg, logAttrError, err.Error(), logAttrQuery, sqlQuery)
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
