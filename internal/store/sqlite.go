package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/nhle/tripkeeper/internal/analytics"
	"github.com/nhle/tripkeeper/internal/migrate"
)

// ErrNotFound is returned when a row with the requested id does not exist.
var ErrNotFound = errors.New("not found")

// Options configures Open.
type Options struct {
	Log  logrus.FieldLogger
	Sink analytics.Sink

	// BusyTimeoutMS is how long a statement waits on a lock held by the
	// other process before failing with SQLITE_BUSY.
	BusyTimeoutMS int
}

// SQLiteStore implements the Store interface over the shared SQLite
// database. A value only exists after the schema migration has run.
type SQLiteStore struct {
	db        *sqlx.DB
	path      string
	log       logrus.FieldLogger
	migration migrate.Result
	stepErr   error
}

// Open opens the database at path on a single connection, then brings its
// schema up to LatestSchemaVersion.
//
// A failing migration step does not fail Open: the error is logged, the
// store is returned at the version reached and the step is retried on the
// next launch. Failing to open the file or to prepare the metadata table
// is an error.
func Open(ctx context.Context, path string, opts Options) (*SQLiteStore, error) {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Sink == nil {
		opts.Sink = analytics.Nop{}
	}
	if opts.BusyTimeoutMS <= 0 {
		opts.BusyTimeoutMS = 5000
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// _txlock=immediate takes the write lock at BEGIN, so two processes
	// migrating at once queue on busy_timeout instead of deadlocking on
	// lock upgrade.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_txlock=immediate",
		path, opts.BusyTimeoutMS)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// All reads and writes of the process flow through one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", path, err)
	}

	s := &SQLiteStore{
		db:   db,
		path: path,
		log:  opts.Log.WithField("db", filepath.Base(path)),
	}

	runner := migrate.New(db, Steps(),
		migrate.WithLogger(s.log),
		migrate.WithSink(opts.Sink),
	)
	res, err := runner.MigrateIfNeeded(ctx)
	s.migration = res

	var stepErr *migrate.StepError
	switch {
	case err == nil:
	case errors.As(err, &stepErr):
		s.log.WithError(err).Error("Schema migration stopped, continuing at reached version")
		s.stepErr = err
	case errors.Is(err, migrate.ErrNewerSchema):
		s.log.WithError(err).Warn("Database was written by a newer release")
	default:
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Migration reports what Open's migration run did.
func (s *SQLiteStore) Migration() migrate.Result {
	return s.migration
}

// MigrationErr returns the step failure Open swallowed, if any.
func (s *SQLiteStore) MigrationErr() error {
	return s.stepErr
}

// SchemaVersion returns the highest recorded schema version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	return migrate.New(s.db, Steps()).CurrentVersion(ctx)
}

// Snapshot writes a consistent copy of the database to dst. An existing
// file at dst is replaced.
func (s *SQLiteStore) Snapshot(ctx context.Context, dst string) error {
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing old snapshot: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
		return fmt.Errorf("writing snapshot to %s: %w", dst, err)
	}
	return nil
}

// getByID loads the row with id from table into dest.
func (s *SQLiteStore) getByID(ctx context.Context, dest any, table, id string) error {
	err := s.db.GetContext(ctx, dest, "SELECT * FROM "+table+" WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("getting %s %s: %w", table, id, err)
	}
	return nil
}

// listByJourney loads every row of table belonging to journeyID.
func (s *SQLiteStore) listByJourney(ctx context.Context, dest any, table, journeyID, orderBy string) error {
	query := fmt.Sprintf("SELECT * FROM %s WHERE journey_id = ? ORDER BY %s", table, orderBy)
	if err := s.db.SelectContext(ctx, dest, query, journeyID); err != nil {
		return fmt.Errorf("listing %s for journey %s: %w", table, journeyID, err)
	}
	return nil
}

// deleteByID removes the row with id from table.
func (s *SQLiteStore) deleteByID(ctx context.Context, table, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", table, id, err)
	}
	return expectRow(result, table, id)
}

// namedUpdate runs an UPDATE bound to arg and fails with ErrNotFound when
// no row matched.
func (s *SQLiteStore) namedUpdate(ctx context.Context, query, table, id string, arg any) error {
	result, err := s.db.NamedExecContext(ctx, query, arg)
	if err != nil {
		return fmt.Errorf("updating %s %s: %w", table, id, err)
	}
	return expectRow(result, table, id)
}

func expectRow(result sql.Result, table, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", table, id, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	return nil
}
