// Package migrate brings a SQLite schema from its recorded version to the
// latest known version by applying numbered steps in order.
//
// Progress is kept in a metadata table holding one row per applied version
// (id = version, applied_at = timestamp). The current version is the
// highest id, 0 when the table is empty. Each step and its metadata row are
// committed in a single transaction, so a failed step leaves the version
// unchanged and is re-attempted from scratch on the next run.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/nhle/tripkeeper/internal/analytics"
)

// DefaultTable is the metadata table name.
const DefaultTable = "schema_metadata"

// ErrInvalidSteps is returned when the step list is not dense and ascending
// from version 1.
var ErrInvalidSteps = errors.New("invalid migration steps")

// ErrNewerSchema is returned when the database records a version this
// build does not know about.
var ErrNewerSchema = errors.New("database schema is newer than supported")

// Step is a single schema change identified by its target version.
type Step struct {
	Version     int
	Description string
	Action      Action
}

// StepError reports the step that stopped a migration run.
type StepError struct {
	Version int
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("applying migration v%d: %v", e.Version, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Result describes a MigrateIfNeeded call.
type Result struct {
	From    int
	To      int
	Applied []int
}

// UpToDate reports whether no step had to run.
func (r Result) UpToDate() bool {
	return len(r.Applied) == 0
}

// Runner applies steps to one database.
type Runner struct {
	db    *sqlx.DB
	steps []Step
	table string
	log   logrus.FieldLogger
	sink  analytics.Sink
	now   func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithTable overrides the metadata table name.
func WithTable(name string) Option {
	return func(r *Runner) { r.table = name }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Runner) { r.log = log }
}

// WithSink sets the analytics sink.
func WithSink(sink analytics.Sink) Option {
	return func(r *Runner) { r.sink = sink }
}

// WithClock sets the time source used for applied_at.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New returns a runner for db. The step list is validated by
// MigrateIfNeeded, not here.
func New(db *sqlx.DB, steps []Step, opts ...Option) *Runner {
	r := &Runner{
		db:    db,
		steps: steps,
		table: DefaultTable,
		log:   logrus.StandardLogger(),
		sink:  analytics.Nop{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var tableNamePattern = regexp.MustCompile(`^[a-z_]+$`)

// Validate checks the table name and that step versions are exactly
// 1, 2, ..., n.
func (r *Runner) Validate() error {
	if !tableNamePattern.MatchString(r.table) {
		return fmt.Errorf("%w: invalid table name %q", ErrInvalidSteps, r.table)
	}
	return ValidateSteps(r.steps)
}

// ValidateSteps checks that versions start at 1 and increase by one with
// no gaps, and that every step has an action.
func ValidateSteps(steps []Step) error {
	for i, step := range steps {
		if step.Version != i+1 {
			return fmt.Errorf("%w: step %d has version %d, want %d", ErrInvalidSteps, i, step.Version, i+1)
		}
		if step.Action == nil {
			return fmt.Errorf("%w: step v%d has no action", ErrInvalidSteps, step.Version)
		}
	}
	return nil
}

// Latest returns the highest known version, 0 for an empty step list.
func (r *Runner) Latest() int {
	if len(r.steps) == 0 {
		return 0
	}
	return r.steps[len(r.steps)-1].Version
}

// EnsureTable creates the metadata table if it does not exist.
func (r *Runner) EnsureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+r.table+` (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			applied_at DATETIME NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating %s table: %w", r.table, err)
	}
	return nil
}

// CurrentVersion returns the highest recorded version, 0 when none.
// The metadata table must exist.
func (r *Runner) CurrentVersion(ctx context.Context) (int, error) {
	var versions []int
	err := r.db.SelectContext(ctx, &versions,
		"SELECT id FROM "+r.table+" ORDER BY id DESC LIMIT 1")
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	if len(versions) == 0 {
		return 0, nil
	}
	return versions[0], nil
}

// MigrateIfNeeded applies every step above the recorded version, in order.
// It stops at the first failing step and returns a *StepError; steps
// applied before the failure stay recorded.
func (r *Runner) MigrateIfNeeded(ctx context.Context) (Result, error) {
	if err := r.Validate(); err != nil {
		return Result{}, err
	}
	if err := r.EnsureTable(ctx); err != nil {
		return Result{}, err
	}

	current, err := r.CurrentVersion(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Result{From: current, To: current}

	latest := r.Latest()
	if current > latest {
		return res, fmt.Errorf("%w: recorded v%d, latest known v%d", ErrNewerSchema, current, latest)
	}
	if current == latest {
		r.log.WithField("version", current).Debug("Schema is up to date")
		return res, nil
	}

	// A rebuild drops and recreates tables. With enforcement on, dropping
	// a parent table would cascade deletes into its children.
	if err := r.setForeignKeys(ctx, false); err != nil {
		return res, err
	}
	defer func() {
		if err := r.setForeignKeys(context.WithoutCancel(ctx), true); err != nil {
			r.log.WithError(err).Warn("Failed to re-enable foreign keys after migration")
		}
	}()

	for _, step := range r.steps[current:] {
		log := r.log.WithFields(logrus.Fields{
			"version":     step.Version,
			"description": step.Description,
		})
		log.Info("Applying schema migration")

		applied, err := r.apply(ctx, step)
		if err != nil {
			log.WithError(err).Error("Schema migration failed")
			r.sink.Track(analytics.EventMigrationFailed, map[string]string{
				"version": fmt.Sprint(step.Version),
			})
			return res, &StepError{Version: step.Version, Err: err}
		}

		res.To = step.Version
		if !applied {
			log.Info("Schema migration already recorded by another process")
			continue
		}
		res.Applied = append(res.Applied, step.Version)
		r.sink.Track(analytics.EventMigrationApplied, map[string]string{
			"version": fmt.Sprint(step.Version),
		})
	}

	if err := r.checkForeignKeys(ctx); err != nil {
		r.log.WithError(err).Warn("Foreign key check failed after migration")
	}

	r.log.WithFields(logrus.Fields{"from": res.From, "to": res.To}).Info("Schema migrated")
	return res, nil
}

// apply runs one step and records it in the same transaction. It reports
// false when the version was already recorded, which happens when another
// process migrated the shared database in the meantime.
func (r *Runner) apply(ctx context.Context, step Step) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var recorded int
	if err := tx.GetContext(ctx, &recorded,
		"SELECT COUNT(*) FROM "+r.table+" WHERE id = ?", step.Version,
	); err != nil {
		return false, fmt.Errorf("checking version: %w", err)
	}
	if recorded > 0 {
		return false, nil
	}

	if err := step.Action.Run(ctx, tx); err != nil {
		return false, err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO "+r.table+" (id, applied_at) VALUES (?, ?)",
		step.Version, r.now().UTC(),
	); err != nil {
		return false, fmt.Errorf("recording version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing: %w", err)
	}
	return true, nil
}

func (r *Runner) setForeignKeys(ctx context.Context, on bool) error {
	value := "OFF"
	if on {
		value = "ON"
	}
	if _, err := r.db.ExecContext(ctx, "PRAGMA foreign_keys="+value); err != nil {
		return fmt.Errorf("setting foreign_keys=%s: %w", value, err)
	}
	return nil
}

type fkViolation struct {
	Table  string `db:"table"`
	RowID  *int64 `db:"rowid"`
	Parent string `db:"parent"`
	FKID   int    `db:"fkid"`
}

func (r *Runner) checkForeignKeys(ctx context.Context) error {
	var violations []fkViolation
	if err := r.db.SelectContext(ctx, &violations, "PRAGMA foreign_key_check"); err != nil {
		return fmt.Errorf("running foreign_key_check: %w", err)
	}
	if len(violations) > 0 {
		v := violations[0]
		return fmt.Errorf("%d foreign key violations, first in %s referencing %s", len(violations), v.Table, v.Parent)
	}
	return nil
}
