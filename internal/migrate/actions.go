package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Action mutates the schema inside the step's transaction. Actions must be
// safe to run against a schema they have already (partly) produced.
type Action interface {
	Run(ctx context.Context, tx *sqlx.Tx) error
}

// SQL statements executed in order.
type SQL []string

// Run implements Action.
func (s SQL) Run(ctx context.Context, tx *sqlx.Tx) error {
	for _, query := range s {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(query), err)
		}
	}
	return nil
}

// Func is an arbitrary operation.
type Func func(ctx context.Context, tx *sqlx.Tx) error

// Run implements Action.
func (fn Func) Run(ctx context.Context, tx *sqlx.Tx) error {
	return fn(ctx, tx)
}

// AddColumn adds a column unless the table already has it.
type AddColumn struct {
	Table      string
	Column     string
	Definition string // e.g. "TEXT NOT NULL DEFAULT ''"
}

// Run implements Action.
func (a AddColumn) Run(ctx context.Context, tx *sqlx.Tx) error {
	if err := checkIdent(a.Table, a.Column); err != nil {
		return err
	}
	cols, err := tableColumns(ctx, tx, a.Table)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("adding column %s: table %s does not exist", a.Column, a.Table)
	}
	if _, ok := cols[a.Column]; ok {
		return nil
	}
	_, err = tx.ExecContext(ctx,
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", a.Table, a.Column, a.Definition))
	if err != nil {
		return fmt.Errorf("adding column %s.%s: %w", a.Table, a.Column, err)
	}
	return nil
}

// Rebuild replaces a table with a new definition for changes ALTER TABLE
// cannot express, such as adding a NOT NULL column to a populated table.
//
// It creates the new table under a temporary name, copies every row
// (columns missing from the old table, or NULL in it, take the value from
// Defaults), drops the old table, renames the new one into place and
// recreates the indexes and triggers the old table carried.
type Rebuild struct {
	Table string

	// Create is the CREATE TABLE statement with %s in place of the table
	// name.
	Create string

	// Defaults maps a column name to the SQL literal used when the old
	// table has no such column or holds NULL in it.
	Defaults map[string]string

	// Indexes are extra CREATE INDEX statements run after the rename.
	Indexes []string
}

// Run implements Action.
func (b Rebuild) Run(ctx context.Context, tx *sqlx.Tx) error {
	if err := checkIdent(b.Table); err != nil {
		return err
	}
	tmp := b.Table + "_rebuild"

	oldCols, err := tableColumns(ctx, tx, b.Table)
	if err != nil {
		return err
	}
	if len(oldCols) == 0 {
		// An earlier interrupted run got as far as dropping the old table.
		tmpCols, err := tableColumns(ctx, tx, tmp)
		if err != nil {
			return err
		}
		if len(tmpCols) == 0 {
			return fmt.Errorf("rebuilding %s: table does not exist", b.Table)
		}
		return b.finish(ctx, tx, tmp, nil)
	}

	preserved, err := schemaObjects(ctx, tx, b.Table)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+tmp); err != nil {
		return fmt.Errorf("dropping stale %s: %w", tmp, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(b.Create, tmp)); err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	newCols, err := tableColumnList(ctx, tx, tmp)
	if err != nil {
		return err
	}

	selects := make([]string, 0, len(newCols))
	for _, col := range newCols {
		def, hasDefault := b.Defaults[col]
		_, inOld := oldCols[col]
		switch {
		case inOld && hasDefault:
			selects = append(selects, fmt.Sprintf("COALESCE(%s, %s)", col, def))
		case inOld:
			selects = append(selects, col)
		case hasDefault:
			selects = append(selects, def)
		default:
			selects = append(selects, "NULL")
		}
	}

	copyRows := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		tmp, strings.Join(newCols, ", "), strings.Join(selects, ", "), b.Table)
	if _, err := tx.ExecContext(ctx, copyRows); err != nil {
		return fmt.Errorf("copying rows into %s: %w", tmp, err)
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE "+b.Table); err != nil {
		return fmt.Errorf("dropping %s: %w", b.Table, err)
	}
	return b.finish(ctx, tx, tmp, preserved)
}

func (b Rebuild) finish(ctx context.Context, tx *sqlx.Tx, tmp string, preserved []string) error {
	rename := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tmp, b.Table)
	if _, err := tx.ExecContext(ctx, rename); err != nil {
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	for _, stmt := range append(preserved, b.Indexes...) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("recreating %q on %s: %w", firstLine(stmt), b.Table, err)
		}
	}
	return nil
}

type columnInfo struct {
	CID       int            `db:"cid"`
	Name      string         `db:"name"`
	Type      string         `db:"type"`
	NotNull   int            `db:"notnull"`
	DfltValue sql.NullString `db:"dflt_value"`
	PK        int            `db:"pk"`
}

func readColumns(ctx context.Context, tx *sqlx.Tx, table string) ([]columnInfo, error) {
	var cols []columnInfo
	if err := tx.SelectContext(ctx, &cols, "PRAGMA table_info("+table+")"); err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].CID < cols[j].CID })
	return cols, nil
}

// tableColumns returns the column names of table as a set; empty when the
// table does not exist.
func tableColumns(ctx context.Context, tx *sqlx.Tx, table string) (map[string]struct{}, error) {
	cols, err := readColumns(ctx, tx, table)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[c.Name] = struct{}{}
	}
	return set, nil
}

func tableColumnList(ctx context.Context, tx *sqlx.Tx, table string) ([]string, error) {
	cols, err := readColumns(ctx, tx, table)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
	}
	return names, nil
}

// schemaObjects returns the CREATE statements of the explicit indexes and
// triggers attached to table. Automatic indexes have no SQL and are
// recreated by the table definition itself.
func schemaObjects(ctx context.Context, tx *sqlx.Tx, table string) ([]string, error) {
	var stmts []string
	err := tx.SelectContext(ctx, &stmts, `
		SELECT sql FROM sqlite_master
		WHERE tbl_name = ? AND type IN ('index', 'trigger') AND sql IS NOT NULL
		ORDER BY type, name`, table)
	if err != nil {
		return nil, fmt.Errorf("reading indexes of %s: %w", table, err)
	}
	return stmts, nil
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkIdent(names ...string) error {
	for _, n := range names {
		if !identPattern.MatchString(n) {
			return fmt.Errorf("invalid identifier %q", n)
		}
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
