package migrate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/nhle/tripkeeper/internal/analytics"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite")
	db, err := sqlx.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(2000)&_pragma=foreign_keys(ON)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})
	return db
}

func quietLogger() logrus.FieldLogger {
	log, _ := logtest.NewNullLogger()
	return log
}

func tableExists(t *testing.T, db *sqlx.DB, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name))
	return n > 0
}

func recordedVersions(t *testing.T, db *sqlx.DB) []int {
	t.Helper()
	var ids []int
	require.NoError(t, db.Select(&ids, "SELECT id FROM "+DefaultTable+" ORDER BY id"))
	return ids
}

func threeSteps() []Step {
	return []Step{
		{Version: 1, Description: "create a", Action: SQL{
			`CREATE TABLE IF NOT EXISTS a (id TEXT PRIMARY KEY, name TEXT NOT NULL)`,
		}},
		{Version: 2, Description: "create b", Action: SQL{
			`CREATE TABLE IF NOT EXISTS b (id TEXT PRIMARY KEY, a_id TEXT NOT NULL REFERENCES a(id) ON DELETE CASCADE)`,
			`CREATE INDEX IF NOT EXISTS idx_b_a_id ON b(a_id)`,
		}},
		{Version: 3, Description: "add a.color", Action: AddColumn{
			Table: "a", Column: "color", Definition: "TEXT NOT NULL DEFAULT ''",
		}},
	}
}

func TestMigrateIfNeeded_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	log, hook := logtest.NewNullLogger()
	var sink analytics.Recorder
	r := New(db, threeSteps(), WithLogger(log), WithSink(&sink))

	res, err := r.MigrateIfNeeded(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.From)
	assert.Equal(t, 3, res.To)
	assert.Equal(t, []int{1, 2, 3}, res.Applied)
	assert.Equal(t, []int{1, 2, 3}, recordedVersions(t, db))
	assert.True(t, tableExists(t, db, "a"))
	assert.True(t, tableExists(t, db, "b"))
	assert.Equal(t, 3, sink.Count(analytics.EventMigrationApplied))

	applying := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "Applying schema migration" {
			applying++
		}
	}
	assert.Equal(t, 3, applying)
}

func TestMigrateIfNeeded_SecondRunIsNoop(t *testing.T) {
	db := openTestDB(t)
	r := New(db, threeSteps(), WithLogger(quietLogger()))

	_, err := r.MigrateIfNeeded(context.Background())
	require.NoError(t, err)

	res, err := r.MigrateIfNeeded(context.Background())
	require.NoError(t, err)
	assert.True(t, res.UpToDate())
	assert.Equal(t, 3, res.From)
	assert.Equal(t, 3, res.To)
	assert.Equal(t, []int{1, 2, 3}, recordedVersions(t, db))
}

func TestMigrateIfNeeded_ResumesFromRecordedVersion(t *testing.T) {
	db := openTestDB(t)
	steps := threeSteps()

	_, err := New(db, steps[:1], WithLogger(quietLogger())).MigrateIfNeeded(context.Background())
	require.NoError(t, err)

	res, err := New(db, steps, WithLogger(quietLogger())).MigrateIfNeeded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.From)
	assert.Equal(t, []int{2, 3}, res.Applied)
}

func TestMigrateIfNeeded_StopsAtFailingStep(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	broken := true
	steps := threeSteps()
	steps[1].Action = Func(func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS b (id TEXT PRIMARY KEY)`); err != nil {
			return err
		}
		if broken {
			return errors.New("simulated crash")
		}
		return nil
	})

	var sink analytics.Recorder
	r := New(db, steps, WithLogger(quietLogger()), WithSink(&sink))

	res, err := r.MigrateIfNeeded(ctx)
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 2, stepErr.Version)
	assert.Equal(t, 1, res.To)
	assert.Equal(t, []int{1}, recordedVersions(t, db))
	assert.Equal(t, 1, sink.Count(analytics.EventMigrationFailed))

	// The failed step was rolled back and the later step never ran.
	assert.False(t, tableExists(t, db, "b"))
	var colorCount int
	require.NoError(t, db.Get(&colorCount,
		"SELECT COUNT(*) FROM pragma_table_info('a') WHERE name = 'color'"))
	assert.Zero(t, colorCount)

	// Next launch re-attempts the same step and reaches the latest version.
	broken = false
	res, err = r.MigrateIfNeeded(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.From)
	assert.Equal(t, 3, res.To)
	assert.Equal(t, []int{1, 2, 3}, recordedVersions(t, db))
}

func TestMigrateIfNeeded_RecordFailureRollsBackMutation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := New(db, threeSteps(), WithLogger(quietLogger()))

	require.NoError(t, r.EnsureTable(ctx))
	_, err := db.Exec(`
		CREATE TRIGGER fail_v2 BEFORE INSERT ON ` + DefaultTable + `
		WHEN NEW.id = 2
		BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	require.NoError(t, err)

	_, err = r.MigrateIfNeeded(ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, []int{1}, recordedVersions(t, db))
	assert.False(t, tableExists(t, db, "b"))

	_, err = db.Exec(`DROP TRIGGER fail_v2`)
	require.NoError(t, err)

	_, err = r.MigrateIfNeeded(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, recordedVersions(t, db))
}

func TestMigrateIfNeeded_MutationAppliedWithoutRecord(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	steps := threeSteps()

	// An older build applied steps 1-3 but crashed before recording 2 and 3.
	r := New(db, steps, WithLogger(quietLogger()))
	require.NoError(t, r.EnsureTable(ctx))
	_, err := New(db, steps[:1], WithLogger(quietLogger())).MigrateIfNeeded(ctx)
	require.NoError(t, err)
	for _, step := range steps[1:] {
		tx, err := db.BeginTxx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, step.Action.Run(ctx, tx))
		require.NoError(t, tx.Commit())
	}

	res, err := r.MigrateIfNeeded(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, res.Applied)
	assert.Equal(t, []int{1, 2, 3}, recordedVersions(t, db))

	var indexes int
	require.NoError(t, db.Get(&indexes,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_b_a_id'"))
	assert.Equal(t, 1, indexes)
}

func TestApply_SkipsVersionRecordedConcurrently(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	steps := threeSteps()

	calls := 0
	steps[2].Action = Func(func(ctx context.Context, tx *sqlx.Tx) error {
		calls++
		return AddColumn{Table: "a", Column: "color", Definition: "TEXT NOT NULL DEFAULT ''"}.Run(ctx, tx)
	})

	r := New(db, steps, WithLogger(quietLogger()))
	require.NoError(t, r.EnsureTable(ctx))
	_, err := New(db, steps[:2], WithLogger(quietLogger())).MigrateIfNeeded(ctx)
	require.NoError(t, err)

	// Another process records v3 between our version read and our step.
	_, err = db.Exec("INSERT INTO " + DefaultTable + " (id, applied_at) VALUES (3, CURRENT_TIMESTAMP)")
	require.NoError(t, err)

	applied, err := r.apply(ctx, steps[2])
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Zero(t, calls)
}

func TestMigrateIfNeeded_NewerSchema(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := New(db, threeSteps(), WithLogger(quietLogger())).MigrateIfNeeded(ctx)
	require.NoError(t, err)

	_, err = New(db, threeSteps()[:2], WithLogger(quietLogger())).MigrateIfNeeded(ctx)
	assert.ErrorIs(t, err, ErrNewerSchema)
}

func TestCurrentVersion_EmptyTable(t *testing.T) {
	db := openTestDB(t)
	r := New(db, threeSteps(), WithLogger(quietLogger()))
	require.NoError(t, r.EnsureTable(context.Background()))
	require.NoError(t, r.EnsureTable(context.Background()))

	v, err := r.CurrentVersion(context.Background())
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestValidateSteps(t *testing.T) {
	noop := SQL{}
	tests := []struct {
		name  string
		steps []Step
		ok    bool
	}{
		{name: "empty", steps: nil, ok: true},
		{name: "dense", steps: []Step{{Version: 1, Action: noop}, {Version: 2, Action: noop}}, ok: true},
		{name: "starts at zero", steps: []Step{{Version: 0, Action: noop}}},
		{name: "gap", steps: []Step{{Version: 1, Action: noop}, {Version: 3, Action: noop}}},
		{name: "out of order", steps: []Step{{Version: 2, Action: noop}, {Version: 1, Action: noop}}},
		{name: "duplicate", steps: []Step{{Version: 1, Action: noop}, {Version: 1, Action: noop}}},
		{name: "nil action", steps: []Step{{Version: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSteps(tt.steps)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidSteps)
			}
		})
	}
}

func TestMigrateIfNeeded_RejectsInvalidSteps(t *testing.T) {
	db := openTestDB(t)
	steps := []Step{{Version: 2, Action: SQL{}}}

	_, err := New(db, steps, WithLogger(quietLogger())).MigrateIfNeeded(context.Background())
	assert.ErrorIs(t, err, ErrInvalidSteps)
	assert.False(t, tableExists(t, db, DefaultTable))
}

func TestValidate_TableName(t *testing.T) {
	db := openTestDB(t)
	err := New(db, nil, WithTable("meta; DROP TABLE a")).Validate()
	assert.ErrorIs(t, err, ErrInvalidSteps)
}

func TestMigrateIfNeeded_RestoresForeignKeys(t *testing.T) {
	db := openTestDB(t)
	_, err := New(db, threeSteps(), WithLogger(quietLogger())).MigrateIfNeeded(context.Background())
	require.NoError(t, err)

	var on int
	require.NoError(t, db.Get(&on, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, on)
}
