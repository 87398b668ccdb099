package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tripkeeper/internal/migrate"
	"github.com/nhle/tripkeeper/internal/model"
	"github.com/nhle/tripkeeper/internal/store"
	"github.com/nhle/tripkeeper/tests/testutil"
)

func TestSteps_MatchLatestSchemaVersion(t *testing.T) {
	steps := store.Steps()
	require.NoError(t, migrate.ValidateSteps(steps))
	require.NotEmpty(t, steps)
	assert.Equal(t, store.LatestSchemaVersion, steps[len(steps)-1].Version)
}

func TestOpen_FreshInstall(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	res := s.Migration()
	assert.Equal(t, 0, res.From)
	assert.Equal(t, store.LatestSchemaVersion, res.To)
	assert.Len(t, res.Applied, store.LatestSchemaVersion)
	for i, v := range res.Applied {
		assert.Equal(t, i+1, v, "steps applied in order")
	}
	assert.NoError(t, s.MigrationErr())

	version, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.LatestSchemaVersion, version)
}

func TestOpen_ReopenIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tripkeeper.sqlite")
	first := testutil.OpenTestStore(t, path)
	testutil.NewJourney(t, first, "Porto")
	require.NoError(t, first.Close())

	second := testutil.OpenTestStore(t, path)
	assert.True(t, second.Migration().UpToDate())

	journeys, err := second.ListJourneys(context.Background())
	require.NoError(t, err)
	assert.Len(t, journeys, 1)
}

func TestOpen_UpgradeFromVersion4(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tripkeeper.sqlite")
	testutil.SeedStoreAt(t, path, 4, `
		INSERT INTO journeys (id, name, start_date, end_date) VALUES ('j1', 'Rome', '2024-04-01 00:00:00', '2024-04-05 00:00:00');
		INSERT INTO documents (id, journey_id, title, file_name) VALUES ('d1', 'j1', 'Ticket', 'j1_ticket.pdf');`)

	s := testutil.OpenTestStore(t, path)
	ctx := context.Background()

	res := s.Migration()
	assert.Equal(t, 4, res.From)
	assert.Equal(t, []int{5, 6, 7, 8, 9, 10, 11, 12, 13}, res.Applied)

	j, err := s.GetJourney(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, "Rome", j.Name)
	assert.Equal(t, "", j.CoverColor)

	docs, err := s.ListDocuments(ctx, "j1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "j1_ticket.pdf", docs[0].FileName)
}

func TestOpen_RebuildStepsKeepRowsAndForeignKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tripkeeper.sqlite")
	testutil.SeedStoreAt(t, path, 11, `
		INSERT INTO journeys (id, name, start_date, end_date) VALUES ('j1', 'Oslo', '2024-01-01 00:00:00', '2024-01-03 00:00:00');
		INSERT INTO transports (id, journey_id, kind, departure_at) VALUES ('t1', 'j1', 'train', '2024-01-01 08:00:00');
		INSERT INTO expenses (id, journey_id, title, amount, category, spent_at) VALUES ('e1', 'j1', 'Dinner', 4200, 'food', '2024-01-01 20:00:00');`)

	s := testutil.OpenTestStore(t, path)
	ctx := context.Background()
	assert.Equal(t, []int{12, 13}, s.Migration().Applied)

	tr, err := s.GetTransport(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TransportTrain, tr.Kind)
	assert.False(t, tr.IsCompleted)

	e, err := s.GetExpense(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCurrency, e.Currency)
	assert.Equal(t, int64(4200), e.Amount)

	// The rebuilt tables still cascade from journeys.
	require.NoError(t, s.DeleteJourney(ctx, "j1"))
	_, err = s.GetTransport(ctx, "t1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetExpense(ctx, "e1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOpen_StepFailureKeepsReachedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tripkeeper.sqlite")
	// A view squatting on the rebuild's scratch name makes step 12 fail.
	testutil.SeedStoreAt(t, path, 11, `CREATE VIEW transports_rebuild AS SELECT 1 AS x`)

	s := testutil.OpenTestStore(t, path)
	ctx := context.Background()

	var stepErr *migrate.StepError
	require.True(t, errors.As(s.MigrationErr(), &stepErr))
	assert.Equal(t, 12, stepErr.Version)

	version, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, version)

	// The store is usable at the reached version.
	j := testutil.NewJourney(t, s, "Still works")
	got, err := s.GetJourney(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "Still works", got.Name)
}

func TestSnapshot(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	j := testutil.NewJourney(t, s, "Kyoto")

	dst := filepath.Join(t.TempDir(), "snapshot.sqlite")
	require.NoError(t, s.Snapshot(ctx, dst))
	// Replacing an older snapshot works too.
	require.NoError(t, s.Snapshot(ctx, dst))

	copied := testutil.OpenTestStore(t, dst)
	assert.True(t, copied.Migration().UpToDate())
	got, err := copied.GetJourney(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kyoto", got.Name)
	assert.WithinDuration(t, j.StartDate, got.StartDate, time.Second)
}
