package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/nhle/tripkeeper/internal/migrate"
	"github.com/nhle/tripkeeper/internal/model"
	"github.com/nhle/tripkeeper/internal/store"
)

// NewTestStore opens a fully migrated SQLiteStore in a temporary directory.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	return OpenTestStore(t, filepath.Join(t.TempDir(), "tripkeeper.sqlite"))
}

// OpenTestStore opens the database at path with a discarding logger.
func OpenTestStore(t *testing.T, path string) *store.SQLiteStore {
	t.Helper()

	s, err := store.Open(context.Background(), path, store.Options{Log: QuietLogger()})
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// QuietLogger returns a logger that drops every entry.
func QuietLogger() logrus.FieldLogger {
	log, _ := logtest.NewNullLogger()
	return log
}

// NewJourney inserts a journey named name into s and returns it.
func NewJourney(t *testing.T, s store.JourneyStore, name string) *model.Journey {
	t.Helper()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	j := &model.Journey{
		Name:        name,
		Destination: "Lisbon",
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, 7),
	}
	if err := s.CreateJourney(context.Background(), j); err != nil {
		t.Fatalf("creating journey %q: %v", name, err)
	}
	return j
}

// SeedStoreAt creates a database at path migrated only up to version,
// as an older release left it, then runs fill against it.
func SeedStoreAt(t *testing.T, path string, version int, fill string) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlx.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(ON)")
	if err != nil {
		t.Fatalf("opening seed database: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()

	_, err = migrate.New(db, store.Steps()[:version],
		migrate.WithLogger(QuietLogger()),
	).MigrateIfNeeded(ctx)
	if err != nil {
		t.Fatalf("seeding database at v%d: %v", version, err)
	}

	if fill != "" {
		if _, err := db.ExecContext(ctx, fill); err != nil {
			t.Fatalf("filling seed database: %v", err)
		}
	}
}
