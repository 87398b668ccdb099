package store

import "github.com/nhle/tripkeeper/internal/migrate"

// LatestSchemaVersion is the version Steps brings a database to. Bump it
// together with every step appended to Steps.
const LatestSchemaVersion = 13

// Steps returns the ordered schema migration steps. Version n is at index
// n-1. Never edit a released step; append a new one.
func Steps() []migrate.Step {
	return []migrate.Step{
		{
			Version:     1,
			Description: "create journeys",
			Action: migrate.SQL{`
CREATE TABLE IF NOT EXISTS journeys (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	destination TEXT NOT NULL DEFAULT '',
	start_date  DATETIME NOT NULL,
	end_date    DATETIME NOT NULL,
	notes       TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
				`CREATE INDEX IF NOT EXISTS idx_journeys_start ON journeys(start_date)`,
			},
		},
		{
			Version:     2,
			Description: "create transports",
			Action: migrate.SQL{`
CREATE TABLE IF NOT EXISTS transports (
	id           TEXT PRIMARY KEY,
	journey_id   TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
	kind         TEXT NOT NULL DEFAULT 'other',
	carrier      TEXT NOT NULL DEFAULT '',
	number       TEXT NOT NULL DEFAULT '',
	origin       TEXT NOT NULL DEFAULT '',
	destination  TEXT NOT NULL DEFAULT '',
	departure_at DATETIME NOT NULL,
	arrival_at   DATETIME,
	booking_ref  TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
				`CREATE INDEX IF NOT EXISTS idx_transports_journey ON transports(journey_id)`,
			},
		},
		{
			Version:     3,
			Description: "create hotels",
			Action: migrate.SQL{`
CREATE TABLE IF NOT EXISTS hotels (
	id          TEXT PRIMARY KEY,
	journey_id  TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	address     TEXT NOT NULL DEFAULT '',
	check_in    DATETIME NOT NULL,
	check_out   DATETIME NOT NULL,
	booking_ref TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
				`CREATE INDEX IF NOT EXISTS idx_hotels_journey ON hotels(journey_id)`,
			},
		},
		{
			Version:     4,
			Description: "create documents",
			Action: migrate.SQL{`
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	journey_id TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
	title      TEXT NOT NULL,
	file_name  TEXT NOT NULL UNIQUE,
	mime_type  TEXT NOT NULL DEFAULT 'application/octet-stream',
	size       INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
				`CREATE INDEX IF NOT EXISTS idx_documents_journey ON documents(journey_id)`,
			},
		},
		{
			Version:     5,
			Description: "create notes",
			Action: migrate.SQL{`
CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	journey_id TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
	title      TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
				`CREATE INDEX IF NOT EXISTS idx_notes_journey ON notes(journey_id)`,
			},
		},
		{
			Version:     6,
			Description: "create places",
			Action: migrate.SQL{`
CREATE TABLE IF NOT EXISTS places (
	id         TEXT PRIMARY KEY,
	journey_id TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	latitude   REAL NOT NULL DEFAULT 0,
	longitude  REAL NOT NULL DEFAULT 0,
	visit_date DATETIME,
	visited    INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
				`CREATE INDEX IF NOT EXISTS idx_places_journey ON places(journey_id)`,
			},
		},
		{
			Version:     7,
			Description: "create reminders",
			Action: migrate.SQL{`
CREATE TABLE IF NOT EXISTS reminders (
	id         TEXT PRIMARY KEY,
	journey_id TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
	title      TEXT NOT NULL,
	remind_at  DATETIME NOT NULL,
	done       INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
				`CREATE INDEX IF NOT EXISTS idx_reminders_journey ON reminders(journey_id)`,
				`CREATE INDEX IF NOT EXISTS idx_reminders_remind_at ON reminders(remind_at)`,
			},
		},
		{
			Version:     8,
			Description: "create car_rentals",
			Action: migrate.SQL{`
CREATE TABLE IF NOT EXISTS car_rentals (
	id               TEXT PRIMARY KEY,
	journey_id       TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
	company          TEXT NOT NULL,
	pickup_location  TEXT NOT NULL DEFAULT '',
	pickup_at        DATETIME NOT NULL,
	dropoff_location TEXT NOT NULL DEFAULT '',
	dropoff_at       DATETIME NOT NULL,
	booking_ref      TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
				`CREATE INDEX IF NOT EXISTS idx_car_rentals_journey ON car_rentals(journey_id)`,
			},
		},
		{
			Version:     9,
			Description: "create expenses",
			Action: migrate.SQL{`
CREATE TABLE IF NOT EXISTS expenses (
	id         TEXT PRIMARY KEY,
	journey_id TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
	title      TEXT NOT NULL,
	amount     INTEGER NOT NULL DEFAULT 0,
	category   TEXT NOT NULL DEFAULT 'other',
	spent_at   DATETIME NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
				`CREATE INDEX IF NOT EXISTS idx_expenses_journey ON expenses(journey_id)`,
			},
		},
		{
			Version:     10,
			Description: "create checklist_items",
			Action: migrate.SQL{`
CREATE TABLE IF NOT EXISTS checklist_items (
	id         TEXT PRIMARY KEY,
	journey_id TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
	text       TEXT NOT NULL,
	checked    INTEGER NOT NULL DEFAULT 0,
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
				`CREATE INDEX IF NOT EXISTS idx_checklist_items_journey ON checklist_items(journey_id, sort_order)`,
			},
		},
		{
			Version:     11,
			Description: "add journeys.cover_color",
			Action: migrate.AddColumn{
				Table:      "journeys",
				Column:     "cover_color",
				Definition: "TEXT NOT NULL DEFAULT ''",
			},
		},
		{
			Version:     12,
			Description: "add transports.is_completed",
			Action: migrate.Rebuild{
				Table: "transports",
				Create: `
CREATE TABLE %s (
	id           TEXT PRIMARY KEY,
	journey_id   TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
	kind         TEXT NOT NULL DEFAULT 'other',
	carrier      TEXT NOT NULL DEFAULT '',
	number       TEXT NOT NULL DEFAULT '',
	origin       TEXT NOT NULL DEFAULT '',
	destination  TEXT NOT NULL DEFAULT '',
	departure_at DATETIME NOT NULL,
	arrival_at   DATETIME,
	booking_ref  TEXT NOT NULL DEFAULT '',
	is_completed INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
				Defaults: map[string]string{"is_completed": "0"},
				Indexes: []string{
					`CREATE INDEX IF NOT EXISTS idx_transports_departure ON transports(departure_at)`,
				},
			},
		},
		{
			Version:     13,
			Description: "add expenses.currency",
			Action: migrate.Rebuild{
				Table: "expenses",
				Create: `
CREATE TABLE %s (
	id         TEXT PRIMARY KEY,
	journey_id TEXT NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
	title      TEXT NOT NULL,
	amount     INTEGER NOT NULL DEFAULT 0,
	currency   TEXT NOT NULL DEFAULT 'EUR',
	category   TEXT NOT NULL DEFAULT 'other',
	spent_at   DATETIME NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
				Defaults: map[string]string{"currency": "'EUR'"},
				Indexes: []string{
					`CREATE INDEX IF NOT EXISTS idx_expenses_currency ON expenses(journey_id, currency)`,
				},
			},
		},
	}
}
