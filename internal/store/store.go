package store

import (
	"context"

	"github.com/nhle/tripkeeper/internal/model"
)

// JourneyStore persists journeys and their aggregates.
type JourneyStore interface {
	ListJourneys(ctx context.Context) ([]model.Journey, error)
	GetJourney(ctx context.Context, id string) (*model.Journey, error)
	CreateJourney(ctx context.Context, j *model.Journey) error
	UpdateJourney(ctx context.Context, j *model.Journey) error
	DeleteJourney(ctx context.Context, id string) error
	JourneyCounts(ctx context.Context, journeyID string) (model.JourneyCounts, error)
}

// BookingStore persists transports, hotels and car rentals.
type BookingStore interface {
	ListTransports(ctx context.Context, journeyID string) ([]model.Transport, error)
	GetTransport(ctx context.Context, id string) (*model.Transport, error)
	CreateTransport(ctx context.Context, t *model.Transport) error
	UpdateTransport(ctx context.Context, t *model.Transport) error
	DeleteTransport(ctx context.Context, id string) error

	ListHotels(ctx context.Context, journeyID string) ([]model.Hotel, error)
	GetHotel(ctx context.Context, id string) (*model.Hotel, error)
	CreateHotel(ctx context.Context, h *model.Hotel) error
	UpdateHotel(ctx context.Context, h *model.Hotel) error
	DeleteHotel(ctx context.Context, id string) error

	ListCarRentals(ctx context.Context, journeyID string) ([]model.CarRental, error)
	GetCarRental(ctx context.Context, id string) (*model.CarRental, error)
	CreateCarRental(ctx context.Context, c *model.CarRental) error
	UpdateCarRental(ctx context.Context, c *model.CarRental) error
	DeleteCarRental(ctx context.Context, id string) error
}

// ContentStore persists documents, notes, places, reminders and
// checklist items.
type ContentStore interface {
	ListDocuments(ctx context.Context, journeyID string) ([]model.Document, error)
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	CreateDocument(ctx context.Context, d *model.Document) error
	UpdateDocument(ctx context.Context, d *model.Document) error
	DeleteDocument(ctx context.Context, id string) error

	ListNotes(ctx context.Context, journeyID string) ([]model.Note, error)
	GetNote(ctx context.Context, id string) (*model.Note, error)
	CreateNote(ctx context.Context, n *model.Note) error
	UpdateNote(ctx context.Context, n *model.Note) error
	DeleteNote(ctx context.Context, id string) error

	ListPlaces(ctx context.Context, journeyID string) ([]model.Place, error)
	GetPlace(ctx context.Context, id string) (*model.Place, error)
	CreatePlace(ctx context.Context, p *model.Place) error
	UpdatePlace(ctx context.Context, p *model.Place) error
	DeletePlace(ctx context.Context, id string) error

	ListReminders(ctx context.Context, journeyID string) ([]model.Reminder, error)
	GetReminder(ctx context.Context, id string) (*model.Reminder, error)
	CreateReminder(ctx context.Context, r *model.Reminder) error
	UpdateReminder(ctx context.Context, r *model.Reminder) error
	DeleteReminder(ctx context.Context, id string) error

	ListChecklistItems(ctx context.Context, journeyID string) ([]model.ChecklistItem, error)
	GetChecklistItem(ctx context.Context, id string) (*model.ChecklistItem, error)
	CreateChecklistItem(ctx context.Context, c *model.ChecklistItem) error
	UpdateChecklistItem(ctx context.Context, c *model.ChecklistItem) error
	DeleteChecklistItem(ctx context.Context, id string) error
	ChecklistProgress(ctx context.Context, journeyID string) (model.ChecklistProgress, error)
}

// ExpenseStore persists expenses and their sums.
type ExpenseStore interface {
	ListExpenses(ctx context.Context, journeyID string) ([]model.Expense, error)
	GetExpense(ctx context.Context, id string) (*model.Expense, error)
	CreateExpense(ctx context.Context, e *model.Expense) error
	UpdateExpense(ctx context.Context, e *model.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	ExpenseTotalsByCategory(ctx context.Context, journeyID string) ([]model.ExpenseTotal, error)
	ExpenseTotalsByCurrency(ctx context.Context, journeyID string) ([]model.ExpenseTotal, error)
}

// Store is the full persistence interface handed to the UI and to the
// share extension once the database is relocated and migrated.
type Store interface {
	JourneyStore
	BookingStore
	ContentStore
	ExpenseStore

	SchemaVersion(ctx context.Context) (int, error)
	Snapshot(ctx context.Context, dst string) error
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
