package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/tripkeeper/internal/model"
)

// ListJourneys returns all journeys, most recent start first.
func (s *SQLiteStore) ListJourneys(ctx context.Context) ([]model.Journey, error) {
	var journeys []model.Journey
	if err := s.db.SelectContext(ctx, &journeys,
		"SELECT * FROM journeys ORDER BY start_date DESC, name"); err != nil {
		return nil, fmt.Errorf("listing journeys: %w", err)
	}
	return journeys, nil
}

// GetJourney retrieves a single journey by ID.
func (s *SQLiteStore) GetJourney(ctx context.Context, id string) (*model.Journey, error) {
	var j model.Journey
	if err := s.getByID(ctx, &j, "journeys", id); err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateJourney inserts j, assigning an ID when empty.
func (s *SQLiteStore) CreateJourney(ctx context.Context, j *model.Journey) error {
	if err := validateJourney(j); err != nil {
		return err
	}
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	j.CreatedAt = now
	j.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO journeys (id, name, destination, start_date, end_date, notes, cover_color, created_at, updated_at)
		VALUES (:id, :name, :destination, :start_date, :end_date, :notes, :cover_color, :created_at, :updated_at)`,
		j)
	if err != nil {
		return fmt.Errorf("creating journey: %w", err)
	}
	return nil
}

// UpdateJourney updates an existing journey.
func (s *SQLiteStore) UpdateJourney(ctx context.Context, j *model.Journey) error {
	if err := validateJourney(j); err != nil {
		return err
	}
	j.UpdatedAt = time.Now().UTC()

	return s.namedUpdate(ctx, `
		UPDATE journeys SET
			name = :name, destination = :destination,
			start_date = :start_date, end_date = :end_date,
			notes = :notes, cover_color = :cover_color, updated_at = :updated_at
		WHERE id = :id`,
		"journeys", j.ID, j)
}

// DeleteJourney removes a journey. Every child row goes with it.
func (s *SQLiteStore) DeleteJourney(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "journeys", id)
}

// JourneyCounts returns how many rows of each entity belong to journeyID.
func (s *SQLiteStore) JourneyCounts(ctx context.Context, journeyID string) (model.JourneyCounts, error) {
	var c model.JourneyCounts
	err := s.db.GetContext(ctx, &c, `
		SELECT
			(SELECT COUNT(*) FROM transports      WHERE journey_id = ?) AS transports,
			(SELECT COUNT(*) FROM hotels          WHERE journey_id = ?) AS hotels,
			(SELECT COUNT(*) FROM car_rentals     WHERE journey_id = ?) AS car_rentals,
			(SELECT COUNT(*) FROM documents       WHERE journey_id = ?) AS documents,
			(SELECT COUNT(*) FROM notes           WHERE journey_id = ?) AS notes,
			(SELECT COUNT(*) FROM places          WHERE journey_id = ?) AS places,
			(SELECT COUNT(*) FROM reminders       WHERE journey_id = ?) AS reminders,
			(SELECT COUNT(*) FROM expenses        WHERE journey_id = ?) AS expenses,
			(SELECT COUNT(*) FROM checklist_items WHERE journey_id = ?) AS checklist`,
		journeyID, journeyID, journeyID, journeyID, journeyID,
		journeyID, journeyID, journeyID, journeyID)
	if err != nil {
		return c, fmt.Errorf("counting journey %s: %w", journeyID, err)
	}
	return c, nil
}

func validateJourney(j *model.Journey) error {
	if strings.TrimSpace(j.Name) == "" {
		return fmt.Errorf("journey name must not be empty")
	}
	if !j.EndDate.IsZero() && j.EndDate.Before(j.StartDate) {
		return fmt.Errorf("journey %q ends before it starts", j.Name)
	}
	return nil
}

// requireJourney rejects child rows without a parent id. The foreign key
// catches ids that do not exist.
func requireJourney(entity, journeyID string) error {
	if journeyID == "" {
		return fmt.Errorf("%s must belong to a journey", entity)
	}
	return nil
}
