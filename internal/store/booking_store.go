package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/tripkeeper/internal/model"
)

// ListTransports returns the legs of a journey in departure order.
func (s *SQLiteStore) ListTransports(ctx context.Context, journeyID string) ([]model.Transport, error) {
	var out []model.Transport
	if err := s.listByJourney(ctx, &out, "transports", journeyID, "departure_at"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTransport retrieves a single transport by ID.
func (s *SQLiteStore) GetTransport(ctx context.Context, id string) (*model.Transport, error) {
	var t model.Transport
	if err := s.getByID(ctx, &t, "transports", id); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTransport inserts t, assigning an ID when empty.
func (s *SQLiteStore) CreateTransport(ctx context.Context, t *model.Transport) error {
	if err := requireJourney("transport", t.JourneyID); err != nil {
		return err
	}
	if t.Kind == "" {
		t.Kind = model.TransportOther
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO transports (
			id, journey_id, kind, carrier, number, origin, destination,
			departure_at, arrival_at, booking_ref, is_completed, created_at, updated_at
		) VALUES (
			:id, :journey_id, :kind, :carrier, :number, :origin, :destination,
			:departure_at, :arrival_at, :booking_ref, :is_completed, :created_at, :updated_at
		)`, t)
	if err != nil {
		return fmt.Errorf("creating transport: %w", err)
	}
	return nil
}

// UpdateTransport updates an existing transport.
func (s *SQLiteStore) UpdateTransport(ctx context.Context, t *model.Transport) error {
	t.UpdatedAt = time.Now().UTC()
	return s.namedUpdate(ctx, `
		UPDATE transports SET
			kind = :kind, carrier = :carrier, number = :number,
			origin = :origin, destination = :destination,
			departure_at = :departure_at, arrival_at = :arrival_at,
			booking_ref = :booking_ref, is_completed = :is_completed,
			updated_at = :updated_at
		WHERE id = :id`,
		"transports", t.ID, t)
}

// DeleteTransport removes a transport.
func (s *SQLiteStore) DeleteTransport(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "transports", id)
}

// ListHotels returns the hotels of a journey in check-in order.
func (s *SQLiteStore) ListHotels(ctx context.Context, journeyID string) ([]model.Hotel, error) {
	var out []model.Hotel
	if err := s.listByJourney(ctx, &out, "hotels", journeyID, "check_in"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetHotel retrieves a single hotel by ID.
func (s *SQLiteStore) GetHotel(ctx context.Context, id string) (*model.Hotel, error) {
	var h model.Hotel
	if err := s.getByID(ctx, &h, "hotels", id); err != nil {
		return nil, err
	}
	return &h, nil
}

// CreateHotel inserts h, assigning an ID when empty.
func (s *SQLiteStore) CreateHotel(ctx context.Context, h *model.Hotel) error {
	if err := requireJourney("hotel", h.JourneyID); err != nil {
		return err
	}
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("hotel name must not be empty")
	}
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO hotels (id, journey_id, name, address, check_in, check_out, booking_ref, created_at, updated_at)
		VALUES (:id, :journey_id, :name, :address, :check_in, :check_out, :booking_ref, :created_at, :updated_at)`,
		h)
	if err != nil {
		return fmt.Errorf("creating hotel: %w", err)
	}
	return nil
}

// UpdateHotel updates an existing hotel.
func (s *SQLiteStore) UpdateHotel(ctx context.Context, h *model.Hotel) error {
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("hotel name must not be empty")
	}
	h.UpdatedAt = time.Now().UTC()
	return s.namedUpdate(ctx, `
		UPDATE hotels SET
			name = :name, address = :address,
			check_in = :check_in, check_out = :check_out,
			booking_ref = :booking_ref, updated_at = :updated_at
		WHERE id = :id`,
		"hotels", h.ID, h)
}

// DeleteHotel removes a hotel.
func (s *SQLiteStore) DeleteHotel(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "hotels", id)
}

// ListCarRentals returns the car rentals of a journey in pickup order.
func (s *SQLiteStore) ListCarRentals(ctx context.Context, journeyID string) ([]model.CarRental, error) {
	var out []model.CarRental
	if err := s.listByJourney(ctx, &out, "car_rentals", journeyID, "pickup_at"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCarRental retrieves a single car rental by ID.
func (s *SQLiteStore) GetCarRental(ctx context.Context, id string) (*model.CarRental, error) {
	var c model.CarRental
	if err := s.getByID(ctx, &c, "car_rentals", id); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCarRental inserts c, assigning an ID when empty.
func (s *SQLiteStore) CreateCarRental(ctx context.Context, c *model.CarRental) error {
	if err := requireJourney("car rental", c.JourneyID); err != nil {
		return err
	}
	if strings.TrimSpace(c.Company) == "" {
		return fmt.Errorf("car rental company must not be empty")
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO car_rentals (
			id, journey_id, company, pickup_location, pickup_at,
			dropoff_location, dropoff_at, booking_ref, created_at, updated_at
		) VALUES (
			:id, :journey_id, :company, :pickup_location, :pickup_at,
			:dropoff_location, :dropoff_at, :booking_ref, :created_at, :updated_at
		)`, c)
	if err != nil {
		return fmt.Errorf("creating car rental: %w", err)
	}
	return nil
}

// UpdateCarRental updates an existing car rental.
func (s *SQLiteStore) UpdateCarRental(ctx context.Context, c *model.CarRental) error {
	c.UpdatedAt = time.Now().UTC()
	return s.namedUpdate(ctx, `
		UPDATE car_rentals SET
			company = :company,
			pickup_location = :pickup_location, pickup_at = :pickup_at,
			dropoff_location = :dropoff_location, dropoff_at = :dropoff_at,
			booking_ref = :booking_ref, updated_at = :updated_at
		WHERE id = :id`,
		"car_rentals", c.ID, c)
}

// DeleteCarRental removes a car rental.
func (s *SQLiteStore) DeleteCarRental(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "car_rentals", id)
}
