package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/tripkeeper/internal/model"
)

// ListDocuments returns the documents of a journey, newest first.
func (s *SQLiteStore) ListDocuments(ctx context.Context, journeyID string) ([]model.Document, error) {
	var out []model.Document
	if err := s.listByJourney(ctx, &out, "documents", journeyID, "created_at DESC"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDocument retrieves a single document row by ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var d model.Document
	if err := s.getByID(ctx, &d, "documents", id); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDocument inserts the metadata row for a stored file.
func (s *SQLiteStore) CreateDocument(ctx context.Context, d *model.Document) error {
	if err := requireJourney("document", d.JourneyID); err != nil {
		return err
	}
	if d.FileName == "" {
		return fmt.Errorf("document file name must not be empty")
	}
	if d.MIMEType == "" {
		d.MIMEType = "application/octet-stream"
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.CreatedAt = time.Now().UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO documents (id, journey_id, title, file_name, mime_type, size, created_at)
		VALUES (:id, :journey_id, :title, :file_name, :mime_type, :size, :created_at)`,
		d)
	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}
	return nil
}

// UpdateDocument updates the title and file metadata of a document.
func (s *SQLiteStore) UpdateDocument(ctx context.Context, d *model.Document) error {
	return s.namedUpdate(ctx, `
		UPDATE documents SET
			title = :title, file_name = :file_name,
			mime_type = :mime_type, size = :size
		WHERE id = :id`,
		"documents", d.ID, d)
}

// DeleteDocument removes a document row. The file itself is the document
// storage's concern.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "documents", id)
}

// ListNotes returns the notes of a journey, most recently edited first.
func (s *SQLiteStore) ListNotes(ctx context.Context, journeyID string) ([]model.Note, error) {
	var out []model.Note
	if err := s.listByJourney(ctx, &out, "notes", journeyID, "updated_at DESC"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetNote retrieves a single note by ID.
func (s *SQLiteStore) GetNote(ctx context.Context, id string) (*model.Note, error) {
	var n model.Note
	if err := s.getByID(ctx, &n, "notes", id); err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNote inserts n, assigning an ID when empty.
func (s *SQLiteStore) CreateNote(ctx context.Context, n *model.Note) error {
	if err := requireJourney("note", n.JourneyID); err != nil {
		return err
	}
	if strings.TrimSpace(n.Title) == "" && strings.TrimSpace(n.Body) == "" {
		return fmt.Errorf("note must have a title or a body")
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO notes (id, journey_id, title, body, created_at, updated_at)
		VALUES (:id, :journey_id, :title, :body, :created_at, :updated_at)`,
		n)
	if err != nil {
		return fmt.Errorf("creating note: %w", err)
	}
	return nil
}

// UpdateNote updates an existing note.
func (s *SQLiteStore) UpdateNote(ctx context.Context, n *model.Note) error {
	n.UpdatedAt = time.Now().UTC()
	return s.namedUpdate(ctx, `
		UPDATE notes SET title = :title, body = :body, updated_at = :updated_at
		WHERE id = :id`,
		"notes", n.ID, n)
}

// DeleteNote removes a note.
func (s *SQLiteStore) DeleteNote(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "notes", id)
}

// ListPlaces returns the places of a journey by name.
func (s *SQLiteStore) ListPlaces(ctx context.Context, journeyID string) ([]model.Place, error) {
	var out []model.Place
	if err := s.listByJourney(ctx, &out, "places", journeyID, "name"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPlace retrieves a single place by ID.
func (s *SQLiteStore) GetPlace(ctx context.Context, id string) (*model.Place, error) {
	var p model.Place
	if err := s.getByID(ctx, &p, "places", id); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePlace inserts p, assigning an ID when empty.
func (s *SQLiteStore) CreatePlace(ctx context.Context, p *model.Place) error {
	if err := requireJourney("place", p.JourneyID); err != nil {
		return err
	}
	if err := validatePlace(p); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO places (id, journey_id, name, address, latitude, longitude, visit_date, visited, created_at, updated_at)
		VALUES (:id, :journey_id, :name, :address, :latitude, :longitude, :visit_date, :visited, :created_at, :updated_at)`,
		p)
	if err != nil {
		return fmt.Errorf("creating place: %w", err)
	}
	return nil
}

// UpdatePlace updates an existing place.
func (s *SQLiteStore) UpdatePlace(ctx context.Context, p *model.Place) error {
	if err := validatePlace(p); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	return s.namedUpdate(ctx, `
		UPDATE places SET
			name = :name, address = :address,
			latitude = :latitude, longitude = :longitude,
			visit_date = :visit_date, visited = :visited, updated_at = :updated_at
		WHERE id = :id`,
		"places", p.ID, p)
}

// DeletePlace removes a place.
func (s *SQLiteStore) DeletePlace(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "places", id)
}

func validatePlace(p *model.Place) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("place name must not be empty")
	}
	if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("place %q has invalid coordinates %f,%f", p.Name, p.Latitude, p.Longitude)
	}
	return nil
}

// ListReminders returns the reminders of a journey, earliest first.
func (s *SQLiteStore) ListReminders(ctx context.Context, journeyID string) ([]model.Reminder, error) {
	var out []model.Reminder
	if err := s.listByJourney(ctx, &out, "reminders", journeyID, "remind_at"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetReminder retrieves a single reminder by ID.
func (s *SQLiteStore) GetReminder(ctx context.Context, id string) (*model.Reminder, error) {
	var r model.Reminder
	if err := s.getByID(ctx, &r, "reminders", id); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReminder inserts r, assigning an ID when empty.
func (s *SQLiteStore) CreateReminder(ctx context.Context, r *model.Reminder) error {
	if err := requireJourney("reminder", r.JourneyID); err != nil {
		return err
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("reminder title must not be empty")
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = time.Now().UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO reminders (id, journey_id, title, remind_at, done, created_at)
		VALUES (:id, :journey_id, :title, :remind_at, :done, :created_at)`,
		r)
	if err != nil {
		return fmt.Errorf("creating reminder: %w", err)
	}
	return nil
}

// UpdateReminder updates an existing reminder.
func (s *SQLiteStore) UpdateReminder(ctx context.Context, r *model.Reminder) error {
	return s.namedUpdate(ctx, `
		UPDATE reminders SET title = :title, remind_at = :remind_at, done = :done
		WHERE id = :id`,
		"reminders", r.ID, r)
}

// DeleteReminder removes a reminder.
func (s *SQLiteStore) DeleteReminder(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "reminders", id)
}

// ListChecklistItems returns the checklist of a journey in display order.
func (s *SQLiteStore) ListChecklistItems(ctx context.Context, journeyID string) ([]model.ChecklistItem, error) {
	var out []model.ChecklistItem
	if err := s.listByJourney(ctx, &out, "checklist_items", journeyID, "sort_order, created_at"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetChecklistItem retrieves a single checklist item by ID.
func (s *SQLiteStore) GetChecklistItem(ctx context.Context, id string) (*model.ChecklistItem, error) {
	var c model.ChecklistItem
	if err := s.getByID(ctx, &c, "checklist_items", id); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateChecklistItem inserts c. A zero SortOrder appends it to the end of
// the journey's list.
func (s *SQLiteStore) CreateChecklistItem(ctx context.Context, c *model.ChecklistItem) error {
	if err := requireJourney("checklist item", c.JourneyID); err != nil {
		return err
	}
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("checklist item text must not be empty")
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now().UTC()

	if c.SortOrder == 0 {
		var maxOrder int
		if err := s.db.GetContext(ctx, &maxOrder,
			"SELECT COALESCE(MAX(sort_order), 0) FROM checklist_items WHERE journey_id = ?",
			c.JourneyID); err != nil {
			return fmt.Errorf("reading checklist order: %w", err)
		}
		c.SortOrder = maxOrder + 1
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO checklist_items (id, journey_id, text, checked, sort_order, created_at)
		VALUES (:id, :journey_id, :text, :checked, :sort_order, :created_at)`,
		c)
	if err != nil {
		return fmt.Errorf("creating checklist item: %w", err)
	}
	return nil
}

// UpdateChecklistItem updates an existing checklist item.
func (s *SQLiteStore) UpdateChecklistItem(ctx context.Context, c *model.ChecklistItem) error {
	return s.namedUpdate(ctx, `
		UPDATE checklist_items SET text = :text, checked = :checked, sort_order = :sort_order
		WHERE id = :id`,
		"checklist_items", c.ID, c)
}

// DeleteChecklistItem removes a checklist item.
func (s *SQLiteStore) DeleteChecklistItem(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "checklist_items", id)
}

// ChecklistProgress counts the checked and total items of a journey.
func (s *SQLiteStore) ChecklistProgress(ctx context.Context, journeyID string) (model.ChecklistProgress, error) {
	var p model.ChecklistProgress
	err := s.db.GetContext(ctx, &p, `
		SELECT COUNT(*) AS total, COALESCE(SUM(checked), 0) AS checked
		FROM checklist_items WHERE journey_id = ?`, journeyID)
	if err != nil {
		return p, fmt.Errorf("reading checklist progress for %s: %w", journeyID, err)
	}
	return p, nil
}
