package model

import "time"

// Document is the metadata row for a file kept by the document storage.
// FileName is the name inside the shared documents directory.
type Document struct {
	ID        string    `json:"id" db:"id"`
	JourneyID string    `json:"journey_id" db:"journey_id"`
	Title     string    `json:"title" db:"title"`
	FileName  string    `json:"file_name" db:"file_name"`
	MIMEType  string    `json:"mime_type" db:"mime_type"`
	Size      int64     `json:"size" db:"size"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Note is free text attached to a journey.
type Note struct {
	ID        string    `json:"id" db:"id"`
	JourneyID string    `json:"journey_id" db:"journey_id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Place is a point of interest.
type Place struct {
	ID        string     `json:"id" db:"id"`
	JourneyID string     `json:"journey_id" db:"journey_id"`
	Name      string     `json:"name" db:"name"`
	Address   string     `json:"address" db:"address"`
	Latitude  float64    `json:"latitude" db:"latitude"`
	Longitude float64    `json:"longitude" db:"longitude"`
	VisitDate *time.Time `json:"visit_date,omitempty" db:"visit_date"`
	Visited   bool       `json:"visited" db:"visited"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Reminder is a dated alert. Scheduling the actual notification is the
// caller's job.
type Reminder struct {
	ID        string    `json:"id" db:"id"`
	JourneyID string    `json:"journey_id" db:"journey_id"`
	Title     string    `json:"title" db:"title"`
	RemindAt  time.Time `json:"remind_at" db:"remind_at"`
	Done      bool      `json:"done" db:"done"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ChecklistItem is a packing or to-do entry.
type ChecklistItem struct {
	ID        string    `json:"id" db:"id"`
	JourneyID string    `json:"journey_id" db:"journey_id"`
	Text      string    `json:"text" db:"text"`
	Checked   bool      `json:"checked" db:"checked"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ChecklistProgress summarizes a journey checklist.
type ChecklistProgress struct {
	Total   int `json:"total" db:"total"`
	Checked int `json:"checked" db:"checked"`
}
