package model

import "time"

// Journey is the top-level trip. Every other entity belongs to one journey
// and is removed with it (CASCADE delete).
type Journey struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Destination string    `json:"destination" db:"destination"`
	StartDate   time.Time `json:"start_date" db:"start_date"`
	EndDate     time.Time `json:"end_date" db:"end_date"`
	Notes       string    `json:"notes" db:"notes"`
	CoverColor  string    `json:"cover_color" db:"cover_color"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// JourneyCounts holds per-entity row counts for a single journey.
type JourneyCounts struct {
	Transports int `json:"transports" db:"transports"`
	Hotels     int `json:"hotels" db:"hotels"`
	CarRentals int `json:"car_rentals" db:"car_rentals"`
	Documents  int `json:"documents" db:"documents"`
	Notes      int `json:"notes" db:"notes"`
	Places     int `json:"places" db:"places"`
	Reminders  int `json:"reminders" db:"reminders"`
	Expenses   int `json:"expenses" db:"expenses"`
	Checklist  int `json:"checklist" db:"checklist"`
}
