package model

import "time"

// Expense categories.
const (
	ExpenseTransport     = "transport"
	ExpenseAccommodation = "accommodation"
	ExpenseFood          = "food"
	ExpenseActivities    = "activities"
	ExpenseShopping      = "shopping"
	ExpenseOther         = "other"
)

// DefaultCurrency is used for expenses recorded before currencies existed.
const DefaultCurrency = "EUR"

// Expense is money spent during a journey. Amount is in minor units
// (cents) of Currency.
type Expense struct {
	ID        string    `json:"id" db:"id"`
	JourneyID string    `json:"journey_id" db:"journey_id"`
	Title     string    `json:"title" db:"title"`
	Amount    int64     `json:"amount" db:"amount"`
	Currency  string    `json:"currency" db:"currency"`
	Category  string    `json:"category" db:"category"`
	SpentAt   time.Time `json:"spent_at" db:"spent_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ExpenseTotal is one row of a grouped expense sum.
type ExpenseTotal struct {
	Key    string `json:"key" db:"key"`
	Amount int64  `json:"amount" db:"amount"`
	Count  int    `json:"count" db:"count"`
}
