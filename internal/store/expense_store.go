package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/tripkeeper/internal/model"
)

// ListExpenses returns the expenses of a journey, latest first.
func (s *SQLiteStore) ListExpenses(ctx context.Context, journeyID string) ([]model.Expense, error) {
	var out []model.Expense
	if err := s.listByJourney(ctx, &out, "expenses", journeyID, "spent_at DESC"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetExpense retrieves a single expense by ID.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*model.Expense, error) {
	var e model.Expense
	if err := s.getByID(ctx, &e, "expenses", id); err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateExpense inserts e. Currency defaults to DefaultCurrency and
// Category to "other".
func (s *SQLiteStore) CreateExpense(ctx context.Context, e *model.Expense) error {
	if err := requireJourney("expense", e.JourneyID); err != nil {
		return err
	}
	if err := normalizeExpense(e); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = time.Now().UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO expenses (id, journey_id, title, amount, currency, category, spent_at, created_at)
		VALUES (:id, :journey_id, :title, :amount, :currency, :category, :spent_at, :created_at)`,
		e)
	if err != nil {
		return fmt.Errorf("creating expense: %w", err)
	}
	return nil
}

// UpdateExpense updates an existing expense.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, e *model.Expense) error {
	if err := normalizeExpense(e); err != nil {
		return err
	}
	return s.namedUpdate(ctx, `
		UPDATE expenses SET
			title = :title, amount = :amount, currency = :currency,
			category = :category, spent_at = :spent_at
		WHERE id = :id`,
		"expenses", e.ID, e)
}

// DeleteExpense removes an expense.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "expenses", id)
}

// ExpenseTotalsByCategory sums the expenses of a journey per category.
// Amounts in different currencies are added as is; use
// ExpenseTotalsByCurrency for money totals.
func (s *SQLiteStore) ExpenseTotalsByCategory(ctx context.Context, journeyID string) ([]model.ExpenseTotal, error) {
	return s.expenseTotals(ctx, journeyID, "category")
}

// ExpenseTotalsByCurrency sums the expenses of a journey per currency.
func (s *SQLiteStore) ExpenseTotalsByCurrency(ctx context.Context, journeyID string) ([]model.ExpenseTotal, error) {
	return s.expenseTotals(ctx, journeyID, "currency")
}

// expenseTotals groups by column, which is one of a fixed set of names.
func (s *SQLiteStore) expenseTotals(ctx context.Context, journeyID, column string) ([]model.ExpenseTotal, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s AS "key", COALESCE(SUM(amount), 0) AS amount, COUNT(*) AS count
		FROM expenses
		WHERE journey_id = ?
		GROUP BY %[1]s
		ORDER BY amount DESC, %[1]s`, column)

	var totals []model.ExpenseTotal
	if err := s.db.SelectContext(ctx, &totals, query, journeyID); err != nil {
		return nil, fmt.Errorf("summing expenses by %s for %s: %w", column, journeyID, err)
	}
	return totals, nil
}

func normalizeExpense(e *model.Expense) error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("expense title must not be empty")
	}
	if e.Amount < 0 {
		return fmt.Errorf("expense %q has negative amount", e.Title)
	}
	e.Currency = strings.ToUpper(strings.TrimSpace(e.Currency))
	if e.Currency == "" {
		e.Currency = model.DefaultCurrency
	}
	if len(e.Currency) != 3 {
		return fmt.Errorf("expense %q has invalid currency %q", e.Title, e.Currency)
	}
	if e.Category == "" {
		e.Category = model.ExpenseOther
	}
	return nil
}
