package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-expense-assistant/internal/domain"
)

// Ledger exposes the free functions of this package as methods so it can be
// handed to services that depend on a repository interface.
type Ledger struct{}

func (Ledger) CreateExpense(ctx context.Context, db *gorm.DB, e *domain.Expense) (*domain.Expense, error) {
	return CreateExpense(ctx, db, e)
}

func (Ledger) UpdateExpense(ctx context.Context, db *gorm.DB, id string, patch domain.ExpensePatch) (*domain.Expense, error) {
	return UpdateExpense(ctx, db, id, patch)
}

func (Ledger) DeleteExpense(ctx context.Context, db *gorm.DB, id string) error {
	return DeleteExpense(ctx, db, id)
}

func (Ledger) GetExpense(ctx context.Context, db *gorm.DB, id string) (*domain.Expense, error) {
	return GetExpense(ctx, db, id)
}

func (Ledger) ListExpensesByDateRange(ctx context.Context, db *gorm.DB, userID string, start, end time.Time) ([]domain.Expense, error) {
	return ListExpensesByDateRange(ctx, db, userID, start, end)
}

func (Ledger) ListExpensesByCategory(ctx context.Context, db *gorm.DB, userID string, category domain.Category) ([]domain.Expense, error) {
	return ListExpensesByCategory(ctx, db, userID, category)
}

func (Ledger) ListExpensesByPaymentMethod(ctx context.Context, db *gorm.DB, userID string, method domain.PaymentMethod) ([]domain.Expense, error) {
	return ListExpensesByPaymentMethod(ctx, db, userID, method)
}

func (Ledger) ListExpensesByAmountRange(ctx context.Context, db *gorm.DB, userID string, min, max float64) ([]domain.Expense, error) {
	return ListExpensesByAmountRange(ctx, db, userID, min, max)
}

func (Ledger) CountExpenses(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return CountExpenses(ctx, db, userID)
}

func (Ledger) ListExpensesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Expense, error) {
	return ListExpensesPage(ctx, db, userID, offset, limit)
}
