// Package services – ExpenseService
//
// ExpenseService backs the read-only REST endpoints over the ledger. Unlike
// the chat pipeline, single-record reads here are owner-scoped.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-expense-assistant/internal/domain"
	"github.com/tbourn/go-expense-assistant/internal/repo"
	"github.com/tbourn/go-expense-assistant/internal/utils"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ExpenseService lists and fetches a user's expenses.
type ExpenseService struct {
	DB *gorm.DB
}

// ListPage returns a page of the user's expenses (newest first) and the
// total count.
func (s *ExpenseService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Expense, int64, error) {
	tr := otel.Tracer("services/ExpenseService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	page, pageSize = utils.ClampPage(page, pageSize)

	total, err := repo.CountExpenses(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListExpensesPage(ctx, s.DB, userID, utils.Offset(page, pageSize), pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get returns the expense id if it belongs to userID.
func (s *ExpenseService) Get(ctx context.Context, userID, id string) (*domain.Expense, error) {
	tr := otel.Tracer("services/ExpenseService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("expense.id", id),
		),
	)
	defer span.End()

	e, err := repo.GetExpense(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrExpenseNotFound
	}
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		return nil, ErrExpenseNotFound
	}
	return e, nil
}

// Stats returns the user's expense count and latest update time, used for
// conditional responses.
func (s *ExpenseService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return repo.ExpensesStats(ctx, s.DB, userID)
}
