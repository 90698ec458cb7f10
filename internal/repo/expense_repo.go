// Package repo implements the expense ledger on top of GORM. This file holds
// the CRUD and filtered-query functions for the Expense model.
//
// All functions are context-aware and accept a *gorm.DB handle, so they can
// run inside a caller's transaction. They carry no business rules: amounts,
// enumerations and the regional time policy are enforced by the services
// layer before anything reaches this package.
//
// Error semantics:
//   - A missing record yields ErrNotFound (an alias of gorm.ErrRecordNotFound).
//   - Other DB errors are propagated unchanged.
//   - An empty result set is not an error.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-expense-assistant/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateExpense inserts e, assigning a UUID when e.ID is empty.
func CreateExpense(ctx context.Context, db *gorm.DB, e *domain.Expense) (*domain.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateExpense applies patch to the expense with the given id and returns
// the stored result. Load, update and reload run in one transaction so a
// failure never leaves a half-applied row.
func UpdateExpense(ctx context.Context, db *gorm.DB, id string, patch domain.ExpensePatch) (*domain.Expense, error) {
	var out domain.Expense
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, "id = ?", id).Error; err != nil {
			return err
		}
		changes := patchColumns(patch)
		if len(changes) > 0 {
			if err := tx.Model(&out).Updates(changes).Error; err != nil {
				return err
			}
		}
		return tx.First(&out, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func patchColumns(p domain.ExpensePatch) map[string]any {
	m := make(map[string]any, 5)
	if p.Amount != nil {
		m["amount"] = *p.Amount
	}
	if p.Category != nil {
		m["category"] = *p.Category
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.PaymentMethod != nil {
		m["payment_method"] = *p.PaymentMethod
	}
	if p.Date != nil {
		m["date"] = *p.Date
	}
	return m
}

// DeleteExpense removes the expense with the given id. It returns
// ErrNotFound when nothing was deleted.
func DeleteExpense(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Expense{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetExpense fetches one expense by id.
func GetExpense(ctx context.Context, db *gorm.DB, id string) (*domain.Expense, error) {
	var e domain.Expense
	if err := db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListExpensesByDateRange returns the user's expenses with start <= date <= end,
// oldest first.
func ListExpensesByDateRange(ctx context.Context, db *gorm.DB, userID string, start, end time.Time) ([]domain.Expense, error) {
	var out []domain.Expense
	err := db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, start, end).
		Order("date ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListExpensesByCategory returns the user's expenses in one category.
func ListExpensesByCategory(ctx context.Context, db *gorm.DB, userID string, category domain.Category) ([]domain.Expense, error) {
	var out []domain.Expense
	err := db.WithContext(ctx).
		Where("user_id = ? AND category = ?", userID, category).
		Order("date ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListExpensesByPaymentMethod returns the user's expenses paid with method.
func ListExpensesByPaymentMethod(ctx context.Context, db *gorm.DB, userID string, method domain.PaymentMethod) ([]domain.Expense, error) {
	var out []domain.Expense
	err := db.WithContext(ctx).
		Where("user_id = ? AND payment_method = ?", userID, method).
		Order("date ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListExpensesByAmountRange returns the user's expenses with min <= amount <= max.
func ListExpensesByAmountRange(ctx context.Context, db *gorm.DB, userID string, min, max float64) ([]domain.Expense, error) {
	var out []domain.Expense
	err := db.WithContext(ctx).
		Where("user_id = ? AND amount >= ? AND amount <= ?", userID, min, max).
		Order("amount ASC, id ASC").
		Find(&out).Error
	return out, err
}

// CountExpenses returns the number of expenses owned by userID.
func CountExpenses(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Expense{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListExpensesPage returns a page of the user's expenses, newest first.
// The caller computes offset and limit.
func ListExpensesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Expense, error) {
	var out []domain.Expense
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
