package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-expense-assistant/internal/domain"
)

func newLedgerDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("ledger_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Release the file handle before TempDir cleanup.
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedExpense(t *testing.T, db *gorm.DB, userID string, amount float64, cat domain.Category, pm domain.PaymentMethod, date time.Time) *domain.Expense {
	t.Helper()
	e, err := CreateExpense(context.Background(), db, &domain.Expense{
		UserID:        userID,
		Amount:        amount,
		Category:      cat,
		Description:   fmt.Sprintf("%s %.0f", cat, amount),
		PaymentMethod: pm,
		Date:          date,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return e
}

func TestCreateExpense_Error_NoTable(t *testing.T) {
	db := newLedgerDB(t /* no migrations */)
	e, err := CreateExpense(context.Background(), db, &domain.Expense{UserID: "u1", Amount: 1})
	if err == nil || e != nil {
		t.Fatalf("expected error creating without table, got e=%v err=%v", e, err)
	}
}

func TestCreateExpense_AssignsIDAndPersists(t *testing.T) {
	db := newLedgerDB(t, &domain.Expense{})
	d := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	e := seedExpense(t, db, "u1", 50000, domain.CategoryFood, domain.PaymentCash, d)
	if e.ID == "" {
		t.Fatalf("expected generated ID")
	}

	got, err := GetExpense(context.Background(), db, e.ID)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if got.Amount != 50000 || got.Category != domain.CategoryFood || !got.Date.Equal(d) {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestGetExpense_NotFound(t *testing.T) {
	db := newLedgerDB(t, &domain.Expense{})
	_, err := GetExpense(context.Background(), db, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateExpense_PatchesOnlyGivenFields(t *testing.T) {
	db := newLedgerDB(t, &domain.Expense{})
	d := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := seedExpense(t, db, "u1", 50000, domain.CategoryFood, domain.PaymentCash, d)

	amt := 65000.0
	pm := domain.PaymentBankCard
	got, err := UpdateExpense(context.Background(), db, e.ID, domain.ExpensePatch{Amount: &amt, PaymentMethod: &pm})
	if err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	if got.Amount != 65000 || got.PaymentMethod != domain.PaymentBankCard {
		t.Fatalf("patch not applied: %+v", got)
	}
	if got.Category != domain.CategoryFood || got.Description != e.Description || !got.Date.Equal(d) {
		t.Fatalf("untouched fields changed: %+v", got)
	}
}

func TestUpdateExpense_NotFound(t *testing.T) {
	db := newLedgerDB(t, &domain.Expense{})
	amt := 1.0
	_, err := UpdateExpense(context.Background(), db, "missing", domain.ExpensePatch{Amount: &amt})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateExpense_FailedUpdateLeavesRowIntact(t *testing.T) {
	db := newLedgerDB(t, &domain.Expense{})
	d := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := seedExpense(t, db, "u1", 50000, domain.CategoryFood, domain.PaymentCash, d)

	// amount violates the CHECK constraint, so the whole transaction rolls back.
	bad := -5.0
	desc := "changed"
	if _, err := UpdateExpense(context.Background(), db, e.ID, domain.ExpensePatch{Amount: &bad, Description: &desc}); err == nil {
		t.Fatalf("expected CHECK violation")
	}
	got, err := GetExpense(context.Background(), db, e.ID)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if got.Amount != 50000 || got.Description != e.Description {
		t.Fatalf("row was partially written: %+v", got)
	}
}

func TestDeleteExpense(t *testing.T) {
	db := newLedgerDB(t, &domain.Expense{})
	e := seedExpense(t, db, "u1", 10000, domain.CategoryOther, domain.PaymentOther, time.Now().UTC())

	if err := DeleteExpense(context.Background(), db, e.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if err := DeleteExpense(context.Background(), db, e.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestListExpensesByDateRange_InclusiveAndScoped(t *testing.T) {
	db := newLedgerDB(t, &domain.Expense{})
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := day.Add(24*time.Hour - time.Millisecond)

	seedExpense(t, db, "u1", 1000, domain.CategoryFood, domain.PaymentCash, day)                          // start edge
	seedExpense(t, db, "u1", 2000, domain.CategoryFood, domain.PaymentCash, day.Add(12*time.Hour))        // middle
	seedExpense(t, db, "u1", 3000, domain.CategoryFood, domain.PaymentCash, day.Add(23*time.Hour+59*time.Minute+59*time.Second))
	seedExpense(t, db, "u1", 4000, domain.CategoryFood, domain.PaymentCash, day.Add(24*time.Hour))        // next day
	seedExpense(t, db, "u1", 5000, domain.CategoryFood, domain.PaymentCash, day.Add(-time.Second))        // previous day
	seedExpense(t, db, "u2", 6000, domain.CategoryFood, domain.PaymentCash, day.Add(time.Hour))           // other user

	got, err := ListExpensesByDateRange(context.Background(), db, "u1", day, end)
	if err != nil {
		t.Fatalf("ListExpensesByDateRange: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 expenses, got %d: %+v", len(got), got)
	}
	if got[0].Amount != 1000 || got[2].Amount != 3000 {
		t.Fatalf("expected oldest first, got %+v", got)
	}
}

func TestListExpensesByCategoryAndPayment(t *testing.T) {
	db := newLedgerDB(t, &domain.Expense{})
	now := time.Now().UTC()
	seedExpense(t, db, "u1", 1000, domain.CategoryFood, domain.PaymentCash, now)
	seedExpense(t, db, "u1", 2000, domain.CategoryShopping, domain.PaymentBankCard, now)
	seedExpense(t, db, "u1", 3000, domain.CategoryFood, domain.PaymentBankCard, now)
	seedExpense(t, db, "u2", 4000, domain.CategoryFood, domain.PaymentCash, now)

	food, err := ListExpensesByCategory(context.Background(), db, "u1", domain.CategoryFood)
	if err != nil || len(food) != 2 {
		t.Fatalf("by category: err=%v len=%d", err, len(food))
	}
	card, err := ListExpensesByPaymentMethod(context.Background(), db, "u1", domain.PaymentBankCard)
	if err != nil || len(card) != 2 {
		t.Fatalf("by payment: err=%v len=%d", err, len(card))
	}
	none, err := ListExpensesByCategory(context.Background(), db, "u1", domain.CategoryHealth)
	if err != nil || len(none) != 0 {
		t.Fatalf("empty result must not error: err=%v len=%d", err, len(none))
	}
}

func TestListExpensesByAmountRange(t *testing.T) {
	db := newLedgerDB(t, &domain.Expense{})
	now := time.Now().UTC()
	for _, amt := range []float64{30000, 60000, 150000, 250000} {
		seedExpense(t, db, "u1", amt, domain.CategoryFood, domain.PaymentCash, now)
	}
	seedExpense(t, db, "u2", 100000, domain.CategoryFood, domain.PaymentCash, now)

	got, err := ListExpensesByAmountRange(context.Background(), db, "u1", 50000, 200000)
	if err != nil {
		t.Fatalf("ListExpensesByAmountRange: %v", err)
	}
	if len(got) != 2 || got[0].Amount != 60000 || got[1].Amount != 150000 {
		t.Fatalf("unexpected range result: %+v", got)
	}

	edge, err := ListExpensesByAmountRange(context.Background(), db, "u1", 60000, 150000)
	if err != nil || len(edge) != 2 {
		t.Fatalf("bounds must be inclusive: err=%v len=%d", err, len(edge))
	}
}

func TestCountAndListExpensesPage(t *testing.T) {
	db := newLedgerDB(t, &domain.Expense{})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedExpense(t, db, "u1", float64(1000*(i+1)), domain.CategoryFood, domain.PaymentCash, base.Add(time.Duration(i)*time.Hour))
	}

	total, err := CountExpenses(context.Background(), db, "u1")
	if err != nil || total != 5 {
		t.Fatalf("CountExpenses: total=%d err=%v", total, err)
	}
	page, err := ListExpensesPage(context.Background(), db, "u1", 1, 2)
	if err != nil {
		t.Fatalf("ListExpensesPage: %v", err)
	}
	if len(page) != 2 || page[0].Amount != 4000 || page[1].Amount != 3000 {
		t.Fatalf("expected newest-first page, got %+v", page)
	}
}

func TestLedger_ProxiesFreeFunctions(t *testing.T) {
	db := newLedgerDB(t, &domain.Expense{})
	l := Ledger{}
	ctx := context.Background()

	e, err := l.CreateExpense(ctx, db, &domain.Expense{
		UserID: "u1", Amount: 1000, Category: domain.CategoryFood,
		Description: "x", PaymentMethod: domain.PaymentCash, Date: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := l.GetExpense(ctx, db, e.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if n, err := l.CountExpenses(ctx, db, "u1"); err != nil || n != 1 {
		t.Fatalf("count: %d %v", n, err)
	}
	if err := l.DeleteExpense(ctx, db, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
