// Package services – Dispatcher
//
// The Dispatcher executes a validated classification against the ledger and
// renders the Vietnamese reply. Missing parameters are answered with
// guidance text; only ledger failures, schema violations and unreadable
// explicit dates surface as errors.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-expense-assistant/internal/domain"
	"github.com/tbourn/go-expense-assistant/internal/repo"
	"github.com/tbourn/go-expense-assistant/internal/validation"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Reply texts.
const (
	textCreated          = "Đã thêm khoản chi tiêu thành công:"
	textUpdated          = "Đã cập nhật khoản chi tiêu thành công:"
	textNeedFieldsCreate = "Xin lỗi, tôi cần thêm thông tin để tạo khoản chi tiêu. Vui lòng cung cấp số tiền, danh mục và mô tả."
	textNeedFieldsUpdate = "Xin lỗi, tôi cần thêm thông tin để cập nhật khoản chi tiêu. Vui lòng cung cấp số tiền, danh mục và mô tả."
	textDeleted          = "Khoản chi tiêu đã được xóa thành công."
	textNeedIDDelete     = "Xin lỗi, tôi cần ID của khoản chi tiêu để xóa. Vui lòng cung cấp ID."
	textNeedIDLookup     = "Xin lỗi, tôi cần ID của khoản chi tiêu để xem. Vui lòng cung cấp ID."
	textDetail           = "Chi tiết khoản chi tiêu:"
	textNotFound         = "Xin lỗi, không tìm thấy khoản chi tiêu với ID đã cung cấp."
	textNoExpenses       = "Không tìm thấy khoản chi tiêu nào trong khoảng thời gian này."
	textUnknown          = "Xin lỗi, tôi không hiểu yêu cầu của bạn. Vui lòng thử lại với câu lệnh khác."
	TextApology          = "Có lỗi xảy ra khi xử lý yêu cầu của bạn. Vui lòng thử lại sau."
	TextWelcome          = "Chào mừng đến với Bot Quản lý Chi tiêu!"
)

// ExpenseRepo is the ledger boundary used by the Dispatcher. repo.Ledger
// implements it. Lookup, update and delete address a record by id alone;
// every query is scoped by userID.
type ExpenseRepo interface {
	CreateExpense(ctx context.Context, db *gorm.DB, e *domain.Expense) (*domain.Expense, error)
	UpdateExpense(ctx context.Context, db *gorm.DB, id string, patch domain.ExpensePatch) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, db *gorm.DB, id string) error
	GetExpense(ctx context.Context, db *gorm.DB, id string) (*domain.Expense, error)
	ListExpensesByDateRange(ctx context.Context, db *gorm.DB, userID string, start, end time.Time) ([]domain.Expense, error)
	ListExpensesByCategory(ctx context.Context, db *gorm.DB, userID string, category domain.Category) ([]domain.Expense, error)
	ListExpensesByPaymentMethod(ctx context.Context, db *gorm.DB, userID string, method domain.PaymentMethod) ([]domain.Expense, error)
	ListExpensesByAmountRange(ctx context.Context, db *gorm.DB, userID string, min, max float64) ([]domain.Expense, error)
}

// Dispatcher maps classifications to ledger operations.
type Dispatcher struct {
	DB   *gorm.DB
	Repo ExpenseRepo

	// Now returns the current instant; defaults to time.Now.
	Now func() time.Time
}

// Dispatch executes tc for userID and returns the reply text.
func (d *Dispatcher) Dispatch(ctx context.Context, tc *domain.TaskClassification, userID string) (string, error) {
	tr := otel.Tracer("services/Dispatcher")
	ctx, span := tr.Start(ctx, "Dispatch",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("classification.id", tc.ID),
			attribute.String("action", string(tc.Action)),
		),
	)
	defer span.End()

	req, err := resolve(tc, userID, d.now())
	if err != nil {
		dispatches.WithLabelValues(string(tc.Action), resultError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		return "", fmt.Errorf("dispatch %s: %w", tc.Action, err)
	}

	reply, result, err := d.execute(ctx, req, userID)
	dispatches.WithLabelValues(string(req.action()), result).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "execute failed")
		return "", fmt.Errorf("dispatch %s: %w", req.action(), err)
	}
	span.SetAttributes(attribute.String("dispatch.result", result))
	return reply, nil
}

func (d *Dispatcher) execute(ctx context.Context, req request, userID string) (reply, result string, err error) {
	lg := Logger(ctx)

	switch r := req.(type) {
	case createRequest:
		if err := validation.CheckExpense(&r.expense); err != nil {
			return "", resultError, err
		}
		e, err := d.Repo.CreateExpense(ctx, d.DB, &r.expense)
		if err != nil {
			return "", resultError, err
		}
		return echoExpense(textCreated, e, false), resultOK, nil

	case updateRequest:
		if err := validation.CheckExpense(&r.candidate); err != nil {
			return "", resultError, err
		}
		e, err := d.Repo.UpdateExpense(ctx, d.DB, r.id, r.patch)
		if errors.Is(err, repo.ErrNotFound) {
			return textNotFound, resultNotFound, nil
		}
		if err != nil {
			return "", resultError, err
		}
		return echoExpense(textUpdated, e, false), resultOK, nil

	case deleteRequest:
		err := d.Repo.DeleteExpense(ctx, d.DB, r.id)
		if errors.Is(err, repo.ErrNotFound) {
			return textNotFound, resultNotFound, nil
		}
		if err != nil {
			return "", resultError, err
		}
		return textDeleted, resultOK, nil

	case lookupRequest:
		e, err := d.Repo.GetExpense(ctx, d.DB, r.id)
		if errors.Is(err, repo.ErrNotFound) {
			return textNotFound, resultNotFound, nil
		}
		if err != nil {
			return "", resultError, err
		}
		return echoExpense(textDetail, e, true), resultOK, nil

	case rangeRequest:
		lg.Debug().Time("start", r.start).Time("end", r.end).Msg("range query")
		return report(d.Repo.ListExpensesByDateRange(ctx, d.DB, userID, r.start, r.end))

	case categoryRequest:
		return report(d.Repo.ListExpensesByCategory(ctx, d.DB, userID, r.category))

	case paymentRequest:
		return report(d.Repo.ListExpensesByPaymentMethod(ctx, d.DB, userID, r.method))

	case amountRequest:
		return report(d.Repo.ListExpensesByAmountRange(ctx, d.DB, userID, r.min, r.max))

	case incompleteRequest:
		return r.reply, resultIncomplete, nil
	}

	lg.Info().Str("action", string(req.action())).Msg("unknown action")
	return textUnknown, resultOK, nil
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func report(expenses []domain.Expense, err error) (string, string, error) {
	if err != nil {
		return "", resultError, err
	}
	if len(expenses) == 0 {
		return textNoExpenses, resultEmpty, nil
	}
	return Aggregate(expenses).String(), resultOK, nil
}

func echoExpense(header string, e *domain.Expense, withDate bool) string {
	var b strings.Builder
	b.WriteString(header)
	fmt.Fprintf(&b, "\n• Số tiền: %s", FormatVND(e.Amount))
	fmt.Fprintf(&b, "\n• Danh mục: %s", e.Category)
	fmt.Fprintf(&b, "\n• Mô tả: %s", e.Description)
	fmt.Fprintf(&b, "\n• Phương thức thanh toán: %s", e.PaymentMethod)
	if withDate {
		fmt.Fprintf(&b, "\n• Ngày: %s", FormatDate(e.Date))
	}
	return b.String()
}
