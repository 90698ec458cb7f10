// Package handlers exposes the assistant over REST:
//   - POST /messages        (one chat turn, Idempotency-Key aware)
//   - GET  /expenses        (paginated ledger, weak ETag)
//   - GET  /expenses/{id}   (single expense, owner-scoped)
//
// Handlers are transport-thin: they validate input, call the services and
// translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-expense-assistant/internal/domain"
	"github.com/tbourn/go-expense-assistant/internal/http/middleware"
	"github.com/tbourn/go-expense-assistant/internal/services"
	"github.com/tbourn/go-expense-assistant/internal/utils"
)

//
// Service contracts
//

// Assistant runs one classify-then-dispatch cycle. Implemented by
// *services.Assistant.
type Assistant interface {
	Handle(ctx context.Context, userID, text string) (services.Reply, error)
}

// ExpenseService reads a user's ledger. Implemented by
// *services.ExpenseService.
type ExpenseService interface {
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Expense, int64, error)
	// Get must return services.ErrExpenseNotFound for missing or foreign ids.
	Get(ctx context.Context, userID, id string) (*domain.Expense, error)
	// Stats returns the row count and latest update time used for ETags.
	Stats(ctx context.Context, userID string) (int64, *time.Time, error)
}

// ReplayStore keeps replies of keyed message requests. Lookup returns
// (nil, nil) on a miss.
type ReplayStore interface {
	Lookup(ctx context.Context, userID, key string, now time.Time) (*domain.Idempotency, error)
	Remember(ctx context.Context, userID, key string, reply services.Reply) error
}

// Handlers groups the REST endpoints.
type Handlers struct {
	assistant Assistant
	expenses  ExpenseService
	replays   ReplayStore

	// MaxContentRunes caps message content at the edge; zero disables it.
	MaxContentRunes int
}

// New binds handlers to their services. replays may be nil, which disables
// idempotent replay.
func New(assistant Assistant, expenses ExpenseService, replays ReplayStore) *Handlers {
	return &Handlers{assistant: assistant, expenses: expenses, replays: replays}
}

// userID prefers the identity set by middleware.Identity, then the raw
// X-User-ID header, then middleware.DefaultUserID.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return middleware.DefaultUserID
}

//
// DTOs
//

// Pagination carries list metadata.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListExpensesResponse wraps one page of expenses.
type ListExpensesResponse struct {
	Expenses   []domain.Expense `json:"expenses"`
	Pagination Pagination       `json:"pagination"`
}

func pageParams(c *gin.Context) (page, pageSize int) {
	return utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), utils.DefaultPageSize),
	)
}

// expensesETag changes whenever a row is added, removed or updated.
func expensesETag(uid string, count int64, latest *time.Time) string {
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	return fmt.Sprintf(`W/"expenses:%s:%d:%d"`, uid, count, ts)
}

//
// Handlers
//

// ListExpenses godoc
// @ID          listExpenses
// @Summary     List expenses (paginated)
// @Description Returns a page of the user's expenses, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Expenses
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID"                     example(tg:123456)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListExpensesResponse
// @Header      200  {string} ETag "Weak ETag for the current ledger state"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /expenses [get]
func (h *Handlers) ListExpenses(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := pageParams(c)

	// Best effort: a stats failure only skips the conditional response.
	if count, latest, err := h.expenses.Stats(ctx, uid); err == nil {
		etag := expensesETag(uid, count, latest)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	} else {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("expense stats failed")
	}

	items, total, err := h.expenses.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Expense{}
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListExpensesResponse{
		Expenses: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetExpense godoc
// @ID          getExpense
// @Summary     Get one expense
// @Tags        Expenses
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID"     example(tg:123456)
// @Param       id         path    string  true  "Expense ID"  format(uuid)
//
// @Success     200  {object} domain.Expense
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Expense not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /expenses/{id} [get]
func (h *Handlers) GetExpense(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "expense id must be a UUID")
		return
	}

	e, err := h.expenses.Get(c.Request.Context(), userID(c), id)
	switch {
	case errors.Is(err, services.ErrExpenseNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "expense not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, err.Error())
	default:
		ok(c, http.StatusOK, e)
	}
}
