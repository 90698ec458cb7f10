package services

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-expense-assistant/internal/domain"
	"github.com/tbourn/go-expense-assistant/internal/sysutil"
)

// request is the resolved, action-specific form of a classification. Each
// variant carries only the fields its action needs.
type request interface {
	action() domain.Action
}

type createRequest struct {
	expense domain.Expense
}

type updateRequest struct {
	id    string
	patch domain.ExpensePatch
	// candidate is the would-be record used for validation.
	candidate domain.Expense
}

type deleteRequest struct {
	id string
}

type lookupRequest struct {
	id string
}

// rangeRequest covers every calendar-bounded analysis action.
type rangeRequest struct {
	act        domain.Action
	start, end time.Time
}

type categoryRequest struct {
	category domain.Category
}

type paymentRequest struct {
	method domain.PaymentMethod
}

type amountRequest struct {
	min, max float64
}

// incompleteRequest answers with guidance text and never touches the ledger.
type incompleteRequest struct {
	act   domain.Action
	reply string
}

type unknownRequest struct {
	act domain.Action
}

func (createRequest) action() domain.Action { return domain.ActionCreateExpense }
func (updateRequest) action() domain.Action { return domain.ActionUpdateExpense }
func (deleteRequest) action() domain.Action { return domain.ActionDeleteExpense }
func (lookupRequest) action() domain.Action { return domain.ActionGetExpenseByID }
func (r rangeRequest) action() domain.Action { return r.act }
func (categoryRequest) action() domain.Action { return domain.ActionGetByCategory }
func (paymentRequest) action() domain.Action { return domain.ActionGetByPaymentMethod }
func (amountRequest) action() domain.Action { return domain.ActionGetByAmountRange }
func (r incompleteRequest) action() domain.Action { return r.act }
func (r unknownRequest) action() domain.Action { return r.act }

// resolve maps a classification onto its request variant. It fails only for
// explicit dates that cannot be read; missing parameters resolve to an
// incompleteRequest.
func resolve(tc *domain.TaskClassification, userID string, now time.Time) (request, error) {
	p := tc.Parameters
	switch tc.Action {
	case domain.ActionCreateExpense:
		amount, category, description, ok := expenseFields(p)
		if !ok {
			return incompleteRequest{act: tc.Action, reply: textNeedFieldsCreate}, nil
		}
		// The id is assigned here so the record validates before insert.
		return createRequest{expense: domain.Expense{
			ID:            uuid.NewString(),
			UserID:        userID,
			Amount:        amount,
			Category:      category,
			Description:   description,
			PaymentMethod: paymentOrDefault(p.PaymentMethod),
			Date:          ToStorage(now),
		}}, nil

	case domain.ActionUpdateExpense:
		amount, category, description, ok := expenseFields(p)
		id := str(p.ID)
		if !ok || id == "" {
			return incompleteRequest{act: tc.Action, reply: textNeedFieldsUpdate}, nil
		}
		method := paymentOrDefault(p.PaymentMethod)
		// An update re-dates the expense to now.
		date := ToStorage(now)
		return updateRequest{
			id: id,
			patch: domain.ExpensePatch{
				Amount:        &amount,
				Category:      &category,
				Description:   &description,
				PaymentMethod: &method,
				Date:          &date,
			},
			candidate: domain.Expense{
				ID:            id,
				UserID:        userID,
				Amount:        amount,
				Category:      category,
				Description:   description,
				PaymentMethod: method,
				Date:          date,
			},
		}, nil

	case domain.ActionDeleteExpense:
		if id := str(p.ID); id != "" {
			return deleteRequest{id: id}, nil
		}
		return incompleteRequest{act: tc.Action, reply: textNeedIDDelete}, nil

	case domain.ActionGetExpenseByID:
		if id := str(p.ID); id != "" {
			return lookupRequest{id: id}, nil
		}
		return incompleteRequest{act: tc.Action, reply: textNeedIDLookup}, nil

	case domain.ActionGetByCurrentDay:
		start, end := DayBounds(regionalDay(now, 0))
		return rangeRequest{act: tc.Action, start: start, end: end}, nil

	case domain.ActionGetByYesterday:
		start, end := DayBounds(regionalDay(now, -1))
		return rangeRequest{act: tc.Action, start: start, end: end}, nil

	case domain.ActionGetByDay:
		spec := str(p.SpecificDate)
		if spec == "" && isDayToken(tc.TimeRange) {
			spec = tc.TimeRange
		}
		if spec == "" {
			return incompleteRequest{act: tc.Action, reply: textNoExpenses}, nil
		}
		return dayRequest(tc.Action, spec, now)

	case domain.ActionGetByDate:
		// An explicit DD/MM/YYYY date is checked strictly, then looked up
		// like get_by_day.
		spec := str(p.SpecificDate)
		if spec == "" {
			return incompleteRequest{act: tc.Action, reply: textNoExpenses}, nil
		}
		d, err := ParseStrictDate(spec)
		if err != nil {
			return nil, err
		}
		start, end := DayBounds(d.Date())
		return rangeRequest{act: tc.Action, start: start, end: end}, nil

	case domain.ActionGetByMonth, domain.ActionGetByYear:
		start, end := periodBounds(tc.Action, sysutil.FirstNonEmpty(str(p.SpecificDate), tc.TimeRange), now)
		return rangeRequest{act: tc.Action, start: start, end: end}, nil

	case domain.ActionGetByDateRange:
		from, to := str(p.StartDate), str(p.EndDate)
		if from == "" || to == "" {
			return incompleteRequest{act: tc.Action, reply: textNoExpenses}, nil
		}
		sy, sm, sd, err := parseCalendarDate(from)
		if err != nil {
			return nil, err
		}
		ey, em, ed, err := parseCalendarDate(to)
		if err != nil {
			return nil, err
		}
		start, _ := DayBounds(sy, sm, sd)
		_, end := DayBounds(ey, em, ed)
		return rangeRequest{act: tc.Action, start: start, end: end}, nil

	case domain.ActionGetByCategory:
		if p.Category == nil {
			return incompleteRequest{act: tc.Action, reply: textNoExpenses}, nil
		}
		return categoryRequest{category: *p.Category}, nil

	case domain.ActionGetByPaymentMethod:
		if p.PaymentMethod == nil {
			return incompleteRequest{act: tc.Action, reply: textNoExpenses}, nil
		}
		return paymentRequest{method: *p.PaymentMethod}, nil

	case domain.ActionGetByAmountRange:
		if p.AmountMin == nil || p.AmountMax == nil {
			return incompleteRequest{act: tc.Action, reply: textNoExpenses}, nil
		}
		lo, hi := *p.AmountMin, *p.AmountMax
		if lo > hi {
			lo, hi = hi, lo
		}
		return amountRequest{min: lo, max: hi}, nil
	}
	return unknownRequest{act: tc.Action}, nil
}

func dayRequest(act domain.Action, spec string, now time.Time) (request, error) {
	switch strings.ToLower(strings.TrimSpace(spec)) {
	case domain.RangeToday:
		start, end := DayBounds(regionalDay(now, 0))
		return rangeRequest{act: act, start: start, end: end}, nil
	case domain.RangeYesterday:
		start, end := DayBounds(regionalDay(now, -1))
		return rangeRequest{act: act, start: start, end: end}, nil
	}
	y, m, d, err := parseCalendarDate(spec)
	if err != nil {
		return nil, err
	}
	start, end := DayBounds(y, m, d)
	return rangeRequest{act: act, start: start, end: end}, nil
}

// periodBounds resolves a month or year token. Unrecognized or empty tokens
// select the current period.
func periodBounds(act domain.Action, token string, now time.Time) (time.Time, time.Time) {
	y, m, _ := regionalDay(now, 0)
	token = strings.ToLower(strings.TrimSpace(token))

	if act == domain.ActionGetByMonth {
		switch token {
		case domain.RangeLastMonth, domain.RangeLastYear:
			prev := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
			return MonthBounds(prev.Year(), prev.Month())
		}
		if py, pm, ok := parseMonthYear(token); ok {
			return MonthBounds(py, pm)
		}
		return MonthBounds(y, m)
	}

	switch token {
	case domain.RangeLastYear, domain.RangeLastMonth:
		return YearBounds(y - 1)
	}
	if py, ok := parseYear(token); ok {
		return YearBounds(py)
	}
	if py, _, ok := parseMonthYear(token); ok {
		return YearBounds(py)
	}
	return YearBounds(y)
}

// expenseFields extracts the fields create and update require. A zero
// amount counts as absent.
func expenseFields(p domain.Parameters) (float64, domain.Category, string, bool) {
	if p.Amount == nil || *p.Amount == 0 || p.Category == nil || str(p.Description) == "" {
		return 0, "", "", false
	}
	return *p.Amount, *p.Category, str(p.Description), true
}

func paymentOrDefault(p *domain.PaymentMethod) domain.PaymentMethod {
	if p == nil || *p == "" {
		return domain.DefaultPayment
	}
	return *p
}

func isDayToken(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == domain.RangeToday || s == domain.RangeYesterday {
		return true
	}
	_, _, _, err := parseCalendarDate(s)
	return err == nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
