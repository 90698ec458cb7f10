package domain

import "time"

// TaskType is the coarse intent family of a message.
type TaskType string

const (
	TaskExpenseManagement TaskType = "EXPENSE_MANAGEMENT"
	TaskExpenseAnalysis   TaskType = "EXPENSE_ANALYSIS"
	TaskUnknown           TaskType = "UNKNOWN"
)

// TaskTypes lists every task type.
var TaskTypes = []TaskType{TaskExpenseManagement, TaskExpenseAnalysis, TaskUnknown}

// Table names a ledger table a classification touches.
type Table string

const (
	TableExpenseRecord Table = "expense_record"
	TableTaskClassify  Table = "task_classify"
)

// Tables lists every table value.
var Tables = []Table{TableExpenseRecord, TableTaskClassify}

// Action is the concrete operation a classification resolves to.
type Action string

const (
	ActionGetByDay           Action = "get_by_day"
	ActionGetByCurrentDay    Action = "get_by_current_day"
	ActionGetByYesterday     Action = "get_by_yesterday"
	ActionGetByDate          Action = "get_by_date"
	ActionGetByMonth         Action = "get_by_month"
	ActionGetByYear          Action = "get_by_year"
	ActionGetByDateRange     Action = "get_by_date_range"
	ActionGetByCategory      Action = "get_by_category"
	ActionGetByPaymentMethod Action = "get_by_payment_method"
	ActionGetByAmountRange   Action = "get_by_amount_range"

	ActionCreateExpense  Action = "create_expense"
	ActionUpdateExpense  Action = "update_expense"
	ActionDeleteExpense  Action = "delete_expense"
	ActionGetExpenseByID Action = "get_expense_by_id"

	ActionUnknown Action = "unknown"
)

// Actions lists every action the classifier may emit.
var Actions = []Action{
	ActionGetByDay, ActionGetByCurrentDay, ActionGetByYesterday, ActionGetByDate,
	ActionGetByMonth, ActionGetByYear, ActionGetByDateRange, ActionGetByCategory,
	ActionGetByPaymentMethod, ActionGetByAmountRange,
	ActionCreateExpense, ActionUpdateExpense, ActionDeleteExpense, ActionGetExpenseByID,
	ActionUnknown,
}

// IsAnalysis reports whether a reads and aggregates expenses.
func (a Action) IsAnalysis() bool {
	switch a {
	case ActionGetByDay, ActionGetByCurrentDay, ActionGetByYesterday, ActionGetByDate,
		ActionGetByMonth, ActionGetByYear, ActionGetByDateRange, ActionGetByCategory,
		ActionGetByPaymentMethod, ActionGetByAmountRange:
		return true
	}
	return false
}

// Canonical relative time-range tokens.
const (
	RangeToday     = "today"
	RangeYesterday = "yesterday"
	RangeThisMonth = "this_month"
	RangeLastMonth = "last_month"
	RangeThisYear  = "this_year"
	RangeLastYear  = "last_year"
	RangeAllTime   = "all_time"
)

// Parameters is the partially populated argument record of a
// classification. Only the fields relevant to the action are expected.
type Parameters struct {
	ID            *string        `json:"id,omitempty"`
	Category      *Category      `json:"category,omitempty"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
	Amount        *float64       `json:"amount,omitempty"`
	Description   *string        `json:"description,omitempty"`
	StartDate     *string        `json:"start_date,omitempty"`
	EndDate       *string        `json:"end_date,omitempty"`
	SpecificDate  *string        `json:"specific_date,omitempty"`
	AmountMin     *float64       `json:"amount_min,omitempty"`
	AmountMax     *float64       `json:"amount_max,omitempty"`
}

// TaskClassification is the structured intent derived from one message.
// UserID and CreatedAt are provenance fields and are always set locally.
type TaskClassification struct {
	ID         string     `json:"id"`
	TaskType   TaskType   `json:"task_type"`
	Tables     []Table    `json:"tables"`
	Action     Action     `json:"action"`
	TimeRange  string     `json:"time_range"`
	Parameters Parameters `json:"parameters"`
	UserID     string     `json:"user_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

// UnknownClassification returns an unknown-intent classification carrying
// the given provenance.
func UnknownClassification(id, userID string, at time.Time) *TaskClassification {
	return &TaskClassification{
		ID:        id,
		TaskType:  TaskUnknown,
		Tables:    []Table{},
		Action:    ActionUnknown,
		UserID:    userID,
		CreatedAt: at,
	}
}
