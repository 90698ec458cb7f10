package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/tbourn/go-expense-assistant/internal/domain"
)

var categoryGloss = map[domain.Category]string{
	domain.CategoryFood:          "Food & Beverages",
	domain.CategoryTransport:     "Transportation",
	domain.CategoryUtilities:     "Utilities",
	domain.CategoryEntertainment: "Entertainment",
	domain.CategoryShopping:      "Shopping",
	domain.CategoryHealth:        "Health",
	domain.CategoryEducation:     "Education",
	domain.CategoryHousing:       "Housing",
	domain.CategoryOther:         "Others",
}

var paymentGloss = map[domain.PaymentMethod]string{
	domain.PaymentCash:     "Cash",
	domain.PaymentBankCard: "Bank Card",
	domain.PaymentEWallet:  "E-wallet",
	domain.PaymentOther:    "Others",
}

var actionGloss = []struct {
	action domain.Action
	desc   string
}{
	{domain.ActionCreateExpense, "record a new expense (needs amount, category, description; payment_method optional)"},
	{domain.ActionUpdateExpense, "change an existing expense (needs id, amount, category, description)"},
	{domain.ActionDeleteExpense, "delete an expense (needs id)"},
	{domain.ActionGetExpenseByID, "show one expense (needs id)"},
	{domain.ActionGetByDay, "expenses of one day (specific_date: YYYY-MM-DD, \"today\" or \"yesterday\")"},
	{domain.ActionGetByCurrentDay, "expenses of today"},
	{domain.ActionGetByYesterday, "expenses of yesterday"},
	{domain.ActionGetByDate, "expenses of an explicit date (specific_date: DD/MM/YYYY)"},
	{domain.ActionGetByMonth, "expenses of a month (specific_date: this_month, last_month or MM/YYYY)"},
	{domain.ActionGetByYear, "expenses of a year (specific_date: this_year, last_year or YYYY)"},
	{domain.ActionGetByDateRange, "expenses between two dates (start_date, end_date: YYYY-MM-DD)"},
	{domain.ActionGetByCategory, "expenses of one category (category)"},
	{domain.ActionGetByPaymentMethod, "expenses paid one way (payment_method)"},
	{domain.ActionGetByAmountRange, "expenses within an amount range (amount_min, amount_max)"},
	{domain.ActionUnknown, "anything else"},
}

const promptRules = `Rules:
- Amount is extracted from numeric values in the text; "k" means thousand and "tr" or "triệu" means million (50k = 50000).
- If payment method is not specified, use "Tiền mặt".
- If multiple categories could apply, choose the most relevant one.
- Preserve the user's wording for the description, without the amount.
- Set task_type to EXPENSE_MANAGEMENT for create/update/delete/get_expense_by_id, EXPENSE_ANALYSIS for every get_by_* action, UNKNOWN otherwise.
- Set tables to ["expense_record"], or [] when the action is unknown.
- Put every parameter you cannot find as null. Never invent an id.
- Reply with one JSON object and nothing else.`

const promptTimeGrammar = `time_range is one of:
- a relative token: today, yesterday, this_month, last_month, this_year, last_year, all_time
- an explicit date: DD/MM/YYYY
- a month: MM/YYYY
- a year: YYYY
- a date range: YYYY-MM-DD..YYYY-MM-DD`

var promptExamples = []struct{ in, out string }{
	{
		"thêm chi tiêu ăn trưa 50k",
		`{"task_type":"EXPENSE_MANAGEMENT","tables":["expense_record"],"action":"create_expense","time_range":"today","parameters":{"amount":50000,"category":"Ăn uống","description":"ăn trưa","payment_method":"Tiền mặt"}}`,
	},
	{
		"đổ xăng 100k bằng thẻ",
		`{"task_type":"EXPENSE_MANAGEMENT","tables":["expense_record"],"action":"create_expense","time_range":"today","parameters":{"amount":100000,"category":"Di chuyển","description":"đổ xăng","payment_method":"Thẻ ngân hàng"}}`,
	},
	{
		"hôm nay tôi đã tiêu bao nhiêu",
		`{"task_type":"EXPENSE_ANALYSIS","tables":["expense_record"],"action":"get_by_current_day","time_range":"today","parameters":{}}`,
	},
	{
		"chi tiêu tháng trước",
		`{"task_type":"EXPENSE_ANALYSIS","tables":["expense_record"],"action":"get_by_month","time_range":"last_month","parameters":{"specific_date":"last_month"}}`,
	},
	{
		"các khoản chi từ 50k đến 200k",
		`{"task_type":"EXPENSE_ANALYSIS","tables":["expense_record"],"action":"get_by_amount_range","time_range":"all_time","parameters":{"amount_min":50000,"amount_max":200000}}`,
	},
}

// SystemPrompt builds the classifier instruction for the given instant. The
// regional time is embedded so relative expressions resolve consistently.
func SystemPrompt(now time.Time) string {
	var b strings.Builder

	b.WriteString("You are a task classification AI for a Vietnamese expense tracking assistant.\n")
	b.WriteString("Given one user message, decide what the user wants and extract its parameters into a JSON object.\n\n")
	fmt.Fprintf(&b, "Current time (UTC+7): %s\n\n", now.In(Zone).Format("2006-01-02 15:04:05 Monday"))

	b.WriteString(promptRules)
	b.WriteString("\n\nActions:\n")
	for _, a := range actionGloss {
		fmt.Fprintf(&b, "- %s: %s\n", a.action, a.desc)
	}

	b.WriteString("\nCategories (choose one):\n")
	for _, c := range domain.Categories {
		fmt.Fprintf(&b, "- %s (%s)\n", c, categoryGloss[c])
	}
	b.WriteString("\nPayment Methods:\n")
	for _, p := range domain.PaymentMethods {
		fmt.Fprintf(&b, "- %s (%s)\n", p, paymentGloss[p])
	}

	b.WriteString("\n")
	b.WriteString(promptTimeGrammar)

	b.WriteString("\n\nReturn a JSON object with these fields:\n")
	b.WriteString("- task_type, tables, action, time_range\n")
	b.WriteString("- parameters: id, category, payment_method, amount, description, start_date, end_date, specific_date, amount_min, amount_max\n")

	b.WriteString("\nExamples:\n")
	for _, ex := range promptExamples {
		fmt.Fprintf(&b, "Input: %s\nOutput: %s\n\n", ex.in, ex.out)
	}
	return strings.TrimRight(b.String(), "\n")
}
