package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tbourn/go-expense-assistant/internal/domain"
)

var vnPrinter = message.NewPrinter(language.Vietnamese)

// FormatVND renders amount as Vietnamese đồng, e.g. "50.000 ₫". Đồng has no
// minor unit, so the value is rounded half away from zero.
func FormatVND(amount float64) string {
	return formatDong(decimal.NewFromFloat(amount))
}

func formatDong(d decimal.Decimal) string {
	return vnPrinter.Sprintf("%d", d.Round(0).IntPart()) + "\u00a0₫"
}

// CategoryTotal is one line of a Report.
type CategoryTotal struct {
	Category domain.Category
	Amount   decimal.Decimal
}

// Report is the per-category aggregation of a set of expenses. Every line
// is rounded to whole đồng and Total is the sum of the rounded lines, so the
// lines always add up to the total shown.
type Report struct {
	Lines []CategoryTotal
	Total decimal.Decimal
}

// Aggregate groups expenses by category with exact decimal sums. Lines
// follow domain.Categories order; categories outside the enumeration are
// appended in first-seen order.
func Aggregate(expenses []domain.Expense) Report {
	sums := make(map[domain.Category]decimal.Decimal, len(domain.Categories))
	var extra []domain.Category
	for _, e := range expenses {
		cur, seen := sums[e.Category]
		if !seen && !e.Category.Valid() {
			extra = append(extra, e.Category)
		}
		sums[e.Category] = cur.Add(decimal.NewFromFloat(e.Amount))
	}

	order := append(append([]domain.Category{}, domain.Categories...), extra...)
	r := Report{Total: decimal.Zero}
	for _, c := range order {
		sum, ok := sums[c]
		if !ok {
			continue
		}
		line := sum.Round(0)
		r.Lines = append(r.Lines, CategoryTotal{Category: c, Amount: line})
		r.Total = r.Total.Add(line)
	}
	return r
}

// String renders the report as the chat reply text.
func (r Report) String() string {
	var b strings.Builder
	b.WriteString("Báo cáo chi tiêu:\n\n")
	for _, l := range r.Lines {
		fmt.Fprintf(&b, "• %s: %s\n", l.Category, formatDong(l.Amount))
	}
	fmt.Fprintf(&b, "\nTổng cộng: %s", formatDong(r.Total))
	return b.String()
}
