// Package domain defines the ledger models and the structured intent types
// shared by the repository, validation and service layers. Expense is mapped
// with GORM; TaskClassification is never persisted.
package domain

import (
	"time"
)

// Category is the closed set of expense categories. The values are the
// Vietnamese labels shown to users and stored verbatim.
type Category string

const (
	CategoryFood          Category = "Ăn uống"
	CategoryTransport     Category = "Di chuyển"
	CategoryUtilities     Category = "Tiện ích"
	CategoryEntertainment Category = "Giải trí"
	CategoryShopping      Category = "Mua sắm"
	CategoryHealth        Category = "Sức khỏe"
	CategoryEducation     Category = "Học tập"
	CategoryHousing       Category = "Nhà cửa"
	CategoryOther         Category = "Khác"
)

// Categories lists every category in report order.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryUtilities,
	CategoryEntertainment,
	CategoryShopping,
	CategoryHealth,
	CategoryEducation,
	CategoryHousing,
	CategoryOther,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// PaymentMethod is the closed set of payment methods.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "Tiền mặt"
	PaymentBankCard PaymentMethod = "Thẻ ngân hàng"
	PaymentEWallet  PaymentMethod = "Ví điện tử"
	PaymentOther    PaymentMethod = "Khác"
)

// DefaultPayment is used when the user does not name a payment method.
const DefaultPayment = PaymentCash

// PaymentMethods lists every payment method.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentBankCard, PaymentEWallet, PaymentOther}

// Valid reports whether p is one of PaymentMethods.
func (p PaymentMethod) Valid() bool {
	for _, v := range PaymentMethods {
		if p == v {
			return true
		}
	}
	return false
}

// Expense is a single ledger entry owned by a user.
//
// Date holds the regional wall-clock time labelled as UTC (see
// services.ToStorage), so calendar-day filters compare directly against it.
type Expense struct {
	ID            string        `json:"id"             gorm:"type:char(36);primaryKey"`
	UserID        string        `json:"user_id"        gorm:"type:varchar(64);not null;index:idx_user_date,priority:1"`
	Amount        float64       `json:"amount"         gorm:"not null;check:amount > 0"`
	Category      Category      `json:"category"       gorm:"type:varchar(32);not null;index"`
	Description   string        `json:"description"    gorm:"type:text;not null"`
	PaymentMethod PaymentMethod `json:"payment_method" gorm:"type:varchar(32);not null;default:'Tiền mặt'"`
	Date          time.Time     `json:"date"           gorm:"not null;index:idx_user_date,priority:2"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TableName returns the database table name for Expense.
func (Expense) TableName() string { return "expenses" }

// ExpensePatch carries the mutable fields of an update. Nil fields are left
// untouched.
type ExpensePatch struct {
	Amount        *float64
	Category      *Category
	Description   *string
	PaymentMethod *PaymentMethod
	Date          *time.Time
}
