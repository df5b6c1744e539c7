package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	CategoryFood    Category = "Food"
	CategoryClothes Category = "Clothes"
	CategoryBills   Category = "Bills"
	CategoryOthers  Category = "Others"
)

const (
	PaymentCreditCard   PaymentMethod = "Credit Card"
	PaymentCash         PaymentMethod = "Cash"
	PaymentBankTransfer PaymentMethod = "Bank Transfer"
)

const (
	StatusCleared   Status = "Cleared"
	StatusUncleared Status = "Uncleared"
)

// MaxNameLength bounds the expense name, in characters.
const MaxNameLength = 200

// MaxAmountCents caps a single expense at one billion units, which keeps
// collection totals far from int64 overflow.
const MaxAmountCents int64 = 100_000_000_000

type (
	Category      string
	PaymentMethod string
	Status        string

	Money struct {
		Cents int64
	}

	// ExpenseInput is everything the caller controls on an expense.
	// ID and Date are owned by the store.
	ExpenseInput struct {
		Name          string        `json:"name"`
		Amount        Money         `json:"amount"`
		Payee         string        `json:"payee"`
		Category      Category      `json:"category"`
		PaymentMethod PaymentMethod `json:"paymentMethod"`
		Status        Status        `json:"status"`
		RefCheque     string        `json:"refCheque"`
		Description   string        `json:"description"`
	}

	Expense struct {
		ID            string        `json:"id"`
		Name          string        `json:"name"`
		Amount        Money         `json:"amount"`
		Payee         string        `json:"payee"`
		Category      Category      `json:"category"`
		PaymentMethod PaymentMethod `json:"paymentMethod"`
		Status        Status        `json:"status"`
		RefCheque     string        `json:"refCheque"`
		Description   string        `json:"description"`
		Date          time.Time     `json:"date"`
	}
)

var (
	// ErrInvalidInput is wrapped by every validation failure.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when no expense has the requested id.
	ErrNotFound = errors.New("expense not found")

	ErrEmptyName            = fmt.Errorf("%w: empty name", ErrInvalidInput)
	ErrNameTooLong          = fmt.Errorf("%w: name too long (max %d characters)", ErrInvalidInput, MaxNameLength)
	ErrInvalidAmount        = fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	ErrAmountTooLarge       = fmt.Errorf("%w: amount too large (max %d)", ErrInvalidInput, MaxAmountCents/100)
	ErrInvalidCategory      = fmt.Errorf("%w: unknown category", ErrInvalidInput)
	ErrInvalidPaymentMethod = fmt.Errorf("%w: unknown payment method", ErrInvalidInput)
	ErrInvalidStatus        = fmt.Errorf("%w: unknown status", ErrInvalidInput)
	ErrInvalidRefCheque     = fmt.Errorf("%w: reference number must contain digits only", ErrInvalidInput)
)

// Categories returns the categories in display order.
func Categories() []Category {
	return []Category{CategoryFood, CategoryClothes, CategoryBills, CategoryOthers}
}

// PaymentMethods returns the payment methods in display order.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentCreditCard, PaymentCash, PaymentBankTransfer}
}

// Statuses returns the clearing statuses in display order.
func Statuses() []Status {
	return []Status{StatusCleared, StatusUncleared}
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryFood, CategoryClothes, CategoryBills, CategoryOthers:
		return true
	}
	return false
}

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentCreditCard, PaymentCash, PaymentBankTransfer:
		return true
	}
	return false
}

func (s Status) IsValid() bool {
	switch s {
	case StatusCleared, StatusUncleared:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxAmountCents {
		return ErrAmountTooLarge
	}
	return nil
}

// WithDefaults fills empty enum fields with the values a fresh form starts with.
func (in ExpenseInput) WithDefaults() ExpenseInput {
	if in.Category == "" {
		in.Category = CategoryFood
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = PaymentCreditCard
	}
	if in.Status == "" {
		in.Status = StatusCleared
	}
	return in
}

func (in ExpenseInput) Validate() error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if !in.Category.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, in.Category)
	}
	if !in.PaymentMethod.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, in.PaymentMethod)
	}
	if !in.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}
	for _, r := range in.RefCheque {
		if r < '0' || r > '9' {
			return ErrInvalidRefCheque
		}
	}
	return nil
}

// NewExpense builds the stored record for in under the given identity.
func NewExpense(id string, date time.Time, in ExpenseInput) Expense {
	e := Expense{ID: id, Date: date}
	e.Apply(in)
	return e
}

// Apply overwrites every caller-owned field; ID and Date stay as they are.
func (e *Expense) Apply(in ExpenseInput) {
	e.Name = strings.TrimSpace(in.Name)
	e.Amount = in.Amount
	e.Payee = in.Payee
	e.Category = in.Category
	e.PaymentMethod = in.PaymentMethod
	e.Status = in.Status
	e.RefCheque = in.RefCheque
	e.Description = in.Description
}

// Input returns the caller-owned part of e, used to prefill the edit form.
func (e Expense) Input() ExpenseInput {
	return ExpenseInput{
		Name:          e.Name,
		Amount:        e.Amount,
		Payee:         e.Payee,
		Category:      e.Category,
		PaymentMethod: e.PaymentMethod,
		Status:        e.Status,
		RefCheque:     e.RefCheque,
		Description:   e.Description,
	}
}
