package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"expensetracker/internal/core"
)

const maxBodyBytes = 64 << 10

// errMalformedBody marks bodies that could not be decoded at all, as opposed
// to well-formed bodies carrying invalid values.
var errMalformedBody = errors.New("malformed request body")

// RequestBodyParser reads the body once and decodes it as JSON or form data.
type RequestBodyParser struct {
	body     []byte
	isJSON   bool
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads at most maxBodyBytes of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{isJSON: isJSONContent(r)}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errMalformedBody, p.err)
	}
	return p
}

// Parse decodes form bodies; JSON bodies are decoded by DecodeJSON.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if !p.isJSON && len(trimmed) > 0 && trimmed[0] == '{' {
		p.isJSON = true
	}
	if p.isJSON {
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errMalformedBody, p.err)
	}
	return p.err
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.isJSON
}

// Get returns a sanitized form value.
func (p *RequestBodyParser) Get(key string) string {
	if p.formData == nil {
		return ""
	}
	return sanitizeInput(p.formData.Get(key))
}

// DecodeJSON decodes the body into v. Value errors that wrap
// core.ErrInvalidInput are returned unchanged.
func (p *RequestBodyParser) DecodeJSON(v any) error {
	if err := json.Unmarshal(p.body, v); err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			return err
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

// formValues is what the form shows back to the user, as typed.
type formValues struct {
	Name          string
	Amount        string
	Payee         string
	Category      string
	PaymentMethod string
	Status        string
	RefCheque     string
	Description   string
}

func valuesFromInput(in core.ExpenseInput) formValues {
	v := formValues{
		Name:          in.Name,
		Payee:         in.Payee,
		Category:      string(in.Category),
		PaymentMethod: string(in.PaymentMethod),
		Status:        string(in.Status),
		RefCheque:     in.RefCheque,
		Description:   in.Description,
	}
	if in.Amount.Cents > 0 {
		v.Amount = in.Amount.String()
	}
	return v
}

// parseExpenseRequest decodes an ExpenseInput from a JSON or form body.
// The returned formValues are filled even when the amount fails to parse so
// the form can be shown again.
func parseExpenseRequest(w http.ResponseWriter, r *http.Request) (core.ExpenseInput, formValues, error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		return core.ExpenseInput{}, formValues{}, err
	}

	if p.IsJSON() {
		var in core.ExpenseInput
		if err := p.DecodeJSON(&in); err != nil {
			return core.ExpenseInput{}, formValues{}, err
		}
		in.Name = sanitizeInput(in.Name)
		in.Payee = sanitizeInput(in.Payee)
		in.Category = core.Category(strings.TrimSpace(string(in.Category)))
		in.PaymentMethod = core.PaymentMethod(strings.TrimSpace(string(in.PaymentMethod)))
		in.Status = core.Status(strings.TrimSpace(string(in.Status)))
		in.RefCheque = strings.TrimSpace(in.RefCheque)
		in.Description = sanitizeInput(in.Description)
		return in, valuesFromInput(in), nil
	}

	values := formValues{
		Name:          p.Get("name"),
		Amount:        sanitizeAmount(p.Get("amount")),
		Payee:         p.Get("payee"),
		Category:      p.Get("category"),
		PaymentMethod: p.Get("paymentMethod"),
		Status:        p.Get("status"),
		RefCheque:     sanitizeDigits(p.Get("refCheque")),
		Description:   p.Get("description"),
	}
	in := core.ExpenseInput{
		Name:          values.Name,
		Payee:         values.Payee,
		Category:      core.Category(values.Category),
		PaymentMethod: core.PaymentMethod(values.PaymentMethod),
		Status:        core.Status(values.Status),
		RefCheque:     values.RefCheque,
		Description:   values.Description,
	}
	amount, err := core.ParseAmount(values.Amount)
	if err != nil {
		return in, values, err
	}
	in.Amount = amount
	return in, values, nil
}
