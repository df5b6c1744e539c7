package http

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/trace"
)

const dateLayout = "02 Jan 2006 15:04"

type expenseView struct {
	ID            string
	Name          string
	Amount        string
	Payee         string
	Category      string
	PaymentMethod string
	Status        string
	StatusClass   string
	RefCheque     string
	Description   string
	Date          string
	DateISO       string
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:            e.ID,
		Name:          e.Name,
		Amount:        e.Amount.String(),
		Payee:         e.Payee,
		Category:      string(e.Category),
		PaymentMethod: string(e.PaymentMethod),
		Status:        string(e.Status),
		StatusClass:   strings.ToLower(string(e.Status)),
		RefCheque:     e.RefCheque,
		Description:   e.Description,
		Date:          e.Date.Local().Format(dateLayout),
		DateISO:       e.Date.UTC().Format(time.RFC3339),
	}
}

type page struct {
	Title string
	Theme string
	Path  string
}

type listPage struct {
	page
	Expenses []expenseView
	Summary  core.Summary
}

type option struct {
	Value    string
	Selected bool
}

type formPage struct {
	page
	EditMode       bool
	Action         string
	Error          string
	Values         formValues
	MaxNameLength  int
	Categories     []option
	PaymentMethods []option
	Statuses       []option
}

func options[T ~string](all []T, selected string) []option {
	out := make([]option, len(all))
	for i, v := range all {
		out[i] = option{Value: string(v), Selected: string(v) == selected}
	}
	return out
}

func (s *Server) newPage(r *http.Request, title string) page {
	return page{Title: title, Theme: s.themes.Variant(), Path: r.URL.Path}
}

func (s *Server) newFormPage(r *http.Request, editID string, values formValues) formPage {
	p := formPage{
		page:          s.newPage(r, "Add expense"),
		Action:        "/expenses",
		Values:        values,
		MaxNameLength: core.MaxNameLength,
	}
	if editID != "" {
		p.page.Title = "Edit expense"
		p.EditMode = true
		p.Action = "/expenses/" + url.PathEscape(editID)
	}
	p.Categories = options(core.Categories(), values.Category)
	p.PaymentMethods = options(core.PaymentMethods(), values.PaymentMethod)
	p.Statuses = options(core.Statuses(), values.Status)
	return p
}

// render executes a template into a buffer so that failures still produce
// a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution error",
			applog.FieldOperation, applog.OpRender,
			"template", name,
			applog.FieldError, err)
		ErrorResponse(http.StatusInternalServerError, "Error rendering page").Write(w)
		return
	}
	NewResponse().Status(status).BodyHTML(buf.Bytes()).Write(w)
}

// handleList renders the list view.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list, err := s.expenses.List(ctx)
	if err != nil {
		s.internalError(w, r, applog.OpList, err)
		return
	}
	sum, err := s.summary(ctx)
	if err != nil {
		s.internalError(w, r, applog.OpList, err)
		return
	}

	data := listPage{page: s.newPage(r, "Expenses"), Summary: sum}
	data.Expenses = make([]expenseView, len(list))
	for i, e := range list {
		data.Expenses[i] = newExpenseView(e)
	}
	s.render(w, r, http.StatusOK, "list.html", data)
}

func (s *Server) handleNewForm(w http.ResponseWriter, r *http.Request) {
	values := valuesFromInput(core.ExpenseInput{}.WithDefaults())
	s.render(w, r, http.StatusOK, "form.html", s.newFormPage(r, "", values))
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, err := s.expenses.Get(r.Context(), id)
	if err != nil {
		s.writeExpenseError(w, r, applog.OpRead, err)
		return
	}
	s.render(w, r, http.StatusOK, "form.html", s.newFormPage(r, id, valuesFromInput(e.Input())))
}

// handleCreate accepts the create form or a JSON body.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, values, err := parseExpenseRequest(w, r)
	if err == nil {
		var e core.Expense
		e, err = s.expenses.Create(ctx, in)
		if err == nil {
			s.invalidateSummary()
			if wantsJSON(r) {
				NewResponse().
					Status(http.StatusCreated).
					Header("Location", "/api/expenses/"+url.PathEscape(e.ID)).
					JSON(e).
					Write(w)
				return
			}
			NewResponse().Redirect("/").Write(w)
			return
		}
	}
	s.writeSubmitError(w, r, "", values, applog.OpCreate, err)
}

// handleUpdate replaces an expense from the edit form or a JSON body.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	in, values, err := parseExpenseRequest(w, r)
	if err == nil {
		var e core.Expense
		e, err = s.expenses.Update(ctx, id, in)
		if err == nil {
			s.invalidateSummary()
			if wantsJSON(r) {
				NewResponse().JSON(e).Write(w)
				return
			}
			NewResponse().Redirect("/").Write(w)
			return
		}
	}
	s.writeSubmitError(w, r, id, values, applog.OpUpdate, err)
}

// writeSubmitError shows the form again for invalid browser submissions and
// maps everything else through writeExpenseError.
func (s *Server) writeSubmitError(w http.ResponseWriter, r *http.Request, editID string, values formValues, op string, err error) {
	if errors.Is(err, core.ErrInvalidInput) && !wantsJSON(r) {
		p := s.newFormPage(r, editID, values)
		p.Error = userMessage(err)
		s.render(w, r, http.StatusUnprocessableEntity, "form.html", p)
		return
	}
	s.writeExpenseError(w, r, op, err)
}

// writeExpenseError maps domain errors to status codes:
// invalid input 422, unknown id 404, malformed body 400, anything else 500.
func (s *Server) writeExpenseError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		errorFor(r, http.StatusUnprocessableEntity, userMessage(err)).Write(w)
	case errors.Is(err, core.ErrNotFound):
		errorFor(r, http.StatusNotFound, "Expense not found").Write(w)
	case errors.Is(err, errMalformedBody):
		applog.FromContext(r.Context()).InfoContext(r.Context(), "Malformed request body",
			applog.FieldOperation, op,
			applog.FieldError, err)
		errorFor(r, http.StatusBadRequest, "Malformed request body").Write(w)
	default:
		s.internalError(w, r, op, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		applog.NewFields().
			WithOperation(op).
			WithError(err).
			WithErrorType(applog.ErrorTypeInternal).
			ToSlice()...)
	msg := "Internal error"
	if id := trace.GetRequestID(r.Context()); id != "" {
		msg += " (request " + id + ")"
	}
	errorFor(r, http.StatusInternalServerError, msg).Write(w)
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	list, err := s.expenses.List(r.Context())
	if err != nil {
		s.internalError(w, r, applog.OpList, err)
		return
	}
	if list == nil {
		list = []core.Expense{}
	}
	NewResponse().JSON(list).Write(w)
}

func (s *Server) handleAPIGet(w http.ResponseWriter, r *http.Request) {
	e, err := s.expenses.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeExpenseError(w, r, applog.OpRead, err)
		return
	}
	NewResponse().JSON(e).Write(w)
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.summary(r.Context())
	if err != nil {
		s.internalError(w, r, applog.OpRead, err)
		return
	}
	if sum.ByCategory == nil {
		sum.ByCategory = []core.CategoryAmount{}
	}
	if sum.ByStatus == nil {
		sum.ByStatus = []core.StatusAmount{}
	}
	NewResponse().JSON(sum).Write(w)
}
