package http

import (
	"errors"
	"mime"
	"net/http"
	"strings"
	"unicode"

	"expensetracker/internal/core"
)

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// sanitizeDigits keeps ASCII digits only, so "00-451" becomes "00451".
func sanitizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// sanitizeAmount drops spaces and currency symbols but keeps anything that
// ParseAmount needs to accept or reject the value, signs included.
func sanitizeAmount(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-', r == '+':
			return r
		case unicode.IsSpace(r), unicode.Is(unicode.Sc, r):
			return -1
		default:
			return r
		}
	}, s)
}

func isJSONContent(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// wantsJSON reports whether the caller expects a JSON response rather than
// a page or redirect.
func wantsJSON(r *http.Request) bool {
	if isJSONContent(r) || strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// safeReturnPath accepts only local absolute paths.
func safeReturnPath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.ContainsAny(p, "\\\r\n") {
		return "/"
	}
	return p
}

// userMessage strips the shared invalid-input prefix from validation errors.
func userMessage(err error) string {
	msg := err.Error()
	if errors.Is(err, core.ErrInvalidInput) {
		if i := strings.LastIndex(msg, core.ErrInvalidInput.Error()+": "); i >= 0 {
			msg = msg[i+len(core.ErrInvalidInput.Error())+2:]
		}
	}
	return msg
}
