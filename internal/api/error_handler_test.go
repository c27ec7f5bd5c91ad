package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pharmacy/backoffice/internal/core/domain"
)

func TestHTTPErrorHandler_MapsDomainErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid username/email or password"},
		{fmt.Errorf("parse: %w", domain.ErrTokenExpired), http.StatusUnauthorized, "invalid or expired token"},
		{domain.ErrTokenSignature, http.StatusUnauthorized, "invalid or expired token"},
		{domain.ErrForbidden, http.StatusForbidden, "access forbidden"},
		{domain.ErrAccountNotFound, http.StatusNotFound, "account not found"},
		{domain.ErrUsernameTaken, http.StatusConflict, "username is already taken"},
		{domain.ErrEmailTaken, http.StatusConflict, "email is already in use"},
		{domain.ErrPasswordMismatch, http.StatusBadRequest, "new password and confirm password do not match"},
		{echo.NewHTTPError(http.StatusTooManyRequests, "too many requests"), http.StatusTooManyRequests, "too many requests"},
	}

	for _, tt := range tests {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

		NewHTTPErrorHandler(zerolog.Nop())(tt.err, c)

		if rec.Code != tt.code {
			t.Fatalf("%v: expected %d, got %d", tt.err, tt.code, rec.Code)
		}
		if want := `{"error":"` + tt.msg + `"}`; strings.TrimSpace(rec.Body.String()) != want {
			t.Fatalf("%v: expected body %s, got %s", tt.err, want, rec.Body.String())
		}
	}
}

func TestHTTPErrorHandler_HidesUnexpectedErrors(t *testing.T) {
	var logs bytes.Buffer
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/profile", nil), rec)

	NewHTTPErrorHandler(zerolog.New(&logs))(errors.New("mongo: connection refused"), c)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "mongo") {
		t.Fatalf("internal detail leaked: %s", rec.Body.String())
	}
	if !strings.Contains(logs.String(), "connection refused") {
		t.Fatalf("expected cause in logs, got %q", logs.String())
	}
}

func TestHTTPErrorHandler_KeepsInternalCauseOutOfBody(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token").SetInternal(domain.ErrTokenSignature)
	NewHTTPErrorHandler(zerolog.Nop())(err, c)

	if strings.Contains(rec.Body.String(), "signature") {
		t.Fatalf("cause leaked: %s", rec.Body.String())
	}
}
