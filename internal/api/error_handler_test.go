package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nearhelp/sos-engine/internal/core/domain"
)

func TestHTTPErrorHandler_MapsTaxonomy(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.ErrInvalidRadius, http.StatusUnprocessableEntity},
		{"not found", domain.ErrIncidentNotFound, http.StatusNotFound},
		{"conflict", fmt.Errorf("respond: %w", domain.ErrAlreadyResponding), http.StatusConflict},
		{"forbidden", domain.ErrNotTriggerer, http.StatusForbidden},
		{"unavailable", domain.Unavailable("find incident", errors.New("timeout")), http.StatusServiceUnavailable},
		{"deadline", fmt.Errorf("nearby: %w", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	h := NewHTTPErrorHandler(zerolog.Nop())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			h(tc.err, c)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
				t.Fatalf("expected error envelope, got %q", rec.Body.String())
			}
		})
	}
}

func TestHTTPErrorHandler_HidesInternalDetail(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(domain.Unavailable("find incident", errors.New("mongo at 10.0.0.3 refused")), c)

	var body errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "service temporarily unavailable" {
		t.Fatalf("internal detail leaked: %q", body.Error)
	}
}
