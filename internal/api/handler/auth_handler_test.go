package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/nearhelp/sos-engine/internal/core/domain"
	"github.com/nearhelp/sos-engine/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (string, *domain.User, error)
	loginFn    func(ctx context.Context, email, password string) (string, *domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (string, *domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, email, password)
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (string, *domain.User, error) {
			if in.Name != "Asha" || in.Email != "asha@example.com" || len(in.Skills) != 1 || in.Skills[0] != "CPR" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return "tok", &domain.User{ID: "u1", Name: in.Name, Role: domain.RoleUser, TrustScore: 100}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newTestContext(http.MethodPost, "/auth/register",
		`{"name":"Asha","email":"asha@example.com","password":"secret1","skills":["CPR"]}`, "")
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "tok" {
		t.Fatalf("expected token, got %v", resp["token"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["id"] != "u1" || user["role"] != "user" {
		t.Fatalf("unexpected user payload: %+v", resp["user"])
	}
	if _, leaked := user["PasswordHash"]; leaked {
		t.Fatal("password hash must not be serialised")
	}
}

func TestAuthHandler_Register_UserExists(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (string, *domain.User, error) {
			return "", nil, domain.ErrUserExists
		},
	}
	c, _ := newTestContext(http.MethodPost, "/auth/register",
		`{"name":"Bob","email":"bob@example.com","password":"secret1"}`, "")

	err := NewAuthHandler(stub).Register(c)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (string, *domain.User, error) {
			t.Fatalf("should not be called")
			return "", nil, nil
		},
	}
	h := NewAuthHandler(stub)

	c, _ := newTestContext(http.MethodPost, "/auth/register", "not-json", "")
	if code := httpCode(h.Register(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}

	c, _ = newTestContext(http.MethodPost, "/auth/register", `{"name":"Bob","email":"bob@example.com","password":"123"}`, "")
	if code := httpCode(h.Register(c)); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a short password, got %d", code)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (string, *domain.User, error) {
			if email != "alice@example.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return "token123", &domain.User{ID: "a", Name: "Alice", Role: domain.RoleAdmin}, nil
		},
	}
	c, rec := newTestContext(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"secret"}`, "")

	if err := NewAuthHandler(stub).Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token123" {
		t.Fatalf("expected token, got %v", resp["token"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["name"] != "Alice" || user["role"] != "admin" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
}

func TestAuthHandler_Login_Errors(t *testing.T) {
	for _, want := range []error{domain.ErrInvalidCredentials, domain.ErrAccountSuspended} {
		stub := &stubAuthService{
			loginFn: func(ctx context.Context, email, password string) (string, *domain.User, error) {
				return "", nil, want
			},
		}
		c, _ := newTestContext(http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"bad"}`, "")
		if err := NewAuthHandler(stub).Login(c); !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (string, *domain.User, error) {
			t.Fatalf("should not be called")
			return "", nil, nil
		},
	}
	c, _ := newTestContext(http.MethodPost, "/auth/login", "{", "")

	if code := httpCode(NewAuthHandler(stub).Login(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}
