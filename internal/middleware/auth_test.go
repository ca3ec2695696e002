package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
)

// =============================================================================
// Mock UserService Implementation
// =============================================================================

// mockUserService implements the service.UserService interface for testing.
type mockUserService struct {
	GetBySessionTokenFunc func(ctx context.Context, token string) (*domain.User, error)
}

func (m *mockUserService) Login(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Logout(ctx context.Context, token string) error {
	return nil
}

func (m *mockUserService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	if m.GetBySessionTokenFunc != nil {
		return m.GetBySessionTokenFunc(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) CreateUser(ctx context.Context, params domain.CreateUserParams) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) UpdateUser(ctx context.Context, id uuid.UUID, params domain.UpdateUserParams) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return errors.New("not implemented")
}

// =============================================================================
// Test Helpers
// =============================================================================

func newTestLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestAuthMiddleware(mock *mockUserService) *AuthMiddleware {
	return NewAuthMiddleware(mock, newTestLogger(), false)
}

// =============================================================================
// WithUser Middleware Tests
// =============================================================================

func TestWithUser_NoToken_ContinuesWithoutUser(t *testing.T) {
	mw := newTestAuthMiddleware(&mockUserService{})

	handlerCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		if user := GetUser(r.Context()); user != nil {
			t.Errorf("expected nil user, got %+v", user)
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/inspections", nil)
	rec := httptest.NewRecorder()

	mw.WithUser(next).ServeHTTP(rec, req)

	if !handlerCalled {
		t.Error("handler was not called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestWithUser_ValidCookie_SetsUserInContext(t *testing.T) {
	expectedUser := &domain.User{
		ID:       uuid.New(),
		Name:     "Carlos Mendes",
		Username: "carlos.mendes",
		Role:     domain.RoleInspector,
	}

	mock := &mockUserService{
		GetBySessionTokenFunc: func(ctx context.Context, token string) (*domain.User, error) {
			if token != "valid-token-123" {
				t.Errorf("GetBySessionToken called with token = %q, want %q", token, "valid-token-123")
			}
			return expectedUser, nil
		},
	}
	mw := newTestAuthMiddleware(mock)

	var capturedUser *domain.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUser = GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/inspections", nil)
	req.AddCookie(&http.Cookie{
		Name:  SessionCookieName,
		Value: "valid-token-123",
	})
	rec := httptest.NewRecorder()

	mw.WithUser(next).ServeHTTP(rec, req)

	if capturedUser == nil {
		t.Fatal("user not set in context")
	}
	if capturedUser.ID != expectedUser.ID {
		t.Errorf("user.ID = %v, want %v", capturedUser.ID, expectedUser.ID)
	}
}

func TestWithUser_BearerToken_SetsUserInContext(t *testing.T) {
	expectedUser := &domain.User{ID: uuid.New(), Username: "ana.souza", Role: domain.RoleAdmin}

	mock := &mockUserService{
		GetBySessionTokenFunc: func(ctx context.Context, token string) (*domain.User, error) {
			if token != "bearer-token-456" {
				t.Errorf("GetBySessionToken called with token = %q, want %q", token, "bearer-token-456")
			}
			return expectedUser, nil
		},
	}
	mw := newTestAuthMiddleware(mock)

	var capturedUser *domain.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUser = GetUser(r.Context())
	})

	req := httptest.NewRequest("GET", "/api/inspections", nil)
	req.Header.Set("Authorization", "Bearer bearer-token-456")
	rec := httptest.NewRecorder()

	mw.WithUser(next).ServeHTTP(rec, req)

	if capturedUser == nil || capturedUser.ID != expectedUser.ID {
		t.Fatalf("user not resolved from bearer token: %+v", capturedUser)
	}
}

func TestWithUser_InvalidCookie_ClearsAndContinues(t *testing.T) {
	mock := &mockUserService{
		GetBySessionTokenFunc: func(ctx context.Context, token string) (*domain.User, error) {
			return nil, domain.Unauthorized("test", "invalid session")
		},
	}
	mw := newTestAuthMiddleware(mock)

	handlerCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		if user := GetUser(r.Context()); user != nil {
			t.Errorf("expected nil user, got %+v", user)
		}
	})

	req := httptest.NewRequest("GET", "/api/inspections", nil)
	req.AddCookie(&http.Cookie{
		Name:  SessionCookieName,
		Value: "stale-token",
	})
	rec := httptest.NewRecorder()

	mw.WithUser(next).ServeHTTP(rec, req)

	if !handlerCalled {
		t.Error("handler was not called")
	}

	// The stale cookie must be cleared.
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("stale session cookie was not cleared")
	}
}

// =============================================================================
// RequireUser / RequireAdmin Tests
// =============================================================================

func TestRequireUser_Unauthenticated_Returns401(t *testing.T) {
	mw := newTestAuthMiddleware(&mockUserService{})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	req := httptest.NewRequest("GET", "/api/inspections", nil)
	rec := httptest.NewRecorder()

	Stack(mw.WithUser, mw.RequireUser)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAdmin_Inspector_Returns403(t *testing.T) {
	mock := &mockUserService{
		GetBySessionTokenFunc: func(ctx context.Context, token string) (*domain.User, error) {
			return &domain.User{ID: uuid.New(), Role: domain.RoleInspector}, nil
		},
	}
	mw := newTestAuthMiddleware(mock)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	req := httptest.NewRequest("GET", "/api/users", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()

	Stack(mw.WithUser, mw.RequireUser, mw.RequireAdmin)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRequireAdmin_Admin_Passes(t *testing.T) {
	mock := &mockUserService{
		GetBySessionTokenFunc: func(ctx context.Context, token string) (*domain.User, error) {
			return &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}, nil
		},
	}
	mw := newTestAuthMiddleware(mock)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/users", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()

	Stack(mw.WithUser, mw.RequireUser, mw.RequireAdmin)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusOK)
	}
}
