package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUserService(t *testing.T) UserService {
	t.Helper()
	return NewUserService(repository.NewMemory(), slog.New(slog.DiscardHandler))
}

func createTestUser(t *testing.T, svc UserService) *domain.User {
	t.Helper()
	user, err := svc.CreateUser(context.Background(), domain.CreateUserParams{
		Name:     "Ana Souza",
		Username: "ana.souza",
		Password: "senha-segura",
		Role:     domain.RoleInspector,
	})
	require.NoError(t, err)
	return user
}

// =============================================================================
// CreateUser
// =============================================================================

func TestCreateUser(t *testing.T) {
	svc := newTestUserService(t)

	user := createTestUser(t, svc)
	assert.Equal(t, "ana.souza", user.Username)
	assert.Equal(t, domain.RoleInspector, user.Role)
	assert.Empty(t, user.PasswordHash)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	svc := newTestUserService(t)
	createTestUser(t, svc)

	_, err := svc.CreateUser(context.Background(), domain.CreateUserParams{
		Name:     "Outra Ana",
		Username: "ANA.SOUZA", // usernames are case-insensitive
		Password: "outra-senha",
		Role:     domain.RoleAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
}

func TestCreateUserValidation(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		params domain.CreateUserParams
	}{
		{"missing name", domain.CreateUserParams{Username: "x", Password: "senha-segura", Role: domain.RoleAdmin}},
		{"missing username", domain.CreateUserParams{Name: "X", Password: "senha-segura", Role: domain.RoleAdmin}},
		{"short password", domain.CreateUserParams{Name: "X", Username: "x", Password: "curta", Role: domain.RoleAdmin}},
		{"invalid role", domain.CreateUserParams{Name: "X", Username: "x", Password: "senha-segura", Role: "Estagiário"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, tt.params)
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		})
	}
}

// =============================================================================
// Login / Sessions
// =============================================================================

func TestLoginAndSessionRoundTrip(t *testing.T) {
	svc := newTestUserService(t)
	created := createTestUser(t, svc)
	ctx := context.Background()

	result, err := svc.Login(ctx, "Ana.Souza", "senha-segura")
	require.NoError(t, err)
	assert.Equal(t, created.ID, result.User.ID)
	assert.Len(t, result.Token, 64)
	assert.Empty(t, result.User.PasswordHash)

	user, err := svc.GetBySessionToken(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestUserService(t)
	createTestUser(t, svc)

	_, err := svc.Login(context.Background(), "ana.souza", "senha-errada")
	require.Error(t, err)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newTestUserService(t)

	_, err := svc.Login(context.Background(), "ninguem", "senha-segura")
	require.Error(t, err)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc := newTestUserService(t)
	createTestUser(t, svc)
	ctx := context.Background()

	result, err := svc.Login(ctx, "ana.souza", "senha-segura")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.Token))

	_, err = svc.GetBySessionToken(ctx, result.Token)
	require.Error(t, err)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc := newTestUserService(t)
	assert.NoError(t, svc.Logout(context.Background(), "not-a-token"))
}

func TestGetBySessionTokenRejectsGarbage(t *testing.T) {
	svc := newTestUserService(t)

	_, err := svc.GetBySessionToken(context.Background(), "short")
	require.Error(t, err)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

// =============================================================================
// Update / Delete
// =============================================================================

func TestUpdateUserChangesPassword(t *testing.T) {
	svc := newTestUserService(t)
	created := createTestUser(t, svc)
	ctx := context.Background()

	newPassword := "nova-senha-forte"
	_, err := svc.UpdateUser(ctx, created.ID, domain.UpdateUserParams{Password: &newPassword})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ana.souza", "senha-segura")
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))

	_, err = svc.Login(ctx, "ana.souza", newPassword)
	assert.NoError(t, err)
}

func TestUpdateUserDuplicateUsername(t *testing.T) {
	svc := newTestUserService(t)
	createTestUser(t, svc)
	ctx := context.Background()

	other, err := svc.CreateUser(ctx, domain.CreateUserParams{
		Name:     "Carlos Lima",
		Username: "carlos.lima",
		Password: "senha-segura",
		Role:     domain.RoleAdmin,
	})
	require.NoError(t, err)

	taken := "ana.souza"
	_, err = svc.UpdateUser(ctx, other.ID, domain.UpdateUserParams{Username: &taken})
	require.Error(t, err)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
}

func TestDeleteUser(t *testing.T) {
	svc := newTestUserService(t)
	created := createTestUser(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.DeleteUser(ctx, created.ID))

	_, err := svc.GetByID(ctx, created.ID)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))

	err = svc.DeleteUser(ctx, uuid.New())
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}
