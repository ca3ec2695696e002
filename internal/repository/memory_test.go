package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInspection(createdAt time.Time) *domain.Inspection {
	return &domain.Inspection{
		ID:                  uuid.New(),
		Source:              domain.SourceInternal,
		Type:                domain.TypeConstructionPermit,
		Status:              domain.StatusOpen,
		Address:             "Rua das Acácias, 120",
		Description:         "Obra sem placa de alvará.",
		CreatedAt:           createdAt,
		UpdatedAt:           createdAt,
		VerifiedInfractions: map[domain.InspectionType]bool{},
	}
}

func TestMemoryInsertAssignsSequentialProtocols(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	createdAt := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	first, err := store.Insert(ctx, newInspection(createdAt))
	require.NoError(t, err)
	second, err := store.Insert(ctx, newInspection(createdAt))
	require.NoError(t, err)

	assert.Equal(t, "2024-001", first.Protocol)
	assert.Equal(t, "2024-002", second.Protocol)
}

func TestMemorySeedAdvancesProtocolCounter(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	seeded := newInspection(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	seeded.Protocol = "2024-041"
	store.Seed([]domain.Inspection{*seeded})

	created, err := store.Insert(ctx, newInspection(time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, "2024-042", created.Protocol)
}

func TestMemoryListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	older, err := store.Insert(ctx, newInspection(base))
	require.NoError(t, err)
	newer, err := store.Insert(ctx, newInspection(base.Add(48*time.Hour)))
	require.NoError(t, err)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestMemoryGetReturnsDeepCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	stored, err := store.Insert(ctx, newInspection(time.Now()))
	require.NoError(t, err)

	got, err := store.Get(ctx, stored.ID)
	require.NoError(t, err)
	got.History = append(got.History, domain.HistoryEntry{Change: "mutated by caller"})
	got.VerifiedInfractions[domain.TypeElevators] = true

	again, err := store.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Empty(t, again.History)
	assert.Empty(t, again.VerifiedInfractions)
}

func TestMemoryGetNotFound(t *testing.T) {
	store := NewMemory()

	_, err := store.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestMemoryReplacePreservesProtocol(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	stored, err := store.Insert(ctx, newInspection(time.Now()))
	require.NoError(t, err)

	updated := stored.Clone()
	updated.Protocol = "9999-999"
	updated.Status = domain.StatusClosed
	require.NoError(t, store.Replace(ctx, updated))

	got, err := store.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Protocol, got.Protocol)
	assert.Equal(t, domain.StatusClosed, got.Status)
}

func TestMemoryReplaceNotFound(t *testing.T) {
	store := NewMemory()

	err := store.Replace(context.Background(), newInspection(time.Now()))
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestMemoryLatencyHonorsCancellation(t *testing.T) {
	store := NewMemory(WithLatency(5 * time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryUserLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	user := &domain.User{
		ID:       uuid.New(),
		Name:     "Ana Souza",
		Username: "ana.souza",
		Role:     domain.RoleInspector,
	}
	require.NoError(t, store.InsertUser(ctx, user))

	byName, err := store.GetUserByUsername(ctx, "ana.souza")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	session := &domain.Session{
		Token:     "deadbeef",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.InsertSession(ctx, session))

	require.NoError(t, store.DeleteUser(ctx, user.ID))

	_, err = store.GetUser(ctx, user.ID)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))

	// Sessions of a deleted user must not survive.
	_, err = store.GetSession(ctx, "deadbeef")
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}
