// Package repository provides the persistence boundary for the application.
//
// Domain logic (history synthesis, lifecycle rules) lives in the service
// layer and never depends on which backing store is used. The primary store
// is the in-memory implementation in memory.go, which stands in for the
// real backend; postgres.go holds the partial external-database integration.
package repository

import (
	"context"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/google/uuid"
)

// InspectionRepository stores inspection cases.
//
// List and Get return deep copies: callers may mutate the result freely
// without observing or affecting store internals. There is no delete;
// inspection records are never removed.
type InspectionRepository interface {
	// List returns all cases sorted descending by creation time.
	List(ctx context.Context) ([]domain.Inspection, error)

	// Get returns the case with the given id, or domain.ENOTFOUND.
	Get(ctx context.Context, id uuid.UUID) (*domain.Inspection, error)

	// Insert stores a new case. The caller assigns everything except the
	// protocol, which the store derives from its monotonic sequence.
	Insert(ctx context.Context, insp *domain.Inspection) (*domain.Inspection, error)

	// Replace overwrites the stored case with the same id.
	// Returns domain.ENOTFOUND if the id is unknown.
	Replace(ctx context.Context, insp *domain.Inspection) error
}

// UserRepository stores accounts and their login sessions.
type UserRepository interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	InsertUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error

	InsertSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	DeleteSession(ctx context.Context, token string) error
}
