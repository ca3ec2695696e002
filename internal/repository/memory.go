package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/google/uuid"
)

// =============================================================================
// In-Memory Store
// =============================================================================

// Memory is the in-memory implementation of both repositories. It simulates
// the remote backend: an optional fixed latency is applied to every call,
// and all reads return deep copies.
//
// Map access is serialized with a mutex. Two racing updates to the same
// record still resolve last-write-wins; per-record serialization is an
// accepted limitation of the design.
type Memory struct {
	mu          sync.Mutex
	latency     time.Duration
	inspections map[uuid.UUID]*domain.Inspection
	users       map[uuid.UUID]*domain.User
	sessions    map[string]*domain.Session
	protocolSeq int
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithLatency makes every operation wait the given duration before running,
// simulating network round-trips to a real backend.
func WithLatency(d time.Duration) MemoryOption {
	return func(m *Memory) { m.latency = d }
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		inspections: make(map[uuid.UUID]*domain.Inspection),
		users:       make(map[uuid.UUID]*domain.User),
		sessions:    make(map[string]*domain.Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// wait applies the configured latency, honoring context cancellation.
func (m *Memory) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(m.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =============================================================================
// InspectionRepository
// =============================================================================

// List returns deep copies of all cases, newest first.
func (m *Memory) List(ctx context.Context) ([]domain.Inspection, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Inspection, 0, len(m.inspections))
	for _, insp := range m.inspections {
		out = append(out, *insp.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Get returns a deep copy of one case.
func (m *Memory) Get(ctx context.Context, id uuid.UUID) (*domain.Inspection, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	insp, ok := m.inspections[id]
	if !ok {
		return nil, domain.NotFound("inspection.get", "inspection", id.String())
	}
	return insp.Clone(), nil
}

// Insert stores a new case and assigns its protocol from the monotonic
// sequence. The counter never reuses a number, so protocols stay unique
// even across concurrent creations.
func (m *Memory) Insert(ctx context.Context, insp *domain.Inspection) (*domain.Inspection, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.protocolSeq++
	stored := insp.Clone()
	stored.Protocol = fmt.Sprintf("%d-%03d", insp.CreatedAt.Year(), m.protocolSeq)
	m.inspections[stored.ID] = stored
	return stored.Clone(), nil
}

// Replace overwrites the stored case with the same id. The protocol of the
// stored record is preserved: it is assigned once and never changes.
func (m *Memory) Replace(ctx context.Context, insp *domain.Inspection) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.inspections[insp.ID]
	if !ok {
		return domain.NotFound("inspection.replace", "inspection", insp.ID.String())
	}
	stored := insp.Clone()
	stored.Protocol = existing.Protocol
	m.inspections[insp.ID] = stored
	return nil
}

// Seed loads pre-existing cases without latency, re-seeding the protocol
// counter past the highest sequence found. Used at startup and in tests.
func (m *Memory) Seed(inspections []domain.Inspection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range inspections {
		insp := inspections[i].Clone()
		m.inspections[insp.ID] = insp
		if seq := protocolSequence(insp.Protocol); seq > m.protocolSeq {
			m.protocolSeq = seq
		}
	}
}

// protocolSequence extracts the numeric suffix of a "{year}-{seq}" protocol.
func protocolSequence(protocol string) int {
	_, suffix, ok := strings.Cut(protocol, "-")
	if !ok {
		return 0
	}
	seq, err := strconv.Atoi(suffix)
	if err != nil {
		return 0
	}
	return seq
}

// =============================================================================
// UserRepository
// =============================================================================

// ListUsers returns copies of all accounts.
func (m *Memory) ListUsers(ctx context.Context) ([]domain.User, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetUser returns one account by id.
func (m *Memory) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, domain.NotFound("user.get", "user", id.String())
	}
	copied := *u
	return &copied, nil
}

// GetUserByUsername returns one account by its login name.
func (m *Memory) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.NotFound("user.get_by_username", "user", username)
}

// InsertUser stores a new account.
func (m *Memory) InsertUser(ctx context.Context, user *domain.User) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *user
	m.users[user.ID] = &copied
	return nil
}

// UpdateUser overwrites an existing account.
func (m *Memory) UpdateUser(ctx context.Context, user *domain.User) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return domain.NotFound("user.update", "user", user.ID.String())
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

// DeleteUser removes an account. Sessions of the deleted user are dropped.
func (m *Memory) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return domain.NotFound("user.delete", "user", id.String())
	}
	delete(m.users, id)
	for token, s := range m.sessions {
		if s.UserID == id {
			delete(m.sessions, token)
		}
	}
	return nil
}

// InsertSession stores a login session.
func (m *Memory) InsertSession(ctx context.Context, s *domain.Session) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *s
	m.sessions[s.Token] = &copied
	return nil
}

// GetSession looks a session up by token.
func (m *Memory) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return nil, domain.NotFound("session.get", "session", token)
	}
	copied := *s
	return &copied, nil
}

// DeleteSession removes a session. Idempotent.
func (m *Memory) DeleteSession(ctx context.Context, token string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, token)
	return nil
}
