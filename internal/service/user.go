// Package service contains the business logic layer.
//
// Services orchestrate repositories, external providers, and domain logic.
// They own input validation, business rules, and error translation.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/metrics"
	"github.com/fiscaliza-obras/fiscaliza/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for password hashing. Not configurable
	// at runtime so it cannot be weakened by deployment mistakes.
	BcryptCost = 12

	// SessionTokenBytes is the entropy of session tokens. 32 bytes hex-encode
	// to 64 characters.
	SessionTokenBytes = 32

	// SessionDuration is how long a login stays valid.
	SessionDuration = 7 * 24 * time.Hour

	// MinPasswordLength follows NIST SP 800-63B.
	MinPasswordLength = 8

	// MaxPasswordLength stays under the 72-byte bcrypt input limit.
	MaxPasswordLength = 72
)

// =============================================================================
// Interface Definition
// =============================================================================

// UserService defines account and session operations.
type UserService interface {
	// Login authenticates by username and password, creating a session.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, username, password string) (*domain.LoginResult, error)

	// Logout invalidates a session by its raw token. Idempotent.
	Logout(ctx context.Context, token string) error

	// GetBySessionToken resolves a raw session token to its user.
	// Returns domain.EUNAUTHORIZED if the token is unknown or expired.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// ListUsers retrieves all accounts.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// GetByID retrieves an account.
	// Returns domain.ENOTFOUND if the account does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// CreateUser registers an account.
	// Returns domain.ECONFLICT if the username is taken.
	CreateUser(ctx context.Context, params domain.CreateUserParams) (*domain.User, error)

	// UpdateUser merges the given changes into an account.
	// Returns domain.ENOTFOUND if the account does not exist.
	UpdateUser(ctx context.Context, id uuid.UUID, params domain.UpdateUserParams) (*domain.User, error)

	// DeleteUser removes an account and its sessions.
	// Returns domain.ENOTFOUND if the account does not exist.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

type userService struct {
	repo   repository.UserRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(repo repository.UserRepository, logger *slog.Logger) UserService {
	return &userService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// =============================================================================
// Login / Logout / Sessions
// =============================================================================

// dummyHash keeps login timing constant when the username is unknown.
var dummyHash = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")

// Login authenticates a user and creates a session.
//
// The raw token is returned once; only its SHA-256 hash is stored, so a
// leaked session table cannot be replayed.
func (s *userService) Login(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	const op = "user.login"

	username = strings.ToLower(strings.TrimSpace(username))

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			return nil, domain.Unauthorized(op, "Usuário ou senha inválidos.")
		}
		return nil, domain.Internal(err, op, "falha ao buscar usuário")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, domain.Unauthorized(op, "Usuário ou senha inválidos.")
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "falha ao gerar sessão")
	}

	session := &domain.Session{
		Token:     hashSessionToken(token),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(SessionDuration),
	}
	if err := s.repo.InsertSession(ctx, session); err != nil {
		return nil, domain.Internal(err, op, "falha ao criar sessão")
	}

	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)
	metrics.LoginAttempts.WithLabelValues("success").Inc()

	user.PasswordHash = ""
	return &domain.LoginResult{User: user, Token: token}, nil
}

// Logout invalidates a session. Idempotent.
func (s *userService) Logout(ctx context.Context, token string) error {
	if len(token) != SessionTokenBytes*2 {
		return nil
	}
	if err := s.repo.DeleteSession(ctx, hashSessionToken(token)); err != nil {
		s.logger.Warn("failed to delete session", "error", err)
	}
	return nil
}

// GetBySessionToken resolves a raw session token to its user. Expired
// sessions are purged on sight.
func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "user.session"

	if len(token) != SessionTokenBytes*2 {
		return nil, domain.Unauthorized(op, "Sessão inválida ou expirada.")
	}

	hashed := hashSessionToken(token)
	session, err := s.repo.GetSession(ctx, hashed)
	if err != nil {
		return nil, domain.Unauthorized(op, "Sessão inválida ou expirada.")
	}
	if session.Expired(s.now()) {
		_ = s.repo.DeleteSession(ctx, hashed)
		return nil, domain.Unauthorized(op, "Sessão inválida ou expirada.")
	}

	user, err := s.repo.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, domain.Unauthorized(op, "Sessão inválida ou expirada.")
	}

	user.PasswordHash = ""
	return user, nil
}

// =============================================================================
// Account Management
// =============================================================================

// ListUsers retrieves all accounts.
func (s *userService) ListUsers(ctx context.Context) ([]domain.User, error) {
	const op = "user.list"

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "falha ao listar usuários")
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

// GetByID retrieves an account.
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "user.get"

	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return nil, err
		}
		return nil, domain.Internal(err, op, "falha ao buscar usuário")
	}
	user.PasswordHash = ""
	return user, nil
}

// CreateUser registers an account.
func (s *userService) CreateUser(ctx context.Context, params domain.CreateUserParams) (*domain.User, error) {
	const op = "user.create"

	params.Name = strings.TrimSpace(params.Name)
	params.Username = strings.ToLower(strings.TrimSpace(params.Username))

	if params.Name == "" {
		return nil, domain.Invalid(op, "o nome é obrigatório")
	}
	if params.Username == "" {
		return nil, domain.Invalid(op, "o nome de usuário é obrigatório")
	}
	if !params.Role.IsValid() {
		return nil, domain.Invalid(op, "perfil de acesso inválido")
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetUserByUsername(ctx, params.Username); err == nil {
		return nil, domain.Conflict(op, "Este nome de usuário já está em uso.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "falha ao proteger a senha")
	}

	user := &domain.User{
		ID:           uuid.New(),
		Name:         params.Name,
		Username:     params.Username,
		Role:         params.Role,
		PasswordHash: string(hash),
	}
	if err := s.repo.InsertUser(ctx, user); err != nil {
		return nil, domain.Internal(err, op, "falha ao criar usuário")
	}

	s.logger.Info("user created", "user_id", user.ID, "username", user.Username, "role", user.Role)

	out := *user
	out.PasswordHash = ""
	return &out, nil
}

// UpdateUser merges changes into an account. A nil password leaves the
// current one in place.
func (s *userService) UpdateUser(ctx context.Context, id uuid.UUID, params domain.UpdateUserParams) (*domain.User, error) {
	const op = "user.update"

	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, domain.Invalid(op, "o nome é obrigatório")
		}
		user.Name = name
	}
	if params.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*params.Username))
		if username == "" {
			return nil, domain.Invalid(op, "o nome de usuário é obrigatório")
		}
		if username != user.Username {
			if existing, err := s.repo.GetUserByUsername(ctx, username); err == nil && existing.ID != id {
				return nil, domain.Conflict(op, "Este nome de usuário já está em uso.")
			}
			user.Username = username
		}
	}
	if params.Role != nil {
		if !params.Role.IsValid() {
			return nil, domain.Invalid(op, "perfil de acesso inválido")
		}
		user.Role = *params.Role
	}
	if params.Password != nil {
		if err := validatePassword(*params.Password); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*params.Password), BcryptCost)
		if err != nil {
			return nil, domain.Internal(err, op, "falha ao proteger a senha")
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, domain.Internal(err, op, "falha ao atualizar usuário")
	}

	s.logger.Info("user updated", "user_id", id)

	user.PasswordHash = ""
	return user, nil
}

// DeleteUser removes an account and its sessions.
func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	const op = "user.delete"

	if err := s.repo.DeleteUser(ctx, id); err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return err
		}
		return domain.Internal(err, op, "falha ao remover usuário")
	}

	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// generateSessionToken returns 32 random bytes hex-encoded.
func generateSessionToken() (string, error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashSessionToken hashes a raw token for storage. SHA-256 is enough here
// since tokens are high-entropy random values, unlike passwords.
func hashSessionToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func validatePassword(password string) error {
	const op = "user.validate"

	if len(password) < MinPasswordLength {
		return domain.Invalid(op, "a senha deve ter pelo menos 8 caracteres")
	}
	if len(password) > MaxPasswordLength {
		return domain.Invalid(op, "a senha deve ter no máximo 72 caracteres")
	}
	return nil
}

// compile-time interface checks
var (
	_ UserService       = (*userService)(nil)
	_ InspectionService = (*inspectionService)(nil)
	_ SummaryService    = (*summaryService)(nil)
)
