package handler

import (
	"log/slog"
	"net/http"

	"github.com/fiscaliza-obras/fiscaliza/internal/auth"
	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
	"github.com/fiscaliza-obras/fiscaliza/internal/service"
)

// =============================================================================
// User Handler
// =============================================================================

// UserHandler handles account management requests. All routes are
// admin-only.
//
// Routes handled:
//   - GET    /api/users
//   - POST   /api/users
//   - PUT    /api/users/{id}
//   - DELETE /api/users/{id}
type UserHandler struct {
	userService service.UserService
	logger      *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers the user routes with the provided mux.
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /api/users", requireAdmin(http.HandlerFunc(h.Index)))
	mux.Handle("POST /api/users", requireAdmin(http.HandlerFunc(h.Create)))
	mux.Handle("PUT /api/users/{id}", requireAdmin(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/users/{id}", requireAdmin(http.HandlerFunc(h.Delete)))
}

// =============================================================================
// GET /api/users
// =============================================================================

// Index returns all user accounts.
func (h *UserHandler) Index(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, users)
}

// =============================================================================
// POST /api/users
// =============================================================================

type createUserRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Create registers a new user account.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.userService.CreateUser(r.Context(), domain.CreateUserParams{
		Name:     req.Name,
		Username: req.Username,
		Password: req.Password,
		Role:     domain.UserRole(req.Role),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("user created", "user_id", user.ID, "username", user.Username, "role", user.Role)
	respondJSON(w, h.logger, http.StatusCreated, user)
}

// =============================================================================
// PUT /api/users/{id}
// =============================================================================

type updateUserRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

// Update applies the editable account fields. Absent fields are left
// unchanged.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	params := domain.UpdateUserParams{
		Name:     req.Name,
		Username: req.Username,
		Password: req.Password,
	}
	if req.Role != nil {
		role := domain.UserRole(*req.Role)
		params.Role = &role
	}

	user, err := h.userService.UpdateUser(r.Context(), id, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, user)
}

// =============================================================================
// DELETE /api/users/{id}
// =============================================================================

// Delete removes a user account. Admins cannot delete their own account,
// which keeps the system from losing its last administrator mid-session.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if current := auth.GetUser(r.Context()); current != nil && current.ID == id {
		ErrorResponse(w, r, h.logger,
			domain.Invalid("handler.deleteUser", "Não é possível excluir a própria conta."))
		return
	}

	if err := h.userService.DeleteUser(r.Context(), id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("user deleted", "user_id", id)
	w.WriteHeader(http.StatusNoContent)
}
