package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/upb/people-service/internal/observability"
	"github.com/upb/people-service/models"
	"github.com/upb/people-service/services"
	"github.com/upb/people-service/utils"
	"go.uber.org/zap"
)

// PeopleService defines the directory-backed operations exposed over HTTP
type PeopleService interface {
	// ListJuryMembers returns the members of the jury group as {id, name}
	ListJuryMembers(ctx context.Context) ([]models.UserBasic, error)

	// GetUser returns the full record of one user
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// BulkGetUsers returns records in input order, failing on the first error
	BulkGetUsers(ctx context.Context, userIDs []string) ([]models.User, error)
}

// PeopleHandler handles people-related HTTP requests
type PeopleHandler struct {
	service PeopleService
	logger  *zap.Logger
}

// NewPeopleHandler creates a new PeopleHandler
func NewPeopleHandler(service PeopleService, logger *zap.Logger) *PeopleHandler {
	return &PeopleHandler{
		service: service,
		logger:  logger,
	}
}

// HandleListJuryMembers handles GET /people/jury-members
// The route is gated by RequireAuth and RequireGroup(proposers).
func (h *PeopleHandler) HandleListJuryMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListJuryMembers(r.Context())
	if err != nil {
		observability.FromContext(r.Context(), h.logger).Warn("failed to list jury members", zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, members); err != nil {
		h.logger.Error("failed to write jury members response", zap.Error(err))
	}
}

// HandleGetUser handles GET /people/internal/users/{user_id}
func (h *PeopleHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "user_id"))
	if userID == "" {
		HandleServiceError(w, services.NewValidationError("user_id is required", nil), h.logger)
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, user); err != nil {
		h.logger.Error("failed to write user response", zap.Error(err))
	}
}

// HandleBulkGetUsers handles POST /people/internal/users/bulk
func (h *PeopleHandler) HandleBulkGetUsers(w http.ResponseWriter, r *http.Request) {
	var req models.BulkUsersRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	users, err := h.service.BulkGetUsers(r.Context(), req.UserIDs)
	if err != nil {
		observability.FromContext(r.Context(), h.logger).Warn("bulk user fetch failed",
			zap.Int("requested", len(req.UserIDs)),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, users); err != nil {
		h.logger.Error("failed to write bulk users response", zap.Error(err))
	}
}
