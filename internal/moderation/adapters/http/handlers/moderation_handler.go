package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/motortribe/motortribe/internal/moderation/app/service"
	"github.com/motortribe/motortribe/internal/moderation/domain/model"
	"github.com/motortribe/motortribe/internal/platform/logger"
	"github.com/motortribe/motortribe/internal/platform/response"
)

// ModerationHandler exposes the report resolution endpoints
type ModerationHandler struct {
	service *service.ModerationService
	logger  logger.Logger
}

// NewModerationHandler creates a new moderation handler
func NewModerationHandler(service *service.ModerationService, logger logger.Logger) *ModerationHandler {
	return &ModerationHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts the moderation routes
func (h *ModerationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/moderation/reports/resolve", h.ResolveReport).Methods("POST")
	router.HandleFunc("/moderation/reports/next", h.NextPendingReport).Methods("GET")
}

type resolveReportRequest struct {
	Action       string `json:"action"`
	PostID       *int64 `json:"postId,omitempty"`
	CommentID    *int64 `json:"commentId,omitempty"`
	ActingUserID int64  `json:"actingUserId"`
}

// ResolveReport handles POST /moderation/reports/resolve
func (h *ModerationHandler) ResolveReport(w http.ResponseWriter, r *http.Request) {
	var req resolveReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.ActingUserID <= 0 {
		response.BadRequest(w, "actingUserId is required")
		return
	}

	target := model.Target{PostID: req.PostID, CommentID: req.CommentID}

	result, err := h.service.ResolveReport(r.Context(), req.Action, target, req.ActingUserID)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			response.BadRequest(w, err.Error())
			return
		}
		h.logger.Error("report resolution failed", "error", err)
		response.InternalError(w, "failed to resolve report")
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// NextPendingReport handles GET /moderation/reports/next
func (h *ModerationHandler) NextPendingReport(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.NextPendingReport(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch pending report", "error", err)
		response.InternalError(w, "failed to fetch pending report")
		return
	}
	if summary == nil {
		response.NotFound(w, "no pending reports")
		return
	}

	response.JSON(w, http.StatusOK, summary)
}
