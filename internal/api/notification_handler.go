package api

import (
	"net/http"

	"github.com/edulite/backend/internal/domain"
	"github.com/edulite/backend/internal/middleware"
	"github.com/edulite/backend/pkg/response"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	service *domain.NotificationService
	logger  *zap.Logger
}

func NewNotificationHandler(service *domain.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger,
	}
}

func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication credentials were not provided.")
		return
	}
	limit, offset := limitOffset(r)

	notifs, err := h.service.GetNotifications(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.OK(w, notifs)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication credentials were not provided.")
		return
	}
	id, ok := uuidParam(r, "id")
	if !ok {
		response.NotFound(w)
		return
	}

	if err := h.service.MarkRead(r.Context(), userID, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Message(w, http.StatusOK, "Notification marked as read.")
}

type fcmTokenBody struct {
	FCMToken string `json:"fcm_token" validate:"required,max=4096"`
}

func (h *NotificationHandler) UpdateFCMToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication credentials were not provided.")
		return
	}

	var body fcmTokenBody
	if !decode(w, r, &body) {
		return
	}

	if err := h.service.UpdateFCMToken(r.Context(), userID, body.FCMToken); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Message(w, http.StatusOK, "Push token registered.")
}
