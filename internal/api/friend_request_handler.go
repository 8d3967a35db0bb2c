package api

import (
	"net/http"

	"github.com/edulite/backend/internal/domain"
	"github.com/edulite/backend/pkg/response"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FriendRequestHandler struct {
	service  *domain.FriendRequestService
	profiles domain.ProfileRepository
	logger   *zap.Logger
}

func NewFriendRequestHandler(service *domain.FriendRequestService, profiles domain.ProfileRepository, logger *zap.Logger) *FriendRequestHandler {
	return &FriendRequestHandler{
		service:  service,
		profiles: profiles,
		logger:   logger,
	}
}

type sendFriendRequestBody struct {
	ReceiverProfileID string  `json:"receiver_profile_id" validate:"required,uuid"`
	Message           *string `json:"message"`
}

// SendResponse is the body of a successful send
type SendResponse struct {
	Detail    string    `json:"detail"`
	RequestID uuid.UUID `json:"request_id"`
}

// Send handles POST /friend-requests/send
func (h *FriendRequestHandler) Send(w http.ResponseWriter, r *http.Request) {
	me := currentProfile(w, r, h.profiles, h.logger)
	if me == nil {
		return
	}

	var body sendFriendRequestBody
	if !decode(w, r, &body) {
		return
	}
	receiverID := uuid.MustParse(body.ReceiverProfileID)

	req, err := h.service.Send(r.Context(), me.ID, receiverID, body.Message)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("friend request sent",
		zap.String("request_id", req.ID.String()),
		zap.String("sender", me.ID.String()),
		zap.String("receiver", receiverID.String()),
	)
	response.Created(w, SendResponse{
		Detail:    "Friend request sent successfully.",
		RequestID: req.ID,
	})
}

// Accept handles POST /friend-requests/{id}/accept
func (h *FriendRequestHandler) Accept(w http.ResponseWriter, r *http.Request) {
	me := currentProfile(w, r, h.profiles, h.logger)
	if me == nil {
		return
	}
	id, ok := uuidParam(r, "id")
	if !ok {
		response.NotFound(w)
		return
	}

	if _, err := h.service.Accept(r.Context(), id, me.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Message(w, http.StatusOK, "Friend request accepted.")
}

// Decline handles POST /friend-requests/{id}/decline. The receiver declines,
// the sender cancels.
func (h *FriendRequestHandler) Decline(w http.ResponseWriter, r *http.Request) {
	me := currentProfile(w, r, h.profiles, h.logger)
	if me == nil {
		return
	}
	id, ok := uuidParam(r, "id")
	if !ok {
		response.NotFound(w)
		return
	}

	role, err := h.service.Decline(r.Context(), id, me.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if role == domain.RoleSender {
		response.Message(w, http.StatusOK, "Friend request canceled successfully.")
		return
	}
	response.Message(w, http.StatusOK, "Friend request declined successfully.")
}

// Pending handles GET /friend-requests/pending
func (h *FriendRequestHandler) Pending(w http.ResponseWriter, r *http.Request) {
	me := currentProfile(w, r, h.profiles, h.logger)
	if me == nil {
		return
	}
	limit, offset := limitOffset(r)

	pending, err := h.service.GetPending(r.Context(), me.ID, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.OK(w, pending)
}
