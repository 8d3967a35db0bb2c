package api

import (
	"net/http"
	"strconv"

	"github.com/edulite/backend/internal/domain"
	"github.com/edulite/backend/internal/middleware"
	"github.com/edulite/backend/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChatHandler struct {
	chatService *domain.ChatService
	wsManager   *WebSocketManager
	logger      *zap.Logger
}

func NewChatHandler(chatService *domain.ChatService, wsManager *WebSocketManager, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		wsManager:   wsManager,
		logger:      logger,
	}
}

// HandleWebSocket upgrades the connection and streams the caller's events
func (h *ChatHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication credentials were not provided.")
		return
	}

	if err := h.wsManager.Serve(w, r, userID); err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
	}
}

type createRoomBody struct {
	Name         string   `json:"name" validate:"max=255"`
	RoomType     string   `json:"room_type" validate:"required,oneof=ONE_TO_ONE GROUP COURSE"`
	Participants []string `json:"participants" validate:"dive,uuid"`
}

// CreateRoom handles POST /chat/rooms
func (h *ChatHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication credentials were not provided.")
		return
	}

	var body createRoomBody
	if !decode(w, r, &body) {
		return
	}
	participants := make([]uuid.UUID, 0, len(body.Participants))
	for _, p := range body.Participants {
		participants = append(participants, uuid.MustParse(p))
	}

	room, err := h.chatService.CreateRoom(r.Context(), userID, body.Name, domain.RoomType(body.RoomType), participants)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Created(w, room)
}

// GetRooms handles GET /chat/rooms
func (h *ChatHandler) GetRooms(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication credentials were not provided.")
		return
	}

	rooms, err := h.chatService.GetUserRooms(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.OK(w, rooms)
}

// GetRoom handles GET /chat/rooms/{roomID}
func (h *ChatHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication credentials were not provided.")
		return
	}
	roomID, ok := uuidParam(r, "roomID")
	if !ok {
		response.NotFound(w)
		return
	}

	room, err := h.chatService.GetRoom(r.Context(), roomID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.OK(w, room)
}

// GetMessages handles GET /chat/rooms/{roomID}/messages?cursor=&page_size=
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication credentials were not provided.")
		return
	}
	roomID, ok := uuidParam(r, "roomID")
	if !ok {
		response.NotFound(w)
		return
	}

	q := r.URL.Query()
	page, err := h.chatService.List(r.Context(), roomID, userID, q.Get("cursor"), intQuery(r, "page_size", 0))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.OK(w, page)
}

type createMessageBody struct {
	Content *string `json:"content" validate:"required"`
	IsRead  bool    `json:"is_read"`
}

// SendMessage handles POST /chat/rooms/{roomID}/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication credentials were not provided.")
		return
	}
	roomID, ok := uuidParam(r, "roomID")
	if !ok {
		response.NotFound(w)
		return
	}

	var body createMessageBody
	if !decode(w, r, &body) {
		return
	}

	msg, err := h.chatService.Create(r.Context(), roomID, userID, *body.Content, body.IsRead)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Created(w, msg)
}

type updateMessageBody struct {
	Content *string `json:"content"`
	IsRead  *bool   `json:"is_read"`
}

// UpdateMessage handles PATCH /chat/messages/{messageID}
func (h *ChatHandler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication credentials were not provided.")
		return
	}
	messageID, ok := messageParam(r)
	if !ok {
		response.NotFound(w)
		return
	}

	var body updateMessageBody
	if !decode(w, r, &body) {
		return
	}

	msg, err := h.chatService.Update(r.Context(), messageID, userID, domain.UpdateMessageParams{
		Content: body.Content,
		IsRead:  body.IsRead,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.OK(w, msg)
}

// DeleteMessage handles DELETE /chat/messages/{messageID}
func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication credentials were not provided.")
		return
	}
	messageID, ok := messageParam(r)
	if !ok {
		response.NotFound(w)
		return
	}

	if err := h.chatService.Delete(r.Context(), messageID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.NoContent(w)
}

func messageParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "messageID"), 10, 64)
	return id, err == nil && id > 0
}
