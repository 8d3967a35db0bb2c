package api

import (
	"net/http"
	"strings"

	"github.com/edulite/backend/internal/domain"
	"github.com/edulite/backend/pkg/response"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	visibility *domain.VisibilityResolver
	profiles   domain.ProfileRepository
	logger     *zap.Logger
}

func NewProfileHandler(visibility *domain.VisibilityResolver, profiles domain.ProfileRepository, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		visibility: visibility,
		profiles:   profiles,
		logger:     logger,
	}
}

// Me handles GET /profiles/me
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	me := currentProfile(w, r, h.profiles, h.logger)
	if me == nil {
		return
	}
	resp, err := h.visibility.Render(r.Context(), me, me)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.OK(w, resp)
}

// Search handles GET /profiles/search?q=
func (h *ProfileHandler) Search(w http.ResponseWriter, r *http.Request) {
	me := currentProfile(w, r, h.profiles, h.logger)
	if me == nil {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		response.OK(w, []*domain.ProfileResponse{})
		return
	}
	limit, offset := limitOffset(r)

	found, err := h.visibility.Search(r.Context(), me, q, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	results := make([]*domain.ProfileResponse, 0, len(found))
	for _, p := range found {
		resp, err := h.visibility.Render(r.Context(), me, p)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		results = append(results, resp)
	}
	response.OK(w, results)
}

// Get handles GET /profiles/{id}. Profiles the caller cannot discover are 404.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	me := currentProfile(w, r, h.profiles, h.logger)
	if me == nil {
		return
	}
	id, ok := uuidParam(r, "id")
	if !ok {
		response.NotFound(w)
		return
	}

	resp, err := h.visibility.Lookup(r.Context(), me, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.OK(w, resp)
}

// Friends handles GET /profiles/{id}/friends
func (h *ProfileHandler) Friends(w http.ResponseWriter, r *http.Request) {
	me := currentProfile(w, r, h.profiles, h.logger)
	if me == nil {
		return
	}
	id, ok := uuidParam(r, "id")
	if !ok {
		response.NotFound(w)
		return
	}

	friends, err := h.visibility.Friends(r.Context(), me, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.OK(w, friends)
}

// MutualFriends handles GET /profiles/{id}/mutual-friends
func (h *ProfileHandler) MutualFriends(w http.ResponseWriter, r *http.Request) {
	me := currentProfile(w, r, h.profiles, h.logger)
	if me == nil {
		return
	}
	id, ok := uuidParam(r, "id")
	if !ok {
		response.NotFound(w)
		return
	}

	mutual, err := h.visibility.MutualFriends(r.Context(), me, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.OK(w, mutual)
}
