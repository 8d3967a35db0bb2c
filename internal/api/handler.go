package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/edulite/backend/internal/domain"
	"github.com/edulite/backend/internal/middleware"
	"github.com/edulite/backend/pkg/response"
	"github.com/edulite/backend/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// currentProfile resolves the authenticated identity to its profile. It writes
// the error response itself and returns nil when the caller has none.
func currentProfile(w http.ResponseWriter, r *http.Request, profiles domain.ProfileRepository, logger *zap.Logger) *domain.Profile {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication credentials were not provided.")
		return nil
	}
	profile, err := profiles.GetProfileByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.Forbidden(w, "No profile exists for this account.")
			return nil
		}
		writeError(w, logger, err)
		return nil
	}
	return profile
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and returns false on failure.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		response.BadRequest(w, "JSON parse error.")
		return false
	}
	if err := validator.Struct(dst); err != nil {
		var fe validator.FieldErrors
		if errors.As(err, &fe) {
			response.FieldErrors(w, fe)
			return false
		}
		response.BadRequest(w, err.Error())
		return false
	}
	return true
}

func uuidParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

func intQuery(r *http.Request, name string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// limitOffset reads page/limit query parameters
func limitOffset(r *http.Request) (int, int) {
	limit := intQuery(r, "limit", 20)
	if limit == 0 || limit > 100 {
		limit = 20
	}
	page := intQuery(r, "page", 1)
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// writeError maps domain errors to status codes. Anything unrecognised is a 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w)
	case errors.Is(err, domain.ErrInvalidCursor):
		response.Message(w, http.StatusNotFound, "Invalid cursor")
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrRequestsDisabled),
		errors.Is(err, domain.ErrInvitesDisabled):
		response.Forbidden(w, sentence(err))
	case errors.Is(err, domain.ErrBlankContent):
		response.FieldErrors(w, map[string][]string{"content": {sentence(err)}})
	case errors.Is(err, domain.ErrSelfRequest),
		errors.Is(err, domain.ErrAlreadyFriends),
		errors.Is(err, domain.ErrDuplicateRequest),
		errors.Is(err, domain.ErrMessageTooLong),
		errors.Is(err, domain.ErrInvalidRoom),
		errors.Is(err, domain.ErrInvalidRoomType),
		errors.Is(err, domain.ErrUnknownParticipant):
		response.BadRequest(w, sentence(err))
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write
	default:
		logger.Error("unhandled error", zap.Error(err))
		response.InternalError(w)
	}
}

// sentence turns an error message into the capitalised, full-stopped form
// clients display
func sentence(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	runes := []rune(msg)
	runes[0] = unicode.ToUpper(runes[0])
	msg = string(runes)
	if !strings.HasSuffix(msg, ".") {
		msg += "."
	}
	return msg
}
