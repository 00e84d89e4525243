package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/z-chat/internal/model/chat"
	"github.com/zhouzirui/z-chat/pkg/utils"
)

const maxRequestBytes = 64 << 10

// Replier answers one message for one user.
type Replier interface {
	Reply(ctx context.Context, userID, message string) (string, error)
}

// Handler serves the chat endpoint.
type Handler struct {
	replier Replier
	logger  zerolog.Logger
}

// New creates a chat handler.
func New(replier Replier, logger zerolog.Logger) *Handler {
	return &Handler{
		replier: replier,
		logger:  logger.With().Str("component", "chat_handler").Logger(),
	}
}

// RegisterRoutes mounts the chat routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chat.Request

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := strings.TrimSpace(payload.UserID)
	if userID == "" {
		utils.RespondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.replier.Reply(r.Context(), userID, message)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("reply failed")
		utils.RespondError(w, http.StatusInternalServerError, "failed to generate reply")
		return
	}

	utils.RespondJSON(w, http.StatusOK, chat.Response{Reply: reply})
}
