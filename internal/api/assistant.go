package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/odontocare/clinic-api/internal/auth"
	"github.com/odontocare/clinic-api/internal/bot"
)

func botAskHandler(b *bot.Bot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
			return
		}

		var req BotAskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if strings.TrimSpace(req.Question) == "" {
			writeError(w, http.StatusBadRequest, "empty_question", "question is required")
			return
		}

		reply, err := b.Ask(r.Context(), claims, req.Question)
		if err != nil {
			if errors.Is(err, bot.ErrPermissionDenied) {
				writeError(w, http.StatusForbidden, "permission_denied", "role cannot ask that")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, BotAskResponse{Intent: string(reply.Intent), Text: reply.Text})
	}
}
