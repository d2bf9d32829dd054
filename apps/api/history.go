package main

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mahaj/dost-chat/pkg/model"
	"github.com/mahaj/dost-chat/pkg/store"
)

// HistoryHandler returns every message exchanged between the caller
// and the user in the path, enriched and ascending by creation time.
func HistoryHandler(st store.Store, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		self, err := st.UserByID(r.Context(), claims.UserID)
		if errors.Is(err, store.ErrNotFound) {
			// Valid token, but the account behind it is gone.
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if err != nil {
			logger.Error().Err(err).Msg("caller lookup failed")
			writeError(w, http.StatusInternalServerError, "failed to fetch messages")
			return
		}

		other, err := st.UserByID(r.Context(), r.PathValue("userId"))
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			logger.Error().Err(err).Msg("user lookup failed")
			writeError(w, http.StatusInternalServerError, "failed to fetch messages")
			return
		}

		messages, err := st.MessagesBetween(r.Context(), self.ID, other.ID)
		if err != nil {
			logger.Error().Err(err).Msg("history read failed")
			writeError(w, http.StatusInternalServerError, "failed to fetch messages")
			return
		}

		summaries := map[string]model.UserSummary{
			self.ID:  self.Summary(),
			other.ID: other.Summary(),
		}
		wire := make([]model.WireMessage, 0, len(messages))
		for _, m := range messages {
			wire = append(wire, model.WireMessage{
				ID:        m.ID,
				Content:   m.Content,
				MediaURL:  m.MediaURL,
				Sender:    summaries[m.SenderID],
				Receiver:  summaries[m.ReceiverID],
				CreatedAt: m.CreatedAt,
			})
		}

		writeJSON(w, http.StatusOK, wire)
	}
}
