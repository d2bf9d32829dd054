package main

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mahaj/dost-chat/pkg/presence"
)

// OnlineUsersHandler returns the ids of users currently online, read
// from the Redis mirror the gateways maintain.
func OnlineUsersHandler(pres *presence.Store, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := pres.OnlineUsers(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("presence read failed")
			writeError(w, http.StatusInternalServerError, "failed to fetch presence")
			return
		}
		if users == nil {
			users = []string{}
		}
		writeJSON(w, http.StatusOK, users)
	}
}
