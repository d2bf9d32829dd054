package main

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mahaj/dost-chat/pkg/model"
	"github.com/mahaj/dost-chat/pkg/store"
)

// UsersHandler lists every user except the caller, summaries only.
func UsersHandler(st store.Store, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		users, err := st.ListUsers(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("user list failed")
			writeError(w, http.StatusInternalServerError, "failed to fetch users")
			return
		}

		summaries := make([]model.UserSummary, 0, len(users))
		for _, u := range users {
			if u.ID == claims.UserID {
				continue
			}
			summaries = append(summaries, u.Summary())
		}

		writeJSON(w, http.StatusOK, summaries)
	}
}

func UserHandler(st store.Store, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := st.UserByID(r.Context(), r.PathValue("id"))
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			logger.Error().Err(err).Msg("user lookup failed")
			writeError(w, http.StatusInternalServerError, "failed to fetch user")
			return
		}

		writeJSON(w, http.StatusOK, user.Summary())
	}
}
