package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/mahaj/dost-chat/pkg/auth"
	"github.com/mahaj/dost-chat/pkg/model"
	"github.com/mahaj/dost-chat/pkg/store"
)

var validate = validator.New()

type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=32"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	AvatarURL string `json:"avatarUrl" validate:"omitempty,url"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string            `json:"token"`
	User  model.UserSummary `json:"user"`
}

func RegisterHandler(st store.Store, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "username, email, and password are required")
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			logger.Error().Err(err).Msg("password hash failed")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		user, err := st.CreateUser(r.Context(), store.NewUser{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hash,
			AvatarURL:    req.AvatarURL,
		})
		if errors.Is(err, store.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "email already registered")
			return
		}
		if err != nil {
			logger.Error().Err(err).Msg("user create failed")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{
			"message": "user registered successfully",
			"userId":  user.ID,
		})
	}
}

func LoginHandler(st store.Store, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		user, err := st.UserByEmail(r.Context(), req.Email)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			logger.Error().Err(err).Msg("user lookup failed")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if !auth.CheckPassword(user.PasswordHash, req.Password) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		token, err := auth.GenerateToken(user.ID)
		if err != nil {
			logger.Error().Err(err).Msg("token generation failed")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: user.Summary()})
	}
}
