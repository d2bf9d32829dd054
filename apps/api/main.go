package main

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/mahaj/dost-chat/pkg/auth"
	"github.com/mahaj/dost-chat/pkg/config"
	"github.com/mahaj/dost-chat/pkg/presence"
	"github.com/mahaj/dost-chat/pkg/store"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	auth.Configure(cfg.JWTSecret)

	st, err := store.NewScylla(cfg.ScyllaHosts, cfg.Keyspace, cfg.SnowflakeNode)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to scylla")
	}
	defer st.Close()

	pres := presence.New(cfg.RedisAddr)
	defer pres.Close()

	mux := newRouter(st, pres, logger)

	logger.Info().Str("addr", cfg.APIAddr).Msg("api listening")
	if err := http.ListenAndServe(cfg.APIAddr, mux); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func newRouter(st store.Store, pres *presence.Store, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Public endpoints.
	mux.Handle("POST /auth/register", RegisterHandler(st, logger))
	mux.Handle("POST /auth/login", LoginHandler(st, logger))

	// Protected endpoints.
	mux.Handle("GET /users", AuthMiddleware(UsersHandler(st, logger)))
	mux.Handle("GET /users/{id}", AuthMiddleware(UserHandler(st, logger)))
	mux.Handle("GET /messages/{userId}", AuthMiddleware(HistoryHandler(st, logger)))
	if pres != nil {
		mux.Handle("GET /presence/online", AuthMiddleware(OnlineUsersHandler(pres, logger)))
	}

	return CORSMiddleware(mux)
}
