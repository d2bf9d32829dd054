package main

import (
	"context"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/mahaj/dost-chat/pkg/auth"
	"github.com/mahaj/dost-chat/pkg/broker"
	"github.com/mahaj/dost-chat/pkg/config"
	"github.com/mahaj/dost-chat/pkg/presence"
	"github.com/mahaj/dost-chat/pkg/store"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "gateway").Logger()

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

	peers := broker.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer peers.Close()

	hub := NewHub(st, pres, peers, logger)

	consumer := broker.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, "gateway-"+hub.InstanceID())
	defer consumer.Close()
	go func() {
		if err := consumer.Run(context.Background(), hub.DeliverPeer); err != nil {
			logger.Error().Err(err).Msg("peer consumer stopped")
		}
	}()

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r)
	})

	logger.Info().Str("addr", cfg.GatewayAddr).Msg("gateway listening")
	if err := http.ListenAndServe(cfg.GatewayAddr, nil); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
