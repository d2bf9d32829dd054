// Package config loads service configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	GatewayAddr string `envconfig:"GATEWAY_ADDR" default:":8080"`
	APIAddr     string `envconfig:"API_ADDR" default:":8081"`

	ScyllaHosts []string `envconfig:"SCYLLA_HOSTS" default:"localhost:9042"`
	Keyspace    string   `envconfig:"SCYLLA_KEYSPACE" default:"chat"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:19092"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"chat-messages"`

	JWTSecret string `envconfig:"JWT_SECRET"`

	// SnowflakeNode must be unique per store-writing instance.
	SnowflakeNode int64 `envconfig:"SNOWFLAKE_NODE" default:"1"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
