// Bootstraps the chat keyspace and tables. In production this belongs
// to a migration tool; for local development run it once before
// starting the services.
package main

import (
	"log"

	"github.com/gocql/gocql"

	"github.com/mahaj/dost-chat/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	cluster := gocql.NewCluster(cfg.ScyllaHosts...)
	cluster.Keyspace = "system"
	cluster.Consistency = gocql.Quorum

	sysSession, err := cluster.CreateSession()
	if err != nil {
		log.Fatalf("failed to connect to scylla: %v", err)
	}

	err = sysSession.Query(`CREATE KEYSPACE IF NOT EXISTS ` + cfg.Keyspace +
		` WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`).Exec()
	if err != nil {
		log.Fatalf("failed to create keyspace: %v", err)
	}
	sysSession.Close()

	cluster.Keyspace = cfg.Keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		log.Fatalf("failed to connect to keyspace %s: %v", cfg.Keyspace, err)
	}
	defer session.Close()

	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id text PRIMARY KEY,
			username text,
			email text,
			avatar_url text,
			password_hash text,
			created_at timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS users_by_email (
			email text PRIMARY KEY,
			user_id text
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			room_key text,
			id bigint,
			sender_id text,
			receiver_id text,
			content text,
			media_url text,
			created_at timestamp,
			PRIMARY KEY (room_key, id)
		) WITH CLUSTERING ORDER BY (id ASC)`,
	}
	for _, ddl := range tables {
		if err := session.Query(ddl).Exec(); err != nil {
			log.Fatalf("failed to create table: %v", err)
		}
	}

	log.Println("Schema created successfully")
}
