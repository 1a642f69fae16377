package main

import (
	"database/sql"
	"net/http"
	"os"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"sotto/internal/domain"
	"sotto/internal/engine"
	"sotto/internal/presence"
	"sotto/internal/registry"
	"sotto/internal/server"
	"sotto/internal/store"
	"sotto/internal/store/postgres"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	addr := os.Getenv("SOTTO_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	var (
		st   domain.Store
		opts []server.Option
	)
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("open database")
		}
		defer db.Close()

		pg := postgres.New(db)
		if err := pg.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("run migrations")
		}
		st = pg
		opts = append(opts, server.WithHealthPing(db.Ping))
		log.Info().Msg("using postgres store")
	} else {
		st = store.NewMemory()
		log.Warn().Msg("using in-memory store; state is lost on exit")
	}

	var tracker domain.PresenceTracker = presence.NewTracker()
	if redisAddr := os.Getenv("REDIS_URL"); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		tracker = presence.NewRedisTracker(rdb)
		log.Info().Str("addr", redisAddr).Msg("using redis presence")
	}

	eng := engine.New(st, registry.New(log), tracker, log)
	srv := server.New(st, eng, log, opts...)

	log.Info().Str("addr", addr).Msg("server listening")
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
