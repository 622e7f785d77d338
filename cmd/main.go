// Package main starts the money transfer API server.
package main

import (
	"github.com/rs/zerolog/log"

	"github.com/moneta-bank/moneta/cmd/httpserver"
	"github.com/moneta-bank/moneta/internal/middleware"
	"github.com/moneta-bank/moneta/pkg/cachepkg"
	"github.com/moneta-bank/moneta/pkg/configpkg"
	"github.com/moneta-bank/moneta/pkg/dbpkg"

	_ "github.com/lib/pq"
)

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to database")
	}

	redisClient, err := cachepkg.NewClient(config.RedisAddress, config.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to redis")
	}

	cache := cachepkg.NewRedisCache(redisClient)

	server, err := httpserver.New(db, cache, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	logger.Info().Msg("TRANSFER API SERVER HAS STARTED")

	err = server.Engine.Run(config.ServerAddress)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot start server")
	}
}
