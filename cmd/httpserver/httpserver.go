// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/moneta-bank/moneta/internal/middleware"
	"github.com/moneta-bank/moneta/internal/transferdelivery"
	"github.com/moneta-bank/moneta/internal/transferrepo"
	"github.com/moneta-bank/moneta/internal/transferservice"
	"github.com/moneta-bank/moneta/internal/userdelivery"
	"github.com/moneta-bank/moneta/internal/userrepo"
	"github.com/moneta-bank/moneta/internal/userservice"
	"github.com/moneta-bank/moneta/pkg/cachepkg"
	"github.com/moneta-bank/moneta/pkg/configpkg"
	"github.com/moneta-bank/moneta/pkg/tokenpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

func newTokenMaker(config configpkg.Config) (tokenpkg.Maker, error) {
	switch config.TokenMaker {
	case "paseto":
		return tokenpkg.NewPasetoMaker(config.TokenSymmetricKey)
	case "jwt", "":
		return tokenpkg.NewJWTMaker(config.TokenSymmetricKey)
	}

	return nil, fmt.Errorf("unsupported token maker %s", config.TokenMaker)
}

// New creates Server type with instantiated domains and routes.
func New(conn *sql.DB, cache cachepkg.Cache, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	userRepo := userrepo.NewRepoPGS(conn)
	transferRepo := transferrepo.NewRepoPGS(conn)

	tokenMaker, err := newTokenMaker(config)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	userService := userservice.New(userRepo, cache, config.CacheTTL)
	transferService := transferservice.New(transferRepo, userService, cache)

	userHandler := userdelivery.NewHandler(userService, tokenMaker, config.AccessTokenDuration)
	transferHandler := transferdelivery.NewHandler(transferService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	engine.POST("/users", userHandler.Create)
	engine.POST("/users/login", userHandler.Login)

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.GET("/users/:identifier", userHandler.Get)

	authRoutes.POST("/transfers", transferHandler.Create)
	authRoutes.GET("/transfers/:id", transferHandler.Get)
	authRoutes.GET("/transfers", transferHandler.List)

	server := &Server{
		DB:     conn,
		Engine: engine,
		Config: config,
	}

	return server, nil
}
