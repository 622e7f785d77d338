// Package userdelivery manages delivery layer of users.
package userdelivery

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/moneta-bank/moneta/internal/domain"
	"github.com/moneta-bank/moneta/internal/middleware"
	"github.com/moneta-bank/moneta/pkg/errorspkg"
	"github.com/moneta-bank/moneta/pkg/tokenpkg"
	"github.com/moneta-bank/moneta/pkg/web"
)

// Service provides service layer interface needed by user delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package userdelivery
type Service interface {
	Create(ctx context.Context, username, email, firstName, lastName, password string) (domain.UserWithoutPassword, error)
	CheckPassword(ctx context.Context, username, password string) (domain.UserWithoutPassword, error)
	GetByUsername(ctx context.Context, username string) (domain.UserWithoutPassword, error)
	GetProfileByID(ctx context.Context, id int64) (domain.UserProfile, error)
}

// Handler facilitates user delivery layer logic.
type Handler struct {
	service             Service
	tokenMaker          tokenpkg.Maker
	accessTokenDuration time.Duration
}

// NewHandler returns user handler.
func NewHandler(us Service, tm tokenpkg.Maker, accessTokenDuration time.Duration) *Handler {
	return &Handler{
		service:             us,
		tokenMaker:          tm,
		accessTokenDuration: accessTokenDuration,
	}
}

type createRequest struct {
	Username  string `json:"username" binding:"required,alphanum"`
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Password  string `json:"password" binding:"required,min=6"`
}

type userData struct {
	User domain.UserWithoutPassword `json:"user"`
}

// Create handles http request to register a user.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			gctx.JSON(http.StatusBadRequest, web.Response{Error: web.GetErrorMsg(ve)})
			return
		}

		gctx.JSON(http.StatusBadRequest, web.Error(err))

		return
	}

	createdUser, err := h.service.Create(ctx, req.Username, req.Email, req.FirstName, req.LastName, req.Password)
	if err != nil {
		switch err {
		case domain.ErrUsernameAlreadyExists, domain.ErrEmailAlreadyExists:
			gctx.JSON(http.StatusConflict, web.Error(err))
			return
		case errorspkg.ErrTransientStore:
			gctx.JSON(http.StatusServiceUnavailable, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: userData{createdUser}})
}

type loginRequest struct {
	Username string `json:"username" binding:"required,alphanum"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginData struct {
	AccessToken          string                     `json:"access_token"`
	AccessTokenExpiresAt time.Time                  `json:"access_token_expires_at"`
	User                 domain.UserWithoutPassword `json:"user"`
}

// Login handles http request to verify credentials and issue an access token.
func (h *Handler) Login(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req loginRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			gctx.JSON(http.StatusBadRequest, web.Response{Error: web.GetErrorMsg(ve)})
			return
		}

		gctx.JSON(http.StatusBadRequest, web.Error(err))

		return
	}

	gotUser, err := h.service.CheckPassword(ctx, req.Username, req.Password)
	if err != nil {
		switch err {
		case domain.ErrUserNotFound:
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		case domain.ErrWrongPassword:
			gctx.JSON(http.StatusUnauthorized, web.Error(err))
			return
		case errorspkg.ErrTransientStore:
			gctx.JSON(http.StatusServiceUnavailable, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	accessToken, payload, err := h.tokenMaker.CreateToken(req.Username, h.accessTokenDuration)
	if err != nil {
		l.Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	res := loginData{
		AccessToken:          accessToken,
		AccessTokenExpiresAt: payload.ExpiredAt,
		User:                 gotUser,
	}

	gctx.JSON(http.StatusOK, web.Response{Data: res})
}

type getRequest struct {
	Identifier string `uri:"identifier" binding:"required"`
}

type profileData struct {
	User domain.UserProfile `json:"user"`
}

// Get handles http request to fetch the authenticated user by id or username.
// A username lookup reads through the cache and includes the balance; an id
// lookup bypasses the cache and omits it.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(err))

		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	if id, err := strconv.ParseInt(req.Identifier, 10, 64); err == nil {
		profile, err := h.service.GetProfileByID(ctx, id)
		if err != nil {
			h.writeGetError(gctx, err)
			return
		}

		if profile.Username != authPayload.Username {
			gctx.JSON(http.StatusUnauthorized, web.Error(domain.ErrUserOwnerMismatch))
			return
		}

		gctx.JSON(http.StatusOK, web.Response{Data: profileData{profile}})

		return
	}

	if req.Identifier != authPayload.Username {
		gctx.JSON(http.StatusUnauthorized, web.Error(domain.ErrUserOwnerMismatch))
		return
	}

	gotUser, err := h.service.GetByUsername(ctx, req.Identifier)
	if err != nil {
		h.writeGetError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: userData{gotUser}})
}

func (h *Handler) writeGetError(gctx *gin.Context, err error) {
	switch err {
	case domain.ErrUserNotFound:
		gctx.JSON(http.StatusNotFound, web.Error(err))
	case errorspkg.ErrTransientStore:
		gctx.JSON(http.StatusServiceUnavailable, web.Error(err))
	default:
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
	}
}
