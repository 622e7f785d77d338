// Package transferdelivery manages delivery layer of transfers.
package transferdelivery

import (
	"context"
	"errors"
	"net/http"
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

// Service provides service layer interface needed by transfer delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transferdelivery
type Service interface {
	Transfer(ctx context.Context, fromUsername, toUsername, amount string) (domain.TransferResult, error)
	Get(ctx context.Context, fromUsername string, id int64) (domain.TransferItem, error)
	List(ctx context.Context, fromUsername string, filter domain.TransferFilter) ([]domain.TransferItem, domain.PageMeta, error)
}

// Handler facilitates transfer delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transfer handler.
func NewHandler(ts Service) *Handler {
	return &Handler{
		service: ts,
	}
}

type createRequest struct {
	ToUsername string `json:"to_username" binding:"required,alphanum"`
	Amount     string `json:"amount" binding:"required"`
}

type transferData struct {
	Transfer domain.TransferResult `json:"transfer"`
}

// Create handles http request to transfer money to another user.
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

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	result, err := h.service.Transfer(ctx, authPayload.Username, req.ToUsername, req.Amount)
	if err != nil {
		l.Info().Err(err).Send()

		switch err {
		case
			domain.ErrInvalidAmount,
			domain.ErrSelfTransfer,
			domain.ErrInsufficientFunds:
			gctx.JSON(http.StatusBadRequest, web.Error(err))

			return
		case domain.ErrAccountNotFound:
			gctx.JSON(http.StatusNotFound, web.Error(err))

			return
		case errorspkg.ErrTransientStore:
			gctx.JSON(http.StatusServiceUnavailable, web.Error(err))

			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: transferData{result}})
}

type getRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

type itemData struct {
	Transfer domain.TransferItem `json:"transfer"`
}

// Get handles http request to fetch a single sent transfer.
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

	item, err := h.service.Get(ctx, authPayload.Username, req.ID)
	if err != nil {
		switch err {
		case domain.ErrTransferNotFound, domain.ErrUserNotFound:
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		case errorspkg.ErrTransientStore:
			gctx.JSON(http.StatusServiceUnavailable, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: itemData{item}})
}

type listRequest struct {
	ToUsername string    `form:"to_username" binding:"omitempty,alphanum"`
	ToUserID   int64     `form:"to_user_id" binding:"omitempty,min=1"`
	MinAmount  string    `form:"min_amount" binding:"omitempty,numeric"`
	MaxAmount  string    `form:"max_amount" binding:"omitempty,numeric"`
	StartDate  time.Time `form:"start_date" time_format:"2006-01-02T15:04:05Z07:00"`
	EndDate    time.Time `form:"end_date" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit      int32     `form:"limit,default=10" binding:"omitempty,min=1"`
	Page       int32     `form:"page,default=1" binding:"omitempty,min=1"`
}

type listData struct {
	Transfers []domain.TransferItem `json:"transfers"`
	Meta      domain.PageMeta       `json:"meta"`
}

// List handles http request to list the caller's sent transfers.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			gctx.JSON(http.StatusBadRequest, web.Response{Error: web.GetErrorMsg(ve)})
			return
		}

		gctx.JSON(http.StatusBadRequest, web.Error(err))

		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	filter := domain.TransferFilter{
		ToUsername: req.ToUsername,
		ToUserID:   req.ToUserID,
		MinAmount:  req.MinAmount,
		MaxAmount:  req.MaxAmount,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Limit:      req.Limit,
		Page:       req.Page,
	}

	items, meta, err := h.service.List(ctx, authPayload.Username, filter)
	if err != nil {
		switch err {
		case
			domain.ErrInvalidFilter,
			domain.ErrInvalidAmount,
			domain.ErrInvalidAmountRange,
			domain.ErrInvalidDateRange:
			gctx.JSON(http.StatusBadRequest, web.Error(err))

			return
		case domain.ErrUserNotFound:
			gctx.JSON(http.StatusNotFound, web.Error(err))

			return
		case errorspkg.ErrTransientStore:
			gctx.JSON(http.StatusServiceUnavailable, web.Error(err))

			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: listData{Transfers: items, Meta: meta}})
}
