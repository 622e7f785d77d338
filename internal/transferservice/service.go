// Package transferservice manages business logic layer of transfers.
package transferservice

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/moneta-bank/moneta/internal/domain"
	"github.com/moneta-bank/moneta/internal/userdelivery"
	"github.com/moneta-bank/moneta/internal/userservice"
	"github.com/moneta-bank/moneta/pkg/cachepkg"
)

const (
	defaultLimit = 10
	defaultPage  = 1
)

// Repo provides data access layer interface needed by transfer service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type Repo interface {
	TransferTx(ctx context.Context, arg domain.CreateTransferParams) (domain.TransferTxResult, error)
	Get(ctx context.Context, id, ownerID int64) (domain.TransferItem, error)
	List(ctx context.Context, filter domain.TransferFilter) ([]domain.TransferItem, int64, error)
}

// Service facilitates transfer service layer logic.
type Service struct {
	repo        Repo
	userService userdelivery.Service
	cache       cachepkg.Cache
}

// New returns transfer service struct to manage transfer business logic.
func New(tr Repo, us userdelivery.Service, cache cachepkg.Cache) *Service {
	return &Service{
		repo:        tr,
		userService: us,
		cache:       cache,
	}
}

// Transfer moves the amount from the sender to the recipient and returns the
// sanitized transfer record. The sender sees the own new balance; the
// recipient's balance is stripped from the response.
func (s *Service) Transfer(ctx context.Context, fromUsername, toUsername, amount string) (domain.TransferResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.TransferResult

	amountDecimal, err := decimal.NewFromString(amount)
	if err != nil {
		l.Info().Err(err).Send()
		return result, domain.ErrInvalidAmount
	}

	if amountDecimal.LessThanOrEqual(decimal.Zero) {
		return result, domain.ErrInvalidAmount
	}

	if fromUsername == toUsername {
		return result, domain.ErrSelfTransfer
	}

	arg := domain.CreateTransferParams{
		FromUsername: fromUsername,
		ToUsername:   toUsername,
		Amount:       amountDecimal.StringFixed(2),
	}

	txResult, err := s.repo.TransferTx(ctx, arg)
	if err != nil {
		return result, err
	}

	// Evict only after the commit so a racing read cannot re-populate the
	// cache with pre-commit balances.
	s.cache.Del(ctx, cachepkg.UserKey(txResult.FromUser.Username))
	s.cache.Del(ctx, cachepkg.UserKey(txResult.ToUser.Username))

	result = domain.TransferResult{
		ID:        txResult.Transfer.ID,
		FromUser:  userservice.NewUserWithoutPassword(txResult.FromUser),
		ToUser:    userservice.NewUserProfile(txResult.ToUser),
		Amount:    txResult.Transfer.Amount,
		CreatedAt: txResult.Transfer.CreatedAt,
	}

	return result, nil
}

// Get returns the transfer with the given id if the caller was the sender.
func (s *Service) Get(ctx context.Context, fromUsername string, id int64) (domain.TransferItem, error) {
	owner, err := s.userService.GetByUsername(ctx, fromUsername)
	if err != nil {
		return domain.TransferItem{}, err
	}

	return s.repo.Get(ctx, id, owner.ID)
}

// List returns the caller's sent transfers matching the filter together with
// pagination metadata.
func (s *Service) List(ctx context.Context, fromUsername string, filter domain.TransferFilter) ([]domain.TransferItem, domain.PageMeta, error) {
	var meta domain.PageMeta

	if err := validFilter(&filter); err != nil {
		return nil, meta, err
	}

	owner, err := s.userService.GetByUsername(ctx, fromUsername)
	if err != nil {
		return nil, meta, err
	}

	filter.FromUserID = owner.ID

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, meta, err
	}

	meta = domain.PageMeta{
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: (total + int64(filter.Limit) - 1) / int64(filter.Limit),
	}

	return items, meta, nil
}

func validFilter(filter *domain.TransferFilter) error {
	if filter.ToUsername != "" && filter.ToUserID != 0 {
		return domain.ErrInvalidFilter
	}

	if filter.Limit == 0 {
		filter.Limit = defaultLimit
	}

	if filter.Page == 0 {
		filter.Page = defaultPage
	}

	var minAmount, maxAmount decimal.Decimal

	if filter.MinAmount != "" {
		var err error
		if minAmount, err = decimal.NewFromString(filter.MinAmount); err != nil {
			return domain.ErrInvalidAmount
		}
	}

	if filter.MaxAmount != "" {
		var err error
		if maxAmount, err = decimal.NewFromString(filter.MaxAmount); err != nil {
			return domain.ErrInvalidAmount
		}
	}

	if filter.MinAmount != "" && filter.MaxAmount != "" && maxAmount.LessThan(minAmount) {
		return domain.ErrInvalidAmountRange
	}

	if !filter.StartDate.IsZero() && !filter.EndDate.IsZero() && filter.EndDate.Before(filter.StartDate) {
		return domain.ErrInvalidDateRange
	}

	return nil
}
