// Package userservice manages business logic layer of users.
package userservice

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/moneta-bank/moneta/internal/domain"
	"github.com/moneta-bank/moneta/pkg/cachepkg"
	"github.com/moneta-bank/moneta/pkg/errorspkg"
	"github.com/moneta-bank/moneta/pkg/passpkg"
)

// StartingBalance is credited to every new user at registration.
const StartingBalance = "100"

// Repo provides data access layer interface needed by user service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package userservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateUserParams) (domain.User, error)
	Get(ctx context.Context, username string) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
}

// Service facilitates user service layer logic.
type Service struct {
	repo     Repo
	cache    cachepkg.Cache
	cacheTTL time.Duration
}

// New returns user service struct to manage user business logic.
func New(ur Repo, cache cachepkg.Cache, cacheTTL time.Duration) *Service {
	return &Service{
		repo:     ur,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// NewUserWithoutPassword returns the user projection with the password hash removed.
func NewUserWithoutPassword(u domain.User) domain.UserWithoutPassword {
	return domain.UserWithoutPassword{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Balance:   u.Balance,
		CreatedAt: u.CreatedAt,
	}
}

// NewUserProfile returns the user projection with both the password hash and
// the balance removed.
func NewUserProfile(u domain.User) domain.UserProfile {
	return domain.UserProfile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
	}
}

// Create creates and returns a user with the starting balance.
func (s *Service) Create(ctx context.Context, username, email, firstName, lastName, password string) (domain.UserWithoutPassword, error) {
	l := zerolog.Ctx(ctx)

	var result domain.UserWithoutPassword

	hashedPassword, err := passpkg.Hash(password)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	arg := domain.CreateUserParams{
		Username:       username,
		Email:          email,
		FirstName:      firstName,
		LastName:       lastName,
		HashedPassword: hashedPassword,
		Balance:        StartingBalance,
	}

	gotUser, err := s.repo.Create(ctx, arg)
	if err != nil {
		return result, err
	}

	return NewUserWithoutPassword(gotUser), nil
}

// CheckPassword checks if the password is valid for the given username.
func (s *Service) CheckPassword(ctx context.Context, username, pass string) (domain.UserWithoutPassword, error) {
	l := zerolog.Ctx(ctx)

	var response domain.UserWithoutPassword

	gotUser, err := s.repo.Get(ctx, username)
	if err != nil {
		return response, err
	}

	err = passpkg.Check(pass, gotUser.HashedPassword)
	if err != nil {
		l.Warn().Err(err).Send()
		return response, domain.ErrWrongPassword
	}

	return NewUserWithoutPassword(gotUser), nil
}

// GetByUsername returns the user projection for the given username, reading
// through the cache. The projection includes the balance but never the
// password hash.
func (s *Service) GetByUsername(ctx context.Context, username string) (domain.UserWithoutPassword, error) {
	l := zerolog.Ctx(ctx)

	key := cachepkg.UserKey(username)

	if cached, ok := s.cache.Get(ctx, key); ok {
		var u domain.UserWithoutPassword
		if err := json.Unmarshal([]byte(cached), &u); err == nil {
			return u, nil
		}

		// A value that no longer unmarshals reads as a miss.
		l.Warn().Str("key", key).Msg("dropping undecodable cache value")
	}

	gotUser, err := s.repo.Get(ctx, username)
	if err != nil {
		return domain.UserWithoutPassword{}, err
	}

	result := NewUserWithoutPassword(gotUser)

	if encoded, err := json.Marshal(result); err == nil {
		s.cache.Set(ctx, key, string(encoded), s.cacheTTL)
	}

	return result, nil
}

// GetProfileByID returns the user profile for the given id without the
// balance, bypassing the cache.
func (s *Service) GetProfileByID(ctx context.Context, id int64) (domain.UserProfile, error) {
	gotUser, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.UserProfile{}, err
	}

	return NewUserProfile(gotUser), nil
}
