// Package userrepo manages repository layer of users.
package userrepo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/moneta-bank/moneta/internal/domain"
	"github.com/moneta-bank/moneta/pkg/dbpkg"
	"github.com/moneta-bank/moneta/pkg/errorspkg"
)

// RepoPGS facilitates user repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns user RepoPGS. It accepts both a *sql.DB and a *sql.Tx
// so the transfer transaction can reuse it on its own transaction.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO users (
    username,
    email,
    first_name,
    last_name,
    hashed_password,
    balance
) VALUES (
    $1, $2, $3, $4, $5, $6
) RETURNING id, username, email, first_name, last_name, hashed_password, balance, created_at
`

// Create creates the user and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateUserParams) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.Username,
		arg.Email,
		arg.FirstName,
		arg.LastName,
		arg.HashedPassword,
		arg.Balance,
	)

	var u domain.User

	err := scanUser(row, &u)
	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				switch pqErr.Constraint {
				case "users_username_key":
					return u, domain.ErrUsernameAlreadyExists
				case "users_email_key":
					return u, domain.ErrEmailAlreadyExists
				}
			}
		}

		if dbpkg.IsTransient(err) {
			return u, errorspkg.ErrTransientStore
		}

		return u, errorspkg.ErrInternal
	}

	return u, nil
}

const getQuery = `
SELECT
	id, username, email, first_name, last_name, hashed_password, balance, created_at
FROM users
WHERE username = $1
`

// Get returns the user with the given username, including the password hash.
func (r *RepoPGS) Get(ctx context.Context, username string) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, username)

	var u domain.User

	err := scanUser(row, &u)
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return u, domain.ErrUserNotFound
		}

		if dbpkg.IsTransient(err) {
			return u, errorspkg.ErrTransientStore
		}

		return u, errorspkg.ErrInternal
	}

	return u, nil
}

const getByIDQuery = `
SELECT
	id, username, email, first_name, last_name, hashed_password, balance, created_at
FROM users
WHERE id = $1
`

// GetByID returns the user with the given id.
func (r *RepoPGS) GetByID(ctx context.Context, id int64) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getByIDQuery, id)

	var u domain.User

	err := scanUser(row, &u)
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return u, domain.ErrUserNotFound
		}

		if dbpkg.IsTransient(err) {
			return u, errorspkg.ErrTransientStore
		}

		return u, errorspkg.ErrInternal
	}

	return u, nil
}

const getIDQuery = `
SELECT id FROM users
WHERE username = $1
`

// GetID returns the id of the user with the given username.
func (r *RepoPGS) GetID(ctx context.Context, username string) (int64, error) {
	l := zerolog.Ctx(ctx)

	var id int64

	err := r.db.QueryRowContext(ctx, getIDQuery, username).Scan(&id)
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return 0, domain.ErrUserNotFound
		}

		if dbpkg.IsTransient(err) {
			return 0, errorspkg.ErrTransientStore
		}

		return 0, errorspkg.ErrInternal
	}

	return id, nil
}

const getForUpdateQuery = `
SELECT
	id, username, email, first_name, last_name, hashed_password, balance, created_at
FROM users
WHERE id = $1
FOR UPDATE
`

// GetForUpdate returns the user with the given id holding an exclusive row
// lock until the surrounding transaction ends. Valid only inside a transaction.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id int64) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getForUpdateQuery, id)

	var u domain.User

	err := scanUser(row, &u)
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return u, domain.ErrUserNotFound
		}

		if dbpkg.IsTransient(err) {
			return u, errorspkg.ErrTransientStore
		}

		return u, errorspkg.ErrInternal
	}

	return u, nil
}

const setBalanceQuery = `
UPDATE users
SET balance = $1
WHERE id = $2
RETURNING id, username, email, first_name, last_name, hashed_password, balance, created_at
`

// SetBalance overwrites the user's balance and returns the changed user.
// Valid only inside a transaction that locked the row beforehand.
func (r *RepoPGS) SetBalance(ctx context.Context, balance string, id int64) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, setBalanceQuery, balance, id)

	var u domain.User

	err := scanUser(row, &u)
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return u, domain.ErrUserNotFound
		}

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "users_balance_check" {
				return u, domain.ErrInsufficientFunds
			}
		}

		if dbpkg.IsTransient(err) {
			return u, errorspkg.ErrTransientStore
		}

		return u, errorspkg.ErrInternal
	}

	return u, nil
}

func scanUser(row *sql.Row, u *domain.User) error {
	return row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.HashedPassword,
		&u.Balance,
		&u.CreatedAt,
	)
}
