// Package transferrepo manages repository layer of transfers, including the
// transfer transaction that mutates both balances and appends the ledger row.
package transferrepo

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/moneta-bank/moneta/internal/domain"
	"github.com/moneta-bank/moneta/internal/userrepo"
	"github.com/moneta-bank/moneta/pkg/dbpkg"
	"github.com/moneta-bank/moneta/pkg/errorspkg"
)

// RepoPGS facilitates transfer repository layer logic.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewTxRepoPGS returns transfer RepoPGS scoped to an existing transaction.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewRepoPGS returns transfer RepoPGS with a connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db:   db,
		conn: db,
	}
}

const createQuery = `
INSERT INTO
    transfers (from_user_id, to_user_id, amount)
VALUES
    ($1, $2, $3)
RETURNING id, from_user_id, to_user_id, amount, created_at
`

// Create appends the ledger row and then returns it. Valid only inside the
// same transaction as the balance mutations it records.
func (r *RepoPGS) Create(ctx context.Context, fromUserID, toUserID int64, amount string) (domain.Transfer, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, fromUserID, toUserID, amount)

	var t domain.Transfer
	err := row.Scan(
		&t.ID,
		&t.FromUserID,
		&t.ToUserID,
		&t.Amount,
		&t.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %v, %v, %v)", fromUserID, toUserID, amount)

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "transfers_from_user_id_fkey", "transfers_to_user_id_fkey":
				return t, domain.ErrAccountNotFound
			case "transfers_amount_check":
				return t, domain.ErrInvalidAmount
			}
		}

		if dbpkg.IsTransient(err) {
			return t, errorspkg.ErrTransientStore
		}

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

// TransferTx moves money between two users as one atomic unit of work.
//
// Both rows are locked with SELECT FOR UPDATE in ascending id order, the
// balances are re-read under lock, mutated, and the ledger row is appended
// before commit. Any failure rolls the whole unit back.
func (r *RepoPGS) TransferTx(ctx context.Context, arg domain.CreateTransferParams) (domain.TransferTxResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.TransferTxResult

	amount, err := decimal.NewFromString(arg.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return result, domain.ErrInvalidAmount
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()

		if dbpkg.IsTransient(err) {
			return result, errorspkg.ErrTransientStore
		}

		return result, errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			l.Error().Err(err).Send()
		}
	}()

	userRepo := userrepo.NewRepoPGS(tx)

	fromID, err := userRepo.GetID(ctx, arg.FromUsername)
	if err != nil {
		return result, notFoundOrPassthrough(err)
	}

	toID, err := userRepo.GetID(ctx, arg.ToUsername)
	if err != nil {
		return result, notFoundOrPassthrough(err)
	}

	if fromID == toID {
		return result, domain.ErrSelfTransfer
	}

	// Lock both rows in ascending id order so opposite-direction transfers
	// between the same pair cannot deadlock.
	var from, to domain.User
	if fromID < toID {
		from, to, err = lockPair(ctx, userRepo, fromID, toID)
	} else {
		to, from, err = lockPair(ctx, userRepo, toID, fromID)
	}

	if err != nil {
		return result, notFoundOrPassthrough(err)
	}

	fromBalance, err := decimal.NewFromString(from.Balance)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	toBalance, err := decimal.NewFromString(to.Balance)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	if fromBalance.LessThan(amount) {
		return result, domain.ErrInsufficientFunds
	}

	result.FromUser, err = userRepo.SetBalance(ctx, fromBalance.Sub(amount).String(), fromID)
	if err != nil {
		return result, err
	}

	result.ToUser, err = userRepo.SetBalance(ctx, toBalance.Add(amount).String(), toID)
	if err != nil {
		return result, err
	}

	result.Transfer, err = r.txCreate(ctx, tx, fromID, toID, arg.Amount)
	if err != nil {
		return result, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()

		if dbpkg.IsTransient(err) {
			return domain.TransferTxResult{}, errorspkg.ErrTransientStore
		}

		return domain.TransferTxResult{}, errorspkg.ErrInternal
	}

	return result, nil
}

func (r *RepoPGS) txCreate(ctx context.Context, tx *sql.Tx, fromID, toID int64, amount string) (domain.Transfer, error) {
	return NewTxRepoPGS(tx).Create(ctx, fromID, toID, amount)
}

func lockPair(ctx context.Context, r *userrepo.RepoPGS, firstID, secondID int64) (domain.User, domain.User, error) {
	first, err := r.GetForUpdate(ctx, firstID)
	if err != nil {
		return domain.User{}, domain.User{}, err
	}

	second, err := r.GetForUpdate(ctx, secondID)
	if err != nil {
		return domain.User{}, domain.User{}, err
	}

	return first, second, nil
}

func notFoundOrPassthrough(err error) error {
	if err == domain.ErrUserNotFound {
		return domain.ErrAccountNotFound
	}

	return err
}

const getQuery = `
SELECT
	t.id, t.amount, t.created_at,
	u.id, u.username, u.first_name, u.last_name
FROM transfers t
JOIN users u ON u.id = t.to_user_id
WHERE t.id = $1 AND t.from_user_id = $2
`

// Get returns the transfer with the given id only if the owner participated
// as the sender.
func (r *RepoPGS) Get(ctx context.Context, id, ownerID int64) (domain.TransferItem, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, id, ownerID)

	var item domain.TransferItem

	err := row.Scan(
		&item.ID,
		&item.Amount,
		&item.CreatedAt,
		&item.ToUser.ID,
		&item.ToUser.Username,
		&item.ToUser.FirstName,
		&item.ToUser.LastName,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return item, domain.ErrTransferNotFound
		}

		if dbpkg.IsTransient(err) {
			return item, errorspkg.ErrTransientStore
		}

		return item, errorspkg.ErrInternal
	}

	return item, nil
}

// List returns the transfers matching the conjunctive filter ordered by
// creation time descending, together with the total match count.
func (r *RepoPGS) List(ctx context.Context, filter domain.TransferFilter) ([]domain.TransferItem, int64, error) {
	l := zerolog.Ctx(ctx)

	where, args := buildWhere(filter)

	var total int64

	countQuery := "SELECT count(*) FROM transfers t JOIN users u ON u.id = t.to_user_id " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		l.Error().Err(err).Send()

		if dbpkg.IsTransient(err) {
			return nil, 0, errorspkg.ErrTransientStore
		}

		return nil, 0, errorspkg.ErrInternal
	}

	listQuery := `
SELECT
	t.id, t.amount, t.created_at,
	u.id, u.username, u.first_name, u.last_name
FROM transfers t
JOIN users u ON u.id = t.to_user_id ` + where + `
ORDER BY t.created_at DESC
LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)

	offset := (filter.Page - 1) * filter.Limit
	args = append(args, filter.Limit, offset)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		l.Error().Err(err).Send()

		if dbpkg.IsTransient(err) {
			return nil, 0, errorspkg.ErrTransientStore
		}

		return nil, 0, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.TransferItem{}

	for rows.Next() {
		var item domain.TransferItem
		if err := rows.Scan(
			&item.ID,
			&item.Amount,
			&item.CreatedAt,
			&item.ToUser.ID,
			&item.ToUser.Username,
			&item.ToUser.FirstName,
			&item.ToUser.LastName,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, 0, errorspkg.ErrInternal
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, 0, errorspkg.ErrInternal
	}

	return items, total, nil
}

func buildWhere(filter domain.TransferFilter) (string, []interface{}) {
	conditions := []string{"t.from_user_id = $1"}
	args := []interface{}{filter.FromUserID}

	add := func(condition string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, condition+"$"+strconv.Itoa(len(args)))
	}

	if filter.ToUsername != "" {
		add("u.username = ", filter.ToUsername)
	}

	if filter.ToUserID != 0 {
		add("t.to_user_id = ", filter.ToUserID)
	}

	if filter.MinAmount != "" {
		add("t.amount >= ", filter.MinAmount)
	}

	if filter.MaxAmount != "" {
		add("t.amount <= ", filter.MaxAmount)
	}

	if !filter.StartDate.IsZero() {
		add("t.created_at >= ", filter.StartDate)
	}

	if !filter.EndDate.IsZero() {
		add("t.created_at <= ", filter.EndDate)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}
