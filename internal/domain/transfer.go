package domain

import (
	"errors"
	"time"
)

var (
	// ErrInvalidAmount indicates a zero, negative, or unparsable transfer amount.
	ErrInvalidAmount = errors.New("transfer amount must be greater than zero")
	// ErrSelfTransfer indicates a transfer where sender and recipient are the same user.
	ErrSelfTransfer = errors.New("cannot transfer to yourself")
	// ErrAccountNotFound indicates that the sender or the recipient does not exist.
	ErrAccountNotFound = errors.New("sender or recipient not found")
	// ErrInsufficientFunds indicates that the sender balance does not cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrTransferNotFound indicates that the transfer is not found for the given sender.
	ErrTransferNotFound = errors.New("transfer not found")
	// ErrInvalidFilter indicates that both recipient filters are set.
	ErrInvalidFilter = errors.New("provide either to_username or to_user_id")
	// ErrInvalidAmountRange indicates that max_amount is less than min_amount.
	ErrInvalidAmountRange = errors.New("max_amount must be greater than or equal to min_amount")
	// ErrInvalidDateRange indicates that end_date is earlier than start_date.
	ErrInvalidDateRange = errors.New("end_date must be greater than or equal to start_date")
)

// Transfer holds an immutable ledger entry for a completed balance movement.
type Transfer struct {
	ID         int64     `json:"id"`
	FromUserID int64     `json:"from_user_id"`
	ToUserID   int64     `json:"to_user_id"`
	Amount     string    `json:"amount"` // always positive
	CreatedAt  time.Time `json:"created_at"`
}

// CreateTransferParams is the input data for the transfer transaction.
type CreateTransferParams struct {
	FromUsername string `json:"from_username"`
	ToUsername   string `json:"to_username"`
	Amount       string `json:"amount"`
}

// TransferTxResult is the committed result of the transfer transaction with
// both post-commit user rows.
type TransferTxResult struct {
	Transfer Transfer `json:"transfer"`
	FromUser User     `json:"from_user"`
	ToUser   User     `json:"to_user"`
}

// TransferResult is the sanitized transfer response: the sender sees the own
// new balance but not the recipient's.
type TransferResult struct {
	ID        int64               `json:"id"`
	FromUser  UserWithoutPassword `json:"from_user"`
	ToUser    UserProfile         `json:"to_user"`
	Amount    string              `json:"amount"`
	CreatedAt time.Time           `json:"created_at"`
}

// RecipientSummary is the recipient projection exposed in transfer lists.
type RecipientSummary struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// TransferItem is a single row of a transfer list or an owner-scoped get.
type TransferItem struct {
	ID        int64            `json:"id"`
	ToUser    RecipientSummary `json:"to_user"`
	Amount    string           `json:"amount"`
	CreatedAt time.Time        `json:"created_at"`
}

// TransferFilter holds the conjunctive filters for listing transfers.
// Zero values mean the filter is not set; FromUserID is always set by the
// service to the calling user.
type TransferFilter struct {
	FromUserID int64     `json:"from_user_id"`
	ToUsername string    `json:"to_username"`
	ToUserID   int64     `json:"to_user_id"`
	MinAmount  string    `json:"min_amount"`
	MaxAmount  string    `json:"max_amount"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Limit      int32     `json:"limit"`
	Page       int32     `json:"page"`
}

// PageMeta describes the pagination of a transfer list response.
type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int32 `json:"page"`
	Limit      int32 `json:"limit"`
	TotalPages int64 `json:"total_pages"`
}
