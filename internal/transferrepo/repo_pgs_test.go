//go:build integration

package transferrepo_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"

	"github.com/moneta-bank/moneta/internal/domain"
	"github.com/moneta-bank/moneta/internal/integrationtest"
	"github.com/moneta-bank/moneta/internal/integrationtest/helpers"
	"github.com/moneta-bank/moneta/internal/middleware"
	"github.com/moneta-bank/moneta/internal/transferrepo"
	"github.com/moneta-bank/moneta/pkg/configpkg"
	"github.com/moneta-bank/moneta/pkg/dbpkg"

	_ "github.com/lib/pq"
)

var (
	dbDriver string
	dbSource string
	ctx      context.Context
)

func TestMain(m *testing.M) {
	config, err := configpkg.Load("../../configs")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	dbDriver = config.DBDriver
	dbSource = config.DBSource

	logger := middleware.CreateLogger(config)
	ctx = logger.WithContext(context.Background())

	os.Exit(m.Run())
}

func seedTransfer(t *testing.T, db dbpkg.SQLInterface, fromUserID, toUserID int64, amount string) domain.Transfer {
	t.Helper()

	transfer, err := transferrepo.NewTxRepoPGS(db).Create(ctx, fromUserID, toUserID, amount)
	if err != nil {
		t.Fatalf("transferRepo.Create(ctx, %v, %v, %v) returned error: %v", fromUserID, toUserID, amount, err)
	}

	return transfer
}

func TestCreate(t *testing.T) {
	testCases := []struct {
		name    string
		prepare func(tx dbpkg.SQLInterface) (fromUserID, toUserID int64, amount string)
		wantErr error
	}{
		{
			name: "OK",
			prepare: func(tx dbpkg.SQLInterface) (int64, int64, string) {
				user1 := helpers.SeedUser(t, tx)
				user2 := helpers.SeedUser(t, tx)

				return user1.ID, user2.ID, "100.00"
			},
		},
		{
			name: "ErrRecipientNotFound",
			prepare: func(tx dbpkg.SQLInterface) (int64, int64, string) {
				user1 := helpers.SeedUser(t, tx)

				return user1.ID, 0, "100.00"
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name: "ErrSenderNotFound",
			prepare: func(tx dbpkg.SQLInterface) (int64, int64, string) {
				user2 := helpers.SeedUser(t, tx)

				return 0, user2.ID, "100.00"
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name: "ErrInvalidAmount",
			prepare: func(tx dbpkg.SQLInterface) (int64, int64, string) {
				user1 := helpers.SeedUser(t, tx)
				user2 := helpers.SeedUser(t, tx)

				return user1.ID, user2.ID, "0"
			},
			wantErr: domain.ErrInvalidAmount,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tx := integrationtest.SetupTX(t, dbDriver, dbSource)
			fromUserID, toUserID, amount := tc.prepare(tx)

			got, err := transferrepo.NewTxRepoPGS(tx).Create(ctx, fromUserID, toUserID, amount)
			if err != nil {
				if err == tc.wantErr {
					return
				}
				t.Fatalf("transferRepo.Create(ctx, %v, %v, %v) returned error: %v",
					fromUserID, toUserID, amount, err)
			}

			want := domain.Transfer{
				FromUserID: fromUserID,
				ToUserID:   toUserID,
				Amount:     amount,
				CreatedAt:  time.Now().UTC().Truncate(time.Second),
			}

			ignoreFields := cmpopts.IgnoreFields(domain.Transfer{}, "ID")
			compareCreatedAt := cmpopts.EquateApproxTime(time.Second)
			if diff := cmp.Diff(want, got, ignoreFields, compareCreatedAt); diff != "" {
				t.Errorf("transferRepo.Create() returned unexpected difference (-want +got):\n%s", diff)
			}

			if got.ID == 0 {
				t.Error("got.ID = 0, want non-zero")
			}
		})
	}
}

func TestTransferTx(t *testing.T) {
	db := integrationtest.SetupDB(t, dbDriver, dbSource)
	transferRepo := transferrepo.NewRepoPGS(db)

	user1 := helpers.SeedUserWithBalance(t, db, "1000")
	user2 := helpers.SeedUserWithBalance(t, db, "1000")

	arg := domain.CreateTransferParams{
		FromUsername: user1.Username,
		ToUsername:   user2.Username,
		Amount:       "100.00",
	}

	got, err := transferRepo.TransferTx(ctx, arg)
	if err != nil {
		t.Fatalf("transferRepo.TransferTx(ctx, %v) returned error: %v", arg, err)
	}

	if got.Transfer.FromUserID != user1.ID || got.Transfer.ToUserID != user2.ID {
		t.Errorf("got.Transfer = %+v, want from %v to %v", got.Transfer, user1.ID, user2.ID)
	}

	if got.Transfer.Amount != "100.00" {
		t.Errorf("got.Transfer.Amount = %v, want 100.00", got.Transfer.Amount)
	}

	wantFrom := decimal.RequireFromString("900")
	wantTo := decimal.RequireFromString("1100")

	if !decimal.RequireFromString(got.FromUser.Balance).Equal(wantFrom) {
		t.Errorf("got.FromUser.Balance = %v, want %v", got.FromUser.Balance, wantFrom)
	}

	if !decimal.RequireFromString(got.ToUser.Balance).Equal(wantTo) {
		t.Errorf("got.ToUser.Balance = %v, want %v", got.ToUser.Balance, wantTo)
	}
}

func TestTransferTxErrors(t *testing.T) {
	db := integrationtest.SetupDB(t, dbDriver, dbSource)
	transferRepo := transferrepo.NewRepoPGS(db)

	user1 := helpers.SeedUserWithBalance(t, db, "50")
	user2 := helpers.SeedUserWithBalance(t, db, "1000")

	testCases := []struct {
		name    string
		arg     domain.CreateTransferParams
		wantErr error
	}{
		{
			name: "ErrInvalidAmount",
			arg: domain.CreateTransferParams{
				FromUsername: user1.Username,
				ToUsername:   user2.Username,
				Amount:       "-5",
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "ErrSelfTransfer",
			arg: domain.CreateTransferParams{
				FromUsername: user1.Username,
				ToUsername:   user1.Username,
				Amount:       "10",
			},
			wantErr: domain.ErrSelfTransfer,
		},
		{
			name: "ErrSenderNotFound",
			arg: domain.CreateTransferParams{
				FromUsername: "missing",
				ToUsername:   user2.Username,
				Amount:       "10",
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name: "ErrRecipientNotFound",
			arg: domain.CreateTransferParams{
				FromUsername: user1.Username,
				ToUsername:   "missing",
				Amount:       "10",
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name: "ErrInsufficientFunds",
			arg: domain.CreateTransferParams{
				FromUsername: user1.Username,
				ToUsername:   user2.Username,
				Amount:       "50.01",
			},
			wantErr: domain.ErrInsufficientFunds,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			res, err := transferRepo.TransferTx(ctx, tc.arg)
			if err != tc.wantErr {
				t.Fatalf("transferRepo.TransferTx(ctx, %v) error = %v, want %v", tc.arg, err, tc.wantErr)
			}

			if res.Transfer.ID != 0 {
				t.Errorf("res.Transfer.ID = %v, want 0", res.Transfer.ID)
			}
		})
	}

	// No failed attempt may leave a partial write behind.
	gotUser1 := helpers.GetUser(t, db, user1.Username)
	if !decimal.RequireFromString(gotUser1.Balance).Equal(decimal.RequireFromString("50")) {
		t.Errorf("user1 balance = %v, want 50", gotUser1.Balance)
	}

	gotUser2 := helpers.GetUser(t, db, user2.Username)
	if !decimal.RequireFromString(gotUser2.Balance).Equal(decimal.RequireFromString("1000")) {
		t.Errorf("user2 balance = %v, want 1000", gotUser2.Balance)
	}
}

func TestTransferTxConcurrent(t *testing.T) {
	db := integrationtest.SetupDB(t, dbDriver, dbSource)
	transferRepo := transferrepo.NewRepoPGS(db)

	user1 := helpers.SeedUserWithBalance(t, db, "1000")
	user2 := helpers.SeedUserWithBalance(t, db, "1000")

	const n = 10

	errs := make(chan error, 2*n)

	// Opposite-direction transfers between the same pair must not deadlock
	// and the total across both users must be conserved.
	for i := 0; i < n; i++ {
		go func() {
			_, err := transferRepo.TransferTx(ctx, domain.CreateTransferParams{
				FromUsername: user1.Username,
				ToUsername:   user2.Username,
				Amount:       "10.00",
			})
			errs <- err
		}()

		go func() {
			_, err := transferRepo.TransferTx(ctx, domain.CreateTransferParams{
				FromUsername: user2.Username,
				ToUsername:   user1.Username,
				Amount:       "10.00",
			})
			errs <- err
		}()
	}

	for i := 0; i < 2*n; i++ {
		if err := <-errs; err != nil {
			t.Errorf("transferRepo.TransferTx() returned error: %v", err)
		}
	}

	gotUser1 := helpers.GetUser(t, db, user1.Username)
	gotUser2 := helpers.GetUser(t, db, user2.Username)

	if !decimal.RequireFromString(gotUser1.Balance).Equal(decimal.RequireFromString("1000")) {
		t.Errorf("user1 balance = %v, want 1000", gotUser1.Balance)
	}

	if !decimal.RequireFromString(gotUser2.Balance).Equal(decimal.RequireFromString("1000")) {
		t.Errorf("user2 balance = %v, want 1000", gotUser2.Balance)
	}
}

func TestTransferTxDrainsBalance(t *testing.T) {
	db := integrationtest.SetupDB(t, dbDriver, dbSource)
	transferRepo := transferrepo.NewRepoPGS(db)

	user1 := helpers.SeedUserWithBalance(t, db, "50")
	user2 := helpers.SeedUserWithBalance(t, db, "0")

	const n = 10

	errs := make(chan error, n)

	// Ten racing 10.00 transfers against a 50.00 balance: exactly five may
	// commit, the rest must fail without a partial write.
	for i := 0; i < n; i++ {
		go func() {
			_, err := transferRepo.TransferTx(ctx, domain.CreateTransferParams{
				FromUsername: user1.Username,
				ToUsername:   user2.Username,
				Amount:       "10.00",
			})
			errs <- err
		}()
	}

	var failed int

	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			if err != domain.ErrInsufficientFunds {
				t.Errorf("transferRepo.TransferTx() error = %v, want %v", err, domain.ErrInsufficientFunds)
			}
			failed++
		}
	}

	if failed != 5 {
		t.Errorf("failed = %v, want 5", failed)
	}

	gotUser1 := helpers.GetUser(t, db, user1.Username)
	gotUser2 := helpers.GetUser(t, db, user2.Username)

	if !decimal.RequireFromString(gotUser1.Balance).Equal(decimal.Zero) {
		t.Errorf("user1 balance = %v, want 0", gotUser1.Balance)
	}

	if !decimal.RequireFromString(gotUser2.Balance).Equal(decimal.RequireFromString("50")) {
		t.Errorf("user2 balance = %v, want 50", gotUser2.Balance)
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	tx := integrationtest.SetupTX(t, dbDriver, dbSource)
	transferRepo := transferrepo.NewTxRepoPGS(tx)

	user1 := helpers.SeedUser(t, tx)
	user2 := helpers.SeedUser(t, tx)

	transfer := seedTransfer(t, tx, user1.ID, user2.ID, "25.00")

	got, err := transferRepo.Get(ctx, transfer.ID, user1.ID)
	if err != nil {
		t.Fatalf("transferRepo.Get(ctx, %v, %v) returned error: %v", transfer.ID, user1.ID, err)
	}

	want := domain.TransferItem{
		ID: transfer.ID,
		ToUser: domain.RecipientSummary{
			ID:        user2.ID,
			Username:  user2.Username,
			FirstName: user2.FirstName,
			LastName:  user2.LastName,
		},
		Amount:    "25.00",
		CreatedAt: transfer.CreatedAt,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("transferRepo.Get(ctx, %v, %v) returned unexpected difference (-want +got):\n%s",
			transfer.ID, user1.ID, diff)
	}

	// The recipient must not see the transfer through the sender-scoped get.
	if _, err := transferRepo.Get(ctx, transfer.ID, user2.ID); err != domain.ErrTransferNotFound {
		t.Errorf("transferRepo.Get(ctx, %v, %v) error = %v, want %v",
			transfer.ID, user2.ID, err, domain.ErrTransferNotFound)
	}

	if _, err := transferRepo.Get(ctx, 0, user1.ID); err != domain.ErrTransferNotFound {
		t.Errorf("transferRepo.Get(ctx, 0, %v) error = %v, want %v",
			user1.ID, err, domain.ErrTransferNotFound)
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	tx := integrationtest.SetupTX(t, dbDriver, dbSource)
	transferRepo := transferrepo.NewTxRepoPGS(tx)

	sender := helpers.SeedUser(t, tx)
	recipient1 := helpers.SeedUser(t, tx)
	recipient2 := helpers.SeedUser(t, tx)

	for i := 0; i < 8; i++ {
		seedTransfer(t, tx, sender.ID, recipient1.ID, "10.00")
	}

	for i := 0; i < 4; i++ {
		seedTransfer(t, tx, sender.ID, recipient2.ID, "50.00")
	}

	// Transfers sent by someone else never show up.
	seedTransfer(t, tx, recipient1.ID, recipient2.ID, "99.00")

	testCases := []struct {
		name      string
		filter    domain.TransferFilter
		wantLen   int
		wantTotal int64
	}{
		{
			name: "All",
			filter: domain.TransferFilter{
				FromUserID: sender.ID,
				Limit:      20,
				Page:       1,
			},
			wantLen:   12,
			wantTotal: 12,
		},
		{
			name: "FirstPage",
			filter: domain.TransferFilter{
				FromUserID: sender.ID,
				Limit:      5,
				Page:       1,
			},
			wantLen:   5,
			wantTotal: 12,
		},
		{
			name: "LastPage",
			filter: domain.TransferFilter{
				FromUserID: sender.ID,
				Limit:      5,
				Page:       3,
			},
			wantLen:   2,
			wantTotal: 12,
		},
		{
			name: "PageBeyondEnd",
			filter: domain.TransferFilter{
				FromUserID: sender.ID,
				Limit:      5,
				Page:       4,
			},
			wantLen:   0,
			wantTotal: 12,
		},
		{
			name: "ByRecipientUsername",
			filter: domain.TransferFilter{
				FromUserID: sender.ID,
				ToUsername: recipient2.Username,
				Limit:      20,
				Page:       1,
			},
			wantLen:   4,
			wantTotal: 4,
		},
		{
			name: "ByRecipientID",
			filter: domain.TransferFilter{
				FromUserID: sender.ID,
				ToUserID:   recipient1.ID,
				Limit:      20,
				Page:       1,
			},
			wantLen:   8,
			wantTotal: 8,
		},
		{
			name: "ByAmountRange",
			filter: domain.TransferFilter{
				FromUserID: sender.ID,
				MinAmount:  "20",
				MaxAmount:  "60",
				Limit:      20,
				Page:       1,
			},
			wantLen:   4,
			wantTotal: 4,
		},
		{
			name: "ByDateRange",
			filter: domain.TransferFilter{
				FromUserID: sender.ID,
				StartDate:  time.Now().Add(-time.Hour).UTC(),
				EndDate:    time.Now().Add(time.Hour).UTC(),
				Limit:      20,
				Page:       1,
			},
			wantLen:   12,
			wantTotal: 12,
		},
		{
			name: "ByDateRangeInThePast",
			filter: domain.TransferFilter{
				FromUserID: sender.ID,
				EndDate:    time.Now().Add(-time.Hour).UTC(),
				Limit:      20,
				Page:       1,
			},
			wantLen:   0,
			wantTotal: 0,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			items, total, err := transferRepo.List(ctx, tc.filter)
			if err != nil {
				t.Fatalf("transferRepo.List(ctx, %+v) returned error: %v", tc.filter, err)
			}

			if len(items) != tc.wantLen {
				t.Errorf("len(items) = %v, want %v", len(items), tc.wantLen)
			}

			if total != tc.wantTotal {
				t.Errorf("total = %v, want %v", total, tc.wantTotal)
			}

			for j := 1; j < len(items); j++ {
				if items[j].CreatedAt.After(items[j-1].CreatedAt) {
					t.Errorf("items[%d].CreatedAt = %v after items[%d].CreatedAt = %v, want descending",
						j, items[j].CreatedAt, j-1, items[j-1].CreatedAt)
				}
			}
		})
	}
}
