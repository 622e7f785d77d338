// Package helpers provides seeding helpers used in integration tests.
package helpers

import (
	"context"
	"testing"

	"github.com/moneta-bank/moneta/internal/domain"
	"github.com/moneta-bank/moneta/internal/userrepo"
	"github.com/moneta-bank/moneta/pkg/dbpkg"
	"github.com/moneta-bank/moneta/pkg/passpkg"
	"github.com/moneta-bank/moneta/pkg/randompkg"
)

// SeedUser creates a random user with a 1000 balance.
func SeedUser(t *testing.T, db dbpkg.SQLInterface) domain.User {
	t.Helper()

	return SeedUserWithBalance(t, db, "1000")
}

// SeedUserWithBalance creates a random user with the given balance.
func SeedUserWithBalance(t *testing.T, db dbpkg.SQLInterface, balance string) domain.User {
	t.Helper()

	hashedPassword, err := passpkg.Hash(randompkg.String(10))
	if err != nil {
		t.Fatalf("passpkg.Hash() returned error: %v", err)
	}

	arg := domain.CreateUserParams{
		Username:       randompkg.Username(),
		Email:          randompkg.Email(),
		FirstName:      randompkg.Name(),
		LastName:       randompkg.Name(),
		HashedPassword: hashedPassword,
		Balance:        balance,
	}

	user, err := userrepo.NewRepoPGS(db).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("userRepo.Create(context.Background(), %v) returned error: %v", arg, err)
	}

	return user
}

// GetUser reads the user with the given username.
func GetUser(t *testing.T, db dbpkg.SQLInterface, username string) domain.User {
	t.Helper()

	user, err := userrepo.NewRepoPGS(db).Get(context.Background(), username)
	if err != nil {
		t.Fatalf("userRepo.Get(context.Background(), %v) returned error: %v", username, err)
	}

	return user
}
