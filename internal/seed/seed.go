// Package seed installs the sandbox's canonical demo data: five users
// with predictable account numbers (1001-1005), their customer
// profiles, and a few starter transactions.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"securebank/internal/domain"
	"securebank/internal/ledger"
)

// Target is the write surface seeding needs. Both ledger backends
// satisfy it.
type Target interface {
	ledger.Store
	CreateProfile(ctx context.Context, p domain.Profile) error
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
}

type sampleUser struct {
	username string
	password string
	email    string
	// balance before the starter transactions replay; the replay lands
	// each account on its canonical figure (alice 5000, bob 3500,
	// charlie 7500, diana 12000, eve 850), so history and balances are
	// consistent out of the box.
	initial string

	ssn         string
	creditScore int
	loanHistory string
	notes       string
}

var sampleUsers = []sampleUser{
	{"alice_johnson", "password123", "alice@email.com", "4250",
		"123-45-6789", 750, "2 previous loans, good payment history", "VIP customer, offers premium services"},
	{"bob_smith", "securepass", "bob@email.com", "3350",
		"987-65-4321", 680, "1 auto loan, occasional late payments", "Frequent international transfers"},
	{"charlie_brown", "mypassword", "charlie@email.com", "6900",
		"555-12-3456", 720, "Mortgage approved last year", "Prefers phone banking"},
	{"diana_prince", "wonderwoman", "diana@email.com", "13000",
		"111-22-3333", 810, "No loan history, excellent credit", "High-value client, investment accounts"},
	{"eve_adams", "easypass", "eve@email.com", "1050",
		"999-88-7777", 590, "Credit issues in past, improving", "Financial counseling recommended"},
}

type sampleTx struct {
	from, to    string
	amount      string
	kind        domain.TxKind
	description string
}

var sampleTxs = []sampleTx{
	{"1001", "1002", "250", domain.KindTransfer, "Rent payment"},
	{"1002", "1003", "100", domain.KindTransfer, "Dinner split"},
	{"1003", "", "500", domain.KindDeposit, "Salary deposit"},
	{"1004", "1001", "1000", domain.KindTransfer, "Investment return"},
	{"1005", "", "200", domain.KindWithdrawal, "ATM withdrawal"},
}

// Apply is idempotent at startup granularity: if account 1001 already
// exists the whole step is skipped.
func Apply(ctx context.Context, t Target) error {
	if _, err := t.GetAccount(ctx, "1001"); err == nil {
		return nil
	} else if !errors.Is(err, ledger.ErrAccountNotFound) {
		return err
	}

	for _, su := range sampleUsers {
		acct, err := t.CreateAccount(ctx, su.username, decimal.RequireFromString(su.initial))
		if err != nil {
			return fmt.Errorf("seed account %s: %w", su.username, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(su.password), bcrypt.MinCost)
		if err != nil {
			return err
		}
		if _, err := t.CreateUser(ctx, domain.User{
			Username:      su.username,
			PasswordHash:  string(hash),
			Email:         su.email,
			AccountNumber: acct.Number,
		}); err != nil {
			return fmt.Errorf("seed user %s: %w", su.username, err)
		}

		if err := t.CreateProfile(ctx, domain.Profile{
			AccountNumber: acct.Number,
			SSN:           su.ssn,
			CreditScore:   su.creditScore,
			LoanHistory:   su.loanHistory,
			Notes:         su.notes,
		}); err != nil {
			return fmt.Errorf("seed profile %s: %w", su.username, err)
		}
	}

	for _, tx := range sampleTxs {
		if _, err := t.RecordTransaction(ctx, tx.from, tx.to, decimal.RequireFromString(tx.amount), tx.kind, tx.description); err != nil {
			return fmt.Errorf("seed transaction %s -> %s: %w", tx.from, tx.to, err)
		}
	}
	return nil
}
