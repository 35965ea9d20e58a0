// Package ledger defines the contracts the rest of the system uses to
// reach account state. The store implementations (memory, postgres) are
// the only code permitted to mutate balances.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"securebank/internal/domain"
)

var (
	// ErrAccountNotFound is returned for lookups of unknown account
	// numbers. It is a result, not an exceptional condition.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidParams covers non-positive amounts, missing
	// counterparties, self-transfers and negative limits. A request
	// failing with it is guaranteed to have left the ledger untouched.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrWriteFailed wraps storage-level failures of a ledger write.
	// The write is all-or-nothing: on this error no balance moved and
	// no transaction row exists.
	ErrWriteFailed = errors.New("ledger write failed")
)

// DefaultHistoryLimit applies when a caller passes limit 0 to
// ListTransactions.
const DefaultHistoryLimit = 10

// Store owns accounts and the append-only transaction log.
//
// RecordTransaction applies the balance mutation and the transaction
// insert atomically: concurrent calls touching the same account must
// serialize, so the conservation invariant (transfers are zero-sum,
// total balance changes only by net deposits minus withdrawals) holds
// under arbitrary interleavings. Balances are allowed to go negative;
// overdraft policy, if any, belongs to the caller.
type Store interface {
	// CreateAccount allocates the next unused account number above all
	// existing ones and returns the new account.
	CreateAccount(ctx context.Context, owner string, initialBalance decimal.Decimal) (domain.Account, error)

	GetAccount(ctx context.Context, number string) (domain.Account, error)

	// ListTransactions returns transactions where number is the source
	// or the destination, most recent first, truncated to limit
	// (0 means DefaultHistoryLimit; negative is ErrInvalidParams).
	ListTransactions(ctx context.Context, number string, limit int) ([]domain.Transaction, error)

	// RecordTransaction moves money and appends exactly one row.
	// transfer debits from and credits to; withdrawal debits from;
	// deposit credits from. to must be empty except for transfers.
	RecordTransaction(ctx context.Context, from, to string, amount decimal.Decimal, kind domain.TxKind, description string) (int64, error)
}

// ProfileReader is the customer-profile collaborator, external to the
// ledger core. Missing profiles surface as ErrAccountNotFound.
type ProfileReader interface {
	GetProfile(ctx context.Context, number string) (domain.Profile, error)
}

// ValidateRecord performs the parameter checks shared by every Store
// implementation. It does not look at account existence.
func ValidateRecord(from, to string, amount decimal.Decimal, kind domain.TxKind) error {
	if from == "" || !amount.IsPositive() {
		return ErrInvalidParams
	}
	switch kind {
	case domain.KindTransfer:
		if to == "" || to == from {
			return ErrInvalidParams
		}
	case domain.KindWithdrawal, domain.KindDeposit:
		if to != "" {
			return ErrInvalidParams
		}
	default:
		return ErrInvalidParams
	}
	return nil
}
