package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxKind classifies a ledger transaction. Naming convention: "from" is
// always the account whose balance changes primarily, so a deposit
// credits its from account and carries no to account.
type TxKind string

const (
	KindTransfer   TxKind = "transfer"
	KindWithdrawal TxKind = "withdrawal"
	KindDeposit    TxKind = "deposit"
)

// TxStatus is the terminal state recorded with each transaction row.
type TxStatus string

const (
	StatusCompleted TxStatus = "completed"
	StatusFailed    TxStatus = "failed"
)

// Account is a ledger account. Balance is fixed-point decimal; binary
// floats are never used for money anywhere in this codebase.
type Account struct {
	Number    string          `json:"account_number"`
	Owner     string          `json:"owner"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// Transaction is an immutable ledger record. Once recorded it is never
// mutated or deleted; IDs are monotonic per store.
type Transaction struct {
	ID          int64           `json:"id"`
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        TxKind          `json:"type"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"timestamp"`
	Status      TxStatus        `json:"status"`
}

// Profile is the customer-profile collaborator record. Read-only from
// the core's point of view.
type Profile struct {
	AccountNumber string `json:"account_number"`
	SSN           string `json:"ssn"`
	CreditScore   int    `json:"credit_score"`
	LoanHistory   string `json:"loan_history"`
	Notes         string `json:"personal_notes"`
}

// User is a demo login identity bound to one ledger account. The hash
// never leaves the process; everything else is sandbox data.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	Email         string    `json:"email"`
	AccountNumber string    `json:"account_number"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChatRequest is the inbound conversational payload. Field names are a
// compatibility contract with existing clients.
type ChatRequest struct {
	Message     string `json:"message"`
	UserAccount string `json:"user_account"`
}

// ChatResponse mirrors the original wire shape: action_taken is null
// when the message produced no banking action.
type ChatResponse struct {
	Success     bool    `json:"success"`
	Response    string  `json:"response"`
	ActionTaken *string `json:"action_taken"`
}

// TransactionRequest is the direct (non-conversational) transaction
// endpoint payload.
type TransactionRequest struct {
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        TxKind          `json:"transaction_type"`
	Description string          `json:"description"`
}

type TransactionResponse struct {
	Success       bool  `json:"success"`
	TransactionID int64 `json:"transaction_id"`
}

type AccountResponse struct {
	Success bool    `json:"success"`
	Account Account `json:"account"`
}

type TransactionsResponse struct {
	Success      bool          `json:"success"`
	Transactions []Transaction `json:"transactions"`
}

type ProfileResponse struct {
	Success bool    `json:"success"`
	Data    Profile `json:"data"`
}
