// Package store is the Postgres ledger backend. Every write runs in one
// pgx transaction with per-account advisory locks taken in sorted
// order, so the balance mutation and the transaction insert commit
// together or not at all and same-account writes serialize without
// deadlocking each other.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"securebank/internal/domain"
	"securebank/internal/ledger"
)

type Store struct {
	db *pgxpool.Pool
}

var _ ledger.Store = (*Store)(nil)
var _ ledger.ProfileReader = (*Store)(nil)

func New(db *pgxpool.Pool) *Store { return &Store{db: db} }

type ctxKey struct{}

// WithCorrelationID stamps the request's correlation id into ctx; event
// log rows written during the request carry it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func correlationID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// jcsPayload returns regular JSON bytes (cast to jsonb in SQL) plus the
// RFC 8785 canonical form stored alongside them.
func jcsPayload(v any) (payloadJSON json.RawMessage, payloadCanonical string, err error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, "", err
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return nil, "", err
	}
	return raw, string(canon), nil
}

// insertEvent is the single entry point for event_log appends.
func insertEvent(ctx context.Context, tx pgx.Tx, eventType, aggregateType, aggregateID string, payload any) error {
	payloadJSON, payloadCanonical, err := jcsPayload(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO event_log(
			event_id, event_type, aggregate_type, aggregate_id, correlation_id, payload_json, payload_canonical
		) VALUES($1,$2,$3,$4,$5,$6::jsonb,$7)`,
		uuid.NewString(), eventType, aggregateType, aggregateID, correlationID(ctx), payloadJSON, payloadCanonical,
	)
	return err
}

type accountCreatedPayload struct {
	Number  string `json:"account_number"`
	Owner   string `json:"owner"`
	Balance string `json:"balance"`
}

type transactionRecordedPayload struct {
	TxID   int64  `json:"tx_id"`
	From   string `json:"from"`
	To     string `json:"to,omitempty"`
	Amount string `json:"amount"`
	Kind   string `json:"kind"`
}

// lockAccounts takes advisory xact locks keyed by account number, in
// sorted order so two transfers touching the same pair cannot deadlock.
func lockAccounts(ctx context.Context, tx pgx.Tx, numbers ...string) error {
	sorted := append([]string(nil), numbers...)
	sort.Strings(sorted)
	for _, n := range sorted {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('account:' || $1))`, n); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, owner string, initialBalance decimal.Decimal) (domain.Account, error) {
	if initialBalance.IsNegative() {
		return domain.Account{}, ledger.ErrInvalidParams
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	if err != nil {
		return domain.Account{}, fmt.Errorf("%w: %v", ledger.ErrWriteFailed, err)
	}
	defer tx.Rollback(ctx)

	// serialize number allocation
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('account_alloc'))`); err != nil {
		return domain.Account{}, fmt.Errorf("%w: %v", ledger.ErrWriteFailed, err)
	}

	acct := domain.Account{Owner: owner, Balance: initialBalance}
	err = tx.QueryRow(ctx,
		`INSERT INTO accounts(number, owner, balance)
		 SELECT (COALESCE(MAX(number::bigint), 1000) + 1)::text, $1, $2::numeric FROM accounts
		 RETURNING number, created_at`,
		owner, initialBalance.String(),
	).Scan(&acct.Number, &acct.CreatedAt)
	if err != nil {
		return domain.Account{}, fmt.Errorf("%w: %v", ledger.ErrWriteFailed, err)
	}

	payload := accountCreatedPayload{Number: acct.Number, Owner: owner, Balance: initialBalance.String()}
	if err := insertEvent(ctx, tx, "ACCOUNT_CREATED", "ACCOUNT", acct.Number, payload); err != nil {
		return domain.Account{}, fmt.Errorf("%w: %v", ledger.ErrWriteFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Account{}, fmt.Errorf("%w: %v", ledger.ErrWriteFailed, err)
	}
	return acct, nil
}

func (s *Store) GetAccount(ctx context.Context, number string) (domain.Account, error) {
	var (
		acct    domain.Account
		balance string
	)
	err := s.db.QueryRow(ctx,
		`SELECT number, owner, balance::text, created_at FROM accounts WHERE number=$1`,
		number,
	).Scan(&acct.Number, &acct.Owner, &balance, &acct.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ledger.ErrAccountNotFound
		}
		return domain.Account{}, err
	}
	acct.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return domain.Account{}, err
	}
	return acct, nil
}

func (s *Store) ListTransactions(ctx context.Context, number string, limit int) ([]domain.Transaction, error) {
	if limit < 0 {
		return nil, ledger.ErrInvalidParams
	}
	if limit == 0 {
		limit = ledger.DefaultHistoryLimit
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, from_account, COALESCE(to_account, ''), amount::text, kind, description, created_at, status
		   FROM transactions
		  WHERE from_account=$1 OR to_account=$1
		  ORDER BY created_at DESC, id DESC
		  LIMIT $2`,
		number, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var (
			tx     domain.Transaction
			amount string
		)
		if err := rows.Scan(&tx.ID, &tx.FromAccount, &tx.ToAccount, &amount, &tx.Kind, &tx.Description, &tx.CreatedAt, &tx.Status); err != nil {
			return nil, err
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) RecordTransaction(ctx context.Context, from, to string, amount decimal.Decimal, kind domain.TxKind, description string) (int64, error) {
	if err := ledger.ValidateRecord(from, to, amount, kind); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ledger.ErrWriteFailed, err)
	}
	defer tx.Rollback(ctx)

	accounts := []string{from}
	if kind == domain.KindTransfer {
		accounts = append(accounts, to)
	}
	if err := lockAccounts(ctx, tx, accounts...); err != nil {
		return 0, fmt.Errorf("%w: %v", ledger.ErrWriteFailed, err)
	}

	switch kind {
	case domain.KindTransfer:
		if err := adjust(ctx, tx, from, amount.Neg()); err != nil {
			return 0, err
		}
		if err := adjust(ctx, tx, to, amount); err != nil {
			return 0, err
		}
	case domain.KindWithdrawal:
		if err := adjust(ctx, tx, from, amount.Neg()); err != nil {
			return 0, err
		}
	case domain.KindDeposit:
		if err := adjust(ctx, tx, from, amount); err != nil {
			return 0, err
		}
	}

	var toCol any
	if to != "" {
		toCol = to
	}
	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO transactions(from_account, to_account, amount, kind, description, status)
		 VALUES($1,$2,$3::numeric,$4,$5,$6)
		 RETURNING id`,
		from, toCol, amount.String(), kind, description, domain.StatusCompleted,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ledger.ErrWriteFailed, err)
	}

	payload := transactionRecordedPayload{TxID: id, From: from, To: to, Amount: amount.String(), Kind: string(kind)}
	if err := insertEvent(ctx, tx, "TRANSACTION_RECORDED", "LEDGER_TX", fmt.Sprint(id), payload); err != nil {
		return 0, fmt.Errorf("%w: %v", ledger.ErrWriteFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ledger.ErrWriteFailed, err)
	}
	return id, nil
}

// adjust applies a signed delta to one balance. Zero rows affected
// means the account does not exist.
func adjust(ctx context.Context, tx pgx.Tx, number string, delta decimal.Decimal) error {
	tag, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1::numeric WHERE number=$2`,
		delta.String(), number,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrWriteFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, number string) (domain.Profile, error) {
	var p domain.Profile
	err := s.db.QueryRow(ctx,
		`SELECT account_number, ssn, credit_score, loan_history, personal_notes
		   FROM customer_profiles WHERE account_number=$1`,
		number,
	).Scan(&p.AccountNumber, &p.SSN, &p.CreditScore, &p.LoanHistory, &p.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Profile{}, ledger.ErrAccountNotFound
		}
		return domain.Profile{}, err
	}
	return p, nil
}

func (s *Store) CreateProfile(ctx context.Context, p domain.Profile) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO customer_profiles(account_number, ssn, credit_score, loan_history, personal_notes)
		 VALUES($1,$2,$3,$4,$5)
		 ON CONFLICT (account_number) DO UPDATE
		 SET ssn=EXCLUDED.ssn, credit_score=EXCLUDED.credit_score,
		     loan_history=EXCLUDED.loan_history, personal_notes=EXCLUDED.personal_notes`,
		p.AccountNumber, p.SSN, p.CreditScore, p.LoanHistory, p.Notes,
	)
	if err != nil {
		if isFKViolation(err) {
			return ledger.ErrAccountNotFound
		}
		return err
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	err := s.db.QueryRow(ctx,
		`INSERT INTO users(username, password_hash, email, account_number)
		 VALUES($1,$2,$3,$4)
		 RETURNING id, created_at`,
		u.Username, u.PasswordHash, u.Email, u.AccountNumber,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, ledger.ErrInvalidParams
		}
		return domain.User{}, err
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRow(ctx,
		`SELECT id, username, password_hash, email, account_number, created_at
		   FROM users WHERE username=$1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.AccountNumber, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ledger.ErrAccountNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

// ListUsers returns every demo identity.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, username, email, account_number, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.AccountNumber, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// RawQuery executes arbitrary SQL and returns rows as maps. It backs
// the sandbox's intentionally unsafe query endpoint; nothing else may
// call it.
func (s *Store) RawQuery(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		record := make(map[string]any, len(fields))
		for i, fd := range fields {
			record[fd.Name] = values[i]
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// Backup dumps every table, mirroring the demo admin endpoint.
func (s *Store) Backup(ctx context.Context) (map[string]any, error) {
	out := make(map[string]any, 4)
	for name, query := range map[string]string{
		"accounts":      `SELECT number, owner, balance::text AS balance, created_at FROM accounts ORDER BY number`,
		"transactions":  `SELECT id, from_account, to_account, amount::text AS amount, kind, description, created_at, status FROM transactions ORDER BY id`,
		"customer_data": `SELECT account_number, ssn, credit_score, loan_history, personal_notes FROM customer_profiles ORDER BY account_number`,
		"users":         `SELECT id, username, email, account_number, created_at FROM users ORDER BY id`,
	} {
		rows, err := s.RawQuery(ctx, query)
		if err != nil {
			return nil, err
		}
		out[name] = rows
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
