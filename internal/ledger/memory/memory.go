// Package memory is the default, dependency-free ledger backend for the
// sandbox. A single mutex serializes every state change, so a transfer's
// two balance mutations and its log append form one critical section and
// are never individually observable.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"securebank/internal/domain"
	"securebank/internal/ledger"
)

// startingNumber seeds account allocation; the first account created in
// an empty store is 1001, matching the sandbox's canonical fixtures.
const startingNumber = 1000

type Store struct {
	mu         sync.Mutex
	accounts   map[string]*domain.Account
	txs        []domain.Transaction
	profiles   map[string]domain.Profile
	users      map[string]domain.User
	lastNumber int64
	nextTxID   int64
	nextUserID int64
}

var _ ledger.Store = (*Store)(nil)
var _ ledger.ProfileReader = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts:   make(map[string]*domain.Account),
		profiles:   make(map[string]domain.Profile),
		users:      make(map[string]domain.User),
		lastNumber: startingNumber,
	}
}

func (s *Store) CreateAccount(ctx context.Context, owner string, initialBalance decimal.Decimal) (domain.Account, error) {
	if initialBalance.IsNegative() {
		return domain.Account{}, ledger.ErrInvalidParams
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastNumber++
	a := &domain.Account{
		Number:    strconv.FormatInt(s.lastNumber, 10),
		Owner:     owner,
		Balance:   initialBalance,
		CreatedAt: time.Now().UTC(),
	}
	s.accounts[a.Number] = a
	return *a, nil
}

func (s *Store) GetAccount(ctx context.Context, number string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[number]
	if !ok {
		return domain.Account{}, ledger.ErrAccountNotFound
	}
	return *a, nil
}

func (s *Store) ListTransactions(ctx context.Context, number string, limit int) ([]domain.Transaction, error) {
	if limit < 0 {
		return nil, ledger.ErrInvalidParams
	}
	if limit == 0 {
		limit = ledger.DefaultHistoryLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// txs is append-only in creation order; walk backwards for
	// most-recent-first.
	out := make([]domain.Transaction, 0, limit)
	for i := len(s.txs) - 1; i >= 0 && len(out) < limit; i-- {
		tx := s.txs[i]
		if tx.FromAccount == number || tx.ToAccount == number {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) RecordTransaction(ctx context.Context, from, to string, amount decimal.Decimal, kind domain.TxKind, description string) (int64, error) {
	if err := ledger.ValidateRecord(from, to, amount, kind); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.accounts[from]
	if !ok {
		return 0, ledger.ErrAccountNotFound
	}

	switch kind {
	case domain.KindTransfer:
		dst, ok := s.accounts[to]
		if !ok {
			return 0, ledger.ErrAccountNotFound
		}
		src.Balance = src.Balance.Sub(amount)
		dst.Balance = dst.Balance.Add(amount)
	case domain.KindWithdrawal:
		src.Balance = src.Balance.Sub(amount)
	case domain.KindDeposit:
		src.Balance = src.Balance.Add(amount)
	}

	s.nextTxID++
	tx := domain.Transaction{
		ID:          s.nextTxID,
		FromAccount: from,
		ToAccount:   to,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		Status:      domain.StatusCompleted,
	}
	s.txs = append(s.txs, tx)
	return tx.ID, nil
}

func (s *Store) GetProfile(ctx context.Context, number string) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[number]
	if !ok {
		return domain.Profile{}, ledger.ErrAccountNotFound
	}
	return p, nil
}

// CreateProfile registers collaborator data for an account. Used by
// seeding and registration, not by the core.
func (s *Store) CreateProfile(ctx context.Context, p domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[p.AccountNumber]; !ok {
		return ledger.ErrAccountNotFound
	}
	s.profiles[p.AccountNumber] = p
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.Username]; ok {
		return domain.User{}, ledger.ErrInvalidParams
	}
	s.nextUserID++
	u.ID = s.nextUserID
	u.CreatedAt = time.Now().UTC()
	s.users[u.Username] = u
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return domain.User{}, ledger.ErrAccountNotFound
	}
	return u, nil
}

// ListUsers returns every demo identity, hashes excluded by the User
// JSON contract.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Backup dumps the whole sandbox state. Mirrors the original demo's
// admin backup endpoint; nothing here is secret by design.
func (s *Store) Backup(ctx context.Context) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, *a)
	}
	profiles := make([]domain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}
	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	txs := make([]domain.Transaction, len(s.txs))
	copy(txs, s.txs)

	return map[string]any{
		"accounts":      accounts,
		"transactions":  txs,
		"customer_data": profiles,
		"users":         users,
	}, nil
}
