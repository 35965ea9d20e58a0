// Package auth is the demo login surface around the core. It issues JWT
// session tokens but nothing in the sandbox enforces them on the data
// endpoints; that laxity is part of the exercise, not an oversight.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"securebank/internal/domain"
	"securebank/internal/ledger"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
)

// startingBalance matches the sandbox's registration bonus.
var startingBalance = decimal.NewFromInt(1000)

const tokenTTL = 24 * time.Hour

// UserStore persists login identities. Both ledger backends provide it.
type UserStore interface {
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
}

// ProfileWriter seeds the default customer-profile row for new signups.
type ProfileWriter interface {
	CreateProfile(ctx context.Context, p domain.Profile) error
}

type Service struct {
	users    UserStore
	store    ledger.Store
	profiles ProfileWriter
	secret   []byte
}

func New(users UserStore, store ledger.Store, profiles ProfileWriter, secret string) *Service {
	return &Service{users: users, store: store, profiles: profiles, secret: []byte(secret)}
}

// Register creates the user, their ledger account with the starting
// balance, and a default profile row.
func (s *Service) Register(ctx context.Context, username, password, email string) (domain.User, error) {
	if username == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return domain.User{}, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	acct, err := s.store.CreateAccount(ctx, username, startingBalance)
	if err != nil {
		return domain.User{}, err
	}

	u, err := s.users.CreateUser(ctx, domain.User{
		Username:      username,
		PasswordHash:  string(hash),
		Email:         email,
		AccountNumber: acct.Number,
	})
	if err != nil {
		return domain.User{}, err
	}

	if s.profiles != nil {
		_ = s.profiles.CreateProfile(ctx, domain.Profile{
			AccountNumber: acct.Number,
			SSN:           "000-00-0000",
			CreditScore:   600,
			LoanHistory:   "New customer",
			Notes:         "Standard account",
		})
	}
	return u, nil
}

// Login verifies the password and returns the user plus a signed token.
func (s *Service) Login(ctx context.Context, username, password string) (domain.User, string, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return domain.User{}, "", ErrInvalidCredentials
	}

	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     u.Username,
		"account": u.AccountNumber,
		"jti":     uuid.NewString(),
		"iat":     now.Unix(),
		"exp":     now.Add(tokenTTL).Unix(),
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("sign token: %w", err)
	}
	return u, signed, nil
}

// ParseToken validates a session token and returns the username it was
// issued to. Currently only bankctl uses it; the HTTP API stays open.
func (s *Service) ParseToken(tokenString string) (string, error) {
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return "", ErrInvalidCredentials
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidCredentials
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrInvalidCredentials
	}
	return sub, nil
}
