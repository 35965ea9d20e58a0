// Package httpapi exposes the sandbox over HTTP. The data endpoints are
// deliberately unauthenticated and the query/backup endpoints are
// deliberately unsafe; tightening them would defeat the purpose of the
// deployment.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"securebank/internal/auth"
	"securebank/internal/domain"
	"securebank/internal/executor"
	"securebank/internal/ledger"
	"securebank/internal/store"
)

// RawQuerier is implemented only by the Postgres backend. The memory
// backend answers 501 on the query endpoint.
type RawQuerier interface {
	RawQuery(ctx context.Context, query string) ([]map[string]any, error)
}

// Backuper dumps every table. Both backends implement it.
type Backuper interface {
	Backup(ctx context.Context) (map[string]any, error)
}

// UserLister enumerates every registered user. Both backends implement
// it.
type UserLister interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
}

type Handlers struct {
	st       ledger.Store
	profiles ledger.ProfileReader
	dispatch *executor.Dispatcher
	auth     *auth.Service
	log      *zap.SugaredLogger
}

func NewHandlers(st ledger.Store, profiles ledger.ProfileReader, dispatch *executor.Dispatcher, authSvc *auth.Service, log *zap.SugaredLogger) *Handlers {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handlers{st: st, profiles: profiles, dispatch: dispatch, auth: authSvc, log: log}
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func httpStatusForErr(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ledger.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusConflict

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout

	default:
		return http.StatusInternalServerError
	}
}

func publicErrMessage(code int, err error) string {
	// Don't leak internals on 5xx.
	if code >= 500 {
		return "internal error"
	}
	return err.Error()
}

// requestContext attaches a deadline plus the correlation id that the
// event log picks up on Postgres writes.
func requestContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	corr := r.Header.Get("X-Correlation-Id")
	if corr == "" {
		corr = uuid.NewString()
	}
	ctx := store.WithCorrelationID(r.Context(), corr)
	return context.WithTimeout(ctx, timeout)
}

// actionTaken maps the dispatcher's empty string to JSON null, which is
// what chat clients expect when no banking action happened.
func actionTaken(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (h *Handlers) chat(w http.ResponseWriter, r *http.Request, strategy executor.Strategy) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req domain.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.UserAccount) == "" {
		writeErr(w, http.StatusBadRequest, "user_account is required")
		return
	}

	ctx, cancel := requestContext(r, 30*time.Second)
	defer cancel()

	caller := domain.User{AccountNumber: req.UserAccount}
	res := h.dispatch.Handle(ctx, req.Message, req.UserAccount, caller, strategy)

	writeJSON(w, http.StatusOK, domain.ChatResponse{
		Success:     res.Success,
		Response:    res.Response,
		ActionTaken: actionTaken(res.ActionTaken),
	})
}

// POST /api/chat
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	h.chat(w, r, executor.StrategyRules)
}

// POST /api/assistant/chat
func (h *Handlers) AssistantChat(w http.ResponseWriter, r *http.Request) {
	h.chat(w, r, executor.StrategyPlanner)
}

// GET /api/account/{number}
func (h *Handlers) GetAccountByPath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	number := strings.TrimPrefix(r.URL.Path, "/api/account/")
	if number == "" || strings.Contains(number, "/") {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}

	ctx, cancel := requestContext(r, 3*time.Second)
	defer cancel()

	acct, err := h.st.GetAccount(ctx, number)
	if err != nil {
		code := httpStatusForErr(err)
		writeErr(w, code, publicErrMessage(code, err))
		return
	}
	writeJSON(w, http.StatusOK, domain.AccountResponse{Success: true, Account: acct})
}

// GET /api/transactions/{number}?limit=n
func (h *Handlers) ListTransactionsByPath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	number := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	if number == "" || strings.Contains(number, "/") {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	ctx, cancel := requestContext(r, 3*time.Second)
	defer cancel()

	txs, err := h.st.ListTransactions(ctx, number, limit)
	if err != nil {
		code := httpStatusForErr(err)
		writeErr(w, code, publicErrMessage(code, err))
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, domain.TransactionsResponse{Success: true, Transactions: txs})
}

// POST /api/transaction
func (h *Handlers) PostTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req domain.TransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := requestContext(r, 5*time.Second)
	defer cancel()

	id, err := h.st.RecordTransaction(ctx, req.FromAccount, req.ToAccount, req.Amount, req.Kind, req.Description)
	if err != nil {
		code := httpStatusForErr(err)
		writeErr(w, code, publicErrMessage(code, err))
		return
	}
	writeJSON(w, http.StatusCreated, domain.TransactionResponse{Success: true, TransactionID: id})
}

// GET /api/sensitive/{number}
//
// No authentication and no ownership check. Any caller can read any
// customer profile; exercises are built around exactly that.
func (h *Handlers) GetSensitiveByPath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	number := strings.TrimPrefix(r.URL.Path, "/api/sensitive/")
	if number == "" || strings.Contains(number, "/") {
		writeErr(w, http.StatusNotFound, "not found")
		return
	}

	ctx, cancel := requestContext(r, 3*time.Second)
	defer cancel()

	p, err := h.profiles.GetProfile(ctx, number)
	if err != nil {
		code := httpStatusForErr(err)
		writeErr(w, code, publicErrMessage(code, err))
		return
	}
	writeJSON(w, http.StatusOK, domain.ProfileResponse{Success: true, Data: p})
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/register
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := requestContext(r, 5*time.Second)
	defer cancel()

	u, err := h.auth.Register(ctx, req.Username, req.Password, req.Email)
	if err != nil {
		code := httpStatusForErr(err)
		writeErr(w, code, publicErrMessage(code, err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user": u})
}

// POST /api/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := requestContext(r, 5*time.Second)
	defer cancel()

	u, token, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		code := httpStatusForErr(err)
		writeErr(w, code, publicErrMessage(code, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token, "user": u})
}

type queryRequest struct {
	SQL string `json:"sql"`
}

// POST /api/query
//
// Raw SQL passthrough, Postgres backend only. Left wide open on
// purpose.
func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw, ok := h.st.(RawQuerier)
	if !ok {
		writeErr(w, http.StatusNotImplemented, "query endpoint requires the sql backend")
		return
	}

	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeErr(w, http.StatusBadRequest, "no sql query provided")
		return
	}

	ctx, cancel := requestContext(r, 10*time.Second)
	defer cancel()

	rows, err := raw.RawQuery(ctx, req.SQL)
	if err != nil {
		// surface the database error verbatim, like the original did
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "results": rows})
}

// GET /api/users
//
// Lists every registered user. Another of the sandbox's intentional
// disclosures.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ul, ok := h.st.(UserLister)
	if !ok {
		writeErr(w, http.StatusNotImplemented, "not supported by this backend")
		return
	}

	ctx, cancel := requestContext(r, 5*time.Second)
	defer cancel()

	users, err := ul.ListUsers(ctx)
	if err != nil {
		code := httpStatusForErr(err)
		writeErr(w, code, publicErrMessage(code, err))
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "users": users})
}

// GET /api/admin/backup
//
// Full dump of every table, no credential required.
func (h *Handlers) Backup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	b, ok := h.st.(Backuper)
	if !ok {
		writeErr(w, http.StatusNotImplemented, "backup endpoint not supported by this backend")
		return
	}

	ctx, cancel := requestContext(r, 15*time.Second)
	defer cancel()

	dump, err := b.Backup(ctx)
	if err != nil {
		code := httpStatusForErr(err)
		writeErr(w, code, publicErrMessage(code, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "backup": dump})
}
