package httpapi

import (
	"net/http"
	"os"
	"strconv"
)

func Router(h *Handlers) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Healthz)

	mux.HandleFunc("/api/chat", h.Chat)                          // POST
	mux.HandleFunc("/api/assistant/chat", h.AssistantChat)       // POST
	mux.HandleFunc("/api/account/", h.GetAccountByPath)          // GET /api/account/{number}
	mux.HandleFunc("/api/transactions/", h.ListTransactionsByPath) // GET /api/transactions/{number}
	mux.HandleFunc("/api/transaction", h.PostTransaction)        // POST
	mux.HandleFunc("/api/sensitive/", h.GetSensitiveByPath)      // GET /api/sensitive/{number}
	mux.HandleFunc("/api/register", h.Register)                  // POST
	mux.HandleFunc("/api/login", h.Login)                        // POST
	mux.HandleFunc("/api/users", h.ListUsers)                    // GET
	mux.HandleFunc("/api/query", h.Query)                        // POST
	mux.HandleFunc("/api/admin/backup", h.Backup)                // GET

	// Backpressure at the edge.
	// Prevents unbounded goroutine/pool queueing when the backend is saturated.
	max := mustIntEnv("BANK_HTTP_MAX_INFLIGHT", 64)
	return withConcurrencyLimit(mux, max)
}

func mustIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func withConcurrencyLimit(next http.Handler, max int) http.Handler {
	if max <= 0 {
		max = 64
	}
	sem := make(chan struct{}, max)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			next.ServeHTTP(w, r)
		default:
			// Fast fail instead of queueing forever.
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"server busy"}`))
		}
	})
}
