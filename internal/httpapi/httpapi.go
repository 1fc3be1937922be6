package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"retailpos/backend/internal/domain"
	"retailpos/backend/internal/pricing"
	"retailpos/backend/internal/settlement"
	"retailpos/backend/internal/store"
)

type API struct {
	pricing       *pricing.Engine
	returns       *settlement.Workflow
	repo          store.Repository
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

func New(engine *pricing.Engine, workflow *settlement.Workflow, repo store.Repository, auth *AuthManager, allowedOrigin string) *API {
	return &API{
		pricing:       engine,
		returns:       workflow,
		repo:          repo,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(a.cors)

	r.Get("/healthz", a.handleHealth)
	r.Post("/api/v1/auth/login", a.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth("cashier", "admin"))

		r.Post("/api/v1/discounts/calculate", a.handleCalculate)
		r.Post("/api/v1/discounts/apply", a.handleApply)
		r.Get("/api/v1/discounts/rules", a.handleListRules)
		r.Get("/api/v1/invoices/{number}", a.handleGetInvoice)

		r.Post("/api/return-exchange/return", a.handleReturn)
		r.Post("/api/return-exchange/exchange", a.handleExchange)
		r.Post("/api/return-exchange/card-refund", a.handleCardRefund)
		r.Get("/api/return-exchange/history/{invoiceNumber}", a.handleHistory)
		r.Get("/api/return-exchange/card-refunds/{invoiceNumber}", a.handleCardRefundList)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.requireAuth("admin"))

		r.Post("/api/admin/refund-requests/initiate", a.handleInitiateRequest)
		r.Get("/api/admin/refund-requests", a.handleListRequests)
		r.Get("/api/admin/refund-requests/{id}", a.handleGetRequest)
		r.Post("/api/admin/refund-requests/{id}/approve", a.handleApproveRequest)
		r.Post("/api/admin/refund-requests/{id}/reject", a.handleRejectRequest)
		r.Post("/api/admin/refund-requests/{id}/process", a.handleProcessRequest)
		r.Delete("/api/admin/refund-history", a.handlePurgeHistory)

		r.Post("/api/v1/users/cashiers", a.handleCreateCashier)
		r.Get("/api/v1/users/cashiers", a.handleListCashiers)
	})

	return r
}

func (a *API) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) requireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
				writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
				return
			}

			token := strings.TrimSpace(authorization[len("Bearer "):])
			actor, err := a.auth.ParseToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}
			if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
				writeError(w, http.StatusForbidden, errors.New("forbidden role"))
				return
			}

			next.ServeHTTP(w, r.WithContext(domain.WithActor(r.Context(), actor)))
		})
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(r.RemoteAddr) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req domain.CalculateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	priced, err := a.pricing.Price(r.Context(), req, r.URL.Query().Get("customerId"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, priced)
}

func (a *API) handleApply(w http.ResponseWriter, r *http.Request) {
	var req domain.ApplyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.pricing.Commit(r.Context(), req, r.URL.Query().Get("customerId"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleListRules(w http.ResponseWriter, r *http.Request) {
	var rules []domain.DiscountRule
	var err error
	if r.URL.Query().Get("activeOnly") == "true" {
		rules, err = a.repo.ListActiveDiscountRules(r.Context(), time.Now().UTC())
	} else {
		rules, err = a.repo.ListDiscountRules(r.Context())
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (a *API) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := a.repo.GetInvoice(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoice": inv})
}

func (a *API) handleReturn(w http.ResponseWriter, r *http.Request) {
	var req domain.ImmediateReturnRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := a.returns.ProcessReturn(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleExchange(w http.ResponseWriter, r *http.Request) {
	var req domain.ExchangeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := a.returns.ProcessExchange(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleCardRefund(w http.ResponseWriter, r *http.Request) {
	var req domain.CardRefundRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := a.returns.ProcessCardRefund(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := a.returns.History(r.Context(), chi.URLParam(r, "invoiceNumber"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": records})
}

func (a *API) handleCardRefundList(w http.ResponseWriter, r *http.Request) {
	records, err := a.returns.CardRefunds(r.Context(), chi.URLParam(r, "invoiceNumber"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cardRefunds": records})
}

func (a *API) handleInitiateRequest(w http.ResponseWriter, r *http.Request) {
	var req domain.InitiateRefundRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := a.returns.InitiateRefundRequest(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"request": created})
}

func (a *API) handleListRequests(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	requests, err := a.returns.ListRequests(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (a *API) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := a.returns.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": req})
}

func (a *API) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	req, err := a.returns.ApproveRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": req})
}

func (a *API) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	req, err := a.returns.RejectRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": req})
}

func (a *API) handleProcessRequest(w http.ResponseWriter, r *http.Request) {
	result, err := a.returns.ProcessApprovedRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handlePurgeHistory(w http.ResponseWriter, r *http.Request) {
	var req domain.PurgeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	purged, err := a.returns.PurgeHistory(r.Context(), req.Secret, req.InvoiceNumber)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if actor, ok := domain.ActorFromContext(r.Context()); ok {
		log.Printf("refund history purge by %s removed %d records", actor.Username, purged)
	}
	writeJSON(w, http.StatusOK, map[string]any{"purged": purged})
}

func (a *API) handleCreateCashier(w http.ResponseWriter, r *http.Request) {
	var req domain.CashierCreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := a.auth.CreateCashier(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (a *API) handleListCashiers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"users": a.auth.ListCashiers()})
}

// statusFor maps the store error taxonomy onto HTTP statuses. Version
// conflicts surface as 409 only when the single retry inside settlement
// has already been spent.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrStateConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, settlement.ErrBadSecret):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, out any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func writeError(w http.ResponseWriter, status int, err error) {
	// For 5xx responses, return a generic message to avoid leaking internal
	// implementation details (stack traces, SQL errors, file paths, etc.).
	// 4xx responses are user-facing so we return the original error message.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
