package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"retailpos/backend/internal/domain"
	"retailpos/backend/internal/payment"
	"retailpos/backend/internal/pricing"
	"retailpos/backend/internal/settlement"
	"retailpos/backend/internal/store/memory"
)

const testAdminSecret = "test-admin-secret"

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	repo := memory.NewSeeded()
	engine := pricing.NewEngine(repo, nil, payment.Simulated{}, nil)
	workflow := settlement.New(repo, nil, testAdminSecret)
	auth := NewAuthManager("test-secret-key-at-least-32-chars", time.Hour, repo)
	return New(engine, workflow, repo, auth, "*").Router()
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, router http.Handler, username, password string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Username: username,
		Password: password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s: status %d, body %s", username, rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("empty access token")
	}
	return resp.AccessToken
}

func TestHealthz(t *testing.T) {
	router := newTestAPI(t)

	rec := doJSON(t, router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router := newTestAPI(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Username: "admin",
		Password: "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	router := newTestAPI(t)

	bad := domain.LoginRequest{Username: "admin", Password: "wrong"}
	for i := 0; i < 5; i++ {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", bad)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", bad)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the window fills, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestAPI(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/discounts/calculate", "", domain.CalculateRequest{
		Items: []domain.OrderItemRequest{{Name: "Ceramic Mug", Quantity: 1}},
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/admin/refund-requests", "garbage-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad token, got %d", rec.Code)
	}
}

func TestCashierCannotReachAdminRoutes(t *testing.T) {
	router := newTestAPI(t)
	token := login(t, router, "cashier", "cashier123")

	rec := doJSON(t, router, http.MethodGet, "/api/admin/refund-requests", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestCalculateEndpoint(t *testing.T) {
	router := newTestAPI(t)
	token := login(t, router, "cashier", "cashier123")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/discounts/calculate?customerId=cust-gold-01", token, domain.CalculateRequest{
		Items: []domain.OrderItemRequest{{Name: "Espresso Machine", Quantity: 2}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}

	var priced domain.PricedOrder
	if err := json.Unmarshal(rec.Body.Bytes(), &priced); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if priced.SubtotalCents != 20000 || priced.TotalCents != 17000 {
		t.Fatalf("unexpected pricing %+v", priced)
	}
	if priced.LoyaltyPointsEarned != 170 {
		t.Fatalf("expected 170 points, got %d", priced.LoyaltyPointsEarned)
	}
}

func TestCalculateRejectsEmptyOrder(t *testing.T) {
	router := newTestAPI(t)
	token := login(t, router, "cashier", "cashier123")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/discounts/calculate", token, domain.CalculateRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	router := newTestAPI(t)
	token := login(t, router, "cashier", "cashier123")

	calc := doJSON(t, router, http.MethodPost, "/api/v1/discounts/calculate?customerId=cust-gold-01", token, domain.CalculateRequest{
		Items: []domain.OrderItemRequest{{Name: "Espresso Machine", Quantity: 2}},
	})
	if calc.Code != http.StatusOK {
		t.Fatalf("calculate: status %d", calc.Code)
	}
	var priced domain.PricedOrder
	if err := json.Unmarshal(calc.Body.Bytes(), &priced); err != nil {
		t.Fatalf("decode: %v", err)
	}

	apply := domain.ApplyRequest{Order: priced, OrderToken: "tok-http-1"}
	first := doJSON(t, router, http.MethodPost, "/api/v1/discounts/apply?customerId=cust-gold-01", token, apply)
	if first.Code != http.StatusOK {
		t.Fatalf("first apply: status %d, body %s", first.Code, first.Body.String())
	}
	var firstResp domain.ApplyResponse
	if err := json.Unmarshal(first.Body.Bytes(), &firstResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if firstResp.Duplicate {
		t.Fatal("first apply flagged duplicate")
	}

	second := doJSON(t, router, http.MethodPost, "/api/v1/discounts/apply?customerId=cust-gold-01", token, apply)
	if second.Code != http.StatusOK {
		t.Fatalf("second apply: status %d", second.Code)
	}
	var secondResp domain.ApplyResponse
	if err := json.Unmarshal(second.Body.Bytes(), &secondResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !secondResp.Duplicate || secondResp.OrderID != firstResp.OrderID {
		t.Fatalf("expected duplicate of %s, got %+v", firstResp.OrderID, secondResp)
	}
}

func TestListRulesActiveOnly(t *testing.T) {
	router := newTestAPI(t)
	token := login(t, router, "cashier", "cashier123")

	rec := doJSON(t, router, http.MethodGet, "/api/v1/discounts/rules?activeOnly=true", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var listing struct {
		Rules []domain.DiscountRule `json:"rules"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, rule := range listing.Rules {
		if rule.Name == "HOLIDAY20" {
			t.Fatal("future rule listed as active")
		}
	}
	if len(listing.Rules) == 0 {
		t.Fatal("expected active rules in the listing")
	}
}

func TestGetInvoiceNotFound(t *testing.T) {
	router := newTestAPI(t)
	token := login(t, router, "cashier", "cashier123")

	rec := doJSON(t, router, http.MethodGet, "/api/v1/invoices/INV-9999", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestReturnEndpoint(t *testing.T) {
	router := newTestAPI(t)
	token := login(t, router, "cashier", "cashier123")

	rec := doJSON(t, router, http.MethodPost, "/api/return-exchange/return", token, domain.ImmediateReturnRequest{
		InvoiceNumber: "INV-1001",
		Items:         []domain.ReturnLine{{InvoiceItemID: "invi-1001-1", Quantity: 2, Reason: "defective"}},
		RefundMethod:  domain.RefundMethodCash,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	var result domain.SettlementResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.TotalRefundCents != 10000 || result.InvoiceBalanceCents != 11000 {
		t.Fatalf("unexpected result %+v", result)
	}

	history := doJSON(t, router, http.MethodGet, "/api/return-exchange/history/INV-1001", token, nil)
	if history.Code != http.StatusOK {
		t.Fatalf("history: status %d", history.Code)
	}
	var listing struct {
		History []domain.RefundAuditRecord `json:"history"`
	}
	if err := json.Unmarshal(history.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(listing.History) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(listing.History))
	}
}

func TestGatedRefundOverHTTP(t *testing.T) {
	router := newTestAPI(t)
	token := login(t, router, "admin", "admin123")

	initiate := doJSON(t, router, http.MethodPost, "/api/admin/refund-requests/initiate", token, domain.InitiateRefundRequest{
		InvoiceNumber: "INV-1002",
		Items:         []domain.ReturnLine{{InvoiceItemID: "invi-1002-1", Quantity: 2}},
		RefundMethod:  domain.RefundMethodStoreCredit,
	})
	if initiate.Code != http.StatusCreated {
		t.Fatalf("initiate: status %d, body %s", initiate.Code, initiate.Body.String())
	}
	var created struct {
		Request domain.ReturnRequest `json:"request"`
	}
	if err := json.Unmarshal(initiate.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id := created.Request.ID

	// Processing a request that is still PENDING is a conflict.
	process := doJSON(t, router, http.MethodPost, "/api/admin/refund-requests/"+id+"/process", token, nil)
	if process.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a pending request, got %d", process.Code)
	}

	approve := doJSON(t, router, http.MethodPost, "/api/admin/refund-requests/"+id+"/approve", token, nil)
	if approve.Code != http.StatusOK {
		t.Fatalf("approve: status %d", approve.Code)
	}

	process = doJSON(t, router, http.MethodPost, "/api/admin/refund-requests/"+id+"/process", token, nil)
	if process.Code != http.StatusOK {
		t.Fatalf("process: status %d, body %s", process.Code, process.Body.String())
	}
	var result domain.SettlementResult
	if err := json.Unmarshal(process.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.TotalRefundCents != 16400 || result.PointsDeducted != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestPurgeRequiresSecret(t *testing.T) {
	router := newTestAPI(t)
	token := login(t, router, "admin", "admin123")

	rec := doJSON(t, router, http.MethodDelete, "/api/admin/refund-history", token, domain.PurgeRequest{
		Secret: "wrong",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/admin/refund-history", token, domain.PurgeRequest{
		Secret: testAdminSecret,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestCreateCashier(t *testing.T) {
	router := newTestAPI(t)
	token := login(t, router, "admin", "admin123")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/users/cashiers", token, domain.CashierCreateRequest{
		Username: "budi",
		Password: "budi-secret",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}

	short := doJSON(t, router, http.MethodPost, "/api/v1/users/cashiers", token, domain.CashierCreateRequest{
		Username: "ab",
		Password: "short-pass",
	})
	if short.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a short username, got %d", short.Code)
	}

	// The new cashier can log in right away.
	cashierToken := login(t, router, "budi", "budi-secret")
	health := doJSON(t, router, http.MethodGet, "/api/v1/discounts/rules", cashierToken, nil)
	if health.Code != http.StatusOK {
		t.Fatalf("new cashier denied: %d", health.Code)
	}
}
