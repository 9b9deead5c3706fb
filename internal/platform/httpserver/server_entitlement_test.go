package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	entitlementservice "gatehouse/contexts/access-control/entitlement-service"
	"gatehouse/contexts/access-control/entitlement-service/ports"
	httptransport "gatehouse/contexts/access-control/entitlement-service/transport/http"
)

func newEntitlementTestServer() *Server {
	module := entitlementservice.NewInMemoryModule(nil)
	module.Identity.Put(ports.User{ID: "user-verified", Email: "verified@example.com", EmailVerified: true})
	module.Identity.Put(ports.User{ID: "user-unverified", Email: "unverified@example.com", EmailVerified: false})
	return New(module, nil, "")
}

func postJSON(t *testing.T, server *Server, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func TestGrantTemporaryAccessEndpoint(t *testing.T) {
	server := newEntitlementTestServer()

	rr := postJSON(t, server, "/api/access/v1/grant-temporary-access",
		`{"userId":"user-verified","hours":48,"reason":"beta cohort"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp httptransport.GrantTemporaryAccessResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success=true, body=%s", rr.Body.String())
	}
	if resp.ExpiresAt == "" {
		t.Fatalf("expected expiresAt in response, body=%s", rr.Body.String())
	}
}

func TestGrantTemporaryAccessRejectsMissingUserID(t *testing.T) {
	server := newEntitlementTestServer()

	rr := postJSON(t, server, "/api/access/v1/grant-temporary-access", `{"hours":24}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp httptransport.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "invalid_request" {
		t.Fatalf("expected invalid_request, got %q", resp.Error)
	}
}

func TestGrantTemporaryAccessRejectsMalformedBody(t *testing.T) {
	server := newEntitlementTestServer()

	rr := postJSON(t, server, "/api/access/v1/grant-temporary-access", `{"userId":`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestGrantTemporaryAccessUnknownUserIs404(t *testing.T) {
	server := newEntitlementTestServer()

	rr := postJSON(t, server, "/api/access/v1/grant-temporary-access",
		`{"userId":"user-missing","hours":24}`, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestProcessPaymentSuccessRejectsUnknownPlan(t *testing.T) {
	server := newEntitlementTestServer()

	rr := postJSON(t, server, "/api/access/v1/process-payment-success",
		`{"userId":"user-verified","planType":"gold-tier","sessionId":"sess-1"}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestProcessPaymentSuccessIdempotencyConflictIs409(t *testing.T) {
	server := newEntitlementTestServer()
	headers := map[string]string{"Idempotency-Key": "pay-key-1"}

	rr := postJSON(t, server, "/api/access/v1/process-payment-success",
		`{"userId":"user-verified","planType":"premium","sessionId":"sess-1"}`, headers)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = postJSON(t, server, "/api/access/v1/process-payment-success",
		`{"userId":"user-verified","planType":"pro","sessionId":"sess-2"}`, headers)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on reused key, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCheckAccessEndpoint(t *testing.T) {
	server := newEntitlementTestServer()

	grant := postJSON(t, server, "/api/access/v1/grant-temporary-access",
		`{"userId":"user-verified","hours":24}`, nil)
	if grant.Code != http.StatusOK {
		t.Fatalf("seed grant failed: %d body=%s", grant.Code, grant.Body.String())
	}

	rr := postJSON(t, server, "/api/access/v1/check-access", `{"userId":"user-verified"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp httptransport.CheckAccessResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.HasAccess {
		t.Fatalf("expected hasAccess=true, body=%s", rr.Body.String())
	}
	if resp.Reason != "temporary_grant" {
		t.Fatalf("expected temporary_grant reason, got %q", resp.Reason)
	}
}

func TestCheckAccessUnverifiedEmailDenied(t *testing.T) {
	server := newEntitlementTestServer()

	rr := postJSON(t, server, "/api/access/v1/check-access", `{"userId":"user-unverified"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp httptransport.CheckAccessResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.HasAccess {
		t.Fatalf("expected access denied, body=%s", rr.Body.String())
	}
	if resp.Reason != "email_not_verified" {
		t.Fatalf("expected email_not_verified reason, got %q", resp.Reason)
	}
}

func TestCleanupExpiredEndpoint(t *testing.T) {
	server := newEntitlementTestServer()

	rr := postJSON(t, server, "/api/access/v1/cleanup-expired", `{}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp httptransport.CleanupExpiredResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.CleanedUpCount != 0 {
		t.Fatalf("expected zero cleaned on fresh store, body=%s", rr.Body.String())
	}
}

func TestUserStatusEndpoint(t *testing.T) {
	server := newEntitlementTestServer()

	grant := postJSON(t, server, "/api/access/v1/grant-temporary-access",
		`{"userId":"user-verified","hours":24,"reason":"promo"}`, nil)
	if grant.Code != http.StatusOK {
		t.Fatalf("seed grant failed: %d body=%s", grant.Code, grant.Body.String())
	}

	rr := postJSON(t, server, "/api/access/v1/user-status", `{"userId":"user-verified"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp httptransport.UserStatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessStatus.UserID != "user-verified" {
		t.Fatalf("unexpected userId, body=%s", rr.Body.String())
	}
	if resp.AccessStatus.TemporaryAccessReason != "promo" {
		t.Fatalf("expected promo reason, body=%s", rr.Body.String())
	}
	// No projector runs in this wiring, so the read falls back to the record.
	if resp.AccessStatus.FromSnapshot {
		t.Fatalf("expected fallback read, body=%s", rr.Body.String())
	}
}
