package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rebill/internal/cache"
	"rebill/internal/domain"
	"rebill/internal/money"
	"rebill/internal/service"
	"rebill/internal/store"
	"rebill/internal/store/memory"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopSummaryCache{}, time.UTC, 5*time.Second, "wipe-counter-2024")
	auth := NewAuthManager("test-secret-key", time.Hour, svc)
	return New(svc, auth, "*")
}

func login(t *testing.T, handler http.Handler, username, password string) domain.LoginResponse {
	t.Helper()

	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login returned status %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp
}

func loginAsAdmin(t *testing.T, handler http.Handler) string {
	t.Helper()
	return login(t, handler, "admin", "admin123").AccessToken
}

func loginAsCashier(t *testing.T, handler http.Handler) string {
	t.Helper()
	return login(t, handler, "cashier", "cashier123").AccessToken
}

func fetchCSRFToken(t *testing.T, handler http.Handler) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/csrf-token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("csrf token fetch returned status %d", rec.Code)
	}
	var resp struct {
		Token string `json:"csrf_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode csrf response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("expected non-empty csrf token")
	}
	return resp.Token
}

// authedRequest builds a request carrying the bearer token and, for mutating
// methods, a freshly fetched CSRF token.
func authedRequest(t *testing.T, handler http.Handler, token, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		req.Header.Set("X-CSRF-Token", fetchCSRFToken(t, handler))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestLoginSucceedsWithSeededAdmin(t *testing.T) {
	api := newTestAPI(t)

	resp := login(t, api.Handler(), "admin", "admin123")
	if resp.AccessToken == "" {
		t.Fatalf("expected access token in response")
	}
	if resp.Role != "admin" {
		t.Fatalf("expected role admin, got %s", resp.Role)
	}
}

func TestLoginRejectsInvalidPassword(t *testing.T) {
	api := newTestAPI(t)

	body := `{"username":"admin","password":"nope"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestProductsRequireAuth(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestProductsListWithValidToken(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsCashier(t, handler)

	rec := authedRequest(t, handler, token, http.MethodGet, "/api/v1/products", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Products []domain.Product `json:"products"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode products: %v", err)
	}
	if len(resp.Products) == 0 {
		t.Fatalf("expected seeded products")
	}
}

func TestCreateBillReturnsServerTotal(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsCashier(t, handler)

	rec := authedRequest(t, handler, token, http.MethodPost, "/api/v1/bills", domain.BillCreateRequest{
		Items: []domain.BillItemRequest{
			{ProductID: "PRD-TEA-01", Quantity: 2},
			{ProductID: "PRD-SNK-01", Quantity: 1},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Bill domain.Bill `json:"bill"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode bill: %v", err)
	}
	if resp.Bill.BillNo != 1 {
		t.Fatalf("expected bill number 1, got %d", resp.Bill.BillNo)
	}
	if want := money.FromMajor(48); resp.Bill.TotalAmount != want {
		t.Fatalf("expected server total %s, got %s", want, resp.Bill.TotalAmount)
	}
}

func TestCreateBillWithoutCSRFTokenIsRejected(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsCashier(t, handler)

	body := `{"items":[{"product_id":"PRD-TEA-01","quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bills", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf token, got %d", rec.Code)
	}
}

func TestBreakdownReturnsSlicesAndArcs(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsCashier(t, handler)

	create := authedRequest(t, handler, token, http.MethodPost, "/api/v1/bills", domain.BillCreateRequest{
		Items: []domain.BillItemRequest{
			{ProductID: "PRD-TEA-01", Quantity: 2},
			{ProductID: "PRD-MEL-01", Quantity: 1},
		},
	})
	if create.Code != http.StatusCreated {
		t.Fatalf("bill create returned %d: %s", create.Code, create.Body.String())
	}

	rec := authedRequest(t, handler, token, http.MethodGet, "/api/v1/summary/breakdown", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Slices []struct {
			Category string  `json:"category"`
			Percent  float64 `json:"percent"`
		} `json:"slices"`
		Arcs []struct {
			Length float64 `json:"length"`
			Offset float64 `json:"offset"`
		} `json:"arcs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode breakdown: %v", err)
	}
	if len(resp.Slices) != 2 {
		t.Fatalf("expected 2 slices, got %d", len(resp.Slices))
	}
	if len(resp.Arcs) != len(resp.Slices) {
		t.Fatalf("expected an arc per slice, got %d arcs", len(resp.Arcs))
	}
	if resp.Slices[0].Category != "meals" {
		t.Fatalf("expected meals to lead the breakdown, got %s", resp.Slices[0].Category)
	}
	if resp.Arcs[0].Offset != 0 {
		t.Fatalf("expected first arc offset 0, got %f", resp.Arcs[0].Offset)
	}
}

func TestCashierCannotAccessAdminRoutes(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsCashier(t, handler)

	paths := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/v1/summary/weekly", nil},
		{http.MethodGet, "/api/v1/reports/daily", nil},
		{http.MethodPost, "/api/v1/bills/clear", domain.ClearBillsRequest{Secret: "wipe-counter-2024"}},
		{http.MethodPost, "/api/v1/workers/salary/generate", domain.SalaryGenerateRequest{Month: 1, Year: 2026}},
		{http.MethodPost, "/api/v1/users", domain.UserCreateRequest{Username: "x", Password: "longenough", Role: "cashier"}},
	}
	for _, tc := range paths {
		rec := authedRequest(t, handler, token, tc.method, tc.path, tc.body)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403 for cashier, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestAdjustLockedInventoryReturnsConflict(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsAdmin(t, handler)

	deactivate := authedRequest(t, handler, token, http.MethodPatch, "/api/v1/products/PRD-SNK-01", map[string]any{
		"active": false,
	})
	if deactivate.Code != http.StatusOK {
		t.Fatalf("deactivate returned %d: %s", deactivate.Code, deactivate.Body.String())
	}

	rec := authedRequest(t, handler, token, http.MethodPost, "/api/v1/inventory/adjust", domain.StockAdjustRequest{
		ID:    1,
		Delta: money.QuantityFromUnits(-5),
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for locked record, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestClearBillsRequiresConfiguredSecret(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsAdmin(t, handler)

	rec := authedRequest(t, handler, token, http.MethodPost, "/api/v1/bills/clear", domain.ClearBillsRequest{
		Secret: "wrong-secret",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong secret, got %d", rec.Code)
	}

	rec = authedRequest(t, handler, token, http.MethodPost, "/api/v1/bills/clear", domain.ClearBillsRequest{
		Secret: "wipe-counter-2024",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for correct secret, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownBillReturnsNotFound(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsCashier(t, handler)

	rec := authedRequest(t, handler, token, http.MethodGet, "/api/v1/bills/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDailyReportCSVExport(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsAdmin(t, handler)

	create := authedRequest(t, handler, token, http.MethodPost, "/api/v1/bills", domain.BillCreateRequest{
		Items: []domain.BillItemRequest{{ProductID: "PRD-COF-01", Quantity: 2}},
	})
	if create.Code != http.StatusCreated {
		t.Fatalf("bill create returned %d: %s", create.Code, create.Body.String())
	}

	rec := authedRequest(t, handler, token, http.MethodGet, "/api/v1/reports/daily?format=csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected text/csv content type, got %s", ct)
	}
	if disp := rec.Header().Get("Content-Disposition"); !strings.Contains(disp, "daily-report-") {
		t.Fatalf("expected attachment disposition, got %s", disp)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "section,key,value") {
		t.Fatalf("unexpected csv header: %s", body)
	}
	if !strings.Contains(body, "summary,total_bills,1") {
		t.Fatalf("expected bill count row in csv: %s", body)
	}
	if !strings.Contains(body, "category,coffee_sales,") {
		t.Fatalf("expected coffee category row in csv: %s", body)
	}
}

func TestWeeklyReportCSVExport(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsAdmin(t, handler)

	create := authedRequest(t, handler, token, http.MethodPost, "/api/v1/bills", domain.BillCreateRequest{
		Items: []domain.BillItemRequest{{ProductID: "PRD-COF-01", Quantity: 2}},
	})
	if create.Code != http.StatusCreated {
		t.Fatalf("bill create returned %d: %s", create.Code, create.Body.String())
	}

	rec := authedRequest(t, handler, token, http.MethodGet, "/api/v1/summary/weekly?format=csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected text/csv content type, got %s", ct)
	}
	if disp := rec.Header().Get("Content-Disposition"); !strings.Contains(disp, "weekly-report-") {
		t.Fatalf("expected attachment disposition, got %s", disp)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "summary,period,weekly") {
		t.Fatalf("expected period row in csv: %s", body)
	}
	if !strings.Contains(body, "product,PRD-COF-01_quantity,2") {
		t.Fatalf("expected product rollup row in csv: %s", body)
	}
}

func TestMonthlyReportPrintableExport(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsAdmin(t, handler)

	create := authedRequest(t, handler, token, http.MethodPost, "/api/v1/bills", domain.BillCreateRequest{
		Items: []domain.BillItemRequest{{ProductID: "PRD-SNK-01", Quantity: 1}},
	})
	if create.Code != http.StatusCreated {
		t.Fatalf("bill create returned %d: %s", create.Code, create.Body.String())
	}

	rec := authedRequest(t, handler, token, http.MethodGet, "/api/v1/summary/monthly?format=pdf", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected text/html content type, got %s", ct)
	}
	if body := rec.Body.String(); !strings.Contains(body, "monthly report") {
		t.Fatalf("expected printable page, got: %s", body)
	}

	// Without a format the endpoint still answers JSON.
	rec = authedRequest(t, handler, token, http.MethodGet, "/api/v1/summary/monthly", nil)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected application/json content type, got %s", ct)
	}
}

func TestErrorStatusDefaultsToInternal(t *testing.T) {
	if got := errorStatus(errors.New("pq: deadlock detected")); got != http.StatusInternalServerError {
		t.Fatalf("unknown error mapped to %d, want 500", got)
	}
	if got := errorStatus(fmt.Errorf("wrap: %w", store.ErrNotFound)); got != http.StatusNotFound {
		t.Fatalf("wrapped sentinel mapped to %d, want 404", got)
	}

	// writeError swaps in a generic message at 500 so driver text never
	// reaches the client.
	rec := httptest.NewRecorder()
	writeError(rec, errorStatus(errors.New("pq: relation bills does not exist")), errors.New("pq: relation bills does not exist"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := rec.Body.String(); strings.Contains(body, "relation") {
		t.Fatalf("internal error text leaked: %s", body)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsAdmin(t, handler)

	update := authedRequest(t, handler, token, http.MethodPut, "/api/v1/settings", domain.SettingsUpdateRequest{
		Settings: []domain.Setting{{Key: "shop_name", Value: "Corner Cafe", GroupName: "shop"}},
	})
	if update.Code != http.StatusOK {
		t.Fatalf("settings update returned %d: %s", update.Code, update.Body.String())
	}

	rec := authedRequest(t, handler, token, http.MethodGet, "/api/v1/settings?group=shop", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Corner Cafe") {
		t.Fatalf("expected updated shop name in response: %s", rec.Body.String())
	}
}

func TestUnknownJSONFieldIsRejected(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsCashier(t, handler)

	body := `{"items":[],"surprise":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bills", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", fetchCSRFToken(t, handler))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}
