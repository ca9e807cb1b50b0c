package httpapi

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"rebill/internal/analytics"
	"rebill/internal/domain"
	"rebill/internal/inventory"
	"rebill/internal/service"
	"rebill/internal/store"
)

// Default donut geometry for the category breakdown endpoint. Matches the
// billing screen's 176px chart with a small gap between segments.
const (
	defaultArcRadius = 80.0
	defaultArcGap    = 4.0
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	clearLimiter  *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		// Fall back to a deterministic secret if crypto/rand fails (should not happen in practice).
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		clearLimiter:  newAttemptLimiter(8, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

// generateCSRFToken returns a token valid for the current hour bucket.
func (a *API) generateCSRFToken() string {
	now := time.Now().UTC()
	bucket := now.Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken checks whether the provided token matches the current or
// previous hour bucket, giving a 2-hour validity window.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	now := time.Now().UTC()
	currentBucket := now.Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	expected1 := a.csrfTokenForHour(currentBucket)
	expected2 := a.csrfTokenForHour(prevBucket)

	return hmac.Equal([]byte(token), []byte(expected1)) ||
		hmac.Equal([]byte(token), []byte(expected2))
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

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)

	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, "cashier", "admin"))
	mux.HandleFunc("/api/v1/products/", a.requireAuth(a.handleProductActions, "cashier", "admin"))
	mux.HandleFunc("/api/v1/categories", a.requireAuth(a.handleCategories, "cashier", "admin"))
	mux.HandleFunc("/api/v1/categories/", a.requireAuth(a.handleCategoryActions, "admin"))

	mux.HandleFunc("/api/v1/bills", a.requireAuth(a.handleBills, "cashier", "admin"))
	mux.HandleFunc("/api/v1/bills/next-number", a.requireAuth(a.handleNextBillNo, "cashier", "admin"))
	mux.HandleFunc("/api/v1/bills/clear", a.requireAuth(a.handleClearBills, "admin"))
	mux.HandleFunc("/api/v1/bills/", a.requireAuth(a.handleBillActions, "cashier", "admin"))

	mux.HandleFunc("/api/v1/summary/daily", a.requireAuth(a.handleDailySummary, "cashier", "admin"))
	mux.HandleFunc("/api/v1/summary/breakdown", a.requireAuth(a.handleBreakdown, "cashier", "admin"))
	mux.HandleFunc("/api/v1/summary/top-products", a.requireAuth(a.handleTopProducts, "cashier", "admin"))
	mux.HandleFunc("/api/v1/summary/weekly", a.requireAuth(a.handleWeeklySummary, "admin"))
	mux.HandleFunc("/api/v1/summary/monthly", a.requireAuth(a.handleMonthlySummary, "admin"))
	mux.HandleFunc("/api/v1/reports/daily", a.requireAuth(a.handleDailyReport, "admin"))

	mux.HandleFunc("/api/v1/inventory", a.requireAuth(a.handleInventory, "cashier", "admin"))
	mux.HandleFunc("/api/v1/inventory/report", a.requireAuth(a.handleInventoryReport, "cashier", "admin"))
	mux.HandleFunc("/api/v1/inventory/low-stock", a.requireAuth(a.handleLowStock, "cashier", "admin"))
	mux.HandleFunc("/api/v1/inventory/adjust", a.requireAuth(a.handleStockAdjust, "cashier", "admin"))
	mux.HandleFunc("/api/v1/inventory/", a.requireAuth(a.handleInventoryActions, "admin"))

	mux.HandleFunc("/api/v1/workers", a.requireAuth(a.handleWorkers, "cashier", "admin"))
	mux.HandleFunc("/api/v1/workers/stats", a.requireAuth(a.handleWorkerStats, "cashier", "admin"))
	mux.HandleFunc("/api/v1/workers/attendance/bulk", a.requireAuth(a.handleBulkAttendance, "cashier", "admin"))
	mux.HandleFunc("/api/v1/workers/salary/generate", a.requireAuth(a.handleSalaryGenerate, "admin"))
	mux.HandleFunc("/api/v1/workers/salary/status", a.requireAuth(a.handleSalaryStatus, "admin"))
	mux.HandleFunc("/api/v1/workers/salary/pay/", a.requireAuth(a.handleSalaryPay, "admin"))
	mux.HandleFunc("/api/v1/workers/", a.requireAuth(a.handleWorkerActions, "cashier", "admin"))

	mux.HandleFunc("/api/v1/settings", a.requireAuth(a.handleSettings, "cashier", "admin"))
	mux.HandleFunc("/api/v1/users", a.requireAuth(a.handleUsers, "admin"))
	mux.HandleFunc("/api/v1/users/password", a.requireAuth(a.handlePassword, "cashier", "admin"))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
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

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCSRFToken returns a stateless CSRF token valid for the current hour bucket.
// Clients must include this token in the X-CSRF-Token header for all mutating requests.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

// csrfExemptPaths lists paths that are exempt from CSRF validation.
// Login is excluded because it is called without a prior CSRF token fetch.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

// checkCSRF enforces CSRF token validation for state-changing methods (POST/PUT/PATCH).
// Returns false and writes an error response if validation fails.
func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	method := r.Method
	if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch {
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		includeInactive := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("include_inactive")), "true")
		products, err := a.service.ListProducts(r.Context(), includeInactive)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	case http.MethodPost:
		var req domain.ProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		product, err := a.service.CreateProduct(r.Context(), req)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": product})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	productID := pathTail(r.URL.Path, "/api/v1/products/")
	if productID == "" {
		writeError(w, http.StatusBadRequest, errors.New("product id required"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		product, err := a.service.GetProduct(r.Context(), productID)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": product})
	case http.MethodPatch:
		var req domain.ProductUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		updated, err := a.service.UpdateProduct(r.Context(), productID, req)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": updated})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		categories, err := a.service.ListCategories(r.Context())
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
	case http.MethodPost:
		var req domain.CategoryCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		category, err := a.service.CreateCategory(r.Context(), req)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"category": category})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleCategoryActions updates a category by numeric id (PATCH) or deletes
// one by name (DELETE). Deletion is refused while products still reference
// the category.
func (a *API) handleCategoryActions(w http.ResponseWriter, r *http.Request) {
	tail := pathTail(r.URL.Path, "/api/v1/categories/")
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("category id or name required"))
		return
	}

	switch r.Method {
	case http.MethodPatch:
		id, err := strconv.Atoi(tail)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("category id must be numeric"))
			return
		}

		var req domain.CategoryUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		category, err := a.service.UpdateCategory(r.Context(), id, req)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"category": category})
	case http.MethodDelete:
		if err := a.service.DeleteCategory(r.Context(), tail); err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": tail})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleBills(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		date := strings.TrimSpace(r.URL.Query().Get("date"))
		bills, err := a.service.BillsOnDate(r.Context(), date)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bills": bills})
	case http.MethodPost:
		var req domain.BillCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		bill, err := a.service.CreateBill(r.Context(), req)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"bill": bill})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleNextBillNo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	next, err := a.service.NextBillNo(r.Context())
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"next_bill_no": next})
}

func (a *API) handleClearBills(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.ClearBillsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !a.clearLimiter.Allow("clear:" + clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many clear attempts"))
		return
	}

	deleted, err := a.service.ClearAllBills(r.Context(), req.Secret)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (a *API) handleBillActions(w http.ResponseWriter, r *http.Request) {
	tail := pathTail(r.URL.Path, "/api/v1/bills/")
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("bill number required"))
		return
	}

	if strings.HasSuffix(tail, "/cancel") {
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		billNo, err := strconv.Atoi(strings.Trim(strings.TrimSuffix(tail, "/cancel"), "/"))
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("bill number must be numeric"))
			return
		}

		bill, err := a.service.CancelBill(r.Context(), billNo)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bill": bill})
		return
	}

	billNo, err := strconv.Atoi(tail)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("bill number must be numeric"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		bill, err := a.service.GetBill(r.Context(), billNo)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bill": bill})
	case http.MethodPut:
		var req domain.BillUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		bill, err := a.service.UpdateBill(r.Context(), billNo, req)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bill": bill})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	summary, err := a.service.DailySummary(r.Context(), date)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	radius := parseFloatDefault(r.URL.Query().Get("radius"), defaultArcRadius)
	gap := parseFloatDefault(r.URL.Query().Get("gap"), defaultArcGap)

	slices, err := a.service.CategoryBreakdown(r.Context(), date)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"slices": slices,
		"arcs":   analytics.Arcs(slices, radius, gap),
		"total":  analytics.Total(slices),
	})
}

func (a *API) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 5, 50)

	products, err := a.service.TopProducts(r.Context(), date, limit)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleWeeklySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	anchor := strings.TrimSpace(r.URL.Query().Get("date"))
	summary, err := a.service.WeeklySummary(r.Context(), anchor)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	a.writePeriodSummary(w, r, "weekly", summary)
}

func (a *API) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	now := time.Now()
	month := parsePositiveLimit(r.URL.Query().Get("month"), int(now.Month()), 12)
	year := parsePositiveLimit(r.URL.Query().Get("year"), now.Year(), 0)

	summary, err := a.service.MonthlySummary(r.Context(), month, year)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	a.writePeriodSummary(w, r, "monthly", summary)
}

// writePeriodSummary serves a weekly or monthly rollup either as JSON or,
// when format=csv|pdf is requested, through the same export renderers the
// daily report uses.
func (a *API) writePeriodSummary(w http.ResponseWriter, r *http.Request, period string, summary domain.PeriodSummary) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format != "csv" && format != "pdf" {
		writeJSON(w, http.StatusOK, summary)
		return
	}

	report := periodReport{
		Period:   period,
		Range:    periodRange(summary),
		ShopName: a.service.ShopName(r.Context()),
		Currency: a.service.CurrencySymbol(r.Context()),
		Summary:  summary,
	}
	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s-report-%s.csv\"", period, report.Range))
		_, _ = w.Write([]byte(periodReportToCSV(report)))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(periodReportToPrintableHTML(report)))
}

func periodRange(summary domain.PeriodSummary) string {
	if summary.StartDate != "" {
		return summary.StartDate + "_" + summary.EndDate
	}
	return fmt.Sprintf("%04d-%02d", summary.Year, summary.Month)
}

func (a *API) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))

	summary, err := a.service.DailySummary(r.Context(), date)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	topProducts, err := a.service.TopProducts(r.Context(), summary.Date, 10)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}

	report := dailyReport{
		Date:        summary.Date,
		ShopName:    a.service.ShopName(r.Context()),
		Currency:    a.service.CurrencySymbol(r.Context()),
		Summary:     summary,
		Breakdown:   analytics.BreakdownFromTotals(summary.CategoryTotals),
		TopProducts: topProducts,
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"daily-report-%s.csv\"", report.Date))
		_, _ = w.Write([]byte(dailyReportToCSV(report)))
	case "pdf":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(dailyReportToPrintableHTML(report)))
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func (a *API) handleInventory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		recordType := strings.TrimSpace(r.URL.Query().Get("type"))
		status := inventory.StockStatus(strings.TrimSpace(r.URL.Query().Get("status")))
		query := r.URL.Query().Get("q")
		sortKey := inventory.SortKey(strings.TrimSpace(r.URL.Query().Get("sort")))
		descending := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("desc")), "true")

		records, err := a.service.ListInventory(r.Context(), recordType, status, query, sortKey, descending)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"records": records})
	case http.MethodPost:
		var req domain.InventoryCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		record, err := a.service.CreateInventory(r.Context(), req)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"record": record})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleInventoryReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	report, err := a.service.InventoryReport(r.Context())
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	records, err := a.service.LowStock(r.Context())
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (a *API) handleStockAdjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.StockAdjustRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	record, err := a.service.AdjustStock(r.Context(), req)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"record": record})
}

func (a *API) handleInventoryActions(w http.ResponseWriter, r *http.Request) {
	tail := pathTail(r.URL.Path, "/api/v1/inventory/")
	id, err := strconv.Atoi(tail)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("inventory id must be numeric"))
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req domain.InventoryUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		record, err := a.service.UpdateInventory(r.Context(), id, req)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"record": record})
	case http.MethodDelete:
		if err := a.service.DeleteInventory(r.Context(), id); err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleWorkers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		includeInactive := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("include_inactive")), "true")
		workers, err := a.service.ListWorkers(r.Context(), includeInactive)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"workers": workers})
	case http.MethodPost:
		var req domain.WorkerCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		worker, err := a.service.CreateWorker(r.Context(), req)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"worker": worker})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleWorkerStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	stats, err := a.service.WorkerStats(r.Context())
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleBulkAttendance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.BulkAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	marked, err := a.service.BulkAttendance(r.Context(), req)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attendance": marked})
}

func (a *API) handleSalaryGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.SalaryGenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	payments, err := a.service.GenerateSalaries(r.Context(), req)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (a *API) handleSalaryStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	now := time.Now()
	month := parsePositiveLimit(r.URL.Query().Get("month"), int(now.Month()), 12)
	year := parsePositiveLimit(r.URL.Query().Get("year"), now.Year(), 0)

	status, err := a.service.SalaryStatus(r.Context(), month, year)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) handleSalaryPay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	paymentID := pathTail(r.URL.Path, "/api/v1/workers/salary/pay/")
	if paymentID == "" {
		writeError(w, http.StatusBadRequest, errors.New("payment id required"))
		return
	}

	payment, err := a.service.PaySalary(r.Context(), paymentID)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payment": payment})
}

func (a *API) handleWorkerActions(w http.ResponseWriter, r *http.Request) {
	tail := pathTail(r.URL.Path, "/api/v1/workers/")
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("worker id required"))
		return
	}

	workerID, action, _ := strings.Cut(tail, "/")
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		writeError(w, http.StatusBadRequest, errors.New("worker id required"))
		return
	}

	switch action {
	case "":
		a.handleWorkerByID(w, r, workerID)
	case "advances":
		a.handleWorkerAdvances(w, r, workerID)
	case "attendance":
		a.handleWorkerAttendance(w, r, workerID)
	case "salary-history":
		a.handleWorkerSalaryHistory(w, r, workerID)
	default:
		writeError(w, http.StatusBadRequest, errors.New("invalid worker action path"))
	}
}

func (a *API) handleWorkerByID(w http.ResponseWriter, r *http.Request, workerID string) {
	switch r.Method {
	case http.MethodGet:
		worker, err := a.service.GetWorker(r.Context(), workerID)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"worker": worker})
	case http.MethodPatch:
		var req domain.WorkerUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		worker, err := a.service.UpdateWorker(r.Context(), workerID, req)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"worker": worker})
	case http.MethodDelete:
		worker, err := a.service.DeactivateWorker(r.Context(), workerID)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"worker": worker})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleWorkerAdvances(w http.ResponseWriter, r *http.Request, workerID string) {
	switch r.Method {
	case http.MethodGet:
		advances, err := a.service.WorkerAdvances(r.Context(), workerID)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"advances": advances})
	case http.MethodPost:
		var req domain.AdvanceRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		advance, err := a.service.AddAdvance(r.Context(), workerID, req)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"advance": advance})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleWorkerAttendance(w http.ResponseWriter, r *http.Request, workerID string) {
	switch r.Method {
	case http.MethodGet:
		now := time.Now()
		month := parsePositiveLimit(r.URL.Query().Get("month"), int(now.Month()), 12)
		year := parsePositiveLimit(r.URL.Query().Get("year"), now.Year(), 0)

		attendance, err := a.service.MonthAttendance(r.Context(), workerID, month, year)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"attendance": attendance})
	case http.MethodPost:
		var req domain.AttendanceRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		marked, err := a.service.MarkAttendance(r.Context(), workerID, req)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"attendance": marked})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleWorkerSalaryHistory(w http.ResponseWriter, r *http.Request, workerID string) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 12, 120)
	payments, err := a.service.SalaryHistory(r.Context(), workerID, limit)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		group := strings.TrimSpace(r.URL.Query().Get("group"))
		settings, err := a.service.Settings(r.Context(), group)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
	case http.MethodPut:
		var req domain.SettingsUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		if err := a.service.UpdateSettings(r.Context(), req.Settings); err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"updated": len(req.Settings)})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.UserCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := a.service.CreateUser(r.Context(), req.Username, req.Password, req.Role); err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"username": req.Username, "role": req.Role})
}

func (a *API) handlePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.PasswordChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := a.service.ChangePassword(r.Context(), req.Username, req.Password); err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changed": req.Username})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Enforce CSRF protection for all state-changing requests.
		if !a.checkCSRF(w, r) {
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

// dailyReport is the export view of one day: the cached summary plus the
// category breakdown and product rollup, stamped with the shop's settings.
type dailyReport struct {
	Date        string                `json:"date"`
	ShopName    string                `json:"shop_name"`
	Currency    string                `json:"currency_symbol"`
	Summary     domain.SalesSummary   `json:"summary"`
	Breakdown   []analytics.Slice     `json:"breakdown"`
	TopProducts []domain.ProductSales `json:"top_products"`
}

func dailyReportToCSV(report dailyReport) string {
	lines := []string{
		"section,key,value",
		fmt.Sprintf("summary,date,%s", report.Date),
		fmt.Sprintf("summary,shop_name,%s", report.ShopName),
		fmt.Sprintf("summary,total_bills,%d", report.Summary.TotalBills),
		fmt.Sprintf("summary,total_sales,%s", report.Summary.TotalSales),
		fmt.Sprintf("summary,average_bill_value,%s", report.Summary.AverageBillValue),
		fmt.Sprintf("summary,peak_hour,%s", report.Summary.PeakHour),
		fmt.Sprintf("summary,first_bill_time,%s", report.Summary.FirstBillTime),
		fmt.Sprintf("summary,last_bill_time,%s", report.Summary.LastBillTime),
	}
	for _, slice := range report.Breakdown {
		lines = append(lines, fmt.Sprintf("category,%s_sales,%s", slice.Category, slice.Amount))
		lines = append(lines, fmt.Sprintf("category,%s_percent,%.1f", slice.Category, slice.Percent))
	}
	for _, product := range report.TopProducts {
		lines = append(lines, fmt.Sprintf("product,%s_quantity,%d", product.ProductID, product.QuantitySold))
		lines = append(lines, fmt.Sprintf("product,%s_sales,%s", product.ProductID, product.TotalSales))
	}
	return strings.Join(lines, "\n") + "\n"
}

// dailyReportHTMLTmpl is the html/template used to render printable daily reports.
// All user-controlled fields are auto-escaped by html/template to prevent XSS.
var dailyReportHTMLTmpl = template.Must(template.New("daily-report").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Daily Report {{.Date}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>{{.ShopName}} Daily Report {{.Date}}</h2>
  <p>Bills: {{.Summary.TotalBills}}</p>
  <p>Sales: {{.Currency}} {{.Summary.TotalSales}} | Average Bill: {{.Currency}} {{.Summary.AverageBillValue}} | Peak Hour: {{.Summary.PeakHour}}</p>
  <p>First Bill: {{.Summary.FirstBillTime}} | Last Bill: {{.Summary.LastBillTime}}</p>

  <h3>By Category</h3>
  <table>
    <thead><tr><th>Category</th><th>Sales</th><th>Percent</th></tr></thead>
    <tbody>{{range .Breakdown}}<tr><td>{{.Label}}</td><td style="text-align:right;">{{.Amount}}</td><td style="text-align:right;">{{printf "%.1f" .Percent}}%</td></tr>{{end}}</tbody>
  </table>

  <h3>Top Products</h3>
  <table>
    <thead><tr><th>Product</th><th>Quantity</th><th>Sales</th></tr></thead>
    <tbody>{{range .TopProducts}}<tr><td>{{.Name}}</td><td style="text-align:right;">{{.QuantitySold}}</td><td style="text-align:right;">{{.TotalSales}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func dailyReportToPrintableHTML(report dailyReport) string {
	var buf bytes.Buffer
	if err := dailyReportHTMLTmpl.Execute(&buf, report); err != nil {
		// Fallback: return a plain-text error page rather than leaking internal details.
		return "<!doctype html><html><body><p>Report rendering error.</p></body></html>"
	}
	return buf.String()
}

// periodReport is the export view of a weekly or monthly rollup.
type periodReport struct {
	Period   string               `json:"period"`
	Range    string               `json:"range"`
	ShopName string               `json:"shop_name"`
	Currency string               `json:"currency_symbol"`
	Summary  domain.PeriodSummary `json:"summary"`
}

func periodReportToCSV(report periodReport) string {
	lines := []string{
		"section,key,value",
		fmt.Sprintf("summary,period,%s", report.Period),
		fmt.Sprintf("summary,range,%s", report.Range),
		fmt.Sprintf("summary,shop_name,%s", report.ShopName),
		fmt.Sprintf("summary,total_sales,%s", report.Summary.TotalSales),
	}
	for _, product := range report.Summary.Products {
		lines = append(lines, fmt.Sprintf("product,%s_quantity,%d", product.ProductID, product.QuantitySold))
		lines = append(lines, fmt.Sprintf("product,%s_sales,%s", product.ProductID, product.TotalSales))
	}
	return strings.Join(lines, "\n") + "\n"
}

var periodReportHTMLTmpl = template.Must(template.New("period-report").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>{{.Period}} report {{.Range}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>{{.ShopName}} {{.Period}} report {{.Range}}</h2>
  <p>Total Sales: {{.Currency}} {{.Summary.TotalSales}}</p>

  <h3>Products</h3>
  <table>
    <thead><tr><th>Product</th><th>Quantity</th><th>Sales</th></tr></thead>
    <tbody>{{range .Summary.Products}}<tr><td>{{.Name}}</td><td style="text-align:right;">{{.QuantitySold}}</td><td style="text-align:right;">{{.TotalSales}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func periodReportToPrintableHTML(report periodReport) string {
	var buf bytes.Buffer
	if err := periodReportHTMLTmpl.Execute(&buf, report); err != nil {
		return "<!doctype html><html><body><p>Report rendering error.</p></body></html>"
	}
	return buf.String()
}

// errorStatus maps service and store errors to HTTP statuses. Anything
// outside the known sentinel set is an internal fault and comes back as
// 500, which also makes writeError swap in a generic message.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrLocked), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func pathTail(path string, prefix string) string {
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.Trim(strings.TrimPrefix(path, prefix), "/"))
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func parseFloatDefault(raw string, fallback float64) float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
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
