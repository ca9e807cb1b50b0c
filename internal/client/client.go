// Package client is the typed consumer side of the rebill REST API. Every
// method maps to one backend operation, carries the bearer token and CSRF
// token the backend requires, and surfaces backend failures as *APIError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rebill/internal/analytics"
	"rebill/internal/domain"
	"rebill/internal/inventory"
	"rebill/internal/money"
)

// APIError is a non-2xx backend response. Message carries the backend's
// error field when one was decodable, otherwise a generic description.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusNotFound
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	csrfToken  string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken installs the bearer token used on every subsequent request.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Login authenticates and installs the returned token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (domain.LoginResponse, error) {
	var resp domain.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", domain.LoginRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	c.token = resp.AccessToken
	return resp, nil
}

// RefreshCSRFToken fetches a fresh CSRF token. Tokens rotate hourly on the
// server; callers should refresh after a 403 on a mutating request.
func (c *Client) RefreshCSRFToken(ctx context.Context) error {
	var resp struct {
		Token string `json:"csrf_token"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/csrf-token", nil, &resp); err != nil {
		return err
	}
	c.csrfToken = resp.Token
	return nil
}

func (c *Client) Products(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	path := "/api/v1/products"
	if includeInactive {
		path += "?include_inactive=true"
	}
	var resp struct {
		Products []domain.Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var resp struct {
		Categories []domain.Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/categories", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

func (c *Client) CreateBill(ctx context.Context, req domain.BillCreateRequest) (domain.Bill, error) {
	var resp struct {
		Bill domain.Bill `json:"bill"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/bills", req, &resp); err != nil {
		return domain.Bill{}, err
	}
	return resp.Bill, nil
}

func (c *Client) UpdateBill(ctx context.Context, billNo int, req domain.BillUpdateRequest) (domain.Bill, error) {
	var resp struct {
		Bill domain.Bill `json:"bill"`
	}
	path := "/api/v1/bills/" + strconv.Itoa(billNo)
	if err := c.do(ctx, http.MethodPut, path, req, &resp); err != nil {
		return domain.Bill{}, err
	}
	return resp.Bill, nil
}

func (c *Client) CancelBill(ctx context.Context, billNo int) (domain.Bill, error) {
	var resp struct {
		Bill domain.Bill `json:"bill"`
	}
	path := "/api/v1/bills/" + strconv.Itoa(billNo) + "/cancel"
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &resp); err != nil {
		return domain.Bill{}, err
	}
	return resp.Bill, nil
}

func (c *Client) GetBill(ctx context.Context, billNo int) (domain.Bill, error) {
	var resp struct {
		Bill domain.Bill `json:"bill"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/bills/"+strconv.Itoa(billNo), nil, &resp); err != nil {
		return domain.Bill{}, err
	}
	return resp.Bill, nil
}

// BillsOnDate lists bills for the given local calendar day (YYYY-MM-DD).
// An empty date means today in the shop's timezone.
func (c *Client) BillsOnDate(ctx context.Context, date string) ([]domain.Bill, error) {
	path := "/api/v1/bills"
	if date != "" {
		path += "?date=" + date
	}
	var resp struct {
		Bills []domain.Bill `json:"bills"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Bills, nil
}

func (c *Client) NextBillNo(ctx context.Context) (int, error) {
	var resp struct {
		NextBillNo int `json:"next_bill_no"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/bills/next-number", nil, &resp); err != nil {
		return 0, err
	}
	return resp.NextBillNo, nil
}

func (c *Client) DailySummary(ctx context.Context, date string) (domain.SalesSummary, error) {
	path := "/api/v1/summary/daily"
	if date != "" {
		path += "?date=" + date
	}
	var summary domain.SalesSummary
	if err := c.do(ctx, http.MethodGet, path, nil, &summary); err != nil {
		return domain.SalesSummary{}, err
	}
	return summary, nil
}

// Breakdown is the category donut payload: sorted slices plus the stroke
// geometry the chart renders directly.
type Breakdown struct {
	Slices []analytics.Slice `json:"slices"`
	Arcs   []analytics.Arc   `json:"arcs"`
	Total  money.Money       `json:"total"`
}

func (c *Client) CategoryBreakdown(ctx context.Context, date string) (Breakdown, error) {
	path := "/api/v1/summary/breakdown"
	if date != "" {
		path += "?date=" + date
	}
	var breakdown Breakdown
	if err := c.do(ctx, http.MethodGet, path, nil, &breakdown); err != nil {
		return Breakdown{}, err
	}
	return breakdown, nil
}

func (c *Client) TopProducts(ctx context.Context, date string, limit int) ([]domain.ProductSales, error) {
	path := "/api/v1/summary/top-products?limit=" + strconv.Itoa(limit)
	if date != "" {
		path += "&date=" + date
	}
	var resp struct {
		Products []domain.ProductSales `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

func (c *Client) Inventory(ctx context.Context) ([]domain.InventoryRecord, error) {
	var resp struct {
		Records []domain.InventoryRecord `json:"records"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/inventory", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (c *Client) InventoryReport(ctx context.Context) (inventory.Report, error) {
	var report inventory.Report
	if err := c.do(ctx, http.MethodGet, "/api/v1/inventory/report", nil, &report); err != nil {
		return inventory.Report{}, err
	}
	return report, nil
}

func (c *Client) LowStock(ctx context.Context) ([]domain.InventoryRecord, error) {
	var resp struct {
		Records []domain.InventoryRecord `json:"records"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/inventory/low-stock", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (c *Client) AdjustStock(ctx context.Context, req domain.StockAdjustRequest) (domain.InventoryRecord, error) {
	var resp struct {
		Record domain.InventoryRecord `json:"record"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/inventory/adjust", req, &resp); err != nil {
		return domain.InventoryRecord{}, err
	}
	return resp.Record, nil
}

func (c *Client) Settings(ctx context.Context, group string) ([]domain.Setting, error) {
	path := "/api/v1/settings"
	if group != "" {
		path += "?group=" + group
	}
	var resp struct {
		Settings []domain.Setting `json:"settings"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Settings, nil
}

func (c *Client) Workers(ctx context.Context, includeInactive bool) ([]domain.WorkerOverview, error) {
	path := "/api/v1/workers"
	if includeInactive {
		path += "?include_inactive=true"
	}
	var resp struct {
		Workers []domain.WorkerOverview `json:"workers"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Workers, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, dest any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.csrfToken != "" && method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", c.csrfToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{
		Status:  resp.StatusCode,
		Message: http.StatusText(resp.StatusCode),
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
	}
	return apiErr
}
