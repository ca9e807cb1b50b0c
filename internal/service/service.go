package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"rebill/internal/analytics"
	"rebill/internal/cache"
	"rebill/internal/cart"
	"rebill/internal/domain"
	"rebill/internal/inventory"
	"rebill/internal/money"
	"rebill/internal/store"
)

// ErrForbidden marks operations rejected for the calling actor.
var ErrForbidden = errors.New("admin role required")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo        store.Repository
	summaries   cache.SummaryCache
	loc         *time.Location
	summaryTTL  time.Duration
	clearSecret string
}

func New(repo store.Repository, summaries cache.SummaryCache, loc *time.Location, summaryTTL time.Duration, clearSecret string) *Service {
	if summaries == nil {
		summaries = cache.NoopSummaryCache{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if summaryTTL < time.Second {
		summaryTTL = 30 * time.Second
	}

	return &Service{
		repo:        repo,
		summaries:   summaries,
		loc:         loc,
		summaryTTL:  summaryTTL,
		clearSecret: clearSecret,
	}
}

func (s *Service) requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return ErrForbidden
	}
	return nil
}

func (s *Service) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, includeInactive)
}

func (s *Service) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	req.ProductID = strings.ToUpper(strings.TrimSpace(req.ProductID))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))

	if req.ProductID == "" || req.Name == "" || req.Category == "" || req.Price < 1 {
		return domain.Product{}, store.ErrInvalidInput
	}

	product := domain.Product{
		ProductID: req.ProductID,
		Name:      req.Name,
		Price:     req.Price,
		Category:  req.Category,
		Active:    true,
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logEvent(ctx, "product_create", created.ProductID, fmt.Sprintf("name=%s price=%s", created.Name, created.Price))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	productID = strings.ToUpper(strings.TrimSpace(productID))
	if productID == "" {
		return domain.Product{}, store.ErrInvalidInput
	}

	existing, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.ToLower(strings.TrimSpace(*req.Category))
		if category == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Category = category
	}
	if req.Price != nil {
		if *req.Price < 1 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Price = *req.Price
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	if existing.Active && !saved.Active {
		// Linked inventory is now lock-protected; surfaced on next read.
		s.logEvent(ctx, "product_deactivate", saved.ProductID, "linked inventory locked")
	}

	s.logEvent(ctx, "product_update", saved.ProductID, fmt.Sprintf("active=%t price=%s", saved.Active, saved.Price))
	return *saved, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Category{}, err
	}

	category := domain.Category{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Active:      true,
	}
	if req.Active != nil {
		category.Active = *req.Active
	}
	if category.Name == "" {
		return domain.Category{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		return domain.Category{}, err
	}
	s.logEvent(ctx, "category_create", created.Name, "")
	return *created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id int, req domain.CategoryUpdateRequest) (domain.Category, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Category{}, err
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return domain.Category{}, err
	}
	var existing *domain.Category
	for i := range categories {
		if categories[i].ID == id {
			existing = &categories[i]
			break
		}
	}
	if existing == nil {
		return domain.Category{}, store.ErrNotFound
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateCategory(ctx, updated)
	if err != nil {
		return domain.Category{}, err
	}
	s.logEvent(ctx, "category_update", saved.Name, "")
	return *saved, nil
}

func (s *Service) DeleteCategory(ctx context.Context, name string) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return store.ErrInvalidInput
	}

	products, err := s.repo.ListProducts(ctx, true)
	if err != nil {
		return err
	}
	for _, p := range products {
		if p.Category == name {
			return fmt.Errorf("%w: category %s still has products", store.ErrInvalidInput, name)
		}
	}

	if err := s.repo.DeleteCategory(ctx, name); err != nil {
		return err
	}
	s.logEvent(ctx, "category_delete", name, "")
	return nil
}

func (s *Service) NextBillNo(ctx context.Context) (int, error) {
	return s.repo.NextBillNo(ctx)
}

func (s *Service) CreateBill(ctx context.Context, req domain.BillCreateRequest) (domain.Bill, error) {
	lines, total, err := s.buildBillLines(ctx, req.Items)
	if err != nil {
		return domain.Bill{}, err
	}

	s.checkClientTotal(ctx, 0, req.ExpectedTotal, total)

	bill := domain.Bill{
		CustomerName: strings.TrimSpace(req.CustomerName),
		Items:        lines,
		TotalAmount:  total,
		Status:       domain.BillStatusConfirmed,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.repo.CreateBill(ctx, bill)
	if err != nil {
		return domain.Bill{}, err
	}

	s.deductStock(ctx, created.Items)
	s.invalidateSummary(ctx, created.CreatedAt)
	s.logEvent(ctx, "bill_create", fmt.Sprintf("%d", created.BillNo), fmt.Sprintf("total=%s items=%d", created.TotalAmount, len(created.Items)))
	return *created, nil
}

func (s *Service) GetBill(ctx context.Context, billNo int) (domain.Bill, error) {
	bill, err := s.repo.GetBill(ctx, billNo)
	if err != nil {
		return domain.Bill{}, err
	}
	return *bill, nil
}

func (s *Service) UpdateBill(ctx context.Context, billNo int, req domain.BillUpdateRequest) (domain.Bill, error) {
	existing, err := s.repo.GetBill(ctx, billNo)
	if err != nil {
		return domain.Bill{}, err
	}
	if existing.Status != domain.BillStatusConfirmed {
		return domain.Bill{}, fmt.Errorf("%w: bill %d is cancelled", store.ErrInvalidInput, billNo)
	}

	lines, total, err := s.buildBillLines(ctx, req.Items)
	if err != nil {
		return domain.Bill{}, err
	}

	s.checkClientTotal(ctx, billNo, req.ExpectedTotal, total)

	updated := *existing
	if req.CustomerName != nil {
		updated.CustomerName = strings.TrimSpace(*req.CustomerName)
	}
	updated.Items = lines
	updated.TotalAmount = total

	// Return the old quantities to stock before deducting the new ones.
	s.restoreStock(ctx, existing.Items)
	saved, err := s.repo.UpdateBill(ctx, updated)
	if err != nil {
		s.deductStock(ctx, existing.Items)
		return domain.Bill{}, err
	}
	s.deductStock(ctx, saved.Items)

	s.invalidateSummary(ctx, saved.CreatedAt)
	s.logEvent(ctx, "bill_update", fmt.Sprintf("%d", saved.BillNo), fmt.Sprintf("total=%s", saved.TotalAmount))
	return *saved, nil
}

func (s *Service) CancelBill(ctx context.Context, billNo int) (domain.Bill, error) {
	existing, err := s.repo.GetBill(ctx, billNo)
	if err != nil {
		return domain.Bill{}, err
	}
	if existing.Status == domain.BillStatusCancelled {
		return domain.Bill{}, fmt.Errorf("%w: bill %d already cancelled", store.ErrInvalidInput, billNo)
	}

	updated := *existing
	updated.Status = domain.BillStatusCancelled

	saved, err := s.repo.UpdateBill(ctx, updated)
	if err != nil {
		return domain.Bill{}, err
	}

	s.restoreStock(ctx, saved.Items)
	s.invalidateSummary(ctx, saved.CreatedAt)
	s.logEvent(ctx, "bill_cancel", fmt.Sprintf("%d", saved.BillNo), "")
	return *saved, nil
}

func (s *Service) BillsOnDate(ctx context.Context, date string) ([]domain.Bill, error) {
	from, to, err := s.dayWindow(date)
	if err != nil {
		return nil, err
	}
	bills, err := s.repo.ListBillsBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	analytics.SortBills(bills)
	return bills, nil
}

func (s *Service) TodayBills(ctx context.Context) ([]domain.Bill, error) {
	return s.BillsOnDate(ctx, time.Now().In(s.loc).Format("2006-01-02"))
}

func (s *Service) ClearAllBills(ctx context.Context, secret string) (int, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return 0, err
	}
	if s.clearSecret == "" {
		return 0, fmt.Errorf("%w: clear secret not configured", ErrForbidden)
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.clearSecret)) != 1 {
		return 0, ErrForbidden
	}

	deleted, err := s.repo.DeleteAllBills(ctx)
	if err != nil {
		return 0, err
	}

	s.invalidateSummary(ctx, time.Now().UTC())
	s.logEvent(ctx, "bills_clear", "", fmt.Sprintf("deleted=%d", deleted))
	return deleted, nil
}

func (s *Service) DailySummary(ctx context.Context, date string) (domain.SalesSummary, error) {
	if date == "" {
		date = time.Now().In(s.loc).Format("2006-01-02")
	}
	key := "summary:" + date

	if cached, ok, err := s.summaries.Get(ctx, key); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: summary cache read failed date=%s: %v", date, err)
	}

	bills, err := s.BillsOnDate(ctx, date)
	if err != nil {
		return domain.SalesSummary{}, err
	}

	summary := s.buildSummary(date, bills)

	if err := s.summaries.Set(ctx, key, &summary, s.summaryTTL); err != nil {
		log.Printf("[service] WARN: summary cache write failed date=%s: %v", date, err)
	}
	return summary, nil
}

func (s *Service) buildSummary(date string, bills []domain.Bill) domain.SalesSummary {
	summary := domain.SalesSummary{
		Date:           date,
		CategoryTotals: make(map[string]money.Money),
	}

	var first, last time.Time
	for _, bill := range bills {
		if bill.Status != domain.BillStatusConfirmed {
			continue
		}
		summary.TotalBills++
		summary.TotalSales += bill.TotalAmount
		for _, item := range bill.Items {
			summary.CategoryTotals[item.Category] += item.Price.MulInt(item.Quantity)
		}
		if first.IsZero() || bill.CreatedAt.Before(first) {
			first = bill.CreatedAt
		}
		if bill.CreatedAt.After(last) {
			last = bill.CreatedAt
		}
	}

	if summary.TotalBills > 0 {
		summary.AverageBillValue = summary.TotalSales.DivInt(summary.TotalBills)
		summary.FirstBillTime = first.In(s.loc).Format("15:04")
		summary.LastBillTime = last.In(s.loc).Format("15:04")
	}

	summary.HourlySales = analytics.HourlyBuckets(bills, s.loc)
	summary.PeakHour = analytics.PeakHour(summary.HourlySales)
	return summary
}

func (s *Service) CategoryBreakdown(ctx context.Context, date string) ([]analytics.Slice, error) {
	summary, err := s.DailySummary(ctx, date)
	if err != nil {
		return nil, err
	}
	return analytics.BreakdownFromTotals(summary.CategoryTotals), nil
}

func (s *Service) TopProducts(ctx context.Context, date string, limit int) ([]domain.ProductSales, error) {
	if limit < 1 {
		limit = 5
	}
	bills, err := s.BillsOnDate(ctx, date)
	if err != nil {
		return nil, err
	}

	products := rollupProducts(bills)
	if len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

func (s *Service) WeeklySummary(ctx context.Context, anchor string) (domain.PeriodSummary, error) {
	if anchor == "" {
		anchor = time.Now().In(s.loc).Format("2006-01-02")
	}
	day, err := time.ParseInLocation("2006-01-02", anchor, s.loc)
	if err != nil {
		return domain.PeriodSummary{}, fmt.Errorf("%w: bad date %q", store.ErrInvalidInput, anchor)
	}

	// Week runs Monday through Sunday.
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	end := start.AddDate(0, 0, 7)

	bills, err := s.repo.ListBillsBetween(ctx, start.UTC(), end.UTC())
	if err != nil {
		return domain.PeriodSummary{}, err
	}

	summary := domain.PeriodSummary{
		StartDate: start.Format("2006-01-02"),
		EndDate:   end.AddDate(0, 0, -1).Format("2006-01-02"),
		Products:  rollupProducts(bills),
	}
	for _, p := range summary.Products {
		summary.TotalSales += p.TotalSales
	}
	return summary, nil
}

func (s *Service) MonthlySummary(ctx context.Context, month int, year int) (domain.PeriodSummary, error) {
	if month < 1 || month > 12 || year < 2000 {
		return domain.PeriodSummary{}, store.ErrInvalidInput
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 1, 0)

	bills, err := s.repo.ListBillsBetween(ctx, start.UTC(), end.UTC())
	if err != nil {
		return domain.PeriodSummary{}, err
	}

	summary := domain.PeriodSummary{
		Month:    month,
		Year:     year,
		Products: rollupProducts(bills),
	}
	for _, p := range summary.Products {
		summary.TotalSales += p.TotalSales
	}
	return summary, nil
}

// rollupProducts aggregates confirmed bill lines per product, sorted by
// sales descending with name as the tiebreaker.
func rollupProducts(bills []domain.Bill) []domain.ProductSales {
	byProduct := make(map[string]*domain.ProductSales)
	for _, bill := range bills {
		if bill.Status != domain.BillStatusConfirmed {
			continue
		}
		for _, item := range bill.Items {
			entry := byProduct[item.ProductID]
			if entry == nil {
				entry = &domain.ProductSales{ProductID: item.ProductID, Name: item.Name, Category: item.Category}
				byProduct[item.ProductID] = entry
			}
			entry.QuantitySold += item.Quantity
			entry.TotalSales += item.Price.MulInt(item.Quantity)
		}
	}

	products := make([]domain.ProductSales, 0, len(byProduct))
	for _, entry := range byProduct {
		products = append(products, *entry)
	}
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].TotalSales != products[j].TotalSales {
			return products[i].TotalSales > products[j].TotalSales
		}
		return products[i].Name < products[j].Name
	})
	return products
}

func (s *Service) ListInventory(ctx context.Context, recordType string, status inventory.StockStatus, query string, sortKey inventory.SortKey, descending bool) ([]domain.InventoryRecord, error) {
	records, err := s.decoratedInventory(ctx)
	if err != nil {
		return nil, err
	}
	records = inventory.Filter(records, recordType, status, query)
	return inventory.Sorted(records, sortKey, descending), nil
}

func (s *Service) InventoryReport(ctx context.Context) (inventory.Report, error) {
	records, err := s.repo.ListInventory(ctx)
	if err != nil {
		return inventory.Report{}, err
	}
	products, err := s.productMap(ctx)
	if err != nil {
		return inventory.Report{}, err
	}
	return inventory.Evaluate(records, products), nil
}

func (s *Service) LowStock(ctx context.Context) ([]domain.InventoryRecord, error) {
	records, err := s.decoratedInventory(ctx)
	if err != nil {
		return nil, err
	}
	return inventory.LowStock(records), nil
}

func (s *Service) CreateInventory(ctx context.Context, req domain.InventoryCreateRequest) (domain.InventoryRecord, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.InventoryRecord{}, err
	}

	record := domain.InventoryRecord{
		Name:           strings.TrimSpace(req.Name),
		Type:           strings.ToUpper(strings.TrimSpace(req.Type)),
		Unit:           strings.TrimSpace(req.Unit),
		Stock:          req.Stock,
		UnitPrice:      req.UnitPrice,
		AlertThreshold: req.AlertThreshold,
		ProductID:      strings.ToUpper(strings.TrimSpace(req.ProductID)),
	}
	if record.Stock < 0 || record.AlertThreshold < 0 {
		return domain.InventoryRecord{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateInventoryRecord(ctx, record)
	if err != nil {
		return domain.InventoryRecord{}, err
	}
	s.logEvent(ctx, "inventory_create", created.Name, fmt.Sprintf("type=%s stock=%s", created.Type, created.Stock))
	return *created, nil
}

func (s *Service) UpdateInventory(ctx context.Context, id int, req domain.InventoryUpdateRequest) (domain.InventoryRecord, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.InventoryRecord{}, err
	}

	existing, err := s.lockedCheck(ctx, id)
	if err != nil {
		return domain.InventoryRecord{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.InventoryRecord{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Unit != nil {
		unit := strings.TrimSpace(*req.Unit)
		if unit == "" {
			return domain.InventoryRecord{}, store.ErrInvalidInput
		}
		updated.Unit = unit
	}
	if req.UnitPrice != nil {
		if *req.UnitPrice < 0 {
			return domain.InventoryRecord{}, store.ErrInvalidInput
		}
		updated.UnitPrice = *req.UnitPrice
	}
	if req.AlertThreshold != nil {
		if *req.AlertThreshold < 0 {
			return domain.InventoryRecord{}, store.ErrInvalidInput
		}
		updated.AlertThreshold = *req.AlertThreshold
	}

	saved, err := s.repo.UpdateInventoryRecord(ctx, updated)
	if err != nil {
		return domain.InventoryRecord{}, err
	}
	s.logEvent(ctx, "inventory_update", saved.Name, "")
	return *saved, nil
}

func (s *Service) AdjustStock(ctx context.Context, req domain.StockAdjustRequest) (domain.InventoryRecord, error) {
	existing, err := s.lockedCheck(ctx, req.ID)
	if err != nil {
		return domain.InventoryRecord{}, err
	}
	if req.Delta == 0 {
		return *existing, nil
	}

	updated := *existing
	updated.Stock += req.Delta
	if updated.Stock < 0 {
		updated.Stock = 0
	}

	saved, err := s.repo.UpdateInventoryRecord(ctx, updated)
	if err != nil {
		return domain.InventoryRecord{}, err
	}
	s.logEvent(ctx, "stock_adjust", saved.Name, fmt.Sprintf("delta=%s stock=%s", req.Delta, saved.Stock))
	return *saved, nil
}

func (s *Service) DeleteInventory(ctx context.Context, id int) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}

	if _, err := s.lockedCheck(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteInventoryRecord(ctx, id); err != nil {
		return err
	}
	s.logEvent(ctx, "inventory_delete", fmt.Sprintf("%d", id), "")
	return nil
}

// lockedCheck loads a record and refuses the operation when its linked
// product is inactive.
func (s *Service) lockedCheck(ctx context.Context, id int) (*domain.InventoryRecord, error) {
	record, err := s.repo.GetInventoryRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.ProductID != "" {
		product, err := s.repo.GetProduct(ctx, record.ProductID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if product != nil && !product.Active {
			record.Locked = true
			return nil, fmt.Errorf("%w: product %s is inactive", store.ErrLocked, record.ProductID)
		}
	}
	return record, nil
}

func (s *Service) decoratedInventory(ctx context.Context) ([]domain.InventoryRecord, error) {
	records, err := s.repo.ListInventory(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.productMap(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ProductID == "" {
			continue
		}
		if product, ok := products[records[i].ProductID]; ok {
			records[i].Locked = !product.Active
		}
	}
	return records, nil
}

func (s *Service) productMap(ctx context.Context) (map[string]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx, true)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ProductID] = p
	}
	return byID, nil
}

func (s *Service) Settings(ctx context.Context, group string) ([]domain.Setting, error) {
	return s.repo.ListSettings(ctx, group)
}

func (s *Service) UpdateSettings(ctx context.Context, settings []domain.Setting) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if len(settings) == 0 {
		return store.ErrInvalidInput
	}
	if err := s.repo.UpsertSettings(ctx, settings); err != nil {
		return err
	}
	s.logEvent(ctx, "settings_update", "", fmt.Sprintf("keys=%d", len(settings)))
	return nil
}

func (s *Service) settingValue(ctx context.Context, key string, fallback string) string {
	setting, err := s.repo.GetSetting(ctx, key)
	if err != nil {
		return fallback
	}
	if strings.TrimSpace(setting.Value) == "" {
		return fallback
	}
	return setting.Value
}

// ShopName and CurrencySymbol feed receipt rendering and report headers.
func (s *Service) ShopName(ctx context.Context) string {
	return s.settingValue(ctx, domain.SettingShopName, "ReBill")
}

func (s *Service) CurrencySymbol(ctx context.Context) string {
	return s.settingValue(ctx, domain.SettingCurrencySymbol, "Rs.")
}

func (s *Service) Authenticate(ctx context.Context, username string, password string) (domain.UserAccount, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.UserAccount{}, err
	}
	if !user.Active {
		return domain.UserAccount{}, store.ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return domain.UserAccount{}, fmt.Errorf("invalid credentials")
	}
	return *user, nil
}

func (s *Service) CreateUser(ctx context.Context, username string, password string, role string) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(username) == "" || len(password) < 8 {
		return fmt.Errorf("%w: username required and password must be at least 8 characters", store.ErrInvalidInput)
	}
	if role != "admin" && role != "cashier" {
		return fmt.Errorf("%w: unknown role %q", store.ErrInvalidInput, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.CreateUser(ctx, domain.UserAccount{Username: username, Password: string(hash), Role: role}); err != nil {
		return err
	}
	s.logEvent(ctx, "user_create", strings.ToLower(strings.TrimSpace(username)), "role="+role)
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, username string, newPassword string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ErrForbidden
	}
	username = strings.ToLower(strings.TrimSpace(username))
	if actor.Role != "admin" && actor.Username != username {
		return ErrForbidden
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", store.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateUserPassword(ctx, username, string(hash)); err != nil {
		return err
	}
	s.logEvent(ctx, "password_change", username, "")
	return nil
}

// buildBillLines resolves requested items against the active catalog and
// totals them. Quantities below one drop out; an order that resolves to no
// lines is invalid.
func (s *Service) buildBillLines(ctx context.Context, items []domain.BillItemRequest) ([]domain.LineItem, money.Money, error) {
	if len(items) == 0 {
		return nil, 0, fmt.Errorf("%w: bill needs at least one item", store.ErrInvalidInput)
	}

	// Normalize in place so lookup and line building agree on the key.
	ids := make([]string, 0, len(items))
	for i := range items {
		items[i].ProductID = strings.ToUpper(strings.TrimSpace(items[i].ProductID))
		ids = append(ids, items[i].ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	lines, missing := cart.BuildLines(items, products)
	if len(missing) > 0 {
		return nil, 0, fmt.Errorf("%w: unknown or inactive products: %s", store.ErrInvalidInput, strings.Join(missing, ", "))
	}
	if len(lines) == 0 {
		return nil, 0, fmt.Errorf("%w: bill needs at least one item", store.ErrInvalidInput)
	}

	var total money.Money
	for _, line := range lines {
		total += line.Price.MulInt(line.Quantity)
	}
	return lines, total, nil
}

// checkClientTotal logs an integrity event when the terminal's total differs
// from the recomputed one. The server total is always the one persisted.
func (s *Service) checkClientTotal(ctx context.Context, billNo int, expected *money.Money, actual money.Money) {
	if expected == nil || *expected == actual {
		return
	}
	actor, _ := ActorFromContext(ctx)
	log.Printf("[service] WARN: client total mismatch bill=%d client=%s server=%s user=%s", billNo, *expected, actual, actor.Username)
}

// deductStock reduces direct-sale inventory for billed lines, flooring at
// zero. Stock failures never fail the bill; they are logged and left to the
// inventory screen to reconcile.
func (s *Service) deductStock(ctx context.Context, lines []domain.LineItem) {
	s.moveStock(ctx, lines, -1)
}

func (s *Service) restoreStock(ctx context.Context, lines []domain.LineItem) {
	s.moveStock(ctx, lines, 1)
}

func (s *Service) moveStock(ctx context.Context, lines []domain.LineItem, direction int) {
	for _, line := range lines {
		record, err := s.repo.GetInventoryByProduct(ctx, line.ProductID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Printf("[service] WARN: stock lookup failed product=%s: %v", line.ProductID, err)
			}
			continue
		}
		record.Stock += money.QuantityFromUnits(int64(direction * line.Quantity))
		if record.Stock < 0 {
			record.Stock = 0
		}
		if _, err := s.repo.UpdateInventoryRecord(ctx, *record); err != nil {
			log.Printf("[service] WARN: stock update failed product=%s: %v", line.ProductID, err)
		}
	}
}

func (s *Service) dayWindow(date string) (time.Time, time.Time, error) {
	if date == "" {
		date = time.Now().In(s.loc).Format("2006-01-02")
	}
	day, err := time.ParseInLocation("2006-01-02", date, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: bad date %q", store.ErrInvalidInput, date)
	}
	return day.UTC(), day.AddDate(0, 0, 1).UTC(), nil
}

func (s *Service) invalidateSummary(ctx context.Context, at time.Time) {
	key := "summary:" + at.In(s.loc).Format("2006-01-02")
	if err := s.summaries.Delete(ctx, key); err != nil {
		log.Printf("[service] WARN: summary cache invalidate failed key=%s: %v", key, err)
	}
}

func (s *Service) logEvent(ctx context.Context, action string, entity string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}
	log.Printf("[service] %s entity=%s user=%s role=%s %s", action, entity, actor.Username, actor.Role, detail)
}
