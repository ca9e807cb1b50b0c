package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"rebill/internal/domain"
	"rebill/internal/money"
	"rebill/internal/store"
	"rebill/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	categories      map[int]domain.Category
	nextCategoryID  int
	bills           map[int]domain.Bill
	nextBillNo      int
	inventory       map[int]domain.InventoryRecord
	nextInventoryID int
	workers         map[string]domain.Worker
	advances        map[string][]domain.Advance
	attendance      map[string]domain.Attendance
	salaryPayments  map[string]domain.SalaryPayment
	settings        map[string]domain.Setting
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()

	products := []domain.Product{
		{ProductID: "PRD-TEA-01", Name: "Masala Chai", Price: money.FromMajor(15), Category: "tea", Active: true},
		{ProductID: "PRD-TEA-02", Name: "Ginger Tea", Price: money.FromMajor(20), Category: "tea", Active: true},
		{ProductID: "PRD-COF-01", Name: "Filter Coffee", Price: money.FromMajor(30), Category: "coffee", Active: true},
		{ProductID: "PRD-COF-02", Name: "Cold Coffee", Price: money.FromMajor(60), Category: "coffee", Active: true},
		{ProductID: "PRD-JUC-01", Name: "Lime Juice", Price: money.FromMajor(25), Category: "juice", Active: true},
		{ProductID: "PRD-SNK-01", Name: "Samosa", Price: money.FromMajor(18), Category: "snacks", Active: true},
		{ProductID: "PRD-SNK-02", Name: "Veg Puff", Price: money.FromMajor(22), Category: "snacks", Active: true},
		{ProductID: "PRD-MEL-01", Name: "Veg Thali", Price: money.FromMajor(120), Category: "meals", Active: true},
		{ProductID: "PRD-BAK-01", Name: "Butter Bun", Price: money.FromMajor(28), Category: "bakery", Active: true},
		{ProductID: "PRD-BAK-02", Name: "Plum Cake Slice", Price: money.FromMajor(45), Category: "bakery", Active: true},
	}

	categories := []domain.Category{
		{ID: 1, Name: "tea", Description: "Hot teas", Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: 2, Name: "coffee", Description: "Hot and cold coffee", Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: 3, Name: "juice", Description: "Fresh juices", Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: 4, Name: "snacks", Description: "Fried and baked snacks", Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: 5, Name: "meals", Description: "Full meals", Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: 6, Name: "bakery", Description: "Bakery items", Active: true, CreatedAt: now, UpdatedAt: now},
	}

	inventory := []domain.InventoryRecord{
		{ID: 1, Name: "Samosa", Type: domain.InventoryTypeDirectSale, Unit: "pcs", Stock: money.QuantityFromUnits(40), AlertThreshold: money.QuantityFromUnits(10), ProductID: "PRD-SNK-01", UpdatedAt: now},
		{ID: 2, Name: "Veg Puff", Type: domain.InventoryTypeDirectSale, Unit: "pcs", Stock: money.QuantityFromUnits(25), AlertThreshold: money.QuantityFromUnits(8), ProductID: "PRD-SNK-02", UpdatedAt: now},
		{ID: 3, Name: "Butter Bun", Type: domain.InventoryTypeDirectSale, Unit: "pcs", Stock: money.QuantityFromUnits(30), AlertThreshold: money.QuantityFromUnits(10), ProductID: "PRD-BAK-01", UpdatedAt: now},
		{ID: 4, Name: "Tea Powder", Type: domain.InventoryTypeRawMaterial, Unit: "kg", Stock: money.QuantityFromUnits(5), UnitPrice: money.FromMajor(420), AlertThreshold: money.QuantityFromUnits(2), UpdatedAt: now},
		{ID: 5, Name: "Milk", Type: domain.InventoryTypeRawMaterial, Unit: "l", Stock: money.QuantityFromUnits(18), UnitPrice: money.FromMajor(56), AlertThreshold: money.QuantityFromUnits(6), UpdatedAt: now},
		{ID: 6, Name: "Sugar", Type: domain.InventoryTypeRawMaterial, Unit: "kg", Stock: money.QuantityFromUnits(10), UnitPrice: money.FromMajor(44), AlertThreshold: money.QuantityFromUnits(3), UpdatedAt: now},
	}

	settings := []domain.Setting{
		{Key: domain.SettingShopName, Value: "ReBill Cafe", GroupName: "shop", UpdatedAt: now},
		{Key: domain.SettingCurrencySymbol, Value: "Rs.", GroupName: "shop", UpdatedAt: now},
		{Key: domain.SettingSalaryDay, Value: "1", GroupName: "payroll", UpdatedAt: now},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		productMap[p.ProductID] = p
	}
	categoryMap := make(map[int]domain.Category, len(categories))
	for _, c := range categories {
		categoryMap[c.ID] = c
	}
	inventoryMap := make(map[int]domain.InventoryRecord, len(inventory))
	for _, rec := range inventory {
		inventoryMap[rec.ID] = rec
	}
	settingMap := make(map[string]domain.Setting, len(settings))
	for _, s := range settings {
		settingMap[s.Key] = s
	}

	return &Store{
		products:        productMap,
		categories:      categoryMap,
		nextCategoryID:  len(categories) + 1,
		bills:           make(map[int]domain.Bill),
		nextBillNo:      1,
		inventory:       inventoryMap,
		nextInventoryID: len(inventory) + 1,
		workers:         make(map[string]domain.Worker),
		advances:        make(map[string][]domain.Advance),
		attendance:      make(map[string]domain.Attendance),
		salaryPayments:  make(map[string]domain.SalaryPayment),
		settings:        settingMap,
		usersByUsername: seedUsers(),
	}
}

func (s *Store) ListProducts(_ context.Context, includeInactive bool) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !includeInactive && !p.Active {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[productID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, productIDs []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(productIDs))
	for _, id := range productIDs {
		if p, ok := s.products[id]; ok && p.Active {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ProductID == "" || product.Name == "" || product.Category == "" || product.Price < 1 {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.products[product.ProductID]; exists {
		return nil, store.ErrConflict
	}

	s.products[product.ProductID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ProductID == "" || product.Name == "" || product.Category == "" || product.Price < 1 {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.products[product.ProductID]; !exists {
		return nil, store.ErrNotFound
	}

	s.products[product.ProductID] = product
	updated := product
	return &updated, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return cmpString(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category.Name = strings.ToLower(strings.TrimSpace(category.Name))
	if category.Name == "" {
		return nil, store.ErrInvalidInput
	}
	for _, existing := range s.categories {
		if existing.Name == category.Name {
			return nil, store.ErrConflict
		}
	}

	category.ID = s.nextCategoryID
	s.nextCategoryID++
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	category.UpdatedAt = category.CreatedAt
	s.categories[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) UpdateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.categories[category.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	category.Name = strings.ToLower(strings.TrimSpace(category.Name))
	if category.Name == "" {
		return nil, store.ErrInvalidInput
	}
	for id, other := range s.categories {
		if id != category.ID && other.Name == category.Name {
			return nil, store.ErrConflict
		}
	}
	category.CreatedAt = existing.CreatedAt
	category.UpdatedAt = time.Now().UTC()
	s.categories[category.ID] = category
	updated := category
	return &updated, nil
}

func (s *Store) DeleteCategory(_ context.Context, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.categories {
		if c.Name == categoryID {
			delete(s.categories, id)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) NextBillNo(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nextBillNo, nil
}

func (s *Store) CreateBill(_ context.Context, bill domain.Bill) (*domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(bill.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if bill.BillNo == 0 {
		bill.BillNo = s.nextBillNo
	}
	if _, exists := s.bills[bill.BillNo]; exists {
		return nil, store.ErrConflict
	}
	if bill.BillNo >= s.nextBillNo {
		s.nextBillNo = bill.BillNo + 1
	}
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}
	bill.UpdatedAt = bill.CreatedAt
	if bill.Status == "" {
		bill.Status = domain.BillStatusConfirmed
	}

	s.bills[bill.BillNo] = cloneBill(bill)
	saved := cloneBill(s.bills[bill.BillNo])
	return &saved, nil
}

func (s *Store) GetBill(_ context.Context, billNo int) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bill, exists := s.bills[billNo]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyBill := cloneBill(bill)
	return &copyBill, nil
}

func (s *Store) UpdateBill(_ context.Context, bill domain.Bill) (*domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.bills[bill.BillNo]
	if !exists {
		return nil, store.ErrNotFound
	}
	bill.CreatedAt = existing.CreatedAt
	bill.UpdatedAt = time.Now().UTC()
	s.bills[bill.BillNo] = cloneBill(bill)
	saved := cloneBill(s.bills[bill.BillNo])
	return &saved, nil
}

func (s *Store) ListBillsBetween(_ context.Context, from time.Time, to time.Time) ([]domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Bill, 0, 64)
	for _, bill := range s.bills {
		if bill.CreatedAt.Before(from) || !bill.CreatedAt.Before(to) {
			continue
		}
		result = append(result, cloneBill(bill))
	}
	slices.SortFunc(result, func(a, b domain.Bill) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return b.BillNo - a.BillNo
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) DeleteAllBills(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := len(s.bills)
	s.bills = make(map[int]domain.Bill)
	s.nextBillNo = 1
	return deleted, nil
}

func (s *Store) ListInventory(_ context.Context) ([]domain.InventoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.InventoryRecord, 0, len(s.inventory))
	for _, rec := range s.inventory {
		records = append(records, rec)
	}
	slices.SortFunc(records, func(a, b domain.InventoryRecord) int {
		return cmpString(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return records, nil
}

func (s *Store) GetInventoryRecord(_ context.Context, id int) (*domain.InventoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.inventory[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyRec := rec
	return &copyRec, nil
}

func (s *Store) GetInventoryByProduct(_ context.Context, productID string) (*domain.InventoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.inventory {
		if rec.ProductID != "" && rec.ProductID == productID {
			copyRec := rec
			return &copyRec, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateInventoryRecord(_ context.Context, record domain.InventoryRecord) (*domain.InventoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.Name == "" || record.Unit == "" {
		return nil, store.ErrInvalidInput
	}
	if record.Type != domain.InventoryTypeDirectSale && record.Type != domain.InventoryTypeRawMaterial {
		return nil, store.ErrInvalidInput
	}
	if record.Type == domain.InventoryTypeDirectSale {
		if record.ProductID == "" {
			return nil, store.ErrInvalidInput
		}
		if _, exists := s.products[record.ProductID]; !exists {
			return nil, store.ErrNotFound
		}
		for _, other := range s.inventory {
			if other.ProductID == record.ProductID {
				return nil, store.ErrConflict
			}
		}
	}

	record.ID = s.nextInventoryID
	s.nextInventoryID++
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	s.inventory[record.ID] = record
	created := record
	return &created, nil
}

func (s *Store) UpdateInventoryRecord(_ context.Context, record domain.InventoryRecord) (*domain.InventoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.inventory[record.ID]; !exists {
		return nil, store.ErrNotFound
	}
	if record.Name == "" || record.Unit == "" {
		return nil, store.ErrInvalidInput
	}
	record.UpdatedAt = time.Now().UTC()
	s.inventory[record.ID] = record
	updated := record
	return &updated, nil
}

func (s *Store) DeleteInventoryRecord(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.inventory[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.inventory, id)
	return nil
}

func (s *Store) ListWorkers(_ context.Context, includeInactive bool) ([]domain.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workers := make([]domain.Worker, 0, len(s.workers))
	for _, w := range s.workers {
		if !includeInactive && w.Status != domain.WorkerStatusActive {
			continue
		}
		workers = append(workers, w)
	}
	slices.SortFunc(workers, func(a, b domain.Worker) int {
		return cmpString(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return workers, nil
}

func (s *Store) GetWorker(_ context.Context, workerID string) (*domain.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	worker, exists := s.workers[workerID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyWorker := worker
	return &copyWorker, nil
}

func (s *Store) CreateWorker(_ context.Context, worker domain.Worker) (*domain.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(worker.Name) == "" || worker.Salary < 0 {
		return nil, store.ErrInvalidInput
	}
	if worker.WorkerID == "" {
		worker.WorkerID = xid.Worker()
	}
	if _, exists := s.workers[worker.WorkerID]; exists {
		return nil, store.ErrConflict
	}
	if worker.JoinDate.IsZero() {
		worker.JoinDate = time.Now().UTC()
	}
	if worker.Status == "" {
		worker.Status = domain.WorkerStatusActive
	}
	s.workers[worker.WorkerID] = worker
	created := worker
	return &created, nil
}

func (s *Store) UpdateWorker(_ context.Context, worker domain.Worker) (*domain.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.workers[worker.WorkerID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if strings.TrimSpace(worker.Name) == "" || worker.Salary < 0 {
		return nil, store.ErrInvalidInput
	}
	worker.JoinDate = existing.JoinDate
	s.workers[worker.WorkerID] = worker
	updated := worker
	return &updated, nil
}

func (s *Store) CreateAdvance(_ context.Context, advance domain.Advance) (*domain.Advance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if advance.WorkerID == "" || advance.Amount < 1 {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.workers[advance.WorkerID]; !exists {
		return nil, store.ErrNotFound
	}
	if advance.AdvanceID == "" {
		advance.AdvanceID = xid.Advance()
	}
	if advance.Date.IsZero() {
		advance.Date = time.Now().UTC()
	}
	s.advances[advance.WorkerID] = append(s.advances[advance.WorkerID], advance)
	created := advance
	return &created, nil
}

func (s *Store) ListAdvances(_ context.Context, workerID string, from time.Time, to time.Time) ([]domain.Advance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Advance, 0, 16)
	appendMatching := func(entries []domain.Advance) {
		for _, adv := range entries {
			if adv.Date.Before(from) || !adv.Date.Before(to) {
				continue
			}
			result = append(result, adv)
		}
	}
	if workerID != "" {
		appendMatching(s.advances[workerID])
	} else {
		for _, entries := range s.advances {
			appendMatching(entries)
		}
	}
	slices.SortFunc(result, func(a, b domain.Advance) int {
		if a.Date.Equal(b.Date) {
			return cmpString(b.AdvanceID, a.AdvanceID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) UpsertAttendance(_ context.Context, attendance domain.Attendance) (*domain.Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if attendance.WorkerID == "" || attendance.Status == "" {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.workers[attendance.WorkerID]; !exists {
		return nil, store.ErrNotFound
	}
	if attendance.Date.IsZero() {
		attendance.Date = time.Now().UTC()
	}
	attendance.Date = dayStartUTC(attendance.Date)
	key := attendanceKey(attendance.WorkerID, attendance.Date)
	if existing, ok := s.attendance[key]; ok {
		attendance.AttendanceID = existing.AttendanceID
	} else if attendance.AttendanceID == "" {
		attendance.AttendanceID = xid.Attendance()
	}
	s.attendance[key] = attendance
	saved := attendance
	return &saved, nil
}

func (s *Store) ListAttendance(_ context.Context, workerID string, from time.Time, to time.Time) ([]domain.Attendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Attendance, 0, 32)
	for _, att := range s.attendance {
		if workerID != "" && att.WorkerID != workerID {
			continue
		}
		if att.Date.Before(from) || !att.Date.Before(to) {
			continue
		}
		result = append(result, att)
	}
	slices.SortFunc(result, func(a, b domain.Attendance) int {
		if a.Date.Equal(b.Date) {
			return cmpString(a.WorkerID, b.WorkerID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) ListAttendanceOn(_ context.Context, day time.Time) ([]domain.Attendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day = dayStartUTC(day)
	result := make([]domain.Attendance, 0, len(s.workers))
	for _, att := range s.attendance {
		if att.Date.Equal(day) {
			result = append(result, att)
		}
	}
	slices.SortFunc(result, func(a, b domain.Attendance) int {
		return cmpString(a.WorkerID, b.WorkerID)
	})
	return result, nil
}

func (s *Store) CreateSalaryPayment(_ context.Context, payment domain.SalaryPayment) (*domain.SalaryPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payment.WorkerID == "" || payment.Month < 1 || payment.Month > 12 || payment.Year < 2000 {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.workers[payment.WorkerID]; !exists {
		return nil, store.ErrNotFound
	}
	key := salaryKey(payment.WorkerID, payment.Month, payment.Year)
	if _, exists := s.salaryPayments[key]; exists {
		return nil, store.ErrConflict
	}
	if payment.PaymentID == "" {
		payment.PaymentID = xid.Salary()
	}
	s.salaryPayments[key] = payment
	created := payment
	return &created, nil
}

func (s *Store) ListSalaryPayments(_ context.Context, workerID string, limit int) ([]domain.SalaryPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.SalaryPayment, 0, 16)
	for _, payment := range s.salaryPayments {
		if workerID != "" && payment.WorkerID != workerID {
			continue
		}
		result = append(result, payment)
	}
	slices.SortFunc(result, func(a, b domain.SalaryPayment) int {
		if a.Year != b.Year {
			return b.Year - a.Year
		}
		if a.Month != b.Month {
			return b.Month - a.Month
		}
		return cmpString(a.WorkerID, b.WorkerID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) FindSalaryPayment(_ context.Context, workerID string, month int, year int) (*domain.SalaryPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payment, exists := s.salaryPayments[salaryKey(workerID, month, year)]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyPayment := payment
	return &copyPayment, nil
}

func (s *Store) MarkSalaryPaid(_ context.Context, paymentID string, paidAt time.Time) (*domain.SalaryPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, payment := range s.salaryPayments {
		if payment.PaymentID != paymentID {
			continue
		}
		if payment.Paid {
			return nil, store.ErrConflict
		}
		if paidAt.IsZero() {
			paidAt = time.Now().UTC()
		}
		payment.Paid = true
		payment.PaidDate = &paidAt
		s.salaryPayments[key] = payment
		copyPayment := payment
		return &copyPayment, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListSettings(_ context.Context, group string) ([]domain.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := make([]domain.Setting, 0, len(s.settings))
	for _, setting := range s.settings {
		if group != "" && setting.GroupName != group {
			continue
		}
		settings = append(settings, setting)
	}
	slices.SortFunc(settings, func(a, b domain.Setting) int {
		return cmpString(a.Key, b.Key)
	})
	return settings, nil
}

func (s *Store) GetSetting(_ context.Context, key string) (*domain.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	setting, exists := s.settings[key]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySetting := setting
	return &copySetting, nil
}

func (s *Store) UpsertSettings(_ context.Context, settings []domain.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, setting := range settings {
		setting.Key = strings.TrimSpace(setting.Key)
		if setting.Key == "" {
			return store.ErrInvalidInput
		}
		if existing, ok := s.settings[setting.Key]; ok && setting.GroupName == "" {
			setting.GroupName = existing.GroupName
		}
		setting.UpdatedAt = now
		s.settings[setting.Key] = setting
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByUsername[strings.ToLower(strings.TrimSpace(username))]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyUser := user
	return &copyUser, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(passwordHash) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = passwordHash
	s.usersByUsername[username] = user
	return nil
}

func attendanceKey(workerID string, day time.Time) string {
	return workerID + "::" + day.Format("2006-01-02")
}

func salaryKey(workerID string, month int, year int) string {
	return workerID + "::" + time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func dayStartUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneBill(src domain.Bill) domain.Bill {
	dup := src
	items := make([]domain.LineItem, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	return dup
}
