package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"rebill/internal/domain"
	"rebill/internal/store"
	"rebill/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, price_cents, category, active
		FROM products
		WHERE $1 OR active = true
		ORDER BY category, name
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Price, &p.Category, &p.Active); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT product_id, name, price_cents, category, active
		FROM products
		WHERE product_id = $1
	`, productID).Scan(&p.ProductID, &p.Name, &p.Price, &p.Category, &p.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, price_cents, category, active
		FROM products
		WHERE active = true AND product_id = ANY($1)
	`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Price, &p.Category, &p.Active); err != nil {
			return nil, err
		}
		result[p.ProductID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ProductID == "" || product.Name == "" || product.Category == "" || product.Price < 1 {
		return nil, store.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (product_id, name, price_cents, category, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now(),now())
	`, product.ProductID, product.Name, product.Price, product.Category, product.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ProductID == "" || product.Name == "" || product.Category == "" || product.Price < 1 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, price_cents = $3, category = $4, active = $5, updated_at = now()
		WHERE product_id = $1
	`, product.ProductID, product.Name, product.Price, product.Category, product.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description, ''), active, created_at, updated_at
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		c.UpdatedAt = c.UpdatedAt.UTC()
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	category.Name = strings.ToLower(strings.TrimSpace(category.Name))
	if category.Name == "" {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, description, active, created_at, updated_at)
		VALUES ($1,$2,$3,now(),now())
		RETURNING id, created_at, updated_at
	`, category.Name, category.Description, category.Active).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	category.CreatedAt = category.CreatedAt.UTC()
	category.UpdatedAt = category.UpdatedAt.UTC()
	created := category
	return &created, nil
}

func (s *Store) UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	category.Name = strings.ToLower(strings.TrimSpace(category.Name))
	if category.Name == "" {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		UPDATE categories
		SET name = $2, description = $3, active = $4, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, category.ID, category.Name, category.Description, category.Active).Scan(&category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	updated := category
	return &updated, nil
}

func (s *Store) DeleteCategory(ctx context.Context, categoryID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM categories WHERE name = $1
	`, strings.ToLower(strings.TrimSpace(categoryID)))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) NextBillNo(ctx context.Context) (int, error) {
	var next int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(bill_no), 0) + 1 FROM bills
	`).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error) {
	if len(bill.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}
	bill.UpdatedAt = bill.CreatedAt
	if bill.Status == "" {
		bill.Status = domain.BillStatusConfirmed
	}

	items, err := json.Marshal(bill.Items)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if bill.BillNo == 0 {
		if err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(bill_no), 0) + 1 FROM bills
		`).Scan(&bill.BillNo); err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bills (bill_no, customer_name, items, total_amount_cents, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, bill.BillNo, nullIfEmpty(bill.CustomerName), items, bill.TotalAmount, bill.Status, bill.CreatedAt, bill.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := bill
	return &created, nil
}

func (s *Store) GetBill(ctx context.Context, billNo int) (*domain.Bill, error) {
	var bill domain.Bill
	var customer sql.NullString
	var items []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT bill_no, customer_name, items, total_amount_cents, status, created_at, updated_at
		FROM bills
		WHERE bill_no = $1
	`, billNo).Scan(&bill.BillNo, &customer, &items, &bill.TotalAmount, &bill.Status, &bill.CreatedAt, &bill.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if customer.Valid {
		bill.CustomerName = customer.String
	}
	if err := json.Unmarshal(items, &bill.Items); err != nil {
		return nil, err
	}
	bill.CreatedAt = bill.CreatedAt.UTC()
	bill.UpdatedAt = bill.UpdatedAt.UTC()
	return &bill, nil
}

func (s *Store) UpdateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error) {
	items, err := json.Marshal(bill.Items)
	if err != nil {
		return nil, err
	}
	bill.UpdatedAt = time.Now().UTC()

	err = s.db.QueryRowContext(ctx, `
		UPDATE bills
		SET customer_name = $2, items = $3, total_amount_cents = $4, status = $5, updated_at = $6
		WHERE bill_no = $1
		RETURNING created_at
	`, bill.BillNo, nullIfEmpty(bill.CustomerName), items, bill.TotalAmount, bill.Status, bill.UpdatedAt).Scan(&bill.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	bill.CreatedAt = bill.CreatedAt.UTC()
	saved := bill
	return &saved, nil
}

func (s *Store) ListBillsBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Bill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bill_no, customer_name, items, total_amount_cents, status, created_at, updated_at
		FROM bills
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, bill_no DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bills := make([]domain.Bill, 0, 64)
	for rows.Next() {
		var bill domain.Bill
		var customer sql.NullString
		var items []byte
		if err := rows.Scan(&bill.BillNo, &customer, &items, &bill.TotalAmount, &bill.Status, &bill.CreatedAt, &bill.UpdatedAt); err != nil {
			return nil, err
		}
		if customer.Valid {
			bill.CustomerName = customer.String
		}
		if err := json.Unmarshal(items, &bill.Items); err != nil {
			return nil, err
		}
		bill.CreatedAt = bill.CreatedAt.UTC()
		bill.UpdatedAt = bill.UpdatedAt.UTC()
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bills, nil
}

func (s *Store) DeleteAllBills(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bills`)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *Store) ListInventory(ctx context.Context) ([]domain.InventoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, unit, stock_milli, unit_price_cents, alert_threshold_milli,
			COALESCE(product_id, ''), updated_at
		FROM inventory_records
		ORDER BY lower(name)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.InventoryRecord, 0, 64)
	for rows.Next() {
		var rec domain.InventoryRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Type, &rec.Unit, &rec.Stock, &rec.UnitPrice, &rec.AlertThreshold, &rec.ProductID, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.UpdatedAt = rec.UpdatedAt.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) GetInventoryRecord(ctx context.Context, id int) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, unit, stock_milli, unit_price_cents, alert_threshold_milli,
			COALESCE(product_id, ''), updated_at
		FROM inventory_records
		WHERE id = $1
	`, id).Scan(&rec.ID, &rec.Name, &rec.Type, &rec.Unit, &rec.Stock, &rec.UnitPrice, &rec.AlertThreshold, &rec.ProductID, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

func (s *Store) GetInventoryByProduct(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, unit, stock_milli, unit_price_cents, alert_threshold_milli,
			COALESCE(product_id, ''), updated_at
		FROM inventory_records
		WHERE product_id = $1
	`, productID).Scan(&rec.ID, &rec.Name, &rec.Type, &rec.Unit, &rec.Stock, &rec.UnitPrice, &rec.AlertThreshold, &rec.ProductID, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

func (s *Store) CreateInventoryRecord(ctx context.Context, record domain.InventoryRecord) (*domain.InventoryRecord, error) {
	if record.Name == "" || record.Unit == "" {
		return nil, store.ErrInvalidInput
	}
	if record.Type != domain.InventoryTypeDirectSale && record.Type != domain.InventoryTypeRawMaterial {
		return nil, store.ErrInvalidInput
	}
	if record.Type == domain.InventoryTypeDirectSale && record.ProductID == "" {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO inventory_records (name, type, unit, stock_milli, unit_price_cents, alert_threshold_milli, product_id, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now())
		RETURNING id, updated_at
	`, record.Name, record.Type, record.Unit, record.Stock, record.UnitPrice, record.AlertThreshold, nullIfEmpty(record.ProductID)).Scan(&record.ID, &record.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	record.UpdatedAt = record.UpdatedAt.UTC()
	created := record
	return &created, nil
}

func (s *Store) UpdateInventoryRecord(ctx context.Context, record domain.InventoryRecord) (*domain.InventoryRecord, error) {
	if record.Name == "" || record.Unit == "" {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		UPDATE inventory_records
		SET name = $2, unit = $3, stock_milli = $4, unit_price_cents = $5, alert_threshold_milli = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, record.ID, record.Name, record.Unit, record.Stock, record.UnitPrice, record.AlertThreshold).Scan(&record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	record.UpdatedAt = record.UpdatedAt.UTC()
	updated := record
	return &updated, nil
}

func (s *Store) DeleteInventoryRecord(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM inventory_records WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListWorkers(ctx context.Context, includeInactive bool) ([]domain.Worker, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT worker_id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(role, ''),
			salary_cents, join_date, status
		FROM workers
		WHERE $1 OR status = 'active'
		ORDER BY lower(name)
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workers := make([]domain.Worker, 0, 16)
	for rows.Next() {
		var w domain.Worker
		if err := rows.Scan(&w.WorkerID, &w.Name, &w.Phone, &w.Email, &w.Role, &w.Salary, &w.JoinDate, &w.Status); err != nil {
			return nil, err
		}
		w.JoinDate = w.JoinDate.UTC()
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return workers, nil
}

func (s *Store) GetWorker(ctx context.Context, workerID string) (*domain.Worker, error) {
	var w domain.Worker
	err := s.db.QueryRowContext(ctx, `
		SELECT worker_id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(role, ''),
			salary_cents, join_date, status
		FROM workers
		WHERE worker_id = $1
	`, workerID).Scan(&w.WorkerID, &w.Name, &w.Phone, &w.Email, &w.Role, &w.Salary, &w.JoinDate, &w.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	w.JoinDate = w.JoinDate.UTC()
	return &w, nil
}

func (s *Store) CreateWorker(ctx context.Context, worker domain.Worker) (*domain.Worker, error) {
	if strings.TrimSpace(worker.Name) == "" || worker.Salary < 0 {
		return nil, store.ErrInvalidInput
	}
	if worker.WorkerID == "" {
		worker.WorkerID = xid.Worker()
	}
	if worker.JoinDate.IsZero() {
		worker.JoinDate = time.Now().UTC()
	}
	if worker.Status == "" {
		worker.Status = domain.WorkerStatusActive
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workers (worker_id, name, phone, email, role, salary_cents, join_date, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, worker.WorkerID, worker.Name, nullIfEmpty(worker.Phone), nullIfEmpty(worker.Email), nullIfEmpty(worker.Role), worker.Salary, worker.JoinDate, worker.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := worker
	return &created, nil
}

func (s *Store) UpdateWorker(ctx context.Context, worker domain.Worker) (*domain.Worker, error) {
	if strings.TrimSpace(worker.Name) == "" || worker.Salary < 0 {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		UPDATE workers
		SET name = $2, phone = $3, email = $4, role = $5, salary_cents = $6, status = $7
		WHERE worker_id = $1
		RETURNING join_date
	`, worker.WorkerID, worker.Name, nullIfEmpty(worker.Phone), nullIfEmpty(worker.Email), nullIfEmpty(worker.Role), worker.Salary, worker.Status).Scan(&worker.JoinDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	worker.JoinDate = worker.JoinDate.UTC()
	updated := worker
	return &updated, nil
}

func (s *Store) CreateAdvance(ctx context.Context, advance domain.Advance) (*domain.Advance, error) {
	if advance.WorkerID == "" || advance.Amount < 1 {
		return nil, store.ErrInvalidInput
	}
	if advance.AdvanceID == "" {
		advance.AdvanceID = xid.Advance()
	}
	if advance.Date.IsZero() {
		advance.Date = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO worker_advances (advance_id, worker_id, amount_cents, reason, date)
		VALUES ($1,$2,$3,$4,$5)
	`, advance.AdvanceID, advance.WorkerID, advance.Amount, nullIfEmpty(advance.Reason), advance.Date)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	created := advance
	return &created, nil
}

func (s *Store) ListAdvances(ctx context.Context, workerID string, from time.Time, to time.Time) ([]domain.Advance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT advance_id, worker_id, amount_cents, COALESCE(reason, ''), date
		FROM worker_advances
		WHERE ($1 = '' OR worker_id = $1) AND date >= $2 AND date < $3
		ORDER BY date DESC, advance_id DESC
	`, workerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	advances := make([]domain.Advance, 0, 16)
	for rows.Next() {
		var adv domain.Advance
		if err := rows.Scan(&adv.AdvanceID, &adv.WorkerID, &adv.Amount, &adv.Reason, &adv.Date); err != nil {
			return nil, err
		}
		adv.Date = adv.Date.UTC()
		advances = append(advances, adv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return advances, nil
}

func (s *Store) UpsertAttendance(ctx context.Context, attendance domain.Attendance) (*domain.Attendance, error) {
	if attendance.WorkerID == "" || attendance.Status == "" {
		return nil, store.ErrInvalidInput
	}
	if attendance.Date.IsZero() {
		attendance.Date = time.Now().UTC()
	}
	attendance.Date = dayStartUTC(attendance.Date)
	if attendance.AttendanceID == "" {
		attendance.AttendanceID = xid.Attendance()
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO worker_attendance (attendance_id, worker_id, date, status, check_in, check_out)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (worker_id, date)
		DO UPDATE SET status = EXCLUDED.status, check_in = EXCLUDED.check_in, check_out = EXCLUDED.check_out
		RETURNING attendance_id
	`, attendance.AttendanceID, attendance.WorkerID, attendance.Date, attendance.Status, nullIfEmpty(attendance.CheckIn), nullIfEmpty(attendance.CheckOut)).Scan(&attendance.AttendanceID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	saved := attendance
	return &saved, nil
}

func (s *Store) ListAttendance(ctx context.Context, workerID string, from time.Time, to time.Time) ([]domain.Attendance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT attendance_id, worker_id, date, status, COALESCE(check_in, ''), COALESCE(check_out, '')
		FROM worker_attendance
		WHERE ($1 = '' OR worker_id = $1) AND date >= $2 AND date < $3
		ORDER BY date DESC, worker_id
	`, workerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAttendance(rows)
}

func (s *Store) ListAttendanceOn(ctx context.Context, day time.Time) ([]domain.Attendance, error) {
	day = dayStartUTC(day)
	rows, err := s.db.QueryContext(ctx, `
		SELECT attendance_id, worker_id, date, status, COALESCE(check_in, ''), COALESCE(check_out, '')
		FROM worker_attendance
		WHERE date = $1
		ORDER BY worker_id
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAttendance(rows)
}

func scanAttendance(rows *sql.Rows) ([]domain.Attendance, error) {
	entries := make([]domain.Attendance, 0, 32)
	for rows.Next() {
		var att domain.Attendance
		if err := rows.Scan(&att.AttendanceID, &att.WorkerID, &att.Date, &att.Status, &att.CheckIn, &att.CheckOut); err != nil {
			return nil, err
		}
		att.Date = att.Date.UTC()
		entries = append(entries, att)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) CreateSalaryPayment(ctx context.Context, payment domain.SalaryPayment) (*domain.SalaryPayment, error) {
	if payment.WorkerID == "" || payment.Month < 1 || payment.Month > 12 || payment.Year < 2000 {
		return nil, store.ErrInvalidInput
	}
	if payment.PaymentID == "" {
		payment.PaymentID = xid.Salary()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO salary_payments (payment_id, worker_id, month, year, base_salary_cents, advance_deduction_cents, final_salary_cents, paid, paid_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, payment.PaymentID, payment.WorkerID, payment.Month, payment.Year, payment.BaseSalary, payment.AdvanceDeduction, payment.FinalSalary, payment.Paid, nullTime(payment.PaidDate))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	created := payment
	return &created, nil
}

func (s *Store) ListSalaryPayments(ctx context.Context, workerID string, limit int) ([]domain.SalaryPayment, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_id, worker_id, month, year, base_salary_cents, advance_deduction_cents, final_salary_cents, paid, paid_date
		FROM salary_payments
		WHERE ($1 = '' OR worker_id = $1)
		ORDER BY year DESC, month DESC, worker_id
		LIMIT $2
	`, workerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.SalaryPayment, 0, limit)
	for rows.Next() {
		var payment domain.SalaryPayment
		var paidDate sql.NullTime
		if err := rows.Scan(&payment.PaymentID, &payment.WorkerID, &payment.Month, &payment.Year, &payment.BaseSalary, &payment.AdvanceDeduction, &payment.FinalSalary, &payment.Paid, &paidDate); err != nil {
			return nil, err
		}
		if paidDate.Valid {
			paid := paidDate.Time.UTC()
			payment.PaidDate = &paid
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) FindSalaryPayment(ctx context.Context, workerID string, month int, year int) (*domain.SalaryPayment, error) {
	var payment domain.SalaryPayment
	var paidDate sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT payment_id, worker_id, month, year, base_salary_cents, advance_deduction_cents, final_salary_cents, paid, paid_date
		FROM salary_payments
		WHERE worker_id = $1 AND month = $2 AND year = $3
	`, workerID, month, year).Scan(&payment.PaymentID, &payment.WorkerID, &payment.Month, &payment.Year, &payment.BaseSalary, &payment.AdvanceDeduction, &payment.FinalSalary, &payment.Paid, &paidDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if paidDate.Valid {
		paid := paidDate.Time.UTC()
		payment.PaidDate = &paid
	}
	return &payment, nil
}

func (s *Store) MarkSalaryPaid(ctx context.Context, paymentID string, paidAt time.Time) (*domain.SalaryPayment, error) {
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}

	var payment domain.SalaryPayment
	err := s.db.QueryRowContext(ctx, `
		UPDATE salary_payments
		SET paid = true, paid_date = $2
		WHERE payment_id = $1 AND paid = false
		RETURNING payment_id, worker_id, month, year, base_salary_cents, advance_deduction_cents, final_salary_cents
	`, paymentID, paidAt).Scan(&payment.PaymentID, &payment.WorkerID, &payment.Month, &payment.Year, &payment.BaseSalary, &payment.AdvanceDeduction, &payment.FinalSalary)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	payment.Paid = true
	payment.PaidDate = &paidAt
	return &payment, nil
}

func (s *Store) ListSettings(ctx context.Context, group string) ([]domain.Setting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value, COALESCE(group_name, ''), updated_at
		FROM settings
		WHERE ($1 = '' OR group_name = $1)
		ORDER BY key
	`, group)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make([]domain.Setting, 0, 16)
	for rows.Next() {
		var setting domain.Setting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.GroupName, &setting.UpdatedAt); err != nil {
			return nil, err
		}
		setting.UpdatedAt = setting.UpdatedAt.UTC()
		settings = append(settings, setting)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	var setting domain.Setting
	err := s.db.QueryRowContext(ctx, `
		SELECT key, value, COALESCE(group_name, ''), updated_at
		FROM settings
		WHERE key = $1
	`, key).Scan(&setting.Key, &setting.Value, &setting.GroupName, &setting.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	setting.UpdatedAt = setting.UpdatedAt.UTC()
	return &setting, nil
}

func (s *Store) UpsertSettings(ctx context.Context, settings []domain.Setting) error {
	if len(settings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, setting := range settings {
		setting.Key = strings.TrimSpace(setting.Key)
		if setting.Key == "" {
			return store.ErrInvalidInput
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, group_name, updated_at)
			VALUES ($1,$2,$3,now())
			ON CONFLICT (key)
			DO UPDATE SET value = EXCLUDED.value,
				group_name = COALESCE(NULLIF(EXCLUDED.group_name, ''), settings.group_name),
				updated_at = now()
		`, setting.Key, setting.Value, setting.GroupName)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = "cashier"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		VALUES ($1,$2,$3,true,now())
	`, username, user.Password, user.Role)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, role, active, created_at
		FROM users
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password_hash, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, passwordHash string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(passwordHash) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2 WHERE username = $1
	`, username, passwordHash)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

func dayStartUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}
