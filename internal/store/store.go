package store

import (
	"context"
	"errors"
	"time"

	"rebill/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrLocked       = errors.New("record locked")
	ErrConflict     = errors.New("conflict")
)

type Repository interface {
	ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)

	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, categoryID string) error

	NextBillNo(ctx context.Context) (int, error)
	CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error)
	GetBill(ctx context.Context, billNo int) (*domain.Bill, error)
	UpdateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error)
	ListBillsBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Bill, error)
	DeleteAllBills(ctx context.Context) (int, error)

	ListInventory(ctx context.Context) ([]domain.InventoryRecord, error)
	GetInventoryRecord(ctx context.Context, id int) (*domain.InventoryRecord, error)
	GetInventoryByProduct(ctx context.Context, productID string) (*domain.InventoryRecord, error)
	CreateInventoryRecord(ctx context.Context, record domain.InventoryRecord) (*domain.InventoryRecord, error)
	UpdateInventoryRecord(ctx context.Context, record domain.InventoryRecord) (*domain.InventoryRecord, error)
	DeleteInventoryRecord(ctx context.Context, id int) error

	ListWorkers(ctx context.Context, includeInactive bool) ([]domain.Worker, error)
	GetWorker(ctx context.Context, workerID string) (*domain.Worker, error)
	CreateWorker(ctx context.Context, worker domain.Worker) (*domain.Worker, error)
	UpdateWorker(ctx context.Context, worker domain.Worker) (*domain.Worker, error)

	CreateAdvance(ctx context.Context, advance domain.Advance) (*domain.Advance, error)
	ListAdvances(ctx context.Context, workerID string, from time.Time, to time.Time) ([]domain.Advance, error)

	UpsertAttendance(ctx context.Context, attendance domain.Attendance) (*domain.Attendance, error)
	ListAttendance(ctx context.Context, workerID string, from time.Time, to time.Time) ([]domain.Attendance, error)
	ListAttendanceOn(ctx context.Context, day time.Time) ([]domain.Attendance, error)

	CreateSalaryPayment(ctx context.Context, payment domain.SalaryPayment) (*domain.SalaryPayment, error)
	ListSalaryPayments(ctx context.Context, workerID string, limit int) ([]domain.SalaryPayment, error)
	FindSalaryPayment(ctx context.Context, workerID string, month int, year int) (*domain.SalaryPayment, error)
	MarkSalaryPaid(ctx context.Context, paymentID string, paidAt time.Time) (*domain.SalaryPayment, error)

	ListSettings(ctx context.Context, group string) ([]domain.Setting, error)
	GetSetting(ctx context.Context, key string) (*domain.Setting, error)
	UpsertSettings(ctx context.Context, settings []domain.Setting) error

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, passwordHash string) error
}
