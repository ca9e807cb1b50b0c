package domain

import (
	"time"

	"rebill/internal/money"
)

type Product struct {
	ProductID string      `json:"product_id"`
	Name      string      `json:"name"`
	Price     money.Money `json:"price"`
	Category  string      `json:"category"`
	Active    bool        `json:"active"`
}

type ProductCreateRequest struct {
	ProductID string      `json:"product_id"`
	Name      string      `json:"name"`
	Price     money.Money `json:"price"`
	Category  string      `json:"category"`
	Active    *bool       `json:"active,omitempty"`
}

type ProductUpdateRequest struct {
	Name     *string      `json:"name,omitempty"`
	Price    *money.Money `json:"price,omitempty"`
	Category *string      `json:"category,omitempty"`
	Active   *bool        `json:"active,omitempty"`
}

type Category struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CategoryCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      *bool  `json:"active,omitempty"`
}

type CategoryUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// LineItem is a bill line with the product's name, price and category copied
// at add time, so later catalog edits never rewrite an open or stored order.
type LineItem struct {
	ProductID string      `json:"product_id"`
	Name      string      `json:"name"`
	Price     money.Money `json:"price"`
	Category  string      `json:"category"`
	Quantity  int         `json:"quantity"`
}

const (
	BillStatusConfirmed = "CONFIRMED"
	BillStatusCancelled = "CANCELLED"
)

type Bill struct {
	BillNo       int         `json:"bill_no"`
	CustomerName string      `json:"customer_name,omitempty"`
	Items        []LineItem  `json:"items"`
	TotalAmount  money.Money `json:"total_amount"`
	Status       string      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type BillItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type BillCreateRequest struct {
	CustomerName string            `json:"customer_name,omitempty"`
	Items        []BillItemRequest `json:"items"`
	Print        bool              `json:"print"`
	// ExpectedTotal is the total the terminal computed locally. When present
	// and different from the server total it is logged as an integrity event;
	// the server total always wins.
	ExpectedTotal *money.Money `json:"expected_total,omitempty"`
}

type BillUpdateRequest struct {
	CustomerName  *string           `json:"customer_name,omitempty"`
	Items         []BillItemRequest `json:"items"`
	Print         bool              `json:"print"`
	ExpectedTotal *money.Money      `json:"expected_total,omitempty"`
}

type ClearBillsRequest struct {
	Secret string `json:"secret"`
}

const (
	InventoryTypeDirectSale  = "DIRECT_SALE"
	InventoryTypeRawMaterial = "RAW_MATERIAL"
)

type InventoryRecord struct {
	ID             int            `json:"id"`
	Name           string         `json:"name"`
	Type           string         `json:"type"`
	Unit           string         `json:"unit"`
	Stock          money.Quantity `json:"stock"`
	UnitPrice      money.Money    `json:"unit_price"`
	AlertThreshold money.Quantity `json:"alert_threshold"`
	ProductID      string         `json:"product_id,omitempty"`
	// Locked is derived: true when the linked product is inactive. Locked
	// records refuse edits, adjustments and deletion until the product is
	// reactivated.
	Locked    bool      `json:"is_locked"`
	UpdatedAt time.Time `json:"updated_at"`
}

type InventoryCreateRequest struct {
	Name           string         `json:"name"`
	Type           string         `json:"type"`
	Unit           string         `json:"unit"`
	Stock          money.Quantity `json:"stock"`
	UnitPrice      money.Money    `json:"unit_price"`
	AlertThreshold money.Quantity `json:"alert_threshold"`
	ProductID      string         `json:"product_id,omitempty"`
}

type InventoryUpdateRequest struct {
	Name           *string         `json:"name,omitempty"`
	Unit           *string         `json:"unit,omitempty"`
	UnitPrice      *money.Money    `json:"unit_price,omitempty"`
	AlertThreshold *money.Quantity `json:"alert_threshold,omitempty"`
}

type StockAdjustRequest struct {
	ID int `json:"id"`
	// Delta may be negative; the resulting stock is floored at zero.
	Delta money.Quantity `json:"adjustment"`
}

// SalesSummary is the aggregate view of one calendar day of bills.
// Cancelled bills are excluded from every figure.
type SalesSummary struct {
	Date             string                 `json:"date"`
	TotalBills       int                    `json:"total_bills"`
	TotalSales       money.Money            `json:"total_sales"`
	AverageBillValue money.Money            `json:"average_bill_value"`
	CategoryTotals   map[string]money.Money `json:"category_totals"`
	HourlySales      map[string]money.Money `json:"hourly_sales,omitempty"`
	PeakHour         string                 `json:"peak_hour,omitempty"`
	FirstBillTime    string                 `json:"first_bill_time,omitempty"`
	LastBillTime     string                 `json:"last_bill_time,omitempty"`
}

type ProductSales struct {
	ProductID    string      `json:"product_id"`
	Name         string      `json:"name"`
	Category     string      `json:"category"`
	QuantitySold int         `json:"quantity_sold"`
	TotalSales   money.Money `json:"total_sales"`
}

// PeriodSummary is the product-wise rollup for a weekly or monthly report.
type PeriodSummary struct {
	StartDate  string         `json:"start_date,omitempty"`
	EndDate    string         `json:"end_date,omitempty"`
	Month      int            `json:"month,omitempty"`
	Year       int            `json:"year,omitempty"`
	TotalSales money.Money    `json:"total_sales"`
	Products   []ProductSales `json:"products"`
}

const (
	WorkerStatusActive   = "active"
	WorkerStatusInactive = "inactive"
)

type Worker struct {
	WorkerID string      `json:"worker_id"`
	Name     string      `json:"name"`
	Phone    string      `json:"phone,omitempty"`
	Email    string      `json:"email,omitempty"`
	Role     string      `json:"role,omitempty"`
	Salary   money.Money `json:"salary"`
	JoinDate time.Time   `json:"join_date"`
	Status   string      `json:"status"`
}

type WorkerCreateRequest struct {
	Name   string      `json:"name"`
	Phone  string      `json:"phone,omitempty"`
	Email  string      `json:"email,omitempty"`
	Role   string      `json:"role,omitempty"`
	Salary money.Money `json:"salary"`
}

type WorkerUpdateRequest struct {
	Name   *string      `json:"name,omitempty"`
	Phone  *string      `json:"phone,omitempty"`
	Email  *string      `json:"email,omitempty"`
	Role   *string      `json:"role,omitempty"`
	Salary *money.Money `json:"salary,omitempty"`
	Status *string      `json:"status,omitempty"`
}

// WorkerOverview is a Worker plus the fields the workers screen derives for
// the current salary cycle.
type WorkerOverview struct {
	Worker
	TodayAttendance string      `json:"today_attendance"`
	CurrentAdvance  money.Money `json:"current_advance"`
	CycleStart      string      `json:"cycle_start"`
	CycleEnd        string      `json:"cycle_end"`
}

type Advance struct {
	AdvanceID string      `json:"advance_id"`
	WorkerID  string      `json:"worker_id"`
	Amount    money.Money `json:"amount"`
	Reason    string      `json:"reason,omitempty"`
	Date      time.Time   `json:"date"`
}

type AdvanceRequest struct {
	Amount money.Money `json:"amount"`
	Reason string      `json:"reason,omitempty"`
}

type SalaryPayment struct {
	PaymentID        string      `json:"payment_id"`
	WorkerID         string      `json:"worker_id"`
	Month            int         `json:"month"`
	Year             int         `json:"year"`
	BaseSalary       money.Money `json:"base_salary"`
	AdvanceDeduction money.Money `json:"advance_deduction"`
	FinalSalary      money.Money `json:"final_salary"`
	Paid             bool        `json:"paid"`
	PaidDate         *time.Time  `json:"paid_date,omitempty"`
}

type SalaryGenerateRequest struct {
	Month int `json:"month,omitempty"`
	Year  int `json:"year,omitempty"`
}

type SalaryStatus struct {
	Month     int  `json:"month"`
	Year      int  `json:"year"`
	Generated int  `json:"generated"`
	Paid      int  `json:"paid"`
	Pending   int  `json:"pending"`
	AllPaid   bool `json:"all_paid"`
}

const (
	AttendancePresent   = "Present"
	AttendanceAbsent    = "Absent"
	AttendanceHalfDay   = "Half Day"
	AttendanceNotMarked = "Not Marked"
)

type Attendance struct {
	AttendanceID string    `json:"attendance_id"`
	WorkerID     string    `json:"worker_id"`
	Date         time.Time `json:"date"`
	Status       string    `json:"status"`
	CheckIn      string    `json:"check_in,omitempty"`
	CheckOut     string    `json:"check_out,omitempty"`
}

type AttendanceRequest struct {
	Status   string `json:"status"`
	CheckIn  string `json:"check_in,omitempty"`
	CheckOut string `json:"check_out,omitempty"`
}

type BulkAttendanceEntry struct {
	WorkerID string `json:"worker_id"`
	Status   string `json:"status"`
}

type BulkAttendanceRequest struct {
	Date    string                `json:"date,omitempty"`
	Entries []BulkAttendanceEntry `json:"entries"`
}

type WorkerStats struct {
	TotalWorkers  int         `json:"total_workers"`
	ActiveWorkers int         `json:"active_workers"`
	PresentToday  int         `json:"present_today"`
	TotalSalary   money.Money `json:"total_salary"`
	TotalAdvances money.Money `json:"total_advances"`
	NetPayable    money.Money `json:"net_payable"`
}

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	GroupName string    `json:"group_name,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Well-known settings keys consumed by formatting and the salary cycle.
const (
	SettingShopName       = "shop_name"
	SettingCurrencySymbol = "currency_symbol"
	SettingSalaryDay      = "salary_day"
)

type SettingsUpdateRequest struct {
	Settings []Setting `json:"settings"`
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type PasswordChangeRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}
