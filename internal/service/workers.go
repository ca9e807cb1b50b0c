package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rebill/internal/domain"
	"rebill/internal/money"
	"rebill/internal/store"
)

// salaryDay reads the payroll cycle anchor from settings, clamped to 1-28
// so every month has the anchor date.
func (s *Service) salaryDay(ctx context.Context) int {
	day, err := strconv.Atoi(s.settingValue(ctx, domain.SettingSalaryDay, "1"))
	if err != nil || day < 1 {
		return 1
	}
	if day > 28 {
		return 28
	}
	return day
}

// cycleBounds returns the salary cycle containing now: it starts on the
// salary day and runs up to (not including) the next one.
func (s *Service) cycleBounds(now time.Time, salaryDay int) (time.Time, time.Time) {
	local := now.In(s.loc)
	start := time.Date(local.Year(), local.Month(), salaryDay, 0, 0, 0, 0, s.loc)
	if local.Day() < salaryDay {
		start = start.AddDate(0, -1, 0)
	}
	return start, start.AddDate(0, 1, 0)
}

func (s *Service) ListWorkers(ctx context.Context, includeInactive bool) ([]domain.WorkerOverview, error) {
	workers, err := s.repo.ListWorkers(ctx, includeInactive)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cycleStart, cycleEnd := s.cycleBounds(now, s.salaryDay(ctx))

	today, err := s.repo.ListAttendanceOn(ctx, now)
	if err != nil {
		return nil, err
	}
	todayByWorker := make(map[string]string, len(today))
	for _, att := range today {
		todayByWorker[att.WorkerID] = att.Status
	}

	overviews := make([]domain.WorkerOverview, 0, len(workers))
	for _, worker := range workers {
		overview := domain.WorkerOverview{
			Worker:          worker,
			TodayAttendance: domain.AttendanceNotMarked,
			CycleStart:      cycleStart.Format("2006-01-02"),
			CycleEnd:        cycleEnd.AddDate(0, 0, -1).Format("2006-01-02"),
		}
		if status, ok := todayByWorker[worker.WorkerID]; ok {
			overview.TodayAttendance = status
		}
		advances, err := s.repo.ListAdvances(ctx, worker.WorkerID, cycleStart.UTC(), cycleEnd.UTC())
		if err != nil {
			return nil, err
		}
		for _, adv := range advances {
			overview.CurrentAdvance += adv.Amount
		}
		overviews = append(overviews, overview)
	}
	return overviews, nil
}

func (s *Service) GetWorker(ctx context.Context, workerID string) (domain.Worker, error) {
	worker, err := s.repo.GetWorker(ctx, strings.TrimSpace(workerID))
	if err != nil {
		return domain.Worker{}, err
	}
	return *worker, nil
}

func (s *Service) CreateWorker(ctx context.Context, req domain.WorkerCreateRequest) (domain.Worker, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Worker{}, err
	}

	worker := domain.Worker{
		Name:     strings.TrimSpace(req.Name),
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.TrimSpace(req.Email),
		Role:     strings.TrimSpace(req.Role),
		Salary:   req.Salary,
		JoinDate: time.Now().UTC(),
		Status:   domain.WorkerStatusActive,
	}
	if worker.Name == "" || worker.Salary < 0 {
		return domain.Worker{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateWorker(ctx, worker)
	if err != nil {
		return domain.Worker{}, err
	}
	s.logEvent(ctx, "worker_create", created.WorkerID, "name="+created.Name)
	return *created, nil
}

func (s *Service) UpdateWorker(ctx context.Context, workerID string, req domain.WorkerUpdateRequest) (domain.Worker, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Worker{}, err
	}

	existing, err := s.repo.GetWorker(ctx, strings.TrimSpace(workerID))
	if err != nil {
		return domain.Worker{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Worker{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		updated.Email = strings.TrimSpace(*req.Email)
	}
	if req.Role != nil {
		updated.Role = strings.TrimSpace(*req.Role)
	}
	if req.Salary != nil {
		if *req.Salary < 0 {
			return domain.Worker{}, store.ErrInvalidInput
		}
		updated.Salary = *req.Salary
	}
	if req.Status != nil {
		if *req.Status != domain.WorkerStatusActive && *req.Status != domain.WorkerStatusInactive {
			return domain.Worker{}, fmt.Errorf("%w: unknown status %q", store.ErrInvalidInput, *req.Status)
		}
		updated.Status = *req.Status
	}

	saved, err := s.repo.UpdateWorker(ctx, updated)
	if err != nil {
		return domain.Worker{}, err
	}
	s.logEvent(ctx, "worker_update", saved.WorkerID, "status="+saved.Status)
	return *saved, nil
}

// DeactivateWorker is a soft delete; payment history stays intact.
func (s *Service) DeactivateWorker(ctx context.Context, workerID string) (domain.Worker, error) {
	inactive := domain.WorkerStatusInactive
	return s.UpdateWorker(ctx, workerID, domain.WorkerUpdateRequest{Status: &inactive})
}

func (s *Service) AddAdvance(ctx context.Context, workerID string, req domain.AdvanceRequest) (domain.Advance, error) {
	worker, err := s.repo.GetWorker(ctx, strings.TrimSpace(workerID))
	if err != nil {
		return domain.Advance{}, err
	}
	if worker.Status != domain.WorkerStatusActive {
		return domain.Advance{}, fmt.Errorf("%w: worker %s is inactive", store.ErrInvalidInput, worker.WorkerID)
	}
	if req.Amount < 1 {
		return domain.Advance{}, store.ErrInvalidInput
	}
	if req.Amount > worker.Salary {
		return domain.Advance{}, fmt.Errorf("%w: advance %s exceeds salary %s", store.ErrInvalidInput, req.Amount, worker.Salary)
	}

	created, err := s.repo.CreateAdvance(ctx, domain.Advance{
		WorkerID: worker.WorkerID,
		Amount:   req.Amount,
		Reason:   strings.TrimSpace(req.Reason),
		Date:     time.Now().UTC(),
	})
	if err != nil {
		return domain.Advance{}, err
	}
	s.logEvent(ctx, "advance_add", worker.WorkerID, "amount="+created.Amount.String())
	return *created, nil
}

// WorkerAdvances lists advances taken in the current salary cycle.
func (s *Service) WorkerAdvances(ctx context.Context, workerID string) ([]domain.Advance, error) {
	if _, err := s.repo.GetWorker(ctx, strings.TrimSpace(workerID)); err != nil {
		return nil, err
	}
	cycleStart, cycleEnd := s.cycleBounds(time.Now().UTC(), s.salaryDay(ctx))
	return s.repo.ListAdvances(ctx, strings.TrimSpace(workerID), cycleStart.UTC(), cycleEnd.UTC())
}

func (s *Service) MarkAttendance(ctx context.Context, workerID string, req domain.AttendanceRequest) (domain.Attendance, error) {
	if !validAttendanceStatus(req.Status) {
		return domain.Attendance{}, fmt.Errorf("%w: unknown attendance status %q", store.ErrInvalidInput, req.Status)
	}
	worker, err := s.repo.GetWorker(ctx, strings.TrimSpace(workerID))
	if err != nil {
		return domain.Attendance{}, err
	}

	saved, err := s.repo.UpsertAttendance(ctx, domain.Attendance{
		WorkerID: worker.WorkerID,
		Date:     time.Now().UTC(),
		Status:   req.Status,
		CheckIn:  strings.TrimSpace(req.CheckIn),
		CheckOut: strings.TrimSpace(req.CheckOut),
	})
	if err != nil {
		return domain.Attendance{}, err
	}
	return *saved, nil
}

// BulkAttendance marks many workers for one day in a single call; the
// morning roll-call path. Unknown workers fail the whole batch up front so
// a typo cannot half-apply.
func (s *Service) BulkAttendance(ctx context.Context, req domain.BulkAttendanceRequest) ([]domain.Attendance, error) {
	if len(req.Entries) == 0 {
		return nil, store.ErrInvalidInput
	}
	day := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.Date, s.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: bad date %q", store.ErrInvalidInput, req.Date)
		}
		day = parsed.UTC()
	}

	for _, entry := range req.Entries {
		if !validAttendanceStatus(entry.Status) {
			return nil, fmt.Errorf("%w: unknown attendance status %q", store.ErrInvalidInput, entry.Status)
		}
		if _, err := s.repo.GetWorker(ctx, entry.WorkerID); err != nil {
			return nil, fmt.Errorf("worker %s: %w", entry.WorkerID, err)
		}
	}

	marked := make([]domain.Attendance, 0, len(req.Entries))
	for _, entry := range req.Entries {
		saved, err := s.repo.UpsertAttendance(ctx, domain.Attendance{
			WorkerID: entry.WorkerID,
			Date:     day,
			Status:   entry.Status,
		})
		if err != nil {
			return nil, err
		}
		marked = append(marked, *saved)
	}
	s.logEvent(ctx, "attendance_bulk", "", fmt.Sprintf("entries=%d", len(marked)))
	return marked, nil
}

func (s *Service) MonthAttendance(ctx context.Context, workerID string, month int, year int) ([]domain.Attendance, error) {
	if month < 1 || month > 12 || year < 2000 {
		return nil, store.ErrInvalidInput
	}
	if _, err := s.repo.GetWorker(ctx, strings.TrimSpace(workerID)); err != nil {
		return nil, err
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return s.repo.ListAttendance(ctx, strings.TrimSpace(workerID), start, start.AddDate(0, 1, 0))
}

// GenerateSalaries creates a pending payment for every active worker for
// the cycle ending in the given month: base salary minus advances taken
// during the cycle, floored at zero. Workers already generated are skipped.
func (s *Service) GenerateSalaries(ctx context.Context, req domain.SalaryGenerateRequest) ([]domain.SalaryPayment, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	now := time.Now().In(s.loc)
	month, year := req.Month, req.Year
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 || year < 2000 {
		return nil, store.ErrInvalidInput
	}

	day := s.salaryDay(ctx)
	cycleEnd := time.Date(year, time.Month(month), day, 0, 0, 0, 0, s.loc)
	cycleStart := cycleEnd.AddDate(0, -1, 0)

	workers, err := s.repo.ListWorkers(ctx, false)
	if err != nil {
		return nil, err
	}

	generated := make([]domain.SalaryPayment, 0, len(workers))
	for _, worker := range workers {
		if _, err := s.repo.FindSalaryPayment(ctx, worker.WorkerID, month, year); err == nil {
			continue
		} else if !errorsIsNotFound(err) {
			return nil, err
		}

		advances, err := s.repo.ListAdvances(ctx, worker.WorkerID, cycleStart.UTC(), cycleEnd.UTC())
		if err != nil {
			return nil, err
		}
		var deduction money.Money
		for _, adv := range advances {
			deduction += adv.Amount
		}
		final := worker.Salary - deduction
		if final < 0 {
			final = 0
		}

		created, err := s.repo.CreateSalaryPayment(ctx, domain.SalaryPayment{
			WorkerID:         worker.WorkerID,
			Month:            month,
			Year:             year,
			BaseSalary:       worker.Salary,
			AdvanceDeduction: deduction,
			FinalSalary:      final,
		})
		if err != nil {
			return nil, err
		}
		generated = append(generated, *created)
	}

	s.logEvent(ctx, "salary_generate", "", fmt.Sprintf("month=%d year=%d generated=%d", month, year, len(generated)))
	return generated, nil
}

func (s *Service) PaySalary(ctx context.Context, paymentID string) (domain.SalaryPayment, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.SalaryPayment{}, err
	}
	paid, err := s.repo.MarkSalaryPaid(ctx, strings.TrimSpace(paymentID), time.Now().UTC())
	if err != nil {
		return domain.SalaryPayment{}, err
	}
	s.logEvent(ctx, "salary_pay", paid.WorkerID, "amount="+paid.FinalSalary.String())
	return *paid, nil
}

func (s *Service) SalaryHistory(ctx context.Context, workerID string, limit int) ([]domain.SalaryPayment, error) {
	return s.repo.ListSalaryPayments(ctx, strings.TrimSpace(workerID), limit)
}

func (s *Service) SalaryStatus(ctx context.Context, month int, year int) (domain.SalaryStatus, error) {
	now := time.Now().In(s.loc)
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 || year < 2000 {
		return domain.SalaryStatus{}, store.ErrInvalidInput
	}

	workers, err := s.repo.ListWorkers(ctx, false)
	if err != nil {
		return domain.SalaryStatus{}, err
	}

	status := domain.SalaryStatus{Month: month, Year: year}
	for _, worker := range workers {
		payment, err := s.repo.FindSalaryPayment(ctx, worker.WorkerID, month, year)
		if err != nil {
			if errorsIsNotFound(err) {
				status.Pending++
				continue
			}
			return domain.SalaryStatus{}, err
		}
		status.Generated++
		if payment.Paid {
			status.Paid++
		} else {
			status.Pending++
		}
	}
	status.AllPaid = len(workers) > 0 && status.Paid == len(workers)
	return status, nil
}

func (s *Service) WorkerStats(ctx context.Context) (domain.WorkerStats, error) {
	workers, err := s.repo.ListWorkers(ctx, true)
	if err != nil {
		return domain.WorkerStats{}, err
	}

	now := time.Now().UTC()
	cycleStart, cycleEnd := s.cycleBounds(now, s.salaryDay(ctx))

	today, err := s.repo.ListAttendanceOn(ctx, now)
	if err != nil {
		return domain.WorkerStats{}, err
	}
	presentByWorker := make(map[string]bool, len(today))
	for _, att := range today {
		presentByWorker[att.WorkerID] = att.Status == domain.AttendancePresent || att.Status == domain.AttendanceHalfDay
	}

	advances, err := s.repo.ListAdvances(ctx, "", cycleStart.UTC(), cycleEnd.UTC())
	if err != nil {
		return domain.WorkerStats{}, err
	}

	stats := domain.WorkerStats{TotalWorkers: len(workers)}
	for _, worker := range workers {
		if worker.Status != domain.WorkerStatusActive {
			continue
		}
		stats.ActiveWorkers++
		stats.TotalSalary += worker.Salary
		if presentByWorker[worker.WorkerID] {
			stats.PresentToday++
		}
	}
	for _, adv := range advances {
		stats.TotalAdvances += adv.Amount
	}
	stats.NetPayable = stats.TotalSalary - stats.TotalAdvances
	if stats.NetPayable < 0 {
		stats.NetPayable = 0
	}
	return stats, nil
}

func validAttendanceStatus(status string) bool {
	switch status {
	case domain.AttendancePresent, domain.AttendanceAbsent, domain.AttendanceHalfDay:
		return true
	}
	return false
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
