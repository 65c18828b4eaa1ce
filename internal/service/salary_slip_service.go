package service

import (
	"context"
	"time"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
)

type salarySlipStore interface {
	GetByID(ctx context.Context, id int) (*model.SalarySlip, error)
	ListPaginated(ctx context.Context, filter model.ListFilter, employeeID *int) ([]model.SalarySlip, int, error)
	Create(ctx context.Context, s *model.SalarySlip) error
	Save(ctx context.Context, s *model.SalarySlip) error
	Delete(ctx context.Context, id int) error
}

type presentDayCounter interface {
	CountPresentDays(ctx context.Context, employeeID int, from, to model.Date) (float64, error)
}

// Salary slip states.
const (
	SlipDraft     = "Draft"
	SlipSubmitted = "Submitted"
	SlipCancelled = "Cancelled"
)

// SalarySlipService prepares monthly pay statements and books them.
type SalarySlipService struct {
	slips      salarySlipStore
	employees  employeeReader
	attendance presentDayCounter
	ledger     *LedgerService
	tx         Transactor
	notes      *Notifications
	clock      Clock
	currency   string
}

// NewSalarySlipService creates a new SalarySlipService.
func NewSalarySlipService(slips salarySlipStore, employees employeeReader, attendance presentDayCounter, ledger *LedgerService, tx Transactor, notes *Notifications, clock Clock, currency string) *SalarySlipService {
	return &SalarySlipService{
		slips:      slips,
		employees:  employees,
		attendance: attendance,
		ledger:     ledger,
		tx:         tx,
		notes:      notes,
		clock:      clock,
		currency:   currency,
	}
}

func (s *SalarySlipService) Get(ctx context.Context, id int) (*model.SalarySlip, error) {
	return s.slips.GetByID(ctx, id)
}

func (s *SalarySlipService) List(ctx context.Context, filter model.ListFilter, employeeID *int) ([]model.SalarySlip, int, error) {
	return s.slips.ListPaginated(ctx, filter, employeeID)
}

// WorkingDaysBetween counts Monday to Friday days in [from, to].
func WorkingDaysBetween(from, to model.Date) int {
	n := 0
	for d := from; !d.After(to); d = d.AddDays(1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

// ComputeSlip fills the totals of a slip and records its warnings.
func ComputeSlip(sl *model.SalarySlip) {
	var earnings, deductions float64
	for _, c := range sl.Earnings {
		earnings += c.Amount
	}
	for _, c := range sl.Deductions {
		deductions += c.Amount
	}
	sl.GrossSalary = model.RoundMoney(sl.BasicSalary + earnings)
	sl.TotalDeductions = model.RoundMoney(deductions)
	sl.NetSalary = model.RoundMoney(sl.GrossSalary - sl.TotalDeductions)

	var w warnings
	if sl.NetSalary < 0 {
		w.add("Net salary is negative (%.2f): deductions exceed gross salary", sl.NetSalary)
	}
	sl.Warnings = w
}

func (s *SalarySlipService) prepare(ctx context.Context, sl *model.SalarySlip, basic *float64) error {
	if err := requireDate("period_start", sl.PeriodStart); err != nil {
		return err
	}
	if err := requireDate("period_end", sl.PeriodEnd); err != nil {
		return err
	}
	if sl.PeriodEnd.Before(sl.PeriodStart) {
		return invalid("period_end", "cannot be before period_start")
	}
	e, err := s.employees.GetByID(ctx, sl.EmployeeID)
	if err != nil {
		return err
	}
	if e.Status != model.EmployeeActive {
		return invalid("employee_id", "employee %s is %s", e.FullName(), e.Status)
	}
	sl.EmployeeName = e.FullName()
	if basic != nil {
		sl.BasicSalary = model.RoundMoney(*basic)
	} else {
		sl.BasicSalary = e.BasicSalary
	}
	for i, c := range sl.Earnings {
		if c.Amount < 0 {
			return invalid("earnings", "%s cannot be negative", c.Component)
		}
		sl.Earnings[i].Amount = model.RoundMoney(c.Amount)
	}
	for i, c := range sl.Deductions {
		if c.Amount < 0 {
			return invalid("deductions", "%s cannot be negative", c.Component)
		}
		sl.Deductions[i].Amount = model.RoundMoney(c.Amount)
	}

	sl.WorkingDays = WorkingDaysBetween(sl.PeriodStart, sl.PeriodEnd)
	if sl.PresentDays, err = s.attendance.CountPresentDays(ctx, sl.EmployeeID, sl.PeriodStart, sl.PeriodEnd); err != nil {
		return err
	}
	ComputeSlip(sl)
	return nil
}

func newSlipComponents(in []model.SalaryComponent) []model.SalaryComponent {
	if in == nil {
		return []model.SalaryComponent{}
	}
	return in
}

// Create drafts a slip. A negative net salary is reported as a warning.
func (s *SalarySlipService) Create(ctx context.Context, req model.SalarySlipRequest) (*model.SalarySlip, error) {
	sl := &model.SalarySlip{
		EmployeeID:  req.EmployeeID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Earnings:    newSlipComponents(req.Earnings),
		Deductions:  newSlipComponents(req.Deductions),
		Status:      SlipDraft,
		DocStatus:   model.DocDraft,
	}
	if err := s.prepare(ctx, sl, req.BasicSalary); err != nil {
		return nil, err
	}
	if err := s.slips.Create(ctx, sl); err != nil {
		return nil, err
	}
	return sl, nil
}

// Update modifies a draft slip.
func (s *SalarySlipService) Update(ctx context.Context, id int, req model.SalarySlipRequest) (*model.SalarySlip, error) {
	sl, err := s.slips.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sl.DocStatus != model.DocDraft {
		return nil, ErrNotEditable
	}
	sl.EmployeeID = req.EmployeeID
	sl.PeriodStart, sl.PeriodEnd = req.PeriodStart, req.PeriodEnd
	sl.Earnings = newSlipComponents(req.Earnings)
	sl.Deductions = newSlipComponents(req.Deductions)
	if err := s.prepare(ctx, sl, req.BasicSalary); err != nil {
		return nil, err
	}
	if err := s.slips.Save(ctx, sl); err != nil {
		return nil, err
	}
	return sl, nil
}

func (s *SalarySlipService) Delete(ctx context.Context, id int) error {
	sl, err := s.slips.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sl.DocStatus != model.DocDraft {
		return ErrNotEditable
	}
	return s.slips.Delete(ctx, id)
}

// Submit books the slip as salaries payable and emails the employee.
func (s *SalarySlipService) Submit(ctx context.Context, id int) (*model.SalarySlip, error) {
	var (
		sl  *model.SalarySlip
		emp *model.Employee
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if sl, err = s.slips.GetByID(ctx, id); err != nil {
			return err
		}
		if sl.DocStatus != model.DocDraft {
			return stateError("salary slip %d is %s", sl.ID, sl.Status)
		}
		if err := s.prepare(ctx, sl, &sl.BasicSalary); err != nil {
			return err
		}
		if emp, err = s.employees.GetByID(ctx, sl.EmployeeID); err != nil {
			return err
		}
		sl.Status = SlipSubmitted
		sl.DocStatus = model.DocSubmitted
		if err := s.slips.Save(ctx, sl); err != nil {
			return err
		}
		if sl.GrossSalary <= 0 {
			return nil
		}
		return s.ledger.PostPair(ctx, sl.PeriodEnd,
			model.AccountNameSalariesExpense, model.AccountNameSalariesPayable, sl.GrossSalary,
			VoucherSalarySlip, sl.ID, "Employee", &sl.EmployeeID, "Salary "+slipPeriod(sl))
	})
	if err != nil {
		return nil, err
	}

	if emp.Email != "" {
		s.notes.Send(ctx, notify.Message{
			To:            []string{emp.Email},
			Template:      notify.TplSalarySlip,
			ReferenceType: "Salary Slip",
			ReferenceID:   sl.ID,
			Data: map[string]interface{}{
				"Period":       slipPeriod(sl),
				"EmployeeName": emp.FullName(),
				"Gross":        sl.GrossSalary,
				"Deductions":   sl.TotalDeductions,
				"Net":          sl.NetSalary,
				"Currency":     s.currency,
			},
		})
	}
	return sl, nil
}

// Cancel reverses a submitted slip.
func (s *SalarySlipService) Cancel(ctx context.Context, id int) (*model.SalarySlip, error) {
	var sl *model.SalarySlip
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if sl, err = s.slips.GetByID(ctx, id); err != nil {
			return err
		}
		if sl.DocStatus != model.DocSubmitted {
			return stateError("only submitted salary slips can be cancelled")
		}
		sl.Status = SlipCancelled
		sl.DocStatus = model.DocCancelled
		if err := s.slips.Save(ctx, sl); err != nil {
			return err
		}
		return s.ledger.CancelVoucher(ctx, VoucherSalarySlip, sl.ID)
	})
	if err != nil {
		return nil, err
	}
	return sl, nil
}

func slipPeriod(sl *model.SalarySlip) string {
	return sl.PeriodStart.String() + " / " + sl.PeriodEnd.String()
}
