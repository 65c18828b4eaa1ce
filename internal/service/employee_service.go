package service

import (
	"context"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/validator"
)

type employeeStore interface {
	GetByID(ctx context.Context, id int) (*model.Employee, error)
	ListPaginated(ctx context.Context, filter model.ListFilter) ([]model.Employee, int, error)
	ReportsToOf(ctx context.Context, id int) (*int, error)
	Create(ctx context.Context, e *model.Employee) error
	Update(ctx context.Context, e *model.Employee) error
	Delete(ctx context.Context, id int) error
}

const minWorkingAge = 16

// EmployeeService manages staff records.
type EmployeeService struct {
	employees employeeStore
	clock     Clock
}

// NewEmployeeService creates a new EmployeeService.
func NewEmployeeService(employees employeeStore, clock Clock) *EmployeeService {
	return &EmployeeService{employees: employees, clock: clock}
}

func (s *EmployeeService) GetByID(ctx context.Context, id int) (*model.Employee, error) {
	return s.employees.GetByID(ctx, id)
}

func (s *EmployeeService) List(ctx context.Context, filter model.ListFilter) ([]model.Employee, int, error) {
	return s.employees.ListPaginated(ctx, filter)
}

func (s *EmployeeService) validate(ctx context.Context, e *model.Employee) error {
	today := s.clock.today()
	if err := requireDate("date_of_birth", e.DateOfBirth); err != nil {
		return err
	}
	if !e.DateOfBirth.Before(today) {
		return invalid("date_of_birth", "must be in the past")
	}
	if err := requireDate("date_of_joining", e.DateOfJoining); err != nil {
		return err
	}
	if e.DateOfJoining.After(today) {
		return invalid("date_of_joining", "cannot be in the future")
	}
	if AgeOn(e.DateOfBirth, e.DateOfJoining) < minWorkingAge {
		return invalid("date_of_joining", "employee must be at least %d years old at joining", minWorkingAge)
	}
	if !validator.IsEmail(e.Email) {
		return invalid("email", "%q is not a valid email address", e.Email)
	}
	if e.BasicSalary < 0 {
		return invalid("basic_salary", "cannot be negative")
	}
	if e.ReportsTo == nil {
		return nil
	}
	if e.ID != 0 && *e.ReportsTo == e.ID {
		return invalid("reports_to", "an employee cannot report to themselves")
	}
	if _, err := s.employees.GetByID(ctx, *e.ReportsTo); err != nil {
		return err
	}
	if e.ID == 0 {
		return nil
	}
	// walk the manager chain upward looking for e
	seen := map[int]bool{e.ID: true}
	next := e.ReportsTo
	for next != nil {
		if seen[*next] {
			return invalid("reports_to", "circular reporting chain")
		}
		seen[*next] = true
		m, err := s.employees.ReportsToOf(ctx, *next)
		if err != nil {
			return err
		}
		next = m
	}
	return nil
}

func applyEmployee(e *model.Employee, req model.EmployeeRequest) {
	e.EmployeeID = strings.TrimSpace(req.EmployeeID)
	e.FirstName = strings.TrimSpace(req.FirstName)
	e.LastName = strings.TrimSpace(req.LastName)
	e.Email = strings.ToLower(strings.TrimSpace(req.Email))
	e.Phone = strings.TrimSpace(req.Phone)
	e.CIN = strings.ToUpper(strings.TrimSpace(req.CIN))
	e.Gender = req.Gender
	e.DateOfBirth = req.DateOfBirth
	e.DateOfJoining = req.DateOfJoining
	e.Designation = strings.TrimSpace(req.Designation)
	e.Department = strings.TrimSpace(req.Department)
	e.ReportsTo = req.ReportsTo
	e.BasicSalary = model.RoundMoney(req.BasicSalary)
	if req.Status != "" {
		e.Status = req.Status
	}
}

func (s *EmployeeService) Create(ctx context.Context, req model.EmployeeRequest) (*model.Employee, error) {
	e := &model.Employee{Status: model.EmployeeActive}
	applyEmployee(e, req)
	if e.DateOfJoining.IsZero() {
		e.DateOfJoining = s.clock.today()
	}
	if err := s.validate(ctx, e); err != nil {
		return nil, err
	}
	if err := s.employees.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EmployeeService) Update(ctx context.Context, id int, req model.EmployeeRequest) (*model.Employee, error) {
	e, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyEmployee(e, req)
	if err := s.validate(ctx, e); err != nil {
		return nil, err
	}
	if err := s.employees.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EmployeeService) Delete(ctx context.Context, id int) error {
	return s.employees.Delete(ctx, id)
}
