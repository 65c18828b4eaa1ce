package service

import (
	"context"
	"testing"
	"time"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmployeeStore struct {
	*fakeEmployees
}

func (f fakeEmployeeStore) ListPaginated(context.Context, model.ListFilter) ([]model.Employee, int, error) {
	return nil, 0, nil
}

func (f fakeEmployeeStore) ReportsToOf(_ context.Context, id int) (*int, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return e.ReportsTo, nil
}

func (f fakeEmployeeStore) Create(_ context.Context, e *model.Employee) error {
	for _, other := range f.byID {
		if other.EmployeeID == e.EmployeeID {
			return repository.ErrDuplicateEmployeeID
		}
	}
	e.ID = len(f.byID) + 1
	cp := *e
	f.byID[e.ID] = &cp
	return nil
}

func (f fakeEmployeeStore) Update(_ context.Context, e *model.Employee) error {
	cp := *e
	f.byID[e.ID] = &cp
	return nil
}

func (f fakeEmployeeStore) Delete(_ context.Context, id int) error {
	delete(f.byID, id)
	return nil
}

// newEmployeeFixture seeds a director, a head of department reporting to
// the director and a teacher reporting to the head.
func newEmployeeFixture() (*EmployeeService, fakeEmployeeStore) {
	store := fakeEmployeeStore{&fakeEmployees{byID: map[int]*model.Employee{
		1: {ID: 1, EmployeeID: "EMP-001", FirstName: "Hassan", LastName: "Bennani", Email: "h.bennani@example.ma",
			DateOfBirth: model.NewDate(1970, time.March, 2), DateOfJoining: model.NewDate(2005, time.September, 1), Status: model.EmployeeActive},
		2: {ID: 2, EmployeeID: "EMP-002", FirstName: "Leila", LastName: "Chraibi", Email: "l.chraibi@example.ma", ReportsTo: intPtr(1),
			DateOfBirth: model.NewDate(1982, time.June, 14), DateOfJoining: model.NewDate(2012, time.September, 1), Status: model.EmployeeActive},
		3: {ID: 3, EmployeeID: "EMP-003", FirstName: "Youssef", LastName: "Alaoui", Email: "y.alaoui@example.ma", ReportsTo: intPtr(2),
			DateOfBirth: model.NewDate(1990, time.January, 20), DateOfJoining: model.NewDate(2018, time.September, 1), Status: model.EmployeeActive},
	}}}
	return NewEmployeeService(store, fixedClock(2025, time.September, 1)), store
}

func newTeacherRequest() model.EmployeeRequest {
	return model.EmployeeRequest{
		EmployeeID:  " EMP-010 ",
		FirstName:   "Sara",
		LastName:    "El Amrani",
		Email:       " S.ElAmrani@Example.MA ",
		CIN:         "ab123456",
		DateOfBirth: model.NewDate(1995, time.April, 8),
		Designation: "Professeur de mathématiques",
		ReportsTo:   intPtr(2),
		BasicSalary: 7500.456,
	}
}

func TestEmployee_Create(t *testing.T) {
	svc, _ := newEmployeeFixture()
	e, err := svc.Create(context.Background(), newTeacherRequest())
	require.NoError(t, err)

	assert.Equal(t, "EMP-010", e.EmployeeID)
	assert.Equal(t, "s.elamrani@example.ma", e.Email)
	assert.Equal(t, "AB123456", e.CIN)
	assert.Equal(t, model.NewDate(2025, time.September, 1), e.DateOfJoining)
	assert.Equal(t, model.EmployeeActive, e.Status)
	assert.Equal(t, 7500.46, e.BasicSalary)

	_, err = svc.Create(context.Background(), newTeacherRequest())
	assert.ErrorIs(t, err, repository.ErrDuplicateEmployeeID)
}

func TestEmployee_CreateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.EmployeeRequest)
		field  string
	}{
		{"missing birth date", func(r *model.EmployeeRequest) { r.DateOfBirth = model.Date{} }, "date_of_birth"},
		{"born today", func(r *model.EmployeeRequest) { r.DateOfBirth = model.NewDate(2025, time.September, 1) }, "date_of_birth"},
		{"joins in the future", func(r *model.EmployeeRequest) { r.DateOfJoining = model.NewDate(2025, time.October, 1) }, "date_of_joining"},
		{"too young at joining", func(r *model.EmployeeRequest) { r.DateOfBirth = model.NewDate(2009, time.December, 1) }, "date_of_joining"},
		{"bad email", func(r *model.EmployeeRequest) { r.Email = "sara.elamrani" }, "email"},
		{"negative salary", func(r *model.EmployeeRequest) { r.BasicSalary = -1 }, "basic_salary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newEmployeeFixture()
			req := newTeacherRequest()
			tt.mutate(&req)
			_, err := svc.Create(context.Background(), req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	svc, _ := newEmployeeFixture()
	req := newTeacherRequest()
	req.ReportsTo = intPtr(99)
	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestEmployee_SixteenAtJoiningIsAllowed(t *testing.T) {
	svc, _ := newEmployeeFixture()
	req := newTeacherRequest()
	req.DateOfBirth = model.NewDate(2009, time.September, 1)
	_, err := svc.Create(context.Background(), req)
	assert.NoError(t, err)
}

func TestEmployee_ReportingChain(t *testing.T) {
	tests := []struct {
		name      string
		id        int
		reportsTo int
		wantErr   bool
	}{
		{"self", 2, 2, true},
		{"direct cycle", 1, 2, true},
		{"indirect cycle", 1, 3, true},
		{"valid move", 3, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newEmployeeFixture()
			cur := store.byID[tt.id]
			req := model.EmployeeRequest{
				EmployeeID: cur.EmployeeID, FirstName: cur.FirstName, LastName: cur.LastName, Email: cur.Email,
				DateOfBirth: cur.DateOfBirth, DateOfJoining: cur.DateOfJoining, ReportsTo: intPtr(tt.reportsTo),
			}
			_, err := svc.Update(context.Background(), tt.id, req)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.reportsTo, *store.byID[tt.id].ReportsTo)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "reports_to", verr.Field)
		})
	}
}
