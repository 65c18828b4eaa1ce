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

type fakeEmployees struct {
	byID map[int]*model.Employee
}

func (f *fakeEmployees) GetByID(_ context.Context, id int) (*model.Employee, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

type fakeHRAttendance struct {
	byID map[int]*model.HRAttendance
	next int
}

func newFakeHRAttendance() *fakeHRAttendance {
	return &fakeHRAttendance{byID: map[int]*model.HRAttendance{}}
}

func (f *fakeHRAttendance) GetByID(_ context.Context, id int) (*model.HRAttendance, error) {
	h, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (f *fakeHRAttendance) ListPaginated(context.Context, model.ListFilter, *int, *model.Date, *model.Date) ([]model.HRAttendance, int, error) {
	return nil, 0, nil
}

func (f *fakeHRAttendance) Exists(_ context.Context, excludeID, employeeID int, date model.Date) (bool, error) {
	for _, h := range f.byID {
		if h.ID != excludeID && h.EmployeeID == employeeID && h.AttendanceDate.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeHRAttendance) Create(_ context.Context, h *model.HRAttendance) error {
	f.next++
	h.ID = f.next
	cp := *h
	f.byID[h.ID] = &cp
	return nil
}

func (f *fakeHRAttendance) Save(_ context.Context, h *model.HRAttendance) error {
	cp := *h
	f.byID[h.ID] = &cp
	return nil
}

func (f *fakeHRAttendance) Delete(_ context.Context, id int) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeHRAttendance) Summary(context.Context, *int, model.Date, model.Date) (*model.HRAttendanceSummary, error) {
	return &model.HRAttendanceSummary{}, nil
}

func newHRFixture() (*HRAttendanceService, *fakeHRAttendance) {
	employees := &fakeEmployees{byID: map[int]*model.Employee{
		1: {ID: 1, EmployeeID: "EMP-001", FirstName: "Youssef", LastName: "Alaoui", Status: model.EmployeeActive},
		2: {ID: 2, EmployeeID: "EMP-002", FirstName: "Nadia", LastName: "Berrada", Status: model.EmployeeLeft},
	}}
	records := newFakeHRAttendance()
	return NewHRAttendanceService(records, employees, &fakeTx{}, fixedClock(2025, time.November, 4)), records
}

func TestComputeWorkingTime(t *testing.T) {
	tests := []struct {
		name      string
		in        model.HRAttendance
		wantHours float64
		wantLate  bool
		wantEarly bool
		wantIn    string
	}{
		{"full day", model.HRAttendance{Status: model.HRPresent, InTime: "08:30", OutTime: "16:30"}, 8, false, false, "08:30"},
		{"late arrival", model.HRAttendance{Status: model.HRPresent, InTime: "9:00", OutTime: "16:30"}, 7.5, true, false, "09:00"},
		{"early exit", model.HRAttendance{Status: model.HRPresent, InTime: "08:00", OutTime: "15:00"}, 7, false, true, "08:00"},
		{"seconds ignored", model.HRAttendance{Status: model.HRPresent, InTime: "08:15:40", OutTime: "16:35"}, 8.33, false, false, "08:15"},
		{"in time only", model.HRAttendance{Status: model.HRHalfDay, InTime: "13:00"}, 0, true, false, "13:00"},
		{"absent clears times", model.HRAttendance{Status: model.HRAbsent, InTime: "08:30", OutTime: "16:30"}, 0, false, false, ""},
		{"on leave clears times", model.HRAttendance{Status: model.HROnLeave, InTime: "10:00"}, 0, false, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.in
			require.NoError(t, ComputeWorkingTime(&h))
			assert.Equal(t, tt.wantHours, h.WorkingHours)
			assert.Equal(t, tt.wantLate, h.LateEntry)
			assert.Equal(t, tt.wantEarly, h.EarlyExit)
			assert.Equal(t, tt.wantIn, h.InTime)
		})
	}
}

func TestComputeWorkingTime_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		in    model.HRAttendance
		field string
	}{
		{"out before in", model.HRAttendance{Status: model.HRPresent, InTime: "14:00", OutTime: "09:00"}, "out_time"},
		{"bad in time", model.HRAttendance{Status: model.HRPresent, InTime: "25:00"}, "in_time"},
		{"bad out time", model.HRAttendance{Status: model.HRPresent, OutTime: "noon"}, "out_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.in
			err := ComputeWorkingTime(&h)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestHRAttendance_Mark(t *testing.T) {
	svc, _ := newHRFixture()
	ctx := context.Background()

	h, err := svc.Mark(ctx, model.HRAttendanceRequest{EmployeeID: 1, Status: model.HRPresent, InTime: "08:45", OutTime: "16:30"})
	require.NoError(t, err)
	assert.Equal(t, "Youssef Alaoui", h.EmployeeName)
	assert.Equal(t, model.NewDate(2025, time.November, 4), h.AttendanceDate)
	assert.Equal(t, model.HRApprovalOpen, h.ApprovalStatus)
	assert.True(t, h.LateEntry)
	assert.Equal(t, 7.75, h.WorkingHours)

	_, err = svc.Mark(ctx, model.HRAttendanceRequest{EmployeeID: 1, Status: model.HRPresent})
	assert.ErrorIs(t, err, repository.ErrDuplicateHRAttendance)
}

func TestHRAttendance_MarkRejects(t *testing.T) {
	tests := []struct {
		name  string
		req   model.HRAttendanceRequest
		field string
	}{
		{"future date", model.HRAttendanceRequest{EmployeeID: 1, Status: model.HRPresent, AttendanceDate: model.NewDate(2025, time.November, 5)}, "attendance_date"},
		{"employee left", model.HRAttendanceRequest{EmployeeID: 2, Status: model.HRPresent}, "employee_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newHRFixture()
			_, err := svc.Mark(context.Background(), tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	svc, _ := newHRFixture()
	_, err := svc.Mark(context.Background(), model.HRAttendanceRequest{EmployeeID: 99, Status: model.HRPresent})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHRAttendance_ApproveAndReject(t *testing.T) {
	svc, _ := newHRFixture()
	ctx := context.Background()
	admin := 7

	first, err := svc.Mark(ctx, model.HRAttendanceRequest{EmployeeID: 1, Status: model.HRPresent, InTime: "08:30", OutTime: "16:30"})
	require.NoError(t, err)
	approved, err := svc.Approve(ctx, first.ID, &admin)
	require.NoError(t, err)
	assert.Equal(t, model.HRApprovalApproved, approved.ApprovalStatus)
	assert.Equal(t, &admin, approved.ApprovedBy)

	_, err = svc.Approve(ctx, first.ID, &admin)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = svc.Update(ctx, first.ID, model.HRAttendanceRequest{EmployeeID: 1, Status: model.HRAbsent})
	assert.ErrorIs(t, err, ErrNotEditable)
	assert.ErrorIs(t, svc.Delete(ctx, first.ID), ErrNotEditable)

	second, err := svc.Mark(ctx, model.HRAttendanceRequest{
		EmployeeID: 1, Status: model.HRWorkFromHome,
		AttendanceDate: model.NewDate(2025, time.November, 3), Remarks: "Connexion VPN",
	})
	require.NoError(t, err)
	rejected, err := svc.Reject(ctx, second.ID, "  pas de justificatif ", &admin)
	require.NoError(t, err)
	assert.Equal(t, model.HRApprovalRejected, rejected.ApprovalStatus)
	assert.Equal(t, "Connexion VPN\nRejected: pas de justificatif", rejected.Remarks)
}

func TestHRAttendance_BulkMark(t *testing.T) {
	svc, records := newHRFixture()
	day := model.NewDate(2025, time.November, 3)

	out, err := svc.BulkMark(context.Background(), model.BulkHRAttendanceRequest{
		AttendanceDate: day,
		Entries: []model.HRAttendanceRequest{
			{EmployeeID: 1, Status: model.HRPresent, InTime: "08:30", OutTime: "16:30"},
		},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, day, out[0].AttendanceDate)
	assert.Len(t, records.byID, 1)

	_, err = svc.BulkMark(context.Background(), model.BulkHRAttendanceRequest{
		AttendanceDate: day,
		Entries: []model.HRAttendanceRequest{
			{EmployeeID: 2, Status: model.HRPresent},
		},
	})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestHRAttendance_SummaryRange(t *testing.T) {
	svc, _ := newHRFixture()
	_, err := svc.Summary(context.Background(), nil, model.NewDate(2025, time.November, 4), model.NewDate(2025, time.November, 1))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "to", verr.Field)
}
