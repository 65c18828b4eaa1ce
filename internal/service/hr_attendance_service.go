package service

import (
	"context"
	"math"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/repository"
)

type hrAttendanceStore interface {
	GetByID(ctx context.Context, id int) (*model.HRAttendance, error)
	ListPaginated(ctx context.Context, filter model.ListFilter, employeeID *int, from, to *model.Date) ([]model.HRAttendance, int, error)
	Exists(ctx context.Context, excludeID, employeeID int, date model.Date) (bool, error)
	Create(ctx context.Context, h *model.HRAttendance) error
	Save(ctx context.Context, h *model.HRAttendance) error
	Delete(ctx context.Context, id int) error
	Summary(ctx context.Context, employeeID *int, from, to model.Date) (*model.HRAttendanceSummary, error)
}

type employeeReader interface {
	GetByID(ctx context.Context, id int) (*model.Employee, error)
}

// Office hours in minutes after midnight.
const (
	officeStart = 8*60 + 30
	officeEnd   = 16*60 + 30
)

// HRAttendanceService records staff presence and its approval.
type HRAttendanceService struct {
	records   hrAttendanceStore
	employees employeeReader
	tx        Transactor
	clock     Clock
}

// NewHRAttendanceService creates a new HRAttendanceService.
func NewHRAttendanceService(records hrAttendanceStore, employees employeeReader, tx Transactor, clock Clock) *HRAttendanceService {
	return &HRAttendanceService{records: records, employees: employees, tx: tx, clock: clock}
}

func (s *HRAttendanceService) Get(ctx context.Context, id int) (*model.HRAttendance, error) {
	return s.records.GetByID(ctx, id)
}

func (s *HRAttendanceService) List(ctx context.Context, filter model.ListFilter, employeeID *int, from, to *model.Date) ([]model.HRAttendance, int, error) {
	return s.records.ListPaginated(ctx, filter, employeeID, from, to)
}

// Summary counts statuses over a period.
func (s *HRAttendanceService) Summary(ctx context.Context, employeeID *int, from, to model.Date) (*model.HRAttendanceSummary, error) {
	if to.Before(from) {
		return nil, invalid("to", "cannot be before from")
	}
	return s.records.Summary(ctx, employeeID, from, to)
}

// ComputeWorkingTime fills working hours and the late entry and early exit
// flags from the in and out times.
func ComputeWorkingTime(h *model.HRAttendance) error {
	h.WorkingHours, h.LateEntry, h.EarlyExit = 0, false, false
	if h.Status == model.HRAbsent || h.Status == model.HROnLeave {
		h.InTime, h.OutTime = "", ""
		return nil
	}
	var in, out int
	var err error
	if h.InTime != "" {
		if in, err = model.ParseClock(h.InTime); err != nil {
			return invalid("in_time", "%v", err)
		}
		h.InTime = model.FormatClock(in)
		h.LateEntry = in > officeStart
	}
	if h.OutTime != "" {
		if out, err = model.ParseClock(h.OutTime); err != nil {
			return invalid("out_time", "%v", err)
		}
		h.OutTime = model.FormatClock(out)
		h.EarlyExit = out < officeEnd
	}
	if h.InTime != "" && h.OutTime != "" {
		if out < in {
			return invalid("out_time", "cannot be before the in time")
		}
		h.WorkingHours = math.Round(float64(out-in)/60*100) / 100
	}
	return nil
}

func (s *HRAttendanceService) prepare(ctx context.Context, h *model.HRAttendance) error {
	if h.AttendanceDate.IsZero() {
		h.AttendanceDate = s.clock.today()
	}
	if h.AttendanceDate.After(s.clock.today()) {
		return invalid("attendance_date", "cannot be in the future")
	}
	e, err := s.employees.GetByID(ctx, h.EmployeeID)
	if err != nil {
		return err
	}
	if e.Status != model.EmployeeActive {
		return invalid("employee_id", "employee %s is %s", e.FullName(), e.Status)
	}
	h.EmployeeName = e.FullName()
	if err := ComputeWorkingTime(h); err != nil {
		return err
	}
	dup, err := s.records.Exists(ctx, h.ID, h.EmployeeID, h.AttendanceDate)
	if err != nil {
		return err
	}
	if dup {
		return repository.ErrDuplicateHRAttendance
	}
	return nil
}

func applyHRAttendance(h *model.HRAttendance, req model.HRAttendanceRequest) {
	h.EmployeeID = req.EmployeeID
	h.AttendanceDate = req.AttendanceDate
	h.Status = req.Status
	h.InTime = req.InTime
	h.OutTime = req.OutTime
	h.Remarks = strings.TrimSpace(req.Remarks)
}

// Mark records one employee for a day.
func (s *HRAttendanceService) Mark(ctx context.Context, req model.HRAttendanceRequest) (*model.HRAttendance, error) {
	h := &model.HRAttendance{ApprovalStatus: model.HRApprovalOpen}
	applyHRAttendance(h, req)
	if err := s.prepare(ctx, h); err != nil {
		return nil, err
	}
	if err := s.records.Create(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Update corrects an open record.
func (s *HRAttendanceService) Update(ctx context.Context, id int, req model.HRAttendanceRequest) (*model.HRAttendance, error) {
	h, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.ApprovalStatus != model.HRApprovalOpen {
		return nil, ErrNotEditable
	}
	applyHRAttendance(h, req)
	if err := s.prepare(ctx, h); err != nil {
		return nil, err
	}
	if err := s.records.Save(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *HRAttendanceService) Delete(ctx context.Context, id int) error {
	h, err := s.records.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if h.ApprovalStatus != model.HRApprovalOpen {
		return ErrNotEditable
	}
	return s.records.Delete(ctx, id)
}

// BulkMark records several employees on one date in one transaction.
func (s *HRAttendanceService) BulkMark(ctx context.Context, req model.BulkHRAttendanceRequest) ([]model.HRAttendance, error) {
	date := req.AttendanceDate
	if date.IsZero() {
		date = s.clock.today()
	}
	out := make([]model.HRAttendance, 0, len(req.Entries))
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		out = out[:0]
		for _, entry := range req.Entries {
			entry.AttendanceDate = date
			h := &model.HRAttendance{ApprovalStatus: model.HRApprovalOpen}
			applyHRAttendance(h, entry)
			if err := s.prepare(ctx, h); err != nil {
				return err
			}
			if err := s.records.Create(ctx, h); err != nil {
				return err
			}
			out = append(out, *h)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Approve accepts an open record.
func (s *HRAttendanceService) Approve(ctx context.Context, id int, approvedBy *int) (*model.HRAttendance, error) {
	h, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.ApprovalStatus != model.HRApprovalOpen {
		return nil, stateError("attendance %d is already %s", h.ID, h.ApprovalStatus)
	}
	h.ApprovalStatus = model.HRApprovalApproved
	h.ApprovedBy = approvedBy
	if err := s.records.Save(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Reject refuses an open record, keeping the reason in the remarks.
func (s *HRAttendanceService) Reject(ctx context.Context, id int, reason string, rejectedBy *int) (*model.HRAttendance, error) {
	h, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.ApprovalStatus != model.HRApprovalOpen {
		return nil, stateError("attendance %d is already %s", h.ID, h.ApprovalStatus)
	}
	h.ApprovalStatus = model.HRApprovalRejected
	h.ApprovedBy = rejectedBy
	if reason = strings.TrimSpace(reason); reason != "" {
		if h.Remarks != "" {
			h.Remarks += "\n"
		}
		h.Remarks += "Rejected: " + reason
	}
	if err := s.records.Save(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}
