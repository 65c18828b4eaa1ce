package service

import (
	"context"
	"errors"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/rs/zerolog"
)

type attendanceStore interface {
	GetByID(ctx context.Context, id int) (*model.StudentAttendance, error)
	GetForDate(ctx context.Context, studentID int, date model.Date) (*model.StudentAttendance, error)
	ListPaginated(ctx context.Context, filter model.AttendanceFilter) ([]model.StudentAttendance, int, error)
	ExistsForDate(ctx context.Context, excludeID, studentID int, date model.Date) (bool, error)
	Create(ctx context.Context, a *model.StudentAttendance) error
	Update(ctx context.Context, a *model.StudentAttendance) error
	Delete(ctx context.Context, id int) error
	Summary(ctx context.Context, classID *int, from, to model.Date) ([]model.AttendanceSummary, error)
}

type attendancePublisher interface {
	Publish(ctx context.Context, ev model.AttendanceEvent) error
}

// AttendanceService records daily student attendance.
type AttendanceService struct {
	records  attendanceStore
	students studentReader
	feed     attendancePublisher
	tx       Transactor
	notes    *Notifications
	clock    Clock
	log      zerolog.Logger
}

// NewAttendanceService creates a new AttendanceService.
func NewAttendanceService(records attendanceStore, students studentReader, feed attendancePublisher, tx Transactor, notes *Notifications, clock Clock, log zerolog.Logger) *AttendanceService {
	return &AttendanceService{
		records:  records,
		students: students,
		feed:     feed,
		tx:       tx,
		notes:    notes,
		clock:    clock,
		log:      log.With().Str("component", "attendance").Logger(),
	}
}

func (s *AttendanceService) Get(ctx context.Context, id int) (*model.StudentAttendance, error) {
	return s.records.GetByID(ctx, id)
}

func (s *AttendanceService) List(ctx context.Context, filter model.AttendanceFilter) ([]model.StudentAttendance, int, error) {
	return s.records.ListPaginated(ctx, filter)
}

// Summary counts marks per class over a period.
func (s *AttendanceService) Summary(ctx context.Context, classID *int, from, to model.Date) ([]model.AttendanceSummary, error) {
	if to.Before(from) {
		return nil, invalid("to", "cannot be before from")
	}
	return s.records.Summary(ctx, classID, from, to)
}

// normalizeAttendance applies the status rules shared by single and bulk marking.
func normalizeAttendance(a *model.StudentAttendance) error {
	if a.Status == model.AttendanceAbsent && a.IsJustified {
		a.Status = model.AttendanceAbsentJustified
	}
	if a.ArrivalTime != "" {
		m, err := model.ParseClock(a.ArrivalTime)
		if err != nil {
			return invalid("arrival_time", "%v", err)
		}
		a.ArrivalTime = model.FormatClock(m)
	}
	if a.Status != model.AttendanceLate {
		a.ArrivalTime = ""
	}
	a.Justification = strings.TrimSpace(a.Justification)
	return nil
}

func (s *AttendanceService) prepare(ctx context.Context, a *model.StudentAttendance, classID *int) (*model.Student, error) {
	if a.AttendanceDate.IsZero() {
		a.AttendanceDate = s.clock.today()
	}
	if a.AttendanceDate.After(s.clock.today()) {
		return nil, invalid("attendance_date", "cannot be in the future")
	}
	st, err := s.students.GetByID(ctx, a.StudentID)
	if err != nil {
		return nil, err
	}
	if st.Status != model.StudentActive {
		return nil, invalid("student_id", "student %s is %s", st.FullName(), st.Status)
	}
	if st.SchoolClassID == nil {
		return nil, invalid("student_id", "student %s is not placed in a class", st.FullName())
	}
	if classID != nil && *st.SchoolClassID != *classID {
		return nil, invalid("student_id", "student %s does not belong to class %d", st.FullName(), *classID)
	}
	a.SchoolClassID = *st.SchoolClassID
	a.StudentName = st.FullName()
	return st, normalizeAttendance(a)
}

func applyAttendance(a *model.StudentAttendance, req model.StudentAttendanceRequest, markedBy *int) {
	a.StudentID = req.StudentID
	a.AttendanceDate = req.AttendanceDate
	a.Status = req.Status
	a.IsJustified = req.IsJustified
	a.Justification = req.Justification
	a.ArrivalTime = req.ArrivalTime
	a.MarkedBy = markedBy
}

// Mark records one student's attendance for a day.
func (s *AttendanceService) Mark(ctx context.Context, req model.StudentAttendanceRequest, markedBy *int) (*model.StudentAttendance, error) {
	a := &model.StudentAttendance{}
	applyAttendance(a, req, markedBy)
	st, err := s.prepare(ctx, a, nil)
	if err != nil {
		return nil, err
	}
	dup, err := s.records.ExistsForDate(ctx, 0, a.StudentID, a.AttendanceDate)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, repository.ErrDuplicateAttendance
	}
	if err := s.records.Create(ctx, a); err != nil {
		return nil, err
	}
	s.announce(ctx, "marked", a, st)
	return a, nil
}

// Update corrects an attendance record.
func (s *AttendanceService) Update(ctx context.Context, id int, req model.StudentAttendanceRequest, markedBy *int) (*model.StudentAttendance, error) {
	a, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := a.Status
	req.StudentID, req.AttendanceDate = a.StudentID, a.AttendanceDate
	applyAttendance(a, req, markedBy)
	st, err := s.prepare(ctx, a, nil)
	if err != nil {
		return nil, err
	}
	if err := s.records.Update(ctx, a); err != nil {
		return nil, err
	}
	if prev != a.Status {
		s.announce(ctx, "updated", a, st)
	}
	return a, nil
}

func (s *AttendanceService) Delete(ctx context.Context, id int) error {
	return s.records.Delete(ctx, id)
}

type markedStudent struct {
	rec     *model.StudentAttendance
	student *model.Student
	event   string
}

// BulkMark records a whole class for one date. Existing marks of the day
// are overwritten.
func (s *AttendanceService) BulkMark(ctx context.Context, req model.BulkAttendanceRequest, markedBy *int) ([]model.StudentAttendance, error) {
	date := req.AttendanceDate
	if date.IsZero() {
		date = s.clock.today()
	}
	var marked []markedStudent
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		marked = marked[:0]
		seen := map[int]bool{}
		for _, entry := range req.Entries {
			if seen[entry.StudentID] {
				return invalid("entries", "student %d is listed twice", entry.StudentID)
			}
			seen[entry.StudentID] = true
			entry.AttendanceDate = date

			a, err := s.records.GetForDate(ctx, entry.StudentID, date)
			event := "updated"
			switch {
			case errors.Is(err, repository.ErrNotFound):
				a, event = &model.StudentAttendance{}, "marked"
			case err != nil:
				return err
			}
			prev := a.Status
			applyAttendance(a, entry, markedBy)
			st, err := s.prepare(ctx, a, &req.SchoolClassID)
			if err != nil {
				return err
			}
			if a.ID == 0 {
				err = s.records.Create(ctx, a)
			} else {
				err = s.records.Update(ctx, a)
			}
			if err != nil {
				return err
			}
			if event == "marked" || prev != a.Status {
				marked = append(marked, markedStudent{a, st, event})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.StudentAttendance, 0, len(marked))
	for _, m := range marked {
		s.announce(ctx, m.event, m.rec, m.student)
		out = append(out, *m.rec)
	}
	return out, nil
}

// announce publishes the mark on the class feed and tells the guardian
// about absences and late arrivals.
func (s *AttendanceService) announce(ctx context.Context, event string, a *model.StudentAttendance, st *model.Student) {
	if s.feed != nil {
		ev := model.AttendanceEvent{
			Event:          event,
			AttendanceID:   a.ID,
			StudentID:      a.StudentID,
			StudentName:    a.StudentName,
			SchoolClassID:  a.SchoolClassID,
			AttendanceDate: a.AttendanceDate,
			Status:         a.Status,
			At:             s.clock(),
		}
		if err := s.feed.Publish(ctx, ev); err != nil {
			s.log.Warn().Err(err).Int("class_id", a.SchoolClassID).Msg("failed to publish attendance event")
		}
	}

	if a.Status != model.AttendanceAbsent && a.Status != model.AttendanceLate {
		return
	}
	if st.GuardianEmail == "" {
		return
	}
	s.notes.Send(ctx, notify.Message{
		To:            []string{st.GuardianEmail},
		Template:      notify.TplAbsence,
		ReferenceType: "Student Attendance",
		ReferenceID:   a.ID,
		Data: map[string]interface{}{
			"Status":      string(a.Status),
			"StudentName": st.FullName(),
			"Date":        a.AttendanceDate,
			"ArrivalTime": a.ArrivalTime,
		},
	})
}
