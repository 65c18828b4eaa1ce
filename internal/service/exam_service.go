package service

import (
	"context"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
)

type examStore interface {
	GetByID(ctx context.Context, id int) (*model.Exam, error)
	ListPaginated(ctx context.Context, filter model.ListFilter, classID *int) ([]model.Exam, int, error)
	Create(ctx context.Context, e *model.Exam) error
	Save(ctx context.Context, e *model.Exam) error
	Delete(ctx context.Context, id int) error
}

type classRoster interface {
	ListByClass(ctx context.Context, classID int) ([]model.Student, error)
}

const (
	minExamMinutes = 30
	maxExamMinutes = 6 * 60
)

// ExamService schedules exams and runs their lifecycle.
type ExamService struct {
	exams    examStore
	classes  classStore
	students classRoster
	notes    *Notifications
	clock    Clock
}

// NewExamService creates a new ExamService.
func NewExamService(exams examStore, classes classStore, students classRoster, notes *Notifications, clock Clock) *ExamService {
	return &ExamService{exams: exams, classes: classes, students: students, notes: notes, clock: clock}
}

// GetByID retrieves an exam.
func (s *ExamService) GetByID(ctx context.Context, id int) (*model.Exam, error) {
	return s.exams.GetByID(ctx, id)
}

// List lists exams, optionally for one class.
func (s *ExamService) List(ctx context.Context, filter model.ListFilter, classID *int) ([]model.Exam, int, error) {
	return s.exams.ListPaginated(ctx, filter, classID)
}

func (s *ExamService) validate(ctx context.Context, e *model.Exam) error {
	if err := requireDate("exam_date", e.ExamDate); err != nil {
		return err
	}
	if e.DocStatus == model.DocDraft && e.ExamDate.Before(s.clock.today()) {
		return invalid("exam_date", "cannot be in the past")
	}
	start, err := model.ParseClock(e.StartTime)
	if err != nil {
		return invalid("start_time", "%v", err)
	}
	end, err := model.ParseClock(e.EndTime)
	if err != nil {
		return invalid("end_time", "%v", err)
	}
	if end <= start {
		return invalid("end_time", "must be after the start time")
	}
	e.StartTime, e.EndTime = model.FormatClock(start), model.FormatClock(end)
	e.DurationMinutes = end - start
	if e.DurationMinutes < minExamMinutes || e.DurationMinutes > maxExamMinutes {
		return invalid("end_time", "duration must be between %d minutes and %d hours", minExamMinutes, maxExamMinutes/60)
	}
	if e.MaxMarks <= 0 {
		return invalid("max_marks", "must be greater than zero")
	}
	if e.PassingMarks < 0 || e.PassingMarks > e.MaxMarks {
		return invalid("passing_marks", "must be between 0 and the maximum marks")
	}
	_, err = s.classes.GetByID(ctx, e.SchoolClassID)
	return err
}

func applyExam(e *model.Exam, req model.ExamRequest) {
	e.ExamName = strings.TrimSpace(req.ExamName)
	e.Subject = strings.TrimSpace(req.Subject)
	e.SchoolClassID = req.SchoolClassID
	e.AcademicTermID = req.AcademicTermID
	e.ExamDate = req.ExamDate
	e.StartTime = req.StartTime
	e.EndTime = req.EndTime
	e.Room = strings.TrimSpace(req.Room)
	e.MaxMarks = req.MaxMarks
	e.PassingMarks = req.PassingMarks
}

// Create drafts an exam.
func (s *ExamService) Create(ctx context.Context, req model.ExamRequest, createdBy *int) (*model.Exam, error) {
	e := &model.Exam{Status: model.ExamDraft, DocStatus: model.DocDraft, CreatedBy: createdBy}
	applyExam(e, req)
	if err := s.validate(ctx, e); err != nil {
		return nil, err
	}
	if err := s.exams.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Update modifies a draft exam.
func (s *ExamService) Update(ctx context.Context, id int, req model.ExamRequest) (*model.Exam, error) {
	e, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.DocStatus != model.DocDraft {
		return nil, ErrNotEditable
	}
	applyExam(e, req)
	if err := s.validate(ctx, e); err != nil {
		return nil, err
	}
	if err := s.exams.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes a draft exam.
func (s *ExamService) Delete(ctx context.Context, id int) error {
	e, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e.DocStatus != model.DocDraft {
		return ErrNotEditable
	}
	return s.exams.Delete(ctx, id)
}

// Submit schedules a draft exam and notifies the families of the class.
func (s *ExamService) Submit(ctx context.Context, id int) (*model.Exam, error) {
	e, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.DocStatus != model.DocDraft {
		return nil, stateError("exam %d is %s", e.ID, e.Status)
	}
	if err := s.validate(ctx, e); err != nil {
		return nil, err
	}
	e.Status = model.ExamScheduled
	e.DocStatus = model.DocSubmitted
	if err := s.exams.Save(ctx, e); err != nil {
		return nil, err
	}

	students, err := s.students.ListByClass(ctx, e.SchoolClassID)
	if err != nil {
		return e, nil
	}
	for _, st := range students {
		if st.Status != model.StudentActive || st.GuardianEmail == "" {
			continue
		}
		s.notes.Send(ctx, notify.Message{
			To:            []string{st.GuardianEmail},
			Template:      notify.TplExamScheduled,
			ReferenceType: "Exam",
			ReferenceID:   e.ID,
			Data: map[string]interface{}{
				"ExamName": e.ExamName,
				"Subject":  e.Subject,
				"Date":     e.ExamDate,
				"Start":    e.StartTime,
				"End":      e.EndTime,
				"Room":     e.Room,
			},
		})
	}
	return e, nil
}

func (s *ExamService) transition(ctx context.Context, id int, from, to model.ExamStatus) (*model.Exam, error) {
	e, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != from {
		return nil, stateError("exam must be %s, it is %s", from, e.Status)
	}
	e.Status = to
	if err := s.exams.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Start opens a scheduled exam.
func (s *ExamService) Start(ctx context.Context, id int) (*model.Exam, error) {
	return s.transition(ctx, id, model.ExamScheduled, model.ExamOngoing)
}

// Complete closes an ongoing exam.
func (s *ExamService) Complete(ctx context.Context, id int) (*model.Exam, error) {
	return s.transition(ctx, id, model.ExamOngoing, model.ExamCompleted)
}

// Cancel cancels an exam that has not been completed.
func (s *ExamService) Cancel(ctx context.Context, id int) (*model.Exam, error) {
	e, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch e.Status {
	case model.ExamCompleted:
		return nil, stateError("completed exams cannot be cancelled")
	case model.ExamCancelled:
		return nil, stateError("exam %d is already cancelled", e.ID)
	}
	e.Status = model.ExamCancelled
	e.DocStatus = model.DocCancelled
	if err := s.exams.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}
