package service

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
)

type gradeStore interface {
	GetByID(ctx context.Context, id int) (*model.Grade, error)
	ListPaginated(ctx context.Context, filter model.GradeFilter) ([]model.Grade, int, error)
	ListPublishedForStudent(ctx context.Context, studentID int, termID *int) ([]model.Grade, error)
	Exists(ctx context.Context, excludeID, studentID int, subject, assessment string, date model.Date) (bool, error)
	Create(ctx context.Context, g *model.Grade) error
	Save(ctx context.Context, g *model.Grade) error
	Delete(ctx context.Context, id int) error
}

type gradeBand struct {
	min    float64
	letter string
	points float64
}

var gradeScale = []gradeBand{
	{97, "A+", 4.0},
	{93, "A", 4.0},
	{90, "A-", 3.7},
	{87, "B+", 3.3},
	{83, "B", 3.0},
	{80, "B-", 2.7},
	{77, "C+", 2.3},
	{73, "C", 2.0},
	{70, "C-", 1.7},
	{67, "D+", 1.3},
	{60, "D", 1.0},
}

// LetterGrade maps a percentage to its letter and grade points.
func LetterGrade(pct float64) (string, float64) {
	for _, b := range gradeScale {
		if pct >= b.min {
			return b.letter, b.points
		}
	}
	return "F", 0
}

// GradeService records and publishes grades.
type GradeService struct {
	grades   gradeStore
	exams    examStore
	students studentReader
	notes    *Notifications
	clock    Clock
}

// NewGradeService creates a new GradeService.
func NewGradeService(grades gradeStore, exams examStore, students studentReader, notes *Notifications, clock Clock) *GradeService {
	return &GradeService{grades: grades, exams: exams, students: students, notes: notes, clock: clock}
}

func (s *GradeService) Get(ctx context.Context, id int) (*model.Grade, error) {
	return s.grades.GetByID(ctx, id)
}

func (s *GradeService) List(ctx context.Context, filter model.GradeFilter) ([]model.Grade, int, error) {
	return s.grades.ListPaginated(ctx, filter)
}

func (s *GradeService) validate(ctx context.Context, g *model.Grade) error {
	if g.ExamID != nil {
		e, err := s.exams.GetByID(ctx, *g.ExamID)
		if err != nil {
			return err
		}
		if g.MaxGrade == 0 {
			g.MaxGrade = e.MaxMarks
		}
		if g.Subject == "" {
			g.Subject = e.Subject
		}
		if g.AssessmentDate.IsZero() {
			g.AssessmentDate = e.ExamDate
		}
		if g.AcademicTermID == nil {
			g.AcademicTermID = e.AcademicTermID
		}
		if g.Grade > e.MaxMarks {
			return invalid("grade", "cannot exceed the exam maximum of %.2f", e.MaxMarks)
		}
	}
	if g.AssessmentDate.IsZero() {
		g.AssessmentDate = s.clock.today()
	}
	if g.Grade < 0 {
		return invalid("grade", "cannot be negative")
	}
	if g.MaxGrade <= 0 {
		return invalid("max_grade", "must be greater than zero")
	}
	if g.Grade > g.MaxGrade {
		return invalid("grade", "cannot exceed the maximum grade %.2f", g.MaxGrade)
	}
	if _, err := s.students.GetByID(ctx, g.StudentID); err != nil {
		return err
	}
	dup, err := s.grades.Exists(ctx, g.ID, g.StudentID, g.Subject, g.Assessment, g.AssessmentDate)
	if err != nil {
		return err
	}
	if dup {
		return invalid("assessment", "a grade already exists for this student, subject, assessment and date")
	}

	pct := g.Grade / g.MaxGrade * 100
	g.Percentage = math.Round(pct*100) / 100
	g.LetterGrade, g.GradePoints = LetterGrade(pct)
	return nil
}

func applyGrade(g *model.Grade, req model.GradeRequest) {
	g.StudentID = req.StudentID
	g.ExamID = req.ExamID
	g.AcademicTermID = req.AcademicTermID
	g.Subject = strings.TrimSpace(req.Subject)
	g.Assessment = strings.TrimSpace(req.Assessment)
	g.AssessmentDate = req.AssessmentDate
	g.Grade = req.Grade
	g.MaxGrade = req.MaxGrade
	g.Remarks = req.Remarks
}

// Create records a grade.
func (s *GradeService) Create(ctx context.Context, req model.GradeRequest, gradedBy *int) (*model.Grade, error) {
	g := &model.Grade{GradedBy: gradedBy}
	applyGrade(g, req)
	if err := s.validate(ctx, g); err != nil {
		return nil, err
	}
	if err := s.grades.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Update modifies an unpublished grade.
func (s *GradeService) Update(ctx context.Context, id int, req model.GradeRequest) (*model.Grade, error) {
	g, err := s.grades.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.IsPublished {
		return nil, ErrNotEditable
	}
	applyGrade(g, req)
	if err := s.validate(ctx, g); err != nil {
		return nil, err
	}
	if err := s.grades.Save(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Delete removes an unpublished grade.
func (s *GradeService) Delete(ctx context.Context, id int) error {
	g, err := s.grades.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if g.IsPublished {
		return ErrNotEditable
	}
	return s.grades.Delete(ctx, id)
}

// Publish makes a grade visible and notifies the guardian.
func (s *GradeService) Publish(ctx context.Context, id int) (*model.Grade, error) {
	g, err := s.grades.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.IsPublished {
		return nil, stateError("grade %d is already published", g.ID)
	}
	g.IsPublished = true
	if err := s.grades.Save(ctx, g); err != nil {
		return nil, err
	}

	if st, err := s.students.GetByID(ctx, g.StudentID); err == nil && st.GuardianEmail != "" {
		s.notes.Send(ctx, notify.Message{
			To:            []string{st.GuardianEmail},
			Template:      notify.TplGradePublished,
			ReferenceType: "Grade",
			ReferenceID:   g.ID,
			Data: map[string]interface{}{
				"StudentName": st.FullName(),
				"Grade":       g.Grade,
				"MaxGrade":    g.MaxGrade,
				"LetterGrade": g.LetterGrade,
				"Subject":     g.Subject,
				"Assessment":  g.Assessment,
			},
		})
	}
	return g, nil
}

// ReportCard averages a student's published grades per subject.
func (s *GradeService) ReportCard(ctx context.Context, studentID int, termID *int) (*model.ReportCard, error) {
	st, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	grades, err := s.grades.ListPublishedForStudent(ctx, studentID, termID)
	if err != nil {
		return nil, err
	}
	return BuildReportCard(st, grades), nil
}

// BuildReportCard groups grades by subject and averages them.
func BuildReportCard(st *model.Student, grades []model.Grade) *model.ReportCard {
	type acc struct {
		n          int
		pct, point float64
	}
	bySubject := map[string]*acc{}
	for _, g := range grades {
		a := bySubject[g.Subject]
		if a == nil {
			a = &acc{}
			bySubject[g.Subject] = a
		}
		a.n++
		a.pct += g.Percentage
		a.point += g.GradePoints
	}

	card := &model.ReportCard{StudentID: st.ID, StudentName: st.FullName(), Lines: []model.ReportCardLine{}}
	var gpa float64
	for subject, a := range bySubject {
		avg := math.Round(a.pct/float64(a.n)*100) / 100
		letter, _ := LetterGrade(avg)
		points := math.Round(a.point/float64(a.n)*100) / 100
		card.Lines = append(card.Lines, model.ReportCardLine{
			Subject:        subject,
			Assessments:    a.n,
			AveragePercent: avg,
			LetterGrade:    letter,
			GradePoints:    points,
		})
		gpa += points
	}
	sort.Slice(card.Lines, func(i, j int) bool { return card.Lines[i].Subject < card.Lines[j].Subject })
	if len(card.Lines) > 0 {
		card.OverallGPA = math.Round(gpa/float64(len(card.Lines))*100) / 100
	}
	return card
}
