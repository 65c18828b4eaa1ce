package service

import (
	"context"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
	"github.com/easygo/easygo-schools/internal/validator"
)

type studentStore interface {
	GetByID(ctx context.Context, id int) (*model.Student, error)
	GetByMassar(ctx context.Context, code string) (*model.Student, error)
	ListPaginated(ctx context.Context, filter model.StudentFilter) ([]model.Student, int, error)
	ListByClass(ctx context.Context, classID int) ([]model.Student, error)
	Create(ctx context.Context, s *model.Student) error
	Update(ctx context.Context, s *model.Student) error
	SetPlacement(ctx context.Context, id int, classID *int, status model.StudentStatus) error
	Delete(ctx context.Context, id int) error
}

type guardianStore interface {
	GetByID(ctx context.Context, id int) (*model.Guardian, error)
	ListPaginated(ctx context.Context, filter model.ListFilter) ([]model.Guardian, int, error)
	Create(ctx context.Context, g *model.Guardian) error
	Update(ctx context.Context, g *model.Guardian) error
	Delete(ctx context.Context, id int) error
}

// StudentService handles student and guardian records.
type StudentService struct {
	studentRepo studentStore
	guardians   guardianStore
	classes     classStore
	tx          Transactor
	notes       *Notifications
	clock       Clock
	schoolName  string
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo studentStore, guardians guardianStore, classes classStore, tx Transactor, notes *Notifications, clock Clock, schoolName string) *StudentService {
	return &StudentService{
		studentRepo: studentRepo,
		guardians:   guardians,
		classes:     classes,
		tx:          tx,
		notes:       notes,
		clock:       clock,
		schoolName:  schoolName,
	}
}

// AgeOn returns the age in whole years at today, counting 365-day years.
func AgeOn(dob, today model.Date) int {
	if dob.IsZero() {
		return 0
	}
	return today.DaysSince(dob) / 365
}

func (s *StudentService) withAge(st *model.Student) *model.Student {
	st.Age = AgeOn(st.DateOfBirth, s.clock.today())
	return st
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	st, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withAge(st), nil
}

// GetByMassar retrieves a student by MASSAR code.
func (s *StudentService) GetByMassar(ctx context.Context, code string) (*model.Student, error) {
	if !validator.IsMassarCode(code) {
		return nil, invalid("massar_code", "must be exactly 11 digits")
	}
	st, err := s.studentRepo.GetByMassar(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.withAge(st), nil
}

// List retrieves students with pagination and optional class, status and
// search filters.
func (s *StudentService) List(ctx context.Context, filter model.StudentFilter) ([]model.Student, int, error) {
	students, total, err := s.studentRepo.ListPaginated(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	for i := range students {
		s.withAge(&students[i])
	}
	return students, total, nil
}

// validate checks the business rules and fills the derived fields. prev is
// the stored record when updating.
func (s *StudentService) validate(ctx context.Context, st *model.Student, prev *model.Student) error {
	if !validator.IsMassarCode(st.MassarCode) {
		return invalid("massar_code", "must be exactly 11 digits")
	}
	if err := requireDate("date_of_birth", st.DateOfBirth); err != nil {
		return err
	}
	today := s.clock.today()
	if !st.DateOfBirth.Before(today) {
		return invalid("date_of_birth", "must be in the past")
	}
	if !st.Status.Valid() {
		return invalid("status", "unknown status %q", st.Status)
	}

	if st.GuardianID != nil && st.GuardianEmail == "" {
		g, err := s.guardians.GetByID(ctx, *st.GuardianID)
		if err != nil {
			return err
		}
		st.GuardianEmail = g.Email
	}
	if st.GuardianEmail != "" && !validator.IsEmail(st.GuardianEmail) {
		return invalid("guardian_email", "%q is not a valid email address", st.GuardianEmail)
	}

	if st.SchoolClassID != nil && st.Status == model.StudentActive {
		moving := prev == nil || prev.Status != model.StudentActive ||
			prev.SchoolClassID == nil || *prev.SchoolClassID != *st.SchoolClassID
		if moving {
			c, err := s.classes.GetByID(ctx, *st.SchoolClassID)
			if err != nil {
				return err
			}
			n, err := s.classes.CountActiveStudents(ctx, c.ID)
			if err != nil {
				return err
			}
			if n >= c.Capacity {
				return invalid("school_class_id", "%s: %v (%d/%d)", c.Name, ErrCapacityExceeded, n, c.Capacity)
			}
		}
	}
	st.Age = AgeOn(st.DateOfBirth, today)
	return nil
}

func applyStudent(st *model.Student, req model.StudentRequest) {
	st.MassarCode = strings.TrimSpace(req.MassarCode)
	st.FirstName = strings.TrimSpace(req.FirstName)
	st.LastName = strings.TrimSpace(req.LastName)
	st.FirstNameAr = strings.TrimSpace(req.FirstNameAr)
	st.LastNameAr = strings.TrimSpace(req.LastNameAr)
	st.Gender = req.Gender
	st.DateOfBirth = req.DateOfBirth
	st.SchoolClassID = req.SchoolClassID
	st.GuardianID = req.GuardianID
	st.GuardianEmail = strings.TrimSpace(req.GuardianEmail)
	if req.Status != "" {
		st.Status = req.Status
	}
	if !req.EnrollmentDate.IsZero() {
		st.EnrollmentDate = req.EnrollmentDate
	}
}

// refreshClasses recounts the strength of every class touched by a change.
func (s *StudentService) refreshClasses(ctx context.Context, ids ...*int) error {
	seen := map[int]bool{}
	for _, id := range ids {
		if id == nil || seen[*id] {
			continue
		}
		seen[*id] = true
		n, err := s.classes.CountActiveStudents(ctx, *id)
		if err != nil {
			return err
		}
		if err := s.classes.SetCurrentStudents(ctx, *id, n); err != nil {
			return err
		}
	}
	return nil
}

// Create enrolls a student and sends the welcome email to the guardian.
func (s *StudentService) Create(ctx context.Context, req model.StudentRequest) (*model.Student, error) {
	st := &model.Student{Status: model.StudentActive, EnrollmentDate: s.clock.today()}
	applyStudent(st, req)
	if err := s.validate(ctx, st, nil); err != nil {
		return nil, err
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.studentRepo.Create(ctx, st); err != nil {
			return err
		}
		return s.refreshClasses(ctx, st.SchoolClassID)
	})
	if err != nil {
		return nil, err
	}

	className := ""
	if st.SchoolClassID != nil {
		if c, err := s.classes.GetByID(ctx, *st.SchoolClassID); err == nil {
			className = c.Name
			st.ClassName = c.Name
		}
	}
	if st.GuardianEmail != "" {
		s.notes.Send(ctx, notify.Message{
			To:            []string{st.GuardianEmail},
			Template:      notify.TplStudentWelcome,
			ReferenceType: "Student",
			ReferenceID:   st.ID,
			Data: map[string]interface{}{
				"School":      s.schoolName,
				"StudentName": st.FullName(),
				"MassarCode":  st.MassarCode,
				"ClassName":   className,
			},
		})
	}
	return st, nil
}

// Update modifies a student's details.
func (s *StudentService) Update(ctx context.Context, id int, req model.StudentRequest) (*model.Student, error) {
	st, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := *st
	applyStudent(st, req)
	if err := s.validate(ctx, st, &prev); err != nil {
		return nil, err
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.studentRepo.Update(ctx, st); err != nil {
			return err
		}
		return s.refreshClasses(ctx, prev.SchoolClassID, st.SchoolClassID)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Delete removes a student and refreshes the class strength.
func (s *StudentService) Delete(ctx context.Context, id int) error {
	st, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.studentRepo.Delete(ctx, id); err != nil {
			return err
		}
		return s.refreshClasses(ctx, st.SchoolClassID)
	})
}

// Guardians lists the guardians linked to a student.
func (s *StudentService) Guardians(ctx context.Context, studentID int) ([]model.Guardian, error) {
	st, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	out := []model.Guardian{}
	if st.GuardianID == nil {
		return out, nil
	}
	g, err := s.guardians.GetByID(ctx, *st.GuardianID)
	if err != nil {
		return nil, err
	}
	return append(out, *g), nil
}

// GetGuardian retrieves a guardian.
func (s *StudentService) GetGuardian(ctx context.Context, id int) (*model.Guardian, error) {
	return s.guardians.GetByID(ctx, id)
}

// ListGuardians lists guardians.
func (s *StudentService) ListGuardians(ctx context.Context, filter model.ListFilter) ([]model.Guardian, int, error) {
	return s.guardians.ListPaginated(ctx, filter)
}

func applyGuardian(g *model.Guardian, req model.GuardianRequest) error {
	g.FullName = strings.TrimSpace(req.FullName)
	g.Relation = req.Relation
	g.Email = strings.TrimSpace(req.Email)
	g.Phone = strings.TrimSpace(req.Phone)
	g.CIN = strings.ToUpper(strings.TrimSpace(req.CIN))
	g.Address = strings.TrimSpace(req.Address)
	if g.Email != "" && !validator.IsEmail(g.Email) {
		return invalid("email", "%q is not a valid email address", g.Email)
	}
	return nil
}

// CreateGuardian stores a guardian.
func (s *StudentService) CreateGuardian(ctx context.Context, req model.GuardianRequest) (*model.Guardian, error) {
	g := &model.Guardian{}
	if err := applyGuardian(g, req); err != nil {
		return nil, err
	}
	if err := s.guardians.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// UpdateGuardian modifies a guardian.
func (s *StudentService) UpdateGuardian(ctx context.Context, id int, req model.GuardianRequest) (*model.Guardian, error) {
	g, err := s.guardians.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyGuardian(g, req); err != nil {
		return nil, err
	}
	if err := s.guardians.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// DeleteGuardian removes a guardian with no linked students.
func (s *StudentService) DeleteGuardian(ctx context.Context, id int) error {
	return s.guardians.Delete(ctx, id)
}
