package service

import (
	"context"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
)

type classStore interface {
	GetByID(ctx context.Context, id int) (*model.SchoolClass, error)
	List(ctx context.Context, yearID *int) ([]model.SchoolClass, error)
	Create(ctx context.Context, c *model.SchoolClass) error
	Update(ctx context.Context, c *model.SchoolClass) error
	Delete(ctx context.Context, id int) error
	CountActiveStudents(ctx context.Context, classID int) (int, error)
	SetCurrentStudents(ctx context.Context, classID, n int) error
}

type yearReader interface {
	GetYear(ctx context.Context, id int) (*model.AcademicYear, error)
}

// ClassService handles class business logic.
type ClassService struct {
	classRepo classStore
	years     yearReader
}

// NewClassService creates a new ClassService.
func NewClassService(classRepo classStore, years yearReader) *ClassService {
	return &ClassService{classRepo: classRepo, years: years}
}

// GetByID retrieves a class by its ID.
func (s *ClassService) GetByID(ctx context.Context, id int) (*model.SchoolClass, error) {
	return s.classRepo.GetByID(ctx, id)
}

// List retrieves the classes of a year, or all of them.
func (s *ClassService) List(ctx context.Context, yearID *int) ([]model.SchoolClass, error) {
	return s.classRepo.List(ctx, yearID)
}

func (s *ClassService) validate(ctx context.Context, c *model.SchoolClass) error {
	y, err := s.years.GetYear(ctx, c.AcademicYearID)
	if err != nil {
		return err
	}
	if !y.IsActive {
		return invalid("academic_year_id", "academic year %s is not active", y.Name)
	}
	if c.CurrentStudents > c.Capacity {
		return invalid("capacity", "capacity %d is below the %d students already enrolled", c.Capacity, c.CurrentStudents)
	}
	return nil
}

func applyClass(c *model.SchoolClass, req model.SchoolClassRequest) {
	c.Name = strings.TrimSpace(req.Name)
	c.Level = strings.TrimSpace(req.Level)
	c.AcademicYearID = req.AcademicYearID
	c.Capacity = req.Capacity
	c.ClassTeacherID = req.ClassTeacherID
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
}

// Create creates a new class.
func (s *ClassService) Create(ctx context.Context, req model.SchoolClassRequest) (*model.SchoolClass, error) {
	c := &model.SchoolClass{IsActive: true}
	applyClass(c, req)
	if err := s.validate(ctx, c); err != nil {
		return nil, err
	}
	if err := s.classRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update modifies an existing class after recounting its students.
func (s *ClassService) Update(ctx context.Context, id int, req model.SchoolClassRequest) (*model.SchoolClass, error) {
	c, err := s.classRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyClass(c, req)
	if c.CurrentStudents, err = s.classRepo.CountActiveStudents(ctx, c.ID); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, c); err != nil {
		return nil, err
	}
	if err := s.classRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a class. Foreign keys refuse it while students are assigned.
func (s *ClassService) Delete(ctx context.Context, id int) error {
	return s.classRepo.Delete(ctx, id)
}

// RefreshStrength recomputes current_students from active students.
func (s *ClassService) RefreshStrength(ctx context.Context, classID int) error {
	n, err := s.classRepo.CountActiveStudents(ctx, classID)
	if err != nil {
		return err
	}
	return s.classRepo.SetCurrentStudents(ctx, classID, n)
}
