package service

import (
	"context"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
)

type academicStore interface {
	GetYear(ctx context.Context, id int) (*model.AcademicYear, error)
	GetDefaultYear(ctx context.Context) (*model.AcademicYear, error)
	ListYears(ctx context.Context) ([]model.AcademicYear, error)
	CreateYear(ctx context.Context, y *model.AcademicYear) error
	UpdateYear(ctx context.Context, y *model.AcademicYear) error
	ClearDefault(ctx context.Context, keepID int) error
	DeleteYear(ctx context.Context, id int) error
	GetTerm(ctx context.Context, id int) (*model.AcademicTerm, error)
	ListTerms(ctx context.Context, yearID int) ([]model.AcademicTerm, error)
	CreateTerm(ctx context.Context, t *model.AcademicTerm) error
	UpdateTerm(ctx context.Context, t *model.AcademicTerm) error
	DeleteTerm(ctx context.Context, id int) error
}

// AcademicService manages academic years and terms.
type AcademicService struct {
	repo academicStore
	tx   Transactor
}

// NewAcademicService creates a new AcademicService.
func NewAcademicService(repo academicStore, tx Transactor) *AcademicService {
	return &AcademicService{repo: repo, tx: tx}
}

func (s *AcademicService) GetYear(ctx context.Context, id int) (*model.AcademicYear, error) {
	return s.repo.GetYear(ctx, id)
}

func (s *AcademicService) DefaultYear(ctx context.Context) (*model.AcademicYear, error) {
	return s.repo.GetDefaultYear(ctx)
}

func (s *AcademicService) ListYears(ctx context.Context) ([]model.AcademicYear, error) {
	return s.repo.ListYears(ctx)
}

func validateYear(y *model.AcademicYear) error {
	if err := requireDate("start_date", y.StartDate); err != nil {
		return err
	}
	if err := requireDate("end_date", y.EndDate); err != nil {
		return err
	}
	if !y.EndDate.After(y.StartDate) {
		return invalid("end_date", "must be after the start date")
	}
	return nil
}

func applyYear(y *model.AcademicYear, req model.AcademicYearRequest) {
	y.Name = strings.TrimSpace(req.Name)
	y.StartDate = req.StartDate
	y.EndDate = req.EndDate
	y.IsDefault = req.IsDefault
	if req.IsActive != nil {
		y.IsActive = *req.IsActive
	}
}

// CreateYear stores a year. Making it the default clears the flag on every
// other year.
func (s *AcademicService) CreateYear(ctx context.Context, req model.AcademicYearRequest) (*model.AcademicYear, error) {
	y := &model.AcademicYear{IsActive: true}
	applyYear(y, req)
	if err := validateYear(y); err != nil {
		return nil, err
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateYear(ctx, y); err != nil {
			return err
		}
		if y.IsDefault {
			return s.repo.ClearDefault(ctx, y.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return y, nil
}

func (s *AcademicService) UpdateYear(ctx context.Context, id int, req model.AcademicYearRequest) (*model.AcademicYear, error) {
	y, err := s.repo.GetYear(ctx, id)
	if err != nil {
		return nil, err
	}
	applyYear(y, req)
	if err := validateYear(y); err != nil {
		return nil, err
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateYear(ctx, y); err != nil {
			return err
		}
		if y.IsDefault {
			return s.repo.ClearDefault(ctx, y.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return y, nil
}

func (s *AcademicService) DeleteYear(ctx context.Context, id int) error {
	return s.repo.DeleteYear(ctx, id)
}

func (s *AcademicService) GetTerm(ctx context.Context, id int) (*model.AcademicTerm, error) {
	return s.repo.GetTerm(ctx, id)
}

func (s *AcademicService) ListTerms(ctx context.Context, yearID int) ([]model.AcademicTerm, error) {
	return s.repo.ListTerms(ctx, yearID)
}

func (s *AcademicService) validateTerm(ctx context.Context, t *model.AcademicTerm) error {
	if err := requireDate("start_date", t.StartDate); err != nil {
		return err
	}
	if err := requireDate("end_date", t.EndDate); err != nil {
		return err
	}
	if !t.EndDate.After(t.StartDate) {
		return invalid("end_date", "must be after the start date")
	}
	y, err := s.repo.GetYear(ctx, t.AcademicYearID)
	if err != nil {
		return err
	}
	if t.StartDate.Before(y.StartDate) || t.EndDate.After(y.EndDate) {
		return invalid("start_date", "term must fall within academic year %s (%s to %s)", y.Name, y.StartDate, y.EndDate)
	}
	if t.GradeSubmissionStart != nil && t.GradeSubmissionEnd != nil &&
		t.GradeSubmissionEnd.Before(*t.GradeSubmissionStart) {
		return invalid("grade_submission_end", "must not be before the submission start")
	}
	return nil
}

func applyTerm(t *model.AcademicTerm, req model.AcademicTermRequest) {
	t.AcademicYearID = req.AcademicYearID
	t.Name = strings.TrimSpace(req.Name)
	t.StartDate = req.StartDate
	t.EndDate = req.EndDate
	t.GradeSubmissionStart = req.GradeSubmissionStart
	t.GradeSubmissionEnd = req.GradeSubmissionEnd
}

func (s *AcademicService) CreateTerm(ctx context.Context, req model.AcademicTermRequest) (*model.AcademicTerm, error) {
	t := &model.AcademicTerm{}
	applyTerm(t, req)
	if err := s.validateTerm(ctx, t); err != nil {
		return nil, err
	}
	if err := s.repo.CreateTerm(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *AcademicService) UpdateTerm(ctx context.Context, id int, req model.AcademicTermRequest) (*model.AcademicTerm, error) {
	t, err := s.repo.GetTerm(ctx, id)
	if err != nil {
		return nil, err
	}
	applyTerm(t, req)
	if err := s.validateTerm(ctx, t); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTerm(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *AcademicService) DeleteTerm(ctx context.Context, id int) error {
	return s.repo.DeleteTerm(ctx, id)
}
