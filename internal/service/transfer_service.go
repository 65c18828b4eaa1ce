package service

import (
	"context"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
)

type transferStore interface {
	GetByID(ctx context.Context, id int) (*model.StudentTransfer, error)
	ListPaginated(ctx context.Context, filter model.ListFilter) ([]model.StudentTransfer, int, error)
	Create(ctx context.Context, t *model.StudentTransfer) error
	Save(ctx context.Context, t *model.StudentTransfer) error
}

// TransferService runs the student transfer workflow.
type TransferService struct {
	transfers transferStore
	students  studentStore
	classes   classStore
	approvers *Approvers
	tx        Transactor
	notes     *Notifications
	clock     Clock
}

// NewTransferService creates a new TransferService.
func NewTransferService(transfers transferStore, students studentStore, classes classStore, approvers *Approvers, tx Transactor, notes *Notifications, clock Clock) *TransferService {
	return &TransferService{
		transfers: transfers,
		students:  students,
		classes:   classes,
		approvers: approvers,
		tx:        tx,
		notes:     notes,
		clock:     clock,
	}
}

func (s *TransferService) Get(ctx context.Context, id int) (*model.StudentTransfer, error) {
	return s.transfers.GetByID(ctx, id)
}

func (s *TransferService) List(ctx context.Context, filter model.ListFilter) ([]model.StudentTransfer, int, error) {
	return s.transfers.ListPaginated(ctx, filter)
}

// Create drafts a transfer for an active student.
func (s *TransferService) Create(ctx context.Context, req model.StudentTransferRequest) (*model.StudentTransfer, error) {
	st, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if st.Status != model.StudentActive {
		return nil, invalid("student_id", "student %s is %s, only active students can be transferred", st.MassarCode, st.Status)
	}
	t := &model.StudentTransfer{
		StudentID:    st.ID,
		StudentName:  st.FullName(),
		TransferType: req.TransferType,
		FromClassID:  st.SchoolClassID,
		ToClassID:    req.ToClassID,
		ToSchool:     strings.TrimSpace(req.ToSchool),
		TransferDate: req.TransferDate,
		Reason:       strings.TrimSpace(req.Reason),
		Status:       model.TransferDraft,
		DocStatus:    model.DocDraft,
	}
	if t.TransferDate.IsZero() {
		t.TransferDate = s.clock.today()
	}
	if t.TransferDate.Before(s.clock.today()) {
		return nil, invalid("transfer_date", "cannot be in the past")
	}
	switch t.TransferType {
	case model.TransferInternal:
		if t.ToClassID == nil {
			return nil, invalid("to_class_id", "is required for internal transfers")
		}
		if t.FromClassID != nil && *t.FromClassID == *t.ToClassID {
			return nil, invalid("to_class_id", "must differ from the current class")
		}
		if _, err := s.classes.GetByID(ctx, *t.ToClassID); err != nil {
			return nil, err
		}
	case model.TransferExternal:
		if t.ToSchool == "" {
			return nil, invalid("to_school", "is required for external transfers")
		}
	}
	if err := s.transfers.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Submit sends a draft transfer for approval.
func (s *TransferService) Submit(ctx context.Context, id int) (*model.StudentTransfer, error) {
	t, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.DocStatus != model.DocDraft {
		return nil, stateError("transfer %d is %s", t.ID, t.Status)
	}
	t.DocStatus = model.DocSubmitted
	t.Status = model.TransferPendingApproval
	if err := s.transfers.Save(ctx, t); err != nil {
		return nil, err
	}

	s.notes.Send(ctx, notify.Message{
		To:            s.approvers.For(ctx, model.PermissionTransfersApprove),
		Template:      notify.TplTransferApproval,
		ReferenceType: "Student Transfer",
		ReferenceID:   t.ID,
		Data: map[string]interface{}{
			"StudentName":  t.StudentName,
			"TransferType": string(t.TransferType),
			"Reason":       t.Reason,
		},
	})
	return t, nil
}

// Approve accepts a pending transfer.
func (s *TransferService) Approve(ctx context.Context, id int, approvedBy *int) (*model.StudentTransfer, error) {
	t, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != model.TransferPendingApproval {
		return nil, stateError("transfer must be Pending Approval to approve, it is %s", t.Status)
	}
	t.Status = model.TransferApproved
	t.ApprovedBy = approvedBy
	t.ApprovedAt = timePtr(s.clock())
	if err := s.transfers.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Reject refuses a pending transfer.
func (s *TransferService) Reject(ctx context.Context, id int, reason string) (*model.StudentTransfer, error) {
	t, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != model.TransferPendingApproval {
		return nil, stateError("transfer must be Pending Approval to reject, it is %s", t.Status)
	}
	t.Status = model.TransferRejected
	t.RejectionReason = strings.TrimSpace(reason)
	if err := s.transfers.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Complete applies an approved transfer to the student record.
func (s *TransferService) Complete(ctx context.Context, id int) (*model.StudentTransfer, error) {
	var (
		t  *model.StudentTransfer
		st *model.Student
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if t, err = s.transfers.GetByID(ctx, id); err != nil {
			return err
		}
		if t.Status != model.TransferApproved {
			return stateError("transfer must be Approved to complete, it is %s", t.Status)
		}
		if st, err = s.students.GetByID(ctx, t.StudentID); err != nil {
			return err
		}

		classID, status := st.SchoolClassID, st.Status
		switch t.TransferType {
		case model.TransferInternal:
			c, err := s.classes.GetByID(ctx, *t.ToClassID)
			if err != nil {
				return err
			}
			n, err := s.classes.CountActiveStudents(ctx, c.ID)
			if err != nil {
				return err
			}
			if n >= c.Capacity {
				return invalid("to_class_id", "%s: %v (%d/%d)", c.Name, ErrCapacityExceeded, n, c.Capacity)
			}
			classID = t.ToClassID
		case model.TransferExternal:
			status = model.StudentTransferred
		case model.TransferWithdrawal:
			status = model.StudentWithdrawn
		case model.TransferGraduation:
			status = model.StudentGraduated
		}
		if err := s.students.SetPlacement(ctx, st.ID, classID, status); err != nil {
			return err
		}
		for _, cid := range []*int{st.SchoolClassID, classID} {
			if cid == nil {
				continue
			}
			n, err := s.classes.CountActiveStudents(ctx, *cid)
			if err != nil {
				return err
			}
			if err := s.classes.SetCurrentStudents(ctx, *cid, n); err != nil {
				return err
			}
		}

		t.Status = model.TransferCompleted
		t.CompletedAt = timePtr(s.clock())
		return s.transfers.Save(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	if st.GuardianEmail != "" {
		s.notes.Send(ctx, notify.Message{
			To:            []string{st.GuardianEmail},
			Template:      notify.TplTransferCompleted,
			ReferenceType: "Student Transfer",
			ReferenceID:   t.ID,
			Data: map[string]interface{}{
				"TransferType": string(t.TransferType),
				"StudentName":  t.StudentName,
				"Date":         t.TransferDate,
			},
		})
	}
	return t, nil
}

// Cancel withdraws a transfer that has not been completed.
func (s *TransferService) Cancel(ctx context.Context, id int) (*model.StudentTransfer, error) {
	t, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == model.TransferCompleted || t.Status == model.TransferCancelled {
		return nil, stateError("transfer %d is %s", t.ID, t.Status)
	}
	t.Status = model.TransferCancelled
	t.DocStatus = model.DocCancelled
	if err := s.transfers.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
