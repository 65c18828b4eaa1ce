package service

import (
	"context"
	"testing"
	"time"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransfers struct {
	byID map[int]*model.StudentTransfer
}

func (f *fakeTransfers) GetByID(_ context.Context, id int) (*model.StudentTransfer, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTransfers) ListPaginated(context.Context, model.ListFilter) ([]model.StudentTransfer, int, error) {
	return nil, 0, nil
}

func (f *fakeTransfers) Create(_ context.Context, t *model.StudentTransfer) error {
	t.ID = len(f.byID) + 1
	cp := *t
	f.byID[t.ID] = &cp
	return nil
}

func (f *fakeTransfers) Save(_ context.Context, t *model.StudentTransfer) error {
	cp := *t
	f.byID[t.ID] = &cp
	return nil
}

type transferFixture struct {
	svc      *TransferService
	students *fakeStudentStore
	classes  *fakeClasses
	notifier *recordingNotifier
}

// newTransferFixture places Salma in 5AP-A and fills the single seat of 5AP-B.
func newTransferFixture() *transferFixture {
	clock := fixedClock(2025, time.November, 10)
	students := &fakeStudentStore{fakeStudents: newFakeStudents(
		model.Student{ID: 1, MassarCode: "12345678901", FirstName: "Salma", LastName: "Idrissi",
			SchoolClassID: intPtr(1), GuardianEmail: "parent@example.ma", Status: model.StudentActive},
		model.Student{ID: 2, MassarCode: "12345678902", FirstName: "Adam", LastName: "Tazi",
			SchoolClassID: intPtr(2), Status: model.StudentActive},
		model.Student{ID: 3, MassarCode: "12345678903", FirstName: "Rim", LastName: "Fassi", Status: model.StudentGraduated},
	), next: 3}
	classes := newFakeClasses(students.fakeStudents,
		model.SchoolClass{ID: 1, Name: "5AP-A", Capacity: 30, CurrentStudents: 1, IsActive: true},
		model.SchoolClass{ID: 2, Name: "5AP-B", Capacity: 1, CurrentStudents: 1, IsActive: true},
		model.SchoolClass{ID: 3, Name: "5AP-C", Capacity: 30, IsActive: true},
	)
	notifier := &recordingNotifier{}
	svc := NewTransferService(&fakeTransfers{byID: map[int]*model.StudentTransfer{}}, students, classes,
		NewApprovers(nil, []string{"direction@example.ma"}), &fakeTx{}, newTestNotifications(notifier, clock), clock)
	return &transferFixture{svc: svc, students: students, classes: classes, notifier: notifier}
}

func (f *transferFixture) approved(t *testing.T, req model.StudentTransferRequest) *model.StudentTransfer {
	t.Helper()
	ctx := context.Background()
	tr, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, tr.ID)
	require.NoError(t, err)
	tr, err = f.svc.Approve(ctx, tr.ID, intPtr(1))
	require.NoError(t, err)
	return tr
}

func TestTransfer_CreateRejects(t *testing.T) {
	tests := []struct {
		name  string
		req   model.StudentTransferRequest
		field string
	}{
		{"inactive student", model.StudentTransferRequest{StudentID: 3, TransferType: model.TransferWithdrawal}, "student_id"},
		{"past date", model.StudentTransferRequest{StudentID: 1, TransferType: model.TransferWithdrawal, TransferDate: model.NewDate(2025, time.November, 9)}, "transfer_date"},
		{"internal without class", model.StudentTransferRequest{StudentID: 1, TransferType: model.TransferInternal}, "to_class_id"},
		{"internal to same class", model.StudentTransferRequest{StudentID: 1, TransferType: model.TransferInternal, ToClassID: intPtr(1)}, "to_class_id"},
		{"external without school", model.StudentTransferRequest{StudentID: 1, TransferType: model.TransferExternal, ToSchool: " "}, "to_school"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTransferFixture()
			_, err := f.svc.Create(context.Background(), tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	f := newTransferFixture()
	_, err := f.svc.Create(context.Background(), model.StudentTransferRequest{StudentID: 1, TransferType: model.TransferInternal, ToClassID: intPtr(9)})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTransfer_InternalWorkflow(t *testing.T) {
	f := newTransferFixture()
	ctx := context.Background()

	tr, err := f.svc.Create(ctx, model.StudentTransferRequest{
		StudentID: 1, TransferType: model.TransferInternal, ToClassID: intPtr(3), Reason: "Changement d'horaires",
	})
	require.NoError(t, err)
	assert.Equal(t, "Salma Idrissi", tr.StudentName)
	assert.Equal(t, 1, *tr.FromClassID)
	assert.Equal(t, model.NewDate(2025, time.November, 10), tr.TransferDate)

	_, err = f.svc.Complete(ctx, tr.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	tr, err = f.svc.Submit(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferPendingApproval, tr.Status)
	assert.Equal(t, []string{notify.TplTransferApproval}, f.notifier.templates())
	assert.Equal(t, []string{"direction@example.ma"}, f.notifier.sent[0].To)

	tr, err = f.svc.Approve(ctx, tr.ID, intPtr(1))
	require.NoError(t, err)
	assert.NotNil(t, tr.ApprovedAt)

	tr, err = f.svc.Complete(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferCompleted, tr.Status)
	assert.Equal(t, 3, *f.students.byID[1].SchoolClassID)
	assert.Equal(t, model.StudentActive, f.students.byID[1].Status)
	assert.Equal(t, 0, f.classes.byID[1].CurrentStudents)
	assert.Equal(t, 1, f.classes.byID[3].CurrentStudents)
	assert.Equal(t, notify.TplTransferCompleted, f.notifier.sent[1].Template)

	_, err = f.svc.Cancel(ctx, tr.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTransfer_CompleteRespectsCapacity(t *testing.T) {
	f := newTransferFixture()
	tr := f.approved(t, model.StudentTransferRequest{StudentID: 1, TransferType: model.TransferInternal, ToClassID: intPtr(2)})

	_, err := f.svc.Complete(context.Background(), tr.ID)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "to_class_id", verr.Field)
	assert.Contains(t, verr.Message, "(1/1)")
	assert.Equal(t, 1, *f.students.byID[1].SchoolClassID)
}

func TestTransfer_LeavingStatuses(t *testing.T) {
	tests := []struct {
		kind model.TransferType
		want model.StudentStatus
	}{
		{model.TransferExternal, model.StudentTransferred},
		{model.TransferWithdrawal, model.StudentWithdrawn},
		{model.TransferGraduation, model.StudentGraduated},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			f := newTransferFixture()
			tr := f.approved(t, model.StudentTransferRequest{StudentID: 1, TransferType: tt.kind, ToSchool: "Lycée Descartes"})
			_, err := f.svc.Complete(context.Background(), tr.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.students.byID[1].Status)
			assert.Equal(t, 0, f.classes.byID[1].CurrentStudents)
		})
	}
}

func TestTransfer_RejectAndCancel(t *testing.T) {
	f := newTransferFixture()
	ctx := context.Background()

	tr, err := f.svc.Create(ctx, model.StudentTransferRequest{StudentID: 1, TransferType: model.TransferWithdrawal})
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, tr.ID, "no")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.svc.Submit(ctx, tr.ID)
	require.NoError(t, err)
	tr, err = f.svc.Reject(ctx, tr.ID, " dossier incomplet ")
	require.NoError(t, err)
	assert.Equal(t, model.TransferRejected, tr.Status)
	assert.Equal(t, "dossier incomplet", tr.RejectionReason)

	tr, err = f.svc.Cancel(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferCancelled, tr.Status)
	_, err = f.svc.Cancel(ctx, tr.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}
