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

type fakeStudentStore struct {
	*fakeStudents
	next int
}

func (f *fakeStudentStore) GetByMassar(_ context.Context, code string) (*model.Student, error) {
	for _, st := range f.byID {
		if st.MassarCode == code {
			cp := *st
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStudentStore) ListPaginated(context.Context, model.StudentFilter) ([]model.Student, int, error) {
	var out []model.Student
	for _, st := range f.byID {
		out = append(out, *st)
	}
	return out, len(out), nil
}

func (f *fakeStudentStore) Create(_ context.Context, st *model.Student) error {
	for _, o := range f.byID {
		if o.MassarCode == st.MassarCode {
			return repository.ErrDuplicateMassar
		}
	}
	f.next++
	st.ID = f.next
	cp := *st
	f.byID[st.ID] = &cp
	return nil
}

func (f *fakeStudentStore) Update(_ context.Context, st *model.Student) error {
	cp := *st
	f.byID[st.ID] = &cp
	return nil
}

func (f *fakeStudentStore) SetPlacement(_ context.Context, id int, classID *int, status model.StudentStatus) error {
	st, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	st.SchoolClassID = classID
	st.Status = status
	return nil
}

func (f *fakeStudentStore) Delete(_ context.Context, id int) error {
	delete(f.byID, id)
	return nil
}

type fakeGuardians struct {
	byID map[int]*model.Guardian
}

func (f *fakeGuardians) GetByID(_ context.Context, id int) (*model.Guardian, error) {
	g, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGuardians) ListPaginated(context.Context, model.ListFilter) ([]model.Guardian, int, error) {
	return nil, 0, nil
}

func (f *fakeGuardians) Create(_ context.Context, g *model.Guardian) error {
	g.ID = len(f.byID) + 1
	cp := *g
	f.byID[g.ID] = &cp
	return nil
}

func (f *fakeGuardians) Update(_ context.Context, g *model.Guardian) error {
	cp := *g
	f.byID[g.ID] = &cp
	return nil
}

func (f *fakeGuardians) Delete(_ context.Context, id int) error {
	delete(f.byID, id)
	return nil
}

type fakeClasses struct {
	byID     map[int]*model.SchoolClass
	students *fakeStudents
}

func newFakeClasses(students *fakeStudents, classes ...model.SchoolClass) *fakeClasses {
	f := &fakeClasses{byID: map[int]*model.SchoolClass{}, students: students}
	for i := range classes {
		c := classes[i]
		f.byID[c.ID] = &c
	}
	return f
}

func (f *fakeClasses) GetByID(_ context.Context, id int) (*model.SchoolClass, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeClasses) List(context.Context, *int) ([]model.SchoolClass, error) {
	var out []model.SchoolClass
	for _, c := range f.byID {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeClasses) Create(_ context.Context, c *model.SchoolClass) error {
	c.ID = len(f.byID) + 1
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeClasses) Update(_ context.Context, c *model.SchoolClass) error {
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeClasses) Delete(_ context.Context, id int) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeClasses) CountActiveStudents(_ context.Context, classID int) (int, error) {
	if f.students == nil {
		return 0, nil
	}
	n := 0
	for _, st := range f.students.byID {
		if st.Status == model.StudentActive && st.SchoolClassID != nil && *st.SchoolClassID == classID {
			n++
		}
	}
	return n, nil
}

func (f *fakeClasses) SetCurrentStudents(_ context.Context, classID, n int) error {
	if c, ok := f.byID[classID]; ok {
		c.CurrentStudents = n
	}
	return nil
}

type studentFixture struct {
	svc      *StudentService
	store    *fakeStudentStore
	classes  *fakeClasses
	notifier *recordingNotifier
}

func newStudentFixture() *studentFixture {
	clock := fixedClock(2025, time.September, 15)
	store := &fakeStudentStore{fakeStudents: newFakeStudents()}
	classes := newFakeClasses(store.fakeStudents,
		model.SchoolClass{ID: 1, Name: "6AP-A", Capacity: 2, IsActive: true},
		model.SchoolClass{ID: 2, Name: "6AP-B", Capacity: 30, IsActive: true},
	)
	guardians := &fakeGuardians{byID: map[int]*model.Guardian{
		1: {ID: 1, FullName: "Karim Benali", Relation: "Father", Email: "karim@example.ma"},
	}}
	notifier := &recordingNotifier{}
	svc := NewStudentService(store, guardians, classes, &fakeTx{}, newTestNotifications(notifier, clock), clock, "Groupe Scolaire Al Amal")
	return &studentFixture{svc: svc, store: store, classes: classes, notifier: notifier}
}

func studentRequest(massar string) model.StudentRequest {
	return model.StudentRequest{
		MassarCode:    massar,
		FirstName:     "Yassine",
		LastName:      "Benali",
		Gender:        "M",
		DateOfBirth:   model.NewDate(2014, time.March, 2),
		SchoolClassID: intPtr(1),
		GuardianID:    intPtr(1),
	}
}

func TestStudentCreate(t *testing.T) {
	f := newStudentFixture()

	st, err := f.svc.Create(context.Background(), studentRequest("12345678901"))
	require.NoError(t, err)
	assert.Equal(t, model.StudentActive, st.Status)
	assert.Equal(t, "karim@example.ma", st.GuardianEmail)
	assert.Equal(t, 11, st.Age)
	assert.Equal(t, "6AP-A", st.ClassName)
	assert.Equal(t, 1, f.classes.byID[1].CurrentStudents)
	assert.Equal(t, []string{notify.TplStudentWelcome}, f.notifier.templates())
}

func TestStudentMassarCode(t *testing.T) {
	for _, code := range []string{"", "1234567890", "123456789012", "G1234567890", "1234-567890"} {
		t.Run(code, func(t *testing.T) {
			f := newStudentFixture()
			_, err := f.svc.Create(context.Background(), studentRequest(code))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "massar_code", verr.Field)
			assert.Empty(t, f.store.byID)
		})
	}
}

func TestStudentDateOfBirth(t *testing.T) {
	f := newStudentFixture()

	req := studentRequest("12345678901")
	req.DateOfBirth = model.Date{}
	_, err := f.svc.Create(context.Background(), req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date_of_birth", verr.Field)

	req.DateOfBirth = model.NewDate(2025, time.September, 15)
	_, err = f.svc.Create(context.Background(), req)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date_of_birth", verr.Field)
}

func TestStudentClassCapacity(t *testing.T) {
	f := newStudentFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, studentRequest("12345678901"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, studentRequest("12345678902"))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, studentRequest("12345678903"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "school_class_id", verr.Field)
	assert.Contains(t, verr.Message, "2/2")

	req := studentRequest("12345678903")
	req.SchoolClassID = intPtr(2)
	st, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	// Re-saving a student already in the full class is not a move.
	first, err := f.svc.GetByMassar(ctx, "12345678901")
	require.NoError(t, err)
	upd := studentRequest("12345678901")
	upd.FirstName = "Yasine"
	_, err = f.svc.Update(ctx, first.ID, upd)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, st.ID, studentRequest("12345678903"))
	require.ErrorAs(t, err, &verr)
}

func TestStudentDuplicateMassar(t *testing.T) {
	f := newStudentFixture()
	ctx := context.Background()
	req := studentRequest("12345678901")
	req.SchoolClassID = intPtr(2)

	_, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, repository.ErrDuplicateMassar)
}

func TestStudentGuardianEmail(t *testing.T) {
	f := newStudentFixture()
	req := studentRequest("12345678901")
	req.GuardianID = nil
	req.GuardianEmail = "not-an-email"

	_, err := f.svc.Create(context.Background(), req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "guardian_email", verr.Field)
}

func TestAgeOn(t *testing.T) {
	today := model.NewDate(2025, time.September, 15)
	assert.Equal(t, 0, AgeOn(model.Date{}, today))
	assert.Equal(t, 10, AgeOn(model.NewDate(2015, time.September, 1), today))
	assert.Equal(t, 9, AgeOn(model.NewDate(2015, time.December, 1), today))
}
