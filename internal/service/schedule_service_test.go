package service

import (
	"context"
	"testing"
	"time"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSchedules struct {
	byID map[int]*model.CourseSchedule
	next int
}

func (f *fakeSchedules) GetByID(_ context.Context, id int) (*model.CourseSchedule, error) {
	cs, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *cs
	return &cp, nil
}

func (f *fakeSchedules) list(keep func(*model.CourseSchedule) bool) []model.CourseSchedule {
	var out []model.CourseSchedule
	for i := 1; i <= f.next; i++ {
		if cs, ok := f.byID[i]; ok && keep(cs) {
			out = append(out, *cs)
		}
	}
	return out
}

func (f *fakeSchedules) ListByClass(_ context.Context, classID int) ([]model.CourseSchedule, error) {
	return f.list(func(cs *model.CourseSchedule) bool { return cs.SchoolClassID == classID }), nil
}

func (f *fakeSchedules) ListByInstructor(_ context.Context, id int) ([]model.CourseSchedule, error) {
	return f.list(func(cs *model.CourseSchedule) bool { return cs.InstructorID == id }), nil
}

func (f *fakeSchedules) FindConflicts(_ context.Context, q model.ScheduleConflictQuery, start, end string) ([]model.CourseSchedule, error) {
	s, _ := model.ParseClock(start)
	e, _ := model.ParseClock(end)
	return f.list(func(cs *model.CourseSchedule) bool {
		if cs.ID == q.ExcludeID || !cs.IsActive || cs.DayOfWeek != q.DayOfWeek || cs.AcademicYearID != q.AcademicYearID {
			return false
		}
		switch {
		case q.InstructorID != nil && cs.InstructorID != *q.InstructorID:
			return false
		case q.SchoolClassID != nil && cs.SchoolClassID != *q.SchoolClassID:
			return false
		case q.Room != "" && cs.Room != q.Room:
			return false
		}
		cs0, _ := model.ParseClock(cs.StartTime)
		ce, _ := model.ParseClock(cs.EndTime)
		return Overlaps(cs0, ce, s, e)
	}), nil
}

func (f *fakeSchedules) Create(_ context.Context, cs *model.CourseSchedule) error {
	f.next++
	cs.ID = f.next
	cp := *cs
	f.byID[cs.ID] = &cp
	return nil
}

func (f *fakeSchedules) Update(_ context.Context, cs *model.CourseSchedule) error {
	cp := *cs
	f.byID[cs.ID] = &cp
	return nil
}

func (f *fakeSchedules) Delete(_ context.Context, id int) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeSchedules) SumClassMinutes(_ context.Context, classID int) (int, error) {
	total := 0
	for _, cs := range f.byID {
		if cs.SchoolClassID == classID && cs.IsActive {
			total += cs.DurationMinutes
		}
	}
	return total, nil
}

type fakeWeeklyHours map[int]float64

func (f fakeWeeklyHours) SetWeeklyHours(_ context.Context, classID int, hours float64) error {
	f[classID] = hours
	return nil
}

type fakeYears map[int]model.AcademicYear

func (f fakeYears) GetYear(_ context.Context, id int) (*model.AcademicYear, error) {
	y, ok := f[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &y, nil
}

func newScheduleFixture() (*ScheduleService, fakeWeeklyHours) {
	hours := fakeWeeklyHours{}
	years := fakeYears{1: {
		ID: 1, Name: "2025-2026", IsActive: true,
		StartDate: model.NewDate(2025, time.September, 1),
		EndDate:   model.NewDate(2026, time.June, 30),
	}}
	return NewScheduleService(&fakeSchedules{byID: map[int]*model.CourseSchedule{}}, hours, years, &fakeTx{}), hours
}

func slot(class, instructor int, room, day, start, end string) model.CourseScheduleRequest {
	return model.CourseScheduleRequest{
		SchoolClassID:  class,
		Subject:        "Mathématiques",
		InstructorID:   instructor,
		Room:           room,
		DayOfWeek:      day,
		StartTime:      start,
		EndTime:        end,
		AcademicYearID: 1,
	}
}

func TestScheduleCreate(t *testing.T) {
	svc, hours := newScheduleFixture()

	cs, err := svc.Create(context.Background(), slot(1, 10, "B12", "Monday", "8:30", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, "08:30", cs.StartTime)
	assert.Equal(t, 90, cs.DurationMinutes)
	assert.Equal(t, model.NewDate(2025, time.September, 1), cs.EffectiveFrom)
	assert.Equal(t, model.NewDate(2026, time.June, 30), cs.EffectiveTo)
	assert.Equal(t, 1.5, hours[1])
}

func TestScheduleConflicts(t *testing.T) {
	tests := []struct {
		name string
		next model.CourseScheduleRequest
		want string
	}{
		{"same instructor overlapping", slot(2, 10, "", "Monday", "09:00", "11:00"), "instructor"},
		{"same class overlapping", slot(1, 11, "", "Monday", "09:30", "10:30"), "class"},
		{"same room overlapping", slot(2, 11, "B12", "Monday", "08:00", "09:00"), "room"},
		{"instructor slot enclosing", slot(2, 10, "", "Monday", "08:00", "11:00"), "instructor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newScheduleFixture()
			_, err := svc.Create(context.Background(), slot(1, 10, "B12", "Monday", "08:30", "10:00"))
			require.NoError(t, err)

			_, err = svc.Create(context.Background(), tt.next)
			require.ErrorIs(t, err, ErrScheduleConflict)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScheduleNoConflict(t *testing.T) {
	svc, hours := newScheduleFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, slot(1, 10, "B12", "Monday", "08:30", "10:00"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, slot(1, 10, "B12", "Monday", "10:00", "11:00"))
	require.NoError(t, err, "back-to-back slots do not overlap")
	_, err = svc.Create(ctx, slot(1, 10, "B12", "Tuesday", "08:30", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, 4.0, hours[1])
}

func TestScheduleValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   model.CourseScheduleRequest
		field string
	}{
		{"end before start", slot(1, 10, "", "Monday", "10:00", "09:00"), "end_time"},
		{"too short", slot(1, 10, "", "Monday", "10:00", "10:15"), "end_time"},
		{"too long", slot(1, 10, "", "Monday", "08:00", "12:30"), "end_time"},
		{"bad clock", slot(1, 10, "", "Monday", "25:00", "26:00"), "start_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newScheduleFixture()
			_, err := svc.Create(context.Background(), tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestScheduleUpdateExcludesItself(t *testing.T) {
	svc, _ := newScheduleFixture()
	ctx := context.Background()

	cs, err := svc.Create(ctx, slot(1, 10, "B12", "Monday", "08:30", "10:00"))
	require.NoError(t, err)
	cs, err = svc.Update(ctx, cs.ID, slot(1, 10, "B12", "Monday", "09:00", "10:30"))
	require.NoError(t, err)
	assert.Equal(t, "09:00", cs.StartTime)
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps(480, 540, 500, 600))
	assert.True(t, Overlaps(500, 600, 480, 540))
	assert.True(t, Overlaps(500, 520, 480, 540))
	assert.True(t, Overlaps(480, 600, 500, 540))
	assert.False(t, Overlaps(480, 540, 540, 600))
	assert.False(t, Overlaps(540, 600, 480, 540))
}

func TestBuildTimetable(t *testing.T) {
	tt := BuildTimetable([]model.CourseSchedule{
		{ID: 1, DayOfWeek: "Tuesday", StartTime: "10:00", IsActive: true},
		{ID: 2, DayOfWeek: "Monday", StartTime: "08:30", IsActive: true},
		{ID: 3, DayOfWeek: "Tuesday", StartTime: "08:00", IsActive: true},
		{ID: 4, DayOfWeek: "Monday", StartTime: "07:00", IsActive: false},
	})
	require.Len(t, tt.Days, len(model.Weekdays))
	assert.Equal(t, "Monday", tt.Days[0].Day)
	require.Len(t, tt.Days[0].Slots, 1)
	require.Len(t, tt.Days[1].Slots, 2)
	assert.Equal(t, 3, tt.Days[1].Slots[0].ID)
}
