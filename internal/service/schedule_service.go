package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
)

type scheduleStore interface {
	GetByID(ctx context.Context, id int) (*model.CourseSchedule, error)
	ListByClass(ctx context.Context, classID int) ([]model.CourseSchedule, error)
	ListByInstructor(ctx context.Context, instructorID int) ([]model.CourseSchedule, error)
	FindConflicts(ctx context.Context, q model.ScheduleConflictQuery, start, end string) ([]model.CourseSchedule, error)
	Create(ctx context.Context, s *model.CourseSchedule) error
	Update(ctx context.Context, s *model.CourseSchedule) error
	Delete(ctx context.Context, id int) error
	SumClassMinutes(ctx context.Context, classID int) (int, error)
}

type weeklyHoursWriter interface {
	SetWeeklyHours(ctx context.Context, classID int, hours float64) error
}

const (
	minSlotMinutes = 30
	maxSlotMinutes = 4 * 60
)

// ScheduleService maintains class timetables.
type ScheduleService struct {
	schedules scheduleStore
	classes   weeklyHoursWriter
	years     yearReader
	tx        Transactor
}

// NewScheduleService creates a new ScheduleService.
func NewScheduleService(schedules scheduleStore, classes weeklyHoursWriter, years yearReader, tx Transactor) *ScheduleService {
	return &ScheduleService{schedules: schedules, classes: classes, years: years, tx: tx}
}

// Overlaps reports whether slot [s, e) collides with [start, end), all in
// minutes after midnight.
func Overlaps(s, e, start, end int) bool {
	return (s <= start && e > start) || (s < end && e >= end) || (s >= start && e <= end)
}

func (s *ScheduleService) Get(ctx context.Context, id int) (*model.CourseSchedule, error) {
	return s.schedules.GetByID(ctx, id)
}

func (s *ScheduleService) validate(ctx context.Context, cs *model.CourseSchedule) error {
	start, err := model.ParseClock(cs.StartTime)
	if err != nil {
		return invalid("start_time", "%v", err)
	}
	end, err := model.ParseClock(cs.EndTime)
	if err != nil {
		return invalid("end_time", "%v", err)
	}
	if end <= start {
		return invalid("end_time", "must be after the start time")
	}
	cs.StartTime, cs.EndTime = model.FormatClock(start), model.FormatClock(end)
	cs.DurationMinutes = end - start
	if cs.DurationMinutes < minSlotMinutes || cs.DurationMinutes > maxSlotMinutes {
		return invalid("end_time", "duration must be between %d minutes and %d hours", minSlotMinutes, maxSlotMinutes/60)
	}

	if cs.EffectiveFrom.IsZero() || cs.EffectiveTo.IsZero() {
		y, err := s.years.GetYear(ctx, cs.AcademicYearID)
		if err != nil {
			return err
		}
		if cs.EffectiveFrom.IsZero() {
			cs.EffectiveFrom = y.StartDate
		}
		if cs.EffectiveTo.IsZero() {
			cs.EffectiveTo = y.EndDate
		}
	}
	if cs.EffectiveTo.Before(cs.EffectiveFrom) {
		return invalid("effective_to", "cannot be before effective_from")
	}
	if !cs.IsActive {
		return nil
	}

	base := model.ScheduleConflictQuery{
		ExcludeID:      cs.ID,
		DayOfWeek:      cs.DayOfWeek,
		AcademicYearID: cs.AcademicYearID,
	}
	checks := []conflictCheck{
		{"instructor", withInstructor(base, cs.InstructorID)},
		{"class", withClass(base, cs.SchoolClassID)},
	}
	if cs.Room != "" {
		q := base
		q.Room = cs.Room
		checks = append(checks, conflictCheck{"room", q})
	}
	for _, c := range checks {
		hits, err := s.schedules.FindConflicts(ctx, c.q, cs.StartTime, cs.EndTime)
		if err != nil {
			return err
		}
		if len(hits) > 0 {
			h := hits[0]
			return fmt.Errorf("%w: %s is already booked on %s %s-%s (%s, schedule %d)",
				ErrScheduleConflict, c.what, h.DayOfWeek, h.StartTime, h.EndTime, h.Subject, h.ID)
		}
	}
	return nil
}

type conflictCheck struct {
	what string
	q    model.ScheduleConflictQuery
}

func withInstructor(q model.ScheduleConflictQuery, id int) model.ScheduleConflictQuery {
	q.InstructorID = intPtr(id)
	return q
}

func withClass(q model.ScheduleConflictQuery, id int) model.ScheduleConflictQuery {
	q.SchoolClassID = intPtr(id)
	return q
}

func applySchedule(cs *model.CourseSchedule, req model.CourseScheduleRequest) {
	cs.SchoolClassID = req.SchoolClassID
	cs.Subject = strings.TrimSpace(req.Subject)
	cs.InstructorID = req.InstructorID
	cs.Room = strings.TrimSpace(req.Room)
	cs.DayOfWeek = req.DayOfWeek
	cs.StartTime = req.StartTime
	cs.EndTime = req.EndTime
	cs.AcademicYearID = req.AcademicYearID
	cs.EffectiveFrom = req.EffectiveFrom
	cs.EffectiveTo = req.EffectiveTo
	if req.IsActive != nil {
		cs.IsActive = *req.IsActive
	}
}

func (s *ScheduleService) refreshHours(ctx context.Context, classIDs ...int) error {
	seen := map[int]bool{}
	for _, id := range classIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		minutes, err := s.schedules.SumClassMinutes(ctx, id)
		if err != nil {
			return err
		}
		hours := math.Round(float64(minutes)/60*100) / 100
		if err := s.classes.SetWeeklyHours(ctx, id, hours); err != nil {
			return err
		}
	}
	return nil
}

// Create adds a slot after checking instructor, class and room conflicts.
func (s *ScheduleService) Create(ctx context.Context, req model.CourseScheduleRequest) (*model.CourseSchedule, error) {
	cs := &model.CourseSchedule{IsActive: true}
	applySchedule(cs, req)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.validate(ctx, cs); err != nil {
			return err
		}
		if err := s.schedules.Create(ctx, cs); err != nil {
			return err
		}
		return s.refreshHours(ctx, cs.SchoolClassID)
	})
	if err != nil {
		return nil, err
	}
	return cs, nil
}

// Update modifies a slot.
func (s *ScheduleService) Update(ctx context.Context, id int, req model.CourseScheduleRequest) (*model.CourseSchedule, error) {
	cs, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	prevClass := cs.SchoolClassID
	applySchedule(cs, req)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.validate(ctx, cs); err != nil {
			return err
		}
		if err := s.schedules.Update(ctx, cs); err != nil {
			return err
		}
		return s.refreshHours(ctx, prevClass, cs.SchoolClassID)
	})
	if err != nil {
		return nil, err
	}
	return cs, nil
}

// Delete removes a slot and refreshes the class weekly hours.
func (s *ScheduleService) Delete(ctx context.Context, id int) error {
	cs, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.schedules.Delete(ctx, id); err != nil {
			return err
		}
		return s.refreshHours(ctx, cs.SchoolClassID)
	})
}

// ClassTimetable groups a class's active slots by weekday, Monday first.
func (s *ScheduleService) ClassTimetable(ctx context.Context, classID int) (*model.Timetable, error) {
	slots, err := s.schedules.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	return BuildTimetable(slots), nil
}

// InstructorTimetable groups an instructor's active slots by weekday.
func (s *ScheduleService) InstructorTimetable(ctx context.Context, instructorID int) (*model.Timetable, error) {
	slots, err := s.schedules.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, err
	}
	return BuildTimetable(slots), nil
}

// BuildTimetable groups active slots by weekday in Monday to Sunday order,
// each day sorted by start time.
func BuildTimetable(slots []model.CourseSchedule) *model.Timetable {
	byDay := map[string][]model.CourseSchedule{}
	for _, cs := range slots {
		if cs.IsActive {
			byDay[cs.DayOfWeek] = append(byDay[cs.DayOfWeek], cs)
		}
	}
	tt := &model.Timetable{Days: make([]model.TimetableDay, 0, len(model.Weekdays))}
	for _, day := range model.Weekdays {
		daySlots := byDay[day]
		if daySlots == nil {
			daySlots = []model.CourseSchedule{}
		}
		sort.SliceStable(daySlots, func(i, j int) bool { return daySlots[i].StartTime < daySlots[j].StartTime })
		tt.Days = append(tt.Days, model.TimetableDay{Day: day, Slots: daySlots})
	}
	return tt
}
