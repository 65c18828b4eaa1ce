package repository

import (
	"context"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScheduleRepository handles course schedule data access.
type ScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewScheduleRepository creates a new ScheduleRepository.
func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func (r *ScheduleRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const scheduleSelect = `SELECT cs.id, cs.school_class_id, c.name, cs.subject, cs.instructor_id,
	e.first_name || ' ' || e.last_name, cs.room, cs.day_of_week,
	to_char(cs.start_time, 'HH24:MI'), to_char(cs.end_time, 'HH24:MI'), cs.duration_minutes,
	cs.academic_year_id, cs.effective_from, cs.effective_to, cs.is_active, cs.created_at, cs.updated_at
	FROM course_schedules cs
	JOIN school_classes c ON c.id = cs.school_class_id
	JOIN employees e ON e.id = cs.instructor_id`

func scanSchedule(row scanner, s *model.CourseSchedule) error {
	return row.Scan(&s.ID, &s.SchoolClassID, &s.ClassName, &s.Subject, &s.InstructorID,
		&s.InstructorName, &s.Room, &s.DayOfWeek,
		&s.StartTime, &s.EndTime, &s.DurationMinutes,
		&s.AcademicYearID, &s.EffectiveFrom, &s.EffectiveTo, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID retrieves a schedule slot.
func (r *ScheduleRepository) GetByID(ctx context.Context, id int) (*model.CourseSchedule, error) {
	s := &model.CourseSchedule{}
	if err := scanSchedule(r.db(ctx).QueryRow(ctx, scheduleSelect+` WHERE cs.id = $1`, id), s); err != nil {
		return nil, mapError(err, nil)
	}
	return s, nil
}

// ListByClass returns the active slots of a class ordered by start time.
func (r *ScheduleRepository) ListByClass(ctx context.Context, classID int) ([]model.CourseSchedule, error) {
	return r.query(ctx, scheduleSelect+` WHERE cs.school_class_id = $1 AND cs.is_active ORDER BY cs.start_time`, classID)
}

// ListByInstructor returns the active slots of an instructor ordered by start time.
func (r *ScheduleRepository) ListByInstructor(ctx context.Context, instructorID int) ([]model.CourseSchedule, error) {
	return r.query(ctx, scheduleSelect+` WHERE cs.instructor_id = $1 AND cs.is_active ORDER BY cs.start_time`, instructorID)
}

// FindConflicts returns active slots on the same day and academic year,
// other than ExcludeID, that belong to the instructor, the class or the room
// of the query and overlap [start, end).
func (r *ScheduleRepository) FindConflicts(ctx context.Context, q model.ScheduleConflictQuery, start, end string) ([]model.CourseSchedule, error) {
	var f filterBuilder
	f.addRaw("cs.is_active")
	f.add("cs.id <> ?", q.ExcludeID)
	f.add("cs.day_of_week = ?", q.DayOfWeek)
	f.add("cs.academic_year_id = ?", q.AcademicYearID)
	if q.InstructorID != nil {
		f.add("cs.instructor_id = ?", *q.InstructorID)
	}
	if q.SchoolClassID != nil {
		f.add("cs.school_class_id = ?", *q.SchoolClassID)
	}
	if q.Room != "" {
		f.add("cs.room = ?", q.Room)
	}
	s := f.bind(start) + "::time"
	e := f.bind(end) + "::time"
	f.addRaw("((cs.start_time <= " + s + " AND cs.end_time > " + s + ")" +
		" OR (cs.start_time < " + e + " AND cs.end_time >= " + e + ")" +
		" OR (cs.start_time >= " + s + " AND cs.end_time <= " + e + "))")

	return r.query(ctx, scheduleSelect+f.where()+` ORDER BY cs.start_time`, f.args...)
}

func (r *ScheduleRepository) query(ctx context.Context, sql string, args ...interface{}) ([]model.CourseSchedule, error) {
	rows, err := r.db(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := []model.CourseSchedule{}
	for rows.Next() {
		var s model.CourseSchedule
		if err := scanSchedule(rows, &s); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// Create inserts a schedule slot.
func (r *ScheduleRepository) Create(ctx context.Context, s *model.CourseSchedule) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO course_schedules (school_class_id, subject, instructor_id, room, day_of_week, start_time, end_time,
		 duration_minutes, academic_year_id, effective_from, effective_to, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6::time, $7::time, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		s.SchoolClassID, s.Subject, s.InstructorID, s.Room, s.DayOfWeek, s.StartTime, s.EndTime,
		s.DurationMinutes, s.AcademicYearID, s.EffectiveFrom, s.EffectiveTo, s.IsActive,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return mapError(err, nil)
}

// Update modifies a schedule slot.
func (r *ScheduleRepository) Update(ctx context.Context, s *model.CourseSchedule) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE course_schedules SET school_class_id = $1, subject = $2, instructor_id = $3, room = $4, day_of_week = $5,
		 start_time = $6::time, end_time = $7::time, duration_minutes = $8, academic_year_id = $9, effective_from = $10,
		 effective_to = $11, is_active = $12, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $13`,
		s.SchoolClassID, s.Subject, s.InstructorID, s.Room, s.DayOfWeek,
		s.StartTime, s.EndTime, s.DurationMinutes, s.AcademicYearID, s.EffectiveFrom,
		s.EffectiveTo, s.IsActive, s.ID,
	)
	if err != nil {
		return mapError(err, nil)
	}
	return affected(tag, nil)
}

// Delete removes a schedule slot.
func (r *ScheduleRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM course_schedules WHERE id = $1`, id))
}

// SumClassMinutes totals the duration of a class's active slots.
func (r *ScheduleRepository) SumClassMinutes(ctx context.Context, classID int) (int, error) {
	var total int
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(duration_minutes), 0) FROM course_schedules WHERE school_class_id = $1 AND is_active`, classID,
	).Scan(&total)
	return total, err
}
