package courses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/db"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Repository defines persistence operations for the course catalog.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Course, error)
	FindByName(ctx context.Context, name string) (*Course, error)
	List(ctx context.Context, filter Filter) ([]Course, error)
	Create(ctx context.Context, c *Course) error
	Update(ctx context.Context, c *Course) error
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (Stats, error)
	Count(ctx context.Context) (int, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	conn db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{conn: conn}
}

const courseColumns = `id, course_code, course_name, department, program_type, duration_years, total_seats,
available_seats, description, eligibility_criteria, fee_amount, fee_type, is_active, subjects, created_at, updated_at`

func scanCourse(row pgx.Row) (*Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Department, &c.ProgramType, &c.DurationYears, &c.TotalSeats,
		&c.AvailableSeats, &c.Description, &c.EligibilityCriteria, &c.FeeAmount, &c.FeeType, &c.IsActive,
		&c.Subjects, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Get fetches a course by id.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Course, error) {
	return scanCourse(r.conn.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id=$1`, id))
}

// FindByName fetches a course by its name, ignoring case.
func (r *PGRepository) FindByName(ctx context.Context, name string) (*Course, error) {
	return scanCourse(r.conn.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE lower(course_name)=lower($1)`, strings.TrimSpace(name)))
}

// List returns courses matching filter ordered by code.
func (r *PGRepository) List(ctx context.Context, filter Filter) ([]Course, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ActiveOnly {
		conds = append(conds, "is_active")
	}
	if filter.AvailableOnly {
		conds = append(conds, "available_seats > 0")
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conds = append(conds, fmt.Sprintf("lower(department)=lower($%d)", len(args)))
	}
	if filter.ProgramType != "" {
		args = append(args, filter.ProgramType)
		conds = append(conds, fmt.Sprintf("lower(program_type)=lower($%d)", len(args)))
	}
	query := `SELECT ` + courseColumns + ` FROM courses`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY course_code"
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Create inserts a course.
func (r *PGRepository) Create(ctx context.Context, c *Course) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.conn.QueryRow(ctx, `INSERT INTO courses (id, course_code, course_name, department, program_type,
duration_years, total_seats, available_seats, description, eligibility_criteria, fee_amount, fee_type, is_active,
subjects, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NOW(),NOW())
RETURNING created_at, updated_at`,
		c.ID, c.Code, c.Name, c.Department, c.ProgramType, c.DurationYears, c.TotalSeats, c.AvailableSeats,
		c.Description, nonNil(c.EligibilityCriteria), c.FeeAmount, c.FeeType, c.IsActive, nonNil(c.Subjects),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return mapWriteError(err)
}

// Update replaces every mutable column.
func (r *PGRepository) Update(ctx context.Context, c *Course) error {
	err := r.conn.QueryRow(ctx, `UPDATE courses SET course_code=$2, course_name=$3, department=$4, program_type=$5,
duration_years=$6, total_seats=$7, available_seats=$8, description=$9, eligibility_criteria=$10, fee_amount=$11,
fee_type=$12, is_active=$13, subjects=$14, updated_at=NOW()
WHERE id=$1 RETURNING updated_at`,
		c.ID, c.Code, c.Name, c.Department, c.ProgramType, c.DurationYears, c.TotalSeats, c.AvailableSeats,
		c.Description, nonNil(c.EligibilityCriteria), c.FeeAmount, c.FeeType, c.IsActive, nonNil(c.Subjects),
	).Scan(&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	return mapWriteError(err)
}

// Delete removes a course.
func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM courses WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Stats aggregates catalog counters in one pass.
func (r *PGRepository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*),
COUNT(*) FILTER (WHERE is_active),
COUNT(*) FILTER (WHERE NOT is_active),
COALESCE(SUM(total_seats), 0),
COALESCE(SUM(available_seats), 0)
FROM courses`).Scan(&s.Total, &s.Active, &s.Inactive, &s.TotalSeats, &s.AvailableSeats)
	return s, err
}

// Count returns the number of courses.
func (r *PGRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM courses`).Scan(&n)
	return n, err
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := db.UniqueViolation(err); ok {
		switch constraint {
		case "courses_course_code_key":
			return ErrCodeTaken
		case "courses_course_name_key":
			return ErrNameTaken
		}
		return fmt.Errorf("courses: %w", shared.ErrConflict)
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
