package students

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

// Repository defines persistence operations for students.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Student, error)
	FindByEmail(ctx context.Context, email string) (*Student, error)
	FindByRollNo(ctx context.Context, rollNo string) (*Student, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByRollNo(ctx context.Context, rollNo string) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]Student, int, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, s *Student) error
	Update(ctx context.Context, s *Student) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, version int64) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PGRepository implements Repository using PostgreSQL. It runs on a pool or
// inside a caller's transaction.
type PGRepository struct {
	conn db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{conn: conn}
}

const studentColumns = `id, name, roll_no, email, password_hash, department, year, semester, phone,
date_of_birth, blood_group, current_cgpa, total_credits, attendance_percentage, total_fee,
paid_amount, placement_status, company, package_amount, version, created_at, updated_at`

func scanStudent(row pgx.Row) (*Student, error) {
	var s Student
	var placement string
	err := row.Scan(&s.ID, &s.Name, &s.RollNo, &s.Email, &s.PasswordHash, &s.Department, &s.Year,
		&s.Semester, &s.Phone, &s.DateOfBirth, &s.BloodGroup, &s.CGPA, &s.TotalCredits, &s.Attendance,
		&s.TotalFee, &s.PaidAmount, &placement, &s.Company, &s.PackageAmount, &s.Version,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	s.PlacementStatus = PlacementStatus(placement)
	return &s, nil
}

func (r *PGRepository) getOne(ctx context.Context, where string, arg any) (*Student, error) {
	return scanStudent(r.conn.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE `+where, arg))
}

// Get fetches a student by id.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Student, error) {
	return r.getOne(ctx, "id = $1", id)
}

// FindByEmail fetches a student by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Student, error) {
	return r.getOne(ctx, "email = $1", email)
}

// FindByRollNo fetches a student by roll number.
func (r *PGRepository) FindByRollNo(ctx context.Context, rollNo string) (*Student, error) {
	return r.getOne(ctx, "roll_no = $1", rollNo)
}

// ExistsByEmail reports whether a student uses the email.
func (r *PGRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM students WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// ExistsByRollNo reports whether a student holds the roll number.
func (r *PGRepository) ExistsByRollNo(ctx context.Context, rollNo string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM students WHERE roll_no = $1)`, rollNo).Scan(&exists)
	return exists, err
}

// List returns students matching filter ordered by roll number, plus the total match count.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Student, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Department != "" {
		args = append(args, filter.Department)
		conds = append(conds, fmt.Sprintf("department = $%d", len(args)))
	}
	if filter.Year > 0 {
		args = append(args, filter.Year)
		conds = append(conds, fmt.Sprintf("year = $%d", len(args)))
	}
	if filter.PlacedOnly {
		args = append(args, string(PlacementPlaced))
		conds = append(conds, fmt.Sprintf("placement_status = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM students`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + studentColumns + ` FROM students` + where + ` ORDER BY roll_no`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

// Count returns the number of students.
func (r *PGRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM students`).Scan(&n)
	return n, err
}

// Create inserts a new student. ID, version and timestamps are assigned here.
func (r *PGRepository) Create(ctx context.Context, s *Student) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.PlacementStatus == "" {
		s.PlacementStatus = PlacementNotPlaced
	}
	err := r.conn.QueryRow(ctx, `INSERT INTO students (id, name, roll_no, email, password_hash, department, year,
semester, phone, date_of_birth, blood_group, current_cgpa, total_credits, attendance_percentage, total_fee,
paid_amount, placement_status, company, package_amount, version, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,1,NOW(),NOW())
RETURNING version, created_at, updated_at`,
		s.ID, s.Name, s.RollNo, s.Email, s.PasswordHash, s.Department, s.Year, s.Semester, s.Phone,
		s.DateOfBirth, s.BloodGroup, s.CGPA, s.TotalCredits, s.Attendance, s.TotalFee, s.PaidAmount,
		string(s.PlacementStatus), s.Company, s.PackageAmount,
	).Scan(&s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

// Update writes every mutable column when the stored version still matches
// s.Version, then advances s.Version.
func (r *PGRepository) Update(ctx context.Context, s *Student) error {
	err := r.conn.QueryRow(ctx, `UPDATE students SET name=$3, email=$4, department=$5, year=$6, semester=$7,
phone=$8, date_of_birth=$9, blood_group=$10, current_cgpa=$11, total_credits=$12, attendance_percentage=$13,
total_fee=$14, paid_amount=$15, placement_status=$16, company=$17, package_amount=$18,
version=version+1, updated_at=NOW()
WHERE id=$1 AND version=$2
RETURNING version, updated_at`,
		s.ID, s.Version, s.Name, s.Email, s.Department, s.Year, s.Semester, s.Phone, s.DateOfBirth,
		s.BloodGroup, s.CGPA, s.TotalCredits, s.Attendance, s.TotalFee, s.PaidAmount,
		string(s.PlacementStatus), s.Company, s.PackageAmount,
	).Scan(&s.Version, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.staleOrMissing(ctx, s.ID)
		}
		return mapWriteError(err)
	}
	return nil
}

// UpdatePassword replaces the password hash under the same version check as Update.
func (r *PGRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, version int64) error {
	tag, err := r.conn.Exec(ctx, `UPDATE students SET password_hash=$3, version=version+1, updated_at=NOW()
WHERE id=$1 AND version=$2`, id, version, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.staleOrMissing(ctx, id)
	}
	return nil
}

// Delete removes a student.
func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM students WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) staleOrMissing(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM students WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return shared.ErrNotFound
	}
	return shared.ErrStaleRecord
}

func mapWriteError(err error) error {
	constraint, ok := db.UniqueViolation(err)
	if !ok {
		return err
	}
	switch constraint {
	case "students_roll_no_key":
		return ErrRollNoTaken
	case "students_email_key":
		return ErrEmailTaken
	}
	return fmt.Errorf("students: %w", shared.ErrConflict)
}

var _ Repository = (*PGRepository)(nil)
