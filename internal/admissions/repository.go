package admissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/db"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
	"github.com/odyssey-erp/odyssey-campus/internal/students"
)

// Repository defines persistence operations for applications.
type Repository interface {
	Create(ctx context.Context, app *Application) error
	Get(ctx context.Context, id uuid.UUID) (*Application, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, filter Filter) ([]Application, error)
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status Status) (int, error)
	WithTx(ctx context.Context, fn func(TxRepository) error) error
}

// TxRepository is the transactional view used while reviewing.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Application, error)
	SaveReview(ctx context.Context, app *Application) error
	Students() StudentWriter
}

// StudentWriter creates the student spawned by an approval.
type StudentWriter interface {
	FindByEmail(ctx context.Context, email string) (*students.Student, error)
	ExistsByRollNo(ctx context.Context, rollNo string) (bool, error)
	Create(ctx context.Context, s *students.Student) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	conn     db.DBTX
	beginner db.TxBeginner
}

// NewRepository creates a PostgreSQL-backed repository. A *pgxpool.Pool
// serves as both arguments.
func NewRepository(conn db.DBTX, beginner db.TxBeginner) *PGRepository {
	return &PGRepository{conn: conn, beginner: beginner}
}

var _ Repository = (*PGRepository)(nil)

const applicationColumns = `id, full_name, email, phone_number, desired_course, previous_qualification, previous_grade,
status, rejection_reason, reviewed_by, reviewed_at, review_comments, generated_student_id, generated_roll_number,
application_date, updated_at`

func scanApplication(row pgx.Row) (*Application, error) {
	var app Application
	var status string
	err := row.Scan(&app.ID, &app.FullName, &app.Email, &app.PhoneNumber, &app.DesiredCourse,
		&app.PreviousQualification, &app.PreviousGrade, &status, &app.RejectionReason, &app.ReviewedBy,
		&app.ReviewedAt, &app.ReviewComments, &app.GeneratedStudentID, &app.GeneratedRollNumber,
		&app.ApplicationDate, &app.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	app.Status = Status(status)
	return &app, nil
}

// Create inserts a new application.
func (r *PGRepository) Create(ctx context.Context, app *Application) error {
	err := r.conn.QueryRow(ctx, `INSERT INTO applications (id, full_name, email, phone_number, desired_course,
previous_qualification, previous_grade, status, application_date, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
RETURNING updated_at`,
		app.ID, app.FullName, app.Email, app.PhoneNumber, app.DesiredCourse, app.PreviousQualification,
		app.PreviousGrade, string(app.Status), app.ApplicationDate,
	).Scan(&app.UpdatedAt)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return ErrAlreadyApplied
		}
		return err
	}
	return nil
}

// Get loads an application by id.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Application, error) {
	return scanApplication(r.conn.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id=$1`, id))
}

// ExistsByEmail reports whether the email already applied.
func (r *PGRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM applications WHERE email=$1)`, email).Scan(&exists)
	return exists, err
}

// List returns applications newest first.
func (r *PGRepository) List(ctx context.Context, filter Filter) ([]Application, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Course != "" {
		args = append(args, filter.Course)
		conds = append(conds, fmt.Sprintf("lower(desired_course)=lower($%d)", len(args)))
	}
	query := `SELECT ` + applicationColumns + ` FROM applications`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY application_date DESC, id"

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *app)
	}
	return out, rows.Err()
}

// Count returns the number of applications.
func (r *PGRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM applications`).Scan(&n)
	return n, err
}

// CountByStatus returns the number of applications in status.
func (r *PGRepository) CountByStatus(ctx context.Context, status Status) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM applications WHERE status=$1`, string(status)).Scan(&n)
	return n, err
}

// WithTx runs fn inside a repeatable read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(TxRepository) error) error {
	return db.WithTx(ctx, r.beginner, func(tx pgx.Tx) error {
		return fn(&pgTxRepository{tx: tx, students: students.NewRepository(tx)})
	})
}

type pgTxRepository struct {
	tx       pgx.Tx
	students *students.PGRepository
}

func (r *pgTxRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Application, error) {
	return scanApplication(r.tx.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id=$1 FOR UPDATE`, id))
}

func (r *pgTxRepository) SaveReview(ctx context.Context, app *Application) error {
	tag, err := r.tx.Exec(ctx, `UPDATE applications SET status=$2, rejection_reason=$3, reviewed_by=$4, reviewed_at=$5,
review_comments=$6, generated_student_id=$7, generated_roll_number=$8, updated_at=NOW()
WHERE id=$1`,
		app.ID, string(app.Status), app.RejectionReason, app.ReviewedBy, app.ReviewedAt, app.ReviewComments,
		app.GeneratedStudentID, app.GeneratedRollNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgTxRepository) Students() StudentWriter {
	return r.students
}
