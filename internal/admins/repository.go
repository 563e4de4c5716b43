package admins

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-campus/internal/platform/db"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Repository defines persistence operations for admins.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Admin, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*Admin, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]Admin, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, a *Admin) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, version int64) (int64, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, version int64) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	conn db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{conn: conn}
}

const adminColumns = `id, name, username, email, password_hash, role, department, phone_number,
permissions, is_active, last_login, version, created_at, updated_at`

func scanAdmin(row pgx.Row) (*Admin, error) {
	var a Admin
	var role string
	err := row.Scan(&a.ID, &a.Name, &a.Username, &a.Email, &a.PasswordHash, &role, &a.Department,
		&a.PhoneNumber, &a.Permissions, &a.IsActive, &a.LastLogin, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	a.Role = shared.Role(role)
	return &a, nil
}

// Get fetches an admin by id.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Admin, error) {
	return scanAdmin(r.conn.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id=$1`, id))
}

// FindByUsernameOrEmail matches the identifier against username first, then email.
func (r *PGRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*Admin, error) {
	return scanAdmin(r.conn.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins
WHERE username=$1 OR email=$1 ORDER BY (username=$1) DESC LIMIT 1`, identifier))
}

// ExistsByUsername reports whether an admin uses the username.
func (r *PGRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admins WHERE username=$1)`, username).Scan(&exists)
	return exists, err
}

// ExistsByEmail reports whether an admin uses the email.
func (r *PGRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admins WHERE email=$1)`, email).Scan(&exists)
	return exists, err
}

// List returns every admin ordered by username.
func (r *PGRepository) List(ctx context.Context) ([]Admin, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Count returns the number of admins.
func (r *PGRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n)
	return n, err
}

// Create inserts a new admin.
func (r *PGRepository) Create(ctx context.Context, a *Admin) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Permissions == nil {
		a.Permissions = []string{}
	}
	err := r.conn.QueryRow(ctx, `INSERT INTO admins (id, name, username, email, password_hash, role, department,
phone_number, permissions, is_active, version, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,1,NOW(),NOW())
RETURNING version, created_at, updated_at`,
		a.ID, a.Name, a.Username, a.Email, a.PasswordHash, string(a.Role), a.Department, a.PhoneNumber,
		a.Permissions, a.IsActive,
	).Scan(&a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok {
			switch constraint {
			case "admins_username_key":
				return ErrUsernameTaken
			case "admins_email_key":
				return ErrEmailTaken
			}
			return fmt.Errorf("admins: %w", shared.ErrConflict)
		}
		return err
	}
	return nil
}

// SetActive flips the enabled flag under a version check and returns the new version.
func (r *PGRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, version int64) (int64, error) {
	var next int64
	err := r.conn.QueryRow(ctx, `UPDATE admins SET is_active=$3, version=version+1, updated_at=NOW()
WHERE id=$1 AND version=$2 RETURNING version`, id, version, active).Scan(&next)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, r.staleOrMissing(ctx, id)
		}
		return 0, err
	}
	return next, nil
}

// UpdatePassword replaces the password hash under a version check.
func (r *PGRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, version int64) error {
	tag, err := r.conn.Exec(ctx, `UPDATE admins SET password_hash=$3, version=version+1, updated_at=NOW()
WHERE id=$1 AND version=$2`, id, version, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.staleOrMissing(ctx, id)
	}
	return nil
}

// TouchLastLogin records a successful login. last_login sits outside the version check.
func (r *PGRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn.Exec(ctx, `UPDATE admins SET last_login=$2 WHERE id=$1`, id, at)
	return err
}

func (r *PGRepository) staleOrMissing(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM admins WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return shared.ErrNotFound
	}
	return shared.ErrStaleRecord
}

var _ Repository = (*PGRepository)(nil)
