package admissions

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/odyssey-erp/odyssey-campus/internal/courses"
	"github.com/odyssey-erp/odyssey-campus/internal/students"
)

const (
	rollNumberAttempts     = 10
	temporaryPasswordChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	temporaryPasswordLen   = 8
)

// PasswordHasher hashes the temporary password.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// Provisioner turns an approved application into a student record.
type Provisioner struct {
	hasher PasswordHasher
	random io.Reader
	now    func() time.Time
}

// NewProvisioner builds a Provisioner. A nil random source means crypto/rand.
func NewProvisioner(hasher PasswordHasher, random io.Reader, now func() time.Time) *Provisioner {
	if random == nil {
		random = rand.Reader
	}
	if now == nil {
		now = time.Now
	}
	return &Provisioner{hasher: hasher, random: random, now: now}
}

// Provision creates the student for app unless one already exists with the
// applicant's email, in which case it returns nil credentials. course may be
// nil when the desired course is not in the catalog.
func (p *Provisioner) Provision(ctx context.Context, w StudentWriter, app *Application, course *courses.Course) (*Credentials, error) {
	existing, err := w.FindByEmail(ctx, app.Email)
	if err == nil {
		if app.GeneratedStudentID == "" {
			app.GeneratedStudentID = existing.ID.String()
			app.GeneratedRollNumber = existing.RollNo
		}
		return nil, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("admissions: check student: %w", err)
	}

	rollNo, err := p.rollNumber(ctx, w)
	if err != nil {
		return nil, err
	}
	password, err := p.temporaryPassword()
	if err != nil {
		return nil, err
	}
	hash, err := p.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("admissions: hash temporary password: %w", err)
	}

	st := &students.Student{
		Name:            app.FullName,
		RollNo:          rollNo,
		Email:           app.Email,
		PasswordHash:    hash,
		Phone:           app.PhoneNumber,
		Department:      DepartmentFor(app.DesiredCourse, course),
		Year:            1,
		Semester:        1,
		PlacementStatus: students.PlacementNotPlaced,
	}
	if course != nil {
		st.TotalFee = course.FeeAmount
	}
	if err := w.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("admissions: create student: %w", err)
	}
	app.GeneratedStudentID = st.ID.String()
	app.GeneratedRollNumber = st.RollNo
	return &Credentials{
		StudentID:         st.ID,
		Name:              st.Name,
		Email:             st.Email,
		RollNo:            st.RollNo,
		Department:        st.Department,
		TemporaryPassword: password,
	}, nil
}

// rollNumber returns <year><4 digits> not yet used by any student.
func (p *Provisioner) rollNumber(ctx context.Context, w StudentWriter) (string, error) {
	year := strconv.Itoa(p.now().Year())
	for i := 0; i < rollNumberAttempts; i++ {
		n, err := rand.Int(p.random, big.NewInt(10000))
		if err != nil {
			return "", fmt.Errorf("admissions: roll number entropy: %w", err)
		}
		candidate := fmt.Sprintf("%s%04d", year, n.Int64())
		taken, err := w.ExistsByRollNo(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("admissions: check roll number: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrRollNumberExhausted
}

func (p *Provisioner) temporaryPassword() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(temporaryPasswordChars)))
	for i := 0; i < temporaryPasswordLen; i++ {
		n, err := rand.Int(p.random, limit)
		if err != nil {
			return "", fmt.Errorf("admissions: password entropy: %w", err)
		}
		b.WriteByte(temporaryPasswordChars[n.Int64()])
	}
	return b.String(), nil
}

// DepartmentFor picks the department of a new student: the catalog course's
// when known, otherwise a keyword match on the course name.
func DepartmentFor(desiredCourse string, course *courses.Course) string {
	if course != nil && strings.TrimSpace(course.Department) != "" {
		return course.Department
	}
	name := cases.Fold().String(desiredCourse)
	words := strings.FieldsFunc(name, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	hasWord := func(w string) bool {
		for _, candidate := range words {
			if candidate == w {
				return true
			}
		}
		return false
	}
	switch {
	case strings.Contains(name, "computer"), strings.Contains(name, "software"), hasWord("it"):
		return "Computer Science"
	case strings.Contains(name, "electronic"), strings.Contains(name, "electrical"):
		return "Electronics"
	case strings.Contains(name, "mechanical"):
		return "Mechanical"
	case strings.Contains(name, "business"), strings.Contains(name, "mba"), strings.Contains(name, "management"):
		return "Management"
	case strings.Contains(name, "civil"):
		return "Civil"
	default:
		return "General"
	}
}
