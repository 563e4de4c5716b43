package students

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// PlacementStatus tracks a student's post-course outcome.
type PlacementStatus string

const (
	PlacementNotPlaced     PlacementStatus = "Not Placed"
	PlacementPlaced        PlacementStatus = "Placed"
	PlacementHigherStudies PlacementStatus = "Higher Studies"
)

// Valid reports whether p is a known placement status.
func (p PlacementStatus) Valid() bool {
	switch p {
	case PlacementNotPlaced, PlacementPlaced, PlacementHigherStudies:
		return true
	}
	return false
}

// Fee statuses derived from the outstanding amount.
const (
	FeeStatusPaid    = "Paid"
	FeeStatusPending = "Pending"
)

var (
	// ErrEmailTaken is returned when another student already uses the email.
	ErrEmailTaken = fmt.Errorf("students: email already registered: %w", shared.ErrConflict)
	// ErrRollNoTaken is returned when another student already holds the roll number.
	ErrRollNoTaken = fmt.Errorf("students: roll number already registered: %w", shared.ErrConflict)
)

// Student is the student principal and academic record.
type Student struct {
	ID              uuid.UUID
	Name            string
	RollNo          string
	Email           string
	PasswordHash    string
	Department      string
	Year            int
	Semester        int
	Phone           string
	DateOfBirth     *time.Time
	BloodGroup      string
	CGPA            float64
	TotalCredits    int
	Attendance      float64
	TotalFee        float64
	PaidAmount      float64
	PlacementStatus PlacementStatus
	Company         string
	PackageAmount   float64
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PendingAmount is the outstanding fee, never negative.
func (s *Student) PendingAmount() float64 {
	pending := s.TotalFee - s.PaidAmount
	if pending < 0 {
		return 0
	}
	return pending
}

// FeeStatus returns Paid once nothing is outstanding.
func (s *Student) FeeStatus() string {
	if s.PendingAmount() <= 0 {
		return FeeStatusPaid
	}
	return FeeStatusPending
}

// Role is always STUDENT.
func (s *Student) Role() shared.Role { return shared.RoleStudent }

// Authorities returns the role authorities of the student.
func (s *Student) Authorities() []string {
	return []string{shared.RoleStudent.Authority()}
}

// Enabled is always true; students have no disabled state.
func (s *Student) Enabled() bool { return true }

// View is the JSON projection of a student. It never carries the password hash.
type View struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	RollNo          string          `json:"rollNo"`
	Email           string          `json:"email"`
	Department      string          `json:"department"`
	Year            int             `json:"year"`
	Semester        int             `json:"semester"`
	Phone           string          `json:"phone,omitempty"`
	DateOfBirth     string          `json:"dateOfBirth,omitempty"`
	BloodGroup      string          `json:"bloodGroup,omitempty"`
	CGPA            float64         `json:"currentCGPA"`
	TotalCredits    int             `json:"totalCredits"`
	Attendance      float64         `json:"attendancePercentage"`
	TotalFee        float64         `json:"totalFee"`
	PaidAmount      float64         `json:"paidAmount"`
	PendingAmount   float64         `json:"pendingAmount"`
	FeeStatus       string          `json:"feeStatus"`
	PlacementStatus PlacementStatus `json:"placementStatus"`
	Company         string          `json:"company,omitempty"`
	PackageAmount   float64         `json:"packageAmount,omitempty"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ToView projects the student for API responses.
func (s *Student) ToView() View {
	v := View{
		ID:              s.ID,
		Name:            s.Name,
		RollNo:          s.RollNo,
		Email:           s.Email,
		Department:      s.Department,
		Year:            s.Year,
		Semester:        s.Semester,
		Phone:           s.Phone,
		BloodGroup:      s.BloodGroup,
		CGPA:            s.CGPA,
		TotalCredits:    s.TotalCredits,
		Attendance:      s.Attendance,
		TotalFee:        s.TotalFee,
		PaidAmount:      s.PaidAmount,
		PendingAmount:   s.PendingAmount(),
		FeeStatus:       s.FeeStatus(),
		PlacementStatus: s.PlacementStatus,
		Company:         s.Company,
		PackageAmount:   s.PackageAmount,
		Version:         s.Version,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
	if s.DateOfBirth != nil {
		v.DateOfBirth = s.DateOfBirth.Format(DateLayout)
	}
	return v
}

// DateLayout is the wire format for dates of birth.
const DateLayout = "2006-01-02"

// ListFilter narrows student listings. Zero values mean "any".
type ListFilter struct {
	Department string
	Year       int
	PlacedOnly bool
	Limit      int
	Offset     int
}

// CreateRequest is the admin payload for creating a student.
type CreateRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=6,max=72"`
	RollNo      string  `json:"rollNo" validate:"required,max=32"`
	Department  string  `json:"department" validate:"required"`
	Year        int     `json:"year" validate:"required,gte=1,lte=4"`
	Semester    int     `json:"semester" validate:"required,gte=1,lte=8"`
	Phone       string  `json:"phone" validate:"omitempty,phone"`
	DateOfBirth string  `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	BloodGroup  string  `json:"bloodGroup" validate:"omitempty,max=5"`
	TotalFee    float64 `json:"totalFee" validate:"gte=0"`
}

// UpdateRequest is the full admin update. Nil fields are left unchanged.
type UpdateRequest struct {
	Version     int64   `json:"version" validate:"required"`
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Department  *string `json:"department" validate:"omitempty,min=1"`
	Year        *int    `json:"year" validate:"omitempty,gte=1,lte=4"`
	Semester    *int    `json:"semester" validate:"omitempty,gte=1,lte=8"`
	Phone       *string `json:"phone" validate:"omitempty,phone"`
	DateOfBirth *string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	BloodGroup  *string `json:"bloodGroup" validate:"omitempty,max=5"`
}

// ProfileUpdateRequest is what a student may change on their own record.
type ProfileUpdateRequest struct {
	Version     int64   `json:"version" validate:"required"`
	Phone       *string `json:"phone" validate:"omitempty,phone"`
	DateOfBirth *string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	BloodGroup  *string `json:"bloodGroup" validate:"omitempty,max=5"`
}

// AcademicUpdate patches academic fields.
type AcademicUpdate struct {
	Version      int64    `json:"version" validate:"required"`
	CGPA         *float64 `json:"currentCGPA" validate:"omitempty,gte=0,lte=10"`
	TotalCredits *int     `json:"totalCredits" validate:"omitempty,gte=0"`
	Attendance   *float64 `json:"attendancePercentage" validate:"omitempty,gte=0,lte=100"`
	Year         *int     `json:"year" validate:"omitempty,gte=1,lte=4"`
	Semester     *int     `json:"semester" validate:"omitempty,gte=1,lte=8"`
}

// FeeUpdate patches fee fields.
type FeeUpdate struct {
	Version    int64    `json:"version" validate:"required"`
	TotalFee   *float64 `json:"totalFee" validate:"omitempty,gte=0"`
	PaidAmount *float64 `json:"paidAmount" validate:"omitempty,gte=0"`
}

// PlacementUpdate replaces placement details.
type PlacementUpdate struct {
	Version       int64           `json:"version" validate:"required"`
	Status        PlacementStatus `json:"placementStatus" validate:"required"`
	Company       string          `json:"company" validate:"max=120"`
	PackageAmount float64         `json:"packageAmount" validate:"gte=0"`
}

// Dashboard aggregates the self-service views of a student.
type Dashboard struct {
	Profile   View          `json:"profile"`
	Academic  AcademicView  `json:"academic"`
	Fees      FeeView       `json:"fees"`
	Placement PlacementView `json:"placement"`
}

// AcademicView is the academic slice of a student record.
type AcademicView struct {
	Department   string  `json:"department"`
	Year         int     `json:"year"`
	Semester     int     `json:"semester"`
	CGPA         float64 `json:"currentCGPA"`
	TotalCredits int     `json:"totalCredits"`
	Attendance   float64 `json:"attendancePercentage"`
}

// FeeView is the fee slice of a student record.
type FeeView struct {
	TotalFee      float64 `json:"totalFee"`
	PaidAmount    float64 `json:"paidAmount"`
	PendingAmount float64 `json:"pendingAmount"`
	Status        string  `json:"feeStatus"`
}

// PlacementView is the placement slice of a student record.
type PlacementView struct {
	Status        PlacementStatus `json:"placementStatus"`
	Company       string          `json:"company,omitempty"`
	PackageAmount float64         `json:"packageAmount,omitempty"`
}

// Academic returns the academic slice.
func (s *Student) Academic() AcademicView {
	return AcademicView{
		Department:   s.Department,
		Year:         s.Year,
		Semester:     s.Semester,
		CGPA:         s.CGPA,
		TotalCredits: s.TotalCredits,
		Attendance:   s.Attendance,
	}
}

// Fees returns the fee slice.
func (s *Student) Fees() FeeView {
	return FeeView{
		TotalFee:      s.TotalFee,
		PaidAmount:    s.PaidAmount,
		PendingAmount: s.PendingAmount(),
		Status:        s.FeeStatus(),
	}
}

// Placement returns the placement slice.
func (s *Student) Placement() PlacementView {
	return PlacementView{Status: s.PlacementStatus, Company: s.Company, PackageAmount: s.PackageAmount}
}
