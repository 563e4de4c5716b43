package admissions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Status is the review state of an application.
type Status string

const (
	StatusApplied  Status = "APPLIED"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// ParseStatus accepts any letter case.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusApplied, StatusApproved, StatusRejected:
		return s, true
	}
	return "", false
}

var (
	// ErrAlreadyApplied is returned for a second application from the same email.
	ErrAlreadyApplied = fmt.Errorf("admissions: an application with this email already exists: %w", shared.ErrConflict)
	// ErrAlreadyStudent is returned when the applicant is already enrolled.
	ErrAlreadyStudent = fmt.Errorf("admissions: a student with this email already exists: %w", shared.ErrConflict)
	// ErrRollNumberExhausted is returned when no free roll number was found.
	ErrRollNumberExhausted = errors.New("admissions: could not allocate a unique roll number")
)

// Application is an admission request.
type Application struct {
	ID                    uuid.UUID  `json:"id"`
	FullName              string     `json:"fullName"`
	Email                 string     `json:"email"`
	PhoneNumber           string     `json:"phoneNumber"`
	DesiredCourse         string     `json:"desiredCourse"`
	PreviousQualification string     `json:"previousQualification"`
	PreviousGrade         string     `json:"previousGrade"`
	Status                Status     `json:"applicationStatus"`
	RejectionReason       string     `json:"rejectionReason,omitempty"`
	ReviewedBy            string     `json:"reviewedBy,omitempty"`
	ReviewedAt            *time.Time `json:"reviewedAt,omitempty"`
	ReviewComments        string     `json:"reviewComments,omitempty"`
	GeneratedStudentID    string     `json:"generatedStudentId,omitempty"`
	GeneratedRollNumber   string     `json:"generatedRollNumber,omitempty"`
	ApplicationDate       time.Time  `json:"applicationDate"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// SubmitRequest is the public application form.
type SubmitRequest struct {
	FullName              string `json:"fullName" validate:"required,max=160"`
	Email                 string `json:"email" validate:"required,email"`
	PhoneNumber           string `json:"phoneNumber" validate:"required,phone"`
	DesiredCourse         string `json:"desiredCourse" validate:"required,max=160"`
	PreviousQualification string `json:"previousQualification" validate:"required,max=160"`
	PreviousGrade         string `json:"previousGrade" validate:"required,max=32"`
}

// ReviewRequest approves or rejects an application.
type ReviewRequest struct {
	Status          string `json:"applicationStatus" validate:"required"`
	ReviewComments  string `json:"reviewComments" validate:"max=2000"`
	RejectionReason string `json:"rejectionReason" validate:"max=2000"`
}

// Filter narrows application listings.
type Filter struct {
	Status Status
	Course string
}

// Stats counts applications by status.
type Stats struct {
	Total    int `json:"totalApplications"`
	Applied  int `json:"appliedCount"`
	Approved int `json:"approvedCount"`
	Rejected int `json:"rejectedCount"`
}

// Credentials are handed once to the applicant after approval. The temporary
// password is never persisted in plain text.
type Credentials struct {
	StudentID         uuid.UUID
	Name              string
	Email             string
	RollNo            string
	Department        string
	TemporaryPassword string
}

// validateReview checks a review moving an application from current to target.
// Rejection is terminal and approval can only be repeated.
func validateReview(current, target Status) error {
	switch target {
	case StatusApproved, StatusRejected:
	default:
		return shared.FieldErrors{"applicationStatus": "must be APPROVED or REJECTED"}
	}
	switch current {
	case StatusApplied:
		return nil
	case StatusApproved:
		if target == StatusApproved {
			return nil
		}
	}
	return fmt.Errorf("admissions: %s -> %s: %w", current, target, shared.ErrInvalidTransition)
}
