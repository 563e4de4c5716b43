package courses

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

var (
	// ErrCodeTaken is returned when the course code is already used.
	ErrCodeTaken = fmt.Errorf("courses: course code already exists: %w", shared.ErrConflict)
	// ErrNameTaken is returned when the course name is already used.
	ErrNameTaken = fmt.Errorf("courses: course name already exists: %w", shared.ErrConflict)
)

// Course is a catalog entry applicants can apply to.
type Course struct {
	ID                  uuid.UUID `json:"id"`
	Code                string    `json:"courseCode"`
	Name                string    `json:"courseName"`
	Department          string    `json:"department"`
	ProgramType         string    `json:"programType"`
	DurationYears       int       `json:"durationYears"`
	TotalSeats          int       `json:"totalSeats"`
	AvailableSeats      int       `json:"availableSeats"`
	Description         string    `json:"description,omitempty"`
	EligibilityCriteria []string  `json:"eligibilityCriteria"`
	FeeAmount           float64   `json:"feeAmount"`
	FeeType             string    `json:"feeType,omitempty"`
	IsActive            bool      `json:"isActive"`
	Subjects            []string  `json:"subjects"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// HasAvailableSeats reports whether the course can take another applicant.
func (c *Course) HasAvailableSeats() bool {
	return c.AvailableSeats > 0
}

// Filter narrows catalog listings.
type Filter struct {
	ActiveOnly    bool
	AvailableOnly bool
	Department    string
	ProgramType   string
}

// Request is the admin payload for creating or replacing a course.
type Request struct {
	Code                string   `json:"courseCode" validate:"required,max=16"`
	Name                string   `json:"courseName" validate:"required,max=160"`
	Department          string   `json:"department" validate:"required"`
	ProgramType         string   `json:"programType" validate:"required"`
	DurationYears       int      `json:"durationYears" validate:"required,gte=1,lte=6"`
	TotalSeats          int      `json:"totalSeats" validate:"gte=0"`
	AvailableSeats      *int     `json:"availableSeats" validate:"omitempty,gte=0"`
	Description         string   `json:"description" validate:"max=2000"`
	EligibilityCriteria []string `json:"eligibilityCriteria"`
	FeeAmount           float64  `json:"feeAmount" validate:"gte=0"`
	FeeType             string   `json:"feeType"`
	IsActive            *bool    `json:"isActive"`
	Subjects            []string `json:"subjects"`
}

// Stats summarises the catalog.
type Stats struct {
	Total          int `json:"total"`
	Active         int `json:"active"`
	Inactive       int `json:"inactive"`
	TotalSeats     int `json:"totalSeats"`
	AvailableSeats int `json:"availableSeats"`
}
