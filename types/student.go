package types

import "time"

// StudentProfile is the 1:1 side record holding academic and personal
// details of a student. It lives and dies with the student row.
type StudentProfile struct {
	Phone              string `json:"phone" db:"phone" validate:"omitempty,max=20"`
	Gender             string `json:"gender" db:"gender" validate:"omitempty,oneof=Male Female Other"`
	DateOfBirth        Date   `json:"dob" db:"dob"`
	ClassName          string `json:"class" db:"class_name" validate:"omitempty,max=50"`
	Section            string `json:"section" db:"section_name" validate:"omitempty,max=50"`
	Roll               Roll   `json:"roll" db:"roll" validate:"omitempty,max=20"`
	FatherName         string `json:"fatherName" db:"father_name" validate:"omitempty,max=100"`
	FatherPhone        string `json:"fatherPhone" db:"father_phone" validate:"omitempty,max=20"`
	MotherName         string `json:"motherName" db:"mother_name" validate:"omitempty,max=100"`
	MotherPhone        string `json:"motherPhone" db:"mother_phone" validate:"omitempty,max=20"`
	GuardianName       string `json:"guardianName" db:"guardian_name" validate:"omitempty,max=100"`
	GuardianPhone      string `json:"guardianPhone" db:"guardian_phone" validate:"omitempty,max=20"`
	RelationOfGuardian string `json:"relationOfGuardian" db:"relation_of_guardian" validate:"omitempty,max=50"`
	CurrentAddress     string `json:"currentAddress" db:"current_address" validate:"omitempty,max=255"`
	PermanentAddress   string `json:"permanentAddress" db:"permanent_address" validate:"omitempty,max=255"`
	AdmissionDate      Date   `json:"admissionDate" db:"admission_dt"`
}

// StudentSummary is one row of the student listing.
type StudentSummary struct {
	ID           int        `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	LastLogin    *time.Time `json:"lastLogin" db:"last_login"`
	SystemAccess bool       `json:"systemAccess" db:"is_active"`
}

// StudentDetail is the full profile of a student with profile fields
// promoted to the top level.
type StudentDetail struct {
	ID                   int        `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	SystemAccess         bool       `json:"systemAccess"`
	LastLogin            *time.Time `json:"lastLogin"`
	StatusLastReviewedAt *time.Time `json:"statusLastReviewedAt"`
	StatusLastReviewerID *int       `json:"statusLastReviewerId"`
	ReporterName         *string    `json:"reporterName"`
	StudentProfile
}

// StudentFilter carries the optional list filters. Empty strings are
// ignored; zero Page and Limit fall back to the defaults.
type StudentFilter struct {
	Name      string `json:"name,omitempty"`
	ClassName string `json:"class,omitempty"`
	Section   string `json:"section,omitempty"`
	Roll      string `json:"roll,omitempty"`
	Search    string `json:"search,omitempty"`
	Page      int    `json:"page,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// Pagination describes the page returned by a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// StudentList is the paginated listing response.
type StudentList struct {
	Students   []StudentSummary `json:"students"`
	Pagination Pagination       `json:"pagination"`
}

// StudentPayload is the full student+profile record accepted by the
// add-or-update operation. A nil ID means insert.
type StudentPayload struct {
	ID           *int   `json:"id,omitempty"`
	Name         string `json:"name" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email,max=100"`
	SystemAccess *bool  `json:"systemAccess,omitempty"`
	ReporterID   *int   `json:"reporterId,omitempty" validate:"omitempty,min=1"`
	StudentProfile
}

// BasicDetails is the subset of a student touched by a basic update.
type BasicDetails struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email,max=100"`
}

// Basic returns the basic details carried by the payload.
func (p StudentPayload) Basic() BasicDetails {
	return BasicDetails{Name: p.Name, Email: p.Email}
}

// StatusChange is a reviewer-attributed change of the system-access flag.
type StatusChange struct {
	UserID     int  `json:"userId"`
	ReviewerID int  `json:"reviewerId"`
	Status     bool `json:"status"`
}

// UpsertResult is returned by the add-or-update operation.
type UpsertResult struct {
	ID      int    `json:"id"`
	Created bool   `json:"created"`
	Message string `json:"message"`
}

// MessageResponse is a plain acknowledgement payload.
type MessageResponse struct {
	Message string `json:"message"`
}
