package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format accepted and rendered by the API.
const DateLayout = "2006-01-02"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// Label renders the status the way it appears in notification text.
func (s AttendanceStatus) Label() string {
	switch s {
	case AttendanceStatusPresent:
		return "Present"
	case AttendanceStatusAbsent:
		return "Absent"
	case AttendanceStatusLate:
		return "Late"
	case AttendanceStatusExcused:
		return "Excused"
	default:
		return string(s)
	}
}

// ParseAttendanceStatus accepts either the stored code or the label, case-insensitively.
func ParseAttendanceStatus(raw string) (AttendanceStatus, error) {
	status := AttendanceStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown attendance status %q", raw)
	}
	return status, nil
}

// ApprovalStatus tracks teacher review of an excuse, independent of the attendance status.
type ApprovalStatus string

const (
	ApprovalStatusPending       ApprovalStatus = "PENDING"
	ApprovalStatusApproved      ApprovalStatus = "APPROVED"
	ApprovalStatusRejected      ApprovalStatus = "REJECTED"
	ApprovalStatusNotApplicable ApprovalStatus = "NOT_APPLICABLE"
)

// Valid returns true when the approval status is a supported value.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected, ApprovalStatusNotApplicable:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition applies to the record.
func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusRejected
}

// ApprovalForMark returns the approval state a teacher mark lands in.
func ApprovalForMark(status AttendanceStatus) ApprovalStatus {
	if status == AttendanceStatusExcused {
		return ApprovalStatusPending
	}
	return ApprovalStatusNotApplicable
}

// AttendanceRecord is the single per-date truth for one enrollment.
type AttendanceRecord struct {
	ID             string           `db:"id" json:"id"`
	EnrollmentID   string           `db:"enrollment_id" json:"enrollment_id"`
	Date           time.Time        `db:"date" json:"date"`
	Status         AttendanceStatus `db:"status" json:"status"`
	Reason         *string          `db:"reason" json:"reason,omitempty"`
	ApprovalStatus ApprovalStatus   `db:"approval_status" json:"approval_status"`
	ApprovedBy     *string          `db:"approved_by" json:"approved_by,omitempty"`
	ApprovalDate   *time.Time       `db:"approval_date" json:"approval_date,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// PendingExcuse is a review-queue row for a teacher.
type PendingExcuse struct {
	AttendanceRecord
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	CourseName  string `db:"course_name" json:"course_name"`
	Section     string `db:"section" json:"section"`
	Program     string `db:"program" json:"program"`
}

// AttendanceSummary holds per-status counts.
type AttendanceSummary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Excused int `json:"excused"`
	Total   int `json:"total"`
}

// Add accumulates count rows for a status.
func (s *AttendanceSummary) Add(status AttendanceStatus, count int) {
	switch status {
	case AttendanceStatusPresent:
		s.Present += count
	case AttendanceStatusAbsent:
		s.Absent += count
	case AttendanceStatusLate:
		s.Late += count
	case AttendanceStatusExcused:
		s.Excused += count
	default:
		return
	}
	s.Total += count
}

// ExcuseDecision is the verdict a teacher applies to an excuse.
type ExcuseDecision string

const (
	ExcuseDecisionApprove ExcuseDecision = "APPROVE"
	ExcuseDecisionReject  ExcuseDecision = "REJECT"
)

// Outcome returns the terminal attendance and approval states for the decision.
func (d ExcuseDecision) Outcome() (AttendanceStatus, ApprovalStatus) {
	switch d {
	case ExcuseDecisionApprove:
		return AttendanceStatusExcused, ApprovalStatusApproved
	case ExcuseDecisionReject:
		return AttendanceStatusAbsent, ApprovalStatusRejected
	default:
		panic(fmt.Sprintf("unknown excuse decision %q", string(d)))
	}
}

// ExcuseDecisionResult reports the per-enrollment outcome of an approve/reject batch.
type ExcuseDecisionResult struct {
	Decision             ExcuseDecision `json:"decision"`
	Date                 time.Time      `json:"date"`
	UpdatedCount         int            `json:"updated_count"`
	UpdatedEnrollmentIDs []string       `json:"updated_enrollment_ids"`
	FailedEnrollmentIDs  []string       `json:"failed_enrollment_ids"`
}

// Success reports whether at least one enrollment was updated.
func (r *ExcuseDecisionResult) Success() bool {
	return r != nil && r.UpdatedCount > 0
}

// Partial reports whether some enrollments were updated while others failed.
func (r *ExcuseDecisionResult) Partial() bool {
	return r.Success() && len(r.FailedEnrollmentIDs) > 0
}
