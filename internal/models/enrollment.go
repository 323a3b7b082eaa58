package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive   EnrollmentStatus = "ACTIVE"
	EnrollmentStatusInactive EnrollmentStatus = "INACTIVE"
)

// Enrollment captures a student's registration to a class.
type Enrollment struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	ClassID   string           `db:"class_id" json:"class_id"`
	Status    EnrollmentStatus `db:"status" json:"status"`
	JoinedAt  time.Time        `db:"joined_at" json:"joined_at"`
}

// EnrollmentDetail enriches Enrollment with the class identity.
type EnrollmentDetail struct {
	Enrollment
	TeacherID  string `db:"teacher_id" json:"teacher_id"`
	CourseName string `db:"course_name" json:"course_name"`
	Section    string `db:"section" json:"section"`
	Program    string `db:"program" json:"program"`
}

// EnrollmentKey identifies a class membership by its loosely coupled fields.
type EnrollmentKey struct {
	StudentID  string
	CourseName string
	Program    string
	Section    string
}
