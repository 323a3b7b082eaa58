package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

const attendanceRecordColumns = `id, enrollment_id, date, status, reason, approval_status, approved_by, approval_date, created_at, updated_at`

// AttendanceRecordRepository persists attendance records keyed by (enrollment, date).
// Every write is a single INSERT ... ON CONFLICT statement against the
// attendance_records_enrollment_date_key unique constraint, so concurrent
// writers for the same pair can never create two rows.
type AttendanceRecordRepository struct {
	db *sqlx.DB
	queryRunner
	now func() time.Time
}

// NewAttendanceRecordRepository constructs the repository.
func NewAttendanceRecordRepository(db *sqlx.DB, opts ...Option) *AttendanceRecordRepository {
	return &AttendanceRecordRepository{db: db, queryRunner: newQueryRunner(opts), now: func() time.Time { return time.Now().UTC() }}
}

// DecisionParams carries the terminal values written by an excuse decision.
// A nil Reason keeps whatever reason is already stored.
type DecisionParams struct {
	EnrollmentID   string
	Date           time.Time
	Status         models.AttendanceStatus
	ApprovalStatus models.ApprovalStatus
	Reason         *string
	ApprovedBy     string
	ApprovalDate   time.Time
}

// Get returns the record for (enrollment, date); sql.ErrNoRows when absent.
func (r *AttendanceRecordRepository) Get(ctx context.Context, enrollmentID string, date time.Time) (*models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceRecordColumns + ` FROM attendance_records WHERE enrollment_id = $1 AND date = $2`
	var record models.AttendanceRecord
	err := r.run(ctx, "attendance_records.get", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &record, query, enrollmentID, dateOnly(date))
	})
	if err != nil {
		return nil, fmt.Errorf("get attendance record: %w", err)
	}
	return &record, nil
}

// Upsert creates the record or overwrites every supplied field.
func (r *AttendanceRecordRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := r.now()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = now
	record.UpdatedAt = now
	var approvalDate interface{}
	if record.ApprovalDate != nil {
		approvalDate = dateOnly(*record.ApprovalDate)
	}
	query := `INSERT INTO attendance_records (` + attendanceRecordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (enrollment_id, date)
DO UPDATE SET status = EXCLUDED.status, reason = EXCLUDED.reason, approval_status = EXCLUDED.approval_status,
    approved_by = EXCLUDED.approved_by, approval_date = EXCLUDED.approval_date, updated_at = EXCLUDED.updated_at
RETURNING ` + attendanceRecordColumns
	var stored models.AttendanceRecord
	err := r.run(ctx, "attendance_records.upsert", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &stored, query,
			record.ID, record.EnrollmentID, dateOnly(record.Date), record.Status, record.Reason,
			record.ApprovalStatus, record.ApprovedBy, approvalDate, record.CreatedAt, record.UpdatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("upsert attendance record: %w", err)
	}
	return &stored, nil
}

// ApplyDecision writes an approve/reject outcome, synthesizing the record when
// none exists for the date.
func (r *AttendanceRecordRepository) ApplyDecision(ctx context.Context, params DecisionParams) (*models.AttendanceRecord, error) {
	now := r.now()
	query := `INSERT INTO attendance_records (` + attendanceRecordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
ON CONFLICT (enrollment_id, date)
DO UPDATE SET status = EXCLUDED.status, reason = COALESCE(EXCLUDED.reason, attendance_records.reason),
    approval_status = EXCLUDED.approval_status, approved_by = EXCLUDED.approved_by,
    approval_date = EXCLUDED.approval_date, updated_at = EXCLUDED.updated_at
RETURNING ` + attendanceRecordColumns
	var stored models.AttendanceRecord
	err := r.run(ctx, "attendance_records.apply_decision", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &stored, query,
			uuid.NewString(), params.EnrollmentID, dateOnly(params.Date), params.Status, params.Reason,
			params.ApprovalStatus, params.ApprovedBy, dateOnly(params.ApprovalDate), now)
	})
	if err != nil {
		return nil, fmt.Errorf("apply excuse decision: %w", err)
	}
	return &stored, nil
}

// OpenExcuse moves the record into PENDING with the student's reason. A
// missing record is synthesized as ABSENT; an existing one keeps its status.
func (r *AttendanceRecordRepository) OpenExcuse(ctx context.Context, enrollmentID string, date time.Time, reason string) (*models.AttendanceRecord, error) {
	now := r.now()
	query := `INSERT INTO attendance_records (` + attendanceRecordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, NULL, NULL, $7, $7)
ON CONFLICT (enrollment_id, date)
DO UPDATE SET reason = EXCLUDED.reason, approval_status = EXCLUDED.approval_status,
    approved_by = NULL, approval_date = NULL, updated_at = EXCLUDED.updated_at
RETURNING ` + attendanceRecordColumns
	var stored models.AttendanceRecord
	err := r.run(ctx, "attendance_records.open_excuse", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &stored, query,
			uuid.NewString(), enrollmentID, dateOnly(date), models.AttendanceStatusAbsent, reason,
			models.ApprovalStatusPending, now)
	})
	if err != nil {
		return nil, fmt.Errorf("open excuse: %w", err)
	}
	return &stored, nil
}

// CountByStatus counts an enrollment's records in the given status.
func (r *AttendanceRecordRepository) CountByStatus(ctx context.Context, enrollmentID string, status models.AttendanceStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance_records WHERE enrollment_id = $1 AND status = $2`
	var count int
	err := r.run(ctx, "attendance_records.count_by_status", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &count, query, enrollmentID, status)
	})
	if err != nil {
		return 0, fmt.Errorf("count attendance by status: %w", err)
	}
	return count, nil
}

type statusCountRow struct {
	Status string `db:"status"`
	Count  int    `db:"cnt"`
}

// CountsByEnrollment aggregates status counts for one enrollment.
func (r *AttendanceRecordRepository) CountsByEnrollment(ctx context.Context, enrollmentID string) (*models.AttendanceSummary, error) {
	const query = `SELECT status, COUNT(*) AS cnt
FROM attendance_records
WHERE enrollment_id = $1
GROUP BY status`
	var rows []statusCountRow
	err := r.run(ctx, "attendance_records.counts_by_enrollment", func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &rows, query, enrollmentID)
	})
	if err != nil {
		return nil, fmt.Errorf("summarise enrollment attendance: %w", err)
	}
	return foldCounts(rows), nil
}

// CountsByStudent aggregates status counts across a student's enrollments,
// optionally restricted to the given course names.
func (r *AttendanceRecordRepository) CountsByStudent(ctx context.Context, studentID string, courseNames []string) (*models.AttendanceSummary, error) {
	const query = `SELECT ar.status, COUNT(*) AS cnt
FROM attendance_records ar
JOIN enrollments e ON e.id = ar.enrollment_id
JOIN classes c ON c.id = e.class_id
WHERE e.student_id = $1 AND (cardinality($2::text[]) = 0 OR c.course_name = ANY($2::text[]))
GROUP BY ar.status`
	if courseNames == nil {
		courseNames = []string{}
	}
	var rows []statusCountRow
	err := r.run(ctx, "attendance_records.counts_by_student", func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &rows, query, studentID, pq.Array(courseNames))
	})
	if err != nil {
		return nil, fmt.Errorf("summarise student attendance: %w", err)
	}
	return foldCounts(rows), nil
}

// ListPendingForTeacher returns records awaiting review in classes taught by the teacher.
func (r *AttendanceRecordRepository) ListPendingForTeacher(ctx context.Context, teacherID string) ([]models.PendingExcuse, error) {
	const query = `SELECT ar.id, ar.enrollment_id, ar.date, ar.status, ar.reason, ar.approval_status, ar.approved_by,
        ar.approval_date, ar.created_at, ar.updated_at,
        e.student_id, s.first_name || ' ' || s.last_name AS student_name, c.course_name, c.section, c.program
FROM attendance_records ar
JOIN enrollments e ON e.id = ar.enrollment_id
JOIN classes c ON c.id = e.class_id
JOIN students s ON s.id = e.student_id
WHERE c.teacher_id = $1 AND ar.approval_status = $2
ORDER BY ar.date ASC, student_name ASC`
	var rows []models.PendingExcuse
	err := r.run(ctx, "attendance_records.list_pending", func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &rows, query, teacherID, models.ApprovalStatusPending)
	})
	if err != nil {
		return nil, fmt.Errorf("list pending excuses: %w", err)
	}
	return rows, nil
}

func foldCounts(rows []statusCountRow) *models.AttendanceSummary {
	summary := &models.AttendanceSummary{}
	for _, row := range rows {
		summary.Add(models.AttendanceStatus(row.Status), row.Count)
	}
	return summary
}
