package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

// EnrollmentRepository reads the enrollment directory.
type EnrollmentRepository struct {
	db *sqlx.DB
	queryRunner
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB, opts ...Option) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, queryRunner: newQueryRunner(opts)}
}

// FindActive returns active enrollment ids matching the key. The teacher is
// only constrained when teacherID is non-empty.
func (r *EnrollmentRepository) FindActive(ctx context.Context, key models.EnrollmentKey, teacherID string) ([]string, error) {
	conditions := []string{"e.student_id = $1", "c.course_name = $2", "e.status = $3"}
	args := []interface{}{key.StudentID, key.CourseName, models.EnrollmentStatusActive}
	if key.Program != "" {
		conditions = append(conditions, fmt.Sprintf("c.program = $%d", len(args)+1))
		args = append(args, key.Program)
	}
	if key.Section != "" {
		conditions = append(conditions, fmt.Sprintf("c.section = $%d", len(args)+1))
		args = append(args, key.Section)
	}
	if teacherID != "" {
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", len(args)+1))
		args = append(args, teacherID)
	}
	query := fmt.Sprintf(`SELECT e.id FROM enrollments e
JOIN classes c ON c.id = e.class_id
WHERE %s
ORDER BY e.id`, strings.Join(conditions, " AND "))

	var ids []string
	err := r.run(ctx, "enrollments.find_active", func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &ids, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("find active enrollments: %w", err)
	}
	return ids, nil
}

// FindDetailByID returns an enrollment with its class identity.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.class_id, e.status, e.joined_at,
        c.teacher_id, c.course_name, c.section, c.program
        FROM enrollments e
        JOIN classes c ON c.id = e.class_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	err := r.run(ctx, "enrollments.find_detail", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &detail, query, id)
	})
	if err != nil {
		return nil, fmt.Errorf("find enrollment detail: %w", err)
	}
	return &detail, nil
}
