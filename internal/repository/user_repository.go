package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-attendance-api/internal/models"
)

// UserRepository is the user directory: it maps student and teacher ids to
// user accounts and names.
type UserRepository struct {
	db *sqlx.DB
	queryRunner
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB, opts ...Option) *UserRepository {
	return &UserRepository{db: db, queryRunner: newQueryRunner(opts)}
}

// FindStudent returns the directory entry for a student id.
func (r *UserRepository) FindStudent(ctx context.Context, studentID string) (*models.DirectoryEntry, error) {
	const query = `SELECT s.user_id, u.role, s.first_name, s.last_name
FROM students s JOIN users u ON u.id = s.user_id
WHERE s.id = $1`
	return r.findOne(ctx, "users.find_student", query, studentID)
}

// FindTeacher returns the directory entry for a teacher id.
func (r *UserRepository) FindTeacher(ctx context.Context, teacherID string) (*models.DirectoryEntry, error) {
	const query = `SELECT t.user_id, u.role, t.first_name, t.last_name
FROM teachers t JOIN users u ON u.id = t.user_id
WHERE t.id = $1`
	return r.findOne(ctx, "users.find_teacher", query, teacherID)
}

// FindByUserID returns the directory entry for a user account.
func (r *UserRepository) FindByUserID(ctx context.Context, userID string) (*models.DirectoryEntry, error) {
	const query = `SELECT u.id AS user_id, u.role,
        COALESCE(s.first_name, t.first_name, '') AS first_name,
        COALESCE(s.last_name, t.last_name, '') AS last_name
FROM users u
LEFT JOIN students s ON s.user_id = u.id
LEFT JOIN teachers t ON t.user_id = u.id
WHERE u.id = $1`
	return r.findOne(ctx, "users.find_by_user_id", query, userID)
}

func (r *UserRepository) findOne(ctx context.Context, label, query, id string) (*models.DirectoryEntry, error) {
	var entry models.DirectoryEntry
	err := r.run(ctx, label, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &entry, query, id)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	return &entry, nil
}
