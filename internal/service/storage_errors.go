package service

import (
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

const enrollmentForeignKey = "attendance_records_enrollment_id_fkey"

// storageFailure classifies a repository error. A foreign key violation on the
// enrollment means the class was removed between resolve and write.
func storageFailure(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" && pqErr.Constraint == enrollmentForeignKey {
		return appErrors.Wrap(err, appErrors.ErrNotEnrolled.Code, appErrors.ErrNotEnrolled.Status, "enrollment no longer exists")
	}
	return appErrors.Storage(err, message)
}

// parseDate accepts a YYYY-MM-DD calendar date.
func parseDate(raw string) (time.Time, error) {
	date, err := time.Parse(models.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInvalidDate.Code, appErrors.ErrInvalidDate.Status, appErrors.ErrInvalidDate.Message)
	}
	return date, nil
}
