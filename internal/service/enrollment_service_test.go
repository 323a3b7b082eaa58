package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

func newResolverFixture() (*EnrollmentService, *fakeEnrollmentDirectory) {
	directory := &fakeEnrollmentDirectory{rows: []enrollmentRow{
		{ID: "enr-1", StudentID: "stu-10", TeacherID: "tch-5", CourseName: "Algebra", Program: "BSIT", Section: "A"},
		{ID: "enr-2", StudentID: "stu-10", TeacherID: "tch-6", CourseName: "Algebra", Program: "BSCS", Section: "B"},
	}}
	return NewEnrollmentService(directory, zap.NewNop()), directory
}

func TestEnrollmentServiceResolveExactMatch(t *testing.T) {
	svc, _ := newResolverFixture()

	id, err := svc.Resolve(context.Background(), models.EnrollmentKey{StudentID: "stu-10", CourseName: " Algebra ", Program: "BSIT", Section: "A"}, "")
	require.NoError(t, err)
	assert.Equal(t, "enr-1", id)

	id, err = svc.Resolve(context.Background(), models.EnrollmentKey{StudentID: "stu-10", CourseName: "Algebra"}, "tch-6")
	require.NoError(t, err)
	assert.Equal(t, "enr-2", id)
}

func TestEnrollmentServiceResolveNotEnrolled(t *testing.T) {
	svc, _ := newResolverFixture()

	_, err := svc.Resolve(context.Background(), models.EnrollmentKey{StudentID: "stu-10", CourseName: "Physics"}, "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, "NOT_ENROLLED", appErr.Code)
	assert.Equal(t, 404, appErr.Status)
}

func TestEnrollmentServiceResolveAmbiguous(t *testing.T) {
	svc, _ := newResolverFixture()

	_, err := svc.Resolve(context.Background(), models.EnrollmentKey{StudentID: "stu-10", CourseName: "Algebra"}, "")
	assert.True(t, errors.Is(err, appErrors.ErrAmbiguousEnrollment))
}

func TestEnrollmentServiceResolveStorageError(t *testing.T) {
	svc, directory := newResolverFixture()
	directory.err = errors.New("connection reset")

	_, err := svc.Resolve(context.Background(), models.EnrollmentKey{StudentID: "stu-10", CourseName: "Algebra"}, "")
	assert.True(t, errors.Is(err, appErrors.ErrStorage))
}

func TestEnrollmentServiceFindAll(t *testing.T) {
	svc, _ := newResolverFixture()

	ids, err := svc.FindAll(context.Background(), "stu-10", "Algebra", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"enr-1", "enr-2"}, ids)

	ids, err = svc.FindAll(context.Background(), " stu-10 ", "Algebra", "tch-6")
	require.NoError(t, err)
	assert.Equal(t, []string{"enr-2"}, ids)

	ids, err = svc.FindAll(context.Background(), "stu-10", "Chemistry", "")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
