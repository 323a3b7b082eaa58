package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-attendance-api/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-api/pkg/errors"
)

func decisionRequest(date, reason string) ExcuseDecisionRequest {
	return ExcuseDecisionRequest{
		ActingUserID: "user-tch-5",
		TeacherID:    "tch-5",
		StudentID:    "stu-10",
		CourseName:   "Algebra",
		Date:         date,
		Reason:       reason,
	}
}

func TestExcuseServiceApproveExistingRecord(t *testing.T) {
	f := newCoreFixture()
	f.store.seed(models.AttendanceRecord{
		EnrollmentID:   "enr-1",
		Date:           day("2024-03-01"),
		Status:         models.AttendanceStatusAbsent,
		Reason:         strPtr("flu"),
		ApprovalStatus: models.ApprovalStatusPending,
	})

	result, err := f.excuses.Approve(context.Background(), decisionRequest("2024-03-01", "Fever"))
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.False(t, result.Partial())
	assert.Equal(t, []string{"enr-1"}, result.UpdatedEnrollmentIDs)

	stored, _ := f.store.get("enr-1", "2024-03-01")
	assert.Equal(t, models.AttendanceStatusExcused, stored.Status)
	assert.Equal(t, models.ApprovalStatusApproved, stored.ApprovalStatus)
	assert.Equal(t, "tch-5", *stored.ApprovedBy)
	assert.Equal(t, day("2024-03-06"), *stored.ApprovalDate)
	assert.Equal(t, "Fever", *stored.Reason)

	sent := f.notifications.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "Your excuse on 2024-03-01 for Algebra has been approved.", sent[0].Message)
	assert.Equal(t, models.NotificationTypeExcuseApproval, sent[0].Type)
	assert.Equal(t, "user-stu-10", sent[0].RecipientUserID)
}

func TestExcuseServiceApproveWithoutReasonKeepsSubmittedOne(t *testing.T) {
	f := newCoreFixture()
	f.store.seed(models.AttendanceRecord{
		EnrollmentID:   "enr-1",
		Date:           day("2024-03-01"),
		Status:         models.AttendanceStatusAbsent,
		Reason:         strPtr("flu"),
		ApprovalStatus: models.ApprovalStatusPending,
	})

	_, err := f.excuses.Approve(context.Background(), decisionRequest("2024-03-01", ""))
	require.NoError(t, err)
	stored, _ := f.store.get("enr-1", "2024-03-01")
	assert.Equal(t, "flu", *stored.Reason)
}

func TestExcuseServiceRejectSynthesizesAbsence(t *testing.T) {
	f := newCoreFixture()

	result, err := f.excuses.Reject(context.Background(), decisionRequest("2024-03-05", ""))
	require.NoError(t, err)
	assert.Equal(t, 1, result.UpdatedCount)

	stored, ok := f.store.get("enr-1", "2024-03-05")
	require.True(t, ok)
	assert.Equal(t, models.AttendanceStatusAbsent, stored.Status)
	assert.Equal(t, models.ApprovalStatusRejected, stored.ApprovalStatus)
	assert.Nil(t, stored.Reason)
	assert.Equal(t, "tch-5", *stored.ApprovedBy)

	sent := f.notifications.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "Your excuse on 2024-03-05 for Algebra has been rejected.", sent[0].Message)
	assert.Equal(t, models.NotificationTypeExcuseRejection, sent[0].Type)
}

func TestExcuseServiceApproveSynthesizesExcused(t *testing.T) {
	f := newCoreFixture()

	_, err := f.excuses.Approve(context.Background(), decisionRequest("2024-03-07", "Doctor note"))
	require.NoError(t, err)
	stored, ok := f.store.get("enr-1", "2024-03-07")
	require.True(t, ok)
	assert.Equal(t, models.AttendanceStatusExcused, stored.Status)
	assert.Equal(t, models.ApprovalStatusApproved, stored.ApprovalStatus)
}

func TestExcuseServiceRejectKeepsExistingReason(t *testing.T) {
	f := newCoreFixture()
	f.store.seed(models.AttendanceRecord{
		EnrollmentID:   "enr-1",
		Date:           day("2024-03-01"),
		Status:         models.AttendanceStatusLate,
		Reason:         strPtr("bus broke down"),
		ApprovalStatus: models.ApprovalStatusPending,
	})

	_, err := f.excuses.Reject(context.Background(), decisionRequest("2024-03-01", "ignored"))
	require.NoError(t, err)
	stored, _ := f.store.get("enr-1", "2024-03-01")
	assert.Equal(t, models.AttendanceStatusAbsent, stored.Status)
	assert.Equal(t, "bus broke down", *stored.Reason)
}

func TestExcuseServiceCrossListedPartialFailure(t *testing.T) {
	f := newCoreFixture()
	f.directory.rows = append(f.directory.rows,
		enrollmentRow{ID: "enr-2", StudentID: "stu-10", TeacherID: "tch-5", CourseName: "Algebra", Program: "BSCS", Section: "C"},
		enrollmentRow{ID: "enr-3", StudentID: "stu-10", TeacherID: "tch-5", CourseName: "Algebra", Program: "BSIS", Section: "D"},
	)
	f.store.failFor["enr-2"] = errors.New("deadlock detected")

	result, err := f.excuses.Approve(context.Background(), decisionRequest("2024-03-01", "Fever"))
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.True(t, result.Partial())
	assert.Equal(t, 2, result.UpdatedCount)
	assert.Equal(t, []string{"enr-1", "enr-3"}, result.UpdatedEnrollmentIDs)
	assert.Equal(t, []string{"enr-2"}, result.FailedEnrollmentIDs)
	assert.Len(t, f.notifications.all(), 1)

	for _, id := range result.UpdatedEnrollmentIDs {
		stored, _ := f.store.get(id, "2024-03-01")
		assert.NotEqual(t, models.ApprovalStatusPending, stored.ApprovalStatus)
	}
}

func TestExcuseServiceTeacherDecidesOnlyOwnClasses(t *testing.T) {
	f := newCoreFixture()
	f.directory.rows = append(f.directory.rows,
		enrollmentRow{ID: "enr-2", StudentID: "stu-10", TeacherID: "tch-6", CourseName: "Algebra", Program: "BSCS", Section: "B"},
	)
	req := decisionRequest("2024-03-01", "Fever")
	req.ActingRole = models.RoleTeacher

	result, err := f.excuses.Approve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"enr-1"}, result.UpdatedEnrollmentIDs)
	_, touched := f.store.get("enr-2", "2024-03-01")
	assert.False(t, touched)

	stranger := decisionRequest("2024-03-02", "")
	stranger.ActingRole = models.RoleTeacher
	stranger.TeacherID = "tch-9"
	result, err = f.excuses.Reject(context.Background(), stranger)
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Len(t, f.notifications.all(), 1)
}

func TestExcuseServiceAdminDecidesAcrossSections(t *testing.T) {
	f := newCoreFixture()
	f.directory.rows = append(f.directory.rows,
		enrollmentRow{ID: "enr-2", StudentID: "stu-10", TeacherID: "tch-6", CourseName: "Algebra", Program: "BSCS", Section: "B"},
	)
	req := decisionRequest("2024-03-01", "")
	req.ActingUserID = "user-admin"
	req.ActingRole = models.RoleAdmin

	result, err := f.excuses.Reject(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"enr-1", "enr-2"}, result.UpdatedEnrollmentIDs)
}

func TestExcuseServiceDecisionTrimsIdentifiers(t *testing.T) {
	f := newCoreFixture()
	req := decisionRequest("2024-03-01", "Fever")
	req.StudentID = " stu-10 "
	req.CourseName = " Algebra "

	result, err := f.excuses.Approve(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Success())

	sent := f.notifications.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "user-stu-10", sent[0].RecipientUserID)
	assert.Equal(t, "Your excuse on 2024-03-01 for Algebra has been approved.", sent[0].Message)
	assert.Equal(t, []string{"stu-10"}, f.invalidator.students)
}

func TestExcuseServiceAllWritesFail(t *testing.T) {
	f := newCoreFixture()
	f.store.err = errors.New("disk full")

	result, err := f.excuses.Reject(context.Background(), decisionRequest("2024-03-01", ""))
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Equal(t, []string{"enr-1"}, result.FailedEnrollmentIDs)
	assert.Empty(t, f.notifications.all())
	assert.Empty(t, f.invalidator.students)
}

func TestExcuseServiceNoEnrollment(t *testing.T) {
	f := newCoreFixture()
	req := decisionRequest("2024-03-01", "")
	req.CourseName = "Biology"

	result, err := f.excuses.Approve(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Zero(t, result.UpdatedCount)
	assert.Equal(t, 0, f.store.count())
	assert.Empty(t, f.notifications.all())
}

func TestExcuseServiceInvalidDateWritesNothing(t *testing.T) {
	f := newCoreFixture()

	_, err := f.excuses.Approve(context.Background(), decisionRequest("2024-02-30", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidDate))
	assert.Equal(t, 0, f.directory.calls)
	assert.Equal(t, 0, f.store.writes)
}

func TestExcuseServiceDirectoryFailure(t *testing.T) {
	f := newCoreFixture()
	f.directory.err = errors.New("timeout")

	_, err := f.excuses.Reject(context.Background(), decisionRequest("2024-03-01", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStorage))
}

func TestExcuseServiceSubmitSynthesizesAbsenceAndNotifiesTeacher(t *testing.T) {
	f := newCoreFixture()

	record, err := f.excuses.Submit(context.Background(), SubmitExcuseRequest{
		ActingUserID: "user-stu-10",
		StudentID:    "stu-10",
		CourseName:   "Algebra",
		Date:         "2024-03-04",
		Reason:       "Fever",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusAbsent, record.Status)
	assert.Equal(t, models.ApprovalStatusPending, record.ApprovalStatus)

	sent := f.notifications.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "user-tch-5", sent[0].RecipientUserID)
	assert.Equal(t, "Student Budi Santoso submitted an excuse for 2024-03-04 in Algebra.", sent[0].Message)
	assert.Equal(t, models.NotificationTypeExcuseRequest, sent[0].Type)

	pending, err := f.excuses.Pending(context.Background(), "tch-5")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "enr-1", pending[0].EnrollmentID)
}

func TestExcuseServiceSubmitKeepsMarkedStatus(t *testing.T) {
	f := newCoreFixture()
	_, err := f.attendance.Mark(context.Background(), markRequest("2024-03-04", "LATE", ""))
	require.NoError(t, err)

	record, err := f.excuses.Submit(context.Background(), SubmitExcuseRequest{
		ActingUserID: "user-stu-10",
		StudentID:    "stu-10",
		CourseName:   "Algebra",
		Date:         "2024-03-04",
		Reason:       "Traffic",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, record.Status)
	assert.Equal(t, models.ApprovalStatusPending, record.ApprovalStatus)
	assert.Equal(t, 1, f.store.count())
}

func TestExcuseServiceSubmitTrimsIdentifiers(t *testing.T) {
	f := newCoreFixture()

	_, err := f.excuses.Submit(context.Background(), SubmitExcuseRequest{
		ActingUserID: "user-stu-10",
		StudentID:    " stu-10 ",
		TeacherID:    " tch-5 ",
		CourseName:   " Algebra ",
		Date:         "2024-03-04",
		Reason:       "Fever",
	})
	require.NoError(t, err)

	sent := f.notifications.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "user-tch-5", sent[0].RecipientUserID)
	assert.Equal(t, "Student Budi Santoso submitted an excuse for 2024-03-04 in Algebra.", sent[0].Message)
	assert.Equal(t, []string{"stu-10"}, f.invalidator.students)
}

func TestExcuseServicePendingRequiresTeacher(t *testing.T) {
	f := newCoreFixture()
	_, err := f.excuses.Pending(context.Background(), " ")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
