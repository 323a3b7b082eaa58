package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttendanceStatus(t *testing.T) {
	status, err := ParseAttendanceStatus(" absent ")
	require.NoError(t, err)
	assert.Equal(t, AttendanceStatusAbsent, status)
	assert.Equal(t, "Absent", status.Label())

	_, err = ParseAttendanceStatus("Absnt")
	assert.Error(t, err)
}

func TestApprovalForMark(t *testing.T) {
	assert.Equal(t, ApprovalStatusPending, ApprovalForMark(AttendanceStatusExcused))
	for _, s := range []AttendanceStatus{AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate} {
		assert.Equal(t, ApprovalStatusNotApplicable, ApprovalForMark(s))
	}
}

func TestExcuseDecisionOutcome(t *testing.T) {
	status, approval := ExcuseDecisionApprove.Outcome()
	assert.Equal(t, AttendanceStatusExcused, status)
	assert.Equal(t, ApprovalStatusApproved, approval)
	assert.True(t, approval.Terminal())

	status, approval = ExcuseDecisionReject.Outcome()
	assert.Equal(t, AttendanceStatusAbsent, status)
	assert.Equal(t, ApprovalStatusRejected, approval)
	assert.True(t, approval.Terminal())
	assert.False(t, ApprovalStatusPending.Terminal())
}

func TestExcuseDecisionResultFlags(t *testing.T) {
	var empty *ExcuseDecisionResult
	assert.False(t, empty.Success())

	r := &ExcuseDecisionResult{UpdatedCount: 1, FailedEnrollmentIDs: []string{"enr-2"}}
	assert.True(t, r.Success())
	assert.True(t, r.Partial())

	r.FailedEnrollmentIDs = nil
	assert.False(t, r.Partial())
}

func TestSummaryAddIgnoresUnknown(t *testing.T) {
	var s AttendanceSummary
	s.Add(AttendanceStatusPresent, 3)
	s.Add(AttendanceStatusLate, 1)
	s.Add(AttendanceStatus("H"), 7)
	assert.Equal(t, AttendanceSummary{Present: 3, Late: 1, Total: 4}, s)
}

func TestDisplayName(t *testing.T) {
	e := DirectoryEntry{Role: RoleTeacher, FirstName: "Ana", LastName: "Cruz"}
	assert.Equal(t, "Teacher Ana Cruz", e.DisplayName())
	assert.Equal(t, "Student Ben", DirectoryEntry{Role: RoleStudent, FirstName: "Ben"}.DisplayName())
}
