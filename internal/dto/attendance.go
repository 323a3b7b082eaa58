package dto

import "github.com/noah-isme/sma-attendance-api/internal/models"

// AttendanceRecordResponse renders a record with calendar dates as YYYY-MM-DD.
type AttendanceRecordResponse struct {
	ID             string                  `json:"id"`
	EnrollmentID   string                  `json:"enrollment_id"`
	Date           string                  `json:"date"`
	Status         models.AttendanceStatus `json:"status"`
	Reason         *string                 `json:"reason,omitempty"`
	ApprovalStatus models.ApprovalStatus   `json:"approval_status"`
	ApprovedBy     *string                 `json:"approved_by,omitempty"`
	ApprovalDate   *string                 `json:"approval_date,omitempty"`
}

// NewAttendanceRecordResponse converts a stored record.
func NewAttendanceRecordResponse(r *models.AttendanceRecord) AttendanceRecordResponse {
	resp := AttendanceRecordResponse{
		ID:             r.ID,
		EnrollmentID:   r.EnrollmentID,
		Date:           r.Date.Format(models.DateLayout),
		Status:         r.Status,
		Reason:         r.Reason,
		ApprovalStatus: r.ApprovalStatus,
		ApprovedBy:     r.ApprovedBy,
	}
	if r.ApprovalDate != nil {
		d := r.ApprovalDate.Format(models.DateLayout)
		resp.ApprovalDate = &d
	}
	return resp
}

// PendingExcuseResponse is one entry of a teacher's review queue.
type PendingExcuseResponse struct {
	AttendanceRecordResponse
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	CourseName  string `json:"course_name"`
	Section     string `json:"section"`
	Program     string `json:"program"`
}

// NewPendingExcuseResponses converts the review queue.
func NewPendingExcuseResponses(items []models.PendingExcuse) []PendingExcuseResponse {
	out := make([]PendingExcuseResponse, 0, len(items))
	for i := range items {
		out = append(out, PendingExcuseResponse{
			AttendanceRecordResponse: NewAttendanceRecordResponse(&items[i].AttendanceRecord),
			StudentID:                items[i].StudentID,
			StudentName:              items[i].StudentName,
			CourseName:               items[i].CourseName,
			Section:                  items[i].Section,
			Program:                  items[i].Program,
		})
	}
	return out
}

// ExcuseDecisionResponse reports an approve/reject batch. Success is false
// when no enrollment was updated.
type ExcuseDecisionResponse struct {
	Decision             models.ExcuseDecision `json:"decision"`
	Date                 string                `json:"date"`
	Success              bool                  `json:"success"`
	Partial              bool                  `json:"partial"`
	UpdatedCount         int                   `json:"updated_count"`
	UpdatedEnrollmentIDs []string              `json:"updated_enrollment_ids"`
	FailedEnrollmentIDs  []string              `json:"failed_enrollment_ids"`
}

// NewExcuseDecisionResponse converts a decision result.
func NewExcuseDecisionResponse(r *models.ExcuseDecisionResult) ExcuseDecisionResponse {
	return ExcuseDecisionResponse{
		Decision:             r.Decision,
		Date:                 r.Date.Format(models.DateLayout),
		Success:              r.Success(),
		Partial:              r.Partial(),
		UpdatedCount:         r.UpdatedCount,
		UpdatedEnrollmentIDs: r.UpdatedEnrollmentIDs,
		FailedEnrollmentIDs:  r.FailedEnrollmentIDs,
	}
}
