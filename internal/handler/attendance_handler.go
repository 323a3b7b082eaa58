package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-attendance-api/internal/dto"
	"github.com/noah-isme/sma-attendance-api/internal/models"
	"github.com/noah-isme/sma-attendance-api/internal/service"
	"github.com/noah-isme/sma-attendance-api/pkg/response"
)

type attendanceRecorder interface {
	Mark(ctx context.Context, req service.MarkAttendanceRequest) (*models.AttendanceRecord, error)
}

type summaryReader interface {
	Counts(ctx context.Context, req service.SummaryRequest) (*models.AttendanceSummary, error)
}

// AttendanceHandler exposes attendance marking and rollups.
type AttendanceHandler struct {
	recorder attendanceRecorder
	summary  summaryReader
}

// NewAttendanceHandler builds a new handler.
func NewAttendanceHandler(recorder attendanceRecorder, summary summaryReader) *AttendanceHandler {
	return &AttendanceHandler{recorder: recorder, summary: summary}
}

// Mark godoc
// @Summary Mark a student's attendance for a class date
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkAttendanceRequest true "Attendance mark"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /attendance/mark [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid attendance payload"))
		return
	}
	req.ActingUserID = claims.UserID
	req.ActingRole = claims.Role
	if claims.Role == models.RoleTeacher {
		req.TeacherID = claims.TeacherID
	}

	record, err := h.recorder.Mark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewAttendanceRecordResponse(record), nil)
}

// Summary godoc
// @Summary Attendance counts per status
// @Tags Attendance
// @Produce json
// @Param studentId query string false "Student ID"
// @Param enrollmentId query string false "Enrollment ID"
// @Param course query []string false "Course name filter" collectionFormat(multi)
// @Success 200 {object} response.Envelope
// @Router /attendance/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	req := service.SummaryRequest{
		StudentID:    c.Query("studentId"),
		EnrollmentID: c.Query("enrollmentId"),
		CourseNames:  c.QueryArray("course"),
	}
	if claims.Role == models.RoleStudent {
		req.StudentID = claims.StudentID
		req.EnrollmentID = ""
	}

	summary, err := h.summary.Counts(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
