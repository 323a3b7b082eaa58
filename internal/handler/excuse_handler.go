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

type excuseService interface {
	Submit(ctx context.Context, req service.SubmitExcuseRequest) (*models.AttendanceRecord, error)
	Approve(ctx context.Context, req service.ExcuseDecisionRequest) (*models.ExcuseDecisionResult, error)
	Reject(ctx context.Context, req service.ExcuseDecisionRequest) (*models.ExcuseDecisionResult, error)
	Pending(ctx context.Context, teacherID string) ([]models.PendingExcuse, error)
}

// ExcuseHandler exposes the excuse workflow.
type ExcuseHandler struct {
	service excuseService
}

// NewExcuseHandler builds a new handler.
func NewExcuseHandler(service excuseService) *ExcuseHandler {
	return &ExcuseHandler{service: service}
}

// Submit godoc
// @Summary Submit an excuse for an absence
// @Tags Excuses
// @Accept json
// @Produce json
// @Param payload body service.SubmitExcuseRequest true "Excuse"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /excuses [post]
func (h *ExcuseHandler) Submit(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req service.SubmitExcuseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid excuse payload"))
		return
	}
	req.ActingUserID = claims.UserID
	req.StudentID = claims.StudentID

	record, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewAttendanceRecordResponse(record))
}

// Pending godoc
// @Summary List excuses awaiting review
// @Tags Excuses
// @Produce json
// @Param teacherId query string false "Teacher ID (admins only)"
// @Success 200 {object} response.Envelope
// @Router /excuses/pending [get]
func (h *ExcuseHandler) Pending(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	teacherID := c.Query("teacherId")
	if claims.Role == models.RoleTeacher {
		teacherID = claims.TeacherID
	}
	items, err := h.service.Pending(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewPendingExcuseResponses(items), nil)
}

// Approve godoc
// @Summary Approve an excuse
// @Tags Excuses
// @Accept json
// @Produce json
// @Param payload body service.ExcuseDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /excuses/approve [post]
func (h *ExcuseHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject an excuse
// @Tags Excuses
// @Accept json
// @Produce json
// @Param payload body service.ExcuseDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /excuses/reject [post]
func (h *ExcuseHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

func (h *ExcuseHandler) decide(c *gin.Context, apply func(context.Context, service.ExcuseDecisionRequest) (*models.ExcuseDecisionResult, error)) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req service.ExcuseDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid excuse decision payload"))
		return
	}
	req.ActingUserID = claims.UserID
	req.ActingRole = claims.Role
	if claims.Role == models.RoleTeacher {
		req.TeacherID = claims.TeacherID
	}

	result, err := apply(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewExcuseDecisionResponse(result), nil)
}
