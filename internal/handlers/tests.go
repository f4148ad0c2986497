package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prepwise/prepwise-backend/internal/apierr"
	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/requestdata"
	"github.com/prepwise/prepwise-backend/internal/services"
)

type TestHandler struct {
	log           *logger.Logger
	testService   services.TestService
	submissionSvc services.SubmissionService
}

func NewTestHandler(log *logger.Logger, testService services.TestService, submissionSvc services.SubmissionService) *TestHandler {
	return &TestHandler{
		log:           log.With("handler", "TestHandler"),
		testService:   testService,
		submissionSvc: submissionSvc,
	}
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apierr.Validation("%s is not a valid id", name)
	}
	return id, nil
}

// POST /api/tests/custom
func (h *TestHandler) CreateCustom(c *gin.Context) {
	var req services.CustomTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	instance, err := h.testService.CreateCustom(c.Request.Context(), requestdata.UserID(c.Request.Context()), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, instance)
}

// POST /api/tests/revision
func (h *TestHandler) CreateRevision(c *gin.Context) {
	var req struct {
		ExamID uuid.UUID `json:"exam_id"`
		Count  int       `json:"count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	instance, err := h.testService.CreateRevision(c.Request.Context(), requestdata.UserID(c.Request.Context()), req.ExamID, req.Count)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, instance)
}

// POST /api/tests/pyq
func (h *TestHandler) CreatePYQ(c *gin.Context) {
	var req struct {
		ExamID        uuid.UUID `json:"exam_id"`
		ExamSessionID uuid.UUID `json:"exam_session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	instance, err := h.testService.CreatePYQ(c.Request.Context(), requestdata.UserID(c.Request.Context()), req.ExamID, req.ExamSessionID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, instance)
}

// POST /api/tests/smart
func (h *TestHandler) CreateSmartMock(c *gin.Context) {
	var req struct {
		ExamID uuid.UUID `json:"exam_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	result, err := h.testService.CreateSmartMock(c.Request.Context(), requestdata.UserID(c.Request.Context()), req.ExamID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, result)
}

// GET /api/tests/:id
func (h *TestHandler) GetForTaking(c *gin.Context) {
	instanceID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	view, err := h.testService.GetForTaking(c.Request.Context(), requestdata.UserID(c.Request.Context()), instanceID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, view)
}

// POST /api/tests/:id/submit
func (h *TestHandler) Submit(c *gin.Context) {
	instanceID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	result, err := h.submissionSvc.Submit(c.Request.Context(), requestdata.UserID(c.Request.Context()), instanceID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, result)
}

// GET /api/tests/:id/review
func (h *TestHandler) Review(c *gin.Context) {
	instanceID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	review, err := h.testService.Review(c.Request.Context(), requestdata.UserID(c.Request.Context()), instanceID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, review)
}
