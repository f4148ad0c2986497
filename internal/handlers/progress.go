package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prepwise/prepwise-backend/internal/apierr"
	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/requestdata"
	"github.com/prepwise/prepwise-backend/internal/services"
)

type ProgressHandler struct {
	log         *logger.Logger
	testService services.TestService
}

func NewProgressHandler(log *logger.Logger, testService services.TestService) *ProgressHandler {
	return &ProgressHandler{
		log:         log.With("handler", "ProgressHandler"),
		testService: testService,
	}
}

// POST /api/tests/:id/progress
func (h *ProgressHandler) RecordPartial(c *gin.Context) {
	instanceID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	var req struct {
		QuestionID   uuid.UUID `json:"question_id"`
		Answer       string    `json:"answer"`
		TimeDeltaSec int       `json:"time_delta_sec"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body: %v", err))
		return
	}
	if req.QuestionID == uuid.Nil {
		RespondError(c, apierr.Validation("question_id is required"))
		return
	}
	if req.TimeDeltaSec < 0 {
		RespondError(c, apierr.Validation("time_delta_sec must not be negative"))
		return
	}

	err = h.testService.RecordProgress(c.Request.Context(), requestdata.UserID(c.Request.Context()), instanceID, req.QuestionID, req.Answer, req.TimeDeltaSec)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"recorded": true})
}

// GET /api/tests/:id/progress
func (h *ProgressHandler) Read(c *gin.Context) {
	instanceID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	progress, err := h.testService.ReadProgress(c.Request.Context(), requestdata.UserID(c.Request.Context()), instanceID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, progress)
}
