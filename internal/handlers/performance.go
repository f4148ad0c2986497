package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prepwise/prepwise-backend/internal/apierr"
	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/requestdata"
	"github.com/prepwise/prepwise-backend/internal/services"
)

type PerformanceHandler struct {
	log     *logger.Logger
	perfSvc services.PerformanceService
}

func NewPerformanceHandler(log *logger.Logger, perfSvc services.PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{
		log:     log.With("handler", "PerformanceHandler"),
		perfSvc: perfSvc,
	}
}

// GET /api/performance?exam_id=
func (h *PerformanceHandler) Snapshot(c *gin.Context) {
	examID, err := uuid.Parse(c.Query("exam_id"))
	if err != nil {
		RespondError(c, apierr.Validation("exam_id is required and must be a valid id"))
		return
	}
	snapshot, err := h.perfSvc.Snapshot(c.Request.Context(), requestdata.UserID(c.Request.Context()), examID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, snapshot)
}
