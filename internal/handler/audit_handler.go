package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unidept/timetable-api/internal/service"
	"github.com/unidept/timetable-api/pkg/response"
)

// AuditHandler exposes the timetable audit trail.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler constructs an audit handler.
func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{service: svc}
}

// Trail godoc
// @Summary List timetable operations for a semester
// @Tags Audit
// @Produce json
// @Param id path string true "Semester ID"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /semesters/{id}/audit [get]
func (h *AuditHandler) Trail(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.service.Trail(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
