package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unidept/timetable-api/internal/service"
	"github.com/unidept/timetable-api/pkg/response"
)

// ExportHandler handles timetable export endpoints.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Timetable godoc
// @Summary Export the semester timetable
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Semester ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /semesters/{id}/timetable/export [get]
func (h *ExportHandler) Timetable(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	result, err := h.service.Timetable(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
