package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unidept/timetable-api/internal/dto"
	"github.com/unidept/timetable-api/internal/models"
	"github.com/unidept/timetable-api/internal/service"
	appErrors "github.com/unidept/timetable-api/pkg/errors"
	"github.com/unidept/timetable-api/pkg/response"
)

// TimetableHandler handles the semester timetable engine endpoints.
type TimetableHandler struct {
	timetable *service.TimetableService
	conflicts *service.ConflictService
}

// NewTimetableHandler constructs a timetable handler.
func NewTimetableHandler(timetable *service.TimetableService, conflicts *service.ConflictService) *TimetableHandler {
	return &TimetableHandler{timetable: timetable, conflicts: conflicts}
}

// CheckConflicts godoc
// @Summary Check a candidate placement for conflicts
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.ConflictCheckRequest true "Candidate placement"
// @Success 200 {object} response.Envelope
// @Router /timetable/check [post]
func (h *TimetableHandler) CheckConflicts(c *gin.Context) {
	var req dto.ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	conflicts, err := h.conflicts.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ConflictCheckResponse{
		Conflicts:   conflicts,
		HasBlocking: models.HasBlocking(conflicts),
	}, nil)
}

// Generate godoc
// @Summary Generate the semester timetable
// @Description Runs the greedy placement pass over every unscheduled active section.
// @Tags Timetable
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /semesters/{id}/timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	result, err := h.timetable.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Validate godoc
// @Summary Validate the semester timetable
// @Tags Timetable
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /semesters/{id}/timetable/validate [post]
func (h *TimetableHandler) Validate(c *gin.Context) {
	result, err := h.timetable.Validate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Publish godoc
// @Summary Publish the semester timetable
// @Description Refuses with the conflict list when any blocking conflict remains.
// @Tags Timetable
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /semesters/{id}/timetable/publish [post]
func (h *TimetableHandler) Publish(c *gin.Context) {
	result, err := h.timetable.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Published {
		response.JSON(c, http.StatusConflict, result, nil)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Timetable godoc
// @Summary Get the semester timetable view
// @Tags Timetable
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /semesters/{id}/timetable [get]
func (h *TimetableHandler) Timetable(c *gin.Context) {
	view, err := h.timetable.Timetable(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
