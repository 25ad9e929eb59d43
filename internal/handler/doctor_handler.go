package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unidept/timetable-api/internal/models"
	"github.com/unidept/timetable-api/internal/service"
	appErrors "github.com/unidept/timetable-api/pkg/errors"
	"github.com/unidept/timetable-api/pkg/response"
)

// DoctorHandler handles teaching staff endpoints.
type DoctorHandler struct {
	service *service.DoctorService
}

// NewDoctorHandler constructs a doctor handler.
func NewDoctorHandler(svc *service.DoctorService) *DoctorHandler {
	return &DoctorHandler{service: svc}
}

// List godoc
// @Summary List doctors
// @Tags Doctors
// @Produce json
// @Param specialization query string false "Filter by specialization"
// @Param available query bool false "Filter by availability"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /doctors [get]
func (h *DoctorHandler) List(c *gin.Context) {
	var filter models.DoctorFilter
	filter.Specialization = c.Query("specialization")
	if raw := c.Query("available"); raw != "" {
		if available, err := strconv.ParseBool(raw); err == nil {
			filter.IsAvailable = &available
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	doctors, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctors, pagination)
}

// Get godoc
// @Summary Get doctor by id
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Envelope
// @Router /doctors/{id} [get]
func (h *DoctorHandler) Get(c *gin.Context) {
	doctor, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}

// Create godoc
// @Summary Create doctor
// @Tags Doctors
// @Accept json
// @Produce json
// @Param payload body service.CreateDoctorRequest true "Doctor payload"
// @Success 201 {object} response.Envelope
// @Router /doctors [post]
func (h *DoctorHandler) Create(c *gin.Context) {
	var req service.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doctor, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doctor)
}

// Update godoc
// @Summary Update doctor
// @Tags Doctors
// @Accept json
// @Produce json
// @Param id path string true "Doctor ID"
// @Param payload body service.UpdateDoctorRequest true "Doctor payload"
// @Success 200 {object} response.Envelope
// @Router /doctors/{id} [put]
func (h *DoctorHandler) Update(c *gin.Context) {
	var req service.UpdateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doctor, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}

// Delete godoc
// @Summary Delete doctor
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 204
// @Router /doctors/{id} [delete]
func (h *DoctorHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
