package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ziel-classes-api/internal/middleware"
	"github.com/noah-isme/ziel-classes-api/internal/models"
	"github.com/noah-isme/ziel-classes-api/internal/scheduling"
	"github.com/noah-isme/ziel-classes-api/internal/service"
	appErrors "github.com/noah-isme/ziel-classes-api/pkg/errors"
	"github.com/noah-isme/ziel-classes-api/pkg/response"
)

type bookingService interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	Create(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error)
	Update(ctx context.Context, id string, req models.UpdateBookingRequest) (*models.Booking, error)
	Delete(ctx context.Context, id string) error
}

type slotService interface {
	AvailableSlots(ctx context.Context, teacherID, date string) ([]scheduling.Slot, error)
	AvailableStudents(ctx context.Context, query service.AvailableStudentsQuery) ([]models.AvailableStudent, error)
}

type bookingExporter interface {
	ExportBookings(ctx context.Context, filter models.BookingFilter, format string) (*service.ExportFile, error)
}

// BookingHandler exposes lesson bookings under /timeslots.
type BookingHandler struct {
	bookings bookingService
	slots    slotService
	exports  bookingExporter
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings bookingService, slots slotService, exports bookingExporter) *BookingHandler {
	return &BookingHandler{bookings: bookings, slots: slots, exports: exports}
}

// List godoc
// @Summary List bookings
// @Tags Timeslots
// @Produce json
// @Param teacher_id query string false "Teacher ID"
// @Param student_id query string false "Student ID"
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Param status query string false "scheduled, completed or cancelled"
// @Success 200 {object} response.Envelope
// @Router /timeslots [get]
func (h *BookingHandler) List(c *gin.Context) {
	filter, err := bookingFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	bookings, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	response.List(c, bookings, len(bookings))
}

// Create godoc
// @Summary Book a lesson
// @Description Rejects the request when the teacher is unavailable or either party already has an overlapping scheduled booking.
// @Tags Timeslots
// @Accept json
// @Produce json
// @Param payload body models.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timeslots [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	booking, err := h.bookings.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Set(middleware.AuditResourceIDKey, booking.ID)
	response.Created(c, booking)
}

// Update godoc
// @Summary Update booking
// @Tags Timeslots
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body models.UpdateBookingRequest true "Booking patch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timeslots/{id} [put]
func (h *BookingHandler) Update(c *gin.Context) {
	var req models.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	booking, err := h.bookings.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Delete godoc
// @Summary Delete booking
// @Tags Timeslots
// @Param id path string true "Booking ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /timeslots/{id} [delete]
func (h *BookingHandler) Delete(c *gin.Context) {
	if err := h.bookings.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AvailableSlots godoc
// @Summary Slot availability for a teacher
// @Tags Timeslots
// @Produce json
// @Param teacher_id query string true "Teacher ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /timeslots/available [get]
func (h *BookingHandler) AvailableSlots(c *gin.Context) {
	slots, err := h.slots.AvailableSlots(c.Request.Context(), strings.TrimSpace(c.Query("teacher_id")), strings.TrimSpace(c.Query("date")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// AvailableStudents godoc
// @Summary Students free for a lesson window
// @Tags Timeslots
// @Produce json
// @Param teacher_id query string true "Teacher ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param start_time query string true "Start (HH:MM)"
// @Param end_time query string true "End (HH:MM)"
// @Param exclude_booked query bool false "Hide students with an overlapping booking (default true)"
// @Success 200 {object} response.Envelope
// @Router /timeslots/available-students [get]
func (h *BookingHandler) AvailableStudents(c *gin.Context) {
	excludeBooked := true
	if raw := c.Query("exclude_booked"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exclude_booked must be true or false"))
			return
		}
		excludeBooked = parsed
	}
	students, err := h.slots.AvailableStudents(c.Request.Context(), service.AvailableStudentsQuery{
		TeacherID:     strings.TrimSpace(c.Query("teacher_id")),
		Date:          strings.TrimSpace(c.Query("date")),
		StartTime:     strings.TrimSpace(c.Query("start_time")),
		EndTime:       strings.TrimSpace(c.Query("end_time")),
		ExcludeBooked: excludeBooked,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if students == nil {
		students = []models.AvailableStudent{}
	}
	response.List(c, students, len(students))
}

// Export godoc
// @Summary Export bookings
// @Tags Timeslots
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv, pdf or xlsx (default csv)"
// @Param teacher_id query string false "Teacher ID"
// @Param student_id query string false "Student ID"
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Param status query string false "scheduled, completed or cancelled"
// @Success 200 {file} file
// @Router /timeslots/export [get]
func (h *BookingHandler) Export(c *gin.Context) {
	filter, err := bookingFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.ExportBookings(c.Request.Context(), filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}

func bookingFilterFromQuery(c *gin.Context) (models.BookingFilter, error) {
	filter := models.BookingFilter{
		TeacherID: strings.TrimSpace(c.Query("teacher_id")),
		StudentID: strings.TrimSpace(c.Query("student_id")),
		Status:    models.BookingStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
	}
	for _, param := range []struct {
		name string
		dst  **scheduling.Date
	}{
		{"start_date", &filter.StartDate},
		{"end_date", &filter.EndDate},
	} {
		raw := strings.TrimSpace(c.Query(param.name))
		if raw == "" {
			continue
		}
		date, err := scheduling.ParseDate(raw)
		if err != nil {
			return filter, appErrors.Wrap(err, appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status, param.name+" must be YYYY-MM-DD")
		}
		*param.dst = &date
	}
	return filter, nil
}
