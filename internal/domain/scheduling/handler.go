package scheduling

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Shift administration
	shiftAdmin := api.Group("", auth.RequireRole("admin", "receptionist"))
	shiftAdmin.POST("/shifts", h.CreateShift)
	shiftAdmin.PUT("/shifts/:id", h.UpdateShift)
	shiftAdmin.DELETE("/shifts/:id", h.DeleteShift)
	shiftAdmin.POST("/doctors/:id/slots", h.MaterializeSlots)

	// Read endpoints
	read := api.Group("", auth.RequireRole("admin", "receptionist", "doctor", "patient"))
	read.GET("/shifts/:id", h.GetShift)
	read.GET("/doctors/:id/shifts", h.ListShifts)
	read.GET("/doctors/:id/slots", h.ListSlots)
	read.GET("/doctors/:id/slots/preview", h.PreviewSlots)
	read.GET("/slots/:id", h.GetSlot)
	read.GET("/appointments/:id", h.GetAppointment)
	read.GET("/doctors/:id/appointments", h.ListDoctorAppointments)
	read.GET("/patients/:id/appointments", h.ListPatientAppointments)

	// Booking
	book := api.Group("", auth.RequireRole("admin", "receptionist", "patient"))
	book.POST("/bookings", h.BookSlot)
	book.POST("/bookings/adhoc", h.BookAdHoc)
	book.POST("/appointments/:id/cancel", h.CancelAppointment)

	// Staff appointment lifecycle
	staff := api.Group("", auth.RequireRole("admin", "receptionist", "doctor"))
	staff.POST("/appointments/:id/accept", h.AcceptAppointment)
	staff.POST("/appointments/:id/complete", h.CompleteAppointment)
	staff.PUT("/appointments/:id/reschedule", h.RescheduleAppointment)
}

// httpError translates domain errors into HTTP status codes. Conflicts are
// 409 so clients can re-fetch availability and prompt the user to choose
// again; nothing is retried server-side.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrSlotNotFound),
		errors.Is(err, ErrShiftNotFound),
		errors.Is(err, ErrAppointmentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSlotAlreadyBooked),
		errors.Is(err, ErrOverlapConflict),
		errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidInterval):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAdHocDisabled):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func dateParam(c echo.Context) (Date, error) {
	raw := c.QueryParam("date")
	if raw == "" {
		return Date{}, echo.NewHTTPError(http.StatusBadRequest, "date query parameter is required")
	}
	d, err := ParseDate(raw)
	if err != nil {
		return Date{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return d, nil
}

// -- Shift handlers --

func (h *Handler) CreateShift(c echo.Context) error {
	var w WorkShift
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateShift(c.Request().Context(), &w); err != nil {
		if errors.Is(err, ErrInvalidInterval) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) GetShift(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	w, err := h.svc.GetShift(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) UpdateShift(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var w WorkShift
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	w.ID = id
	if err := h.svc.UpdateShift(c.Request().Context(), &w); err != nil {
		if errors.Is(err, ErrShiftNotFound) || errors.Is(err, ErrInvalidInterval) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) DeleteShift(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteShift(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListShifts(c echo.Context) error {
	doctorID, err := pathID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListShiftsByDoctor(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Slot handlers --

func (h *Handler) PreviewSlots(c echo.Context) error {
	doctorID, err := pathID(c)
	if err != nil {
		return err
	}
	date, err := dateParam(c)
	if err != nil {
		return err
	}
	slots, err := h.svc.PreviewSlots(c.Request().Context(), doctorID, date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": slots})
}

func (h *Handler) MaterializeSlots(c echo.Context) error {
	doctorID, err := pathID(c)
	if err != nil {
		return err
	}
	date, err := dateParam(c)
	if err != nil {
		return err
	}
	created, err := h.svc.MaterializeSlots(c.Request().Context(), doctorID, date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]int{"created": created})
}

func (h *Handler) ListSlots(c echo.Context) error {
	doctorID, err := pathID(c)
	if err != nil {
		return err
	}
	date, err := dateParam(c)
	if err != nil {
		return err
	}
	onlyAvailable := c.QueryParam("available") == "true"
	slots, err := h.svc.ListSlots(c.Request().Context(), doctorID, date, onlyAvailable)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": slots})
}

func (h *Handler) GetSlot(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	sl, err := h.svc.GetSlot(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sl)
}

// -- Booking handlers --

type bookRequest struct {
	SlotID          uuid.UUID      `json:"slot_id"`
	PatientID       uuid.UUID      `json:"patient_id"`
	ServiceName     *string        `json:"service_name,omitempty"`
	Price           *float64       `json:"price,omitempty"`
	DurationMinutes *int           `json:"duration_minutes,omitempty"`
	Meta            map[string]any `json:"meta,omitempty"`
}

func (h *Handler) BookSlot(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.SlotID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "slot_id is required")
	}
	appt := &Appointment{
		PatientID:       req.PatientID,
		ServiceName:     req.ServiceName,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		Meta:            req.Meta,
	}
	if err := h.svc.BookSlot(c.Request().Context(), req.SlotID, appt); err != nil {
		if errors.Is(err, ErrSlotNotFound) || errors.Is(err, ErrSlotAlreadyBooked) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, appt)
}

type adHocRequest struct {
	DoctorID        uuid.UUID      `json:"doctor_id"`
	PatientID       uuid.UUID      `json:"patient_id"`
	Start           time.Time      `json:"start"`
	End             time.Time      `json:"end"`
	ServiceName     *string        `json:"service_name,omitempty"`
	Price           *float64       `json:"price,omitempty"`
	DurationMinutes *int           `json:"duration_minutes,omitempty"`
	Meta            map[string]any `json:"meta,omitempty"`
}

func (h *Handler) BookAdHoc(c echo.Context) error {
	var req adHocRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt := Appointment{
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		Start:           req.Start,
		End:             req.End,
		ServiceName:     req.ServiceName,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		Meta:            req.Meta,
	}
	if err := h.svc.BookAdHoc(c.Request().Context(), &appt); err != nil {
		if errors.Is(err, ErrOverlapConflict) || errors.Is(err, ErrInvalidInterval) || errors.Is(err, ErrAdHocDisabled) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, appt)
}

// -- Appointment handlers --

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListDoctorAppointments(c echo.Context) error {
	doctorID, err := pathID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointmentsByDoctor(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListPatientAppointments(c echo.Context) error {
	patientID, err := pathID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointmentsByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) AcceptAppointment(c echo.Context) error {
	return h.transition(c, h.svc.AcceptAppointment)
}

func (h *Handler) CompleteAppointment(c echo.Context) error {
	return h.transition(c, h.svc.CompleteAppointment)
}

type cancelRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// CancelAppointment accepts an optional JSON body carrying the reason.
func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req cancelRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	a, err := h.svc.CancelAppointment(c.Request().Context(), id, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) transition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) (*Appointment, error)) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := fn(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

type rescheduleRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (h *Handler) RescheduleAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.RescheduleAppointment(c.Request().Context(), id, req.Start, req.End)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}
