package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/finicafferata/eme-studio-api/internal/booking"
	"github.com/finicafferata/eme-studio-api/internal/metrics"
	"github.com/finicafferata/eme-studio-api/internal/repository"
)

// InstructorHandler serves the instructor surface: class rosters and
// attendance updates.  Attendance is the only path that moves
// reservations between CONFIRMED, CHECKED_IN, COMPLETED and NO_SHOW;
// the credit side effects live in the booking service.
type InstructorHandler struct {
	Booking      *booking.Service
	Reservations *repository.ReservationRepo
	Classes      *repository.ClassRepo
}

func NewInstructorHandler(b *booking.Service, res *repository.ReservationRepo, cls *repository.ClassRepo) *InstructorHandler {
	if b == nil || res == nil || cls == nil {
		panic("nil dependency passed to NewInstructorHandler")
	}
	return &InstructorHandler{Booking: b, Reservations: res, Classes: cls}
}

// ListClasses handles GET /v1/instructor/classes.
func (h *InstructorHandler) ListClasses(c echo.Context) error {
	instructorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	classes, err := h.Classes.ListByInstructor(c.Request().Context(), instructorID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load classes"})
	}
	items := make([]echo.Map, 0, len(classes))
	for i := range classes {
		items = append(items, classJSON(&classes[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Roster handles GET /v1/instructor/classes/:id/reservations.  Only
// the class owner may read the roster.
func (h *InstructorHandler) Roster(c echo.Context) error {
	instructorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	classID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	details, err := h.Reservations.ListByClassForInstructor(c.Request().Context(), classID, instructorID)
	if err != nil {
		if errors.Is(err, repository.ErrClassNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
		}
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load roster"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

type attendanceReq struct {
	ReservationID uint64  `json:"reservation_id" validate:"required"`
	Status        string  `json:"status" validate:"required,oneof=CONFIRMED CHECKED_IN COMPLETED NO_SHOW"`
	ProgressNotes *string `json:"progress_notes"`
}

// SetAttendance handles POST /v1/instructor/attendance.  Transitions
// into or out of the attended set move one credit through the linked
// package; the response reports that delta so clients can show it.
func (h *InstructorHandler) SetAttendance(c echo.Context) error {
	instructorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req attendanceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	result, err := h.Booking.SetAttendance(ctx, booking.AttendanceRequest{
		ReservationID: req.ReservationID,
		InstructorID:  instructorID,
		Status:        req.Status,
		ProgressNotes: req.ProgressNotes,
	})
	if err != nil {
		return bookingErrorJSON(c, err)
	}

	metrics.AttendanceUpdates.Inc()
	if result.CreditDelta > 0 {
		metrics.CreditMutations.WithLabelValues("consume").Inc()
	} else if result.CreditDelta < 0 {
		metrics.CreditMutations.WithLabelValues("restore").Inc()
	}

	resp := echo.Map{
		"reservation":  reservationJSON(result.Reservation),
		"credit_delta": result.CreditDelta,
	}
	if result.Package != nil {
		resp["package"] = packageJSON(result.Package)
	}
	return c.JSON(http.StatusOK, resp)
}
