package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/finicafferata/eme-studio-api/internal/booking"
	"github.com/finicafferata/eme-studio-api/internal/model"
	"github.com/finicafferata/eme-studio-api/internal/repository"
)

// ClassHandler serves the public class catalogue and the admin CRUD.
type ClassHandler struct {
	Classes      *repository.ClassRepo
	Reservations *repository.ReservationRepo
	Waitlists    *repository.WaitlistRepo
	Users        *repository.UserRepo
}

func NewClassHandler(cls *repository.ClassRepo, res *repository.ReservationRepo, wl *repository.WaitlistRepo, users *repository.UserRepo) *ClassHandler {
	if cls == nil || res == nil || wl == nil || users == nil {
		panic("nil dependency passed to NewClassHandler")
	}
	return &ClassHandler{Classes: cls, Reservations: res, Waitlists: wl, Users: users}
}

// List handles GET /v1/classes: upcoming, non-cancelled classes.
func (h *ClassHandler) List(c echo.Context) error {
	classes, err := h.Classes.ListUpcoming(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load classes"})
	}
	items := make([]echo.Map, 0, len(classes))
	for i := range classes {
		items = append(items, classJSON(&classes[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/classes/:id.
func (h *ClassHandler) Get(c echo.Context) error {
	classID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	cl, err := h.Classes.GetByID(c.Request().Context(), classID)
	if err != nil {
		if errors.Is(err, repository.ErrClassNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load class"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": classJSON(cl)})
}

// Availability handles GET /v1/classes/:id/availability.  It reports
// booked versus declared capacity per frame size plus the waitlist
// length, the data a guest needs before calling the public booking
// endpoint.
func (h *ClassHandler) Availability(c echo.Context) error {
	classID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	ctx := c.Request().Context()
	cl, err := h.Classes.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, repository.ErrClassNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load class"})
	}
	sizes, err := h.Reservations.ActiveFrameSizes(ctx, classID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load occupancy"})
	}
	entries, err := h.Waitlists.ListByClass(ctx, classID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load waitlist"})
	}

	caps := booking.CapacitiesOf(cl)
	var dist booking.Distribution
	for _, s := range sizes {
		switch s {
		case booking.FrameSmall:
			dist.Small++
		case booking.FrameMedium:
			dist.Medium++
		case booking.FrameLarge:
			dist.Large++
		}
	}
	frame := func(capacity, booked int) echo.Map {
		free := capacity - booked
		if free < 0 {
			free = 0
		}
		return echo.Map{"capacity": capacity, "booked": booked, "available": free}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"class_id":      cl.ID,
		"status":        cl.Status,
		"capacity":      cl.Capacity,
		"booked":        dist.Total(),
		"waitlist_size": len(entries),
		"frames": echo.Map{
			"SMALL":  frame(caps.Small, dist.Small),
			"MEDIUM": frame(caps.Medium, dist.Medium),
			"LARGE":  frame(caps.Large, dist.Large),
		},
	})
}

type classReq struct {
	InstructorID   uint64 `json:"instructor_id" validate:"required"`
	Title          string `json:"title" validate:"required"`
	StartsAt       string `json:"starts_at" validate:"required"`
	EndsAt         string `json:"ends_at" validate:"required"`
	Capacity       uint32 `json:"capacity" validate:"required,min=1"`
	SmallCapacity  uint32 `json:"small_capacity"`
	MediumCapacity uint32 `json:"medium_capacity"`
	LargeCapacity  uint32 `json:"large_capacity"`
}

func (r *classReq) parse() (starts, ends time.Time, err error) {
	starts, err = time.Parse(time.RFC3339, r.StartsAt)
	if err != nil {
		return
	}
	ends, err = time.Parse(time.RFC3339, r.EndsAt)
	return
}

// Create handles POST /v1/classes (admin).  Sub-capacities must add up
// to the overall capacity and the instructor must exist with the
// INSTRUCTOR role.
func (h *ClassHandler) Create(c echo.Context) error {
	var req classReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	starts, ends, err := req.parse()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at/ends_at must be RFC3339"})
	}
	if !ends.After(starts) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be after starts_at"})
	}
	if req.SmallCapacity+req.MediumCapacity+req.LargeCapacity != req.Capacity {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "frame capacities must add up to capacity"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	instructor, err := h.Users.GetByID(ctx, req.InstructorID)
	if err != nil || instructor.Role != model.RoleInstructor {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "instructor not found"})
	}

	cl := &model.Class{
		InstructorID:   req.InstructorID,
		Title:          req.Title,
		StartsAt:       starts,
		EndsAt:         ends,
		Capacity:       req.Capacity,
		SmallCapacity:  req.SmallCapacity,
		MediumCapacity: req.MediumCapacity,
		LargeCapacity:  req.LargeCapacity,
	}
	if err := h.Classes.Create(ctx, cl); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create class failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": classJSON(cl)})
}

type classPatchReq struct {
	Title          *string `json:"title"`
	StartsAt       *string `json:"starts_at"`
	EndsAt         *string `json:"ends_at"`
	Capacity       *uint32 `json:"capacity"`
	SmallCapacity  *uint32 `json:"small_capacity"`
	MediumCapacity *uint32 `json:"medium_capacity"`
	LargeCapacity  *uint32 `json:"large_capacity"`
	Status         *string `json:"status" validate:"omitempty,oneof=SCHEDULED CANCELLED COMPLETED"`
}

// Update handles PATCH /v1/classes/:id (admin).  Only the supplied
// fields change; the FULL status is owned by the booking service and
// cannot be set here.
func (h *ClassHandler) Update(c echo.Context) error {
	classID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	var req classPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	cl, err := h.Classes.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, repository.ErrClassNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load class"})
	}

	if req.Title != nil {
		cl.Title = *req.Title
	}
	if req.StartsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.StartsAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
		}
		cl.StartsAt = t
	}
	if req.EndsAt != nil {
		t, err := time.Parse(time.RFC3339, *req.EndsAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be RFC3339"})
		}
		cl.EndsAt = t
	}
	if !cl.EndsAt.After(cl.StartsAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be after starts_at"})
	}
	if req.Capacity != nil {
		cl.Capacity = *req.Capacity
	}
	if req.SmallCapacity != nil {
		cl.SmallCapacity = *req.SmallCapacity
	}
	if req.MediumCapacity != nil {
		cl.MediumCapacity = *req.MediumCapacity
	}
	if req.LargeCapacity != nil {
		cl.LargeCapacity = *req.LargeCapacity
	}
	if cl.SmallCapacity+cl.MediumCapacity+cl.LargeCapacity != cl.Capacity {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "frame capacities must add up to capacity"})
	}
	if req.Status != nil {
		cl.Status = *req.Status
	}

	if err := h.Classes.Update(ctx, cl); err != nil && !errors.Is(err, repository.ErrNoChange) {
		if errors.Is(err, repository.ErrClassNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update class failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": classJSON(cl)})
}

// Delete handles DELETE /v1/classes/:id (admin).  Classes with
// reservations cannot be deleted; cancel them instead.
func (h *ClassHandler) Delete(c echo.Context) error {
	classID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Classes.Delete(ctx, classID); err != nil {
		if errors.Is(err, repository.ErrClassNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
		}
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "class has reservations"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete class failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
