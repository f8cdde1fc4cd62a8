// Package handler contains the HTTP handlers of the API.  Handlers
// bind and validate request bodies, call into the repositories and the
// booking service, and translate domain errors into status codes.
package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/finicafferata/eme-studio-api/internal/model"
)

// dbTimeout bounds every database call issued from a handler.
const dbTimeout = 5 * time.Second

// getUserID extracts the user_id claim stored by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// getRole returns the role claim, empty when absent.
func getRole(c echo.Context) string {
	if r, ok := c.Get("role").(string); ok {
		return r
	}
	return ""
}

// isAdmin reports whether the caller authenticated as an admin.
func isAdmin(c echo.Context) bool { return getRole(c) == model.RoleAdmin }

// parseIDParam parses a positive numeric path parameter.
func parseIDParam(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// reservationJSON shapes a reservation for API responses.  Listing
// endpoints return repository.ReservationDetail instead, which carries
// joined class and user info.
func reservationJSON(res *model.Reservation) echo.Map {
	m := echo.Map{
		"id":          res.ID,
		"reference":   res.Reference,
		"class_id":    res.ClassID,
		"user_id":     res.UserID,
		"frame_size":  res.FrameSize,
		"status":      res.Status,
		"reserved_at": res.ReservedAt,
	}
	if res.PackageID != nil {
		m["package_id"] = *res.PackageID
	}
	if res.CancellationReason != nil {
		m["cancellation_reason"] = *res.CancellationReason
	}
	if res.ProgressNotes != nil {
		m["progress_notes"] = *res.ProgressNotes
	}
	if res.CheckedInAt != nil {
		m["checked_in_at"] = *res.CheckedInAt
	}
	if res.CancelledAt != nil {
		m["cancelled_at"] = *res.CancelledAt
	}
	return m
}

// classJSON shapes a class for API responses.
func classJSON(cl *model.Class) echo.Map {
	return echo.Map{
		"id":              cl.ID,
		"instructor_id":   cl.InstructorID,
		"title":           cl.Title,
		"starts_at":       cl.StartsAt,
		"ends_at":         cl.EndsAt,
		"capacity":        cl.Capacity,
		"small_capacity":  cl.SmallCapacity,
		"medium_capacity": cl.MediumCapacity,
		"large_capacity":  cl.LargeCapacity,
		"status":          cl.Status,
	}
}

// packageJSON shapes a package for API responses.
func packageJSON(p *model.Package) echo.Map {
	return echo.Map{
		"id":            p.ID,
		"user_id":       p.UserID,
		"name":          p.Name,
		"total_credits": p.TotalCredits,
		"used_credits":  p.UsedCredits,
		"remaining":     p.Remaining(),
		"status":        p.Status,
		"expires_at":    p.ExpiresAt,
	}
}
