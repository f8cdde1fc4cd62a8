package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/finicafferata/eme-studio-api/internal/booking"
	"github.com/finicafferata/eme-studio-api/internal/config"
	"github.com/finicafferata/eme-studio-api/internal/metrics"
	"github.com/finicafferata/eme-studio-api/internal/model"
	"github.com/finicafferata/eme-studio-api/internal/queue"
	"github.com/finicafferata/eme-studio-api/internal/repository"
	"github.com/finicafferata/eme-studio-api/internal/service"
)

// ReservationHandler serves booking, listing and cancellation of
// reservations.  All invariant-bearing mutations go through the
// booking service; this layer only binds requests, resolves the
// caller's role and shapes responses.
type ReservationHandler struct {
	Cfg          config.Config
	Booking      *booking.Service
	Reservations *repository.ReservationRepo
	Packages     *repository.PackageRepo
	Classes      *repository.ClassRepo
	Users        *repository.UserRepo
}

func NewReservationHandler(cfg config.Config, b *booking.Service, res *repository.ReservationRepo, pkg *repository.PackageRepo, cls *repository.ClassRepo, users *repository.UserRepo) *ReservationHandler {
	if b == nil || res == nil || pkg == nil || cls == nil || users == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Cfg: cfg, Booking: b, Reservations: res, Packages: pkg, Classes: cls, Users: users}
}

type bookReq struct {
	ClassID   uint64  `json:"class_id" validate:"required"`
	FrameSize string  `json:"frame_size" validate:"required,oneof=SMALL MEDIUM LARGE"`
	PackageID *uint64 `json:"package_id"`
	// Admin-only fields: book on behalf of a student, past capacity.
	UserID        uint64 `json:"user_id"`
	ForceOverride bool   `json:"force_override"`
}

// Book handles POST /v1/reservations.  Students book for themselves
// and land on the waitlist when their frame is full (202).  Admins may
// book on behalf of a student and are asked to confirm capacity
// overrides (409 with the current distribution).
func (h *ReservationHandler) Book(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	admin := isAdmin(c)
	targetUser := actorID
	if admin && req.UserID != 0 {
		targetUser = req.UserID
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	// No package named: charge the oldest-expiring usable one, if any.
	pkgID := req.PackageID
	if pkgID == nil {
		if p, err := h.Packages.FindUsableForUser(ctx, targetUser, h.Cfg.AllowPendingPayment); err == nil && p != nil {
			pkgID = &p.ID
		} else if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "package lookup failed"})
		}
	}

	result, err := h.Booking.Book(ctx, booking.BookRequest{
		ClassID:   req.ClassID,
		UserID:    targetUser,
		FrameSize: req.FrameSize,
		PackageID: pkgID,
		AsAdmin:   admin,
		Force:     admin && req.ForceOverride,
		ActorID:   actorID,
	})
	if err != nil {
		return bookingErrorJSON(c, err)
	}

	switch result.Outcome {
	case booking.OutcomeWaitlisted:
		metrics.WaitlistAdds.Inc()
		return c.JSON(http.StatusAccepted, echo.Map{
			"outcome":           result.Outcome,
			"waitlist_position": result.WaitlistPosition,
			"class_status":      result.ClassStatus,
		})
	default:
		via := "booked"
		if admin && req.ForceOverride {
			via = "override"
		}
		metrics.ReservationsCreated.WithLabelValues(via).Inc()
		if result.CreditsRemaining != nil {
			metrics.CreditMutations.WithLabelValues("consume").Inc()
		}
		h.publishConfirmed(result.Reservation)
		resp := echo.Map{
			"outcome":      result.Outcome,
			"reservation":  reservationJSON(result.Reservation),
			"class_status": result.ClassStatus,
			"distribution": result.Distribution,
		}
		if result.CreditsRemaining != nil {
			resp["credits_remaining"] = *result.CreditsRemaining
		}
		return c.JSON(http.StatusCreated, resp)
	}
}

// ListMy handles GET /v1/my-reservations.
func (h *ReservationHandler) ListMy(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.Reservations.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// Get handles GET /v1/reservations/:id.  Students only see their own
// reservations; admins see any.
func (h *ReservationHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	ctx := c.Request().Context()
	var detail *repository.ReservationDetail
	if isAdmin(c) {
		detail, err = h.Reservations.GetByID(ctx, resID)
	} else {
		detail, err = h.Reservations.GetByIDForUser(ctx, resID, userID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch reservation"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": detail})
}

type cancelReq struct {
	Status             string  `json:"status" validate:"required,oneof=CANCELLED"`
	CancellationReason *string `json:"cancellation_reason"`
	RestoreCredits     bool    `json:"restore_credits"`
	PolicyOverride     bool    `json:"policy_override"`
}

// Cancel handles PATCH /v1/reservations/:id.  The only status a client
// may request here is CANCELLED; attendance transitions live on the
// instructor endpoint.  Cancelling may restore the booking credit and
// promotes the waitlist head into the freed spot.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req cancelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	admin := isAdmin(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	result, err := h.Booking.Cancel(ctx, booking.CancelRequest{
		ReservationID:      resID,
		ActorID:            actorID,
		AsAdmin:            admin,
		CancellationReason: req.CancellationReason,
		RestoreCredits:     req.RestoreCredits,
		PolicyOverride:     admin && req.PolicyOverride,
	})
	if err != nil {
		return bookingErrorJSON(c, err)
	}

	metrics.ReservationsCancelled.Inc()
	if result.CreditsRestored {
		metrics.CreditMutations.WithLabelValues("restore").Inc()
	}
	if result.Promoted != nil {
		metrics.WaitlistPromotions.Inc()
		metrics.ReservationsCreated.WithLabelValues("promoted").Inc()
		h.publishPromoted(result.Promoted)
	}

	resp := echo.Map{
		"reservation":      reservationJSON(result.Reservation),
		"credits_restored": result.CreditsRestored,
		"class_status":     result.ClassStatus,
	}
	if result.Promoted != nil {
		resp["promoted"] = reservationJSON(result.Promoted)
	}
	return c.JSON(http.StatusOK, resp)
}

// Delete handles DELETE /v1/reservations/:id (admin).  The record is
// removed outright; credits are refunded unless the reservation was
// already cancelled and the freed spot goes to the waitlist head.
func (h *ReservationHandler) Delete(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	result, err := h.Booking.Delete(ctx, resID, actorID)
	if err != nil {
		return bookingErrorJSON(c, err)
	}
	if result.CreditsRestored {
		metrics.CreditMutations.WithLabelValues("restore").Inc()
	}
	if result.Promoted != nil {
		metrics.WaitlistPromotions.Inc()
		metrics.ReservationsCreated.WithLabelValues("promoted").Inc()
		h.publishPromoted(result.Promoted)
	}
	return c.NoContent(http.StatusNoContent)
}

// publishConfirmed emits a reservation.confirmed event in the
// background.  Publish failures are logged, never surfaced.
func (h *ReservationHandler) publishConfirmed(res *model.Reservation) {
	publishConfirmedEvent(h.Users, h.Classes, res)
}

// publishPromoted emits a waitlist.promoted event in the background.
func (h *ReservationHandler) publishPromoted(res *model.Reservation) {
	publishPromotedEvent(h.Users, h.Classes, res)
}

// Lookup interfaces for event enrichment and the guest booking flow;
// the repository types satisfy them.
type userGetter interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

type classGetter interface {
	GetByID(ctx context.Context, id uint64) (*model.Class, error)
}

func publishConfirmedEvent(users userGetter, classes classGetter, res *model.Reservation) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
		defer cancel()
		ev := queue.ReservationConfirmedEvent{
			ReservationID: res.ID,
			Reference:     res.Reference,
			UserID:        res.UserID,
			ClassID:       res.ClassID,
			FrameSize:     res.FrameSize,
			ConfirmedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		if u, err := users.GetByID(ctx, res.UserID); err == nil {
			ev.UserEmail = u.Email
			ev.UserName = u.Name
		}
		if cl, err := classes.GetByID(ctx, res.ClassID); err == nil {
			ev.ClassTitle = cl.Title
			ev.StartsAt = cl.StartsAt.Format(time.RFC3339)
			ev.EndsAt = cl.EndsAt.Format(time.RFC3339)
		}
		if err := service.PublishReservationConfirmed(ctx, ev); err != nil {
			log.Printf("reservation: publish confirmed event failed: %v", err)
		}
	}()
}

func publishPromotedEvent(users userGetter, classes classGetter, res *model.Reservation) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
		defer cancel()
		ev := queue.WaitlistPromotedEvent{
			ReservationID: res.ID,
			Reference:     res.Reference,
			UserID:        res.UserID,
			ClassID:       res.ClassID,
			FrameSize:     res.FrameSize,
			PromotedAt:    time.Now().UTC().Format(time.RFC3339),
		}
		if u, err := users.GetByID(ctx, res.UserID); err == nil {
			ev.UserEmail = u.Email
			ev.UserName = u.Name
		}
		if cl, err := classes.GetByID(ctx, res.ClassID); err == nil {
			ev.ClassTitle = cl.Title
			ev.StartsAt = cl.StartsAt.Format(time.RFC3339)
		}
		if err := service.PublishWaitlistPromoted(ctx, ev); err != nil {
			log.Printf("reservation: publish promoted event failed: %v", err)
		}
	}()
}

// bookingErrorJSON maps booking service errors onto the HTTP taxonomy.
func bookingErrorJSON(c echo.Context, err error) error {
	var override *booking.OverrideRequiredError
	if errors.As(err, &override) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":             "frame capacity exhausted",
			"override_required": true,
			"distribution":      override.Distribution,
			"capacities":        override.Capacities,
		})
	}
	switch {
	case errors.Is(err, booking.ErrClassNotFound),
		errors.Is(err, booking.ErrReservationNotFound),
		errors.Is(err, booking.ErrPackageNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrForbidden),
		errors.Is(err, booking.ErrPackageNotOwned):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, booking.ErrDuplicateReservation),
		errors.Is(err, booking.ErrAlreadyWaitlisted),
		errors.Is(err, booking.ErrClassNotBookable),
		errors.Is(err, booking.ErrAlreadyCancelled),
		errors.Is(err, booking.ErrReservationCancelled),
		errors.Is(err, booking.ErrPackageInactive),
		errors.Is(err, booking.ErrPackageExpired),
		errors.Is(err, booking.ErrPackageExhausted):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrInvalidFrameSize),
		errors.Is(err, booking.ErrInvalidStatus):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation failed"})
	}
}
