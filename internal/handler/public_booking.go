package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/finicafferata/eme-studio-api/internal/booking"
	"github.com/finicafferata/eme-studio-api/internal/config"
	"github.com/finicafferata/eme-studio-api/internal/metrics"
	"github.com/finicafferata/eme-studio-api/internal/model"
	"github.com/finicafferata/eme-studio-api/internal/repository"
)

// Collaborators of the guest flow, satisfied by the repository types
// and the booking service.
type guestUsers interface {
	userGetter
	GetByEmail(ctx context.Context, email string) (model.User, error)
	CreateGuest(ctx context.Context, email, name string) (uint64, error)
}

type guestPackages interface {
	FindUsableForUser(ctx context.Context, userID uint64, includePending bool) (*model.Package, error)
	Create(ctx context.Context, p *model.Package) error
}

type guestBooker interface {
	Book(ctx context.Context, req booking.BookRequest) (*booking.BookResult, error)
}

// PublicBookingHandler serves the unauthenticated booking path: a
// guest supplies an email and a name, gets a PENDING_ACTIVATION
// account and a pay-later package, and books like any student.  No
// money changes hands here; the studio settles payment in person.
type PublicBookingHandler struct {
	Cfg      config.Config
	Booking  guestBooker
	Users    guestUsers
	Packages guestPackages
	Classes  classGetter
}

func NewPublicBookingHandler(cfg config.Config, b *booking.Service, users *repository.UserRepo, pkg *repository.PackageRepo, cls *repository.ClassRepo) *PublicBookingHandler {
	if b == nil || users == nil || pkg == nil || cls == nil {
		panic("nil dependency passed to NewPublicBookingHandler")
	}
	return &PublicBookingHandler{Cfg: cfg, Booking: b, Users: users, Packages: pkg, Classes: cls}
}

type publicBookReq struct {
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name" validate:"required"`
	ClassID   uint64 `json:"class_id" validate:"required"`
	FrameSize string `json:"frame_size" validate:"required,oneof=SMALL MEDIUM LARGE"`
}

// BookClass handles POST /v1/public/book-class.
func (h *PublicBookingHandler) BookClass(c echo.Context) error {
	var req publicBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	// Find or create the guest account.
	var userID uint64
	u, err := h.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role != model.RoleStudent {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email is not a student account"})
		}
		userID = u.ID
	case errors.Is(err, sql.ErrNoRows):
		userID, err = h.Users.CreateGuest(ctx, email, name)
		if err != nil {
			if errors.Is(err, repository.ErrEmailExists) {
				return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create guest failed"})
		}
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user lookup failed"})
	}

	// Find a usable package or grant a single-credit pay-later one.
	// Pending packages are only candidates when policy lets them back
	// bookings, otherwise the booking service would reject the pick.
	pkg, err := h.Packages.FindUsableForUser(ctx, userID, h.Cfg.AllowPendingPayment)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "package lookup failed"})
	}
	if pkg == nil {
		cl, err := h.Classes.GetByID(ctx, req.ClassID)
		if err != nil {
			if errors.Is(err, repository.ErrClassNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "class lookup failed"})
		}
		credits := uint32(h.Cfg.PublicPackageCredits)
		if credits == 0 {
			credits = 1
		}
		pkg = &model.Package{
			UserID:       userID,
			Name:         "Pay-later single class",
			TotalCredits: credits,
			Status:       model.PackagePendingPayment,
			// The credit must survive until the class happens.
			ExpiresAt: cl.StartsAt.Add(24 * time.Hour),
		}
		if err := h.Packages.Create(ctx, pkg); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create package failed"})
		}
	}

	result, err := h.Booking.Book(ctx, booking.BookRequest{
		ClassID:   req.ClassID,
		UserID:    userID,
		FrameSize: req.FrameSize,
		PackageID: &pkg.ID,
		ActorID:   userID,
	})
	if err != nil {
		return bookingErrorJSON(c, err)
	}

	if result.Outcome == booking.OutcomeWaitlisted {
		metrics.WaitlistAdds.Inc()
		return c.JSON(http.StatusAccepted, echo.Map{
			"outcome":           result.Outcome,
			"waitlist_position": result.WaitlistPosition,
			"user_id":           userID,
		})
	}

	metrics.ReservationsCreated.WithLabelValues("booked").Inc()
	if result.CreditsRemaining != nil {
		metrics.CreditMutations.WithLabelValues("consume").Inc()
		pkg.UsedCredits = pkg.TotalCredits - *result.CreditsRemaining
	}
	publishConfirmedEvent(h.Users, h.Classes, result.Reservation)

	resp := echo.Map{
		"outcome":      result.Outcome,
		"reservation":  reservationJSON(result.Reservation),
		"class_status": result.ClassStatus,
		"package":      packageJSON(pkg),
		"user_id":      userID,
	}
	if result.CreditsRemaining != nil {
		resp["credits_remaining"] = *result.CreditsRemaining
	}
	return c.JSON(http.StatusCreated, resp)
}
