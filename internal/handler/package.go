package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/finicafferata/eme-studio-api/internal/model"
	"github.com/finicafferata/eme-studio-api/internal/repository"
)

// PackageHandler serves credit packages and payments: the student
// read surface plus the admin grant/record/sweep operations.  Credit
// consumption never happens here; only the booking service moves
// used_credits.
type PackageHandler struct {
	Packages *repository.PackageRepo
	Payments *repository.PaymentRepo
	Users    *repository.UserRepo
}

func NewPackageHandler(pkg *repository.PackageRepo, pay *repository.PaymentRepo, users *repository.UserRepo) *PackageHandler {
	if pkg == nil || pay == nil || users == nil {
		panic("nil dependency passed to NewPackageHandler")
	}
	return &PackageHandler{Packages: pkg, Payments: pay, Users: users}
}

// ListMine handles GET /v1/my-packages.
func (h *PackageHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	packages, err := h.Packages.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load packages"})
	}
	items := make([]echo.Map, 0, len(packages))
	for i := range packages {
		items = append(items, packageJSON(&packages[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

type grantPackageReq struct {
	UserID       uint64 `json:"user_id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	TotalCredits uint32 `json:"total_credits" validate:"required,min=1"`
	ExpiresAt    string `json:"expires_at" validate:"required"`
	Status       string `json:"status" validate:"omitempty,oneof=ACTIVE PENDING_PAYMENT"`
}

// Grant handles POST /v1/packages (admin): assign a credit package to
// a student.
func (h *PackageHandler) Grant(c echo.Context) error {
	var req grantPackageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	expires, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "expires_at must be RFC3339"})
	}
	status := req.Status
	if status == "" {
		status = model.PackageActive
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user lookup failed"})
	}

	p := &model.Package{
		UserID:       req.UserID,
		Name:         req.Name,
		TotalCredits: req.TotalCredits,
		Status:       status,
		ExpiresAt:    expires,
	}
	if err := h.Packages.Create(ctx, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create package failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": packageJSON(p)})
}

// ExpireSweep handles POST /v1/admin/packages/expire: bulk-flip ACTIVE
// packages past their expiry to EXPIRED.
func (h *PackageHandler) ExpireSweep(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	n, err := h.Packages.ExpireDue(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "expire sweep failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"expired": n})
}

type paymentReq struct {
	UserID    uint64  `json:"user_id" validate:"required"`
	PackageID *uint64 `json:"package_id"`
	Amount    string  `json:"amount" validate:"required"`
	Method    string  `json:"method" validate:"required"`
	Status    string  `json:"status" validate:"omitempty,oneof=COMPLETED PENDING REFUNDED"`
	Notes     *string `json:"notes"`
}

// RecordPayment handles POST /v1/payments (admin).  A COMPLETED
// payment that settles a PENDING_PAYMENT package activates it.
func (h *PackageHandler) RecordPayment(c echo.Context) error {
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !amount.IsPositive() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be a positive decimal"})
	}
	status := req.Status
	if status == "" {
		status = model.PaymentCompleted
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user lookup failed"})
	}
	if req.PackageID != nil {
		p, err := h.Packages.GetByID(ctx, *req.PackageID)
		if err != nil {
			if errors.Is(err, repository.ErrPackageNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "package not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "package lookup failed"})
		}
		if p.UserID != req.UserID {
			return c.JSON(http.StatusConflict, echo.Map{"error": "package belongs to a different user"})
		}
	}

	payment := &model.Payment{
		UserID:    req.UserID,
		PackageID: req.PackageID,
		Amount:    amount,
		Method:    strings.ToUpper(strings.TrimSpace(req.Method)),
		Status:    status,
		Notes:     req.Notes,
	}
	if err := h.Payments.Create(ctx, payment); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create payment failed"})
	}

	activated := false
	if req.PackageID != nil && status == model.PaymentCompleted {
		activated, err = h.Packages.ActivatePending(ctx, *req.PackageID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "activate package failed"})
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"payment": echo.Map{
			"id":         payment.ID,
			"user_id":    payment.UserID,
			"package_id": payment.PackageID,
			"amount":     payment.Amount.String(),
			"method":     payment.Method,
			"status":     payment.Status,
		},
		"package_activated": activated,
	})
}

// ListMyPayments handles GET /v1/my-payments.
func (h *PackageHandler) ListMyPayments(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	payments, err := h.Payments.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load payments"})
	}
	items := make([]echo.Map, 0, len(payments))
	for _, p := range payments {
		item := echo.Map{
			"id":         p.ID,
			"amount":     p.Amount.String(),
			"method":     p.Method,
			"status":     p.Status,
			"created_at": p.CreatedAt,
		}
		if p.PackageID != nil {
			item["package_id"] = *p.PackageID
		}
		items = append(items, item)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
