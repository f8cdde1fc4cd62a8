package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finicafferata/eme-studio-api/internal/booking"
	"github.com/finicafferata/eme-studio-api/internal/config"
	"github.com/finicafferata/eme-studio-api/internal/model"
)

type fakeGuestUsers struct {
	user model.User
}

func (f *fakeGuestUsers) GetByID(_ context.Context, _ uint64) (model.User, error) {
	return f.user, nil
}

func (f *fakeGuestUsers) GetByEmail(_ context.Context, _ string) (model.User, error) {
	return f.user, nil
}

func (f *fakeGuestUsers) CreateGuest(_ context.Context, _, _ string) (uint64, error) {
	return f.user.ID, nil
}

type fakeGuestPackages struct {
	pkg            *model.Package
	includePending *bool
}

func (f *fakeGuestPackages) FindUsableForUser(_ context.Context, _ uint64, includePending bool) (*model.Package, error) {
	f.includePending = &includePending
	return f.pkg, nil
}

func (f *fakeGuestPackages) Create(_ context.Context, p *model.Package) error {
	p.ID = 99
	return nil
}

type fakeGuestBooker struct {
	result *booking.BookResult
	req    *booking.BookRequest
}

func (f *fakeGuestBooker) Book(_ context.Context, req booking.BookRequest) (*booking.BookResult, error) {
	f.req = &req
	return f.result, nil
}

type fakeClassGetter struct {
	class *model.Class
}

func (f *fakeClassGetter) GetByID(_ context.Context, _ uint64) (*model.Class, error) {
	return f.class, nil
}

func guestBookContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewRequestValidator()
	body := `{"email":"guest@example.com","name":"Guest","class_id":1,"frame_size":"SMALL"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/public/book-class", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// Package selection for guests must honor the pending-payment policy:
// with the flag off, a PENDING_PAYMENT package must never be picked
// over booking with an ACTIVE one.
func TestPublicBookClassPackageSelectionHonorsPolicy(t *testing.T) {
	for _, allow := range []bool{false, true} {
		c, rec := guestBookContext(t)

		packages := &fakeGuestPackages{pkg: &model.Package{
			ID: 5, UserID: 7, TotalCredits: 4, Status: model.PackageActive,
		}}
		h := &PublicBookingHandler{
			Cfg: config.Config{AllowPendingPayment: allow, PublicPackageCredits: 1},
			Booking: &fakeGuestBooker{result: &booking.BookResult{
				Outcome: booking.OutcomeWaitlisted, WaitlistPosition: 1,
			}},
			Users:    &fakeGuestUsers{user: model.User{ID: 7, Role: model.RoleStudent}},
			Packages: packages,
			Classes:  &fakeClassGetter{},
		}

		require.NoError(t, h.BookClass(c))
		assert.Equal(t, http.StatusAccepted, rec.Code)
		require.NotNil(t, packages.includePending, "allow=%t", allow)
		assert.Equal(t, allow, *packages.includePending, "allow=%t", allow)
	}
}

func TestPublicBookClassBooksWithFoundPackage(t *testing.T) {
	c, rec := guestBookContext(t)

	booker := &fakeGuestBooker{result: &booking.BookResult{
		Outcome: booking.OutcomeWaitlisted, WaitlistPosition: 2,
	}}
	pkgID := uint64(5)
	h := &PublicBookingHandler{
		Cfg:     config.Config{AllowPendingPayment: true, PublicPackageCredits: 1},
		Booking: booker,
		Users:   &fakeGuestUsers{user: model.User{ID: 7, Role: model.RoleStudent}},
		Packages: &fakeGuestPackages{pkg: &model.Package{
			ID: pkgID, UserID: 7, TotalCredits: 4, Status: model.PackageActive,
		}},
		Classes: &fakeClassGetter{},
	}

	require.NoError(t, h.BookClass(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, booker.req)
	assert.Equal(t, uint64(7), booker.req.UserID)
	require.NotNil(t, booker.req.PackageID)
	assert.Equal(t, pkgID, *booker.req.PackageID)
	assert.False(t, booker.req.AsAdmin)
}

func TestPublicBookClassRejectsNonStudentEmail(t *testing.T) {
	c, rec := guestBookContext(t)

	h := &PublicBookingHandler{
		Cfg:      config.Config{},
		Booking:  &fakeGuestBooker{},
		Users:    &fakeGuestUsers{user: model.User{ID: 3, Role: model.RoleInstructor}},
		Packages: &fakeGuestPackages{},
		Classes:  &fakeClassGetter{},
	}

	require.NoError(t, h.BookClass(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
