package booking

import (
	"context"
	"fmt"

	"github.com/finicafferata/eme-studio-api/internal/model"
)

// applyCreditDelta is the single authority over packages.used_credits.
// Booking consumption (+1), cancellation refunds (-1) and attendance
// reconciliation (±1) all land here, so the clamp and the USED_UP flip
// exist exactly once.  The counter is clamped to [0, TotalCredits];
// reaching the ceiling flips the package to USED_UP and dropping below
// it flips a USED_UP package back to ACTIVE.  Every change writes one
// audit row.  The passed pkg is updated in place.
func (s *Service) applyCreditDelta(ctx context.Context, tx Tx, pkg *model.Package, delta int, actor *uint64, detail string) error {
	if delta == 0 {
		return nil
	}
	used := int(pkg.UsedCredits) + delta
	if used < 0 {
		used = 0
	}
	if used > int(pkg.TotalCredits) {
		used = int(pkg.TotalCredits)
	}

	status := pkg.Status
	if used >= int(pkg.TotalCredits) {
		status = model.PackageUsedUp
	} else if pkg.Status == model.PackageUsedUp {
		status = model.PackageActive
	}

	if uint32(used) == pkg.UsedCredits && status == pkg.Status {
		return nil
	}
	if err := tx.UpdatePackageUsage(ctx, pkg.ID, uint32(used), status); err != nil {
		return err
	}
	pkg.UsedCredits = uint32(used)
	pkg.Status = status

	action := "credit.consume"
	if delta < 0 {
		action = "credit.restore"
	}
	return s.audit(ctx, tx, actor, action, "package", pkg.ID,
		fmt.Sprintf("%s; used=%d/%d status=%s", detail, used, pkg.TotalCredits, status))
}
