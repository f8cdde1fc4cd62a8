package booking

import (
	"context"
	"time"

	"github.com/finicafferata/eme-studio-api/internal/model"
)

// memStore is the in-memory Store used by the tests in this package.
// Begin hands out a memTx that writes straight through to the store;
// the service only mutates after all checks pass, so an un-undoable
// Rollback is acceptable here.
type memStore struct {
	classes      map[uint64]*model.Class
	reservations map[uint64]*model.Reservation
	packages     map[uint64]*model.Package
	waitlist     map[uint64]*model.WaitlistEntry
	audits       []*model.AuditLog
	nextID       uint64
}

func newMemStore() *memStore {
	return &memStore{
		classes:      make(map[uint64]*model.Class),
		reservations: make(map[uint64]*model.Reservation),
		packages:     make(map[uint64]*model.Package),
		waitlist:     make(map[uint64]*model.WaitlistEntry),
	}
}

func (m *memStore) id() uint64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addClass(c model.Class) *model.Class {
	if c.ID == 0 {
		c.ID = m.id()
	}
	if c.Status == "" {
		c.Status = model.ClassScheduled
	}
	m.classes[c.ID] = &c
	return &c
}

func (m *memStore) addPackage(p model.Package) *model.Package {
	if p.ID == 0 {
		p.ID = m.id()
	}
	if p.Status == "" {
		p.Status = model.PackageActive
	}
	m.packages[p.ID] = &p
	return &p
}

func (m *memStore) addReservation(r model.Reservation) *model.Reservation {
	if r.ID == 0 {
		r.ID = m.id()
	}
	if r.Status == "" {
		r.Status = model.ReservationConfirmed
	}
	m.reservations[r.ID] = &r
	return &r
}

func (m *memStore) auditActions() []string {
	actions := make([]string, 0, len(m.audits))
	for _, a := range m.audits {
		actions = append(actions, a.Action)
	}
	return actions
}

func (m *memStore) Begin(ctx context.Context) (Tx, error) {
	return &memTx{store: m}, nil
}

type memTx struct {
	store *memStore
}

func (t *memTx) Commit() error   { return nil }
func (t *memTx) Rollback() error { return nil }

func (t *memTx) ClassForUpdate(ctx context.Context, classID uint64) (*model.Class, error) {
	c, ok := t.store.classes[classID]
	if !ok {
		return nil, ErrClassNotFound
	}
	cp := *c
	return &cp, nil
}

func (t *memTx) SetClassStatus(ctx context.Context, classID uint64, status string) error {
	c, ok := t.store.classes[classID]
	if !ok {
		return ErrClassNotFound
	}
	c.Status = status
	return nil
}

func occupiesSpot(status string) bool {
	return status == model.ReservationConfirmed || status == model.ReservationCheckedIn
}

func (t *memTx) ActiveFrameSizes(ctx context.Context, classID uint64) ([]string, error) {
	var sizes []string
	for _, r := range t.store.reservations {
		if r.ClassID == classID && occupiesSpot(r.Status) {
			sizes = append(sizes, r.FrameSize)
		}
	}
	return sizes, nil
}

func (t *memTx) CountActive(ctx context.Context, classID uint64) (int, error) {
	sizes, _ := t.ActiveFrameSizes(ctx, classID)
	return len(sizes), nil
}

func (t *memTx) HasActiveReservation(ctx context.Context, classID, userID uint64) (bool, error) {
	for _, r := range t.store.reservations {
		if r.ClassID == classID && r.UserID == userID && r.Status != model.ReservationCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertReservation(ctx context.Context, res *model.Reservation) error {
	res.ID = t.store.id()
	cp := *res
	t.store.reservations[cp.ID] = &cp
	return nil
}

func (t *memTx) ReservationForUpdate(ctx context.Context, id uint64) (*model.Reservation, error) {
	r, ok := t.store.reservations[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (t *memTx) UpdateReservation(ctx context.Context, res *model.Reservation) error {
	cp := *res
	t.store.reservations[cp.ID] = &cp
	return nil
}

func (t *memTx) DeleteReservation(ctx context.Context, id uint64) error {
	delete(t.store.reservations, id)
	return nil
}

func (t *memTx) PackageForUpdate(ctx context.Context, id uint64) (*model.Package, error) {
	p, ok := t.store.packages[id]
	if !ok {
		return nil, ErrPackageNotFound
	}
	cp := *p
	return &cp, nil
}

func (t *memTx) UpdatePackageUsage(ctx context.Context, id uint64, usedCredits uint32, status string) error {
	p, ok := t.store.packages[id]
	if !ok {
		return ErrPackageNotFound
	}
	p.UsedCredits = usedCredits
	p.Status = status
	return nil
}

func (t *memTx) HasWaitlistEntry(ctx context.Context, classID, userID uint64) (bool, error) {
	for _, e := range t.store.waitlist {
		if e.ClassID == classID && e.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) WaitlistSize(ctx context.Context, classID uint64) (int, error) {
	n := 0
	for _, e := range t.store.waitlist {
		if e.ClassID == classID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) error {
	entry.ID = t.store.id()
	cp := *entry
	t.store.waitlist[cp.ID] = &cp
	return nil
}

func (t *memTx) WaitlistHead(ctx context.Context, classID uint64) (*model.WaitlistEntry, error) {
	var head *model.WaitlistEntry
	for _, e := range t.store.waitlist {
		if e.ClassID != classID {
			continue
		}
		if head == nil || e.Priority < head.Priority {
			head = e
		}
	}
	if head == nil {
		return nil, nil
	}
	cp := *head
	return &cp, nil
}

func (t *memTx) RemoveWaitlistEntry(ctx context.Context, id uint64) error {
	delete(t.store.waitlist, id)
	return nil
}

func (t *memTx) CloseWaitlistGap(ctx context.Context, classID uint64, removedPriority uint32) error {
	for _, e := range t.store.waitlist {
		if e.ClassID == classID && e.Priority > removedPriority {
			e.Priority--
		}
	}
	return nil
}

func (t *memTx) InsertAudit(ctx context.Context, entry *model.AuditLog) error {
	entry.ID = t.store.id()
	cp := *entry
	t.store.audits = append(t.store.audits, &cp)
	return nil
}

// testTime is the fixed clock of the test service.
var testTime = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func newTestService(store *memStore, policy Policy) *Service {
	svc := NewService(store, policy)
	svc.now = func() time.Time { return testTime }
	return svc
}
