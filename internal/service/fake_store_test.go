package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/parkshare/internal/model"
	"github.com/iliyamo/parkshare/internal/queue"
	"github.com/iliyamo/parkshare/internal/repository"
)

// memStore is an in-memory stand-in for MySQL.  A single mutex plays the
// role of the row locks and unique keys, and the repository sentinels
// are returned exactly where the SQL repositories return them.
type memStore struct {
	mu      sync.Mutex
	nextID  uint64
	names   map[uint64]string
	bays    map[uint64]*model.Bay
	windows map[uint64]*model.Availability
	claims  map[uint64]*model.Claim
	broken  error
}

func newMemStore() *memStore {
	return &memStore{
		names:   map[uint64]string{},
		bays:    map[uint64]*model.Bay{},
		windows: map[uint64]*model.Availability{},
		claims:  map[uint64]*model.Claim{},
	}
}

func (m *memStore) id() uint64 { m.nextID++; return m.nextID }

func (m *memStore) activeOnBay(bayID uint64) []*model.Claim {
	var out []*model.Claim
	for _, c := range m.claims {
		if c.ReleasedAt == nil && m.windows[c.AvailabilityID].BayID == bayID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memBays struct{ *memStore }

func (m memBays) CreateWithInitialWindow(_ context.Context, ownerID uint64, label string, now time.Time) (*model.Bay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken != nil {
		return nil, m.broken
	}
	for _, b := range m.bays {
		if b.OwnerID == ownerID {
			return nil, repository.ErrDuplicateOwner
		}
	}
	for _, b := range m.bays {
		if b.Label == label {
			return nil, repository.ErrDuplicateLabel
		}
	}
	b := &model.Bay{ID: m.id(), Label: label, IsVisible: true, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	m.bays[b.ID] = b
	w := &model.Availability{ID: m.id(), BayID: b.ID, CreatedAt: now, UpdatedAt: now}
	m.windows[w.ID] = w
	cp := *b
	return &cp, nil
}

func (m memBays) GetByID(_ context.Context, id uint64) (*model.Bay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bays[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m memBays) GetByOwner(_ context.Context, ownerID uint64) (*model.Bay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bays {
		if b.OwnerID == ownerID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memBays) owned(bayID, ownerID uint64) (*model.Bay, error) {
	b, ok := m.bays[bayID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if b.OwnerID != ownerID {
		return nil, repository.ErrForbidden
	}
	return b, nil
}

func (m memBays) UpdateLabel(_ context.Context, bayID, ownerID uint64, label string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.owned(bayID, ownerID)
	if err != nil {
		return err
	}
	for _, other := range m.bays {
		if other.ID != bayID && other.Label == label {
			return repository.ErrDuplicateLabel
		}
	}
	b.Label, b.UpdatedAt = label, now
	return nil
}

func (m memBays) UpdateNote(_ context.Context, bayID, ownerID uint64, note *string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.owned(bayID, ownerID)
	if err != nil {
		return err
	}
	b.Note, b.UpdatedAt = note, now
	return nil
}

func (m memBays) SetVisibility(_ context.Context, bayID, ownerID uint64, visible bool, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.owned(bayID, ownerID)
	if err != nil {
		return err
	}
	b.IsVisible, b.UpdatedAt = visible, now
	return nil
}

type memWindows struct{ *memStore }

func (m memWindows) Create(_ context.Context, bayID, ownerID uint64, from, until *time.Time, now time.Time) (*model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := memBays(m).owned(bayID, ownerID)
	if err != nil {
		return nil, err
	}
	w := &model.Availability{ID: m.id(), BayID: bayID, IsAvailable: b.IsVisible,
		AvailableFrom: from, AvailableUntil: until, CreatedAt: now, UpdatedAt: now}
	m.windows[w.ID] = w
	cp := *w
	return &cp, nil
}

func (m memWindows) GetByID(_ context.Context, id uint64) (*model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m memWindows) owned(id, ownerID uint64) (*model.Availability, error) {
	w, ok := m.windows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if m.bays[w.BayID].OwnerID != ownerID {
		return nil, repository.ErrForbidden
	}
	return w, nil
}

func (m memWindows) UpdateWindow(_ context.Context, id, ownerID uint64, from, until *time.Time, now time.Time) (*model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, err := m.owned(id, ownerID)
	if err != nil {
		return nil, err
	}
	w.AvailableFrom, w.AvailableUntil, w.UpdatedAt = from, until, now
	cp := *w
	return &cp, nil
}

func (m memWindows) SetAvailable(_ context.Context, id, ownerID uint64, available bool, now time.Time) (*model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, err := m.owned(id, ownerID)
	if err != nil {
		return nil, err
	}
	w.IsAvailable, w.UpdatedAt = available, now
	cp := *w
	return &cp, nil
}

func (m memWindows) ListByBay(_ context.Context, bayID uint64) ([]model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Availability, 0)
	for _, w := range m.windows {
		if w.BayID == bayID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type memClaims struct{ *memStore }

func (m memClaims) Create(_ context.Context, availabilityID, claimerID uint64, expected *uint32, now time.Time) (*model.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken != nil {
		return nil, m.broken
	}
	w, ok := m.windows[availabilityID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !w.IsAvailable || !m.bays[w.BayID].IsVisible {
		return nil, repository.ErrNotAvailable
	}
	if len(m.activeOnBay(w.BayID)) > 0 {
		return nil, repository.ErrAlreadyClaimed
	}
	c := &model.Claim{ID: m.id(), AvailabilityID: availabilityID, ClaimerID: claimerID,
		ClaimedAt: now, ExpectedDuration: expected, CreatedAt: now, UpdatedAt: now}
	m.claims[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m memClaims) GetByID(_ context.Context, id uint64) (*model.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m memClaims) Release(_ context.Context, claimID, requesterID uint64, now time.Time) (*model.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[claimID]
	switch {
	case !ok:
		return nil, repository.ErrNotFound
	case c.ClaimerID != requesterID:
		return nil, repository.ErrNotClaimer
	case c.ReleasedAt != nil:
		return nil, repository.ErrAlreadyReleased
	}
	at := now
	c.ReleasedAt, c.UpdatedAt = &at, now
	cp := *c
	return &cp, nil
}

func (m memClaims) ListActiveByClaimer(_ context.Context, claimerID uint64) ([]model.ActiveClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ActiveClaim, 0)
	for _, c := range m.claims {
		if c.ClaimerID != claimerID || c.ReleasedAt != nil {
			continue
		}
		w := m.windows[c.AvailabilityID]
		b := m.bays[w.BayID]
		out = append(out, model.ActiveClaim{Claim: *c, Availability: *w, Bay: *b, OwnerName: m.names[b.OwnerID]})
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := out[i].Claim, out[j].Claim
		if !ci.ClaimedAt.Equal(cj.ClaimedAt) {
			return ci.ClaimedAt.After(cj.ClaimedAt)
		}
		return ci.ID < cj.ID
	})
	return out, nil
}

func (m memClaims) ActiveForBay(_ context.Context, bayID uint64) (*model.BayClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := m.activeOnBay(bayID)
	switch len(active) {
	case 0:
		return nil, nil
	case 1:
		c := active[0]
		return &model.BayClaim{Claim: *c, Availability: *m.windows[c.AvailabilityID], ClaimerName: m.names[c.ClaimerID]}, nil
	default:
		return nil, repository.ErrInvariantViolated
	}
}

type memBoard struct{ *memStore }

func (m memBoard) ListVisibleWindows(_ context.Context, now time.Time) ([]model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken != nil {
		return nil, m.broken
	}
	out := make([]model.Listing, 0)
	for _, w := range m.windows {
		b := m.bays[w.BayID]
		if !b.IsVisible || !w.IsAvailable || (w.AvailableUntil != nil && w.AvailableUntil.Before(now)) {
			continue
		}
		l := model.Listing{Bay: *b, Availability: *w, OwnerName: m.names[b.OwnerID]}
		if active := m.activeOnBay(b.ID); len(active) > 0 {
			id := active[0].ID
			l.ActiveClaimID = &id
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		fi, fj := out[i].Availability.AvailableFrom, out[j].Availability.AvailableFrom
		switch {
		case fi == nil && fj != nil:
			return true
		case fi != nil && fj == nil:
			return false
		case fi != nil && !fi.Equal(*fj):
			return fi.Before(*fj)
		}
		return out[i].Availability.ID < out[j].Availability.ID
	})
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ClaimEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ClaimEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

var errConnReset = errors.New("connection reset by peer")

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// harness wires every service over one memStore with a fixed clock.
type harness struct {
	store   *memStore
	events  *recordingPublisher
	bays    *BayService
	windows *AvailabilityService
	claims  *ClaimService
	board   *BoardService
	now     time.Time
}

func newHarness() *harness {
	st := newMemStore()
	h := &harness{store: st, events: &recordingPublisher{}, now: t0}
	clock := func() time.Time { return h.now }
	log := zap.NewNop()

	h.bays = NewBayService(memBays{st}, log)
	h.bays.now = clock
	h.windows = NewAvailabilityService(memWindows{st}, memBays{st}, log)
	h.windows.now = clock
	h.claims = NewClaimService(memClaims{st}, h.events, log)
	h.claims.now = clock
	h.board = NewBoardService(memBoard{st}, memBays{st}, memWindows{st}, memClaims{st}, log)
	return h
}

// user registers a display name and returns a fresh user id.
func (h *harness) user(name string) uint64 {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	id := 1000 + h.store.id()
	h.store.names[id] = name
	return id
}

func ptr[T any](v T) *T { return &v }
