package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parkshare/internal/middleware"
	"github.com/iliyamo/parkshare/internal/model"
	"github.com/iliyamo/parkshare/internal/repository"
	"github.com/iliyamo/parkshare/internal/service"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	return e
}

// asUser trusts the X-User header as the authenticated user, standing
// in for JWTAuth.
func asUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if uid, err := strconv.ParseUint(c.Request().Header.Get("X-User"), 10, 64); err == nil {
			c.Set(middleware.UserIDKey, uid)
		}
		return next(c)
	}
}

func call(e *echo.Echo, method, target, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if user != "" {
		req.Header.Set("X-User", user)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type stubBays struct {
	bays map[uint64]*model.Bay
	err  error
	got  []any
}

func (s *stubBays) RegisterBay(_ context.Context, ownerID uint64, label string, confirm bool) (*model.Bay, error) {
	s.got = append(s.got, ownerID, label, confirm)
	if s.err != nil {
		return nil, s.err
	}
	return &model.Bay{ID: 1, Label: label, OwnerID: ownerID, IsVisible: true, CreatedAt: t0, UpdatedAt: t0}, nil
}

func (s *stubBays) GetBay(_ context.Context, bayID uint64) (*model.Bay, error) {
	b, ok := s.bays[bayID]
	if !ok {
		return nil, service.ErrNotFound
	}
	return b, nil
}

func (s *stubBays) UpdateLabel(_ context.Context, bayID, ownerID uint64, label string) error {
	s.got = append(s.got, bayID, ownerID, label)
	if s.err != nil {
		return s.err
	}
	s.bays[bayID].Label = label
	return nil
}

func (s *stubBays) UpdateNote(_ context.Context, bayID, ownerID uint64, note string) error {
	s.got = append(s.got, bayID, ownerID, note)
	return s.err
}

func (s *stubBays) SetVisibility(_ context.Context, bayID, ownerID uint64, visible bool) error {
	s.got = append(s.got, bayID, ownerID, visible)
	if s.err != nil {
		return s.err
	}
	s.bays[bayID].IsVisible = visible
	return nil
}

type stubWindows struct {
	err error
	got []any
}

func (s *stubWindows) CreateWindow(_ context.Context, bayID, ownerID uint64, from, until *time.Time) (*model.Availability, error) {
	s.got = append(s.got, bayID, ownerID, from, until)
	if s.err != nil {
		return nil, s.err
	}
	return &model.Availability{ID: 10, BayID: bayID, IsAvailable: true, AvailableFrom: from, AvailableUntil: until}, nil
}

func (s *stubWindows) UpdateWindow(_ context.Context, id, ownerID uint64, from, until *time.Time) (*model.Availability, error) {
	s.got = append(s.got, id, ownerID, from, until)
	if s.err != nil {
		return nil, s.err
	}
	return &model.Availability{ID: id, BayID: 1, AvailableFrom: from, AvailableUntil: until}, nil
}

func (s *stubWindows) SetWindowAvailable(_ context.Context, id, ownerID uint64, available bool) (*model.Availability, error) {
	s.got = append(s.got, id, ownerID, available)
	if s.err != nil {
		return nil, s.err
	}
	return &model.Availability{ID: id, BayID: 1, IsAvailable: available}, nil
}

type stubClaims struct {
	err    error
	active *model.BayClaim
	got    []any
}

func (s *stubClaims) Claim(_ context.Context, availabilityID, claimerID uint64, expected *int) (*model.Claim, error) {
	s.got = append(s.got, availabilityID, claimerID, expected)
	if s.err != nil {
		return nil, s.err
	}
	return &model.Claim{ID: 100, AvailabilityID: availabilityID, ClaimerID: claimerID, ClaimedAt: t0}, nil
}

func (s *stubClaims) Release(_ context.Context, claimID, requesterID uint64) (*model.Claim, error) {
	s.got = append(s.got, claimID, requesterID)
	if s.err != nil {
		return nil, s.err
	}
	rel := t0.Add(time.Hour)
	return &model.Claim{ID: claimID, ClaimerID: requesterID, ClaimedAt: t0, ReleasedAt: &rel}, nil
}

func (s *stubClaims) ListActiveClaimsForUser(_ context.Context, userID uint64) ([]model.ActiveClaim, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []model.ActiveClaim{{Claim: model.Claim{ID: 100, ClaimerID: userID}, OwnerName: "Olive"}}, nil
}

func (s *stubClaims) ActiveClaimForBay(_ context.Context, bayID uint64) (*model.BayClaim, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.active, nil
}

type stubBoard struct {
	err     error
	lastNow time.Time
	open    []model.Listing
	next    *time.Time
}

func (s *stubBoard) Board(_ context.Context, now time.Time) (*model.Board, error) {
	s.lastNow = now
	if s.err != nil {
		return nil, s.err
	}
	open := s.open
	if open == nil {
		open = []model.Listing{}
	}
	return &model.Board{OpenNow: open, OpenFuture: []model.Listing{}, Taken: []model.Listing{}, NextChange: s.next}, nil
}

func (s *stubBoard) MyBay(_ context.Context, ownerID uint64, now time.Time) (*model.BayOverview, error) {
	s.lastNow = now
	if s.err != nil {
		return nil, s.err
	}
	return &model.BayOverview{Bay: model.Bay{ID: 1, OwnerID: ownerID}, Windows: []model.WindowView{}}, nil
}

type memUsers struct {
	byID map[uint64]*model.User
	next uint64
	fail error
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]*model.User{}} }

func (m *memUsers) Create(_ context.Context, email, name, hash string) (uint64, error) {
	if m.fail != nil {
		return 0, m.fail
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	m.next++
	m.byID[m.next] = &model.User{ID: m.next, Email: email, Name: name, PasswordHash: hash}
	return m.next, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type memTokens struct {
	tokens map[string]*model.RefreshToken
}

func newMemTokens() *memTokens { return &memTokens{tokens: map[string]*model.RefreshToken{}} }

func (m *memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	m.tokens[hash] = &model.RefreshToken{UserID: userID, TokenHash: hash, ExpiresAt: exp}
	return nil
}

func (m *memTokens) ValidateRefresh(_ context.Context, hash string, now time.Time) (uint64, error) {
	t, ok := m.tokens[hash]
	if !ok || t.RevokedAt != nil || now.After(t.ExpiresAt) {
		return 0, repository.ErrNotFound
	}
	return t.UserID, nil
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string, now time.Time) error {
	if t, ok := m.tokens[hash]; ok && t.RevokedAt == nil {
		t.RevokedAt = &now
	}
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID uint64, now time.Time) error {
	for _, t := range m.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (m *memTokens) active(userID uint64) int {
	n := 0
	for _, t := range m.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			n++
		}
	}
	return n
}
