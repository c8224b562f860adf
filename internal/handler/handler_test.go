package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/parkshare/internal/config"
	"github.com/iliyamo/parkshare/internal/model"
	"github.com/iliyamo/parkshare/internal/service"
)

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decode(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func TestStatusFor(t *testing.T) {
	cases := map[service.Kind]int{
		service.KindUnauthenticated: http.StatusUnauthorized,
		service.KindNotFound:        http.StatusNotFound,
		service.KindNotOwner:        http.StatusForbidden,
		service.KindNotClaimer:      http.StatusForbidden,
		service.KindDuplicateOwner:  http.StatusConflict,
		service.KindDuplicateLabel:  http.StatusConflict,
		service.KindAlreadyClaimed:  http.StatusConflict,
		service.KindAlreadyReleased: http.StatusConflict,
		service.KindNotAvailable:    http.StatusConflict,
		service.KindInvalidWindow:   http.StatusUnprocessableEntity,
		service.KindInvalidInput:    http.StatusBadRequest,
		service.KindStoreError:      http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, statusFor(kind), kind)
	}
}

func bayFixture() (*stubBays, *stubBoard, *stubClaims, *BayHandler) {
	bays := &stubBays{bays: map[uint64]*model.Bay{1: {ID: 1, Label: "A1", OwnerID: 7, IsVisible: true}}}
	board := &stubBoard{}
	claims := &stubClaims{}
	h := NewBayHandler(bays, board, claims)
	h.Now = func() time.Time { return t0 }
	return bays, board, claims, h
}

func TestBayHandler_Register(t *testing.T) {
	bays, _, _, h := bayFixture()
	e := newEcho()
	e.POST("/v1/bays", h.Register, asUser)

	rec := call(e, http.MethodPost, "/v1/bays", "7", `{"label":" B2 ","confirm_ownership":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var bay model.Bay
	require.NoError(t, json.Unmarshal(decode(t, rec.Body.Bytes()).Data, &bay))
	assert.Equal(t, uint64(7), bay.OwnerID)
	assert.Equal(t, []any{uint64(7), " B2 ", true}, bays.got)

	rec = call(e, http.MethodPost, "/v1/bays", "", `{"label":"B2","confirm_ownership":true}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthenticated", decode(t, rec.Body.Bytes()).Error)

	rec = call(e, http.MethodPost, "/v1/bays", "7", `{"confirm_ownership":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec.Body.Bytes()).Message, "label: is required")

	rec = call(e, http.MethodPost, "/v1/bays", "7", `{"label":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bays.err = service.ErrDuplicateOwner
	rec = call(e, http.MethodPost, "/v1/bays", "7", `{"label":"B2","confirm_ownership":true}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DuplicateOwner", decode(t, rec.Body.Bytes()).Error)
}

func TestBayHandler_OwnerEdits(t *testing.T) {
	bays, _, _, h := bayFixture()
	e := newEcho()
	e.PATCH("/v1/bays/:id/label", h.UpdateLabel, asUser)
	e.PATCH("/v1/bays/:id/note", h.UpdateNote, asUser)
	e.PATCH("/v1/bays/:id/visibility", h.SetVisibility, asUser)

	rec := call(e, http.MethodPatch, "/v1/bays/1/label", "7", `{"label":"Z9"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(decode(t, rec.Body.Bytes()).Data), `"label":"Z9"`)

	rec = call(e, http.MethodPatch, "/v1/bays/1/visibility", "7", `{"visible":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, bays.bays[1].IsVisible)

	rec = call(e, http.MethodPatch, "/v1/bays/1/visibility", "7", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(e, http.MethodPatch, "/v1/bays/abc/note", "7", `{"note":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bays.err = service.ErrNotOwner
	rec = call(e, http.MethodPatch, "/v1/bays/1/note", "8", `{"note":"mine now"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "NotOwner", decode(t, rec.Body.Bytes()).Error)
}

func TestBayHandler_MyBay(t *testing.T) {
	_, board, _, h := bayFixture()
	e := newEcho()
	e.GET("/v1/my-bay", h.MyBay, asUser)

	rec := call(e, http.MethodGet, "/v1/my-bay", "7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, t0, board.lastNow)

	board.err = service.ErrNotFound
	rec = call(e, http.MethodGet, "/v1/my-bay", "7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBayHandler_ActiveClaimRedactsEmailForOthers(t *testing.T) {
	_, _, claims, h := bayFixture()
	claims.active = &model.BayClaim{Claim: model.Claim{ID: 100}, ClaimerName: "Cara", ClaimerEmail: "cara@example.com"}
	e := newEcho()
	e.GET("/v1/bays/:id/active-claim", h.ActiveClaim, asUser)

	rec := call(e, http.MethodGet, "/v1/bays/1/active-claim", "7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cara@example.com")

	rec = call(e, http.MethodGet, "/v1/bays/1/active-claim", "9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "cara@example.com")
	assert.Contains(t, rec.Body.String(), "Cara")
	assert.Equal(t, "cara@example.com", claims.active.ClaimerEmail)

	claims.active = nil
	rec = call(e, http.MethodGet, "/v1/bays/1/active-claim", "9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":null}`, rec.Body.String())

	rec = call(e, http.MethodGet, "/v1/bays/2/active-claim", "9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWindowHandler(t *testing.T) {
	windows := &stubWindows{}
	h := NewWindowHandler(windows)
	e := newEcho()
	e.POST("/v1/bays/:id/windows", h.Create, asUser)
	e.PUT("/v1/windows/:id", h.Update, asUser)
	e.PATCH("/v1/windows/:id/availability", h.SetAvailable, asUser)

	rec := call(e, http.MethodPost, "/v1/bays/1/windows", "7",
		`{"available_from":"2024-05-01T09:00:00Z","available_until":"2024-05-01T17:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	from := windows.got[2].(*time.Time)
	require.NotNil(t, from)
	assert.True(t, from.Equal(t0))

	rec = call(e, http.MethodPut, "/v1/windows/10", "7", `{"available_until":"2024-05-02T09:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, windows.got[6])

	rec = call(e, http.MethodPatch, "/v1/windows/10/availability", "7", `{"available":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, windows.got[len(windows.got)-1])

	rec = call(e, http.MethodPost, "/v1/bays/1/windows", "7", `{"available_from":"yesterday"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	windows.err = service.ErrInvalidWindow
	rec = call(e, http.MethodPost, "/v1/bays/1/windows", "7", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "InvalidWindow", decode(t, rec.Body.Bytes()).Error)
}

func TestClaimHandler(t *testing.T) {
	claims := &stubClaims{}
	h := NewClaimHandler(claims)
	e := newEcho()
	e.POST("/v1/windows/:id/claims", h.Claim, asUser)
	e.POST("/v1/claims/:id/release", h.Release, asUser)
	e.GET("/v1/my-claims", h.MyClaims, asUser)

	rec := call(e, http.MethodPost, "/v1/windows/10/claims", "9", `{"expected_minutes":90}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, claims.got, 3)
	assert.Equal(t, 90, *claims.got[2].(*int))

	claims.got = nil
	rec = call(e, http.MethodPost, "/v1/windows/10/claims", "9", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, claims.got[2].(*int))

	rec = call(e, http.MethodPost, "/v1/claims/100/release", "9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"released_at"`)

	rec = call(e, http.MethodGet, "/v1/my-claims", "9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Olive")

	claims.err = service.ErrAlreadyClaimed
	rec = call(e, http.MethodPost, "/v1/windows/10/claims", "9", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "AlreadyClaimed", decode(t, rec.Body.Bytes()).Error)

	claims.err = service.ErrNotClaimer
	rec = call(e, http.MethodPost, "/v1/claims/100/release", "8", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	claims.err = &service.Error{Kind: service.KindStoreError, Err: errors.New("dial tcp 10.0.0.5:3306: connection refused")}
	rec = call(e, http.MethodGet, "/v1/my-claims", "9", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestBoardHandler(t *testing.T) {
	board := &stubBoard{}
	h := NewBoardHandler(board)
	h.Now = func() time.Time { return t0 }
	e := newEcho()
	e.GET("/v1/board", h.All)
	e.GET("/v1/board/now", h.OpenNow)
	e.GET("/v1/board/future", h.OpenFuture)

	rec := call(e, http.MethodGet, "/v1/board", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"open_now":[],"open_future":[],"taken":[]}}`, rec.Body.String())
	assert.Equal(t, t0, board.lastNow)
	assert.Empty(t, rec.Header().Get("Cache-Control"), "no boundary ahead")

	board.open = []model.Listing{{Bay: model.Bay{ID: 1, Label: "A1"}, OwnerName: "Olive"}}
	rec = call(e, http.MethodGet, "/v1/board/now", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"owner_name":"Olive"`)

	rec = call(e, http.MethodGet, "/v1/board/future", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())

	board.err = service.ErrStore
	rec = call(e, http.MethodGet, "/v1/board/now", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBoardHandler_MaxAgeEndsAtNextBoundary(t *testing.T) {
	next := t0.Add(7*time.Second + 400*time.Millisecond)
	board := &stubBoard{next: &next}
	h := NewBoardHandler(board)
	h.Now = func() time.Time { return t0 }
	e := newEcho()
	e.GET("/v1/board/now", h.OpenNow)

	rec := call(e, http.MethodGet, "/v1/board/now", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "max-age=7", rec.Header().Get("Cache-Control"))

	next = t0.Add(300 * time.Millisecond)
	rec = call(e, http.MethodGet, "/v1/board/now", "", "")
	assert.Equal(t, "max-age=0", rec.Header().Get("Cache-Control"))
}

type pingErr struct{ err error }

func (p pingErr) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	e := newEcho()
	e.GET("/ok", Health(pingErr{}))
	e.GET("/down", Health(pingErr{err: errors.New("gone")}))
	e.GET("/bare", Health(nil))

	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/ok", "", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, call(e, http.MethodGet, "/down", "", "").Code)
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/bare", "", "").Code)
}

func authFixture() (*memUsers, *memTokens, *AuthHandler) {
	users, tokens := newMemUsers(), newMemTokens()
	cfg := config.Config{JWTSecret: "secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	return users, tokens, NewAuthHandler(cfg, users, tokens, zap.NewNop())
}

func TestAuthHandler_Flow(t *testing.T) {
	_, tokens, h := authFixture()
	e := newEcho()
	e.POST("/register", h.Register)
	e.POST("/login", h.Login)
	e.POST("/refresh", h.Refresh)
	e.POST("/logout", h.Logout, asUser)
	e.GET("/me", h.Me, asUser)

	rec := call(e, http.MethodPost, "/register", "", `{"email":"Cara@Example.com","password":"hunter2hunter2","name":" Cara "}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg authResp
	require.NoError(t, json.Unmarshal(decode(t, rec.Body.Bytes()).Data, &reg))
	assert.Equal(t, "cara@example.com", reg.User.Email)
	assert.Equal(t, "Cara", reg.User.Name)
	assert.NotEmpty(t, reg.Access.Token)

	rec = call(e, http.MethodPost, "/register", "", `{"email":"cara@example.com","password":"hunter2hunter2","name":"C"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DuplicateEmail", decode(t, rec.Body.Bytes()).Error)

	rec = call(e, http.MethodPost, "/register", "", `{"email":"not-an-email","password":"short","name":"X"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(e, http.MethodPost, "/login", "", `{"email":"cara@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(e, http.MethodPost, "/login", "", `{"email":"cara@example.com","password":"hunter2hunter2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var login authResp
	require.NoError(t, json.Unmarshal(decode(t, rec.Body.Bytes()).Data, &login))

	rec = call(e, http.MethodPost, "/refresh", "", `{"refresh_token":"`+login.Refresh.Token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = call(e, http.MethodPost, "/refresh", "", `{"refresh_token":"`+login.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(e, http.MethodGet, "/me", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cara@example.com")

	require.Equal(t, 2, tokens.active(1))
	rec = call(e, http.MethodPost, "/logout", "1", `{"refresh_token":"`+reg.Refresh.Token+`"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, tokens.active(1))

	rec = call(e, http.MethodPost, "/logout", "1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, tokens.active(1))
}

func TestAuthHandler_StoreFailureIsInternal(t *testing.T) {
	users, _, h := authFixture()
	users.fail = errors.New("deadlock")
	e := newEcho()
	e.POST("/register", h.Register)

	rec := call(e, http.MethodPost, "/register", "", `{"email":"d@example.com","password":"hunter2hunter2","name":"D"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "deadlock")
}
