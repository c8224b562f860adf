package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// BayHandler serves the owner side: registering and editing a bay and
// looking at who currently holds it.
type BayHandler struct {
	Bays   BayAPI
	Board  BoardAPI
	Claims ClaimAPI
	Now    func() time.Time
}

func NewBayHandler(bays BayAPI, board BoardAPI, claims ClaimAPI) *BayHandler {
	return &BayHandler{Bays: bays, Board: board, Claims: claims, Now: time.Now}
}

type registerBayReq struct {
	Label            string `json:"label" validate:"required"`
	ConfirmOwnership bool   `json:"confirm_ownership"`
}

type labelReq struct {
	Label string `json:"label" validate:"required"`
}

type noteReq struct {
	Note string `json:"note"`
}

type visibilityReq struct {
	Visible *bool `json:"visible" validate:"required"`
}

// Register handles POST /v1/bays.
func (h *BayHandler) Register(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req registerBayReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	bay, err := h.Bays.RegisterBay(c.Request().Context(), uid, req.Label, req.ConfirmOwnership)
	if err != nil {
		return writeError(c, err)
	}
	return data(c, http.StatusCreated, bay)
}

// MyBay handles GET /v1/my-bay.
func (h *BayHandler) MyBay(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	overview, err := h.Board.MyBay(c.Request().Context(), uid, h.Now())
	if err != nil {
		return writeError(c, err)
	}
	return data(c, http.StatusOK, overview)
}

// UpdateLabel handles PATCH /v1/bays/:id/label.
func (h *BayHandler) UpdateLabel(c echo.Context) error {
	return h.ownerWrite(c, &labelReq{}, func(bayID, uid uint64, req any) error {
		return h.Bays.UpdateLabel(c.Request().Context(), bayID, uid, req.(*labelReq).Label)
	})
}

// UpdateNote handles PATCH /v1/bays/:id/note.  A blank note clears it.
func (h *BayHandler) UpdateNote(c echo.Context) error {
	return h.ownerWrite(c, &noteReq{}, func(bayID, uid uint64, req any) error {
		return h.Bays.UpdateNote(c.Request().Context(), bayID, uid, req.(*noteReq).Note)
	})
}

// SetVisibility handles PATCH /v1/bays/:id/visibility.
func (h *BayHandler) SetVisibility(c echo.Context) error {
	return h.ownerWrite(c, &visibilityReq{}, func(bayID, uid uint64, req any) error {
		return h.Bays.SetVisibility(c.Request().Context(), bayID, uid, *req.(*visibilityReq).Visible)
	})
}

// ownerWrite runs an owner-scoped bay edit and answers with the bay as
// it is afterwards.
func (h *BayHandler) ownerWrite(c echo.Context, req any, apply func(bayID, uid uint64, req any) error) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	bayID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := bind(c, req); err != nil {
		return writeError(c, err)
	}
	if err := apply(bayID, uid, req); err != nil {
		return writeError(c, err)
	}
	bay, err := h.Bays.GetBay(c.Request().Context(), bayID)
	if err != nil {
		return writeError(c, err)
	}
	return data(c, http.StatusOK, bay)
}

// ActiveClaim handles GET /v1/bays/:id/active-claim.  The claimer's
// email is only shown to the bay's owner.
func (h *BayHandler) ActiveClaim(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	bayID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	bay, err := h.Bays.GetBay(ctx, bayID)
	if err != nil {
		return writeError(c, err)
	}
	claim, err := h.Claims.ActiveClaimForBay(ctx, bayID)
	if err != nil {
		return writeError(c, err)
	}
	if claim != nil && bay.OwnerID != uid {
		redacted := *claim
		redacted.ClaimerEmail = ""
		claim = &redacted
	}
	return data(c, http.StatusOK, claim)
}
