package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ClaimHandler serves the claimer side.
type ClaimHandler struct {
	Claims ClaimAPI
}

func NewClaimHandler(claims ClaimAPI) *ClaimHandler {
	return &ClaimHandler{Claims: claims}
}

type claimReq struct {
	ExpectedMinutes *int `json:"expected_minutes"`
}

// Claim handles POST /v1/windows/:id/claims.  The body is optional.
func (h *ClaimHandler) Claim(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req claimReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	claim, err := h.Claims.Claim(c.Request().Context(), id, uid, req.ExpectedMinutes)
	if err != nil {
		return writeError(c, err)
	}
	return data(c, http.StatusCreated, claim)
}

// Release handles POST /v1/claims/:id/release.
func (h *ClaimHandler) Release(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	claim, err := h.Claims.Release(c.Request().Context(), id, uid)
	if err != nil {
		return writeError(c, err)
	}
	return data(c, http.StatusOK, claim)
}

// MyClaims handles GET /v1/my-claims.
func (h *ClaimHandler) MyClaims(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	claims, err := h.Claims.ListActiveClaimsForUser(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return data(c, http.StatusOK, claims)
}
