package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// WindowHandler lets owners publish and adjust availability windows.
type WindowHandler struct {
	Windows WindowAPI
}

func NewWindowHandler(windows WindowAPI) *WindowHandler {
	return &WindowHandler{Windows: windows}
}

// windowReq carries RFC 3339 bounds; either may be omitted.
type windowReq struct {
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
}

type availableReq struct {
	Available *bool `json:"available" validate:"required"`
}

// Create handles POST /v1/bays/:id/windows.
func (h *WindowHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	bayID, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req windowReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	w, err := h.Windows.CreateWindow(c.Request().Context(), bayID, uid, req.AvailableFrom, req.AvailableUntil)
	if err != nil {
		return writeError(c, err)
	}
	return data(c, http.StatusCreated, w)
}

// Update handles PUT /v1/windows/:id.  Both bounds are replaced, so an
// omitted bound becomes open-ended.
func (h *WindowHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req windowReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	w, err := h.Windows.UpdateWindow(c.Request().Context(), id, uid, req.AvailableFrom, req.AvailableUntil)
	if err != nil {
		return writeError(c, err)
	}
	return data(c, http.StatusOK, w)
}

// SetAvailable handles PATCH /v1/windows/:id/availability.
func (h *WindowHandler) SetAvailable(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req availableReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	w, err := h.Windows.SetWindowAvailable(c.Request().Context(), id, uid, *req.Available)
	if err != nil {
		return writeError(c, err)
	}
	return data(c, http.StatusOK, w)
}
