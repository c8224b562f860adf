package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parkshare/internal/model"
)

// BoardHandler serves the public listings.  Responses depend only on
// the clock, which is why the router may cache them.  Each response
// carries a max-age that ends at the next window boundary, so a cache
// never replays a partition past the moment it changes.
type BoardHandler struct {
	Board BoardAPI
	Now   func() time.Time
}

func NewBoardHandler(board BoardAPI) *BoardHandler {
	return &BoardHandler{Board: board, Now: time.Now}
}

// All handles GET /v1/board.
func (h *BoardHandler) All(c echo.Context) error {
	return h.serve(c, func(b *model.Board) any { return b })
}

// OpenNow handles GET /v1/board/now.
func (h *BoardHandler) OpenNow(c echo.Context) error {
	return h.serve(c, func(b *model.Board) any { return b.OpenNow })
}

// OpenFuture handles GET /v1/board/future.
func (h *BoardHandler) OpenFuture(c echo.Context) error {
	return h.serve(c, func(b *model.Board) any { return b.OpenFuture })
}

func (h *BoardHandler) serve(c echo.Context, pick func(*model.Board) any) error {
	now := h.Now()
	b, err := h.Board.Board(c.Request().Context(), now)
	if err != nil {
		return writeError(c, err)
	}
	if b.NextChange != nil {
		maxAge := int64(b.NextChange.Sub(now) / time.Second)
		if maxAge < 0 {
			maxAge = 0
		}
		c.Response().Header().Set("Cache-Control", "max-age="+strconv.FormatInt(maxAge, 10))
	}
	return data(c, http.StatusOK, pick(b))
}
