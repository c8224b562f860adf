package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parkshare/internal/handler"
	"github.com/iliyamo/parkshare/internal/middleware"
)

// Parking bundles the handlers behind the /v1 parking endpoints.
type Parking struct {
	Bays    *handler.BayHandler
	Windows *handler.WindowHandler
	Claims  *handler.ClaimHandler
	Board   *handler.BoardHandler
}

// RegisterParking registers every bay, window, claim and board route.
// All of them require a valid access token; mw runs after it, so rate
// limits can key on the user.  boardCache wraps the board reads only;
// pass nil to serve them uncached.
func RegisterParking(e *echo.Echo, p Parking, jwtSecret string, boardCache echo.MiddlewareFunc, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", append([]echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret)}, mw...)...)

	// Bay registry
	g.POST("/bays", p.Bays.Register)
	g.GET("/my-bay", p.Bays.MyBay)
	g.PATCH("/bays/:id/label", p.Bays.UpdateLabel)
	g.PATCH("/bays/:id/note", p.Bays.UpdateNote)
	g.PATCH("/bays/:id/visibility", p.Bays.SetVisibility)
	g.GET("/bays/:id/active-claim", p.Bays.ActiveClaim)

	// Availability ledger
	g.POST("/bays/:id/windows", p.Windows.Create)
	g.PUT("/windows/:id", p.Windows.Update)
	g.PATCH("/windows/:id/availability", p.Windows.SetAvailable)

	// Claims
	g.POST("/windows/:id/claims", p.Claims.Claim)
	g.POST("/claims/:id/release", p.Claims.Release)
	g.GET("/my-claims", p.Claims.MyClaims)

	var boardMW []echo.MiddlewareFunc
	if boardCache != nil {
		boardMW = append(boardMW, boardCache)
	}
	board := g.Group("/board", boardMW...)
	board.GET("", p.Board.All)
	board.GET("/now", p.Board.OpenNow)
	board.GET("/future", p.Board.OpenFuture)
}
