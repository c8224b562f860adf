package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parkshare/internal/middleware"
	"github.com/iliyamo/parkshare/internal/service"
)

// statusFor maps an error kind onto its HTTP status.
func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindUnauthenticated:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindNotOwner, service.KindNotClaimer:
		return http.StatusForbidden
	case service.KindDuplicateOwner, service.KindDuplicateLabel,
		service.KindAlreadyClaimed, service.KindAlreadyReleased, service.KindNotAvailable:
		return http.StatusConflict
	case service.KindInvalidWindow:
		return http.StatusUnprocessableEntity
	case service.KindInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func data(c echo.Context, status int, v any) error {
	return c.JSON(status, echo.Map{"data": v})
}

func errorBody(c echo.Context, status int, kind, msg string) error {
	return c.JSON(status, echo.Map{"error": kind, "message": msg})
}

// writeError renders a service failure.  Store failures never leak
// their cause to the client.
func writeError(c echo.Context, err error) error {
	kind := service.KindOf(err)
	msg := err.Error()
	if kind == service.KindStoreError {
		msg = "internal error, please retry"
	}
	return errorBody(c, statusFor(kind), string(kind), msg)
}

// getUserID returns the id JWTAuth stored on the context.
func getUserID(c echo.Context) (uint64, error) {
	if uid, ok := c.Get(middleware.UserIDKey).(uint64); ok && uid != 0 {
		return uid, nil
	}
	return 0, service.ErrUnauthenticated
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &service.Error{Kind: service.KindInvalidInput, Err: errors.New(name + " must be a positive integer")}
	}
	return id, nil
}

// bind decodes the body into req and runs the struct validator.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return &service.Error{Kind: service.KindInvalidInput, Err: errors.New("malformed request body")}
	}
	if err := c.Validate(req); err != nil {
		return &service.Error{Kind: service.KindInvalidInput, Err: err}
	}
	return nil
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
