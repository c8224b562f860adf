package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/parkshare/internal/config"
	"github.com/iliyamo/parkshare/internal/model"
	"github.com/iliyamo/parkshare/internal/repository"
	"github.com/iliyamo/parkshare/internal/utils"
)

// UserStore is implemented by *repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, email, name, passwordHash string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// TokenStore is implemented by *repository.TokenRepo.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID uint64, now time.Time) error
}

// AuthHandler issues and revokes tokens for residents.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
	Log    *zap.Logger
	Now    func() time.Time
}

func NewAuthHandler(cfg config.Config, users UserStore, tokens TokenStore, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Tokens: tokens, Log: log, Now: time.Now}
}

type registerReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

const authTimeout = 5 * time.Second

// Register creates a resident and signs them in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return errorBody(c, http.StatusBadRequest, "InvalidInput", "name: is required")
	}
	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return h.internal(c, "hash password", err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()
	uid, err := h.Users.Create(ctx, req.Email, name, hash)
	if errors.Is(err, repository.ErrEmailExists) {
		return errorBody(c, http.StatusConflict, "DuplicateEmail", "email already registered")
	}
	if err != nil {
		return h.internal(c, "create user", err)
	}
	u := &model.User{ID: uid, Email: strings.ToLower(strings.TrimSpace(req.Email)), Name: name}
	return h.issue(ctx, c, u, http.StatusCreated)
}

// Login exchanges credentials for a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return errorBody(c, http.StatusUnauthorized, "Unauthenticated", "invalid credentials")
	}
	if err != nil {
		return h.internal(c, "load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return errorBody(c, http.StatusUnauthorized, "Unauthenticated", "invalid credentials")
	}
	return h.issue(ctx, c, u, http.StatusOK)
}

// Refresh rotates a refresh token: the presented one is revoked and a
// new pair is issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		return errorBody(c, http.StatusBadRequest, "InvalidInput", "refresh_token: is required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	hash := utils.HashRefreshRaw(raw)
	uid, err := h.Tokens.ValidateRefresh(ctx, hash, h.Now())
	if errors.Is(err, repository.ErrNotFound) {
		return errorBody(c, http.StatusUnauthorized, "Unauthenticated", "invalid refresh token")
	}
	if err != nil {
		return h.internal(c, "validate refresh", err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash, h.Now()); err != nil {
		return h.internal(c, "revoke refresh", err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return errorBody(c, http.StatusUnauthorized, "Unauthenticated", "invalid refresh token")
	}
	if err != nil {
		return h.internal(c, "load user", err)
	}
	return h.issue(ctx, c, u, http.StatusOK)
}

// Logout revokes the given refresh token, or every token of the caller
// when the body names none.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		if err := h.Tokens.RevokeAllForUser(ctx, uid, h.Now()); err != nil {
			return h.internal(c, "revoke all", err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	hash := utils.HashRefreshRaw(raw)
	owner, err := h.Tokens.ValidateRefresh(ctx, hash, h.Now())
	if errors.Is(err, repository.ErrNotFound) || (err == nil && owner != uid) {
		return errorBody(c, http.StatusUnauthorized, "Unauthenticated", "invalid refresh token")
	}
	if err != nil {
		return h.internal(c, "validate refresh", err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash, h.Now()); err != nil {
		return h.internal(c, "revoke refresh", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's account.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	u, err := h.Users.GetByID(c.Request().Context(), uid)
	if errors.Is(err, repository.ErrNotFound) {
		return errorBody(c, http.StatusUnauthorized, "Unauthenticated", "account no longer exists")
	}
	if err != nil {
		return h.internal(c, "load user", err)
	}
	return data(c, http.StatusOK, userPart{ID: u.ID, Email: u.Email, Name: u.Name})
}

func (h *AuthHandler) issue(ctx context.Context, c echo.Context, u *model.User, status int) error {
	now := h.Now()
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTLMin, now)
	if err != nil {
		return h.internal(c, "issue access", err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays, now)
	if err != nil {
		return h.internal(c, "issue refresh", err)
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return h.internal(c, "store refresh", err)
	}
	return data(c, status, authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Name: u.Name},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

func (h *AuthHandler) internal(c echo.Context, op string, err error) error {
	h.Log.Error("auth failure", zap.String("op", op), zap.Error(err))
	return errorBody(c, http.StatusInternalServerError, "StoreError", "internal error, please retry")
}
