package api

import (
	"errors"
	"log/slog"

	"github.com/freekieb7/reel/auth"
	"github.com/freekieb7/reel/database"
	"github.com/freekieb7/reel/http"
	"github.com/freekieb7/reel/validation"
)

// Empty or absent credentials are not a malformed payload, they simply fail to
// match a user.
type loginPayload struct {
	Username string `json:"username" validate:"max=128"`
	Password string `json:"password" validate:"max=128"`
}

type registerPayload struct {
	Username string `json:"username" validate:"required,min=3,max=64,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type userResponse struct {
	Username string `json:"username"`
	UserID   int64  `json:"userId,omitempty"`
}

func (h *Handlers) Login(ctx *http.RequestCtx) {
	if len(ctx.Request.Body) == 0 {
		_ = ctx.SendJSONError(http.StatusBadRequest, "Missing credentials")
		return
	}

	var payload loginPayload
	if !h.decode(ctx, &payload, "Invalid payload") {
		return
	}

	user, sess, err := h.auth.Login(payload.Username, payload.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		_ = ctx.SendJSONError(http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		ctx.Logger.Error("login failed", slog.String("request_id", ctx.ID), slog.Any("error", err))
		_ = ctx.SendJSONError(http.StatusInternalServerError, "Failed to persist session")
		return
	}

	ctx.Authenticated = true
	ctx.UserID = user.ID
	ctx.Username = user.Username
	ctx.SessionToken = sess.Token

	cookie := h.auth.SessionCookie(sess)
	_ = ctx.SendJSON(http.StatusOK, userResponse{Username: user.Username}, cookie.Header())
}

func (h *Handlers) Register(ctx *http.RequestCtx) {
	if len(ctx.Request.Body) == 0 {
		_ = ctx.SendJSONError(http.StatusBadRequest, "Missing credentials")
		return
	}

	var payload registerPayload
	if err := decodeBody(ctx, &payload); err != nil {
		_ = ctx.SendJSONError(http.StatusBadRequest, "Invalid payload")
		return
	}
	if violations := h.validator.Struct(payload); !violations.IsEmpty() {
		_ = ctx.SendJSON(http.StatusBadRequest, registerError{Error: violations.First(), Violations: violations})
		return
	}

	user, err := h.auth.Register(payload.Username, payload.Password)
	if errors.Is(err, database.ErrUserExists) {
		_ = ctx.SendJSONError(http.StatusConflict, "Username already taken")
		return
	}
	if err != nil {
		ctx.Logger.Error("registration failed", slog.String("request_id", ctx.ID), slog.Any("error", err))
		_ = ctx.SendJSONError(http.StatusInternalServerError, "Failed to create user")
		return
	}

	_ = ctx.SendJSON(http.StatusCreated, userResponse{Username: user.Username, UserID: user.ID})
}

type registerError struct {
	Error      string                `json:"error"`
	Violations validation.Violations `json:"violations"`
}

// Logout ends the session named by the request, if any, and always clears the
// cookie.
func (h *Handlers) Logout(ctx *http.RequestCtx) {
	token := ctx.SessionToken
	if token == "" {
		if cookie, err := ctx.Request.Cookie(auth.SessionCookieName); err == nil {
			token = cookie.Value
		}
	}
	h.auth.Logout(token)
	ctx.ClearIdentity()

	cookie := auth.ClearSessionCookie()
	_ = ctx.SendStatus(http.StatusNoContent, cookie.Header())
}

func (h *Handlers) Me(ctx *http.RequestCtx) {
	_ = ctx.SendJSON(http.StatusOK, struct {
		Username string `json:"username"`
		UserID   int64  `json:"userId"`
	}{ctx.Username, ctx.UserID})
}
