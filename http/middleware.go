package http

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

type Middleware func(next Handler) Handler

// RecoverMiddleware turns a handler panic into a 500 when nothing was sent yet.
func RecoverMiddleware(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx *RequestCtx) {
			defer func() {
				if recovered := recover(); recovered != nil {
					logger.Error("handler panicked",
						slog.String("request_id", ctx.ID),
						slog.String("path", ctx.Request.Path),
						slog.String("panic", fmt.Sprint(recovered)),
						slog.String("stack", string(debug.Stack())),
					)

					if !ctx.Responded() {
						_ = ctx.SendJSONError(StatusInternalServerError, "Internal Server Error")
					}
				}
			}()

			next(ctx)
		}
	}
}

// RequireAuth rejects requests without an authenticated identity.
func RequireAuth() Middleware {
	return func(next Handler) Handler {
		return func(ctx *RequestCtx) {
			if !ctx.Authenticated {
				_ = ctx.SendJSONError(StatusUnauthorized, "Unauthorized")
				return
			}

			next(ctx)
		}
	}
}
