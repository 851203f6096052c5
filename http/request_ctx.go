package http

import (
	"context"
	"io"
	"log/slog"

	"github.com/goccy/go-json"
)

// RequestCtx is the per-request state handed to handlers. It lives for exactly
// one request on one connection.
type RequestCtx struct {
	Conn    io.Writer
	Request *Request

	Params          Params
	ParamsTruncated bool

	Authenticated bool
	UserID        int64
	Username      string
	SessionToken  string

	ID     string
	Logger *slog.Logger

	ctx       context.Context
	status    int
	responded bool
}

func NewRequestCtx(ctx context.Context, conn io.Writer, req *Request, logger *slog.Logger) *RequestCtx {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RequestCtx{
		Conn:    conn,
		Request: req,
		Logger:  logger,
		ctx:     ctx,
	}
}

func (reqCtx *RequestCtx) Context() context.Context {
	if reqCtx.ctx == nil {
		return context.Background()
	}
	return reqCtx.ctx
}

// Param returns the path parameter bound to name, or "".
func (reqCtx *RequestCtx) Param(name string) string {
	v, _ := reqCtx.Params.Get(name)
	return v
}

// ClearIdentity drops whatever Authenticate attached to the request.
func (reqCtx *RequestCtx) ClearIdentity() {
	reqCtx.Authenticated = false
	reqCtx.UserID = 0
	reqCtx.Username = ""
	reqCtx.SessionToken = ""
}

// Send writes res to the connection. Only the first call writes; later calls
// return ErrAlreadyResponded.
func (reqCtx *RequestCtx) Send(res *Response) error {
	if reqCtx.responded {
		return ErrAlreadyResponded
	}
	reqCtx.responded = true
	reqCtx.status = res.Status

	if err := WriteResponse(reqCtx.Conn, res); err != nil {
		reqCtx.Logger.Warn("writing response failed",
			slog.String("request_id", reqCtx.ID),
			slog.Int("status", res.Status),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

// SendJSON encodes payload and sends it with status.
func (reqCtx *RequestCtx) SendJSON(status int, payload any, headers ...Header) error {
	body, err := json.Marshal(payload)
	if err != nil {
		reqCtx.Logger.Error("encoding response failed", slog.String("request_id", reqCtx.ID), slog.Any("error", err))
		return reqCtx.SendJSONError(StatusInternalServerError, "Internal Server Error")
	}

	res := NewJSONResponse(status, body)
	res.Headers = headers
	return reqCtx.Send(res)
}

type errorPayload struct {
	Error string `json:"error"`
}

// SendJSONError sends {"error": message} with status.
func (reqCtx *RequestCtx) SendJSONError(status int, message string) error {
	body, err := json.Marshal(errorPayload{Error: message})
	if err != nil {
		return err
	}
	return reqCtx.Send(NewJSONResponse(status, body))
}

// SendStatus sends an empty response.
func (reqCtx *RequestCtx) SendStatus(status int, headers ...Header) error {
	return reqCtx.Send(&Response{Status: status, Headers: headers})
}

func (reqCtx *RequestCtx) SendFile(status int, contentType string, file FileBody, headers ...Header) error {
	return reqCtx.Send(NewFileResponse(status, contentType, file, headers...))
}

func (reqCtx *RequestCtx) Responded() bool {
	return reqCtx.responded
}

// Status is the status of the response sent so far, 0 if none.
func (reqCtx *RequestCtx) Status() int {
	return reqCtx.status
}
