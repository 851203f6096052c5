package http

// Status codes the server and its handlers send.
const (
	StatusOK             = 200
	StatusCreated        = 201
	StatusNoContent      = 204
	StatusPartialContent = 206

	StatusBadRequest                   = 400
	StatusUnauthorized                 = 401
	StatusForbidden                    = 403
	StatusNotFound                     = 404
	StatusConflict                     = 409
	StatusRequestedRangeNotSatisfiable = 416

	StatusInternalServerError = 500
	StatusServiceUnavailable  = 503
)

const unknownStatusCode = "Unknown Status Code"

var statusMessages = map[int]string{
	StatusOK:             "OK",
	StatusCreated:        "Created",
	StatusNoContent:      "No Content",
	StatusPartialContent: "Partial Content",

	StatusBadRequest:                   "Bad Request",
	StatusUnauthorized:                 "Unauthorized",
	StatusForbidden:                    "Forbidden",
	StatusNotFound:                     "Not Found",
	StatusConflict:                     "Conflict",
	StatusRequestedRangeNotSatisfiable: "Requested Range Not Satisfiable",

	StatusInternalServerError: "Internal Server Error",
	StatusServiceUnavailable:  "Service Unavailable",
}

// StatusText returns the reason phrase for code. Unlisted 5xx codes read as
// Internal Server Error, anything else as Unknown Status Code.
func StatusText(code int) string {
	if msg, found := statusMessages[code]; found {
		return msg
	}
	if code >= 500 {
		return statusMessages[StatusInternalServerError]
	}
	return unknownStatusCode
}
