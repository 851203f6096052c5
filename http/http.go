package http

const (
	InitialBufferSize  = 8 * 1024        // 8kB
	MaxBufferSize      = 8 * 1024 * 1024 // 8MB
	MaxHeaderBlockSize = 4 * 1024        // 4kB
	MaxHeaders         = 32
	MaxParams          = 8
	fileChunkSize      = 8 * 1024
)

const (
	ContentTypeJSON        = "application/json"
	ContentTypeOctetStream = "application/octet-stream"
)

var (
	protocolHttp11      = []byte("HTTP/1.1 ")
	crlf                = []byte("\r\n")
	crlfcrlf            = []byte("\r\n\r\n")
	headerSeparator     = []byte(": ")
	connectionClose     = []byte("Connection: close\r\n")
	contentLengthPrefix = []byte("Content-Length: ")
	contentTypePrefix   = []byte("Content-Type: ")

	// Sent on every response, including routing misses and file bodies.
	securityHeaders = []byte("" +
		"X-Content-Type-Options: nosniff\r\n" +
		"X-Frame-Options: DENY\r\n" +
		"Content-Security-Policy: default-src 'self'; img-src 'self' data:; media-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self';\r\n")

	notFoundBody = []byte(`{"error":"Not Found"}`)
)

// Header is a single name/value pair. Request headers keep their wire order.
type Header struct {
	Name  string
	Value string
}
