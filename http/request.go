package http

// Request is one parsed HTTP/1.1 request. Body and Raw alias the connection's
// read buffer and are only valid until the connection is released.
type Request struct {
	Method  Method
	Path    string
	Query   string
	Version string

	// Headers holds at most MaxHeaders entries in wire order. Later headers are
	// dropped and HeadersTruncated is set.
	Headers          []Header
	HeadersTruncated bool

	// Body is exactly Content-Length bytes long, whatever else was buffered.
	Body []byte
	Raw  []byte
}

// HeaderValue does a case-insensitive lookup; the first match wins.
func (req *Request) HeaderValue(name string) (string, bool) {
	for i := range req.Headers {
		if equalFold(req.Headers[i].Name, name) {
			return req.Headers[i].Value, true
		}
	}
	return "", false
}

func (req *Request) Header(name string) string {
	v, _ := req.HeaderValue(name)
	return v
}

// Cookie returns the first cookie called name from the Cookie header.
func (req *Request) Cookie(name string) (Cookie, error) {
	header, found := req.HeaderValue("Cookie")
	if !found {
		return Cookie{}, ErrNoCookie
	}

	cookies, _ := ParseCookies(header)
	for _, cookie := range cookies {
		if cookie.Name == name {
			return *cookie, nil
		}
	}
	return Cookie{}, ErrNoCookie
}

func (req *Request) Reset() {
	*req = Request{Headers: req.Headers[:0]}
}
