package http

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

type SameSite int

const (
	SameSiteDefaultMode SameSite = iota + 1
	SameSiteLaxMode
	SameSiteStrictMode
	SameSiteNoneMode
)

var ErrNoCookie = errors.New("http: named cookie not present")

const cookieTimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Cookie is a Set-Cookie value. Only name and value are read back from requests.
type Cookie struct {
	Name  string
	Value string

	Path     string
	Expires  time.Time
	MaxAge   int // < 0 means Max-Age=0, 0 means unset
	Secure   bool
	HttpOnly bool
	SameSite SameSite
}

// String renders the cookie as a Set-Cookie header value.
func (c *Cookie) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)

	if c.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	switch c.SameSite {
	case SameSiteLaxMode:
		b.WriteString("; SameSite=Lax")
	case SameSiteStrictMode:
		b.WriteString("; SameSite=Strict")
	case SameSiteNoneMode:
		b.WriteString("; SameSite=None")
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(c.Path)
	}
	if c.MaxAge > 0 {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(c.MaxAge))
	} else if c.MaxAge < 0 {
		b.WriteString("; Max-Age=0")
	}
	if !c.Expires.IsZero() {
		b.WriteString("; Expires=")
		b.WriteString(c.Expires.UTC().Format(cookieTimeFormat))
	}

	return b.String()
}

// Header wraps the cookie into a Set-Cookie response header.
func (c *Cookie) Header() Header {
	return Header{Name: "Set-Cookie", Value: c.String()}
}

// Expire turns c into a cookie that makes the client drop it.
func (c *Cookie) Expire() {
	c.Value = "deleted"
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
}

// ParseCookies splits a request Cookie header into name/value pairs. Entries
// without '=' or with an empty name are skipped.
func ParseCookies(header string) ([]*Cookie, error) {
	var cookies []*Cookie

	for part := range strings.SplitSeq(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		cookies = append(cookies, &Cookie{
			Name:  name,
			Value: strings.TrimSpace(value),
		})
	}

	return cookies, nil
}
