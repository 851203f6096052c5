package http

import "strings"

// Route binds a method and a slash-delimited pattern to a handler. Pattern
// segments are either literals or ":name" placeholders.
type Route struct {
	Method  Method
	Pattern string
	Handler Handler

	segments []string
}

func NewRoute(method Method, pattern string, handler Handler, middleware ...Middleware) Route {
	for _, mw := range middleware {
		handler = mw(handler)
	}

	return Route{
		Method:   method,
		Pattern:  pattern,
		Handler:  handler,
		segments: splitPath(pattern),
	}
}

func GET(pattern string, handler Handler, middleware ...Middleware) Route {
	return NewRoute(MethodGet, pattern, handler, middleware...)
}

func POST(pattern string, handler Handler, middleware ...Middleware) Route {
	return NewRoute(MethodPost, pattern, handler, middleware...)
}

func PUT(pattern string, handler Handler, middleware ...Middleware) Route {
	return NewRoute(MethodPut, pattern, handler, middleware...)
}

func DELETE(pattern string, handler Handler, middleware ...Middleware) Route {
	return NewRoute(MethodDelete, pattern, handler, middleware...)
}

func OPTIONS(pattern string, handler Handler, middleware ...Middleware) Route {
	return NewRoute(MethodOptions, pattern, handler, middleware...)
}

// Group prefixes every route with prefix and wraps it in middleware.
func Group(prefix string, routes []Route, middleware ...Middleware) []Route {
	grouped := make([]Route, 0, len(routes))
	for _, route := range routes {
		grouped = append(grouped, NewRoute(route.Method, prefix+route.Pattern, route.Handler, middleware...))
	}
	return grouped
}

func (route *Route) match(method Method, segments []string, params *Params) bool {
	if route.Method != method || len(route.segments) != len(segments) {
		return false
	}

	for i, segment := range route.segments {
		if strings.HasPrefix(segment, ":") {
			continue
		}
		if segment != segments[i] {
			return false
		}
	}

	for i, segment := range route.segments {
		if name, found := strings.CutPrefix(segment, ":"); found {
			params.add(name, segments[i])
		}
	}
	return true
}

func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}
