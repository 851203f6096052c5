package http

type Handler func(ctx *RequestCtx)

type Param struct {
	Key   string
	Value string
}

// Params holds at most MaxParams bindings. Further bindings are dropped and
// Truncated is set.
type Params struct {
	list      []Param
	Truncated bool
}

func (p *Params) add(key, value string) {
	if len(p.list) >= MaxParams {
		p.Truncated = true
		return
	}
	p.list = append(p.list, Param{Key: key, Value: value})
}

func (p Params) Get(key string) (string, bool) {
	for _, param := range p.list {
		if param.Key == key {
			return param.Value, true
		}
	}
	return "", false
}

func (p Params) Len() int {
	return len(p.list)
}

// Router is an ordered route table. It is built once and never changes, so it
// can be shared by every worker without locking.
type Router struct {
	routes []Route
}

func NewRouter(routes ...Route) *Router {
	table := make([]Route, len(routes))
	copy(table, routes)
	for i := range table {
		if table[i].segments == nil {
			table[i].segments = splitPath(table[i].Pattern)
		}
	}
	return &Router{routes: table}
}

func (router *Router) Routes() []Route {
	routes := make([]Route, len(router.routes))
	copy(routes, router.routes)
	return routes
}

// Match returns the first route registered for method whose pattern matches
// path. A route with the right path but another method does not count.
func (router *Router) Match(method Method, path string) (Handler, Params, bool) {
	segments := splitPath(path)

	for i := range router.routes {
		var params Params
		if router.routes[i].match(method, segments, &params) {
			return router.routes[i].Handler, params, true
		}
	}
	return nil, Params{}, false
}

// Serve dispatches ctx to the matching route, or writes the fixed 404 payload.
func (router *Router) Serve(ctx *RequestCtx) {
	handler, params, found := router.Match(ctx.Request.Method, ctx.Request.Path)
	if !found {
		NotFound(ctx)
		return
	}

	ctx.Params = params
	ctx.ParamsTruncated = params.Truncated
	handler(ctx)
}

// NotFound writes {"error":"Not Found"} with status 404.
func NotFound(ctx *RequestCtx) {
	ctx.Send(NewJSONResponse(StatusNotFound, notFoundBody))
}
