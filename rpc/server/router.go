package server

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
)

// ErrMalformedQuery is returned by ParseTarget for a query parameter without '='
var ErrMalformedQuery = errors.New("malformed query string")

// HandlerFunc is the full handler shape: it receives the context of the exchange and may fail.
// A returned error results in a 500 response.
type HandlerFunc func(ctx context.Context, req *common.Request) (*common.Response, error)

// HandlerArityError is reported when a registered handler does not have one of the
// supported shapes:
//
//	func() *common.Response
//	func(*common.Request) *common.Response
//	func(context.Context, *common.Request) (*common.Response, error)
type HandlerArityError struct {
	Method  common.Method
	Path    string
	Handler string
}

func (e *HandlerArityError) Error() string {
	return fmt.Sprintf("handler for %s %s has unsupported signature %s", e.Method, e.Path, e.Handler)
}

// binding connects a path and method with a handler
type binding struct {
	handler any
	method  common.Method
	path    string
}

// Router dispatches requests to the handler registered for their path and method.
// Bindings are searched in registration order, the first exact match wins.
// Handlers must be registered before the router serves requests.
type Router struct {
	bindings []binding
	metrics  *serverMetrics
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{}
}

// Register adds a binding. The path is compared without trailing slash.
func (r *Router) Register(method common.Method, path string, handler any) {
	r.bindings = append(r.bindings, binding{
		handler: handler,
		method:  method,
		path:    strings.TrimRight(path, "/"),
	})
}

// Route returns a function that registers a handler for method and path and returns it unchanged:
//
//	add := router.Route(common.MethodGet, "/add")(func(req *common.Request) *common.Response { ... })
func (r *Router) Route(method common.Method, path string) func(handler any) any {
	return func(handler any) any {
		r.Register(method, path, handler)
		return handler
	}
}

// Dispatch parses the request target, fills in Path and Params of req and calls the matching handler.
// It never returns nil: unmatched requests get a 404, a malformed query string a 400 and
// failing or panicking handlers a 500.
func (r *Router) Dispatch(ctx context.Context, req *common.Request) (resp *common.Response) {
	start := time.Now()

	path, params, err := ParseTarget(req.Target)
	if err != nil {
		Logger.Debugf("[%s] %v", req.ID, err)
		resp = common.BadRequest(err.Error())
		r.metrics.observe("", resp.StatusCode, start)
		return resp
	}
	req.Path = path
	req.Params = params

	for i := range r.bindings {
		b := &r.bindings[i]
		if b.path == path && b.method == req.Method {
			resp = r.invoke(ctx, b, req)
			r.metrics.observe(b.path, resp.StatusCode, start)
			return resp
		}
	}

	resp = common.NotFound(fmt.Sprintf("Path: %s not found", path))
	r.metrics.observe("", resp.StatusCode, start)
	return resp
}

// invoke calls the handler of b according to its shape
func (r *Router) invoke(ctx context.Context, b *binding, req *common.Request) (resp *common.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			sentry.CurrentHub().Recover(rec)
			Logger.Errorf("[%s] Handler for %s %s panicked: %v", req.ID, b.method, b.path, rec)
			resp = common.InternalError("Internal Server Error")
		}
	}()

	var err error
	switch h := b.handler.(type) {
	case func() *common.Response:
		resp = h()
	case func(*common.Request) *common.Response:
		resp = h(req)
	case HandlerFunc:
		resp, err = h(ctx, req)
	case func(context.Context, *common.Request) (*common.Response, error):
		resp, err = h(ctx, req)
	default:
		err = &HandlerArityError{Method: b.method, Path: b.path, Handler: reflect.TypeOf(b.handler).String()}
	}

	if err != nil {
		Logger.Errorf("[%s] Handler for %s %s failed: %v", req.ID, b.method, b.path, err)
		return common.InternalError("Internal Server Error")
	}
	if resp == nil {
		Logger.Errorf("[%s] Handler for %s %s returned no response", req.ID, b.method, b.path)
		return common.InternalError("Internal Server Error")
	}
	return resp
}

// ParseTarget splits a request target into the path (without trailing slash) and the query
// parameters. Parameters are split at the first '=', values are not unescaped. Empty
// segments are skipped, a segment without '=' is an error. For repeated names the last
// value wins.
func ParseTarget(target string) (string, map[string]string, error) {
	path, query, hasQuery := strings.Cut(target, "?")
	path = strings.TrimRight(path, "/")

	params := map[string]string{}
	if !hasQuery {
		return path, params, nil
	}

	for _, segment := range strings.Split(query, "&") {
		if segment == "" {
			continue
		}
		name, value, ok := strings.Cut(segment, "=")
		if !ok {
			return path, nil, errors.Wrapf(ErrMalformedQuery, "parameter %q has no value", segment)
		}
		params[name] = value
	}
	return path, params, nil
}
