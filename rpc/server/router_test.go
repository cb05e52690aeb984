package server

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(target string) *common.Request {
	return common.NewRequest(common.MethodGet, target, nil, nil)
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		target string
		path   string
		params map[string]string
	}{
		{"/get", "/get", map[string]string{}},
		{"/get/", "/get", map[string]string{}},
		{"/", "", map[string]string{}},
		{"/get?key=a", "/get", map[string]string{"key": "a"}},
		{"/get/?key=a", "/get", map[string]string{"key": "a"}},
		{"/set?key=a&value=%27x%27", "/set", map[string]string{"key": "a", "value": "%27x%27"}},
		{"/set?key=a&&value=1", "/set", map[string]string{"key": "a", "value": "1"}},
		{"/set?key=a=b", "/set", map[string]string{"key": "a=b"}},
		{"/set?key=", "/set", map[string]string{"key": ""}},
		{"/set?key=a&key=b", "/set", map[string]string{"key": "b"}},
		{"/get?", "/get", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			path, params, err := ParseTarget(tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestParseTargetMalformedQuery(t *testing.T) {
	_, _, err := ParseTarget("/get?key")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedQuery))

	_, _, err = ParseTarget("/set?key=a&value")
	assert.True(t, errors.Is(err, ErrMalformedQuery))
}

func TestDispatchHandlerShapes(t *testing.T) {
	r := NewRouter()
	r.Register(common.MethodGet, "/plain", func() *common.Response {
		return common.OK("plain")
	})
	r.Register(common.MethodGet, "/req", func(req *common.Request) *common.Response {
		v, _ := req.Param("v")
		return common.OK("req " + v)
	})
	r.Register(common.MethodGet, "/ctx", HandlerFunc(func(_ context.Context, req *common.Request) (*common.Response, error) {
		return common.OK("ctx " + req.Path), nil
	}))
	r.Register(common.MethodGet, "/unnamed", func(_ context.Context, _ *common.Request) (*common.Response, error) {
		return common.OK("unnamed"), nil
	})

	ctx := context.Background()
	assert.Equal(t, "plain", r.Dispatch(ctx, get("/plain")).Text())
	assert.Equal(t, "req 1", r.Dispatch(ctx, get("/req?v=1")).Text())
	assert.Equal(t, "ctx /ctx", r.Dispatch(ctx, get("/ctx/")).Text())
	assert.Equal(t, "unnamed", r.Dispatch(ctx, get("/unnamed")).Text())
}

func TestDispatchFillsRequest(t *testing.T) {
	r := NewRouter()
	var seen *common.Request
	r.Register(common.MethodGet, "/add", func(req *common.Request) *common.Response {
		seen = req
		return common.OK("")
	})

	r.Dispatch(context.Background(), get("/add?a=1&b=2"))
	require.NotNil(t, seen)
	assert.Equal(t, "/add", seen.Path)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, seen.Params)
	assert.Equal(t, common.MethodGet, seen.Method)
}

func TestDispatchNotFound(t *testing.T) {
	r := NewRouter()
	r.Register(common.MethodGet, "/get", func() *common.Response { return common.OK("") })

	resp := r.Dispatch(context.Background(), get("/missing?key=a"))
	assert.Equal(t, common.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Path: /missing not found", resp.Text())
	ct, _ := resp.GetHeader(common.HeaderContentType)
	assert.Equal(t, common.ContentTypeText, ct)

	// path matches but the method does not
	resp = r.Dispatch(context.Background(), common.NewRequest(common.MethodPost, "/get", nil, nil))
	assert.Equal(t, common.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Path: /get not found", resp.Text())
}

func TestDispatchFirstMatchWins(t *testing.T) {
	r := NewRouter()
	r.Register(common.MethodGet, "/x", func() *common.Response { return common.OK("first") })
	r.Register(common.MethodGet, "/x/", func() *common.Response { return common.OK("second") })

	assert.Equal(t, "first", r.Dispatch(context.Background(), get("/x")).Text())
}

func TestDispatchMethods(t *testing.T) {
	r := NewRouter()
	r.Register(common.MethodGet, "/v", func() *common.Response { return common.OK("get") })
	r.Register(common.MethodPost, "/v", func(req *common.Request) *common.Response {
		return common.OK("post " + string(req.Body))
	})

	post := common.NewRequest(common.MethodPost, "/v", nil, []byte("body"))
	assert.Equal(t, "get", r.Dispatch(context.Background(), get("/v")).Text())
	assert.Equal(t, "post body", r.Dispatch(context.Background(), post).Text())
}

func TestDispatchMalformedQuery(t *testing.T) {
	r := NewRouter()
	called := false
	r.Register(common.MethodGet, "/get", func() *common.Response {
		called = true
		return common.OK("")
	})

	resp := r.Dispatch(context.Background(), get("/get?key"))
	assert.Equal(t, common.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, resp.Text(), "malformed query string")
	assert.False(t, called)
}

func TestDispatchHandlerFailures(t *testing.T) {
	r := NewRouter()
	r.Register(common.MethodGet, "/arity", func(a, b int) int { return a + b })
	r.Register(common.MethodGet, "/error", HandlerFunc(func(context.Context, *common.Request) (*common.Response, error) {
		return nil, errors.New("boom")
	}))
	r.Register(common.MethodGet, "/panic", func() *common.Response { panic("boom") })
	r.Register(common.MethodGet, "/nil", func() *common.Response { return nil })

	for _, path := range []string{"/arity", "/error", "/panic", "/nil"} {
		t.Run(path, func(t *testing.T) {
			resp := r.Dispatch(context.Background(), get(path))
			require.NotNil(t, resp)
			assert.Equal(t, common.StatusInternalServerError, resp.StatusCode)
		})
	}
}

func TestHandlerArityError(t *testing.T) {
	err := &HandlerArityError{Method: common.MethodGet, Path: "/arity", Handler: "func(int, int) int"}
	assert.Equal(t, "handler for GET /arity has unsupported signature func(int, int) int", err.Error())
}

func TestRouteHelper(t *testing.T) {
	r := NewRouter()
	h := r.Route(common.MethodGet, "/hello")(func() *common.Response { return common.OK("hello") })

	_, ok := h.(func() *common.Response)
	assert.True(t, ok, "the handler is returned unchanged")
	assert.Equal(t, "hello", r.Dispatch(context.Background(), get("/hello")).Text())
}

func TestDispatchMetrics(t *testing.T) {
	r := NewRouter()
	r.metrics = newServerMetrics()
	r.Register(common.MethodGet, "/get", func() *common.Response { return common.OK("") })

	ctx := context.Background()
	r.Dispatch(ctx, get("/get"))
	r.Dispatch(ctx, get("/get?x=1"))
	r.Dispatch(ctx, get("/random-1"))
	r.Dispatch(ctx, get("/random-2"))

	var buf bytes.Buffer
	r.metrics.write(&buf)
	out := buf.String()

	assert.Contains(t, out, `ckv_requests_total{path="/get",status="200"} 2`)
	assert.Contains(t, out, `ckv_requests_total{path="unmatched",status="404"} 2`)
	assert.Contains(t, out, `ckv_request_duration_seconds_count{path="/get"} 2`)
	assert.False(t, strings.Contains(out, "random"), "unmatched paths are not used as labels")
}
