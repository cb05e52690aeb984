package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMethod(t *testing.T) {
	m, ok := ParseMethod("GET")
	assert.True(t, ok)
	assert.Equal(t, MethodGet, m)

	_, ok = ParseMethod("get")
	assert.False(t, ok)

	_, ok = ParseMethod("DELETE")
	assert.False(t, ok)
}

func TestRequestDefaults(t *testing.T) {
	req := NewRequest(MethodGet, "/get?key=a", nil, nil)
	assert.Equal(t, StatusOK, req.StatusCode)
	assert.NotNil(t, req.Header)
	assert.NotNil(t, req.Params)

	_, ok := req.Param("key")
	assert.False(t, ok, "params are filled in by the router")
}

func TestHeaderLookupIgnoresCase(t *testing.T) {
	req := NewRequest(MethodPost, "/set", map[string]string{"content-LENGTH": "3"}, []byte("abc"))
	v, ok := req.GetHeader("Content-Length")
	assert.True(t, ok)
	assert.Equal(t, "3", v)

	resp := NotFound("missing")
	v, ok = resp.GetHeader("content-type")
	assert.True(t, ok)
	assert.Equal(t, ContentTypeText, v)

	resp.SetHeader("CONTENT-TYPE", "application/octet-stream")
	assert.Len(t, resp.Header, 1)
	assert.Equal(t, "application/octet-stream", resp.Header["CONTENT-TYPE"])
}

func TestTextResponses(t *testing.T) {
	assert.Equal(t, StatusOK, OK("OK").StatusCode)
	assert.Equal(t, StatusBadRequest, BadRequest("x").StatusCode)
	assert.Equal(t, StatusInternalServerError, InternalError("x").StatusCode)
	assert.Equal(t, "Path: /x not found", NotFound("Path: /x not found").Text())
	assert.Equal(t, "Not Found", StatusText(StatusNotFound))
	assert.Equal(t, "Unknown", StatusText(799))
}
