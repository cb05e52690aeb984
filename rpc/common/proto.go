package common

import (
	"net/http"
	"strings"
)

// --------------------------------------------------------------------------
// Request Methods & Status Codes
// --------------------------------------------------------------------------

// Method is the request method of an exchange. Only GET and POST are routed.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// ParseMethod converts the method token of a request line. Methods are case-sensitive.
func ParseMethod(s string) (Method, bool) {
	switch Method(s) {
	case MethodGet, MethodPost:
		return Method(s), true
	default:
		return Method(s), false
	}
}

const (
	StatusOK                  = http.StatusOK
	StatusBadRequest          = http.StatusBadRequest
	StatusForbidden           = http.StatusForbidden
	StatusNotFound            = http.StatusNotFound
	StatusInternalServerError = http.StatusInternalServerError
)

const (
	HeaderConnection    = "Connection"
	HeaderContentType   = "Content-type"
	HeaderContentLength = "Content-Length"

	ContentTypeText = "text/plain"
)

// StatusText returns the reason phrase for a status code
func StatusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "Unknown"
}

// --------------------------------------------------------------------------
// Request
// --------------------------------------------------------------------------

// Request is one inbound exchange. It is built by the transport, completed by the
// router (Path and Params) and must not be modified by handlers.
type Request struct {
	// ID identifies the exchange in log messages
	ID string
	// StatusCode is always 200 for inbound requests
	StatusCode int
	Method     Method
	// Target is the raw request target as received (path plus query string)
	Target string
	// Path is the parsed path without query string and trailing slash
	Path string
	// Header holds the request headers with the case they were received in
	Header map[string]string
	// Body is empty for GET requests
	Body []byte
	// Params holds the query parameters
	Params map[string]string
}

// NewRequest creates a request as it is handed from a transport to the router
func NewRequest(method Method, target string, header map[string]string, body []byte) *Request {
	if header == nil {
		header = map[string]string{}
	}
	return &Request{
		StatusCode: StatusOK,
		Method:     method,
		Target:     target,
		Header:     header,
		Body:       body,
		Params:     map[string]string{},
	}
}

// Param returns a query parameter and whether it was present
func (r *Request) Param(name string) (string, bool) {
	v, ok := r.Params[name]
	return v, ok
}

// GetHeader looks up a header ignoring the case of the name
func (r *Request) GetHeader(name string) (string, bool) {
	return lookupHeader(r.Header, name)
}

// --------------------------------------------------------------------------
// Response
// --------------------------------------------------------------------------

// Response is the outcome of a handler
type Response struct {
	StatusCode int
	Header     map[string]string
	Body       []byte
}

// NewResponse creates a response with the given status code, headers and body
func NewResponse(statusCode int, header map[string]string, body []byte) *Response {
	if header == nil {
		header = map[string]string{}
	}
	return &Response{
		StatusCode: statusCode,
		Header:     header,
		Body:       body,
	}
}

// NewTextResponse creates a text/plain response, the text is sent UTF-8 encoded
func NewTextResponse(statusCode int, text string) *Response {
	return NewResponse(statusCode, map[string]string{HeaderContentType: ContentTypeText}, []byte(text))
}

// OK creates a 200 text response
func OK(text string) *Response {
	return NewTextResponse(StatusOK, text)
}

// NotFound creates a 404 text response
func NotFound(text string) *Response {
	return NewTextResponse(StatusNotFound, text)
}

// BadRequest creates a 400 text response
func BadRequest(text string) *Response {
	return NewTextResponse(StatusBadRequest, text)
}

// InternalError creates a 500 text response
func InternalError(text string) *Response {
	return NewTextResponse(StatusInternalServerError, text)
}

// Text returns the body as text
func (r *Response) Text() string {
	return string(r.Body)
}

// GetHeader looks up a header ignoring the case of the name
func (r *Response) GetHeader(name string) (string, bool) {
	return lookupHeader(r.Header, name)
}

// SetHeader sets a header, replacing any header with the same name in different case
func (r *Response) SetHeader(name, value string) {
	if r.Header == nil {
		r.Header = map[string]string{}
	}
	for k := range r.Header {
		if strings.EqualFold(k, name) {
			delete(r.Header, k)
		}
	}
	r.Header[name] = value
}

func lookupHeader(header map[string]string, name string) (string, bool) {
	if v, ok := header[name]; ok {
		return v, true
	}
	for k, v := range header {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
