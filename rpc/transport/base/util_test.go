package base

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReaderSize(strings.NewReader(s), maxLineBytes)
}

func TestReadRequest(t *testing.T) {
	req, err := readRequest(reader("GET /get?key=a HTTP/1.1\r\nHost: x\r\nX-Custom-CASE: Yes\r\n\r\n"), 1024)
	require.NoError(t, err)
	assert.Equal(t, common.MethodGet, req.Method)
	assert.Equal(t, "/get?key=a", req.Target)
	assert.Equal(t, "Yes", req.Header["X-Custom-CASE"], "header case is preserved")
	assert.Empty(t, req.Body)

	req, err = readRequest(reader("POST /set?key=a HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"), 1024)
	require.NoError(t, err)
	assert.Equal(t, common.MethodPost, req.Method)
	assert.Equal(t, []byte("hello"), req.Body)
}

func TestReadRequestErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty connection", "", io.EOF},
		{"missing version", "GET /\r\n\r\n", errMalformedMessage},
		{"relative target", "GET get HTTP/1.1\r\n\r\n", errMalformedMessage},
		{"bad header", "GET / HTTP/1.1\r\nnocolon\r\n\r\n", errMalformedMessage},
		{"bad length", "POST / HTTP/1.1\r\nContent-Length: -1\r\n\r\n", errMalformedMessage},
		{"chunked", "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n", errMalformedMessage},
		{"body too large", "POST / HTTP/1.1\r\nContent-Length: 2000\r\n\r\n", errBodyTooLarge},
		{"truncated header", "GET / HTTP/1.1\r\nHost: x\r\n", io.ErrUnexpectedEOF},
		{"truncated body", "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc", io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readRequest(reader(tt.input), 1024)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestReadRequestLineTooLong(t *testing.T) {
	long := "GET /" + strings.Repeat("a", maxLineBytes*2) + " HTTP/1.1\r\n\r\n"
	_, err := readRequest(reader(long), 1024)
	assert.True(t, errors.Is(err, errMalformedMessage))
}

func TestWriteResponse(t *testing.T) {
	var buf bytes.Buffer
	resp := common.NewResponse(common.StatusNotFound, map[string]string{
		common.HeaderContentType: common.ContentTypeText,
		"Content-Length":         "999",
		common.HeaderConnection:  "close",
	}, []byte("Path: /x not found"))

	require.NoError(t, writeResponse(&buf, resp))
	assert.Equal(t,
		"HTTP/1.1 404 Not Found\r\n"+
			"Connection: close\r\n"+
			"Content-type: text/plain\r\n"+
			"Content-Length: 18\r\n"+
			"\r\n"+
			"Path: /x not found",
		buf.String())
}

func TestWriteResponseStripsLineBreaks(t *testing.T) {
	var buf bytes.Buffer
	resp := common.NewResponse(common.StatusOK, map[string]string{"X": "a\r\nInjected: 1"}, nil)
	require.NoError(t, writeResponse(&buf, resp))
	assert.NotContains(t, buf.String(), "\r\nInjected")
}

func TestRequestResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRequest(&buf, common.MethodPost, "/set?key=k", "localhost", []byte("[1, 2]")))

	req, err := readRequest(bufio.NewReader(&buf), 0)
	require.NoError(t, err)
	assert.Equal(t, "/set?key=k", req.Target)
	assert.Equal(t, "close", req.Header[common.HeaderConnection])
	assert.Equal(t, []byte("[1, 2]"), req.Body)

	buf.Reset()
	require.NoError(t, writeResponse(&buf, common.OK("OK")))
	resp, err := readResponse(bufio.NewReader(&buf), 0)
	require.NoError(t, err)
	assert.Equal(t, common.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", resp.Text())
}

func TestReadResponseUntilEOF(t *testing.T) {
	resp, err := readResponse(reader("HTTP/1.0 200 OK\r\nContent-type: text/plain\r\n\r\nsome body"), 0)
	require.NoError(t, err)
	assert.Equal(t, "some body", resp.Text())

	_, err = readResponse(reader("HTTP/1.1 200 OK\r\n\r\nabcdef"), 3)
	assert.True(t, errors.Is(err, errBodyTooLarge))

	_, err = readResponse(reader(""), 0)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	_, err = readResponse(reader("HTTP/1.1 abc\r\n\r\n"), 0)
	assert.True(t, errors.Is(err, errMalformedMessage))
}
