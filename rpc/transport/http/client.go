package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/ValentinKolb/cKV/rpc/transport"
	"github.com/cockroachdb/errors"
)

func NewHttpClientTransport() transport.IRPCClientTransport {
	return &httpClientTransport{}
}

type httpClientTransport struct {
	serverURL *url.URL
	client    *http.Client
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Connect(_ context.Context, config common.ClientConfig) error {
	if config.Endpoint == "" {
		return errors.New("no endpoint provided")
	}

	endpoint := config.Endpoint
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	serverURL, err := url.Parse(endpoint)
	if err != nil {
		return errors.Wrapf(err, "invalid endpoint %s", config.Endpoint)
	}

	// Create client without connection reuse, every exchange uses its own connection
	t.client = &http.Client{
		Timeout: config.Timeout(),
		Transport: &http.Transport{
			DisableKeepAlives: true,
		},
	}
	t.serverURL = serverURL
	return nil
}

func (t *httpClientTransport) Get(ctx context.Context, target string) (*common.Response, error) {
	return t.do(ctx, http.MethodGet, target, nil)
}

func (t *httpClientTransport) Post(ctx context.Context, target string, body []byte) (*common.Response, error) {
	return t.do(ctx, http.MethodPost, target, body)
}

func (t *httpClientTransport) Close() error {
	if t.client == nil {
		return errors.New("http transport not initialized")
	}
	t.client.CloseIdleConnections()
	t.client = nil
	t.serverURL = nil
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *httpClientTransport) do(ctx context.Context, method, target string, body []byte) (*common.Response, error) {
	// Check if the transport is initialized
	if t.client == nil {
		return nil, errors.New("http transport not initialized")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpRequest, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(t.serverURL.String(), "/")+target, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create request for %s", target)
	}
	httpRequest.Close = true

	httpResponse, err := t.client.Do(httpRequest)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send %s %s", method, target)
	}
	defer httpResponse.Body.Close()

	respBody, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read response for %s %s", method, target)
	}

	header := make(map[string]string, len(httpResponse.Header))
	for name, values := range httpResponse.Header {
		if len(values) > 0 {
			header[name] = values[0]
		}
	}
	return common.NewResponse(httpResponse.StatusCode, header, respBody), nil
}
