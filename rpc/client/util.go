package client

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/ValentinKolb/cKV/rpc/transport"
	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
)

var (
	Logger = logger.GetLogger("rpc")
)

var (
	// ErrNotFound is the condition of a key that is not in the store
	ErrNotFound = errors.New("key not found")
	// ErrInvalidKey is returned for keys that cannot be sent in a query string
	ErrInvalidKey = errors.New("invalid key")
)

// StatusError is returned when the server answers with an unexpected status code
type StatusError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d %s: %s", e.Path, e.StatusCode, common.StatusText(e.StatusCode), e.Message)
}

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client.
// Every call runs on its own transport created by factory.
type rpcClientAdapter struct {
	config  common.ClientConfig
	factory transport.ClientFactory
	timers  metrics.Registry
}

// invoke is a helper function used by all RPC clients to send requests.
// It connects a fresh transport, performs one exchange and closes the transport again.
// The duration of every call is recorded in the timer named after op, failed calls are
// counted as well. Responses with a status other than 200 are returned as *StatusError.
func (a *rpcClientAdapter) invoke(ctx context.Context, op string, method common.Method, target string, body []byte) (resp *common.Response, err error) {
	start := time.Now()
	defer func() {
		metrics.GetOrRegisterTimer("ckv.client."+op, a.timers).UpdateSince(start)
		if err != nil {
			metrics.GetOrRegisterCounter("ckv.client."+op+".errors", a.timers).Inc(1)
		}
	}()

	t := a.factory()
	if err := t.Connect(ctx, a.config); err != nil {
		return nil, errors.Wrapf(err, "%s: failed to connect to %s", op, a.config.Endpoint)
	}
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			Logger.Debugf("%s: failed to close transport: %v", op, closeErr)
		}
	}()

	if method == common.MethodPost {
		resp, err = t.Post(ctx, target, body)
	} else {
		resp, err = t.Get(ctx, target)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s failed", op)
	}

	if resp.StatusCode != common.StatusOK {
		path, _, _ := strings.Cut(target, "?")
		return resp, &StatusError{Path: path, StatusCode: resp.StatusCode, Message: resp.Text()}
	}
	return resp, nil
}

// validateKey checks that key can be sent unescaped as a query parameter value
func validateKey(key string) error {
	if !utf8.ValidString(key) {
		return errors.Wrapf(ErrInvalidKey, "key %q is not valid UTF-8", key)
	}
	for _, r := range key {
		if strings.ContainsRune("&=?#%", r) || unicode.IsSpace(r) || unicode.IsControl(r) {
			return errors.Wrapf(ErrInvalidKey, "key %q contains %q", key, r)
		}
	}
	return nil
}
