package client

import (
	"context"
	"strings"

	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/ValentinKolb/cKV/rpc/serializer"
	"github.com/ValentinKolb/cKV/rpc/transport"
	"github.com/cockroachdb/errors"
	"github.com/rcrowley/go-metrics"
)

// maxQueryValueBytes is the longest escaped value that is sent in the query string of /set,
// longer values are sent in the body of a POST request
const maxQueryValueBytes = 4 * 1024

// IRPCStore is the client side of the store service
type IRPCStore interface {
	// Set encodes value and stores it under key
	Set(ctx context.Context, key string, value any) error
	// Get returns the decoded value of key. For an absent key ok is false.
	Get(ctx context.Context, key string) (value any, ok bool, err error)
	// GetText returns the stored text of key without decoding it
	GetText(ctx context.Context, key string) (text string, ok bool, err error)
	// Delete removes key, deleting an absent key is no error
	Delete(ctx context.Context, key string) error
	// Exists reports whether key is stored
	Exists(ctx context.Context, key string) (bool, error)
	// Keys returns all stored keys in sorted order
	Keys(ctx context.Context) ([]string, error)
	// Clear removes all keys
	Clear(ctx context.Context) error
	// Metrics returns the registry with one timer per operation (ckv.client.<op>)
	Metrics() metrics.Registry
}

// NewRPCStore creates a new RPC store
// The function takes a client config, a transport factory and a value serializer as parameters.
// Every operation opens its own connection with a transport created by factory.
func NewRPCStore(
	config common.ClientConfig,
	factory transport.ClientFactory,
	valueSerializer serializer.IValueSerializer,
) IRPCStore {
	return &rpcStore{
		rpcClientAdapter: rpcClientAdapter{
			config:  config,
			factory: factory,
			timers:  metrics.NewRegistry(),
		},
		serializer: valueSerializer,
	}
}

type rpcStore struct {
	rpcClientAdapter
	serializer serializer.IValueSerializer
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IRPCStore)
// --------------------------------------------------------------------------

func (s *rpcStore) Set(ctx context.Context, key string, value any) error {
	if err := validateKey(key); err != nil {
		return err
	}
	text, err := s.serializer.Encode(value)
	if err != nil {
		return errors.Wrapf(err, "failed to encode value for key %q", key)
	}

	// text with characters the escaper leaves alone but the query string would break on
	// travels in the request body
	escaped := serializer.Escape(text)
	if strings.ContainsAny(text, "&#%") || len(escaped) > maxQueryValueBytes {
		_, err = s.invoke(ctx, "set", common.MethodPost, "/set?key="+key, []byte(text))
		return err
	}
	_, err = s.invoke(ctx, "set", common.MethodGet, "/set?key="+key+"&value="+escaped, nil)
	return err
}

func (s *rpcStore) Get(ctx context.Context, key string) (any, bool, error) {
	text, ok, err := s.GetText(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}

	value, err := s.serializer.Decode(text)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to decode value of key %q", key)
	}
	return value, true, nil
}

func (s *rpcStore) GetText(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}

	resp, err := s.invoke(ctx, "get", common.MethodGet, "/get?key="+key, nil)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == common.StatusNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return resp.Text(), true, nil
}

func (s *rpcStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := s.invoke(ctx, "delete", common.MethodGet, "/delete?key="+key, nil)
	return err
}

func (s *rpcStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	resp, err := s.invoke(ctx, "exists", common.MethodGet, "/exists?key="+key, nil)
	if err != nil {
		return false, err
	}
	return resp.Text() == "True", nil
}

func (s *rpcStore) Keys(ctx context.Context) ([]string, error) {
	resp, err := s.invoke(ctx, "keys", common.MethodGet, "/keys", nil)
	if err != nil {
		return nil, err
	}

	value, err := s.serializer.Decode(resp.Text())
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode keys")
	}
	items, ok := value.([]any)
	if !ok {
		return nil, errors.Newf("unexpected keys response %q", resp.Text())
	}
	keys := make([]string, 0, len(items))
	for _, item := range items {
		key, ok := item.(string)
		if !ok {
			return nil, errors.Newf("unexpected key %v in keys response", item)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *rpcStore) Clear(ctx context.Context) error {
	_, err := s.invoke(ctx, "clear", common.MethodGet, "/clear", nil)
	return err
}

func (s *rpcStore) Metrics() metrics.Registry {
	return s.timers
}
