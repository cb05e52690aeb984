package server

import (
	"context"
	"unicode/utf8"

	"github.com/ValentinKolb/cKV/lib/store"
	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/ValentinKolb/cKV/rpc/serializer"
	"github.com/cockroachdb/errors"
)

// Store service routes
const (
	PathGet    = "/get"
	PathSet    = "/set"
	PathDelete = "/delete"
	PathExists = "/exists"
	PathKeys   = "/keys"
	PathClear  = "/clear"
)

const (
	ParamKey   = "key"
	ParamValue = "value"
)

// NewIStoreServerAdapter creates the adapter that exposes s over the store routes.
// Values are decoded with valueSerializer before they are stored, so only values that
// a client can decode again are accepted.
func NewIStoreServerAdapter(s store.IStore, valueSerializer serializer.IValueSerializer) IRPCServerAdapter {
	return &iStoreServerAdapterImpl{
		store:      s,
		serializer: valueSerializer,
	}
}

type iStoreServerAdapterImpl struct {
	store      store.IStore
	serializer serializer.IValueSerializer
}

func (a *iStoreServerAdapterImpl) Register(router *Router) {
	router.Register(common.MethodGet, PathGet, HandlerFunc(a.handleGet))
	router.Register(common.MethodGet, PathSet, HandlerFunc(a.handleSet))
	router.Register(common.MethodPost, PathSet, HandlerFunc(a.handleSetBody))
	router.Register(common.MethodGet, PathDelete, HandlerFunc(a.handleDelete))
	router.Register(common.MethodGet, PathExists, HandlerFunc(a.handleExists))
	router.Register(common.MethodGet, PathKeys, HandlerFunc(a.handleKeys))
	router.Register(common.MethodGet, PathClear, HandlerFunc(a.handleClear))
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

func (a *iStoreServerAdapterImpl) handleGet(_ context.Context, req *common.Request) (*common.Response, error) {
	key, ok := req.Param(ParamKey)
	if !ok {
		return common.NotFound("missing parameter: key"), nil
	}

	value, ok, err := a.store.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return common.NotFound("key not found: " + key), nil
	}
	return common.OK(value), nil
}

func (a *iStoreServerAdapterImpl) handleSet(_ context.Context, req *common.Request) (*common.Response, error) {
	key, ok := req.Param(ParamKey)
	if !ok {
		return common.NotFound("missing parameter: key"), nil
	}
	escaped, ok := req.Param(ParamValue)
	if !ok {
		return common.NotFound("missing parameter: value"), nil
	}
	return a.set(req, key, serializer.Unescape(escaped))
}

// handleSetBody is the POST variant of /set, the request body holds the encoded value text
func (a *iStoreServerAdapterImpl) handleSetBody(_ context.Context, req *common.Request) (*common.Response, error) {
	key, ok := req.Param(ParamKey)
	if !ok {
		return common.NotFound("missing parameter: key"), nil
	}
	return a.set(req, key, string(req.Body))
}

func (a *iStoreServerAdapterImpl) set(req *common.Request, key, text string) (*common.Response, error) {
	// keys are listed as strings by /keys
	if !utf8.ValidString(key) {
		return common.BadRequest("key is not valid UTF-8"), nil
	}
	// the value must be decodable, the stored text is the received one
	if _, err := a.serializer.Decode(text); err != nil {
		Logger.Debugf("[%s] rejected value for key %q: %v", req.ID, key, err)
		return common.BadRequest(err.Error()), nil
	}
	if err := a.store.Set(key, text); err != nil {
		return nil, err
	}
	return common.OK("OK"), nil
}

func (a *iStoreServerAdapterImpl) handleDelete(_ context.Context, req *common.Request) (*common.Response, error) {
	key, ok := req.Param(ParamKey)
	if !ok {
		return common.NotFound("missing parameter: key"), nil
	}
	if err := a.store.Delete(key); err != nil {
		return nil, err
	}
	return common.OK("OK"), nil
}

func (a *iStoreServerAdapterImpl) handleExists(_ context.Context, req *common.Request) (*common.Response, error) {
	key, ok := req.Param(ParamKey)
	if !ok {
		return common.NotFound("missing parameter: key"), nil
	}
	exists, err := a.store.Exists(key)
	if err != nil {
		return nil, err
	}
	if exists {
		return common.OK("True"), nil
	}
	return common.OK("False"), nil
}

func (a *iStoreServerAdapterImpl) handleKeys(_ context.Context, _ *common.Request) (*common.Response, error) {
	keys, err := a.store.Keys()
	if err != nil {
		return nil, err
	}
	text, err := a.serializer.Encode(keys)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode keys")
	}
	return common.OK(text), nil
}

func (a *iStoreServerAdapterImpl) handleClear(_ context.Context, _ *common.Request) (*common.Response, error) {
	if err := a.store.Clear(); err != nil {
		return nil, err
	}
	return common.OK("OK"), nil
}
