package server

// IRPCServerAdapter is the interface for all RPC server adapters.
// An adapter exposes a service (e.g. the store) as a set of routes. It is
// responsible for reading the request parameters, calling the service and
// building the response.
type IRPCServerAdapter interface {
	// Register binds all routes of the adapter on the router.
	// It is called once before the server starts listening.
	Register(router *Router)
}
