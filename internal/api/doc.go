// Package api is the REST gateway to the tournament platform.
//
// It exists as the fallback path: callers route through it only when no
// live channel is connected. Every call is a single request/response with
// no retry; failures surface to the caller as a typed *APIError.
package api
