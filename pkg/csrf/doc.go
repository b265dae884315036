// Package csrf keeps the anti-forgery token the API requires on
// state-changing requests.
//
// A Manager is an explicit state object (empty, cached, invalidated, or
// fetching while a request is in flight) created once per API client and
// handed to the gateway. The gateway calls Ensure before POST, PUT, PATCH and
// DELETE, and Refresh when the server answers 403 with its CSRF error code.
// Warmup fetches eagerly at startup so the first write does not pay for it.
//
// HTTPFetcher implements the token endpoint (GET /csrf-token returning
// {"csrfToken": "..."}). Its http.Client must share the gateway's cookie jar.
package csrf
