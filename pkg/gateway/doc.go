// Package gateway is the authenticated request pipeline every API call goes
// through.
//
// On the way out a request gets the session's bearer token, an X-Request-ID,
// and, for POST, PUT, PATCH and DELETE, the CSRF token from the injected
// TokenSource. On the way back failures are classified into a Kind:
//
//	403 + CSRF code   refresh token, replay once; otherwise KindCSRFExpired
//	401 on login      KindLoginRejected: session entry cleared, no redirect
//	401               KindUnauthorized: storage purged, redirect to login
//	                  unless the user is already on an auth screen
//	403               KindForbidden: redirect to the role's home unless there
//	404, 400          KindNotFound, KindBadRequest: server message if any
//	5xx               KindServer
//	no response       KindNetwork
//
// Each classified failure is logged, published as an Event through the
// Emitter, and returned as *APIError so the caller can still show field
// errors. The gateway never navigates: Event.Redirect is a request to the
// presentation layer. Redirect targets come from routes.Config and the
// current location from the Locator option.
//
// Metrics, when configured, count calls per outcome and CSRF replays.
package gateway
