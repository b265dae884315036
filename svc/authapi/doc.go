// Package authapi wraps the marketplace authentication endpoints in typed
// calls over the gateway: login, registration, email verification, MFA and
// the password and MFA management calls.
//
// Inputs are checked with pkg/validator before anything is sent, so invalid
// input never reaches the network. Sessions are returned, not stored.
package authapi
