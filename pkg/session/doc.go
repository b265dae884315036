// Package session models the signed-in marketplace user and persists it in a
// storage.Storage under the key "user".
//
// A Session is created when login, registration, MFA completion or email
// verification succeeds, read on every outbound request for its bearer token,
// and destroyed on logout or when the API answers 401. Store caches the
// decoded record in memory; Clear removes only the session entry while Purge
// wipes every persisted key.
//
//	store := session.NewStore(storage.NewMemoryStorage())
//	_ = store.Save(ctx, &session.Session{UserID: "u1", Role: session.RoleClient, Token: "t"})
//	token := store.Token(ctx) // "t"
//
// Tokens are treated as opaque. When a token happens to be a JWT, ExpiresAt
// reads its exp claim without verifying the signature, for display only.
package session
