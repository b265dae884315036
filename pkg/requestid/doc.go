// Package requestid attaches correlation ids to outbound API calls.
//
// Every request sent by the gateway carries an X-Request-ID header. The id
// comes from the call's context when one was set with WithContext, otherwise
// Propagate generates a UUIDv4 and stores it in the request context so that
// log lines written while handling the response carry the same id through
// LoggerExtractor:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	ctx := requestid.WithContext(ctx, "cli-login-1")
//
// Ids received from elsewhere are only reused when they pass Valid.
package requestid
