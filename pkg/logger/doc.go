// Package logger builds the *slog.Logger used across taskdesk.
//
// New takes functional options for level, format, output, static attributes
// and context extractors. Extractors run on every record, which is how the
// request id of an outbound API call ends up in each log line:
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "taskdesk"),
//		logger.WithLevelName(cfg.LogLevel),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//
// Output defaults to stderr in text format so that stdout stays free for
// command results.
//
// Helpers in attr.go (Error, Status, Kind, ...) keep attribute keys uniform.
package logger
