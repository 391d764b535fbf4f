// Package logging provides structured logging with credential redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON, text, and console formats
//   - Redaction of credentials (bearer and basic tokens, URL user info,
//     secret query parameters, API keys, passwords)
//   - Context-aware logging with request IDs, operations and functions
//   - A runtime adjustable log level
//
// Redaction and context fields are implemented as a slog.Handler, so the
// *slog.Logger returned by Logger.Slog carries both behaviors into any
// package that logs through plain slog.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Redact: true,
//	})
//
//	logger.Info("request sent",
//	    "url", "https://api.example.com/users?token=abc", // query secret redacted
//	    "authorization", "Bearer abc",                    // masked by key
//	)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "processing") // includes request_id
package logging
