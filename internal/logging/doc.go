// Package logging provides structured logging with OpenTelemetry integration.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Dual output (stdout + OpenTelemetry log bridge)
//   - Automatic context field injection (trace_id, request, document, session)
//
// # Usage
//
// Create logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, otelProvider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx := logging.WithDocumentID(ctx, doc.ID)
//	logger.Info(ctx, "document processed", zap.Int("fragments", n))
//
// Output includes automatic correlation:
//
//	{
//	  "ts": "2025-11-24T10:15:30Z",
//	  "level": "info",
//	  "msg": "document processed",
//	  "trace_id": "abc123",
//	  "document.id": "7c9e6679-7425-40de-944b-e07fc1f90ae7",
//	  "fragments": 12
//	}
//
// # Configuration Precedence
//
// Configuration follows standard docqad precedence:
//  1. Defaults (NewDefaultConfig)
//  2. File (config.yaml, logging section)
//  3. Environment variables (DOCQAD_LOGGING__*)
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
//
// # Concurrency Safety
//
// Logger is safe for concurrent use. Child loggers (With, Named) are
// independent and do not affect parent or siblings.
package logging
