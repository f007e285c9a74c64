/*
Package log provides structured logging for CityFix using zerolog.

The package wraps a single global zerolog.Logger. Init configures level and
output format once at startup; packages then derive child loggers that carry
a fixed field so every line can be filtered by subsystem or entity.

# Configuration

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

JSON output is meant for production, console output for local development:

	{"level":"info","component":"api","time":"2026-10-14T10:30:00Z","message":"listening"}
	10:30AM INF listening component=api

Until Init is called the global logger discards everything, which keeps
package tests quiet.

# Child Loggers

WithComponent("payments") tags a subsystem. Services create one in their
constructor.

# Request Loggers

The API instrumentation middleware builds a logger with FromRequest, which
carries the chi request id, method and path, and stores it in the request
context. The auth middleware adds the acting user with WithUser. Handlers
and middleware log through Ctx, which falls back to the global logger when
the context holds none:

	log.Ctx(r.Context()).Warn().Err(err).Msg("Failed to load token subject")

	{"level":"warn","request_id":"host/abc-000001","method":"GET","path":"/api/v1/me","user_id":"u1","role":"citizen","message":"..."}

Component loggers are usually created once in a constructor and stored on
the struct:

	s := &Service{logger: log.WithComponent("issues")}
	s.logger.Info().Str("issue_id", id).Msg("issue reported")
*/
package log
