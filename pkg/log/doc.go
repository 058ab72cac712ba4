/*
Package log provides structured logging for the job-manager event engine
using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper
functions for common logging patterns. All logs include timestamps and
support filtering by severity level for production debugging.

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: Add a component name to all logs (e.g. "engine", "batch", "replica")
  - Per-call fields (job_id, batch_id, event name, ...) are chained onto a
    component logger at the call site rather than through dedicated
    constructors, since they vary independently per call

# Usage

Initializing the Logger:

	import "github.com/cuemby/jobmgr/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

Simple Logging:

	log.Info("job-manager event engine started")
	log.Debug("checking batch window")
	log.Warn("hook returned a non-fatal error")
	log.Error("commit failed")
	log.Fatal("cannot start without a kvs store") // Exits process

Structured Logging:

	log.Logger.Info().
		Uint64("job_id", jobID).
		Str("event", string(eventlog.Submit)).
		Msg("event posted")

	log.Logger.Error().
		Err(err).
		Str("batch_id", batchID).
		Msg("commit failed")

Context Loggers:

	engineLog := log.WithComponent("engine")
	engineLog.Info().Msg("reactor goroutine started")
	engineLog.Debug().Uint64("job_id", jobID).Str("state", string(j.State)).Msg("state transition")

	batchLog := log.WithComponent("batch")
	batchLog.Info().Str("batch_id", batchID).Int("appends", len(appends)).Msg("committing batch")

Complete Example:

	package main

	import (
		"errors"
		"os"

		"github.com/cuemby/jobmgr/pkg/log"
	)

	func main() {
		log.Init(log.Config{
			Level:      log.InfoLevel,
			JSONOutput: true,
			Output:     os.Stdout,
		})

		log.Info("job-manager event engine starting")

		engineLog := log.WithComponent("engine")
		engineLog.Info().
			Uint64("job_id", 42).
			Msg("posting submit event")

		err := errors.New("commit failed")
		log.Logger.Error().
			Err(err).
			Str("component", "batch").
			Msg("kvs append failed")

		log.Info("job-manager event engine stopped")
	}

# Integration Points

This package integrates with:

  - pkg/engine: Logs per-job collaborator and action failures
  - pkg/batch: Logs fatal commit and publish failures
  - pkg/jobtap: Logs plugin hook callback failures
  - pkg/collab: Logs demo collaborator calls at debug level
  - pkg/replica: Logs raft replicator startup
  - cmd/jobmgrd: Logs daemon startup, shutdown, and metrics server errors

# Log Output Examples

JSON Format (Production):

	{"level":"info","component":"engine","job_id":42,"time":"2024-10-13T10:30:00Z","message":"event posted"}
	{"level":"info","component":"batch","batch_id":"b-7","time":"2024-10-13T10:30:01Z","message":"batch committed"}
	{"level":"error","component":"batch","error":"disk full","time":"2024-10-13T10:30:02Z","message":"commit failed"}

Console Format (Development):

	10:30:00 INF event posted component=engine job_id=42
	10:30:01 INF batch committed component=batch batch_id=b-7
	10:30:02 ERR commit failed component=batch error="disk full"

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Create component-specific loggers with WithComponent
  - Log errors with .Err() so zerolog attaches the error field consistently

Don't:
  - Log sensitive data
  - Use Debug level in production
  - Log in tight loops (the batch window already coalesces most hot-path logging)
  - Concatenate strings into the message (use .Str, .Uint64, ...)
*/
package log
