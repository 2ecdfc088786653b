/*
Package log provides structured logging for the console using zerolog.

The log package wraps zerolog with a process-wide Logger, a single Init
entry point and a few child-logger helpers. Every core package derives a
component logger at construction time and attaches stream or type fields
to individual records, so a dropped event can be traced back to the
stream that produced it.

# Configuration

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stderr,
	})

Level filters records globally (debug, info, warn, error; anything else
means info). JSONOutput switches between machine-readable JSON and the
zerolog console writer. Output defaults to stderr so that commands which
print tables on stdout stay pipeable.

# Context Loggers

	bufLog := log.WithComponent("buffer")
	bufLog.Warn().Str("stream", name).Err(err).Msg("dropping event")

	log.WithStream("tracking_camera/front/apriltags").Debug().Msg("first event")
	log.WithTypeID(string(typeID)).Warn().Msg("no decoder registered")

# Conventions

Decode failures, resource fetch failures and truncated logs are logged at
warn level: they are expected in the field and never abort a session.
Error level is reserved for failures that stop a component (a transport
read loop exiting, a listener failing).
*/
package log
