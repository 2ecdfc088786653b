/*
Package visualization implements the console's central store.

The Store owns the committed event buffer and switches it between two
sources:

  - Live: ToggleStreaming subscribes a wildcard handler on the bus that
    feeds a StreamingBuffer, and starts a frame loop. Every FramePeriod the
    loop runs Flush: merge the streamed events (sorting each incoming
    series), evict everything older than now minus the expiration window,
    update the observed range and clear the streaming buffer. The whole
    frame runs under the store's write lock, so readers see either the
    previous frame or the next one.
  - Recorded: LoadLog replays a log from an archive and installs it with
    ReplaceBuffer. Loading is refused while streaming, and starting to
    stream discards a loaded log.

# Lifecycle

	┌─────────┐  ToggleStreaming   ┌───────────┐
	│ stopped │ ─────────────────► │ streaming │
	│         │ ◄───────────────── │           │
	└─────────┘  ToggleStreaming   └───────────┘
	     │        StopStreaming
	     │ LoadLog
	     ▼
	┌─────────┐
	│ loaded  │  (ToggleStreaming wipes it and starts streaming)
	└─────────┘

StopStreaming is idempotent. Stopping commits the events that arrived
after the last frame before returning.

# Range Selection

The scrub window is a pair of fractions in [0, 1] over the observed range.
Setters reject a value that would leave start >= end instead of clamping,
so one bound never moves the other. RangeDates interpolates the fractions
onto absolute times.

The observed range follows the streaming buffer: the start is the first
stamp observed (raised by eviction to the oldest retained stamp) and the
end is the most recent stamp observed, not the largest.

# Panels

Panels are created and removed only through AddPanel and RemovePanel.
Callers get copies; edits go through UpdatePanel. PanelStreams applies a
panel's type, tag filter, the scrub window and the throttle to the
committed buffer. With RestorePanels, layouts are persisted to a
PanelStore (storage.BoltStore) and restored at startup.
*/
package visualization
