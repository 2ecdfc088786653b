/*
Package eventlog reads and writes recorded event logs.

A log is a plain concatenation of records:

	┌──────────────┬───────────────────────────────┐
	│ uint16 LE n  │ n bytes: serialized Envelope  │  ... repeated
	└──────────────┴───────────────────────────────┘

There is no magic number, separator or trailer, so a record holds at most
65535 bytes. Readers stop cleanly when fewer than two bytes remain, and
report ErrTruncatedRecord when a header promises more bytes than the log
holds. Whatever was read before a failure stays valid: partial telemetry
is more useful than none.

Recorder is the capture side: it subscribes to the bus with the wildcard
filter and appends every envelope to a file, skipping (and logging) the
rare envelope too large for a record.
*/
package eventlog
