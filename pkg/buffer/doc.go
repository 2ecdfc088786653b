/*
Package buffer holds decoded telemetry bucketed by payload type and stream
name.

Buffer is the plain data shape shared by the live and replay paths:

	Buffer[typeID][streamName] = []TimestampedEvent

StreamingBuffer is the accumulator in front of it. The live path adds
envelopes as they arrive, in whatever order the transport delivers them;
the replay path feeds a recorded log through the same Add. Ordering is a
flush-time concern: Merge sorts each incoming series before appending it
to the committed buffer, and Evict relies on that order to cut each
series with a binary search.

Select and Throttle are the display-side helpers used by panels: a name
filter, a closed time interval, then a greedy forward throttle in which
every kept sample resets the reference point.
*/
package buffer
