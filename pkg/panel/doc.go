// Package panel holds the per-view selection state of the console: an
// event type, a regular expression over stream names, a visualizer and
// its options. Changing the event type resets the visualizer and option
// selections because the available visualizers depend on the type.
package panel
