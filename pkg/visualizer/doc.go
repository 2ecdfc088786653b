// Package visualizer describes the renderers a panel can choose from.
//
// Rendering itself happens outside the core; a Visualizer only records a
// name, the payload types it accepts, whether it draws single samples or
// whole streams, and its user-selectable options. ForType always ends with
// the generic renderers, so an unknown payload type still gets a view.
package visualizer
