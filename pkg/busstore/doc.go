// Package busstore keeps an at-a-glance view of the bus: for every stream
// name, the latest decoded value, its type and stamp, and how many events
// arrived during the last period (one second by default). It is
// deliberately independent of the visualization store so that overview
// dashboards do not pay for full buffering.
package busstore
