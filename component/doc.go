// Package component defines lifecycle-managed parts of a wiring host.
//
// A Registry starts components in registration order and stops them in
// reverse order. The bootstrap package registers its telemetry exporters
// as components.
package component
