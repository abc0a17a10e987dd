package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed part of a wiring host, such as a
// telemetry exporter.
type Component interface {
	// Name returns the unique name of the component.
	Name() string

	// Start initializes the component.
	Start(ctx context.Context) error

	// Stop shuts the component down and releases its resources.
	Stop(ctx context.Context) error

	// Health returns the current health of the component.
	Health(ctx context.Context) Health
}

// Description is the summary line a component reports about itself.
type Description struct {
	// Name is the display name. Name() is used when empty.
	Name string
	// Type categorizes the component, e.g. "telemetry".
	Type string
	// Details is a one-line summary such as the export endpoint.
	Details string
}

// Describable is optionally implemented by components to appear in the
// host summary.
type Describable interface {
	Describe() Description
}
