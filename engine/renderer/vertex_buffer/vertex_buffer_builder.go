package vertex_buffer

import "log/slog"

type bufferConfig struct {
	label    string
	topology Topology
	registry *Registry
	logger   *slog.Logger
}

// VertexBufferOption is a function that configures a VertexBuffer.
type VertexBufferOption func(*bufferConfig)

// WithLabel sets the debug label of the GPU buffer.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - VertexBufferOption: a function that applies the label
func WithLabel(label string) VertexBufferOption {
	return func(c *bufferConfig) {
		c.label = label
	}
}

// WithTopology sets the topology used to map vertices to draw elements. The default is LinearTopology.
//
// Parameters:
//   - topology: the topology
//
// Returns:
//   - VertexBufferOption: a function that applies the topology
func WithTopology(topology Topology) VertexBufferOption {
	return func(c *bufferConfig) {
		c.topology = topology
	}
}

// WithRegistry registers the buffer with the given registry whenever it holds GPU memory.
//
// Parameters:
//   - registry: the registry
//
// Returns:
//   - VertexBufferOption: a function that applies the registry
func WithRegistry(registry *Registry) VertexBufferOption {
	return func(c *bufferConfig) {
		c.registry = registry
	}
}

// WithLogger sets the logger for allocation events.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - VertexBufferOption: a function that applies the logger
func WithLogger(logger *slog.Logger) VertexBufferOption {
	return func(c *bufferConfig) {
		c.logger = logger
	}
}
