package vertex_buffer

import "fmt"

// Topology maps vertex counts and positions to the draw elements consumed by the GPU and prepares any
// element state (index buffers) a draw needs.
type Topology interface {
	// ToElements converts an amount of vertices to the amount of draw elements covering them.
	//
	// Parameters:
	//   - vertices: the number of vertices
	//
	// Returns:
	//   - int: the number of draw elements (vertices or indices)
	ToElements(vertices int) int

	// ToElementIndex converts a vertex position to the position of its first draw element.
	//
	// Parameters:
	//   - vertexIndex: the vertex position
	//
	// Returns:
	//   - int: the element position
	ToElementIndex(vertexIndex int) int

	// Validate checks that a buffer of the given vertex capacity can be drawn with this topology.
	// Invalid capacities panic.
	//
	// Parameters:
	//   - capacity: the buffer capacity in vertices
	Validate(capacity int)

	// Bind binds topology state for a buffer of the given vertex capacity.
	//
	// Parameters:
	//   - device: the device to bind on
	//   - capacity: the buffer capacity in vertices
	//
	// Returns:
	//   - error: an error if the element state could not be created
	Bind(device Device, capacity int) error

	// Draw issues one draw call covering the vertices [begin, end).
	//
	// Parameters:
	//   - device: the device to draw on
	//   - begin: the first vertex
	//   - end: one past the last vertex
	Draw(device Device, begin, end int)
}

// LinearTopology draws vertices directly, one element per vertex, without an index buffer.
type LinearTopology struct{}

var _ Topology = LinearTopology{}

func (LinearTopology) ToElements(vertices int) int { return vertices }

func (LinearTopology) ToElementIndex(vertexIndex int) int { return vertexIndex }

func (LinearTopology) Validate(int) {}

func (LinearTopology) Bind(Device, int) error { return nil }

func (t LinearTopology) Draw(device Device, begin, end int) {
	device.Draw(uint32(t.ToElements(end-begin)), 1, uint32(t.ToElementIndex(begin)), 0)
}

// QuadTopology draws every 4 vertices as two triangles through the shared quad index buffer.
type QuadTopology struct {
	indices *QuadIndexProvider
}

var _ Topology = &QuadTopology{}

// NewQuadTopology creates a quad topology drawing through the given shared index provider.
//
// Parameters:
//   - indices: the renderer's shared quad index provider
//
// Returns:
//   - *QuadTopology: the topology
func NewQuadTopology(indices *QuadIndexProvider) *QuadTopology {
	return &QuadTopology{indices: indices}
}

func (*QuadTopology) ToElements(vertices int) int { return 3 * vertices / 2 }

func (*QuadTopology) ToElementIndex(vertexIndex int) int { return 3 * vertexIndex / 2 }

func (*QuadTopology) Validate(capacity int) {
	if q := QuadsFor(capacity); q > MaxQuads {
		panic(fmt.Errorf("%w: %d vertices need %d quads, at most %d", ErrIndexRangeExceeded, capacity, q, MaxQuads))
	}
	if capacity%VerticesPerQuad != 0 {
		panic(fmt.Errorf("%w: %d vertices is not a whole number of quads", ErrInvalidSize, capacity))
	}
}

func (t *QuadTopology) Bind(_ Device, capacity int) error {
	return t.indices.Bind(QuadsFor(capacity))
}

func (t *QuadTopology) Draw(device Device, begin, end int) {
	device.DrawIndexed(uint32(t.ToElements(end-begin)), 1, uint32(t.ToElementIndex(begin)), 0, 0)
}

// QuadsFor returns the number of quads needed to cover the given amount of vertices.
func QuadsFor(vertices int) int {
	return (vertices + VerticesPerQuad - 1) / VerticesPerQuad
}
