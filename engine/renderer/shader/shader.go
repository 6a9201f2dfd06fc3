package shader

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/Carmen-Shannon/oxy-batch/engine/renderer/vertex"
)

// ShaderType identifies the pipeline stage a shader entry point belongs to.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// ErrLayoutMismatch is returned when a vertex layout does not provide the inputs a vertex shader reads.
var ErrLayoutMismatch = errors.New("shader: vertex layout does not match shader inputs")

// shader is the implementation of the Shader interface.
type shader struct {
	key        string
	source     string
	shaderType ShaderType
	entryPoint string
	inputs     map[uint32]vertex.Format
}

// Shader is a parsed WGSL shader stage. It exposes the source handed to the GPU, the entry point of its
// stage and, for vertex shaders, the @location inputs the bound vertex buffer has to provide.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used as the GPU module label.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// ShaderType returns the stage of the shader.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// EntryPoint returns the entry point name for this shader's stage.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// Inputs returns the vertex inputs read by a vertex shader, keyed by @location.
	// Fragment shaders return an empty map.
	//
	// Returns:
	//   - map[uint32]vertex.Format: the input formats keyed by shader location
	Inputs() map[uint32]vertex.Format

	// CheckLayout verifies that a vertex layout provides every input of the shader with the matching format.
	//
	// Parameters:
	//   - layout: the vertex layout of the buffers that will be bound
	//
	// Returns:
	//   - error: an error wrapping ErrLayoutMismatch describing the first mismatch, or nil
	CheckLayout(layout vertex.Layout) error
}

var _ Shader = &shader{}

// NewShader parses WGSL source into a Shader for the given stage.
// Source without an entry point for the stage is a programming error and panics.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage of the shader
//   - source: the WGSL source code
//
// Returns:
//   - Shader: the parsed shader
func NewShader(key string, shaderType ShaderType, source string) Shader {
	s := &shader{
		key:        key,
		source:     source,
		shaderType: shaderType,
		entryPoint: parseEntryPoint(source, shaderType),
		inputs:     make(map[uint32]vertex.Format),
	}
	if s.entryPoint == "" {
		panic(fmt.Sprintf("shader: %s has no entry point for its stage", key))
	}
	if shaderType == ShaderTypeVertex {
		inputs, err := parseVertexInputs(source)
		if err != nil {
			panic(fmt.Sprintf("shader: %s: %v", key, err))
		}
		s.inputs = inputs
	}
	return s
}

// LoadShader reads WGSL source from a file and parses it with NewShader.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage of the shader
//   - sourcePath: the file path to read WGSL source from
//
// Returns:
//   - Shader: the parsed shader
func LoadShader(key string, shaderType ShaderType, sourcePath string) Shader {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		panic(fmt.Sprintf("shader: failed to read source file %q: %v", sourcePath, err))
	}
	return NewShader(key, shaderType, string(data))
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) Inputs() map[uint32]vertex.Format {
	return s.inputs
}

func (s *shader) CheckLayout(layout vertex.Layout) error {
	provided := make(map[uint32]vertex.Format, len(layout.Attributes))
	for _, a := range layout.Attributes {
		provided[a.Location] = a.Format
	}

	locations := make([]uint32, 0, len(s.inputs))
	for loc := range s.inputs {
		locations = append(locations, loc)
	}
	sort.Slice(locations, func(i, j int) bool { return locations[i] < locations[j] })

	for _, loc := range locations {
		got, ok := provided[loc]
		if !ok {
			return fmt.Errorf("%w: %s reads @location(%d) which the layout does not provide", ErrLayoutMismatch, s.key, loc)
		}
		if want := s.inputs[loc]; got != want {
			return fmt.Errorf("%w: %s reads @location(%d) as format %d, layout provides %d", ErrLayoutMismatch, s.key, loc, want, got)
		}
	}
	return nil
}
