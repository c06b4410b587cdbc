// Package header dispatches raw volume buffers to the decoder for their
// header type and defines what the rest of the pipeline needs from a header.
package header

import (
	"errors"

	"mrivolume/pkg/format"
	"mrivolume/pkg/nifti"
)

// ErrUnknownType is returned for header types with no registered decoder
var ErrUnknownType = errors.New("unrecognized header type")

// Header is the decoded description of a volume.
type Header interface {
	// BytesPerVoxel is the declared sample width.
	BytesPerVoxel() int
	// LittleEndian is the declared byte order of multi-byte samples.
	LittleEndian() bool
	SampleKind() nifti.SampleKind
	Dimensions() (x, y, z int)
	VoxelSize() (x, y, z float64)
	// IndexToOffset maps a voxel index to its sample position.
	IndexToOffset(x, y, z int) int
	// DataOffset is the byte offset of the first sample in the buffer.
	DataOffset() int
	WorldAt(x, y, z int) (wx, wy, wz float64)
	DatatypeName() string
}

// Parser decodes a header of the given type from data
type Parser interface {
	Parse(t format.HeaderType, data []byte) (Header, error)
}

// ParseFunc decodes a single header type.
type ParseFunc func(data []byte) (Header, error)

// Registry is a Parser that looks decoders up by header type.
type Registry struct {
	decoders map[format.HeaderType]ParseFunc
}

// NewRegistry returns a registry with the built-in decoders registered.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[format.HeaderType]ParseFunc)}
	r.Register(format.HeaderNIfTI, parseNIfTI)
	return r
}

// Register installs fn as the decoder for t, replacing any previous one.
func (r *Registry) Register(t format.HeaderType, fn ParseFunc) {
	r.decoders[t] = fn
}

// Parse implements Parser.
func (r *Registry) Parse(t format.HeaderType, data []byte) (Header, error) {
	fn, ok := r.decoders[t]
	if !ok {
		return nil, ErrUnknownType
	}
	return fn(data)
}

func parseNIfTI(data []byte) (Header, error) {
	h, err := nifti.Parse(data)
	if err != nil {
		return nil, err
	}
	return h, nil
}
