// Package imagedata fills a voxel store from a decoded header and its buffer.
//
// Samples are read in host byte order, the way a typed-array view over the
// buffer would see them. Restoring the declared byte order is left to the
// caller, which knows whether the header and host disagree.
package imagedata

import (
	"encoding/binary"
	"errors"
	"fmt"

	"mrivolume/internal/models"
	"mrivolume/pkg/header"
)

// ErrTruncated is returned when the buffer ends before the last voxel
var ErrTruncated = errors.New("image data truncated")

// Loader reads voxel samples
type Loader interface {
	Load(h header.Header, data []byte) (*models.VoxelStore, error)
}

// SampleLoader is the default Loader. Only the first 3-D volume of a series
// is read; later time points are ignored.
type SampleLoader struct{}

// Load implements Loader.
func (SampleLoader) Load(h header.Header, data []byte) (*models.VoxelStore, error) {
	width, height, depth := h.Dimensions()
	numBytes := h.BytesPerVoxel()
	count := width * height * depth
	offset := h.DataOffset()

	if offset < 0 || offset > len(data) {
		return nil, fmt.Errorf("%w: data offset %d beyond buffer of %d bytes", ErrTruncated, offset, len(data))
	}
	need := count * numBytes
	if len(data)-offset < need {
		return nil, fmt.Errorf("%w: need %d bytes after offset %d, have %d",
			ErrTruncated, need, offset, len(data)-offset)
	}

	store := &models.VoxelStore{
		Data:          make([]uint32, count),
		Width:         width,
		Height:        height,
		Depth:         depth,
		BytesPerVoxel: numBytes,
	}
	store.VoxelSize.X, store.VoxelSize.Y, store.VoxelSize.Z = h.VoxelSize()

	samples := data[offset : offset+need]
	switch numBytes {
	case 1:
		for i, b := range samples {
			store.Data[i] = uint32(b)
		}
	case 2:
		for i := range store.Data {
			store.Data[i] = uint32(binary.NativeEndian.Uint16(samples[2*i:]))
		}
	case 4:
		for i := range store.Data {
			store.Data[i] = binary.NativeEndian.Uint32(samples[4*i:])
		}
	default:
		return nil, fmt.Errorf("unsupported sample width: %d bytes", numBytes)
	}

	return store, nil
}
