package models

// VoxelStore holds the samples of one loaded volume
type VoxelStore struct {
	// Data holds one raw sample per voxel, x-fastest. Each entry is the
	// sample's bit pattern read in host byte order and zero-extended.
	Data []uint32

	// Width, Height, Depth are the dimensions of the volume in voxels
	Width, Height, Depth int

	// BytesPerVoxel is the width of each stored sample
	BytesPerVoxel int

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize struct {
		X, Y, Z float64
	}
}

// Len returns the number of voxels in the store
func (s *VoxelStore) Len() int {
	return s.Width * s.Height * s.Depth
}

// At returns the raw sample at offset, or 0 when offset is out of range
func (s *VoxelStore) At(offset int) uint32 {
	if offset < 0 || offset >= len(s.Data) {
		return 0
	}
	return s.Data[offset]
}
