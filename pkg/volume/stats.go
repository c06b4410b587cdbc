package volume

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the voxel intensities of a volume
type Stats struct {
	Min, Max     float64
	Mean, StdDev float64
	Count        int
}

// Values returns every voxel value, x-fastest then y then z.
func (v *Volume) Values() []float64 {
	if v.VoxelStore() == nil {
		return nil
	}

	xDim, yDim, zDim := v.dims()
	values := make([]float64, 0, xDim*yDim*zDim)
	for z := 0; z < zDim; z++ {
		for y := 0; y < yDim; y++ {
			for x := 0; x < xDim; x++ {
				values = append(values, v.ValueAt(x, y, z))
			}
		}
	}
	return values
}

// Stats computes intensity statistics over all voxels.
func (v *Volume) Stats() (Stats, error) {
	values := v.Values()
	if len(values) == 0 {
		return Stats{}, fmt.Errorf("volume %q has no voxels", v.fileName)
	}

	mean, std := stat.MeanStdDev(values, nil)
	return Stats{
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   mean,
		StdDev: std,
		Count:  len(values),
	}, nil
}
