package visualization

import (
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"

	"mrivolume/pkg/nifti"
	"mrivolume/pkg/volume"
)

// loadTestVolume writes a uint8 NIfTI filled by pattern and loads it
func loadTestVolume(t *testing.T, width, height, depth int, pattern func(x, y, z int) uint8) *volume.Volume {
	t.Helper()

	h, err := nifti.NewHeader(nifti.DTUint8, width, height, depth, [3]float32{1, 1, 2})
	if err != nil {
		t.Fatalf("Failed to build header: %v", err)
	}

	data := h.Encode(binary.LittleEndian)
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				data = append(data, pattern(x, y, z))
			}
		}
	}

	path := filepath.Join(t.TempDir(), "phantom.nii")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write volume: %v", err)
	}

	vol, err := volume.Load(context.Background(), nil, path)
	if err != nil {
		t.Fatalf("Failed to load volume: %v", err)
	}
	return vol
}

// TestNewViewer verifies that a new viewer picks up dimensions and window
func TestNewViewer(t *testing.T) {
	width, height, depth := 10, 8, 5
	vol := loadTestVolume(t, width, height, depth, func(x, y, z int) uint8 {
		return uint8(x + y + z)
	})

	viewer, err := NewViewer(vol, 90)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	if viewer.width != width || viewer.height != height || viewer.depth != depth {
		t.Errorf("Expected dimensions %dx%dx%d, got %dx%dx%d",
			width, height, depth, viewer.width, viewer.height, viewer.depth)
	}

	if viewer.low != 0 {
		t.Errorf("Expected window low 0, got %f", viewer.low)
	}

	if viewer.high != float64(width+height+depth-3) {
		t.Errorf("Expected window high %d, got %f", width+height+depth-3, viewer.high)
	}
}

// TestNewViewerFailedVolume verifies that a failed volume is rejected
func TestNewViewerFailedVolume(t *testing.T) {
	vol, err := volume.Load(context.Background(), nil, filepath.Join(t.TempDir(), "absent.nii"))
	if err == nil {
		t.Fatal("Expected load error for missing file")
	}

	if _, err := NewViewer(vol, 90); err == nil {
		t.Error("Expected error for failed volume, got nil")
	}
}

// TestExtractSlice verifies that slices are correctly extracted from the volume
func TestExtractSlice(t *testing.T) {
	width, height, depth := 10, 10, 5

	// Each Z slice has a single value
	vol := loadTestVolume(t, width, height, depth, func(x, y, z int) uint8 {
		return uint8(z * 10)
	})

	viewer, err := NewViewer(vol, 90)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	for z := 0; z < depth; z++ {
		img, err := viewer.ExtractSlice("z", z)
		if err != nil {
			t.Fatalf("Failed to extract Z slice at position %d: %v", z, err)
		}

		bounds := img.Bounds()
		if bounds.Dx() != width || bounds.Dy() != height {
			t.Errorf("Expected Z slice dimensions %dx%d, got %dx%d",
				width, height, bounds.Dx(), bounds.Dy())
		}

		gray16Img, ok := img.(*image.Gray16)
		if !ok {
			t.Fatalf("Expected *image.Gray16, got %T", img)
		}

		expected := uint16(float64(z) / float64(depth-1) * 65535)
		got := gray16Img.Gray16At(width/2, height/2).Y
		diff := int(got) - int(expected)
		if diff < -1 || diff > 1 {
			t.Errorf("Expected Z slice value ~%d at center, got %d", expected, got)
		}
	}

	imgX, err := viewer.ExtractSlice("x", width/2)
	if err != nil {
		t.Fatalf("Failed to extract X slice: %v", err)
	}
	if b := imgX.Bounds(); b.Dx() != depth || b.Dy() != height {
		t.Errorf("Expected X slice dimensions %dx%d, got %dx%d", depth, height, b.Dx(), b.Dy())
	}

	imgY, err := viewer.ExtractSlice("Y", height/2)
	if err != nil {
		t.Fatalf("Failed to extract Y slice: %v", err)
	}
	if b := imgY.Bounds(); b.Dx() != width || b.Dy() != depth {
		t.Errorf("Expected Y slice dimensions %dx%d, got %dx%d", width, depth, b.Dx(), b.Dy())
	}

	if _, err := viewer.ExtractSlice("invalid", 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}

	if _, err := viewer.ExtractSlice("z", depth); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}

	if _, err := viewer.ExtractSlice("x", -1); err == nil {
		t.Error("Expected error for negative position, got nil")
	}
}

// TestFlatVolume verifies that a constant volume renders black instead of dividing by zero
func TestFlatVolume(t *testing.T) {
	vol := loadTestVolume(t, 4, 4, 2, func(x, y, z int) uint8 { return 7 })

	viewer, err := NewViewer(vol, 90)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	img, err := viewer.ExtractSlice("z", 1)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}

	if got := img.(*image.Gray16).Gray16At(0, 0).Y; got != 0 {
		t.Errorf("Expected 0 for flat volume, got %d", got)
	}
}

// TestExtractRegion verifies that 3D regions are correctly extracted
func TestExtractRegion(t *testing.T) {
	width, height, depth := 10, 10, 5
	pattern := func(x, y, z int) uint8 { return uint8(x + 10*y + z) }
	vol := loadTestVolume(t, width, height, depth, pattern)

	viewer, err := NewViewer(vol, 90)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	startX, startY, startZ := 2, 3, 1
	sizeX, sizeY, sizeZ := 4, 3, 2

	region, err := viewer.ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ)
	if err != nil {
		t.Fatalf("Failed to extract region: %v", err)
	}

	if len(region) != sizeX*sizeY*sizeZ {
		t.Errorf("Expected region size %d, got %d", sizeX*sizeY*sizeZ, len(region))
	}

	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				expected := float64(pattern(startX+x, startY+y, startZ+z))
				got := region[z*sizeX*sizeY+y*sizeX+x]
				if got != expected {
					t.Errorf("Region value mismatch at (%d,%d,%d): expected %f, got %f", x, y, z, expected, got)
				}
			}
		}
	}

	if _, err := viewer.ExtractRegion(-1, 0, 0, 1, 1, 1); err == nil {
		t.Error("Expected error for negative start coordinate, got nil")
	}

	if _, err := viewer.ExtractRegion(0, 0, 0, 0, 1, 1); err == nil {
		t.Error("Expected error for zero size, got nil")
	}

	if _, err := viewer.ExtractRegion(width-1, 0, 0, 2, 1, 1); err == nil {
		t.Error("Expected error for region extending beyond volume, got nil")
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	width, height, depth := 5, 5, 3
	vol := loadTestVolume(t, width, height, depth, func(x, y, z int) uint8 { return uint8(x * y) })

	viewer, err := NewViewer(vol, 80)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	outputDir := filepath.Join(t.TempDir(), "slices")
	n, err := viewer.SaveSliceSequence("z", outputDir)
	if err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}
	if n != depth {
		t.Errorf("Expected %d slices saved, got %d", depth, n)
	}

	for z := 0; z < depth; z++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.jpg", z))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected slice file does not exist: %s", filename)
		}
	}

	if _, err := viewer.SaveSliceSequence("invalid", outputDir); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}
