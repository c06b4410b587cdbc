// Package nifti decodes single-file NIfTI-1 headers.
//
// Only the header is decoded here. Voxel samples are left in the buffer and
// located through DataOffset, so the header can be parsed from a buffer that
// has already been inflated without copying the image data.
package nifti

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// HeaderSize is the size of a NIfTI-1 header in bytes
const HeaderSize = 348

// Common errors
var (
	ErrNotNIfTI            = errors.New("not a NIfTI-1 file")
	ErrPairedHeader        = errors.New("paired .hdr/.img NIfTI files are not supported")
	ErrUnsupportedDatatype = errors.New("unsupported NIfTI datatype")
	ErrTruncated           = errors.New("NIfTI header truncated")
)

// Datatype codes from nifti1.h.
const (
	DTUint8   int16 = 2
	DTInt16   int16 = 4
	DTInt32   int16 = 8
	DTFloat32 int16 = 16
	DTFloat64 int16 = 64
	DTInt8    int16 = 256
	DTUint16  int16 = 512
	DTUint32  int16 = 768
)

// SampleKind describes how the bits of a sample are interpreted
type SampleKind int

const (
	Unsigned SampleKind = iota
	Signed
	Float
)

// String returns the human-readable name of a sample kind.
func (k SampleKind) String() string {
	switch k {
	case Unsigned:
		return "unsigned"
	case Signed:
		return "signed"
	case Float:
		return "float"
	default:
		return fmt.Sprintf("SampleKind(%d)", int(k))
	}
}

type datatypeInfo struct {
	name     string
	numBytes int
	kind     SampleKind
}

var datatypes = map[int16]datatypeInfo{
	DTUint8:   {"uint8", 1, Unsigned},
	DTInt8:    {"int8", 1, Signed},
	DTInt16:   {"int16", 2, Signed},
	DTUint16:  {"uint16", 2, Unsigned},
	DTInt32:   {"int32", 4, Signed},
	DTUint32:  {"uint32", 4, Unsigned},
	DTFloat32: {"float32", 4, Float},
}

// Header holds the decoded fields of a NIfTI-1 header that the loader and
// viewer need. Dim and PixDim keep the raw arrays; the accessor methods give
// the spatial view of them.
type Header struct {
	Dim       [8]int16
	PixDim    [8]float32
	Datatype  int16
	BitPix    int16
	VoxOffset float32
	SclSlope  float32
	SclInter  float32
	QFormCode int16
	SFormCode int16
	Descrip   string

	littleEndian bool
	numBytes     int
	kind         SampleKind
	affine       *mat.Dense
}

// Parse decodes the header at the start of data
func Parse(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrTruncated, len(data), HeaderSize)
	}

	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(data[0:4]) == HeaderSize:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(data[0:4]) == HeaderSize:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad sizeof_hdr", ErrNotNIfTI)
	}

	switch magic := string(data[344:347]); magic {
	case "n+1":
	case "ni1":
		return nil, ErrPairedHeader
	default:
		return nil, fmt.Errorf("%w: bad magic %q", ErrNotNIfTI, magic)
	}

	r := fieldReader{data: data, order: order}
	h := &Header{littleEndian: order == binary.LittleEndian}

	for i := range h.Dim {
		h.Dim[i] = r.int16(40 + 2*i)
	}
	h.Datatype = r.int16(70)
	h.BitPix = r.int16(72)
	for i := range h.PixDim {
		h.PixDim[i] = r.float32(76 + 4*i)
	}
	h.VoxOffset = r.float32(108)
	h.SclSlope = r.float32(112)
	h.SclInter = r.float32(116)
	h.Descrip = r.text(148, 80)
	h.QFormCode = r.int16(252)
	h.SFormCode = r.int16(254)

	if h.Dim[0] < 1 || h.Dim[0] > 7 {
		return nil, fmt.Errorf("%w: dim[0]=%d", ErrNotNIfTI, h.Dim[0])
	}
	for i := 1; i <= 3; i++ {
		if h.Dim[i] < 0 {
			return nil, fmt.Errorf("%w: negative dim[%d]", ErrNotNIfTI, i)
		}
	}

	info, ok := datatypes[h.Datatype]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDatatype, h.Datatype)
	}
	h.numBytes = info.numBytes
	h.kind = info.kind

	if h.VoxOffset < HeaderSize {
		// Some writers leave vox_offset zero; the extension block is 4 bytes.
		h.VoxOffset = HeaderSize + 4
	}

	h.affine = r.affine(h)
	return h, nil
}

// LittleEndian reports the declared byte order of the file.
func (h *Header) LittleEndian() bool { return h.littleEndian }

// BytesPerVoxel returns the sample width in bytes.
func (h *Header) BytesPerVoxel() int { return h.numBytes }

// SampleKind returns how sample bits are interpreted.
func (h *Header) SampleKind() SampleKind { return h.kind }

// DatatypeName returns the nifti1.h name of the datatype.
func (h *Header) DatatypeName() string { return datatypes[h.Datatype].name }

// DataOffset returns the byte offset of the first voxel.
func (h *Header) DataOffset() int { return int(h.VoxOffset) }

// Dimensions returns the spatial extent. Missing dimensions count as 1.
func (h *Header) Dimensions() (x, y, z int) {
	return h.dim(1), h.dim(2), h.dim(3)
}

// VoxelSize returns the physical voxel size along each axis.
func (h *Header) VoxelSize() (x, y, z float64) {
	return math.Abs(float64(h.PixDim[1])), math.Abs(float64(h.PixDim[2])), math.Abs(float64(h.PixDim[3]))
}

// IndexToOffset maps a voxel index to its position in the sample array.
// Samples are stored x-fastest.
func (h *Header) IndexToOffset(x, y, z int) int {
	xDim, yDim, _ := h.Dimensions()
	return x + y*xDim + z*xDim*yDim
}

// Affine returns a copy of the voxel-to-world matrix.
func (h *Header) Affine() *mat.Dense {
	return mat.DenseCopyOf(h.affine)
}

// WorldAt maps a voxel index to world coordinates.
func (h *Header) WorldAt(x, y, z int) (wx, wy, wz float64) {
	var out mat.VecDense
	out.MulVec(h.affine, mat.NewVecDense(4, []float64{float64(x), float64(y), float64(z), 1}))
	return out.AtVec(0), out.AtVec(1), out.AtVec(2)
}

func (h *Header) dim(i int) int {
	if int(h.Dim[0]) < i || h.Dim[i] < 1 {
		return 1
	}
	return int(h.Dim[i])
}
