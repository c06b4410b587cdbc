package nifti

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/text/encoding/charmap"
)

// NewHeader returns a header for an x*y*z volume of the given datatype with
// pixdim scaling as its only geometry.
func NewHeader(datatype int16, x, y, z int, voxelSize [3]float32) (*Header, error) {
	info, ok := datatypes[datatype]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDatatype, datatype)
	}

	h := &Header{
		Datatype:     datatype,
		BitPix:       int16(info.numBytes * 8),
		VoxOffset:    HeaderSize + 4,
		SclSlope:     1,
		littleEndian: true,
		numBytes:     info.numBytes,
		kind:         info.kind,
	}
	h.Dim[0] = 3
	h.Dim[1], h.Dim[2], h.Dim[3] = int16(x), int16(y), int16(z)
	h.PixDim[0] = 1
	h.PixDim[1], h.PixDim[2], h.PixDim[3] = voxelSize[0], voxelSize[1], voxelSize[2]
	h.affine = fieldReader{}.affine(h)
	return h, nil
}

// Encode writes the header followed by an empty extension block, so the
// result is exactly DataOffset bytes long for headers built by NewHeader.
// Only the fields Parse reads are written; sform and qform are left unset.
func (h *Header) Encode(order binary.ByteOrder) []byte {
	out := make([]byte, HeaderSize+4)

	order.PutUint32(out[0:], HeaderSize)
	for i, d := range h.Dim {
		order.PutUint16(out[40+2*i:], uint16(d))
	}
	order.PutUint16(out[70:], uint16(h.Datatype))
	order.PutUint16(out[72:], uint16(h.BitPix))
	for i, p := range h.PixDim {
		order.PutUint32(out[76+4*i:], math.Float32bits(p))
	}
	order.PutUint32(out[108:], math.Float32bits(h.VoxOffset))
	order.PutUint32(out[112:], math.Float32bits(h.SclSlope))
	order.PutUint32(out[116:], math.Float32bits(h.SclInter))
	descrip, err := charmap.ISO8859_1.NewEncoder().String(h.Descrip)
	if err != nil {
		descrip = h.Descrip
	}
	copy(out[148:228], descrip)
	copy(out[344:], "n+1\x00")
	return out
}
