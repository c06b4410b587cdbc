package nifti

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"gonum.org/v1/gonum/mat"
)

// fieldReader reads fixed-offset header fields in the file's byte order.
type fieldReader struct {
	data  []byte
	order binary.ByteOrder
}

func (r fieldReader) int16(off int) int16 {
	return int16(r.order.Uint16(r.data[off:]))
}

func (r fieldReader) float32(off int) float32 {
	return math.Float32frombits(r.order.Uint32(r.data[off:]))
}

// text reads a NUL-padded Latin-1 field as UTF-8.
func (r fieldReader) text(off, n int) string {
	raw := r.data[off : off+n]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		decoded = raw
	}
	return strings.TrimRight(string(decoded), " ")
}

// affine builds the voxel-to-world matrix. The sform rows win when
// sform_code is set, then the qform quaternion, then plain pixdim scaling.
func (r fieldReader) affine(h *Header) *mat.Dense {
	switch {
	case h.SFormCode > 0:
		m := mat.NewDense(4, 4, nil)
		for row := 0; row < 3; row++ {
			for col := 0; col < 4; col++ {
				m.Set(row, col, float64(r.float32(280+16*row+4*col)))
			}
		}
		m.Set(3, 3, 1)
		return m

	case h.QFormCode > 0:
		b := float64(r.float32(256))
		c := float64(r.float32(260))
		d := float64(r.float32(264))
		a := 1 - (b*b + c*c + d*d)
		if a < 1e-7 {
			// Quaternion is 180 degrees; a is taken as 0 and (b,c,d) renormalized.
			n := math.Sqrt(b*b + c*c + d*d)
			b, c, d = b/n, c/n, d/n
			a = 0
		} else {
			a = math.Sqrt(a)
		}

		qfac := 1.0
		if h.PixDim[0] < 0 {
			qfac = -1
		}
		dx, dy, dz := h.VoxelSize()
		dz *= qfac

		rot := []float64{
			a*a + b*b - c*c - d*d, 2 * (b*c - a*d), 2 * (b*d + a*c),
			2 * (b*c + a*d), a*a + c*c - b*b - d*d, 2 * (c*d - a*b),
			2 * (b*d - a*c), 2 * (c*d + a*b), a*a + d*d - c*c - b*b,
		}
		m := mat.NewDense(4, 4, nil)
		for row := 0; row < 3; row++ {
			m.Set(row, 0, rot[3*row]*dx)
			m.Set(row, 1, rot[3*row+1]*dy)
			m.Set(row, 2, rot[3*row+2]*dz)
		}
		m.Set(0, 3, float64(r.float32(268)))
		m.Set(1, 3, float64(r.float32(272)))
		m.Set(2, 3, float64(r.float32(276)))
		m.Set(3, 3, 1)
		return m

	default:
		dx, dy, dz := h.VoxelSize()
		return mat.NewDense(4, 4, []float64{
			dx, 0, 0, 0,
			0, dy, 0, 0,
			0, 0, dz, 0,
			0, 0, 0, 1,
		})
	}
}
