package nifti

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		t.Run(order.String(), func(t *testing.T) {
			h, err := NewHeader(DTInt16, 4, 3, 2, [3]float32{1.5, 2, 3})
			require.NoError(t, err)
			h.Descrip = "phantom"

			parsed, err := Parse(h.Encode(order))
			require.NoError(t, err)

			assert.Equal(t, order == binary.LittleEndian, parsed.LittleEndian())
			assert.Equal(t, 2, parsed.BytesPerVoxel())
			assert.Equal(t, Signed, parsed.SampleKind())
			assert.Equal(t, "int16", parsed.DatatypeName())
			assert.Equal(t, HeaderSize+4, parsed.DataOffset())
			assert.Equal(t, "phantom", parsed.Descrip)

			x, y, z := parsed.Dimensions()
			assert.Equal(t, []int{4, 3, 2}, []int{x, y, z})

			sx, sy, sz := parsed.VoxelSize()
			assert.InDelta(t, 1.5, sx, 1e-6)
			assert.InDelta(t, 2.0, sy, 1e-6)
			assert.InDelta(t, 3.0, sz, 1e-6)
		})
	}
}

func TestDescripLatin1(t *testing.T) {
	h, err := NewHeader(DTUint8, 2, 2, 1, [3]float32{1, 1, 1})
	require.NoError(t, err)
	h.Descrip = "Séance IRM"

	data := h.Encode(binary.LittleEndian)
	assert.Equal(t, byte(0xE9), data[149])

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Séance IRM", parsed.Descrip)
}

func TestParseErrors(t *testing.T) {
	good, err := NewHeader(DTUint8, 2, 2, 2, [3]float32{1, 1, 1})
	require.NoError(t, err)

	t.Run("Truncated", func(t *testing.T) {
		_, err := Parse(make([]byte, 100))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("BadSize", func(t *testing.T) {
		data := good.Encode(binary.LittleEndian)
		binary.LittleEndian.PutUint32(data, 540)
		_, err := Parse(data)
		assert.ErrorIs(t, err, ErrNotNIfTI)
	})

	t.Run("BadMagic", func(t *testing.T) {
		data := good.Encode(binary.LittleEndian)
		copy(data[344:], "xyz")
		_, err := Parse(data)
		assert.ErrorIs(t, err, ErrNotNIfTI)
	})

	t.Run("PairedHeader", func(t *testing.T) {
		data := good.Encode(binary.LittleEndian)
		copy(data[344:], "ni1")
		_, err := Parse(data)
		assert.ErrorIs(t, err, ErrPairedHeader)
	})

	t.Run("Float64", func(t *testing.T) {
		data := good.Encode(binary.LittleEndian)
		binary.LittleEndian.PutUint16(data[70:], uint16(DTFloat64))
		_, err := Parse(data)
		assert.ErrorIs(t, err, ErrUnsupportedDatatype)
	})

	t.Run("BadDimCount", func(t *testing.T) {
		data := good.Encode(binary.LittleEndian)
		binary.LittleEndian.PutUint16(data[40:], 0)
		_, err := Parse(data)
		assert.ErrorIs(t, err, ErrNotNIfTI)
	})
}

func TestNewHeaderUnsupported(t *testing.T) {
	_, err := NewHeader(DTFloat64, 1, 1, 1, [3]float32{1, 1, 1})
	assert.ErrorIs(t, err, ErrUnsupportedDatatype)
}

func TestZeroVoxOffset(t *testing.T) {
	h, err := NewHeader(DTUint8, 2, 2, 1, [3]float32{1, 1, 1})
	require.NoError(t, err)
	h.VoxOffset = 0

	parsed, err := Parse(h.Encode(binary.LittleEndian))
	require.NoError(t, err)
	assert.Equal(t, HeaderSize+4, parsed.DataOffset())
}

func TestDimensionsFillMissingAxes(t *testing.T) {
	h, err := NewHeader(DTUint8, 5, 4, 1, [3]float32{1, 1, 1})
	require.NoError(t, err)
	h.Dim[0] = 2
	h.Dim[3] = 0

	x, y, z := h.Dimensions()
	assert.Equal(t, []int{5, 4, 1}, []int{x, y, z})
}

func TestIndexToOffset(t *testing.T) {
	h, err := NewHeader(DTUint8, 4, 3, 2, [3]float32{1, 1, 1})
	require.NoError(t, err)

	assert.Equal(t, 0, h.IndexToOffset(0, 0, 0))
	assert.Equal(t, 3, h.IndexToOffset(3, 0, 0))
	assert.Equal(t, 4, h.IndexToOffset(0, 1, 0))
	assert.Equal(t, 12, h.IndexToOffset(0, 0, 1))
	assert.Equal(t, 23, h.IndexToOffset(3, 2, 1))
}

func TestAffinePixdim(t *testing.T) {
	h, err := NewHeader(DTUint8, 4, 4, 4, [3]float32{2, 3, 4})
	require.NoError(t, err)

	wx, wy, wz := h.WorldAt(1, 2, 3)
	assert.InDelta(t, 2.0, wx, 1e-9)
	assert.InDelta(t, 6.0, wy, 1e-9)
	assert.InDelta(t, 12.0, wz, 1e-9)
}

func TestAffineSForm(t *testing.T) {
	h, err := NewHeader(DTUint8, 4, 4, 4, [3]float32{1, 1, 1})
	require.NoError(t, err)
	data := h.Encode(binary.LittleEndian)

	binary.LittleEndian.PutUint16(data[254:], 1)
	rows := [3][4]float32{
		{-2, 0, 0, 90},
		{0, 2, 0, -126},
		{0, 0, 2, -72},
	}
	for row := range rows {
		for col, v := range rows[row] {
			binary.LittleEndian.PutUint32(data[280+16*row+4*col:], math.Float32bits(v))
		}
	}

	parsed, err := Parse(data)
	require.NoError(t, err)
	wx, wy, wz := parsed.WorldAt(10, 20, 30)
	assert.InDelta(t, 70.0, wx, 1e-6)
	assert.InDelta(t, -86.0, wy, 1e-6)
	assert.InDelta(t, -12.0, wz, 1e-6)

	m := parsed.Affine()
	m.Set(0, 0, 100)
	assert.InDelta(t, -2.0, parsed.Affine().At(0, 0), 1e-9)
}

func TestAffineQFormIdentity(t *testing.T) {
	h, err := NewHeader(DTUint8, 4, 4, 4, [3]float32{2, 2, 2})
	require.NoError(t, err)
	data := h.Encode(binary.LittleEndian)

	binary.LittleEndian.PutUint16(data[252:], 1)
	binary.LittleEndian.PutUint32(data[268:], math.Float32bits(-10))
	binary.LittleEndian.PutUint32(data[272:], math.Float32bits(5))
	binary.LittleEndian.PutUint32(data[276:], math.Float32bits(1))

	parsed, err := Parse(data)
	require.NoError(t, err)
	wx, wy, wz := parsed.WorldAt(1, 1, 1)
	assert.InDelta(t, -8.0, wx, 1e-6)
	assert.InDelta(t, 7.0, wy, 1e-6)
	assert.InDelta(t, 3.0, wz, 1e-6)
}
