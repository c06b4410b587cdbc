package header

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mrivolume/pkg/format"
	"mrivolume/pkg/nifti"
)

func TestRegistryNIfTI(t *testing.T) {
	h, err := nifti.NewHeader(nifti.DTUint16, 3, 3, 3, [3]float32{1, 1, 1})
	require.NoError(t, err)

	parsed, err := NewRegistry().Parse(format.HeaderNIfTI, h.Encode(binary.BigEndian))
	require.NoError(t, err)
	assert.Equal(t, 2, parsed.BytesPerVoxel())
	assert.False(t, parsed.LittleEndian())
}

func TestRegistryUnknown(t *testing.T) {
	_, err := NewRegistry().Parse(format.HeaderUnknown, make([]byte, 400))
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Equal(t, "unrecognized header type", err.Error())
}

func TestRegistryNIfTIError(t *testing.T) {
	parsed, err := NewRegistry().Parse(format.HeaderNIfTI, make([]byte, 10))
	assert.ErrorIs(t, err, nifti.ErrTruncated)
	assert.Nil(t, parsed)
}

func TestRegistryOverride(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	r.Register(format.HeaderUnknown, func([]byte) (Header, error) { return nil, boom })

	_, err := r.Parse(format.HeaderUnknown, nil)
	assert.ErrorIs(t, err, boom)
}
