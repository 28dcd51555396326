package webgpu

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFloat32sLayout(t *testing.T) {
	data := EncodeFloat32s([]float32{1.0, 4.0})
	require.Len(t, data, 8)

	assert.Equal(t, math.Float32bits(1.0), hostOrder.Uint32(data[0:]))
	assert.Equal(t, math.Float32bits(4.0), hostOrder.Uint32(data[4:]))
}

func TestEncodeFloat32sEmpty(t *testing.T) {
	assert.Empty(t, EncodeFloat32s(nil))
}

func TestDecodeFloat32sPreservesOrderAndBits(t *testing.T) {
	in := []float32{0.25, -3, float32(math.Inf(1)), 1e-38}
	out, err := DecodeFloat32s(EncodeFloat32s(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	nan := float32(math.NaN())
	out, err = DecodeFloat32s(EncodeFloat32s([]float32{nan}))
	require.NoError(t, err)
	assert.Equal(t, math.Float32bits(nan), math.Float32bits(out[0]))
}

func TestDecodeFloat32sMisaligned(t *testing.T) {
	_, err := DecodeFloat32s([]byte{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMisalignedBuffer))

	out, err := DecodeFloat32s(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
