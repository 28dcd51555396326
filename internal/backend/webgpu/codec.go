package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/sys/cpu"
)

// float32Size is the byte width of one element on both sides of the transfer.
const float32Size = 4

// hostOrder is the byte order buffers cross the host/device boundary in.
// Values are raw native-endian words with no framing or length prefix.
var hostOrder binary.ByteOrder = hostByteOrder()

func hostByteOrder() binary.ByteOrder {
	if cpu.IsBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// EncodeFloat32s serializes values into a contiguous byte slice, 4 bytes per
// element, in input order.
func EncodeFloat32s(values []float32) []byte {
	out := make([]byte, len(values)*float32Size)
	for i, v := range values {
		hostOrder.PutUint32(out[i*float32Size:], math.Float32bits(v))
	}
	return out
}

// DecodeFloat32s reinterprets data as consecutive float32 values.
func DecodeFloat32s(data []byte) ([]float32, error) {
	if len(data)%float32Size != 0 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrMisalignedBuffer, len(data))
	}
	out := make([]float32, len(data)/float32Size)
	for i := range out {
		out[i] = math.Float32frombits(hostOrder.Uint32(data[i*float32Size:]))
	}
	return out, nil
}
