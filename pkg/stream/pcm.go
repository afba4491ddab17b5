package stream

import (
	"encoding/binary"
)

// BytesPerSample returns the PCM container size for a resolution: one byte
// up to 8 bits, two up to 16 and four above.
func BytesPerSample(resolution int) int {
	switch {
	case resolution <= 8:
		return 1
	case resolution <= 16:
		return 2
	default:
		return 4
	}
}

func lowBits(v int32, resolution int) uint32 {
	return uint32(v) & uint32(uint64(1)<<uint(resolution)-1)
}

// Quantize packs a sample into its container. The low resolution bits of v
// are read as an unsigned level and left-aligned in the container. 8-bit
// containers stay unsigned; wider ones are signed, so the level's top bit
// is flipped.
func Quantize(v int32, resolution int) uint32 {
	bits := BytesPerSample(resolution) * 8
	u := lowBits(v, resolution) << uint(bits-resolution)
	if bits > 8 {
		u ^= 1 << uint(bits-1)
	}
	return u
}

// Level returns the quantized sample as the integer a PCM encoder expects
// for the container: 0..255 for 8-bit, signed for 16 and 32-bit.
func Level(v int32, resolution int) int {
	q := Quantize(v, resolution)
	switch BytesPerSample(resolution) {
	case 1:
		return int(q)
	case 2:
		return int(int16(uint16(q)))
	default:
		return int(int32(q))
	}
}

// AppendPCM appends the little-endian packing of samples to dst.
func AppendPCM(dst []byte, samples []int32, resolution int) []byte {
	switch BytesPerSample(resolution) {
	case 1:
		for _, v := range samples {
			dst = append(dst, byte(Quantize(v, resolution)))
		}
	case 2:
		for _, v := range samples {
			dst = binary.LittleEndian.AppendUint16(dst, uint16(Quantize(v, resolution)))
		}
	default:
		for _, v := range samples {
			dst = binary.LittleEndian.AppendUint32(dst, Quantize(v, resolution))
		}
	}
	return dst
}

// Normalize maps the low resolution bits of v to [-1, 1).
func Normalize(v int32, resolution int) float32 {
	half := float64(uint64(1) << uint(resolution-1))
	return float32(float64(lowBits(v, resolution))/half - 1)
}

// NormalizeInto writes Normalize of every sample into dst, which must be at
// least as long as samples.
func NormalizeInto(dst []float32, samples []int32, resolution int) {
	for i, v := range samples {
		dst[i] = Normalize(v, resolution)
	}
}
