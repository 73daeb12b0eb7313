package wave

// unpack converts little-endian PCM bytes into left-justified int32 samples.
// 8-bit sources are unsigned with a midpoint of 128; wider sources are signed.
// len(raw) must equal len(dst) * bitDepth/8.
func unpack(raw []byte, bitDepth int, dst []int32) {
	switch bitDepth {
	case 8:
		for i, b := range raw[:len(dst)] {
			dst[i] = int32(uint32(b^0x80) << 24)
		}
	case 16:
		for i := range dst {
			b := raw[i*2 : i*2+2]
			dst[i] = int32(uint32(b[0])<<16 | uint32(b[1])<<24)
		}
	case 24:
		for i := range dst {
			b := raw[i*3 : i*3+3]
			dst[i] = int32(uint32(b[0])<<8 | uint32(b[1])<<16 | uint32(b[2])<<24)
		}
	case 32:
		for i := range dst {
			b := raw[i*4 : i*4+4]
			dst[i] = int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
		}
	}
}

// Deinterleave splits frames stereo frames from src into left and right.
// Even positions of src go to left, odd positions to right. The walk runs
// from the last frame to the first, so right may alias src[frames:]; left
// must not overlap src.
func Deinterleave(src, left, right []int32, frames int) {
	if frames <= 0 {
		return
	}
	_ = src[2*frames-1]
	_ = left[frames-1]
	_ = right[frames-1]

	for i := frames - 1; i >= 0; i-- {
		l, r := src[2*i], src[2*i+1]
		left[i] = l
		right[i] = r
	}
}
