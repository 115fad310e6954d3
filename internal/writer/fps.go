package writer

import "math"

// rationalize converts a frame rate to an exact (rate, scale) pair for
// strh's dwRate/dwScale fields: an integer rate over a unit scale when
// fps is already whole, the standard NTSC 1000/1001 scaling when fps is
// within a thousandth of a whole NTSC rate, and otherwise a
// thousandths-precision fraction reduced by its greatest common divisor.
// Mirrors the original engine's get_fps_strict + find_gcd.
func rationalize(fps float64) (rate, scale uint32) {
	if fps <= 0 {
		return 0, 0
	}

	whole := math.Round(fps)
	if math.Abs(fps-whole) < 1e-6 {
		return uint32(whole), 1
	}

	ntsc := math.Round(fps * 1001 / 1000)
	if math.Abs(fps-ntsc*1000/1001) < 1e-3 {
		return uint32(ntsc) * 1000, 1001
	}

	n := uint32(math.Round(fps * 1000))
	d := uint32(1000)
	if g := gcd(n, d); g > 1 {
		n /= g
		d /= g
	}
	return n, d
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}
