package audio

import "math"

// MaxLevel is the upper bound of the loudness scale exposed by capture
// devices. Levels are reported as integers in [0, MaxLevel].
const MaxLevel = 100

// Level converts a raw 16-bit little-endian PCM frame into a loudness level
// on the 0..100 scale. An empty frame reports full silence.
func Level(frame []byte) int {
	rms := rmsLinear16(frame)

	level := int(math.Round(rms * MaxLevel))
	if level > MaxLevel {
		level = MaxLevel
	}
	return level
}

// rmsLinear16 computes root-mean-square energy of a 16-bit signed PCM frame,
// normalized to [0, 1].
func rmsLinear16(frame []byte) float64 {
	if len(frame) < 2 {
		return 0
	}

	var sum float64
	count := 0
	for i := 0; i+1 < len(frame); i += 2 {
		sample := int16(frame[i]) | int16(frame[i+1])<<8
		normalized := float64(sample) / 32768.0
		sum += normalized * normalized
		count++
	}
	if count == 0 {
		return 0
	}

	return math.Sqrt(sum / float64(count))
}
