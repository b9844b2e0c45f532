package deepgram

import (
	"fmt"

	"github.com/kaiwa-labs/kaiwa-core/core/audio"
)

// listenParams maps the pipeline's encoding description onto the listen
// endpoint's query parameters, rejecting combinations Deepgram does not
// accept.
func listenParams(encoding audio.EncodingInfo) (name string, sampleRate int, err error) {
	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
		sampleRate = encoding.SampleRate
	default:
		return "", 0, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	name = encoding.Format.Name()
	switch encoding.Format {
	case audio.EncodingLinear16:
	case audio.EncodingALaw, audio.EncodingMulaw:
		if sampleRate != 8000 {
			return "", 0, fmt.Errorf("%s encoding requires an 8kHz sample rate", name)
		}
	default:
		return "", 0, fmt.Errorf("unsupported encoding %q", name)
	}

	return name, sampleRate, nil
}
