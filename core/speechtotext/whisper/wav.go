package whisper

import (
	"bytes"
	"encoding/binary"

	"github.com/kaiwa-labs/kaiwa-core/core/audio"
)

// wavContainer wraps a raw PCM buffer in a minimal mono WAV container so the
// backend can sniff the format. Non-PCM encodings are passed through as-is.
func wavContainer(pcm []byte, encoding audio.EncodingInfo) []byte {
	byteSize := encoding.Format.ByteSize()
	if byteSize != 2 {
		return pcm
	}

	sampleRate := uint32(encoding.SampleRate)
	if sampleRate == 0 {
		sampleRate = uint32(audio.DefaultSampleRate)
	}

	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(buf, binary.LittleEndian, sampleRate)
	binary.Write(buf, binary.LittleEndian, sampleRate*uint32(byteSize))
	binary.Write(buf, binary.LittleEndian, uint16(byteSize))
	binary.Write(buf, binary.LittleEndian, uint16(8*byteSize))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
