package whisper

import "encoding/binary"

// whisper.cpp wants mono float32 samples in [-1, 1]; the capture pipeline
// delivers 16-bit little-endian PCM.

// pcmToFloat32 converts mono 16-bit PCM to normalised float32 samples. A
// trailing odd byte is ignored.
func pcmToFloat32(pcm []byte) []float32 {
	samples := make([]float32, 0, len(pcm)/2)
	for len(pcm) >= 2 {
		s := int16(binary.LittleEndian.Uint16(pcm))
		samples = append(samples, float32(s)/32768)
		pcm = pcm[2:]
	}
	return samples
}

// pcmToFloat32Mono averages interleaved channels down to one. The capture
// pipeline records mono, so channels > 1 only appears via
// WithNativeChannels.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 1 {
		return pcmToFloat32(pcm)
	}
	frame := 2 * channels
	mono := make([]float32, 0, len(pcm)/frame)
	for len(pcm) >= frame {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += float32(int16(binary.LittleEndian.Uint16(pcm[2*ch:]))) / 32768
		}
		mono = append(mono, sum/float32(channels))
		pcm = pcm[frame:]
	}
	return mono
}
