package audio

import "math"

// Buffer is a decoded audio signal. Stages treat it as immutable:
// a stage that transforms audio returns a new Buffer and never
// writes into the samples of one it received.
type Buffer struct {
	// Samples holds one slice per channel, equal lengths.
	Samples    [][]float64
	SampleRate int
}

func (b Buffer) Channels() int {
	return len(b.Samples)
}

func (b Buffer) NumSamples() int {
	if len(b.Samples) == 0 {
		return 0
	}

	return len(b.Samples[0])
}

func (b Buffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}

	return float64(b.NumSamples()) / float64(b.SampleRate)
}

// Mono returns an averaged downmix of all channels.
func (b Buffer) Mono() []float64 {
	if b.Channels() == 1 {
		return b.Samples[0]
	}

	mono := make([]float64, b.NumSamples())
	for _, channel := range b.Samples {
		for i, sample := range channel {
			mono[i] += sample
		}
	}

	channelCount := float64(b.Channels())
	for i := range mono {
		mono[i] /= channelCount
	}

	return mono
}

func (b Buffer) Peak() float64 {
	peak := 0.0
	for _, channel := range b.Samples {
		for _, sample := range channel {
			if abs := math.Abs(sample); abs > peak {
				peak = abs
			}
		}
	}

	return peak
}

// Window returns a buffer viewing at most the first durationSecs of b.
// The underlying sample storage is shared, consumers must not write it.
func (b Buffer) Window(durationSecs float64) Buffer {
	maxSamples := int(durationSecs * float64(b.SampleRate))
	if maxSamples >= b.NumSamples() {
		return b
	}

	windowed := make([][]float64, b.Channels())
	for i, channel := range b.Samples {
		windowed[i] = channel[:maxSamples]
	}

	return Buffer{
		Samples:    windowed,
		SampleRate: b.SampleRate,
	}
}

// Scaled returns a copy of b with every sample multiplied by gain.
func (b Buffer) Scaled(gain float64) Buffer {
	scaled := make([][]float64, b.Channels())
	for i, channel := range b.Samples {
		scaled[i] = make([]float64, len(channel))
		for j, sample := range channel {
			scaled[i][j] = sample * gain
		}
	}

	return Buffer{
		Samples:    scaled,
		SampleRate: b.SampleRate,
	}
}

// Mixdown sums the given buffers sample-wise into a new buffer.
// All inputs must share sample rate and channel count.
func Mixdown(buffers ...Buffer) Buffer {
	if len(buffers) == 0 {
		return Buffer{}
	}

	first := buffers[0]
	mixed := make([][]float64, first.Channels())
	for i := range mixed {
		mixed[i] = make([]float64, first.NumSamples())
	}

	for _, buffer := range buffers {
		for i, channel := range buffer.Samples {
			if i >= len(mixed) {
				break
			}

			for j, sample := range channel {
				if j >= len(mixed[i]) {
					break
				}

				mixed[i][j] += sample
			}
		}
	}

	return Buffer{
		Samples:    mixed,
		SampleRate: first.SampleRate,
	}
}

// Resampled converts b to the target rate with linear interpolation.
// Good enough for feeding a 16 kHz speech model, not for mastering.
func (b Buffer) Resampled(targetRate int) Buffer {
	if targetRate == b.SampleRate || b.NumSamples() == 0 {
		return b
	}

	ratio := float64(b.SampleRate) / float64(targetRate)
	outLen := int(float64(b.NumSamples()) / ratio)

	resampled := make([][]float64, b.Channels())
	for i, channel := range b.Samples {
		out := make([]float64, outLen)
		for j := 0; j < outLen; j++ {
			pos := float64(j) * ratio
			left := int(pos)
			right := left + 1
			if right >= len(channel) {
				right = len(channel) - 1
			}

			frac := pos - float64(left)
			out[j] = channel[left]*(1-frac) + channel[right]*frac
		}
		resampled[i] = out
	}

	return Buffer{
		Samples:    resampled,
		SampleRate: targetRate,
	}
}
