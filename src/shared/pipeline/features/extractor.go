package features

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	defaultFFTSize = 2048
	defaultHopSize = 512
	melBandCount   = 128
	mfccCount      = 20
)

// Vector is the bounded-window feature set consumed by the instrument
// detector and, in parts, by the music analyzer.
type Vector struct {
	MelSpectrogram [][]float64

	MFCC [][]float64

	SpectralCentroidMean  float64
	SpectralCentroidStd   float64
	SpectralBandwidthMean float64
	SpectralBandwidthStd  float64
	SpectralRolloffMean   float64
	ZeroCrossingRate      float64

	// Chroma is the 12-bin pitch class energy profile averaged over
	// all frames, normalized to sum to 1.
	Chroma    []float64
	ChromaStd float64

	HarmonicRatio   float64
	PercussiveRatio float64

	OnsetEnvelope []float64
	OnsetDensity  float64

	// LowBandRatio is the fraction of spectral energy below 200 Hz.
	LowBandRatio float64

	RMS       float64
	FrameRate float64
}

type Extractor struct {
	sampleRate int
	fftSize    int
	hopSize    int
	fft        *fourier.FFT
	window     []float64
	melFilters [][]float64
}

func NewExtractor(sampleRate int) Extractor {
	return NewExtractorWithSizes(sampleRate, defaultFFTSize, defaultHopSize)
}

func NewExtractorWithSizes(sampleRate int, fftSize int, hopSize int) Extractor {
	return Extractor{
		sampleRate: sampleRate,
		fftSize:    fftSize,
		hopSize:    hopSize,
		fft:        fourier.NewFFT(fftSize),
		window:     hannWindow(fftSize),
		melFilters: melFilterbank(melBandCount, fftSize, sampleRate),
	}
}

func (e Extractor) SampleRate() int {
	return e.sampleRate
}

// FrameRate is the number of analysis frames per second of audio.
func (e Extractor) FrameRate() float64 {
	return float64(e.sampleRate) / float64(e.hopSize)
}

// Extract computes the full feature vector over the given mono samples.
func (e Extractor) Extract(samples []float64) Vector {
	spectrogram := e.Spectrogram(samples)

	melSpec := e.melSpectrogram(spectrogram)
	onsetEnvelope := e.OnsetEnvelope(spectrogram)
	harmonicRatio, percussiveRatio := harmonicPercussiveRatios(spectrogram)
	chromaFrames := e.ChromaFrames(spectrogram)

	centroids := make([]float64, len(spectrogram))
	bandwidths := make([]float64, len(spectrogram))
	rolloffs := make([]float64, len(spectrogram))
	for i, frame := range spectrogram {
		centroids[i] = e.spectralCentroid(frame)
		bandwidths[i] = e.spectralBandwidth(frame, centroids[i])
		rolloffs[i] = e.spectralRolloff(frame, 0.85)
	}

	chromaAvg, chromaStd := averageChroma(chromaFrames)

	duration := float64(len(samples)) / float64(e.sampleRate)

	return Vector{
		MelSpectrogram:        melSpec,
		MFCC:                  e.mfcc(melSpec),
		SpectralCentroidMean:  mean(centroids),
		SpectralCentroidStd:   std(centroids),
		SpectralBandwidthMean: mean(bandwidths),
		SpectralBandwidthStd:  std(bandwidths),
		SpectralRolloffMean:   mean(rolloffs),
		ZeroCrossingRate:      zeroCrossingRate(samples),
		Chroma:                chromaAvg,
		ChromaStd:             chromaStd,
		HarmonicRatio:         harmonicRatio,
		PercussiveRatio:       percussiveRatio,
		OnsetEnvelope:         onsetEnvelope,
		OnsetDensity:          onsetDensity(onsetEnvelope, e.FrameRate(), duration),
		LowBandRatio:          e.lowBandRatio(spectrogram, 200),
		RMS:                   rms(samples),
		FrameRate:             e.FrameRate(),
	}
}

// Spectrogram returns the magnitude spectrogram, one row per frame.
func (e Extractor) Spectrogram(samples []float64) [][]float64 {
	if len(samples) < e.fftSize {
		padded := make([]float64, e.fftSize)
		copy(padded, samples)
		samples = padded
	}

	frameCount := 1 + (len(samples)-e.fftSize)/e.hopSize
	spectrogram := make([][]float64, frameCount)

	frame := make([]float64, e.fftSize)
	coefficients := make([]complex128, e.fftSize/2+1)

	for i := 0; i < frameCount; i++ {
		start := i * e.hopSize
		for j := 0; j < e.fftSize; j++ {
			frame[j] = samples[start+j] * e.window[j]
		}

		coefficients = e.fft.Coefficients(coefficients, frame)

		magnitudes := make([]float64, len(coefficients))
		for j, c := range coefficients {
			magnitudes[j] = cmplxAbs(c)
		}

		spectrogram[i] = magnitudes
	}

	return spectrogram
}

func (e Extractor) binFrequency(bin int) float64 {
	return float64(bin) * float64(e.sampleRate) / float64(e.fftSize)
}

func (e Extractor) spectralCentroid(frame []float64) float64 {
	var weighted, total float64
	for bin, magnitude := range frame {
		weighted += e.binFrequency(bin) * magnitude
		total += magnitude
	}

	if total == 0 {
		return 0
	}

	return weighted / total
}

func (e Extractor) spectralBandwidth(frame []float64, centroid float64) float64 {
	var weighted, total float64
	for bin, magnitude := range frame {
		delta := e.binFrequency(bin) - centroid
		weighted += delta * delta * magnitude
		total += magnitude
	}

	if total == 0 {
		return 0
	}

	return math.Sqrt(weighted / total)
}

func (e Extractor) spectralRolloff(frame []float64, fraction float64) float64 {
	var total float64
	for _, magnitude := range frame {
		total += magnitude
	}

	if total == 0 {
		return 0
	}

	var running float64
	for bin, magnitude := range frame {
		running += magnitude
		if running >= fraction*total {
			return e.binFrequency(bin)
		}
	}

	return e.binFrequency(len(frame) - 1)
}

func (e Extractor) lowBandRatio(spectrogram [][]float64, cutoffHz float64) float64 {
	var low, total float64
	for _, frame := range spectrogram {
		for bin, magnitude := range frame {
			energy := magnitude * magnitude
			total += energy
			if e.binFrequency(bin) < cutoffHz {
				low += energy
			}
		}
	}

	if total == 0 {
		return 0
	}

	return low / total
}

func zeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}

	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}

	return float64(crossings) / float64(len(samples)-1)
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, sample := range samples {
		sum += sample * sample
	}

	return math.Sqrt(sum / float64(len(samples)))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, value := range values {
		sum += value
	}

	return sum / float64(len(values))
}

func std(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	avg := mean(values)
	var sum float64
	for _, value := range values {
		delta := value - avg
		sum += delta * delta
	}

	return math.Sqrt(sum / float64(len(values)))
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func hannWindow(size int) []float64 {
	window := make([]float64, size)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}

	return window
}
