package preprocess

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/harmonix-audio/harmonix-be/src/shared/config"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/errors/mark"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/executor"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/audio"
)

var supportedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
	".aac":  true,
}

type Preprocessor struct {
	executor     executor.Executor
	ffmpegBin    string
	ffprobeBin   string
	sampleRate   int
	maxBytes     int64
	maxDuration  float64
	normalize    bool
	peakTargetDB float64
}

func New(cfg config.Pipeline, exec executor.Executor) Preprocessor {
	return Preprocessor{
		executor:     exec,
		ffmpegBin:    cfg.FFmpegBinPath,
		ffprobeBin:   cfg.FFprobeBinPath,
		sampleRate:   cfg.SampleRate,
		maxBytes:     int64(cfg.MaxFileSizeMB) * 1024 * 1024,
		maxDuration:  float64(cfg.MaxDurationSecs),
		normalize:    cfg.Normalize,
		peakTargetDB: cfg.NormalizePeakDB,
	}
}

// LoadAndValidate checks the input against the configured ceilings and
// decodes it into a stereo buffer at the configured sample rate.
// The duration check runs on a cheap ffprobe pass so that oversized
// inputs are rejected before any full decode happens.
func (p Preprocessor) LoadAndValidate(ctx context.Context, path string) (audio.Buffer, error) {
	errctx := cerr.Field("path", path)

	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return audio.Buffer{}, mark.Message(ErrUnsupportedFormat,
			"Audio file extension is not in the supported set: "+ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return audio.Buffer{}, errctx.Wrap(err).Error("Failed to stat input file")
	}

	if info.Size() > p.maxBytes {
		return audio.Buffer{}, mark.Wrap(
			cerr.Fields(cerr.F{
				"file_bytes": info.Size(),
				"max_bytes":  p.maxBytes,
			}).Error("Input file is over the byte ceiling"),
			ErrFileTooLarge, "Refusing to decode oversized file")
	}

	duration, err := p.probeDuration(path)
	if err != nil {
		return audio.Buffer{}, mark.Wrap(err, ErrEmptyAudio, "Failed to probe input file")
	}

	if duration > p.maxDuration {
		return audio.Buffer{}, mark.Wrap(
			cerr.Fields(cerr.F{
				"duration_secs": duration,
				"max_duration":  p.maxDuration,
			}).Error("Input duration is over the ceiling"),
			ErrDurationExceeded, "Refusing to decode overlong file")
	}

	if ctx.Err() != nil {
		return audio.Buffer{}, cerr.Wrap(ctx.Err()).Error("Context cancelled before decoding")
	}

	buffer, err := p.decode(path)
	if err != nil {
		return audio.Buffer{}, errctx.Wrap(err).Error("Failed to decode input file")
	}

	if buffer.NumSamples() == 0 {
		return audio.Buffer{}, mark.Message(ErrEmptyAudio, "Decoded audio contains no samples")
	}

	if p.normalize {
		buffer = normalizePeak(buffer, p.peakTargetDB)
	}

	log.WithFields(log.Fields{
		"path":          path,
		"duration_secs": buffer.Duration(),
		"sample_rate":   buffer.SampleRate,
		"channels":      buffer.Channels(),
	}).Info("Loaded and validated input audio")

	return buffer, nil
}

func (p Preprocessor) probeDuration(path string) (float64, error) {
	args := []string{"-v", "error", "-show_format", "-of", "json", path}

	output, err := p.executor.Command(p.ffprobeBin, args...).Output()
	if err != nil {
		return 0, cerr.Field("ffprobe_args", args).
			Wrap(err).Error("ffprobe failed on input file")
	}

	var probed struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}

	if err := json.Unmarshal(output, &probed); err != nil {
		return 0, cerr.Wrap(err).Error("Failed to parse ffprobe output")
	}

	duration, err := strconv.ParseFloat(probed.Format.Duration, 64)
	if err != nil {
		return 0, cerr.Field("raw_duration", probed.Format.Duration).
			Wrap(err).Error("ffprobe reported a non-numeric duration")
	}

	return duration, nil
}

// decode shells out to ffmpeg for the actual decode/resample/layout
// conversion and reads raw 32-bit float frames off its stdout.
func (p Preprocessor) decode(path string) (audio.Buffer, error) {
	args := []string{
		"-v", "error",
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", "2",
		"-ar", strconv.Itoa(p.sampleRate),
		"pipe:1",
	}

	rawFrames, err := p.executor.Command(p.ffmpegBin, args...).Output()
	if err != nil {
		return audio.Buffer{}, cerr.Field("ffmpeg_args", args).
			Wrap(err).Error("ffmpeg decode failed")
	}

	return parseInterleavedFloat32(rawFrames, 2, p.sampleRate), nil
}

func parseInterleavedFloat32(data []byte, channels int, sampleRate int) audio.Buffer {
	frameCount := len(data) / (channels * 4)

	samples := make([][]float64, channels)
	for i := range samples {
		samples[i] = make([]float64, frameCount)
	}

	for frame := 0; frame < frameCount; frame++ {
		for ch := 0; ch < channels; ch++ {
			idx := (frame*channels + ch) * 4
			bits := binary.LittleEndian.Uint32(data[idx : idx+4])
			samples[ch][frame] = float64(math.Float32frombits(bits))
		}
	}

	return audio.Buffer{
		Samples:    samples,
		SampleRate: sampleRate,
	}
}

func normalizePeak(buffer audio.Buffer, targetDB float64) audio.Buffer {
	peak := buffer.Peak()
	if peak == 0 {
		return buffer
	}

	targetPeak := math.Pow(10, targetDB/20)
	return buffer.Scaled(targetPeak / peak)
}
