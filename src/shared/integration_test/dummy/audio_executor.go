package dummy

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/executor"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/audio"
)

var _ executor.Executor = &AudioExecutor{}

func NewDummyAudioExecutor(source audio.Buffer) *AudioExecutor {
	return &AudioExecutor{
		Source: source,
	}
}

// AudioExecutor stands in for ffprobe and ffmpeg. Probe invocations
// report the source buffer's duration, decode invocations emit it as
// raw interleaved float32 frames.
type AudioExecutor struct {
	Source      audio.Buffer
	Unavailable bool
}

func (a *AudioExecutor) Command(name string, arg ...string) executor.Command {
	return &audioCommand{
		executor: a,
		bin:      name,
	}
}

type audioCommand struct {
	executor *AudioExecutor
	bin      string
}

func (a *audioCommand) SetDir(dir string) {}

func (a *audioCommand) CombinedOutput() ([]byte, error) {
	return a.Output()
}

func (a *audioCommand) Output() ([]byte, error) {
	if a.executor.Unavailable {
		return nil, NetworkFailure
	}

	source := a.executor.Source

	if strings.Contains(a.bin, "ffprobe") {
		probeJSON := fmt.Sprintf(`{"format": {"duration": "%.6f"}}`, source.Duration())
		return []byte(probeJSON), nil
	}

	if strings.Contains(a.bin, "ffmpeg") {
		return interleaveFloat32(source), nil
	}

	return nil, cerr.Field("bin", a.bin).Error("Unexpected binary for dummy audio executor")
}

func interleaveFloat32(buffer audio.Buffer) []byte {
	channels := buffer.Channels()
	if channels == 0 {
		return nil
	}

	// the real decode always yields stereo
	samples := buffer.Samples
	if channels == 1 {
		samples = [][]float64{buffer.Samples[0], buffer.Samples[0]}
		channels = 2
	}

	frameCount := len(samples[0])
	out := make([]byte, 0, frameCount*channels*4)

	for frame := 0; frame < frameCount; frame++ {
		for ch := 0; ch < channels; ch++ {
			bits := math.Float32bits(float32(samples[ch][frame]))
			out = binary.LittleEndian.AppendUint32(out, bits)
		}
	}

	return out
}
