package preprocess_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/harmonix-audio/harmonix-be/src/shared/config"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/executor"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/preprocess"
)

// mediaExecutor scripts the ffprobe and ffmpeg invocations. Probe calls
// report probeDuration, decode calls emit frames as raw stdout.
type mediaExecutor struct {
	probeDuration float64
	frames        []byte

	probeErr  error
	decodeErr error
}

func (m *mediaExecutor) Command(name string, arg ...string) executor.Command {
	return &mediaCommand{executor: m, bin: name}
}

type mediaCommand struct {
	executor *mediaExecutor
	bin      string
}

func (m *mediaCommand) SetDir(dir string) {}

func (m *mediaCommand) CombinedOutput() ([]byte, error) {
	return m.Output()
}

func (m *mediaCommand) Output() ([]byte, error) {
	if strings.Contains(m.bin, "ffprobe") {
		if m.executor.probeErr != nil {
			return nil, m.executor.probeErr
		}

		probeJSON := fmt.Sprintf(`{"format": {"duration": "%.6f"}}`, m.executor.probeDuration)
		return []byte(probeJSON), nil
	}

	if m.executor.decodeErr != nil {
		return nil, m.executor.decodeErr
	}

	return m.executor.frames, nil
}

func interleaveStereo(left []float64, right []float64) []byte {
	buf := &bytes.Buffer{}
	for i := range left {
		binary.Write(buf, binary.LittleEndian, float32(left[i]))
		binary.Write(buf, binary.LittleEndian, float32(right[i]))
	}

	return buf.Bytes()
}

var _ = Describe("Preprocessor", func() {
	var (
		pipelineConfig config.Pipeline
		media          *mediaExecutor
		inputPath      string
		ctx            context.Context
	)

	BeforeEach(func() {
		pipelineConfig = config.DefaultPipeline()
		pipelineConfig.FFmpegBinPath = "/bin/ffmpeg"
		pipelineConfig.FFprobeBinPath = "/bin/ffprobe"

		media = &mediaExecutor{
			probeDuration: 1,
			frames:        interleaveStereo([]float64{0.25, -0.5}, []float64{0.25, -0.5}),
		}

		inputPath = filepath.Join(GinkgoT().TempDir(), "song.mp3")
		Expect(os.WriteFile(inputPath, []byte("not really an mp3"), 0644)).To(Succeed())

		ctx = context.Background()
	})

	newPreprocessor := func() preprocess.Preprocessor {
		return preprocess.New(pipelineConfig, media)
	}

	Describe("Validation", func() {
		It("rejects extensions outside the supported set", func() {
			badPath := filepath.Join(filepath.Dir(inputPath), "document.pdf")
			Expect(os.WriteFile(badPath, []byte("%PDF"), 0644)).To(Succeed())

			_, err := newPreprocessor().LoadAndValidate(ctx, badPath)
			Expect(markers.Is(err, preprocess.ErrUnsupportedFormat)).To(BeTrue())
		})

		It("rejects files over the byte ceiling without decoding", func() {
			pipelineConfig.MaxFileSizeMB = 1
			oversized := bytes.Repeat([]byte{0xAB}, 1024*1024+1)
			Expect(os.WriteFile(inputPath, oversized, 0644)).To(Succeed())

			_, err := newPreprocessor().LoadAndValidate(ctx, inputPath)
			Expect(markers.Is(err, preprocess.ErrFileTooLarge)).To(BeTrue())
		})

		It("rejects files over the duration ceiling without decoding", func() {
			pipelineConfig.MaxDurationSecs = 600
			media.probeDuration = 601

			_, err := newPreprocessor().LoadAndValidate(ctx, inputPath)
			Expect(markers.Is(err, preprocess.ErrDurationExceeded)).To(BeTrue())
		})

		It("treats an unprobeable file as empty audio", func() {
			media.probeErr = errors.New("moov atom not found")

			_, err := newPreprocessor().LoadAndValidate(ctx, inputPath)
			Expect(markers.Is(err, preprocess.ErrEmptyAudio)).To(BeTrue())
		})

		It("rejects a decode that produced no samples", func() {
			media.frames = []byte{}

			_, err := newPreprocessor().LoadAndValidate(ctx, inputPath)
			Expect(markers.Is(err, preprocess.ErrEmptyAudio)).To(BeTrue())
		})
	})

	Describe("Decoding", func() {
		It("produces a stereo buffer at the configured sample rate", func() {
			buffer, err := newPreprocessor().LoadAndValidate(ctx, inputPath)
			Expect(err).NotTo(HaveOccurred())

			Expect(buffer.Channels()).To(Equal(2))
			Expect(buffer.SampleRate).To(Equal(pipelineConfig.SampleRate))
			Expect(buffer.NumSamples()).To(Equal(2))
			Expect(buffer.Samples[0][0]).To(BeNumerically("~", 0.25, 1e-6))
			Expect(buffer.Samples[1][1]).To(BeNumerically("~", -0.5, 1e-6))
		})

		It("surfaces decode failures", func() {
			media.decodeErr = errors.New("ffmpeg exited 1")

			_, err := newPreprocessor().LoadAndValidate(ctx, inputPath)
			Expect(err).To(HaveOccurred())
		})

		It("stops before decoding when the context is already cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := newPreprocessor().LoadAndValidate(cancelled, inputPath)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Peak normalization", func() {
		It("scales the signal to the target peak when enabled", func() {
			pipelineConfig.Normalize = true
			pipelineConfig.NormalizePeakDB = -3

			buffer, err := newPreprocessor().LoadAndValidate(ctx, inputPath)
			Expect(err).NotTo(HaveOccurred())

			targetPeak := math.Pow(10, -3.0/20)
			Expect(buffer.Peak()).To(BeNumerically("~", targetPeak, 1e-6))
		})

		It("leaves the signal untouched when disabled", func() {
			buffer, err := newPreprocessor().LoadAndValidate(ctx, inputPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(buffer.Peak()).To(BeNumerically("~", 0.5, 1e-6))
		})
	})
})
