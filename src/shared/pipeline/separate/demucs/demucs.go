package demucs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/errors/mark"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/executor"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/working_dir"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/audio"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/separate"
)

// Engine invokes the demucs CLI. Each invocation gets a private scratch
// directory: the input buffer is written as WAV, demucs writes one WAV
// per stem, and the stems are decoded back into buffers.
type Engine struct {
	binPath         string
	modelCacheDir   string
	workingDir      working_dir.WorkingDir
	commandExecutor executor.Executor
}

func NewEngine(binPath string, modelCacheDir string, workingDir working_dir.WorkingDir, commandExecutor executor.Executor) Engine {
	return Engine{
		binPath:         binPath,
		modelCacheDir:   modelCacheDir,
		workingDir:      workingDir,
		commandExecutor: commandExecutor,
	}
}

func (e Engine) Separate(ctx context.Context, input audio.Buffer, params separate.Params) (map[string]audio.Buffer, error) {
	scratchDir, err := os.MkdirTemp(e.workingDir.TempDir(), "demucs-*")
	if err != nil {
		return nil, cerr.Field("temp_dir", e.workingDir.TempDir()).
			Wrap(err).Error("Failed to create demucs scratch dir")
	}
	defer os.RemoveAll(scratchDir)

	inputPath := filepath.Join(scratchDir, "input.wav")
	err = audio.WriteWAVFile(inputPath, input)
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to write demucs input file")
	}

	outputDir := filepath.Join(scratchDir, "separated")

	command := e.commandExecutor.Command(e.binPath, e.args(params, inputPath, outputDir)...)
	command.SetDir(scratchDir)

	output, err := command.CombinedOutput()
	if err != nil {
		if isOutOfMemory(output) {
			return nil, mark.Wrap(err, separate.ErrEngineOOM, "Demucs ran out of device memory")
		}

		return nil, cerr.Fields(cerr.F{
			"model":  params.Model,
			"output": string(output),
		}).Wrap(err).Error("Demucs invocation failed")
	}

	stems, err := e.collectStems(filepath.Join(outputDir, params.Model, "input"))
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"model":  params.Model,
		"device": params.Device,
		"stems":  len(stems),
	}).Info("Demucs separation finished")

	return stems, nil
}

func (e Engine) args(params separate.Params, inputPath string, outputDir string) []string {
	args := []string{
		"-n", params.Model,
		"-d", params.Device,
		"--shifts", fmt.Sprintf("%d", params.Shifts),
		"--overlap", fmt.Sprintf("%.2f", params.Overlap),
		"-o", outputDir,
	}

	if params.Precision == separate.PrecisionFP32 {
		args = append(args, "--float32")
	}

	if params.SegmentSecs > 0 {
		args = append(args, "--segment", fmt.Sprintf("%d", params.SegmentSecs))
	}

	// Point demucs at a persistent model directory so weights are
	// downloaded once and reused across invocations.
	if e.modelCacheDir != "" {
		args = append(args, "--repo", e.modelCacheDir)
	}

	return append(args, inputPath)
}

func (e Engine) collectStems(stemDir string) (map[string]audio.Buffer, error) {
	entries, err := os.ReadDir(stemDir)
	if err != nil {
		return nil, cerr.Field("stem_dir", stemDir).
			Wrap(err).Error("Failed to read demucs output dir")
	}

	stems := map[string]audio.Buffer{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".wav") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".wav")
		buffer, err := audio.ReadWAVFile(filepath.Join(stemDir, entry.Name()))
		if err != nil {
			return nil, cerr.Field("stem", name).
				Wrap(err).Error("Failed to decode demucs stem")
		}

		stems[name] = buffer
	}

	if len(stems) == 0 {
		return nil, cerr.Field("stem_dir", stemDir).
			Error("Demucs produced no stems")
	}

	return stems, nil
}

func isOutOfMemory(output []byte) bool {
	text := strings.ToLower(string(output))
	return strings.Contains(text, "out of memory") || strings.Contains(text, "cuda error")
}
