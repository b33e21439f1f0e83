package separate

import (
	"context"
	"sync"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/errors/mark"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/audio"
)

// ErrEngineOOM marks a separation attempt that exhausted GPU memory.
// The separator retries these, first with reduced settings, then on CPU.
var ErrEngineOOM = errors.New("separation engine ran out of device memory")

// ErrSeparation marks a separation failure that survived the full retry
// ladder. It is fatal for the stage that hit it.
var ErrSeparation = errors.New("separation engine failed")

//counterfeiter:generate . Engine

// Engine is one invocation of the pretrained separation network.
// Implementations return stems keyed by name, each the same length as
// the input.
type Engine interface {
	Separate(ctx context.Context, input audio.Buffer, params Params) (map[string]audio.Buffer, error)
}

// gpuLock serializes model invocations on the shared GPU device.
// CPU runs do not contend for it.
var gpuLock sync.Mutex

type Separator struct {
	engine Engine
	device string
}

func NewSeparator(engine Engine, device string) Separator {
	return Separator{
		engine: engine,
		device: device,
	}
}

// Separate runs one engine invocation with the OOM retry ladder:
// configured device, then memory-optimized settings, then CPU. Warnings
// describe any degradation that occurred; the error is terminal.
func (s Separator) Separate(ctx context.Context, input audio.Buffer, params Params) (map[string]audio.Buffer, []string, error) {
	params.Device = s.device

	stems, err := s.invoke(ctx, input, params)
	if err == nil {
		return stems, nil, nil
	}

	if !markers.Is(err, ErrEngineOOM) || params.Device == DeviceCPU {
		return nil, nil, mark.Wrap(err, ErrSeparation, "Separation failed")
	}

	warnings := []string{"separation retried with reduced settings after device memory was exhausted"}
	log.WithField("model", params.Model).
		Warn("Engine ran out of device memory, retrying with reduced settings")

	stems, err = s.invoke(ctx, input, memoryOptimized(params))
	if err == nil {
		return stems, warnings, nil
	}

	if !markers.Is(err, ErrEngineOOM) {
		return nil, nil, mark.Wrap(err, ErrSeparation, "Separation failed on memory-optimized retry")
	}

	warnings = append(warnings, "separation fell back to CPU after repeated device memory exhaustion")
	log.WithField("model", params.Model).
		Warn("Engine ran out of device memory again, falling back to CPU")

	stems, err = s.invoke(ctx, input, onCPU(params))
	if err != nil {
		return nil, nil, mark.Wrap(err, ErrSeparation, "Separation failed after CPU fallback")
	}

	return stems, warnings, nil
}

func (s Separator) invoke(ctx context.Context, input audio.Buffer, params Params) (map[string]audio.Buffer, error) {
	if params.Device != DeviceCPU {
		gpuLock.Lock()
		defer gpuLock.Unlock()
	}

	stems, err := s.engine.Separate(ctx, input, params)
	if err != nil {
		return nil, cerr.Fields(cerr.F{
			"model":  params.Model,
			"device": params.Device,
		}).Wrap(err).Error("Separation engine invocation failed")
	}

	return stems, nil
}
