package dummy

import (
	"context"
	"sync"

	"github.com/harmonix-audio/harmonix-be/src/shared/lib/errors/mark"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/audio"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/separate"
)

var _ separate.Engine = &Engine{}

func NewDummyEngine() *Engine {
	return &Engine{}
}

// Engine stands in for the demucs CLI. It returns the input buffer
// under each stem name the invoked model is expected to produce, and
// can simulate device memory exhaustion on non-CPU invocations.
type Engine struct {
	// OOMOnDevice makes every non-CPU invocation fail with the OOM mark.
	OOMOnDevice bool
	Broken      bool

	invocations []separate.Params
	mutex       sync.Mutex
}

var modelStems = map[string][]string{
	"htdemucs":    {"vocals", "drums", "bass", "other"},
	"htdemucs_ft": {"vocals", "drums", "bass", "other"},
	"htdemucs_6s": {"vocals", "drums", "bass", "guitar", "piano", "other"},
}

func (e *Engine) Separate(ctx context.Context, input audio.Buffer, params separate.Params) (map[string]audio.Buffer, error) {
	e.mutex.Lock()
	e.invocations = append(e.invocations, params)
	oom := e.OOMOnDevice && params.Device != separate.DeviceCPU
	e.mutex.Unlock()

	if e.Broken {
		return nil, NetworkFailure
	}

	if oom {
		return nil, mark.Message(separate.ErrEngineOOM, "Dummy engine ran out of device memory")
	}

	stemNames, ok := modelStems[params.Model]
	if !ok {
		return nil, mark.Message(separate.ErrSeparation, "Dummy engine does not know this model")
	}

	stems := map[string]audio.Buffer{}
	for _, name := range stemNames {
		stems[name] = input
	}

	return stems, nil
}

func (e *Engine) Invocations() []separate.Params {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return append([]separate.Params{}, e.invocations...)
}
