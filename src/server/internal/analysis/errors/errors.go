package analysiserrors

import (
	"github.com/harmonix-audio/harmonix-be/src/server/internal/errors/api"
)

const (
	BadAudioFileCode   = api.ErrorCode("bad_audio_file")
	AnalysisFailedCode = api.ErrorCode("analysis_failed")
)
