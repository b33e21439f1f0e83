package separate

import jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"

const (
	PrecisionFP16 = "fp16"
	PrecisionFP32 = "fp32"

	DeviceCUDA = "cuda"
	DeviceCPU  = "cpu"

	// RefinementModel splits the "other" stem into named instruments.
	RefinementModel = "htdemucs_6s"
)

// Params is the tuple handed to one engine invocation. Higher quality
// tiers buy fewer artifacts with more shift averaging and precision.
type Params struct {
	Model       string
	Shifts      int
	Overlap     float64
	Precision   string
	SegmentSecs int
	Device      string
}

var qualityTable = map[jobentity.QualityMode]Params{
	jobentity.DraftQuality:    {Model: "htdemucs", Shifts: 0, Overlap: 0.10, Precision: PrecisionFP16},
	jobentity.FastQuality:     {Model: "htdemucs", Shifts: 1, Overlap: 0.25, Precision: PrecisionFP16},
	jobentity.BalancedQuality: {Model: "htdemucs_ft", Shifts: 2, Overlap: 0.25, Precision: PrecisionFP32},
	jobentity.StudioQuality:   {Model: "htdemucs_ft", Shifts: 5, Overlap: 0.50, Precision: PrecisionFP32},
}

// ParamsForQuality looks up the preset for a quality mode. The device
// is filled in by the separator. Unknown modes fall back to the
// balanced preset.
func ParamsForQuality(quality jobentity.QualityMode) Params {
	params, ok := qualityTable[quality]
	if !ok {
		params = qualityTable[jobentity.BalancedQuality]
	}

	return params
}

// memoryOptimized reduces the memory footprint of a preset after an
// out-of-memory failure: no shift averaging and short segments.
func memoryOptimized(params Params) Params {
	params.Shifts = 0
	params.SegmentSecs = 8
	params.Precision = PrecisionFP16
	return params
}

func onCPU(params Params) Params {
	params.Device = DeviceCPU
	params.SegmentSecs = 0
	return params
}
