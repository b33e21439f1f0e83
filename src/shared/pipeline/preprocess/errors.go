package preprocess

import "github.com/cockroachdb/errors"

// Input errors are fatal and reported to the caller without retry.
var (
	ErrUnsupportedFormat = errors.New("Unsupported audio format")
	ErrFileTooLarge      = errors.New("Audio file exceeds the size ceiling")
	ErrDurationExceeded  = errors.New("Audio duration exceeds the ceiling")
	ErrEmptyAudio        = errors.New("Audio file is empty or could not be decoded")
)
