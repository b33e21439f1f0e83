package audio

import (
	"os"

	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
)

func WriteWAVFile(path string, buffer Buffer) error {
	data, err := EncodeWAV(buffer)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to encode WAV data")
	}

	err = os.WriteFile(path, data, os.ModePerm)
	if err != nil {
		return cerr.Field("path", path).
			Wrap(err).Error("Failed to write WAV file")
	}

	return nil
}

func ReadWAVFile(path string) (Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Buffer{}, cerr.Field("path", path).
			Wrap(err).Error("Failed to read WAV file")
	}

	buffer, err := DecodeWAV(data)
	if err != nil {
		return Buffer{}, cerr.Field("path", path).
			Wrap(err).Error("Failed to decode WAV file")
	}

	return buffer, nil
}
