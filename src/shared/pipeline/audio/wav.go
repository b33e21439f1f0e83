package audio

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
)

const (
	waveFormatPCM       = 1
	waveFormatIEEEFloat = 3
)

// EncodeWAV renders the buffer as a 16-bit PCM RIFF/WAVE file.
func EncodeWAV(buffer Buffer) ([]byte, error) {
	if buffer.Channels() == 0 || buffer.NumSamples() == 0 {
		return nil, cerr.Error("Cannot encode an empty buffer")
	}

	channels := buffer.Channels()
	numSamples := buffer.NumSamples()
	dataSize := numSamples * channels * 2

	out := &bytes.Buffer{}
	out.Grow(44 + dataSize)

	out.WriteString("RIFF")
	writeUint32(out, uint32(36+dataSize))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	writeUint32(out, 16)
	writeUint16(out, waveFormatPCM)
	writeUint16(out, uint16(channels))
	writeUint32(out, uint32(buffer.SampleRate))
	writeUint32(out, uint32(buffer.SampleRate*channels*2))
	writeUint16(out, uint16(channels*2))
	writeUint16(out, 16)

	out.WriteString("data")
	writeUint32(out, uint32(dataSize))

	for i := 0; i < numSamples; i++ {
		for _, channel := range buffer.Samples {
			writeUint16(out, uint16(int16(clampSample(channel[i])*math.MaxInt16)))
		}
	}

	return out.Bytes(), nil
}

// DecodeWAV parses 16-bit PCM and 32-bit float RIFF/WAVE data.
func DecodeWAV(data []byte) (Buffer, error) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Buffer{}, cerr.Error("Data is not a RIFF/WAVE file")
	}

	var format, channels uint16
	var sampleRate uint32
	var bitsPerSample uint16
	var sampleData []byte

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		chunkStart := offset + 8

		if chunkStart+chunkSize > len(data) {
			chunkSize = len(data) - chunkStart
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return Buffer{}, cerr.Error("WAVE fmt chunk is truncated")
			}
			chunk := data[chunkStart:]
			format = binary.LittleEndian.Uint16(chunk[0:2])
			channels = binary.LittleEndian.Uint16(chunk[2:4])
			sampleRate = binary.LittleEndian.Uint32(chunk[4:8])
			bitsPerSample = binary.LittleEndian.Uint16(chunk[14:16])
		case "data":
			sampleData = data[chunkStart : chunkStart+chunkSize]
		}

		// chunks are word aligned
		if chunkSize%2 == 1 {
			chunkSize++
		}
		offset = chunkStart + chunkSize
	}

	if channels == 0 || sampleRate == 0 {
		return Buffer{}, cerr.Error("WAVE file has no fmt chunk")
	}

	if len(sampleData) == 0 {
		return Buffer{}, cerr.Error("WAVE file has no data chunk")
	}

	errctx := cerr.Fields(cerr.F{
		"format":          format,
		"bits_per_sample": bitsPerSample,
	})

	switch {
	case format == waveFormatPCM && bitsPerSample == 16:
		return decodePCM16(sampleData, int(channels), int(sampleRate)), nil
	case format == waveFormatIEEEFloat && bitsPerSample == 32:
		return decodeFloat32(sampleData, int(channels), int(sampleRate)), nil
	default:
		return Buffer{}, errctx.Error("Unsupported WAVE sample format")
	}
}

func decodePCM16(data []byte, channels int, sampleRate int) Buffer {
	frameCount := len(data) / (channels * 2)

	samples := make([][]float64, channels)
	for i := range samples {
		samples[i] = make([]float64, frameCount)
	}

	for frame := 0; frame < frameCount; frame++ {
		for ch := 0; ch < channels; ch++ {
			idx := (frame*channels + ch) * 2
			value := int16(binary.LittleEndian.Uint16(data[idx : idx+2]))
			samples[ch][frame] = float64(value) / math.MaxInt16
		}
	}

	return Buffer{
		Samples:    samples,
		SampleRate: sampleRate,
	}
}

func decodeFloat32(data []byte, channels int, sampleRate int) Buffer {
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

	return Buffer{
		Samples:    samples,
		SampleRate: sampleRate,
	}
}

func clampSample(sample float64) float64 {
	if sample > 1 {
		return 1
	}
	if sample < -1 {
		return -1
	}
	return sample
}

func writeUint16(out *bytes.Buffer, value uint16) {
	var scratch [2]byte
	binary.LittleEndian.PutUint16(scratch[:], value)
	out.Write(scratch[:])
}

func writeUint32(out *bytes.Buffer, value uint32) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], value)
	out.Write(scratch[:])
}
