package analyze

// Camelot wheel positions, a display-only relabeling of key/scale pairs
// used by DJ software for harmonic mixing.
var (
	camelotMajor = map[string]string{
		"C": "8B", "G": "9B", "D": "10B", "A": "11B", "E": "12B", "B": "1B",
		"F#": "2B", "C#": "3B", "G#": "4B", "D#": "5B", "A#": "6B", "F": "7B",
	}
	camelotMinor = map[string]string{
		"A": "8A", "E": "9A", "B": "10A", "F#": "11A", "C#": "12A", "G#": "1A",
		"D#": "2A", "A#": "3A", "F": "4A", "C": "5A", "G": "6A", "D": "7A",
	}
)

func camelotCode(key string, scale string) string {
	if scale == ScaleMinor {
		return camelotMinor[key]
	}

	return camelotMajor[key]
}
