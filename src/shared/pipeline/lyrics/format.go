package lyrics

import (
	"fmt"
	"strings"
)

// FormatLRC renders the lines as a synced LRC file.
func FormatLRC(result Result) string {
	if !result.Available {
		return ""
	}

	builder := strings.Builder{}
	for _, line := range result.Lines {
		minutes := int(line.Start) / 60
		seconds := line.Start - float64(minutes*60)
		builder.WriteString(fmt.Sprintf("[%02d:%05.2f]%s\n", minutes, seconds, strings.TrimSpace(line.Text)))
	}

	return builder.String()
}

// FormatSRT renders the lines as SubRip subtitles.
func FormatSRT(result Result) string {
	if !result.Available {
		return ""
	}

	builder := strings.Builder{}
	for i, line := range result.Lines {
		builder.WriteString(fmt.Sprintf("%d\n", i+1))
		builder.WriteString(fmt.Sprintf("%s --> %s\n", srtTimestamp(line.Start), srtTimestamp(line.End)))
		builder.WriteString(strings.TrimSpace(line.Text))
		builder.WriteString("\n\n")
	}

	return builder.String()
}

func srtTimestamp(seconds float64) string {
	totalMillis := int(seconds * 1000)
	hours := totalMillis / 3600000
	minutes := totalMillis % 3600000 / 60000
	secs := totalMillis % 60000 / 1000
	millis := totalMillis % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
