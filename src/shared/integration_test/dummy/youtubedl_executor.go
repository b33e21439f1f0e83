package dummy

import (
	"os"

	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/executor"
)

var _ executor.Executor = &YoutubeDLExecutor{}

func NewDummyYoutubeDLExecutor() *YoutubeDLExecutor {
	return &YoutubeDLExecutor{
		URLContents: make(map[string][]byte),
	}
}

// YoutubeDLExecutor stands in for the yt-dlp binary. Register a URL
// with AddURL and any download invocation for it writes the canned
// bytes to the requested output path.
type YoutubeDLExecutor struct {
	URLContents map[string][]byte
	Unavailable bool
}

func (y *YoutubeDLExecutor) AddURL(url string, contents []byte) {
	y.URLContents[url] = contents
}

func (y *YoutubeDLExecutor) Command(name string, arg ...string) executor.Command {
	return &youtubeDLCommand{
		executor: y,
		args:     arg,
	}
}

type youtubeDLCommand struct {
	executor *YoutubeDLExecutor
	args     []string
}

func (y *youtubeDLCommand) SetDir(dir string) {}

func (y *youtubeDLCommand) CombinedOutput() ([]byte, error) {
	if y.executor.Unavailable {
		return []byte("network is unreachable"), NetworkFailure
	}

	// cache clear invocation, nothing to do
	if len(y.args) == 1 && y.args[0] == "--rm-cache-dir" {
		return nil, nil
	}

	outPath := ""
	for i, arg := range y.args {
		if arg == "-o" && i+1 < len(y.args) {
			outPath = y.args[i+1]
		}
	}

	if outPath == "" {
		return []byte("no output path given"), cerr.Error("No -o flag in yt-dlp invocation")
	}

	url := y.args[len(y.args)-1]
	contents, ok := y.executor.URLContents[url]
	if !ok {
		return []byte("video unavailable"), NotFound
	}

	err := os.WriteFile(outPath, contents, os.ModePerm)
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to write dummy download output")
	}

	return nil, nil
}

func (y *youtubeDLCommand) Output() ([]byte, error) {
	return y.CombinedOutput()
}
