package working_dir

import (
	"path/filepath"

	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
)

func NewWorkingDir(dir string) (WorkingDir, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return WorkingDir{}, cerr.Field("dir", dir).
			Wrap(err).Error("Failed to convert working dir to absolute format")
	}

	return WorkingDir{
		root: absDir,
	}, nil
}

type WorkingDir struct {
	root string
}

func (w WorkingDir) Root() string {
	return w.root
}

func (w WorkingDir) TempDir() string {
	return filepath.Join(w.root, "tmp")
}
