package transfer

import (
	"context"
	"os"
	"path/filepath"

	"github.com/apex/log"
	cloudstorage "github.com/harmonix-audio/harmonix-be/src/shared/cloud_storage/entity"
	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/working_dir"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/transfer/download"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/lib/storagepath"
)

func NewJobTransferrer(
	downloader download.SelectDLer,
	jobStore jobentity.Store,
	fileStore cloudstorage.FileStore,
	pathGenerator storagepath.Generator,
	workingDirStr string,
) (JobTransferrer, error) {
	workingDir, err := working_dir.NewWorkingDir(workingDirStr)
	if err != nil {
		return JobTransferrer{}, cerr.Field("working_dir_str", workingDirStr).
			Wrap(err).Error("Failed to create working dir")
	}

	return JobTransferrer{
		fileStore:     fileStore,
		jobStore:      jobStore,
		downloader:    downloader,
		pathGenerator: pathGenerator,
		workingDir:    workingDir,
	}, nil
}

// JobTransferrer fetches the job's source audio and parks a copy in
// cloud storage so that later stages never depend on the origin again.
type JobTransferrer struct {
	fileStore     cloudstorage.FileStore
	jobStore      jobentity.Store
	downloader    download.SelectDLer
	pathGenerator storagepath.Generator
	workingDir    working_dir.WorkingDir
}

func (t JobTransferrer) Transfer(jobID string) (string, error) {
	errctx := cerr.Field("job_id", jobID)

	job, err := t.jobStore.GetJob(context.Background(), jobID)
	if err != nil {
		return "", errctx.Wrap(err).Error("Failed to get job")
	}

	if job.SourceURL == "" {
		return "", errctx.Error("Job has no source URL to transfer")
	}

	tempFilePath, cleanUpTempDir, err := t.makeTempOutFilePath()
	if err != nil {
		return "", errctx.Wrap(err).Error("Failed to make a temp file path")
	}

	defer cleanUpTempDir()

	err = t.downloader.Download(job.SourceURL, tempFilePath)
	if err != nil {
		return "", errctx.Field("source_url", job.SourceURL).
			Wrap(err).Error("Failed to download source audio")
	}

	log.Info("Reading output file to memory")
	fileContent, err := os.ReadFile(tempFilePath)
	if err != nil {
		return "", errctx.Wrap(err).Error("Failed to read downloaded audio file")
	}

	destinationURL := t.pathGenerator.GeneratePath(jobID, "original/original.mp3")

	log.Info("Writing file to remote file store")
	err = t.fileStore.WriteFile(context.Background(), destinationURL, fileContent)
	if err != nil {
		return "", errctx.Wrap(err).Error("Failed to write file to the cloud")
	}

	return destinationURL, nil
}

func (t JobTransferrer) makeTempOutFilePath() (string, func(), error) {
	log.Info("Creating temp dir to store downloaded source file temporarily")
	tempDir, err := os.MkdirTemp(t.workingDir.TempDir(), "transfer-*")
	if err != nil {
		return "", nil, cerr.Field("temp_dir", t.workingDir.TempDir()).
			Wrap(err).Error("Failed to create temp dir to download to")
	}

	tempDir, err = filepath.Abs(tempDir)
	if err != nil {
		return "", nil, cerr.Field("temp_dir", tempDir).
			Wrap(err).Error("Failed to turn temp dir into absolute format")
	}

	outputPath := filepath.Join(tempDir, "original.mp3")

	return outputPath, func() { os.RemoveAll(tempDir) }, nil
}
