package dummy

import (
	"context"
	"sync"

	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	jobstorage "github.com/harmonix-audio/harmonix-be/src/shared/job/storage"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/errors/mark"
)

var _ jobentity.Store = &JobStore{}

func NewDummyJobStore() *JobStore {
	return &JobStore{
		Unavailable: false,
		State:       make(map[string]jobentity.Job),
	}
}

type JobStore struct {
	Unavailable bool
	State       map[string]jobentity.Job
	mutex       sync.RWMutex
}

func (j *JobStore) GetJob(ctx context.Context, jobID string) (jobentity.Job, error) {
	if j.Unavailable {
		return jobentity.Job{}, NetworkFailure
	}

	j.mutex.RLock()
	defer j.mutex.RUnlock()

	job, ok := j.State[jobID]
	if !ok {
		return jobentity.Job{}, mark.Wrap(NotFound, jobstorage.JobNotFound, "Job is not found")
	}

	return job, nil
}

func (j *JobStore) CreateJob(ctx context.Context, job jobentity.Job) error {
	if j.Unavailable {
		return NetworkFailure
	}

	j.mutex.Lock()
	defer j.mutex.Unlock()

	if _, ok := j.State[job.ID]; ok {
		return cerr.Error("Job already exists in the dummy store")
	}

	j.State[job.ID] = job
	return nil
}

func (j *JobStore) UpdateJob(ctx context.Context, jobID string, updater jobentity.JobUpdater) error {
	job, err := j.GetJob(ctx, jobID)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to get job from dummy store")
	}

	updatedJob, err := updater(job)
	if err != nil {
		return cerr.Wrap(err).Error("Job update function failed")
	}

	j.mutex.Lock()
	defer j.mutex.Unlock()

	j.State[jobID] = updatedJob
	return nil
}
