package jobstorage

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	"github.com/guregu/dynamo"
	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	dynamolib "github.com/harmonix-audio/harmonix-be/src/shared/lib/dynamo"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/errors/mark"
)

const (
	JobsTable = "SeparationJobs"
)

var _ jobentity.Store = DB{}

type DB struct {
	dynamoDB dynamolib.DynamoDBWrapper
}

func NewDB(dynamoDB dynamolib.DynamoDBWrapper) DB {
	return DB{
		dynamoDB: dynamoDB,
	}
}

func (d DB) GetJob(ctx context.Context, jobID string) (jobentity.Job, error) {
	if jobID == "" {
		return jobentity.Job{}, mark.Message(IDEmptyMark, "No job ID was provided")
	}

	value := dbJob{}
	err := d.dynamoDB.Table(JobsTable).
		Get(idKey, jobID).
		OneWithContext(ctx, &value)

	if err != nil {
		switch {
		case markers.Is(err, UnmarshalMark):
			return jobentity.Job{}, errors.Wrap(err, "Failed to fetch job")
		case errors.Is(err, dynamo.ErrNotFound):
			return jobentity.Job{}, mark.Wrap(err, JobNotFound, "Job is not found")
		default:
			return jobentity.Job{}, mark.Wrap(err, DefaultErrorMark, "Failed to fetch job")
		}
	}

	job := jobentity.Job{}
	err = job.FromMap(value)
	if err != nil {
		return jobentity.Job{},
			mark.Wrap(err, UnmarshalMark, "Failed to transform DB map back to entity job")
	}

	return job, nil
}

func (d DB) CreateJob(ctx context.Context, job jobentity.Job) error {
	if job.ID == "" {
		return mark.Message(IDEmptyMark, "Job ID is not defined on job")
	}

	dbObject, err := job.ToMap()
	if err != nil {
		return mark.Wrap(err,
			MarshalMark,
			"Failed to transform entity job to a generic map object")
	}

	err = d.dynamoDB.Table(JobsTable).
		Put(dbObject).
		If("attribute_not_exists($)", idKey).
		RunWithContext(ctx)

	if err != nil {
		return mark.Wrap(err,
			DefaultErrorMark,
			"Failed to put the job in the DB")
	}

	return nil
}

func (d DB) UpdateJob(ctx context.Context, jobID string, updater jobentity.JobUpdater) error {
	job, err := d.GetJob(ctx, jobID)
	if err != nil {
		return mark.Wrap(err, JobNotFound, "Can't find the job")
	}

	updatedJob, err := updater(job)
	if err != nil {
		return mark.Wrap(err, DefaultErrorMark, "The updater failed to make changes to the job")
	}

	if updatedJob.ID != job.ID {
		return mark.Message(DefaultErrorMark, "The updater must not change the job ID")
	}

	dbObject, err := updatedJob.ToMap()
	if err != nil {
		return mark.Wrap(err, MarshalMark, "Failed to marshal job entity to map")
	}

	err = d.dynamoDB.Table(JobsTable).
		Put(dbObject).
		If("id = ?", jobID).
		RunWithContext(ctx)

	if err != nil {
		return mark.Wrap(err, DefaultErrorMark, "Unable to set the job")
	}

	return nil
}
