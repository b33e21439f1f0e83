package jobstorage

import "github.com/cockroachdb/errors"

var (
	DefaultErrorMark = errors.New("Default job storage error")
	JobNotFound      = errors.New("Job is not found")
	IDEmptyMark      = errors.New("Job ID is empty")
	MarshalMark      = errors.New("Failed to marshal job")
	UnmarshalMark    = errors.New("Failed to unmarshal job")
)
