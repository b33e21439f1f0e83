package dummy

import "github.com/cockroachdb/errors"

var (
	NetworkFailure = errors.New("dummy network failure")
	NotFound       = errors.New("dummy entry not found")
)
