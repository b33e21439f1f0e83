package mark

import (
	"github.com/cockroachdb/errors"
)

// Wrap attaches a sentinel mark to err so that callers can branch on
// markers.Is without depending on the error message.
func Wrap(err error, mark error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), mark)
}

func Message(mark error, msg string) error {
	return errors.Mark(errors.New(msg), mark)
}
