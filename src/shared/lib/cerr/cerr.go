package cerr

import (
	"fmt"
	"sort"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
)

// F is a bag of loggable context fields attached to an error.
type F map[string]any

// Ctx accumulates fields and a wrapped error before the terminal
// Error call materializes them into a single error value.
type Ctx struct {
	fields F
	err    error
}

func Error(msg string) error {
	return Ctx{}.Error(msg)
}

func Wrap(err error) Ctx {
	return Ctx{}.Wrap(err)
}

func Field(key string, value any) Ctx {
	return Ctx{}.Field(key, value)
}

func Fields(fields F) Ctx {
	return Ctx{}.Fields(fields)
}

func (c Ctx) Field(key string, value any) Ctx {
	return c.Fields(F{key: value})
}

func (c Ctx) Fields(fields F) Ctx {
	merged := F{}
	for k, v := range c.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return Ctx{
		fields: merged,
		err:    c.err,
	}
}

func (c Ctx) Wrap(err error) Ctx {
	if c.err != nil {
		// wrapping twice loses the first error, surface the mistake
		// instead of silently dropping it
		return c.Field("overwritten_error", c.err.Error()).
			Fields(F{}).withErr(err)
	}

	return c.withErr(err)
}

func (c Ctx) withErr(err error) Ctx {
	return Ctx{
		fields: c.fields,
		err:    err,
	}
}

func (c Ctx) Error(msg string) error {
	var err error
	if c.err != nil {
		err = errors.Wrap(c.err, msg)
	} else {
		err = errors.New(msg)
	}

	for _, key := range c.sortedKeys() {
		err = errors.WithDetailf(err, "%s: %v", key, c.fields[key])
	}

	return err
}

func (c Ctx) sortedKeys() []string {
	keys := make([]string, 0, len(c.fields))
	for key := range c.fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Log reports an error with all the detail payloads that were attached
// along the wrap chain.
func Log(err error) {
	logger := log.WithError(err)

	for i, detail := range errors.GetAllDetails(err) {
		logger = logger.WithField(fmt.Sprintf("detail_%02d", i), detail)
	}

	logger.Error(err.Error())
}
