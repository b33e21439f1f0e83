package job_message

import (
	"encoding/json"

	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/rabbitmq/amqp091-go"
)

// JobIdentifier is embedded in every queue message payload.
type JobIdentifier struct {
	JobID string `json:"job_id"`
}

// Create serializes a job message of the given type for publishing.
func Create(jobType string, params any) (amqp091.Publishing, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return amqp091.Publishing{}, cerr.Field("job_type", jobType).
			Wrap(err).Error("Failed to marshal job message")
	}

	return amqp091.Publishing{
		Type: jobType,
		Body: body,
	}, nil
}
