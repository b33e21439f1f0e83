package dummy

import (
	"sync"

	"github.com/harmonix-audio/harmonix-be/src/shared/lib/rabbitmq"
	"github.com/rabbitmq/amqp091-go"
)

var _ rabbitmq.Publisher = &RabbitMQ{}

func NewRabbitMQ() *RabbitMQ {
	return &RabbitMQ{}
}

type RabbitMQ struct {
	Unavailable bool
	messages    []amqp091.Publishing
	mutex       sync.RWMutex
}

func (r *RabbitMQ) Publish(msg amqp091.Publishing) error {
	if r.Unavailable {
		return NetworkFailure
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.messages = append(r.messages, msg)
	return nil
}

func (r *RabbitMQ) Messages() []amqp091.Publishing {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return append([]amqp091.Publishing{}, r.messages...)
}
