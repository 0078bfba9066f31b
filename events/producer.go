// Package events publishes job lifecycle events to Kafka for
// downstream consumers (notification fan-out, auditing). The gateway
// works the same with or without a broker configured.
package events

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
)

type JobEvent struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	OutURL string `json:"out_url,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Producer methods are nil-safe: a nil receiver publishes nothing.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &Producer{producer: p, topic: topic}, nil
}

func (p *Producer) Publish(ctx context.Context, event *JobEvent) error {
	if p == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.JobID),
		Value: sarama.ByteEncoder(data),
	}

	_, _, err = p.producer.SendMessage(msg)
	return err
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
