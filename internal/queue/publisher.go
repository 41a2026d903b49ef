package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/emrgen/doctree/internal/cache"
	"github.com/emrgen/doctree/internal/eventlog"
	"github.com/sirupsen/logrus"
)

var (
	CacheInvalidationTopic = "doctree.cache.invalidate"
	AuditTopic             = "doctree.audit"
)

// Producer is the part of the kafka producer the publisher uses.
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

var (
	_ cache.Sink    = (*Publisher)(nil)
	_ eventlog.Sink = (*Publisher)(nil)
)

// Publisher forwards cache invalidation keys and audit records to kafka.
type Publisher struct {
	producer   Producer
	cacheTopic string
	auditTopic string
}

// NewPublisher connects a kafka producer to brokers.
func NewPublisher(brokers []string) (*Publisher, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": strings.Join(brokers, ","),
		"acks":              "all",
	})
	if err != nil {
		return nil, err
	}

	p := NewPublisherFromProducer(producer)
	go p.reportDeliveries(producer.Events())

	return p, nil
}

func NewPublisherFromProducer(producer Producer) *Publisher {
	return &Publisher{
		producer:   producer,
		cacheTopic: CacheInvalidationTopic,
		auditTopic: AuditTopic,
	}
}

// Touch publishes one message per invalidation batch keyed by the first key.
func (p *Publisher) Touch(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	value, err := json.Marshal(keys)
	if err != nil {
		return err
	}

	return p.produce(p.cacheTopic, keys[0], value)
}

// Write publishes an audit record keyed by its node.
func (p *Publisher) Write(ctx context.Context, r *eventlog.Record) error {
	value, err := json.Marshal(r)
	if err != nil {
		return err
	}

	return p.produce(p.auditTopic, fmt.Sprintf("%d", r.NodeID), value)
}

func (p *Publisher) produce(topic, key string, value []byte) error {
	return p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          value,
	}, nil)
}

func (p *Publisher) reportDeliveries(events chan kafka.Event) {
	for e := range events {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			logrus.Errorf("kafka delivery to %s failed: %v", *m.TopicPartition.Topic, m.TopicPartition.Error)
		}
	}
}

// Close flushes pending messages and closes the producer.
func (p *Publisher) Close() {
	if remaining := p.producer.Flush(5000); remaining > 0 {
		logrus.Warnf("kafka publisher closed with %d undelivered messages", remaining)
	}
	p.producer.Close()
}
