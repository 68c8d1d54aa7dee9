package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

const sourceService = "contactbook"

// NewKafkaProducer builds a synchronous producer for a comma separated broker list.
func NewKafkaProducer(brokers string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0

	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Timeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return producer, nil
}

// KafkaPublisher writes events as JSON to a topic. Messages are keyed by the
// requester id so events of one requester stay ordered within a partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logrus.Logger
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string, log *logrus.Logger) *KafkaPublisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &KafkaPublisher{producer: producer, topic: topic, log: log}
}

func (p *KafkaPublisher) Publish(_ context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(event.RequesterID), 10)),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
			{Key: []byte("event_id"), Value: []byte(event.ID)},
			{Key: []byte("source_service"), Value: []byte(sourceService)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish event to topic %s: %w", p.topic, err)
	}

	p.log.WithFields(logrus.Fields{
		"topic":     p.topic,
		"event_id":  event.ID,
		"partition": partition,
		"offset":    offset,
	}).Debug("Published contact event")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
