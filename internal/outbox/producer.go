package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
)

var (
	writerMessagesDesc = prometheus.NewDesc(
		"booking_service_kafka_writer_messages_total",
		"Messages handed to Kafka by the booking producer.",
		[]string{"topic"}, nil,
	)
	writerErrorsDesc = prometheus.NewDesc(
		"booking_service_kafka_writer_errors_total",
		"Failed Kafka produce requests from the booking producer.",
		[]string{"topic"}, nil,
	)
)

// writerTotals accumulates kafka.Writer stats, which reset on every read.
type writerTotals struct {
	messages int64
	errors   int64
}

// KafkaProducer keeps one writer per booking topic. Records are keyed by
// activity id, so hashing keeps each activity's events in order. It is also
// a prometheus.Collector reporting per-topic writer totals.
type KafkaProducer struct {
	brokers []string
	mu      sync.Mutex
	writers map[string]*kafka.Writer
	totals  map[string]*writerTotals
}

// NewKafkaProducer creates a KafkaProducer.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
		totals:  make(map[string]*writerTotals),
	}
}

// WriteMessages writes msgs to topic, creating its writer on first use.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	return p.writerForTopic(topic).WriteMessages(ctx, msgs...)
}

func (p *KafkaProducer) writerForTopic(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchTimeout: 50 * time.Millisecond,
	}
	p.writers[topic] = writer
	p.totals[topic] = &writerTotals{}
	return writer
}

// Describe implements prometheus.Collector.
func (p *KafkaProducer) Describe(ch chan<- *prometheus.Desc) {
	ch <- writerMessagesDesc
	ch <- writerErrorsDesc
}

// Collect implements prometheus.Collector.
func (p *KafkaProducer) Collect(ch chan<- prometheus.Metric) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for topic, writer := range p.writers {
		stats := writer.Stats()
		totals := p.totals[topic]
		totals.messages += stats.Messages
		totals.errors += stats.Errors
		ch <- prometheus.MustNewConstMetric(writerMessagesDesc, prometheus.CounterValue, float64(totals.messages), topic)
		ch <- prometheus.MustNewConstMetric(writerErrorsDesc, prometheus.CounterValue, float64(totals.errors), topic)
	}
}

// Close flushes and releases every writer.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
		delete(p.totals, topic)
	}
	return firstErr
}
