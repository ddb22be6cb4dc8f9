package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/booking/internal/events"
)

var nopLogger = zerolog.Nop()

type stubProducer struct {
	mu     sync.Mutex
	err    error
	writes []writtenBatch
}

type writtenBatch struct {
	topic    string
	messages []kafka.Message
}

func (s *stubProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	copied := make([]kafka.Message, len(msgs))
	copy(copied, msgs)
	s.writes = append(s.writes, writtenBatch{topic: topic, messages: copied})
	return nil
}

type stubRegistry struct {
	mu    sync.Mutex
	ids   map[string]int
	err   error
	calls []string
}

func (s *stubRegistry) EnsureSchema(ctx context.Context, subject string, schema string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, subject)
	if s.err != nil {
		return 0, s.err
	}
	if id, ok := s.ids[subject]; ok {
		return id, nil
	}
	return 1, nil
}

func outboxMessage(t *testing.T, id int64, eventType string, activityID int64, payload any) Message {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	route := events.Routes[eventType]
	return Message{
		EventID:       id,
		AggregateType: "enrollment",
		AggregateID:   "77",
		EventType:     eventType,
		Topic:         route.Topic,
		SchemaSubject: route.SchemaSubject,
		PartitionKey:  "12",
		Payload:       body,
	}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestDeliverFramesAndGroupsByTopic(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{ids: map[string]int{
		events.Routes[events.TypeEnrollmentCreated].SchemaSubject:   11,
		events.Routes[events.TypeEnrollmentCancelled].SchemaSubject: 12,
		events.Routes[events.TypeActivityDeleted].SchemaSubject:     13,
	}}
	d := NewDispatcher(nil, producer, registry, time.Second, 10)

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	messages := []Message{
		outboxMessage(t, 1, events.TypeEnrollmentCreated, 12, events.EnrollmentCreated{EnrollmentID: 77, ConsumerID: 3, ActivityID: 12, EnrolledAt: now}),
		outboxMessage(t, 2, events.TypeActivityDeleted, 12, events.ActivityDeleted{ActivityID: 12, ProviderID: 2, Dropped: 1, DeletedAt: now}),
		outboxMessage(t, 3, events.TypeEnrollmentCancelled, 12, events.EnrollmentCancelled{EnrollmentID: 77, ConsumerID: 3, ActivityID: 12, CancelledAt: now}),
	}

	require.NoError(t, d.deliver(context.Background(), messages))

	require.Len(t, producer.writes, 2)
	require.Equal(t, events.TopicEnrollments, producer.writes[0].topic)
	require.Len(t, producer.writes[0].messages, 2)
	require.Equal(t, events.TopicActivities, producer.writes[1].topic)

	first := producer.writes[0].messages[0]
	require.Equal(t, "12", string(first.Key))
	require.Equal(t, events.TypeEnrollmentCreated, header(first, HeaderEventType))
	require.Equal(t, "enrollment_events-EnrollmentCreated", header(first, HeaderSchemaSubject))
	require.Equal(t, "77", header(first, HeaderAggregateID))

	schemaID, payload, err := DecodeWireFormat(first.Value)
	require.NoError(t, err)
	require.Equal(t, 11, schemaID)
	var created events.EnrollmentCreated
	require.NoError(t, json.Unmarshal(payload, &created))
	require.Equal(t, int64(77), created.EnrollmentID)

	second := producer.writes[0].messages[1]
	schemaID, _, err = DecodeWireFormat(second.Value)
	require.NoError(t, err)
	require.Equal(t, 12, schemaID)
}

func TestDeliverCachesSchemaIDs(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{}
	d := NewDispatcher(nil, producer, registry, time.Second, 10)

	payload := events.EnrollmentCreated{EnrollmentID: 1, ConsumerID: 2, ActivityID: 3}
	messages := []Message{
		outboxMessage(t, 1, events.TypeEnrollmentCreated, 3, payload),
		outboxMessage(t, 2, events.TypeEnrollmentCreated, 3, payload),
	}
	require.NoError(t, d.deliver(context.Background(), messages))
	require.NoError(t, d.deliver(context.Background(), messages))

	require.Len(t, registry.calls, 1)
	require.Len(t, producer.writes, 2)
}

func TestDeliverFailures(t *testing.T) {
	payload := events.EnrollmentCreated{EnrollmentID: 1}

	t.Run("unknown event type", func(t *testing.T) {
		producer := &stubProducer{}
		registry := &stubRegistry{}
		d := NewDispatcher(nil, producer, registry, time.Second, 10)

		msg := outboxMessage(t, 1, events.TypeEnrollmentCreated, 3, payload)
		msg.EventType = "enrollment.renamed"
		err := d.deliver(context.Background(), []Message{msg})
		require.ErrorContains(t, err, "no schema metadata for event_type=enrollment.renamed")
		require.Empty(t, producer.writes)
		require.Empty(t, registry.calls)
	})

	t.Run("registry down", func(t *testing.T) {
		producer := &stubProducer{}
		d := NewDispatcher(nil, producer, &stubRegistry{err: errors.New("connection refused")}, time.Second, 10)
		err := d.deliver(context.Background(), []Message{outboxMessage(t, 1, events.TypeEnrollmentCreated, 3, payload)})
		require.ErrorContains(t, err, "connection refused")
		require.Empty(t, producer.writes)
	})

	t.Run("kafka down", func(t *testing.T) {
		d := NewDispatcher(nil, &stubProducer{err: errors.New("leader not available")}, &stubRegistry{}, time.Second, 10)
		err := d.deliver(context.Background(), []Message{outboxMessage(t, 1, events.TypeEnrollmentCreated, 3, payload)})
		require.ErrorContains(t, err, "write enrollment_events")
	})
}

func TestWireFormat(t *testing.T) {
	frame := encodeWireFormat(258, []byte(`{"a":1}`))
	require.Equal(t, []byte{0, 0, 0, 1, 2}, frame[:5])

	id, payload, err := DecodeWireFormat(frame)
	require.NoError(t, err)
	require.Equal(t, 258, id)
	require.JSONEq(t, `{"a":1}`, string(payload))

	_, _, err = DecodeWireFormat([]byte{0, 1})
	require.Error(t, err)
	_, _, err = DecodeWireFormat([]byte{1, 0, 0, 0, 1, '{', '}'})
	require.Error(t, err)
}

func TestSchemaCatalogCoversRoutes(t *testing.T) {
	for eventType := range events.Routes {
		schema, ok := schemaCatalog[eventType]
		require.True(t, ok, eventType)
		require.True(t, json.Valid([]byte(schema)), eventType)
	}
}

func TestBackoffDelay(t *testing.T) {
	m := NewDLQManager(nil, 0, 0, nopLogger)
	require.Equal(t, 5, m.maxRetries)
	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 2*time.Minute, m.backoffDelay(2))
	require.Equal(t, 16*time.Minute, m.backoffDelay(5))
	require.Equal(t, time.Hour, m.backoffDelay(7))
	require.Equal(t, time.Hour, m.backoffDelay(64))
}

func TestSchemaRegistryClient(t *testing.T) {
	var registered []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/subjects/known/versions/latest":
			_, _ = w.Write([]byte(`{"id": 5, "version": 1}`))
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error_code": 40401}`))
		case r.Method == http.MethodPost && r.URL.Path == "/subjects/fresh/versions":
			require.Equal(t, "application/vnd.schemaregistry.v1+json", r.Header.Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "JSON", body["schemaType"])
			registered = append(registered, body["schema"])
			_, _ = w.Write([]byte(`{"id": 9}`))
		default:
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message": "incompatible"}`))
		}
	}))
	defer srv.Close()

	client := NewSchemaRegistryClient(srv.URL + "/")
	ctx := context.Background()

	id, err := client.EnsureSchema(ctx, "known", enrollmentCreatedSchema)
	require.NoError(t, err)
	require.Equal(t, 5, id)
	require.Empty(t, registered)

	id, err = client.EnsureSchema(ctx, "fresh", enrollmentCreatedSchema)
	require.NoError(t, err)
	require.Equal(t, 9, id)
	require.Equal(t, []string{enrollmentCreatedSchema}, registered)

	_, err = client.EnsureSchema(ctx, "broken", enrollmentCreatedSchema)
	require.ErrorContains(t, err, "422")
}

func TestRecordBatchLabelsByEventType(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "events_total"}, []string{"topic", "event_type"})
	payload := events.EnrollmentCreated{EnrollmentID: 1}
	recordBatch(counter, []Message{
		outboxMessage(t, 1, events.TypeEnrollmentCreated, 3, payload),
		outboxMessage(t, 2, events.TypeEnrollmentCreated, 3, payload),
		outboxMessage(t, 3, events.TypeEnrollmentCancelled, 3, payload),
	})

	require.InDelta(t, 2, testutil.ToFloat64(counter.WithLabelValues(events.TopicEnrollments, events.TypeEnrollmentCreated)), 0.0001)
	require.InDelta(t, 1, testutil.ToFloat64(counter.WithLabelValues(events.TopicEnrollments, events.TypeEnrollmentCancelled)), 0.0001)
}

func TestKafkaProducerCollectsPerTopic(t *testing.T) {
	producer := NewKafkaProducer([]string{"localhost:9092"})
	defer producer.Close()

	require.Zero(t, testutil.CollectAndCount(producer))

	producer.writerForTopic(events.TopicEnrollments)
	producer.writerForTopic(events.TopicActivities)
	require.Equal(t, 2, testutil.CollectAndCount(producer, "booking_service_kafka_writer_messages_total"))
	require.Equal(t, 2, testutil.CollectAndCount(producer, "booking_service_kafka_writer_errors_total"))
}
