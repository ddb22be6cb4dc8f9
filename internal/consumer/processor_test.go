package consumer

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func framed(schemaID int, payload string) []byte {
	value := make([]byte, 5+len(payload))
	binary.BigEndian.PutUint32(value[1:5], uint32(schemaID))
	copy(value[5:], payload)
	return value
}

func enrollmentRecord(offset int64, value []byte) kafka.Message {
	return kafka.Message{
		Topic:     "enrollment_events",
		Partition: 0,
		Offset:    offset,
		Time:      time.Now().UTC(),
		Value:     value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("enrollment.created")},
			{Key: "schema_subject", Value: []byte("enrollment_events-EnrollmentCreated")},
			{Key: "aggregate_id", Value: []byte("31")},
		},
	}
}

func newTestProcessor(t *testing.T, reader Reader, handler Handler) *Processor {
	return NewProcessor(reader, handler, WithLogger(zerolog.New(zerolog.NewTestWriter(t))), WithRetryDelay(0))
}

func TestProcessorCommitsOnSuccess(t *testing.T) {
	payload := `{"enrollment_id":31,"consumer_id":4,"activity_id":9}`
	reader := &stubReader{messages: []kafka.Message{enrollmentRecord(10, framed(42, payload))}}
	handler := &stubHandler{}

	err := newTestProcessor(t, reader, handler).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "enrollment.created", handler.last.EventType)
	require.Equal(t, "enrollment_events-EnrollmentCreated", handler.last.SchemaSubject)
	require.Equal(t, "31", handler.last.AggregateID)
	require.Equal(t, 42, handler.last.SchemaID)
	require.Equal(t, int64(10), handler.last.Offset)
	require.JSONEq(t, payload, string(handler.last.Payload))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{enrollmentRecord(20, framed(99, `{"enrollment_id":1}`))}}
	handler := &stubHandler{err: errors.New("boom")}

	before := testutil.ToFloat64(handlerErrorCounter.WithLabelValues("enrollment_events", "enrollment.created"))
	err := newTestProcessor(t, reader, handler).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Zero(t, reader.commitCalls)
	require.InDelta(t, before+1, testutil.ToFloat64(handlerErrorCounter.WithLabelValues("enrollment_events", "enrollment.created")), 0.0001)
}

func TestProcessorCommitsMalformedMessages(t *testing.T) {
	noHeader := enrollmentRecord(3, framed(1, `{}`))
	noHeader.Headers = nil

	cases := []kafka.Message{
		enrollmentRecord(1, []byte{0, 1}),
		enrollmentRecord(2, append([]byte{7}, framed(1, `{}`)[1:]...)),
		noHeader,
		enrollmentRecord(4, framed(1, `{not json`)),
	}

	before := testutil.ToFloat64(decodeErrorCounter.WithLabelValues("enrollment_events"))
	reader := &stubReader{messages: cases}
	handler := &stubHandler{}

	err := newTestProcessor(t, reader, handler).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Zero(t, handler.calls)
	require.Equal(t, len(cases), reader.commitCalls)
	require.InDelta(t, before+float64(len(cases)), testutil.ToFloat64(decodeErrorCounter.WithLabelValues("enrollment_events")), 0.0001)
}

func TestProcessorRetriesAfterFetchError(t *testing.T) {
	reader := &stubReader{
		fetchErrs: []error{errors.New("broker unreachable")},
		messages:  []kafka.Message{enrollmentRecord(5, framed(2, `{}`))},
	}
	handler := &stubHandler{}

	err := newTestProcessor(t, reader, handler).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, handler.calls)
}

func TestProcessorStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &stubReader{messages: []kafka.Message{enrollmentRecord(1, framed(1, `{}`))}}
	handler := &stubHandler{}

	err := newTestProcessor(t, reader, handler).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, handler.calls)
}

type stubReader struct {
	fetchErrs   []error
	messages    []kafka.Message
	index       int
	commitCalls int
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		return kafka.Message{}, err
	}
	if r.index >= len(r.messages) {
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}
